// Copyright 2026 Ember ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tokenizer provides the public API for text tokenization.
//
// Example:
//
//	tok, err := tokenizer.NewTikToken("cl100k_base")
//	ids, err := tok.Encode("Hello, world!")
package tokenizer

import (
	"github.com/ember-ml/ember/internal/tensor"
	"github.com/ember-ml/ember/internal/tokenizer"
)

// TikToken is a BPE tokenizer backed by pkoukk/tiktoken-go.
type TikToken = tokenizer.TikToken

// NewTikToken creates a TikToken tokenizer with the specified encoding,
// such as "cl100k_base".
func NewTikToken(encodingName string) (*TikToken, error) {
	return tokenizer.NewTikToken(encodingName)
}

// NewTikTokenForModel creates a TikToken tokenizer for a model name, such
// as "gpt-4".
func NewTikTokenForModel(modelName string) (*TikToken, error) {
	return tokenizer.NewTikTokenForModel(modelName)
}

// EncodeBatch tokenizes texts into a right-padded [batch, seq] id tensor.
func EncodeBatch[B tensor.Backend](t *TikToken, texts []string, padID int32, backend B) (*tensor.Tensor[int32, B], error) {
	return tokenizer.EncodeBatch(t, texts, padID, backend)
}
