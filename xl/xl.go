// Copyright 2026 Ember ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package xl provides the public API for the Transformer-XL style language
// model with segment-level recurrence.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	model, err := xl.New(xl.Config{
//	    NLayer: 2, NEmbedding: 100, NStateFFN: 200, NHead: 4,
//	    NContext: 12, VocabSize: 1000, NPositionalEmbedding: 10,
//	    InitializerRange: 0.02,
//	}, backend)
//	out, cache, err := model.Forward(ids, nil, 0)
//	out, cache, err = model.Forward(nextIDs, cache, 0)
package xl

import (
	"github.com/ember-ml/ember/internal/tensor"
	"github.com/ember-ml/ember/internal/xl"
)

// Config holds the model hyperparameters.
type Config = xl.Config

// Output bundles logits, probabilities and predictions of one forward pass.
type Output[B tensor.Backend] = xl.Output[B]

// TransformerXL is the segment-recurrent language model.
type TransformerXL[B tensor.Backend] = xl.TransformerXL[B]

// New builds a model from the configuration.
func New[B tensor.Backend](cfg Config, backend B) (*TransformerXL[B], error) {
	return xl.New(cfg, backend)
}
