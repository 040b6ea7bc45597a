// Package tokenizer provides text tokenization for feeding the language
// model, wrapping the pkoukk/tiktoken-go BPE implementation.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/ember-ml/ember/internal/tensor"
)

// TikToken wraps the pkoukk/tiktoken-go library for OpenAI BPE encodings.
//
// Supported encodings include cl100k_base (GPT-4 family), p50k_base and
// r50k_base (GPT-3 family).
type TikToken struct {
	encoding *tiktoken.Tiktoken
	name     string
}

// NewTikToken creates a TikToken tokenizer with the specified encoding.
func NewTikToken(encodingName string) (*TikToken, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %q: %w", encodingName, err)
	}
	return &TikToken{
		encoding: encoding,
		name:     encodingName,
	}, nil
}

// NewTikTokenForModel creates a TikToken tokenizer for a specific model
// name, such as "gpt-4" or "gpt-3.5-turbo".
func NewTikTokenForModel(modelName string) (*TikToken, error) {
	encoding, err := tiktoken.EncodingForModel(modelName)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken for model %q: %w", modelName, err)
	}
	return &TikToken{
		encoding: encoding,
		name:     modelName,
	}, nil
}

// Name returns the encoding or model name this tokenizer was created with.
func (t *TikToken) Name() string {
	return t.name
}

// Encode converts text to token ids.
func (t *TikToken) Encode(text string) ([]int32, error) {
	tokens := t.encoding.Encode(text, nil, nil)
	result := make([]int32, len(tokens))
	for i, tok := range tokens {
		result[i] = int32(tok) //nolint:gosec // G115: token ids fit in int32, vocab size < 2^31.
	}
	return result, nil
}

// Decode converts token ids back to text.
func (t *TikToken) Decode(tokens []int32) (string, error) {
	intTokens := make([]int, len(tokens))
	for i, tok := range tokens {
		intTokens[i] = int(tok)
	}
	return t.encoding.Decode(intTokens), nil
}

// EncodeBatch tokenizes texts into a right-padded [batch, seq] id tensor
// suitable for the model's forward pass. seq is the longest encoding in the
// batch; shorter rows are padded with padID.
func EncodeBatch[B tensor.Backend](t *TikToken, texts []string, padID int32, backend B) (*tensor.Tensor[int32, B], error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("encode batch: no texts given")
	}

	rows := make([][]int32, len(texts))
	maxLen := 0
	for i, text := range texts {
		ids, err := t.Encode(text)
		if err != nil {
			return nil, err
		}
		rows[i] = ids
		if len(ids) > maxLen {
			maxLen = len(ids)
		}
	}
	if maxLen == 0 {
		return nil, fmt.Errorf("encode batch: all texts encoded to zero tokens")
	}

	data := make([]int32, len(texts)*maxLen)
	for i, ids := range rows {
		row := data[i*maxLen : (i+1)*maxLen]
		copy(row, ids)
		for j := len(ids); j < maxLen; j++ {
			row[j] = padID
		}
	}
	return tensor.FromSlice(data, tensor.Shape{len(texts), maxLen}, backend)
}
