// Copyright 2026 Ember ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the public API for neural network modules: the
// decoder stack with segment-level key/value recurrence and its building
// blocks.
package nn

import (
	"math/rand"

	"github.com/ember-ml/ember/internal/nn"
	"github.com/ember-ml/ember/internal/tensor"
)

// Module is the common interface for plain tensor-to-tensor modules.
type Module[B tensor.Backend] = nn.Module[B]

// Parameter represents a trainable parameter.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// NewParameter creates a parameter with the given name and tensor.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return nn.NewParameter(name, t)
}

// Initializer produces initial parameter values from a seeded source.
type Initializer = nn.Initializer

// NewInitializer creates an Initializer with the given stddev and seed.
func NewInitializer(std float64, seed int64) *Initializer {
	return nn.NewInitializer(std, seed)
}

// Linear is a fully connected layer.
type Linear[B tensor.Backend] = nn.Linear[B]

// NewLinear creates a Linear layer.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, withBias bool, init *Initializer, backend B) *Linear[B] {
	return nn.NewLinear(inFeatures, outFeatures, withBias, init, backend)
}

// LayerNorm normalizes activations over the last dimension.
type LayerNorm[B tensor.Backend] = nn.LayerNorm[B]

// NewLayerNorm creates a LayerNorm over a trailing dimension of size dim.
func NewLayerNorm[B tensor.Backend](dim int, eps float32, init *Initializer, backend B) *LayerNorm[B] {
	return nn.NewLayerNorm(dim, eps, init, backend)
}

// TiedEmbedding is a token embedding whose weight doubles as the output
// projection.
type TiedEmbedding[B tensor.Backend] = nn.TiedEmbedding[B]

// NewTiedEmbedding creates a TiedEmbedding.
func NewTiedEmbedding[B tensor.Backend](numEmbeddings, dim int, init *Initializer, backend B) *TiedEmbedding[B] {
	return nn.NewTiedEmbedding(numEmbeddings, dim, init, backend)
}

// Dropout randomly zeroes elements during training.
type Dropout[B tensor.Backend] = nn.Dropout[B]

// NewDropout creates a Dropout layer with drop probability p.
func NewDropout[B tensor.Backend](p float32, rng *rand.Rand, backend B) *Dropout[B] {
	return nn.NewDropout(p, rng, backend)
}

// FFN is the position-wise feed-forward block.
type FFN[B tensor.Backend] = nn.FFN[B]

// NewFFN creates an FFN mapping dim -> stateDim -> dim.
func NewFFN[B tensor.Backend](dim, stateDim int, init *Initializer, backend B) *FFN[B] {
	return nn.NewFFN(dim, stateDim, init, backend)
}

// RelMultiHeadAttention is causal attention with relative position bias and
// key/value memory.
type RelMultiHeadAttention[B tensor.Backend] = nn.RelMultiHeadAttention[B]

// DecoderLayer is one pre-norm decoder block.
type DecoderLayer[B tensor.Backend] = nn.DecoderLayer[B]

// Decoder is the recurrent decoder stack.
type Decoder[B tensor.Backend] = nn.Decoder[B]

// NewDecoder creates a decoder stack.
func NewDecoder[B tensor.Backend](
	nLayer, dim, stateDim, nHead, nBuckets int,
	eps float32,
	attnDrop, residDrop *Dropout[B],
	init *Initializer,
	backend B,
) *Decoder[B] {
	return nn.NewDecoder(nLayer, dim, stateDim, nHead, nBuckets, eps, attnDrop, residDrop, init, backend)
}

// LayerKV holds one layer's cached attention keys and values.
type LayerKV[B tensor.Backend] = nn.LayerKV[B]

// DetachKV detaches every layer's cache from the computation graph.
func DetachKV[B tensor.Backend](mems []LayerKV[B]) []LayerKV[B] {
	return nn.DetachKV(mems)
}
