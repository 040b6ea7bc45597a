// Package nn implements the neural network modules of the Ember framework.
//
// Building blocks:
//   - Module interface: base interface for simple feed-forward components
//   - Parameter: trainable tensors with gradient tracking
//   - Linear, LayerNorm, TiedEmbedding, FFN, Dropout
//   - RelMultiHeadAttention, DecoderLayer, Decoder: the recurrent decoder
//     stack with segment-level key/value memory
//
// Design inspired by PyTorch's nn.Module but adapted for Go generics.
package nn

import (
	"github.com/ember-ml/ember/internal/tensor"
)

// Module is the base interface for components with a plain tensor-to-tensor
// forward pass. Components that carry extra state through their forward pass
// (attention with memory, dropout with a training flag) expose their own
// Forward signatures instead.
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all trainable parameters of this module.
	Parameters() []*Parameter[B]
}
