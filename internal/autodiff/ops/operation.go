// Package ops defines operation records for automatic differentiation.
//
// Each operation captures the raw input and output tensors of one forward
// step and knows how to map the output gradient back to input gradients.
package ops

import "github.com/ember-ml/ember/internal/tensor"

// Operation represents a differentiable operation in the computation graph.
type Operation interface {
	// Backward computes gradients for inputs given the output gradient.
	// The returned slice is positionally aligned with Inputs(); a nil entry
	// means no gradient flows to that input.
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// Inputs returns the input tensors for this operation.
	Inputs() []*tensor.RawTensor

	// Output returns the output tensor produced by this operation.
	Output() *tensor.RawTensor
}
