package ops

import "github.com/ember-ml/ember/internal/tensor"

// MulOp represents element-wise multiplication: output = a * b.
//
// Backward pass: d(a*b)/da = b and d(a*b)/db = a, each reduced along any
// broadcast dimensions.
type MulOp struct {
	inputs []*tensor.RawTensor // [a, b]
	output *tensor.RawTensor
}

// NewMulOp creates a new MulOp.
func NewMulOp(a, b, output *tensor.RawTensor) *MulOp {
	return &MulOp{
		inputs: []*tensor.RawTensor{a, b},
		output: output,
	}
}

// Backward computes input gradients for multiplication.
func (op *MulOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]
	gradA := reduceBroadcast(backend.Mul(outputGrad, b), a.Shape(), backend)
	gradB := reduceBroadcast(backend.Mul(outputGrad, a), b.Shape(), backend)
	return []*tensor.RawTensor{gradA, gradB}
}

// Inputs returns the input tensors [a, b].
func (op *MulOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the output tensor a * b.
func (op *MulOp) Output() *tensor.RawTensor {
	return op.output
}
