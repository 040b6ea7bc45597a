package ops

import "github.com/ember-ml/ember/internal/tensor"

// MulScalarOp represents scalar multiplication: output = x * scalar.
type MulScalarOp struct {
	inputs []*tensor.RawTensor // [x]
	output *tensor.RawTensor
	scalar float32
}

// NewMulScalarOp creates a new MulScalarOp.
func NewMulScalarOp(x, output *tensor.RawTensor, scalar float32) *MulScalarOp {
	return &MulScalarOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
		scalar: scalar,
	}
}

// Backward scales the output gradient by the same scalar.
func (op *MulScalarOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.MulScalar(outputGrad, op.scalar)}
}

// Inputs returns the input tensor [x].
func (op *MulScalarOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the output tensor x * scalar.
func (op *MulScalarOp) Output() *tensor.RawTensor {
	return op.output
}
