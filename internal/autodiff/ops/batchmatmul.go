package ops

import "github.com/ember-ml/ember/internal/tensor"

// BatchMatMulOp represents batched matrix multiplication over 4D tensors:
// output[b,h] = a[b,h] @ b[b,h].
//
// Backward pass mirrors MatMulOp per batch entry, with transposes on the two
// trailing dimensions.
type BatchMatMulOp struct {
	inputs []*tensor.RawTensor // [a, b]
	output *tensor.RawTensor
}

// NewBatchMatMulOp creates a new BatchMatMulOp.
func NewBatchMatMulOp(a, b, output *tensor.RawTensor) *BatchMatMulOp {
	return &BatchMatMulOp{
		inputs: []*tensor.RawTensor{a, b},
		output: output,
	}
}

// Backward computes input gradients for batched matrix multiplication.
func (op *BatchMatMulOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]

	bT := backend.Transpose(b, 0, 1, 3, 2)
	gradA := backend.BatchMatMul(outputGrad, bT)

	aT := backend.Transpose(a, 0, 1, 3, 2)
	gradB := backend.BatchMatMul(aT, outputGrad)

	return []*tensor.RawTensor{gradA, gradB}
}

// Inputs returns the input tensors [a, b].
func (op *BatchMatMulOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the batched product.
func (op *BatchMatMulOp) Output() *tensor.RawTensor {
	return op.output
}
