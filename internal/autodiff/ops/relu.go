package ops

import "github.com/ember-ml/ember/internal/tensor"

// ReLUOp represents the rectified linear unit: output = max(0, x).
//
// Backward pass passes the gradient through where x > 0 and blocks it
// elsewhere.
type ReLUOp struct {
	inputs []*tensor.RawTensor // [x]
	output *tensor.RawTensor
}

// NewReLUOp creates a new ReLUOp.
func NewReLUOp(x, output *tensor.RawTensor) *ReLUOp {
	return &ReLUOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
	}
}

// Backward masks the output gradient by the activation pattern.
func (op *ReLUOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	x := op.inputs[0]
	grad := zerosLike(x)

	xData := x.AsFloat32()
	gData := outputGrad.AsFloat32()
	out := grad.AsFloat32()
	for i, v := range xData {
		if v > 0 {
			out[i] = gData[i]
		}
	}
	return []*tensor.RawTensor{grad}
}

// Inputs returns the input tensor [x].
func (op *ReLUOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the activated tensor.
func (op *ReLUOp) Output() *tensor.RawTensor {
	return op.output
}
