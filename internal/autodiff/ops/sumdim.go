package ops

import "github.com/ember-ml/ember/internal/tensor"

// SumDimOp represents a reduction along one dimension: output = sum(x, dim).
//
// Backward pass spreads each lane's gradient to every position of the reduced
// dimension, optionally scaled by 1/size for the mean variant.
type SumDimOp struct {
	inputs []*tensor.RawTensor // [x]
	output *tensor.RawTensor
	dim    int
	mean   bool
}

// NewSumDimOp creates a new SumDimOp. dim must be the resolved
// (non-negative) dimension used in the forward pass.
func NewSumDimOp(x, output *tensor.RawTensor, dim int) *SumDimOp {
	return &SumDimOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
		dim:    dim,
	}
}

// NewMeanDimOp creates the mean variant of SumDimOp.
func NewMeanDimOp(x, output *tensor.RawTensor, dim int) *SumDimOp {
	return &SumDimOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
		dim:    dim,
		mean:   true,
	}
}

// Backward spreads the lane gradients across the reduced dimension.
func (op *SumDimOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	x := op.inputs[0]
	shape := x.Shape()
	grad := zerosLike(x)

	outer, inner := 1, 1
	for d := 0; d < op.dim; d++ {
		outer *= shape[d]
	}
	for d := op.dim + 1; d < len(shape); d++ {
		inner *= shape[d]
	}
	size := shape[op.dim]

	scale := float32(1)
	if op.mean {
		scale = 1 / float32(size)
	}

	// The output gradient data layout is identical whether or not the
	// forward pass kept the reduced dimension: outer*inner lanes.
	gData := outputGrad.AsFloat32()
	data := grad.AsFloat32()
	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			g := gData[o*inner+in] * scale
			base := o*size*inner + in
			for i := 0; i < size; i++ {
				data[base+i*inner] = g
			}
		}
	}
	return []*tensor.RawTensor{grad}
}

// Inputs returns the input tensor [x].
func (op *SumDimOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the reduced tensor.
func (op *SumDimOp) Output() *tensor.RawTensor {
	return op.output
}
