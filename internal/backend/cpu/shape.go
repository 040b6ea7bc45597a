package cpu

import (
	"fmt"

	"github.com/ember-ml/ember/internal/tensor"
)

// Reshape returns a tensor with the same elements and a new shape.
func (cpu *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	if t.NumElements() != newShape.NumElements() {
		panic(fmt.Sprintf("reshape: cannot reshape %v (%d elements) to %v (%d elements)",
			t.Shape(), t.NumElements(), newShape, newShape.NumElements()))
	}

	out := cpu.newRaw(newShape, t.DType())
	copyElements(out, 0, t, 0, t.NumElements())
	return out
}

// Transpose permutes dimensions. With no axes given, all dimensions are
// reversed.
func (cpu *CPUBackend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := t.Shape()
	ndim := len(shape)

	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: expected %d axes, got %d", ndim, len(axes)))
	}

	outShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		outShape[i] = shape[ax]
	}

	out := cpu.newRaw(outShape, t.DType())

	inStrides := shape.ComputeStrides()
	outStrides := outShape.ComputeStrides()
	n := t.NumElements()

	switch t.DType() {
	case tensor.Float32:
		src, dst := t.AsFloat32(), out.AsFloat32()
		for i := 0; i < n; i++ {
			dst[i] = src[transposedOffset(i, axes, inStrides, outStrides)]
		}
	case tensor.Int32:
		src, dst := t.AsInt32(), out.AsInt32()
		for i := 0; i < n; i++ {
			dst[i] = src[transposedOffset(i, axes, inStrides, outStrides)]
		}
	default:
		panic(fmt.Sprintf("transpose: unsupported dtype %s", t.DType()))
	}

	return out
}

// transposedOffset maps a flat output offset to the corresponding flat input
// offset under the axis permutation.
func transposedOffset(outOff int, axes, inStrides, outStrides []int) int {
	inOff := 0
	rem := outOff
	for d := range axes {
		idx := rem / outStrides[d]
		rem %= outStrides[d]
		inOff += idx * inStrides[axes[d]]
	}
	return inOff
}

// Cat concatenates tensors along dim. All inputs must share dtype and shape
// except along dim.
func (cpu *CPUBackend) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	if len(tensors) == 0 {
		panic("cat: need at least one tensor")
	}

	first := tensors[0]
	ndim := len(first.Shape())
	dim = tensor.NormDim(dim, ndim)

	total := 0
	for _, t := range tensors {
		shape := t.Shape()
		if len(shape) != ndim || t.DType() != first.DType() {
			panic("cat: mismatched ranks or dtypes")
		}
		for d := 0; d < ndim; d++ {
			if d != dim && shape[d] != first.Shape()[d] {
				panic(fmt.Sprintf("cat: shape %v incompatible with %v along dim %d", shape, first.Shape(), dim))
			}
		}
		total += shape[dim]
	}

	outShape := first.Shape().Clone()
	outShape[dim] = total
	out := cpu.newRaw(outShape, first.DType())

	// Copy per outer slice: each input contributes a contiguous block of
	// rows (dim and everything after it) for every index of the leading
	// dimensions.
	outer := 1
	for d := 0; d < dim; d++ {
		outer *= outShape[d]
	}
	inner := 1
	for d := dim + 1; d < ndim; d++ {
		inner *= outShape[d]
	}

	outRow := total * inner
	dstOff := 0
	for _, t := range tensors {
		block := t.Shape()[dim] * inner
		for o := 0; o < outer; o++ {
			copyElements(out, o*outRow+dstOff, t, o*block, block)
		}
		dstOff += block
	}

	return out
}

// Narrow returns a copy of length elements starting at start along dim.
func (cpu *CPUBackend) Narrow(t *tensor.RawTensor, dim, start, length int) *tensor.RawTensor {
	shape := t.Shape()
	dim = tensor.NormDim(dim, len(shape))
	if start < 0 || length <= 0 || start+length > shape[dim] {
		panic(fmt.Sprintf("narrow: range [%d,%d) invalid for dimension of size %d", start, start+length, shape[dim]))
	}

	outShape := shape.Clone()
	outShape[dim] = length
	out := cpu.newRaw(outShape, t.DType())

	outer := 1
	for d := 0; d < dim; d++ {
		outer *= shape[d]
	}
	inner := 1
	for d := dim + 1; d < len(shape); d++ {
		inner *= shape[d]
	}

	srcRow := shape[dim] * inner
	dstRow := length * inner
	for o := 0; o < outer; o++ {
		copyElements(out, o*dstRow, t, o*srcRow+start*inner, dstRow)
	}
	return out
}

// copyElements copies n elements between raw tensors of the same dtype.
func copyElements(dst *tensor.RawTensor, dstOff int, src *tensor.RawTensor, srcOff, n int) {
	switch src.DType() {
	case tensor.Float32:
		copy(dst.AsFloat32()[dstOff:dstOff+n], src.AsFloat32()[srcOff:srcOff+n])
	case tensor.Int32:
		copy(dst.AsInt32()[dstOff:dstOff+n], src.AsInt32()[srcOff:srcOff+n])
	default:
		panic(fmt.Sprintf("copy: unsupported dtype %s", src.DType()))
	}
}
