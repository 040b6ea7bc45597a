package cpu

import (
	"fmt"
	"math"

	"github.com/ember-ml/ember/internal/parallel"
	"github.com/ember-ml/ember/internal/tensor"
)

// lanes decomposes a shape around dim into (outer, size, inner) so that a
// reduction over dim can iterate outer*inner independent lanes.
func lanes(shape tensor.Shape, dim int) (outer, size, inner int) {
	outer, inner = 1, 1
	for d := 0; d < dim; d++ {
		outer *= shape[d]
	}
	for d := dim + 1; d < len(shape); d++ {
		inner *= shape[d]
	}
	return outer, shape[dim], inner
}

// Softmax computes softmax along dim with max-shifting for numerical
// stability.
func (cpu *CPUBackend) Softmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	dim = tensor.NormDim(dim, len(shape))

	out := cpu.newRaw(shape, tensor.Float32)
	src := x.AsFloat32()
	dst := out.AsFloat32()

	outer, size, inner := lanes(shape, dim)
	parallel.For(outer*inner, func(lane int) {
		o, in := lane/inner, lane%inner
		base := o*size*inner + in

		maxVal := float32(math.Inf(-1))
		for i := 0; i < size; i++ {
			if v := src[base+i*inner]; v > maxVal {
				maxVal = v
			}
		}

		sum := float32(0)
		for i := 0; i < size; i++ {
			e := float32(math.Exp(float64(src[base+i*inner] - maxVal)))
			dst[base+i*inner] = e
			sum += e
		}
		for i := 0; i < size; i++ {
			dst[base+i*inner] /= sum
		}
	}, cpu.par)

	return out
}

// ReLU applies max(0, x) element-wise.
func (cpu *CPUBackend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	out := cpu.newRaw(x.Shape(), tensor.Float32)
	src := x.AsFloat32()
	dst := out.AsFloat32()
	parallel.ForRange(len(src), func(s, e int) {
		for i := s; i < e; i++ {
			if src[i] > 0 {
				dst[i] = src[i]
			}
		}
	}, cpu.par)
	return out
}

// Rsqrt computes 1/sqrt(x) element-wise.
func (cpu *CPUBackend) Rsqrt(x *tensor.RawTensor) *tensor.RawTensor {
	out := cpu.newRaw(x.Shape(), tensor.Float32)
	src := x.AsFloat32()
	dst := out.AsFloat32()
	for i := range src {
		dst[i] = float32(1.0 / math.Sqrt(float64(src[i])))
	}
	return out
}

// Clamp limits every element to [lo, hi]. Out-of-range values saturate.
func (cpu *CPUBackend) Clamp(x *tensor.RawTensor, lo, hi float32) *tensor.RawTensor {
	out := cpu.newRaw(x.Shape(), tensor.Float32)
	src := x.AsFloat32()
	dst := out.AsFloat32()
	parallel.ForRange(len(src), func(s, e int) {
		for i := s; i < e; i++ {
			v := src[i]
			if v < lo {
				v = lo
			} else if v > hi {
				v = hi
			}
			dst[i] = v
		}
	}, cpu.par)
	return out
}

// Sum computes the total sum, returning a scalar (0-D) tensor.
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	out := cpu.newRaw(tensor.Shape{}, tensor.Float32)
	sum := float32(0)
	for _, v := range x.AsFloat32() {
		sum += v
	}
	out.AsFloat32()[0] = sum
	return out
}

// SumDim sums along dim. With keepDim the reduced dimension is kept with
// size 1.
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return cpu.reduceDim(x, dim, keepDim, false)
}

// MeanDim averages along dim. With keepDim the reduced dimension is kept
// with size 1.
func (cpu *CPUBackend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return cpu.reduceDim(x, dim, keepDim, true)
}

func (cpu *CPUBackend) reduceDim(x *tensor.RawTensor, dim int, keepDim, mean bool) *tensor.RawTensor {
	shape := x.Shape()
	dim = tensor.NormDim(dim, len(shape))

	outShape := make(tensor.Shape, 0, len(shape))
	outShape = append(outShape, shape[:dim]...)
	if keepDim {
		outShape = append(outShape, 1)
	}
	outShape = append(outShape, shape[dim+1:]...)

	out := cpu.newRaw(outShape, tensor.Float32)
	src := x.AsFloat32()
	dst := out.AsFloat32()

	outer, size, inner := lanes(shape, dim)
	parallel.For(outer*inner, func(lane int) {
		o, in := lane/inner, lane%inner
		base := o*size*inner + in

		sum := float32(0)
		for i := 0; i < size; i++ {
			sum += src[base+i*inner]
		}
		if mean {
			sum /= float32(size)
		}
		dst[o*inner+in] = sum
	}, cpu.par)

	return out
}

// Argmax returns int32 indices of the maximum along dim, with that dimension
// removed. Ties resolve to the lowest index.
func (cpu *CPUBackend) Argmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	dim = tensor.NormDim(dim, len(shape))

	outShape := make(tensor.Shape, 0, len(shape)-1)
	outShape = append(outShape, shape[:dim]...)
	outShape = append(outShape, shape[dim+1:]...)

	out := cpu.newRaw(outShape, tensor.Int32)
	src := x.AsFloat32()
	dst := out.AsInt32()

	outer, size, inner := lanes(shape, dim)
	parallel.For(outer*inner, func(lane int) {
		o, in := lane/inner, lane%inner
		base := o*size*inner + in

		best := src[base]
		bestIdx := int32(0)
		for i := 1; i < size; i++ {
			if v := src[base+i*inner]; v > best {
				best = v
				bestIdx = int32(i)
			}
		}
		dst[o*inner+in] = bestIdx
	}, cpu.par)

	return out
}

// Embedding performs row lookup: weight [num, dim], indices of any shape
// [...] -> output [..., dim]. Panics on out-of-range indices.
func (cpu *CPUBackend) Embedding(weight, indices *tensor.RawTensor) *tensor.RawTensor {
	wShape := weight.Shape()
	if len(wShape) != 2 {
		panic(fmt.Sprintf("embedding: weight must be 2D, got %v", wShape))
	}
	num, dim := wShape[0], wShape[1]

	outShape := append(indices.Shape().Clone(), dim)
	out := cpu.newRaw(outShape, tensor.Float32)

	wData := weight.AsFloat32()
	idxData := indices.AsInt32()
	outData := out.AsFloat32()

	for i, idx := range idxData {
		if idx < 0 || int(idx) >= num {
			panic(fmt.Sprintf("embedding: index %d out of range [0, %d)", idx, num))
		}
		copy(outData[i*dim:(i+1)*dim], wData[int(idx)*dim:(int(idx)+1)*dim])
	}
	return out
}
