// Package cpu implements the CPU backend: pure Go element-wise kernels and
// gonum BLAS matrix kernels.
package cpu

import (
	"fmt"

	"github.com/ember-ml/ember/internal/parallel"
	"github.com/ember-ml/ember/internal/tensor"
)

// CPUBackend implements tensor operations on CPU.
//
// Every operation allocates a fresh output tensor; inputs are never modified.
// That discipline is load-bearing: the autodiff decorator keeps references to
// operation inputs, and detached cache views share buffers with live tensors.
type CPUBackend struct {
	device tensor.Device
	par    parallel.Config
}

// New creates a new CPU backend.
func New() *CPUBackend {
	return &CPUBackend{
		device: tensor.CPU,
		par:    parallel.DefaultConfig(),
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

func (cpu *CPUBackend) newRaw(shape tensor.Shape, dtype tensor.DataType) *tensor.RawTensor {
	out, err := tensor.NewRaw(shape, dtype, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("cpu: failed to allocate result tensor: %v", err))
	}
	return out
}

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("add", a, b, func(x, y float32) float32 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("sub", a, b, func(x, y float32) float32 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("mul", a, b, func(x, y float32) float32 { return x * y })
}

// MulScalar multiplies every element by a scalar.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar float32) *tensor.RawTensor {
	out := cpu.newRaw(x.Shape(), x.DType())
	xData := x.AsFloat32()
	outData := out.AsFloat32()
	parallel.ForRange(len(xData), func(s, e int) {
		for i := s; i < e; i++ {
			outData[i] = xData[i] * scalar
		}
	}, cpu.par)
	return out
}

// binary applies op element-wise with broadcasting. Float32 only: integer
// tensors carry ids and indices, which are never combined arithmetically.
func (cpu *CPUBackend) binary(name string, a, b *tensor.RawTensor, op func(x, y float32) float32) *tensor.RawTensor {
	if a.DType() != tensor.Float32 || b.DType() != tensor.Float32 {
		panic(fmt.Sprintf("%s: requires float32 operands, got %s and %s", name, a.DType(), b.DType()))
	}

	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	out := cpu.newRaw(outShape, tensor.Float32)
	aData := a.AsFloat32()
	bData := b.AsFloat32()
	outData := out.AsFloat32()

	if !needsBroadcast {
		parallel.ForRange(len(outData), func(s, e int) {
			for i := s; i < e; i++ {
				outData[i] = op(aData[i], bData[i])
			}
		}, cpu.par)
		return out
	}

	aStrides := broadcastStrides(a.Shape(), outShape)
	bStrides := broadcastStrides(b.Shape(), outShape)
	outStrides := outShape.ComputeStrides()

	for i := range outData {
		aOff, bOff := 0, 0
		rem := i
		for d := 0; d < len(outShape); d++ {
			idx := rem / outStrides[d]
			rem %= outStrides[d]
			aOff += idx * aStrides[d]
			bOff += idx * bStrides[d]
		}
		outData[i] = op(aData[aOff], bData[bOff])
	}
	return out
}

// broadcastStrides returns per-output-dimension strides into a tensor of
// shape in, with stride 0 for broadcast dimensions.
func broadcastStrides(in, out tensor.Shape) []int {
	inStrides := in.ComputeStrides()
	strides := make([]int, len(out))
	offset := len(out) - len(in)
	for d := range out {
		if d < offset {
			continue // implicit leading dimension, stride 0
		}
		if in[d-offset] == 1 && out[d] != 1 {
			continue // broadcast dimension, stride 0
		}
		strides[d] = inStrides[d-offset]
	}
	return strides
}
