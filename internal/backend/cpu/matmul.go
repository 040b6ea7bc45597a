package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/ember-ml/ember/internal/tensor"
)

// MatMul performs 2D matrix multiplication: (M, K) @ (K, N) -> (M, N).
// Float32 GEMM is delegated to gonum BLAS.
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape := a.Shape()
	bShape := b.Shape()

	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("matmul: only 2D tensors supported, got %dD and %dD", len(aShape), len(bShape)))
	}
	if a.DType() != tensor.Float32 || b.DType() != tensor.Float32 {
		panic(fmt.Sprintf("matmul: requires float32 operands, got %s and %s", a.DType(), b.DType()))
	}

	m, k := aShape[0], aShape[1]
	kAlt, n := bShape[0], bShape[1]
	if k != kAlt {
		panic(fmt.Sprintf("matmul: shape mismatch [%d,%d] @ [%d,%d]", m, k, kAlt, n))
	}

	out := cpu.newRaw(tensor.Shape{m, n}, tensor.Float32)
	gemm(out.AsFloat32(), a.AsFloat32(), b.AsFloat32(), m, k, n)
	return out
}

// BatchMatMul performs batched matrix multiplication for 4D tensors:
// (B, H, M, K) @ (B, H, K, N) -> (B, H, M, N).
func (cpu *CPUBackend) BatchMatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape := a.Shape()
	bShape := b.Shape()

	if len(aShape) != 4 || len(bShape) != 4 {
		panic(fmt.Sprintf("batchmatmul: only 4D tensors supported, got %dD and %dD", len(aShape), len(bShape)))
	}
	if aShape[0] != bShape[0] || aShape[1] != bShape[1] {
		panic(fmt.Sprintf("batchmatmul: batch dims mismatch %v vs %v", aShape, bShape))
	}

	batch, heads := aShape[0], aShape[1]
	m, k := aShape[2], aShape[3]
	kAlt, n := bShape[2], bShape[3]
	if k != kAlt {
		panic(fmt.Sprintf("batchmatmul: inner dims mismatch %v @ %v", aShape, bShape))
	}

	out := cpu.newRaw(tensor.Shape{batch, heads, m, n}, tensor.Float32)

	aData := a.AsFloat32()
	bData := b.AsFloat32()
	outData := out.AsFloat32()

	aStep, bStep, outStep := m*k, k*n, m*n
	for i := 0; i < batch*heads; i++ {
		gemm(outData[i*outStep:(i+1)*outStep],
			aData[i*aStep:(i+1)*aStep],
			bData[i*bStep:(i+1)*bStep],
			m, k, n)
	}
	return out
}

// gemm computes C = A @ B for row-major float32 matrices via gonum BLAS.
func gemm(c, a, b []float32, m, k, n int) {
	blas32.Gemm(blas.NoTrans, blas.NoTrans, 1,
		blas32.General{Rows: m, Cols: k, Stride: k, Data: a},
		blas32.General{Rows: k, Cols: n, Stride: n, Data: b},
		0,
		blas32.General{Rows: m, Cols: n, Stride: n, Data: c})
}
