package autodiff

import (
	"fmt"

	"github.com/ember-ml/ember/internal/tensor"
)

// BackwardCapable is the interface for backends that support a backward
// pass. AutodiffBackend implements it.
type BackwardCapable interface {
	tensor.Backend
	// GetTape returns the gradient tape for backward computation.
	GetTape() *GradientTape
}

// GetTape returns the gradient tape (implements BackwardCapable).
func (b *AutodiffBackend[B]) GetTape() *GradientTape {
	return b.tape
}

// Backward computes gradients of t with respect to every tensor on the tape,
// seeding the output gradient with ones. Returns a map from raw tensor to
// its gradient.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//	x := tensor.Ones[float32](tensor.Shape{2}, backend)
//	y := x.Mul(x)
//	grads := autodiff.Backward(y, backend)
//	grad := grads[x.Raw()]
func Backward[T tensor.DType, B BackwardCapable](t *tensor.Tensor[T, B], backend B) map[*tensor.RawTensor]*tensor.RawTensor {
	tape := backend.GetTape()
	if tape.NumOps() == 0 {
		panic("backward: no operations recorded (did you forget to call Tape().StartRecording()?)")
	}

	outputGrad, err := tensor.NewRaw(t.Shape(), t.DType(), backend.Device())
	if err != nil {
		panic(fmt.Sprintf("backward: failed to create output gradient: %v", err))
	}
	if t.DType() != tensor.Float32 {
		panic(fmt.Sprintf("backward: unsupported dtype %s", t.DType()))
	}
	data := outputGrad.AsFloat32()
	for i := range data {
		data[i] = 1
	}

	return tape.Backward(t.Raw(), outputGrad, backend)
}
