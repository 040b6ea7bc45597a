package ops

import (
	"fmt"

	"github.com/ember-ml/ember/internal/tensor"
)

// reduceBroadcast reduces a gradient tensor to match the target shape after a
// broadcast forward pass: leading broadcast dimensions are summed away and
// size-1 dimensions are summed with keepDim.
//
// Example:
//
//	Forward: a[3,1] + b[3,4] -> c[3,4]
//	Backward: grad_c[3,4] -> grad_a[3,1]
func reduceBroadcast(grad *tensor.RawTensor, targetShape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	if grad.Shape().Equal(targetShape) {
		return grad
	}

	result := grad
	for len(result.Shape()) > len(targetShape) {
		result = backend.SumDim(result, 0, false)
	}

	for d, size := range targetShape {
		if size == 1 && result.Shape()[d] > 1 {
			result = backend.SumDim(result, d, true)
		}
	}

	if !result.Shape().Equal(targetShape) {
		panic(fmt.Sprintf("reduceBroadcast: cannot reduce %v to %v", grad.Shape(), targetShape))
	}
	return result
}

// zerosLike allocates a zero gradient with the same shape and dtype as t.
func zerosLike(t *tensor.RawTensor) *tensor.RawTensor {
	out, err := tensor.NewRaw(t.Shape(), t.DType(), t.Device())
	if err != nil {
		panic(fmt.Sprintf("zerosLike: %v", err))
	}
	return out
}
