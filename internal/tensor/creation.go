package tensor

import (
	"fmt"
	"math/rand"
)

func mustRaw[T DType](shape Shape, device Device) *RawTensor {
	var dummy T
	raw, err := NewRaw(shape, inferDataType(dummy), device)
	if err != nil {
		panic(fmt.Sprintf("failed to allocate tensor: %v", err))
	}
	return raw
}

// Zeros creates a tensor filled with zeros.
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return New[T, B](mustRaw[T](shape, b.Device()), b)
}

// Ones creates a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return Full[T](shape, 1, b)
}

// Full creates a tensor filled with the given value.
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	t := New[T, B](mustRaw[T](shape, b.Device()), b)
	data := t.Data()
	for i := range data {
		data[i] = value
	}
	return t
}

// Randn creates a float32 tensor with values drawn from N(0, 1) using the
// given source. Pass a seeded *rand.Rand for reproducible initialization.
func Randn[B Backend](shape Shape, rng *rand.Rand, b B) *Tensor[float32, B] {
	t := New[float32, B](mustRaw[float32](shape, b.Device()), b)
	data := t.Data()
	for i := range data {
		data[i] = float32(rng.NormFloat64())
	}
	return t
}

// Cat concatenates tensors along the given dimension.
// All tensors must have identical shapes except along dim.
func Cat[T DType, B Backend](tensors []*Tensor[T, B], dim int) *Tensor[T, B] {
	if len(tensors) == 0 {
		panic("Cat: need at least one tensor")
	}

	backend := tensors[0].backend
	raws := make([]*RawTensor, len(tensors))
	for i, t := range tensors {
		raws[i] = t.raw
	}

	return New[T, B](backend.Cat(raws, dim), backend)
}
