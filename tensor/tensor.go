// Copyright 2026 Ember ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for tensor operations in the Ember
// ML framework.
//
// The package defines the core types for type-safe tensor computation:
//   - Tensor[T, B]: high-level generic tensor
//   - RawTensor: untyped storage with shape and dtype
//   - Backend: interface for compute implementations
//   - Shape, DataType, Device: core definitions
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	y := tensor.Ones[float32](tensor.Shape{2, 3}, backend)
//	z := x.Add(y)
package tensor

import (
	"math/rand"

	"github.com/ember-ml/ember/internal/tensor"
)

// DType is the constraint for tensor element types.
type DType = tensor.DType

// DataType represents the underlying data type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Int32   DataType = tensor.Int32
)

// Device represents where tensor data resides.
type Device = tensor.Device

// CPU is the only supported device.
const CPU Device = tensor.CPU

// Shape represents the dimensions of a tensor.
type Shape = tensor.Shape

// Backend is the interface for device-specific compute implementations.
type Backend = tensor.Backend

// RawTensor is the untyped tensor storage underlying Tensor.
type RawTensor = tensor.RawTensor

// Tensor is a generic type-safe tensor over element type T and backend B.
type Tensor[T DType, B Backend] = tensor.Tensor[T, B]

// New creates a tensor from a raw tensor.
func New[T DType, B Backend](raw *RawTensor, b B) *Tensor[T, B] {
	return tensor.New[T, B](raw, b)
}

// NewRaw creates a raw tensor with the given shape, dtype and device.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// AliasOf returns a raw tensor with a fresh identity sharing r's buffer.
func AliasOf(r *RawTensor) *RawTensor {
	return tensor.AliasOf(r)
}

// Zeros creates a tensor filled with zeros.
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Zeros[T, B](shape, b)
}

// Ones creates a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Ones[T, B](shape, b)
}

// Full creates a tensor filled with a specific value.
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	return tensor.Full[T, B](shape, value, b)
}

// Randn creates a float32 tensor of standard normal draws from rng.
func Randn[B Backend](shape Shape, rng *rand.Rand, b B) *Tensor[float32, B] {
	return tensor.Randn(shape, rng, b)
}

// FromSlice creates a tensor from a Go slice.
func FromSlice[T DType, B Backend](data []T, shape Shape, b B) (*Tensor[T, B], error) {
	return tensor.FromSlice(data, shape, b)
}

// MustFromSlice is FromSlice that panics on shape mismatch.
func MustFromSlice[T DType, B Backend](data []T, shape Shape, b B) *Tensor[T, B] {
	return tensor.MustFromSlice(data, shape, b)
}

// Cat concatenates tensors along a dimension.
func Cat[T DType, B Backend](tensors []*Tensor[T, B], dim int) *Tensor[T, B] {
	return tensor.Cat(tensors, dim)
}
