package tensor

import (
	"fmt"
	"unsafe"
)

// Device represents the compute device for tensor operations.
type Device int

// Supported compute devices.
const (
	CPU Device = iota
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	default:
		return "Unknown"
	}
}

// RawTensor is the low-level tensor representation: a flat row-major byte
// buffer plus shape metadata.
//
// The buffer may be shared between RawTensors (see AliasOf): backends never
// mutate their inputs, so sharing is safe. The struct identity, however, is
// significant: the autodiff tape keys gradients by *RawTensor, so two
// RawTensors over the same buffer are distinct nodes in the computation
// graph. This is what makes zero-copy detachment possible.
type RawTensor struct {
	data   []byte
	shape  Shape
	stride []int
	dtype  DataType
	device Device
}

// NewRaw creates a new RawTensor with the given shape and type.
// Memory is allocated and zero-initialized.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}

	return &RawTensor{
		data:   make([]byte, shape.NumElements()*dtype.Size()),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
		device: device,
	}, nil
}

// AliasOf returns a new RawTensor identity over the same buffer and metadata.
// Values are shared (zero-copy); graph identity is not.
func AliasOf(r *RawTensor) *RawTensor {
	return &RawTensor{
		data:   r.data,
		shape:  r.shape.Clone(),
		stride: append([]int(nil), r.stride...),
		dtype:  r.dtype,
		device: r.device,
	}
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Strides returns the tensor's row-major strides.
func (r *RawTensor) Strides() []int {
	return r.stride
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// Device returns the tensor's compute device.
func (r *RawTensor) Device() Device {
	return r.device
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// AsFloat32 interprets the buffer as []float32.
// Panics if the tensor's dtype is not Float32.
func (r *RawTensor) AsFloat32() []float32 {
	if r.dtype != Float32 {
		panic(fmt.Sprintf("tensor dtype is %s, not float32", r.dtype))
	}
	if len(r.data) == 0 {
		return nil
	}
	//nolint:gosec // zero-copy view, length bounded by NumElements
	return unsafe.Slice((*float32)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsInt32 interprets the buffer as []int32.
// Panics if the tensor's dtype is not Int32.
func (r *RawTensor) AsInt32() []int32 {
	if r.dtype != Int32 {
		panic(fmt.Sprintf("tensor dtype is %s, not int32", r.dtype))
	}
	if len(r.data) == 0 {
		return nil
	}
	//nolint:gosec // zero-copy view, length bounded by NumElements
	return unsafe.Slice((*int32)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// Clone creates a deep copy of the RawTensor.
func (r *RawTensor) Clone() *RawTensor {
	out := AliasOf(r)
	out.data = append([]byte(nil), r.data...)
	return out
}

// String returns a short description of the raw tensor.
func (r *RawTensor) String() string {
	return fmt.Sprintf("RawTensor[%s]%v on %s", r.dtype, r.shape, r.device)
}
