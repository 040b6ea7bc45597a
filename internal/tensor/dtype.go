package tensor

// DataType represents the runtime element type of a tensor.
type DataType int

// Supported data types.
const (
	Float32 DataType = iota
	Int32
)

// Size returns the size of one element in bytes.
func (d DataType) Size() int {
	switch d {
	case Float32:
		return 4
	case Int32:
		return 4
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable type name.
func (d DataType) String() string {
	switch d {
	case Float32:
		return "float32"
	case Int32:
		return "int32"
	default:
		return "unknown"
	}
}

// DType is the compile-time constraint for tensor element types.
//
// Float32 carries all model state and activations; Int32 carries token ids
// and argmax indices.
type DType interface {
	float32 | int32
}

// inferDataType maps a Go value to its DataType tag.
func inferDataType(v any) DataType {
	switch v.(type) {
	case float32:
		return Float32
	case int32:
		return Int32
	default:
		panic("unsupported element type")
	}
}
