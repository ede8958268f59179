package tensor

import (
	"fmt"

	"github.com/born-ml/infer/internal/errdefs"
	"github.com/born-ml/infer/internal/weights"
	"github.com/tidwall/gjson"
)

// Tensor3 is a dense depth x height x width volume of float32 values.
//
// Tensor3 is a small value type; copies share the backing slice, use Clone
// for an independent copy.
type Tensor3 struct {
	shape  Shape3
	values []float32
}

// NewTensor3 creates a tensor from a shape and its flat values.
// The value count must equal the shape's volume.
func NewTensor3(shape Shape3, values []float32) (Tensor3, error) {
	if len(values) != shape.Volume() {
		return Tensor3{}, errdefs.Formatf("values", "tensor of shape %s needs %d values, got %d",
			shape, shape.Volume(), len(values))
	}
	return Tensor3{shape: shape, values: values}, nil
}

// Zeros creates a zero-filled tensor.
func Zeros(shape Shape3) Tensor3 {
	return Tensor3{shape: shape, values: make([]float32, shape.Volume())}
}

// Shape returns the tensor's shape.
func (t Tensor3) Shape() Shape3 {
	return t.shape
}

// Values returns the backing slice in depth-major order.
func (t Tensor3) Values() []float32 {
	return t.values
}

// Index returns the flat offset of (z, y, x).
func (t Tensor3) Index(z, y, x int) int {
	return (z*t.shape.Height+y)*t.shape.Width + x
}

// Get returns the value at (z, y, x).
func (t Tensor3) Get(z, y, x int) float32 {
	return t.values[t.Index(z, y, x)]
}

// Set stores v at (z, y, x).
func (t Tensor3) Set(z, y, x int, v float32) {
	t.values[t.Index(z, y, x)] = v
}

// Clone returns a deep copy.
func (t Tensor3) Clone() Tensor3 {
	return Tensor3{shape: t.shape, values: append([]float32(nil), t.values...)}
}

// Reshape returns a tensor sharing t's values with a new shape of equal volume.
func (t Tensor3) Reshape(shape Shape3) (Tensor3, error) {
	return NewTensor3(shape, t.values)
}

// String returns a short description.
func (t Tensor3) String() string {
	return fmt.Sprintf("Tensor3%s", t.shape)
}

// ParseTensor3 reads {"shape": [...], "values": <blob>}.
func ParseTensor3(data gjson.Result) (Tensor3, error) {
	if !data.IsObject() {
		return Tensor3{}, errdefs.Formatf("tensor", "expected object, got %s", data.Type)
	}
	shape, err := ParseShape3(data.Get("shape"))
	if err != nil {
		return Tensor3{}, err
	}
	values, err := weights.Decode(data.Get("values"))
	if err != nil {
		return Tensor3{}, fmt.Errorf("tensor values: %w", err)
	}
	return NewTensor3(shape, values)
}

// ParseTensor3s reads an array of tensors.
func ParseTensor3s(data gjson.Result) ([]Tensor3, error) {
	if !data.IsArray() {
		return nil, errdefs.Formatf("tensors", "expected array, got %s", data.Type)
	}
	elems := data.Array()
	out := make([]Tensor3, len(elems))
	for i, e := range elems {
		t, err := ParseTensor3(e)
		if err != nil {
			return nil, fmt.Errorf("tensor %d: %w", i, err)
		}
		out[i] = t
	}
	return out, nil
}
