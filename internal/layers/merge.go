package layers

import (
	"github.com/born-ml/infer/internal/tensor"
)

// Add sums two or more inputs of identical shape element-wise.
type Add struct {
	base
}

// NewAdd creates an add layer.
func NewAdd(name string) *Add {
	return &Add{base: newBase(name, "Add")}
}

// ParamCount returns 0.
func (l *Add) ParamCount() int { return 0 }

// OutputShapes returns the common input shape.
func (l *Add) OutputShapes(inputs []tensor.Shape3) ([]tensor.Shape3, error) {
	if len(inputs) < 2 {
		return nil, l.errorf("Add expects at least 2 inputs, got %d", len(inputs))
	}
	for _, s := range inputs[1:] {
		if s != inputs[0] {
			return nil, l.errorf("cannot add shapes %s and %s", inputs[0], s)
		}
	}
	return []tensor.Shape3{inputs[0]}, nil
}

// Apply sums the inputs.
func (l *Add) Apply(inputs []tensor.Tensor3) ([]tensor.Tensor3, error) {
	if _, err := l.OutputShapes(shapesOf(inputs)); err != nil {
		return nil, err
	}
	out := inputs[0].Clone()
	values := out.Values()
	for _, in := range inputs[1:] {
		for i, v := range in.Values() {
			values[i] += v
		}
	}
	return l.finish(out, nil)
}

// Concatenate joins inputs along the channel axis: depth, or width when all
// inputs are row vectors.
type Concatenate struct {
	base
}

// NewConcatenate creates a concatenate layer.
func NewConcatenate(name string) *Concatenate {
	return &Concatenate{base: newBase(name, "Concatenate")}
}

// ParamCount returns 0.
func (l *Concatenate) ParamCount() int { return 0 }

// OutputShapes returns the joined shape.
func (l *Concatenate) OutputShapes(inputs []tensor.Shape3) ([]tensor.Shape3, error) {
	if len(inputs) == 0 {
		return nil, l.errorf("Concatenate expects at least 1 input")
	}
	vectors := true
	for _, s := range inputs {
		vectors = vectors && isVector(s)
	}

	out := inputs[0]
	for _, s := range inputs[1:] {
		if vectors {
			out.Width += s.Width
			continue
		}
		if s.Height != out.Height || s.Width != out.Width {
			return nil, l.errorf("cannot concatenate shapes %s and %s", inputs[0], s)
		}
		out.Depth += s.Depth
	}
	return []tensor.Shape3{out}, nil
}

// Apply joins the inputs. Depth-major layout makes both cases a plain
// concatenation of value slices.
func (l *Concatenate) Apply(inputs []tensor.Tensor3) ([]tensor.Tensor3, error) {
	shapes, err := l.OutputShapes(shapesOf(inputs))
	if err != nil {
		return nil, err
	}
	values := make([]float32, 0, shapes[0].Volume())
	for _, in := range inputs {
		values = append(values, in.Values()...)
	}
	return l.finish(tensor.NewTensor3(shapes[0], values))
}
