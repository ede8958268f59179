package layers

import (
	"github.com/born-ml/infer/internal/tensor"
)

// InputLayer is a graph entry point. Declared dimensions of zero accept any
// extent.
type InputLayer struct {
	base
	shape tensor.Shape3
}

// NewInput creates an input layer with a declared shape.
func NewInput(name string, shape tensor.Shape3) *InputLayer {
	return &InputLayer{base: newBase(name, "InputLayer"), shape: shape}
}

// Shape returns the declared input shape.
func (l *InputLayer) Shape() tensor.Shape3 { return l.shape }

// ParamCount returns 0.
func (l *InputLayer) ParamCount() int { return 0 }

// accepts reports whether s matches the declared shape.
func (l *InputLayer) accepts(s tensor.Shape3) bool {
	match := func(declared, actual int) bool { return declared == 0 || declared == actual }
	return match(l.shape.Depth, s.Depth) && match(l.shape.Height, s.Height) && match(l.shape.Width, s.Width)
}

// OutputShapes checks the input against the declared shape.
func (l *InputLayer) OutputShapes(inputs []tensor.Shape3) ([]tensor.Shape3, error) {
	if err := l.expectInputs(len(inputs), 1); err != nil {
		return nil, err
	}
	if !l.accepts(inputs[0]) {
		return nil, l.errorf("input shape %s does not match declared %s", inputs[0], l.shape)
	}
	return []tensor.Shape3{inputs[0]}, nil
}

// Apply passes the input through after checking its shape.
func (l *InputLayer) Apply(inputs []tensor.Tensor3) ([]tensor.Tensor3, error) {
	if _, err := l.OutputShapes(shapesOf(inputs)); err != nil {
		return nil, err
	}
	return l.finish(inputs[0], nil)
}
