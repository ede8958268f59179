package layers

import (
	"github.com/born-ml/infer/internal/tensor"
)

// flatValues returns t's values in height, width, depth order (channels
// fastest), matching the Keras channels_last flatten order.
func flatValues(t tensor.Tensor3) []float32 {
	s := t.Shape()
	if s.Depth == 1 || (s.Height == 1 && s.Width == 1) {
		return t.Values()
	}
	out := make([]float32, 0, s.Volume())
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			for z := 0; z < s.Depth; z++ {
				out = append(out, t.Get(z, y, x))
			}
		}
	}
	return out
}

// Flatten turns its input into a row vector (1, 1, volume).
type Flatten struct {
	base
}

// NewFlatten creates a flatten layer.
func NewFlatten(name string) *Flatten {
	return &Flatten{base: newBase(name, "Flatten")}
}

// ParamCount returns 0.
func (l *Flatten) ParamCount() int { return 0 }

// OutputShapes returns (1, 1, volume).
func (l *Flatten) OutputShapes(inputs []tensor.Shape3) ([]tensor.Shape3, error) {
	if err := l.expectInputs(len(inputs), 1); err != nil {
		return nil, err
	}
	return []tensor.Shape3{tensor.NewShape3(1, 1, inputs[0].Volume())}, nil
}

// Apply flattens the single input.
func (l *Flatten) Apply(inputs []tensor.Tensor3) ([]tensor.Tensor3, error) {
	if err := l.expectInputs(len(inputs), 1); err != nil {
		return nil, err
	}
	values := append([]float32(nil), flatValues(inputs[0])...)
	return l.finish(tensor.NewTensor3(tensor.NewShape3(1, 1, len(values)), values))
}

// UpSampling2D repeats rows and columns (nearest neighbour).
type UpSampling2D struct {
	base
	scale tensor.Shape2
}

// NewUpSampling2D creates an upsampling layer with per-axis factors.
func NewUpSampling2D(name string, scale tensor.Shape2) (*UpSampling2D, error) {
	l := &UpSampling2D{base: newBase(name, "UpSampling2D"), scale: scale}
	if scale.Height <= 0 || scale.Width <= 0 {
		return nil, l.errorf("invalid upsampling size %s", scale)
	}
	return l, nil
}

// Scale returns the upsampling factors.
func (l *UpSampling2D) Scale() tensor.Shape2 { return l.scale }

// ParamCount returns 0.
func (l *UpSampling2D) ParamCount() int { return 0 }

// OutputShapes returns (depth, h*sy, w*sx).
func (l *UpSampling2D) OutputShapes(inputs []tensor.Shape3) ([]tensor.Shape3, error) {
	if err := l.expectInputs(len(inputs), 1); err != nil {
		return nil, err
	}
	s := inputs[0]
	return []tensor.Shape3{tensor.NewShape3(s.Depth, s.Height*l.scale.Height, s.Width*l.scale.Width)}, nil
}

// Apply upsamples the single input.
func (l *UpSampling2D) Apply(inputs []tensor.Tensor3) ([]tensor.Tensor3, error) {
	shapes, err := l.OutputShapes(shapesOf(inputs))
	if err != nil {
		return nil, err
	}
	in := inputs[0]
	out := tensor.Zeros(shapes[0])
	for z := 0; z < shapes[0].Depth; z++ {
		for y := 0; y < shapes[0].Height; y++ {
			for x := 0; x < shapes[0].Width; x++ {
				out.Set(z, y, x, in.Get(z, y/l.scale.Height, x/l.scale.Width))
			}
		}
	}
	return l.finish(out, nil)
}

// ZeroPadding2D surrounds each depth slice with zeros.
type ZeroPadding2D struct {
	base
	top, bottom, left, right int
}

// NewZeroPadding2D creates a padding layer with four edge paddings.
func NewZeroPadding2D(name string, top, bottom, left, right int) (*ZeroPadding2D, error) {
	l := &ZeroPadding2D{base: newBase(name, "ZeroPadding2D"), top: top, bottom: bottom, left: left, right: right}
	if top < 0 || bottom < 0 || left < 0 || right < 0 {
		return nil, l.errorf("negative padding (%d, %d, %d, %d)", top, bottom, left, right)
	}
	return l, nil
}

// Paddings returns top, bottom, left and right padding.
func (l *ZeroPadding2D) Paddings() (top, bottom, left, right int) {
	return l.top, l.bottom, l.left, l.right
}

// ParamCount returns 0.
func (l *ZeroPadding2D) ParamCount() int { return 0 }

// OutputShapes returns the padded shape.
func (l *ZeroPadding2D) OutputShapes(inputs []tensor.Shape3) ([]tensor.Shape3, error) {
	if err := l.expectInputs(len(inputs), 1); err != nil {
		return nil, err
	}
	s := inputs[0]
	return []tensor.Shape3{tensor.NewShape3(s.Depth, s.Height+l.top+l.bottom, s.Width+l.left+l.right)}, nil
}

// Apply pads the single input.
func (l *ZeroPadding2D) Apply(inputs []tensor.Tensor3) ([]tensor.Tensor3, error) {
	shapes, err := l.OutputShapes(shapesOf(inputs))
	if err != nil {
		return nil, err
	}
	in := inputs[0]
	s := in.Shape()
	out := tensor.Zeros(shapes[0])
	for z := 0; z < s.Depth; z++ {
		for y := 0; y < s.Height; y++ {
			for x := 0; x < s.Width; x++ {
				out.Set(z, y+l.top, x+l.left, in.Get(z, y, x))
			}
		}
	}
	return l.finish(out, nil)
}

// Dropout is the identity at inference time.
type Dropout struct {
	base
	rate float32
}

// NewDropout creates a dropout layer; rate is kept for inspection only.
func NewDropout(name string, rate float32) *Dropout {
	return &Dropout{base: newBase(name, "Dropout"), rate: rate}
}

// Rate returns the training-time drop rate.
func (l *Dropout) Rate() float32 { return l.rate }

// ParamCount returns 0.
func (l *Dropout) ParamCount() int { return 0 }

// OutputShapes returns the input shape.
func (l *Dropout) OutputShapes(inputs []tensor.Shape3) ([]tensor.Shape3, error) {
	if err := l.expectInputs(len(inputs), 1); err != nil {
		return nil, err
	}
	return []tensor.Shape3{inputs[0]}, nil
}

// Apply returns the input unchanged.
func (l *Dropout) Apply(inputs []tensor.Tensor3) ([]tensor.Tensor3, error) {
	if err := l.expectInputs(len(inputs), 1); err != nil {
		return nil, err
	}
	return l.finish(inputs[0], nil)
}
