package layers

import (
	"fmt"
	"math"

	"github.com/born-ml/infer/internal/tensor"
)

// Pooling2D is a strided max or average pooling layer. Padded cells are
// ignored: max takes the in-bounds maximum and average divides by the
// in-bounds count.
type Pooling2D struct {
	base
	window  Window
	average bool
}

// NewMaxPooling2D creates a max pooling layer.
func NewMaxPooling2D(name string, pool, strides tensor.Shape2, padding Padding, offsets Offsets) (*Pooling2D, error) {
	return newPooling2D(name, "MaxPooling2D", pool, strides, padding, offsets, false)
}

// NewAveragePooling2D creates an average pooling layer.
func NewAveragePooling2D(name string, pool, strides tensor.Shape2, padding Padding, offsets Offsets) (*Pooling2D, error) {
	return newPooling2D(name, "AveragePooling2D", pool, strides, padding, offsets, true)
}

func newPooling2D(name, kind string, pool, strides tensor.Shape2, padding Padding, offsets Offsets, average bool) (*Pooling2D, error) {
	l := &Pooling2D{base: newBase(name, kind), average: average}
	if pool.Height <= 0 || pool.Width <= 0 {
		return nil, l.errorf("invalid pool size %s", pool)
	}
	if strides.Height <= 0 || strides.Width <= 0 {
		return nil, l.errorf("invalid strides %s", strides)
	}
	l.window = Window{Kernel: pool, Strides: strides, Padding: padding, Offsets: offsets}
	return l, nil
}

// Window returns the pooling window configuration.
func (l *Pooling2D) Window() Window { return l.window }

// ParamCount returns 0.
func (l *Pooling2D) ParamCount() int { return 0 }

// OutputShapes returns (depth, out_h, out_w).
func (l *Pooling2D) OutputShapes(inputs []tensor.Shape3) ([]tensor.Shape3, error) {
	if err := l.expectInputs(len(inputs), 1); err != nil {
		return nil, err
	}
	g, err := l.window.resolve(inputs[0].Spatial())
	if err != nil {
		return nil, l.errorf("%v", err)
	}
	return []tensor.Shape3{tensor.NewShape3(inputs[0].Depth, g.out.Height, g.out.Width)}, nil
}

// Apply pools the single input.
func (l *Pooling2D) Apply(inputs []tensor.Tensor3) ([]tensor.Tensor3, error) {
	if err := l.expectInputs(len(inputs), 1); err != nil {
		return nil, err
	}
	in := inputs[0]
	s := in.Shape()
	g, err := l.window.resolve(s.Spatial())
	if err != nil {
		return nil, l.errorf("%v", err)
	}

	w := l.window
	out := tensor.Zeros(tensor.NewShape3(s.Depth, g.out.Height, g.out.Width))
	for z := 0; z < s.Depth; z++ {
		for oy := 0; oy < g.out.Height; oy++ {
			y0 := oy*w.Strides.Height - g.leadTop
			for ox := 0; ox < g.out.Width; ox++ {
				x0 := ox*w.Strides.Width - g.leadLeft
				acc := float32(math.Inf(-1))
				if l.average {
					acc = 0
				}
				count := 0
				for ky := max(y0, 0); ky < min(y0+w.Kernel.Height, s.Height); ky++ {
					for kx := max(x0, 0); kx < min(x0+w.Kernel.Width, s.Width); kx++ {
						v := in.Get(z, ky, kx)
						if l.average {
							acc += v
						} else {
							acc = max(acc, v)
						}
						count++
					}
				}
				switch {
				case count == 0:
					acc = 0
				case l.average:
					acc /= float32(count)
				}
				out.Set(z, oy, ox, acc)
			}
		}
	}
	return l.finish(out, nil)
}

// String returns a short description.
func (l *Pooling2D) String() string {
	return fmt.Sprintf("%s(pool=%s, strides=%s, padding=%s)", l.kind, l.window.Kernel, l.window.Strides, l.window.Padding)
}

// GlobalPooling2D reduces every depth slice to one value, giving (depth, 1, 1).
type GlobalPooling2D struct {
	base
	average bool
}

// NewGlobalMaxPooling2D creates a global max pooling layer.
func NewGlobalMaxPooling2D(name string) *GlobalPooling2D {
	return &GlobalPooling2D{base: newBase(name, "GlobalMaxPooling2D")}
}

// NewGlobalAveragePooling2D creates a global average pooling layer.
func NewGlobalAveragePooling2D(name string) *GlobalPooling2D {
	return &GlobalPooling2D{base: newBase(name, "GlobalAveragePooling2D"), average: true}
}

// ParamCount returns 0.
func (l *GlobalPooling2D) ParamCount() int { return 0 }

// OutputShapes returns (depth, 1, 1).
func (l *GlobalPooling2D) OutputShapes(inputs []tensor.Shape3) ([]tensor.Shape3, error) {
	if err := l.expectInputs(len(inputs), 1); err != nil {
		return nil, err
	}
	if inputs[0].Height == 0 || inputs[0].Width == 0 {
		return nil, l.errorf("cannot pool empty input %s", inputs[0])
	}
	return []tensor.Shape3{tensor.NewShape3(inputs[0].Depth, 1, 1)}, nil
}

// Apply pools the single input.
func (l *GlobalPooling2D) Apply(inputs []tensor.Tensor3) ([]tensor.Tensor3, error) {
	shapes, err := l.OutputShapes(shapesOf(inputs))
	if err != nil {
		return nil, err
	}
	in := inputs[0]
	plane := in.Shape().Height * in.Shape().Width
	out := tensor.Zeros(shapes[0])
	for z := 0; z < in.Shape().Depth; z++ {
		slice := in.Values()[z*plane : (z+1)*plane]
		acc := slice[0]
		for _, v := range slice[1:] {
			if l.average {
				acc += v
			} else {
				acc = max(acc, v)
			}
		}
		if l.average {
			acc /= float32(plane)
		}
		out.Values()[z] = acc
	}
	return l.finish(out, nil)
}
