package layers

import (
	"fmt"
	"slices"

	"github.com/born-ml/infer/internal/filter"
	"github.com/born-ml/infer/internal/parallel"
	"github.com/born-ml/infer/internal/tensor"
)

// FiltersFromKernel splits a Keras conv kernel laid out (kh, kw, depth, count)
// into count filters of shape (depth, kh, kw) with the given biases.
// len(weights) must equal kh*kw*depth*count and len(bias) must equal count.
func FiltersFromKernel(weights []float32, kernel tensor.Shape2, depth, count int, bias []float32) []filter.Filter {
	shape := tensor.NewShape3(depth, kernel.Height, kernel.Width)
	filters := make([]filter.Filter, count)
	for f := range filters {
		w := tensor.Zeros(shape)
		for y := 0; y < kernel.Height; y++ {
			for x := 0; x < kernel.Width; x++ {
				for z := 0; z < depth; z++ {
					w.Set(z, y, x, weights[((y*kernel.Width+x)*depth+z)*count+f])
				}
			}
		}
		filters[f] = filter.New(w, bias[f])
	}
	return filters
}

// convolve correlates in with each filter; output depth is len(filters).
func convolve(in tensor.Tensor3, filters []filter.Filter, w Window) (tensor.Tensor3, error) {
	s := in.Shape()
	fs := filters[0].Shape()
	if fs.Depth != s.Depth {
		return tensor.Tensor3{}, fmt.Errorf("input depth %d does not match filter depth %d", s.Depth, fs.Depth)
	}
	g, err := w.resolve(s.Spatial())
	if err != nil {
		return tensor.Tensor3{}, err
	}

	out := tensor.Zeros(tensor.NewShape3(len(filters), g.out.Height, g.out.Width))
	parallel.For(len(filters), func(f int) {
		flt := filters[f]
		for oy := 0; oy < g.out.Height; oy++ {
			y0 := oy*w.Strides.Height - g.leadTop
			for ox := 0; ox < g.out.Width; ox++ {
				x0 := ox*w.Strides.Width - g.leadLeft
				sum := flt.Bias()
				for z := 0; z < fs.Depth; z++ {
					for ky := 0; ky < fs.Height; ky++ {
						iy := y0 + ky
						if iy < 0 || iy >= s.Height {
							continue
						}
						for kx := 0; kx < fs.Width; kx++ {
							ix := x0 + kx
							if ix < 0 || ix >= s.Width {
								continue
							}
							sum += in.Get(z, iy, ix) * flt.Get(z, ky, kx)
						}
					}
				}
				out.Set(f, oy, ox, sum)
			}
		}
	}, parallel.DefaultConfig())
	return out, nil
}

// Conv2D is a 2-D convolution (cross-correlation) with a bank of filters.
type Conv2D struct {
	base
	filters []filter.Filter
	window  Window
}

// NewConv2D creates a convolution layer. All filters share one shape whose
// spatial extent is the kernel size.
func NewConv2D(name string, filters []filter.Filter, strides tensor.Shape2, padding Padding, offsets Offsets) (*Conv2D, error) {
	l := &Conv2D{base: newBase(name, "Conv2D"), filters: filters}
	if len(filters) == 0 {
		return nil, l.errorf("no filters")
	}
	for _, f := range filters[1:] {
		if f.Shape() != filters[0].Shape() {
			return nil, l.errorf("mixed filter shapes %s and %s", filters[0].Shape(), f.Shape())
		}
	}
	l.window = Window{
		Kernel:  filters[0].Shape().Spatial(),
		Strides: strides,
		Padding: padding,
		Offsets: offsets,
	}
	return l, nil
}

// Filters returns a copy of the filter bank.
func (l *Conv2D) Filters() []filter.Filter { return slices.Clone(l.filters) }

// Window returns the sliding window configuration.
func (l *Conv2D) Window() Window { return l.window }

// ParamCount sums the filters' parameters.
func (l *Conv2D) ParamCount() int {
	return len(l.filters) * l.filters[0].ParamCount()
}

// OutputShapes returns (filters, out_h, out_w).
func (l *Conv2D) OutputShapes(inputs []tensor.Shape3) ([]tensor.Shape3, error) {
	if err := l.expectInputs(len(inputs), 1); err != nil {
		return nil, err
	}
	if inputs[0].Depth != l.filters[0].Shape().Depth {
		return nil, l.errorf("input depth %d does not match filter depth %d", inputs[0].Depth, l.filters[0].Shape().Depth)
	}
	g, err := l.window.resolve(inputs[0].Spatial())
	if err != nil {
		return nil, l.errorf("%v", err)
	}
	return []tensor.Shape3{tensor.NewShape3(len(l.filters), g.out.Height, g.out.Width)}, nil
}

// Apply convolves the single input.
func (l *Conv2D) Apply(inputs []tensor.Tensor3) ([]tensor.Tensor3, error) {
	if err := l.expectInputs(len(inputs), 1); err != nil {
		return nil, err
	}
	out, err := convolve(inputs[0], l.filters, l.window)
	if err != nil {
		return nil, l.errorf("%v", err)
	}
	return l.finish(out, nil)
}

// String returns a short description.
func (l *Conv2D) String() string {
	return fmt.Sprintf("Conv2D(filters=%d, kernel=%s, strides=%s, padding=%s)",
		len(l.filters), l.window.Kernel, l.window.Strides, l.window.Padding)
}

// SeparableConv2D is a depthwise convolution (one single-depth filter per
// input channel) followed by a 1x1 pointwise convolution.
type SeparableConv2D struct {
	base
	depthwise []filter.Filter
	pointwise []filter.Filter
	window    Window
}

// NewSeparableConv2D creates a separable convolution. depthwise holds one
// (1, kh, kw) filter per input channel; pointwise holds (channels, 1, 1)
// filters, one per output channel.
func NewSeparableConv2D(name string, depthwise, pointwise []filter.Filter,
	strides tensor.Shape2, padding Padding, offsets Offsets) (*SeparableConv2D, error) {
	l := &SeparableConv2D{base: newBase(name, "SeparableConv2D"), depthwise: depthwise, pointwise: pointwise}
	if len(depthwise) == 0 || len(pointwise) == 0 {
		return nil, l.errorf("empty filter bank")
	}
	for _, f := range depthwise {
		if f.Shape() != depthwise[0].Shape() || f.Shape().Depth != 1 {
			return nil, l.errorf("depthwise filters must share one (1, h, w) shape, got %s", f.Shape())
		}
	}
	want := tensor.NewShape3(len(depthwise), 1, 1)
	for _, f := range pointwise {
		if f.Shape() != want {
			return nil, l.errorf("pointwise filter shape %s, want %s", f.Shape(), want)
		}
	}
	l.window = Window{
		Kernel:  depthwise[0].Shape().Spatial(),
		Strides: strides,
		Padding: padding,
		Offsets: offsets,
	}
	return l, nil
}

// Window returns the depthwise sliding window configuration.
func (l *SeparableConv2D) Window() Window { return l.window }

// ParamCount sums both filter banks. The depthwise stage carries no bias.
func (l *SeparableConv2D) ParamCount() int {
	return len(l.depthwise)*l.depthwise[0].Shape().Volume() + len(l.pointwise)*l.pointwise[0].ParamCount()
}

// OutputShapes returns (filters, out_h, out_w).
func (l *SeparableConv2D) OutputShapes(inputs []tensor.Shape3) ([]tensor.Shape3, error) {
	if err := l.expectInputs(len(inputs), 1); err != nil {
		return nil, err
	}
	if inputs[0].Depth != len(l.depthwise) {
		return nil, l.errorf("input depth %d does not match %d depthwise filters", inputs[0].Depth, len(l.depthwise))
	}
	g, err := l.window.resolve(inputs[0].Spatial())
	if err != nil {
		return nil, l.errorf("%v", err)
	}
	return []tensor.Shape3{tensor.NewShape3(len(l.pointwise), g.out.Height, g.out.Width)}, nil
}

// Apply runs the depthwise then the pointwise stage.
func (l *SeparableConv2D) Apply(inputs []tensor.Tensor3) ([]tensor.Tensor3, error) {
	if _, err := l.OutputShapes(shapesOf(inputs)); err != nil {
		return nil, err
	}
	in := inputs[0]
	s := in.Shape()
	plane := s.Height * s.Width

	var stacked tensor.Tensor3
	for z, f := range l.depthwise {
		slice, err := tensor.NewTensor3(tensor.NewShape3(1, s.Height, s.Width), in.Values()[z*plane:(z+1)*plane])
		if err != nil {
			return nil, err
		}
		part, err := convolve(slice, []filter.Filter{f}, l.window)
		if err != nil {
			return nil, l.errorf("%v", err)
		}
		if z == 0 {
			ps := part.Shape()
			stacked = tensor.Zeros(tensor.NewShape3(len(l.depthwise), ps.Height, ps.Width))
		}
		n := part.Shape().Volume()
		copy(stacked.Values()[z*n:(z+1)*n], part.Values())
	}

	pointwise := Window{Kernel: tensor.NewShape2(1, 1), Strides: tensor.NewShape2(1, 1), Padding: PaddingValid}
	out, err := convolve(stacked, l.pointwise, pointwise)
	if err != nil {
		return nil, l.errorf("%v", err)
	}
	return l.finish(out, nil)
}
