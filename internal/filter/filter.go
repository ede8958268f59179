// Package filter provides convolution kernels: an odd-sized 3-D weight
// volume plus a scalar bias.
package filter

import (
	"fmt"

	"github.com/born-ml/infer/internal/tensor"
)

// Filter is one convolution kernel.
type Filter struct {
	weights tensor.Tensor3
	bias    float32
}

// New creates a filter from its weights and bias. The weights are copied.
//
// Height and width must be odd; an even dimension is a contract violation
// and panics.
func New(weights tensor.Tensor3, bias float32) Filter {
	s := weights.Shape()
	if s.Height%2 != 1 || s.Width%2 != 1 {
		panic(fmt.Sprintf("filter: height and width must be odd, got %s", s))
	}
	return Filter{weights: weights.Clone(), bias: bias}
}

// Shape returns the weight volume's shape.
func (f Filter) Shape() tensor.Shape3 {
	return f.weights.Shape()
}

// Get returns the weight at (z, y, x).
func (f Filter) Get(z, y, x int) float32 {
	return f.weights.Get(z, y, x)
}

// Bias returns the filter's bias.
func (f Filter) Bias() float32 {
	return f.bias
}

// Weights returns a copy of the weight volume.
func (f Filter) Weights() tensor.Tensor3 {
	return f.weights.Clone()
}

// ParamCount returns the number of weights plus one for the bias.
func (f Filter) ParamCount() int {
	return f.weights.Shape().Volume() + 1
}

// Params returns the weights in depth-major order followed by the bias.
func (f Filter) Params() []float32 {
	params := make([]float32, 0, f.ParamCount())
	params = append(params, f.weights.Values()...)
	return append(params, f.bias)
}

// SetParams replaces weights and bias from a vector laid out like Params.
// The length must equal ParamCount. Copies of f are not affected.
func (f *Filter) SetParams(params []float32) {
	if len(params) != f.ParamCount() {
		panic(fmt.Sprintf("filter: expected %d params, got %d", f.ParamCount(), len(params)))
	}
	f.weights = f.weights.Clone()
	values := f.weights.Values()
	copy(values, params[:len(values)])
	f.bias = params[len(values)]
}

// FlipSpatially transposes a bank of k filters of depth d into d filters of
// depth k: slice j of new filter i is slice i of filter j. Each new bias is
// the mean of the k source biases.
//
// All filters must share one shape; the bank must be non-empty.
func FlipSpatially(filters []Filter) []Filter {
	if len(filters) == 0 {
		panic("filter: cannot flip an empty filter bank")
	}
	k := len(filters)
	src := filters[0].Shape()

	var bias float32
	for j := range filters {
		if filters[j].Shape() != src {
			panic(fmt.Sprintf("filter: mixed shapes %s and %s in bank", src, filters[j].Shape()))
		}
		bias += filters[j].bias / float32(k)
	}

	result := make([]Filter, src.Depth)
	for i := range result {
		w := tensor.Zeros(tensor.NewShape3(k, src.Height, src.Width))
		for j := range filters {
			for y := 0; y < src.Height; y++ {
				for x := 0; x < src.Width; x++ {
					w.Set(j, y, x, filters[j].Get(i, y, x))
				}
			}
		}
		result[i] = Filter{weights: w, bias: bias}
	}
	return result
}
