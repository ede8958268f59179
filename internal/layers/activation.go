package layers

import (
	"fmt"
	"math"
	"sort"

	"github.com/born-ml/infer/internal/errdefs"
	"github.com/born-ml/infer/internal/tensor"
)

// Activation is a layer that can also be fused behind another layer.
type Activation interface {
	Layer
	// Transform applies the activation to t and returns a new tensor.
	Transform(t tensor.Tensor3) tensor.Tensor3
}

// Inputs above this pass through softplus unchanged.
const softplusThreshold = 20

// SELU constants (Klambauer et al.).
const (
	seluAlpha = 1.6732632423543772848170429916717
	seluScale = 1.0507009873554804934193349852946
)

// elementwise activations by Keras name; softmax is handled separately.
var elementwise = map[string]func(float32) float32{
	"linear": func(x float32) float32 { return x },
	"relu": func(x float32) float32 {
		return max(x, 0)
	},
	"tanh": func(x float32) float32 {
		return float32(math.Tanh(float64(x)))
	},
	"sigmoid": sigmoid,
	"hard_sigmoid": func(x float32) float32 {
		return min(max(0.2*x+0.5, 0), 1)
	},
	"softplus": func(x float32) float32 {
		// log1p(exp(x)) equals x in float32 beyond this point.
		if x > softplusThreshold {
			return x
		}
		return float32(math.Log1p(math.Exp(float64(x))))
	},
	"selu": func(x float32) float32 {
		if x >= 0 {
			return seluScale * x
		}
		return float32(seluScale * seluAlpha * (math.Exp(float64(x)) - 1))
	},
}

func sigmoid(x float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(x))))
}

// ListActivations returns the supported activation function names.
func ListActivations() []string {
	names := make([]string, 0, len(elementwise)+1)
	for name := range elementwise {
		names = append(names, name)
	}
	names = append(names, "softmax")
	sort.Strings(names)
	return names
}

// ActivationLayer applies an activation function. It backs the generic
// Activation layer kind, LeakyReLU, ELU and fused activations.
type ActivationLayer struct {
	base
	function string
	alpha    float32
	f        func(float32) float32 // nil for softmax
}

// NewActivation creates a named activation function layer.
func NewActivation(name, function string) (*ActivationLayer, error) {
	l := &ActivationLayer{base: newBase(name, "Activation"), function: function}
	if function == "softmax" {
		return l, nil
	}
	f, ok := elementwise[function]
	if !ok {
		return nil, &errdefs.UnsupportedError{Layer: name, Feature: "activation", Value: function}
	}
	l.f = f
	return l, nil
}

// NewLeakyReLU creates max(x, alpha*x) for alpha in [0, 1).
func NewLeakyReLU(name string, alpha float32) *ActivationLayer {
	return &ActivationLayer{
		base:     newBase(name, "LeakyReLU"),
		function: "leaky_relu",
		alpha:    alpha,
		f: func(x float32) float32 {
			if x < 0 {
				return alpha * x
			}
			return x
		},
	}
}

// NewELU creates x for x >= 0, alpha*(exp(x)-1) otherwise.
func NewELU(name string, alpha float32) *ActivationLayer {
	return &ActivationLayer{
		base:     newBase(name, "ELU"),
		function: "elu",
		alpha:    alpha,
		f: func(x float32) float32 {
			if x < 0 {
				return alpha * float32(math.Expm1(float64(x)))
			}
			return x
		},
	}
}

// Function returns the activation function's name.
func (l *ActivationLayer) Function() string { return l.function }

// Alpha returns the slope parameter of LeakyReLU and ELU.
func (l *ActivationLayer) Alpha() float32 { return l.alpha }

// ParamCount returns 0.
func (l *ActivationLayer) ParamCount() int { return 0 }

// OutputShapes returns the input shape.
func (l *ActivationLayer) OutputShapes(inputs []tensor.Shape3) ([]tensor.Shape3, error) {
	if err := l.expectInputs(len(inputs), 1); err != nil {
		return nil, err
	}
	return []tensor.Shape3{inputs[0]}, nil
}

// Apply transforms the single input.
func (l *ActivationLayer) Apply(inputs []tensor.Tensor3) ([]tensor.Tensor3, error) {
	if err := l.expectInputs(len(inputs), 1); err != nil {
		return nil, err
	}
	return l.finish(l.Transform(inputs[0]), nil)
}

// Transform implements Activation.
func (l *ActivationLayer) Transform(t tensor.Tensor3) tensor.Tensor3 {
	if l.f == nil {
		return softmax(t)
	}
	out := t.Clone()
	values := out.Values()
	for i, v := range values {
		values[i] = l.f(v)
	}
	return out
}

// softmax normalizes over the channel axis at every spatial position.
func softmax(t tensor.Tensor3) tensor.Tensor3 {
	out := t.Clone()
	s := t.Shape()
	if isVector(s) {
		softmaxRun(out.Values(), 0, 1, s.Width)
		return out
	}
	plane := s.Height * s.Width
	for p := 0; p < plane; p++ {
		softmaxRun(out.Values(), p, plane, s.Depth)
	}
	return out
}

// softmaxRun normalizes n values starting at start with the given stride.
func softmaxRun(values []float32, start, stride, n int) {
	if n == 0 {
		return
	}
	m := values[start]
	for i := 1; i < n; i++ {
		m = max(m, values[start+i*stride])
	}
	var sum float64
	for i := 0; i < n; i++ {
		e := math.Exp(float64(values[start+i*stride] - m))
		values[start+i*stride] = float32(e)
		sum += e
	}
	for i := 0; i < n; i++ {
		values[start+i*stride] = float32(float64(values[start+i*stride]) / sum)
	}
}

// String returns a short description.
func (l *ActivationLayer) String() string {
	return fmt.Sprintf("%s(%s)", l.kind, l.function)
}
