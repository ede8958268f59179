package layers

import (
	"math"

	"github.com/born-ml/infer/internal/tensor"
)

// BatchNormalization normalizes each channel with frozen moving statistics:
// y = (x - mean) / sqrt(variance + epsilon) * gamma + beta.
// A nil gamma or beta means the layer was built without scale or center.
type BatchNormalization struct {
	base
	mean     []float32
	variance []float32
	beta     []float32
	gamma    []float32
	epsilon  float32
}

// NewBatchNormalization creates a batch normalization layer. All non-nil
// vectors must have the same length.
func NewBatchNormalization(name string, mean, variance, beta, gamma []float32, epsilon float32) (*BatchNormalization, error) {
	l := &BatchNormalization{base: newBase(name, "BatchNormalization"),
		mean: mean, variance: variance, beta: beta, gamma: gamma, epsilon: epsilon}
	n := len(mean)
	if n == 0 {
		return nil, l.errorf("empty moving_mean")
	}
	if len(variance) != n {
		return nil, l.errorf("moving_variance size %d does not match moving_mean size %d", len(variance), n)
	}
	if beta != nil && len(beta) != n {
		return nil, l.errorf("beta size %d does not match moving_mean size %d", len(beta), n)
	}
	if gamma != nil && len(gamma) != n {
		return nil, l.errorf("gamma size %d does not match moving_mean size %d", len(gamma), n)
	}
	return l, nil
}

// Epsilon returns the variance epsilon.
func (l *BatchNormalization) Epsilon() float32 { return l.epsilon }

// Centered reports whether beta is applied.
func (l *BatchNormalization) Centered() bool { return l.beta != nil }

// Scaled reports whether gamma is applied.
func (l *BatchNormalization) Scaled() bool { return l.gamma != nil }

// ParamCount counts all stored vectors.
func (l *BatchNormalization) ParamCount() int {
	return len(l.mean) + len(l.variance) + len(l.beta) + len(l.gamma)
}

// OutputShapes returns the input shape.
func (l *BatchNormalization) OutputShapes(inputs []tensor.Shape3) ([]tensor.Shape3, error) {
	if err := l.expectInputs(len(inputs), 1); err != nil {
		return nil, err
	}
	if channels(inputs[0]) != len(l.mean) {
		return nil, l.errorf("input has %d channels, statistics have %d", channels(inputs[0]), len(l.mean))
	}
	return []tensor.Shape3{inputs[0]}, nil
}

// Apply normalizes the single input.
func (l *BatchNormalization) Apply(inputs []tensor.Tensor3) ([]tensor.Tensor3, error) {
	if _, err := l.OutputShapes(shapesOf(inputs)); err != nil {
		return nil, err
	}
	in := inputs[0]
	s := in.Shape()

	n := len(l.mean)
	scale := make([]float32, n)
	shift := make([]float32, n)
	for c := 0; c < n; c++ {
		scale[c] = float32(1 / math.Sqrt(float64(l.variance[c]+l.epsilon)))
		if l.gamma != nil {
			scale[c] *= l.gamma[c]
		}
		shift[c] = -l.mean[c] * scale[c]
		if l.beta != nil {
			shift[c] += l.beta[c]
		}
	}

	out := tensor.Zeros(s)
	for z := 0; z < s.Depth; z++ {
		for y := 0; y < s.Height; y++ {
			for x := 0; x < s.Width; x++ {
				c := channelOf(s, z, x)
				out.Set(z, y, x, in.Get(z, y, x)*scale[c]+shift[c])
			}
		}
	}
	return l.finish(out, nil)
}
