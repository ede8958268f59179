package layers

import (
	"testing"

	"github.com/born-ml/infer/internal/tensor"
	"github.com/stretchr/testify/require"
)

// mustTensor builds a tensor or fails the test.
func mustTensor(t *testing.T, d, h, w int, values ...float32) tensor.Tensor3 {
	t.Helper()
	tn, err := tensor.NewTensor3(tensor.NewShape3(d, h, w), values)
	require.NoError(t, err)
	return tn
}

// applyOne runs a single-input, single-output layer.
func applyOne(t *testing.T, l Layer, in tensor.Tensor3) tensor.Tensor3 {
	t.Helper()
	out, err := l.Apply([]tensor.Tensor3{in})
	require.NoError(t, err)
	require.Len(t, out, 1)

	shapes, err := l.OutputShapes([]tensor.Shape3{in.Shape()})
	require.NoError(t, err)
	require.Equal(t, shapes[0], out[0].Shape(), "OutputShapes must agree with Apply")
	return out[0]
}

func ones(n int) []float32 {
	v := make([]float32, n)
	for i := range v {
		v[i] = 1
	}
	return v
}

func seq(n int) []float32 {
	v := make([]float32, n)
	for i := range v {
		v[i] = float32(i + 1)
	}
	return v
}
