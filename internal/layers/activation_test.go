package layers

import (
	"math"
	"testing"

	"github.com/born-ml/infer/internal/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewActivation_Functions(t *testing.T) {
	tests := []struct {
		function string
		in, want float32
	}{
		{"linear", -3, -3},
		{"relu", -3, 0},
		{"relu", 2, 2},
		{"tanh", 0, 0},
		{"sigmoid", 0, 0.5},
		{"hard_sigmoid", 1, 0.7},
		{"hard_sigmoid", 10, 1},
		{"hard_sigmoid", -10, 0},
		{"softplus", 0, float32(math.Log(2))},
		{"softplus", 1000, 1000},
		{"softplus", 25, 25},
		{"selu", 1, seluScale},
		{"selu", 0, 0},
	}

	for _, tt := range tests {
		l, err := NewActivation("act", tt.function)
		require.NoError(t, err)
		out := applyOne(t, l, mustTensor(t, 1, 1, 1, tt.in))
		assert.InDelta(t, tt.want, out.Get(0, 0, 0), 1e-6, "%s(%v)", tt.function, tt.in)
	}
}

func TestNewActivation_Unknown(t *testing.T) {
	_, err := NewActivation("act", "swish")
	assert.ErrorIs(t, err, errdefs.ErrUnsupported)
	assert.Contains(t, err.Error(), "swish")
}

func TestListActivations(t *testing.T) {
	assert.Equal(t, []string{
		"hard_sigmoid", "linear", "relu", "selu", "sigmoid", "softmax", "softplus", "tanh",
	}, ListActivations())
}

func TestSoftmax_Vector(t *testing.T) {
	l, err := NewActivation("probs", "softmax")
	require.NoError(t, err)

	out := applyOne(t, l, mustTensor(t, 1, 1, 3, 1, 2, 3))
	var sum float32
	for _, v := range out.Values() {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
	assert.Greater(t, out.Get(0, 0, 2), out.Get(0, 0, 1))
}

func TestSoftmax_OverDepth(t *testing.T) {
	l, err := NewActivation("probs", "softmax")
	require.NoError(t, err)

	// Two channels at two positions; channel values equal at position 0.
	in := mustTensor(t, 2, 1, 2,
		0, 0, // z=0
		0, 1000) // z=1
	out := applyOne(t, l, in)

	assert.InDelta(t, 0.5, out.Get(0, 0, 0), 1e-6)
	assert.InDelta(t, 0.5, out.Get(1, 0, 0), 1e-6)
	assert.InDelta(t, 0.0, out.Get(0, 0, 1), 1e-6)
	assert.InDelta(t, 1.0, out.Get(1, 0, 1), 1e-6)
}

func TestTransform_DoesNotMutateInput(t *testing.T) {
	l, err := NewActivation("act", "relu")
	require.NoError(t, err)

	in := mustTensor(t, 1, 1, 2, -1, 1)
	_ = l.Transform(in)
	assert.Equal(t, []float32{-1, 1}, in.Values())
}

func TestLeakyReLUAndELU(t *testing.T) {
	leaky := NewLeakyReLU("leaky", 0.1)
	assert.Equal(t, "LeakyReLU", leaky.Kind())
	out := applyOne(t, leaky, mustTensor(t, 1, 1, 2, -2, 3))
	assert.InDelta(t, -0.2, out.Get(0, 0, 0), 1e-6)
	assert.InDelta(t, 3, out.Get(0, 0, 1), 1e-6)

	elu := NewELU("elu", 2)
	assert.Equal(t, "ELU", elu.Kind())
	out = applyOne(t, elu, mustTensor(t, 1, 1, 2, -1, 3))
	assert.InDelta(t, 2*(math.Exp(-1)-1), out.Get(0, 0, 0), 1e-6)
	assert.InDelta(t, 3, out.Get(0, 0, 1), 1e-6)
	assert.Equal(t, float32(2), elu.Alpha())
}

func TestActivation_WrongInputCount(t *testing.T) {
	l, err := NewActivation("act", "relu")
	require.NoError(t, err)

	_, err = l.Apply(nil)
	assert.ErrorIs(t, err, errdefs.ErrFormat)
}
