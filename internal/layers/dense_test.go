package layers

import (
	"testing"

	"github.com/born-ml/infer/internal/errdefs"
	"github.com/born-ml/infer/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDense_Forward(t *testing.T) {
	// Kernel (2 inputs, 3 units), row-major.
	d, err := NewDense("dense", 3, []float32{1, 2, 3, 4, 5, 6}, []float32{0.5, 0, -1})
	require.NoError(t, err)
	assert.Equal(t, 2, d.InputSize())
	assert.Equal(t, 9, d.ParamCount())

	out := applyOne(t, d, mustTensor(t, 1, 1, 2, 1, 1))
	assert.Equal(t, tensor.NewShape3(1, 1, 3), out.Shape())
	assert.Equal(t, []float32{5.5, 7, 8}, out.Values())
}

func TestDense_Identity(t *testing.T) {
	d, err := NewDense("dense", 2, []float32{1, 0, 0, 1}, []float32{0, 0})
	require.NoError(t, err)

	out := applyOne(t, d, mustTensor(t, 1, 1, 2, 3, 5))
	assert.Equal(t, []float32{3, 5}, out.Values())
}

func TestDense_ChannelsLastInput(t *testing.T) {
	// Input (2, 1, 1) is read channel-wise; kernel picks channel 1.
	d, err := NewDense("dense", 1, []float32{0, 1}, []float32{0})
	require.NoError(t, err)

	out := applyOne(t, d, mustTensor(t, 2, 1, 1, 4, 9))
	assert.Equal(t, []float32{9}, out.Values())
}

func TestDense_FusedActivation(t *testing.T) {
	d, err := NewDense("dense", 2, []float32{1, 0, 0, 1}, []float32{0, 0})
	require.NoError(t, err)
	relu, err := NewActivation("", "relu")
	require.NoError(t, err)
	d.SetActivation(relu)

	out := applyOne(t, d, mustTensor(t, 1, 1, 2, -3, 5))
	assert.Equal(t, []float32{0, 5}, out.Values())
}

func TestNewDense_Invalid(t *testing.T) {
	_, err := NewDense("dense", 3, []float32{1, 2, 3, 4, 5}, []float32{0, 0, 0})
	assert.ErrorIs(t, err, errdefs.ErrFormat)

	_, err = NewDense("dense", 2, []float32{1, 2}, []float32{0})
	assert.ErrorIs(t, err, errdefs.ErrFormat)

	_, err = NewDense("dense", 0, nil, nil)
	assert.ErrorIs(t, err, errdefs.ErrFormat)
}

func TestDense_InputSizeMismatch(t *testing.T) {
	d, err := NewDense("dense", 1, []float32{1, 1}, []float32{0})
	require.NoError(t, err)

	_, err = d.Apply([]tensor.Tensor3{mustTensor(t, 1, 1, 3, 1, 2, 3)})
	var fe *errdefs.FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "dense", fe.Layer)
}
