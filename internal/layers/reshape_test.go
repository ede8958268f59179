package layers

import (
	"testing"

	"github.com/born-ml/infer/internal/errdefs"
	"github.com/born-ml/infer/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatten_ChannelsLastOrder(t *testing.T) {
	out := applyOne(t, NewFlatten("flat"), mustTensor(t, 2, 1, 2, 1, 2, 3, 4))
	assert.Equal(t, tensor.NewShape3(1, 1, 4), out.Shape())
	assert.Equal(t, []float32{1, 3, 2, 4}, out.Values())
}

func TestFlatten_DoesNotAlias(t *testing.T) {
	in := mustTensor(t, 1, 2, 2, 1, 2, 3, 4)
	out := applyOne(t, NewFlatten("flat"), in)
	out.Set(0, 0, 0, 99)
	assert.Equal(t, float32(1), in.Get(0, 0, 0))
}

func TestUpSampling2D(t *testing.T) {
	up, err := NewUpSampling2D("up", tensor.NewShape2(2, 2))
	require.NoError(t, err)

	out := applyOne(t, up, mustTensor(t, 1, 1, 2, 1, 2))
	assert.Equal(t, tensor.NewShape3(1, 2, 4), out.Shape())
	assert.Equal(t, []float32{1, 1, 2, 2, 1, 1, 2, 2}, out.Values())

	_, err = NewUpSampling2D("up", tensor.NewShape2(0, 2))
	assert.ErrorIs(t, err, errdefs.ErrFormat)
}

func TestZeroPadding2D(t *testing.T) {
	pad, err := NewZeroPadding2D("pad", 1, 0, 0, 2)
	require.NoError(t, err)
	top, bottom, left, right := pad.Paddings()
	assert.Equal(t, []int{1, 0, 0, 2}, []int{top, bottom, left, right})

	out := applyOne(t, pad, mustTensor(t, 1, 1, 1, 5))
	assert.Equal(t, tensor.NewShape3(1, 2, 3), out.Shape())
	assert.Equal(t, []float32{0, 0, 0, 5, 0, 0}, out.Values())

	_, err = NewZeroPadding2D("pad", -1, 0, 0, 0)
	assert.ErrorIs(t, err, errdefs.ErrFormat)
}

func TestDropout_Identity(t *testing.T) {
	d := NewDropout("drop", 0.5)
	assert.Equal(t, float32(0.5), d.Rate())

	out := applyOne(t, d, mustTensor(t, 1, 1, 3, 1, 2, 3))
	assert.Equal(t, []float32{1, 2, 3}, out.Values())
}
