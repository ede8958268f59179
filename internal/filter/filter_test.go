package filter

import (
	"testing"

	"github.com/born-ml/infer/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequential(shape tensor.Shape3, start float32) tensor.Tensor3 {
	values := make([]float32, shape.Volume())
	for i := range values {
		values[i] = start + float32(i)
	}
	t, err := tensor.NewTensor3(shape, values)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNew_OddDimensions(t *testing.T) {
	for _, s := range []tensor.Shape3{
		tensor.NewShape3(1, 1, 1),
		tensor.NewShape3(4, 3, 3),
		tensor.NewShape3(2, 5, 1),
	} {
		f := New(sequential(s, 0), 0.5)
		assert.Equal(t, s, f.Shape())
		assert.Equal(t, s.Volume()+1, f.ParamCount())
	}
}

func TestNew_EvenDimensionsPanics(t *testing.T) {
	for _, s := range []tensor.Shape3{
		tensor.NewShape3(1, 2, 3),
		tensor.NewShape3(1, 3, 2),
		tensor.NewShape3(1, 2, 2),
	} {
		assert.Panics(t, func() { New(sequential(s, 0), 0) }, "shape %s", s)
	}
}

func TestNew_CopiesWeights(t *testing.T) {
	w := sequential(tensor.NewShape3(1, 1, 1), 3)
	f := New(w, 0)
	w.Set(0, 0, 0, 100)
	assert.Equal(t, float32(3), f.Get(0, 0, 0))
}

func TestParams(t *testing.T) {
	f := New(sequential(tensor.NewShape3(2, 1, 1), 1), 9)
	assert.Equal(t, []float32{1, 2, 9}, f.Params())

	f.SetParams([]float32{4, 5, 6})
	assert.Equal(t, float32(4), f.Get(0, 0, 0))
	assert.Equal(t, float32(5), f.Get(1, 0, 0))
	assert.Equal(t, float32(6), f.Bias())

	assert.Panics(t, func() { f.SetParams([]float32{1, 2}) })
}

func TestSetParams_LeavesCopiesUnchanged(t *testing.T) {
	f := New(sequential(tensor.NewShape3(1, 1, 1), 1), 9)
	g := f
	g.SetParams([]float32{7, 8})

	assert.Equal(t, []float32{1, 9}, f.Params())
	assert.Equal(t, []float32{7, 8}, g.Params())
}

func TestFlipSpatially(t *testing.T) {
	// k=3 filters of depth d=2, 3x1 spatial.
	shape := tensor.NewShape3(2, 3, 1)
	bank := []Filter{
		New(sequential(shape, 0), 1),
		New(sequential(shape, 10), 2),
		New(sequential(shape, 20), 6),
	}

	flipped := FlipSpatially(bank)
	require.Len(t, flipped, 2)
	for i, f := range flipped {
		assert.Equal(t, tensor.NewShape3(3, 3, 1), f.Shape())
		assert.InDelta(t, 3.0, f.Bias(), 1e-6)
		for j := range bank {
			for y := 0; y < 3; y++ {
				assert.Equal(t, bank[j].Get(i, y, 0), f.Get(j, y, 0))
			}
		}
	}
}

func TestFlipSpatially_Involution(t *testing.T) {
	shape := tensor.NewShape3(4, 3, 3)
	bank := make([]Filter, 5)
	for j := range bank {
		bank[j] = New(sequential(shape, float32(j*100)), float32(j))
	}

	twice := FlipSpatially(FlipSpatially(bank))
	require.Len(t, twice, len(bank))
	for j := range bank {
		assert.Equal(t, bank[j].Weights().Values(), twice[j].Weights().Values())
		// Biases collapse to the grand mean.
		assert.InDelta(t, 2.0, twice[j].Bias(), 1e-6)
	}
}

func TestFlipSpatially_EmptyPanics(t *testing.T) {
	assert.Panics(t, func() { FlipSpatially(nil) })
}
