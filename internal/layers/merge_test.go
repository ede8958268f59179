package layers

import (
	"testing"

	"github.com/born-ml/infer/internal/errdefs"
	"github.com/born-ml/infer/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd(t *testing.T) {
	add := NewAdd("add")
	a := mustTensor(t, 1, 1, 2, 1, 2)
	out, err := add.Apply([]tensor.Tensor3{a, mustTensor(t, 1, 1, 2, 10, 20), mustTensor(t, 1, 1, 2, 100, 200)})
	require.NoError(t, err)
	assert.Equal(t, []float32{111, 222}, out[0].Values())
	assert.Equal(t, []float32{1, 2}, a.Values())

	_, err = add.Apply([]tensor.Tensor3{a})
	assert.ErrorIs(t, err, errdefs.ErrFormat)

	_, err = add.Apply([]tensor.Tensor3{a, mustTensor(t, 2, 1, 1, 1, 2)})
	assert.ErrorIs(t, err, errdefs.ErrFormat)
}

func TestConcatenate(t *testing.T) {
	cat := NewConcatenate("cat")

	t.Run("depth", func(t *testing.T) {
		out, err := cat.Apply([]tensor.Tensor3{
			mustTensor(t, 1, 2, 1, 1, 2),
			mustTensor(t, 2, 2, 1, 3, 4, 5, 6),
		})
		require.NoError(t, err)
		assert.Equal(t, tensor.NewShape3(3, 2, 1), out[0].Shape())
		assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, out[0].Values())
	})

	t.Run("row vectors", func(t *testing.T) {
		shapes, err := cat.OutputShapes([]tensor.Shape3{tensor.NewShape3(1, 1, 2), tensor.NewShape3(1, 1, 1)})
		require.NoError(t, err)
		assert.Equal(t, tensor.NewShape3(1, 1, 3), shapes[0])

		out, err := cat.Apply([]tensor.Tensor3{mustTensor(t, 1, 1, 2, 1, 2), mustTensor(t, 1, 1, 1, 3)})
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 2, 3}, out[0].Values())
	})

	t.Run("spatial mismatch", func(t *testing.T) {
		_, err := cat.OutputShapes([]tensor.Shape3{tensor.NewShape3(1, 2, 1), tensor.NewShape3(1, 3, 1)})
		assert.ErrorIs(t, err, errdefs.ErrFormat)
	})
}
