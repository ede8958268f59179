package tensor

import (
	"testing"

	"github.com/born-ml/infer/internal/errdefs"
	"github.com/born-ml/infer/internal/weights"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestNewTensor3(t *testing.T) {
	tn, err := NewTensor3(NewShape3(2, 1, 3), []float32{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	assert.Equal(t, float32(1), tn.Get(0, 0, 0))
	assert.Equal(t, float32(3), tn.Get(0, 0, 2))
	assert.Equal(t, float32(4), tn.Get(1, 0, 0))
	assert.Equal(t, 5, tn.Index(1, 0, 2))
}

func TestNewTensor3_SizeMismatch(t *testing.T) {
	_, err := NewTensor3(NewShape3(1, 2, 2), []float32{1, 2, 3})
	assert.ErrorIs(t, err, errdefs.ErrFormat)

	_, err = NewTensor3(NewShape3(1, 1, 2), []float32{1, 2, 3})
	assert.ErrorIs(t, err, errdefs.ErrFormat)
}

func TestTensor3_CloneAndSet(t *testing.T) {
	tn := Zeros(NewShape3(1, 2, 2))
	c := tn.Clone()
	c.Set(0, 1, 1, 7)

	assert.Equal(t, float32(0), tn.Get(0, 1, 1))
	assert.Equal(t, float32(7), c.Get(0, 1, 1))
}

func TestTensor3_Reshape(t *testing.T) {
	tn, err := NewTensor3(NewShape3(2, 2, 1), []float32{1, 2, 3, 4})
	require.NoError(t, err)

	flat, err := tn.Reshape(NewShape3(1, 1, 4))
	require.NoError(t, err)
	assert.Equal(t, float32(4), flat.Get(0, 0, 3))

	_, err = tn.Reshape(NewShape3(1, 1, 5))
	assert.ErrorIs(t, err, errdefs.ErrFormat)
}

func TestParseTensor3(t *testing.T) {
	tn, err := ParseTensor3(gjson.Parse(`{"shape": [1, 1, 2], "values": [3, 5]}`))
	require.NoError(t, err)
	assert.Equal(t, NewShape3(1, 1, 2), tn.Shape())
	assert.Equal(t, []float32{3, 5}, tn.Values())

	encoded := `{"shape": [null, 1, 1, 2], "values": ["` + weights.Encode([]float32{0.5, 1.5}) + `"]}`
	tn, err = ParseTensor3(gjson.Parse(encoded))
	require.NoError(t, err)
	assert.Equal(t, NewShape3(1, 1, 2), tn.Shape())
	assert.Equal(t, []float32{0.5, 1.5}, tn.Values())

	// A two-dimensional shape leaves depth at zero, so no values fit it.
	_, err = ParseTensor3(gjson.Parse(`{"shape": [1, 2], "values": [1, 2]}`))
	assert.ErrorIs(t, err, errdefs.ErrFormat)
}

func TestParseTensor3_Invalid(t *testing.T) {
	for _, doc := range []string{
		`[1, 2]`,
		`{"shape": [1, 1, 3], "values": [1, 2]}`,
		`{"shape": [], "values": []}`,
		`{"shape": [1, 1, 1], "values": 3}`,
	} {
		_, err := ParseTensor3(gjson.Parse(doc))
		assert.ErrorIs(t, err, errdefs.ErrFormat, doc)
	}
}

func TestParseTensor3s(t *testing.T) {
	ts, err := ParseTensor3s(gjson.Parse(`[{"shape": [1, 1, 1], "values": [1]}, {"shape": [2, 1, 1], "values": [1, 2]}]`))
	require.NoError(t, err)
	require.Len(t, ts, 2)
	assert.Equal(t, NewShape3(2, 1, 1), ts[1].Shape())
}
