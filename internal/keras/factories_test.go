package keras

import (
	"fmt"
	"strings"
	"testing"

	"github.com/born-ml/infer/internal/errdefs"
	"github.com/born-ml/infer/internal/layers"
	"github.com/born-ml/infer/internal/tensor"
	"github.com/born-ml/infer/internal/weights"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// conv2DDesc renders a Conv2D description; overrides replace base fields.
func conv2DDesc(overrides map[string]string) string {
	base := [][2]string{
		{"filters", "8"},
		{"kernel_size", "[3, 3]"},
		{"strides", "[1, 1]"},
		{"padding", `"same"`},
		{"data_format", `"channels_last"`},
		{"use_bias", "false"},
		{"dilation_rate", "[1, 1]"},
	}
	fields := make([]string, len(base))
	for i, kv := range base {
		v := kv[1]
		if o, ok := overrides[kv[0]]; ok {
			v = o
		}
		fields[i] = fmt.Sprintf("%q: %s", kv[0], v)
	}
	return `{"class_name": "Conv2D", "name": "conv", "inbound_nodes": [],
		"config": {` + strings.Join(fields, ", ") + `}}`
}

func TestConv2D_DerivesFilterDepth(t *testing.T) {
	src := weights.MapSource{"conv": {"weights": make([]float32, 8*3*3*4)}}

	l, err := build(t, src, StaticConfig{}, conv2DDesc(nil))
	require.NoError(t, err)

	conv := l.(*layers.Conv2D)
	require.Len(t, conv.Filters(), 8)
	assert.Equal(t, tensor.NewShape3(4, 3, 3), conv.Filters()[0].Shape())
	for _, f := range conv.Filters() {
		assert.Zero(t, f.Bias())
	}
	assert.Equal(t, layers.PaddingSame, conv.Window().Padding)
}

func TestConv2D_Errors(t *testing.T) {
	tests := []struct {
		name    string
		weights int
		config  map[string]string
		kind    error
	}{
		{"weights not divisible", 287, nil, errdefs.ErrFormat},
		{"channels first", 288, map[string]string{"data_format": `"channels_first"`}, errdefs.ErrUnsupported},
		{"even kernel", 8 * 2 * 2 * 4, map[string]string{"kernel_size": "[2, 2]"}, errdefs.ErrUnsupported},
		{"dilation", 288, map[string]string{"dilation_rate": "[2, 2]"}, errdefs.ErrUnsupported},
		{"unknown padding", 288, map[string]string{"padding": `"causal"`}, errdefs.ErrUnsupported},
		{"missing filters", 288, map[string]string{"filters": "null"}, errdefs.ErrFormat},
		{"zero filters", 288, map[string]string{"filters": "0"}, errdefs.ErrFormat},
		{"use_bias not bool", 288, map[string]string{"use_bias": `"yes"`}, errdefs.ErrFormat},
		{"bias size", 288, map[string]string{"use_bias": "true"}, errdefs.ErrFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := weights.MapSource{"conv": {"weights": make([]float32, tt.weights), "bias": {1, 2}}}
			_, err := build(t, src, StaticConfig{}, conv2DDesc(tt.config))
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestConv2D_PaddingFlags(t *testing.T) {
	src := weights.MapSource{"conv": {"weights": make([]float32, 288)}}

	l, err := build(t, src, StaticConfig{"conv2d_padding_valid_uses_offset": true}, conv2DDesc(nil))
	require.NoError(t, err)
	assert.Equal(t, layers.Offsets{ValidUsesOffset: true}, l.(*layers.Conv2D).Window().Offsets)

	// The document config is strict about missing flags.
	_, err = build(t, src, NewDocumentConfig(parse(t, `{"conv2d_padding_valid_uses_offset": true}`)), conv2DDesc(nil))
	var fe *errdefs.FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "conv2d_padding_same_uses_offset", fe.Field)
	assert.Equal(t, "conv", fe.Layer)
}

func separableDesc(multiplier int) string {
	return fmt.Sprintf(`{"class_name": "SeparableConv2D", "name": "sep", "inbound_nodes": [], "config": {
		"filters": 3, "kernel_size": [3, 3], "strides": [1, 1], "padding": "valid",
		"data_format": "channels_last", "use_bias": true, "depth_multiplier": %d}}`, multiplier)
}

func TestSeparableConv2D(t *testing.T) {
	src := weights.MapSource{"sep": {
		"slice_weights": make([]float32, 3*3*2),
		"stack_weights": make([]float32, 2*3),
		"bias":          {1, 2, 3},
	}}
	l, err := build(t, src, StaticConfig{}, separableDesc(1))
	require.NoError(t, err)

	shapes, err := l.OutputShapes([]tensor.Shape3{tensor.NewShape3(2, 5, 5)})
	require.NoError(t, err)
	assert.Equal(t, tensor.NewShape3(3, 3, 3), shapes[0])
	assert.Equal(t, 18+6+3, l.ParamCount())
}

func TestSeparableConv2D_Errors(t *testing.T) {
	src := weights.MapSource{"sep": {
		"slice_weights": make([]float32, 18),
		"stack_weights": make([]float32, 6),
		"bias":          {1, 2, 3},
	}}
	_, err := build(t, src, StaticConfig{}, separableDesc(2))
	assert.ErrorIs(t, err, errdefs.ErrUnsupported)

	src["sep"]["stack_weights"] = make([]float32, 5)
	_, err = build(t, src, StaticConfig{}, separableDesc(1))
	assert.ErrorIs(t, err, errdefs.ErrFormat)

	src["sep"]["stack_weights"] = make([]float32, 8)
	_, err = build(t, src, StaticConfig{}, separableDesc(1))
	assert.ErrorIs(t, err, errdefs.ErrFormat)
}

func TestDense(t *testing.T) {
	src := weights.MapSource{"dense": {"weights": {1, 2, 3, 4, 5, 6}}}
	l, err := build(t, src, nil, `{"class_name": "Dense", "name": "dense", "inbound_nodes": [],
		"config": {"units": 3, "use_bias": false}}`)
	require.NoError(t, err)
	assert.Equal(t, 2, l.(*layers.Dense).InputSize())

	_, err = build(t, weights.MapSource{}, nil, `{"class_name": "Dense", "name": "dense", "inbound_nodes": [],
		"config": {"units": 3, "use_bias": false}}`)
	var fe *errdefs.FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "weights", fe.Field)
}

func TestInputLayer(t *testing.T) {
	l, err := build(t, nil, nil, `{"class_name": "InputLayer", "name": "in",
		"config": {"batch_input_shape": [null, 3, 32, 32]}, "inbound_nodes": []}`)
	require.NoError(t, err)
	assert.Equal(t, tensor.NewShape3(3, 32, 32), l.(*layers.InputLayer).Shape())

	_, err = build(t, nil, nil, `{"class_name": "InputLayer", "name": "in",
		"config": {"batch_input_shape": [null, 2]}, "inbound_nodes": [[["other", 0, 0]]]}`)
	var fe *errdefs.FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "in", fe.Layer)

	_, err = build(t, nil, nil, `{"class_name": "InputLayer", "name": "in",
		"config": {"batch_input_shape": [null, 1, 2, 3, 4]}, "inbound_nodes": []}`)
	assert.ErrorIs(t, err, errdefs.ErrFormat)
}

func TestBatchNormalization_CenterScale(t *testing.T) {
	desc := func(center, scale bool) string {
		return fmt.Sprintf(`{"class_name": "BatchNormalization", "name": "bn", "inbound_nodes": [],
			"config": {"center": %t, "scale": %t, "epsilon": 0.001}}`, center, scale)
	}
	src := weights.MapSource{"bn": {"moving_mean": {0, 1}, "moving_variance": {1, 1}, "gamma": {2, 2}}}

	l, err := build(t, src, nil, desc(false, true))
	require.NoError(t, err)
	bn := l.(*layers.BatchNormalization)
	assert.True(t, bn.Scaled())
	assert.False(t, bn.Centered())
	assert.InDelta(t, 0.001, bn.Epsilon(), 1e-9)

	// beta is required only when center is set.
	_, err = build(t, src, nil, desc(true, true))
	assert.ErrorIs(t, err, errdefs.ErrFormat)
}

func TestPooling(t *testing.T) {
	l, err := build(t, nil, StaticConfig{"max_pooling_2d_padding_same_uses_offset": true},
		`{"class_name": "MaxPooling2D", "name": "pool", "inbound_nodes": [],
		"config": {"pool_size": [2, 2], "strides": null, "padding": "same", "data_format": "channels_last"}}`)
	require.NoError(t, err)
	w := l.(*layers.Pooling2D).Window()
	assert.Equal(t, tensor.NewShape2(2, 2), w.Strides)
	assert.True(t, w.Offsets.SameUsesOffset)

	l, err = build(t, nil, StaticConfig{},
		`{"class_name": "AveragePooling2D", "name": "avg", "inbound_nodes": [],
		"config": {"pool_size": [3, 3], "strides": [1, 1], "padding": "valid"}}`)
	require.NoError(t, err)
	assert.Equal(t, "AveragePooling2D", l.Kind())

	l, err = build(t, nil, nil, `{"class_name": "GlobalAveragePooling2D", "name": "gap", "inbound_nodes": [],
		"config": {"data_format": "channels_last"}}`)
	require.NoError(t, err)
	assert.Equal(t, "GlobalAveragePooling2D", l.Kind())

	_, err = build(t, nil, nil, `{"class_name": "GlobalMaxPooling2D", "name": "gmp", "inbound_nodes": [],
		"config": {"data_format": "channels_first"}}`)
	assert.ErrorIs(t, err, errdefs.ErrUnsupported)
}

func TestShapeLayers(t *testing.T) {
	l, err := build(t, nil, nil, `{"class_name": "ZeroPadding2D", "name": "pad", "inbound_nodes": [],
		"config": {"padding": [[1, 2], [3, 4]], "data_format": "channels_last"}}`)
	require.NoError(t, err)
	top, bottom, left, right := l.(*layers.ZeroPadding2D).Paddings()
	assert.Equal(t, []int{1, 2, 3, 4}, []int{top, bottom, left, right})

	_, err = build(t, nil, nil, `{"class_name": "ZeroPadding2D", "name": "pad", "inbound_nodes": [],
		"config": {"padding": [1, 2]}}`)
	assert.ErrorIs(t, err, errdefs.ErrFormat)

	l, err = build(t, nil, nil, `{"class_name": "UpSampling2D", "name": "up", "inbound_nodes": [],
		"config": {"size": [2, 3], "interpolation": "nearest"}}`)
	require.NoError(t, err)
	assert.Equal(t, tensor.NewShape2(2, 3), l.(*layers.UpSampling2D).Scale())

	_, err = build(t, nil, nil, `{"class_name": "UpSampling2D", "name": "up", "inbound_nodes": [],
		"config": {"size": [2, 2], "interpolation": "bilinear"}}`)
	assert.ErrorIs(t, err, errdefs.ErrUnsupported)

	l, err = build(t, nil, nil, `{"class_name": "Dropout", "name": "drop", "inbound_nodes": [],
		"config": {"rate": 0.25}}`)
	require.NoError(t, err)
	assert.Equal(t, float32(0.25), l.(*layers.Dropout).Rate())
}

func TestMergeLayers(t *testing.T) {
	_, err := build(t, nil, nil, `{"class_name": "Concatenate", "name": "cat", "inbound_nodes": [],
		"config": {"axis": -1}}`)
	require.NoError(t, err)

	_, err = build(t, nil, nil, `{"class_name": "Concatenate", "name": "cat", "inbound_nodes": [],
		"config": {"axis": 1}}`)
	assert.ErrorIs(t, err, errdefs.ErrUnsupported)

	l, err := build(t, nil, nil, `{"class_name": "Add", "name": "add", "inbound_nodes": [], "config": {}}`)
	require.NoError(t, err)
	assert.Equal(t, "Add", l.Kind())
}

func TestActivationLayers(t *testing.T) {
	l, err := build(t, nil, nil, `{"class_name": "LeakyReLU", "name": "leaky", "inbound_nodes": [],
		"config": {"alpha": 0.2}}`)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, l.(*layers.ActivationLayer).Alpha(), 1e-7)

	_, err = build(t, nil, nil, `{"class_name": "ELU", "name": "elu", "inbound_nodes": [], "config": {}}`)
	assert.ErrorIs(t, err, errdefs.ErrFormat)

	_, err = build(t, nil, nil, `{"class_name": "Activation", "name": "act", "inbound_nodes": [],
		"config": {"activation": "swish"}}`)
	assert.ErrorIs(t, err, errdefs.ErrUnsupported)
}
