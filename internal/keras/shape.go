package keras

import (
	"github.com/born-ml/infer/internal/errdefs"
	"github.com/born-ml/infer/internal/layers"
	"github.com/born-ml/infer/internal/tensor"
	"github.com/tidwall/gjson"
)

// registerShape adds the kinds that only move or pass values through.
func (r *Registry) registerShape() {
	r.Register("InputLayer", buildInput)
	r.Register("Flatten", buildFlatten)
	r.Register("Dropout", buildDropout)
	r.Register("UpSampling2D", buildUpSampling2D)
	r.Register("ZeroPadding2D", buildZeroPadding2D)
}

func buildInput(_ *Context, data gjson.Result) (layers.Layer, error) {
	name, err := layerName(data)
	if err != nil {
		return nil, err
	}
	if inbound := data.Get("inbound_nodes"); inbound.IsArray() && len(inbound.Array()) > 0 {
		return nil, errdefs.Formatf("inbound_nodes", "input layer must not have inbound nodes")
	}
	path := "config.batch_input_shape"
	if !data.Get(path).Exists() {
		path = "config.batch_shape"
	}
	v, err := field(data, path)
	if err != nil {
		return nil, err
	}
	shape, err := tensor.ParseShape3(v)
	if err != nil {
		return nil, err
	}
	return layers.NewInput(name, shape), nil
}

func buildFlatten(_ *Context, data gjson.Result) (layers.Layer, error) {
	name, err := layerName(data)
	if err != nil {
		return nil, err
	}
	return layers.NewFlatten(name), nil
}

func buildDropout(_ *Context, data gjson.Result) (layers.Layer, error) {
	name, err := layerName(data)
	if err != nil {
		return nil, err
	}
	rate, err := getFloatOr(data, "config.rate", 0)
	if err != nil {
		return nil, err
	}
	return layers.NewDropout(name, rate), nil
}

func buildUpSampling2D(_ *Context, data gjson.Result) (layers.Layer, error) {
	name, err := layerName(data)
	if err != nil {
		return nil, err
	}
	if err := checkDataFormat(data); err != nil {
		return nil, err
	}
	if v := data.Get("config.interpolation"); v.Exists() && v.String() != "nearest" {
		return nil, errdefs.Unsupported("interpolation", v.String())
	}
	size, err := getShape2(data, "config.size")
	if err != nil {
		return nil, err
	}
	return wrap(layers.NewUpSampling2D(name, size))
}

// buildZeroPadding2D reads padding as ((top, bottom), (left, right)).
func buildZeroPadding2D(_ *Context, data gjson.Result) (layers.Layer, error) {
	name, err := layerName(data)
	if err != nil {
		return nil, err
	}
	if err := checkDataFormat(data); err != nil {
		return nil, err
	}
	v, err := field(data, "config.padding")
	if err != nil {
		return nil, err
	}
	rows := v.Array()
	if !v.IsArray() || len(rows) != 2 || !rows[0].IsArray() || !rows[1].IsArray() ||
		len(rows[0].Array()) != 2 || len(rows[1].Array()) != 2 {
		return nil, errdefs.Formatf("config.padding", "invalid padding format: %s", v.Raw)
	}
	pads := make([]int, 0, 4)
	for _, row := range rows {
		for _, p := range row.Array() {
			if p.Type != gjson.Number || p.Num < 0 || p.Num != float64(p.Int()) {
				return nil, errdefs.Formatf("config.padding", "invalid padding value: %s", p.Raw)
			}
			pads = append(pads, int(p.Int()))
		}
	}
	return wrap(layers.NewZeroPadding2D(name, pads[0], pads[1], pads[2], pads[3]))
}
