package keras

import (
	"github.com/born-ml/infer/internal/layers"
	"github.com/born-ml/infer/internal/tensor"
	"github.com/tidwall/gjson"
)

// registerPooling adds the windowed and global pooling kinds.
func (r *Registry) registerPooling() {
	r.Register("MaxPooling2D", func(ctx *Context, data gjson.Result) (layers.Layer, error) {
		return buildPooling2D(ctx, data, "max_pooling_2d", layers.NewMaxPooling2D)
	})
	r.Register("AveragePooling2D", func(ctx *Context, data gjson.Result) (layers.Layer, error) {
		return buildPooling2D(ctx, data, "average_pooling_2d", layers.NewAveragePooling2D)
	})
	r.Register("GlobalMaxPooling2D", func(_ *Context, data gjson.Result) (layers.Layer, error) {
		return buildGlobalPooling2D(data, layers.NewGlobalMaxPooling2D)
	})
	r.Register("GlobalAveragePooling2D", func(_ *Context, data gjson.Result) (layers.Layer, error) {
		return buildGlobalPooling2D(data, layers.NewGlobalAveragePooling2D)
	})
}

type poolingConstructor func(name string, pool, strides tensor.Shape2,
	padding layers.Padding, offsets layers.Offsets) (*layers.Pooling2D, error)

func buildPooling2D(ctx *Context, data gjson.Result, flagPrefix string, newPool poolingConstructor) (layers.Layer, error) {
	name, err := layerName(data)
	if err != nil {
		return nil, err
	}
	if err := checkDataFormat(data); err != nil {
		return nil, err
	}
	pool, err := getShape2(data, "config.pool_size")
	if err != nil {
		return nil, err
	}
	// Keras stores null strides when they default to the pool size.
	strides := pool
	if v := data.Get("config.strides"); v.Exists() && v.Type != gjson.Null {
		if strides, err = getShape2(data, "config.strides"); err != nil {
			return nil, err
		}
	}
	paddingName, err := getString(data, "config.padding")
	if err != nil {
		return nil, err
	}
	padding, err := layers.ParsePadding(paddingName)
	if err != nil {
		return nil, err
	}
	off, err := offsets(ctx.config(), flagPrefix)
	if err != nil {
		return nil, err
	}
	return wrap(newPool(name, pool, strides, padding, off))
}

func buildGlobalPooling2D(data gjson.Result, newPool func(string) *layers.GlobalPooling2D) (layers.Layer, error) {
	name, err := layerName(data)
	if err != nil {
		return nil, err
	}
	if err := checkDataFormat(data); err != nil {
		return nil, err
	}
	return newPool(name), nil
}
