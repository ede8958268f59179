package keras

import (
	"github.com/born-ml/infer/internal/errdefs"
	"github.com/born-ml/infer/internal/layers"
	"github.com/tidwall/gjson"
)

// registerMerge adds the multi-input kinds.
func (r *Registry) registerMerge() {
	r.Register("Add", buildAdd)
	r.Register("Concatenate", buildConcatenate)
}

func buildAdd(_ *Context, data gjson.Result) (layers.Layer, error) {
	name, err := layerName(data)
	if err != nil {
		return nil, err
	}
	return layers.NewAdd(name), nil
}

// buildConcatenate accepts only the channel axis: -1, or 3 for
// channels_last image tensors.
func buildConcatenate(_ *Context, data gjson.Result) (layers.Layer, error) {
	name, err := layerName(data)
	if err != nil {
		return nil, err
	}
	if v := data.Get("config.axis"); v.Exists() {
		axis, err := getInt(data, "config.axis")
		if err != nil {
			return nil, err
		}
		if axis != -1 && axis != 3 {
			return nil, errdefs.Unsupported("concatenation axis", v.Raw)
		}
	}
	return layers.NewConcatenate(name), nil
}
