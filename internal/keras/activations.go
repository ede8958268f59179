package keras

import (
	"github.com/born-ml/infer/internal/layers"
	"github.com/tidwall/gjson"
)

// registerActivations adds the standalone activation kinds.
func (r *Registry) registerActivations() {
	r.Register("Activation", buildActivation)
	r.Register("LeakyReLU", buildLeakyReLU)
	r.Register("ELU", buildELU)
}

func buildActivation(_ *Context, data gjson.Result) (layers.Layer, error) {
	name, err := layerName(data)
	if err != nil {
		return nil, err
	}
	function, err := getString(data, "config.activation")
	if err != nil {
		return nil, err
	}
	return wrap(layers.NewActivation(name, function))
}

func buildLeakyReLU(_ *Context, data gjson.Result) (layers.Layer, error) {
	name, err := layerName(data)
	if err != nil {
		return nil, err
	}
	alpha, err := getFloat(data, "config.alpha")
	if err != nil {
		return nil, err
	}
	return layers.NewLeakyReLU(name, alpha), nil
}

func buildELU(_ *Context, data gjson.Result) (layers.Layer, error) {
	name, err := layerName(data)
	if err != nil {
		return nil, err
	}
	alpha, err := getFloat(data, "config.alpha")
	if err != nil {
		return nil, err
	}
	return layers.NewELU(name, alpha), nil
}
