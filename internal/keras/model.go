package keras

import (
	"fmt"

	"github.com/born-ml/infer/internal/errdefs"
	"github.com/born-ml/infer/internal/layers"
	"github.com/born-ml/infer/internal/parallel"
	"github.com/tidwall/gjson"
)

// buildModel builds a nested model: every child through the registry,
// siblings in parallel, then the input and output connection lists.
func buildModel(ctx *Context, data gjson.Result) (layers.Layer, error) {
	name, err := layerName(data)
	if err != nil {
		return nil, err
	}
	children := data.Get("config.layers")
	if !children.IsArray() {
		return nil, errdefs.Formatf("config.layers", "missing layers array")
	}
	elems := children.Array()

	registry := ctx.registry()
	built, err := parallel.Map(len(elems), func(i int) (layers.Layer, error) {
		return registry.Build(ctx, elems[i])
	}, ctx.Parallel)
	if err != nil {
		return nil, fmt.Errorf("model %q: %w", name, err)
	}

	inputs, err := parseConnections(data.Get("config.input_layers"), ctx.logger())
	if err != nil {
		return nil, fmt.Errorf("input_layers: %w", err)
	}
	outputs, err := parseConnections(data.Get("config.output_layers"), ctx.logger())
	if err != nil {
		return nil, fmt.Errorf("output_layers: %w", err)
	}
	return wrap(layers.NewModel(name, built, inputs, outputs))
}
