// Package keras reconstructs executable layer graphs from Keras-style model
// descriptions.
//
// A description is a generic JSON document queried by path. Each layer
// entry is turned into a typed layer by the factory registered for its
// class_name; trained parameters come from a weights.Source and the
// padding-offset conventions from a GlobalConfig.
package keras

import (
	"log/slog"
	"sort"

	"github.com/born-ml/infer/internal/errdefs"
	"github.com/born-ml/infer/internal/layers"
	"github.com/born-ml/infer/internal/parallel"
	"github.com/born-ml/infer/internal/weights"
	"github.com/tidwall/gjson"
)

// Context provides everything a factory needs besides the layer
// description itself.
type Context struct {
	Weights  weights.Source
	Config   GlobalConfig
	Registry *Registry
	Parallel parallel.Config
	Logger   *slog.Logger
}

func (c *Context) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Context) source() weights.Source {
	if c.Weights != nil {
		return c.Weights
	}
	return weights.MapSource(nil)
}

func (c *Context) config() GlobalConfig {
	if c.Config != nil {
		return c.Config
	}
	return StaticConfig(nil)
}

func (c *Context) registry() *Registry {
	if c.Registry != nil {
		return c.Registry
	}
	return NewRegistry()
}

// Factory builds one layer kind from its description.
type Factory func(ctx *Context, data gjson.Result) (layers.Layer, error)

// Registry maps Keras class names to factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates a registry with every supported layer kind.
func NewRegistry() *Registry {
	r := &Registry{
		factories: make(map[string]Factory),
	}

	r.registerWeighted()
	r.registerPooling()
	r.registerShape()
	r.registerMerge()
	r.registerActivations()
	r.Register("Model", buildModel)

	return r
}

// Register adds or replaces the factory for a class name.
func (r *Registry) Register(kind string, f Factory) {
	r.factories[kind] = f
}

// Get returns the factory for a class name.
func (r *Registry) Get(kind string) (Factory, bool) {
	f, ok := r.factories[kind]
	return f, ok
}

// SupportedLayers returns the registered class names, sorted.
func (r *Registry) SupportedLayers() []string {
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Build constructs one layer from its description: the factory for its
// class_name, then the inline activation (for every kind except
// Activation), then its inbound nodes.
func (r *Registry) Build(ctx *Context, data gjson.Result) (layers.Layer, error) {
	kind, err := getString(data, "class_name")
	if err != nil {
		return nil, err
	}
	name, err := layerName(data)
	if err != nil {
		return nil, err
	}

	factory, ok := r.Get(kind)
	if !ok {
		return nil, &errdefs.UnsupportedError{Layer: name, Feature: "layer type", Value: kind}
	}
	l, err := factory(ctx, data)
	if err != nil {
		return nil, errdefs.InLayer(name, err)
	}

	if kind != "Activation" {
		if err := attachActivation(l, data); err != nil {
			return nil, errdefs.InLayer(name, err)
		}
	}

	nodes, err := parseNodes(data, ctx.logger())
	if err != nil {
		return nil, errdefs.InLayer(name, err)
	}
	l.SetNodes(nodes)

	ctx.logger().Debug("layer constructed", "layer", name, "kind", kind, "params", l.ParamCount())
	return l, nil
}

// attachActivation fuses config.activation onto l. Linear is the identity
// and is not attached.
func attachActivation(l layers.Layer, data gjson.Result) error {
	v := data.Get("config.activation")
	if !v.Exists() {
		return nil
	}
	function, err := getString(data, "config.activation")
	if err != nil {
		return err
	}
	if function == "linear" {
		return nil
	}
	a, err := layers.NewActivation("", function)
	if err != nil {
		return err
	}
	l.SetActivation(a)
	return nil
}

// layerName reads the layer name. Model descriptions may carry it only
// inside their config.
func layerName(data gjson.Result) (string, error) {
	if data.Get("name").Exists() {
		return getString(data, "name")
	}
	return getString(data, "config.name")
}

// wrap converts a concrete constructor result to the Layer interface
// without producing a typed nil.
func wrap[L layers.Layer](l L, err error) (layers.Layer, error) {
	if err != nil {
		return nil, err
	}
	return l, nil
}
