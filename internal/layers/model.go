package layers

import (
	"github.com/born-ml/infer/internal/errdefs"
	"github.com/born-ml/infer/internal/tensor"
)

// Model is a sub-graph addressed as a single layer. Its inputs map external
// tensors onto internal input layers and its outputs select internal layer
// outputs. Child names are scoped to the model.
type Model struct {
	base
	layers  []Layer
	byName  map[string]Layer
	inputs  []NodeConnection
	outputs []NodeConnection
}

// NewModel validates the wiring of layers and wraps them as one layer.
//
// Every child name must be unique, every connection (child inbound nodes,
// inputs, outputs) must name a child, and every input must name an
// InputLayer.
func NewModel(name string, children []Layer, inputs, outputs []NodeConnection) (*Model, error) {
	m := &Model{
		base:    newBase(name, "Model"),
		layers:  children,
		byName:  make(map[string]Layer, len(children)),
		inputs:  inputs,
		outputs: outputs,
	}
	for _, l := range children {
		if _, dup := m.byName[l.Name()]; dup {
			return nil, m.errorf("duplicate layer name %q", l.Name())
		}
		m.byName[l.Name()] = l
	}
	for _, l := range children {
		for i, node := range l.Nodes() {
			for _, c := range node.Inbound {
				if _, ok := m.byName[c.LayerID]; !ok {
					return nil, m.errorf("layer %q node %d: unknown inbound layer %q", l.Name(), i, c.LayerID)
				}
			}
		}
	}
	if len(inputs) == 0 {
		return nil, m.errorf("no input layers")
	}
	if len(outputs) == 0 {
		return nil, m.errorf("no output layers")
	}
	for _, c := range inputs {
		l, ok := m.byName[c.LayerID]
		if !ok {
			return nil, m.errorf("unknown input layer %q", c.LayerID)
		}
		if _, ok := l.(*InputLayer); !ok {
			return nil, m.errorf("input %q is a %s, not an InputLayer", c.LayerID, l.Kind())
		}
	}
	for _, c := range outputs {
		if _, ok := m.byName[c.LayerID]; !ok {
			return nil, m.errorf("unknown output layer %q", c.LayerID)
		}
	}
	return m, nil
}

// Layers returns the child layers in description order.
func (m *Model) Layers() []Layer { return m.layers }

// Layer returns the child named name.
func (m *Model) Layer(name string) (Layer, bool) {
	l, ok := m.byName[name]
	return l, ok
}

// Inputs returns the input connections.
func (m *Model) Inputs() []NodeConnection { return m.inputs }

// Outputs returns the output connections.
func (m *Model) Outputs() []NodeConnection { return m.outputs }

// InputShapes returns the declared shapes of the input layers.
func (m *Model) InputShapes() []tensor.Shape3 {
	shapes := make([]tensor.Shape3, len(m.inputs))
	for i, c := range m.inputs {
		shapes[i] = m.byName[c.LayerID].(*InputLayer).Shape()
	}
	return shapes
}

// ParamCount sums the children.
func (m *Model) ParamCount() int {
	n := 0
	for _, l := range m.layers {
		n += l.ParamCount()
	}
	return n
}

// OutputShapes propagates shapes through the sub-graph.
func (m *Model) OutputShapes(inputs []tensor.Shape3) ([]tensor.Shape3, error) {
	return evaluate(m, inputs, func(l Layer, in []tensor.Shape3) ([]tensor.Shape3, error) {
		return l.OutputShapes(in)
	})
}

// Apply evaluates the sub-graph.
func (m *Model) Apply(inputs []tensor.Tensor3) ([]tensor.Tensor3, error) {
	outs, err := evaluate(m, inputs, func(l Layer, in []tensor.Tensor3) ([]tensor.Tensor3, error) {
		return l.Apply(in)
	})
	if err != nil {
		return nil, err
	}
	if m.activation != nil {
		for i := range outs {
			outs[i] = m.activation.Transform(outs[i])
		}
	}
	return outs, nil
}

// nodeKey identifies one invocation of a child.
type nodeKey struct {
	layer string
	node  int
}

// evaluation runs one pass over a model with memoised node outputs.
type evaluation[T any] struct {
	m        *Model
	apply    func(Layer, []T) ([]T, error)
	cache    map[nodeKey][]T
	visiting map[nodeKey]bool
}

// evaluate resolves the model's outputs for the given inputs. Each child
// invocation is computed at most once per pass.
func evaluate[T any](m *Model, inputs []T, apply func(Layer, []T) ([]T, error)) ([]T, error) {
	if len(inputs) != len(m.inputs) {
		return nil, m.errorf("model expects %d input(s), got %d", len(m.inputs), len(inputs))
	}
	e := &evaluation[T]{
		m:        m,
		apply:    apply,
		cache:    make(map[nodeKey][]T),
		visiting: make(map[nodeKey]bool),
	}
	for i, c := range m.inputs {
		out, err := apply(m.byName[c.LayerID], []T{inputs[i]})
		if err != nil {
			return nil, err
		}
		e.cache[nodeKey{c.LayerID, c.NodeIdx}] = out
	}

	result := make([]T, len(m.outputs))
	for i, c := range m.outputs {
		out, err := e.output(c)
		if err != nil {
			return nil, err
		}
		result[i] = out
	}
	return result, nil
}

// output returns the tensor a connection refers to, evaluating its
// producer (and, recursively, the producer's inputs) when needed.
func (e *evaluation[T]) output(c NodeConnection) (T, error) {
	var zero T
	key := nodeKey{c.LayerID, c.NodeIdx}
	outs, ok := e.cache[key]
	if !ok {
		l := e.m.byName[c.LayerID]
		nodes := l.Nodes()
		if c.NodeIdx < 0 || c.NodeIdx >= len(nodes) {
			return zero, e.m.errorf("connection %s: layer has %d node(s)", c, len(nodes))
		}
		node := nodes[c.NodeIdx]
		if len(node.Inbound) == 0 {
			return zero, e.m.errorf("connection %s: node has no inputs and is not a model input", c)
		}
		if e.visiting[key] {
			return zero, e.m.errorf("connection %s: cycle in layer graph", c)
		}
		e.visiting[key] = true

		in := make([]T, len(node.Inbound))
		for i, ic := range node.Inbound {
			v, err := e.output(ic)
			if err != nil {
				return zero, err
			}
			in[i] = v
		}
		var err error
		outs, err = e.apply(l, in)
		if err != nil {
			return zero, errdefs.InLayer(l.Name(), err)
		}
		e.cache[key] = outs
		delete(e.visiting, key)
	}
	if c.TensorIdx < 0 || c.TensorIdx >= len(outs) {
		return zero, e.m.errorf("connection %s: layer produced %d tensor(s)", c, len(outs))
	}
	return outs[c.TensorIdx], nil
}
