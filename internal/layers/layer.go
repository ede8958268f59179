// Package layers implements the executable layer kinds of a reconstructed
// model graph.
//
// Every layer is constructed once, fully parameterized, and then wired by
// node connections: references by layer name to a specific output tensor of
// a specific invocation (node) of another layer. Layers never hold pointers
// to each other; a Model resolves connections by name when it evaluates.
//
// Tensors are depth-major (see package tensor). The depth axis is the
// channel axis, except for row vectors (depth 1, height 1) produced by
// Flatten and Dense, whose channels run along the width.
package layers

import (
	"fmt"

	"github.com/born-ml/infer/internal/errdefs"
	"github.com/born-ml/infer/internal/tensor"
)

// NodeConnection references output TensorIdx of node NodeIdx of layer LayerID.
type NodeConnection struct {
	LayerID   string
	NodeIdx   int
	TensorIdx int
}

// String returns "layer[node][tensor]".
func (c NodeConnection) String() string {
	return fmt.Sprintf("%s[%d][%d]", c.LayerID, c.NodeIdx, c.TensorIdx)
}

// Node is one invocation of a layer: the ordered outputs feeding it.
type Node struct {
	Inbound []NodeConnection
}

// Layer is the contract shared by every layer kind.
//
// Apply evaluates one invocation, including a trailing activation when one
// is attached. OutputShapes reports the shapes Apply would produce for
// inputs of the given shapes without computing values.
type Layer interface {
	Name() string
	Kind() string
	Nodes() []Node
	SetNodes(nodes []Node)
	Activation() Activation
	SetActivation(a Activation)
	ParamCount() int
	OutputShapes(inputs []tensor.Shape3) ([]tensor.Shape3, error)
	Apply(inputs []tensor.Tensor3) ([]tensor.Tensor3, error)
}

// base holds what every layer shares. Concrete layers embed it.
type base struct {
	name       string
	kind       string
	nodes      []Node
	activation Activation
}

func newBase(name, kind string) base {
	return base{name: name, kind: kind}
}

// Name returns the layer's name, unique within its graph.
func (b *base) Name() string { return b.name }

// Kind returns the layer's type tag, e.g. "Conv2D".
func (b *base) Kind() string { return b.kind }

// Nodes returns the layer's invocations.
func (b *base) Nodes() []Node { return b.nodes }

// SetNodes replaces the layer's invocations.
func (b *base) SetNodes(nodes []Node) { b.nodes = nodes }

// Activation returns the fused trailing activation, or nil.
func (b *base) Activation() Activation { return b.activation }

// SetActivation attaches a trailing activation.
func (b *base) SetActivation(a Activation) { b.activation = a }

// finish applies the trailing activation to a single-output result.
func (b *base) finish(out tensor.Tensor3, err error) ([]tensor.Tensor3, error) {
	if err != nil {
		return nil, err
	}
	if b.activation != nil {
		out = b.activation.Transform(out)
	}
	return []tensor.Tensor3{out}, nil
}

// shapeOf wraps a single output shape.
func shapeOf(s tensor.Shape3, err error) ([]tensor.Shape3, error) {
	if err != nil {
		return nil, err
	}
	return []tensor.Shape3{s}, nil
}

// errorf builds a FormatError attributed to the layer.
func (b *base) errorf(format string, args ...any) error {
	return &errdefs.FormatError{Layer: b.name, Details: fmt.Sprintf(format, args...)}
}

// expectInputs checks the input count.
func (b *base) expectInputs(n, want int) error {
	if n != want {
		return b.errorf("%s expects %d input(s), got %d", b.kind, want, n)
	}
	return nil
}

// shapesOf returns the shapes of ts.
func shapesOf(ts []tensor.Tensor3) []tensor.Shape3 {
	shapes := make([]tensor.Shape3, len(ts))
	for i, t := range ts {
		shapes[i] = t.Shape()
	}
	return shapes
}

// isVector reports whether s is a row vector whose channels run along x.
func isVector(s tensor.Shape3) bool {
	return s.Depth == 1 && s.Height == 1
}

// channels returns the channel count of s.
func channels(s tensor.Shape3) int {
	if isVector(s) {
		return s.Width
	}
	return s.Depth
}

// channelOf returns the channel index of (z, y, x) in a tensor of shape s.
func channelOf(s tensor.Shape3, z, x int) int {
	if isVector(s) {
		return x
	}
	return z
}
