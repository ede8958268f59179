package keras

import (
	"fmt"
	"log/slog"

	"github.com/born-ml/infer/internal/errdefs"
	"github.com/born-ml/infer/internal/layers"
	"github.com/tidwall/gjson"
)

// parseConnection reads [layer, node_index, tensor_index] or the four
// element form with trailing call arguments, which are ignored.
func parseConnection(data gjson.Result, logger *slog.Logger) (layers.NodeConnection, error) {
	if !data.IsArray() {
		return layers.NodeConnection{}, errdefs.Formatf("inbound_nodes", "invalid format for inbound node: %s", data.Raw)
	}
	elems := data.Array()
	if len(elems) != 3 && len(elems) != 4 {
		return layers.NodeConnection{}, errdefs.Formatf("inbound_nodes",
			"node connection needs 3 elements, got %d", len(elems))
	}
	if elems[0].Type != gjson.String {
		return layers.NodeConnection{}, errdefs.Formatf("inbound_nodes", "layer id must be a string, got %s", elems[0].Raw)
	}
	idx := make([]int, 2)
	for i, e := range elems[1:3] {
		if e.Type != gjson.Number || e.Num < 0 || e.Num != float64(e.Int()) {
			return layers.NodeConnection{}, errdefs.Formatf("inbound_nodes",
				"index must be a non-negative integer, got %s", e.Raw)
		}
		idx[i] = int(e.Int())
	}
	if len(elems) == 4 && elems[3].IsObject() && len(elems[3].Map()) > 0 && logger != nil {
		logger.Warn("ignoring node call arguments", "layer", elems[0].Str, "kwargs", elems[3].Raw)
	}
	return layers.NodeConnection{LayerID: elems[0].Str, NodeIdx: idx[0], TensorIdx: idx[1]}, nil
}

// parseConnections reads an array of connections.
func parseConnections(data gjson.Result, logger *slog.Logger) ([]layers.NodeConnection, error) {
	if !data.IsArray() {
		return nil, errdefs.Formatf("connections", "expected array, got %s", data.Type)
	}
	elems := data.Array()
	conns := make([]layers.NodeConnection, len(elems))
	for i, e := range elems {
		c, err := parseConnection(e, logger)
		if err != nil {
			return nil, fmt.Errorf("connection %d: %w", i, err)
		}
		conns[i] = c
	}
	return conns, nil
}

// parseNodes reads a layer's inbound_nodes: one node per invocation, each
// an array of connections.
func parseNodes(data gjson.Result, logger *slog.Logger) ([]layers.Node, error) {
	inbound := data.Get("inbound_nodes")
	if !inbound.IsArray() {
		return nil, errdefs.Formatf("inbound_nodes", "no inbound nodes")
	}
	elems := inbound.Array()
	nodes := make([]layers.Node, len(elems))
	for i, e := range elems {
		conns, err := parseConnections(e, logger)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		nodes[i] = layers.Node{Inbound: conns}
	}
	return nodes, nil
}
