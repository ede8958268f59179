package weights

import (
	"fmt"

	"github.com/born-ml/infer/internal/errdefs"
	"github.com/tidwall/gjson"
)

// Source resolves the trained parameter param of layer.
//
// Implementations must be safe for concurrent reads: layers of one graph may
// be constructed in parallel.
type Source interface {
	Floats(layer, param string) ([]float32, error)
}

// missing builds the error for an absent parameter.
func missing(layer, param string) error {
	return &errdefs.FormatError{Layer: layer, Field: param, Details: "missing parameter"}
}

// DocumentSource reads parameters embedded in a model document, keyed
// as <layer>.<param> under a parameter object.
type DocumentSource struct {
	layers map[string]map[string]gjson.Result
}

// NewDocumentSource indexes params, an object of per-layer parameter objects.
func NewDocumentSource(params gjson.Result) (*DocumentSource, error) {
	if params.Exists() && !params.IsObject() {
		return nil, errdefs.Formatf("trainable_params", "expected object, got %s", params.Type)
	}
	s := &DocumentSource{layers: make(map[string]map[string]gjson.Result)}
	for name, layer := range params.Map() {
		if !layer.IsObject() {
			return nil, &errdefs.FormatError{Layer: name, Field: "trainable_params", Details: "expected object"}
		}
		s.layers[name] = layer.Map()
	}
	return s, nil
}

// Floats decodes the blob stored for layer/param.
func (s *DocumentSource) Floats(layer, param string) ([]float32, error) {
	blob, ok := s.layers[layer][param]
	if !ok {
		return nil, missing(layer, param)
	}
	values, err := Decode(blob)
	if err != nil {
		return nil, fmt.Errorf("param %q: %w", param, errdefs.InLayer(layer, err))
	}
	return values, nil
}

// MapSource is an in-memory Source keyed by layer, then parameter name.
type MapSource map[string]map[string][]float32

// Floats returns a copy of the stored values.
func (m MapSource) Floats(layer, param string) ([]float32, error) {
	values, ok := m[layer][param]
	if !ok {
		return nil, missing(layer, param)
	}
	return append([]float32(nil), values...), nil
}
