package keras

import (
	"github.com/born-ml/infer/internal/layers"
	"github.com/tidwall/gjson"
)

// Padding convention flags consulted by the convolution and pooling
// factories. Each layer kind has a valid and a same variant.
var PaddingFlags = []string{
	"conv2d_padding_valid_uses_offset",
	"conv2d_padding_same_uses_offset",
	"separable_conv2d_padding_valid_uses_offset",
	"separable_conv2d_padding_same_uses_offset",
	"max_pooling_2d_padding_valid_uses_offset",
	"max_pooling_2d_padding_same_uses_offset",
	"average_pooling_2d_padding_valid_uses_offset",
	"average_pooling_2d_padding_same_uses_offset",
}

// GlobalConfig resolves model-wide boolean flags by name.
//
// Implementations must be safe for concurrent reads.
type GlobalConfig interface {
	Flag(name string) (bool, error)
}

// DocumentConfig reads flags from the top level of a model document.
// A missing or non-boolean flag is a FormatError.
type DocumentConfig struct {
	root gjson.Result
}

// NewDocumentConfig wraps the document root.
func NewDocumentConfig(root gjson.Result) DocumentConfig {
	return DocumentConfig{root: root}
}

// Flag implements GlobalConfig.
func (c DocumentConfig) Flag(name string) (bool, error) {
	return getBool(c.root, gjson.Escape(name))
}

// StaticConfig is a fixed flag table. Unset flags read as false.
type StaticConfig map[string]bool

// Flag implements GlobalConfig.
func (c StaticConfig) Flag(name string) (bool, error) {
	return c[name], nil
}

// Overlay consults Override first and falls back to Base for flags the
// override does not define.
type Overlay struct {
	Override map[string]bool
	Base     GlobalConfig
}

// Flag implements GlobalConfig.
func (c Overlay) Flag(name string) (bool, error) {
	if v, ok := c.Override[name]; ok {
		return v, nil
	}
	return c.Base.Flag(name)
}

// offsets reads the valid/same flag pair for a layer kind prefix, e.g.
// "conv2d" or "max_pooling_2d".
func offsets(cfg GlobalConfig, prefix string) (layers.Offsets, error) {
	valid, err := cfg.Flag(prefix + "_padding_valid_uses_offset")
	if err != nil {
		return layers.Offsets{}, err
	}
	same, err := cfg.Flag(prefix + "_padding_same_uses_offset")
	if err != nil {
		return layers.Offsets{}, err
	}
	return layers.Offsets{ValidUsesOffset: valid, SameUsesOffset: same}, nil
}

// ResolveFlags reads every padding flag from cfg.
func ResolveFlags(cfg GlobalConfig) (map[string]bool, error) {
	out := make(map[string]bool, len(PaddingFlags))
	for _, name := range PaddingFlags {
		v, err := cfg.Flag(name)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}
