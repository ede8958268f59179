package keras

import (
	"fmt"
	"math"

	"github.com/born-ml/infer/internal/errdefs"
	"github.com/born-ml/infer/internal/tensor"
	"github.com/tidwall/gjson"
)

// Accessors for the "config" object of a layer description. Every required
// field that is absent or of the wrong JSON type is a FormatError naming the
// field.

func field(data gjson.Result, path string) (gjson.Result, error) {
	v := data.Get(path)
	if !v.Exists() {
		return v, errdefs.Formatf(path, "missing field")
	}
	return v, nil
}

func getString(data gjson.Result, path string) (string, error) {
	v, err := field(data, path)
	if err != nil {
		return "", err
	}
	if v.Type != gjson.String {
		return "", errdefs.Formatf(path, "expected string, got %s", v.Type)
	}
	return v.Str, nil
}

func getBool(data gjson.Result, path string) (bool, error) {
	v, err := field(data, path)
	if err != nil {
		return false, err
	}
	if !v.IsBool() {
		return false, errdefs.Formatf(path, "expected bool, got %s", v.Type)
	}
	return v.Bool(), nil
}

func getInt(data gjson.Result, path string) (int, error) {
	v, err := field(data, path)
	if err != nil {
		return 0, err
	}
	if v.Type != gjson.Number || v.Num != math.Trunc(v.Num) {
		return 0, errdefs.Formatf(path, "expected integer, got %s", v.Raw)
	}
	return int(v.Int()), nil
}

func getFloat(data gjson.Result, path string) (float32, error) {
	v, err := field(data, path)
	if err != nil {
		return 0, err
	}
	if v.Type != gjson.Number {
		return 0, errdefs.Formatf(path, "expected number, got %s", v.Type)
	}
	return float32(v.Num), nil
}

// getFloatOr returns def when the field is absent or null.
func getFloatOr(data gjson.Result, path string, def float32) (float32, error) {
	if v := data.Get(path); !v.Exists() || v.Type == gjson.Null {
		return def, nil
	}
	return getFloat(data, path)
}

func getShape2(data gjson.Result, path string) (tensor.Shape2, error) {
	v, err := field(data, path)
	if err != nil {
		return tensor.Shape2{}, err
	}
	s, err := tensor.ParseShape2(v)
	if err != nil {
		return tensor.Shape2{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// checkDataFormat rejects layouts other than channels_last. An absent field
// means the Keras default, channels_last.
func checkDataFormat(data gjson.Result) error {
	v := data.Get("config.data_format")
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	if v.Str != "channels_last" {
		return errdefs.Unsupported("data_format", v.String())
	}
	return nil
}
