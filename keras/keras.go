// Package keras loads Keras-style model descriptions and runs forward
// inference on them.
//
// A model file is a JSON document holding the layer graph (architecture),
// the trained parameters (trainable_params), the padding convention flags
// and optionally recorded test cases. Loading reconstructs a validated,
// immutable layer graph; Predict evaluates it on CPU.
//
// # Example Usage
//
//	model, err := keras.LoadFile("model.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	input, err := keras.NewTensor3(keras.NewShape3(1, 1, 2), []float32{3, 5})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	outputs, err := model.Predict([]keras.Tensor3{input})
//
// # Supported Layers
//
//   - Core: InputLayer, Dense, Dropout, Flatten, Activation
//   - Convolution: Conv2D, SeparableConv2D (depth_multiplier 1)
//   - Pooling: MaxPooling2D, AveragePooling2D, GlobalMaxPooling2D, GlobalAveragePooling2D
//   - Shape: UpSampling2D, ZeroPadding2D
//   - Merge: Add, Concatenate
//   - Normalization: BatchNormalization
//   - Activations: LeakyReLU, ELU and the functions of [ListSupportedActivations]
//   - Nested models (Model)
//
// Only the channels_last data format is supported.
//
// # Shapes
//
// Shapes in the model document (batch_input_shape, test tensors) are read
// in engine order (depth, height, width), with depth as the channel axis.
// A leading null batch dimension is dropped. A convolution model exported
// with batch_input_shape [null, 5, 5, 2] must be written as [null, 2, 5, 5]:
// read literally, its input depth is 5 and the Conv2D filter depth check
// fails.
package keras

import (
	"fmt"
	"os"

	"github.com/born-ml/infer/internal/errdefs"
	internalkeras "github.com/born-ml/infer/internal/keras"
	"github.com/born-ml/infer/internal/tensor"
	"github.com/born-ml/infer/internal/verify"
	"github.com/born-ml/infer/internal/weights"
	"github.com/tidwall/gjson"
)

// Shape3 is a depth x height x width extent.
type Shape3 = tensor.Shape3

// Tensor3 is a dense depth-major 3-D tensor.
type Tensor3 = tensor.Tensor3

// TestCase is one recorded input/output fixture.
type TestCase = verify.TestCase

// Tolerance bounds accepted deviations during verification.
type Tolerance = verify.Tolerance

// Report summarizes a successful verification run.
type Report = verify.Report

// LoadOptions configures model loading behavior.
type LoadOptions = internalkeras.LoadOptions

// GlobalConfig resolves the padding convention flags.
type GlobalConfig = internalkeras.GlobalConfig

// StaticConfig is a fixed flag table; unset flags read as false.
type StaticConfig = internalkeras.StaticConfig

// Overlay consults Override first and falls back to Base.
type Overlay = internalkeras.Overlay

// WeightSource resolves trained parameters by layer and parameter name.
type WeightSource = weights.Source

// Error kinds, testable with errors.Is.
var (
	ErrFormat       = errdefs.ErrFormat
	ErrUnsupported  = errdefs.ErrUnsupported
	ErrPrecision    = errdefs.ErrPrecision
	ErrVerification = errdefs.ErrVerification
)

// Structured error types, usable with errors.As.
type (
	FormatError         = errdefs.FormatError
	UnsupportedError    = errdefs.UnsupportedError
	VerificationFailure = errdefs.VerificationFailure
)

// PaddingFlags lists the padding convention flag names.
var PaddingFlags = internalkeras.PaddingFlags

// NewShape3 creates a shape.
func NewShape3(depth, height, width int) Shape3 {
	return tensor.NewShape3(depth, height, width)
}

// NewTensor3 creates a tensor; len(values) must equal shape.Volume().
func NewTensor3(shape Shape3, values []float32) (Tensor3, error) {
	return tensor.NewTensor3(shape, values)
}

// DefaultLoadOptions returns the default options for loading models.
//
// Default configuration:
//   - Weights and padding flags are read from the document
//   - Sibling layers are constructed in parallel
//   - Logging goes to slog.Default()
func DefaultLoadOptions() LoadOptions {
	return internalkeras.DefaultLoadOptions()
}

// Load builds a model from a JSON document.
func Load(data []byte, opts ...LoadOptions) (Model, error) {
	m, err := internalkeras.Load(data, opts...)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// LoadFile builds a model from a JSON document on disk.
//
// Example:
//
//	model, err := keras.LoadFile("model.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(model.Summary())
func LoadFile(path string, opts ...LoadOptions) (Model, error) {
	m, err := internalkeras.LoadFile(path, opts...)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// OpenSafeTensors opens a safetensors file as a weight source. Tensors are
// looked up as "<layer>/<param>". The caller must Close it.
func OpenSafeTensors(path string) (*weights.SafeTensorsSource, error) {
	return weights.OpenSafeTensors(path)
}

// Verify replays the model's recorded test cases.
func Verify(m Model, tol Tolerance) (Report, error) {
	return verify.Run(m, m.Tests(), tol)
}

// ParseTensors reads a JSON array of {"shape": [d, h, w], "values": ...}
// objects. Values are a number array or a base64 float32 blob.
func ParseTensors(data []byte) ([]Tensor3, error) {
	if !gjson.ValidBytes(data) {
		return nil, errdefs.Formatf("tensors", "invalid JSON")
	}
	return tensor.ParseTensor3s(gjson.ParseBytes(data))
}

// DocumentFlags returns the padding flags stored in the model document at
// path. Flags are resolved on demand; a missing flag fails on lookup.
func DocumentFlags(path string) (GlobalConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, errdefs.Formatf("document", "invalid JSON")
	}
	return internalkeras.NewDocumentConfig(gjson.ParseBytes(data)), nil
}

// ResolveFlags reads every padding flag from cfg.
func ResolveFlags(cfg GlobalConfig) (map[string]bool, error) {
	return internalkeras.ResolveFlags(cfg)
}

// DefaultTolerance returns an absolute tolerance of 1e-5.
func DefaultTolerance() Tolerance {
	return verify.DefaultTolerance()
}

// ListSupportedLayers returns the supported Keras class names.
func ListSupportedLayers() []string {
	return internalkeras.ListSupportedLayers()
}

// ListSupportedActivations returns the supported activation function names.
func ListSupportedActivations() []string {
	return internalkeras.ListSupportedActivations()
}
