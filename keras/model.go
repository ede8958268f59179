package keras

import "io"

// Model is a loaded model ready for inference.
//
// The interface hides the internal graph representation. Implementations
// are immutable after loading and safe for concurrent Predict calls.
type Model interface {
	// Name returns the root model's name.
	Name() string

	// Predict evaluates the model on one tensor per declared input and
	// returns one tensor per declared output.
	Predict(inputs []Tensor3) ([]Tensor3, error)

	// InputShapes returns the declared input shapes. Zero dimensions
	// accept any extent.
	InputShapes() []Shape3

	// OutputShapes returns the output shapes for the given input shapes
	// without computing values.
	OutputShapes(inputs []Shape3) ([]Shape3, error)

	// ParamCount returns the total number of parameters.
	ParamCount() int

	// Tests returns the test cases recorded in the model file.
	Tests() []TestCase

	// Metadata returns descriptive fields of the model file, such as
	// "keras_version".
	Metadata() map[string]string

	// Summary returns a per-layer table with parameter counts.
	Summary() string

	// WriteSummary writes Summary to w.
	WriteSummary(w io.Writer)
}
