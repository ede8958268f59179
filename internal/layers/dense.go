package layers

import (
	"fmt"

	"github.com/born-ml/infer/internal/tensor"
	"gonum.org/v1/gonum/mat"
)

// Dense is a fully connected layer: y = x·W + b over the flattened input.
//
// Weights use the Keras kernel layout (inputs, units), row-major. The output
// is a row vector of shape (1, 1, units).
type Dense struct {
	base
	units     int
	inputSize int
	kernel    *mat.Dense
	bias      []float32
}

// NewDense creates a dense layer. The input size is derived from the weight
// count, which must be a non-zero multiple of units.
func NewDense(name string, units int, weights, bias []float32) (*Dense, error) {
	l := &Dense{base: newBase(name, "Dense"), units: units}
	if units <= 0 {
		return nil, l.errorf("units must be positive, got %d", units)
	}
	if len(weights) == 0 || len(weights)%units != 0 {
		return nil, l.errorf("weight count %d is not a multiple of units %d", len(weights), units)
	}
	if len(bias) != units {
		return nil, l.errorf("size of bias %d does not match units %d", len(bias), units)
	}

	l.inputSize = len(weights) / units
	data := make([]float64, len(weights))
	for i, w := range weights {
		data[i] = float64(w)
	}
	l.kernel = mat.NewDense(l.inputSize, units, data)
	l.bias = append([]float32(nil), bias...)
	return l, nil
}

// Units returns the output size.
func (l *Dense) Units() int { return l.units }

// InputSize returns the expected flattened input size.
func (l *Dense) InputSize() int { return l.inputSize }

// ParamCount returns weights plus biases.
func (l *Dense) ParamCount() int { return l.inputSize*l.units + l.units }

// OutputShapes returns (1, 1, units).
func (l *Dense) OutputShapes(inputs []tensor.Shape3) ([]tensor.Shape3, error) {
	return shapeOf(l.outputShape(inputs))
}

func (l *Dense) outputShape(inputs []tensor.Shape3) (tensor.Shape3, error) {
	if err := l.expectInputs(len(inputs), 1); err != nil {
		return tensor.Shape3{}, err
	}
	if inputs[0].Volume() != l.inputSize {
		return tensor.Shape3{}, l.errorf("input volume %d does not match kernel input size %d",
			inputs[0].Volume(), l.inputSize)
	}
	return tensor.NewShape3(1, 1, l.units), nil
}

// Apply computes x·W + b.
func (l *Dense) Apply(inputs []tensor.Tensor3) ([]tensor.Tensor3, error) {
	shape, err := l.outputShape(shapesOf(inputs))
	if err != nil {
		return nil, err
	}

	flat := flatValues(inputs[0])
	x := make([]float64, len(flat))
	for i, v := range flat {
		x[i] = float64(v)
	}
	var y mat.VecDense
	y.MulVec(l.kernel.T(), mat.NewVecDense(len(x), x))

	out := tensor.Zeros(shape)
	values := out.Values()
	for j := range values {
		values[j] = float32(y.AtVec(j)) + l.bias[j]
	}
	return l.finish(out, nil)
}

// String returns a short description.
func (l *Dense) String() string {
	return fmt.Sprintf("Dense(in=%d, units=%d)", l.inputSize, l.units)
}
