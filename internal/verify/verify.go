// Package verify replays recorded input/output pairs through a model and
// compares the results element by element within a tolerance.
package verify

import (
	"fmt"
	"math"

	"github.com/born-ml/infer/internal/errdefs"
	"github.com/born-ml/infer/internal/tensor"
	"github.com/tidwall/gjson"
	"gonum.org/v1/gonum/floats/scalar"
)

// TestCase is one recorded fixture: model inputs and expected outputs.
type TestCase struct {
	Inputs  []tensor.Tensor3
	Outputs []tensor.Tensor3
}

// LoadTestCase reads {"inputs": [...], "outputs": [...]}.
func LoadTestCase(data gjson.Result) (TestCase, error) {
	if !data.Get("inputs").IsArray() {
		return TestCase{}, errdefs.Formatf("inputs", "test needs inputs")
	}
	if !data.Get("outputs").IsArray() {
		return TestCase{}, errdefs.Formatf("outputs", "test needs outputs")
	}
	inputs, err := tensor.ParseTensor3s(data.Get("inputs"))
	if err != nil {
		return TestCase{}, fmt.Errorf("inputs: %w", err)
	}
	outputs, err := tensor.ParseTensor3s(data.Get("outputs"))
	if err != nil {
		return TestCase{}, fmt.Errorf("outputs: %w", err)
	}
	return TestCase{Inputs: inputs, Outputs: outputs}, nil
}

// LoadTestCases reads an array of test cases.
func LoadTestCases(data gjson.Result) ([]TestCase, error) {
	if !data.IsArray() {
		return nil, errdefs.Formatf("tests", "expected array, got %s", data.Type)
	}
	elems := data.Array()
	cases := make([]TestCase, len(elems))
	for i, e := range elems {
		c, err := LoadTestCase(e)
		if err != nil {
			return nil, fmt.Errorf("test case %d: %w", i, err)
		}
		cases[i] = c
	}
	return cases, nil
}

// Tolerance bounds the accepted deviation of an element. A pair is equal
// when it is within Abs absolutely or within Rel relatively.
type Tolerance struct {
	Abs float64
	Rel float64
}

// DefaultTolerance returns an absolute tolerance of 1e-5.
func DefaultTolerance() Tolerance {
	return Tolerance{Abs: 1e-5}
}

func (t Tolerance) equal(expected, actual float32) bool {
	return scalar.EqualWithinAbsOrRel(float64(expected), float64(actual), t.Abs, t.Rel)
}

// Report summarizes a successful run.
type Report struct {
	Cases       int
	Elements    int
	MaxAbsError float64
}

// Check compares actual against expected for case index caseIdx. Count and
// shape mismatches fail immediately; otherwise the first element outside
// tol is reported with its coordinate.
func Check(caseIdx int, expected, actual []tensor.Tensor3, tol Tolerance) error {
	return check(caseIdx, expected, actual, tol, &Report{})
}

func check(caseIdx int, expected, actual []tensor.Tensor3, tol Tolerance, r *Report) error {
	if len(expected) != len(actual) {
		return &errdefs.VerificationFailure{Case: caseIdx,
			Details: fmt.Sprintf("invalid output count: expected %d, got %d", len(expected), len(actual))}
	}
	for i := range expected {
		want, got := expected[i], actual[i]
		if want.Shape() != got.Shape() {
			return &errdefs.VerificationFailure{Case: caseIdx, Output: i,
				Details: fmt.Sprintf("wrong output shape: expected %s, got %s", want.Shape(), got.Shape())}
		}
		s := want.Shape()
		for z := 0; z < s.Depth; z++ {
			for y := 0; y < s.Height; y++ {
				for x := 0; x < s.Width; x++ {
					e, a := want.Get(z, y, x), got.Get(z, y, x)
					if !tol.equal(e, a) {
						return &errdefs.VerificationFailure{Case: caseIdx, Output: i,
							Z: z, Y: y, X: x, Expected: e, Actual: a}
					}
					r.MaxAbsError = math.Max(r.MaxAbsError, math.Abs(float64(e)-float64(a)))
					r.Elements++
				}
			}
		}
	}
	return nil
}

// Predictor computes a model's outputs.
type Predictor interface {
	Predict(inputs []tensor.Tensor3) ([]tensor.Tensor3, error)
}

// Run predicts every case and checks it. The first failing case stops the
// run.
func Run(p Predictor, cases []TestCase, tol Tolerance) (Report, error) {
	r := &Report{}
	for i, c := range cases {
		actual, err := p.Predict(c.Inputs)
		if err != nil {
			return *r, fmt.Errorf("case %d: %w", i, err)
		}
		if err := check(i, c.Outputs, actual, tol, r); err != nil {
			return *r, err
		}
		r.Cases++
	}
	return *r, nil
}
