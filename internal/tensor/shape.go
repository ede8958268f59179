// Package tensor provides the shape and dense volume types layers consume
// and produce.
//
// A Tensor3 is laid out depth-major: values of depth slice z are contiguous
// and row-major within the slice, so (z, y, x) lives at (z*H+y)*W+x.
package tensor

import (
	"fmt"
	"math"

	"github.com/born-ml/infer/internal/errdefs"
	"github.com/tidwall/gjson"
)

// Shape2 is a height x width extent.
type Shape2 struct {
	Height int
	Width  int
}

// NewShape2 creates a Shape2.
func NewShape2(height, width int) Shape2 {
	return Shape2{Height: height, Width: width}
}

// Area returns Height*Width.
func (s Shape2) Area() int {
	return s.Height * s.Width
}

// String returns "HxW".
func (s Shape2) String() string {
	return fmt.Sprintf("%dx%d", s.Height, s.Width)
}

// Shape3 is a depth x height x width extent. A zero Depth in a declared
// input shape means the dimension is left unspecified.
type Shape3 struct {
	Depth  int
	Height int
	Width  int
}

// NewShape3 creates a Shape3.
func NewShape3(depth, height, width int) Shape3 {
	return Shape3{Depth: depth, Height: height, Width: width}
}

// Volume returns the number of elements.
func (s Shape3) Volume() int {
	return s.Depth * s.Height * s.Width
}

// Spatial returns the height x width part of the shape.
func (s Shape3) Spatial() Shape2 {
	return Shape2{Height: s.Height, Width: s.Width}
}

// String returns "(D, H, W)".
func (s Shape3) String() string {
	return fmt.Sprintf("(%d, %d, %d)", s.Depth, s.Height, s.Width)
}

// shapeDims extracts up to maxDims non-negative integers from a shape array.
// A leading null (batch dimension) is skipped. Missing leading dimensions are
// returned as zero so the result always has maxDims entries.
func shapeDims(data gjson.Result, maxDims int) ([]int, error) {
	if !data.IsArray() {
		return nil, errdefs.Formatf("shape", "shape needs to be an array, got %s", data.Type)
	}
	elems := data.Array()
	if len(elems) > 0 && elems[0].Type == gjson.Null {
		elems = elems[1:]
	}
	if len(elems) == 0 || len(elems) > maxDims {
		return nil, errdefs.Formatf("shape", "shape needs 1 to %d dimensions, got %d", maxDims, len(elems))
	}

	dims := make([]int, maxDims)
	pad := maxDims - len(elems)
	for i, e := range elems {
		if e.Type != gjson.Number || e.Num != math.Trunc(e.Num) || e.Num < 0 {
			return nil, errdefs.Formatf("shape", "dimension %d is not a non-negative integer: %s", i, e.Raw)
		}
		dims[pad+i] = int(e.Int())
	}
	return dims, nil
}

// ParseShape3 reads a Shape3 from an array of 1-3 integers, optionally
// preceded by a null batch dimension. Missing leading dimensions are zero.
func ParseShape3(data gjson.Result) (Shape3, error) {
	dims, err := shapeDims(data, 3)
	if err != nil {
		return Shape3{}, err
	}
	return NewShape3(dims[0], dims[1], dims[2]), nil
}

// ParseShape2 reads a Shape2 from an array of 1-2 integers, optionally
// preceded by a null batch dimension. A missing height is zero.
func ParseShape2(data gjson.Result) (Shape2, error) {
	dims, err := shapeDims(data, 2)
	if err != nil {
		return Shape2{}, err
	}
	return NewShape2(dims[0], dims[1]), nil
}

// ParseShape3s reads an array of Shape3.
func ParseShape3s(data gjson.Result) ([]Shape3, error) {
	if !data.IsArray() {
		return nil, errdefs.Formatf("shapes", "expected array, got %s", data.Type)
	}
	elems := data.Array()
	shapes := make([]Shape3, len(elems))
	for i, e := range elems {
		s, err := ParseShape3(e)
		if err != nil {
			return nil, fmt.Errorf("shape %d: %w", i, err)
		}
		shapes[i] = s
	}
	return shapes, nil
}
