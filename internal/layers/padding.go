package layers

import (
	"fmt"

	"github.com/born-ml/infer/internal/errdefs"
	"github.com/born-ml/infer/internal/tensor"
)

// Padding selects how a sliding window treats the input border.
type Padding int

// Padding modes.
const (
	PaddingValid Padding = iota
	PaddingSame
)

// ParsePadding converts "valid" or "same".
func ParsePadding(s string) (Padding, error) {
	switch s {
	case "valid":
		return PaddingValid, nil
	case "same":
		return PaddingSame, nil
	}
	return 0, errdefs.Unsupported("padding", s)
}

// String returns the mode's Keras name.
func (p Padding) String() string {
	if p == PaddingSame {
		return "same"
	}
	return "valid"
}

// Offsets holds the two padding alignment conventions. They are resolved
// per window computation, not at construction.
type Offsets struct {
	ValidUsesOffset bool
	SameUsesOffset  bool
}

// Window describes a strided sliding window over a 2-D input.
type Window struct {
	Kernel  tensor.Shape2
	Strides tensor.Shape2
	Padding Padding
	Offsets Offsets
}

// geometry is a window resolved against a concrete input extent.
// Output cell (oy, ox) reads input rows from oy*stride-lead.
type geometry struct {
	out      tensor.Shape2
	leadTop  int
	leadLeft int
}

// resolve computes output extent and leading padding for input in.
func (w Window) resolve(in tensor.Shape2) (geometry, error) {
	if w.Strides.Height <= 0 || w.Strides.Width <= 0 {
		return geometry{}, fmt.Errorf("invalid strides %s", w.Strides)
	}
	outH, top, err := w.axis(in.Height, w.Kernel.Height, w.Strides.Height)
	if err != nil {
		return geometry{}, err
	}
	outW, left, err := w.axis(in.Width, w.Kernel.Width, w.Strides.Width)
	if err != nil {
		return geometry{}, err
	}
	return geometry{out: tensor.NewShape2(outH, outW), leadTop: top, leadLeft: left}, nil
}

// axis resolves one dimension.
//
// same:  out = ceil(in/stride); total padding p = max((out-1)*stride+k-in, 0);
// lead = p/2, or p-p/2 with the same-offset convention.
// valid: out = (in-k)/stride+1; with the valid-offset convention the origin
// moves one cell inward when the last window leaves slack.
func (w Window) axis(in, k, stride int) (out, lead int, err error) {
	if w.Padding == PaddingSame {
		out = (in + stride - 1) / stride
		total := max((out-1)*stride+k-in, 0)
		lead = total / 2
		if w.Offsets.SameUsesOffset {
			lead = total - total/2
		}
		return out, lead, nil
	}

	if in < k {
		return 0, 0, fmt.Errorf("input extent %d is smaller than window %d", in, k)
	}
	out = (in-k)/stride + 1
	if w.Offsets.ValidUsesOffset && in-((out-1)*stride+k) > 0 {
		lead = -1
	}
	return out, lead, nil
}
