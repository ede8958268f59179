// Package weights decodes trained parameter blobs and resolves them by layer
// and parameter name.
//
// A blob is either a plain JSON array of numbers or one or more base64 text
// segments which concatenate to little-endian float32 values.
package weights

import (
	"encoding/binary"
	"math"

	"github.com/born-ml/infer/internal/errdefs"
	"github.com/tidwall/gjson"
)

// invalid marks a byte outside the base64 alphabet (and the '=' pad).
const invalid = 0xff

// fromBase64 maps ASCII up to 'z' to 6-bit values. Both the standard and the
// URL-safe alphabet are accepted.
var fromBase64 = [...]byte{
	255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255,
	255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255,
	255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 255, 62, 255, 62, 255, 63,
	52, 53, 54, 55, 56, 57, 58, 59, 60, 61, 255, 255, 255, 255, 255, 255,
	255, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14,
	15, 16, 17, 18, 19, 20, 21, 22, 23, 24, 25, 255, 255, 255, 255, 63,
	255, 26, 27, 28, 29, 30, 31, 32, 33, 34, 35, 36, 37, 38, 39, 40,
	41, 42, 43, 44, 45, 46, 47, 48, 49, 50, 51,
}

func sextet(c byte) byte {
	if c > 'z' {
		return invalid
	}
	return fromBase64[c]
}

// DecodeBase64 decodes s leniently: s is padded to a multiple of four with
// '=', and output bytes that depend on a pad or out-of-alphabet character
// are dropped.
func DecodeBase64(s string) []byte {
	for len(s)%4 != 0 {
		s += "="
	}
	out := make([]byte, 0, 3*len(s)/4)
	for i := 0; i < len(s); i += 4 {
		b0, b1, b2, b3 := sextet(s[i]), sextet(s[i+1]), sextet(s[i+2]), sextet(s[i+3])
		if b1 != invalid {
			out = append(out, ((b0&0x3f)<<2)|((b1&0x30)>>4))
		}
		if b2 != invalid {
			out = append(out, ((b1&0x0f)<<4)|((b2&0x3c)>>2))
		}
		if b3 != invalid {
			out = append(out, ((b2&0x03)<<6)|(b3&0x3f))
		}
	}
	return out
}

// CheckPrecision fails with ErrPrecision unless float32 has the IEEE-754
// binary32 layout the encoded blobs assume.
func CheckPrecision() error {
	if math.Float32bits(1.0) != 0x3f800000 || math.Float32bits(-2.5) != 0xc0200000 {
		return errdefs.ErrPrecision
	}
	return nil
}

// Decode converts a parameter blob into float32 values.
func Decode(data gjson.Result) ([]float32, error) {
	if !data.IsArray() && data.Type != gjson.String {
		return nil, errdefs.Formatf("", "invalid float array format: %s", data.Type)
	}

	if data.IsArray() {
		elems := data.Array()
		if len(elems) > 0 && elems[0].Type == gjson.Number {
			out := make([]float32, len(elems))
			for i, e := range elems {
				if e.Type != gjson.Number {
					return nil, errdefs.Formatf("", "element %d of numeric float array is %s", i, e.Type)
				}
				out[i] = float32(e.Float())
			}
			return out, nil
		}
	}

	if err := CheckPrecision(); err != nil {
		return nil, err
	}

	var encoded string
	if data.Type == gjson.String {
		encoded = data.Str
	} else {
		for i, e := range data.Array() {
			if e.Type != gjson.String {
				return nil, errdefs.Formatf("", "element %d of encoded float array is %s", i, e.Type)
			}
			encoded += e.Str
		}
	}
	return bytesToFloats(DecodeBase64(encoded))
}

// bytesToFloats reinterprets raw little-endian bytes as float32 values.
func bytesToFloats(raw []byte) ([]float32, error) {
	if len(raw)%4 != 0 {
		return nil, errdefs.Formatf("", "invalid float vector data: %d bytes is not a multiple of 4", len(raw))
	}
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return out, nil
}
