package weights

import (
	"encoding/base64"
	"encoding/binary"
	"math"
)

// Encode is the inverse of Decode for base64 blobs: values are written as
// little-endian float32 and base64 encoded with the standard alphabet.
func Encode(values []float32) string {
	raw := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(v))
	}
	return base64.StdEncoding.EncodeToString(raw)
}
