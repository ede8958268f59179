package weights

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/born-ml/infer/internal/errdefs"
	"github.com/x448/float16"
)

// SafeTensors format:
// [8 bytes: header_size (uint64 LE)]
// [header_size bytes: JSON header]
// [tensor data: raw bytes]

// SafeTensorsDType represents supported SafeTensors data types.
type SafeTensorsDType string

// Supported SafeTensors dtypes.
const (
	SafeTensorsF16  SafeTensorsDType = "F16"
	SafeTensorsBF16 SafeTensorsDType = "BF16"
	SafeTensorsF32  SafeTensorsDType = "F32"
	SafeTensorsF64  SafeTensorsDType = "F64"
)

// maxHeaderSize bounds the JSON header (100MB).
const maxHeaderSize = 100 * 1024 * 1024

// SafeTensorInfo describes a tensor in SafeTensors format.
type SafeTensorInfo struct {
	DType       SafeTensorsDType `json:"dtype"`
	Shape       []int            `json:"shape"`
	DataOffsets [2]int64         `json:"data_offsets"` // [start, end]
}

// SafeTensorsSource serves layer parameters from a SafeTensors file.
// Tensors are named "<layer>/<param>", e.g. "conv2d_1/weights".
type SafeTensorsSource struct {
	file       *os.File
	tensors    map[string]SafeTensorInfo
	metadata   map[string]string
	dataOffset int64
}

// OpenSafeTensors opens path and parses its header.
func OpenSafeTensors(path string) (*SafeTensorsSource, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for weight loading
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	var headerSize uint64
	if err := binary.Read(file, binary.LittleEndian, &headerSize); err != nil {
		_ = file.Close() // Best effort close on error
		return nil, fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > maxHeaderSize {
		_ = file.Close()
		return nil, errdefs.Formatf("safetensors header", "invalid header size: %d (too large)", headerSize)
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(file, headerBytes); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var rawMap map[string]json.RawMessage
	if err := json.Unmarshal(headerBytes, &rawMap); err != nil {
		_ = file.Close()
		return nil, errdefs.Formatf("safetensors header", "failed to parse header JSON: %v", err)
	}

	s := &SafeTensorsSource{
		file:       file,
		tensors:    make(map[string]SafeTensorInfo, len(rawMap)),
		dataOffset: int64(8 + headerSize), //nolint:gosec // G115: bounded by maxHeaderSize.
	}
	for key, value := range rawMap {
		if key == "__metadata__" {
			if err := json.Unmarshal(value, &s.metadata); err != nil {
				_ = file.Close()
				return nil, errdefs.Formatf("__metadata__", "failed to unmarshal metadata: %v", err)
			}
			continue
		}
		var info SafeTensorInfo
		if err := json.Unmarshal(value, &info); err != nil {
			_ = file.Close()
			return nil, errdefs.Formatf(key, "failed to unmarshal tensor info: %v", err)
		}
		s.tensors[key] = info
	}
	return s, nil
}

// Close closes the underlying file.
func (s *SafeTensorsSource) Close() error {
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

// Metadata returns the metadata map from the header.
func (s *SafeTensorsSource) Metadata() map[string]string {
	return s.metadata
}

// Floats reads tensor "<layer>/<param>" and widens or narrows it to float32.
// Reads go through ReadAt, so concurrent calls are safe.
func (s *SafeTensorsSource) Floats(layer, param string) ([]float32, error) {
	info, ok := s.tensors[layer+"/"+param]
	if !ok {
		return nil, missing(layer, param)
	}

	size := info.DataOffsets[1] - info.DataOffsets[0]
	if size < 0 || info.DataOffsets[0] < 0 {
		return nil, &errdefs.FormatError{Layer: layer, Field: param,
			Details: fmt.Sprintf("invalid data offsets [%d, %d]", info.DataOffsets[0], info.DataOffsets[1])}
	}
	raw := make([]byte, size)
	if _, err := s.file.ReadAt(raw, s.dataOffset+info.DataOffsets[0]); err != nil {
		return nil, fmt.Errorf("failed to read tensor %s/%s: %w", layer, param, err)
	}

	values, err := convertRaw(info.DType, raw)
	if err != nil {
		return nil, errdefs.InLayer(layer, err)
	}
	return values, nil
}

// convertRaw decodes little-endian raw bytes of dtype into float32 values.
func convertRaw(dtype SafeTensorsDType, raw []byte) ([]float32, error) {
	switch dtype {
	case SafeTensorsF32:
		return bytesToFloats(raw)
	case SafeTensorsF64:
		if len(raw)%8 != 0 {
			return nil, errdefs.Formatf("", "F64 data of %d bytes", len(raw))
		}
		out := make([]float32, len(raw)/8)
		for i := range out {
			out[i] = float32(math.Float64frombits(binary.LittleEndian.Uint64(raw[8*i:])))
		}
		return out, nil
	case SafeTensorsF16, SafeTensorsBF16:
		if len(raw)%2 != 0 {
			return nil, errdefs.Formatf("", "%s data of %d bytes", dtype, len(raw))
		}
		out := make([]float32, len(raw)/2)
		for i := range out {
			bits := binary.LittleEndian.Uint16(raw[2*i:])
			if dtype == SafeTensorsF16 {
				out[i] = float16.Frombits(bits).Float32()
			} else {
				out[i] = math.Float32frombits(uint32(bits) << 16)
			}
		}
		return out, nil
	default:
		return nil, errdefs.Unsupported("safetensors dtype", string(dtype))
	}
}
