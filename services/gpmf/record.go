package gpmf

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Record is one typed entry in a payload's metadata stream: a four-character
// key, a value type, the per-sample struct size in bytes and a repeat count.
// The raw buffer holds Repeat consecutive samples. Scale and TypeDef carry the
// most recent SCAL / TYPE records latched by the walker, so a record can be
// decoded without re-scanning the stream.
type Record struct {
	Key        string // four-character code, e.g. "GPS5"
	Type       byte   // value type character; 0 marks a nested container
	StructSize int    // bytes per sample
	Repeat     int    // number of samples

	data    []byte
	scale   []float64
	typeDef string
}

// value type sizes in bytes; absent types are unknown on-disk types.
var typeSizes = map[byte]int{
	'b': 1, 'B': 1, 'c': 1, 'd': 8, 'f': 4, 'F': 4, 'G': 16,
	'j': 8, 'J': 8, 'l': 4, 'L': 4, 'q': 4, 'Q': 8,
	's': 2, 'S': 2, 'U': 16,
}

// Elements returns the number of value elements in one sample: the struct
// size divided by the value type's width, or the length of the latched TYPE
// definition for complex records.
func (r *Record) Elements() int {
	if r.Type == '?' {
		return len(r.typeDef)
	}
	size, ok := typeSizes[r.Type]
	if !ok || size == 0 || r.StructSize < size {
		return 0
	}
	return r.StructSize / size
}

// Uint32s decodes a record of big-endian unsigned 32-bit values, one per
// element per sample.
func (r *Record) Uint32s() ([]uint32, error) {
	if r.Type != 'L' {
		return nil, fmt.Errorf("%w: key %s has type %q, want L", ErrCorrupt, r.Key, r.Type)
	}
	n := len(r.data) / 4
	if n == 0 {
		return nil, fmt.Errorf("%w: key %s holds %d bytes, want at least 4", ErrCorrupt, r.Key, len(r.data))
	}
	out := make([]uint32, n)
	for i := 0; i < n; i++ {
		out[i] = binary.BigEndian.Uint32(r.data[i*4:])
	}
	return out, nil
}

// Uint16s decodes a record of big-endian unsigned 16-bit values.
func (r *Record) Uint16s() ([]uint16, error) {
	if r.Type != 'S' {
		return nil, fmt.Errorf("%w: key %s has type %q, want S", ErrCorrupt, r.Key, r.Type)
	}
	n := len(r.data) / 2
	if n == 0 {
		return nil, fmt.Errorf("%w: key %s holds %d bytes, want at least 2", ErrCorrupt, r.Key, len(r.data))
	}
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = binary.BigEndian.Uint16(r.data[i*2:])
	}
	return out, nil
}

// ASCII returns the record's buffer as a string. Used for the fixed-layout
// date type and for plain character payloads.
func (r *Record) ASCII() (string, error) {
	if r.Type != 'U' && r.Type != 'c' {
		return "", fmt.Errorf("%w: key %s has type %q, want U or c", ErrCorrupt, r.Key, r.Type)
	}
	return string(r.data), nil
}

// ScaledFloat64s decodes every element of every sample as float64 and divides
// by the latched SCAL divisor for its element index. Records with no latched
// SCAL are returned unscaled. The result holds Repeat*Elements values laid
// out sample-major, matching the on-disk order.
func (r *Record) ScaledFloat64s() ([]float64, error) {
	elements := r.Elements()
	if elements == 0 {
		return nil, nil
	}
	out := make([]float64, 0, r.Repeat*elements)

	for s := 0; s < r.Repeat; s++ {
		sample := r.data[s*r.StructSize : (s+1)*r.StructSize]
		vals, err := r.decodeSample(sample, elements)
		if err != nil {
			return nil, err
		}
		for i, v := range vals {
			if len(r.scale) > 0 {
				div := r.scale[i%len(r.scale)]
				if div != 0 {
					v /= div
				}
			}
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *Record) decodeSample(sample []byte, elements int) ([]float64, error) {
	vals := make([]float64, 0, elements)

	if r.Type == '?' {
		off := 0
		for _, tc := range []byte(r.typeDef) {
			size, ok := typeSizes[tc]
			if !ok {
				return nil, fmt.Errorf("%w: complex definition %q", ErrUnknownType, r.typeDef)
			}
			if off+size > len(sample) {
				return nil, fmt.Errorf("%w: key %s sample short for definition %q", ErrCorrupt, r.Key, r.typeDef)
			}
			vals = append(vals, decodeValue(tc, sample[off:off+size]))
			off += size
		}
		return vals, nil
	}

	size := typeSizes[r.Type]
	for i := 0; i < elements; i++ {
		vals = append(vals, decodeValue(r.Type, sample[i*size:(i+1)*size]))
	}
	return vals, nil
}

// decodeValue interprets one big-endian value of a known type as float64.
func decodeValue(tc byte, b []byte) float64 {
	switch tc {
	case 'b':
		return float64(int8(b[0]))
	case 'B':
		return float64(b[0])
	case 's':
		return float64(int16(binary.BigEndian.Uint16(b)))
	case 'S':
		return float64(binary.BigEndian.Uint16(b))
	case 'l':
		return float64(int32(binary.BigEndian.Uint32(b)))
	case 'L':
		return float64(binary.BigEndian.Uint32(b))
	case 'j':
		return float64(int64(binary.BigEndian.Uint64(b)))
	case 'J':
		return float64(binary.BigEndian.Uint64(b))
	case 'f':
		return float64(math.Float32frombits(binary.BigEndian.Uint32(b)))
	case 'd':
		return math.Float64frombits(binary.BigEndian.Uint64(b))
	case 'q':
		// Q15.16 fixed point
		return float64(int32(binary.BigEndian.Uint32(b))) / 65536.0
	default:
		return 0
	}
}
