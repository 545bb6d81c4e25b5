// Package gpmf walks the key/length/value metadata stream embedded in the
// camera's telemetry track and exposes each record with typed accessors.
// Records are 32-bit aligned: four-character key, one type byte, one
// struct-size byte and a big-endian 16-bit repeat count, followed by
// Repeat*StructSize data bytes padded to a four-byte boundary. A zero type
// byte marks a nested container, which the walker descends into so callers
// see records in stream order.
package gpmf

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownType reports a record whose on-disk value type is not part
	// of the format. Distinct from skipping an unrecognized key, which is
	// routine.
	ErrUnknownType = errors.New("gpmf: unknown record type")

	// ErrCorrupt reports structural damage: truncated buffers, impossible
	// sizes or non-ASCII keys.
	ErrCorrupt = errors.New("gpmf: corrupt metadata stream")
)

type frame struct {
	buf []byte
	pos int
}

// Walker iterates the records of one payload buffer in stream order,
// descending into nested containers. It follows the scanner idiom:
//
//	w := gpmf.NewWalker(payload.Data)
//	for w.Next() {
//	    rec := w.Record()
//	    …
//	}
//	if err := w.Err(); err != nil { … }
//
// The walker latches the most recent SCAL and TYPE records so position
// records can be decoded without the caller tracking them. The latched
// values apply to the records that follow, matching how the device lays
// out each sensor stream.
type Walker struct {
	stack   []frame
	rec     *Record
	err     error
	scale   []float64
	typeDef string
}

// NewWalker starts a walk over one payload's decoded byte buffer.
func NewWalker(buf []byte) *Walker {
	return &Walker{stack: []frame{{buf: buf}}}
}

// Next advances to the next record. It returns false when the stream is
// exhausted or an error occurred; Err distinguishes the two.
func (w *Walker) Next() bool {
	if w.err != nil {
		return false
	}
	for len(w.stack) > 0 {
		top := &w.stack[len(w.stack)-1]
		if top.pos >= len(top.buf) {
			w.stack = w.stack[:len(w.stack)-1]
			continue
		}
		rec, consumed, err := w.parseAt(top.buf[top.pos:])
		if err != nil {
			w.err = err
			return false
		}
		top.pos += consumed

		if rec.Type == 0 {
			// nested container: descend, records inside come next
			w.stack = append(w.stack, frame{buf: rec.data})
			continue
		}

		w.latch(rec)
		rec.scale = w.scale
		rec.typeDef = w.typeDef
		w.rec = rec
		return true
	}
	return false
}

// Record returns the record found by the last successful Next.
func (w *Walker) Record() *Record { return w.rec }

// Err returns the first error encountered during the walk, if any.
func (w *Walker) Err() error { return w.err }

// parseAt reads one record header plus data from the start of b and returns
// the record together with the number of bytes consumed (data padded to a
// four-byte boundary).
func (w *Walker) parseAt(b []byte) (*Record, int, error) {
	if len(b) < 8 {
		return nil, 0, fmt.Errorf("%w: truncated record header", ErrCorrupt)
	}
	for _, c := range b[:4] {
		if c < ' ' || c > 'z' {
			return nil, 0, fmt.Errorf("%w: invalid key bytes % x", ErrCorrupt, b[:4])
		}
	}
	key := string(b[:4])
	typ := b[4]
	structSize := int(b[5])
	repeat := int(b[6])<<8 | int(b[7])

	if typ != 0 && typ != '?' {
		if _, ok := typeSizes[typ]; !ok {
			return nil, 0, fmt.Errorf("%w: key %s type %q", ErrUnknownType, key, typ)
		}
	}

	dataLen := structSize * repeat
	padded := (dataLen + 3) &^ 3
	if 8+padded > len(b) {
		return nil, 0, fmt.Errorf("%w: key %s data overruns payload (%d bytes, %d available)",
			ErrCorrupt, key, dataLen, len(b)-8)
	}

	rec := &Record{
		Key:        key,
		Type:       typ,
		StructSize: structSize,
		Repeat:     repeat,
		data:       b[8 : 8+dataLen],
	}
	return rec, 8 + padded, nil
}

// latch captures SCAL divisors and complex TYPE definitions for the records
// that follow them in the stream.
func (w *Walker) latch(rec *Record) {
	switch rec.Key {
	case "SCAL":
		if vals, err := rec.plainFloat64s(); err == nil && len(vals) > 0 {
			w.scale = vals
		}
	case "TYPE":
		if rec.Type == 'c' {
			w.typeDef = trimNul(string(rec.data))
		}
	}
}

// plainFloat64s decodes a base-typed record without applying any scale.
// Used for SCAL itself.
func (r *Record) plainFloat64s() ([]float64, error) {
	size, ok := typeSizes[r.Type]
	if !ok || size == 0 {
		return nil, fmt.Errorf("%w: key %s type %q", ErrUnknownType, r.Key, r.Type)
	}
	n := len(r.data) / size
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = decodeValue(r.Type, r.data[i*size:(i+1)*size])
	}
	return out, nil
}

func trimNul(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			return s[:i]
		}
	}
	return s
}
