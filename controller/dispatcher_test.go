package controller

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Iv4nS/gpstelemetry/models"
	"github.com/Iv4nS/gpstelemetry/services/gpmf"
)

// ─── synthetic metadata stream builders ─────────────────────────────────

func record(key string, typ byte, structSize, repeat int, data []byte) []byte {
	b := []byte(key)
	b = append(b, typ, byte(structSize), byte(repeat>>8), byte(repeat))
	b = append(b, data...)
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	return b
}

func be32(vals ...int32) []byte {
	b := make([]byte, 0, 4*len(vals))
	for _, v := range vals {
		b = binary.BigEndian.AppendUint32(b, uint32(v))
	}
	return b
}

func be16(vals ...uint16) []byte {
	b := make([]byte, 0, 2*len(vals))
	for _, v := range vals {
		b = binary.BigEndian.AppendUint16(b, v)
	}
	return b
}

// legacyStream builds GPSU + GPSF + GPSP + SCAL + a two-sample GPS5 record.
func legacyStream() []byte {
	var buf []byte
	buf = append(buf, record("GPSU", 'U', 16, 1, []byte("230615120000.000"))...)
	buf = append(buf, record("GPSF", 'L', 4, 1, be32(3))...)
	buf = append(buf, record("GPSP", 'S', 2, 1, be16(142))...)
	buf = append(buf, record("SCAL", 'l', 4, 5, be32(10000000, 10000000, 1000, 1000, 100))...)
	buf = append(buf, record("GPS5", 'l', 20, 2, be32(
		125000000, -452500000, 123456, 5500, 560,
		125000100, -452500100, 123500, 5600, 570,
	))...)
	return buf
}

// unifiedStream builds TYPE + SCAL + a two-sample GPS9 record. fix2 controls
// the second sample's fix value.
func unifiedStream(fix2 uint16) []byte {
	var buf []byte
	buf = append(buf, record("TYPE", 'c', 1, 9, []byte("lllllllSS"))...)
	buf = append(buf, record("SCAL", 'l', 4, 9, be32(
		10000000, 10000000, 1000, 1000, 100, 1, 1000, 100, 1,
	))...)
	sample1 := append(be32(10000000, 20000000, 3000, 4000, 500, 0, 43200500), be16(150, 3)...)
	sample2 := append(be32(10000100, 20000100, 3100, 4100, 510, 0, 43201000), be16(160, fix2)...)
	buf = append(buf, record("GPS9", '?', 32, 2, append(sample1, sample2...))...)
	return buf
}

type captured struct {
	rows []*models.OutputRow
}

func (c *captured) emit(r *models.OutputRow) error {
	c.rows = append(c.rows, r)
	return nil
}

func run(t *testing.T, d *Dispatcher, tl *Timeline, data []byte, start, finish float64) bool {
	t.Helper()
	p := &models.Payload{Start: start, Finish: finish, Data: data}
	handled, err := d.ProcessPayload(p, tl, "")
	require.NoError(t, err)
	return handled
}

// ─── legacy schema ──────────────────────────────────────────────────────

func TestDispatcherLegacySamples(t *testing.T) {
	var tl Timeline
	out := &captured{}
	d := NewDispatcher(RowFilter{}, out.emit)

	handled := run(t, d, &tl, legacyStream(), 0.0, 1.0)
	require.True(t, handled)
	require.Equal(t, SchemaLegacy, d.Schema())
	require.Len(t, out.rows, 2)

	first := out.rows[0]
	require.InDelta(t, 12.5, first.Latitude, 1e-9)
	require.InDelta(t, -45.25, first.Longitude, 1e-9)
	require.InDelta(t, 123.456, first.Altitude, 1e-9)
	require.InDelta(t, 5.5, first.Speed2D, 1e-9)
	require.InDelta(t, 5.6, first.Speed3D, 1e-9)
	require.Equal(t, 3.0, first.Fix)
	require.Equal(t, 142.0, first.Precision)
	require.True(t, first.RawQuality)
	require.Equal(t, "2023-06-15T12:00:00.000Z", first.Timestamp)
	require.Equal(t, 0.0, first.RelativeMs)

	second := out.rows[1]
	require.Equal(t, "2023-06-15T12:00:00.500Z", second.Timestamp)
	require.Equal(t, 500.0, second.RelativeMs)
}

func TestDispatcherLegacyWithoutTimeBasisDropsSamples(t *testing.T) {
	var tl Timeline
	out := &captured{}
	d := NewDispatcher(RowFilter{}, out.emit)

	// position record with no preceding GPSU: no timestamp basis
	var buf []byte
	buf = append(buf, record("SCAL", 'l', 4, 5, be32(1, 1, 1, 1, 1))...)
	buf = append(buf, record("GPS5", 'l', 20, 1, be32(1, 2, 3, 4, 5))...)

	handled := run(t, d, &tl, buf, 0.0, 1.0)
	require.True(t, handled)
	require.Empty(t, out.rows)
}

func TestDispatcherLegacyFilterUsesLatchedAux(t *testing.T) {
	var tl Timeline
	out := &captured{}
	d := NewDispatcher(RowFilter{MinFix: intp(4)}, out.emit)

	// latched fix is 3, below the threshold: everything rejected
	run(t, d, &tl, legacyStream(), 0.0, 1.0)
	require.Empty(t, out.rows)
}

// ─── unified schema ─────────────────────────────────────────────────────

func TestDispatcherUnifiedSamples(t *testing.T) {
	var tl Timeline
	out := &captured{}
	d := NewDispatcher(RowFilter{}, out.emit)

	handled := run(t, d, &tl, unifiedStream(3), 0.0, 1.0)
	require.True(t, handled)
	require.Equal(t, SchemaUnified, d.Schema())
	require.Len(t, out.rows, 2)

	first := out.rows[0]
	require.InDelta(t, 1.0, first.Latitude, 1e-9)
	require.InDelta(t, 2.0, first.Longitude, 1e-9)
	require.InDelta(t, 3.0, first.Altitude, 1e-9)
	require.Equal(t, 3.0, first.Fix)
	require.InDelta(t, 1.5, first.Precision, 1e-9)
	require.False(t, first.RawQuality)
	// day 0 + 1, 43200.5 s of day
	require.Equal(t, "2000-01-02T12:00:00.500Z", first.Timestamp)

	// later samples advance by step only; inline time fields not reconsulted
	second := out.rows[1]
	require.Equal(t, "2000-01-02T12:00:01.000Z", second.Timestamp)
	require.Equal(t, 500.0, second.RelativeMs)
}

func TestDispatcherUnifiedClockAdvancesPastRejectedSamples(t *testing.T) {
	var tl Timeline
	out := &captured{}
	d := NewDispatcher(RowFilter{MinFix: intp(4)}, out.emit)

	// first sample fix=3 rejected, second fix=4 accepted; its timestamp
	// must include the rejected sample's advance
	run(t, d, &tl, unifiedStream(4), 0.0, 1.0)
	require.Len(t, out.rows, 1)
	require.Equal(t, "2000-01-02T12:00:01.000Z", out.rows[0].Timestamp)
	require.Equal(t, 500.0, out.rows[0].RelativeMs)
}

func TestDispatcherUnifiedBasisPerPayload(t *testing.T) {
	var tl Timeline
	out := &captured{}
	d := NewDispatcher(RowFilter{}, out.emit)

	run(t, d, &tl, unifiedStream(3), 0.0, 1.0)
	// second payload re-derives its basis from its own inline fields,
	// independent of the first payload's clock
	run(t, d, &tl, unifiedStream(3), 1.0, 2.0)

	require.Len(t, out.rows, 4)
	require.Equal(t, "2000-01-02T12:00:00.500Z", out.rows[2].Timestamp)
}

// ─── schema stickiness ──────────────────────────────────────────────────

func TestDispatcherSchemaStickyAcrossFiles(t *testing.T) {
	var tl Timeline
	out := &captured{}
	d := NewDispatcher(RowFilter{}, out.emit)

	run(t, d, &tl, unifiedStream(3), 0.0, 1.0)
	require.Equal(t, SchemaUnified, d.Schema())
	unified := len(out.rows)

	// a later file in the same run still ignores legacy position records
	d.BeginFile()
	run(t, d, &tl, legacyStream(), 0.0, 1.0)
	require.Equal(t, SchemaUnified, d.Schema())
	require.Len(t, out.rows, unified)
}

// ─── malformed and unrecognised records ─────────────────────────────────

func TestDispatcherSkipsUnrecognisedAndEmptyRecords(t *testing.T) {
	var tl Timeline
	out := &captured{}
	d := NewDispatcher(RowFilter{}, out.emit)

	var buf []byte
	buf = append(buf, record("ACCL", 's', 6, 2, be16(1, 2, 3, 4, 5, 6))...)
	buf = append(buf, record("GPSF", 'L', 4, 0, nil)...) // placeholder, zero repeat
	buf = append(buf, record("EMPT", 'B', 0, 4, nil)...) // zero struct size
	buf = append(buf, legacyStream()...)

	handled := run(t, d, &tl, buf, 0.0, 1.0)
	require.True(t, handled)
	require.Len(t, out.rows, 2)
}

func TestDispatcherSurfacesStreamErrors(t *testing.T) {
	var tl Timeline
	out := &captured{}
	d := NewDispatcher(RowFilter{}, out.emit)

	// repeat count promises more data than the payload holds
	bad := record("GPS5", 'l', 20, 200, be32(1, 2, 3, 4, 5))
	p := &models.Payload{Start: 0, Finish: 1, Data: bad}
	_, err := d.ProcessPayload(p, &tl, "")
	require.ErrorIs(t, err, gpmf.ErrCorrupt)
}

func TestDispatcherRejectsUndersizedAuxRecords(t *testing.T) {
	var tl Timeline
	out := &captured{}

	// a fix record too short to hold one value is corruption, not a crash
	for _, bad := range [][]byte{
		record("GPSF", 'L', 1, 1, []byte{0x03}),
		record("GPSP", 'S', 1, 1, []byte{0x03}),
	} {
		d := NewDispatcher(RowFilter{}, out.emit)
		p := &models.Payload{Start: 0, Finish: 1, Data: bad}
		_, err := d.ProcessPayload(p, &tl, "")
		require.ErrorIs(t, err, gpmf.ErrCorrupt)
	}
	require.Empty(t, out.rows)
}
