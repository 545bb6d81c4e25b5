package controller

import (
	"github.com/Iv4nS/gpstelemetry/models"
	"github.com/Iv4nS/gpstelemetry/services/gpmf"
	"github.com/Iv4nS/gpstelemetry/utils"
)

// SchemaState tracks which position-record schema the run has committed to.
// Real devices emit exactly one schema for a whole recording, so the
// transition to Unified is one-way and spans all files of the invocation.
type SchemaState int

const (
	SchemaUndetermined SchemaState = iota
	SchemaLegacy
	SchemaUnified
)

// Record keys the dispatcher recognises.
const (
	keyTimeOfDay = "GPSU" // fixed-layout ASCII timestamp (legacy)
	keyFix       = "GPSF" // satellite-lock quality (legacy)
	keyPrecision = "GPSP" // position error estimate (legacy)
	keyLegacyPos = "GPS5" // 5-field position samples
	keyUnified   = "GPS9" // 9-field position samples, attributes inline
)

// Unified-schema element indices within one sample.
const (
	uLat = iota
	uLon
	uAlt
	uSpeed2D
	uSpeed3D
	uDays      // whole days since the device epoch
	uSeconds   // seconds-of-day with sub-second fraction
	uPrecision
	uFix
)

// auxState holds the attributes the legacy schema delivers in separate
// records: each field is latched when its marker record arrives and read by
// every following position sample of the same payload. All fields start
// unset; a payload whose position samples precede their time marker has no
// timestamp basis and those samples are dropped.
type auxState struct {
	fix       uint32
	precision uint16
	clock     Clock
}

// Dispatcher classifies each metadata record and turns position samples into
// output rows. It owns the run-wide schema state; the latched auxiliary
// state is scoped to one payload.
type Dispatcher struct {
	schema       SchemaState
	filter       RowFilter
	emit         func(*models.OutputRow) error
	warnedNoTime bool
}

// NewDispatcher creates a dispatcher that hands accepted rows to emit.
func NewDispatcher(filter RowFilter, emit func(*models.OutputRow) error) *Dispatcher {
	return &Dispatcher{filter: filter, emit: emit}
}

// Schema returns the current schema determination.
func (d *Dispatcher) Schema() SchemaState { return d.schema }

// BeginFile resets per-file bookkeeping. The schema state deliberately
// survives file boundaries.
func (d *Dispatcher) BeginFile() {
	d.warnedNoTime = false
}

// ProcessPayload walks one payload's records in stream order. It returns
// whether any recognised record carried usable data, so the caller can
// decide if the payload extends the file's timeline.
func (d *Dispatcher) ProcessPayload(p *models.Payload, tl *Timeline, label string) (bool, error) {
	aux := auxState{}
	handled := false

	w := gpmf.NewWalker(p.Data)
	for w.Next() {
		rec := w.Record()

		// The sensor stream legitimately emits placeholder records
		// with no samples; they carry nothing and are not errors.
		if rec.Repeat == 0 || rec.StructSize == 0 {
			continue
		}

		switch rec.Key {
		case keyTimeOfDay:
			stamp, err := rec.ASCII()
			if err != nil {
				return handled, err
			}
			t, millis, perr := utils.ParseDeviceStamp(stamp)
			if perr != nil {
				utils.L().Warn("ignoring malformed time-of-day record: %v", perr)
				continue
			}
			aux.clock.SetStamp(t, millis)
			handled = true

		case keyFix:
			vals, err := rec.Uint32s()
			if err != nil {
				return handled, err
			}
			aux.fix = vals[0]
			handled = true

		case keyPrecision:
			vals, err := rec.Uint16s()
			if err != nil {
				return handled, err
			}
			aux.precision = vals[0]
			handled = true

		case keyLegacyPos:
			if d.schema == SchemaUnified {
				continue
			}
			d.schema = SchemaLegacy
			if err := d.legacySamples(rec, p, tl, &aux, label); err != nil {
				return handled, err
			}
			handled = true

		case keyUnified:
			d.schema = SchemaUnified
			if err := d.unifiedSamples(rec, p, tl, &aux, label); err != nil {
				return handled, err
			}
			handled = true
		}
	}
	if err := w.Err(); err != nil {
		return handled, err
	}
	return handled, nil
}

// legacySamples emits one row per sample of a 5-field position record,
// using the payload's latched auxiliary state for time, fix and precision.
func (d *Dispatcher) legacySamples(rec *gpmf.Record, p *models.Payload, tl *Timeline, aux *auxState, label string) error {
	elements := rec.Elements()
	if elements < 5 {
		return nil
	}
	vals, err := rec.ScaledFloat64s()
	if err != nil {
		return err
	}

	ip := NewInterpolator(p.Start, p.Finish, rec.Repeat)
	for i := 0; i < rec.Repeat; i++ {
		sample := vals[i*elements : (i+1)*elements]

		switch {
		case !aux.clock.Valid():
			// No time-of-day marker seen yet in this payload:
			// there is no timestamp basis, so the sample is
			// consumed without emission.
			if !d.warnedNoTime {
				utils.L().Warn("%s: position samples before time-of-day marker, dropping", label)
				d.warnedNoTime = true
			}
		case d.filter.Accept(int(aux.fix), int(aux.precision)):
			row := &models.OutputRow{
				Label:      label,
				RelativeMs: tl.Absolute(ip.Rel()) * 1000.0,
				Timestamp:  aux.clock.Stamp(),
				Latitude:   sample[0],
				Longitude:  sample[1],
				Altitude:   sample[2],
				Speed2D:    sample[3],
				Speed3D:    sample[4],
				Fix:        float64(aux.fix),
				Precision:  float64(aux.precision),
				RawQuality: true,
			}
			if err := d.emit(row); err != nil {
				return err
			}
		}

		ip.Advance(&aux.clock)
	}
	return nil
}

// unifiedSamples emits one row per sample of a 9-field position record. The
// wall clock is derived from the day-count and seconds-of-day fields of the
// payload's first sample only; every later sample advances by the
// interpolation step and never reconsults those fields.
func (d *Dispatcher) unifiedSamples(rec *gpmf.Record, p *models.Payload, tl *Timeline, aux *auxState, label string) error {
	elements := rec.Elements()
	if elements < 9 {
		return nil
	}
	vals, err := rec.ScaledFloat64s()
	if err != nil {
		return err
	}

	ip := NewInterpolator(p.Start, p.Finish, rec.Repeat)
	for i := 0; i < rec.Repeat; i++ {
		sample := vals[i*elements : (i+1)*elements]

		if ip.Rel() == p.Start {
			aux.clock.SetDayCount(sample[uDays], sample[uSeconds])
		}

		if d.filter.Accept(int(sample[uFix]), int(sample[uPrecision])) {
			row := &models.OutputRow{
				Label:      label,
				RelativeMs: tl.Absolute(ip.Rel()) * 1000.0,
				Timestamp:  aux.clock.Stamp(),
				Latitude:   sample[uLat],
				Longitude:  sample[uLon],
				Altitude:   sample[uAlt],
				Speed2D:    sample[uSpeed2D],
				Speed3D:    sample[uSpeed3D],
				Fix:        sample[uFix],
				Precision:  sample[uPrecision],
			}
			if err := d.emit(row); err != nil {
				return err
			}
		}

		ip.Advance(&aux.clock)
	}
	return nil
}
