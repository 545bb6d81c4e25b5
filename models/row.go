package models

// Column names for the output table, in emission order. The "file" column is
// only present when a label mode was requested; this slice is the single
// source of truth for the remaining columns.
var ColumnNames = []string{
	"cts",
	"date",
	"GPS (Lat.) [deg]",
	"GPS (Long.) [deg]",
	"GPS (Alt.) [m]",
	"GPS (2D speed) [m/s]",
	"GPS (3D speed) [m/s]",
	"fix",
	"precision",
}

// LabelColumn is the optional leading column for the file name or path.
const LabelColumn = "file"

// OutputRow is one accepted GPS sample, fully resolved: labelled, timed and
// positioned. Created once per accepted sample and handed straight to the
// emitters; never mutated afterwards.
type OutputRow struct {
	Label      string  // file name or path; empty when no label mode is on
	RelativeMs float64 // milliseconds from the start of the first file
	Timestamp  string  // ISO-8601 UTC with millisecond precision
	Latitude   float64
	Longitude  float64
	Altitude   float64
	Speed2D    float64
	Speed3D    float64
	Fix        float64
	Precision  float64

	// RawQuality marks rows whose fix/precision came from raw integer
	// auxiliary records (legacy schema). They render as plain integers;
	// unified-schema quality fields render like the position fields.
	RawQuality bool
}

// Fields renders the row's value columns (everything after the label) in
// ColumnNames order.
func (r *OutputRow) Fields() []string {
	fields := []string{
		ftoa(r.RelativeMs, 6),
		r.Timestamp,
		ftoa(r.Latitude, 6),
		ftoa(r.Longitude, 6),
		ftoa(r.Altitude, 6),
		ftoa(r.Speed2D, 6),
		ftoa(r.Speed3D, 6),
	}
	if r.RawQuality {
		fields = append(fields, itoa(int(r.Fix)), itoa(int(r.Precision)))
	} else {
		fields = append(fields, ftoa(r.Fix, 6), ftoa(r.Precision, 6))
	}
	return fields
}
