package views

import (
	"fmt"
	"os"
	"time"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/Iv4nS/gpstelemetry/models"
)

// timestampLayout matches the emitter's ISO-8601 millisecond format.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// GPXExporter collects accepted samples into a GPX track, one segment per
// input file, and writes the document when the run finishes.
type GPXExporter struct {
	path   string
	points []gpx.GPXPoint
	track  gpx.GPXTrack
}

// NewGPXExporter buffers a track destined for the given path.
func NewGPXExporter(path string) *GPXExporter {
	return &GPXExporter{path: path}
}

// Begin implements controller.RowSink.
func (g *GPXExporter) Begin() error { return nil }

// EmitRow appends one track point to the current segment.
func (g *GPXExporter) EmitRow(row *models.OutputRow) error {
	ts, err := time.Parse(timestampLayout, row.Timestamp)
	if err != nil {
		return fmt.Errorf("gpx: bad row timestamp %q: %w", row.Timestamp, err)
	}
	p := gpx.GPXPoint{Timestamp: ts}
	p.Latitude = row.Latitude
	p.Longitude = row.Longitude
	p.Elevation = *gpx.NewNullableFloat64(row.Altitude)
	g.points = append(g.points, p)
	return nil
}

// EndFile closes the current segment; the next file starts a new one.
func (g *GPXExporter) EndFile() error {
	if len(g.points) == 0 {
		return nil
	}
	g.track.Segments = append(g.track.Segments, gpx.GPXTrackSegment{Points: g.points})
	g.points = nil
	return nil
}

// WriteFile serialises the collected track. A run with no accepted samples
// still produces a valid, empty document.
func (g *GPXExporter) WriteFile() error {
	doc := &gpx.GPX{
		Creator: "gpstelemetry",
		Tracks:  []gpx.GPXTrack{g.track},
	}
	out, err := doc.ToXml(gpx.ToXmlParams{Indent: true})
	if err != nil {
		return fmt.Errorf("gpx: serialise: %w", err)
	}
	if err := os.WriteFile(g.path, out, 0644); err != nil {
		return fmt.Errorf("gpx: write %s: %w", g.path, err)
	}
	return nil
}
