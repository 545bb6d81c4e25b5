package controller

import (
	"fmt"
	"path/filepath"

	"github.com/Iv4nS/gpstelemetry/models"
	"github.com/Iv4nS/gpstelemetry/services/mp4demux"
	"github.com/Iv4nS/gpstelemetry/utils"
)

// RowSink receives the extraction output. Begin is called once per run
// before any row, EmitRow once per accepted sample, EndFile after each
// input file (flush point, and segment boundary for track formats).
type RowSink interface {
	Begin() error
	EmitRow(row *models.OutputRow) error
	EndFile() error
}

// Options is the configuration surface handed to the core by the CLI.
type Options struct {
	PrintFilename bool
	PrintFilepath bool // takes precedence over PrintFilename
	MinFix        *int
	MaxPrecision  *int
}

// Extractor drives the whole run: files in argument order, payloads in
// track order, records in stream order. Strictly sequential.
type Extractor struct {
	opts     Options
	sinks    []RowSink
	disp     *Dispatcher
	timeline Timeline
	began    bool
}

// NewExtractor wires the dispatcher to the given sinks.
func NewExtractor(opts Options, sinks ...RowSink) *Extractor {
	e := &Extractor{opts: opts, sinks: sinks}
	filter := RowFilter{MinFix: opts.MinFix, MaxPrecision: opts.MaxPrecision}
	e.disp = NewDispatcher(filter, e.emitRow)
	return e
}

// Run processes every file in order. The first failure aborts the run;
// output already flushed for prior files is preserved.
func (e *Extractor) Run(paths []string) error {
	for _, path := range paths {
		if err := e.extractFile(path); err != nil {
			return err
		}
	}
	return nil
}

func (e *Extractor) extractFile(path string) error {
	src, err := mp4demux.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	if src.Duration() <= 0 {
		return fmt.Errorf("%s: %w", path, mp4demux.ErrInvalidDuration)
	}

	if !e.began {
		for _, s := range e.sinks {
			if err := s.Begin(); err != nil {
				return err
			}
		}
		e.began = true
	}

	label := ""
	if e.opts.PrintFilepath {
		label = path
	} else if e.opts.PrintFilename {
		label = filepath.Base(path)
	}

	e.disp.BeginFile()
	for i := 0; i < src.NumPayloads(); i++ {
		payload, err := src.Payload(i)
		if err != nil {
			return err
		}
		handled, err := e.disp.ProcessPayload(payload, &e.timeline, label)
		if handled {
			e.timeline.ObservePayload(payload.Finish)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	e.timeline.EndFile()

	for _, s := range e.sinks {
		if err := s.EndFile(); err != nil {
			return err
		}
	}

	utils.L().Info("extracted %s  (payloads=%d, duration=%.3fs)",
		path, src.NumPayloads(), src.Duration())
	return nil
}

func (e *Extractor) emitRow(row *models.OutputRow) error {
	for _, s := range e.sinks {
		if err := s.EmitRow(row); err != nil {
			return err
		}
	}
	return nil
}
