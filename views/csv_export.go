package views

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/Iv4nS/gpstelemetry/models"
)

// CSVEmitter renders output rows as the tool's table format: one quoted-name
// header line, then comma-and-space separated data rows where only the file
// label is quoted. This is deliberately not RFC-4180 — the format predates
// the tool and downstream consumers depend on it — so the rows are built
// with fmt rather than encoding/csv.
type CSVEmitter struct {
	buf       *bufio.Writer
	withLabel bool
	began     bool
	rows      uint64
}

// NewCSVEmitter writes the table to w. withLabel adds the leading "file"
// column to the header and a quoted label to every row.
func NewCSVEmitter(w io.Writer, withLabel bool) *CSVEmitter {
	return &CSVEmitter{
		buf:       bufio.NewWriter(w),
		withLabel: withLabel,
	}
}

// Begin writes the header row. It is safe to call more than once; the
// header appears exactly once per run, before the first data row.
func (e *CSVEmitter) Begin() error {
	if e.began {
		return nil
	}
	e.began = true

	names := make([]string, 0, len(models.ColumnNames)+1)
	if e.withLabel {
		names = append(names, fmt.Sprintf("%q", models.LabelColumn))
	}
	for _, n := range models.ColumnNames {
		names = append(names, fmt.Sprintf("%q", n))
	}
	_, err := e.buf.WriteString(strings.Join(names, ",") + "\n")
	return err
}

// EmitRow writes one data row.
func (e *CSVEmitter) EmitRow(row *models.OutputRow) error {
	fields := row.Fields()
	if e.withLabel {
		fields = append([]string{fmt.Sprintf("%q", row.Label)}, fields...)
	}
	if _, err := e.buf.WriteString(strings.Join(fields, ", ") + "\n"); err != nil {
		return err
	}
	e.rows++
	return nil
}

// EndFile flushes buffered rows so completed files survive a later abort.
func (e *CSVEmitter) EndFile() error {
	return e.buf.Flush()
}

// Flush pushes any remaining buffered output.
func (e *CSVEmitter) Flush() error {
	return e.buf.Flush()
}

// Rows returns the number of data rows written (excludes header).
func (e *CSVEmitter) Rows() uint64 {
	return e.rows
}
