// Package export writes project listings as CSV.
//
// Cells come from a CellFormatter, normally a *format.Formatter, so the
// exported values match the export semantics of each column. Output is
// transcoded to the configured charset and written to disk atomically.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/natefinch/atomic"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/arthur-debert/projectquery/types"
)

// DefaultFilename is the name of exported files when none is given
const DefaultFilename = "projects.csv"

// ErrInvalidSeparator is returned for separators csv cannot write
var ErrInvalidSeparator = errors.New("invalid CSV separator")

// CellFormatter returns the flattened export value of a column
type CellFormatter interface {
	ExportCell(ctx context.Context, column types.ColumnSpec, p types.Project) (string, error)
}

// Options configures the CSV output
type Options struct {
	// Encoding is a WHATWG encoding label such as "UTF-8" or "ISO-8859-1".
	// Empty means UTF-8.
	Encoding string
	// Separator defaults to ','
	Separator rune
}

func (o Options) separator() rune {
	if o.Separator == 0 {
		return ','
	}
	return o.Separator
}

// Encoder returns the encoder for a charset label. Characters the charset
// cannot represent are replaced rather than failing the export.
func Encoder(label string) (*encoding.Encoder, error) {
	if strings.TrimSpace(label) == "" {
		label = "utf-8"
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", label, err)
	}
	return encoding.ReplaceUnsupported(enc.NewEncoder()), nil
}

// WriteCSV writes a header of column captions followed by one row per project
func WriteCSV(ctx context.Context, w io.Writer, cells CellFormatter, columns []types.ColumnSpec, projects []types.Project, opts Options) error {
	if opts.Separator == '"' || opts.Separator == '\r' || opts.Separator == '\n' {
		return fmt.Errorf("%w: %q", ErrInvalidSeparator, opts.Separator)
	}
	enc, err := Encoder(opts.Encoding)
	if err != nil {
		return err
	}

	encoded := enc.Writer(w)
	out := csv.NewWriter(encoded)
	out.Comma = opts.separator()

	header := make([]string, len(columns))
	for i, column := range columns {
		header[i] = column.Title()
	}
	if err := out.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := make([]string, len(columns))
	for _, p := range projects {
		for i, column := range columns {
			cell, err := cells.ExportCell(ctx, column, p)
			if err != nil {
				return fmt.Errorf("failed to export project %d: %w", p.ID, err)
			}
			row[i] = cell
		}
		if err := out.Write(row); err != nil {
			return fmt.Errorf("failed to write project %d: %w", p.ID, err)
		}
	}

	out.Flush()
	if err := out.Error(); err != nil {
		return err
	}
	// flushes any partially transcoded input
	if closer, ok := encoded.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// ToPath writes the CSV export to path, replacing any existing file only
// once the whole export succeeded
func ToPath(ctx context.Context, path string, cells CellFormatter, columns []types.ColumnSpec, projects []types.Project, opts Options) error {
	var buf bytes.Buffer
	if err := WriteCSV(ctx, &buf, cells, columns, projects, opts); err != nil {
		return err
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
