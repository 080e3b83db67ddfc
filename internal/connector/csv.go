package connector

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/sqlflow/sqlflow/pkg/errors"
)

const defaultChunkSize = 500

// CSVSource reads a local CSV file, per SOURCE ... TYPE CSV PARAMS
// {"path":..., "has_header":...}.
type CSVSource struct {
	path      string
	hasHeader bool
	delimiter rune
}

// NewCSVSource returns an unopened CSV source.
func NewCSVSource() *CSVSource {
	return &CSVSource{hasHeader: true, delimiter: ','}
}

func (s *CSVSource) Type() string { return "CSV" }

func (s *CSVSource) Open(_ context.Context, params map[string]any) error {
	path, ok := params["path"].(string)
	if !ok || path == "" {
		return fmt.Errorf("connector csv: params.path is required")
	}
	s.path = path
	if hh, ok := params["has_header"].(bool); ok {
		s.hasHeader = hh
	}
	if d, ok := params["delimiter"].(string); ok && len(d) == 1 {
		s.delimiter = rune(d[0])
	}
	if _, err := os.Stat(s.path); err != nil {
		return errors.NewConnectorError("", "CSV", false, fmt.Errorf("open %s: %w", s.path, err))
	}
	return nil
}

func (s *CSVSource) Rows(ctx context.Context, fn func(chunk []Row) error) error {
	f, err := os.Open(s.path)
	if err != nil {
		return errors.NewConnectorError("", "CSV", false, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = s.delimiter

	var header []string
	if s.hasHeader {
		header, err = r.Read()
		if err != nil {
			return errors.NewConnectorError("", "CSV", false, fmt.Errorf("read header: %w", err))
		}
	}

	chunk := make([]Row, 0, defaultChunkSize)
	idx := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		record, err := r.Read()
		if err != nil {
			if err.Error() == "EOF" {
				break
			}
			return errors.NewConnectorError("", "CSV", false, err)
		}

		row := make(Row, len(record))
		for i, v := range record {
			key := fmt.Sprintf("col%d", i)
			if header != nil && i < len(header) {
				key = header[i]
			}
			row[key] = v
		}
		chunk = append(chunk, row)
		idx++

		if len(chunk) >= defaultChunkSize {
			if err := fn(chunk); err != nil {
				return err
			}
			chunk = make([]Row, 0, defaultChunkSize)
		}
	}

	if len(chunk) > 0 {
		if err := fn(chunk); err != nil {
			return err
		}
	}
	return nil
}

func (s *CSVSource) Close() error { return nil }

// CSVDestination writes pipeline output to a local CSV file, per
// EXPORT ... TO "path" TYPE CSV OPTIONS {"header":...}.
type CSVDestination struct{}

// NewCSVDestination returns a CSV destination connector.
func NewCSVDestination() *CSVDestination { return &CSVDestination{} }

func (d *CSVDestination) Type() string { return "CSV" }

func (d *CSVDestination) Write(ctx context.Context, uri string, options map[string]any, rows func(yield func(Row) bool)) error {
	f, err := os.Create(uri)
	if err != nil {
		return errors.NewConnectorError("", "CSV", false, fmt.Errorf("create %s: %w", uri, err))
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header, _ := options["header"].(bool)

	var columns []string
	wroteHeader := !header
	var writeErr error

	rows(func(row Row) bool {
		select {
		case <-ctx.Done():
			writeErr = ctx.Err()
			return false
		default:
		}

		if columns == nil {
			for k := range row {
				columns = append(columns, k)
			}
		}
		if !wroteHeader {
			if err := w.Write(columns); err != nil {
				writeErr = err
				return false
			}
			wroteHeader = true
		}

		record := make([]string, len(columns))
		for i, c := range columns {
			record[i] = fmt.Sprintf("%v", row[c])
		}
		if err := w.Write(record); err != nil {
			writeErr = err
			return false
		}
		return true
	})

	if writeErr != nil {
		return errors.NewConnectorError("", "CSV", false, writeErr)
	}
	return w.Error()
}
