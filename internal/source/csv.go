package source

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"

	"github.com/roach88/metadeploy/internal/ir"
)

// Column name suffixes that change how a cell is decoded.
const (
	// ListSuffix marks a column holding a ';'-separated list: "privileges[]".
	ListSuffix = "[]"
	// BoolSuffix marks a boolean column: "published:bool".
	BoolSuffix = ":bool"
)

// ListSeparator splits list cells.
const ListSeparator = ";"

// CSVSource yields one object per data row. The first row names the fields.
// Empty cells are left out of the record.
type CSVSource struct {
	origin string
	r      *csv.Reader
	opts   options
	header []string
	line   int
}

// NewCSVSource reads rows from r. Every row is of type t.
func NewCSVSource(origin string, r io.Reader, t ir.Type, opts ...Option) *CSVSource {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'
	o := buildOptions(opts)
	o.fixed = t
	return &CSVSource{origin: origin, r: cr, opts: o}
}

// OpenCSV reads name from fsys into memory and returns a source over it.
func OpenCSV(fsys fs.FS, name string, t ir.Type, opts ...Option) (*CSVSource, error) {
	data, err := readFile(fsys, name)
	if err != nil {
		return nil, err
	}
	return NewCSVSource(name, bytes.NewReader(data), t, opts...), nil
}

func (s *CSVSource) Origin() string { return s.origin }

func (s *CSVSource) Next(ctx context.Context) (ir.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.header == nil {
		header, err := s.r.Read()
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("header: %w", err)
		}
		for i := range header {
			header[i] = strings.TrimSpace(header[i])
		}
		s.header = header
	}

	row, err := s.r.Read()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}
	line, _ := s.r.FieldPos(0)

	fields, err := s.record(row)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", line, err)
	}
	obj, err := s.opts.decodeRecord(fields)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", line, err)
	}
	return obj, nil
}

func (s *CSVSource) record(row []string) (map[string]any, error) {
	fields := make(map[string]any, len(row))
	for i, cell := range row {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		col := s.header[i]
		switch {
		case strings.HasSuffix(col, ListSuffix):
			var items []string
			for _, item := range strings.Split(cell, ListSeparator) {
				if item = strings.TrimSpace(item); item != "" {
					items = append(items, item)
				}
			}
			fields[strings.TrimSuffix(col, ListSuffix)] = items
		case strings.HasSuffix(col, BoolSuffix):
			b, err := strconv.ParseBool(cell)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", col, err)
			}
			fields[strings.TrimSuffix(col, BoolSuffix)] = b
		default:
			fields[col] = cell
		}
	}
	return fields, nil
}
