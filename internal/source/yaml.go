package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"gopkg.in/yaml.v3"

	"github.com/roach88/metadeploy/internal/ir"
)

// YAMLSource yields one object per document of a multi-document YAML stream.
// Empty documents are skipped.
type YAMLSource struct {
	origin string
	dec    *yaml.Decoder
	opts   options
	doc    int
}

// NewYAMLSource reads documents from r. origin names the stream in errors.
func NewYAMLSource(origin string, r io.Reader, opts ...Option) *YAMLSource {
	return &YAMLSource{origin: origin, dec: yaml.NewDecoder(r), opts: buildOptions(opts)}
}

// OpenYAML reads name from fsys into memory and returns a source over it.
func OpenYAML(fsys fs.FS, name string, opts ...Option) (*YAMLSource, error) {
	data, err := readFile(fsys, name)
	if err != nil {
		return nil, err
	}
	return NewYAMLSource(name, bytes.NewReader(data), opts...), nil
}

func (s *YAMLSource) Origin() string { return s.origin }

func (s *YAMLSource) Next(ctx context.Context) (ir.Object, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var fields map[string]any
		err := s.dec.Decode(&fields)
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		s.doc++
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", s.doc, err)
		}
		if len(fields) == 0 {
			continue
		}
		obj, err := s.opts.decodeRecord(fields)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", s.doc, err)
		}
		return obj, nil
	}
}
