package reconcile

import (
	"context"
	"io"

	"github.com/roach88/metadeploy/internal/ir"
)

// Source produces objects one at a time. Next returns io.EOF once exhausted.
type Source interface {
	// Origin names the source in error messages (a file path, a URL).
	Origin() string
	Next(ctx context.Context) (ir.Object, error)
}

// SliceSource is a Source over an in-memory list.
type SliceSource struct {
	Name    string
	Objects []ir.Object
	pos     int
}

// NewSliceSource returns a Source that yields objs in order.
func NewSliceSource(name string, objs ...ir.Object) *SliceSource {
	return &SliceSource{Name: name, Objects: objs}
}

func (s *SliceSource) Origin() string { return s.Name }

func (s *SliceSource) Next(ctx context.Context) (ir.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.Objects) {
		return nil, io.EOF
	}
	obj := s.Objects[s.pos]
	s.pos++
	return obj, nil
}
