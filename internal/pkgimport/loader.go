package pkgimport

import (
	"context"
	"io"
	"io/fs"
)

// FSLoader opens package files from a file system: os.DirFS for a
// distribution directory, embed.FS for packages compiled into the binary.
type FSLoader struct {
	FS fs.FS
}

func (l FSLoader) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.FS.Open(name)
}
