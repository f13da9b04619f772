package pkgimport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"regexp"
	"strconv"

	"github.com/roach88/metadeploy/internal/ir"
)

var filenamePattern = regexp.MustCompile(`^[\w/-]+-(\d+)\.zip$`)

// ParseFilename returns the version encoded in a package filename.
func ParseFilename(filename string) (int, error) {
	m := filenamePattern.FindStringSubmatch(filename)
	if m == nil {
		return 0, &InvalidFilenameError{Filename: filename}
	}
	version, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, &InvalidFilenameError{Filename: filename}
	}
	return version, nil
}

// Records looks up the highest imported version of a package group.
type Records interface {
	ImportedPackage(ctx context.Context, groupID string) (ir.ImportedPackage, bool, error)
}

// ResourceLoader opens package files by name. A missing file is reported with
// an error wrapping fs.ErrNotExist.
type ResourceLoader interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// ImportMode selects how an importer treats objects that already exist.
type ImportMode int

const (
	// ImportModeMirror makes the package's state replace existing state for
	// every object it defines.
	ImportModeMirror ImportMode = iota
	// ImportModeParent only creates objects that do not exist yet.
	ImportModeParent
)

func (m ImportMode) String() string {
	switch m {
	case ImportModeMirror:
		return "mirror"
	case ImportModeParent:
		return "parent"
	}
	return "ImportMode(" + strconv.Itoa(int(m)) + ")"
}

// Descriptor identifies one package file being imported.
type Descriptor struct {
	Filename string
	GroupID  string
	Version  int
}

// PackageImporter deserialises and applies one package.
type PackageImporter interface {
	Configure(mode ImportMode)
	Load(r io.Reader) error
	Import(ctx context.Context) error
}

// ImporterFactory creates a fresh importer for each package.
type ImporterFactory func(pkg Descriptor) PackageImporter

// Option configures a Gate.
type Option func(*Gate)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = l
	}
}

// Gate decides whether a package file needs importing and runs the import.
type Gate struct {
	records     Records
	newImporter ImporterFactory
	logger      *slog.Logger
}

// NewGate creates a gate.
func NewGate(records Records, newImporter ImporterFactory, opts ...Option) *Gate {
	g := &Gate{records: records, newImporter: newImporter, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// InstallPackage imports filename for groupID unless the group already holds
// that version or a newer one. It reports whether an import happened.
func (g *Gate) InstallPackage(ctx context.Context, filename string, loader ResourceLoader, groupID string) (bool, error) {
	version, err := ParseFilename(filename)
	if err != nil {
		return false, err
	}

	prior, found, err := g.records.ImportedPackage(ctx, groupID)
	if err != nil {
		return false, fmt.Errorf("package %s: %w", filename, err)
	}
	if found && prior.Version >= version {
		g.logger.Debug("package up to date", "file", filename, "group", groupID,
			"version", version, "imported", prior.Version)
		return false, nil
	}

	rc, err := loader.Open(ctx, filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, &ResourceNotFoundError{Filename: filename, Err: err}
		}
		return false, &ImportFailureError{Filename: filename, Err: err}
	}
	defer rc.Close()

	imp := g.newImporter(Descriptor{Filename: filename, GroupID: groupID, Version: version})
	imp.Configure(ImportModeMirror)
	if err := imp.Load(rc); err != nil {
		return false, &ImportFailureError{Filename: filename, Err: err}
	}
	if err := imp.Import(ctx); err != nil {
		return false, &ImportFailureError{Filename: filename, Err: err}
	}

	g.logger.Info("package imported", "file", filename, "group", groupID, "version", version)
	return true, nil
}

// Installer binds a Gate to one loader.
type Installer struct {
	Gate   *Gate
	Loader ResourceLoader
}

// InstallPackage implements bundle.PackageInstaller.
func (i Installer) InstallPackage(ctx context.Context, filename, groupID string) (bool, error) {
	return i.Gate.InstallPackage(ctx, filename, i.Loader, groupID)
}
