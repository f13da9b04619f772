package pkgimport

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/metadeploy/internal/ir"
	"github.com/roach88/metadeploy/internal/reconcile"
	"github.com/roach88/metadeploy/internal/source"
)

// ManifestName is the archive entry describing a package.
const ManifestName = "package.yaml"

// Manifest is the content of package.yaml.
type Manifest struct {
	Name    string `yaml:"name"`
	Group   string `yaml:"group"`
	Version int    `yaml:"version"`
}

// RecordWriter persists the imported version of a package group. A
// store.Session queues the record so it commits with the package's objects.
type RecordWriter interface {
	RecordImportedPackage(ctx context.Context, pkg ir.ImportedPackage) error
}

// ZipOption configures zip importers.
type ZipOption func(*zipConfig)

type zipConfig struct {
	logger  *slog.Logger
	now     func() time.Time
	sources []source.Option
}

// WithZipLogger sets the importer logger. The default is slog.Default().
func WithZipLogger(l *slog.Logger) ZipOption {
	return func(c *zipConfig) {
		c.logger = l
	}
}

// WithZipClock sets the clock used for ImportedAt.
func WithZipClock(now func() time.Time) ZipOption {
	return func(c *zipConfig) {
		c.now = now
	}
}

// WithSourceOptions passes options to the YAML and CSV readers of each entry.
func WithSourceOptions(opts ...source.Option) ZipOption {
	return func(c *zipConfig) {
		c.sources = append(c.sources, opts...)
	}
}

// NewZipImporterFactory returns a factory of importers that apply zip
// packages through r and record them in records.
func NewZipImporterFactory(r *reconcile.Reconciler, records RecordWriter, opts ...ZipOption) ImporterFactory {
	cfg := zipConfig{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	return func(pkg Descriptor) PackageImporter {
		return &ZipImporter{pkg: pkg, reconciler: r, records: records, cfg: cfg}
	}
}

// ZipImporter reads a zip package holding package.yaml plus object entries:
// multi-document YAML files, and CSV files named after the type of their rows
// (location.csv holds locations). Entries are applied in name order.
type ZipImporter struct {
	pkg        Descriptor
	reconciler *reconcile.Reconciler
	records    RecordWriter
	cfg        zipConfig

	mode     ImportMode
	manifest Manifest
	objects  []ir.Object
	loaded   bool
}

func (z *ZipImporter) Configure(mode ImportMode) {
	z.mode = mode
}

// Load reads and decodes the whole archive. Nothing is applied until Import.
func (z *ZipImporter) Load(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}

	files := make([]*zip.File, 0, len(zr.File))
	var manifest *zip.File
	for _, f := range zr.File {
		switch {
		case f.FileInfo().IsDir():
		case f.Name == ManifestName:
			manifest = f
		default:
			files = append(files, f)
		}
	}
	if manifest == nil {
		return fmt.Errorf("archive has no %s", ManifestName)
	}
	if err := z.readManifest(manifest); err != nil {
		return err
	}

	slices.SortFunc(files, func(a, b *zip.File) int { return strings.Compare(a.Name, b.Name) })
	var objects []ir.Object
	for _, f := range files {
		src, err := z.openEntry(f)
		if err != nil {
			return err
		}
		if src == nil {
			z.cfg.logger.Debug("skipping package entry", "file", z.pkg.Filename, "entry", f.Name)
			continue
		}
		for {
			obj, err := src.Next(context.Background())
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return fmt.Errorf("%s: %w", f.Name, err)
			}
			objects = append(objects, obj)
		}
	}
	z.objects = objects
	z.loaded = true
	return nil
}

func (z *ZipImporter) readManifest(f *zip.File) error {
	data, err := readEntry(f)
	if err != nil {
		return err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("%s: %w", ManifestName, err)
	}
	if m.Group != "" && m.Group != z.pkg.GroupID {
		return fmt.Errorf("%s: group %q does not match %q", ManifestName, m.Group, z.pkg.GroupID)
	}
	if m.Version != 0 && m.Version != z.pkg.Version {
		return fmt.Errorf("%s: version %d does not match filename version %d", ManifestName, m.Version, z.pkg.Version)
	}
	if m.Name == "" {
		m.Name = strings.TrimSuffix(path.Base(z.pkg.Filename), ".zip")
	}
	z.manifest = m
	return nil
}

// openEntry returns nil for entries that hold no objects.
func (z *ZipImporter) openEntry(f *zip.File) (reconcile.Source, error) {
	ext := path.Ext(f.Name)
	switch ext {
	case ".yaml", ".yml", ".csv":
	default:
		return nil, nil
	}
	data, err := readEntry(f)
	if err != nil {
		return nil, err
	}
	origin := z.pkg.Filename + "!" + f.Name
	if ext == ".csv" {
		t := ir.Type(strings.TrimSuffix(path.Base(f.Name), ext))
		return source.NewCSVSource(origin, bytes.NewReader(data), t, z.cfg.sources...), nil
	}
	return source.NewYAMLSource(origin, bytes.NewReader(data), z.cfg.sources...), nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name, err)
	}
	return data, nil
}

// Manifest returns the loaded manifest.
func (z *ZipImporter) Manifest() Manifest {
	return z.manifest
}

// Objects returns the decoded objects in application order.
func (z *ZipImporter) Objects() []ir.Object {
	return z.objects
}

// Import applies the loaded objects and records the package version.
func (z *ZipImporter) Import(ctx context.Context) error {
	if !z.loaded {
		return errors.New("import before load")
	}
	applied := 0
	for _, obj := range z.objects {
		if err := ctx.Err(); err != nil {
			return err
		}
		if z.mode == ImportModeParent {
			exists, err := z.exists(ctx, obj)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
		}
		if _, err := z.reconciler.InstallObject(ctx, obj); err != nil {
			return err
		}
		applied++
	}

	err := z.records.RecordImportedPackage(ctx, ir.ImportedPackage{
		GroupID:    z.pkg.GroupID,
		Name:       z.manifest.Name,
		Version:    z.pkg.Version,
		ImportedAt: z.cfg.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("record package: %w", err)
	}
	z.cfg.logger.Debug("package applied", "file", z.pkg.Filename, "mode", z.mode,
		"objects", len(z.objects), "applied", applied)
	return nil
}

func (z *ZipImporter) exists(ctx context.Context, obj ir.Object) (bool, error) {
	id, err := z.reconciler.Identifier(obj)
	if err != nil {
		return false, err
	}
	if id == "" {
		return false, nil
	}
	found, err := z.reconciler.Possible(ctx, obj.ObjectType(), id)
	if err != nil {
		return false, err
	}
	return found != nil, nil
}
