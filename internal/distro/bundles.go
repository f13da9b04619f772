package distro

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/roach88/metadeploy/internal/bundle"
	"github.com/roach88/metadeploy/internal/ir"
	"github.com/roach88/metadeploy/internal/reconcile"
	"github.com/roach88/metadeploy/internal/source"
)

// Bundles returns one bundle per declaration. Installing a bundle applies,
// in order, its packages, inline objects, source files and uninstalls
// through tk. Source files are read from fsys.
func (d *Distro) Bundles(tk *bundle.Toolkit, fsys fs.FS, opts ...source.Option) []bundle.Bundle {
	out := make([]bundle.Bundle, 0, len(d.Specs))
	for _, spec := range d.Specs {
		out = append(out, spec.Bundle(tk, fsys, opts...))
	}
	return out
}

// Bundle binds spec to tk.
func (spec BundleSpec) Bundle(tk *bundle.Toolkit, fsys fs.FS, opts ...source.Option) bundle.Bundle {
	return bundle.New(spec.ID, func(ctx context.Context) error {
		for _, pkg := range spec.Packages {
			if _, err := tk.InstallPackage(ctx, pkg.File, pkg.Group); err != nil {
				return err
			}
		}
		if _, err := tk.InstallAll(ctx, spec.Objects...); err != nil {
			return err
		}
		for _, ref := range spec.Sources {
			src, err := openSource(fsys, ref, opts)
			if err != nil {
				return err
			}
			if _, err := tk.InstallFromSource(ctx, src); err != nil {
				return err
			}
		}
		for _, r := range spec.Uninstall {
			if err := tk.UninstallByID(ctx, r.Type, r.ID, r.Reason); err != nil {
				return fmt.Errorf("uninstall %s %q: %w", r.Type, r.ID, err)
			}
		}
		return nil
	}, spec.Requires...)
}

func openSource(fsys fs.FS, ref SourceRef, opts []source.Option) (reconcile.Source, error) {
	ext := path.Ext(ref.File)
	if ext == ".csv" {
		t := ref.Type
		if t == "" {
			t = ir.Type(strings.TrimSuffix(path.Base(ref.File), ext))
		}
		return source.OpenCSV(fsys, ref.File, t, opts...)
	}
	if ref.Type != "" {
		opts = append(opts[:len(opts):len(opts)], source.WithType(ref.Type))
	}
	return source.OpenYAML(fsys, ref.File, opts...)
}
