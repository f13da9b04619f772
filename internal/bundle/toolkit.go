package bundle

import (
	"context"
	"errors"

	"github.com/roach88/metadeploy/internal/ir"
	"github.com/roach88/metadeploy/internal/reconcile"
)

// PackageInstaller imports a versioned package file for a package group.
// It returns false when the group already holds that version or newer.
type PackageInstaller interface {
	InstallPackage(ctx context.Context, filename, groupID string) (bool, error)
}

// Toolkit bundles the operations a bundle's Install typically needs.
type Toolkit struct {
	Reconciler *reconcile.Reconciler
	Packages   PackageInstaller
}

// Install creates or updates obj.
func (t *Toolkit) Install(ctx context.Context, obj ir.Object) (ir.Object, error) {
	return t.Reconciler.InstallObject(ctx, obj)
}

// InstallAll installs objs in order and stops at the first error.
func (t *Toolkit) InstallAll(ctx context.Context, objs ...ir.Object) ([]ir.Object, error) {
	out := make([]ir.Object, 0, len(objs))
	for _, obj := range objs {
		saved, err := t.Reconciler.InstallObject(ctx, obj)
		if err != nil {
			return nil, err
		}
		out = append(out, saved)
	}
	return out, nil
}

// InstallFromSource installs everything src yields.
func (t *Toolkit) InstallFromSource(ctx context.Context, src reconcile.Source) ([]ir.Object, error) {
	return t.Reconciler.InstallFromSource(ctx, src)
}

// InstallPackage imports filename for groupID if it is newer than what the
// group already holds.
func (t *Toolkit) InstallPackage(ctx context.Context, filename, groupID string) (bool, error) {
	if t.Packages == nil {
		return false, errors.New("no package installer configured")
	}
	return t.Packages.InstallPackage(ctx, filename, groupID)
}

// Uninstall retires or removes obj. A nil obj is ignored.
func (t *Toolkit) Uninstall(ctx context.Context, obj ir.Object, reason string) error {
	return t.Reconciler.UninstallObject(ctx, obj, reason)
}

// UninstallByID looks up an object and uninstalls it if present.
func (t *Toolkit) UninstallByID(ctx context.Context, typ ir.Type, id, reason string) error {
	obj, err := t.Reconciler.Possible(ctx, typ, id)
	if err != nil {
		return err
	}
	return t.Reconciler.UninstallObject(ctx, obj, reason)
}

// Possible returns the stored object or nil.
func (t *Toolkit) Possible(ctx context.Context, typ ir.Type, id string) (ir.Object, error) {
	return t.Reconciler.Possible(ctx, typ, id)
}

// Existing returns the stored object or a *reconcile.MissingObjectError.
func (t *Toolkit) Existing(ctx context.Context, typ ir.Type, id string) (ir.Object, error) {
	return t.Reconciler.Existing(ctx, typ, id)
}
