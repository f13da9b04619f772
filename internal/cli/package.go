package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/metadeploy/internal/pkgimport"
)

// PackageInstallResult reports one package install request.
type PackageInstallResult struct {
	File     string `json:"file"`
	Group    string `json:"group"`
	Version  int    `json:"version"`
	Imported bool   `json:"imported"`
}

func (r PackageInstallResult) WriteText(w io.Writer) error {
	if r.Imported {
		_, err := fmt.Fprintf(w, "Imported %s into group %s (version %d)\n", r.File, r.Group, r.Version)
		return err
	}
	_, err := fmt.Fprintf(w, "Skipped %s: group %s already holds version %d or newer\n", r.File, r.Group, r.Version)
	return err
}

// PackageListEntry is one imported package group.
type PackageListEntry struct {
	Group      string    `json:"group"`
	Name       string    `json:"name"`
	Version    int       `json:"version"`
	ImportedAt time.Time `json:"imported_at"`
}

// PackageListResult lists imported package groups.
type PackageListResult struct {
	Packages []PackageListEntry `json:"packages"`
}

func (r PackageListResult) WriteText(w io.Writer) error {
	if len(r.Packages) == 0 {
		_, err := fmt.Fprintln(w, "No packages imported")
		return err
	}
	for _, p := range r.Packages {
		fmt.Fprintf(w, "%-20s %-20s v%-6d %s\n", p.Group, p.Name, p.Version, p.ImportedAt.Format(time.RFC3339))
	}
	return nil
}

// PackageInstallOptions holds flags for package install.
type PackageInstallOptions struct {
	*RootOptions
	Group string
	Dir   string
	S3    S3Options
}

// NewPackageCommand creates the package command group.
func NewPackageCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "package",
		Short: "Import and inspect versioned packages",
	}
	cmd.AddCommand(newPackageInstallCommand(rootOpts))
	cmd.AddCommand(newPackageListCommand(rootOpts))
	return cmd
}

func newPackageInstallCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PackageInstallOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "install <name>-<version>.zip",
		Short: "Import one package file if it is newer than the group's",
		Long: `Import a package file into the store. The version is taken from the
filename; the import is skipped when the group already holds that
version or a newer one.

Example:
  metadeploy package install --group forms --dir ./distro packages/forms-3.zip`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPackageInstall(opts, args[0], cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Group, "group", "", "package group id (required)")
	cmd.Flags().StringVar(&opts.Dir, "dir", ".", "directory package files are read from")
	_ = cmd.MarkFlagRequired("group")
	addS3Flags(cmd, &opts.S3)
	return cmd
}

func runPackageInstall(opts *PackageInstallOptions, file string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	ctx := commandContext(cmd)

	version, err := pkgimport.ParseFilename(file)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadRequest, err.Error(), nil)
	}

	eng, err := openEngine(opts.Database, logger, nil, cmd.ErrOrStderr())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer eng.Close()

	loader, err := packageLoader(ctx, opts.Dir, opts.S3)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStorage, "failed to configure package storage", err)
	}

	imported, err := eng.gate().InstallPackage(ctx, file, loader, opts.Group)
	if err == nil {
		err = eng.session.Flush(ctx)
	}
	eng.session.Clear()
	if err != nil {
		var notFound *pkgimport.ResourceNotFoundError
		if errors.As(err, &notFound) {
			return formatter.Fail(ExitCommandError, ErrCodePackage, "package not found", err)
		}
		return formatter.Fail(ExitFailure, ErrCodePackage, "package import failed", err)
	}

	return formatter.Success(PackageInstallResult{File: file, Group: opts.Group, Version: version, Imported: imported})
}

func newPackageListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List imported package groups",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			eng, err := openEngine(rootOpts.Database, newLogger(rootOpts, cmd.ErrOrStderr()), nil, io.Discard)
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
			}
			defer eng.Close()

			res, err := listPackages(cmd, eng)
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to list packages", err)
			}
			return formatter.Success(res)
		},
	}
}

func listPackages(cmd *cobra.Command, eng *engine) (PackageListResult, error) {
	pkgs, err := eng.store.ImportedPackages(commandContext(cmd))
	if err != nil {
		return PackageListResult{}, err
	}
	res := PackageListResult{Packages: make([]PackageListEntry, 0, len(pkgs))}
	for _, p := range pkgs {
		res.Packages = append(res.Packages, PackageListEntry{Group: p.GroupID, Name: p.Name, Version: p.Version, ImportedAt: p.ImportedAt})
	}
	return res, nil
}
