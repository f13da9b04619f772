package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/metadeploy/internal/ir"
)

// Environment variables consulted when the matching flag is not set.
const (
	EnvDatabase   = "METADEPLOY_DB"
	EnvS3Bucket   = "METADEPLOY_S3_BUCKET"
	EnvS3Prefix   = "METADEPLOY_S3_PREFIX"
	EnvS3Region   = "METADEPLOY_S3_REGION"
	EnvS3Endpoint = "METADEPLOY_S3_ENDPOINT"
)

// DefaultDatabase is used when neither --db nor METADEPLOY_DB is set.
const DefaultDatabase = "metadeploy.db"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Database string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the metadeploy CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "metadeploy",
		Short: "metadeploy - declarative metadata deployment",
		Long: `Deploys a declarative distribution of metadata bundles, versioned
packages and one-time chores into a SQLite-backed store.

Every refresh is idempotent: objects that already match their
declaration are left untouched, packages are imported only when newer,
and chores run once.`,
		Version:       ir.EngineVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", envOr(EnvDatabase, DefaultDatabase),
		"path to SQLite database (env "+EnvDatabase+")")

	cmd.AddCommand(NewDeployCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewPlanCommand(opts))
	cmd.AddCommand(NewPackageCommand(opts))
	cmd.AddCommand(NewChoreCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// newLogger installs and returns the process logger: text on w, Debug level
// under --verbose and Info otherwise.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
