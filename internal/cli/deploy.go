package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/metadeploy/internal/content"
	"github.com/roach88/metadeploy/internal/distro"
	"github.com/roach88/metadeploy/internal/metrics"
	"github.com/roach88/metadeploy/internal/pkgimport"
)

// DeployOptions holds flags for the deploy command.
type DeployOptions struct {
	*RootOptions
	DryRun      bool
	Watch       bool
	Debounce    time.Duration
	MetricsFile string
	S3          S3Options

	// NewRunID overrides run id generation (for testing).
	// If nil, run ids are UUIDv7.
	NewRunID func() (string, error)
}

// DeployResult describes one completed refresh.
type DeployResult struct {
	RunID      string   `json:"run_id"`
	Managers   []string `json:"managers"`
	Bundles    []string `json:"bundles"`
	Chores     []string `json:"chores"`
	DurationMS int64    `json:"duration_ms"`
}

func (r DeployResult) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "Run %s complete\n", r.RunID)
	fmt.Fprintf(w, "  bundles: %d installed\n", len(r.Bundles))
	for _, id := range r.Bundles {
		fmt.Fprintf(w, "    - %s\n", id)
	}
	if len(r.Chores) == 0 {
		_, err := fmt.Fprintln(w, "  chores: none pending")
		return err
	}
	_, err := fmt.Fprintf(w, "  chores: %s\n", strings.Join(r.Chores, ", "))
	return err
}

// NewDeployCommand creates the deploy command.
func NewDeployCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeployOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "deploy <distro-dir>",
		Short: "Refresh the store from a distribution",
		Long: `Load the CUE distribution in the given directory and refresh the store:
bundles are installed in dependency order, then pending chores run.
Every run is recorded with a UUIDv7 run id.

Package files are read from the distribution directory unless an S3
bucket is configured.

Example:
  metadeploy deploy --db ./site.db ./distro
  metadeploy deploy --watch --metrics-file /var/lib/node_exporter/metadeploy.prom ./distro
  metadeploy deploy --s3-bucket site-packages --s3-prefix distro ./distro`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print the install plan without touching the database")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "redeploy whenever the distribution changes")
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", DefaultDebounce, "quiet period before a watched change is deployed")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus metrics to this textfile after each run")
	addS3Flags(cmd, &opts.S3)

	return cmd
}

func runDeploy(opts *DeployOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if opts.DryRun {
		return runPlan(opts.RootOptions, dir, cmd)
	}
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var recorder *metrics.Recorder
	if opts.MetricsFile != "" {
		recorder = metrics.NewRecorder()
	}

	eng, err := openEngine(opts.Database, logger, recorder, cmd.ErrOrStderr())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer func() {
		if closeErr := eng.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	loader, err := packageLoader(ctx, dir, opts.S3)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStorage, "failed to configure package storage", err)
	}

	d := &deployer{opts: opts, eng: eng, loader: loader, dir: dir, logger: logger}

	res, err := d.deploy(ctx)
	if !opts.Watch {
		if err != nil {
			return reportDeployError(formatter, err)
		}
		return formatter.Success(res)
	}

	if err != nil {
		_ = reportDeployError(formatter, err)
	} else {
		_ = formatter.Success(res)
	}

	w := &dirWatcher{
		dir:      dir,
		debounce: opts.Debounce,
		ignore:   absPaths(opts.Database, opts.MetricsFile),
		logger:   logger,
	}
	logger.Info("watching distribution", "dir", dir, "debounce", opts.Debounce)
	err = w.Run(ctx, func(ctx context.Context) {
		res, err := d.deploy(ctx)
		if err != nil {
			_ = reportDeployError(formatter, err)
			return
		}
		_ = formatter.Success(res)
	})
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeWatch, "failed to watch distribution", err)
	}
	logger.Info("stopped watching")
	return nil
}

// deployer runs refreshes of one distribution directory.
type deployer struct {
	opts   *DeployOptions
	eng    *engine
	loader pkgimport.ResourceLoader
	dir    string
	logger *slog.Logger
}

// deploy loads the distribution afresh and refreshes the store from it.
func (d *deployer) deploy(ctx context.Context) (DeployResult, error) {
	dist, errs := distro.Load(d.dir, distro.LoadModeFailFast, nil)
	if len(errs) > 0 {
		return DeployResult{}, errs[0]
	}

	runID, err := d.newRunID()
	if err != nil {
		return DeployResult{}, fmt.Errorf("run id: %w", err)
	}
	if _, err := d.eng.store.BeginRun(ctx, runID); err != nil {
		return DeployResult{}, err
	}
	logger := d.logger.With("run", runID)
	logger.Info("deploy starting", "dir", d.dir, "bundles", len(dist.Specs))

	bundles := content.NewBundleManager(d.eng.resolver(), dist.Bundles(d.eng.toolkit(d.loader), os.DirFS(d.dir)))
	chores := content.NewChoreManager(d.eng.runner(), d.eng.chores(), logger)
	refreshed, refreshErr := d.eng.refresher().RefreshAll(ctx, []content.Manager{bundles, chores})

	finishCtx := context.WithoutCancel(ctx)
	if err := d.eng.store.FinishRun(finishCtx, runID, len(bundles.Report.Order), refreshErr); err != nil {
		logger.Error("failed to record run", "error", err)
	}
	if d.eng.recorder != nil {
		d.eng.recorder.RunFinished(time.Now(), refreshErr)
		if err := d.eng.recorder.WriteTextfile(d.opts.MetricsFile); err != nil {
			logger.Error("failed to write metrics", "path", d.opts.MetricsFile, "error", err)
		}
	}
	if refreshErr != nil {
		return DeployResult{RunID: runID}, &runError{RunID: runID, Err: refreshErr}
	}

	logger.Info("deploy finished", "duration", refreshed.Duration)
	return DeployResult{
		RunID:      runID,
		Managers:   refreshed.Refreshed,
		Bundles:    nonNil(bundles.Report.Order),
		Chores:     nonNil(chores.Ran),
		DurationMS: refreshed.Duration.Milliseconds(),
	}, nil
}

func (d *deployer) newRunID() (string, error) {
	if d.opts.NewRunID != nil {
		return d.opts.NewRunID()
	}
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// runError ties a refresh failure to its recorded run.
type runError struct {
	RunID string
	Err   error
}

func (e *runError) Error() string { return fmt.Sprintf("run %s: %v", e.RunID, e.Err) }

func (e *runError) Unwrap() error { return e.Err }

func reportDeployError(formatter *OutputFormatter, err error) error {
	var loadErr *distro.LoadError
	if errors.As(err, &loadErr) {
		return formatter.Fail(ExitCommandError, loadErr.Code, loadErrorMessage(loadErr), nil)
	}
	var runErr *runError
	if errors.As(err, &runErr) {
		return formatter.Fail(ExitFailure, ErrCodeDeploy, "deploy failed", err)
	}
	return formatter.Fail(ExitCommandError, ErrCodeDatabase, "deploy could not start", err)
}

// loadErrorMessage is the message of err prefixed with its position.
func loadErrorMessage(err *distro.LoadError) string {
	if err.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", err.Pos.Filename(), err.Pos.Line(), err.Pos.Column(), err.Message)
	}
	return err.Message
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
