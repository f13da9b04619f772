package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/metadeploy/internal/chore"
	"github.com/roach88/metadeploy/internal/ir"
)

// StatusResult summarises what has been deployed into a database.
type StatusResult struct {
	Objects  map[ir.Type]int    `json:"objects"`
	Packages []PackageListEntry `json:"packages"`
	Chores   []string           `json:"chores_done"`
	Runs     []ir.Run           `json:"runs"`
}

func (r StatusResult) WriteText(w io.Writer) error {
	fmt.Fprintln(w, "Objects:")
	if len(r.Objects) == 0 {
		fmt.Fprintln(w, "  none")
	}
	for _, t := range sortedTypes(r.Objects) {
		fmt.Fprintf(w, "  %-16s %d\n", t, r.Objects[t])
	}

	fmt.Fprintln(w, "Packages:")
	if len(r.Packages) == 0 {
		fmt.Fprintln(w, "  none")
	}
	for _, p := range r.Packages {
		fmt.Fprintf(w, "  %-16s v%d\n", p.Group, p.Version)
	}

	fmt.Fprintln(w, "Chores done:")
	if len(r.Chores) == 0 {
		fmt.Fprintln(w, "  none")
	}
	for _, id := range r.Chores {
		fmt.Fprintf(w, "  %s\n", id)
	}

	fmt.Fprintln(w, "Recent runs:")
	if len(r.Runs) == 0 {
		fmt.Fprintln(w, "  none")
	}
	for _, run := range r.Runs {
		line := fmt.Sprintf("  %s  %s  %-9s bundles=%d", run.ID, run.StartedAt.Format(time.RFC3339), run.Status, run.Bundles)
		if run.Error != "" {
			line += "  error=" + run.Error
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:           "status",
		Short:         "Show deployed objects, packages, chores and recent runs",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, limit, cmd)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of recent runs to show")
	return cmd
}

func runStatus(opts *RootOptions, limit int, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := commandContext(cmd)

	eng, err := openEngine(opts.Database, newLogger(opts, cmd.ErrOrStderr()), nil, io.Discard)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer eng.Close()

	fail := func(err error) error {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to read status", err)
	}

	counts, err := eng.store.ObjectCounts(ctx)
	if err != nil {
		return fail(err)
	}
	pkgs, err := listPackages(cmd, eng)
	if err != nil {
		return fail(err)
	}
	markers, err := eng.store.SettingsWithSuffix(ctx, chore.MarkerSuffix)
	if err != nil {
		return fail(err)
	}
	runs, err := eng.store.RecentRuns(ctx, limit)
	if err != nil {
		return fail(err)
	}

	res := StatusResult{Objects: counts, Packages: pkgs.Packages, Chores: []string{}, Runs: runs}
	for _, m := range markers {
		if m.Value == chore.MarkerValue {
			res.Chores = append(res.Chores, strings.TrimSuffix(m.Key, chore.MarkerSuffix))
		}
	}
	return formatter.Success(res)
}

func sortedTypes(m map[ir.Type]int) []ir.Type {
	return slices.Sorted(maps.Keys(m))
}
