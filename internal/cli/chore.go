package cli

import (
	"bytes"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/metadeploy/internal/chore"
)

// ChoreStatus is a known chore and whether it has run.
type ChoreStatus struct {
	ID   string `json:"id"`
	Done bool   `json:"done"`
}

// ChoreListResult lists the known chores.
type ChoreListResult struct {
	Chores []ChoreStatus `json:"chores"`
}

func (r ChoreListResult) WriteText(w io.Writer) error {
	for _, c := range r.Chores {
		state := "pending"
		if c.Done {
			state = "done"
		}
		fmt.Fprintf(w, "%-40s %s\n", c.ID, state)
	}
	return nil
}

// ChoreRunResult reports a chore run.
type ChoreRunResult struct {
	ID      string `json:"id"`
	Ran     bool   `json:"ran"`
	Output  string `json:"output,omitempty"`
	Skipped string `json:"skipped,omitempty"`
}

func (r ChoreRunResult) WriteText(w io.Writer) error {
	if !r.Ran {
		_, err := fmt.Fprintf(w, "Chore %s skipped: %s\n", r.ID, r.Skipped)
		return err
	}
	io.WriteString(w, r.Output)
	_, err := fmt.Fprintf(w, "Chore %s done\n", r.ID)
	return err
}

// NewChoreCommand creates the chore command group.
func NewChoreCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chore",
		Short: "Inspect and run one-time chores",
	}
	cmd.AddCommand(newChoreListCommand(rootOpts))
	cmd.AddCommand(newChoreRunCommand(rootOpts))
	return cmd
}

func newChoreListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List known chores and whether they have run",
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

			runner := eng.runner()
			res := ChoreListResult{Chores: []ChoreStatus{}}
			for _, c := range eng.chores() {
				done, err := runner.Done(commandContext(cmd), c.ID())
				if err != nil {
					return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to read chore state", err)
				}
				res.Chores = append(res.Chores, ChoreStatus{ID: c.ID(), Done: done})
			}
			return formatter.Success(res)
		},
	}
}

func newChoreRunCommand(rootOpts *RootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "run <chore-id>",
		Short: "Run a chore now",
		Long: `Run one chore and mark it done. A chore that has already run is
skipped unless --force is given.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChore(rootOpts, args[0], force, cmd)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "run even if the chore is already done")
	return cmd
}

func runChore(opts *RootOptions, id string, force bool, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := commandContext(cmd)
	var out bytes.Buffer

	eng, err := openEngine(opts.Database, newLogger(opts, cmd.ErrOrStderr()), nil, &out)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer eng.Close()

	chores := eng.chores()
	i := slices.IndexFunc(chores, func(c chore.Chore) bool { return c.ID() == id })
	if i < 0 {
		return formatter.Fail(ExitCommandError, ErrCodeChore, fmt.Sprintf("unknown chore %q", id), nil)
	}

	runner := eng.runner()
	if !force {
		done, err := runner.Done(ctx, id)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to read chore state", err)
		}
		if done {
			return formatter.Success(ChoreRunResult{ID: id, Skipped: "already done"})
		}
	}
	if err := runner.PerformChore(ctx, chores[i]); err != nil {
		return formatter.Fail(ExitFailure, ErrCodeChore, fmt.Sprintf("chore %s failed", id), err)
	}
	return formatter.Success(ChoreRunResult{ID: id, Ran: true, Output: out.String()})
}
