package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/metadeploy/internal/bundle"
	"github.com/roach88/metadeploy/internal/distro"
)

// PlanStep is one bundle of an install plan.
type PlanStep struct {
	ID        string   `json:"id"`
	Requires  []string `json:"requires,omitempty"`
	Packages  []string `json:"packages,omitempty"`
	Objects   int      `json:"objects"`
	Sources   []string `json:"sources,omitempty"`
	Uninstall int      `json:"uninstall"`
}

// PlanResult is the install order of a distribution.
type PlanResult struct {
	Steps []PlanStep `json:"steps"`
}

func (r PlanResult) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "Install order (%d bundles):\n", len(r.Steps))
	for i, s := range r.Steps {
		fmt.Fprintf(w, "%3d. %s\n", i+1, s.ID)
		if len(s.Requires) > 0 {
			fmt.Fprintf(w, "       requires:  %s\n", strings.Join(s.Requires, ", "))
		}
		if len(s.Packages) > 0 {
			fmt.Fprintf(w, "       packages:  %s\n", strings.Join(s.Packages, ", "))
		}
		if s.Objects > 0 {
			fmt.Fprintf(w, "       objects:   %d\n", s.Objects)
		}
		if len(s.Sources) > 0 {
			fmt.Fprintf(w, "       sources:   %s\n", strings.Join(s.Sources, ", "))
		}
		if s.Uninstall > 0 {
			fmt.Fprintf(w, "       uninstall: %d\n", s.Uninstall)
		}
	}
	return nil
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <distro-dir>",
		Short: "Print the bundle install order",
		Long: `Print the order deploy would install the distribution's bundles in,
with what each bundle contains. Nothing is written.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runPlan(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	dist, errs := distro.Load(dir, distro.LoadModeFailFast, nil)
	if len(errs) > 0 {
		return reportDeployError(formatter, errs[0])
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", dist.FileCount, dir)

	bundles := make([]bundle.Bundle, 0, len(dist.Specs))
	for _, spec := range dist.Specs {
		bundles = append(bundles, spec.Bundle(nil, nil))
	}
	order, err := bundle.Plan(bundles)
	if err != nil {
		return reportPlanError(formatter, err)
	}

	res := PlanResult{Steps: make([]PlanStep, 0, len(order))}
	for _, id := range order {
		spec, _ := dist.Spec(id)
		res.Steps = append(res.Steps, planStep(spec))
	}
	return formatter.Success(res)
}

func planStep(spec distro.BundleSpec) PlanStep {
	step := PlanStep{
		ID:        spec.ID,
		Requires:  spec.Requires,
		Objects:   len(spec.Objects),
		Uninstall: len(spec.Uninstall),
	}
	for _, p := range spec.Packages {
		step.Packages = append(step.Packages, fmt.Sprintf("%s (%s)", p.File, p.Group))
	}
	for _, s := range spec.Sources {
		step.Sources = append(step.Sources, s.File)
	}
	return step
}

func reportPlanError(formatter *OutputFormatter, err error) error {
	var cycle *bundle.CyclicDependencyError
	if errors.As(err, &cycle) {
		return formatter.Fail(ExitFailure, ErrCodeCycle, cycle.Error(), nil)
	}
	var unresolved *bundle.UnresolvedDependencyError
	if errors.As(err, &unresolved) {
		return formatter.Fail(ExitFailure, ErrCodeUnresolved, unresolved.Error(), nil)
	}
	return formatter.Fail(ExitFailure, ErrCodeProblems, "cannot plan", err)
}
