package cli

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/metadeploy/internal/bundle"
	"github.com/roach88/metadeploy/internal/distro"
)

// ValidationProblem is one defect found in a distribution.
type ValidationProblem struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	File    string   `json:"file,omitempty"`
	Line    int      `json:"line,omitempty"`
	Bundle  string   `json:"bundle,omitempty"`
	Path    []string `json:"path,omitempty"` // cycles only
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                `json:"valid"`
	Bundles  int                 `json:"bundles"`
	Problems []ValidationProblem `json:"problems,omitempty"`
}

func (r ValidationResult) WriteText(w io.Writer) error {
	if r.Valid {
		_, err := fmt.Fprintf(w, "\u2713 Distribution valid (%d bundles)\n", r.Bundles)
		return err
	}
	fmt.Fprintln(w, "\u2717 Validation failed")
	fmt.Fprintln(w)
	for _, p := range r.Problems {
		if p.Line > 0 {
			fmt.Fprintf(w, "%s:%d\n", p.File, p.Line)
		}
		fmt.Fprintf(w, "  %s: %s\n\n", p.Code, p.Message)
	}
	return nil
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <distro-dir>",
		Short: "Check a distribution without deploying it",
		Long: `Load every bundle of the distribution and report all problems found:
CUE errors, malformed bundle fields, objects that do not decode,
prerequisites that do not exist and prerequisite cycles.

Exits 1 when problems are found and 2 when the directory cannot be read.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	res, err := ValidateDistroDir(dir)
	if err != nil {
		var loadErr *distro.LoadError
		if errors.As(err, &loadErr) {
			return formatter.Fail(ExitCommandError, loadErr.Code, loadErr.Message, nil)
		}
		return formatter.Fail(ExitCommandError, distro.ErrCodeGeneric, err.Error(), nil)
	}

	if res.Valid {
		return formatter.Success(res)
	}
	if formatter.Format == "json" {
		_ = formatter.encode(CLIResponse{
			Status: "error",
			Data:   res,
			Error:  &CLIError{Code: res.Problems[0].Code, Message: res.Problems[0].Message},
		})
	} else {
		_ = res.WriteText(formatter.Writer)
	}
	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d problem(s)", len(res.Problems)))
}

// ValidateDistroDir collects every problem of the distribution in dir. An
// error is returned only when the directory cannot be loaded at all.
func ValidateDistroDir(dir string) (ValidationResult, error) {
	dist, errs := distro.Load(dir, distro.LoadModeCollectAll, nil)
	if dist == nil {
		return ValidationResult{}, errs[0]
	}

	res := ValidationResult{Bundles: len(dist.Specs), Problems: []ValidationProblem{}}
	for _, err := range errs {
		res.Problems = append(res.Problems, loadProblem(dir, err))
	}

	bundles := make([]bundle.Bundle, 0, len(dist.Specs))
	for _, spec := range dist.Specs {
		bundles = append(bundles, spec.Bundle(nil, nil))
	}
	for _, p := range bundle.Validate(bundles) {
		res.Problems = append(res.Problems, graphProblem(dir, dist, p))
	}

	res.Valid = len(res.Problems) == 0
	return res, nil
}

func loadProblem(dir string, err error) ValidationProblem {
	var loadErr *distro.LoadError
	if !errors.As(err, &loadErr) {
		return ValidationProblem{Code: distro.ErrCodeGeneric, Message: err.Error()}
	}
	p := ValidationProblem{Code: loadErr.Code, Message: loadErr.Message}
	if loadErr.Pos.IsValid() {
		p.File = relativeTo(dir, loadErr.Pos.Filename())
		p.Line = loadErr.Pos.Line()
	}
	return p
}

func graphProblem(dir string, dist *distro.Distro, p bundle.Problem) ValidationProblem {
	out := ValidationProblem{Message: p.Message, Bundle: p.Bundle, Path: p.Path}
	switch p.Kind {
	case bundle.ProblemUnresolved:
		out.Code = ErrCodeUnresolved
	case bundle.ProblemCycle:
		out.Code = ErrCodeCycle
		if len(p.Path) > 0 {
			out.Bundle = p.Path[0]
		}
	}
	if spec, ok := dist.Spec(out.Bundle); ok && spec.Pos.IsValid() {
		out.File = relativeTo(dir, spec.Pos.Filename())
		out.Line = spec.Pos.Line()
	}
	return out
}

// relativeTo shortens file to a path under dir when possible.
func relativeTo(dir, file string) string {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return file
	}
	rel, err := filepath.Rel(absDir, file)
	if err != nil || strings.HasPrefix(rel, "..") {
		return file
	}
	return filepath.ToSlash(rel)
}
