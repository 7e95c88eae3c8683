package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/mpsl/internal/config"
	"github.com/roach88/mpsl/internal/harness"
)

// ValidateResult holds the result of validating one file.
type ValidateResult struct {
	Path  string `json:"path"`
	Kind  string `json:"kind"` // "config" | "scenario"
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Validate device configurations and scenarios",
		Long: `Check device configuration and scenario files without running them.

A file with a top-level "steps" key is treated as a scenario; anything else
is checked against the configuration schema.

Examples:
  mpsl validate device.yaml
  mpsl validate scenarios/*.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	results := make([]ValidateResult, 0, len(paths))
	invalid := 0
	for _, p := range paths {
		r := validateFile(p)
		if !r.Valid {
			invalid++
		}
		results = append(results, r)
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
		if err := formatter.Success(results); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		for _, r := range results {
			if r.Valid {
				fmt.Fprintf(w, "✓ %s (%s)\n", r.Path, r.Kind)
			} else {
				fmt.Fprintf(w, "✗ %s (%s): %s\n", r.Path, r.Kind, r.Error)
			}
		}
	}

	if invalid > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d file(s) invalid", invalid, len(paths)))
	}
	return nil
}

func validateFile(path string) ValidateResult {
	r := ValidateResult{Path: path, Kind: "config"}

	data, err := os.ReadFile(path)
	if err != nil {
		r.Error = fmt.Sprintf("%s: %v", ErrCodeNotFound, err)
		return r
	}

	var probe map[string]any
	if err := yaml.Unmarshal(data, &probe); err != nil {
		r.Error = fmt.Sprintf("%s: %v", ErrCodeConfig, err)
		return r
	}
	if _, ok := probe["steps"]; ok {
		r.Kind = "scenario"
		if _, err := harness.LoadScenario(path); err != nil {
			r.Error = fmt.Sprintf("%s: %v", ErrCodeScenario, err)
			return r
		}
		r.Valid = true
		return r
	}

	if _, err := config.Parse(data); err != nil {
		r.Error = fmt.Sprintf("%s: %v", ErrCodeConfig, err)
		return r
	}
	r.Valid = true
	return r
}
