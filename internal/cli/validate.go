package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/tether/internal/scenario"
)

// FileValidation is the validation outcome of one scenario file.
type FileValidation struct {
	File  string `json:"file"`
	Name  string `json:"name,omitempty"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario-file>...",
		Short: "Validate scenario files without running them",
		Long: `Check scenario files against the scenario schema and resolve their
node references, without building a graph or touching a database.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, files []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(files))}
	for _, file := range files {
		formatter.VerboseLog("Validating %s", file)

		data, err := os.ReadFile(file)
		if err != nil {
			if formatter.JSON() {
				_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("cannot read %s", file), err.Error())
			}
			return WrapExitError(ExitCommandError, fmt.Sprintf("cannot read %s", file), err)
		}

		v := FileValidation{File: file, Valid: true}
		s, err := scenario.ParseScenario(data)
		if err != nil {
			v.Valid = false
			v.Error = err.Error()
			result.Valid = false
		} else {
			v.Name = s.Name
		}
		result.Files = append(result.Files, v)
	}

	if formatter.JSON() {
		status := "ok"
		if !result.Valid {
			status = "error"
		}
		if err := writeJSON(cmd.OutOrStdout(), CLIResponse{Status: status, Data: result}); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		for _, v := range result.Files {
			if v.Valid {
				fmt.Fprintf(w, "✓ %s (%s)\n", v.File, v.Name)
			} else {
				fmt.Fprintf(w, "✗ %s\n  %s\n", v.File, v.Error)
			}
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}
