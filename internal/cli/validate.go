package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Dataflow string   `json:"dataflow,omitempty"`
	Problems []string `json:"problems,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <dataflow-file>",
		Short: "Validate a dataflow config",
		Long: `Validate a dataflow config without building artifacts.

Decodes the document, resolves package imports against the local index,
extracts inline operator signatures, and runs full semantic validation.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
		Quiet:     opts.Quiet,
	}

	df, problems, err := resolveDataflow(cmd.Context(), opts, formatter, path)
	if err != nil {
		_ = formatter.Error(ErrCodeLoad, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}
	if len(problems) > 0 {
		name := ""
		if df != nil {
			name = df.Name()
		}
		return outputValidationProblems(formatter, name, problems)
	}

	return outputValidateSuccess(formatter, df.Name())
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, name string) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Dataflow: name})
	}

	if !formatter.Quiet {
		fmt.Fprintf(formatter.Writer, "✓ %s is valid\n", name)
	}
	return nil
}

// outputValidationProblems outputs validation failures and maps them to
// exit code 1.
func outputValidationProblems(formatter *OutputFormatter, name string, problems []string) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Dataflow: name, Problems: problems},
			Error: &CLIError{
				Code:    ErrCodeValidation,
				Message: problems[0],
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d problem(s)", len(problems)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, problem := range problems {
		fmt.Fprintln(formatter.Writer, problem)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d problem(s)", len(problems)))
}
