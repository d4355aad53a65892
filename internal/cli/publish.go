package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/sluice/internal/config"
	"github.com/roach88/sluice/internal/extract"
	"github.com/roach88/sluice/internal/index"
)

// PublishResult holds the outcome of a package publish.
type PublishResult struct {
	ID      string `json:"id"`
	Package string `json:"package"`
}

// NewPublishCommand creates the publish command.
func NewPublishCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish <package-file>",
		Short: "Publish a package to the local index",
		Long: `Publish a package config to the local package index.

The package is validated before it is stored. Publishing an already
published version replaces it.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runPublish(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
		Quiet:     opts.Quiet,
	}

	document, err := os.ReadFile(path)
	if err != nil {
		_ = formatter.Error(ErrCodeLoad, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	pkg, err := config.ParsePackage(filepath.Base(path), document)
	if err != nil {
		return outputValidationProblems(formatter, "", []string{err.Error()})
	}
	for i := range pkg.Functions {
		inv := &pkg.Functions[i].Invocation
		if inv.Code.Code == "" {
			continue
		}
		if errs := extract.Resolve(inv); errs.Any() {
			problems := make([]string, len(errs))
			for j, v := range errs {
				problems[j] = v.Message
			}
			return outputValidationProblems(formatter, pkg.Meta.String(), problems)
		}
	}
	if failure := pkg.Validate(); failure != nil {
		return outputValidationProblems(formatter, pkg.Meta.String(), []string{failure.Error()})
	}

	ix, err := openIndex(opts.IndexPath)
	if err != nil {
		_ = formatter.Error(ErrCodeIndex, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}
	defer ix.Close()

	rec, err := ix.Publish(cmd.Context(), filepath.Base(path), document)
	if err != nil {
		_ = formatter.Error(ErrCodeIndex, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	formatter.VerboseLog("Publish %s", rec.ID)
	if formatter.Format == "json" {
		return formatter.Success(PublishResult{ID: rec.ID, Package: rec.Header.String()})
	}
	if !formatter.Quiet {
		fmt.Fprintf(formatter.Writer, "✓ Published %s\n", rec.Header)
	}
	return nil
}

// openIndex opens the package index, creating its directory when needed.
func openIndex(path string) (*index.Index, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create index directory: %w", err)
		}
	}
	return index.Open(path)
}
