package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/sluice/internal/emit"
)

// BuildOptions holds flags for the build command.
type BuildOptions struct {
	*RootOptions
	Output string // output directory
}

// BuildManifest records one build of a dataflow.
type BuildManifest struct {
	BuildID  string `json:"build_id" yaml:"build_id"`
	Dataflow string `json:"dataflow" yaml:"dataflow"`
	Artifact string `json:"artifact" yaml:"artifact"`
}

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BuildOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "build <dataflow-file>",
		Short: "Build a dataflow's component interface",
		Long: `Build the WIT component interface for a dataflow config.

Runs the same resolution and validation as validate, then emits the
interface document and a build manifest into the output directory.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", ".", "output directory")

	return cmd
}

func runBuild(opts *BuildOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
		Quiet:     opts.Quiet,
	}

	df, problems, err := resolveDataflow(cmd.Context(), opts.RootOptions, formatter, path)
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

	document, err := emit.Dataflow(df)
	if err != nil {
		_ = formatter.Error(ErrCodeValidation, err.Error(), nil)
		return NewExitError(ExitFailure, err.Error())
	}

	manifest := BuildManifest{
		BuildID:  uuid.NewString(),
		Dataflow: df.Name(),
		Artifact: df.Meta.CanonicalName() + ".wit",
	}
	if err := writeArtifacts(opts.Output, manifest, document); err != nil {
		_ = formatter.Error(ErrCodeWrite, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	formatter.VerboseLog("Build %s", manifest.BuildID)
	return outputBuildSuccess(formatter, manifest, opts.Output)
}

// writeArtifacts writes the interface document and its manifest into dir,
// creating the directory when needed.
func writeArtifacts(dir string, manifest BuildManifest, document string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	witPath := filepath.Join(dir, manifest.Artifact)
	if err := os.WriteFile(witPath, []byte(document), 0644); err != nil {
		return fmt.Errorf("write interface: %w", err)
	}

	data, err := yaml.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	manifestPath := filepath.Join(dir, "manifest.yaml")
	if err := os.WriteFile(manifestPath, data, 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}

// outputBuildSuccess outputs successful build results.
func outputBuildSuccess(formatter *OutputFormatter, manifest BuildManifest, dir string) error {
	if formatter.Format == "json" {
		return formatter.Success(manifest)
	}

	if !formatter.Quiet {
		fmt.Fprintf(formatter.Writer, "✓ Built %s\n", manifest.Dataflow)
		fmt.Fprintf(formatter.Writer, "Wrote %s\n", filepath.Join(dir, manifest.Artifact))
	}
	return nil
}
