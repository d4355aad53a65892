package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// PackageListing is one published package in the list output.
type PackageListing struct {
	ID          string `json:"id"`
	Package     string `json:"package"`
	PublishedAt string `json:"published_at"`
}

// NewPackagesCommand creates the packages command group.
func NewPackagesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "packages",
		Short: "Inspect the local package index",
	}

	cmd.AddCommand(newPackagesListCommand(rootOpts))

	return cmd
}

func newPackagesListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List published packages",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPackagesList(rootOpts, cmd)
		},
	}
}

func runPackagesList(opts *RootOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
		Quiet:     opts.Quiet,
	}

	if _, err := os.Stat(opts.IndexPath); err != nil {
		return outputPackagesList(formatter, nil)
	}

	ix, err := openIndex(opts.IndexPath)
	if err != nil {
		_ = formatter.Error(ErrCodeIndex, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}
	defer ix.Close()

	records, err := ix.List(cmd.Context())
	if err != nil {
		_ = formatter.Error(ErrCodeIndex, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	listings := make([]PackageListing, 0, len(records))
	for _, rec := range records {
		listings = append(listings, PackageListing{
			ID:          rec.ID,
			Package:     rec.Header.String(),
			PublishedAt: rec.PublishedAt.Format(time.RFC3339),
		})
	}
	return outputPackagesList(formatter, listings)
}

func outputPackagesList(formatter *OutputFormatter, listings []PackageListing) error {
	if formatter.Format == "json" {
		return formatter.Success(listings)
	}

	if len(listings) == 0 {
		if !formatter.Quiet {
			fmt.Fprintln(formatter.Writer, "No packages published")
		}
		return nil
	}
	for _, listing := range listings {
		fmt.Fprintf(formatter.Writer, "%s\t%s\n", listing.Package, listing.PublishedAt)
	}
	return nil
}
