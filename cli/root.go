// Package cli implements the safetab command-line tool, which runs tab commands against local
// CSV files.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

type RootOptions struct {
	Format string
}

var ValidFormats = []string{"text", "json", "yaml"}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "safetab",
		Short: "Disclosure-protected frequency tables from CSV files",
		Long: `Runs tab commands such as 'tab sex age_group if age > 30' against a CSV file, and
prints the resulting frequency table with small counts suppressed or noised.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().
		StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")

	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))

	return cmd
}
