package cli

import (
	"fmt"
	"math/rand/v2"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"hermannm.dev/safetab/csv"
	"hermannm.dev/safetab/dataset"
	"hermannm.dev/safetab/disclosure"
	"hermannm.dev/safetab/engine"
	"hermannm.dev/wrap"
)

type QueryOptions struct {
	Threshold   int
	PrivacyMode string
	Epsilon     float64
	// Seeds the noise for differential privacy. Zero gives random noise.
	Seed uint64
}

func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query <csv-file> <command>",
		Short: "Run a tab command against a CSV file",
		Example: `  safetab query survey.csv 'tab sex age_group if age >= 18 & region == "north"'
  safetab query survey.csv 'tab sex' --privacy-mode differential_privacy --format json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, rootOpts, opts, args[0], args[1])
		},
	}

	cmd.Flags().IntVar(
		&opts.Threshold, "threshold", disclosure.DefaultThreshold,
		"counts below this are suppressed",
	)
	cmd.Flags().StringVar(
		&opts.PrivacyMode, "privacy-mode", disclosure.ModeSuppression.String(),
		"suppression|differential_privacy",
	)
	cmd.Flags().Float64Var(
		&opts.Epsilon, "epsilon", disclosure.DefaultBaseEpsilon,
		"base epsilon for differential privacy",
	)
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "random seed for differential privacy noise")

	return cmd
}

func runQuery(
	cmd *cobra.Command,
	rootOpts *RootOptions,
	opts *QueryOptions,
	csvPath string,
	command string,
) error {
	var privacyMode disclosure.Mode
	if err := privacyMode.UnmarshalText([]byte(opts.PrivacyMode)); err != nil {
		return wrap.Errorf(err, "invalid --privacy-mode '%s'", opts.PrivacyMode)
	}
	if opts.Threshold < 1 {
		return fmt.Errorf("--threshold must be at least 1, got %d", opts.Threshold)
	}
	if opts.Epsilon <= 0 {
		return fmt.Errorf("--epsilon must be positive, got %v", opts.Epsilon)
	}

	data, err := readDataset(csvPath)
	if err != nil {
		return err
	}
	defer data.Release()

	var engineOptions engine.Options
	if opts.Seed != 0 {
		seed := opts.Seed
		engineOptions.NewRandom = func() *rand.Rand { return rand.New(rand.NewPCG(seed, seed)) }
	}

	response, err := engine.New(nil, engineOptions).Execute(data, engine.Request{
		Command:     command,
		PrivacyMode: privacyMode,
		Threshold:   opts.Threshold,
		BaseEpsilon: opts.Epsilon,
	})
	if err != nil {
		return err
	}

	return writeOutput(
		cmd.OutOrStdout(),
		rootOpts.Format,
		response,
		func(table *tabwriter.Writer) error {
			if response.Message != "" {
				_, err := fmt.Fprintln(table, response.Message)
				return err
			}

			if err := writeTableRow(table, response.Columns); err != nil {
				return err
			}
			for _, row := range response.Rows {
				if err := writeTableRow(table, row); err != nil {
					return err
				}
			}

			_, err := fmt.Fprintf(table, "\nMatching rows: %d\n", response.MaskedRowCount)
			return err
		},
	)
}

func readDataset(csvPath string) (*dataset.Dataset, error) {
	file, err := os.Open(csvPath)
	if err != nil {
		return nil, wrap.Error(err, "failed to open CSV file")
	}
	defer file.Close()

	reader, err := csv.NewReader(file)
	if err != nil {
		return nil, wrap.Errorf(err, "failed to read CSV file '%s'", csvPath)
	}

	data, err := reader.ReadDataset()
	if err != nil {
		return nil, wrap.Errorf(err, "failed to load dataset from '%s'", csvPath)
	}
	return data, nil
}
