// Package engine runs tab commands against datasets: it parses the command, filters and counts
// the rows, protects the counts, and shapes the result for display.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"hermannm.dev/devlog/log"
	"hermannm.dev/safetab/command"
	"hermannm.dev/safetab/dataset"
	"hermannm.dev/safetab/disclosure"
	"hermannm.dev/safetab/filter"
	"hermannm.dev/safetab/store"
	"hermannm.dev/safetab/tabulate"
	"hermannm.dev/wrap"
)

const EmptyResultMessage = "No data matches the specified conditions"

// DatasetResolver looks up loaded datasets by key. The returned dataset is retained for the
// caller, who must release it. Unknown keys must give an error wrapping store.ErrDatasetNotFound.
type DatasetResolver interface {
	Dataset(ctx context.Context, key string) (*dataset.Dataset, error)
}

// DatasetUnavailableError is returned when a dataset key cannot be resolved, for example because
// the dataset expired or was never loaded. Callers should reload the dataset rather than change
// the query.
type DatasetUnavailableError struct {
	Key string
	Err error
}

func (err *DatasetUnavailableError) Error() string {
	return fmt.Sprintf("dataset '%s' is unavailable: %v", err.Key, err.Err)
}

func (err *DatasetUnavailableError) Unwrap() error {
	return err.Err
}

type Options struct {
	// Used when a request does not set a threshold. Defaults to disclosure.DefaultThreshold.
	DefaultThreshold int
	// Used when a request does not set a privacy mode. Defaults to suppression.
	DefaultPrivacyMode disclosure.Mode
	// Defaults to disclosure.DefaultBaseEpsilon.
	BaseEpsilon float64
	// Creates the random source for differential privacy noise. Nil gives a randomly seeded
	// source per query.
	NewRandom func() *rand.Rand
}

type Request struct {
	Command string
	// Zero values use the engine's defaults.
	PrivacyMode disclosure.Mode
	Threshold   int
	BaseEpsilon float64
}

// Response is a protected frequency table ready for display. Rows contain group key labels as
// strings, visible counts as ints, and suppressed counts as the suppression marker string.
type Response struct {
	Columns        []string        `json:"columns" yaml:"columns"`
	Rows           [][]any         `json:"rows" yaml:"rows"`
	MaskedRowCount int             `json:"maskedRowCount" yaml:"maskedRowCount"`
	Command        string          `json:"command" yaml:"command"`
	PrivacyMode    disclosure.Mode `json:"privacyMode" yaml:"privacyMode"`
	Threshold      int             `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Epsilon        float64         `json:"epsilon,omitempty" yaml:"epsilon,omitempty"`
	Message        string          `json:"message,omitempty" yaml:"message,omitempty"`
}

type Engine struct {
	datasets DatasetResolver
	options  Options
}

func New(datasets DatasetResolver, options Options) *Engine {
	if options.DefaultThreshold == 0 {
		options.DefaultThreshold = disclosure.DefaultThreshold
	}
	if options.DefaultPrivacyMode == 0 {
		options.DefaultPrivacyMode = disclosure.ModeSuppression
	}
	if options.BaseEpsilon == 0 {
		options.BaseEpsilon = disclosure.DefaultBaseEpsilon
	}

	return &Engine{datasets: datasets, options: options}
}

// Run resolves the dataset with the given key and executes the request against it. A dataset
// that is not found gives a *DatasetUnavailableError; other resolver failures are returned
// wrapped as-is.
func (engine *Engine) Run(
	ctx context.Context,
	datasetKey string,
	request Request,
) (Response, error) {
	data, err := engine.datasets.Dataset(ctx, datasetKey)
	if err != nil {
		if errors.Is(err, store.ErrDatasetNotFound) {
			return Response{}, &DatasetUnavailableError{Key: datasetKey, Err: err}
		}
		return Response{}, wrap.Errorf(err, "failed to resolve dataset '%s'", datasetKey)
	}
	defer data.Release()

	return engine.Execute(data, request)
}

// Execute runs the request against the given dataset. The dataset is only read, so Execute may
// be called concurrently on the same dataset.
//
// Errors are *command.SyntaxError for invalid commands and *filter.TypeError for comparisons that
// do not fit a column's kind.
func (engine *Engine) Execute(data *dataset.Dataset, request Request) (Response, error) {
	query, err := command.Parse(request.Command, data.Schema())
	if err != nil {
		return Response{}, err
	}

	mask, err := filter.Evaluate(query.Filter, data)
	if err != nil {
		return Response{}, err
	}

	table, err := tabulate.Tabulate(data, mask, query.GroupVars)
	if err != nil {
		return Response{}, wrap.Error(err, "failed to tabulate filtered rows")
	}

	response := Response{
		Command:        query.RawCommand,
		MaskedRowCount: table.GrandTotal,
		PrivacyMode:    engine.privacyMode(request),
	}

	if table.Empty() {
		response.Columns = []string{}
		response.Rows = [][]any{}
		response.Message = EmptyResultMessage
		log.Debug(
			"query matched no rows",
			slog.String("command", query.RawCommand),
			slog.Any("privacyMode", response.PrivacyMode),
		)
		return response, nil
	}

	var protector disclosure.Protector
	switch response.PrivacyMode {
	case disclosure.ModeSuppression:
		threshold := request.Threshold
		if threshold == 0 {
			threshold = engine.options.DefaultThreshold
		}
		suppressor, err := disclosure.NewSuppressor(threshold)
		if err != nil {
			return Response{}, err
		}
		protector = suppressor
		response.Threshold = threshold
	case disclosure.ModeDifferentialPrivacy:
		noiseAdder := disclosure.NoiseAdder{
			BaseEpsilon:  request.BaseEpsilon,
			FilteredRows: mask.Count(),
			DatasetRows:  data.NumRows(),
		}
		if noiseAdder.BaseEpsilon == 0 {
			noiseAdder.BaseEpsilon = engine.options.BaseEpsilon
		}
		if engine.options.NewRandom != nil {
			noiseAdder.Random = engine.options.NewRandom()
		}
		protector = noiseAdder
		response.Epsilon = noiseAdder.Epsilon()
	default:
		return Response{}, fmt.Errorf("unsupported privacy mode %v", response.PrivacyMode)
	}

	protected, err := protector.Protect(table)
	if err != nil {
		return Response{}, wrap.Errorf(err, "failed to apply %v", response.PrivacyMode)
	}

	response.Columns, response.Rows = shapeTable(protected)
	if response.PrivacyMode == disclosure.ModeDifferentialPrivacy {
		// The true count of matching rows is not published under differential privacy.
		response.MaskedRowCount = protected.GrandTotal
	}

	log.Debug(
		"executed query",
		slog.String("command", query.RawCommand),
		slog.Any("privacyMode", response.PrivacyMode),
		slog.Int("maskedRowCount", response.MaskedRowCount),
		slog.Int("suppressedCells", protected.SuppressedCount()),
	)

	return response, nil
}

func (engine *Engine) privacyMode(request Request) disclosure.Mode {
	if request.PrivacyMode == 0 {
		return engine.options.DefaultPrivacyMode
	}
	return request.PrivacyMode
}
