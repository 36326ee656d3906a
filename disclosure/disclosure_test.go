package disclosure_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"hermannm.dev/safetab/dataset"
	"hermannm.dev/safetab/disclosure"
	"hermannm.dev/safetab/tabulate"
)

func categoricalKeys(labels ...string) []tabulate.Key {
	keys := make([]tabulate.Key, len(labels))
	for i, label := range labels {
		keys[i] = tabulate.Key{Kind: dataset.ColumnKindCategorical, Text: label}
	}
	return keys
}

func oneWayTable(labels []string, counts []int) tabulate.Table {
	table := tabulate.Table{Vars: []string{"var"}, RowKeys: categoricalKeys(labels...)}
	for _, count := range counts {
		table.Counts = append(table.Counts, []int{count})
		table.RowTotals = append(table.RowTotals, count)
		table.GrandTotal += count
	}
	return table
}

func twoWayTable(rowLabels []string, colLabels []string, counts [][]int) tabulate.Table {
	table := tabulate.Table{
		Vars:      []string{"row", "col"},
		RowKeys:   categoricalKeys(rowLabels...),
		ColKeys:   categoricalKeys(colLabels...),
		Counts:    counts,
		RowTotals: make([]int, len(rowLabels)),
		ColTotals: make([]int, len(colLabels)),
	}
	for i, row := range counts {
		for j, count := range row {
			table.RowTotals[i] += count
			table.ColTotals[j] += count
			table.GrandTotal += count
		}
	}
	return table
}

func render(table disclosure.ProtectedTable) [][]any {
	rendered := make([][]any, len(table.Cells))
	for i, row := range table.Cells {
		rendered[i] = make([]any, len(row))
		for j, cell := range row {
			rendered[i][j] = table.Render(cell)
		}
	}
	return rendered
}

func suppress(t *testing.T, table tabulate.Table) disclosure.ProtectedTable {
	t.Helper()

	suppressor, err := disclosure.NewSuppressor(disclosure.DefaultThreshold)
	require.NoError(t, err)

	protected, err := suppressor.Protect(table)
	require.NoError(t, err)
	return protected
}

func TestSuppressCrossTabulation(t *testing.T) {
	protected := suppress(t, twoWayTable(
		[]string{"F", "M"},
		[]string{"18-25", "26-35"},
		[][]int{{8, 2}, {3, 12}},
	))

	assert.Equal(t, [][]any{{8, "<5"}, {"<5", 12}}, render(protected))
	assert.Equal(t, []int{8, 12}, protected.RowTotals)
	assert.Equal(t, []int{8, 12}, protected.ColTotals)
	assert.Equal(t, 25, protected.GrandTotal)
	assert.Equal(t, 2, protected.SuppressedCount())
	assert.Equal(t, disclosure.ModeSuppression, protected.Mode)
}

func TestZeroCountsAreNeverSuppressed(t *testing.T) {
	protected := suppress(t, oneWayTable([]string{"A", "B", "C"}, []int{4, 6, 0}))

	assert.Equal(t, [][]any{{"<5"}, {"<5"}, {0}}, render(protected))
	assert.Nil(t, protected.RowTotals)
	assert.Equal(t, 10, protected.GrandTotal)
}

func TestComplementarySuppressionPicksSecondSmallest(t *testing.T) {
	protected := suppress(t, oneWayTable(
		[]string{"A", "B", "C", "D"}, []int{20, 2, 7, 9},
	))
	assert.Equal(t, [][]any{{20}, {"<5"}, {7}, {"<5"}}, render(protected))
}

func TestComplementarySuppressionTieBreaksOnKeyOrder(t *testing.T) {
	protected := suppress(t, oneWayTable(
		[]string{"A", "B", "C", "D"}, []int{6, 1, 6, 6},
	))
	assert.Equal(t, [][]any{{"<5"}, {"<5"}, {6}, {6}}, render(protected))
}

func TestNoComplementarySuppressionWhenTwoAreHidden(t *testing.T) {
	protected := suppress(t, oneWayTable([]string{"A", "B", "C"}, []int{1, 2, 30}))
	assert.Equal(t, [][]any{{"<5"}, {"<5"}, {30}}, render(protected))
}

func TestNoSuppressionAboveThreshold(t *testing.T) {
	protected := suppress(t, twoWayTable(
		[]string{"a", "b"}, []string{"x", "y"}, [][]int{{5, 0}, {10, 7}},
	))
	assert.Equal(t, [][]any{{5, 0}, {10, 7}}, render(protected))
	assert.Equal(t, []int{5, 17}, protected.RowTotals)
	assert.Equal(t, 0, protected.SuppressedCount())
}

func TestCustomThreshold(t *testing.T) {
	suppressor, err := disclosure.NewSuppressor(10)
	require.NoError(t, err)

	protected, err := suppressor.Protect(oneWayTable([]string{"A", "B"}, []int{9, 10}))
	require.NoError(t, err)

	assert.Equal(t, "<10", protected.Marker)
	assert.Equal(t, [][]any{{"<10"}, {"<10"}}, render(protected))
}

func TestInvalidThreshold(t *testing.T) {
	_, err := disclosure.NewSuppressor(0)
	assert.Error(t, err)

	_, err = disclosure.Suppressor{Threshold: -1}.Protect(oneWayTable(nil, nil))
	assert.Error(t, err)
}

func TestNoiseAdderIsReproducibleWithSeed(t *testing.T) {
	table := twoWayTable(
		[]string{"F", "M"}, []string{"x", "y", "z"}, [][]int{{8, 2, 0}, {3, 12, 40}},
	)

	protect := func() disclosure.ProtectedTable {
		noiseAdder := disclosure.NoiseAdder{
			BaseEpsilon:  1,
			FilteredRows: 65,
			DatasetRows:  100,
			Random:       rand.New(rand.NewPCG(1, 2)),
		}
		protected, err := noiseAdder.Protect(table)
		require.NoError(t, err)
		return protected
	}

	first := protect()
	second := protect()
	assert.Equal(t, first, second)
	assert.Equal(t, disclosure.ModeDifferentialPrivacy, first.Mode)
	assert.Equal(t, 0, first.SuppressedCount())

	sum := 0
	for i, row := range first.Cells {
		rowSum := 0
		for _, cell := range row {
			count, visible := cell.Value()
			require.True(t, visible)
			assert.GreaterOrEqual(t, count, 0)
			rowSum += count
		}
		assert.Equal(t, first.RowTotals[i], rowSum)
		sum += rowSum
	}
	assert.Equal(t, first.GrandTotal, sum)
}

func TestNoiseIsCenteredOnTrueCount(t *testing.T) {
	counts := make([]int, 2000)
	labels := make([]string, len(counts))
	for i := range counts {
		counts[i] = 100
		labels[i] = string(rune('a' + i%26))
	}

	noiseAdder := disclosure.NoiseAdder{
		BaseEpsilon:  1,
		FilteredRows: 1,
		DatasetRows:  1,
		Random:       rand.New(rand.NewPCG(42, 42)),
	}
	protected, err := noiseAdder.Protect(oneWayTable(labels, counts))
	require.NoError(t, err)

	mean := float64(protected.GrandTotal) / float64(len(counts))
	assert.InDelta(t, 100, mean, 0.5)
}

func TestEpsilonScalesWithSubsetSize(t *testing.T) {
	testCases := []struct {
		baseEpsilon  float64
		filteredRows int
		expected     float64
	}{
		{1, 5, 0.3},
		{1, 10, 0.3},
		{1, 20, 0.5},
		{1, 50, 0.8},
		{1, 100, 1},
		{0.2, 5, 0.1},
		{5, 100, 2},
	}

	for _, testCase := range testCases {
		noiseAdder := disclosure.NoiseAdder{
			BaseEpsilon:  testCase.baseEpsilon,
			FilteredRows: testCase.filteredRows,
			DatasetRows:  100,
		}
		assert.InDelta(t, testCase.expected, noiseAdder.Epsilon(), 1e-9)
	}
}

func TestNoiseAdderRejectsInvalidEpsilon(t *testing.T) {
	_, err := disclosure.NoiseAdder{BaseEpsilon: 0}.Protect(oneWayTable(nil, nil))
	assert.Error(t, err)
}

func TestModeNames(t *testing.T) {
	var mode disclosure.Mode
	require.NoError(t, mode.UnmarshalText([]byte("differential_privacy")))
	assert.Equal(t, disclosure.ModeDifferentialPrivacy, mode)

	assert.Error(t, mode.UnmarshalText([]byte("noise")))
	assert.Equal(t, "suppression", disclosure.ModeSuppression.String())
}
