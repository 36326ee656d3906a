package tabulate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"hermannm.dev/safetab/dataset"
	"hermannm.dev/safetab/filter"
	"hermannm.dev/safetab/tabulate"
)

func newTestDataset(t *testing.T) *dataset.Dataset {
	t.Helper()

	data, err := dataset.NewFromRows(
		dataset.Schema{
			Columns: []dataset.ColumnDescriptor{
				{Name: "sex", Kind: dataset.ColumnKindCategorical},
				{Name: "age_group", Kind: dataset.ColumnKindCategorical},
				{Name: "children", Kind: dataset.ColumnKindNumeric},
			},
		},
		[][]any{
			{"M", "26-35", 10},
			{"F", "18-25", 2},
			{"M", "18-25", 2},
			{"M", "26-35", 0},
			{"F", nil, 1},
			{nil, "18-25", 2},
			{"M", "26-35", 2.5},
		},
	)
	require.NoError(t, err)
	t.Cleanup(data.Release)

	return data
}

func labels(keys []tabulate.Key) []string {
	result := make([]string, len(keys))
	for i, key := range keys {
		result[i] = key.Label()
	}
	return result
}

func TestOneWay(t *testing.T) {
	data := newTestDataset(t)

	table, err := tabulate.Tabulate(data, filter.All(data.NumRows()), []string{"sex"})
	require.NoError(t, err)

	assert.False(t, table.IsCrossTabulation())
	assert.Equal(t, []string{"F", "M"}, labels(table.RowKeys))
	assert.Equal(t, [][]int{{2}, {4}}, table.Counts)
	assert.Equal(t, []int{2, 4}, table.RowTotals)
	assert.Nil(t, table.ColKeys)
	assert.Equal(t, 6, table.GrandTotal)
}

func TestNumericKeysSortNumerically(t *testing.T) {
	data := newTestDataset(t)

	table, err := tabulate.Tabulate(data, filter.All(data.NumRows()), []string{"children"})
	require.NoError(t, err)

	assert.Equal(t, []string{"0", "1", "2", "2.5", "10"}, labels(table.RowKeys))
	assert.Equal(t, [][]int{{1}, {1}, {3}, {1}, {1}}, table.Counts)
	assert.Equal(t, 7, table.GrandTotal)
}

func TestTwoWayIsFullGrid(t *testing.T) {
	data := newTestDataset(t)

	table, err := tabulate.Tabulate(
		data, filter.All(data.NumRows()), []string{"sex", "age_group"},
	)
	require.NoError(t, err)

	assert.True(t, table.IsCrossTabulation())
	assert.Equal(t, []string{"F", "M"}, labels(table.RowKeys))
	assert.Equal(t, []string{"18-25", "26-35"}, labels(table.ColKeys))
	assert.Equal(t, [][]int{{1, 0}, {1, 3}}, table.Counts)
	assert.Equal(t, []int{1, 4}, table.RowTotals)
	assert.Equal(t, []int{2, 3}, table.ColTotals)
	assert.Equal(t, 5, table.GrandTotal)
}

func TestMaskRestrictsRows(t *testing.T) {
	data := newTestDataset(t)

	mask := filter.Mask{true, false, false, true, false, false, false}
	table, err := tabulate.Tabulate(data, mask, []string{"sex"})
	require.NoError(t, err)

	assert.Equal(t, []string{"M"}, labels(table.RowKeys))
	assert.Equal(t, 2, table.GrandTotal)
}

func TestEmptyTable(t *testing.T) {
	data := newTestDataset(t)

	table, err := tabulate.Tabulate(data, make(filter.Mask, data.NumRows()), []string{"sex"})
	require.NoError(t, err)

	assert.True(t, table.Empty())
	assert.Empty(t, table.RowKeys)
	assert.Empty(t, table.Counts)
}

func TestTabulateErrors(t *testing.T) {
	data := newTestDataset(t)
	mask := filter.All(data.NumRows())

	_, err := tabulate.Tabulate(data, mask, nil)
	assert.Error(t, err)

	_, err = tabulate.Tabulate(data, mask, []string{"sex", "age_group", "children"})
	assert.Error(t, err)

	_, err = tabulate.Tabulate(data, mask, []string{"region"})
	assert.Error(t, err)

	_, err = tabulate.Tabulate(data, filter.All(2), []string{"sex"})
	assert.Error(t, err)
}
