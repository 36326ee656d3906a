// Package tabulate counts filtered dataset rows by one or two grouping columns.
package tabulate

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"

	"hermannm.dev/safetab/dataset"
	"hermannm.dev/safetab/filter"
)

// Key is one observed value of a grouping column.
type Key struct {
	Kind   dataset.ColumnKind
	Text   string
	Number float64
}

// Label renders the key for display. Numbers use the shortest representation that round-trips,
// so 3.0 renders as "3".
func (key Key) Label() string {
	if key.Kind == dataset.ColumnKindNumeric {
		return strconv.FormatFloat(key.Number, 'f', -1, 64)
	}
	return key.Text
}

func (key Key) compare(other Key) int {
	if key.Kind == dataset.ColumnKindNumeric {
		return cmp.Compare(key.Number, other.Number)
	}
	return cmp.Compare(key.Text, other.Text)
}

// Table holds raw frequency counts. A one-way table has a single column of counts
// (len(ColKeys) == 0, and Counts[i] has one element); a two-way table is a full grid over
// every observed row key and column key, with 0 for combinations that never occur.
//
// Row and column keys are in ascending order: bytewise for categorical columns, numeric for
// numeric ones.
type Table struct {
	Vars       []string
	RowKeys    []Key
	ColKeys    []Key
	Counts     [][]int
	RowTotals  []int
	ColTotals  []int
	GrandTotal int
}

func (table Table) IsCrossTabulation() bool {
	return len(table.Vars) == 2
}

// Empty reports whether no rows were counted.
func (table Table) Empty() bool {
	return table.GrandTotal == 0
}

// Tabulate counts the rows passing the mask by the given one or two grouping columns. Rows with
// a null in any grouping column are not counted.
func Tabulate(data *dataset.Dataset, mask filter.Mask, groupVars []string) (Table, error) {
	if len(groupVars) != 1 && len(groupVars) != 2 {
		return Table{}, fmt.Errorf("expected 1 or 2 grouping variables, got %d", len(groupVars))
	}
	if len(mask) != data.NumRows() {
		return Table{}, fmt.Errorf(
			"mask has %d rows, but dataset has %d", len(mask), data.NumRows(),
		)
	}

	columns := make([]*dataset.Column, len(groupVars))
	for i, name := range groupVars {
		column, ok := data.Column(name)
		if !ok {
			return Table{}, fmt.Errorf("dataset has no column '%s'", name)
		}
		columns[i] = column
	}

	rowIndex := newKeyIndex()
	colIndex := newKeyIndex()
	type cellKey struct{ row, col int }
	counts := make(map[cellKey]int)

rows:
	for row, pass := range mask {
		if !pass {
			continue
		}
		for _, column := range columns {
			if column.IsMissing(row) {
				continue rows
			}
		}

		cell := cellKey{row: rowIndex.add(keyAt(columns[0], row))}
		if len(columns) == 2 {
			cell.col = colIndex.add(keyAt(columns[1], row))
		}
		counts[cell]++
	}

	table := Table{Vars: slices.Clone(groupVars)}
	rowOrder := rowIndex.sorted()
	table.RowKeys = rowIndex.keysIn(rowOrder)

	width := 1
	colOrder := []int{0}
	if len(columns) == 2 {
		colOrder = colIndex.sorted()
		table.ColKeys = colIndex.keysIn(colOrder)
		width = len(colOrder)
	}

	table.Counts = make([][]int, len(rowOrder))
	table.RowTotals = make([]int, len(rowOrder))
	table.ColTotals = make([]int, width)
	for i, row := range rowOrder {
		table.Counts[i] = make([]int, width)
		for j, col := range colOrder {
			count := counts[cellKey{row: row, col: col}]
			table.Counts[i][j] = count
			table.RowTotals[i] += count
			table.ColTotals[j] += count
			table.GrandTotal += count
		}
	}

	if len(columns) == 1 {
		table.ColTotals = nil
	}

	return table, nil
}

func keyAt(column *dataset.Column, row int) Key {
	key := Key{Kind: column.Kind()}
	if key.Kind == dataset.ColumnKindNumeric {
		key.Number = column.Number(row)
	} else {
		key.Text = column.Text(row)
	}
	return key
}

// Assigns indices to keys in order of first appearance.
type keyIndex struct {
	keys    []Key
	indices map[Key]int
}

func newKeyIndex() *keyIndex {
	return &keyIndex{indices: make(map[Key]int)}
}

func (index *keyIndex) add(key Key) int {
	if i, ok := index.indices[key]; ok {
		return i
	}
	i := len(index.keys)
	index.keys = append(index.keys, key)
	index.indices[key] = i
	return i
}

// Returns key indices in ascending key order.
func (index *keyIndex) sorted() []int {
	order := make([]int, len(index.keys))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return index.keys[a].compare(index.keys[b])
	})
	return order
}

func (index *keyIndex) keysIn(order []int) []Key {
	keys := make([]Key, len(order))
	for i, position := range order {
		keys[i] = index.keys[position]
	}
	return keys
}
