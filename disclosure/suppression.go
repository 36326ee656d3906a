package disclosure

import (
	"fmt"
	"slices"

	"hermannm.dev/safetab/tabulate"
)

const DefaultThreshold = 5

// Suppressor hides small counts that could identify individuals.
//
// Primary suppression hides every count c with 0 < c < Threshold. Zero counts stay visible.
//
// Complementary suppression then makes sure no hidden count can be recovered by subtraction.
// For a two-way table, the counts are laid out as a grid with the row totals as an extra
// column and the column totals as an extra row, and every row and column of that grid
// (including the total row and total column, but never the grand total) is a line. A one-way
// table has a single line: its cells. Whenever exactly one entry in a line is hidden, the
// visible nonzero entry with the second-smallest count in that line is hidden too (or the only
// candidate, if there is one). Ties go to the entry first in key order, with the total last.
// This repeats until every line is stable.
//
// The published grand total is always the true total. The published row and column totals are
// sums of visible cells only.
type Suppressor struct {
	Threshold int
}

func NewSuppressor(threshold int) (Suppressor, error) {
	if threshold < 1 {
		return Suppressor{}, fmt.Errorf("suppression threshold must be at least 1, got %d", threshold)
	}
	return Suppressor{Threshold: threshold}, nil
}

func (suppressor Suppressor) Protect(table tabulate.Table) (ProtectedTable, error) {
	if suppressor.Threshold < 1 {
		return ProtectedTable{}, fmt.Errorf(
			"suppression threshold must be at least 1, got %d", suppressor.Threshold,
		)
	}

	grid := newSuppressionGrid(table)
	grid.suppressPrimary(suppressor.Threshold)
	grid.suppressComplementary()

	protected := newProtectedTable(table, ModeSuppression)
	protected.Marker = suppressionMarker(suppressor.Threshold)
	for i, row := range table.Counts {
		protected.Cells[i] = make([]Cell, len(row))
		for j, count := range row {
			if grid.hidden[i][j] {
				protected.Cells[i][j] = Suppressed()
			} else {
				protected.Cells[i][j] = Visible(count)
			}
		}
	}
	protected.GrandTotal = table.GrandTotal
	protected.computeSubtotals()

	return protected, nil
}

type gridPosition struct {
	row int
	col int
}

// For two-way tables, counts has an extra row and column for totals, with the grand total in
// the corner. Lines list positions in key order, with the total last.
type suppressionGrid struct {
	counts [][]int
	hidden [][]bool
	lines  [][]gridPosition
}

func newSuppressionGrid(table tabulate.Table) *suppressionGrid {
	grid := &suppressionGrid{}

	if !table.IsCrossTabulation() {
		line := make([]gridPosition, len(table.Counts))
		for i, row := range table.Counts {
			grid.counts = append(grid.counts, []int{row[0]})
			line[i] = gridPosition{row: i, col: 0}
		}
		grid.lines = [][]gridPosition{line}
		grid.hidden = newHiddenGrid(len(grid.counts), 1)
		return grid
	}

	rows := len(table.RowKeys)
	cols := len(table.ColKeys)

	grid.counts = make([][]int, rows+1)
	for i := 0; i < rows; i++ {
		grid.counts[i] = append(slices.Clone(table.Counts[i]), table.RowTotals[i])
	}
	grid.counts[rows] = append(slices.Clone(table.ColTotals), table.GrandTotal)
	grid.hidden = newHiddenGrid(rows+1, cols+1)

	for i := 0; i <= rows; i++ {
		var line []gridPosition
		for j := 0; j <= cols; j++ {
			if i == rows && j == cols {
				continue
			}
			line = append(line, gridPosition{row: i, col: j})
		}
		grid.lines = append(grid.lines, line)
	}
	for j := 0; j <= cols; j++ {
		var line []gridPosition
		for i := 0; i <= rows; i++ {
			if i == rows && j == cols {
				continue
			}
			line = append(line, gridPosition{row: i, col: j})
		}
		grid.lines = append(grid.lines, line)
	}

	return grid
}

func newHiddenGrid(rows int, cols int) [][]bool {
	hidden := make([][]bool, rows)
	for i := range hidden {
		hidden[i] = make([]bool, cols)
	}
	return hidden
}

func (grid *suppressionGrid) suppressPrimary(threshold int) {
	for _, line := range grid.lines {
		for _, position := range line {
			count := grid.count(position)
			if count > 0 && count < threshold {
				grid.hide(position)
			}
		}
	}
}

func (grid *suppressionGrid) suppressComplementary() {
	for changed := true; changed; {
		changed = false
		for _, line := range grid.lines {
			if grid.protectLine(line) {
				changed = true
			}
		}
	}
}

// Hides a second entry in the line if exactly one is hidden. Returns whether anything changed.
func (grid *suppressionGrid) protectLine(line []gridPosition) bool {
	hiddenCount := 0
	var candidates []gridPosition
	for _, position := range line {
		if grid.isHidden(position) {
			hiddenCount++
		} else if grid.count(position) > 0 {
			candidates = append(candidates, position)
		}
	}

	if hiddenCount != 1 || len(candidates) == 0 {
		return false
	}

	sorted := make([]int, len(candidates))
	for i, position := range candidates {
		sorted[i] = grid.count(position)
	}
	slices.Sort(sorted)

	target := sorted[0]
	if len(sorted) > 1 {
		target = sorted[1]
	}

	for _, position := range candidates {
		if grid.count(position) == target {
			grid.hide(position)
			return true
		}
	}
	return false
}

func (grid *suppressionGrid) count(position gridPosition) int {
	return grid.counts[position.row][position.col]
}

func (grid *suppressionGrid) isHidden(position gridPosition) bool {
	return grid.hidden[position.row][position.col]
}

func (grid *suppressionGrid) hide(position gridPosition) {
	grid.hidden[position.row][position.col] = true
}
