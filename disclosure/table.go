package disclosure

import (
	"strconv"

	"hermannm.dev/safetab/tabulate"
)

// Cell is a published count: either visible, or suppressed with its value withheld. A
// suppressed cell does not carry its count, so it cannot end up in arithmetic.
type Cell struct {
	count      int
	suppressed bool
}

func Visible(count int) Cell {
	return Cell{count: count}
}

func Suppressed() Cell {
	return Cell{suppressed: true}
}

// Value returns the count of a visible cell, and false for a suppressed one.
func (cell Cell) Value() (count int, visible bool) {
	if cell.suppressed {
		return 0, false
	}
	return cell.count, true
}

func (cell Cell) IsSuppressed() bool {
	return cell.suppressed
}

// Protector turns raw counts into a table that is safe to publish.
type Protector interface {
	Protect(table tabulate.Table) (ProtectedTable, error)
}

// ProtectedTable is a frequency table after disclosure control. It has the same shape as the
// tabulate.Table it came from. RowTotals and ColTotals are computed from the published cells,
// and are nil for one-way tables.
type ProtectedTable struct {
	Vars       []string
	RowKeys    []tabulate.Key
	ColKeys    []tabulate.Key
	Cells      [][]Cell
	RowTotals  []int
	ColTotals  []int
	GrandTotal int
	Mode       Mode
	// What suppressed cells render as, e.g. "<5". Empty when nothing can be suppressed.
	Marker string
}

func (table ProtectedTable) IsCrossTabulation() bool {
	return len(table.Vars) == 2
}

func (table ProtectedTable) Empty() bool {
	return len(table.RowKeys) == 0
}

// SuppressedCount returns the number of hidden cells.
func (table ProtectedTable) SuppressedCount() int {
	count := 0
	for _, row := range table.Cells {
		for _, cell := range row {
			if cell.IsSuppressed() {
				count++
			}
		}
	}
	return count
}

// Render returns the cell's count, or the table's marker if it is suppressed.
func (table ProtectedTable) Render(cell Cell) any {
	if count, visible := cell.Value(); visible {
		return count
	}
	return table.Marker
}

func suppressionMarker(threshold int) string {
	return "<" + strconv.Itoa(threshold)
}

// Sums the visible cells of each row and column.
func (table *ProtectedTable) computeSubtotals() {
	if !table.IsCrossTabulation() {
		return
	}

	table.RowTotals = make([]int, len(table.RowKeys))
	table.ColTotals = make([]int, len(table.ColKeys))
	for i, row := range table.Cells {
		for j, cell := range row {
			if count, visible := cell.Value(); visible {
				table.RowTotals[i] += count
				table.ColTotals[j] += count
			}
		}
	}
}

func newProtectedTable(table tabulate.Table, mode Mode) ProtectedTable {
	return ProtectedTable{
		Vars:    table.Vars,
		RowKeys: table.RowKeys,
		ColKeys: table.ColKeys,
		Cells:   make([][]Cell, len(table.Counts)),
		Mode:    mode,
	}
}
