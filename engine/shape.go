package engine

import (
	"hermannm.dev/safetab/disclosure"
)

const (
	totalLabel     = "Total"
	frequencyLabel = "Frequency"
)

// One-way tables get the columns [var, "Frequency"], a row per key, and a final total row.
// Two-way tables get [var1, <var2 keys>..., "Total"], with a row total ending each row and a
// final row of column totals ending in the grand total.
func shapeTable(table disclosure.ProtectedTable) (columns []string, rows [][]any) {
	if !table.IsCrossTabulation() {
		columns = []string{table.Vars[0], frequencyLabel}
		for i, key := range table.RowKeys {
			rows = append(rows, []any{key.Label(), table.Render(table.Cells[i][0])})
		}
		rows = append(rows, []any{totalLabel, table.GrandTotal})
		return columns, rows
	}

	columns = append(columns, table.Vars[0])
	for _, key := range table.ColKeys {
		columns = append(columns, key.Label())
	}
	columns = append(columns, totalLabel)

	for i, key := range table.RowKeys {
		row := make([]any, 0, len(columns))
		row = append(row, key.Label())
		for _, cell := range table.Cells[i] {
			row = append(row, table.Render(cell))
		}
		row = append(row, table.RowTotals[i])
		rows = append(rows, row)
	}

	totalRow := make([]any, 0, len(columns))
	totalRow = append(totalRow, totalLabel)
	for _, total := range table.ColTotals {
		totalRow = append(totalRow, total)
	}
	totalRow = append(totalRow, table.GrandTotal)
	rows = append(rows, totalRow)

	return columns, rows
}
