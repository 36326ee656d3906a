package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// Writes value as JSON or YAML, or calls writeText for the text format.
func writeOutput(
	writer io.Writer,
	format string,
	value any,
	writeText func(table *tabwriter.Writer) error,
) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(writer)
		encoder.SetEscapeHTML(false)
		encoder.SetIndent("", "  ")
		return encoder.Encode(value)
	case "yaml":
		encoder := yaml.NewEncoder(writer)
		encoder.SetIndent(2)
		if err := encoder.Encode(value); err != nil {
			return err
		}
		return encoder.Close()
	default:
		table := tabwriter.NewWriter(writer, 0, 0, 2, ' ', 0)
		if err := writeText(table); err != nil {
			return err
		}
		return table.Flush()
	}
}

func writeTableRow[T any](table io.Writer, cells []T) error {
	texts := make([]string, len(cells))
	for i, cell := range cells {
		texts[i] = fmt.Sprint(cell)
	}
	_, err := fmt.Fprintln(table, strings.Join(texts, "\t"))
	return err
}
