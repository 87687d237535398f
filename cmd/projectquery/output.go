package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/projectquery/types"
)

// writeResult encodes a structured result as json or yaml
func writeResult(w io.Writer, format string, result interface{}) error {
	switch format {
	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(result); err != nil {
			return err
		}
		return encoder.Close()
	default:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}
}

// writeTable prints tab aligned rows under an optional header
func writeTable(w io.Writer, header []string, rows [][]string, quiet bool) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if !quiet {
		fmt.Fprintln(tw, strings.Join(header, "\t"))
	}
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			// multi-line descriptions would break the alignment
			cells[i] = strings.ReplaceAll(cell, "\n", " ")
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// writeRows outputs rendered project rows in the requested format
func writeRows(w io.Writer, format string, columns []types.ColumnSpec, rows [][]string, quiet bool) error {
	if format == "json" || format == "yaml" {
		records := make([]map[string]string, 0, len(rows))
		for _, row := range rows {
			record := make(map[string]string, len(columns))
			for i, column := range columns {
				record[column.ID] = row[i]
			}
			records = append(records, record)
		}
		return writeResult(w, format, records)
	}

	header := make([]string, len(columns))
	for i, column := range columns {
		header[i] = column.Title()
	}
	return writeTable(w, header, rows, quiet)
}
