package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// CSVExporter renders a dataset as comma separated text, matching the files the school API exports.
type CSVExporter struct{}

func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

func (e *CSVExporter) ContentType() string { return "text/csv" }

func (e *CSVExporter) Extension() string { return string(FormatCSV) }

// Render ignores the title; CSV has no place for it.
func (e *CSVExporter) Render(data Dataset, _ string) ([]byte, error) {
	if err := data.validate(FormatCSV); err != nil {
		return nil, err
	}
	records := make([][]string, 0, len(data.Rows)+1)
	records = append(records, data.Headers)
	for i := range data.Rows {
		records = append(records, data.row(i))
	}

	var buf bytes.Buffer
	if err := csv.NewWriter(&buf).WriteAll(records); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}
