package export

import "fmt"

// Format names a rendering target.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

// Dataset is a table of already fetched portal data. Rows hold values in header order;
// short rows are padded with empty cells when rendered.
type Dataset struct {
	Headers []string
	Rows    [][]string
}

// NewDataset starts a table with the given column headers.
func NewDataset(headers ...string) Dataset {
	return Dataset{Headers: headers}
}

// Append adds one row.
func (d *Dataset) Append(values ...string) {
	d.Rows = append(d.Rows, values)
}

// row returns row i widened or truncated to the header count.
func (d Dataset) row(i int) []string {
	out := make([]string, len(d.Headers))
	copy(out, d.Rows[i])
	return out
}

func (d Dataset) validate(format Format) error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("%s requires at least one header", format)
	}
	return nil
}

// Renderer is implemented by every exporter in this package.
type Renderer interface {
	Render(data Dataset, title string) ([]byte, error)
	ContentType() string
	Extension() string
}

// ForFormat returns the renderer for the requested format. An empty format means CSV.
func ForFormat(format Format) (Renderer, error) {
	switch format {
	case FormatCSV, "":
		return NewCSVExporter(), nil
	case FormatPDF:
		return NewPDFExporter(), nil
	case FormatXLSX:
		return NewXLSXExporter(), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}
