package report

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/notmyname/logflow/internal/model"
)

// DefaultPadding separates table columns.
const DefaultPadding = 3

type tableRow struct {
	cells []string
	raw   string
	isRaw bool
}

// Table prints right-aligned text columns. Every column but the first is
// widened by Padding so that columns never touch.
type Table struct {
	Padding int
	rows    []tableRow
}

// NewTable returns an empty table. A negative padding is treated as 0.
func NewTable(padding int) *Table {
	if padding < 0 {
		padding = 0
	}
	return &Table{Padding: padding}
}

// Add appends a row of cells. Rows may have different lengths.
func (t *Table) Add(cells ...string) {
	t.rows = append(t.rows, tableRow{cells: cells})
}

// AddRaw appends a line that is printed as is and ignored for column widths.
func (t *Table) AddRaw(text string) {
	t.rows = append(t.rows, tableRow{raw: text, isRaw: true})
}

func (t *Table) widths() []int {
	var widths []int
	for _, row := range t.rows {
		if row.isRaw {
			continue
		}
		for i, cell := range row.cells {
			w := utf8.RuneCountInString(cell)
			if i > 0 {
				w += t.Padding
			}
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			if w > widths[i] {
				widths[i] = w
			}
		}
	}
	return widths
}

// String renders the table. Rows that are entirely blank render as empty lines.
func (t *Table) String() string {
	widths := t.widths()
	out := make([]string, 0, len(t.rows))

	var b strings.Builder
	for _, row := range t.rows {
		if row.isRaw {
			out = append(out, row.raw)
			continue
		}
		b.Reset()
		for i, w := range widths {
			cell := ""
			if i < len(row.cells) {
				cell = row.cells[i]
			}
			if pad := w - utf8.RuneCountInString(cell); pad > 0 {
				b.WriteString(strings.Repeat(" ", pad))
			}
			b.WriteString(cell)
		}
		out = append(out, strings.TrimRight(b.String(), " "))
	}
	return strings.Join(out, "\n")
}

// latencyHeader names the columns of the percentile table.
var latencyHeader = []string{"Name", "Count", "P50", "P90", "P95", "P99", "P999", "Max"}

// LatencyTable lays out percentile rows with four decimals.
func LatencyTable(rows []model.PercentileRow) *Table {
	t := NewTable(DefaultPadding)
	t.Add(latencyHeader...)
	for _, r := range rows {
		t.Add(
			r.Name,
			fmt.Sprintf("%d", r.Count),
			fmt.Sprintf("%.4f", r.P50),
			fmt.Sprintf("%.4f", r.P90),
			fmt.Sprintf("%.4f", r.P95),
			fmt.Sprintf("%.4f", r.P99),
			fmt.Sprintf("%.4f", r.P999),
			fmt.Sprintf("%.4f", r.Max),
		)
	}
	return t
}

// WriteLatencyTable writes the percentile table followed by a newline.
func WriteLatencyTable(w io.Writer, rows []model.PercentileRow) error {
	if _, err := io.WriteString(w, LatencyTable(rows).String()+"\n"); err != nil {
		return fmt.Errorf("report: write latency table: %w", err)
	}
	return nil
}
