package parser

import (
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/FACorreiaa/mpesa-analyzer/internal/domain/statement"
)

// LayoutConfig tunes how positioned glyphs are grouped into lines, words and table cells.
// Multipliers are relative to the font size of the text involved.
type LayoutConfig struct {
	RowTolerance        float64 // Y distance (points) within which glyphs share a line
	WordSpaceMultiplier float64 // horizontal gap above which a new word starts
	CellGapMultiplier   float64 // horizontal gap above which a new header cell starts
	RowGapMultiplier    float64 // vertical gap above which a table ends
}

// DefaultLayoutConfig matches the M-PESA statement layout.
func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{
		RowTolerance:        3.0,
		WordSpaceMultiplier: 0.2,
		CellGapMultiplier:   1.0,
		RowGapMultiplier:    2.5,
	}
}

// word is a run of glyphs with no visible gap between them.
type word struct {
	x0, x1 float64
	size   float64
	text   string
}

func (w word) center() float64 { return (w.x0 + w.x1) / 2 }

// line is the words sharing a baseline, left to right.
type line struct {
	y     float64
	size  float64
	words []word
}

// layoutLines groups glyphs into lines, top of the page first.
func layoutLines(texts []pdf.Text, cfg LayoutConfig) []line {
	glyphs := make([]pdf.Text, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t.S) != "" {
			glyphs = append(glyphs, t)
		}
	}
	if len(glyphs) == 0 {
		return nil
	}

	// PDF Y grows upwards
	sort.SliceStable(glyphs, func(i, j int) bool {
		return glyphs[i].Y > glyphs[j].Y
	})

	var rows [][]pdf.Text
	rowY := glyphs[0].Y
	var current []pdf.Text
	for _, g := range glyphs {
		if rowY-g.Y > cfg.RowTolerance {
			rows = append(rows, current)
			current = nil
			rowY = g.Y
		}
		current = append(current, g)
	}
	rows = append(rows, current)

	lines := make([]line, 0, len(rows))
	for _, row := range rows {
		sort.SliceStable(row, func(i, j int) bool {
			return row[i].X < row[j].X
		})
		lines = append(lines, line{
			y:     row[0].Y,
			size:  maxFontSize(row),
			words: mergeWords(row, cfg),
		})
	}
	return lines
}

func maxFontSize(row []pdf.Text) float64 {
	size := 0.0
	for _, g := range row {
		if g.FontSize > size {
			size = g.FontSize
		}
	}
	if size == 0 {
		size = 10
	}
	return size
}

// mergeWords joins horizontally adjacent glyphs of one line into words.
func mergeWords(row []pdf.Text, cfg LayoutConfig) []word {
	var (
		words []word
		cur   *word
	)
	for _, g := range row {
		size := g.FontSize
		if size == 0 {
			size = 10
		}
		if cur != nil && g.X-cur.x1 <= cfg.WordSpaceMultiplier*size {
			cur.text += g.S
			if g.X+g.W > cur.x1 {
				cur.x1 = g.X + g.W
			}
			continue
		}
		if cur != nil {
			words = append(words, *cur)
		}
		cur = &word{x0: g.X, x1: g.X + g.W, size: size, text: strings.TrimSpace(g.S)}
	}
	if cur != nil {
		words = append(words, *cur)
	}
	for i := range words {
		words[i].text = strings.TrimSpace(words[i].text)
	}
	return words
}

// cells merges the words of a line into cells separated by wide gaps.
func (l line) cells(cfg LayoutConfig) []word {
	var out []word
	for _, w := range l.words {
		if n := len(out); n > 0 && w.x0-out[n-1].x1 <= cfg.CellGapMultiplier*w.size {
			out[n-1].text += " " + w.text
			out[n-1].x1 = w.x1
			continue
		}
		out = append(out, w)
	}
	return out
}

// layoutText renders lines as plain text: words separated by one space, one line per row.
func layoutText(lines []line) string {
	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		for j, w := range l.words {
			if j > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(w.text)
		}
	}
	return b.String()
}

// tableBuilder accumulates the rows of one table whose columns are fixed by its header.
type tableBuilder struct {
	bounds []float64
	rows   [][]string
}

func newTableBuilder(header []word) *tableBuilder {
	bounds := make([]float64, len(header)-1)
	for i := range bounds {
		bounds[i] = (header[i].x1 + header[i+1].x0) / 2
	}
	row := make([]string, len(header))
	for i, c := range header {
		row[i] = c.text
	}
	return &tableBuilder{bounds: bounds, rows: [][]string{row}}
}

func (tb *tableBuilder) columns() int { return len(tb.bounds) + 1 }

// assign places each word of l in the column whose span holds its center.
func (tb *tableBuilder) assign(l line) []string {
	row := make([]string, tb.columns())
	for _, w := range l.words {
		col := sort.SearchFloat64s(tb.bounds, w.center())
		if row[col] != "" {
			row[col] += " "
		}
		row[col] += w.text
	}
	return row
}

// extend appends a wrapped line to the previous row. Header labels wrap with a
// space, data cells keep the line break.
func (tb *tableBuilder) extend(row []string) {
	last := tb.rows[len(tb.rows)-1]
	sep := "\n"
	if len(tb.rows) == 1 {
		sep = " "
	}
	for i, c := range row {
		if c == "" {
			continue
		}
		if last[i] == "" {
			last[i] = c
			continue
		}
		last[i] += sep + c
	}
}

func (tb *tableBuilder) table() statement.RawTable {
	t := make(statement.RawTable, len(tb.rows))
	for i, row := range tb.rows {
		cells := make([]*string, len(row))
		for j := range row {
			cells[j] = &row[j]
		}
		t[i] = cells
	}
	return t
}

// layoutTables reconstructs the tables of a page from its lines.
//
// A line with at least two cells opens a table and fixes its columns. Following lines
// are split into those columns: a line with a first cell and at least one more is a
// new row, a line with an empty first cell continues the previous row. Any other line,
// or a vertical gap wider than the row gap, closes the table. Empty positions are
// empty strings; extraction never yields absent cells.
func layoutTables(lines []line, cfg LayoutConfig) []statement.RawTable {
	var (
		tables []statement.RawTable
		cur    *tableBuilder
		prevY  float64
	)

	flush := func() {
		if cur != nil {
			tables = append(tables, cur.table())
			cur = nil
		}
	}

	for _, l := range lines {
		if cur != nil && prevY-l.y > cfg.RowGapMultiplier*l.size {
			flush()
		}
		prevY = l.y

		if cur != nil {
			row := cur.assign(l)
			switch {
			case row[0] == "":
				cur.extend(row)
				continue
			case filled(row) >= 2:
				cur.rows = append(cur.rows, row)
				continue
			default:
				flush()
			}
		}

		if cells := l.cells(cfg); len(cells) >= 2 {
			cur = newTableBuilder(cells)
		}
	}
	flush()
	return tables
}

func filled(row []string) int {
	n := 0
	for _, c := range row {
		if c != "" {
			n++
		}
	}
	return n
}
