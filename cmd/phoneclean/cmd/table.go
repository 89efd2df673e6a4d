package cmd

import (
	"io"
	"strings"

	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"
)

// maxCellWidth caps a column in terminal cells; longer values are
// truncated with an ellipsis.
const maxCellWidth = 24

// table is a plain text grid. Widths are measured in terminal cells so
// that wide scripts stay aligned.
type table struct {
	header    []string
	rows      [][]string
	highlight map[int]color.Color // column index -> color
	strong    map[int]bool        // row index -> bold
}

func (t *table) widths() []int {
	n := len(t.header)
	for _, r := range t.rows {
		if len(r) > n {
			n = len(r)
		}
	}
	w := make([]int, n)
	measure := func(cells []string) {
		for i, c := range cells {
			if cw := runewidth.StringWidth(flatten(c)); cw > w[i] {
				w[i] = cw
			}
		}
	}
	measure(t.header)
	for _, r := range t.rows {
		measure(r)
	}
	for i := range w {
		if w[i] > maxCellWidth {
			w[i] = maxCellWidth
		}
		if w[i] == 0 {
			w[i] = 1
		}
	}
	return w
}

// render writes the header, a rule and every row to out.
func (t *table) render(out io.Writer) error {
	widths := t.widths()

	lines := make([]string, 0, len(t.rows)+2)
	lines = append(lines, t.line(t.header, widths, color.Bold, false))
	rule := make([]string, len(widths))
	for i, w := range widths {
		rule[i] = strings.Repeat("-", w)
	}
	lines = append(lines, strings.Join(rule, "  "))
	for i, r := range t.rows {
		lines = append(lines, t.line(r, widths, 0, t.strong[i]))
	}

	_, err := io.WriteString(out, strings.Join(lines, "\n")+"\n")
	return err
}

func (t *table) line(cells []string, widths []int, style color.Color, bold bool) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		var c string
		if i < len(cells) {
			c = flatten(cells[i])
		}
		c = runewidth.FillRight(runewidth.Truncate(c, w, "…"), w)
		switch {
		case style != 0:
			c = style.Sprint(c)
		case bold:
			c = color.Bold.Sprint(c)
		default:
			if hl, ok := t.highlight[i]; ok {
				c = hl.Sprint(c)
			}
		}
		parts[i] = c
	}
	return strings.TrimRight(strings.Join(parts, "  "), " ")
}

// flatten keeps a cell on one line.
func flatten(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ").Replace(s)
}
