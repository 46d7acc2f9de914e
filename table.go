package tremote

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-runewidth"
)

// minWrapWidth is the narrowest a text column is squeezed to when fitting
// a table into the render width.
const minWrapWidth = 8

const gutter = "  "

type borderChars struct {
	topLeft, topRight, bottomLeft, bottomRight string
	horizontal, vertical                       string
	topTee, bottomTee, leftTee, rightTee       string
	cross                                      string
}

var borderSets = map[BorderStyle]borderChars{
	BorderRounded: {
		topLeft: "╭", topRight: "╮", bottomLeft: "╰", bottomRight: "╯",
		horizontal: "─", vertical: "│",
		topTee: "┬", bottomTee: "┴", leftTee: "├", rightTee: "┤",
		cross: "┼",
	},
	BorderASCII: {
		topLeft: "+", topRight: "+", bottomLeft: "+", bottomRight: "+",
		horizontal: "-", vertical: "|",
		topTee: "+", bottomTee: "+", leftTee: "+", rightTee: "+",
		cross: "+",
	},
}

func writeTable(w io.Writer, header []string, rows [][]string, aligns []Alignment, border BorderStyle, maxWidth int) error {
	if len(rows) == 0 && len(header) == 0 {
		return nil
	}
	numCols := colCount(header, rows)
	widths := computeWidths(numCols, header, rows)
	aligns = extendAligns(aligns, numCols)
	wrapWidths := fitWidths(widths, aligns, border, maxWidth)

	if border == BorderNone {
		return renderPlainTable(w, header, rows, widths, aligns, wrapWidths)
	}
	return renderBorderedTable(w, header, rows, widths, aligns, border, wrapWidths)
}

func colCount(header []string, rows [][]string) int {
	n := len(header)
	for _, row := range rows {
		if len(row) > n {
			n = len(row)
		}
	}
	return n
}

func computeWidths(numCols int, header []string, rows [][]string) []int {
	widths := make([]int, numCols)
	for i, h := range header {
		if w := runewidth.StringWidth(h); w > widths[i] {
			widths[i] = w
		}
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); i < numCols && w > widths[i] {
				widths[i] = w
			}
		}
	}
	return widths
}

func extendAligns(aligns []Alignment, numCols int) []Alignment {
	if len(aligns) >= numCols {
		return aligns[:numCols]
	}
	extended := make([]Alignment, numCols)
	copy(extended, aligns)
	return extended
}

// tableWidth returns the printed width of a table with the given column
// widths.
func tableWidth(widths []int, border BorderStyle) int {
	if border != BorderNone {
		return tableInnerWidth(widths) + 2
	}
	n := 0
	for _, w := range widths {
		n += w
	}
	if len(widths) > 1 {
		n += len(gutter) * (len(widths) - 1)
	}
	return n
}

// fitWidths shrinks left-aligned columns, widest first, until the table fits
// maxWidth or every such column is at minWrapWidth. widths is updated in
// place; the returned slice holds the wrap width of each shrunk column and
// zero elsewhere. Right-aligned columns hold numbers and never wrap.
func fitWidths(widths []int, aligns []Alignment, border BorderStyle, maxWidth int) []int {
	if maxWidth <= 0 {
		return nil
	}
	excess := tableWidth(widths, border) - maxWidth
	if excess <= 0 {
		return nil
	}
	wrap := make([]int, len(widths))
	for excess > 0 {
		widest := -1
		for i, w := range widths {
			if aligns[i] != AlignLeft || w <= minWrapWidth {
				continue
			}
			if widest < 0 || w > widths[widest] {
				widest = i
			}
		}
		if widest < 0 {
			break
		}
		cut := min(excess, widths[widest]-minWrapWidth)
		widths[widest] -= cut
		wrap[widest] = widths[widest]
		excess -= cut
	}
	return wrap
}

// --- Cell wrapping ---

// wrapCell breaks s into lines of at most width columns, preferring the
// spaces in s and falling back to hard breaks for long words.
func wrapCell(s string, width int) []string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return []string{s}
	}
	var lines []string
	for _, line := range strings.Split(text.WrapSoft(s, width), "\n") {
		line = strings.TrimRight(line, " ")
		lines = append(lines, hardWrap(line, width)...)
	}
	return lines
}

func hardWrap(s string, width int) []string {
	if runewidth.StringWidth(s) <= width {
		return []string{s}
	}
	var lines []string
	for len(s) > 0 {
		line := runewidth.Truncate(s, width, "")
		if line == "" {
			// Advance at least one rune when a wide character does not fit.
			r := []rune(s)
			line = string(r[0])
		}
		lines = append(lines, line)
		s = s[len(line):]
	}
	return lines
}

func wrapRow(cells []string, widths []int, wrapWidths []int) [][]string {
	wrapped := make([][]string, len(widths))
	for i := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		if i < len(wrapWidths) && wrapWidths[i] > 0 {
			wrapped[i] = wrapCell(cell, wrapWidths[i])
		} else {
			wrapped[i] = []string{cell}
		}
	}
	return wrapped
}

func maxLines(wrapped [][]string) int {
	n := 1
	for _, lines := range wrapped {
		if len(lines) > n {
			n = len(lines)
		}
	}
	return n
}

// lineCells returns the cells of visual line n of a wrapped row.
func lineCells(wrapped [][]string, n int) []string {
	cells := make([]string, len(wrapped))
	for i, lines := range wrapped {
		if n < len(lines) {
			cells[i] = lines[n]
		}
	}
	return cells
}

// --- Plain table (BorderNone) ---

func renderPlainTable(w io.Writer, header []string, rows [][]string, widths []int, aligns []Alignment, wrapWidths []int) error {
	if len(header) > 0 {
		if err := writePlainRow(w, header, widths, aligns, wrapWidths); err != nil {
			return err
		}
		if err := writePlainSep(w, widths); err != nil {
			return err
		}
	}
	for _, row := range rows {
		if err := writePlainRow(w, row, widths, aligns, wrapWidths); err != nil {
			return err
		}
	}
	return nil
}

func writePlainSep(w io.Writer, widths []int) error {
	sep := make([]string, len(widths))
	for i, width := range widths {
		sep[i] = strings.Repeat("-", width)
	}
	_, err := fmt.Fprintln(w, strings.Join(sep, gutter))
	return err
}

func writePlainRow(w io.Writer, cells []string, widths []int, aligns []Alignment, wrapWidths []int) error {
	wrapped := wrapRow(cells, widths, wrapWidths)
	for line := range maxLines(wrapped) {
		lc := lineCells(wrapped, line)
		parts := make([]string, len(widths))
		for i, width := range widths {
			parts[i] = formatTableCell(lc[i], width, aligns[i])
		}
		out := strings.TrimRight(strings.Join(parts, gutter), " ")
		if _, err := fmt.Fprintln(w, out); err != nil {
			return err
		}
	}
	return nil
}

// --- Bordered table ---

func renderBorderedTable(w io.Writer, header []string, rows [][]string, widths []int, aligns []Alignment, style BorderStyle, wrapWidths []int) error {
	bc := borderSets[style]

	if err := drawHLine(w, widths, bc.topLeft, bc.horizontal, bc.topTee, bc.topRight); err != nil {
		return err
	}
	if len(header) > 0 {
		if err := drawBorderedRow(w, header, widths, aligns, bc.vertical, wrapWidths); err != nil {
			return err
		}
		if err := drawHLine(w, widths, bc.leftTee, bc.horizontal, bc.cross, bc.rightTee); err != nil {
			return err
		}
	}
	for _, row := range rows {
		if err := drawBorderedRow(w, row, widths, aligns, bc.vertical, wrapWidths); err != nil {
			return err
		}
	}
	return drawHLine(w, widths, bc.bottomLeft, bc.horizontal, bc.bottomTee, bc.bottomRight)
}

// tableInnerWidth returns the total character width between the outer vertical
// borders of a bordered table. Each cell contributes its width plus 2 (one
// space of padding on each side), and cells are separated by a single vertical
// border character.
func tableInnerWidth(widths []int) int {
	n := 0
	for _, w := range widths {
		n += w + 2
	}
	if len(widths) > 1 {
		n += len(widths) - 1
	}
	return n
}

func drawHLine(w io.Writer, widths []int, left, fill, mid, right string) error {
	var sb strings.Builder
	sb.WriteString(left)
	for i, width := range widths {
		sb.WriteString(strings.Repeat(fill, width+2))
		if i < len(widths)-1 {
			sb.WriteString(mid)
		}
	}
	sb.WriteString(right)
	_, err := fmt.Fprintln(w, sb.String())
	return err
}

func drawBorderedRow(w io.Writer, cells []string, widths []int, aligns []Alignment, vert string, wrapWidths []int) error {
	wrapped := wrapRow(cells, widths, wrapWidths)
	for line := range maxLines(wrapped) {
		lc := lineCells(wrapped, line)
		var sb strings.Builder
		sb.WriteString(vert)
		for i, width := range widths {
			sb.WriteString(" ")
			sb.WriteString(formatTableCell(lc[i], width, aligns[i]))
			sb.WriteString(" ")
			if i < len(widths)-1 {
				sb.WriteString(vert)
			}
		}
		sb.WriteString(vert)
		if _, err := fmt.Fprintln(w, sb.String()); err != nil {
			return err
		}
	}
	return nil
}

func formatTableCell(s string, width int, align Alignment) string {
	if width > 0 && runewidth.StringWidth(s) > width {
		if width <= 3 {
			s = runewidth.Truncate(s, width, "")
		} else {
			s = runewidth.Truncate(s, width, "...")
		}
	}
	return alignCell(s, width, align)
}

func alignCell(s string, width int, align Alignment) string {
	pad := width - runewidth.StringWidth(s)
	if pad <= 0 {
		return s
	}
	switch align {
	case AlignRight:
		return strings.Repeat(" ", pad) + s
	case AlignCenter:
		left := pad / 2
		right := pad - left
		return strings.Repeat(" ", left) + s + strings.Repeat(" ", right)
	default:
		return s + strings.Repeat(" ", pad)
	}
}
