package tremote

import (
	"fmt"
	"html"
	"io"
)

// writeHTML emits the intermediate table markup: one <tr> per row, every
// cell carrying its column alignment and a top vertical alignment.
func writeHTML(w io.Writer, header []string, rows [][]string, aligns []Alignment) error {
	if _, err := fmt.Fprintln(w, "<table>"); err != nil {
		return err
	}

	if len(header) > 0 {
		if _, err := fmt.Fprintln(w, "  <tr>"); err != nil {
			return err
		}
		for i, col := range header {
			if _, err := fmt.Fprintf(w, "    <th%s>%s</th>\n", cellAttrs(aligns, i), html.EscapeString(col)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, "  </tr>"); err != nil {
			return err
		}
	}

	for _, row := range rows {
		if _, err := fmt.Fprintln(w, "  <tr>"); err != nil {
			return err
		}
		for i, cell := range row {
			if _, err := fmt.Fprintf(w, "    <td%s>%s</td>\n", cellAttrs(aligns, i), html.EscapeString(cell)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, "  </tr>"); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(w, "</table>")
	return err
}

func cellAttrs(aligns []Alignment, col int) string {
	align := AlignLeft
	if col < len(aligns) {
		align = aligns[col]
	}
	return fmt.Sprintf(` align="%s" valign="top"`, align)
}
