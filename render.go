package tremote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
)

// Sentinel errors for programmatic error handling.
var (
	ErrUnknownColumn     = errors.New("unknown column")
	ErrDuplicateColumn   = errors.New("duplicate column")
	ErrInvalidKey        = errors.New("invalid data key")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrStage             = errors.New("render stage failed")
)

// Format is an output format.
type Format string

const (
	FormatTable Format = "table"
	FormatHTML  Format = "html"
	FormatXML   Format = "xml"
	FormatYAML  Format = "yaml"
	FormatJSON  Format = "json"
)

var formats = []Format{FormatTable, FormatHTML, FormatXML, FormatYAML, FormatJSON}

// String returns the format name.
func (f Format) String() string { return string(f) }

// Formats returns all supported format names.
func Formats() []Format { return slices.Clone(formats) }

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// BorderStyle controls table border characters.
type BorderStyle int

const (
	BorderNone    BorderStyle = iota // space-separated columns
	BorderASCII                      // +-+|
	BorderRounded                    // ╭─╮╰╯│┬┴├┤┼
)

var borderNames = map[string]BorderStyle{
	"none":    BorderNone,
	"ascii":   BorderASCII,
	"rounded": BorderRounded,
}

// ParseBorder parses a border style name.
func ParseBorder(s string) (BorderStyle, error) {
	b, ok := borderNames[s]
	if !ok {
		return 0, fmt.Errorf("unsupported border style %q", s)
	}
	return b, nil
}

// Alignment controls column text alignment.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

// String returns the HTML align attribute value.
func (a Alignment) String() string {
	switch a {
	case AlignRight:
		return "right"
	case AlignCenter:
		return "center"
	default:
		return "left"
	}
}

// ColumnTemplate says where one output column gets its cell text from.
type ColumnTemplate struct {
	Name  string
	Key   string
	Align Alignment
	XPath string
}

// Plan is everything a renderer needs besides the records.
type Plan struct {
	Columns []ColumnTemplate
	Sort    []SortDirective
	Width   int
	Border  BorderStyle
	Header  bool
}

// NewPlan resolves columns and sort keys against the registry.
func (r *Registry) NewPlan(columns, sortBy []string, reverse []bool, width int) (Plan, error) {
	p := Plan{Width: width}
	for _, name := range columns {
		def, err := r.Resolve(name)
		if err != nil {
			return Plan{}, fmt.Errorf("column: %w", err)
		}
		k := def.Key()
		p.Columns = append(p.Columns, ColumnTemplate{
			Name:  name,
			Key:   k,
			Align: def.Align,
			XPath: fmt.Sprintf("(./compact/%s|./human/%s|./data/%s)[1]", k, k, k),
		})
	}
	dirs, err := r.BuildSortDirectives(sortBy, reverse)
	if err != nil {
		return Plan{}, err
	}
	p.Sort = dirs
	return p, nil
}

// Names returns the plan's column names.
func (p Plan) Names() []string {
	out := make([]string, len(p.Columns))
	for i, c := range p.Columns {
		out[i] = c.Name
	}
	return out
}

// Fields returns the record fields the plan reads: its columns followed by
// any sort columns that are not displayed.
func (p Plan) Fields() []string {
	out := p.Names()
	for _, d := range p.Sort {
		if !slices.Contains(out, d.Column) {
			out = append(out, d.Column)
		}
	}
	return out
}

// Renderer turns a document into formatted text according to a plan.
type Renderer interface {
	Render(ctx context.Context, doc *Document, plan Plan, w io.Writer) error
}

// rows sorts a copy of the records and resolves every cell.
func rows(doc *Document, plan Plan) [][]string {
	recs := doc.Sorted(plan.Sort).Records
	out := make([][]string, len(recs))
	for i, rec := range recs {
		row := make([]string, len(plan.Columns))
		for j, c := range plan.Columns {
			row[j], _ = rec.Cell(c.Key)
		}
		out[i] = row
	}
	return out
}

func header(plan Plan) []string {
	if !plan.Header {
		return nil
	}
	return plan.Names()
}

func aligns(plan Plan) []Alignment {
	out := make([]Alignment, len(plan.Columns))
	for i, c := range plan.Columns {
		out[i] = c.Align
	}
	return out
}

// NativeRenderer lays the table out in process.
type NativeRenderer struct{}

// Render sorts the records, resolves cells, and writes a table no wider
// than plan.Width where the text columns allow it.
func (NativeRenderer) Render(ctx context.Context, doc *Document, plan Plan, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return writeTable(w, header(plan), rows(doc, plan), aligns(plan), plan.Border, plan.Width)
}

// HTMLRenderer writes the intermediate table markup.
type HTMLRenderer struct{}

// Render writes one <tr> per sorted record with aligned, top-aligned cells.
func (HTMLRenderer) Render(ctx context.Context, doc *Document, plan Plan, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return writeHTML(w, header(plan), rows(doc, plan), aligns(plan))
}

// Write renders doc in format f. The table format goes through r; the
// other formats are fixed. Every format lists the records in plan.Sort
// order.
func Write(ctx context.Context, w io.Writer, f Format, r Renderer, doc *Document, plan Plan) error {
	switch f {
	case FormatTable:
		if r == nil {
			r = NativeRenderer{}
		}
		return r.Render(ctx, doc, plan, w)
	case FormatHTML:
		return HTMLRenderer{}.Render(ctx, doc, plan, w)
	case FormatXML:
		return doc.Sorted(plan.Sort).WriteXML(w)
	case FormatYAML:
		return doc.Sorted(plan.Sort).WriteYAML(w)
	case FormatJSON:
		return doc.Sorted(plan.Sort).WriteJSON(w)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
}
