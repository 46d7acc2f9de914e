package tremote

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is the ordered list of projected records handed to a renderer.
type Document struct {
	Records []Views
}

// Len returns the number of records.
func (d *Document) Len() int { return len(d.Records) }

// Sorted returns a copy of d ordered by directives. d is not modified.
func (d *Document) Sorted(directives []SortDirective) *Document {
	recs := slices.Clone(d.Records)
	SortViews(recs, directives)
	return &Document{Records: recs}
}

var xmlName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9._-]*$`)

func validName(s string) bool {
	return xmlName.MatchString(s) && !strings.HasPrefix(strings.ToLower(s), "xml")
}

// WriteXML streams the document as
//
//	<root>
//	<torrent><compact/><human/><data/></torrent>
//	</root>
//
// with one Write per record so a pipe reader can consume it incrementally.
// Raw data values are trimmed here; view text is written as is.
func (d *Document) WriteXML(w io.Writer) error {
	if _, err := io.WriteString(w, "<root>\n"); err != nil {
		return err
	}
	var buf bytes.Buffer
	for i, rec := range d.Records {
		buf.Reset()
		buf.WriteString("<torrent>\n")
		groups := []struct {
			name string
			g    Group
			trim bool
		}{
			{"compact", rec.Compact, false},
			{"human", rec.Human, false},
			{"data", rec.Data, true},
		}
		for _, grp := range groups {
			if err := writeGroup(&buf, grp.name, grp.g, grp.trim); err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
		}
		buf.WriteString("</torrent>\n")
		if _, err := w.Write(buf.Bytes()); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "</root>\n")
	return err
}

func writeGroup(buf *bytes.Buffer, name string, g Group, trim bool) error {
	buf.WriteString("<" + name + ">\n")
	for _, k := range g.keys {
		if !validName(k) {
			return fmt.Errorf("%w: %q", ErrInvalidKey, k)
		}
		s := asText(g.values[k])
		if trim {
			s = strings.TrimSpace(s)
		}
		buf.WriteString("<" + k + ">")
		if err := xml.EscapeText(buf, []byte(s)); err != nil {
			return err
		}
		buf.WriteString("</" + k + ">\n")
	}
	buf.WriteString("</" + name + ">\n")
	return nil
}

// WriteJSON encodes the records as a JSON array.
func (d *Document) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	recs := d.Records
	if recs == nil {
		recs = []Views{}
	}
	return enc.Encode(recs)
}

// WriteYAML encodes the records as a YAML sequence.
func (d *Document) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	recs := d.Records
	if recs == nil {
		recs = []Views{}
	}
	if err := enc.Encode(recs); err != nil {
		return err
	}
	return enc.Close()
}
