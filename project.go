package tremote

import (
	"bytes"
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"
)

// CompactWidth is the render width below which compact views are computed.
const CompactWidth = 50

// Group is an insertion-ordered set of keyed values.
type Group struct {
	keys   []string
	values map[string]any
}

// Set stores v under key. Re-setting a key keeps its original position.
func (g *Group) Set(key string, v any) {
	if g.values == nil {
		g.values = make(map[string]any)
	}
	if _, ok := g.values[key]; !ok {
		g.keys = append(g.keys, key)
	}
	g.values[key] = v
}

// Get returns the value stored under key.
func (g Group) Get(key string) (any, bool) {
	v, ok := g.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (g Group) Keys() []string {
	out := make([]string, len(g.keys))
	copy(out, g.keys)
	return out
}

// Len returns the number of keys.
func (g Group) Len() int { return len(g.keys) }

// MarshalJSON encodes the group as an object in insertion order.
func (g Group) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range g.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(g.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML encodes the group as a mapping in insertion order.
func (g Group) MarshalYAML() (any, error) {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range g.keys {
		var val yaml.Node
		if err := val.Encode(plain(g.values[k])); err != nil {
			return nil, err
		}
		n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: k}, &val)
	}
	return n, nil
}

// Views holds the three renderings of one record, keyed by data key.
type Views struct {
	Compact Group `json:"compact" yaml:"compact"`
	Human   Group `json:"human" yaml:"human"`
	Data    Group `json:"data" yaml:"data"`
}

// Cell returns the display text for key, preferring the compact view, then
// the human view, then the trimmed raw value.
func (v Views) Cell(key string) (string, bool) {
	if s, ok := v.Compact.Get(key); ok {
		return asText(s), true
	}
	if s, ok := v.Human.Get(key); ok {
		return asText(s), true
	}
	if raw, ok := v.Data.Get(key); ok {
		return strings.TrimSpace(asText(raw)), true
	}
	return "", false
}

// Project builds the views of rec for columns using the default registry.
func Project(rec Record, columns []string, width int) (Views, error) {
	return defaultRegistry.Project(rec, columns, width)
}

// Project builds the views of rec for columns, in column order. Raw values
// are copied verbatim. Human views are computed for every present value and
// compact views only when width is below [CompactWidth]. An unregistered
// column fails the whole projection.
func (r *Registry) Project(rec Record, columns []string, width int) (Views, error) {
	var v Views
	for _, name := range columns {
		def, err := r.Resolve(name)
		if err != nil {
			return Views{}, err
		}
		raw, ok := rec[name]
		if !ok || !present(raw) {
			continue
		}
		key := def.Key()
		v.Data.Set(key, raw)

		if def.Human != nil {
			apply(&v.Human, key, raw, def.Human)
		}
		if def.Compact != nil && width < CompactWidth {
			apply(&v.Compact, key, raw, def.Compact)
		}
	}
	return v, nil
}

func apply(g *Group, key string, raw any, view ViewFunc) {
	out := view(raw)
	s := out.Text
	if s == "" {
		s = asText(raw)
	}
	g.Set(key, s)
	for _, f := range out.Fields {
		if f.Key == key {
			continue
		}
		g.Set(f.Key, f.Value)
	}
}

// ProjectAll projects every record and wraps them in a document.
func (r *Registry) ProjectAll(recs []Record, columns []string, width int) (*Document, error) {
	doc := &Document{Records: make([]Views, 0, len(recs))}
	for _, rec := range recs {
		v, err := r.Project(rec, columns, width)
		if err != nil {
			return nil, err
		}
		doc.Records = append(doc.Records, v)
	}
	return doc, nil
}
