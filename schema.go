package tremote

import (
	"fmt"
	"strings"
)

// SortType selects how a column's raw values compare.
type SortType int

const (
	Numeric SortType = iota
	Text
)

// String returns the xmlstarlet data-type letter.
func (t SortType) String() string {
	if t == Text {
		return "T"
	}
	return "N"
}

// Rendered is the output of a view function: the cell text plus any derived
// fields the view wants recorded next to it.
type Rendered struct {
	Text   string
	Fields []Field
}

// Field is one derived key/value pair.
type Field struct {
	Key   string
	Value string
}

// ViewFunc renders a raw field value. An empty Text means "no formatted
// form" and the raw value is shown instead.
type ViewFunc func(v any) Rendered

// ColumnDefinition describes how one named field is sorted, aligned, and
// formatted.
type ColumnDefinition struct {
	Name                string
	Show                bool
	Sortable            bool
	SortType            SortType
	DescendingByDefault bool
	Align               Alignment
	DataKey             string
	Human               ViewFunc
	Compact             ViewFunc
}

// Key returns the name the column's values are stored under.
func (d ColumnDefinition) Key() string {
	if d.DataKey != "" {
		return d.DataKey
	}
	return d.Name
}

// ColumnOption overrides one field of the default column definition.
type ColumnOption func(*ColumnDefinition)

// Column returns the default definition for name with opts applied on top.
// Defaults: shown, not sortable, numeric, right aligned.
func Column(name string, opts ...ColumnOption) ColumnDefinition {
	d := ColumnDefinition{
		Name:     name,
		Show:     true,
		SortType: Numeric,
		Align:    AlignRight,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// Hidden excludes the column from the default column set.
func Hidden() ColumnOption { return func(d *ColumnDefinition) { d.Show = false } }

// Sortable includes the column in the default sort set.
func Sortable() ColumnOption { return func(d *ColumnDefinition) { d.Sortable = true } }

// DescendingFirst makes the column sort descending unless reversed.
func DescendingFirst() ColumnOption { return func(d *ColumnDefinition) { d.DescendingByDefault = true } }

// WithSortType sets the comparison type.
func WithSortType(t SortType) ColumnOption { return func(d *ColumnDefinition) { d.SortType = t } }

// WithAlign sets the cell alignment.
func WithAlign(a Alignment) ColumnOption { return func(d *ColumnDefinition) { d.Align = a } }

// WithDataKey stores the column's values under key instead of its name.
func WithDataKey(key string) ColumnOption { return func(d *ColumnDefinition) { d.DataKey = key } }

// WithHuman sets the human-readable view.
func WithHuman(f ViewFunc) ColumnOption { return func(d *ColumnDefinition) { d.Human = f } }

// WithCompact sets the narrow-terminal view.
func WithCompact(f ViewFunc) ColumnOption { return func(d *ColumnDefinition) { d.Compact = f } }

// Registry is an immutable, ordered set of column definitions.
type Registry struct {
	names []string
	defs  map[string]ColumnDefinition
}

// NewRegistry builds a registry from defs in order. Names and data keys must
// be unique and non-empty, and every definition must be left or right
// aligned.
func NewRegistry(defs ...ColumnDefinition) (*Registry, error) {
	r := &Registry{
		names: make([]string, 0, len(defs)),
		defs:  make(map[string]ColumnDefinition, len(defs)),
	}
	keys := make(map[string]string, len(defs))
	for _, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("%w: empty column name", ErrInvalidKey)
		}
		if _, ok := r.defs[d.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, d.Name)
		}
		if d.Align != AlignLeft && d.Align != AlignRight {
			return nil, fmt.Errorf("column %q: unsupported alignment %s", d.Name, d.Align)
		}
		if d.SortType != Numeric && d.SortType != Text {
			return nil, fmt.Errorf("column %q: unsupported sort type %d", d.Name, d.SortType)
		}
		if !validName(d.Key()) {
			return nil, fmt.Errorf("%w: column %q stores under %q", ErrInvalidKey, d.Name, d.Key())
		}
		if other, ok := keys[d.Key()]; ok {
			return nil, fmt.Errorf("%w: %q and %q both store under %q", ErrDuplicateColumn, other, d.Name, d.Key())
		}
		keys[d.Key()] = d.Name
		r.names = append(r.names, d.Name)
		r.defs[d.Name] = d
	}
	return r, nil
}

// Names returns the column names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Lookup returns the definition for name.
func (r *Registry) Lookup(name string) (ColumnDefinition, bool) {
	d, ok := r.defs[name]
	return d, ok
}

// Resolve is Lookup with an [ErrUnknownColumn] error for missing names.
func (r *Registry) Resolve(name string) (ColumnDefinition, error) {
	d, ok := r.defs[name]
	if !ok {
		return ColumnDefinition{}, fmt.Errorf("%w: %q (known: %s)", ErrUnknownColumn, name, strings.Join(r.names, ", "))
	}
	return d, nil
}

// Validate checks that every name is registered.
func (r *Registry) Validate(names []string) error {
	for _, n := range names {
		if _, err := r.Resolve(n); err != nil {
			return err
		}
	}
	return nil
}

// DefaultColumns returns the columns marked Show, in order.
func (r *Registry) DefaultColumns() []string {
	return r.filter(func(d ColumnDefinition) bool { return d.Show })
}

// DefaultSortBy returns the columns marked Sortable, in order.
func (r *Registry) DefaultSortBy() []string {
	return r.filter(func(d ColumnDefinition) bool { return d.Sortable })
}

func (r *Registry) filter(keep func(ColumnDefinition) bool) []string {
	var out []string
	for _, n := range r.names {
		if keep(r.defs[n]) {
			out = append(out, n)
		}
	}
	return out
}

var defaultRegistry = mustRegistry(builtinColumns()...)

// DefaultRegistry returns the registry of torrent columns. It is shared and
// must not be modified.
func DefaultRegistry() *Registry { return defaultRegistry }

func mustRegistry(defs ...ColumnDefinition) *Registry {
	r, err := NewRegistry(defs...)
	if err != nil {
		panic(err)
	}
	return r
}

func builtinColumns() []ColumnDefinition {
	return []ColumnDefinition{
		Column("id"),
		Column("percentDone",
			Sortable(),
			WithHuman(percentView("%05.1f")),
			WithCompact(percentView("%03.0f")),
		),
		Column("haveValid", WithHuman(sizeView(HumanSize)), WithCompact(sizeView(CompactSize))),
		Column("totalSize", WithHuman(sizeView(HumanSize)), WithCompact(sizeView(CompactSize))),
		Column("eta", WithHuman(etaView)),
		Column("rateDownload", WithHuman(speedView)),
		Column("rateUpload", WithHuman(speedView)),
		Column("name",
			WithAlign(AlignLeft),
			WithSortType(Text),
			WithHuman(nameView),
		),
	}
}

func percentView(format string) ViewFunc {
	return func(v any) Rendered {
		ratio, ok := numeric(v)
		if !ok {
			return Rendered{}
		}
		return Rendered{Text: fmt.Sprintf(format, 100.0*ratio)}
	}
}

func sizeView(size func(float64) (string, bool)) ViewFunc {
	return func(v any) Rendered {
		n, ok := numeric(v)
		if !ok {
			return Rendered{}
		}
		s, _ := size(n)
		return Rendered{Text: s}
	}
}

func speedView(v any) Rendered {
	bps, ok := numeric(v)
	if !ok {
		return Rendered{}
	}
	return Rendered{Text: HumanSpeed(bps)}
}

// InfiniteETA is shown for torrents without a finite estimate.
const InfiniteETA = "* Inf *"

func etaView(v any) Rendered {
	secs, ok := numeric(v)
	if !ok {
		return Rendered{}
	}
	if secs <= 0 {
		return Rendered{Text: InfiniteETA}
	}
	total := int64(secs)
	days := total / 86400
	hours := total % 86400 / 3600
	minutes := total % 3600 / 60

	s := fmt.Sprintf("%03dd %02dh %02dm", days, hours, minutes)
	s = strings.TrimPrefix(s, "000d ")
	s = strings.TrimPrefix(s, "00h ")
	return Rendered{
		Text: s,
		Fields: []Field{
			{Key: "etaDays", Value: fmt.Sprintf("%03d", days)},
			{Key: "etaHours", Value: fmt.Sprintf("%02d", hours)},
			{Key: "etaMinutes", Value: fmt.Sprintf("%02d", minutes)},
		},
	}
}

var nameBreaks = strings.NewReplacer(".", ". ", "_", "_ ")

// nameView adds a break opportunity after each dot and underscore so long
// release names wrap.
func nameView(v any) Rendered {
	return Rendered{Text: nameBreaks.Replace(asText(v))}
}
