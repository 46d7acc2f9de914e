package tremote

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Direction is a sort order.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// String returns the xmlstarlet order letter.
func (d Direction) String() string {
	if d == Descending {
		return "D"
	}
	return "A"
}

// SortDirective is one key of a multi-column sort. Path always addresses
// the raw data value; formatted views never take part in ordering.
type SortDirective struct {
	Direction Direction
	Type      SortType
	Column    string
	Key       string
	Path      string
}

// Arg renders the directive in xmlstarlet --sort form, e.g. "D:N:L".
func (d SortDirective) Arg() string {
	return d.Direction.String() + ":" + d.Type.String() + ":L"
}

// BuildSortDirectives returns one directive per entry of sortBy. reverse is
// aligned by position and missing entries count as false. A column sorts
// descending when exactly one of its intrinsic order and its reverse flag
// says so.
func (r *Registry) BuildSortDirectives(sortBy []string, reverse []bool) ([]SortDirective, error) {
	out := make([]SortDirective, 0, len(sortBy))
	for i, name := range sortBy {
		def, err := r.Resolve(name)
		if err != nil {
			return nil, fmt.Errorf("sort by: %w", err)
		}
		reversed := i < len(reverse) && reverse[i]
		dir := Ascending
		if def.DescendingByDefault != reversed {
			dir = Descending
		}
		out = append(out, SortDirective{
			Direction: dir,
			Type:      def.SortType,
			Column:    name,
			Key:       def.Key(),
			Path:      "./data/" + def.Key(),
		})
	}
	return out, nil
}

// SortViews orders records in place. Earlier directives take precedence and
// later ones break ties; equal records keep their input order.
func SortViews(records []Views, directives []SortDirective) {
	if len(directives) == 0 {
		return
	}
	slices.SortStableFunc(records, func(a, b Views) int {
		for _, d := range directives {
			c := compareKey(a, b, d)
			if d.Direction == Descending {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

func compareKey(a, b Views, d SortDirective) int {
	av, _ := a.Data.Get(d.Key)
	bv, _ := b.Data.Get(d.Key)
	if d.Type == Text {
		return strings.Compare(strings.TrimSpace(asText(av)), strings.TrimSpace(asText(bv)))
	}
	af, aok := numeric(av)
	bf, bok := numeric(bv)
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1
	case !bok:
		return 1
	default:
		return cmp.Compare(af, bf)
	}
}
