package tremote_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tremote "github.com/steven-gardiner/transmission-remote"
)

func project(t *testing.T, rec tremote.Record, width int, columns ...string) tremote.Views {
	t.Helper()
	v, err := tremote.Project(rec, columns, width)
	require.NoError(t, err)
	return v
}

func human(t *testing.T, v tremote.Views, key string) string {
	t.Helper()
	s, ok := v.Human.Get(key)
	require.True(t, ok, "human %s", key)
	return s.(string)
}

func TestETAView(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		secs    any
		want    string
		derived []string
	}{
		"zero is infinite":     {secs: 0, want: tremote.InfiniteETA},
		"negative is infinite": {secs: -1, want: tremote.InfiniteETA},
		"minutes only":         {secs: 60, want: "01m", derived: []string{"000", "00", "01"}},
		"hours and minutes":    {secs: 3660, want: "01h 01m", derived: []string{"000", "01", "01"}},
		"days":                 {secs: 90000, want: "001d 01h 00m", derived: []string{"001", "01", "00"}},
		"days without hours":   {secs: 86400 + 120, want: "001d 00h 02m", derived: []string{"001", "00", "02"}},
		"seconds truncate":     {secs: 59, want: "00m", derived: []string{"000", "00", "00"}},
		"json number":          {secs: json.Number("3660"), want: "01h 01m", derived: []string{"000", "01", "01"}},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			v := project(t, tremote.Record{"eta": tc.secs}, 120, "eta")
			assert.Equal(t, tc.want, human(t, v, "eta"))
			if tc.derived == nil {
				assert.Equal(t, []string{"eta"}, v.Human.Keys())
				return
			}
			assert.Equal(t, []string{"eta", "etaDays", "etaHours", "etaMinutes"}, v.Human.Keys())
			assert.Equal(t, tc.derived, []string{
				human(t, v, "etaDays"), human(t, v, "etaHours"), human(t, v, "etaMinutes"),
			})
		})
	}
}

func TestNameView(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		name string
		want string
	}{
		"dots":        {name: "foo.bar", want: "foo. bar"},
		"underscores": {name: "a_b", want: "a_ b"},
		"mixed":       {name: "My.Show_S01.mkv", want: "My. Show_ S01. mkv"},
		"plain":       {name: "ubuntu", want: "ubuntu"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			v := project(t, tremote.Record{"name": tc.name}, 120, "name")
			assert.Equal(t, tc.want, human(t, v, "name"))
			raw, _ := v.Data.Get("name")
			assert.Equal(t, tc.name, raw)
		})
	}
}

func TestProjectViews(t *testing.T) {
	t.Parallel()
	rec := tremote.Record{
		"id":           json.Number("7"),
		"percentDone":  0.5,
		"haveValid":    999,
		"totalSize":    1.5e9,
		"rateDownload": 1500,
		"name":         "foo.bar",
	}
	cols := []string{"id", "percentDone", "haveValid", "totalSize", "rateDownload", "name"}

	wide := project(t, rec, 120, cols...)
	assert.Equal(t, 0, wide.Compact.Len())
	assert.Equal(t, []string{"percentDone", "haveValid", "totalSize", "rateDownload", "name"}, wide.Human.Keys())
	assert.Equal(t, cols, wide.Data.Keys())
	assert.Equal(t, "050.0", human(t, wide, "percentDone"))
	assert.Equal(t, "999", human(t, wide, "haveValid"))
	assert.Equal(t, "  1.50 GB", human(t, wide, "totalSize"))
	assert.Equal(t, "1.500000", human(t, wide, "rateDownload"))

	narrow := project(t, rec, 49, cols...)
	assert.Equal(t, []string{"percentDone", "haveValid", "totalSize"}, narrow.Compact.Keys())
	c, _ := narrow.Compact.Get("percentDone")
	assert.Equal(t, "050", c)
	c, _ = narrow.Compact.Get("totalSize")
	assert.Equal(t, "  2 GB", c)

	edge := project(t, rec, tremote.CompactWidth, cols...)
	assert.Equal(t, 0, edge.Compact.Len())
}

func TestProjectPresence(t *testing.T) {
	t.Parallel()
	rec := tremote.Record{
		"id":          0,
		"percentDone": 0,
		"eta":         nil,
		"name":        "  ",
	}
	v := project(t, rec, 120, "id", "percentDone", "eta", "name", "totalSize")

	assert.Equal(t, []string{"id", "percentDone"}, v.Data.Keys())
	assert.Equal(t, "000.0", human(t, v, "percentDone"))
	_, ok := v.Human.Get("eta")
	assert.False(t, ok)
	_, ok = v.Cell("name")
	assert.False(t, ok)
}

func TestProjectUnknownColumn(t *testing.T) {
	t.Parallel()
	_, err := tremote.Project(tremote.Record{"id": 1}, []string{"id", "ratio"}, 120)
	assert.ErrorIs(t, err, tremote.ErrUnknownColumn)
}

func TestProjectIsIdempotent(t *testing.T) {
	t.Parallel()
	rec := tremote.Record{"id": 1, "eta": 90000, "percentDone": 0.25, "name": "a.b"}
	cols := []string{"id", "eta", "percentDone", "name"}
	first := project(t, rec, 40, cols...)
	second := project(t, rec, 40, cols...)
	assert.Equal(t, first, second)
}

func TestProjectDataKey(t *testing.T) {
	t.Parallel()
	reg, err := tremote.NewRegistry(tremote.Column("ratio", tremote.WithDataKey("uploadRatio")))
	require.NoError(t, err)

	v, err := reg.Project(tremote.Record{"ratio": 1.25}, []string{"ratio"}, 120)
	require.NoError(t, err)
	assert.Equal(t, []string{"uploadRatio"}, v.Data.Keys())
	cell, ok := v.Cell("uploadRatio")
	assert.True(t, ok)
	assert.Equal(t, "1.25", cell)
}

func TestCellPrecedence(t *testing.T) {
	t.Parallel()
	var v tremote.Views
	v.Data.Set("k", "  raw  ")
	cell, _ := v.Cell("k")
	assert.Equal(t, "raw", cell)

	v.Human.Set("k", "human")
	cell, _ = v.Cell("k")
	assert.Equal(t, "human", cell)

	v.Compact.Set("k", "compact")
	cell, _ = v.Cell("k")
	assert.Equal(t, "compact", cell)
}

func TestGroupSetKeepsPosition(t *testing.T) {
	t.Parallel()
	var g tremote.Group
	g.Set("b", 1)
	g.Set("a", 2)
	g.Set("b", 3)
	assert.Equal(t, []string{"b", "a"}, g.Keys())
	got, _ := g.Get("b")
	assert.Equal(t, 3, got)
}

func TestProjectAll(t *testing.T) {
	t.Parallel()
	reg := tremote.DefaultRegistry()
	doc, err := reg.ProjectAll([]tremote.Record{{"id": 1}, {"id": 2}}, []string{"id"}, 120)
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Len())

	_, err = reg.ProjectAll([]tremote.Record{{"id": 1}}, []string{"nope"}, 120)
	assert.ErrorIs(t, err, tremote.ErrUnknownColumn)
}
