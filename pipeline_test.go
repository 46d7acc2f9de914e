package tremote_test

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tremote "github.com/steven-gardiner/transmission-remote"
)

func requireTools(t *testing.T, tools ...string) {
	t.Helper()
	for _, tool := range tools {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not available: %v", tool, err)
		}
	}
}

func writeString(s string) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	}
}

func TestSelectArgs(t *testing.T) {
	t.Parallel()
	plan := newPlan(t, []string{"id", "name"}, []string{"percentDone"}, []bool{true}, 120)
	assert.Equal(t, []string{
		"sel", "--template", "--elem", "table", "--match", "//torrent",
		"--sort", "D:N:L", "./data/percentDone",
		"--elem", "tr",
		"--elem", "td", "--attr", "align", "--output", "right", "--break",
		"--value-of", "(./compact/id|./human/id|./data/id)[1]", "--break",
		"--elem", "td", "--attr", "align", "--output", "left", "--break",
		"--value-of", "(./compact/name|./human/name|./data/name)[1]", "--break",
	}, tremote.SelectArgs(plan))
}

func TestDefaultStages(t *testing.T) {
	t.Parallel()
	plan := newPlan(t, []string{"id"}, nil, nil, 72)
	stages := tremote.DefaultStages(plan)
	require.Len(t, stages, 4)

	names := make([]string, len(stages))
	for i, st := range stages {
		names[i] = st.Name
	}
	assert.Equal(t, []string{"normalize", "table", "valign", "text"}, names)
	assert.Equal(t, "xmllint", stages[0].Path)
	assert.Equal(t, []string{"--format", "-"}, stages[0].Args)
	assert.Equal(t, tremote.SelectArgs(plan), stages[1].Args)
	assert.Equal(t, []string{"ed", "-O", "--insert", "//td", "--type", "attr", "-n", "valign", "--value", "top"}, stages[2].Args)
	assert.Equal(t, "html2text", stages[3].Path)
	assert.Equal(t, []string{"-width", "72"}, stages[3].Args)
}

func TestRunStages(t *testing.T) {
	t.Parallel()
	requireTools(t, "sh", "cat", "tr")

	stages := []tremote.Stage{
		{Name: "copy", Path: "cat"},
		{Name: "upper", Path: "sh", Args: []string{"-c", "tr a-z A-Z"}},
	}
	var out, errOut bytes.Buffer
	err := tremote.RunStages(context.Background(), stages, writeString("hello\nworld\n"), &out, &errOut)
	require.NoError(t, err)
	assert.Equal(t, "HELLO\nWORLD\n", out.String())
}

func TestRunStagesLargeInput(t *testing.T) {
	t.Parallel()
	requireTools(t, "cat")

	input := strings.Repeat("0123456789abcdef\n", 1<<14)
	stages := []tremote.Stage{{Name: "a", Path: "cat"}, {Name: "b", Path: "cat"}, {Name: "c", Path: "cat"}}
	var out bytes.Buffer
	require.NoError(t, tremote.RunStages(context.Background(), stages, writeString(input), &out, io.Discard))
	assert.Equal(t, input, out.String())
}

func TestRunStagesFailures(t *testing.T) {
	t.Parallel()
	requireTools(t, "sh", "cat", "head", "sleep")

	large := strings.Repeat("<torrent/>\n", 1<<17)
	tests := map[string]struct {
		stages []tremote.Stage
		input  string
		want   string
	}{
		"failing stage": {
			stages: []tremote.Stage{
				{Name: "copy", Path: "cat"},
				{Name: "broken", Path: "sh", Args: []string{"-c", "cat >/dev/null; echo oops >&2; exit 3"}},
			},
			want: "broken",
		},
		"missing binary": {
			stages: []tremote.Stage{
				{Name: "copy", Path: "cat"},
				{Name: "ghost", Path: "/nonexistent/transmission-remote-stage"},
			},
			want: "ghost",
		},
		"upstream fails after downstream finished": {
			stages: []tremote.Stage{
				{Name: "slow", Path: "sh", Args: []string{"-c", "cat >/dev/null; exec >&-; sleep 0.3; exit 3"}},
				{Name: "copy", Path: "cat"},
			},
			want: "slow",
		},
		"first stage exits without reading": {
			stages: []tremote.Stage{
				{Name: "quit", Path: "sh", Args: []string{"-c", "exit 4"}},
			},
			input: large,
			want:  "quit",
		},
		"downstream fails while upstream writes": {
			stages: []tremote.Stage{
				{Name: "copy", Path: "cat"},
				{Name: "early", Path: "sh", Args: []string{"-c", "head -c 1 >/dev/null; exit 5"}},
			},
			input: large,
			want:  "early",
		},
		"no stages": {want: "no stages"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			input := tc.input
			if input == "" {
				input = "<root/>\n"
			}
			var out, errOut bytes.Buffer
			err := tremote.RunStages(context.Background(), tc.stages, writeString(input), &out, &errOut)
			require.ErrorIs(t, err, tremote.ErrStage)
			assert.Contains(t, err.Error(), tc.want)
			assert.NotContains(t, err.Error(), "write document")
		})
	}
}

func TestRunStagesDownstreamStopsEarly(t *testing.T) {
	t.Parallel()
	requireTools(t, "cat", "head")

	stages := []tremote.Stage{
		{Name: "copy", Path: "cat"},
		{Name: "first", Path: "head", Args: []string{"-c", "5"}},
	}
	var out bytes.Buffer
	input := strings.Repeat("abcdefgh\n", 1<<17)
	require.NoError(t, tremote.RunStages(context.Background(), stages, writeString(input), &out, io.Discard))
	assert.Equal(t, "abcde", out.String())
}

func TestRunStagesInputError(t *testing.T) {
	t.Parallel()
	requireTools(t, "cat")

	boom := func(io.Writer) error { return assert.AnError }
	err := tremote.RunStages(context.Background(), []tremote.Stage{{Name: "copy", Path: "cat"}}, boom, io.Discard, io.Discard)
	require.ErrorIs(t, err, tremote.ErrStage)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestRunStagesCanceled(t *testing.T) {
	t.Parallel()
	requireTools(t, "sleep")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stages := []tremote.Stage{{Name: "wait", Path: "sleep", Args: []string{"10"}}}
	err := tremote.RunStages(ctx, stages, writeString(""), io.Discard, io.Discard)
	assert.Error(t, err)
}

func TestExternalRendererStreamsDocument(t *testing.T) {
	t.Parallel()
	requireTools(t, "cat")

	doc, err := tremote.DefaultRegistry().ProjectAll(twoTorrents, []string{"id"}, 120)
	require.NoError(t, err)
	var want bytes.Buffer
	require.NoError(t, doc.WriteXML(&want))

	var gotPlan tremote.Plan
	r := tremote.ExternalRenderer{
		Stages: func(p tremote.Plan) []tremote.Stage {
			gotPlan = p
			return []tremote.Stage{{Name: "copy", Path: "cat"}}
		},
		Stderr: io.Discard,
	}
	plan := newPlan(t, []string{"id"}, nil, nil, 120)
	var out bytes.Buffer
	require.NoError(t, r.Render(context.Background(), doc, plan, &out))
	assert.Equal(t, want.String(), out.String())
	assert.Equal(t, plan, gotPlan)
}

func TestExternalRendererDefaultStages(t *testing.T) {
	t.Parallel()
	requireTools(t, "xmllint", "xmlstarlet", "html2text")

	doc, err := tremote.DefaultRegistry().ProjectAll(twoTorrents, []string{"id", "percentDone", "name"}, 120)
	require.NoError(t, err)
	plan := newPlan(t, []string{"id", "percentDone", "name"}, []string{"percentDone"}, nil, 120)

	var out bytes.Buffer
	require.NoError(t, tremote.ExternalRenderer{Stderr: io.Discard}.Render(context.Background(), doc, plan, &out))
	text := out.String()
	assert.Less(t, strings.Index(text, "050.0"), strings.Index(text, "100.0"))
	assert.Contains(t, text, "foo. bar")
}
