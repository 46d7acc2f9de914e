package tremote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"

	"github.com/oklog/run"

	"github.com/steven-gardiner/transmission-remote/internal/logging"
)

// Stage is one external process of the rendering pipeline.
type Stage struct {
	Name string
	Path string
	Args []string
}

// DefaultStages returns the xmllint, xmlstarlet, and html2text chain that
// turns the XML document into a plain-text table for plan.
func DefaultStages(plan Plan) []Stage {
	return []Stage{
		{Name: "normalize", Path: "xmllint", Args: []string{"--format", "-"}},
		{Name: "table", Path: "xmlstarlet", Args: SelectArgs(plan)},
		{Name: "valign", Path: "xmlstarlet", Args: []string{
			"ed", "-O",
			"--insert", "//td", "--type", "attr", "-n", "valign", "--value", "top",
		}},
		{Name: "text", Path: "html2text", Args: []string{"-width", strconv.Itoa(plan.Width)}},
	}
}

// SelectArgs returns the xmlstarlet sel arguments that sort the torrents and
// emit one table row per torrent.
func SelectArgs(plan Plan) []string {
	args := []string{"sel", "--template", "--elem", "table", "--match", "//torrent"}
	for _, d := range plan.Sort {
		args = append(args, "--sort", d.Arg(), d.Path)
	}
	args = append(args, "--elem", "tr")
	for _, c := range plan.Columns {
		args = append(args,
			"--elem", "td",
			"--attr", "align",
			"--output", c.Align.String(),
			"--break",
			"--value-of", c.XPath,
			"--break",
		)
	}
	return args
}

// ExternalRenderer renders through a chain of external processes. The
// document is streamed into the first stage and the last stage writes the
// final text.
type ExternalRenderer struct {
	// Stages overrides DefaultStages when set.
	Stages func(Plan) []Stage
	// Stderr receives every stage's standard error. Defaults to os.Stderr.
	Stderr io.Writer
}

// Render runs the pipeline for doc and plan, writing the result to w.
func (e ExternalRenderer) Render(ctx context.Context, doc *Document, plan Plan, w io.Writer) error {
	stages := DefaultStages(plan)
	if e.Stages != nil {
		stages = e.Stages(plan)
	}
	stderr := e.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	return RunStages(ctx, stages, doc.WriteXML, w, stderr)
}

// RunStages connects stages stdout-to-stdin, feeds the first stage with
// input, and copies the last stage's output to stdout. It returns once every
// stage has exited. The first failure kills the remaining stages and is the
// only error returned.
func RunStages(ctx context.Context, stages []Stage, input func(io.Writer) error, stdout, stderr io.Writer) error {
	if len(stages) == 0 {
		return fmt.Errorf("%w: no stages", ErrStage)
	}
	log := logging.FromContext(ctx)

	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmds := make([]*exec.Cmd, len(stages))
	for i, st := range stages {
		cmd := exec.CommandContext(ctx, st.Path, st.Args...)
		cmd.Stderr = stderr
		cmds[i] = cmd
	}
	links := make([]io.Closer, 0, len(cmds)-1)
	for i := 1; i < len(cmds); i++ {
		out, err := cmds[i-1].StdoutPipe()
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrStage, stages[i-1].Name, err)
		}
		cmds[i].Stdin = out
		links = append(links, out)
	}
	cmds[len(cmds)-1].Stdout = stdout
	stdin, err := cmds[0].StdinPipe()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrStage, stages[0].Name, err)
	}

	for i, cmd := range cmds {
		log.V(1).Info("starting render stage", "stage", stages[i].Name, "path", stages[i].Path, "args", stages[i].Args)
		if err := cmd.Start(); err != nil {
			cancel()
			stdin.Close()
			for _, l := range links {
				_ = l.Close()
			}
			for _, started := range cmds[:i] {
				_ = started.Wait()
			}
			return fmt.Errorf("%w: %s: %w", ErrStage, stages[i].Name, err)
		}
	}
	// Each child holds its own end now. Dropping ours lets an upstream stage
	// see a broken pipe when the stage after it exits.
	for _, l := range links {
		_ = l.Close()
	}

	res := &outcome{cancel: cancel}
	var pending sync.WaitGroup
	pending.Add(len(cmds) + 1)

	// Workers report to res and then wait for the group interrupt, so the
	// collector is always the first actor to return.
	stop := make(chan struct{})
	var stopOnce sync.Once
	interrupt := func(error) {
		cancel()
		stopOnce.Do(func() { close(stop) })
	}
	linger := func() error {
		<-stop
		return nil
	}

	var g run.Group
	g.Add(func() error {
		err := input(stdin)
		if cerr := stdin.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			res.report(fmt.Errorf("%w: write document: %w", ErrStage, err), brokenPipe(err))
		}
		pending.Done()
		return linger()
	}, interrupt)
	for i, cmd := range cmds {
		name := stages[i].Name
		g.Add(func() error {
			if err := cmd.Wait(); err != nil {
				log.V(1).Info("render stage failed", "stage", name, "error", err.Error())
				res.report(fmt.Errorf("%w: %s: %w", ErrStage, name, err), brokenPipe(err))
			}
			pending.Done()
			return linger()
		}, interrupt)
	}
	g.Add(func() error {
		pending.Wait()
		if err := parent.Err(); err != nil {
			return err
		}
		return res.err()
	}, interrupt)
	return g.Run()
}

// outcome collects the failures of one pipeline run. The first failure is
// the cause and tears the pipeline down; failures reported after it are its
// consequences. Broken pipes are ignored: they only mean a downstream stage
// stopped reading, which is either that stage's own failure or a clean
// early exit.
type outcome struct {
	cancel context.CancelFunc

	mu    sync.Mutex
	cause error
}

func (o *outcome) report(err error, broken bool) {
	if broken {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cause != nil {
		return
	}
	o.cause = err
	o.cancel()
}

func (o *outcome) err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cause
}

// brokenPipe reports whether err is a write to, or a process killed by, a
// pipe with no reader.
func brokenPipe(err error) bool {
	if errors.Is(err, syscall.EPIPE) {
		return true
	}
	var exit *exec.ExitError
	if !errors.As(err, &exit) {
		return false
	}
	ws, ok := exit.Sys().(syscall.WaitStatus)
	return ok && ws.Signaled() && ws.Signal() == syscall.SIGPIPE
}
