package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	tremote "github.com/steven-gardiner/transmission-remote"
	"github.com/steven-gardiner/transmission-remote/internal/config"
	"github.com/steven-gardiner/transmission-remote/internal/logging"
	"github.com/steven-gardiner/transmission-remote/internal/transmission"
)

type rootOptions struct {
	configPath  string
	listColumns bool
	flags       config.Config
}

func newRootCommand() *cobra.Command {
	reg := tremote.DefaultRegistry()
	opts := &rootOptions{flags: config.Default()}

	cmd := &cobra.Command{
		Use:           "transmission-remote [host [port]]",
		Short:         "List a Transmission daemon's torrents as a text table",
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, args, reg, opts)
		},
	}

	names := strings.Join(reg.Names(), ", ")
	f := cmd.Flags()
	f.SortFlags = false
	f.StringVarP(&opts.flags.Host, "host", "H", opts.flags.Host, "Daemon host")
	f.IntVarP(&opts.flags.Port, "port", "P", opts.flags.Port, "Daemon RPC port")
	f.StringVarP(&opts.flags.Auth, "auth", "n", "", "Credentials as user:pass")
	f.IntVarP(&opts.flags.Width, "WIDTH", "W", 0, "Table width (default: terminal width or 120)")
	f.BoolVarP(&opts.flags.List, "list", "l", false, "Fetch and print the torrent list")
	f.BoolSliceVar(&opts.flags.Reverse, "reverse", nil, "Reverse the sort order of the sort column at the same position (repeatable)")
	f.Lookup("reverse").NoOptDefVal = "true"
	f.StringArrayVar(&opts.flags.Columns, "column", nil, "Column to show (repeatable; one of "+names+")")
	f.StringArrayVar(&opts.flags.SortBy, "sortby", nil, "Column to sort by (repeatable; one of "+names+")")
	f.StringVar(&opts.flags.Renderer, "renderer", opts.flags.Renderer, "Table renderer: native or external")
	f.StringVar(&opts.flags.Format, "format", opts.flags.Format, "Output format: "+formatNames())
	f.StringVar(&opts.flags.Border, "border", opts.flags.Border, "Table border: none, ascii, or rounded")
	f.BoolVar(&opts.flags.Header, "header", false, "Print a header row")
	f.StringVar(&opts.flags.Timeout, "timeout", opts.flags.Timeout, "RPC timeout")
	f.BoolVarP(&opts.flags.Verbose, "verbose", "v", false, "Log debug details to stderr")
	f.StringVarP(&opts.configPath, "config", "c", "", "Configuration file path")
	f.BoolVar(&opts.listColumns, "list-columns", false, "Print the available column names and exit")

	return cmd
}

func formatNames() string {
	var names []string
	for _, f := range tremote.Formats() {
		names = append(names, f.String())
	}
	return strings.Join(names, ", ")
}

func runRoot(cmd *cobra.Command, args []string, reg *tremote.Registry, opts *rootOptions) error {
	out := cmd.OutOrStdout()

	if opts.listColumns {
		for _, name := range reg.Names() {
			fmt.Fprintln(out, name)
		}
		return nil
	}

	cfg, err := resolveConfig(cmd.Flags(), args, opts, reg, out)
	if err != nil {
		return err
	}

	log := logging.New(cmd.ErrOrStderr(), cmd.Name(), cfg.Verbose)
	defer func() { _ = log.Sync() }()
	ctx := logging.WithLogger(cmd.Context(), log.Logger)

	if !cfg.List {
		return cmd.Help()
	}
	return listTorrents(ctx, cfg, reg, out, cmd.ErrOrStderr())
}

// resolveConfig layers defaults, the config file, positional arguments, and
// explicitly set flags, then validates the result.
func resolveConfig(flags *pflag.FlagSet, args []string, opts *rootOptions, reg *tremote.Registry, out io.Writer) (config.Config, error) {
	cfg, _, _, err := config.Load(opts.configPath)
	if err != nil {
		return config.Config{}, err
	}

	if len(args) > 0 && !flags.Changed("host") {
		cfg.Host = args[0]
	}
	if len(args) > 1 && !flags.Changed("port") {
		port, err := strconv.Atoi(args[1])
		if err != nil {
			return config.Config{}, fmt.Errorf("%w: port %q", config.ErrInvalidOption, args[1])
		}
		cfg.Port = port
	}
	applyFlags(flags, &cfg, opts.flags)

	if cfg.Width == 0 {
		cfg.Width = terminalWidth(out)
	}
	cfg.Normalize(reg)
	if err := cfg.Validate(reg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func applyFlags(flags *pflag.FlagSet, cfg *config.Config, fv config.Config) {
	set := map[string]func(){
		"host":     func() { cfg.Host = fv.Host },
		"port":     func() { cfg.Port = fv.Port },
		"auth":     func() { cfg.Auth = fv.Auth },
		"WIDTH":    func() { cfg.Width = fv.Width },
		"list":     func() { cfg.List = fv.List },
		"reverse":  func() { cfg.Reverse = fv.Reverse },
		"column":   func() { cfg.Columns = fv.Columns },
		"sortby":   func() { cfg.SortBy = fv.SortBy },
		"renderer": func() { cfg.Renderer = fv.Renderer },
		"format":   func() { cfg.Format = fv.Format },
		"border":   func() { cfg.Border = fv.Border },
		"header":   func() { cfg.Header = fv.Header },
		"timeout":  func() { cfg.Timeout = fv.Timeout },
		"verbose":  func() { cfg.Verbose = fv.Verbose },
	}
	for name, apply := range set {
		if flags.Changed(name) {
			apply()
		}
	}
}

// terminalWidth returns the column count of w when it is a terminal, or 0.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 0
	}
	fd := f.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return 0
	}
	width, _, err := term.GetSize(int(fd))
	if err != nil || width <= 0 {
		return 0
	}
	return width
}

func listTorrents(ctx context.Context, cfg config.Config, reg *tremote.Registry, out, errOut io.Writer) error {
	log := logging.FromContext(ctx)

	plan, err := cfg.Plan(reg)
	if err != nil {
		return err
	}
	format, err := tremote.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}
	spec, err := cfg.HostSpec()
	if err != nil {
		return err
	}

	client := transmission.New(spec)
	log.V(1).Info("listing torrents", "endpoint", client.Endpoint(), "fields", plan.Fields())
	torrents, err := client.List(ctx, plan.Fields())
	if err != nil {
		log.Error(err, "torrent list failed", "endpoint", client.Endpoint())
		return fmt.Errorf("list torrents: %w", err)
	}
	log.V(1).Info("fetched torrents", "count", len(torrents))

	recs := make([]tremote.Record, len(torrents))
	for i, t := range torrents {
		recs[i] = tremote.Record(t)
	}
	doc, err := reg.ProjectAll(recs, plan.Fields(), plan.Width)
	if err != nil {
		return err
	}

	var renderer tremote.Renderer = tremote.NativeRenderer{}
	if cfg.Renderer == config.RendererExternal {
		renderer = tremote.ExternalRenderer{Stderr: errOut}
	}
	if err := tremote.Write(ctx, out, format, renderer, doc, plan); err != nil {
		log.Error(err, "render failed", "renderer", cfg.Renderer, "format", format)
		return fmt.Errorf("render: %w", err)
	}
	return nil
}
