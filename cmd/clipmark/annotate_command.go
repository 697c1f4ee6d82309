package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"clipmark/internal/clock"
	"clipmark/internal/gateway"
	"clipmark/internal/geometry"
	"clipmark/internal/keymap"
	"clipmark/internal/session"
)

type annotateOptions struct {
	baseURL    string
	validation bool
	display    string
	script     string
}

func newAnnotateCommand(ctx *commandContext) *cobra.Command {
	var opts annotateOptions

	cmd := &cobra.Command{
		Use:   "annotate",
		Short: "Annotate clips from a backend using line commands",
		Long: "Starts an annotation session against a clipmark backend and reads one command per line\n" +
			"from stdin (or --script). Type help inside the session for the command list.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnnotate(cmd, ctx, opts)
		},
	}

	cmd.Flags().StringVar(&opts.baseURL, "url", "", "Backend base URL (overrides client.base_url)")
	cmd.Flags().BoolVar(&opts.validation, "validation", false, "Annotate validation clips and print scores")
	cmd.Flags().StringVar(&opts.display, "display", "960x540", "Size of the simulated display as WIDTHxHEIGHT")
	cmd.Flags().StringVarP(&opts.script, "script", "f", "", "Read commands from a file instead of stdin")
	return cmd
}

func runAnnotate(cmd *cobra.Command, ctx *commandContext, opts annotateOptions) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}

	layout, err := parseDisplay(opts.display)
	if err != nil {
		return err
	}
	baseURL := strings.TrimSpace(opts.baseURL)
	if baseURL == "" {
		baseURL = cfg.Client.BaseURL
	}
	client, err := gateway.NewClient(baseURL,
		gateway.WithTimeout(cfg.ClientTimeout()),
		gateway.WithValidation(opts.validation || cfg.Client.Validation),
	)
	if err != nil {
		return err
	}

	var in io.Reader = cmd.InOrStdin()
	if path := strings.TrimSpace(opts.script); path != "" {
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open script: %w", err)
		}
		defer file.Close()
		in = file
	}

	runCtx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	loop := clock.NewLoop(64)
	go loop.Run(runCtx)

	out := &lockedWriter{w: cmd.OutOrStdout()}
	sess := session.New(session.Dependencies{
		Gateway:  client,
		Clock:    clock.NewReal(loop),
		Executor: loop,
		Logger:   logger,
		Alerter:  session.AlertFunc(func(msg string) { out.printf("! %s\n", msg) }),
	}, session.OptionsFromConfig(cfg))

	a := &annotator{
		sess: sess,
		loop: loop,
		keys: keymap.FromConfig(cfg.Keys),
		out:  out,
	}

	if err := loop.Do(runCtx, func() { sess.Canvas().SetLayout(layout) }); err != nil {
		return err
	}
	if err := sess.Start(runCtx); err != nil {
		return err
	}
	if err := loop.Do(runCtx, a.printStatus); err != nil {
		return err
	}

	runErr := a.run(runCtx, in)
	_ = loop.Do(runCtx, func() { sess.Playback().Pause() })
	return runErr
}

// parseDisplay builds a layout for a WIDTHxHEIGHT display with the canvas
// covering it and the frame letterboxed inside.
func parseDisplay(value string) (geometry.Layout, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(value)), "x")
	if !ok {
		return geometry.Layout{}, fmt.Errorf("invalid display %q (want WIDTHxHEIGHT)", value)
	}
	width, errW := strconv.Atoi(w)
	height, errH := strconv.Atoi(h)
	if errW != nil || errH != nil || width <= 0 || height <= 0 {
		return geometry.Layout{}, fmt.Errorf("invalid display %q (want WIDTHxHEIGHT)", value)
	}
	screen := geometry.Rect{Width: float64(width), Height: float64(height)}
	return geometry.Layout{Canvas: screen, Image: geometry.Fit(screen)}, nil
}
