package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clipmark/internal/logging"
	"clipmark/internal/preflight"
	"clipmark/internal/server"
	"clipmark/internal/store"
)

type serveOptions struct {
	bind       string
	skipChecks bool
}

func newServeCommand(ctx *commandContext) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the annotation backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, ctx, opts)
		},
	}

	cmd.Flags().StringVar(&opts.bind, "bind", "", "Listen address (overrides paths.api_bind)")
	cmd.Flags().BoolVar(&opts.skipChecks, "skip-checks", false, "Start without running preflight checks")
	return cmd
}

func runServe(cmd *cobra.Command, ctx *commandContext, opts serveOptions) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if bind := strings.TrimSpace(opts.bind); bind != "" {
		cfg.Paths.APIBind = bind
	}

	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}

	if !opts.skipChecks {
		results := preflight.RunServer(cfg)
		for _, r := range results {
			if r.Passed {
				continue
			}
			logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.Bool("optional", r.Optional),
			)
		}
		if preflight.Failed(results) {
			return fmt.Errorf("preflight checks failed; run `clipmark check` for details")
		}
	}

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open annotation store", logging.Error(err))
		return err
	}
	defer st.Close()

	srv, err := server.New(cfg, st, logger)
	if err != nil {
		return err
	}

	runCtx := cmd.Context()
	if err := srv.Start(runCtx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "clipmark serving on http://%s (database %s)\n", srv.Addr(), st.Path())

	<-runCtx.Done()
	srv.Stop()
	return nil
}
