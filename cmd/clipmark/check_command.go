package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"clipmark/internal/preflight"
)

var errChecksFailed = errors.New("one or more required checks failed")

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var serverOnly bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run preflight checks for the backend and client",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			var results []preflight.Result
			if serverOnly {
				results = preflight.RunServer(cfg)
			} else {
				results = preflight.RunAll(cmd.Context(), cfg)
			}

			if jsonOutput {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				configDetail := ctx.configPath
				if !ctx.configExists {
					configDetail += " (not found, defaults used)"
				}
				fmt.Fprintln(out, renderStatusLine("Config", statusInfo, configDetail, colorize))
				for _, r := range results {
					fmt.Fprintln(out, renderStatusLine(r.Name, checkStatus(r), r.Detail, colorize))
				}
			}

			if preflight.Failed(results) {
				return errChecksFailed
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVar(&serverOnly, "server-only", false, "Skip the backend reachability probe")
	return cmd
}
