package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"clipmark/internal/config"
	"clipmark/internal/store"
)

type annotationFilterFlags struct {
	annotator string
	clip      string
	limit     int
}

func (f annotationFilterFlags) filter() store.Filter {
	return store.Filter{
		AnnotatorID: strings.TrimSpace(f.annotator),
		ClipFolder:  strings.TrimSpace(f.clip),
		Limit:       f.limit,
	}
}

func (f *annotationFilterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.annotator, "annotator", "", "Only annotations by this annotator id")
	cmd.Flags().StringVar(&f.clip, "clip", "", "Only annotations of this clip folder")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "Maximum number of annotations (0 for all)")
}

func newAnnotationsCommand(ctx *commandContext) *cobra.Command {
	annotationsCmd := &cobra.Command{
		Use:     "annotations",
		Aliases: []string{"ann"},
		Short:   "Inspect stored annotations",
	}

	annotationsCmd.AddCommand(newAnnotationsListCommand(ctx))
	annotationsCmd.AddCommand(newAnnotationsShowCommand(ctx))
	annotationsCmd.AddCommand(newAnnotationsExportCommand(ctx))
	annotationsCmd.AddCommand(newAnnotationsStatsCommand(ctx))

	return annotationsCmd
}

func newAnnotationsListCommand(ctx *commandContext) *cobra.Command {
	var flags annotationFilterFlags
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored annotations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				items, err := st.List(cmd.Context(), flags.filter())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, items)
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "No annotations stored")
					return nil
				}
				fmt.Fprintln(out, annotationTable(items).render())
				return nil
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output annotations as JSON")
	return cmd
}

func annotationTable(items []*store.Annotation) tableView {
	view := tableView{
		headers: []string{"ID", "Annotator", "Clip", "Global", "Groups", "Watched", "Watch", "Submitted"},
		aligns:  []columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignRight, alignLeft},
	}
	groups := 0
	for _, a := range items {
		rec := a.Record
		groups += rec.GroupCount
		view.rows = append(view.rows, []string{
			strconv.FormatInt(a.ID, 10),
			shortID(a.AnnotatorID),
			rec.ClipFolder,
			strconv.Itoa(rec.GlobalIndex),
			strconv.Itoa(rec.GroupCount),
			yesNo(rec.WasWatched),
			formatSeconds(time.Duration(rec.TotalWatchTimeMs) * time.Millisecond),
			rec.Timestamp.UTC().Format(time.RFC3339),
		})
	}
	view.footer = []string{"", formatCount(len(items)) + " rows", "", "", formatCount(groups), "", "", ""}
	return view
}

// shortID trims uuids to their first group for table output.
func shortID(id string) string {
	if id == "" {
		return "-"
	}
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

func newAnnotationsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one stored annotation as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid annotation id %q", args[0])
			}
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				item, err := st.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("annotation %d not found", id)
				}
				return writeJSON(cmd, item)
			})
		},
	}
}

func newAnnotationsExportCommand(ctx *commandContext) *cobra.Command {
	var flags annotationFilterFlags
	var format string
	var outputPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored annotation records",
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(strings.TrimSpace(format))
			if format != "jsonl" && format != "json" {
				return fmt.Errorf("unsupported export format %q (use jsonl or json)", format)
			}
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				items, err := st.List(cmd.Context(), flags.filter())
				if err != nil {
					return err
				}

				var out io.Writer = cmd.OutOrStdout()
				if path := strings.TrimSpace(outputPath); path != "" {
					file, err := os.Create(path)
					if err != nil {
						return fmt.Errorf("create export file: %w", err)
					}
					defer file.Close()
					out = file
				}

				if format == "json" {
					err = encodeJSON(out, items)
				} else {
					err = writeJSONLines(out, items)
				}
				if err != nil {
					return fmt.Errorf("write export: %w", err)
				}
				if outputPath != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "Exported %s annotations to %s\n", formatCount(len(items)), outputPath)
				}
				return nil
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&format, "format", "jsonl", "Export format: jsonl or json")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}

func newAnnotationsStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the annotation database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				stats, err := st.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, stats)
				}
				last := "never"
				if stats.LastCreated != nil {
					last = stats.LastCreated.UTC().Format(time.RFC3339)
				}
				view := tableView{
					title:   st.Path(),
					headers: []string{"Metric", "Value"},
					aligns:  []columnAlignment{alignLeft, alignRight},
					rows: [][]string{
						{"Annotations", formatCount(stats.Annotations)},
						{"Annotators", formatCount(stats.Annotators)},
						{"Clips", formatCount(stats.Clips)},
						{"Summary batches", formatCount(stats.Batches)},
						{"Last stored", last},
					},
				}
				fmt.Fprintln(cmd.OutOrStdout(), view.render())
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output stats as JSON")
	return cmd
}
