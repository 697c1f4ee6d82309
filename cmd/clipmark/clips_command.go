package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"clipmark/internal/catalog"
	"clipmark/internal/config"
	"clipmark/internal/store"
)

type clipRow struct {
	Index       int    `json:"index"`
	GlobalIndex int    `json:"globalIndex"`
	Folder      string `json:"folder"`
	Frames      int    `json:"frames"`
	Block       int    `json:"block"`
}

type blockRow struct {
	Block      int  `json:"block"`
	FirstClip  int  `json:"firstClip"`
	LastClip   int  `json:"lastClip"`
	Annotators int  `json:"annotators"`
	Capacity   int  `json:"capacity"`
	Open       bool `json:"open"`
}

func newClipsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var validation bool

	cmd := &cobra.Command{
		Use:   "clips",
		Short: "List clip folders the backend would serve",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			dir := cfg.Paths.VideosDir
			if validation {
				dir = cfg.Paths.ValidationVideosDir
			}
			cat, err := catalog.Scan(dir, cfg.Clips.FrameExtension, cfg.Clips.FramePadding)
			if err != nil {
				return err
			}

			rows := clipRows(cat, cfg, validation)
			if jsonOutput {
				return writeJSON(cmd, rows)
			}
			if len(rows) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No clips found in %s\n", dir)
				return nil
			}

			frames := 0
			view := tableView{
				title:   dir,
				headers: []string{"#", "Global", "Folder", "Frames", "Block"},
				aligns:  []columnAlignment{alignRight, alignRight, alignLeft, alignRight, alignRight},
			}
			for _, r := range rows {
				frames += r.Frames
				block := "-"
				if r.Block > 0 {
					block = strconv.Itoa(r.Block)
				}
				view.rows = append(view.rows, []string{
					strconv.Itoa(r.Index), strconv.Itoa(r.GlobalIndex), r.Folder, formatCount(r.Frames), block,
				})
			}
			view.footer = []string{"", "", formatCount(len(rows)) + " clips", formatCount(frames), ""}
			fmt.Fprintln(cmd.OutOrStdout(), view.render())
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output clips as JSON")
	cmd.Flags().BoolVar(&validation, "validation", false, "List validation clips instead")
	return cmd
}

// clipRows numbers blocks from 1; trailing clips outside a full block and
// validation clips get block 0.
func clipRows(cat *catalog.Catalog, cfg *config.Config, validation bool) []clipRow {
	per := cfg.Clips.ClipsPerBlock
	full := 0
	if per > 0 {
		full = cat.Len() / per * per
	}
	clips := cat.Clips()
	rows := make([]clipRow, 0, len(clips))
	for _, c := range clips {
		row := clipRow{Index: c.Index, GlobalIndex: c.GlobalIndex(), Folder: c.Folder, Frames: c.Frames}
		if !validation && c.Index < full {
			row.Block = c.Index/per + 1
		}
		rows = append(rows, row)
	}
	return rows
}

func newBlocksCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "blocks",
		Short: "Show how many annotators completed each block",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				cat, err := catalog.Scan(cfg.Paths.VideosDir, cfg.Clips.FrameExtension, cfg.Clips.FramePadding)
				if err != nil {
					return err
				}
				rows, err := blockRows(cmd, cat, st, cfg)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, rows)
				}
				if len(rows) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "Fewer than %d clips; no blocks to assign\n", cfg.Clips.ClipsPerBlock)
					return nil
				}

				open := 0
				view := tableView{
					headers: []string{"Block", "Clips", "Annotators", "Progress", "Status"},
					aligns:  []columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignLeft},
				}
				for _, r := range rows {
					status := "full"
					if r.Open {
						status = "open"
						open++
					}
					view.rows = append(view.rows, []string{
						strconv.Itoa(r.Block),
						fmt.Sprintf("%d-%d", r.FirstClip, r.LastClip),
						fmt.Sprintf("%d/%d", r.Annotators, r.Capacity),
						formatPercent(r.Annotators, r.Capacity),
						status,
					})
				}
				view.footer = []string{"", "", "", "", fmt.Sprintf("%d open", open)}
				fmt.Fprintln(cmd.OutOrStdout(), view.render())
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output blocks as JSON")
	return cmd
}

func blockRows(cmd *cobra.Command, cat *catalog.Catalog, st *store.Store, cfg *config.Config) ([]blockRow, error) {
	per := cfg.Clips.ClipsPerBlock
	capacity := cfg.Clips.AnnotatorsPerBlock
	blocks := catalog.NewAssigner(cat, st, per, capacity).Blocks()
	rows := make([]blockRow, 0, blocks)
	for b := 0; b < blocks; b++ {
		last := (b + 1) * per
		done, err := st.CountAtGlobalIndex(cmd.Context(), last)
		if err != nil {
			return nil, fmt.Errorf("count block %d: %w", b+1, err)
		}
		rows = append(rows, blockRow{
			Block:      b + 1,
			FirstClip:  b*per + 1,
			LastClip:   last,
			Annotators: done,
			Capacity:   capacity,
			Open:       done < capacity,
		})
	}
	return rows, nil
}
