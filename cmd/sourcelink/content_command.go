package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"sourcelink/internal/matching"
	"sourcelink/internal/resolution"
	"sourcelink/internal/sources"
)

type contentView struct {
	Target matching.TargetRecord `json:"target"`
	*resolution.LinkedContent
}

func newContentCommand(ctx *commandContext) *cobra.Command {
	var sourceName string
	var title string

	cmd := &cobra.Command{
		Use:   "content [anilist-id]",
		Short: "List the episodes or chapters of a title on a content source",
		Long: `List the episodes or chapters of a title on a content source.

The title is resolved first. When the source no longer knows the mapped entry
the mapping is dropped and the title is resolved once more.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var idArg string
			if len(args) == 1 {
				idArg = args[0]
			}
			if idArg == "" && strings.TrimSpace(title) == "" {
				return fmt.Errorf("provide an AniList id or --title")
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			target, err := ctx.lookupTarget(cmd.Context(), idArg, title, mediaTypeFor(cfg, sourceName))
			if err != nil {
				return err
			}

			return ctx.withEngine(func(engine *resolution.Engine) error {
				linker, err := engine.Linker(sourceName)
				if err != nil {
					return err
				}
				linked, err := linker.ListContent(cmd.Context(), target)
				if err != nil {
					return err
				}

				if ctx.JSONMode() {
					view := *linked
					if view.Result != nil {
						stripped := *view.Result
						stripped.Ranked = nil
						view.Result = &stripped
					}
					return writeJSON(cmd, contentView{Target: target, LinkedContent: &view})
				}

				out := cmd.OutOrStdout()
				printTarget(out, target)
				printResolution(out, linked.Result)
				if linked.Reresolved {
					fmt.Fprintln(out, "Note:   the previous mapping was stale and has been replaced")
				}
				fmt.Fprintf(out, "Items:  %d\n\n", len(linked.Items))

				rows := make([][]string, 0, len(linked.Items))
				for i, item := range linked.Items {
					rows = append(rows, []string{
						strconv.Itoa(i + 1),
						formatNumber(item.Number),
						orDash(truncate(item.Title, 60)),
						item.ID,
					})
				}
				writeRows(out, []string{"#", "Number", "Title", "ID"}, rows,
					[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft})
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&sourceName, "source", "s", "", "Content source to list from")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Look the title up on AniList instead of passing an id")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}

func newDetailCommand(ctx *commandContext) *cobra.Command {
	var sourceName string

	cmd := &cobra.Command{
		Use:   "detail <content-id>",
		Short: "Show the pages or streams of one episode or chapter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contentID := strings.TrimSpace(args[0])
			if contentID == "" {
				return fmt.Errorf("content id must not be empty")
			}
			return ctx.withEngine(func(engine *resolution.Engine) error {
				linker, err := engine.Linker(sourceName)
				if err != nil {
					return err
				}
				detail, err := linker.ContentDetail(cmd.Context(), contentID)
				if err != nil {
					return err
				}

				if ctx.JSONMode() {
					return writeJSON(cmd, detail)
				}
				printDetail(cmd, detail)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&sourceName, "source", "s", "", "Content source serving the item")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}

func printDetail(cmd *cobra.Command, detail sources.ContentDetail) {
	out := cmd.OutOrStdout()
	if detail.Empty() {
		fmt.Fprintf(out, "Content %s: nothing available\n", detail.ContentID)
		return
	}
	if len(detail.Streams) > 0 {
		fmt.Fprintf(out, "Content %s: %d streams\n\n", detail.ContentID, len(detail.Streams))
		rows := make([][]string, 0, len(detail.Streams))
		for _, s := range detail.Streams {
			rows = append(rows, []string{orDash(s.Quality), orDash(s.Type), s.URL})
		}
		writeRows(out, []string{"Quality", "Type", "URL"}, rows, nil)
	}
	if len(detail.Pages) > 0 {
		if len(detail.Streams) > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "Content %s: %d pages\n\n", detail.ContentID, len(detail.Pages))
		rows := make([][]string, 0, len(detail.Pages))
		for _, p := range detail.Pages {
			rows = append(rows, []string{strconv.Itoa(p.Index), p.URL})
		}
		writeRows(out, []string{"Page", "URL"}, rows, []columnAlignment{alignRight, alignLeft})
	}
}

// formatNumber prints whole episode numbers without a fraction and keeps
// split chapters such as 10.5.
func formatNumber(n float64) string {
	if n <= 0 {
		return "-"
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}
