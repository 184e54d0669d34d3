package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"sourcelink/internal/matching"
	"sourcelink/internal/resolution"
	"sourcelink/internal/services"
)

type resolveView struct {
	Target matching.TargetRecord `json:"target"`
	*resolution.Result
}

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var sourceName string
	var title string
	var explain bool
	var refresh bool

	cmd := &cobra.Command{
		Use:   "resolve [anilist-id]",
		Short: "Resolve an AniList title to its entry on a content source",
		Long: `Resolve an AniList title to its entry on a content source.

Cached mappings are returned without searching the source. Use --refresh to
ignore the cache and rescore, and --explain to print every scored candidate.

Examples:
  sourcelink resolve 20 --source animeindex
  sourcelink resolve --title "Jujutsu Kaisen 2nd Season" --source animeindex --explain`,
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
				resolver := linker.Resolver()

				var result *resolution.Result
				if refresh {
					result, err = resolver.Refresh(cmd.Context(), target)
				} else {
					result, err = resolver.Resolve(cmd.Context(), target)
				}
				if err != nil {
					return err
				}

				if ctx.JSONMode() {
					view := *result
					if !explain {
						view.Ranked = nil
					}
					if err := writeJSON(cmd, resolveView{Target: target, Result: &view}); err != nil {
						return err
					}
				} else {
					out := cmd.OutOrStdout()
					printTarget(out, target)
					printResolution(out, result)
					if explain {
						printExplain(out, result)
					}
				}

				if !result.Resolved {
					return services.Wrap(services.ErrNoMatch, "cli", "resolve",
						fmt.Sprintf("%s on %s", strconv.Quote(target.PrimaryTitle()), resolver.Source()), nil)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&sourceName, "source", "s", "", "Content source to resolve against")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Look the title up on AniList instead of passing an id")
	cmd.Flags().BoolVar(&explain, "explain", false, "Print the score breakdown of every candidate")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Ignore cached mappings and search again")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}

func printTarget(out io.Writer, target matching.TargetRecord) {
	fmt.Fprintf(out, "Target: %s (AniList %s, %s, %s)\n",
		target.PrimaryTitle(), target.CanonicalID, yearLabel(target.Year), displayType(target.ContentType))
}

func printResolution(out io.Writer, result *resolution.Result) {
	if !result.Resolved {
		fmt.Fprintf(out, "Source: %s\nMatch:  none (%d queries, %d failed)\n",
			result.Source, len(result.Queries), result.FailedQueries)
		return
	}

	var notes []string
	if result.HighConfidence {
		notes = append(notes, "high confidence")
	}
	if result.Cached {
		notes = append(notes, "cached")
	}
	suffix := ""
	if len(notes) > 0 {
		suffix = " [" + strings.Join(notes, ", ") + "]"
	}
	m := result.Mapping
	fmt.Fprintf(out, "Source: %s\nMatch:  %s %q score %d%s\n", result.Source, m.SourceID, m.MatchedTitle, m.Score, suffix)
}

func printExplain(out io.Writer, result *resolution.Result) {
	if result.Cached {
		fmt.Fprintln(out, "Served from the mapping cache; pass --refresh to rescore candidates.")
		return
	}
	if len(result.Ranked) == 0 {
		fmt.Fprintln(out, "No candidates were returned.")
		return
	}
	if len(result.Queries) > 0 {
		fmt.Fprintf(out, "Queries: %s\n", strings.Join(result.Queries, " | "))
	}

	headers := []string{"#", "ID", "Title", "Year", "Type", "Text", "Season", "Reason", "Year±", "Type±", "Score"}
	aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignRight, alignLeft, alignRight, alignRight, alignRight}
	rows := make([][]string, 0, len(result.Ranked))
	for i, scored := range result.Ranked {
		c := scored.Candidate
		b := scored.Breakdown
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			c.SourceID,
			truncate(c.Title, 48),
			yearLabel(c.Year),
			displayType(c.ContentType),
			strconv.Itoa(b.Containment),
			strconv.Itoa(b.Season),
			b.SeasonReason,
			strconv.Itoa(b.Year),
			strconv.Itoa(b.Type),
			strconv.Itoa(scored.Score),
		})
	}
	writeRows(out, headers, rows, aligns)
}
