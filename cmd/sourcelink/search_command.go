package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"sourcelink/internal/anilist"
)

type searchHit struct {
	ID       int64    `json:"id"`
	Title    string   `json:"title"`
	Romaji   string   `json:"romaji,omitempty"`
	English  string   `json:"english,omitempty"`
	Year     int      `json:"year,omitempty"`
	Type     string   `json:"type,omitempty"`
	Synonyms []string `json:"synonyms,omitempty"`
}

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var mediaType string
	var limit int

	cmd := &cobra.Command{
		Use:   "search <title>",
		Short: "Search AniList, most similar title first",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))

			var kind string
			switch strings.ToLower(strings.TrimSpace(mediaType)) {
			case "", "any":
			case "anime":
				kind = anilist.TypeAnime
			case "manga":
				kind = anilist.TypeManga
			default:
				return fmt.Errorf("invalid --type %q (expected anime, manga or any)", mediaType)
			}

			client, err := ctx.anilistClient()
			if err != nil {
				return err
			}
			results, err := client.Search(cmd.Context(), query, kind, limit)
			if err != nil {
				return err
			}

			hits := make([]searchHit, 0, len(results))
			for _, m := range results {
				target := m.Target()
				hits = append(hits, searchHit{
					ID:       m.ID,
					Title:    m.DisplayTitle(),
					Romaji:   target.TitleRomaji,
					English:  target.TitleEnglish,
					Year:     target.Year,
					Type:     target.ContentType,
					Synonyms: target.Synonyms,
				})
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, hits)
			}

			out := cmd.OutOrStdout()
			if len(hits) == 0 {
				fmt.Fprintf(out, "No AniList results for %q\n", query)
				return nil
			}
			rows := make([][]string, 0, len(hits))
			for _, h := range hits {
				rows = append(rows, []string{
					strconv.FormatInt(h.ID, 10),
					truncate(h.Title, 60),
					yearLabel(h.Year),
					displayType(h.Type),
				})
			}
			writeRows(out, []string{"AniList ID", "Title", "Year", "Type"}, rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft})
			return nil
		},
	}

	cmd.Flags().StringVar(&mediaType, "type", "anime", "Media type to search: anime, manga or any")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of results (1-50)")
	return cmd
}

func newSourcesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List configured content sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, cfg.Sources)
			}

			out := cmd.OutOrStdout()
			if len(cfg.Sources) == 0 {
				fmt.Fprintln(out, "No sources configured. Add [[sources]] entries to the config file.")
				return nil
			}
			rows := make([][]string, 0, len(cfg.Sources))
			for _, src := range cfg.Sources {
				rows = append(rows, []string{src.Name, displayType(src.Kind), src.SearchURL})
			}
			writeRows(out, []string{"Name", "Kind", "Search URL"}, rows, nil)
			return nil
		},
	}
}
