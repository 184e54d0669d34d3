package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"sourcelink/internal/mappingstore"
)

func newMappingCommand(ctx *commandContext) *cobra.Command {
	mappingCmd := &cobra.Command{
		Use:   "mapping",
		Short: "Inspect and manage persisted resolution mappings",
		Long: `Inspect and manage persisted resolution mappings.

A mapping records which entry on a content source an AniList title resolved
to, so later lookups skip searching the source.

Commands:
  list     - List mappings, newest first
  remove   - Remove the mapping of one title on one source
  clear    - Remove all mappings, or those of one source`,
	}

	mappingCmd.AddCommand(newMappingListCommand(ctx))
	mappingCmd.AddCommand(newMappingRemoveCommand(ctx))
	mappingCmd.AddCommand(newMappingClearCommand(ctx))

	return mappingCmd
}

func newMappingListCommand(ctx *commandContext) *cobra.Command {
	var sourceName string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List persisted mappings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store mappingstore.Store) error {
				entries, err := store.List(cmd.Context(), sourceName)
				if err != nil {
					return err
				}

				if ctx.JSONMode() {
					if entries == nil {
						entries = []mappingstore.Mapping{}
					}
					return writeJSON(cmd, entries)
				}

				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "Mappings: none")
					return nil
				}
				fmt.Fprintf(out, "Mappings: %d\n\n", len(entries))

				const stampLayout = "2006-01-02 15:04"
				rows := make([][]string, 0, len(entries))
				for _, m := range entries {
					resolvedAt := "unknown"
					if !m.ResolvedAt.IsZero() {
						resolvedAt = m.ResolvedAt.Local().Format(stampLayout)
					}
					rows = append(rows, []string{
						m.Source,
						m.CanonicalID,
						m.SourceID,
						truncate(m.MatchedTitle, 48),
						strconv.Itoa(m.Score),
						resolvedAt,
					})
				}
				writeRows(out, []string{"Source", "AniList ID", "Source ID", "Matched Title", "Score", "Resolved"}, rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignRight, alignLeft})
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&sourceName, "source", "s", "", "Only list mappings of this source")
	return cmd
}

func newMappingRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <source> <anilist-id>",
		Short: "Remove the mapping of one title on one source",
		Long: `Remove the mapping of one title on one source. The next lookup searches
the source again.

Example:
  sourcelink mapping remove animeindex 20`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := strings.TrimSpace(args[0])
			canonicalID := strings.TrimSpace(args[1])
			if _, err := parseAniListID(canonicalID); err != nil {
				return err
			}

			return ctx.withStore(func(store mappingstore.Store) error {
				existing, found, err := store.Get(cmd.Context(), source, canonicalID)
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("no mapping for AniList %s on %s", canonicalID, source)
				}
				if err := store.Delete(cmd.Context(), source, canonicalID); err != nil {
					return err
				}

				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{
						"removed": true,
						"mapping": existing,
					})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed mapping %s/%s -> %s (%s)\n",
					existing.Source, existing.CanonicalID, existing.SourceID, existing.MatchedTitle)
				return nil
			})
		},
	}
}

func newMappingClearCommand(ctx *commandContext) *cobra.Command {
	var sourceName string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all mappings, or those of one source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store mappingstore.Store) error {
				removed, err := store.Clear(cmd.Context(), sourceName)
				if err != nil {
					return err
				}

				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{
						"cleared": true,
						"removed": removed,
					})
				}
				scope := "all sources"
				if strings.TrimSpace(sourceName) != "" {
					scope = strings.TrimSpace(sourceName)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d mappings (%s)\n", removed, scope)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&sourceName, "source", "s", "", "Only clear mappings of this source")
	return cmd
}
