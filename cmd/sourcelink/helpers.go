package main

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"sourcelink/internal/anilist"
	"sourcelink/internal/config"
	"sourcelink/internal/matching"
	"sourcelink/internal/services"
	"sourcelink/internal/sources"
)

var classifiedErrors = []error{
	services.ErrSourceUnavailable,
	services.ErrNoMatch,
	services.ErrStaleMapping,
	services.ErrPersistence,
	services.ErrValidation,
	services.ErrConfiguration,
	services.ErrNotFound,
	services.ErrTimeout,
	services.ErrTransient,
}

// describeError leads with the user-facing sentence for classified errors and
// keeps the full chain on the following line.
func describeError(err error) string {
	for _, marker := range classifiedErrors {
		if errors.Is(err, marker) {
			return services.UserMessage(err) + "\n  " + err.Error()
		}
	}
	return err.Error()
}

var titleCaser = cases.Title(language.English)

// displayType title-cases lowercase labels such as "movie" and leaves
// acronyms like "TV" or "OVA" alone.
func displayType(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	if value != strings.ToLower(value) {
		return value
	}
	return titleCaser.String(value)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func yearLabel(year int) string {
	if year <= 0 {
		return "-"
	}
	return strconv.Itoa(year)
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if limit <= 0 || len(runes) <= limit {
		return value
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

// mediaTypeFor maps a configured source kind onto the AniList media type.
func mediaTypeFor(cfg *config.Config, sourceName string) string {
	if cfg != nil {
		if src, ok := cfg.Source(sourceName); ok && strings.EqualFold(src.Kind, sources.KindManga) {
			return anilist.TypeManga
		}
	}
	return anilist.TypeAnime
}

func parseAniListID(value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, services.Wrap(services.ErrValidation, "cli", "parse id",
			"invalid AniList id "+strconv.Quote(value)+" (must be a positive integer)", nil)
	}
	return id, nil
}

// lookupTarget loads the canonical record either by AniList id or, when title
// is set, from the most similar search hit.
func (c *commandContext) lookupTarget(ctx context.Context, idArg, title, mediaType string) (matching.TargetRecord, error) {
	client, err := c.anilistClient()
	if err != nil {
		return matching.TargetRecord{}, err
	}

	if strings.TrimSpace(title) != "" {
		results, err := client.Search(ctx, title, mediaType, 5)
		if err != nil {
			return matching.TargetRecord{}, err
		}
		if len(results) == 0 {
			return matching.TargetRecord{}, services.Wrap(services.ErrNotFound, "cli", "lookup target",
				"no AniList results for "+strconv.Quote(title), nil)
		}
		return results[0].Target(), nil
	}

	id, err := parseAniListID(idArg)
	if err != nil {
		return matching.TargetRecord{}, err
	}
	media, err := client.GetDetails(ctx, id)
	if err != nil {
		return matching.TargetRecord{}, err
	}
	return media.Target(), nil
}
