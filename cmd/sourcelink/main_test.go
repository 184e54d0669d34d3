package main

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"sourcelink/internal/services"
)

func TestResolveCommandPersistsAndReusesMapping(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"resolve", "20", "--source", "animeindex"}, env.configPath)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	requireContains(t, out, "Target: NARUTO (AniList 20, 2002, TV)")
	requireContains(t, out, `naruto "Naruto" score 68 [high confidence]`)
	searches := env.searches.Load()
	if searches == 0 {
		t.Fatal("expected the source to be searched")
	}

	out, _, err = runCLI(t, []string{"mapping", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("mapping list: %v", err)
	}
	requireContains(t, out, "Mappings: 1")
	requireContains(t, out, "animeindex\t20\tnaruto\tNaruto\t68")

	out, _, err = runCLI(t, []string{"resolve", "20", "--source", "animeindex"}, env.configPath)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	requireContains(t, out, "cached")
	if got := env.searches.Load(); got != searches {
		t.Fatalf("expected cached resolve to skip searching, searches went %d -> %d", searches, got)
	}
}

func TestResolveExplainJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"--json", "resolve", "20", "--source", "animeindex", "--explain"}, env.configPath)
	if err != nil {
		t.Fatalf("resolve --explain: %v", err)
	}

	var payload struct {
		Target struct {
			CanonicalID string `json:"canonical_id"`
		} `json:"target"`
		Resolved bool `json:"resolved"`
		Mapping  struct {
			SourceID string `json:"source_id"`
		} `json:"mapping"`
		Ranked []struct {
			Candidate struct {
				ID string `json:"id"`
			} `json:"candidate"`
			Score     int `json:"score"`
			Breakdown struct {
				Year int `json:"year"`
			} `json:"breakdown"`
		} `json:"ranked"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if payload.Target.CanonicalID != "20" || !payload.Resolved || payload.Mapping.SourceID != "naruto" {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if len(payload.Ranked) != 2 {
		t.Fatalf("expected 2 ranked candidates, got %d", len(payload.Ranked))
	}
	if payload.Ranked[0].Candidate.ID != "naruto" || payload.Ranked[0].Score != 68 {
		t.Fatalf("unexpected leader %+v", payload.Ranked[0])
	}
	if payload.Ranked[1].Candidate.ID != "naruto-shippuden" || payload.Ranked[1].Score != 53 || payload.Ranked[1].Breakdown.Year != -10 {
		t.Fatalf("unexpected runner-up %+v", payload.Ranked[1])
	}
}

func TestResolveExplainText(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"resolve", "--title", "naruto", "--source", "animeindex", "--explain"}, env.configPath)
	if err != nil {
		t.Fatalf("resolve --title: %v", err)
	}
	requireContains(t, out, "Target: NARUTO")
	requireContains(t, out, "Queries: NARUTO")
	requireContains(t, out, "1\tnaruto\tNaruto\t2002\tTV\t10\t50\tmatch\t5\t3\t68")
	requireContains(t, out, "2\tnaruto-shippuden\tNaruto Shippuden\t2007\tTV\t10\t50\tmatch\t-10\t3\t53")
}

func TestResolveNoMatchReturnsClassifiedError(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"resolve", "20", "--source", "emptysite"}, env.configPath)
	if !errors.Is(err, services.ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}
	requireContains(t, out, "Match:  none")
	requireContains(t, describeError(err), "not available from this source")
}

func TestResolveRequiresIDOrTitle(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"resolve", "--source", "animeindex"}, env.configPath); err == nil {
		t.Fatal("expected error without id or title")
	}
	_, _, err := runCLI(t, []string{"resolve", "abc", "--source", "animeindex"}, env.configPath)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	_, _, err = runCLI(t, []string{"resolve", "20", "--source", "missing"}, env.configPath)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for unknown source, got %v", err)
	}
	_, _, err = runCLI(t, []string{"resolve", "404", "--source", "animeindex"}, env.configPath)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for unknown AniList id, got %v", err)
	}
}

func TestContentCommandListsEpisodes(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"content", "20", "--source", "animeindex"}, env.configPath)
	if err != nil {
		t.Fatalf("content: %v", err)
	}
	requireContains(t, out, "Items:  2")
	requireContains(t, out, "1\t1\tEnter: Naruto Uzumaki!\tnaruto-1")
	requireContains(t, out, "2\t2\tMy Name is Konohamaru!\tnaruto-2")
}

func TestContentCommandReplacesStaleMapping(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"resolve", "20", "--source", "animeindex"}, env.configPath); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	env.narutoGone.Store(true)

	out, _, err := runCLI(t, []string{"content", "20", "--source", "animeindex"}, env.configPath)
	if err != nil {
		t.Fatalf("content: %v", err)
	}
	requireContains(t, out, "previous mapping was stale")
	requireContains(t, out, "Homecoming")

	out, _, err = runCLI(t, []string{"mapping", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("mapping list: %v", err)
	}
	requireContains(t, out, "Mappings: none")
}

func TestContentCommandJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"--json", "content", "20", "--source", "animeindex"}, env.configPath)
	if err != nil {
		t.Fatalf("content --json: %v", err)
	}
	var payload struct {
		Items []struct {
			ID     string  `json:"id"`
			Number float64 `json:"number"`
		} `json:"items"`
		Reresolved bool `json:"reresolved"`
		Resolution struct {
			Ranked []any `json:"ranked"`
		} `json:"resolution"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if len(payload.Items) != 2 || payload.Items[0].ID != "naruto-1" || payload.Reresolved {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if len(payload.Resolution.Ranked) != 0 {
		t.Fatalf("expected ranked candidates to be omitted, got %d", len(payload.Resolution.Ranked))
	}
}

func TestDetailCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"detail", "naruto-1", "--source", "animeindex"}, env.configPath)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	requireContains(t, out, "Content naruto-1: 1 streams")
	requireContains(t, out, "1080p\thls\thttps://cdn.example/naruto-1.m3u8")
}

func TestSearchCommandRanksBySimilarity(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"search", "naruto"}, env.configPath)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %q", out)
	}
	if !strings.HasPrefix(lines[1], "20\tNARUTO\t2002\tTV") {
		t.Fatalf("expected NARUTO ranked first, got %q", lines[1])
	}

	out, _, err = runCLI(t, []string{"search", "nothing here"}, env.configPath)
	if err != nil {
		t.Fatalf("search without results: %v", err)
	}
	requireContains(t, out, "No AniList results")

	if _, _, err := runCLI(t, []string{"search", "naruto", "--type", "novel"}, env.configPath); err == nil {
		t.Fatal("expected invalid --type to fail")
	}
}

func TestSourcesCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"sources"}, env.configPath)
	if err != nil {
		t.Fatalf("sources: %v", err)
	}
	requireContains(t, out, "animeindex\tAnime\t")
	requireContains(t, out, "emptysite\tAnime\t")
}

func TestMappingRemoveAndClear(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"resolve", "20", "--source", "animeindex"}, env.configPath); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	out, _, err := runCLI(t, []string{"mapping", "remove", "animeindex", "20"}, env.configPath)
	if err != nil {
		t.Fatalf("mapping remove: %v", err)
	}
	requireContains(t, out, "Removed mapping animeindex/20 -> naruto")

	if _, _, err := runCLI(t, []string{"mapping", "remove", "animeindex", "20"}, env.configPath); err == nil {
		t.Fatal("expected removing a missing mapping to fail")
	}

	if _, _, err := runCLI(t, []string{"resolve", "20", "--source", "animeindex"}, env.configPath); err != nil {
		t.Fatalf("resolve again: %v", err)
	}
	out, _, err = runCLI(t, []string{"--json", "mapping", "clear", "--source", "animeindex"}, env.configPath)
	if err != nil {
		t.Fatalf("mapping clear: %v", err)
	}
	var cleared struct {
		Removed int `json:"removed"`
	}
	if err := json.Unmarshal([]byte(out), &cleared); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if cleared.Removed != 1 {
		t.Fatalf("expected 1 mapping cleared, got %d", cleared.Removed)
	}

	out, _, err = runCLI(t, []string{"--json", "mapping", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("mapping list: %v", err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Fatalf("expected empty JSON list, got %q", out)
	}
}
