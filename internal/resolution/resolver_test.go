package resolution

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"sourcelink/internal/config"
	"sourcelink/internal/logging"
	"sourcelink/internal/mappingstore"
	"sourcelink/internal/matching"
	"sourcelink/internal/services"
	"sourcelink/internal/testsupport"
)

func narutoTarget() matching.TargetRecord {
	return matching.TargetRecord{CanonicalID: "20", Title: "Naruto", Year: 2002, ContentType: "TV"}
}

func newTestResolver(src matching.Searcher, store mappingstore.Store) *Resolver {
	cache := NewCache(store, logging.NewNop())
	return NewResolver("animeindex", src, cache, Options{
		MaxQueries:      4,
		Concurrency:     4,
		QueryTimeout:    time.Second,
		FallbackQueries: true,
	}, logging.NewNop())
}

func TestResolveNarutoAndAutoCache(t *testing.T) {
	ctx := context.Background()
	src := testsupport.NewFakeSource().OnSearch("Naruto",
		matching.Candidate{SourceID: "s1", Title: "Naruto", Year: 2002, ContentType: "TV"},
		matching.Candidate{SourceID: "s2", Title: "Naruto Shippuden", Year: 2007, ContentType: "TV"},
	)
	store := testsupport.NewMemoryStore()
	resolver := newTestResolver(src, store)

	res, err := resolver.Resolve(ctx, narutoTarget())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !res.Resolved || res.SourceID() != "s1" || res.Cached {
		t.Fatalf("unexpected result %+v", res)
	}
	if !res.HighConfidence || res.Mapping.Score != 68 {
		t.Fatalf("expected high-confidence score 68, got %+v", res.Mapping)
	}
	if len(res.Ranked) != 2 || res.Ranked[1].Candidate.SourceID != "s2" {
		t.Fatalf("unexpected ranking %+v", res.Ranked)
	}

	resolver.Wait()
	if !store.Has("animeindex", "20") {
		t.Fatal("expected high-confidence match to be persisted")
	}
	if resolver.State("20") != StateResolved {
		t.Fatalf("unexpected state %s", resolver.State("20"))
	}

	searches := src.SearchCount()
	again, err := resolver.Resolve(ctx, narutoTarget())
	if err != nil {
		t.Fatalf("Resolve again: %v", err)
	}
	if !again.Cached || again.SourceID() != "s1" {
		t.Fatalf("expected cached result, got %+v", again)
	}
	if src.SearchCount() != searches {
		t.Fatalf("expected cache hit to skip the source, searches %d -> %d", searches, src.SearchCount())
	}
}

func TestResolveCacheShortCircuit(t *testing.T) {
	ctx := context.Background()
	src := testsupport.NewFakeSource()
	resolver := newTestResolver(src, testsupport.NewMemoryStore())

	cache := resolver.cache.(*Cache)
	if err := cache.Store(ctx, mappingstore.Mapping{Source: "animeindex", CanonicalID: "20", SourceID: "naruto-classic", MatchedTitle: "Naruto"}); err != nil {
		t.Fatalf("Store: %v", err)
	}

	res, err := resolver.Resolve(ctx, narutoTarget())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.SourceID() != "naruto-classic" || !res.Cached {
		t.Fatalf("expected cached mapping, got %+v", res)
	}
	if src.SearchCount() != 0 {
		t.Fatalf("expected no searches, got %d", src.SearchCount())
	}
}

func TestResolveAcceptedButNotHighConfidenceStaysInMemory(t *testing.T) {
	ctx := context.Background()
	target := matching.TargetRecord{CanonicalID: "172463", Title: "Jujutsu Kaisen Season 3: The Culling Game", Year: 2025, ContentType: "TV"}
	src := testsupport.NewFakeSource().OnSearch(target.Title,
		matching.Candidate{SourceID: "jjk", Title: "Jujutsu Kaisen", Year: 2020},
		matching.Candidate{SourceID: "jjk-culling", Title: "Jujutsu Kaisen: Culling Game", Year: 2025, ContentType: "TV"},
	)
	store := testsupport.NewMemoryStore()
	resolver := newTestResolver(src, store)

	res, err := resolver.Resolve(ctx, target)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.SourceID() != "jjk-culling" || res.HighConfidence {
		t.Fatalf("expected rescued low-confidence match, got %+v", res)
	}
	resolver.Wait()
	if _, sets, _ := store.Counts(); sets != 0 {
		t.Fatalf("expected no persistent write, got %d", sets)
	}

	searches := src.SearchCount()
	again, _ := resolver.Resolve(ctx, target)
	if !again.Cached || src.SearchCount() != searches {
		t.Fatalf("expected in-memory hit, got %+v (searches %d -> %d)", again, searches, src.SearchCount())
	}
}

func TestResolveUsesFallbackQueries(t *testing.T) {
	ctx := context.Background()
	target := matching.TargetRecord{CanonicalID: "172463", Title: "Jujutsu Kaisen Season 3: The Culling Game", Year: 2025, ContentType: "TV"}
	src := testsupport.NewFakeSource().OnSearch("Jujutsu Kaisen",
		matching.Candidate{SourceID: "jjk-culling", Title: "Jujutsu Kaisen: Culling Game", Year: 2025, ContentType: "TV"},
	)
	resolver := newTestResolver(src, nil)

	res, err := resolver.Resolve(ctx, target)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.SourceID() != "jjk-culling" {
		t.Fatalf("expected fallback match, got %+v", res)
	}
	if len(res.Queries) != 3 {
		t.Fatalf("expected primary plus two fallback queries, got %q", res.Queries)
	}
}

func TestResolveUnresolvedIsNotAnError(t *testing.T) {
	ctx := context.Background()
	src := testsupport.NewFakeSource().FailSearch("Naruto")
	resolver := newTestResolver(src, testsupport.NewMemoryStore())

	res, err := resolver.Resolve(ctx, narutoTarget())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Resolved || res.SourceID() != "" {
		t.Fatalf("expected unresolved result, got %+v", res)
	}
	if res.FailedQueries != 1 {
		t.Fatalf("expected one failed query, got %d", res.FailedQueries)
	}
	if resolver.State("20") != StateUnresolved {
		t.Fatalf("unexpected state %s", resolver.State("20"))
	}
}

func TestResolveFaultIsolation(t *testing.T) {
	ctx := context.Background()
	target := matching.TargetRecord{
		CanonicalID:  "1735",
		Title:        "Naruto: Shippuuden",
		TitleEnglish: "Naruto Shippuden",
		Synonyms:     []string{"Naruto Hurricane Chronicles", "NS"},
		Year:         2007,
		ContentType:  "TV",
	}
	src := testsupport.NewFakeSource().
		FailSearch("Naruto: Shippuuden").
		OnSearch("Naruto Shippuden", matching.Candidate{SourceID: "ns", Title: "Naruto Shippuden", Year: 2007, ContentType: "TV"}).
		FailSearch("Naruto Hurricane Chronicles").
		OnSearch("NS", matching.Candidate{SourceID: "ns", Title: "Naruto Shippuden (Dub)", Year: 2007})
	resolver := newTestResolver(src, nil)

	res, err := resolver.Resolve(ctx, target)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.SourceID() != "ns" || res.FailedQueries != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Mapping.MatchedTitle != "Naruto Shippuden" {
		t.Fatalf("expected first occurrence to win, got %q", res.Mapping.MatchedTitle)
	}
}

func TestResolvePersistenceFailureDoesNotBlock(t *testing.T) {
	ctx := context.Background()
	src := testsupport.NewFakeSource().OnSearch("Naruto",
		matching.Candidate{SourceID: "s1", Title: "Naruto", Year: 2002, ContentType: "TV"})
	store := testsupport.NewMemoryStore()
	store.SetFailures(false, true)
	resolver := newTestResolver(src, store)

	res, err := resolver.Resolve(ctx, narutoTarget())
	if err != nil || res.SourceID() != "s1" {
		t.Fatalf("expected resolution despite store failure, got %+v err=%v", res, err)
	}
	resolver.Wait()
	if _, sets, _ := store.Counts(); sets != 1 {
		t.Fatalf("expected one attempted write, got %d", sets)
	}
}

func TestResolveValidatesTarget(t *testing.T) {
	resolver := newTestResolver(testsupport.NewFakeSource(), nil)
	tests := []matching.TargetRecord{
		{Title: "Naruto"},
		{CanonicalID: "20"},
	}
	for _, target := range tests {
		if _, err := resolver.Resolve(context.Background(), target); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("expected validation error for %+v, got %v", target, err)
		}
	}
}

func TestResolveCoalescesConcurrentCalls(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	searcher := matching.SearchFunc(func(ctx context.Context, query string) ([]matching.Candidate, error) {
		calls.Add(1)
		<-release
		return []matching.Candidate{{SourceID: "s1", Title: "Naruto", Year: 2002, ContentType: "TV"}}, nil
	})
	resolver := newTestResolver(searcher, nil)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]string, callers)
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := resolver.Resolve(context.Background(), narutoTarget())
			if err == nil {
				results[i] = res.SourceID()
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	if resolver.State("20") != StateResolving {
		t.Fatalf("expected RESOLVING while search is in flight, got %s", resolver.State("20"))
	}
	close(release)
	wg.Wait()

	for i, id := range results {
		if id != "s1" {
			t.Fatalf("caller %d got %q", i, id)
		}
	}
	if n := calls.Load(); n >= callers {
		t.Fatalf("expected concurrent resolutions to share searches, got %d", n)
	}
}

func TestResolveJoinerSurvivesCancelledCaller(t *testing.T) {
	release := make(chan struct{})
	searcher := matching.SearchFunc(func(ctx context.Context, query string) ([]matching.Candidate, error) {
		<-release
		return []matching.Candidate{{SourceID: "s1", Title: "Naruto", Year: 2002, ContentType: "TV"}}, nil
	})
	store := testsupport.NewMemoryStore()
	resolver := newTestResolver(searcher, store)

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := resolver.Resolve(firstCtx, narutoTarget())
		firstErr <- err
	}()
	deadline := time.Now().Add(time.Second)
	for resolver.State("20") != StateResolving {
		if time.Now().After(deadline) {
			t.Fatal("resolution never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	type outcome struct {
		res *Result
		err error
	}
	second := make(chan outcome, 1)
	go func() {
		res, err := resolver.Resolve(context.Background(), narutoTarget())
		second <- outcome{res, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancelled caller to see context.Canceled, got %v", err)
	}
	close(release)

	got := <-second
	if got.err != nil {
		t.Fatalf("joined caller failed: %v", got.err)
	}
	if got.res.SourceID() != "s1" {
		t.Fatalf("joined caller got %q", got.res.SourceID())
	}
	resolver.Wait()
	if !store.Has("animeindex", "20") {
		t.Fatal("expected mapping to be persisted")
	}
	if resolver.State("20") != StateResolved {
		t.Fatalf("expected RESOLVED, got %s", resolver.State("20"))
	}
}

func TestResolveAbandonedCallerStillCaches(t *testing.T) {
	var calls atomic.Int32
	searcher := matching.SearchFunc(func(ctx context.Context, query string) ([]matching.Candidate, error) {
		calls.Add(1)
		time.Sleep(100 * time.Millisecond)
		return []matching.Candidate{{SourceID: "s1", Title: "Naruto", Year: 2002, ContentType: "TV"}}, nil
	})
	store := testsupport.NewMemoryStore()
	resolver := newTestResolver(searcher, store)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := resolver.Resolve(ctx, narutoTarget()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		t.Fatal("caller returned before its deadline")
	}

	resolver.Wait()
	if !store.Has("animeindex", "20") {
		t.Fatal("expected abandoned search to persist its mapping")
	}
	if resolver.State("20") != StateResolved {
		t.Fatalf("expected RESOLVED, got %s", resolver.State("20"))
	}

	searches := calls.Load()
	res, err := resolver.Resolve(context.Background(), narutoTarget())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !res.Cached || res.SourceID() != "s1" {
		t.Fatalf("expected cached s1, got %+v", res)
	}
	if n := calls.Load(); n != searches {
		t.Fatalf("cached resolve searched again: %d -> %d", searches, n)
	}
}

func TestStatesOnlyTrackLiveIDs(t *testing.T) {
	ctx := context.Background()
	resolver := newTestResolver(testsupport.NewFakeSource(), nil)
	for _, id := range []string{"1", "2", "3"} {
		target := matching.TargetRecord{CanonicalID: id, Title: "Nothing Here " + id, Year: 2001, ContentType: "TV"}
		res, err := resolver.Resolve(ctx, target)
		if err != nil {
			t.Fatalf("Resolve(%s): %v", id, err)
		}
		if res.Resolved {
			t.Fatalf("expected %s to stay unresolved", id)
		}
	}
	resolver.mu.Lock()
	n := len(resolver.states)
	resolver.mu.Unlock()
	if n != 0 {
		t.Fatalf("expected unresolved IDs to be dropped, %d remain", n)
	}

	src := testsupport.NewFakeSource().OnSearch("Naruto",
		matching.Candidate{SourceID: "s1", Title: "Naruto", Year: 2002, ContentType: "TV"},
	)
	resolver = newTestResolver(src, nil)
	if _, err := resolver.Resolve(ctx, narutoTarget()); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if err := resolver.Invalidate(ctx, "20"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	resolver.mu.Lock()
	n = len(resolver.states)
	resolver.mu.Unlock()
	if n != 0 {
		t.Fatalf("expected Invalidate to drop the state entry, %d remain", n)
	}
}

func TestRefreshExcludesIDs(t *testing.T) {
	ctx := context.Background()
	src := testsupport.NewFakeSource().OnSearch("Naruto",
		matching.Candidate{SourceID: "s1", Title: "Naruto", Year: 2002, ContentType: "TV"},
		matching.Candidate{SourceID: "s1-dub", Title: "Naruto (Dub)", Year: 2002, ContentType: "TV"},
	)
	resolver := newTestResolver(src, nil)

	res, err := resolver.Refresh(ctx, narutoTarget(), "s1")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if res.SourceID() != "s1-dub" {
		t.Fatalf("expected excluded id to be skipped, got %+v", res)
	}
}

func TestInvalidateResetsState(t *testing.T) {
	ctx := context.Background()
	src := testsupport.NewFakeSource().OnSearch("Naruto",
		matching.Candidate{SourceID: "s1", Title: "Naruto", Year: 2002, ContentType: "TV"})
	store := testsupport.NewMemoryStore()
	resolver := newTestResolver(src, store)

	if _, err := resolver.Resolve(ctx, narutoTarget()); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	resolver.Wait()
	if err := resolver.Invalidate(ctx, "20"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if resolver.State("20") != StateUnresolved || store.Has("animeindex", "20") {
		t.Fatal("expected invalidation to reset state and remove the stored mapping")
	}
	searches := src.SearchCount()
	if _, err := resolver.Resolve(ctx, narutoTarget()); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if src.SearchCount() == searches {
		t.Fatal("expected re-resolution to search again")
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Resolution.Weights.TypeMatch = 7
	cfg.Resolution.QueryTimeoutSeconds = 3
	opts := OptionsFromConfig(cfg.Resolution)
	if opts.Scorer.Weights.TypeMatch != 7 || opts.QueryTimeout != 3*time.Second {
		t.Fatalf("unexpected options %+v", opts)
	}
	if opts.Scorer.HighConfidenceThreshold != 65 || !opts.FallbackQueries {
		t.Fatalf("unexpected defaults %+v", opts)
	}
}
