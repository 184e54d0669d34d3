package matching

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"sourcelink/internal/logging"
	"sourcelink/internal/services"
)

func sourceIDs(candidates []Candidate) []string {
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.SourceID)
	}
	return ids
}

func TestGatherFaultIsolation(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	searcher := SearchFunc(func(ctx context.Context, query string) ([]Candidate, error) {
		switch query {
		case "ok-1":
			return []Candidate{{SourceID: "a", Title: "A"}}, nil
		case "fail":
			return nil, errors.New("connection refused")
		case "stall":
			<-release
			return []Candidate{{SourceID: "late", Title: "Late"}}, nil
		case "ok-2":
			return []Candidate{{SourceID: "b", Title: "B"}}, nil
		}
		return nil, nil
	})
	agg := NewAggregator(searcher, AggregatorOptions{Concurrency: 4, QueryTimeout: 50 * time.Millisecond}, logging.NewNop())

	got, stats := agg.Gather(context.Background(), []string{"ok-1", "fail", "stall", "ok-2"})
	if want := []string{"a", "b"}; !reflect.DeepEqual(sourceIDs(got), want) {
		t.Fatalf("Gather() ids = %v, want %v", sourceIDs(got), want)
	}
	if stats.Failed != 2 || stats.Queries != 4 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestGatherDeduplicatesFirstOccurrence(t *testing.T) {
	searcher := SearchFunc(func(ctx context.Context, query string) ([]Candidate, error) {
		switch query {
		case "first":
			return []Candidate{{SourceID: "x", Title: "From First"}, {SourceID: "y", Title: "Y"}, {SourceID: " ", Title: "Blank"}}, nil
		case "second":
			return []Candidate{{SourceID: "x", Title: "From Second"}, {SourceID: "z", Title: "Z"}}, nil
		}
		return nil, nil
	})
	agg := NewAggregator(searcher, AggregatorOptions{}, logging.NewNop())

	got, stats := agg.Gather(context.Background(), []string{"first", "second"})
	if want := []string{"x", "y", "z"}; !reflect.DeepEqual(sourceIDs(got), want) {
		t.Fatalf("Gather() ids = %v, want %v", sourceIDs(got), want)
	}
	if got[0].Title != "From First" {
		t.Fatalf("expected first occurrence to win, got %q", got[0].Title)
	}
	if stats.Duplicate != 1 || stats.Returned != 5 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestGatherRunsQueriesConcurrently(t *testing.T) {
	var started sync.WaitGroup
	started.Add(3)
	searcher := SearchFunc(func(ctx context.Context, query string) ([]Candidate, error) {
		started.Done()
		waited := make(chan struct{})
		go func() {
			started.Wait()
			close(waited)
		}()
		select {
		case <-waited:
			return []Candidate{{SourceID: query}}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	agg := NewAggregator(searcher, AggregatorOptions{Concurrency: 3, QueryTimeout: 2 * time.Second}, logging.NewNop())

	got, stats := agg.Gather(context.Background(), []string{"q1", "q2", "q3"})
	if stats.Failed != 0 || len(got) != 3 {
		t.Fatalf("expected all queries to meet at the barrier, got %v stats %+v", sourceIDs(got), stats)
	}
}

func TestGatherRecoversPanics(t *testing.T) {
	searcher := SearchFunc(func(ctx context.Context, query string) ([]Candidate, error) {
		if query == "boom" {
			panic("selector changed")
		}
		return []Candidate{{SourceID: query}}, nil
	})
	agg := NewAggregator(searcher, AggregatorOptions{}, logging.NewNop())

	got, stats := agg.Gather(context.Background(), []string{"boom", "fine"})
	if len(got) != 1 || got[0].SourceID != "fine" || stats.Failed != 1 {
		t.Fatalf("unexpected result %v stats %+v", sourceIDs(got), stats)
	}
}

func TestGatherAllFailReturnsEmpty(t *testing.T) {
	searcher := SearchFunc(func(ctx context.Context, query string) ([]Candidate, error) {
		return nil, services.Wrap(services.ErrSourceUnavailable, "test", "search", "down", nil)
	})
	agg := NewAggregator(searcher, AggregatorOptions{}, logging.NewNop())

	got, stats := agg.Gather(context.Background(), []string{"a", "b"})
	if len(got) != 0 || stats.Failed != 2 {
		t.Fatalf("expected empty result with two failures, got %v stats %+v", got, stats)
	}
	if got, _ := agg.Gather(context.Background(), nil); got != nil {
		t.Fatalf("expected nil for no queries, got %v", got)
	}
}

func TestSearchTimeoutIsClassified(t *testing.T) {
	searcher := SearchFunc(func(ctx context.Context, query string) ([]Candidate, error) {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		return nil, nil
	})
	agg := NewAggregator(searcher, AggregatorOptions{QueryTimeout: 20 * time.Millisecond}, logging.NewNop())

	_, err := agg.search(context.Background(), "slow")
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}
