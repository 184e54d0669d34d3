package resolution

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"sourcelink/internal/config"
	"sourcelink/internal/logging"
	"sourcelink/internal/mappingstore"
	"sourcelink/internal/matching"
	"sourcelink/internal/services"
)

// State is the resolution state of one canonical ID on one source.
type State string

const (
	StateUnresolved State = "UNRESOLVED"
	StateResolving  State = "RESOLVING"
	StateResolved   State = "RESOLVED"
)

const defaultPersistTimeout = 5 * time.Second

// Options tune a Resolver.
type Options struct {
	MaxQueries      int
	Concurrency     int
	QueryTimeout    time.Duration
	FallbackQueries bool
	PersistTimeout  time.Duration
	Scorer          matching.ScorerOptions
}

// OptionsFromConfig maps the [resolution] section onto resolver options.
func OptionsFromConfig(cfg config.Resolution) Options {
	w := cfg.Weights
	return Options{
		MaxQueries:      cfg.MaxQueries,
		Concurrency:     cfg.Concurrency,
		QueryTimeout:    time.Duration(cfg.QueryTimeoutSeconds) * time.Second,
		FallbackQueries: cfg.FallbackQueries,
		Scorer: matching.ScorerOptions{
			Weights: matching.Weights{
				Containment:    w.Containment,
				SeasonMatch:    w.SeasonMatch,
				SeasonRescue:   w.SeasonRescue,
				SeasonMismatch: w.SeasonMismatch,
				YearClose:      w.YearClose,
				YearFar:        w.YearFar,
				TypeMatch:      w.TypeMatch,
			},
			AcceptThreshold:         cfg.AcceptThreshold,
			HighConfidenceThreshold: cfg.HighConfidenceThreshold,
		},
	}
}

// Result describes one resolution attempt.
type Result struct {
	Source         string                     `json:"source"`
	CanonicalID    string                     `json:"canonical_id"`
	Resolved       bool                       `json:"resolved"`
	Mapping        mappingstore.Mapping       `json:"mapping"`
	Cached         bool                       `json:"cached"`
	HighConfidence bool                       `json:"high_confidence"`
	Queries        []string                   `json:"queries,omitempty"`
	FailedQueries  int                        `json:"failed_queries,omitempty"`
	Ranked         []matching.ScoredCandidate `json:"ranked,omitempty"`
}

// SourceID returns the resolved source-native ID, or "" when unresolved.
func (r *Result) SourceID() string {
	if r == nil || !r.Resolved {
		return ""
	}
	return r.Mapping.SourceID
}

// Resolver resolves canonical records against one content source.
type Resolver struct {
	source     string
	aggregator *matching.Aggregator
	scorer     *matching.Scorer
	cache      MappingCache
	opts       Options
	logger     *slog.Logger

	flight  singleflight.Group
	mu      sync.Mutex
	states  map[string]State
	pending sync.WaitGroup
}

// NewResolver builds a resolver for the named source.
func NewResolver(source string, searcher matching.Searcher, cache MappingCache, opts Options, logger *slog.Logger) *Resolver {
	if opts.MaxQueries <= 0 {
		opts.MaxQueries = matching.DefaultMaxQueries
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = defaultPersistTimeout
	}
	if cache == nil {
		cache = NewCache(nil, logger)
	}
	source = strings.ToLower(strings.TrimSpace(source))
	base := logging.NewComponentLogger(logger, "resolver").With(logging.String(logging.FieldSource, source))
	return &Resolver{
		source: source,
		aggregator: matching.NewAggregator(searcher, matching.AggregatorOptions{
			Concurrency:  opts.Concurrency,
			QueryTimeout: opts.QueryTimeout,
		}, logger),
		scorer: matching.NewScorer(opts.Scorer, logger),
		cache:  cache,
		opts:   opts,
		logger: base,
		states: make(map[string]State),
	}
}

// Source returns the source name this resolver serves.
func (r *Resolver) Source() string { return r.source }

// Scorer exposes the scorer for callers that rank candidates themselves.
func (r *Resolver) Scorer() *matching.Scorer { return r.scorer }

// State reports where canonicalID is in its resolution lifecycle.
func (r *Resolver) State(canonicalID string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if state, ok := r.states[strings.TrimSpace(canonicalID)]; ok {
		return state
	}
	return StateUnresolved
}

// setState records state. Unresolved IDs are dropped from the map, so it only
// holds IDs that are resolving or resolved.
func (r *Resolver) setState(canonicalID string, state State) {
	r.mu.Lock()
	if state == StateUnresolved {
		delete(r.states, canonicalID)
	} else {
		r.states[canonicalID] = state
	}
	r.mu.Unlock()
}

// Resolve returns the source-native ID for target, consulting the cache first.
// An unresolved result is not an error: it means the title is not available
// from this source. Errors are reserved for invalid targets and for callers
// whose ctx ends first; their search still finishes and is cached.
func (r *Resolver) Resolve(ctx context.Context, target matching.TargetRecord) (*Result, error) {
	return r.resolve(ctx, target, false, nil)
}

// Refresh resolves target while bypassing cached mappings. Candidates whose
// source ID is in exclude are not considered.
func (r *Resolver) Refresh(ctx context.Context, target matching.TargetRecord, exclude ...string) (*Result, error) {
	return r.resolve(ctx, target, true, exclude)
}

func (r *Resolver) resolve(ctx context.Context, target matching.TargetRecord, refresh bool, exclude []string) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	target.CanonicalID = strings.TrimSpace(target.CanonicalID)
	if target.CanonicalID == "" {
		return nil, services.Wrap(services.ErrValidation, "resolver", "resolve", "canonical id required", nil)
	}
	if target.PrimaryTitle() == "" {
		return nil, services.Wrap(services.ErrValidation, "resolver", "resolve", "target has no title", nil)
	}

	ctx = services.WithSource(ctx, r.source)
	ctx = services.WithCanonicalID(ctx, target.CanonicalID)
	if _, ok := services.RequestIDFromContext(ctx); !ok {
		ctx = services.WithRequestID(ctx, uuid.NewString())
	}
	logger := logging.WithContext(ctx, r.logger)

	if !refresh {
		if m, ok := r.cache.Lookup(ctx, r.source, target.CanonicalID); ok {
			r.setState(target.CanonicalID, StateResolved)
			logger.Info("resolution served from cache",
				logging.String("source_id", m.SourceID),
				logging.String("matched_title", m.MatchedTitle))
			return &Result{
				Source:      r.source,
				CanonicalID: target.CanonicalID,
				Resolved:    true,
				Mapping:     m,
				Cached:      true,
			}, nil
		}
	}

	key := target.CanonicalID
	if refresh {
		key += "\x00refresh\x00" + strings.Join(exclude, "\x00")
	}
	// The search runs detached from any single caller: per-query timeouts bound
	// it, and its mapping is cached even when every caller has gone away.
	work := context.WithoutCancel(ctx)
	r.pending.Add(1)
	ch := r.flight.DoChan(key, func() (any, error) {
		return r.resolveUncached(work, logger, target, exclude), nil
	})
	select {
	case out := <-ch:
		r.pending.Done()
		if out.Shared {
			logger.Debug("joined in-flight resolution")
		}
		res := *out.Val.(*Result)
		return &res, nil
	case <-ctx.Done():
		go func() {
			<-ch
			r.pending.Done()
		}()
		logger.Info("caller abandoned resolution; search continues in background")
		return nil, services.Wrap(services.ErrTimeout, "resolver", "resolve", "caller gave up before resolution finished", ctx.Err())
	}
}

func (r *Resolver) resolveUncached(ctx context.Context, logger *slog.Logger, target matching.TargetRecord, exclude []string) *Result {
	r.setState(target.CanonicalID, StateResolving)
	start := time.Now()
	result := &Result{Source: r.source, CanonicalID: target.CanonicalID}

	queries := matching.BuildQueries(target, r.opts.MaxQueries)
	candidates, stats := r.aggregator.Gather(ctx, queries)
	candidates = excludeCandidates(candidates, exclude)
	result.Queries = queries
	result.FailedQueries = stats.Failed
	best, ok := r.scorer.PickBest(candidates, target)

	if !ok && r.opts.FallbackQueries {
		fallback := matching.FallbackQueries(target, queries, r.opts.MaxQueries)
		if len(fallback) > 0 {
			logger.Info("no acceptable match; trying fallback queries",
				logging.Strings("queries", fallback))
			more, moreStats := r.aggregator.Gather(ctx, fallback)
			result.Queries = append(result.Queries, fallback...)
			result.FailedQueries += moreStats.Failed
			candidates = mergeCandidates(candidates, excludeCandidates(more, exclude))
			best, ok = r.scorer.PickBest(candidates, target)
		}
	}
	result.Ranked = r.scorer.Rank(candidates, target)

	if !ok {
		r.setState(target.CanonicalID, StateUnresolved)
		attrs := logging.DecisionAttrs("resolution", "unresolved", "no candidate above acceptance threshold")
		attrs = append(attrs,
			logging.Int("candidates", len(candidates)),
			logging.Int("failed_queries", result.FailedQueries),
			logging.Duration("elapsed", time.Since(start)))
		logger.Info("title not available from source", logging.Args(attrs...)...)
		return result
	}

	result.Resolved = true
	result.HighConfidence = r.scorer.IsHighConfidence(best, target)
	result.Mapping = mappingstore.Mapping{
		Source:       r.source,
		CanonicalID:  target.CanonicalID,
		SourceID:     best.Candidate.SourceID,
		MatchedTitle: best.Candidate.Title,
		Score:        best.Score,
		ResolvedAt:   time.Now().UTC(),
	}
	r.cache.Remember(result.Mapping)
	if result.HighConfidence {
		r.persistAsync(ctx, result.Mapping)
	}
	r.setState(target.CanonicalID, StateResolved)

	attrs := logging.DecisionAttrs("resolution", "resolved", "best candidate accepted")
	attrs = append(attrs,
		logging.String("source_id", best.Candidate.SourceID),
		logging.String("matched_title", best.Candidate.Title),
		logging.Int("score", best.Score),
		logging.Bool("high_confidence", result.HighConfidence),
		logging.Duration("elapsed", time.Since(start)))
	logger.Info("title resolved", logging.Args(attrs...)...)
	return result
}

// persistAsync writes m to the persistent layer without blocking the caller.
// The write outlives the caller's context; failures are logged only.
func (r *Resolver) persistAsync(ctx context.Context, m mappingstore.Mapping) {
	r.pending.Add(1)
	go func() {
		defer r.pending.Done()
		persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.PersistTimeout)
		defer cancel()
		if err := r.cache.Persist(persistCtx, m); err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, r.logger), "failed to persist resolution mapping",
				"mapping_persist_failed",
				logging.Error(err),
				logging.String("source_id", m.SourceID),
				logging.String(logging.FieldErrorHint, "check the mapping store path and permissions"),
				logging.String(logging.FieldImpact, "title will be resolved again next session"))
		}
	}()
}

// Wait blocks until abandoned searches and background persistence writes have finished.
func (r *Resolver) Wait() {
	r.pending.Wait()
}

// Invalidate forgets the mapping for canonicalID on this source.
func (r *Resolver) Invalidate(ctx context.Context, canonicalID string) error {
	canonicalID = strings.TrimSpace(canonicalID)
	r.setState(canonicalID, StateUnresolved)
	return r.cache.Invalidate(ctx, r.source, canonicalID)
}

func mergeCandidates(first, second []matching.Candidate) []matching.Candidate {
	seen := make(map[string]struct{}, len(first))
	merged := make([]matching.Candidate, 0, len(first)+len(second))
	for _, c := range first {
		seen[c.SourceID] = struct{}{}
		merged = append(merged, c)
	}
	for _, c := range second {
		if _, ok := seen[c.SourceID]; ok {
			continue
		}
		seen[c.SourceID] = struct{}{}
		merged = append(merged, c)
	}
	return merged
}

func excludeCandidates(candidates []matching.Candidate, exclude []string) []matching.Candidate {
	if len(exclude) == 0 {
		return candidates
	}
	skip := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		skip[strings.TrimSpace(id)] = struct{}{}
	}
	kept := candidates[:0:0]
	for _, c := range candidates {
		if _, ok := skip[c.SourceID]; !ok {
			kept = append(kept, c)
		}
	}
	return kept
}
