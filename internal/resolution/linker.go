package resolution

import (
	"context"
	"errors"
	"log/slog"

	"sourcelink/internal/logging"
	"sourcelink/internal/matching"
	"sourcelink/internal/services"
	"sourcelink/internal/sources"
)

// ContentFetcher lists and opens content on a resolved source.
type ContentFetcher interface {
	ListContent(ctx context.Context, sourceID string) ([]sources.ContentItem, error)
	ContentDetail(ctx context.Context, contentID string) (sources.ContentDetail, error)
}

// LinkedContent is the content list of a resolved title.
type LinkedContent struct {
	Result     *Result               `json:"resolution"`
	Items      []sources.ContentItem `json:"items"`
	Reresolved bool                  `json:"reresolved"`
}

// Linker resolves a title and fetches its episodes or chapters.
type Linker struct {
	resolver *Resolver
	fetcher  ContentFetcher
	logger   *slog.Logger
}

// NewLinker pairs a resolver with the fetcher for the same source.
func NewLinker(resolver *Resolver, fetcher ContentFetcher, logger *slog.Logger) *Linker {
	return &Linker{
		resolver: resolver,
		fetcher:  fetcher,
		logger:   logging.NewComponentLogger(logger, "linker").With(logging.String(logging.FieldSource, resolver.Source())),
	}
}

// Resolver returns the underlying resolver.
func (l *Linker) Resolver() *Resolver { return l.resolver }

// ListContent resolves target and lists its content. A mapping that yields no
// content, or that the source no longer knows, is invalidated and resolved
// again once without the failing ID; if that also fails the title is reported
// as unavailable.
// Source outages are returned as-is and leave the mapping in place.
func (l *Linker) ListContent(ctx context.Context, target matching.TargetRecord) (*LinkedContent, error) {
	res, err := l.resolver.Resolve(ctx, target)
	if err != nil {
		return nil, err
	}
	if !res.Resolved {
		return nil, services.Wrap(services.ErrNoMatch, "linker", "list content", "no candidate for "+target.CanonicalID, nil)
	}

	items, err := l.fetcher.ListContent(ctx, res.SourceID())
	if err == nil && len(items) > 0 {
		return &LinkedContent{Result: res, Items: items}, nil
	}
	if err != nil && !isStale(err) {
		return nil, err
	}

	logger := logging.WithContext(services.WithCanonicalID(ctx, target.CanonicalID), l.logger)
	staleErr := services.Wrap(services.ErrStaleMapping, "linker", "list content", "source id "+res.SourceID()+" yielded no content", err)
	logging.WarnWithContext(logger, "resolved source id yielded no content; re-resolving",
		"stale_mapping",
		logging.String("source_id", res.SourceID()),
		logging.Bool("cached", res.Cached),
		logging.Error(staleErr),
		logging.String(logging.FieldImpact, "mapping invalidated and title resolved again"))
	l.resolver.Wait()
	if invErr := l.resolver.Invalidate(ctx, target.CanonicalID); invErr != nil {
		logging.WarnWithContext(logger, "failed to invalidate stale mapping",
			"mapping_invalidate_failed",
			logging.Error(invErr),
			logging.String(logging.FieldImpact, "stale mapping may be served again next session"))
	}

	staleID := res.SourceID()
	res, err = l.resolver.Refresh(ctx, target, staleID)
	if err != nil {
		return nil, err
	}
	if !res.Resolved {
		return nil, services.Wrap(services.ErrNoMatch, "linker", "list content", "re-resolution found no candidate", staleErr)
	}
	items, err = l.fetcher.ListContent(ctx, res.SourceID())
	if err != nil && !isStale(err) {
		return nil, err
	}
	if len(items) == 0 {
		l.resolver.Wait()
		if invErr := l.resolver.Invalidate(ctx, target.CanonicalID); invErr != nil {
			logger.Debug("failed to invalidate re-resolved mapping", logging.Error(invErr))
		}
		return nil, services.Wrap(services.ErrNoMatch, "linker", "list content", "re-resolved source id "+res.SourceID()+" yielded no content", staleErr)
	}
	return &LinkedContent{Result: res, Items: items, Reresolved: true}, nil
}

// ContentDetail fetches the pages or streams of one content item.
func (l *Linker) ContentDetail(ctx context.Context, contentID string) (sources.ContentDetail, error) {
	detail, err := l.fetcher.ContentDetail(ctx, contentID)
	if err != nil {
		return sources.ContentDetail{}, err
	}
	if detail.Empty() {
		l.logger.Info("content item has no pages or streams", logging.String("content_id", contentID))
	}
	return detail, nil
}

func isStale(err error) bool {
	return errors.Is(err, services.ErrNotFound)
}
