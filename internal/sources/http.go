package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sourcelink/internal/config"
	"sourcelink/internal/logging"
	"sourcelink/internal/matching"
	"sourcelink/internal/services"
)

const (
	idPlaceholder    = "{id}"
	maxResponseBytes = 8 << 20
	defaultTimeout   = 10 * time.Second
)

// Source is everything the resolution engine needs from a content site.
type Source interface {
	matching.Searcher
	ListContent(ctx context.Context, sourceID string) ([]ContentItem, error)
	ContentDetail(ctx context.Context, contentID string) (ContentDetail, error)
}

// HTTPSource reaches a content site through its JSON endpoints.
type HTTPSource struct {
	name       string
	kind       string
	searchURL  string
	queryParam string
	listURL    string
	detailURL  string
	userAgent  string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

var _ Source = (*HTTPSource)(nil)

// Option configures an HTTPSource.
type Option func(*HTTPSource)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *HTTPSource) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *HTTPSource) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewHTTPSource builds a source from its configuration block.
func NewHTTPSource(cfg config.Source, opts ...Option) (*HTTPSource, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Name))
	if name == "" {
		return nil, errors.New("source name required")
	}
	searchURL := strings.TrimSpace(cfg.SearchURL)
	if searchURL == "" {
		return nil, fmt.Errorf("source %q: search url required", name)
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	queryParam := strings.TrimSpace(cfg.QueryParam)
	if queryParam == "" {
		queryParam = "q"
	}

	s := &HTTPSource{
		name:       name,
		kind:       strings.ToLower(strings.TrimSpace(cfg.Kind)),
		searchURL:  searchURL,
		queryParam: queryParam,
		listURL:    strings.TrimSpace(cfg.ListURL),
		detailURL:  strings.TrimSpace(cfg.DetailURL),
		userAgent:  strings.TrimSpace(cfg.UserAgent),
		timeout:    timeout,
		httpClient: &http.Client{},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "source").With(logging.String(logging.FieldSource, name))
	return s, nil
}

// Name returns the configured source name.
func (s *HTTPSource) Name() string { return s.name }

// Kind returns "anime" or "manga".
func (s *HTTPSource) Kind() string { return s.kind }

// Search queries the site's search endpoint.
func (s *HTTPSource) Search(ctx context.Context, query string) ([]matching.Candidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, services.Wrap(services.ErrValidation, "source", "search", "query must not be empty", nil)
	}
	endpoint, err := url.Parse(s.searchURL)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "source", "search", "parse search url", err)
	}
	params := endpoint.Query()
	params.Set(s.queryParam, query)
	endpoint.RawQuery = params.Encode()

	body, err := s.get(ctx, "search", endpoint.String())
	if err != nil {
		return nil, err
	}
	candidates, err := decodeCandidates(body)
	if err != nil {
		return nil, services.Wrap(services.ErrSourceUnavailable, "source", "search", "decode "+s.name+" response", err)
	}
	return candidates, nil
}

// ListContent lists the episodes or chapters of sourceID.
func (s *HTTPSource) ListContent(ctx context.Context, sourceID string) ([]ContentItem, error) {
	endpoint, err := expandTemplate(s.listURL, sourceID)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "source", "list content", s.name, err)
	}
	body, err := s.get(ctx, "list content", endpoint)
	if err != nil {
		return nil, err
	}
	items, err := decodeContentItems(body)
	if err != nil {
		return nil, services.Wrap(services.ErrSourceUnavailable, "source", "list content", "decode "+s.name+" response", err)
	}
	return items, nil
}

// ContentDetail fetches the pages or streams of one episode or chapter.
func (s *HTTPSource) ContentDetail(ctx context.Context, contentID string) (ContentDetail, error) {
	endpoint, err := expandTemplate(s.detailURL, contentID)
	if err != nil {
		return ContentDetail{}, services.Wrap(services.ErrConfiguration, "source", "content detail", s.name, err)
	}
	body, err := s.get(ctx, "content detail", endpoint)
	if err != nil {
		return ContentDetail{}, err
	}
	detail, err := decodeDetail(strings.TrimSpace(contentID), body)
	if err != nil {
		return ContentDetail{}, services.Wrap(services.ErrSourceUnavailable, "source", "content detail", "decode "+s.name+" response", err)
	}
	return detail, nil
}

func (s *HTTPSource) get(ctx context.Context, operation, endpoint string) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "source", operation, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	requestStart := time.Now()
	resp, err := s.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		marker := services.ErrSourceUnavailable
		if errors.Is(err, context.DeadlineExceeded) {
			marker = services.ErrTimeout
		}
		return nil, services.Wrap(marker, "source", operation, fmt.Sprintf("%s request failed (latency=%v)", s.name, latency), err)
	}
	defer resp.Body.Close()

	s.logger.Debug("source request completed",
		logging.String("operation", operation),
		logging.Int("status", resp.StatusCode),
		logging.Duration("latency", latency))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, services.Wrap(services.ErrNotFound, "source", operation, fmt.Sprintf("%s returned 404", s.name), nil)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, services.Wrap(services.ErrSourceUnavailable, "source", operation,
			fmt.Sprintf("%s returned %d (latency=%v)", s.name, resp.StatusCode, latency), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, services.Wrap(services.ErrSourceUnavailable, "source", operation, "read "+s.name+" response", err)
	}
	if len(body) > maxResponseBytes {
		return nil, services.Wrap(services.ErrSourceUnavailable, "source", operation,
			fmt.Sprintf("%s response exceeds %d bytes", s.name, maxResponseBytes), nil)
	}
	return body, nil
}

func expandTemplate(template, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.New("id must not be empty")
	}
	if template == "" {
		return "", errors.New("url template not configured")
	}
	if !strings.Contains(template, idPlaceholder) {
		return "", fmt.Errorf("url template %q has no %s placeholder", template, idPlaceholder)
	}
	return strings.ReplaceAll(template, idPlaceholder, url.PathEscape(id)), nil
}
