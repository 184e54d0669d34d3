package anilist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"sourcelink/internal/services"
	"sourcelink/internal/textutil"
)

// DefaultBaseURL is the public AniList GraphQL endpoint.
const DefaultBaseURL = "https://graphql.anilist.co"

const mediaFields = `id idMal type format
	title { romaji english native userPreferred }
	synonyms seasonYear startDate { year month day } episodes chapters`

const detailsQuery = `query ($id: Int) { Media(id: $id) { ` + mediaFields + ` } }`

const searchQuery = `query ($search: String, $type: MediaType, $perPage: Int) {
	Page(perPage: $perPage) { media(search: $search, type: $type) { ` + mediaFields + ` } }
}`

// Client queries the AniList GraphQL API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// New creates an AniList client.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type graphQLResponse[T any] struct {
	Data   T              `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// GetDetails fetches one media entry by AniList ID.
func (c *Client) GetDetails(ctx context.Context, id int64) (*Media, error) {
	if id <= 0 {
		return nil, services.Wrap(services.ErrValidation, "anilist", "get details", "id must be positive", nil)
	}
	var payload struct {
		Media *Media `json:"Media"`
	}
	if err := c.do(ctx, "get details", detailsQuery, map[string]any{"id": id}, &payload); err != nil {
		return nil, err
	}
	if payload.Media == nil {
		return nil, services.Wrap(services.ErrNotFound, "anilist", "get details", "media "+strconv.FormatInt(id, 10), nil)
	}
	return payload.Media, nil
}

// Search returns up to limit media matching query, most similar title first.
// mediaType may be TypeAnime, TypeManga or empty for both.
func (c *Client) Search(ctx context.Context, query, mediaType string, limit int) ([]Media, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, services.Wrap(services.ErrValidation, "anilist", "search", "query must not be empty", nil)
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	vars := map[string]any{"search": query, "perPage": limit}
	if mediaType = strings.ToUpper(strings.TrimSpace(mediaType)); mediaType != "" {
		vars["type"] = mediaType
	}

	var payload struct {
		Page struct {
			Media []Media `json:"media"`
		} `json:"Page"`
	}
	if err := c.do(ctx, "search", searchQuery, vars, &payload); err != nil {
		return nil, err
	}
	results := payload.Page.Media
	RankBySimilarity(query, results)
	return results, nil
}

// RankBySimilarity orders media by descending Jaro-Winkler similarity of their
// closest title to query. Ties keep the API's relevance order.
func RankBySimilarity(query string, media []Media) {
	scores := make(map[int64]float64, len(media))
	for _, m := range media {
		scores[m.ID] = bestSimilarity(query, m)
	}
	sort.SliceStable(media, func(i, j int) bool {
		return scores[media[i].ID] > scores[media[j].ID]
	})
}

func bestSimilarity(query string, m Media) float64 {
	best := 0.0
	candidates := append([]string{m.Title.English, m.Title.Romaji, m.Title.Native, m.Title.UserPreferred}, m.Synonyms...)
	for _, title := range candidates {
		if sim := textutil.Similarity(query, title); sim > best {
			best = sim
		}
	}
	return best
}

func (c *Client) do(ctx context.Context, operation, query string, vars map[string]any, out any) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("encode anilist request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		marker := services.ErrTransient
		if errors.Is(err, context.DeadlineExceeded) {
			marker = services.ErrTimeout
		}
		return services.Wrap(marker, "anilist", operation, fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return services.Wrap(services.ErrTransient, "anilist", operation, "read response", err)
	}

	var payload graphQLResponse[json.RawMessage]
	if err := json.Unmarshal(raw, &payload); err != nil {
		if resp.StatusCode != http.StatusOK {
			return statusError(operation, resp.StatusCode, latency, "")
		}
		return services.Wrap(services.ErrTransient, "anilist", operation, "decode response", err)
	}
	if len(payload.Errors) > 0 {
		status := payload.Errors[0].Status
		if status == 0 {
			status = resp.StatusCode
		}
		return statusError(operation, status, latency, payload.Errors[0].Message)
	}
	if resp.StatusCode != http.StatusOK {
		return statusError(operation, resp.StatusCode, latency, "")
	}
	if err := json.Unmarshal(payload.Data, out); err != nil {
		return services.Wrap(services.ErrTransient, "anilist", operation, "decode data", err)
	}
	return nil
}

func statusError(operation string, status int, latency time.Duration, message string) error {
	detail := fmt.Sprintf("anilist returned %d (latency=%v)", status, latency)
	if message = strings.TrimSpace(message); message != "" {
		detail += ": " + message
	}
	marker := services.ErrTransient
	switch {
	case status == http.StatusNotFound:
		marker = services.ErrNotFound
	case status == http.StatusBadRequest:
		marker = services.ErrValidation
	}
	return services.Wrap(marker, "anilist", operation, detail, nil)
}
