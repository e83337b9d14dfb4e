package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/poiesic/cruisekb/source"
)

// Default endpoint paths, relative to the base URL.
const (
	DefaultIDsPath   = "/api/chatbot/cruises/enabled-ids"
	DefaultBatchPath = "/api/chatbot/cruises/batch-data"
)

// maxRateLimitRetries bounds how often one request is retried after a 429.
const maxRateLimitRetries = 3

// Client implements source.Reader over the catalog HTTP API.
type Client struct {
	baseURL    string
	idsPath    string
	batchPath  string
	httpClient *http.Client
	limiter    *rateLimiter
	assembler  *source.Assembler
	now        func() time.Time
	logger     *slog.Logger
}

var _ source.Reader = (*Client)(nil)

// Option configures a Client.
type Option func(*Client) error

// WithHTTPClient sets the HTTP client. Default has a 30s timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return fmt.Errorf("http client cannot be nil")
		}
		c.httpClient = hc
		return nil
	}
}

// WithPaths overrides the endpoint paths. Empty values keep the defaults.
func WithPaths(idsPath, batchPath string) Option {
	return func(c *Client) error {
		if idsPath != "" {
			c.idsPath = idsPath
		}
		if batchPath != "" {
			c.batchPath = batchPath
		}
		return nil
	}
}

// WithRateLimit sets the request rate. A zero rate disables throttling.
func WithRateLimit(cfg RateLimitConfig) Option {
	return func(c *Client) error {
		c.limiter = newRateLimiter(cfg)
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// WithClock overrides the source of "today" used for candidate selection.
func WithClock(now func() time.Time) Option {
	return func(c *Client) error {
		if now == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		c.now = now
		return nil
	}
}

// New creates a Client for the API at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("catalog base url is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("catalog base url: %w", err)
	}

	c := &Client{
		baseURL:    baseURL,
		idsPath:    DefaultIDsPath,
		batchPath:  DefaultBatchPath,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    newRateLimiter(DefaultRateLimit),
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.logger = c.logger.With("component", "catalog-source")
	c.assembler = source.NewAssembler(c.logger)
	return c, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// record is one flat row of the catalog API. Embedded JSON documents may be
// delivered as objects or as JSON-encoded strings.
type record struct {
	EntityID  flexString      `json:"cruise_id"`
	Code      flexString      `json:"ufl"`
	Info      json.RawMessage `json:"cruise_info"`
	RangeID   flexString      `json:"cruise_date_range_id"`
	RangeInfo json.RawMessage `json:"cruise_date_range_info"`
}

// ListCandidateIDs returns enabled entities with a departure strictly after today.
// Bare ids are trusted as already filtered upstream; records carrying a date
// range are checked client-side.
func (c *Client) ListCandidateIDs(ctx context.Context) ([]string, error) {
	body, err := c.get(ctx, c.idsPath, nil)
	if err != nil {
		return nil, err
	}

	items, err := unwrapData(body)
	if err != nil {
		return nil, fmt.Errorf("%w: ids: %w", source.ErrMalformedRecord, err)
	}

	today := c.now()
	ids := make([]string, 0, len(items))
	for _, item := range items {
		var id flexString
		if err := json.Unmarshal(item, &id); err == nil {
			ids = append(ids, string(id))
			continue
		}

		var rec record
		if err := json.Unmarshal(item, &rec); err != nil {
			c.logger.Debug("ignoring malformed id entry", "err", err)
			continue
		}
		fact, err := source.ParseFact(source.FactRow{
			EntityID: string(rec.EntityID),
			RangeID:  string(rec.RangeID),
			Info:     decodeEmbedded(rec.RangeInfo),
		})
		if err != nil {
			c.logger.Debug("ignoring malformed fact", "entity_id", rec.EntityID, "err", err)
			continue
		}
		if source.DepartsAfter(fact, today) {
			ids = append(ids, string(rec.EntityID))
		}
	}

	ids = source.DedupIDs(ids)
	c.logger.Info("candidate ids listed", "count", len(ids))
	return ids, nil
}

// Batches streams entities with their facts.
func (c *Client) Batches(ctx context.Context, ids []string, batchSize int) iter.Seq2[*source.Batch, error] {
	return source.BatchSeq(ctx, ids, batchSize, c.fetch)
}

func (c *Client) fetch(ctx context.Context, ids []string) (*source.Batch, error) {
	query := url.Values{}
	for _, id := range ids {
		query.Add("entityId[]", id)
	}
	body, err := c.get(ctx, c.batchPath, query)
	if err != nil {
		return nil, err
	}

	items, err := unwrapData(body)
	if err != nil {
		// The whole page is unreadable: count every requested id as skipped.
		c.logger.Warn("skipping malformed batch", "ids", len(ids), "err", err)
		return &source.Batch{Skipped: len(ids)}, nil
	}

	var (
		entities []source.EntityRow
		facts    []source.FactRow
		seen     = make(map[string]struct{})
		skipped  int
	)
	for _, item := range items {
		var rec record
		if err := json.Unmarshal(item, &rec); err != nil {
			c.logger.Warn("skipping malformed record", "err", err)
			skipped++
			continue
		}
		id := string(rec.EntityID)
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			entities = append(entities, source.EntityRow{
				ID:   id,
				Code: string(rec.Code),
				Info: decodeEmbedded(rec.Info),
			})
		}
		if rec.RangeID != "" || len(rec.RangeInfo) > 0 {
			facts = append(facts, source.FactRow{
				EntityID: id,
				RangeID:  string(rec.RangeID),
				Info:     decodeEmbedded(rec.RangeInfo),
			})
		}
	}

	batch := c.assembler.Assemble(orderByIDs(entities, ids), facts)
	batch.Skipped += skipped
	return batch, nil
}

// get performs a throttled GET and returns the body of a 2xx answer.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	for attempt := 0; ; attempt++ {
		if err := c.limiter.wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: GET %s: %w", source.ErrConnectivity, path, err)
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests && attempt < maxRateLimitRetries {
			wait := c.limiter.backoff(resp.Header.Get("Retry-After"))
			c.logger.Warn("rate limited by catalog", "path", path, "retry_after", wait)
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("%w: GET %s: status %d", source.ErrConnectivity, path, resp.StatusCode)
		}
		if readErr != nil {
			return nil, fmt.Errorf("%w: GET %s: %w", source.ErrConnectivity, path, readErr)
		}
		return body, nil
	}
}

// unwrapData accepts {"data": [...]} or a bare array.
func unwrapData(body []byte) ([]json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '{' {
		var envelope struct {
			Data []json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, err
		}
		return envelope.Data, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// decodeEmbedded unwraps a JSON document delivered as a JSON string.
func decodeEmbedded(raw json.RawMessage) []byte {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return []byte(s)
		}
	}
	return raw
}

// orderByIDs returns rows in requested order; unrequested rows go last.
func orderByIDs(rows []source.EntityRow, ids []string) []source.EntityRow {
	byID := make(map[string]source.EntityRow, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	out := make([]source.EntityRow, 0, len(rows))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			out = append(out, row)
			delete(byID, id)
		}
	}
	for _, row := range rows {
		if _, ok := byID[row.ID]; ok {
			out = append(out, row)
		}
	}
	return out
}

// flexString decodes a JSON string or number into its string form.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}
