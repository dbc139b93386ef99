// Package hgnc resolves gene symbols against the HGNC REST search service.
package hgnc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/inodb/cellfie-mapper/internal/mapper"
)

// Defaults for Config fields left at their zero value.
const (
	DefaultBaseURL   = "https://rest.genenames.org"
	DefaultTimeout   = 10 * time.Second
	DefaultChunkSize = 250
	DefaultRateLimit = 10 // HGNC asks clients to stay below 10 requests per second
)

// Search fields used in request paths.
const (
	FieldSymbol     = "symbol"
	FieldPrevSymbol = "prev_symbol"
)

// ErrNoMatches is returned when a previous-symbol search yields no documents.
var ErrNoMatches = errors.New("no matches")

// Lookuper resolves gene symbols to HGNC IDs.
type Lookuper interface {
	// BatchLookup resolves symbols and returns symbol -> HGNC ID for every hit.
	BatchLookup(ctx context.Context, symbols []string) (map[string]string, error)
	// PreviousSymbol resolves a single, possibly withdrawn, symbol.
	PreviousSymbol(ctx context.Context, symbol string) (Match, error)
}

// Match is a single resolved symbol.
type Match struct {
	Symbol string // approved symbol reported by HGNC
	HGNCID string // without the "HGNC:" prefix
}

// Config configures a Client.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	ChunkSize int
	RateLimit float64 // requests per second
}

// Client queries the HGNC search endpoints. Requests are issued one at a time.
type Client struct {
	baseURL    string
	chunkSize  int
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient creates a Client, filling unset Config fields with defaults.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRateLimit
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		chunkSize: cfg.ChunkSize,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		logger:  zap.NewNop(),
	}
}

// SetLogger sets the logger for request progress.
func (c *Client) SetLogger(l *zap.Logger) {
	c.logger = l
}

// BatchLookup resolves symbols in chunks, one request per chunk. When HGNC
// returns several documents for a symbol the first one is kept.
func (c *Client) BatchLookup(ctx context.Context, symbols []string) (map[string]string, error) {
	results := make(map[string]string)

	for start := 0; start < len(symbols); start += c.chunkSize {
		end := min(start+c.chunkSize, len(symbols))
		chunk := symbols[start:end]

		docs, err := c.search(ctx, FieldSymbol, orQuery(chunk))
		if err != nil {
			return nil, fmt.Errorf("batch lookup of symbols %d-%d: %w", start+1, end, err)
		}

		for _, d := range docs {
			if d.Symbol == "" || d.HGNCID == "" {
				continue
			}
			if _, exists := results[d.Symbol]; !exists {
				results[d.Symbol] = mapper.NormalizeHGNCID(d.HGNCID)
			}
		}

		c.logger.Debug("batch lookup chunk",
			zap.Int("from", start+1),
			zap.Int("to", end),
			zap.Int("docs", len(docs)))
	}

	return results, nil
}

// PreviousSymbol looks up symbol among HGNC previous symbols and returns the
// first document. An empty result is reported as ErrNoMatches.
func (c *Client) PreviousSymbol(ctx context.Context, symbol string) (Match, error) {
	docs, err := c.search(ctx, FieldPrevSymbol, url.PathEscape(symbol))
	if err != nil {
		return Match{}, fmt.Errorf("previous symbol lookup of %s: %w", symbol, err)
	}
	if len(docs) == 0 {
		return Match{}, mapper.E(mapper.KindNetwork, "previous symbol lookup of "+symbol, ErrNoMatches)
	}

	return Match{
		Symbol: docs[0].Symbol,
		HGNCID: mapper.NormalizeHGNCID(docs[0].HGNCID),
	}, nil
}

// searchResponse is the JSON document returned by the search endpoints.
type searchResponse struct {
	Response struct {
		NumFound int         `json:"numFound"`
		Docs     []searchDoc `json:"docs"`
	} `json:"response"`
}

type searchDoc struct {
	HGNCID string  `json:"hgnc_id"`
	Symbol string  `json:"symbol"`
	Score  float64 `json:"score"`
}

func (c *Client) search(ctx context.Context, field, query string) ([]searchDoc, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, mapper.E(mapper.KindNetwork, "rate limit", err)
	}

	reqURL := fmt.Sprintf("%s/search/%s/%s", c.baseURL, field, query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, mapper.E(mapper.KindConfig, "build hgnc request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, mapper.E(mapper.KindNetwork, "hgnc request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, mapper.Errorf(mapper.KindNetwork, "hgnc request", "HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, mapper.E(mapper.KindParse, "decode hgnc response", err)
	}

	return sr.Response.Docs, nil
}

// orQuery joins symbols into a single boolean OR path segment.
func orQuery(symbols []string) string {
	escaped := make([]string, len(symbols))
	for i, s := range symbols {
		escaped[i] = url.PathEscape(s)
	}
	return strings.Join(escaped, "+OR+")
}
