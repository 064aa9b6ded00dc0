package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	errs "github.com/sweetpotato0/mapshock/errors"
	"github.com/sweetpotato0/mapshock/pkg/textclean"
	"github.com/sweetpotato0/mapshock/search"
)

const defaultEndpoint = "https://api.tavily.com/search"

// Client implements search.Provider against the Tavily search API.
type Client struct {
	apiKey     string
	maxResults int
	httpClient *http.Client
	endpoint   string
	timeout    time.Duration
}

// Option customises the Tavily client.
type Option func(*Client)

// WithMaxResults limits hits per query (default 3).
func WithMaxResults(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxResults = n
		}
	}
}

// WithHTTPClient swaps the HTTP client (useful for timeouts or proxies).
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout bounds each HTTP request. Without it only the caller's context
// deadline applies.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithEndpoint overrides the Tavily API endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// New creates a Tavily client. The API key is required; there is no built-in default.
func New(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("tavily: api key is required: %w", errs.ErrInvalidInput)
	}
	client := &Client{
		apiKey:     apiKey,
		maxResults: 3,
		httpClient: &http.Client{},
		endpoint:   defaultEndpoint,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.timeout > 0 {
		hc := *client.httpClient
		hc.Timeout = client.timeout
		client.httpClient = &hc
	}
	return client, nil
}

type searchRequest struct {
	APIKey            string   `json:"api_key"`
	Query             string   `json:"query"`
	SearchDepth       string   `json:"search_depth"`
	IncludeAnswer     bool     `json:"include_answer"`
	IncludeRawContent bool     `json:"include_raw_content"`
	MaxResults        int      `json:"max_results"`
	IncludeDomains    []string `json:"include_domains"`
	ExcludeDomains    []string `json:"exclude_domains"`
}

type searchResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title         string  `json:"title"`
		URL           string  `json:"url"`
		Content       string  `json:"content"`
		RawContent    string  `json:"raw_content"`
		Score         float64 `json:"score"`
		PublishedDate string  `json:"published_date"`
	} `json:"results"`
}

// Search implements search.Provider.
func (c *Client) Search(ctx context.Context, query string, depth search.Depth) (*search.Result, error) {
	if depth == "" {
		depth = search.DepthBasic
	}
	payload := searchRequest{
		APIKey:            c.apiKey,
		Query:             query,
		SearchDepth:       string(depth),
		IncludeAnswer:     true,
		IncludeRawContent: true,
		MaxResults:        c.maxResults,
		IncludeDomains:    []string{},
		ExcludeDomains:    []string{},
	}
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily search %q: %w", query, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tavily search failed: status %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(body)), errs.ErrSearchFailed)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("tavily: decode response: %w", err)
	}

	hits := make([]search.Hit, 0, len(sr.Results))
	for _, item := range sr.Results {
		content := item.Content
		if strings.TrimSpace(content) == "" {
			content = item.RawContent
		}
		hits = append(hits, search.Hit{
			Title:         strings.TrimSpace(item.Title),
			URL:           item.URL,
			Content:       textclean.Content(content),
			Score:         max(0, min(1, item.Score)),
			PublishedDate: item.PublishedDate,
			SourceDomain:  Domain(item.URL),
		})
	}

	return &search.Result{
		Query:      query,
		Answer:     sr.Answer,
		Hits:       hits,
		CapturedAt: time.Now().UTC(),
		HitCount:   len(hits),
	}, nil
}

// Domain returns the host of rawURL, or "unknown" when it cannot be parsed.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}
