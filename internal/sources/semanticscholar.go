package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/refile/refile/internal/metadata"
)

const (
	// SemanticScholarBaseURL is the Semantic Scholar Graph API base URL.
	SemanticScholarBaseURL = "https://api.semanticscholar.org/graph/v1"

	// semanticScholarRateLimit is conservative: the unauthenticated
	// pool allows roughly 1 request per second.
	semanticScholarRateLimit = 1.0

	semanticScholarFields      = "title,authors,year,venue,externalIds"
	semanticScholarSearchLimit = 3
)

// SemanticScholar is a rate-limited client for the Semantic Scholar
// scholarly graph. It resolves DOIs directly and falls back to fuzzy
// title search.
type SemanticScholar struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	apiKey     string
	baseURL    string
}

// SemanticScholarOption configures a SemanticScholar client.
type SemanticScholarOption func(*SemanticScholar)

// WithSemanticScholarAPIKey sets the API key for the authenticated pool.
func WithSemanticScholarAPIKey(key string) SemanticScholarOption {
	return func(c *SemanticScholar) {
		c.apiKey = key
	}
}

// WithSemanticScholarHTTPClient sets a custom HTTP client.
func WithSemanticScholarHTTPClient(hc *http.Client) SemanticScholarOption {
	return func(c *SemanticScholar) {
		c.httpClient = hc
	}
}

// WithSemanticScholarBaseURL sets a custom base URL (for testing).
func WithSemanticScholarBaseURL(url string) SemanticScholarOption {
	return func(c *SemanticScholar) {
		c.baseURL = url
	}
}

// WithSemanticScholarRate overrides the request rate limit.
func WithSemanticScholarRate(perSecond float64) SemanticScholarOption {
	return func(c *SemanticScholar) {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// NewSemanticScholar creates a Semantic Scholar client.
func NewSemanticScholar(opts ...SemanticScholarOption) *SemanticScholar {
	c := &SemanticScholar{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(semanticScholarRateLimit), 1),
		baseURL:    SemanticScholarBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements Source.
func (c *SemanticScholar) Name() string { return metadata.SourceSemanticScholar }

// Resolve implements Source: direct DOI lookup when available,
// otherwise fuzzy title search. A DOI unknown to the graph falls back
// to the title guess rather than wasting the source.
func (c *SemanticScholar) Resolve(ctx context.Context, q Query) (*metadata.Record, error) {
	if q.DOI != "" {
		rec, err := c.LookupDOI(ctx, q.DOI)
		if !IsNoMatch(err) || q.TitleGuess == "" {
			return rec, err
		}
	}
	if q.TitleGuess != "" {
		return c.SearchTitle(ctx, q.TitleGuess)
	}
	return nil, ErrUnsupportedQuery
}

// s2Paper is the wire shape of a Semantic Scholar paper.
type s2Paper struct {
	PaperID string `json:"paperId"`
	Title   string `json:"title"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	Year        int    `json:"year"`
	Venue       string `json:"venue"`
	ExternalIDs struct {
		DOI string `json:"DOI"`
	} `json:"externalIds"`
}

// LookupDOI fetches a paper by DOI.
func (c *SemanticScholar) LookupDOI(ctx context.Context, doi string) (*metadata.Record, error) {
	var paper s2Paper
	u := fmt.Sprintf("%s/paper/DOI:%s?fields=%s", c.baseURL, url.PathEscape(doi), semanticScholarFields)
	if err := getJSON(ctx, c.httpClient, c.limiter, c.Name(), u, c.header(), &paper); err != nil {
		return nil, err
	}
	if paper.PaperID == "" {
		return nil, ErrNoMatch
	}

	rec := c.normalize(paper)
	return &rec, nil
}

// SearchTitle searches the graph for a title and returns the top hit.
func (c *SemanticScholar) SearchTitle(ctx context.Context, title string) (*metadata.Record, error) {
	var resp struct {
		Data []s2Paper `json:"data"`
	}
	params := url.Values{}
	params.Set("query", title)
	params.Set("limit", strconv.Itoa(semanticScholarSearchLimit))
	params.Set("fields", semanticScholarFields)
	u := fmt.Sprintf("%s/paper/search?%s", c.baseURL, params.Encode())
	if err := getJSON(ctx, c.httpClient, c.limiter, c.Name(), u, c.header(), &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, ErrNoMatch
	}

	rec := c.normalize(resp.Data[0])
	return &rec, nil
}

func (c *SemanticScholar) header() http.Header {
	if c.apiKey == "" {
		return nil
	}
	h := http.Header{}
	h.Set("x-api-key", c.apiKey)
	return h
}

// normalize maps an S2 paper onto the internal record shape.
func (c *SemanticScholar) normalize(p s2Paper) metadata.Record {
	rec := metadata.Record{
		Title:   p.Title,
		Journal: p.Venue,
		DOI:     p.ExternalIDs.DOI,
		Source:  c.Name(),
	}
	if p.Year != 0 {
		rec.Year = strconv.Itoa(p.Year)
	}
	for _, a := range p.Authors {
		if name := metadata.NormalizeName(a.Name); name != "" {
			rec.Authors = append(rec.Authors, name)
		}
	}
	return rec
}
