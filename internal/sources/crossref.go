package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/refile/refile/internal/metadata"
)

const (
	// CrossRefBaseURL is the CrossRef works API base URL.
	CrossRefBaseURL = "https://api.crossref.org"

	// crossRefRateLimit stays inside the polite-pool allowance.
	crossRefRateLimit = 5.0

	crossRefSearchRows = 3
)

// CrossRef is a rate-limited client for the CrossRef bibliographic
// registry. It serves DOI lookups (article-level, highest trust) and
// free-text title search as the fuzzy fallback.
type CrossRef struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
}

// CrossRefOption configures a CrossRef client.
type CrossRefOption func(*CrossRef)

// WithCrossRefHTTPClient sets a custom HTTP client.
func WithCrossRefHTTPClient(hc *http.Client) CrossRefOption {
	return func(c *CrossRef) {
		c.httpClient = hc
	}
}

// WithCrossRefBaseURL sets a custom base URL (for testing).
func WithCrossRefBaseURL(url string) CrossRefOption {
	return func(c *CrossRef) {
		c.baseURL = url
	}
}

// WithCrossRefRate overrides the request rate limit.
func WithCrossRefRate(perSecond float64) CrossRefOption {
	return func(c *CrossRef) {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// NewCrossRef creates a CrossRef client.
func NewCrossRef(opts ...CrossRefOption) *CrossRef {
	c := &CrossRef{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(crossRefRateLimit), 1),
		baseURL:    CrossRefBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements Source.
func (c *CrossRef) Name() string { return metadata.SourceCrossRef }

// Resolve implements Source: DOI lookup when the query carries a DOI,
// otherwise free-text title search. An extracted DOI the registry does
// not know is often garbled or stale, so a no-match DOI lookup falls
// back to the title guess before giving up.
func (c *CrossRef) Resolve(ctx context.Context, q Query) (*metadata.Record, error) {
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

// crossRefWork is the wire shape of a CrossRef work item.
type crossRefWork struct {
	DOI    string `json:"DOI"`
	Author []struct {
		Family string `json:"family"`
		Given  string `json:"given"`
	} `json:"author"`
	Title               []string     `json:"title"`
	ShortContainerTitle []string     `json:"short-container-title"`
	ContainerTitle      []string     `json:"container-title"`
	Publisher           string       `json:"publisher"`
	PublishedPrint      crossRefDate `json:"published-print"`
	PublishedOnline     crossRefDate `json:"published-online"`
	Created             crossRefDate `json:"created"`
}

type crossRefDate struct {
	DateParts [][]int `json:"date-parts"`
}

func (d crossRefDate) year() int {
	if len(d.DateParts) > 0 && len(d.DateParts[0]) > 0 {
		return d.DateParts[0][0]
	}
	return 0
}

// LookupDOI fetches the work registered for a DOI.
func (c *CrossRef) LookupDOI(ctx context.Context, doi string) (*metadata.Record, error) {
	var resp struct {
		Message crossRefWork `json:"message"`
	}
	u := fmt.Sprintf("%s/works/%s", c.baseURL, url.PathEscape(doi))
	if err := getJSON(ctx, c.httpClient, c.limiter, c.Name(), u, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Message.DOI == "" {
		return nil, ErrNoMatch
	}

	rec := c.normalize(resp.Message)
	return &rec, nil
}

// SearchTitle free-text searches CrossRef for a title and returns the
// best-ranked hit.
func (c *CrossRef) SearchTitle(ctx context.Context, title string) (*metadata.Record, error) {
	var resp struct {
		Message struct {
			Items []crossRefWork `json:"items"`
		} `json:"message"`
	}
	params := url.Values{}
	params.Set("query.title", title)
	params.Set("rows", strconv.Itoa(crossRefSearchRows))
	u := fmt.Sprintf("%s/works?%s", c.baseURL, params.Encode())
	if err := getJSON(ctx, c.httpClient, c.limiter, c.Name(), u, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Message.Items) == 0 {
		return nil, ErrNoMatch
	}

	rec := c.normalize(resp.Message.Items[0])
	return &rec, nil
}

// normalize maps a CrossRef work onto the internal record shape.
func (c *CrossRef) normalize(w crossRefWork) metadata.Record {
	rec := metadata.Record{
		DOI:       w.DOI,
		Publisher: w.Publisher,
		Source:    c.Name(),
	}

	for _, a := range w.Author {
		if name := metadata.JoinName(a.Family, a.Given); name != "" {
			rec.Authors = append(rec.Authors, name)
		}
	}

	if len(w.Title) > 0 {
		rec.Title = strings.TrimSpace(w.Title[0])
	}

	// Prefer the print date, then online, then deposit date.
	year := w.PublishedPrint.year()
	if year == 0 {
		year = w.PublishedOnline.year()
	}
	if year == 0 {
		year = w.Created.year()
	}
	if year != 0 {
		rec.Year = strconv.Itoa(year)
	}

	if len(w.ShortContainerTitle) > 0 {
		rec.Journal = w.ShortContainerTitle[0]
	} else if len(w.ContainerTitle) > 0 {
		rec.Journal = w.ContainerTitle[0]
	}

	return rec
}
