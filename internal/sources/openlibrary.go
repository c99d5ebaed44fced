package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"

	"github.com/refile/refile/internal/metadata"
)

const (
	// OpenLibraryBaseURL is the Open Library API base URL.
	OpenLibraryBaseURL = "https://openlibrary.org"

	openLibraryRateLimit = 2.0
)

// OpenLibrary is a rate-limited client for the Open Library book
// catalog. It serves ISBN lookups only.
type OpenLibrary struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
}

// OpenLibraryOption configures an OpenLibrary client.
type OpenLibraryOption func(*OpenLibrary)

// WithOpenLibraryHTTPClient sets a custom HTTP client.
func WithOpenLibraryHTTPClient(hc *http.Client) OpenLibraryOption {
	return func(c *OpenLibrary) {
		c.httpClient = hc
	}
}

// WithOpenLibraryBaseURL sets a custom base URL (for testing).
func WithOpenLibraryBaseURL(url string) OpenLibraryOption {
	return func(c *OpenLibrary) {
		c.baseURL = url
	}
}

// WithOpenLibraryRate overrides the request rate limit.
func WithOpenLibraryRate(perSecond float64) OpenLibraryOption {
	return func(c *OpenLibrary) {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// NewOpenLibrary creates an Open Library client.
func NewOpenLibrary(opts ...OpenLibraryOption) *OpenLibrary {
	c := &OpenLibrary{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(openLibraryRateLimit), 1),
		baseURL:    OpenLibraryBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements Source.
func (c *OpenLibrary) Name() string { return metadata.SourceOpenLibrary }

// Resolve implements Source. Open Library is consulted only for ISBNs.
func (c *OpenLibrary) Resolve(ctx context.Context, q Query) (*metadata.Record, error) {
	if q.ISBN == "" {
		return nil, ErrUnsupportedQuery
	}
	return c.LookupISBN(ctx, q.ISBN)
}

// olBook is the wire shape of an Open Library book entry.
type olBook struct {
	Title   string `json:"title"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	Publishers []struct {
		Name string `json:"name"`
	} `json:"publishers"`
	PublishDate string `json:"publish_date"`
}

// LookupISBN fetches book metadata for an ISBN.
func (c *OpenLibrary) LookupISBN(ctx context.Context, isbn string) (*metadata.Record, error) {
	key := "ISBN:" + isbn
	params := url.Values{}
	params.Set("bibkeys", key)
	params.Set("format", "json")
	params.Set("jscmd", "data")
	u := fmt.Sprintf("%s/api/books?%s", c.baseURL, params.Encode())

	// The response is an object keyed by the requested bibkey; a
	// missing key means no match.
	var resp map[string]olBook
	if err := getJSON(ctx, c.httpClient, c.limiter, c.Name(), u, nil, &resp); err != nil {
		return nil, err
	}
	book, ok := resp[key]
	if !ok {
		return nil, ErrNoMatch
	}

	rec := metadata.Record{
		Title:  book.Title,
		Year:   ExtractYear(book.PublishDate),
		ISBN:   isbn,
		Source: c.Name(),
	}
	for _, a := range book.Authors {
		if name := metadata.NormalizeName(a.Name); name != "" {
			rec.Authors = append(rec.Authors, name)
		}
	}
	if len(book.Publishers) > 0 {
		rec.Publisher = book.Publishers[0].Name
	}
	return &rec, nil
}
