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
	// GoogleBooksBaseURL is the Google Books volumes API base URL.
	GoogleBooksBaseURL = "https://www.googleapis.com/books/v1"

	googleBooksRateLimit = 2.0
)

// GoogleBooks is a rate-limited client for the Google Books catalog,
// the second independent book source consulted for ISBNs.
type GoogleBooks struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
}

// GoogleBooksOption configures a GoogleBooks client.
type GoogleBooksOption func(*GoogleBooks)

// WithGoogleBooksHTTPClient sets a custom HTTP client.
func WithGoogleBooksHTTPClient(hc *http.Client) GoogleBooksOption {
	return func(c *GoogleBooks) {
		c.httpClient = hc
	}
}

// WithGoogleBooksBaseURL sets a custom base URL (for testing).
func WithGoogleBooksBaseURL(url string) GoogleBooksOption {
	return func(c *GoogleBooks) {
		c.baseURL = url
	}
}

// WithGoogleBooksRate overrides the request rate limit.
func WithGoogleBooksRate(perSecond float64) GoogleBooksOption {
	return func(c *GoogleBooks) {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// NewGoogleBooks creates a Google Books client.
func NewGoogleBooks(opts ...GoogleBooksOption) *GoogleBooks {
	c := &GoogleBooks{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(googleBooksRateLimit), 1),
		baseURL:    GoogleBooksBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements Source.
func (c *GoogleBooks) Name() string { return metadata.SourceGoogleBooks }

// Resolve implements Source. Google Books is consulted only for ISBNs.
func (c *GoogleBooks) Resolve(ctx context.Context, q Query) (*metadata.Record, error) {
	if q.ISBN == "" {
		return nil, ErrUnsupportedQuery
	}
	return c.LookupISBN(ctx, q.ISBN)
}

// LookupISBN fetches volume metadata for an ISBN.
func (c *GoogleBooks) LookupISBN(ctx context.Context, isbn string) (*metadata.Record, error) {
	var resp struct {
		Items []struct {
			VolumeInfo struct {
				Title         string   `json:"title"`
				Authors       []string `json:"authors"`
				Publisher     string   `json:"publisher"`
				PublishedDate string   `json:"publishedDate"`
			} `json:"volumeInfo"`
		} `json:"items"`
	}
	params := url.Values{}
	params.Set("q", "isbn:"+isbn)
	u := fmt.Sprintf("%s/volumes?%s", c.baseURL, params.Encode())
	if err := getJSON(ctx, c.httpClient, c.limiter, c.Name(), u, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, ErrNoMatch
	}

	info := resp.Items[0].VolumeInfo
	rec := metadata.Record{
		Title:     info.Title,
		Year:      ExtractYear(info.PublishedDate),
		Publisher: info.Publisher,
		ISBN:      isbn,
		Source:    c.Name(),
	}
	for _, a := range info.Authors {
		if name := metadata.NormalizeName(a); name != "" {
			rec.Authors = append(rec.Authors, name)
		}
	}
	return &rec, nil
}
