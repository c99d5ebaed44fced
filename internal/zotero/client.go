// Package zotero integrates an optional Zotero library: as a metadata
// lookup source when credentials are configured, and as the
// best-effort library-sync target after a rename.
package zotero

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/refile/refile/internal/metadata"
	"github.com/refile/refile/internal/sources"
)

const (
	// BaseURL is the Zotero web API base URL.
	BaseURL = "https://api.zotero.org"

	rateLimit   = 2.0
	searchLimit = 3
)

// Credentials identify a Zotero library.
type Credentials struct {
	APIKey      string
	LibraryID   string
	LibraryType string // "user" or "group"
}

// Configured reports whether the credentials are usable.
func (c Credentials) Configured() bool {
	return c.APIKey != "" && c.LibraryID != ""
}

// Client is a rate-limited Zotero web API client.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	creds      Credentials
	baseURL    string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// NewClient creates a Zotero client for the given library.
func NewClient(creds Credentials, opts ...Option) *Client {
	if creds.LibraryType == "" {
		creds.LibraryType = "user"
	}
	c := &Client{
		httpClient: &http.Client{Timeout: sources.DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(rateLimit), 1),
		creds:      creds,
		baseURL:    BaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements sources.Source.
func (c *Client) Name() string { return metadata.SourceZotero }

// Resolve implements sources.Source by title search against the
// configured library.
func (c *Client) Resolve(ctx context.Context, q sources.Query) (*metadata.Record, error) {
	if !c.creds.Configured() || q.TitleGuess == "" {
		return nil, sources.ErrUnsupportedQuery
	}
	return c.SearchTitle(ctx, q.TitleGuess)
}

// zoteroItem is the wire shape of a Zotero item.
type zoteroItem struct {
	Key     string `json:"key"`
	Version int    `json:"version"`
	Data    struct {
		ItemType         string `json:"itemType"`
		ContentType      string `json:"contentType"`
		Title            string `json:"title"`
		Date             string `json:"date"`
		PublicationTitle string `json:"publicationTitle"`
		JournalAbbrev    string `json:"journalAbbreviation"`
		Publisher        string `json:"publisher"`
		DOI              string `json:"DOI"`
		Creators         []struct {
			FirstName string `json:"firstName"`
			LastName  string `json:"lastName"`
		} `json:"creators"`
	} `json:"data"`
}

func (c *Client) libraryURL(parts ...string) string {
	u := fmt.Sprintf("%s/%ss/%s", c.baseURL, c.creds.LibraryType, c.creds.LibraryID)
	for _, p := range parts {
		u += "/" + p
	}
	return u
}

// SearchTitle searches the library for a title match.
func (c *Client) SearchTitle(ctx context.Context, title string) (*metadata.Record, error) {
	params := url.Values{}
	params.Set("q", title)
	params.Set("limit", strconv.Itoa(searchLimit))
	params.Set("format", "json")
	u := c.libraryURL("items") + "?" + params.Encode()

	var items []zoteroItem
	if err := c.getJSON(ctx, u, &items); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, sources.ErrNoMatch
	}

	rec := c.normalize(items[0])
	return &rec, nil
}

// normalize maps a Zotero item onto the internal record shape.
func (c *Client) normalize(item zoteroItem) metadata.Record {
	d := item.Data
	journal := d.PublicationTitle
	if journal == "" {
		journal = d.JournalAbbrev
	}
	rec := metadata.Record{
		Title:     d.Title,
		Year:      sources.ExtractYear(d.Date),
		Journal:   journal,
		Publisher: d.Publisher,
		DOI:       d.DOI,
		ZoteroKey: item.Key,
		Source:    c.Name(),
	}
	for _, cr := range d.Creators {
		if name := metadata.JoinName(cr.LastName, cr.FirstName); name != "" {
			rec.Authors = append(rec.Authors, name)
		}
	}
	return rec
}

// UpdateAttachment renames the PDF attachment of the given item to the
// new filename. Used as fire-and-forget library sync after a rename.
func (c *Client) UpdateAttachment(ctx context.Context, itemKey, newFilename string) error {
	if !c.creds.Configured() {
		return fmt.Errorf("zotero credentials not configured")
	}

	var children []zoteroItem
	if err := c.getJSON(ctx, c.libraryURL("items", itemKey, "children"), &children); err != nil {
		return err
	}

	for _, child := range children {
		if child.Data.ItemType != "attachment" || child.Data.ContentType != "application/pdf" {
			continue
		}
		patch := map[string]string{
			"title":    newFilename,
			"filename": newFilename,
		}
		return c.patch(ctx, c.libraryURL("items", child.Key), child.Version, patch)
	}

	return fmt.Errorf("no PDF attachment on item %s", itemKey)
}

func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Zotero-API-Key", c.creds.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", sources.ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return sources.ErrNoMatch
	}
	if resp.StatusCode >= 400 {
		return &sources.APIError{
			Source:     c.Name(),
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("HTTP %d", resp.StatusCode),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", sources.ErrInvalidResponse, err)
	}
	return nil
}

func (c *Client) patch(ctx context.Context, url string, version int, body any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding patch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Zotero-API-Key", c.creds.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("If-Unmodified-Since-Version", strconv.Itoa(version))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", sources.ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return &sources.APIError{
			Source:     c.Name(),
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("HTTP %d", resp.StatusCode),
		}
	}
	return nil
}
