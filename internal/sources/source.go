// Package sources implements clients for the external metadata
// providers. Each client normalizes its provider's response shape into
// a metadata.Record at this boundary; callers never see provider JSON.
package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"golang.org/x/time/rate"

	"github.com/refile/refile/internal/metadata"
)

// userAgent identifies the tool to providers, several of which require
// a contact address for polite-pool access.
const userAgent = "refile/1.0 (https://github.com/refile/refile; mailto:refile@example.com)"

// DefaultTimeout is the default per-request HTTP timeout.
const DefaultTimeout = 10 * time.Second

// Query carries the identifier candidates and title hint extracted
// from one file. Any subset of fields may be empty.
type Query struct {
	DOI        string
	ISBN       string
	TitleGuess string
}

// Empty reports whether the query has nothing to look up.
func (q Query) Empty() bool {
	return q.DOI == "" && q.ISBN == "" && q.TitleGuess == ""
}

// Source is one external metadata provider. Resolve returns a
// normalized record, ErrNoMatch/ErrUnsupportedQuery when the provider
// has nothing for the query, or a transport error.
type Source interface {
	Name() string
	Resolve(ctx context.Context, q Query) (*metadata.Record, error)
}

// getJSON performs a rate-limited GET and decodes the JSON response
// into v. HTTP errors are mapped onto the package's error taxonomy.
func getJSON(ctx context.Context, hc *http.Client, limiter *rate.Limiter, source, url string, header http.Header, v any) error {
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	for k, vals := range header {
		for _, val := range vals {
			req.Header.Add(k, val)
		}
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if err := checkHTTPErrors(source, resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w from %s: %v", ErrInvalidResponse, source, err)
	}
	return nil
}

// checkHTTPErrors returns an error if the response indicates a problem.
// A 404 is reported as ErrNoMatch since identifier lookups use it to
// mean "no such record".
func checkHTTPErrors(source string, resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNoMatch
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, source)
	case resp.StatusCode >= 400:
		return &APIError{
			Source:     source,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("HTTP %d", resp.StatusCode),
		}
	}
	return nil
}

// yearPattern matches a plausible publication year inside the various
// date formats providers return ("2024-01-02", "June 2024", "c2019").
var yearPattern = regexp.MustCompile(`\b(?:1[5-9]|20)\d{2}\b`)

// ExtractYear pulls the first plausible year out of a date string.
func ExtractYear(s string) string {
	return yearPattern.FindString(s)
}
