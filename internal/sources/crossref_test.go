package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const crossRefWorkJSON = `{
	"message": {
		"DOI": "10.1016/j.cell.2024.01",
		"title": ["Cortical Dynamics in Mice"],
		"author": [{"family": "Smith", "given": "Jane"}],
		"published-print": {"date-parts": [[2024, 1]]},
		"short-container-title": ["Cell"],
		"publisher": "Elsevier"
	}
}`

func TestCrossRefLookupDOI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/works/10.1016%2Fj.cell.2024.01" && r.URL.Path != "/works/10.1016/j.cell.2024.01" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(crossRefWorkJSON))
	}))
	defer srv.Close()

	c := NewCrossRef(WithCrossRefBaseURL(srv.URL), WithCrossRefRate(1000))
	rec, err := c.LookupDOI(context.Background(), "10.1016/j.cell.2024.01")
	if err != nil {
		t.Fatalf("LookupDOI: %v", err)
	}

	if rec.Title != "Cortical Dynamics in Mice" {
		t.Errorf("title = %q", rec.Title)
	}
	if len(rec.Authors) != 1 || rec.Authors[0] != "Smith, Jane" {
		t.Errorf("authors = %v", rec.Authors)
	}
	if rec.Year != "2024" {
		t.Errorf("year = %q", rec.Year)
	}
	if rec.Journal != "Cell" {
		t.Errorf("journal = %q", rec.Journal)
	}
	if rec.Publisher != "Elsevier" {
		t.Errorf("publisher = %q", rec.Publisher)
	}
	if rec.Source != "crossref" {
		t.Errorf("source = %q", rec.Source)
	}
	if rec.Confidence != 0 {
		t.Errorf("sources must not assign confidence, got %v", rec.Confidence)
	}
}

func TestCrossRefLookupDOINotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewCrossRef(WithCrossRefBaseURL(srv.URL), WithCrossRefRate(1000))
	_, err := c.LookupDOI(context.Background(), "10.9999/missing")
	if !errors.Is(err, ErrNoMatch) {
		t.Errorf("err = %v, want ErrNoMatch", err)
	}
}

func TestCrossRefSearchTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("query.title"); got != "cortical dynamics" {
			t.Errorf("query.title = %q", got)
		}
		w.Write([]byte(`{"message": {"items": [` +
			`{"DOI": "10.1016/j.cell.2024.01", "title": ["Cortical Dynamics in Mice"],` +
			`"author": [{"family": "Smith", "given": "Jane"}],` +
			`"created": {"date-parts": [[2024]]},` +
			`"container-title": ["Cell"]}]}}`))
	}))
	defer srv.Close()

	c := NewCrossRef(WithCrossRefBaseURL(srv.URL), WithCrossRefRate(1000))
	rec, err := c.SearchTitle(context.Background(), "cortical dynamics")
	if err != nil {
		t.Fatalf("SearchTitle: %v", err)
	}
	if rec.DOI != "10.1016/j.cell.2024.01" {
		t.Errorf("doi = %q", rec.DOI)
	}
	if rec.Journal != "Cell" {
		t.Errorf("journal fallback to container-title failed: %q", rec.Journal)
	}
}

func TestCrossRefRateLimitedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewCrossRef(WithCrossRefBaseURL(srv.URL), WithCrossRefRate(1000))
	_, err := c.LookupDOI(context.Background(), "10.1/x")
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}
	if !IsRetryable(err) {
		t.Error("rate limit errors should be retryable")
	}
}

func TestCrossRefServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewCrossRef(WithCrossRefBaseURL(srv.URL), WithCrossRefRate(1000))
	_, err := c.LookupDOI(context.Background(), "10.1/x")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.StatusCode != 500 {
		t.Errorf("status = %d", apiErr.StatusCode)
	}
	if !IsRetryable(err) {
		t.Error("5xx errors should be retryable")
	}
}

func TestCrossRefResolveDeadDOIFallsBackToTitle(t *testing.T) {
	var searched bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The extracted DOI is not registered; only title search hits.
		if r.URL.Path != "/works" {
			http.NotFound(w, r)
			return
		}
		searched = true
		if got := r.URL.Query().Get("query.title"); got != "Cortical Dynamics in Mice" {
			t.Errorf("query.title = %q", got)
		}
		w.Write([]byte(`{"message": {"items": [` +
			`{"DOI": "10.1016/j.cell.2024.01", "title": ["Cortical Dynamics in Mice"],` +
			`"author": [{"family": "Smith", "given": "Jane"}],` +
			`"created": {"date-parts": [[2024]]}}]}}`))
	}))
	defer srv.Close()

	c := NewCrossRef(WithCrossRefBaseURL(srv.URL), WithCrossRefRate(1000))
	rec, err := c.Resolve(context.Background(), Query{
		DOI:        "10.1234/bogus",
		TitleGuess: "Cortical Dynamics in Mice",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !searched {
		t.Fatal("title search never ran after the DOI miss")
	}
	if rec.Title != "Cortical Dynamics in Mice" {
		t.Errorf("title = %q", rec.Title)
	}
}

func TestCrossRefResolveDeadDOIWithoutTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(http.NotFound))
	defer srv.Close()

	c := NewCrossRef(WithCrossRefBaseURL(srv.URL), WithCrossRefRate(1000))
	_, err := c.Resolve(context.Background(), Query{DOI: "10.1234/bogus"})
	if !errors.Is(err, ErrNoMatch) {
		t.Errorf("err = %v, want ErrNoMatch", err)
	}
}

func TestCrossRefResolveUnsupported(t *testing.T) {
	c := NewCrossRef(WithCrossRefRate(1000))
	_, err := c.Resolve(context.Background(), Query{ISBN: "9780306406157"})
	if !errors.Is(err, ErrUnsupportedQuery) {
		t.Errorf("err = %v, want ErrUnsupportedQuery", err)
	}
}
