package resolve

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/refile/refile/internal/metadata"
	"github.com/refile/refile/internal/sources"
)

// fakeSource is a scripted Source for resolver tests.
type fakeSource struct {
	name  string
	rec   *metadata.Record
	err   error
	calls int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Resolve(ctx context.Context, q sources.Query) (*metadata.Record, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	rec := *f.rec
	return &rec, nil
}

func completeRecord(source, doi string) *metadata.Record {
	return &metadata.Record{
		Title:   "Cortical Dynamics in Mice",
		Authors: []string{"Smith, Jane"},
		Year:    "2024",
		Journal: "Cell",
		DOI:     doi,
		Source:  source,
	}
}

func TestResolveDOIHitStopsChain(t *testing.T) {
	crossref := &fakeSource{
		name: metadata.SourceCrossRef,
		rec:  completeRecord(metadata.SourceCrossRef, "10.1016/j.cell.2024.01"),
	}
	second := &fakeSource{name: metadata.SourceSemanticScholar, err: sources.ErrNoMatch}

	r := New([]sources.Source{crossref, second}, nil)
	rec := r.Resolve(context.Background(), sources.Query{DOI: "10.1016/j.cell.2024.01"})

	if rec.Source != metadata.SourceCrossRef {
		t.Errorf("source = %q, want crossref", rec.Source)
	}
	if rec.Confidence < 0.8 {
		t.Errorf("confidence = %v, want >= 0.8", rec.Confidence)
	}
	if second.calls != 0 {
		t.Errorf("chain should stop at accepted DOI hit, second source called %d times", second.calls)
	}
}

func TestResolveFallsThroughFailures(t *testing.T) {
	failing := &fakeSource{name: metadata.SourceCrossRef, err: sources.ErrRateLimited}
	book := &fakeSource{
		name: metadata.SourceOpenLibrary,
		rec: &metadata.Record{
			Title:   "A Book",
			Authors: []string{"Doe, John"},
			Year:    "2020",
			ISBN:    "9780306406157",
			Source:  metadata.SourceOpenLibrary,
		},
	}

	r := New([]sources.Source{failing, book}, nil)
	rec := r.Resolve(context.Background(), sources.Query{ISBN: "9780306406157"})

	if rec.Source != metadata.SourceOpenLibrary {
		t.Errorf("source = %q, want open_library", rec.Source)
	}
	if rec.Confidence <= 0 || rec.Confidence > 1 {
		t.Errorf("confidence = %v, want in (0,1]", rec.Confidence)
	}
}

func TestResolveAllFailYieldsSentinel(t *testing.T) {
	chain := []sources.Source{
		&fakeSource{name: metadata.SourceCrossRef, err: sources.ErrNetworkError},
		&fakeSource{name: metadata.SourceSemanticScholar, err: sources.ErrNoMatch},
	}
	r := New(chain, nil)
	rec := r.Resolve(context.Background(), sources.Query{DOI: "10.1000/x.y"})

	if !rec.IsUnknown() {
		t.Errorf("record = %+v, want unknown sentinel", rec)
	}
	if rec.Confidence != 0 {
		t.Errorf("sentinel confidence = %v, want 0", rec.Confidence)
	}
}

func TestResolveEmptyQueryYieldsSentinel(t *testing.T) {
	crossref := &fakeSource{name: metadata.SourceCrossRef, rec: completeRecord(metadata.SourceCrossRef, "10.1/x")}
	r := New([]sources.Source{crossref}, nil)
	rec := r.Resolve(context.Background(), sources.Query{})

	if !rec.IsUnknown() {
		t.Errorf("record = %+v, want unknown sentinel", rec)
	}
	if crossref.calls != 0 {
		t.Error("no source should be consulted for an empty query")
	}
}

func TestResolveKeepsBestCandidate(t *testing.T) {
	// Two fuzzy matches below the acceptance threshold: the higher
	// scoring one wins.
	partial := &fakeSource{
		name: metadata.SourceSemanticScholar,
		rec: &metadata.Record{
			Title:  "cortical dynamics in mice",
			Source: metadata.SourceSemanticScholar,
		},
	}
	complete := &fakeSource{
		name: metadata.SourceZotero,
		rec: &metadata.Record{
			Title:   "cortical dynamics in mice",
			Authors: []string{"Smith, Jane"},
			Year:    "2024",
			Source:  metadata.SourceZotero,
		},
	}

	r := New([]sources.Source{partial, complete}, nil, WithAcceptConfidence(0.99))
	rec := r.Resolve(context.Background(), sources.Query{TitleGuess: "cortical dynamics in mice"})

	if rec.Source != metadata.SourceZotero {
		t.Errorf("source = %q, want the more complete zotero candidate", rec.Source)
	}
}

func TestResolveDeadDOIUsesTitleSearch(t *testing.T) {
	// A garbled extracted DOI must not sink the whole resolution when
	// the title guess is good.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/works" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"message": {"items": [` +
			`{"DOI": "10.1016/j.cell.2024.01", "title": ["Cortical Dynamics in Mice"],` +
			`"author": [{"family": "Smith", "given": "Jane"}],` +
			`"created": {"date-parts": [[2024]]},` +
			`"container-title": ["Cell"]}]}}`))
	}))
	defer srv.Close()

	crossref := sources.NewCrossRef(
		sources.WithCrossRefBaseURL(srv.URL),
		sources.WithCrossRefRate(1000),
	)
	r := New([]sources.Source{crossref}, nil)
	rec := r.Resolve(context.Background(), sources.Query{
		DOI:        "10.1234/bogus",
		TitleGuess: "Cortical Dynamics in Mice",
	})

	if rec.IsUnknown() {
		t.Fatal("dead DOI with a good title guess degraded to the unknown sentinel")
	}
	if rec.Source != metadata.SourceCrossRef {
		t.Errorf("source = %q, want crossref", rec.Source)
	}
	if rec.Confidence < DefaultAcceptConfidence {
		t.Errorf("confidence = %v, want >= %v", rec.Confidence, DefaultAcceptConfidence)
	}
}

func TestResolveRetriesTransientErrors(t *testing.T) {
	flaky := &fakeSource{name: metadata.SourceCrossRef, err: sources.ErrNetworkError}
	noRetry := &fakeSource{name: metadata.SourceSemanticScholar, err: sources.ErrNoMatch}

	cfgs := map[string]SourceConfig{
		metadata.SourceCrossRef:        {MaxAttempts: 3, Timeout: time.Second},
		metadata.SourceSemanticScholar: {MaxAttempts: 3, Timeout: time.Second},
	}
	r := New([]sources.Source{flaky, noRetry}, cfgs)
	r.Resolve(context.Background(), sources.Query{DOI: "10.1000/x.y"})

	if flaky.calls != 3 {
		t.Errorf("transient failure attempts = %d, want 3", flaky.calls)
	}
	if noRetry.calls != 1 {
		t.Errorf("no-match attempts = %d, want 1 (not retryable)", noRetry.calls)
	}
}

func TestResolveCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &fakeSource{name: metadata.SourceCrossRef, err: errors.New("should not matter")}
	r := New([]sources.Source{src}, nil)
	rec := r.Resolve(ctx, sources.Query{DOI: "10.1000/x.y"})

	if !rec.IsUnknown() {
		t.Errorf("cancelled resolve = %+v, want sentinel", rec)
	}
}

func TestScoreOrderingInvariants(t *testing.T) {
	q := sources.Query{
		DOI:        "10.1016/j.cell.2024.01",
		ISBN:       "9780306406157",
		TitleGuess: "Cortical Dynamics in Mice",
	}

	doiHit := *completeRecord(metadata.SourceCrossRef, "10.1016/j.cell.2024.01")
	isbnHit := metadata.Record{
		Title:   "Cortical Dynamics in Mice",
		Authors: []string{"Smith, Jane"},
		Year:    "2024",
		ISBN:    "9780306406157",
		Source:  metadata.SourceOpenLibrary,
	}
	fuzzyHit := metadata.Record{
		Title:   "Cortical Dynamics in Mice",
		Authors: []string{"Smith, Jane"},
		Year:    "2024",
		Source:  metadata.SourceSemanticScholar,
	}

	doiScore := Score(q, doiHit)
	isbnScore := Score(q, isbnHit)
	fuzzyScore := Score(q, fuzzyHit)

	if !(doiScore > isbnScore && isbnScore > fuzzyScore) {
		t.Errorf("specificity ordering violated: doi=%v isbn=%v fuzzy=%v", doiScore, isbnScore, fuzzyScore)
	}

	// Completeness: partial DOI hit scores below complete DOI hit.
	partial := metadata.Record{DOI: "10.1016/j.cell.2024.01", Title: "T", Source: metadata.SourceCrossRef}
	if Score(q, partial) >= doiScore {
		t.Error("partial record should score below complete record")
	}

	// Bounds.
	for _, s := range []float64{doiScore, isbnScore, fuzzyScore} {
		if s < 0 || s > 1 {
			t.Errorf("score %v out of [0,1]", s)
		}
	}
}

func TestScoreNoMatchIsZero(t *testing.T) {
	q := sources.Query{DOI: "10.1/a"}
	rec := metadata.Record{Title: "Unrelated", DOI: "10.2/b", Source: metadata.SourceCrossRef}
	if got := Score(q, rec); got != 0 {
		t.Errorf("Score for non-matching record = %v, want 0", got)
	}
}

func TestNormalizeDOI(t *testing.T) {
	want := "10.1016/j.cell.2024.01"
	for _, in := range []string{
		"10.1016/j.cell.2024.01",
		"DOI:10.1016/j.cell.2024.01",
		"https://doi.org/10.1016/j.cell.2024.01",
		"10.1016/J.CELL.2024.01",
	} {
		if got := normalizeDOI(in); got != want {
			t.Errorf("normalizeDOI(%q) = %q, want %q", in, got, want)
		}
	}
}
