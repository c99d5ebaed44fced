// Package scan walks a directory of PDFs and produces rename plans:
// extracted identifiers resolved to metadata and rendered into proposed
// filenames. Scanning never renames anything.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/refile/refile/internal/filename"
	"github.com/refile/refile/internal/metadata"
	"github.com/refile/refile/internal/pdfscan"
	"github.com/refile/refile/internal/sources"
)

// DefaultWorkers is the number of files processed concurrently.
const DefaultWorkers = 4

// MetadataResolver resolves extracted identifiers to a scored record.
type MetadataResolver interface {
	Resolve(ctx context.Context, q sources.Query) metadata.Record
}

// Plan is one proposed rename. Confidence zero means no source matched
// and the proposal falls back to the file's current name.
type Plan struct {
	OriginalPath string          `json:"original_path"`
	OriginalName string          `json:"original_name"`
	ProposedName string          `json:"proposed_name"`
	Metadata     metadata.Record `json:"metadata"`
	Source       string          `json:"source"`
	Confidence   float64         `json:"confidence"`
}

// Planner scans directories and builds rename plans.
type Planner struct {
	resolver MetadataResolver
	template string
	workers  int
	logger   *slog.Logger
}

// Option configures a Planner.
type Option func(*Planner)

// WithTemplate sets the filename template or preset name.
func WithTemplate(template string) Option {
	return func(p *Planner) {
		p.template = template
	}
}

// WithWorkers sets the scan concurrency.
func WithWorkers(n int) Option {
	return func(p *Planner) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Planner) {
		p.logger = logger
	}
}

// New creates a Planner over the given resolver.
func New(resolver MetadataResolver, opts ...Option) *Planner {
	p := &Planner{
		resolver: resolver,
		workers:  DefaultWorkers,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Scan plans renames for every PDF directly inside dir, in name order.
// Files are processed concurrently but results keep scan order, and
// proposed names are deduplicated against the directory and each other.
func (p *Planner) Scan(ctx context.Context, dir string) ([]Plan, error) {
	paths, err := listPDFs(dir)
	if err != nil {
		return nil, err
	}

	plans := make([]Plan, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			plans[i] = p.planOne(ctx, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Collision pass runs after collection so earlier files win the
	// unsuffixed name deterministically.
	taken := make(map[string]bool)
	for i := range plans {
		plans[i].ProposedName = filename.EnsureUnique(
			dir, plans[i].ProposedName, plans[i].OriginalPath, taken)
	}
	return plans, nil
}

// planOne extracts, resolves and renders a single file. It never
// fails: unreadable PDFs and resolver misses degrade to a plan that
// keeps the current name.
func (p *Planner) planOne(ctx context.Context, path string) Plan {
	name := filepath.Base(path)
	plan := Plan{
		OriginalPath: path,
		OriginalName: name,
		ProposedName: name,
	}

	info := pdfscan.ExtractInfo(path)
	query := sources.Query{
		DOI:        firstOf(info.DOIs),
		ISBN:       firstOf(info.ISBNs),
		TitleGuess: info.TitleGuess,
	}

	rec := p.resolver.Resolve(ctx, query)
	plan.Metadata = rec
	plan.Source = rec.Source
	plan.Confidence = rec.Confidence

	if rec.IsUnknown() {
		p.logger.Debug("no metadata match", slog.String("file", name))
		return plan
	}

	stem := filename.Render(rec, p.template)
	if stem == "" {
		// Record too sparse to render anything useful.
		return plan
	}
	plan.ProposedName = stem + strings.ToLower(filepath.Ext(name))
	return plan
}

// listPDFs returns the PDF files directly inside dir, sorted by name.
func listPDFs(dir string) ([]string, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	var paths []string
	for _, d := range dirents {
		if d.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(d.Name()), ".pdf") {
			paths = append(paths, filepath.Join(dir, d.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func firstOf(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}
