// Package resolve turns identifier candidates into exactly one
// metadata record per file by querying an ordered chain of external
// sources with per-source timeouts, retries, and confidence scoring.
package resolve

import (
	"context"
	"log/slog"
	"time"

	"github.com/refile/refile/internal/metadata"
	"github.com/refile/refile/internal/sources"
)

// Defaults for per-source behavior and early acceptance.
const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxAttempts = 2

	// DefaultAcceptConfidence is the score at which resolution stops
	// without consulting the remaining sources. An exact DOI hit with
	// reasonably complete fields clears it; fuzzy matches rarely do.
	DefaultAcceptConfidence = 0.8
)

// SourceConfig tunes one entry of the resolution chain.
type SourceConfig struct {
	Timeout     time.Duration
	MaxAttempts int
}

func (sc SourceConfig) withDefaults() SourceConfig {
	if sc.Timeout <= 0 {
		sc.Timeout = DefaultTimeout
	}
	if sc.MaxAttempts <= 0 {
		sc.MaxAttempts = DefaultMaxAttempts
	}
	return sc
}

// Resolver queries sources in a fixed order: the bibliographic
// registry first (DOI, highest trust), then the scholarly graph, then
// the book catalogs for ISBNs. A source failing or backing off never
// aborts resolution; the worst case degrades to the unknown sentinel.
type Resolver struct {
	chain  []entry
	accept float64
	logger *slog.Logger
}

type entry struct {
	source sources.Source
	cfg    SourceConfig
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithAcceptConfidence overrides the early-acceptance threshold.
func WithAcceptConfidence(threshold float64) Option {
	return func(r *Resolver) {
		if threshold > 0 {
			r.accept = threshold
		}
	}
}

// WithLogger sets a structured logger for per-source failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// New creates a Resolver over the given ordered chain. Configs are
// matched to sources by name; missing entries get defaults.
func New(chain []sources.Source, cfgs map[string]SourceConfig, opts ...Option) *Resolver {
	r := &Resolver{
		accept: DefaultAcceptConfidence,
		logger: slog.Default(),
	}
	for _, s := range chain {
		r.chain = append(r.chain, entry{
			source: s,
			cfg:    cfgs[s.Name()].withDefaults(),
		})
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve produces exactly one record for the query. It never returns
// an error: every failure mode degrades to the unknown sentinel so a
// scan always completes for every file.
func (r *Resolver) Resolve(ctx context.Context, q sources.Query) metadata.Record {
	if q.Empty() {
		return metadata.Unknown()
	}

	best := metadata.Unknown()
	for _, e := range r.chain {
		rec, err := r.query(ctx, e, q)
		if err != nil {
			if !sources.IsNoMatch(err) {
				r.logger.Debug("metadata source failed",
					slog.String("source", e.source.Name()),
					slog.String("error", err.Error()))
			}
			continue
		}

		rec.Confidence = Score(q, *rec)
		if rec.Confidence <= 0 {
			continue
		}
		if rec.Confidence >= r.accept {
			return *rec
		}
		if rec.Confidence > best.Confidence {
			best = *rec
		}
	}

	return best
}

// query calls one source with its timeout, retrying transient failures
// up to the configured attempt count.
func (r *Resolver) query(ctx context.Context, e entry, q sources.Query) (*metadata.Record, error) {
	var lastErr error
	for attempt := 0; attempt < e.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		callCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
		rec, err := e.source.Resolve(callCtx, q)
		cancel()

		if err == nil {
			return rec, nil
		}
		lastErr = err
		if !sources.IsRetryable(err) {
			break
		}
	}
	return nil, lastErr
}
