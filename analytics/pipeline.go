package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrSearchFailed wraps any failure of the external search execution. No
// partial report is produced when it is returned.
var ErrSearchFailed = errors.New("search failed")

// Searcher executes a query body against an index pattern and returns the
// _source documents of the hits in the order delivered.
type Searcher interface {
	Search(ctx context.Context, index string, body map[string]interface{}) ([]RawEvent, error)
}

// Report is everything derived from one batch, ready for rendering or
// transport.
type Report struct {
	ID           string        `json:"id"`
	GeneratedAt  time.Time     `json:"generated_at"`
	IndexPattern string        `json:"index_pattern"`
	Request      SearchRequest `json:"request"`
	Since        time.Time     `json:"since"`
	Records      []Record      `json:"records"`
	Summary      Summary       `json:"summary"`
	Detection
}

// Empty reports whether the batch held no records.
func (r *Report) Empty() bool {
	return len(r.Records) == 0
}

// Pipeline wires query building, search execution, normalization, detection and
// summary for one request at a time. It holds no per-request state.
type Pipeline struct {
	searcher   Searcher
	normalizer *Normalizer
	engine     *Engine
	limits     Limits
	index      string
	now        func() time.Time
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithNormalizer overrides the default normalizer.
func WithNormalizer(n *Normalizer) Option {
	return func(p *Pipeline) { p.normalizer = n }
}

// WithEngine overrides the default detection engine.
func WithEngine(e *Engine) Option {
	return func(p *Pipeline) { p.engine = e }
}

// WithLimits overrides the request bounds.
func WithLimits(l Limits) Option {
	return func(p *Pipeline) { p.limits = l }
}

// WithIndexPattern overrides the index pattern searched.
func WithIndexPattern(index string) Option {
	return func(p *Pipeline) {
		if index != "" {
			p.index = index
		}
	}
}

// WithClock overrides the wall clock used for the lookback filter.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline creates a pipeline backed by searcher.
func NewPipeline(searcher Searcher, opts ...Option) *Pipeline {
	p := &Pipeline{
		searcher:   searcher,
		normalizer: NewNormalizer(nil),
		engine:     NewEngine(),
		limits:     DefaultLimits(),
		index:      DefaultIndexPattern,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IndexPattern returns the index pattern searched.
func (p *Pipeline) IndexPattern() string {
	return p.index
}

// Prepare applies defaults to req and builds the query body.
func (p *Pipeline) Prepare(req SearchRequest) (SearchRequest, map[string]interface{}, time.Time) {
	req = req.WithDefaults(p.limits)
	now := p.now()
	return req, BuildQuery(req, now), now
}

// Fetch runs the search for req and returns the raw hits.
func (p *Pipeline) Fetch(ctx context.Context, req SearchRequest) (SearchRequest, []RawEvent, time.Time, error) {
	req, body, now := p.Prepare(req)
	events, err := p.searcher.Search(ctx, p.index, body)
	if err != nil {
		return req, nil, now, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}
	return req, events, now, nil
}

// Run executes the full pipeline for req.
func (p *Pipeline) Run(ctx context.Context, req SearchRequest) (*Report, error) {
	req, events, now, err := p.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	return p.Analyze(req, events, now), nil
}

// Analyze normalizes an already-fetched batch and derives the report. The batch
// is truncated to req.Limit.
func (p *Pipeline) Analyze(req SearchRequest, events []RawEvent, now time.Time) *Report {
	if req.Limit > 0 && len(events) > req.Limit {
		events = events[:req.Limit]
	}
	records := p.normalizer.NormalizeBatch(events)

	return &Report{
		ID:           uuid.New().String(),
		GeneratedAt:  now.UTC(),
		IndexPattern: p.index,
		Request:      req,
		Since:        req.Since(now).UTC(),
		Records:      records,
		Summary:      Summarize(records),
		Detection:    p.engine.Detect(records),
	}
}
