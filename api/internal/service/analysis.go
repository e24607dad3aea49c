// Package service runs the analytics pipeline for the API's HTTP and bus
// callers and records metrics for every run.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/telhawk-systems/fwlens/analytics"
	"github.com/telhawk-systems/fwlens/api/internal/metrics"
	"github.com/telhawk-systems/fwlens/common/logging"
)

// Sources label where an analysis request came from.
const (
	SourceHTTP = "http"
	SourceBus  = "bus"
)

// FindingsPublisher announces reports that produced findings.
type FindingsPublisher interface {
	PublishFindings(ctx context.Context, report *analytics.Report) error
}

// AnalysisService is the single entry point to the pipeline inside the API.
type AnalysisService struct {
	pipeline  *analytics.Pipeline
	publisher FindingsPublisher
	logger    *logging.Logger
}

// NewAnalysisService creates a service. publisher may be nil.
func NewAnalysisService(pipeline *analytics.Pipeline, publisher FindingsPublisher, logger *logging.Logger) *AnalysisService {
	if logger == nil {
		logger = logging.Default()
	}
	return &AnalysisService{
		pipeline:  pipeline,
		publisher: publisher,
		logger:    logger,
	}
}

// SetPublisher installs the findings publisher once the bus is connected.
func (s *AnalysisService) SetPublisher(p FindingsPublisher) {
	s.publisher = p
}

// IndexPattern returns the index pattern searched.
func (s *AnalysisService) IndexPattern() string {
	return s.pipeline.IndexPattern()
}

func (s *AnalysisService) fetch(ctx context.Context, req analytics.SearchRequest) (analytics.SearchRequest, []analytics.RawEvent, time.Time, error) {
	start := time.Now()
	req, events, now, err := s.pipeline.Fetch(ctx, req)
	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	return req, events, now, err
}

// Search returns the raw hits for req after defaults and bounds are applied.
func (s *AnalysisService) Search(ctx context.Context, req analytics.SearchRequest) (analytics.SearchRequest, []analytics.RawEvent, error) {
	req, events, _, err := s.fetch(ctx, req)
	if err != nil {
		s.logger.ErrorContext(ctx, "search failed",
			logging.Query(req.Query),
			logging.Index(s.pipeline.IndexPattern()),
			logging.Error(err))
		return req, nil, err
	}
	if req.Limit > 0 && len(events) > req.Limit {
		events = events[:req.Limit]
	}
	return req, events, nil
}

// Analyze runs the whole pipeline and publishes findings when any fired.
// A publish failure is logged and does not fail the analysis.
func (s *AnalysisService) Analyze(ctx context.Context, req analytics.SearchRequest, source string) (*analytics.Report, error) {
	start := time.Now()

	req, events, now, err := s.fetch(ctx, req)
	if err != nil {
		metrics.AnalysesTotal.WithLabelValues(source, "error").Inc()
		s.logger.ErrorContext(ctx, "analysis aborted",
			slog.String("source", source),
			logging.Query(req.Query),
			logging.Index(s.pipeline.IndexPattern()),
			logging.Error(err))
		return nil, err
	}

	report := s.pipeline.Analyze(req, events, now)

	metrics.AnalysesTotal.WithLabelValues(source, "ok").Inc()
	metrics.RecordsAnalyzed.Add(float64(len(report.Records)))
	for _, f := range report.Findings {
		metrics.FindingsTotal.WithLabelValues(string(f.Category)).Inc()
	}

	s.logger.InfoContext(ctx, "analysis complete",
		slog.String("source", source),
		logging.AnalysisID(report.ID),
		logging.Query(req.Query),
		logging.Records(len(report.Records)),
		logging.Findings(len(report.Findings)),
		logging.Duration(time.Since(start).Milliseconds()))

	if s.publisher != nil && len(report.Findings) > 0 {
		if err := s.publisher.PublishFindings(ctx, report); err != nil {
			metrics.FindingsPublished.WithLabelValues("error").Inc()
			s.logger.WarnContext(ctx, "failed to publish findings",
				logging.AnalysisID(report.ID),
				logging.Error(err))
		} else {
			metrics.FindingsPublished.WithLabelValues("ok").Inc()
		}
	}

	return report, nil
}
