// Package nats serves analysis requests and publishes findings over the
// message bus.
package nats

import (
	"time"

	"github.com/telhawk-systems/fwlens/analytics"
)

// AnalyzeJobRequest is the message format for the fwlens.analyze.request
// subject. Zero values take the same defaults as the HTTP API.
type AnalyzeJobRequest struct {
	JobID string `json:"job_id,omitempty"`
	Query string `json:"query,omitempty"`
	Days  int    `json:"days,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// SearchRequest converts the job into a pipeline request.
func (r AnalyzeJobRequest) SearchRequest() analytics.SearchRequest {
	return analytics.SearchRequest{Query: r.Query, Days: r.Days, Limit: r.Limit}
}

// AnalyzeJobResponse is sent to the reply subject of an AnalyzeJobRequest.
type AnalyzeJobResponse struct {
	JobID   string            `json:"job_id,omitempty"`
	Success bool              `json:"success"`
	Error   string            `json:"error,omitempty"`
	Report  *analytics.Report `json:"report,omitempty"`
	TookMs  int64             `json:"took_ms"`
}

// FindingsEvent is published once per analysis that produced findings.
// It carries the tables a downstream responder needs, not the records.
type FindingsEvent struct {
	AnalysisID          string                  `json:"analysis_id"`
	GeneratedAt         time.Time               `json:"generated_at"`
	IndexPattern        string                  `json:"index_pattern"`
	Request             analytics.SearchRequest `json:"request"`
	TotalLogs           int                     `json:"total_logs"`
	Findings            []analytics.Finding     `json:"findings"`
	SuspiciousFailedIPs analytics.Breakdown     `json:"suspicious_failed_ips"`
	SuspiciousVolumeIPs []analytics.IPVolume    `json:"suspicious_volume_ips"`
}

// NewFindingsEvent extracts the event from a report.
func NewFindingsEvent(report *analytics.Report) FindingsEvent {
	return FindingsEvent{
		AnalysisID:          report.ID,
		GeneratedAt:         report.GeneratedAt,
		IndexPattern:        report.IndexPattern,
		Request:             report.Request,
		TotalLogs:           report.Summary.TotalLogs,
		Findings:            report.Findings,
		SuspiciousFailedIPs: report.SuspiciousFailedIPs,
		SuspiciousVolumeIPs: report.SuspiciousVolumeIPs,
	}
}
