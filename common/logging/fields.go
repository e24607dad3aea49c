package logging

import "log/slog"

// Common field names for consistent logging across fwlens.
const (
	FieldService    = "service"
	FieldRequestID  = "request_id"
	FieldUsername   = "username"
	FieldIP         = "ip"
	FieldError      = "error"
	FieldQuery      = "query"
	FieldIndex      = "index"
	FieldAnalysisID = "analysis_id"
	FieldRecords    = "records"
	FieldFindings   = "findings"
	FieldDuration   = "duration_ms"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// Username returns a slog attribute for the username.
func Username(name string) slog.Attr {
	return slog.String(FieldUsername, name)
}

// IP returns a slog attribute for the client IP address.
func IP(ip string) slog.Attr {
	return slog.String(FieldIP, ip)
}

// Error returns a slog attribute for an error. A nil error logs as an empty string.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}

// Query returns a slog attribute for a search query string.
func Query(query string) slog.Attr {
	return slog.String(FieldQuery, query)
}

// Index returns a slog attribute for an index pattern.
func Index(pattern string) slog.Attr {
	return slog.String(FieldIndex, pattern)
}

// AnalysisID returns a slog attribute for a report ID.
func AnalysisID(id string) slog.Attr {
	return slog.String(FieldAnalysisID, id)
}

// Records returns a slog attribute for a batch size.
func Records(n int) slog.Attr {
	return slog.Int(FieldRecords, n)
}

// Findings returns a slog attribute for the number of findings.
func Findings(n int) slog.Attr {
	return slog.Int(FieldFindings, n)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}
