package analytics

import (
	"strings"
	"time"
)

const (
	// DefaultIndexPattern matches the daily FortiGate indices.
	DefaultIndexPattern = "fortigate-*"

	// TimestampField is the event time field used for filtering and sorting.
	TimestampField = "@timestamp"

	// WildcardQuery matches every document.
	WildcardQuery = "*"
)

// SearchRequest is the plain request descriptor handed between callers and the
// pipeline.
type SearchRequest struct {
	Query string `json:"query" yaml:"query"`
	Days  int    `json:"days" yaml:"days"`
	Limit int    `json:"limit" yaml:"limit"`
}

// Limits bounds the lookback window and result size of a SearchRequest.
type Limits struct {
	DefaultDays  int
	MaxDays      int
	DefaultLimit int
	MaxLimit     int
}

// DefaultLimits mirrors the dashboard controls: 1–7 days (default 3) and up to
// 5000 records (default 1000).
func DefaultLimits() Limits {
	return Limits{
		DefaultDays:  3,
		MaxDays:      7,
		DefaultLimit: 1000,
		MaxLimit:     5000,
	}
}

// WithDefaults fills unset fields and clamps the request into l.
func (r SearchRequest) WithDefaults(l Limits) SearchRequest {
	out := r
	out.Query = strings.TrimSpace(out.Query)
	if out.Query == "" {
		out.Query = WildcardQuery
	}
	if out.Days <= 0 {
		out.Days = l.DefaultDays
	}
	if l.MaxDays > 0 && out.Days > l.MaxDays {
		out.Days = l.MaxDays
	}
	if out.Limit <= 0 {
		out.Limit = l.DefaultLimit
	}
	if l.MaxLimit > 0 && out.Limit > l.MaxLimit {
		out.Limit = l.MaxLimit
	}
	return out
}

// IsWildcard reports whether the request carries no text filter.
func (r SearchRequest) IsWildcard() bool {
	q := strings.TrimSpace(r.Query)
	return q == "" || q == WildcardQuery
}

// Since returns the lower bound of the lookback window relative to now.
func (r SearchRequest) Since(now time.Time) time.Time {
	return now.Add(-time.Duration(r.Days) * 24 * time.Hour)
}

// BuildQuery translates req into OpenSearch Query DSL. The output depends only
// on req and now.
func BuildQuery(req SearchRequest, now time.Time) map[string]interface{} {
	var must interface{}
	if req.IsWildcard() {
		must = map[string]interface{}{
			"match_all": map[string]interface{}{},
		}
	} else {
		must = map[string]interface{}{
			"query_string": map[string]interface{}{
				"query": strings.TrimSpace(req.Query),
			},
		}
	}

	return map[string]interface{}{
		"size": req.Limit,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []interface{}{must},
				"filter": []interface{}{
					map[string]interface{}{
						"range": map[string]interface{}{
							TimestampField: map[string]interface{}{
								"gte": req.Since(now).UTC().Format(time.RFC3339),
							},
						},
					},
				},
			},
		},
		"sort": []interface{}{
			map[string]interface{}{
				TimestampField: map[string]interface{}{
					"order": "desc",
				},
			},
		},
	}
}
