package analytics

import (
	"fmt"
	"strings"
)

// Detection thresholds. Comparisons are strict (count > threshold) and the
// values are independent of each other and of batch size.
const (
	HighSeverityThreshold     = 0
	FailedAuthThreshold       = 10
	TrafficAnomalyThreshold   = 50
	SuspiciousVolumeThreshold = 50
	FailedIPThreshold         = 5
)

// SeverityHigh is the severity value counted by the high-severity rule.
const SeverityHigh = "high"

// ActionDeny marks blocked traffic.
const ActionDeny = "deny"

// failedMarker is matched case-sensitively against msg only. Localized or
// differently worded failures are not recognised.
const failedMarker = "failed"

// Category tags a Finding with the rule that produced it.
type Category string

const (
	CategoryHighSeverity   Category = "high-severity"
	CategoryFailedAuth     Category = "failed-auth-volume"
	CategoryTrafficAnomaly Category = "traffic-anomaly"
)

// Level is the display urgency of a Finding.
type Level string

const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
)

// Finding is a derived observation with the count and threshold behind it.
type Finding struct {
	Category  Category `json:"category"`
	Level     Level    `json:"level"`
	Message   string   `json:"message"`
	Count     int      `json:"count"`
	Threshold int      `json:"threshold"`
}

// Evidence holds the per-batch intermediate results shared by rules, so each
// is computed once.
type Evidence struct {
	Records     []Record
	Failed      []Record
	SrcIPCounts Breakdown
}

// NewEvidence scans records once for the failed subset and per-IP volume.
func NewEvidence(records []Record) *Evidence {
	ev := &Evidence{
		Records: records,
		Failed:  []Record{},
	}
	for _, r := range records {
		if IsFailedAttempt(r) {
			ev.Failed = append(ev.Failed, r)
		}
	}
	ev.SrcIPCounts = countBy(records, byField(FieldSrcIP))
	return ev
}

// IsFailedAttempt reports whether the record's message contains "failed".
// A null message never matches.
func IsFailedAttempt(r Record) bool {
	return r.Msg != nil && strings.Contains(*r.Msg, failedMarker)
}

// Rule is an independent detection over one batch. Evaluate must be pure.
type Rule struct {
	Name     string
	Evaluate func(ev *Evidence) (Finding, bool)
}

// DefaultRules returns the built-in rules in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		HighSeverityRule(),
		FailedAuthRule(),
		TrafficAnomalyRule(),
	}
}

// HighSeverityRule fires when any record has severity "high".
func HighSeverityRule() Rule {
	return Rule{
		Name: string(CategoryHighSeverity),
		Evaluate: func(ev *Evidence) (Finding, bool) {
			n := 0
			for _, r := range ev.Records {
				if is(r.Severity, SeverityHigh) {
					n++
				}
			}
			if n <= HighSeverityThreshold {
				return Finding{}, false
			}
			return Finding{
				Category:  CategoryHighSeverity,
				Level:     LevelHigh,
				Message:   fmt.Sprintf("%d high-severity alerts detected.", n),
				Count:     n,
				Threshold: HighSeverityThreshold,
			}, true
		},
	}
}

// FailedAuthRule fires when more than FailedAuthThreshold records mention a
// failure.
func FailedAuthRule() Rule {
	return Rule{
		Name: string(CategoryFailedAuth),
		Evaluate: func(ev *Evidence) (Finding, bool) {
			n := len(ev.Failed)
			if n <= FailedAuthThreshold {
				return Finding{}, false
			}
			return Finding{
				Category:  CategoryFailedAuth,
				Level:     LevelMedium,
				Message:   fmt.Sprintf("%d failed authentication attempts detected.", n),
				Count:     n,
				Threshold: FailedAuthThreshold,
			}, true
		},
	}
}

// TrafficAnomalyRule fires when at least one source IP has more than
// TrafficAnomalyThreshold records. Count is the number of such IPs.
func TrafficAnomalyRule() Rule {
	return Rule{
		Name: string(CategoryTrafficAnomaly),
		Evaluate: func(ev *Evidence) (Finding, bool) {
			n := len(ev.SrcIPCounts.Above(TrafficAnomalyThreshold))
			if n == 0 {
				return Finding{}, false
			}
			return Finding{
				Category:  CategoryTrafficAnomaly,
				Level:     LevelLow,
				Message:   fmt.Sprintf("%d IPs show abnormal traffic volume.", n),
				Count:     n,
				Threshold: TrafficAnomalyThreshold,
			}, true
		},
	}
}
