package analytics

// FailedAttempt is the projection shown in the failed-attempt detail view.
type FailedAttempt struct {
	Timestamp *string `json:"timestamp"`
	SrcIP     *string `json:"src_ip"`
	DstIP     *string `json:"dst_ip"`
	User      *string `json:"user"`
	Msg       *string `json:"msg"`
	Severity  *string `json:"severity"`
	PolicyID  *string `json:"policy_id"`
}

// IPVolume is one row of the suspicious-IP-by-total-volume table.
type IPVolume struct {
	SrcIP      string `json:"src_ip"`
	EventCount int    `json:"event_count"`
}

// Detection is the output of the detection engine for one batch.
type Detection struct {
	Findings            []Finding       `json:"findings"`
	FailedAttempts      []FailedAttempt `json:"failed_attempts"`
	FailedByIP          Breakdown       `json:"failed_by_ip"`
	FailedByUser        Breakdown       `json:"failed_by_user"`
	SuspiciousFailedIPs Breakdown       `json:"suspicious_failed_ips"`
	SuspiciousVolumeIPs []IPVolume      `json:"suspicious_volume_ips"`
}

// Engine evaluates a fixed, ordered set of rules.
type Engine struct {
	rules []Rule
}

// NewEngine returns an engine running DefaultRules followed by extra.
func NewEngine(extra ...Rule) *Engine {
	return &Engine{rules: append(DefaultRules(), extra...)}
}

// Rules returns the rules in evaluation order.
func (e *Engine) Rules() []Rule {
	return e.rules
}

// Detect runs every rule over records and builds the supporting views. An
// empty batch yields empty, non-nil outputs.
func (e *Engine) Detect(records []Record) Detection {
	ev := NewEvidence(records)

	findings := []Finding{}
	for _, rule := range e.rules {
		if f, ok := rule.Evaluate(ev); ok {
			findings = append(findings, f)
		}
	}

	failedByIP := countBy(ev.Failed, byFieldOrUnknown(FieldSrcIP))

	return Detection{
		Findings:            findings,
		FailedAttempts:      projectFailed(ev.Failed),
		FailedByIP:          failedByIP,
		FailedByUser:        countBy(ev.Failed, byFieldOrUnknown(FieldUser)),
		SuspiciousFailedIPs: failedByIP.Above(FailedIPThreshold),
		SuspiciousVolumeIPs: volumeTable(ev.SrcIPCounts.Above(SuspiciousVolumeThreshold)),
	}
}

func projectFailed(records []Record) []FailedAttempt {
	out := make([]FailedAttempt, 0, len(records))
	for _, r := range records {
		out = append(out, FailedAttempt{
			Timestamp: r.Timestamp,
			SrcIP:     r.SrcIP,
			DstIP:     r.DstIP,
			User:      r.User,
			Msg:       r.Msg,
			Severity:  r.Severity,
			PolicyID:  r.PolicyID,
		})
	}
	return out
}

func volumeTable(b Breakdown) []IPVolume {
	out := make([]IPVolume, 0, len(b))
	for _, c := range b {
		out = append(out, IPVolume{SrcIP: c.Key, EventCount: c.Count})
	}
	return out
}
