package analytics

// TopSourceIPs is the number of source IPs charted in the summary.
const TopSourceIPs = 10

// Summary holds batch-level metrics for the dashboard highlights and charts.
type Summary struct {
	TotalLogs            int       `json:"total_logs"`
	BlockedTraffic       int       `json:"blocked_traffic"`
	HighSeverityEvents   int       `json:"high_severity_events"`
	UniqueSourceIPs      int       `json:"unique_source_ips"`
	TopSourceIPs         Breakdown `json:"top_source_ips"`
	SeverityDistribution Breakdown `json:"severity_distribution"`
}

// Summarize scans records once per metric. Null attributes are ignored by the
// distinct count and the distributions.
func Summarize(records []Record) Summary {
	s := Summary{TotalLogs: len(records)}
	for _, r := range records {
		if is(r.Action, ActionDeny) {
			s.BlockedTraffic++
		}
		if is(r.Severity, SeverityHigh) {
			s.HighSeverityEvents++
		}
	}

	byIP := countBy(records, byField(FieldSrcIP))
	s.UniqueSourceIPs = len(byIP)
	s.TopSourceIPs = byIP.Top(TopSourceIPs)
	s.SeverityDistribution = countBy(records, byField(FieldSeverity))
	return s
}
