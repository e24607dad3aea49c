package output

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"

	"github.com/telhawk-systems/fwlens/analytics"
)

// MaxDetailRows caps the failed-attempt and record tables in the text report.
const MaxDetailRows = 20

var (
	sectionColor = color.New(color.FgCyan, color.Bold)
	levelColors  = map[analytics.Level]*color.Color{
		analytics.LevelHigh:   color.New(color.FgRed, color.Bold),
		analytics.LevelMedium: color.New(color.FgYellow),
		analytics.LevelLow:    color.New(color.FgBlue),
	}
)

// Report prints the dashboard view of a report to Stdout.
func Report(r *analytics.Report) {
	RenderReport(Stdout, r)
}

// RenderReport writes the dashboard view of r to w: highlights, findings,
// failed-attempt analysis, suspicious IPs, top IPs and severity distribution.
func RenderReport(w io.Writer, r *analytics.Report) {
	fmt.Fprintf(w, "Query: %s | Last %d day(s) | Limit %d | Index %s\n",
		r.Request.Query, r.Request.Days, r.Request.Limit, r.IndexPattern)

	if r.Empty() {
		warnColor.Fprintln(w, "No logs found.")
		return
	}

	section(w, "Highlights")
	highlights := NewTable([]string{"METRIC", "VALUE"})
	highlights.AddRow([]string{"Total logs", strconv.Itoa(r.Summary.TotalLogs)})
	highlights.AddRow([]string{"Blocked traffic", strconv.Itoa(r.Summary.BlockedTraffic)})
	highlights.AddRow([]string{"High severity events", strconv.Itoa(r.Summary.HighSeverityEvents)})
	highlights.AddRow([]string{"Unique source IPs", strconv.Itoa(r.Summary.UniqueSourceIPs)})
	highlights.RenderTo(w)

	section(w, "Findings")
	if len(r.Findings) == 0 {
		successColor.Fprintln(w, "No major issues detected.")
	}
	for _, f := range r.Findings {
		c, ok := levelColors[f.Level]
		if !ok {
			c = infoColor
		}
		c.Fprintf(w, "[%s] ", f.Level)
		fmt.Fprintln(w, f.Message)
	}

	section(w, "Failed Attempts")
	if len(r.FailedAttempts) == 0 {
		fmt.Fprintln(w, "No failed attempts.")
	} else {
		fmt.Fprintf(w, "%d failed attempt(s)\n\n", len(r.FailedAttempts))
		breakdownTable("SOURCE IP", r.FailedByIP).RenderTo(w)
		fmt.Fprintln(w)
		breakdownTable("USER", r.FailedByUser).RenderTo(w)
		fmt.Fprintln(w)
		failedTable(r.FailedAttempts).RenderTo(w)
		more(w, len(r.FailedAttempts))
	}

	section(w, fmt.Sprintf("Suspicious IPs (more than %d failed attempts)", analytics.FailedIPThreshold))
	if len(r.SuspiciousFailedIPs) == 0 {
		fmt.Fprintln(w, "None.")
	} else {
		breakdownTable("SOURCE IP", r.SuspiciousFailedIPs).RenderTo(w)
	}

	section(w, fmt.Sprintf("Suspicious IPs (more than %d events)", analytics.SuspiciousVolumeThreshold))
	if len(r.SuspiciousVolumeIPs) == 0 {
		fmt.Fprintln(w, "None.")
	} else {
		volume := NewTable([]string{"SOURCE IP", "EVENTS"})
		for _, v := range r.SuspiciousVolumeIPs {
			volume.AddRow([]string{v.SrcIP, strconv.Itoa(v.EventCount)})
		}
		volume.RenderTo(w)
	}

	section(w, fmt.Sprintf("Top %d Source IPs", analytics.TopSourceIPs))
	breakdownTable("SOURCE IP", r.Summary.TopSourceIPs).RenderTo(w)

	section(w, "Severity Distribution")
	breakdownTable("SEVERITY", r.Summary.SeverityDistribution).RenderTo(w)
}

func section(w io.Writer, title string) {
	fmt.Fprintln(w)
	sectionColor.Fprintln(w, title)
}

func breakdownTable(keyHeader string, b analytics.Breakdown) *Table {
	t := NewTable([]string{keyHeader, "COUNT"})
	for _, c := range b {
		t.AddRow([]string{c.Key, strconv.Itoa(c.Count)})
	}
	return t
}

func failedTable(attempts []analytics.FailedAttempt) *Table {
	t := NewTable([]string{"TIMESTAMP", "SOURCE IP", "DEST IP", "USER", "SEVERITY", "POLICY", "MESSAGE"})
	for i, a := range attempts {
		if i == MaxDetailRows {
			break
		}
		t.AddRow([]string{
			str(a.Timestamp), str(a.SrcIP), str(a.DstIP), str(a.User),
			str(a.Severity), str(a.PolicyID), str(a.Msg),
		})
	}
	return t
}

// RecordsTable lists normalized records, capped at MaxDetailRows.
func RecordsTable(records []analytics.Record) *Table {
	t := NewTable([]string{"TIMESTAMP", "SOURCE IP", "DEST IP", "ACTION", "SEVERITY", "USER", "MESSAGE"})
	for i, r := range records {
		if i == MaxDetailRows {
			break
		}
		t.AddRow([]string{
			str(r.Timestamp), str(r.SrcIP), str(r.DstIP), str(r.Action),
			str(r.Severity), str(r.User), str(r.Msg),
		})
	}
	return t
}

func more(w io.Writer, total int) {
	if total > MaxDetailRows {
		fmt.Fprintf(w, "... %d more (use --output json for all rows)\n", total-MaxDetailRows)
	}
}

func str(v *string) string {
	if v == nil {
		return "-"
	}
	return *v
}
