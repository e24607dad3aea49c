package messaging

// Subject names on the fwlens bus.
// Follow the pattern: {product}.{resource}[.{action}]
const (
	// SubjectAnalyzeRequest carries a search request; the reply is the report.
	SubjectAnalyzeRequest = "fwlens.analyze.request"

	// SubjectFindings receives one event per analysis that produced findings.
	SubjectFindings = "fwlens.findings"
)

// QueueAnalyzeWorkers is the queue group shared by API instances serving
// analyze requests, so each request is handled once.
const QueueAnalyzeWorkers = "fwlens-workers"

// FindingsSubject returns a category-scoped findings subject so consumers can
// subscribe with wildcards, e.g. fwlens.findings.traffic-anomaly.
func FindingsSubject(category string) string {
	if category == "" {
		return SubjectFindings
	}
	return SubjectFindings + "." + category
}
