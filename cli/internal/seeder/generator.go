// Package seeder generates FortiGate-shaped demo events for fwlens.
package seeder

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/telhawk-systems/fwlens/analytics"
	"github.com/telhawk-systems/fwlens/common/opensearch"
)

// Options controls what the generator produces.
type Options struct {
	Count            int     // background events
	Days             int     // timestamps fall within the last Days days
	IndexPrefix      string  // daily index is <prefix>-YYYY.MM.DD
	FailedBurstIP    string  // source of the failed-login burst, empty for none
	FailedBurstSize  int     // events in the burst
	HighSeverityRate float64 // share of background events with severity "high"
	Seed             int64   // 0 picks a random seed
}

// DefaultOptions matches the analytics defaults so a fresh seed shows every
// finding on the first run.
func DefaultOptions() Options {
	return Options{
		Count:            500,
		Days:             3,
		IndexPrefix:      "fortigate",
		FailedBurstIP:    "203.0.113.66",
		FailedBurstSize:  15,
		HighSeverityRate: 0.05,
	}
}

var (
	srcIPKeys  = []string{"srcip", "srcip", "srcip", "remip", "srcaddr", "src"}
	dstIPKeys  = []string{"dstip", "dstip", "dstaddr", "dst"}
	userKeys   = []string{"user", "srcuser"}
	actions    = []string{"accept", "accept", "accept", "close", "deny", "deny"}
	severities = []string{"information", "notice", "low", "medium"}
	services   = []string{"HTTPS", "HTTP", "DNS", "SSH", "RDP", "SMTP"}
	admins     = []string{"admin", "root", "fortinet", "operator"}
)

// Generator builds events from a seeded faker so runs are reproducible.
type Generator struct {
	faker *gofakeit.Faker
	opts  Options
	now   func() time.Time

	// a small pool so some sources repeat and top-IP charts have shape
	sources []string
}

// NewGenerator creates a Generator. Days below 1 becomes 1 and an empty
// IndexPrefix becomes "fortigate". The same Seed yields the same events.
func NewGenerator(opts Options) *Generator {
	if opts.Days <= 0 {
		opts.Days = 1
	}
	if opts.IndexPrefix == "" {
		opts.IndexPrefix = "fortigate"
	}

	g := &Generator{
		faker: gofakeit.New(opts.Seed),
		opts:  opts,
		now:   time.Now,
	}
	for i := 0; i < 25; i++ {
		g.sources = append(g.sources, g.faker.IPv4Address())
	}
	return g
}

// IndexName returns the daily index for ts.
func IndexName(prefix string, ts time.Time) string {
	return fmt.Sprintf("%s-%s", prefix, ts.UTC().Format("2006.01.02"))
}

// Generate returns the background events followed by the failed-login burst,
// each addressed to its daily index.
func (g *Generator) Generate() []opensearch.Document {
	now := g.now()
	docs := make([]opensearch.Document, 0, g.opts.Count+g.opts.FailedBurstSize)

	for i := 0; i < g.opts.Count; i++ {
		ts := g.timestamp(now)
		docs = append(docs, g.document(ts, g.Event(ts)))
	}

	if g.opts.FailedBurstIP != "" {
		// the burst is recent so it survives the shortest lookback
		start := now.Add(-time.Hour)
		for i := 0; i < g.opts.FailedBurstSize; i++ {
			ts := start.Add(time.Duration(i) * 7 * time.Second)
			docs = append(docs, g.document(ts, g.FailedLogin(ts, g.opts.FailedBurstIP)))
		}
	}
	return docs
}

func (g *Generator) document(ts time.Time, ev analytics.RawEvent) opensearch.Document {
	return opensearch.Document{Index: IndexName(g.opts.IndexPrefix, ts), Body: ev}
}

func (g *Generator) timestamp(now time.Time) time.Time {
	window := g.opts.Days * 24 * 60 * 60
	offset := time.Duration(g.faker.Number(0, window-1)) * time.Second
	return now.Add(-offset).Truncate(time.Second)
}

// Event returns one background event: mostly traffic, some admin and VPN
// events, with the source field name varying the way FortiGate log types do.
func (g *Generator) Event(ts time.Time) analytics.RawEvent {
	switch n := g.faker.Number(1, 100); {
	case n <= 4:
		return g.FailedLogin(ts, g.source())
	case n <= 10:
		return g.vpnEvent(ts)
	default:
		return g.trafficEvent(ts)
	}
}

func (g *Generator) trafficEvent(ts time.Time) analytics.RawEvent {
	action := g.faker.RandomString(actions)
	ev := analytics.RawEvent{
		"@timestamp": ts.UTC().Format(time.RFC3339),
		"type":       "traffic",
		"subtype":    "forward",
		"logid":      "0000000013",
		"devname":    "FGT-EDGE-01",
		"action":     action,
		"service":    g.faker.RandomString(services),
		"srcport":    g.faker.Number(1024, 65535),
		"dstport":    g.faker.RandomInt([]int{53, 80, 443, 22, 3389, 25}),
		"policyid":   g.faker.Number(1, 40),
		"sentbyte":   g.faker.Number(64, 1<<20),
		"rcvdbyte":   g.faker.Number(64, 1<<20),
		"severity":   g.severity(),
	}
	ev[g.faker.RandomString(srcIPKeys)] = g.source()
	ev[g.faker.RandomString(dstIPKeys)] = g.faker.IPv4Address()
	if action == "deny" {
		ev["msg"] = "Denied by forward policy check"
	}
	return ev
}

func (g *Generator) vpnEvent(ts time.Time) analytics.RawEvent {
	return analytics.RawEvent{
		"@timestamp": ts.UTC().Format(time.RFC3339),
		"type":       "event",
		"subtype":    "vpn",
		"logid":      "0101039947",
		"action":     "tunnel-up",
		"remip":      g.source(),
		"user":       g.faker.Username(),
		"msg":        "SSL tunnel established",
		"severity":   g.severity(),
	}
}

// FailedLogin returns an admin login failure from ip.
func (g *Generator) FailedLogin(ts time.Time, ip string) analytics.RawEvent {
	user := g.faker.RandomString(admins)
	ev := analytics.RawEvent{
		"@timestamp": ts.UTC().Format(time.RFC3339),
		"type":       "event",
		"subtype":    "system",
		"logid":      "0100032002",
		"action":     "login",
		"status":     "failed",
		"dstip":      "10.0.0.1",
		"policyid":   0,
		"severity":   "medium",
		"msg":        fmt.Sprintf("Administrator %s login failed from https(%s) because of invalid password", user, ip),
	}
	ev["srcip"] = ip
	ev[g.faker.RandomString(userKeys)] = user
	return ev
}

func (g *Generator) source() string {
	return g.sources[g.faker.Number(0, len(g.sources)-1)]
}

func (g *Generator) severity() string {
	if g.faker.Float64Range(0, 1) < g.opts.HighSeverityRate {
		return analytics.SeverityHigh
	}
	return g.faker.RandomString(severities)
}
