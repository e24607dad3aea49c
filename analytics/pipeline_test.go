package analytics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	events []RawEvent
	err    error

	calls int
	index string
	body  map[string]interface{}
}

func (f *fakeSearcher) Search(_ context.Context, index string, body map[string]interface{}) ([]RawEvent, error) {
	f.calls++
	f.index = index
	f.body = body
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

func clock() time.Time { return fixedNow }

func TestPipeline_Run(t *testing.T) {
	var events []RawEvent
	for i := 0; i < 3; i++ {
		events = append(events, RawEvent{"srcip": "10.0.0.1", "msg": "login failed", "user": "admin"})
	}
	for i := 0; i < 9; i++ {
		events = append(events, RawEvent{"remip": "10.0.0.2", "msg": "sslvpn login failed", "action": "deny"})
	}

	s := &fakeSearcher{events: events}
	p := NewPipeline(s, WithClock(clock))

	report, err := p.Run(context.Background(), SearchRequest{})
	require.NoError(t, err)

	assert.Equal(t, 1, s.calls)
	assert.Equal(t, DefaultIndexPattern, s.index)
	assert.Equal(t, 1000, s.body["size"])

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, fixedNow, report.GeneratedAt)
	assert.Equal(t, SearchRequest{Query: "*", Days: 3, Limit: 1000}, report.Request)
	assert.Equal(t, fixedNow.Add(-72*time.Hour), report.Since)
	assert.False(t, report.Empty())
	assert.Len(t, report.Records, 12)

	assert.Equal(t, 12, report.Summary.TotalLogs)
	assert.Equal(t, 9, report.Summary.BlockedTraffic)
	assert.Equal(t, 2, report.Summary.UniqueSourceIPs)

	require.Len(t, report.Findings, 1)
	assert.Equal(t, CategoryFailedAuth, report.Findings[0].Category)
	assert.Equal(t, 12, report.Findings[0].Count)
	assert.Equal(t, Breakdown{{Key: "10.0.0.2", Count: 9}}, report.SuspiciousFailedIPs)
	assert.Equal(t, Breakdown{
		{Key: UnknownKey, Count: 9},
		{Key: "admin", Count: 3},
	}, report.FailedByUser)
}

func TestPipeline_SearchFailureAborts(t *testing.T) {
	upstream := errors.New("connection refused")
	p := NewPipeline(&fakeSearcher{err: upstream}, WithClock(clock))

	report, err := p.Run(context.Background(), SearchRequest{Query: "failed"})
	assert.Nil(t, report)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSearchFailed)
	assert.ErrorIs(t, err, upstream)
}

func TestPipeline_EmptyResult(t *testing.T) {
	p := NewPipeline(&fakeSearcher{}, WithClock(clock))

	report, err := p.Run(context.Background(), SearchRequest{Days: 1, Limit: 10})
	require.NoError(t, err)
	assert.True(t, report.Empty())
	assert.NotNil(t, report.Records)
	assert.Empty(t, report.Findings)
	assert.Zero(t, report.Summary.TotalLogs)
	assert.Zero(t, report.Summary.UniqueSourceIPs)
}

func TestPipeline_TruncatesToLimit(t *testing.T) {
	events := make([]RawEvent, 20)
	for i := range events {
		events[i] = RawEvent{"srcip": fmt.Sprintf("10.0.0.%d", i)}
	}
	p := NewPipeline(&fakeSearcher{events: events}, WithClock(clock))

	report, err := p.Run(context.Background(), SearchRequest{Limit: 5})
	require.NoError(t, err)
	assert.Len(t, report.Records, 5)
	assert.Equal(t, "10.0.0.0", *report.Records[0].SrcIP)
}

func TestPipeline_Options(t *testing.T) {
	s := &fakeSearcher{events: []RawEvent{{"client_ip": "100.64.0.9"}}}
	p := NewPipeline(s,
		WithClock(clock),
		WithIndexPattern("fortigate-edge-*"),
		WithLimits(Limits{DefaultDays: 1, MaxDays: 2, DefaultLimit: 10, MaxLimit: 20}),
		WithNormalizer(NewNormalizer(DefaultAliases().Extend(map[string][]string{FieldSrcIP: {"client_ip"}}))),
	)

	report, err := p.Run(context.Background(), SearchRequest{Days: 9, Limit: 90})
	require.NoError(t, err)
	assert.Equal(t, "fortigate-edge-*", s.index)
	assert.Equal(t, "fortigate-edge-*", p.IndexPattern())
	assert.Equal(t, SearchRequest{Query: "*", Days: 2, Limit: 20}, report.Request)
	require.NotNil(t, report.Records[0].SrcIP)
	assert.Equal(t, "100.64.0.9", *report.Records[0].SrcIP)
}
