// Package opensearch wraps opensearch-go for the two things fwlens does with a
// cluster: run a bounded search over the firewall indices and bulk-load events.
package opensearch

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchutil"

	"github.com/telhawk-systems/fwlens/analytics"
	"github.com/telhawk-systems/fwlens/common/config"
)

// ErrUnavailable is returned when the cluster answers with an error status.
var ErrUnavailable = errors.New("opensearch unavailable")

// Client is a thin wrapper over *opensearch.Client.
type Client struct {
	client  *opensearch.Client
	timeout time.Duration
}

// New creates a client from cfg without contacting the cluster.
func New(cfg config.OpenSearchConfig) (*Client, error) {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.TLSSkipVerify,
		},
	}

	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	return &Client{client: client, timeout: cfg.Timeout}, nil
}

// Connect creates a client and verifies the cluster answers.
func Connect(ctx context.Context, cfg config.OpenSearchConfig) (*Client, error) {
	c, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if err := c.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping opensearch: %w", err)
	}
	return c, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// Ping calls the cluster info endpoint.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	res, err := c.client.Info(c.client.Info.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("%w: %s", ErrUnavailable, res.Status())
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source map[string]interface{} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs body against index and returns the _source of each hit in the
// order returned. It implements analytics.Searcher.
func (c *Client) Search(ctx context.Context, index string, body map[string]interface{}) ([]analytics.RawEvent, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	res, err := c.client.Search(
		c.client.Search.WithContext(ctx),
		c.client.Search.WithIndex(index),
		c.client.Search.WithBody(&buf),
		c.client.Search.WithIgnoreUnavailable(true),
	)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: search error: %s", ErrUnavailable, res.String())
	}

	var parsed searchResponse
	dec := json.NewDecoder(res.Body)
	dec.UseNumber()
	if err := dec.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	events := make([]analytics.RawEvent, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		events = append(events, analytics.RawEvent(hit.Source))
	}
	return events, nil
}

// Document is one event to bulk-load. An empty Index falls back to the
// indexer default.
type Document struct {
	Index string
	Body  map[string]interface{}
}

// BulkResult summarizes a bulk load.
type BulkResult struct {
	Indexed int      `json:"indexed"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// BulkIndex loads docs through the opensearchutil bulk indexer. Per-document
// failures are counted in the result; the returned error covers indexer-level
// failures only.
func (c *Client) BulkIndex(ctx context.Context, defaultIndex string, docs []Document) (BulkResult, error) {
	var (
		mu     sync.Mutex
		result BulkResult
	)

	bi, err := opensearchutil.NewBulkIndexer(opensearchutil.BulkIndexerConfig{
		Client:        c.client,
		Index:         defaultIndex,
		NumWorkers:    2,
		FlushInterval: time.Second,
	})
	if err != nil {
		return result, fmt.Errorf("failed to create bulk indexer: %w", err)
	}

	for _, doc := range docs {
		data, err := json.Marshal(doc.Body)
		if err != nil {
			mu.Lock()
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("marshal event: %v", err))
			mu.Unlock()
			continue
		}

		err = bi.Add(ctx, opensearchutil.BulkIndexerItem{
			Action: "index",
			Index:  doc.Index,
			Body:   bytes.NewReader(data),
			OnSuccess: func(context.Context, opensearchutil.BulkIndexerItem, opensearchutil.BulkIndexerResponseItem) {
				mu.Lock()
				result.Indexed++
				mu.Unlock()
			},
			OnFailure: func(_ context.Context, _ opensearchutil.BulkIndexerItem, res opensearchutil.BulkIndexerResponseItem, err error) {
				mu.Lock()
				defer mu.Unlock()
				result.Failed++
				if err != nil {
					result.Errors = append(result.Errors, err.Error())
				} else {
					result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", res.Error.Type, res.Error.Reason))
				}
			},
		})
		if err != nil {
			mu.Lock()
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("add to bulk indexer: %v", err))
			mu.Unlock()
		}
	}

	if err := bi.Close(ctx); err != nil {
		return result, fmt.Errorf("bulk indexer close: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	return result, nil
}

var _ analytics.Searcher = (*Client)(nil)
