package vecstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xxxsen/kbase/internal/model"
)

// Client is a minimal REST client to the vector index service. The data plane
// (upsert/query/update/delete/stats) is addressed per index; the control plane
// (list/create indexes) lives on a separate host.
type Client struct {
	baseURL    string
	controlURL string
	apiKey     string
	client     *http.Client
}

type ClientConfig struct {
	BaseURL    string
	ControlURL string
	APIKey     string
	Timeout    time.Duration
}

func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	controlURL := cfg.ControlURL
	if controlURL == "" {
		controlURL = cfg.BaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		controlURL: strings.TrimRight(controlURL, "/"),
		apiKey:     cfg.APIKey,
		client:     &http.Client{Timeout: timeout},
	}
}

type QueryRequest struct {
	Vector          []float32      `json:"vector"`
	TopK            int            `json:"topK"`
	Filter          map[string]any `json:"filter,omitempty"`
	IncludeMetadata bool           `json:"includeMetadata"`
	IncludeValues   bool           `json:"includeValues"`
}

type queryResponse struct {
	Matches []model.Match `json:"matches"`
}

type IndexStats struct {
	TotalVectorCount int `json:"totalVectorCount"`
}

type IndexSpec struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
}

func (c *Client) Upsert(ctx context.Context, records []model.VectorRecord) error {
	body := map[string]any{"vectors": records}
	return c.postJSON(ctx, c.baseURL+"/vectors/upsert", body, nil)
}

func (c *Client) Query(ctx context.Context, req QueryRequest) ([]model.Match, error) {
	var resp queryResponse
	if err := c.postJSON(ctx, c.baseURL+"/query", req, &resp); err != nil {
		return nil, err
	}
	return resp.Matches, nil
}

func (c *Client) Update(ctx context.Context, id string, metadata map[string]any) error {
	body := map[string]any{"id": id, "setMetadata": metadata}
	return c.postJSON(ctx, c.baseURL+"/vectors/update", body, nil)
}

// Delete removes records in bulk. Older service versions reject the bulk body
// shape; callers needing tolerance should go through Adapter.SafeDelete.
func (c *Client) Delete(ctx context.Context, ids []string) error {
	body := map[string]any{"ids": ids}
	return c.postJSON(ctx, c.baseURL+"/vectors/delete", body, nil)
}

// DeleteOne targets the legacy single-id delete shape.
func (c *Client) DeleteOne(ctx context.Context, id string) error {
	body := map[string]any{"id": id}
	return c.postJSON(ctx, c.baseURL+"/vectors/delete", body, nil)
}

func (c *Client) Stats(ctx context.Context) (*IndexStats, error) {
	var stats IndexStats
	if err := c.postJSON(ctx, c.baseURL+"/describe_index_stats", map[string]any{}, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) ListIndexes(ctx context.Context) ([]string, error) {
	var resp struct {
		Indexes []struct {
			Name string `json:"name"`
		} `json:"indexes"`
	}
	if err := c.getJSON(ctx, c.controlURL+"/indexes", &resp); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resp.Indexes))
	for _, idx := range resp.Indexes {
		names = append(names, idx.Name)
	}
	return names, nil
}

func (c *Client) CreateIndex(ctx context.Context, spec IndexSpec) error {
	return c.postJSON(ctx, c.controlURL+"/indexes", spec, nil)
}

func (c *Client) postJSON(ctx context.Context, url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	c.setHeaders(req)
	return c.do(req, out)
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)
	return c.do(req, out)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Api-Key", c.apiKey)
	}
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("index %s %s failed: %s: %s", req.Method, req.URL.Path, resp.Status, strings.TrimSpace(string(body)))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
