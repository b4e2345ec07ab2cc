package promquery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kubo-market/minio-sentinel/internal/domain"
)

const defaultTimeout = 10 * time.Second

// Client queries a Prometheus server over its HTTP API.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient creates a client for the given Prometheus base URL.
// A non-positive timeout falls back to 10 seconds.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
	}
}

// apiResponse is the Prometheus HTTP API envelope.
type apiResponse struct {
	Status string `json:"status"`
	Data   struct {
		ResultType string `json:"resultType"`
		Result     []struct {
			Value  []interface{}   `json:"value"`
			Values [][]interface{} `json:"values"`
		} `json:"result"`
	} `json:"data"`
	ErrorType string `json:"errorType"`
	Error     string `json:"error"`
}

// Instant evaluates a query at the current time and returns the first
// series' sample. domain.ErrNoData is returned when nothing matched.
func (c *Client) Instant(ctx context.Context, query string) (domain.Sample, error) {
	params := url.Values{"query": {query}}
	resp, err := c.call(ctx, "/api/v1/query", params)
	if err != nil {
		return domain.Sample{}, err
	}
	if len(resp.Data.Result) == 0 || len(resp.Data.Result[0].Value) < 2 {
		return domain.Sample{}, domain.ErrNoData
	}
	return parsePair(resp.Data.Result[0].Value)
}

// Range evaluates a query over the trailing window at the given step and
// returns the first series' samples, oldest first. Used to rebuild the
// baseline at startup instead of waiting out the learning phase.
func (c *Client) Range(ctx context.Context, query string, window, step time.Duration) ([]domain.Sample, error) {
	end := time.Now()
	start := end.Add(-window)
	params := url.Values{
		"query": {query},
		"start": {strconv.FormatInt(start.Unix(), 10)},
		"end":   {strconv.FormatInt(end.Unix(), 10)},
		"step":  {fmt.Sprintf("%ds", int(step.Seconds()))},
	}
	resp, err := c.call(ctx, "/api/v1/query_range", params)
	if err != nil {
		return nil, err
	}
	if len(resp.Data.Result) == 0 {
		return nil, domain.ErrNoData
	}

	pairs := resp.Data.Result[0].Values
	samples := make([]domain.Sample, 0, len(pairs))
	for _, pair := range pairs {
		smp, err := parsePair(pair)
		if err != nil {
			return nil, err
		}
		samples = append(samples, smp)
	}
	return samples, nil
}

// Ping checks server reachability via the /-/healthy endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/-/healthy", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("prometheus unreachable: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("prometheus health: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) call(ctx context.Context, path string, params url.Values) (*apiResponse, error) {
	u := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query prometheus: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("prometheus: unexpected status %d", resp.StatusCode)
	}

	var api apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if api.Status != "success" {
		return nil, fmt.Errorf("prometheus: %s: %s", api.ErrorType, api.Error)
	}
	return &api, nil
}

// parsePair converts a Prometheus [unix_seconds, "value"] pair.
func parsePair(pair []interface{}) (domain.Sample, error) {
	if len(pair) < 2 {
		return domain.Sample{}, fmt.Errorf("malformed value pair")
	}
	ts, ok := pair[0].(float64)
	if !ok {
		return domain.Sample{}, fmt.Errorf("malformed timestamp %v", pair[0])
	}
	raw, ok := pair[1].(string)
	if !ok {
		return domain.Sample{}, fmt.Errorf("malformed value %v", pair[1])
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return domain.Sample{}, fmt.Errorf("parse value %q: %w", raw, err)
	}
	sec, frac := int64(ts), int64((ts-float64(int64(ts)))*1e9)
	return domain.Sample{Timestamp: time.Unix(sec, frac).UTC(), Value: v}, nil
}
