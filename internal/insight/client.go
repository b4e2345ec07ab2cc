package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout = 15 * time.Second
	maxInsightLen  = 250
)

// Client generates short anomaly explanations through an OpenWebUI-compatible
// chat-completions API. It is optional: when not configured the monitor runs
// without enrichment, and any failure here degrades to an empty insight.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	httpc   *http.Client
}

// NewClient creates an insight client. A non-positive timeout falls back
// to 15 seconds.
func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpc:   &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature float64   `json:"temperature"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// Generate asks the model for a 1-2 sentence explanation of the anomaly.
// The reply is truncated to 250 runes.
func (c *Client) Generate(ctx context.Context, metric string, current, expected, pctChange float64) (string, error) {
	prompt := fmt.Sprintf(`Analyze this MinIO storage anomaly briefly (1-2 sentences max):

Metric: %s
Current value: %.2f
Expected value: %.2f
Change: %+.1f%%

Provide a brief technical explanation of what this could indicate for object storage operations.`,
		metric, current, expected, pctChange)

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []message{{Role: "user", Content: prompt}},
		Stream:      false,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("call insight api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("insight api: unexpected status %d", resp.StatusCode)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return "", fmt.Errorf("insight api: empty choices")
	}

	text := strings.TrimSpace(chat.Choices[0].Message.Content)
	if runes := []rune(text); len(runes) > maxInsightLen {
		text = string(runes[:maxInsightLen])
	}
	return text, nil
}
