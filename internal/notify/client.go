package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SendResult is the gateway's acknowledgement for one message.
type SendResult struct {
	MessageID string `json:"message_id"`
	Accepted  bool   `json:"accepted"`
}

// Client calls the external SMS/notification gateway. With Skip set it
// returns mock acknowledgements, keeping dev environments independent of
// the gateway.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// New creates a client with a short timeout; gateway calls are fire-and-forget.
func New(baseURL string, skip bool) *Client {
	return &Client{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Send delivers one SMS to a phone number.
func (c *Client) Send(ctx context.Context, phone, message string) (*SendResult, error) {
	if c.Skip {
		return &SendResult{MessageID: "mock", Accepted: true}, nil
	}
	if phone == "" {
		return nil, fmt.Errorf("recipient phone required")
	}

	body, _ := json.Marshal(map[string]string{"to": phone, "body": message})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("notify gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("notify gateway error %s: %s", resp.Status, string(bodyBytes))
	}

	var out SendResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

// Health checks if the gateway is available.
func (c *Client) Health(ctx context.Context) error {
	if c.Skip {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("notify gateway unavailable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify gateway unhealthy: %s", resp.Status)
	}
	return nil
}
