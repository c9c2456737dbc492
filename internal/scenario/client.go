package scenario

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/glucommander/internal/domain/model"
	"github.com/okian/glucommander/internal/domain/types"
)

// requestIDHeader matches the header the service echoes back.
const requestIDHeader = "X-Request-ID"

// Client calls the infusion API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Health checks that the service answers GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// Start posts a starting reading.
func (c *Client) Start(ctx context.Context, requestID string, req model.StartRequest) (types.StartRecommendation, error) {
	var out types.StartRecommendation
	err := c.post(ctx, "/v1/infusion/start", requestID, req, &out)
	return out, err
}

// Adjust posts an hourly reading.
func (c *Client) Adjust(ctx context.Context, requestID string, req model.AdjustRequest) (types.AdjustRecommendation, error) {
	var out types.AdjustRecommendation
	err := c.post(ctx, "/v1/infusion/adjust", requestID, req, &out)
	return out, err
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *Client) post(ctx context.Context, path, requestID string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(requestIDHeader, requestID)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		var e apiError
		if json.Unmarshal(data, &e) == nil && e.Code != "" {
			return fmt.Errorf("%w: %s %d %s: %s", ErrRejected, path, resp.StatusCode, e.Code, e.Message)
		}
		return fmt.Errorf("%w: %s %d", ErrRejected, path, resp.StatusCode)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
