package facemesh

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/proctorwatch/go-proctor/pkg/landmark"
)

const providerClient = "client"

// Client is the standard HTTP-based inference provider. It works with any
// service exposing the detect/healthz contract below (a MediaPipe sidecar,
// a hosted mesh API, ...).
type Client struct {
	baseURL string
	apiKey  string
	config  *Config
	http    *http.Client
}

// NewClient creates a new facemesh client.
func NewClient(opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if cfg.BaseURL == "" {
		return nil, ErrNoBaseURL
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		config:  cfg,
		http:    cfg.httpClient(),
	}, nil
}

type detectRequest struct {
	Image string `json:"image"` // base64 JPEG
}

type detectResponse struct {
	Faces []struct {
		Points []landmark.Point `json:"points"`
	} `json:"faces"`
}

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Detect posts one JPEG frame and decodes the returned face meshes.
func (c *Client) Detect(ctx context.Context, jpeg []byte) ([]landmark.Face, error) {
	start := time.Now()

	payload := detectRequest{Image: base64.StdEncoding.EncodeToString(jpeg)}

	resp, err := c.post(ctx, "/v1/detect", payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, WrapError(providerClient, fmt.Errorf("decode response: %w", err))
	}

	faces := make([]landmark.Face, 0, len(result.Faces))
	for _, f := range result.Faces {
		faces = append(faces, landmark.Face(f.Points))
	}

	c.config.Logger.Debug("facemesh: detect",
		"faces", len(faces),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return faces, nil
}

// Health checks backend connectivity and readiness.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return WrapError(providerClient, err)
	}
	c.auth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health returned %d", ErrBackendUnavailable, resp.StatusCode)
	}
	return nil
}

// Close releases resources. The shared transport is left alone.
func (c *Client) Close() error {
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, WrapError(providerClient, fmt.Errorf("encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, WrapError(providerClient, err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.auth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, WrapError(providerClient, err)
	}
	return resp, nil
}

func (c *Client) auth(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func (c *Client) parseError(resp *http.Response) error {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Provider:   providerClient,
		Message:    resp.Status,
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil {
		var parsed apiErrorBody
		if json.Unmarshal(body, &parsed) == nil && parsed.Error.Message != "" {
			apiErr.Message = parsed.Error.Message
		}
	}
	return apiErr
}
