package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"recyclemart/internal/app/dto"
)

var (
	ErrBaseURLRequired = errors.New("api: base url is required")
	ErrUnauthorized    = errors.New("api: unauthorized")
	ErrTokenRequired   = errors.New("api: access token is required")
)

// Error is a failed API response.
type Error struct {
	Status  int
	Message string
	Sources []dto.ErrorSource
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// ServerMessage is the message the API returned, for display.
func (e *Error) ServerMessage() string {
	return e.Message
}

// Config defines REST client settings.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	UploadPath string
}

// Client calls the marketplace REST API.
type Client struct {
	baseURL    string
	uploadPath string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, ErrBaseURLRequired
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("api: parse base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	uploadPath := cfg.UploadPath
	if uploadPath == "" {
		uploadPath = "/chat/upload-image"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    base,
		uploadPath: uploadPath,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// request describes one API call.
type request struct {
	method string
	path   string
	token  string
	query  url.Values
	body   any
}

// do executes req and decodes the envelope data into out.
func (c *Client) do(ctx context.Context, req request, out any) (*dto.Meta, error) {
	var body io.Reader
	contentType := ""
	if req.body != nil {
		raw, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("api: encode %s: %w", req.path, err)
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}
	return c.send(ctx, req, body, contentType, out)
}

func (c *Client) send(ctx context.Context, req request, body io.Reader, contentType string, out any) (*dto.Meta, error) {
	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("api: build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("api: %s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("api: read response: %w", err)
	}
	c.logger.Debug("api call", "method", req.method, "path", req.path, "status", resp.StatusCode, "duration", time.Since(started))

	var env dto.Envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode >= 400 || decodeErr != nil || !env.Success {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		if decodeErr != nil && resp.StatusCode < 400 {
			msg = "unexpected response from server"
		}
		return nil, &Error{Status: resp.StatusCode, Message: msg, Sources: env.ErrorSources}
	}
	if err := env.Decode(out); err != nil {
		return nil, fmt.Errorf("api: decode %s: %w", req.path, err)
	}
	return env.Meta, nil
}

func requireToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return ErrTokenRequired
	}
	return nil
}
