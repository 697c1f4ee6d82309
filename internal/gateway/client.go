package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"clipmark/internal/services"
)

const (
	component      = "gateway"
	defaultTimeout = 15 * time.Second
	maxFrameBytes  = 32 << 20
)

// Client talks to a clipmark backend over HTTP. A cookie jar keeps the
// annotator identity cookie the backend issues on first contact.
type Client struct {
	base          *url.URL
	http          *http.Client
	timeout       time.Duration
	maxFrameBytes int64
	validation    bool
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client. The client is copied; a nil jar
// is replaced so the identity cookie survives between calls.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			cp := *client
			c.http = &cp
		}
	}
}

// WithTimeout sets the per-request timeout. It applies to the client given
// by WithHTTPClient regardless of option order.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithMaxFrameBytes caps the size of a frame image. Larger frames are
// rejected instead of truncated.
func WithMaxFrameBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxFrameBytes = n
		}
	}
}

// WithValidation routes clip, frame, and submission calls to the validation
// endpoints, whose submissions are scored instead of stored.
func WithValidation(enabled bool) Option {
	return func(c *Client) {
		c.validation = enabled
	}
}

// NewClient constructs a client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, component, "init", "base url is required", nil)
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "init", "parse base url", err)
	}
	base.Path = strings.TrimRight(base.Path, "/")
	base.RawQuery = ""
	base.Fragment = ""

	c := &Client{
		base:          base,
		http:          &http.Client{Timeout: defaultTimeout},
		maxFrameBytes: maxFrameBytes,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.timeout > 0 {
		c.http.Timeout = c.timeout
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		c.http.Jar = jar
	}
	return c, nil
}

// GetAnnotatorID implements Gateway.
func (c *Client) GetAnnotatorID(ctx context.Context) (string, error) {
	var payload AnnotatorIdentity
	if err := c.doJSON(ctx, http.MethodGet, "/api/annotator-id", nil, &payload); err != nil {
		return "", err
	}
	if payload.AnnotatorID == "" {
		return "", services.Wrap(services.ErrExternal, component, "annotator id", "empty annotator id", nil)
	}
	return payload.AnnotatorID, nil
}

// ListClips implements Gateway.
func (c *Client) ListClips(ctx context.Context) (ClipList, error) {
	var payload ClipList
	if err := c.doJSON(ctx, http.MethodGet, c.prefix()+"/clips", nil, &payload); err != nil {
		return ClipList{}, err
	}
	if payload.TotalClips == 0 {
		payload.TotalClips = len(payload.Clips)
	}
	return payload, nil
}

// GetFrameImage implements Gateway.
func (c *Client) GetFrameImage(ctx context.Context, clipIndex, frameIndex int) (Frame, error) {
	path := c.prefix() + "/clips/" + strconv.Itoa(clipIndex) + "/frames/" + strconv.Itoa(frameIndex)
	resp, err := c.do(ctx, http.MethodGet, path, nil, "image/*")
	if err != nil {
		return Frame{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxFrameBytes+1))
	if err != nil {
		return Frame{}, services.Wrap(services.ErrTransient, component, "frame", "read body", err)
	}
	if int64(len(data)) > c.maxFrameBytes {
		return Frame{}, services.Wrap(services.ErrExternal, component, "frame",
			fmt.Sprintf("frame exceeds %d bytes", c.maxFrameBytes), nil)
	}
	return Frame{Data: data, ContentType: resp.Header.Get("Content-Type")}, nil
}

// SubmitAnnotation implements Gateway.
func (c *Client) SubmitAnnotation(ctx context.Context, record AnnotationRecord) (Ack, error) {
	var ack Ack
	if err := c.doJSON(ctx, http.MethodPost, c.prefix()+"/annotations", record, &ack); err != nil {
		return Ack{}, err
	}
	if !ack.Success {
		return ack, services.Wrap(services.ErrExternal, component, "submit", "backend rejected annotation: "+ack.Message, nil)
	}
	return ack, nil
}

// SubmitSessionSummary implements Gateway.
func (c *Client) SubmitSessionSummary(ctx context.Context, summary SessionSummary) (Ack, error) {
	var ack Ack
	if err := c.doJSON(ctx, http.MethodPost, "/api/annotations/batch", summary, &ack); err != nil {
		return Ack{}, err
	}
	return ack, nil
}

func (c *Client) prefix() string {
	if c.validation {
		return "/api/validation"
	}
	return "/api"
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return services.Wrap(services.ErrValidation, component, path, "encode request", err)
		}
		reader = bytes.NewReader(data)
	}
	resp, err := c.do(ctx, method, path, reader, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrExternal, component, path, "decode response", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, accept string) (*http.Response, error) {
	endpoint := *c.base
	endpoint.Path = c.base.Path + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, component, path, "build request", err)
	}
	req.Header.Set("Accept", accept)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, services.Wrap(services.ErrTransient, component, path, "request failed", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		return nil, statusError(path, resp)
	}
	return resp, nil
}

func statusError(path string, resp *http.Response) error {
	message := fmt.Sprintf("status %d", resp.StatusCode)
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload ErrorResponse
	if json.Unmarshal(snippet, &payload) == nil && strings.TrimSpace(payload.Error) != "" {
		message = fmt.Sprintf("%s: %s", message, strings.TrimSpace(payload.Error))
	}

	marker := services.ErrExternal
	switch {
	case resp.StatusCode == http.StatusNotFound:
		marker = services.ErrNotFound
	case resp.StatusCode == http.StatusConflict:
		marker = services.ErrConflict
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		marker = services.ErrValidation
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		marker = services.ErrTransient
	}
	return services.Wrap(marker, component, path, message, nil)
}
