package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"debt_flow_app_go/logger"

	"go.uber.org/zap"
)

// DefaultTimeout bounds every backend call
const DefaultTimeout = 30 * time.Second

// Client issues authenticated REST calls against the collection backend
type Client struct {
	baseURL string
	client  *http.Client
	token   string
}

// NewClient creates a configured client without credentials
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// WithToken returns a copy of the client that sends the bearer token
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = token
	return &clone
}

// BaseURL returns the configured API root
func (c *Client) BaseURL() string {
	return c.baseURL
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// call sends a JSON request and decodes the reply into out.
// op is a stable label for metrics and logs.
func (c *Client) call(ctx context.Context, op, method, path string, query url.Values, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, op, path, out)
}

// upload posts a multipart form with a single file part
func (c *Client) upload(ctx context.Context, op, path, field, filename string, file io.Reader, out interface{}) error {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to read upload: %w", err)
	}
	if err := form.Close(); err != nil {
		return fmt.Errorf("failed to build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	return c.send(req, op, path, out)
}

func (c *Client) send(req *http.Request, op, path string, out interface{}) error {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	log := logger.FromContext(req.Context())
	start := time.Now()

	resp, err := c.client.Do(req)
	if err != nil {
		observeCall(op, "error", time.Since(start))
		log.Warn("backend request failed", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, req.Method, path, err)
	}
	defer resp.Body.Close()

	observeCall(op, strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Method: req.Method, Path: path}
		var eb errorBody
		if raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); readErr == nil {
			if json.Unmarshal(raw, &eb) == nil {
				apiErr.Message = eb.Error
				if apiErr.Message == "" {
					apiErr.Message = eb.Message
				}
			}
		}
		log.Info("backend returned error",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
			zap.String("message", apiErr.Message),
		)
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return decodeStrict(resp.Body, out)
}

// decodeStrict rejects unknown fields so schema drift surfaces as an error
func decodeStrict(r io.Reader, out interface{}) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}

func pageQuery(page, limit int, search string) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if search != "" {
		q.Set("search", search)
	}
	return q
}
