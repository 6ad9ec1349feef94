package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/cyp0633/schedcore/protocol"
)

// APIError is a non-2xx answer from the events API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("request failed with status %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// IsNotFound reports whether err is an APIError carrying 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func (c *httpClientWrapper) DoJSON(ctx context.Context, method, path string, query url.Values, in, out any) (string, error) {
	c.logger.Debug("starting request",
		"method", method,
		"path", path)

	resolvedURL, err := c.resolveURL(path, query)
	if err != nil {
		c.logger.Debug("failed to resolve URL", "path", path, "error", err)
		return "", err
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return "", fmt.Errorf("failed to encode %s body: %w", method, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, resolvedURL.String(), body)
	if err != nil {
		return "", fmt.Errorf("failed to create %s request: %w", method, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "error", err)
		return "", fmt.Errorf("failed to send %s request: %w", method, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("received response", "status", resp.Status)

	if err := checkStatus(resp); err != nil {
		c.logger.Debug("unexpected status code",
			"status_code", resp.StatusCode,
			"error", err)
		return "", err
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return "", fmt.Errorf("failed to decode %s response: %w", method, err)
		}
	}
	return resp.Header.Get("ETag"), nil
}

func (c *httpClientWrapper) DoGET(ctx context.Context, path, accept string) ([]byte, string, error) {
	resolvedURL, err := c.resolveURL(path, nil)
	if err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resolvedURL.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create GET request: %w", err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "error", err)
		return nil, "", fmt.Errorf("failed to send GET request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, "", err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response body: %w", err)
	}
	return data, resp.Header.Get("ETag"), nil
}

// checkStatus turns a non-2xx response into an *APIError, reading the JSON
// error body when there is one.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body protocol.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil {
		apiErr.Code = body.Code
		apiErr.Message = body.Error
	}
	return apiErr
}
