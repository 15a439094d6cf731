package clarity

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/clarityhire/clarity/internal/errs"
	"github.com/clarityhire/clarity/internal/utils"
	"go.uber.org/zap"
)

const (
	contentType     = "application/json"
	contentEncoding = "gzip"
	maxDetailLength = 300
)

func (c *Client) url(path string) string {
	return c.APIURL + path
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, target any) error {
	if err := c.session.Require(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", contentType)
	if len(q) > 0 {
		req.URL.RawQuery = q.Encode()
	}

	return c.do(c.HTTPClient, req, target)
}

func (c *Client) sendJSON(ctx context.Context, client *http.Client, method, path string, payload, target any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", contentType)

	return c.do(client, req, target)
}

// do sends req and decodes a 2xx JSON body into target. Non-2xx responses
// become classified errors carrying the server's detail message.
func (c *Client) do(client *http.Client, req *http.Request, target any) error {
	req.Header.Set("Accept-Encoding", contentEncoding)

	c.logger.Debug("make request",
		zap.String("method", req.Method),
		zap.String("url", req.URL.Redacted()),
	)

	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return errs.Transient(fmt.Sprintf("%s %s", req.Method, req.URL.Path), err)
	}
	defer resp.Body.Close()

	data, err := readBody(resp)
	if err != nil {
		// A rejected credential may cancel the caller before the body is read.
		if resp.StatusCode == http.StatusUnauthorized {
			return statusError(resp.StatusCode, resp.Status, nil)
		}
		return errs.Transient("reading response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.StatusCode, resp.Status, data)
	}

	if target == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, target); err != nil {
		return errs.Transient("decoding response body", err)
	}

	return nil
}

func readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	return io.ReadAll(reader)
}

func statusError(code int, status string, body []byte) error {
	message := fmt.Sprintf("bad status: %s", status)
	if detail := parseDetail(body); detail != "" {
		message = fmt.Sprintf("%s: %s", message, detail)
	}

	switch code {
	case http.StatusUnauthorized:
		return errs.Auth(message, nil)
	case http.StatusForbidden:
		return errs.Forbidden(message, nil)
	case http.StatusNotFound:
		return errs.NotFound(message, nil)
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return errs.Validation(message, nil)
	default:
		return errs.Transient(message, nil)
	}
}

// parseDetail extracts the "detail" member of an error body. Validation
// failures carry a list there, which is returned as compact JSON.
func parseDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(payload.Detail, &text); err == nil {
		return utils.TruncateForLog(text, maxDetailLength)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, payload.Detail); err != nil {
		return ""
	}
	return utils.TruncateForLog(compact.String(), maxDetailLength)
}

// headerTransport stamps the user agent on unauthenticated calls.
type headerTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	if strings.TrimSpace(t.userAgent) != "" {
		out.Header.Set("User-Agent", t.userAgent)
	}
	return t.base.RoundTrip(out)
}
