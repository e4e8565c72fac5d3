package gitlab

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/go-querystring/query"
)

// providerName tags every APIError produced by this
// package.
const providerName = "gitlab"

// apiRequest is an immutable request descriptor. The
// with* helpers return modified copies; the original
// is never touched, so a descriptor can be built by
// composing transformations and each stage tested in
// isolation.
type apiRequest struct {
	method string
	// path is relative to the versioned API root
	// (e.g. "user" or
	// "projects/org%2Fsite/repository/tree").
	path   string
	params url.Values
	body   []byte
	// rawURL, when set, overrides root+path; used to
	// follow provider-supplied pagination links.
	rawURL string
	// noCache appends a timestamp-busting parameter
	// to defeat intermediary caches on reads.
	noCache bool
	// anyStatus disables the default non-2xx failure
	// policy; callers inspect the status themselves.
	anyStatus bool
}

// withParam returns a copy carrying one extra query
// parameter.
func (r apiRequest) withParam(
	key string,
	val string,
) apiRequest {
	params := url.Values{}

	for k, vs := range r.params {
		params[k] = append([]string(nil), vs...)
	}

	params.Set(key, val)
	r.params = params

	return r
}

// withOptions returns a copy carrying the query
// parameters encoded from an options struct with url
// tags.
func (r apiRequest) withOptions(
	opts any,
) (apiRequest, error) {
	vals, err := query.Values(opts)
	if err != nil {
		return r, fmt.Errorf(
			"encoding query options: %w", err,
		)
	}

	out := r

	for k, vs := range vals {
		for _, v := range vs {
			out = out.withParam(k, v)
		}
	}

	return out, nil
}

// withJSONBody returns a copy carrying v as a JSON
// body.
func (r apiRequest) withJSONBody(
	v any,
) (apiRequest, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return r, fmt.Errorf(
			"marshal request body: %w", err,
		)
	}

	r.body = payload

	return r, nil
}

// withNoCache returns a copy that defeats intermediary
// response caches.
func (r apiRequest) withNoCache() apiRequest {
	r.noCache = true

	return r
}

// build composes the final http.Request: resolve the
// URL against the API root, attach the query string,
// the JSON content type when a body is present, and
// the bearer token when one is configured.
func (c *Client) build(
	ctx context.Context,
	r apiRequest,
) (*http.Request, error) {
	target := r.rawURL
	if target == "" {
		target = c.apiRoot + "/" + r.path
	}

	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf(
			"parse url %q: %w", target, err,
		)
	}

	params := u.Query()

	for k, vs := range r.params {
		for _, v := range vs {
			params.Add(k, v)
		}
	}

	if r.noCache {
		params.Set("ts", strconv.FormatInt(
			time.Now().UnixMilli(), 10,
		))
	}

	u.RawQuery = params.Encode()

	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}

	req, err := http.NewRequestWithContext(
		ctx, r.method, u.String(), body,
	)
	if err != nil {
		return nil, fmt.Errorf(
			"build request: %w", err,
		)
	}

	if r.body != nil {
		req.Header.Set(
			"Content-Type", "application/json",
		)
	}

	// Unauthenticated clients read public
	// repositories without the header.
	if c.token != "" {
		req.Header.Set(
			"Authorization", "Bearer "+c.token,
		)
	}

	return req, nil
}

// do dispatches a descriptor and applies the failure
// policy: transport failures and, unless anyStatus is
// set, non-2xx responses become *APIError so callers
// have a single catch path. The response body is
// still open on success.
func (c *Client) do(
	ctx context.Context,
	r apiRequest,
) (*http.Response, error) {
	req, err := c.build(ctx, r)
	if err != nil {
		return nil, &APIError{
			Provider: providerName,
			Message:  err.Error(),
			Err:      err,
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{
			Provider: providerName,
			Message:  err.Error(),
			Err:      err,
		}
	}

	if r.anyStatus || isSuccess(resp.StatusCode) {
		return resp, nil
	}

	defer resp.Body.Close() //nolint:errcheck

	return nil, failFromResponse(resp)
}

// isSuccess reports whether the status is in the 2xx
// range.
func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// failFromResponse turns a non-2xx response into an
// *APIError, preferring the provider-supplied JSON
// message over the raw body.
func failFromResponse(resp *http.Response) error {
	raw, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		raw = nil
	}

	message := apiMessage(raw)
	if message == "" {
		message = strings.TrimSpace(string(raw))
	}

	if message == "" {
		message = resp.Status
	}

	apiErr := &APIError{
		Provider: providerName,
		Status:   resp.StatusCode,
		Message:  message,
	}

	if resp.StatusCode == http.StatusNotFound {
		apiErr.Err = ErrNotFound
	}

	return apiErr
}

// apiMessage extracts the message or error field from
// a GitLab JSON error body, returning "" when neither
// is present.
func apiMessage(raw []byte) string {
	var body struct {
		Message any    `json:"message"`
		ErrText string `json:"error"`
	}

	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}

	switch msg := body.Message.(type) {
	case string:
		return msg
	case nil:
	default:
		// Validation errors arrive as nested maps;
		// re-serialize for a readable message.
		if enc, err := json.Marshal(msg); err == nil {
			return string(enc)
		}
	}

	return body.ErrText
}

// decodeJSON verifies the response advertises a JSON
// content type, then decodes the body into v. The
// body is always closed.
func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close() //nolint:errcheck

	ct := resp.Header.Get("Content-Type")
	if !strings.Contains(ct, "json") {
		return fmt.Errorf(
			"%w: content type %q is not json",
			ErrDecode, ct,
		)
	}

	if err := json.NewDecoder(
		resp.Body,
	).Decode(v); err != nil {
		return fmt.Errorf(
			"%w: parse json: %w", ErrDecode, err,
		)
	}

	return nil
}

// readText drains the response body as text.
func readText(resp *http.Response) (string, error) {
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf(
			"%w: read body: %w", ErrDecode, err,
		)
	}

	return string(raw), nil
}

// readBlob drains the response body as raw bytes.
func readBlob(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf(
			"%w: read body: %w", ErrDecode, err,
		)
	}

	return raw, nil
}
