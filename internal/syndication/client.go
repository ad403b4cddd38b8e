package syndication

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/quillhost/quill/internal/errors"
	"github.com/quillhost/quill/internal/logging"
)

// Client talks to an XRPC record service. It classifies failures but
// never retries; callers decide whether a retryable error is worth
// another attempt.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  logging.Logger
}

// WithToken sets the bearer token sent on every request.
func (c *Client) WithToken(token string) *Client {
	c.token = token
	return c
}

// ListedRecord pairs a stored record with its repository coordinates.
type ListedRecord struct {
	URI   string  `json:"uri"`
	CID   string  `json:"cid,omitempty"`
	Value *Record `json:"value"`
}

// NewClient creates a client for the service at baseURL. A zero timeout
// falls back to 10 seconds.
func NewClient(baseURL string, timeout time.Duration, logger logging.Logger) *Client {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: trimSlash(baseURL),
		http:    &http.Client{Timeout: timeout},
		logger:  logger.WithComponent("syndication"),
	}
}

// PutRecord creates or replaces a record at repo/collection/rkey.
func (c *Client) PutRecord(ctx context.Context, repo, collection, rkey string, rec *Record) error {
	if err := recordKeyValid(rkey); err != nil {
		return err
	}

	body := map[string]interface{}{
		"repo":       repo,
		"collection": collection,
		"rkey":       rkey,
		"record":     rec,
	}

	return c.call(ctx, http.MethodPost, "com.atproto.repo.putRecord", nil, body, nil)
}

// GetRecord fetches a single record.
func (c *Client) GetRecord(ctx context.Context, repo, collection, rkey string) (*Record, error) {
	params := url.Values{
		"repo":       {repo},
		"collection": {collection},
		"rkey":       {rkey},
	}

	var out struct {
		URI   string  `json:"uri"`
		Value *Record `json:"value"`
	}
	if err := c.call(ctx, http.MethodGet, "com.atproto.repo.getRecord", params, nil, &out); err != nil {
		return nil, err
	}
	if out.Value == nil {
		return nil, errors.NewNetworkError(errors.ErrCodeRequestFailed, "record response missing value", nil)
	}

	return out.Value, nil
}

// ListRecords pages through every record in a collection.
func (c *Client) ListRecords(ctx context.Context, repo, collection string) ([]ListedRecord, error) {
	var all []ListedRecord
	cursor := ""

	for {
		params := url.Values{
			"repo":       {repo},
			"collection": {collection},
			"limit":      {"100"},
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var page struct {
			Records []ListedRecord `json:"records"`
			Cursor  string         `json:"cursor"`
		}
		if err := c.call(ctx, http.MethodGet, "com.atproto.repo.listRecords", params, nil, &page); err != nil {
			return nil, err
		}

		all = append(all, page.Records...)
		if page.Cursor == "" || len(page.Records) == 0 {
			break
		}
		cursor = page.Cursor
	}

	return all, nil
}

// DeleteRecord removes a record. Deleting a record that does not exist is
// not an error on most services; any 4xx still surfaces to the caller.
func (c *Client) DeleteRecord(ctx context.Context, repo, collection, rkey string) error {
	body := map[string]interface{}{
		"repo":       repo,
		"collection": collection,
		"rkey":       rkey,
	}

	return c.call(ctx, http.MethodPost, "com.atproto.repo.deleteRecord", nil, body, nil)
}

func (c *Client) call(ctx context.Context, method, nsid string, params url.Values, body, out interface{}) error {
	endpoint := c.baseURL + "/xrpc/" + nsid
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errors.NewInternalError(errors.ErrCodeInternalError, "request encode failed", err)
		}
		payload = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, payload)
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeInternalError, "request build failed", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug(ctx, "xrpc call", "method", method, "nsid", nsid)

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransport(nsid, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyStatus(nsid, resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.NewNetworkError(errors.ErrCodeRequestFailed,
				fmt.Sprintf("%s: response decode failed", nsid), err)
		}
	}

	return nil
}

func classifyTransport(nsid string, err error) *errors.QuillError {
	var uerr *url.Error
	if stderrors.As(err, &uerr) && uerr.Timeout() {
		return errors.NewNetworkError(errors.ErrCodeRequestTimeout,
			fmt.Sprintf("%s: request timed out", nsid), err)
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewNetworkError(errors.ErrCodeRequestTimeout,
			fmt.Sprintf("%s: request timed out", nsid), err)
	}

	return errors.NewNetworkError(errors.ErrCodeRequestFailed,
		fmt.Sprintf("%s: request failed", nsid), err)
}

func classifyStatus(nsid string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := fmt.Sprintf("%s: service returned %d", nsid, resp.StatusCode)
	if len(snippet) > 0 {
		msg += ": " + string(bytes.TrimSpace(snippet))
	}

	if resp.StatusCode >= 500 {
		return errors.NewNetworkError(errors.ErrCodeRequestFailed, msg, nil)
	}

	// 4xx means the request itself is wrong; retrying will not help.
	return errors.NewValidationError(errors.ErrCodeRequestFailed, msg)
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}

	return s
}
