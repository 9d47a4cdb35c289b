// Package remote is a thin client for a row-oriented REST table store,
// addressed by table name and an equality filter. It intentionally skips the
// vendor SDK: the whole protocol is four verbs against
// {base}/rest/v1/{table}{filter} with a bearer credential.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TransportError means the remote store was unreachable or rejected the
// request. Callers must treat it as "remote unreachable" and never let it
// fail a local operation.
type TransportError struct {
	Status  int    // 0 when the request never got a response
	Message string // server-provided message when present
	Err     error  // underlying network error, if any
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("remote request: %v", e.Err)
	}
	return fmt.Sprintf("remote returned %d: %s", e.Status, e.Message)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Filter is a query-string predicate, e.g. "?id=eq.deck-1".
type Filter string

// All selects every row of a table.
const All Filter = ""

// Eq builds an equality filter over one column.
func Eq(column, value string) Filter {
	return Filter("?" + column + "=eq." + url.QueryEscape(value))
}

// Client issues table CRUD requests. Each operation is an independent
// round-trip; there is no transactional grouping.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New creates a client for the given base URL and API key.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Select retrieves rows matching the filter into out (a pointer to a slice).
func (c *Client) Select(ctx context.Context, table string, filter Filter, out any) error {
	return c.do(ctx, http.MethodGet, table, filter, nil, out, false)
}

// Insert creates a row. When out is non-nil the stored row, with any
// server-assigned fields merged in, is decoded into it.
func (c *Client) Insert(ctx context.Context, table string, row, out any) error {
	return c.do(ctx, http.MethodPost, table, All, row, out, true)
}

// Update patches rows matching the filter. When out is non-nil the first
// updated row is decoded into it.
func (c *Client) Update(ctx context.Context, table string, filter Filter, patch, out any) error {
	return c.do(ctx, http.MethodPatch, table, filter, patch, out, true)
}

// Delete removes rows matching the filter.
func (c *Client) Delete(ctx context.Context, table string, filter Filter) error {
	return c.do(ctx, http.MethodDelete, table, filter, nil, nil, false)
}

// do runs one request. firstRow unwraps a single-element JSON array response
// into out, the shape the table API returns for writes.
func (c *Client) do(ctx context.Context, method, table string, filter Filter, body, out any, firstRow bool) error {
	endpoint := c.baseURL + "/rest/v1/" + table + string(filter)

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("apikey", c.apiKey)
	// Ask the server to echo the affected rows back.
	req.Header.Set("Prefer", "return=representation")

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{Status: resp.StatusCode, Message: serverMessage(data)}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if firstRow {
		return decodeFirstRow(data, out)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeFirstRow decodes data into out, unwrapping a one-element array when
// the server returns one.
func decodeFirstRow(data []byte, out any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var rows []json.RawMessage
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		trimmed = rows[0]
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// serverMessage extracts the "message" field from an error response body.
func serverMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return "request failed"
}
