// Package airtable wraps the Airtable REST API for record creation, queries,
// and batched patches against a single table.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.airtable.com/v0"

// MaxBatchSize is the Airtable API limit on records per create/update call.
const MaxBatchSize = 10

// ErrRecordNotFound is returned when a record id does not exist.
var ErrRecordNotFound = eris.New("airtable: record not found")

// Record is one row of the table.
type Record struct {
	ID          string         `json:"id"`
	Fields      map[string]any `json:"fields"`
	CreatedTime string         `json:"createdTime,omitempty"`
}

// RecordUpdate identifies a record and the fields to patch.
type RecordUpdate struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// Client defines the record-store operations used by the workflow.
type Client interface {
	CreateRecords(ctx context.Context, fields []map[string]any) ([]Record, error)
	UpdateRecords(ctx context.Context, updates []RecordUpdate) ([]Record, error)
	QueryRecords(ctx context.Context, formula string) ([]Record, error)
	GetRecord(ctx context.Context, recordID string) (*Record, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default rate limit (5 req/s, Airtable's cap).
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	baseID  string
	table   string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an Airtable client scoped to one base and table.
// By default, API calls are throttled to 5 req/s (Airtable's rate limit).
func NewClient(apiKey, baseID, table string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		baseID:  baseID,
		table:   table,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(5, 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *httpClient) tableURL() string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, c.baseID, url.PathEscape(c.table))
}

// CreateRecords inserts up to MaxBatchSize records and returns them with
// assigned ids. Callers batching larger inputs split before calling.
func (c *httpClient) CreateRecords(ctx context.Context, fields []map[string]any) ([]Record, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	if len(fields) > MaxBatchSize {
		return nil, eris.Errorf("airtable: create accepts at most %d records, got %d", MaxBatchSize, len(fields))
	}

	type createItem struct {
		Fields map[string]any `json:"fields"`
	}
	items := make([]createItem, len(fields))
	for i, f := range fields {
		items[i] = createItem{Fields: f}
	}

	var resp struct {
		Records []Record `json:"records"`
	}
	if err := c.do(ctx, http.MethodPost, c.tableURL(), map[string]any{"records": items}, &resp); err != nil {
		return nil, eris.Wrap(err, "airtable: create records")
	}
	return resp.Records, nil
}

// UpdateRecords patches up to MaxBatchSize records and returns the updated
// rows. Callers batching larger inputs split before calling.
func (c *httpClient) UpdateRecords(ctx context.Context, updates []RecordUpdate) ([]Record, error) {
	if len(updates) == 0 {
		return nil, nil
	}
	if len(updates) > MaxBatchSize {
		return nil, eris.Errorf("airtable: update accepts at most %d records, got %d", MaxBatchSize, len(updates))
	}

	var resp struct {
		Records []Record `json:"records"`
	}
	if err := c.do(ctx, http.MethodPatch, c.tableURL(), map[string]any{"records": updates}, &resp); err != nil {
		return nil, eris.Wrap(err, "airtable: update records")
	}
	return resp.Records, nil
}

// QueryRecords returns all records matching the filterByFormula expression,
// following pagination offsets until exhausted.
func (c *httpClient) QueryRecords(ctx context.Context, formula string) ([]Record, error) {
	var all []Record
	offset := ""

	for {
		q := url.Values{}
		if formula != "" {
			q.Set("filterByFormula", formula)
		}
		if offset != "" {
			q.Set("offset", offset)
		}

		u := c.tableURL()
		if enc := q.Encode(); enc != "" {
			u += "?" + enc
		}

		var resp struct {
			Records []Record `json:"records"`
			Offset  string   `json:"offset"`
		}
		if err := c.do(ctx, http.MethodGet, u, nil, &resp); err != nil {
			return nil, eris.Wrap(err, "airtable: query records")
		}

		all = append(all, resp.Records...)
		if resp.Offset == "" {
			return all, nil
		}
		offset = resp.Offset
	}
}

// GetRecord fetches a single record by id. Returns ErrRecordNotFound when
// the id does not exist.
func (c *httpClient) GetRecord(ctx context.Context, recordID string) (*Record, error) {
	var rec Record
	err := c.do(ctx, http.MethodGet, c.tableURL()+"/"+url.PathEscape(recordID), nil, &rec)
	if err != nil {
		var he *httpError
		if errors.As(err, &he) && he.status == http.StatusNotFound {
			return nil, eris.Wrap(ErrRecordNotFound, recordID)
		}
		return nil, eris.Wrap(err, fmt.Sprintf("airtable: get record %s", recordID))
	}
	return &rec, nil
}

// httpError carries the status for branch decisions without exporting a
// second error type; callers outside the package see wrapped messages.
type httpError struct {
	status int
	body   string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("airtable: unexpected status %d: %s", e.status, e.body)
}

func (c *httpClient) do(ctx context.Context, method, u string, body any, out any) error {
	if err := c.wait(ctx); err != nil {
		return eris.Wrap(err, "airtable: rate limiter")
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return eris.Wrap(err, "airtable: marshal request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return eris.Wrap(err, "airtable: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "airtable: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "airtable: read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &httpError{status: resp.StatusCode, body: string(respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return eris.Wrap(err, "airtable: unmarshal response")
		}
	}
	return nil
}
