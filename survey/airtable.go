package survey

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	// DefaultAirtableBaseURL is the production Airtable API endpoint.
	DefaultAirtableBaseURL = "https://api.airtable.com/v0"

	// MaxCreateBatch is Airtable's per-call record limit for creates.
	MaxCreateBatch = 10

	// listPageSize is the page size requested on paged reads.
	listPageSize = 100

	// defaultRequestTimeout bounds a single API round trip.
	defaultRequestTimeout = 30 * time.Second

	// maxAPIResponseBytes limits response bodies to 10 MB.
	maxAPIResponseBytes = 10 << 20
)

// Record is an Airtable record. Fields the tracker does not use pass through
// the map untouched.
type Record struct {
	ID          string                 `json:"id,omitempty"`
	Fields      map[string]interface{} `json:"fields"`
	CreatedTime string                 `json:"createdTime,omitempty"`
}

// Name returns the record's Name field, or "" if absent.
func (r Record) Name() string {
	name, _ := r.Fields["Name"].(string)
	return name
}

// Status returns the record's Status field, or "" if absent.
func (r Record) Status() string {
	status, _ := r.Fields["Status"].(string)
	return status
}

// AirtableClient talks to one Airtable base.
type AirtableClient struct {
	baseURL string
	baseID  string
	apiKey  string
	client  *http.Client
}

// AirtableOption configures an AirtableClient.
type AirtableOption func(*AirtableClient)

// WithBaseURL overrides the API endpoint (useful for testing).
func WithBaseURL(u string) AirtableOption {
	return func(c *AirtableClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default HTTP client (useful for testing).
func WithHTTPClient(client *http.Client) AirtableOption {
	return func(c *AirtableClient) {
		c.client = client
	}
}

// NewAirtableClient creates a client for the given base and API key.
func NewAirtableClient(baseID, apiKey string, opts ...AirtableOption) *AirtableClient {
	c := &AirtableClient{
		baseURL: DefaultAirtableBaseURL,
		baseID:  baseID,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: defaultRequestTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List fetches all records from a table, following offset cursors until the
// server stops returning one. filterFormula may be empty.
func (c *AirtableClient) List(ctx context.Context, table, filterFormula string) ([]Record, error) {
	var all []Record
	offset := ""

	for {
		q := url.Values{}
		q.Set("pageSize", fmt.Sprint(listPageSize))
		if filterFormula != "" {
			q.Set("filterByFormula", filterFormula)
		}
		if offset != "" {
			q.Set("offset", offset)
		}

		var page struct {
			Records []Record `json:"records"`
			Offset  string   `json:"offset"`
		}
		if err := c.do(ctx, http.MethodGet, table, q, nil, &page); err != nil {
			return nil, fmt.Errorf("listing %s: %w", table, err)
		}

		all = append(all, page.Records...)
		if page.Offset == "" {
			return all, nil
		}
		offset = page.Offset
	}
}

// Create inserts up to MaxCreateBatch records into a table and returns the
// created records. Oversized batches are rejected client-side.
func (c *AirtableClient) Create(ctx context.Context, table string, records []Record) ([]Record, error) {
	if len(records) == 0 {
		return nil, nil
	}
	if len(records) > MaxCreateBatch {
		return nil, fmt.Errorf("creating in %s: batch of %d exceeds limit of %d", table, len(records), MaxCreateBatch)
	}

	body := struct {
		Records []Record `json:"records"`
	}{Records: records}

	var resp struct {
		Records []Record `json:"records"`
	}
	if err := c.do(ctx, http.MethodPost, table, nil, body, &resp); err != nil {
		return nil, fmt.Errorf("creating in %s: %w", table, err)
	}
	return resp.Records, nil
}

// do performs one API round trip and decodes the JSON response into out.
func (c *AirtableClient) do(ctx context.Context, method, table string, query url.Values, body, out interface{}) error {
	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, c.baseID, url.PathEscape(table))
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAPIResponseBytes))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: status %d: %s", method, table, resp.StatusCode, trimBody(data))
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
	}
	return nil
}

func trimBody(data []byte) string {
	const max = 200
	s := string(data)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
