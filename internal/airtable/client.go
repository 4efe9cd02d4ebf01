// Package airtable is a thin HTTP client for the Airtable REST API. It
// performs no caching and no rate limiting; the gateway composes those
// around it. Responses are decoded into the service's pass-through wire
// types and upstream errors are surfaced as typed *Error values.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"airgate/internal/models"
)

// Client is the upstream capability the gateway depends on. The HTTP
// implementation below is the production client; tests substitute stubs.
type Client interface {
	// ListBases returns all bases the configured token can access.
	ListBases(ctx context.Context) ([]models.BaseInfo, error)

	// BaseSchema returns the table schemas of a base.
	BaseSchema(ctx context.Context, baseID string) ([]models.TableSchema, error)

	// ListRecords returns records of a table, honoring the query's filters.
	// It follows upstream pagination until the query's MaxRecords is reached.
	ListRecords(ctx context.Context, baseID, tableID string, query models.ListRecordsQuery) ([]models.Record, error)

	// GetRecord returns a single record by id.
	GetRecord(ctx context.Context, baseID, tableID, recordID string) (*models.Record, error)

	// CreateRecord creates one record and returns it with its assigned id.
	CreateRecord(ctx context.Context, baseID, tableID string, fields map[string]any) (*models.Record, error)

	// UpdateRecord applies a partial update to one record.
	UpdateRecord(ctx context.Context, baseID, tableID, recordID string, fields map[string]any) (*models.Record, error)

	// DeleteRecord removes one record.
	DeleteRecord(ctx context.Context, baseID, tableID, recordID string) error

	// BatchCreateRecords creates up to 10 records in one upstream call.
	BatchCreateRecords(ctx context.Context, baseID, tableID string, records []models.RecordFields) ([]models.Record, error)
}

// Error is an upstream API error, parsed from Airtable's error envelope.
// The gateway surfaces it unchanged to callers.
type Error struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("airtable: %s (%s, HTTP %d)", e.Message, e.Type, e.StatusCode)
}

// HTTPClient implements Client against the Airtable REST API.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a client from the upstream configuration.
func NewHTTPClient(cfg models.UpstreamConfig) *HTTPClient {
	return &HTTPClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
	}
}

// baseDTO mirrors the upstream base list entry; the exposed wire type uses
// snake_case for permission_level.
type baseDTO struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	PermissionLevel string `json:"permissionLevel"`
}

func (c *HTTPClient) ListBases(ctx context.Context) ([]models.BaseInfo, error) {
	var out struct {
		Bases []baseDTO `json:"bases"`
	}
	if err := c.do(ctx, http.MethodGet, "/v0/meta/bases", nil, &out); err != nil {
		return nil, err
	}

	bases := make([]models.BaseInfo, len(out.Bases))
	for i, b := range out.Bases {
		bases[i] = models.BaseInfo{ID: b.ID, Name: b.Name, PermissionLevel: b.PermissionLevel}
	}
	return bases, nil
}

func (c *HTTPClient) BaseSchema(ctx context.Context, baseID string) ([]models.TableSchema, error) {
	var out struct {
		Tables []models.TableSchema `json:"tables"`
	}
	path := fmt.Sprintf("/v0/meta/bases/%s/tables", url.PathEscape(baseID))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Tables, nil
}

func (c *HTTPClient) ListRecords(ctx context.Context, baseID, tableID string, query models.ListRecordsQuery) ([]models.Record, error) {
	params := url.Values{}
	params.Set("maxRecords", strconv.Itoa(query.MaxRecords))
	if query.View != "" {
		params.Set("view", query.View)
	}
	if query.FilterByFormula != "" {
		params.Set("filterByFormula", query.FilterByFormula)
	}
	for i, field := range query.Sort {
		direction := "asc"
		if strings.HasPrefix(field, "-") {
			direction = "desc"
			field = field[1:]
		}
		params.Set(fmt.Sprintf("sort[%d][field]", i), field)
		params.Set(fmt.Sprintf("sort[%d][direction]", i), direction)
	}

	basePath := fmt.Sprintf("/v0/%s/%s", url.PathEscape(baseID), url.PathEscape(tableID))

	var records []models.Record
	offset := ""
	for {
		if offset != "" {
			params.Set("offset", offset)
		}

		var page struct {
			Records []models.Record `json:"records"`
			Offset  string          `json:"offset"`
		}
		if err := c.do(ctx, http.MethodGet, basePath+"?"+params.Encode(), nil, &page); err != nil {
			return nil, err
		}

		records = append(records, page.Records...)
		if page.Offset == "" || len(records) >= query.MaxRecords {
			break
		}
		offset = page.Offset
	}

	if len(records) > query.MaxRecords {
		records = records[:query.MaxRecords]
	}
	return records, nil
}

func (c *HTTPClient) GetRecord(ctx context.Context, baseID, tableID, recordID string) (*models.Record, error) {
	var record models.Record
	path := fmt.Sprintf("/v0/%s/%s/%s", url.PathEscape(baseID), url.PathEscape(tableID), url.PathEscape(recordID))
	if err := c.do(ctx, http.MethodGet, path, nil, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (c *HTTPClient) CreateRecord(ctx context.Context, baseID, tableID string, fields map[string]any) (*models.Record, error) {
	body := map[string]any{"fields": fields}
	var record models.Record
	path := fmt.Sprintf("/v0/%s/%s", url.PathEscape(baseID), url.PathEscape(tableID))
	if err := c.do(ctx, http.MethodPost, path, body, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (c *HTTPClient) UpdateRecord(ctx context.Context, baseID, tableID, recordID string, fields map[string]any) (*models.Record, error) {
	body := map[string]any{"fields": fields}
	var record models.Record
	path := fmt.Sprintf("/v0/%s/%s/%s", url.PathEscape(baseID), url.PathEscape(tableID), url.PathEscape(recordID))
	if err := c.do(ctx, http.MethodPatch, path, body, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (c *HTTPClient) DeleteRecord(ctx context.Context, baseID, tableID, recordID string) error {
	var out struct {
		Deleted bool   `json:"deleted"`
		ID      string `json:"id"`
	}
	path := fmt.Sprintf("/v0/%s/%s/%s", url.PathEscape(baseID), url.PathEscape(tableID), url.PathEscape(recordID))
	return c.do(ctx, http.MethodDelete, path, nil, &out)
}

func (c *HTTPClient) BatchCreateRecords(ctx context.Context, baseID, tableID string, records []models.RecordFields) ([]models.Record, error) {
	body := map[string]any{"records": records}
	var out struct {
		Records []models.Record `json:"records"`
	}
	path := fmt.Sprintf("/v0/%s/%s", url.PathEscape(baseID), url.PathEscape(tableID))
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return out.Records, nil
}

// do executes one upstream request, encoding body as JSON when non-nil and
// decoding the response into out. Non-2xx responses become *Error.
func (c *HTTPClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upstream request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return parseError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode upstream response: %w", err)
	}
	return nil
}

// parseError extracts Airtable's error envelope; when the body is not the
// expected shape the raw text becomes the message.
func parseError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var envelope struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error.Message != "" {
		return &Error{
			StatusCode: resp.StatusCode,
			Type:       envelope.Error.Type,
			Message:    envelope.Error.Message,
		}
	}

	return &Error{
		StatusCode: resp.StatusCode,
		Type:       "HTTP_ERROR",
		Message:    fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(data))),
	}
}
