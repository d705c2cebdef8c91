// Package apiclient talks to the remote business REST API on behalf of a
// session.
package apiclient

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
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/portal/internal/access"
	"github.com/odyssey-erp/portal/internal/shared"
)

const maxErrorBody = 4 << 10

// endpoints maps resources to their API controller names.
var endpoints = map[access.Resource]string{
	access.ResourceEmployees:    "Employee",
	access.ResourceForms:        "Form",
	access.ResourceBranches:     "Branch",
	access.ResourceSubCompanies: "SubCompany",
	access.ResourceCompanies:    "Company",
	access.ResourceCategories:   "Category",
	access.ResourceFAQ:          "Faq",
	access.ResourceSupplier:     "Supplier",
	access.ResourceTypeOfUser:   "TypeOfUser",
	access.ResourceMembers:      "Member",
}

// Endpoint returns the API controller name for res.
func Endpoint(res access.Resource) (string, bool) {
	name, ok := endpoints[res]
	return name, ok
}

// Record is a single resource row as returned by the API.
type Record map[string]any

// ID returns the record identifier as a string.
func (r Record) ID() string {
	for _, key := range []string{"id", "Id", "ID"} {
		if v, ok := r[key]; ok {
			return stringify(v)
		}
	}
	return ""
}

// Field returns the named value as a string.
func (r Record) Field(name string) string {
	if v, ok := r[name]; ok {
		return stringify(v)
	}
	for k, v := range r {
		if strings.EqualFold(k, name) {
			return stringify(v)
		}
	}
	return ""
}

// Client performs CRUD calls scoped by the caller's identity.
type Client struct {
	baseURL    string
	httpClient *http.Client
	reads      singleflight.Group
}

// NewClient constructs a Client for the API rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// List returns every record of res visible to the identity. Concurrent
// identical reads share one round trip; callers must not mutate the result.
// The shared round trip outlives any single caller's cancellation and is
// bounded by the client timeout instead.
func (c *Client) List(ctx context.Context, id shared.Identity, res access.Resource) ([]Record, error) {
	name, ok := endpoints[res]
	if !ok {
		return nil, ErrNoEndpoint
	}
	target := c.endpoint(id, name, "GetAll")
	key := id.Token + " " + target
	flightCtx := context.WithoutCancel(ctx)
	ch := c.reads.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(flightCtx, c.httpClient.Timeout)
		defer cancel()
		var raw json.RawMessage
		if err := c.do(fctx, id, http.MethodGet, target, nil, &raw); err != nil {
			return nil, err
		}
		return decodeList(raw)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-ch:
		if result.Err != nil {
			return nil, result.Err
		}
		return result.Val.([]Record), nil
	}
}

// Get fetches a single record.
func (c *Client) Get(ctx context.Context, id shared.Identity, res access.Resource, recordID string) (Record, error) {
	name, ok := endpoints[res]
	if !ok {
		return nil, ErrNoEndpoint
	}
	var rec Record
	if err := c.do(ctx, id, http.MethodGet, c.endpoint(id, name, "GetById", recordID), nil, &rec); err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	return rec, nil
}

// Create inserts rec and returns the stored record when the API echoes it.
func (c *Client) Create(ctx context.Context, id shared.Identity, res access.Resource, rec Record) (Record, error) {
	name, ok := endpoints[res]
	if !ok {
		return nil, ErrNoEndpoint
	}
	var out Record
	if err := c.do(ctx, id, http.MethodPost, c.endpoint(id, name, "Create"), rec, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update replaces rec; the record must carry its id.
func (c *Client) Update(ctx context.Context, id shared.Identity, res access.Resource, rec Record) (Record, error) {
	name, ok := endpoints[res]
	if !ok {
		return nil, ErrNoEndpoint
	}
	if rec.ID() == "" {
		return nil, fmt.Errorf("%w: id is required", ErrValidation)
	}
	var out Record
	if err := c.do(ctx, id, http.MethodPut, c.endpoint(id, name, "Update"), rec, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a record.
func (c *Client) Delete(ctx context.Context, id shared.Identity, res access.Resource, recordID string) error {
	name, ok := endpoints[res]
	if !ok {
		return ErrNoEndpoint
	}
	return c.do(ctx, id, http.MethodDelete, c.endpoint(id, name, "Delete", recordID), nil, nil)
}

// ApproveForm moves a submitted form to approved.
func (c *Client) ApproveForm(ctx context.Context, id shared.Identity, formID string) error {
	return c.do(ctx, id, http.MethodPost, c.endpoint(id, endpoints[access.ResourceForms], "Approve", formID), nil, nil)
}

// RejectForm moves a submitted form to rejected.
func (c *Client) RejectForm(ctx context.Context, id shared.Identity, formID string) error {
	return c.do(ctx, id, http.MethodPost, c.endpoint(id, endpoints[access.ResourceForms], "Reject", formID), nil, nil)
}

// endpoint builds api/<name>/<action>[/<id>] with the identity's tenant scope.
func (c *Client) endpoint(id shared.Identity, name, action string, rest ...string) string {
	parts := []string{c.baseURL, "api", url.PathEscape(name), action}
	for _, p := range rest {
		parts = append(parts, url.PathEscape(p))
	}
	target := strings.Join(parts, "/")
	q := url.Values{}
	if id.CompanyID != "" {
		q.Set("companyId", id.CompanyID)
	}
	if id.SubCompanyID != "" {
		q.Set("subCompanyId", id.SubCompanyID)
	}
	if id.BranchID != "" {
		q.Set("branchId", id.BranchID)
	}
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	return target
}

func (c *Client) do(ctx context.Context, id shared.Identity, method, target string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("apiclient: encode body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("apiclient: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id.Token != "" {
		req.Header.Set("Authorization", "Bearer "+id.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("apiclient: %s %s: %w", method, req.URL.Path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		return statusError(resp.StatusCode, readMessage(resp.Body))
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("apiclient: decode %s: %w", req.URL.Path, err)
	}
	return nil
}

// decodeList accepts either a bare array or an envelope with data/items.
func decodeList(raw json.RawMessage) ([]Record, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []Record{}, nil
	}
	if trimmed[0] == '[' {
		var records []Record
		if err := unmarshalNumbers(trimmed, &records); err != nil {
			return nil, fmt.Errorf("apiclient: decode list: %w", err)
		}
		return records, nil
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("apiclient: decode list: %w", err)
	}
	for key, value := range envelope {
		switch strings.ToLower(key) {
		case "data", "items", "result":
			return decodeList(value)
		}
	}
	return []Record{}, nil
}

func unmarshalNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func readMessage(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ""
	}
	var problem map[string]any
	if json.Unmarshal(data, &problem) == nil {
		for _, key := range []string{"message", "detail", "title", "error"} {
			if v, ok := problem[key].(string); ok && v != "" {
				return v
			}
		}
		return ""
	}
	return string(data)
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(t)
	}
}
