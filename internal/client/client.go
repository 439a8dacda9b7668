// Package client is a small JSON client for the CRM API used by operator tooling.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/target/opscrm-api/internal/domain/model"
)

const (
	defaultTimeout  = 15 * time.Second
	maxErrorBodyLen = 64 << 10
)

// Options configures a Client.
type Options struct {
	BaseURL    string       // Required: e.g. https://crm.example.com
	Token      string       // Required: API bearer token
	HTTPClient *http.Client // Optional: defaults to a client with a 15s timeout
}

// Client calls the CRM API with a bearer token.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status            int
	Code              string   `json:"error"`
	Message           string   `json:"message"`
	Field             string   `json:"field,omitempty"`
	CurrentStatus     string   `json:"current_status,omitempty"`
	ValidNextStatuses []string `json:"valid_next_statuses,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api: %d %s: %s", e.Status, e.Code, e.Message)
}

// New constructs a Client.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, errors.New("base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", opts.BaseURL)
	}
	if opts.Token == "" {
		return nil, errors.New("token is required")
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{base: base, token: opts.Token, http: hc}, nil
}

// GetJob fetches a job.
func (c *Client) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	var job model.Job
	if err := c.do(ctx, http.MethodGet, jobPath(jobID, ""), nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// GetChecklist fetches the derived checklist view of a job.
func (c *Client) GetChecklist(ctx context.Context, jobID string) (*model.JobChecklistState, error) {
	var st model.JobChecklistState
	if err := c.do(ctx, http.MethodGet, jobPath(jobID, "checklist"), nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// SaveChecklist replaces the job's item map and returns what the server stored. It satisfies
// checklist.Persister.
func (c *Client) SaveChecklist(ctx context.Context, jobID string, items map[string]bool) (map[string]bool, error) {
	var st model.JobChecklistState
	body := model.UpdateChecklistProgressRequest{ItemStatus: items}
	if err := c.do(ctx, http.MethodPut, jobPath(jobID, "checklist"), body, &st); err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(st.Items))
	for _, it := range st.Items {
		out[it.Text] = it.Done
	}
	return out, nil
}

// UpdateStatus requests a status change.
func (c *Client) UpdateStatus(ctx context.Context, jobID string, status model.JobStatus) (*model.Job, error) {
	var job model.Job
	body := model.UpdateJobStatusRequest{Status: status}
	if err := c.do(ctx, http.MethodPost, jobPath(jobID, "status"), body, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func jobPath(jobID, sub string) string {
	p := "/api/jobs/" + url.PathEscape(jobID)
	if sub != "" {
		p += "/" + sub
	}
	return p
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.JoinPath(path).String(), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
		_ = json.Unmarshal(raw, apiErr)
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}
