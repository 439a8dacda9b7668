package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/opscrm-api/internal/domain/checklist"
	"github.com/target/opscrm-api/internal/domain/model"
)

var _ checklist.Persister = (*Client)(nil)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Options{BaseURL: srv.URL + "/", Token: "tok", HTTPClient: srv.Client()})
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts Options
	}{
		{"missing base", Options{Token: "t"}},
		{"relative base", Options{BaseURL: "crm.example.com", Token: "t"}},
		{"missing token", Options{BaseURL: "https://crm.example.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tt.opts)
			assert.Error(t, err)
		})
	}
}

func TestClient_SaveChecklist(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/jobs/job%201/checklist", r.URL.EscapedPath())
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req model.UpdateChecklistProgressRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, map[string]bool{"Vacuum": true, "Stray": true}, req.ItemStatus)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(model.JobChecklistState{
			JobID: "job 1",
			Items: []model.ChecklistItemState{{Text: "Vacuum", Done: true}, {Text: "Mop", Done: false}},
		})
	})

	got, err := c.SaveChecklist(context.Background(), "job 1", map[string]bool{"Vacuum": true, "Stray": true})

	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"Vacuum": true, "Mop": false}, got)
}

func TestClient_APIError(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"invalid_transition","message":"job is completed","current_status":"COMPLETED","valid_next_statuses":[]}`))
	})

	_, err := c.UpdateStatus(context.Background(), "j1", model.JobStatusInProgress)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "invalid_transition", apiErr.Code)
	assert.Equal(t, "COMPLETED", apiErr.CurrentStatus)
	assert.Contains(t, err.Error(), "job is completed")
}

func TestClient_NonJSONError(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	_, err := c.GetChecklist(context.Background(), "j1")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "api: 502 Bad Gateway", err.Error())
}

// The tracker and the client together: toggles coalesce into one PUT.
func TestClient_DrivesTracker(t *testing.T) {
	t.Parallel()

	saves := make(chan map[string]bool, 4)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req model.UpdateChecklistProgressRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		saves <- req.ItemStatus
		items := make([]model.ChecklistItemState, 0, len(req.ItemStatus))
		for _, k := range []string{"Vacuum", "Mop"} {
			items = append(items, model.ChecklistItemState{Text: k, Done: req.ItemStatus[k]})
		}
		_ = json.NewEncoder(w).Encode(model.JobChecklistState{Items: items})
	})

	tr, err := checklist.NewTracker(checklist.TrackerOptions{
		JobID:       "j1",
		Persister:   c,
		Initial:     map[string]bool{"Vacuum": false, "Mop": false},
		QuietPeriod: time.Hour,
	})
	require.NoError(t, err)
	defer tr.Close()

	require.NoError(t, tr.Toggle("Vacuum"))
	require.NoError(t, tr.Toggle("Mop"))
	require.NoError(t, tr.SaveNow(context.Background()))

	select {
	case got := <-saves:
		assert.Equal(t, map[string]bool{"Vacuum": true, "Mop": true}, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no save reached the server")
	}
	assert.Empty(t, saves)
	assert.False(t, tr.Dirty())
}
