package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoffjay/berry/internal/model"
	"github.com/geoffjay/berry/internal/search"
	"github.com/geoffjay/berry/internal/services"
	"github.com/geoffjay/berry/internal/store"
	"github.com/geoffjay/berry/internal/vectorstore/vectorstoretest"
)

func newTestRouter(t *testing.T) (*mux.Router, *vectorstoretest.Fake) {
	t.Helper()
	fake := vectorstoretest.NewFake()
	log := zerolog.Nop()
	adapter := store.New(fake, log)
	engine := search.NewEngine(adapter, nil, "human", 0, log)
	svc := services.NewMemoryService(adapter, engine, "human", model.TypeInformation, log)

	mh := NewMemoryHandler(svc, "")
	sh := NewSearchHandler(svc)
	hh := NewHealthHandler(nil)

	r := mux.NewRouter()
	r.HandleFunc("/api/memories", mh.CreateMemory).Methods(http.MethodPost)
	r.HandleFunc("/api/memories/{id}", mh.GetMemory).Methods(http.MethodGet)
	r.HandleFunc("/api/memories/{id}", mh.DeleteMemory).Methods(http.MethodDelete)
	r.HandleFunc("/api/memories/{id}/visibility", mh.UpdateVisibility).Methods(http.MethodPatch)
	r.HandleFunc("/api/search", sh.HandleSearch).Methods(http.MethodPost)
	r.HandleFunc("/api/health", hh.CheckHealth).Methods(http.MethodGet)
	return r, fake
}

func doJSON(t *testing.T, r *mux.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func createMemory(t *testing.T, r *mux.Router, body map[string]interface{}) model.Memory {
	t.Helper()
	rec := doJSON(t, r, http.MethodPost, "/api/memories", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var m model.Memory
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func TestCreateMemoryDefaults(t *testing.T) {
	r, _ := newTestRouter(t)

	m := createMemory(t, r, map[string]interface{}{
		"content":   "the deploy window is friday",
		"createdBy": "alice",
	})

	assert.NotEmpty(t, m.ID)
	assert.Equal(t, model.TypeInformation, m.Type)
	assert.Equal(t, "alice", m.Owner)
	assert.Equal(t, model.VisibilityPublic, m.Visibility)
	assert.False(t, m.CreatedAt.IsZero())
}

func TestCreateMemoryValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing content", map[string]interface{}{"createdBy": "alice"}},
		{"bad type", map[string]interface{}{"content": "x", "type": "musing"}},
		{"bad visibility", map[string]interface{}{"content": "x", "visibility": "secret"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, r, http.MethodPost, "/api/memories", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreateMemoryRejectsInvalidJSON(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/memories", bytes.NewBufferString("{nope"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMemoryVisibility(t *testing.T) {
	r, _ := newTestRouter(t)

	m := createMemory(t, r, map[string]interface{}{
		"content":    "alice's private note",
		"createdBy":  "alice",
		"visibility": "private",
	})

	// No asActor means the legacy unchecked read.
	rec := doJSON(t, r, http.MethodGet, "/api/memories/"+m.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/memories/"+m.ID+"?asActor=alice", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/memories/"+m.ID+"?asActor=bob", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/memories/"+m.ID+"?asActor=human&adminOverride=true", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetMemoryNotFound(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/api/memories/mem_missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteMemoryOwnership(t *testing.T) {
	r, _ := newTestRouter(t)

	m := createMemory(t, r, map[string]interface{}{
		"content":    "shared planning doc",
		"createdBy":  "alice",
		"visibility": "shared",
		"sharedWith": []string{"bob"},
	})

	// Shared grants read, never delete.
	rec := doJSON(t, r, http.MethodDelete, "/api/memories/"+m.ID+"?asActor=bob", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, r, http.MethodDelete, "/api/memories/"+m.ID+"?asActor=alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/memories/"+m.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateVisibilityRequiresActor(t *testing.T) {
	r, _ := newTestRouter(t)

	m := createMemory(t, r, map[string]interface{}{
		"content":   "note",
		"createdBy": "alice",
	})

	rec := doJSON(t, r, http.MethodPatch, "/api/memories/"+m.ID+"/visibility", map[string]interface{}{
		"visibility": "private",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateVisibilityFlow(t *testing.T) {
	r, _ := newTestRouter(t)

	m := createMemory(t, r, map[string]interface{}{
		"content":   "quarterly numbers",
		"createdBy": "alice",
	})

	rec := doJSON(t, r, http.MethodPatch, "/api/memories/"+m.ID+"/visibility", map[string]interface{}{
		"visibility": "shared",
		"sharedWith": []string{"bob"},
		"asActor":    "bob",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, r, http.MethodPatch, "/api/memories/"+m.ID+"/visibility", map[string]interface{}{
		"visibility": "shared",
		"sharedWith": []string{"bob"},
		"asActor":    "alice",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out model.Memory
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, model.VisibilityShared, out.Visibility)
	assert.Equal(t, []string{"bob"}, out.SharedWith)
	assert.Equal(t, "quarterly numbers", out.Content)

	rec = doJSON(t, r, http.MethodGet, "/api/memories/"+m.ID+"?asActor=bob", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateVisibilityBadValues(t *testing.T) {
	r, _ := newTestRouter(t)

	m := createMemory(t, r, map[string]interface{}{"content": "x", "createdBy": "alice"})

	rec := doJSON(t, r, http.MethodPatch, "/api/memories/"+m.ID+"/visibility", map[string]interface{}{
		"asActor": "alice",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodPatch, "/api/memories/"+m.ID+"/visibility", map[string]interface{}{
		"visibility": "everyone",
		"asActor":    "alice",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	createMemory(t, r, map[string]interface{}{
		"content":   "kubernetes upgrade checklist",
		"createdBy": "alice",
		"tags":      []string{"infra"},
	})
	createMemory(t, r, map[string]interface{}{
		"content":    "alice's secret kubernetes incident notes",
		"createdBy":  "alice",
		"visibility": "private",
	})
	createMemory(t, r, map[string]interface{}{
		"content":   "lunch menu for tuesday",
		"createdBy": "carol",
	})

	rec := doJSON(t, r, http.MethodPost, "/api/search", map[string]interface{}{
		"query":   "kubernetes",
		"asActor": "bob",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Results []model.SearchResult `json:"results"`
		Count   int                  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)
	// The private record is filtered out for bob; the public kubernetes
	// match ranks first with the top rank-proxy score.
	for _, res := range resp.Results {
		assert.NotEqual(t, model.VisibilityPrivate, res.Memory.Visibility)
	}
	assert.Equal(t, "kubernetes upgrade checklist", resp.Results[0].Memory.Content)
	assert.InDelta(t, 1.0, resp.Results[0].Score, 1e-9)
}

func TestSearchEndpointStructuredOnly(t *testing.T) {
	r, _ := newTestRouter(t)

	for i := 0; i < 3; i++ {
		createMemory(t, r, map[string]interface{}{
			"content":   fmt.Sprintf("note %d", i),
			"createdBy": "alice",
			"tags":      []string{"standup"},
		})
	}
	createMemory(t, r, map[string]interface{}{
		"content":   "unrelated",
		"createdBy": "bob",
	})

	rec := doJSON(t, r, http.MethodPost, "/api/search", map[string]interface{}{
		"createdBy": "alice",
		"tags":      []string{"standup"},
		"limit":     2,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Results []model.SearchResult `json:"results"`
		Count   int                  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	for _, res := range resp.Results {
		assert.Equal(t, "alice", res.Memory.CreatedBy)
		// Listings carry no similarity ranking.
		assert.Zero(t, res.Score)
	}
}

func TestSearchEndpointValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/search", map[string]interface{}{
		"query": "x",
		"limit": 5000,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/api/search", map[string]interface{}{
		"type": "daydream",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBackendFailureMapsTo503(t *testing.T) {
	r, fake := newTestRouter(t)

	m := createMemory(t, r, map[string]interface{}{"content": "x", "createdBy": "alice"})
	fake.Err = fmt.Errorf("%w: weaviate unreachable", model.ErrBackendUnavailable)

	rec := doJSON(t, r, http.MethodGet, "/api/memories/"+m.ID, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/api/search", map[string]interface{}{"query": "x"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestHealthEndpointUnhealthy(t *testing.T) {
	hh := NewHealthHandler(func() bool { return false })
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	hh.CheckHealth(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
