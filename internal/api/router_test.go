package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KoSuyeon/SKAI-project/internal/api/handlers"
	"github.com/KoSuyeon/SKAI-project/internal/datatypes"
	"github.com/KoSuyeon/SKAI-project/internal/embeddings"
	"github.com/KoSuyeon/SKAI-project/internal/indexer"
	"github.com/KoSuyeon/SKAI-project/internal/search"
	"github.com/KoSuyeon/SKAI-project/internal/vectorstore"
)

const (
	testDim        = 128
	testCollection = "dic_table"
)

type recordedRequest struct {
	method, route, statusClass string
}

type fakeHTTPMetrics struct {
	mu       sync.Mutex
	requests []recordedRequest
	tooLarge int
}

func (f *fakeHTTPMetrics) RecordRequest(_ context.Context, method, route, statusClass string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, recordedRequest{method: method, route: route, statusClass: statusClass})
}

func (f *fakeHTTPMetrics) RecordRequestBodyTooLarge(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.tooLarge++
}

func newTestRouter(t *testing.T, metrics *fakeHTTPMetrics, maxBody int64) http.Handler {
	t.Helper()

	emb := embeddings.NewMockClientWithDimensions(testDim)
	store := vectorstore.NewMemoryStore()

	_, err := indexer.NewBuilder(indexer.BuilderParams{
		Embedder: emb, Store: store, Collection: testCollection, Dimensions: testDim,
	}).Build(context.Background(), map[datatypes.Category][]string{
		datatypes.EquipmentType:  {"PUMP-01", "PUMP-02", "VALVE"},
		datatypes.Location:       {"A동 1층", "B동 옥상"},
		datatypes.PhenomenonCode: {"누유", "진동"},
		datatypes.Priority:       {"긴급", "보통"},
	})
	require.NoError(t, err)

	engine := search.NewEngine(search.EngineParams{
		Embedder: emb, Store: store, Collection: testCollection, Limit: 2,
	})

	ready := func(ctx context.Context) error {
		_, err := store.Count(ctx, testCollection, "")

		return err
	}

	p := RouterParams{
		Normalize:    handlers.NewNormalizeHandler(engine, search.DefaultScoreGapThreshold),
		Health:       handlers.NewHealthHandler(ready),
		MaxBodyBytes: maxBody,
	}
	if metrics != nil {
		p.HTTPMetrics = metrics
	}

	return NewRouter(p)
}

func TestRouter_NormalizeSelfRetrieval(t *testing.T) {
	router := newTestRouter(t, nil, 0)

	body := `{"input":"PUMP-01","category":"equipment_type"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/normalize", strings.NewReader(body))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var resp handlers.NormalizeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Top1)
	assert.Equal(t, "PUMP-01", resp.Top1.Value)
	assert.InDelta(t, 1.0, resp.Top1.Score, 1e-4)
}

func TestRouter_CategoryIsolation(t *testing.T) {
	router := newTestRouter(t, nil, 0)

	req := httptest.NewRequest(http.MethodGet, "/v1/candidates?input=PUMP-01&category=priority&limit=10", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp handlers.CandidatesResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Candidates, 2)

	for _, c := range resp.Candidates {
		assert.Contains(t, []string{"긴급", "보통"}, c.Value)
	}
}

func TestRouter_PropagatesRequestID(t *testing.T) {
	router := newTestRouter(t, nil, 0)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}

func TestRouter_ReadyAndProblemResponses(t *testing.T) {
	router := newTestRouter(t, nil, 0)

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{name: "ready with built index", method: http.MethodGet, path: "/ready", want: http.StatusOK},
		{name: "unknown route", method: http.MethodGet, path: "/v1/terms", want: http.StatusNotFound},
		{name: "wrong method", method: http.MethodDelete, path: "/v1/normalize", want: http.StatusMethodNotAllowed},
		{name: "metrics disabled", method: http.MethodGet, path: "/metrics", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRouter_RecordsRoutePatternMetrics(t *testing.T) {
	metrics := &fakeHTTPMetrics{}
	router := newTestRouter(t, metrics, 0)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/normalize?input=%EB%88%84%EC%9C%A0&category=phenomenon_code", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere/123", nil))

	require.Len(t, metrics.requests, 2)
	assert.Equal(t, recordedRequest{method: "GET", route: "/v1/normalize", statusClass: "2xx"}, metrics.requests[0])
	assert.Equal(t, "4xx", metrics.requests[1].statusClass)
	assert.NotContains(t, metrics.requests[1].route, "123")
}

func TestRouter_RejectsOversizedBody(t *testing.T) {
	metrics := &fakeHTTPMetrics{}
	router := newTestRouter(t, metrics, 64)

	body := `{"input":"` + strings.Repeat("A", 256) + `","category":"equipment_type"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/normalize", bytes.NewReader([]byte(body))))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, 1, metrics.tooLarge)
}
