package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KoSuyeon/SKAI-project/internal/datatypes"
	"github.com/KoSuyeon/SKAI-project/internal/models"
	"github.com/KoSuyeon/SKAI-project/internal/normerrors"
	"github.com/KoSuyeon/SKAI-project/internal/vectorstore"
)

type mockNormalizer struct {
	queryFunc  func(ctx context.Context, input string, category datatypes.Category) (models.Match, error)
	searchFunc func(ctx context.Context, input string, category datatypes.Category, limit int) ([]vectorstore.Hit, error)
}

func (m *mockNormalizer) QueryText(input string, _ datatypes.Category) string { return "q:" + input }

func (m *mockNormalizer) Query(ctx context.Context, input string, category datatypes.Category) (models.Match, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, input, category)
	}

	return models.Match{}, nil
}

func (m *mockNormalizer) Search(
	ctx context.Context, input string, category datatypes.Category, limit int,
) ([]vectorstore.Hit, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, input, category, limit)
	}

	return nil, nil
}

func postNormalize(t *testing.T, h *NormalizeHandler, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "http://test/v1/normalize", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	h.NormalizeJSON(rec, req)

	return rec
}

func TestNormalizeHandler_NormalizeJSON(t *testing.T) {
	t.Run("returns both candidates and gap decision", func(t *testing.T) {
		var gotInput string

		var gotCategory datatypes.Category

		mock := &mockNormalizer{
			queryFunc: func(_ context.Context, input string, category datatypes.Category) (models.Match, error) {
				gotInput, gotCategory = input, category

				return models.Match{
					Top1: &models.Candidate{Value: "누유", Score: 0.912},
					Top2: &models.Candidate{Value: "유출", Score: 0.905},
				}, nil
			},
		}
		h := NewNormalizeHandler(mock, 0.01)

		rec := postNormalize(t, h, `{"input":"  기름 샘 ","category":"현상코드"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "기름 샘", gotInput)
		assert.Equal(t, datatypes.PhenomenonCode, gotCategory)

		var resp NormalizeResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, datatypes.PhenomenonCode, resp.Category)
		assert.Equal(t, "q:기름 샘", resp.QueryText)
		require.NotNil(t, resp.Top1)
		assert.Equal(t, "누유", resp.Top1.Value)
		require.NotNil(t, resp.Top2)
		assert.True(t, resp.Top2Evaluated)
		assert.InDelta(t, 0.01, resp.ScoreGapThreshold, 1e-9)
	})

	t.Run("wide gap is not evaluated", func(t *testing.T) {
		mock := &mockNormalizer{
			queryFunc: func(context.Context, string, datatypes.Category) (models.Match, error) {
				return models.Match{
					Top1: &models.Candidate{Value: "긴급", Score: 0.95},
					Top2: &models.Candidate{Value: "보통", Score: 0.88},
				}, nil
			},
		}

		rec := postNormalize(t, NewNormalizeHandler(mock, 0.01), `{"input":"urgent","category":"priority"}`)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp NormalizeResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.False(t, resp.Top2Evaluated)
		assert.NotNil(t, resp.Top2)
	})

	t.Run("empty result returns null candidates", func(t *testing.T) {
		rec := postNormalize(t, NewNormalizeHandler(&mockNormalizer{}, 0.01), `{"input":"x","category":"location"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"top1":null`)
		assert.Contains(t, rec.Body.String(), `"top2_evaluated":false`)
	})

	t.Run("unknown category returns 400 with details", func(t *testing.T) {
		called := false
		mock := &mockNormalizer{
			queryFunc: func(context.Context, string, datatypes.Category) (models.Match, error) {
				called = true

				return models.Match{}, nil
			},
		}

		rec := postNormalize(t, NewNormalizeHandler(mock, 0.01), `{"input":"PUMP","category":"equipment"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, called)
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Body.String(), "must be one of")
	})

	t.Run("blank input returns 400", func(t *testing.T) {
		rec := postNormalize(t, NewNormalizeHandler(&mockNormalizer{}, 0.01), `{"input":"   ","category":"location"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "non-empty")
	})

	t.Run("unknown field returns 400", func(t *testing.T) {
		rec := postNormalize(t, NewNormalizeHandler(&mockNormalizer{}, 0.01), `{"input":"x","category":"location","topK":3}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing index returns 503", func(t *testing.T) {
		mock := &mockNormalizer{
			queryFunc: func(context.Context, string, datatypes.Category) (models.Match, error) {
				return models.Match{}, normerrors.NewNotFoundError("collection", "collection dic_table not found")
			},
		}

		rec := postNormalize(t, NewNormalizeHandler(mock, 0.01), `{"input":"x","category":"location"}`)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("embedding failure returns 500", func(t *testing.T) {
		mock := &mockNormalizer{
			queryFunc: func(context.Context, string, datatypes.Category) (models.Match, error) {
				return models.Match{}, errors.New("create embedding: connection refused")
			},
		}

		rec := postNormalize(t, NewNormalizeHandler(mock, 0.01), `{"input":"x","category":"location"}`)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "connection refused")
	})
}

func TestNormalizeHandler_NormalizeQuery(t *testing.T) {
	t.Run("query parameters with korean label", func(t *testing.T) {
		var gotCategory datatypes.Category

		mock := &mockNormalizer{
			queryFunc: func(_ context.Context, _ string, category datatypes.Category) (models.Match, error) {
				gotCategory = category

				return models.Match{Top1: &models.Candidate{Value: "B동 옥상", Score: 0.99}}, nil
			},
		}

		req := httptest.NewRequest(http.MethodGet, "http://test/v1/normalize?input=B%EB%8F%99+%EC%98%A5%EC%83%81&category=%EC%9C%84%EC%B9%98", nil)
		rec := httptest.NewRecorder()

		NewNormalizeHandler(mock, 0.01).NormalizeQuery(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, datatypes.Location, gotCategory)
		assert.Contains(t, rec.Body.String(), "B동 옥상")
	})

	t.Run("missing input returns validation problem", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://test/v1/normalize?category=location", nil)
		rec := httptest.NewRecorder()

		NewNormalizeHandler(&mockNormalizer{}, 0.01).NormalizeQuery(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Validation Error")
		assert.Contains(t, rec.Body.String(), "input is required")
	})
}

func TestNormalizeHandler_Candidates(t *testing.T) {
	t.Run("default limit and ranked output", func(t *testing.T) {
		var gotLimit int

		mock := &mockNormalizer{
			searchFunc: func(_ context.Context, _ string, _ datatypes.Category, limit int) ([]vectorstore.Hit, error) {
				gotLimit = limit

				return []vectorstore.Hit{
					{Category: datatypes.EquipmentType, Value: "PUMP-01", Score: 0.97},
					{Category: datatypes.EquipmentType, Value: "PUMP-02", Score: 0.91},
				}, nil
			},
		}

		req := httptest.NewRequest(http.MethodGet, "http://test/v1/candidates?input=pump&category=equipment_type", nil)
		rec := httptest.NewRecorder()

		NewNormalizeHandler(mock, 0.01).Candidates(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, defaultCandidateLimit, gotLimit)

		var resp CandidatesResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.Len(t, resp.Candidates, 2)
		assert.Equal(t, "PUMP-01", resp.Candidates[0].Value)
	})

	t.Run("limit above maximum is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://test/v1/candidates?input=pump&category=equipment_type&limit=500", nil)
		rec := httptest.NewRecorder()

		NewNormalizeHandler(&mockNormalizer{}, 0.01).Candidates(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("non numeric limit is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://test/v1/candidates?input=pump&category=equipment_type&limit=many", nil)
		rec := httptest.NewRecorder()

		NewNormalizeHandler(&mockNormalizer{}, 0.01).Candidates(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHealthHandler(t *testing.T) {
	t.Run("health is always ok", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewHealthHandler(nil).Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "OK", rec.Body.String())
	})

	t.Run("ready reports failing check", func(t *testing.T) {
		h := NewHealthHandler(func(context.Context) error { return errors.New("collection missing") })
		rec := httptest.NewRecorder()
		h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
