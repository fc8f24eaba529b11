package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/KoSuyeon/SKAI-project/internal/api/response"
	"github.com/KoSuyeon/SKAI-project/internal/datatypes"
	"github.com/KoSuyeon/SKAI-project/internal/models"
	"github.com/KoSuyeon/SKAI-project/internal/normerrors"
	"github.com/KoSuyeon/SKAI-project/internal/search"
	"github.com/KoSuyeon/SKAI-project/internal/validation"
	"github.com/KoSuyeon/SKAI-project/internal/vectorstore"
)

const (
	defaultCandidateLimit = 5
	maxCandidateLimit     = 50
)

// Normalizer resolves free-form input to canonical dictionary terms.
type Normalizer interface {
	QueryText(input string, category datatypes.Category) string
	Query(ctx context.Context, input string, category datatypes.Category) (models.Match, error)
	Search(ctx context.Context, input string, category datatypes.Category, limit int) ([]vectorstore.Hit, error)
}

// NormalizeRequest is the body of POST /v1/normalize and the query of GET /v1/normalize.
type NormalizeRequest struct {
	Input    string `json:"input"    form:"input"    validate:"required,no_null_bytes,max=512"`
	Category string `json:"category" form:"category" validate:"required,category"`
}

// CandidatesRequest is the query of GET /v1/candidates.
type CandidatesRequest struct {
	Input    string `form:"input"    validate:"required,no_null_bytes,max=512"`
	Category string `form:"category" validate:"required,category"`
	Limit    int    `form:"limit"    validate:"omitempty,gte=1,lte=50"`
}

// NormalizeResponse carries the two best candidates and whether the second one
// is close enough to the first to be considered.
type NormalizeResponse struct {
	Category          datatypes.Category `json:"category"`
	Input             string             `json:"input"`
	QueryText         string             `json:"query_text"`
	Top1              *models.Candidate  `json:"top1"`
	Top2              *models.Candidate  `json:"top2"`
	Top2Evaluated     bool               `json:"top2_evaluated"`
	ScoreGapThreshold float64            `json:"score_gap_threshold"`
	SearchTimeSec     float64            `json:"search_time_sec"`
}

// CandidatesResponse lists ranked candidates for one input.
type CandidatesResponse struct {
	Category   datatypes.Category `json:"category"`
	QueryText  string             `json:"query_text"`
	Candidates []models.Candidate `json:"candidates"`
}

// NormalizeHandler serves term normalization requests.
type NormalizeHandler struct {
	normalizer Normalizer
	threshold  float64
}

// NewNormalizeHandler creates a handler; threshold is the top-2 score gap.
func NewNormalizeHandler(normalizer Normalizer, threshold float64) *NormalizeHandler {
	return &NormalizeHandler{normalizer: normalizer, threshold: threshold}
}

// NormalizeJSON handles POST /v1/normalize.
func (h *NormalizeHandler) NormalizeJSON(w http.ResponseWriter, r *http.Request) {
	var req NormalizeRequest

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		response.RespondBadRequest(w, "Invalid request body")

		return
	}

	if err := validation.ValidateStruct(&req); err != nil {
		validation.RespondValidationError(w, err)

		return
	}

	h.normalize(w, r, req)
}

// NormalizeQuery handles GET /v1/normalize?input=...&category=....
func (h *NormalizeHandler) NormalizeQuery(w http.ResponseWriter, r *http.Request) {
	var req NormalizeRequest

	if err := validation.ValidateAndDecodeQueryParams(r, &req); err != nil {
		if errors.Is(err, normerrors.ErrValidation) {
			validation.RespondValidationError(w, err)

			return
		}

		response.RespondBadRequest(w, "Invalid query parameters")

		return
	}

	h.normalize(w, r, req)
}

// Candidates handles GET /v1/candidates and returns up to limit ranked hits.
func (h *NormalizeHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	var req CandidatesRequest

	if err := validation.ValidateAndDecodeQueryParams(r, &req); err != nil {
		if errors.Is(err, normerrors.ErrValidation) {
			validation.RespondValidationError(w, err)

			return
		}

		response.RespondBadRequest(w, "Invalid query parameters")

		return
	}

	category, input, ok := parseInput(w, req.Category, req.Input)
	if !ok {
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultCandidateLimit
	}

	limit = min(limit, maxCandidateLimit)

	hits, err := h.normalizer.Search(r.Context(), input, category, limit)
	if err != nil {
		respondSearchError(w, r, err)

		return
	}

	candidates := make([]models.Candidate, 0, len(hits))
	for _, hit := range hits {
		candidates = append(candidates, *hit.Candidate())
	}

	response.RespondJSON(w, http.StatusOK, CandidatesResponse{
		Category:   category,
		QueryText:  h.normalizer.QueryText(input, category),
		Candidates: candidates,
	})
}

func (h *NormalizeHandler) normalize(w http.ResponseWriter, r *http.Request, req NormalizeRequest) {
	category, input, ok := parseInput(w, req.Category, req.Input)
	if !ok {
		return
	}

	start := time.Now()

	match, err := h.normalizer.Query(r.Context(), input, category)
	if err != nil {
		respondSearchError(w, r, err)

		return
	}

	response.RespondJSON(w, http.StatusOK, NormalizeResponse{
		Category:          category,
		Input:             input,
		QueryText:         h.normalizer.QueryText(input, category),
		Top1:              match.Top1,
		Top2:              match.Top2,
		Top2Evaluated:     search.Top2Evaluated(match, h.threshold),
		ScoreGapThreshold: h.threshold,
		SearchTimeSec:     math.Round(time.Since(start).Seconds()*10000) / 10000,
	})
}

// parseInput trims the input and resolves the category label; it writes a 400 and
// returns ok=false when either is unusable.
func parseInput(w http.ResponseWriter, rawCategory, rawInput string) (datatypes.Category, string, bool) {
	category, err := datatypes.ParseCategory(rawCategory)
	if err != nil {
		response.RespondBadRequest(w, "category must be one of: equipment_type, location, phenomenon_code, priority")

		return "", "", false
	}

	input := strings.TrimSpace(rawInput)
	if input == "" {
		response.RespondBadRequest(w, "input is required and must be non-empty")

		return "", "", false
	}

	return category, input, true
}

func respondSearchError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, normerrors.ErrNotFound) {
		response.RespondServiceUnavailable(w, "Term index has not been built")

		return
	}

	slog.ErrorContext(r.Context(), "normalize request failed", "error", err)
	response.RespondInternalServerError(w, "Normalization failed")
}
