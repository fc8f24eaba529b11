// Package response writes JSON bodies and RFC 7807 problem documents.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

const (
	contentTypeJSON    = "application/json"
	contentTypeProblem = "application/problem+json"
)

// FieldError points at one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// Problem is an RFC 7807 problem document.
type Problem struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// NewProblem returns a problem titled with the standard status text.
func NewProblem(status int, detail string) *Problem {
	return &Problem{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	}
}

// WithTitle overrides the status text title.
func (p *Problem) WithTitle(title string) *Problem {
	p.Title = title

	return p
}

// WithInstance records the request path the problem refers to.
func (p *Problem) WithInstance(path string) *Problem {
	p.Instance = path

	return p
}

// WithErrors attaches field errors.
func (p *Problem) WithErrors(errs ...FieldError) *Problem {
	p.Errors = append(p.Errors, errs...)

	return p
}

// Write sends the problem with its status code.
func (p *Problem) Write(w http.ResponseWriter) {
	write(w, p.Status, contentTypeProblem, p)
}

// RespondError writes a problem for status with the given detail.
func RespondError(w http.ResponseWriter, status int, detail string) {
	NewProblem(status, detail).Write(w)
}

func RespondBadRequest(w http.ResponseWriter, detail string) {
	RespondError(w, http.StatusBadRequest, detail)
}

func RespondNotFound(w http.ResponseWriter, detail string) {
	RespondError(w, http.StatusNotFound, detail)
}

func RespondMethodNotAllowed(w http.ResponseWriter, detail string) {
	RespondError(w, http.StatusMethodNotAllowed, detail)
}

func RespondInternalServerError(w http.ResponseWriter, detail string) {
	RespondError(w, http.StatusInternalServerError, detail)
}

// RespondServiceUnavailable is used while the index is missing or empty.
func RespondServiceUnavailable(w http.ResponseWriter, detail string) {
	RespondError(w, http.StatusServiceUnavailable, detail)
}

// RespondJSON writes data as a plain JSON body.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	write(w, status, contentTypeJSON, data)
}

func write(w http.ResponseWriter, status int, contentType string, body any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response body", "status", status, "error", err)
	}
}
