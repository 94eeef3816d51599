package design

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"reverseDesignAi/internal/llm"
	"reverseDesignAi/internal/uploads"
)

const (
	maxJSONBody      = 1 << 20
	maxMultipartBody = uploads.MaxFiles*uploads.MaxFileBytes + (1 << 20)
)

// Handler exposes the stateless reverse-design endpoints.
type Handler struct {
	Service *Service
	Logger  *zap.Logger
}

// Routes mounts the endpoints under the caller's prefix.
func (h Handler) Routes(r chi.Router) {
	r.Get("/analyze", h.Warmup)
	r.Post("/analyze", h.Analyze)
	r.Post("/text", h.Split)
	r.Post("/generate", h.Generate)
}

// Warmup handles GET /analyze, a cheap liveness probe for clients.
func (h Handler) Warmup(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Analyze handles multipart uploads of reference images.
func (h Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	images, err := ReadImages(w, r)
	if err != nil {
		h.fail(w, err)
		return
	}

	analysis, err := h.Service.Analyze(r.Context(), "", images)
	if err != nil {
		h.fail(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"images":   len(images),
		"model":    analysis.Model,
		"analysis": analysis.Fields,
		"message":  "Analysis complete, a reusable prompt template was generated",
	})
}

// Split handles {"prompt": "..."} and returns themed segments.
func (h Handler) Split(w http.ResponseWriter, r *http.Request) {
	prompt := ReadPrompt(w, r, "prompt")
	result, err := h.Service.Split(r.Context(), "", prompt)
	if err != nil {
		h.fail(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"model":    result.Model,
		"segments": result.Segments,
	})
}

// Generate handles {"prompt": "..."} and returns one SVG.
func (h Handler) Generate(w http.ResponseWriter, r *http.Request) {
	prompt := ReadPrompt(w, r, "prompt")
	img, err := h.Service.Render(r.Context(), "", prompt)
	if err != nil {
		h.fail(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"model":   img.Model,
		"image":   img.DataURL,
		"svg":     img.SVG,
	})
}

func (h Handler) fail(w http.ResponseWriter, err error) {
	status := WriteError(w, err)
	if status >= http.StatusInternalServerError && h.Logger != nil {
		h.Logger.Error("reverse design request failed", zap.Int("status", status), zap.Error(err))
	}
}

// ReadImages parses a multipart body and returns the validated images field.
func ReadImages(w http.ResponseWriter, r *http.Request) ([]uploads.Image, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBody)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, &RequestError{Msg: "could not parse form", Err: err}
	}
	defer r.MultipartForm.RemoveAll()
	return uploads.FromMultipart(r.MultipartForm, uploads.FormField)
}

// ReadPrompt decodes a JSON body and returns the trimmed string at field.
// A malformed body yields an empty prompt, like a missing field.
func ReadPrompt(w http.ResponseWriter, r *http.Request, field string) string {
	var body map[string]any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&body); err != nil {
		return ""
	}
	s, _ := body[field].(string)
	return strings.TrimSpace(s)
}

// RequestError is a client mistake detected before any model call.
type RequestError struct {
	Msg string
	Err error
}

func (e *RequestError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *RequestError) Unwrap() error { return e.Err }

// ErrorBody is the JSON shape of every failed response.
type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Raw     string `json:"raw,omitempty"`
}

// StatusFor maps design, upload and provider errors to HTTP status codes.
func StatusFor(err error) int {
	var reqErr *RequestError
	switch {
	case errors.As(err, &reqErr),
		errors.Is(err, ErrEmptyPrompt),
		errors.Is(err, uploads.ErrNoFiles),
		errors.Is(err, uploads.ErrTooManyFiles),
		errors.Is(err, uploads.ErrTooLarge),
		errors.Is(err, uploads.ErrNotImage),
		errors.Is(err, uploads.ErrEmptyFile):
		return http.StatusBadRequest
	case errors.Is(err, ErrParse), errors.Is(err, llm.ErrNotConfigured):
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

// WriteError writes err as an ErrorBody and returns the status used.
func WriteError(w http.ResponseWriter, err error) int {
	status := StatusFor(err)
	body := ErrorBody{Error: err.Error()}

	var parseErr *ParseError
	switch {
	case errors.As(err, &parseErr):
		body = ErrorBody{Error: ErrParse.Error(), Details: parseErr.Err.Error(), Raw: parseErr.Raw}
	case errors.Is(err, ErrInvalidSVG):
		body.Error = ErrInvalidSVG.Error()
	case errors.Is(err, llm.ErrEmptyCompletion):
		body = ErrorBody{Error: "the model returned no response, please retry", Details: err.Error()}
	case status == http.StatusBadGateway:
		body = ErrorBody{Error: "the model provider failed, please retry", Details: err.Error()}
	}
	WriteJSON(w, status, body)
	return status
}

// WriteJSON encodes payload with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
