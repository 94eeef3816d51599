package design

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reverseDesignAi/internal/audit"
	"reverseDesignAi/internal/llm"
	"reverseDesignAi/internal/uploads"
)

func newTestRouter(client llm.Client) http.Handler {
	svc := NewService(
		StyleAnalyzer{Client: client},
		ThemeSplitter{Client: client},
		SVGRenderer{Client: client},
		1, nil, audit.NewMemoryLog(10), nil,
	)
	r := chi.NewRouter()
	r.Route("/api/reverse-design", Handler{Service: svc}.Routes)
	return r
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for name, contentType := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, uploads.FormField, name))
		h.Set("Content-Type", contentType)
		pw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = pw.Write([]byte("\x89PNG\r\n\x1a\n" + name))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHandlerWarmup(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(llm.NewFake("x")).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reverse-design/analyze", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok": true}`, rec.Body.String())
}

func TestHandlerAnalyze(t *testing.T) {
	body, contentType := multipartBody(t, map[string]string{"a.png": "image/png", "b.png": "image/png"})
	req := httptest.NewRequest(http.MethodPost, "/api/reverse-design/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	newTestRouter(llm.NewFake(`{"prompt": "soft pastel cards"}`)).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out := decodeBody(t, rec)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, float64(2), out["images"])
	assert.Equal(t, "fake", out["model"])
	assert.Equal(t, map[string]any{"prompt": "soft pastel cards"}, out["analysis"])
}

func TestHandlerAnalyzeValidation(t *testing.T) {
	router := newTestRouter(llm.NewFake(`{"prompt": "x"}`))

	body, contentType := multipartBody(t, map[string]string{"notes.txt": "text/plain"})
	req := httptest.NewRequest(http.MethodPost, "/api/reverse-design/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "not a valid image type")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/reverse-design/analyze", strings.NewReader("{}")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerAnalyzeParseFailure(t *testing.T) {
	body, contentType := multipartBody(t, map[string]string{"a.png": "image/png"})
	req := httptest.NewRequest(http.MethodPost, "/api/reverse-design/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	newTestRouter(llm.NewFake("{prompt: unfinished")).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	out := decodeBody(t, rec)
	assert.Equal(t, ErrParse.Error(), out["error"])
	assert.NotEmpty(t, out["details"])
	assert.Equal(t, "{prompt: unfinished", out["raw"])
}

func TestHandlerSplit(t *testing.T) {
	router := newTestRouter(llm.NewFake(`{"texts": [{"theme": "A", "content": "x"}]}`))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/reverse-design/text", strings.NewReader(`{"prompt": "split me"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success": true, "model": "fake", "segments": [{"theme": "A", "content": "x"}]}`, rec.Body.String())

	for _, body := range []string{`{"prompt": "  "}`, `not json`, `{"prompt": 3}`} {
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/reverse-design/text", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, ErrEmptyPrompt.Error(), decodeBody(t, rec)["error"])
	}
}

func TestHandlerGenerate(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(llm.NewFake("<svg></svg>")).ServeHTTP(rec,
		httptest.NewRequest(http.MethodPost, "/api/reverse-design/generate", strings.NewReader(`{"prompt": "a card"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeBody(t, rec)
	assert.Equal(t, "<svg></svg>", out["svg"])
	assert.Equal(t, "data:image/svg+xml;utf8,%3Csvg%3E%3C%2Fsvg%3E", out["image"])

	rec = httptest.NewRecorder()
	newTestRouter(llm.NewFake("no drawing")).ServeHTTP(rec,
		httptest.NewRequest(http.MethodPost, "/api/reverse-design/generate", strings.NewReader(`{"prompt": "a card"}`)))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, ErrInvalidSVG.Error(), decodeBody(t, rec)["error"])
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusFor(uploads.ErrTooLarge))
	assert.Equal(t, http.StatusBadRequest, StatusFor(&RequestError{Msg: "bad form"}))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(&ParseError{Err: errors.New("x")}))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(fmt.Errorf("wrap: %w", llm.ErrNotConfigured)))
	assert.Equal(t, http.StatusBadGateway, StatusFor(llm.ErrEmptyCompletion))
	assert.Equal(t, http.StatusBadGateway, StatusFor(errors.New("dial tcp: refused")))
}
