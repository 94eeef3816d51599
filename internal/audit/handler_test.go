package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerRecent(t *testing.T) {
	log := NewMemoryLog(10)
	for _, op := range []string{OpAnalyze, OpSplit, OpGenerate} {
		_, err := log.Record(context.Background(), Entry{Operation: op, Success: true})
		require.NoError(t, err)
	}
	h := Handler{Log: log}

	rec := httptest.NewRecorder()
	h.Recent(rec, httptest.NewRequest(http.MethodGet, "/api/audit?limit=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Entries []Entry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Entries, 2)
	assert.Equal(t, OpGenerate, body.Entries[0].Operation)

	rec = httptest.NewRecorder()
	h.Recent(rec, httptest.NewRequest(http.MethodGet, "/api/audit?limit=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	Handler{Log: NewMemoryLog(1)}.Recent(rec, httptest.NewRequest(http.MethodGet, "/api/audit", nil))
	assert.JSONEq(t, `{"entries": []}`, rec.Body.String())
}
