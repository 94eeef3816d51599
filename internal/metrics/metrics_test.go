package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reverseDesignAi/internal/extract"
	"reverseDesignAi/internal/llm"
)

func TestInstrumentLLMCountsOutcomes(t *testing.T) {
	m := New()
	fake := &llm.Fake{Replies: []llm.FakeReply{{Text: "ok"}, {Err: errors.New("503")}, {Text: ""}}}
	client := m.InstrumentLLM(fake, "openai")
	ctx := llm.WithOperation(context.Background(), "analyze")

	_, err := client.Complete(ctx, llm.Request{})
	require.NoError(t, err)
	_, err = client.Complete(ctx, llm.Request{})
	require.Error(t, err)
	_, err = client.Complete(ctx, llm.Request{})
	require.ErrorIs(t, err, llm.ErrEmptyCompletion)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.llmRequests.WithLabelValues("openai", "analyze", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.llmRequests.WithLabelValues("openai", "analyze", OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.llmRequests.WithLabelValues("openai", "analyze", OutcomeEmpty)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.llmDuration))
}

func TestExtractObserver(t *testing.T) {
	m := New()
	x := extract.Extractor{Observer: m.ExtractObserver()}

	_, err := x.ExtractSegments(`[{"theme": "A"}]`)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.extractStage.WithLabelValues(extract.StageNormalized, OutcomeOK)))
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New()
	m.InstrumentLLM(llm.NewFake("x"), "gemini").Complete(context.Background(), llm.Request{})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `llm_requests_total{operation="unknown",outcome="ok",provider="gemini"} 1`)
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, OutcomeCanceled, outcomeOf(context.DeadlineExceeded))
	assert.Equal(t, OutcomeOK, outcomeOf(nil))
}
