package webserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagegate/stagegate/internal/pipeline"
	"github.com/stagegate/stagegate/internal/reconcile"
)

// stubProcessor records processed ids and returns a canned evaluation.
type stubProcessor struct {
	processed []int64
	err       error
}

func (s *stubProcessor) ProcessOne(_ context.Context, cardID int64) (pipeline.Evaluation, error) {
	s.processed = append(s.processed, cardID)
	if s.err != nil {
		return pipeline.Evaluation{}, s.err
	}
	return pipeline.Evaluation{
		QualityTier:   "Gold",
		ContentType:   "Mass",
		PresenterTier: "Headliner",
		ReachTier:     "For everyone",
	}, nil
}

func newTestServer(t *testing.T, proc *stubProcessor) http.Handler {
	t.Helper()
	srv, err := New(Config{Port: 0, Processor: proc})
	require.NoError(t, err)
	return srv.Handler()
}

func TestNewRequiresProcessor(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestServer(t, &stubProcessor{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestWebhookProcessesCard(t *testing.T) {
	proc := &stubProcessor{}
	handler := newTestServer(t, proc)

	payload := `{"event": "card_update", "data": {"old": {"id": 59682997}}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook/kaiten", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{59682997}, proc.processed)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "processed", body["status"])
	assert.Equal(t, "Gold", body["quality_tier"])
}

func TestWebhookIgnoresUnrelatedEvents(t *testing.T) {
	proc := &stubProcessor{}
	handler := newTestServer(t, proc)

	payload := `{"event": "comment_created", "data": {"id": 59682997}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook/kaiten", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, proc.processed)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ignored", body["status"])
}

func TestWebhookMissingCardIDIsBadRequest(t *testing.T) {
	proc := &stubProcessor{}
	handler := newTestServer(t, proc)

	req := httptest.NewRequest(http.MethodPost, "/webhook/kaiten", strings.NewReader(`{"event": "card_update"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, proc.processed)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "card_id")
}

func TestWebhookFallsBackToQueryParam(t *testing.T) {
	proc := &stubProcessor{}
	handler := newTestServer(t, proc)

	req := httptest.NewRequest(http.MethodPost, "/webhook/kaiten?card_id=42", strings.NewReader(`{"event": "card_update"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{42}, proc.processed)
}

func TestWebhookRejectsInvalidJSON(t *testing.T) {
	handler := newTestServer(t, &stubProcessor{})

	req := httptest.NewRequest(http.MethodPost, "/webhook/kaiten", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookProcessingFailureIsServerError(t *testing.T) {
	proc := &stubProcessor{err: fmt.Errorf("upstream down")}
	handler := newTestServer(t, proc)

	req := httptest.NewRequest(http.MethodPost, "/webhook/kaiten", strings.NewReader(`{"id": 59682997}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWebhookNoWritableFieldsIsSkipped(t *testing.T) {
	proc := &stubProcessor{err: fmt.Errorf("card 1: %w", reconcile.ErrNoWritableFields)}
	handler := newTestServer(t, proc)

	req := httptest.NewRequest(http.MethodPost, "/webhook/kaiten", strings.NewReader(`{"id": 59682997}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "skipped", body["status"])
}

func TestProcessCardEndpoint(t *testing.T) {
	proc := &stubProcessor{}
	handler := newTestServer(t, proc)

	req := httptest.NewRequest(http.MethodPost, "/process/card/12345", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{12345}, proc.processed)
}

func TestProcessCardRejectsBadID(t *testing.T) {
	proc := &stubProcessor{}
	handler := newTestServer(t, proc)

	for _, id := range []string{"abc", "-5", "0"} {
		req := httptest.NewRequest(http.MethodPost, "/process/card/"+id, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "id %q", id)
	}
	assert.Empty(t, proc.processed)
}
