package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/avvvet/scratch-services/internal/cardsvc/models"
	"github.com/avvvet/scratch-services/internal/cardsvc/service"
	"github.com/avvvet/scratch-services/internal/cardsvc/store"
	"github.com/avvvet/scratch-services/internal/comm"
	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct {
	mu    sync.Mutex
	value int64
	err   error
}

func (f *stubVerifier) Verify(ctx context.Context, code string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.err
}

// envelope mirrors Response with raw data so tests can decode per type
type envelope struct {
	Message string          `json:"message"`
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestRouter(fv *stubVerifier) *chi.Mux {
	hs := store.NewHistoryStore()
	cardService := service.NewCardService(hs, fv, 10*time.Millisecond)
	h := NewHandler(cardService)

	r := chi.NewRouter()
	h.SetRoutes(r)
	return r
}

func doRequest(t *testing.T, r *chi.Mux, method, path string) envelope {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestGetCardFresh(t *testing.T) {
	r := newTestRouter(&stubVerifier{})

	env := doRequest(t, r, http.MethodGet, "/v1/card")
	require.Equal(t, http.StatusOK, env.Code)

	var data comm.CardData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, models.StateUnscratched, data.Card.State)
	assert.Empty(t, data.Card.Code)
	assert.False(t, data.Activating)
	assert.Empty(t, data.Error)
}

func TestActivateWithoutCode(t *testing.T) {
	r := newTestRouter(&stubVerifier{})

	env := doRequest(t, r, http.MethodPost, "/v1/card/activate")
	assert.Equal(t, http.StatusBadRequest, env.Code)
	assert.NotEmpty(t, env.Error)
}

func TestScratchThenActivateFlow(t *testing.T) {
	r := newTestRouter(&stubVerifier{value: 287028})

	env := doRequest(t, r, http.MethodPost, "/v1/card/scratch")
	require.Equal(t, http.StatusOK, env.Code)

	var transition comm.TransitionData
	require.NoError(t, json.Unmarshal(env.Data, &transition))
	assert.Equal(t, models.StateScratched, transition.Card.State)
	require.NotEmpty(t, transition.Card.Code)

	env = doRequest(t, r, http.MethodPost, "/v1/card/activate")
	require.Equal(t, http.StatusOK, env.Code)
	assert.Empty(t, env.Error)

	var data comm.CardData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, models.StateActivated, data.Card.State)
	assert.Equal(t, transition.Card.Code, data.Card.Code)

	env = doRequest(t, r, http.MethodGet, "/v1/history")
	require.Equal(t, http.StatusOK, env.Code)

	var history comm.HistoryData
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history.Entries, 2)
	assert.Equal(t, models.StateActivated, history.Entries[0].State)
	assert.Equal(t, models.StateScratched, history.Entries[1].State)
}

func TestActivateFailureSurfacesMessage(t *testing.T) {
	r := newTestRouter(&stubVerifier{value: 250000})

	env := doRequest(t, r, http.MethodPost, "/v1/card/scratch")
	require.Equal(t, http.StatusOK, env.Code)

	env = doRequest(t, r, http.MethodPost, "/v1/card/activate")
	require.Equal(t, http.StatusOK, env.Code)
	assert.NotEmpty(t, env.Error)

	var data comm.CardData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, models.StateScratched, data.Card.State)
	assert.NotEmpty(t, data.Error)

	// history unchanged by the failed activation
	env = doRequest(t, r, http.MethodGet, "/v1/history")
	var history comm.HistoryData
	require.NoError(t, json.Unmarshal(env.Data, &history))
	assert.Len(t, history.Entries, 1)

	// dismiss the surfaced message
	env = doRequest(t, r, http.MethodPost, "/v1/card/error/clear")
	require.Equal(t, http.StatusOK, env.Code)

	env = doRequest(t, r, http.MethodGet, "/v1/card")
	var cleared comm.CardData
	require.NoError(t, json.Unmarshal(env.Data, &cleared))
	assert.Empty(t, cleared.Error)
}

func TestCancelWithNothingPending(t *testing.T) {
	r := newTestRouter(&stubVerifier{})

	env := doRequest(t, r, http.MethodPost, "/v1/card/scratch/cancel")
	require.Equal(t, http.StatusOK, env.Code)

	var res comm.Res
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.False(t, res.Status)
}

func TestHealth(t *testing.T) {
	r := newTestRouter(&stubVerifier{})

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
