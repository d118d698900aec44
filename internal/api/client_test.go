package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannvm/impactlens/internal/auth"
	"github.com/tuannvm/impactlens/internal/models"
)

type recorded struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

type fakeBackend struct {
	mu       sync.Mutex
	requests []recorded
	router   chi.Router
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	fb := &fakeBackend{router: chi.NewRouter()}
	fb.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			fb.mu.Lock()
			fb.requests = append(fb.requests, recorded{
				Method: r.Method,
				Path:   r.URL.Path,
				Query:  r.URL.RawQuery,
				Header: r.Header.Clone(),
				Body:   body,
			})
			fb.mu.Unlock()
			next.ServeHTTP(w, r)
		})
	})
	srv := httptest.NewServer(fb.router)
	t.Cleanup(srv.Close)
	return fb, srv
}

func (fb *fakeBackend) last(t *testing.T) recorded {
	t.Helper()
	fb.mu.Lock()
	defer fb.mu.Unlock()
	require.NotEmpty(t, fb.requests, "no request reached the backend")
	return fb.requests[len(fb.requests)-1]
}

func (fb *fakeBackend) count() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return len(fb.requests)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type recordingNavigator struct {
	routes []string
}

func (n *recordingNavigator) Navigate(route string) { n.routes = append(n.routes, route) }

func TestAnalyzeSendsDefaultRequest(t *testing.T) {
	fb, srv := newFakeBackend(t)
	fb.router.Post("/api/analysis/analyze", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"id":       "a-1",
			"ticketId": "PROJ-123",
			"status":   "completed",
			"report":   map[string]interface{}{"summary": "Touches billing"},
		})
	})

	client := New(Config{BaseURL: srv.URL + "/"}, WithTokenStore(auth.NewMemoryStore("tok-1")))
	resp, err := client.Analyze(context.Background(), models.AnalysisRequest{TicketID: "PROJ-123", Options: models.DefaultOptions()})
	require.NoError(t, err)
	require.NotNil(t, resp.Report)
	assert.Equal(t, "Touches billing", resp.Report.Summary)

	require.Equal(t, 1, fb.count(), "exactly one request per analysis")
	req := fb.last(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "Bearer tok-1", req.Header.Get("Authorization"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.NotEmpty(t, req.Header.Get("X-Request-ID"))
	assert.JSONEq(t, `{"ticketId":"PROJ-123","options":{"includeComments":true,"includeAttachments":false,"analysisDepth":"detailed","maxRelatedTickets":20,"minRelevanceScore":0.3}}`, string(req.Body))
}

func TestNoTokenMeansNoAuthorizationHeader(t *testing.T) {
	fb, srv := newFakeBackend(t)
	fb.router.Get("/api/analysis/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Analysis service is healthy"))
	})

	client := New(Config{BaseURL: srv.URL})
	msg, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Analysis service is healthy", msg)
	assert.Empty(t, fb.last(t).Header.Get("Authorization"))
	assert.Empty(t, fb.last(t).Header.Get("Content-Type"), "bodyless requests carry no content type")
}

func TestUnauthorizedClearsTokenAndNavigates(t *testing.T) {
	fb, srv := newFakeBackend(t)
	fb.router.Get("/api/analysis/status/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token expired"})
	})

	store := auth.NewMemoryStore("stale")
	nav := &recordingNavigator{}
	client := New(Config{BaseURL: srv.URL}, WithTokenStore(store), WithNavigator(nav))

	_, err := client.Status(context.Background(), "a-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))

	token, _ := store.Token()
	assert.Empty(t, token)
	assert.Equal(t, []string{LoginRoute}, nav.routes)
}

func TestServerErrorPropagatesMessage(t *testing.T) {
	fb, srv := newFakeBackend(t)
	fb.router.Post("/api/analysis/analyze", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Jira is unreachable"})
	})

	nav := &recordingNavigator{}
	client := New(Config{BaseURL: srv.URL}, WithNavigator(nav))
	_, err := client.Analyze(context.Background(), models.AnalysisRequest{TicketID: "PROJ-1", Options: models.DefaultOptions()})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "Jira is unreachable", ErrorMessage(err))
	assert.Empty(t, nav.routes, "only 401 navigates")
}

func TestServerErrorWithoutMessage(t *testing.T) {
	fb, srv := newFakeBackend(t)
	fb.router.Post("/api/analysis/analyze", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	client := New(Config{BaseURL: srv.URL})
	_, err := client.Analyze(context.Background(), models.AnalysisRequest{TicketID: "PROJ-1", Options: models.DefaultOptions()})
	require.Error(t, err)
	assert.Equal(t, "Request failed with status code 500", ErrorMessage(err))
}

func TestHistoryQueryAndShapes(t *testing.T) {
	fb, srv := newFakeBackend(t)
	var paged atomic.Bool
	fb.router.Get("/api/analysis/history", func(w http.ResponseWriter, r *http.Request) {
		items := []map[string]string{{"id": "1", "ticketId": "PROJ-1", "status": "completed"}}
		if paged.Load() {
			writeJSON(w, http.StatusOK, map[string]interface{}{"content": items, "totalElements": 1})
			return
		}
		writeJSON(w, http.StatusOK, items)
	})

	client := New(Config{BaseURL: srv.URL})
	items, err := client.History(context.Background(), 2, 20)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "PROJ-1", items[0].TicketID)
	assert.Equal(t, "page=2&size=20", fb.last(t).Query)

	paged.Store(true)
	items, err = client.History(context.Background(), -1, 20)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "page=0&size=20", fb.last(t).Query)
}

func TestDeleteAndCache(t *testing.T) {
	fb, srv := newFakeBackend(t)
	fb.router.Delete("/api/analysis/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "a-9", chi.URLParam(r, "id"))
		w.WriteHeader(http.StatusNoContent)
	})
	fb.router.Get("/api/cache/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"entries": 3})
	})
	fb.router.Delete("/api/cache/clear", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, "All caches cleared")
	})

	client := New(Config{BaseURL: srv.URL})
	require.NoError(t, client.Delete(context.Background(), "a-9"))

	status, err := client.CacheStatus(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, status["entries"])

	msg, err := client.ClearCache(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "All caches cleared", msg)

	assert.Error(t, client.Delete(context.Background(), ""))
}

func TestTransportErrorAndCancellation(t *testing.T) {
	fb, srv := newFakeBackend(t)
	fb.router.Get("/api/analysis/health", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	client := New(Config{BaseURL: srv.URL})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Health(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestErrorMessageFallbacks(t *testing.T) {
	assert.Equal(t, "", ErrorMessage(nil))
	assert.Equal(t, "boom", ErrorMessage(errors.New("boom")))
	assert.Equal(t, DefaultErrorMessage, ErrorMessage(errors.New("  ")))
	assert.Equal(t, "nested", ErrorMessage(&APIError{StatusCode: 400, Message: "nested"}))
}

func TestServerMessageShapes(t *testing.T) {
	assert.Equal(t, "a", serverMessage([]byte(`{"message":"a"}`)))
	assert.Equal(t, "b", serverMessage([]byte(`{"error":"b"}`)))
	assert.Equal(t, "c", serverMessage([]byte(`{"error":{"message":"c"}}`)))
	assert.Equal(t, "", serverMessage([]byte(`<html>oops</html>`)))
	assert.Equal(t, "", serverMessage(nil))
}

func TestServerMessageIsVerbatim(t *testing.T) {
	assert.Equal(t, "  Ticket PROJ-1 is locked\n", serverMessage([]byte(`{"message":"  Ticket PROJ-1 is locked\n"}`)))
	assert.Equal(t, " b ", serverMessage([]byte(`{"error":" b "}`)))
	assert.Equal(t, "c\t", serverMessage([]byte(`{"error":{"message":"c\t"}}`)))
	assert.Equal(t, "fallback", serverMessage([]byte(`{"message":"   ","error":"fallback"}`)))
	assert.Equal(t, "", serverMessage([]byte(`{"error":"  "}`)))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(&APIError{StatusCode: 404}))
	assert.False(t, IsNotFound(errors.New("x")))
}
