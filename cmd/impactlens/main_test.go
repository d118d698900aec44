package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	log "github.com/tuannvm/impactlens/internal/logging"
	"github.com/tuannvm/impactlens/internal/models"
	"github.com/tuannvm/impactlens/internal/render"
)

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// backend is a fake analysis service that records what it was sent.
type backend struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   [][]byte
	server   *httptest.Server
}

func newBackend(t *testing.T, routes func(r chi.Router)) *backend {
	t.Helper()
	b := &backend{}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			body, _ := io.ReadAll(req.Body)
			req.Body = io.NopCloser(bytes.NewReader(body))
			b.mu.Lock()
			b.requests = append(b.requests, req.Clone(context.Background()))
			b.bodies = append(b.bodies, body)
			b.mu.Unlock()
			next.ServeHTTP(w, req)
		})
	})
	routes(r)
	b.server = httptest.NewServer(r)
	t.Cleanup(b.server.Close)
	return b
}

func (b *backend) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

func (b *backend) last() (*http.Request, []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests[len(b.requests)-1], b.bodies[len(b.bodies)-1]
}

type result struct {
	code   int
	stdout string
	stderr string
}

// isolate points config, token and log locations at a temp dir and returns
// the token file path.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	tokenFile := filepath.Join(dir, "token")
	t.Setenv("IMPACTLENS_AUTH_TOKEN_FILE", tokenFile)
	t.Setenv("IMPACTLENS_API_BASE_URL", "")
	return tokenFile
}

func run(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return result{
		code:   code,
		stdout: ansi.ReplaceAllString(stdout.String(), ""),
		stderr: ansi.ReplaceAllString(stderr.String(), ""),
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestAnalyzePrintsReport(t *testing.T) {
	tokenFile := isolate(t)
	require.NoError(t, os.WriteFile(tokenFile, []byte("secret\n"), 0o600))

	b := newBackend(t, func(r chi.Router) {
		r.Post("/api/analysis/analyze", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, models.AnalysisResponse{
				ID:       "a-1",
				TicketID: "PROJ-123",
				Status:   models.StatusCompleted,
				Report: &models.Report{
					Summary: "Checkout latency affects payments",
					RelatedTickets: []models.RelatedTicket{
						{TicketKey: "PROJ-7", Summary: "Payment retries", Severity: "high", RelevanceScore: 0.875},
					},
				},
				Metadata: &models.Metadata{ProcessingTime: 1200, TicketsAnalyzed: 4},
			})
		})
	})

	res := run(t, "", "--base-url", b.server.URL, "analyze", "PROJ-123", "--depth", "basic", "--max-related", "5")
	require.Equal(t, 0, res.code, res.stderr)

	assert.Contains(t, res.stdout, "Checkout latency affects payments")
	assert.Contains(t, res.stdout, "PROJ-7")
	assert.Contains(t, res.stdout, "87.5%")
	assert.Contains(t, res.stdout, "1200ms")

	req, body := b.last()
	assert.Equal(t, "Bearer secret", req.Header.Get("Authorization"))

	var sent models.AnalysisRequest
	require.NoError(t, json.Unmarshal(body, &sent))
	want := models.DefaultOptions()
	want.AnalysisDepth = models.DepthBasic
	want.MaxRelatedTickets = 5
	assert.Equal(t, models.AnalysisRequest{TicketID: "PROJ-123", Options: want}, sent)
}

func TestAnalyzeJSONOutput(t *testing.T) {
	isolate(t)
	b := newBackend(t, func(r chi.Router) {
		r.Post("/api/analysis/analyze", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, models.AnalysisResponse{ID: "a-2", TicketID: "OPS-9", Status: models.StatusCompleted})
		})
	})

	res := run(t, "", "--base-url", b.server.URL, "-o", "json", "analyze", "OPS-9")
	require.Equal(t, 0, res.code, res.stderr)

	var got models.AnalysisResponse
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &got))
	assert.Equal(t, "a-2", got.ID)
	assert.Equal(t, "OPS-9", got.TicketID)

	req, _ := b.last()
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestAnalyzeRejectsInvalidInputWithoutRequest(t *testing.T) {
	isolate(t)
	b := newBackend(t, func(r chi.Router) {})

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"lowercase ticket", []string{"analyze", "proj-1"}, models.TicketIDFormatMessage},
		{"max related too high", []string{"analyze", "PROJ-1", "--max-related", "51"}, "Max related tickets must be between 1 and 50"},
		{"relevance out of range", []string{"analyze", "PROJ-1", "--min-relevance", "1.5"}, "Min relevance score must be between 0 and 1"},
		{"relevance not a number", []string{"analyze", "PROJ-1", "--min-relevance", "NaN"}, "Min relevance score must be between 0 and 1"},
		{"unknown depth", []string{"analyze", "PROJ-1", "--depth", "deep"}, "Analysis depth must be one of"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, "", append([]string{"--base-url", b.server.URL}, tt.args...)...)
			assert.Equal(t, 1, res.code)
			assert.Contains(t, res.stderr, tt.want)
		})
	}
	assert.Zero(t, b.count())
}

func TestAnalyzeServerErrorShowsBanner(t *testing.T) {
	isolate(t)
	b := newBackend(t, func(r chi.Router) {
		r.Post("/api/analysis/analyze", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusBadGateway, map[string]string{"message": "Jira is unreachable"})
		})
	})

	res := run(t, "", "--base-url", b.server.URL, "analyze", "PROJ-1")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "Analysis Error")
	assert.Contains(t, res.stderr, "Jira is unreachable")
	assert.NotContains(t, res.stderr, "Error: ")
	assert.Empty(t, res.stdout)
}

func TestUnauthorizedClearsTokenAndAsksForLogin(t *testing.T) {
	tokenFile := isolate(t)
	require.NoError(t, os.WriteFile(tokenFile, []byte("stale"), 0o600))

	b := newBackend(t, func(r chi.Router) {
		r.Get("/api/analysis/history", func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
	})

	res := run(t, "", "--base-url", b.server.URL, "history")
	assert.Equal(t, 1, res.code)
	assert.Equal(t, SessionExpiredMessage+"\n", res.stderr)

	_, err := os.Stat(tokenFile)
	assert.True(t, os.IsNotExist(err), "token file should be removed")
}

func TestHistoryPaging(t *testing.T) {
	isolate(t)
	b := newBackend(t, func(r chi.Router) {
		r.Get("/api/analysis/history", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, []models.AnalysisResponse{
				{ID: "h-1", TicketID: "PROJ-1", Status: models.StatusCompleted, Report: &models.Report{Summary: "Low impact"}},
				{ID: "h-2", TicketID: "PROJ-2", Status: models.StatusFailed},
			})
		})
	})

	res := run(t, "", "--base-url", b.server.URL, "history", "--page", "2")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "PROJ-1")
	assert.Contains(t, res.stdout, "Low impact")
	assert.Contains(t, res.stdout, render.FallbackNoSummary)

	req, _ := b.last()
	assert.Equal(t, "2", req.URL.Query().Get("page"))
	assert.Equal(t, "20", req.URL.Query().Get("size"))
}

func TestHistoryEmptyAsYAML(t *testing.T) {
	isolate(t)
	b := newBackend(t, func(r chi.Router) {
		r.Get("/api/analysis/history", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]interface{}{"content": []interface{}{}})
		})
	})

	res := run(t, "", "--base-url", b.server.URL, "history")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, render.EmptyHistory)

	res = run(t, "", "--base-url", b.server.URL, "-o", "yaml", "history")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "[]\n", res.stdout)
}

func TestHistoryFailure(t *testing.T) {
	isolate(t)
	b := newBackend(t, func(r chi.Router) {
		r.Get("/api/analysis/history", func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
	})

	res := run(t, "", "--base-url", b.server.URL, "history")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, render.HistoryLoadFailed)
	assert.Contains(t, res.stderr, "Request failed with status code 500")
}

func TestStatusDeleteAndHealth(t *testing.T) {
	isolate(t)
	b := newBackend(t, func(r chi.Router) {
		r.Get("/api/analysis/status/{id}", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, models.AnalysisResponse{ID: chi.URLParam(req, "id"), TicketID: "PROJ-5", Status: models.StatusCompleted})
		})
		r.Delete("/api/analysis/{id}", func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
		r.Get("/api/analysis/health", func(w http.ResponseWriter, req *http.Request) {
			_, _ = w.Write([]byte("Analysis service is healthy"))
		})
	})

	res := run(t, "", "--base-url", b.server.URL, "status", "s-1")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "PROJ-5")
	assert.Contains(t, res.stdout, render.FallbackSummary)

	res = run(t, "", "--base-url", b.server.URL, "delete", "s-1")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "Deleted analysis s-1\n", res.stdout)
	req, _ := b.last()
	assert.Equal(t, http.MethodDelete, req.Method)
	assert.Equal(t, "/api/analysis/s-1", req.URL.Path)

	res = run(t, "", "--base-url", b.server.URL, "health")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Analysis service is healthy")
	assert.Contains(t, res.stdout, b.server.URL)
}

func TestStatusNotFound(t *testing.T) {
	isolate(t)
	b := newBackend(t, func(r chi.Router) {
		r.Get("/api/analysis/status/{id}", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Analysis not found"})
		})
	})

	res := run(t, "", "--base-url", b.server.URL, "status", "missing")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "Analysis not found")
}

func TestCacheCommands(t *testing.T) {
	isolate(t)
	b := newBackend(t, func(r chi.Router) {
		r.Get("/api/cache/status", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]interface{}{"size": 3, "hits": 10})
		})
		r.Delete("/api/cache/clear", func(w http.ResponseWriter, req *http.Request) {
			_, _ = w.Write([]byte("All caches cleared"))
		})
	})

	res := run(t, "", "--base-url", b.server.URL, "cache", "status")
	require.Equal(t, 0, res.code, res.stderr)
	hits := strings.Index(res.stdout, "hits:")
	size := strings.Index(res.stdout, "size:")
	require.True(t, hits >= 0 && size >= 0, res.stdout)
	assert.Less(t, hits, size, "keys are sorted")

	res = run(t, "", "--base-url", b.server.URL, "cache", "clear")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "All caches cleared\n", res.stdout)
}

func TestLoginStatusLogout(t *testing.T) {
	tokenFile := isolate(t)

	res := run(t, "", "auth", "status")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "not logged in")

	res = run(t, "opaque-token\n", "login")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Token saved to "+tokenFile)

	data, err := os.ReadFile(tokenFile)
	require.NoError(t, err)
	assert.Equal(t, "opaque-token", strings.TrimSpace(string(data)))

	res = run(t, "", "-o", "json", "auth", "status")
	require.Equal(t, 0, res.code, res.stderr)
	var status authStatus
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &status))
	assert.True(t, status.LoggedIn)
	require.NotNil(t, status.Claims)
	assert.False(t, status.Claims.IsJWT)

	res = run(t, "", "logout")
	require.Equal(t, 0, res.code, res.stderr)
	res = run(t, "", "-o", "json", "auth", "status")
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &status))
	assert.False(t, status.LoggedIn)
}

func TestLoginRequiresToken(t *testing.T) {
	isolate(t)
	res := run(t, "   \n", "login")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "token is required")
}

func TestOptionalIntegrationsReportMissingConfig(t *testing.T) {
	isolate(t)
	t.Setenv("IMPACTLENS_JIRA_BASE_URL", "")
	t.Setenv("IMPACTLENS_LLM_ENABLED", "false")

	res := run(t, "", "ticket", "PROJ-1")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "jira is not configured")

	res = run(t, "", "digest", "a-1")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "LLM digests are disabled")
}

func TestBadFlagsAndConfig(t *testing.T) {
	isolate(t)

	res := run(t, "", "-o", "xml", "health")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "unknown output format")

	res = run(t, "", "--base-url", "ftp://example.com", "health")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "scheme must be http or https")

	res = run(t, "", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "health")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "failed to read config")
}

func TestBaseURLFromEnvironment(t *testing.T) {
	isolate(t)
	b := newBackend(t, func(r chi.Router) {
		r.Get("/api/analysis/health", func(w http.ResponseWriter, req *http.Request) {
			_, _ = w.Write([]byte(`"Analysis service is healthy"`))
		})
	})
	t.Setenv("IMPACTLENS_API_BASE_URL", b.server.URL)

	res := run(t, "", "-o", "json", "health")
	require.Equal(t, 0, res.code, res.stderr)

	var status models.HealthStatus
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &status))
	assert.Equal(t, models.HealthStatus{BaseURL: b.server.URL, Message: "Analysis service is healthy"}, status)
}

func TestMachineReadableOutputSilencesLogs(t *testing.T) {
	isolate(t)

	res := run(t, "", "-o", "json", "auth", "status")
	require.Equal(t, 0, res.code, res.stderr)
	assert.False(t, log.Logger.Desugar().Core().Enabled(zapcore.ErrorLevel))

	res = run(t, "", "auth", "status")
	require.Equal(t, 0, res.code, res.stderr)
	assert.True(t, log.Logger.Desugar().Core().Enabled(zapcore.InfoLevel))

	res = run(t, "", "-o", "yaml", "--verbose", "auth", "status")
	require.Equal(t, 0, res.code, res.stderr)
	assert.True(t, log.Logger.Desugar().Core().Enabled(zapcore.DebugLevel))
}
