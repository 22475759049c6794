package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediagate/internal/downloader"
	"mediagate/pkg/apikey"
	"mediagate/pkg/config"
	"mediagate/pkg/logger"
	"mediagate/pkg/progress"
	"mediagate/pkg/ratelimit"
	"mediagate/pkg/storage"
	"mediagate/pkg/youtube"
)

const channelPayload = `{"items":[{"id":"UC123","snippet":{"title":"Gophers","description":"All about Go",
"publishedAt":"2010-01-01T00:00:00Z","thumbnails":{"high":{"url":"https://img/high.jpg"}}},
"statistics":{"subscriberCount":"42","viewCount":"1000","videoCount":"7"},
"brandingSettings":{"image":{"bannerExternalUrl":"https://img/banner.jpg"}}}]}`

// recordingPool opens the hub topic like the real pool and remembers jobs
type recordingPool struct {
	mu   sync.Mutex
	hub  *progress.Hub
	jobs []downloader.Job
	err  error
}

func (p *recordingPool) Submit(job downloader.Job) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hub.Open(job.ID)
	p.jobs = append(p.jobs, job)
	return nil
}

type testEnv struct {
	server  *Server
	handler http.Handler
	pool    *recordingPool
	hub     *progress.Hub
	library *storage.Manager
	store   *ratelimit.MemoryStore
}

func newTestEnv(t *testing.T, mutate func(*config.ServerConfig)) *testEnv {
	t.Helper()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/channels") && r.URL.Query().Get("id") == "UC123":
			_, _ = w.Write([]byte(channelPayload))
		default:
			_, _ = w.Write([]byte(`{"items":[]}`))
		}
	}))
	t.Cleanup(upstream.Close)

	cfg := config.DefaultConfig()
	cfg.Server.CORSOrigins = []string{"https://app.example"}
	if mutate != nil {
		mutate(&cfg.Server)
	}

	store := ratelimit.NewMemoryStore()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := ratelimit.New(store, ratelimit.WithClock(func() time.Time { return now }))

	library, err := storage.NewManager(t.TempDir())
	require.NoError(t, err)
	hub := progress.NewHub(0)
	pool := &recordingPool{hub: hub}

	yt := youtube.NewClient(config.YouTubeConfig{
		APIKey:  "test-key",
		BaseURL: upstream.URL,
		Timeout: 5 * time.Second,
	}, logger.NewNopLogger())

	srv := New(cfg.Server, Deps{
		Limiter:  limiter,
		Channels: yt,
		Pool:     pool,
		Hub:      hub,
		Library:  library,
		Keys:     apikey.NewMemoryIssuer(),
	}, logger.NewNopLogger())
	srv.now = func() time.Time { return now }

	return &testEnv{server: srv, handler: srv.Handler(), pool: pool, hub: hub, library: library, store: store}
}

func (e *testEnv) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Detail
}

func TestRoot(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(http.MethodGet, "/", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"YouTube Channel Data API is Running!","status":"OK"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(http.MethodGet, "/health", "", map[string]string{RequestIDHeader: "abc-123"})
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestFetchChannelData(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(http.MethodPost, "/fetch_channel_data",
		`{"channel_url":"https://www.youtube.com/channel/UC123"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var ch youtube.Channel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ch))
	assert.Equal(t, "UC123", ch.ChannelID)
	assert.Equal(t, "Gophers", ch.Title)
	require.NotNil(t, ch.Thumbnail)
	assert.Equal(t, "https://img/high.jpg", *ch.Thumbnail)
	assert.Equal(t, "https://img/banner.jpg", ch.BannerURL)
	assert.Equal(t, "N/A", ch.Country)
	assert.Equal(t, "N/A", ch.CustomURL)
}

func TestFetchChannelDataErrors(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		body   string
		status int
		detail string
	}{
		{`{"channel_url":"https://vimeo.com/123"}`, http.StatusBadRequest, "Invalid URL format"},
		{`{"channel_url":"https://www.youtube.com/watch?v=abc"}`, http.StatusBadRequest, "Invalid channel URL"},
		{`{"channel_url":"https://www.youtube.com/channel/UCmissing"}`, http.StatusNotFound, "Channel not found"},
		{`not json`, http.StatusBadRequest, "Invalid request body"},
	}
	for _, tt := range tests {
		rec := env.do(http.MethodPost, "/fetch_channel_data", tt.body, map[string]string{
			"X-Forwarded-For": "ignored",
		})
		assert.Equal(t, tt.status, rec.Code, tt.body)
		assert.Equal(t, tt.detail, detail(t, rec), tt.body)
	}
}

func TestFetchChannelDataRateLimit(t *testing.T) {
	env := newTestEnv(t, nil)
	body := `{"channel_url":"https://www.youtube.com/channel/UC123"}`

	// malformed requests use quota too
	for i := 0; i < 4; i++ {
		rec := env.do(http.MethodPost, "/fetch_channel_data", "{", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}
	rec := env.do(http.MethodPost, "/fetch_channel_data", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPost, "/fetch_channel_data", body, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Rate limit exceeded. Try again after 24 hours.", detail(t, rec))
	assert.Equal(t, "86401", rec.Header().Get("Retry-After"))

	entry, ok, err := env.store.Get(context.Background(), "192.0.2.1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5, entry.Attempts)
}

func TestClientsAreLimitedSeparately(t *testing.T) {
	env := newTestEnv(t, func(c *config.ServerConfig) { c.TrustForwardedFor = true })
	body := `{"channel_url":"https://www.youtube.com/channel/UC123"}`

	for i := 0; i < 5; i++ {
		rec := env.do(http.MethodPost, "/fetch_channel_data", body, map[string]string{"X-Forwarded-For": "1.2.3.4"})
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := env.do(http.MethodPost, "/fetch_channel_data", body, map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = env.do(http.MethodPost, "/fetch_channel_data", body, map[string]string{"X-Forwarded-For": "5.6.7.8"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDownload(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/download", `{"url":"https://example.com/reel/abc/"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Unsupported Instagram URL", detail(t, rec))

	_, charged, err := env.store.Get(context.Background(), "192.0.2.1")
	require.NoError(t, err)
	assert.False(t, charged, "unsupported URLs must not use quota")

	rec = env.do(http.MethodPost, "/download", `{"url":"instagram.com/reel/abc/?igsh=xyz"}`, nil)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp downloadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "reel", resp.Kind)
	assert.NotEmpty(t, resp.DownloadID)

	require.Len(t, env.pool.jobs, 1)
	assert.Equal(t, resp.DownloadID, env.pool.jobs[0].ID)
	assert.Equal(t, "https://instagram.com/reel/abc/", env.pool.jobs[0].URL)
	assert.True(t, env.hub.Exists(resp.DownloadID))
}

func TestDownloadQueueFull(t *testing.T) {
	env := newTestEnv(t, nil)
	env.pool.err = downloader.ErrQueueFull

	rec := env.do(http.MethodPost, "/download", `{"url":"https://www.instagram.com/p/abc/"}`, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Download queue is full", detail(t, rec))

	// the attempt was admitted before the pool refused it, so it still counts
	entry, ok, err := env.store.Get(context.Background(), "192.0.2.1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, entry.Attempts)
}

func TestProgressStream(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/progress/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Download not found", detail(t, rec))

	env.hub.Open("d1")
	env.hub.Publish(progress.Event{Type: progress.EventComplete, DownloadID: "d1", Title: "Sunset", File: "abc.mp4"})

	rec = env.do(http.MethodGet, "/progress/d1", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "event: complete\n")
	assert.Contains(t, rec.Body.String(), `"file":"abc.mp4"`)
}

func TestFiles(t *testing.T) {
	env := newTestEnv(t, nil)
	path := filepath.Join(env.library.OutputDir(), "abc.mp4")
	require.NoError(t, os.WriteFile(path, []byte("video-bytes"), 0644))
	require.NoError(t, env.library.WriteSidecar(storage.Metadata{File: "abc.mp4"}))

	rec := env.do(http.MethodGet, "/files/abc.mp4", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "video-bytes", rec.Body.String())
	assert.Equal(t, `attachment; filename="abc.mp4"`, rec.Header().Get("Content-Disposition"))

	for _, name := range []string{"missing.mp4", "abc.mp4.info.json", ".hidden"} {
		rec = env.do(http.MethodGet, "/files/"+name, "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, name)
	}
}

func TestAPIKeys(t *testing.T) {
	env := newTestEnv(t, func(c *config.ServerConfig) { c.RequireAPIKey = true })
	body := `{"channel_url":"https://www.youtube.com/channel/UC123"}`

	rec := env.do(http.MethodPost, "/fetch_channel_data", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Missing API key", detail(t, rec))

	rec = env.do(http.MethodPost, "/fetch_channel_data", body, map[string]string{APIKeyHeader: "mg_bogus.key"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodPost, "/generate_api_key", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var issued map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &issued))
	key := issued["api_key"]
	require.True(t, strings.HasPrefix(key, "mg_"))

	rec = env.do(http.MethodPost, "/fetch_channel_data", body, map[string]string{APIKeyHeader: key})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodDelete, "/api_keys", "", map[string]string{APIKeyHeader: key})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(http.MethodPost, "/fetch_channel_data", body, map[string]string{APIKeyHeader: key})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodDelete, "/api_keys", "", map[string]string{APIKeyHeader: key})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodOptions, "/fetch_channel_data", "", map[string]string{
		"Origin":                         "https://app.example",
		"Access-Control-Request-Method":  "POST",
		"Access-Control-Request-Headers": "content-type",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "content-type", rec.Header().Get("Access-Control-Allow-Headers"))

	rec = env.do(http.MethodGet, "/", "", map[string]string{"Origin": "https://evil.example"})
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(http.MethodGet, "/health", "", nil)
	env.do(http.MethodPost, "/fetch_channel_data", "{", nil)

	rec := env.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `mediagate_http_requests_total{method="GET",path="/health",status="200"} 1`)
	assert.Contains(t, rec.Body.String(), `mediagate_rate_limit_decisions_total{outcome="admitted"} 1`)
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(http.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", detail(t, rec))
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "1.2.3.4:5555"
	req.Header.Set("X-Forwarded-For", "9.9.9.9, 10.0.0.1")

	assert.Equal(t, "1.2.3.4", ClientKey(req, false))
	assert.Equal(t, "9.9.9.9", ClientKey(req, true))

	req.RemoteAddr = "[::1]:80"
	assert.Equal(t, "::1", ClientKey(req, false))

	req.RemoteAddr = "pipe"
	assert.Equal(t, "pipe", ClientKey(req, false))
}

func TestSweeper(t *testing.T) {
	env := newTestEnv(t, nil)
	path := filepath.Join(env.library.OutputDir(), "old.mp4")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, env.library.WriteSidecar(storage.Metadata{File: "old.mp4", DownloadedAt: past}))

	state := filepath.Join(env.library.OutputDir(), "rate_limit.json")
	require.NoError(t, os.WriteFile(state, []byte("{}"), 0644))
	require.NoError(t, os.Chtimes(state, past, past))

	sw := NewSweeper(env.library, env.hub, time.Minute, logger.NewNopLogger())
	sw.SweepOnce()

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(state)
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sw.Run(ctx)
}
