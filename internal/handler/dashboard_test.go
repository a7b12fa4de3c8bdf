package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"rocket-backend/internal/config"
	"rocket-backend/internal/dashboard"
	"rocket-backend/internal/generator"
	"rocket-backend/internal/model"
	"rocket-backend/internal/service"
	"rocket-backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// fakeGenerator gate 不为 nil 时阻塞到 gate 关闭或 ctx 结束
type fakeGenerator struct {
	mu   sync.Mutex
	gate chan struct{}
}

func (f *fakeGenerator) Generate(ctx context.Context, mode model.ContentMode, selection string) (model.PhraseSet, error) {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return model.PhraseSet{}, ctx.Err()
		}
	}
	return model.PhraseSet{
		Gameplay:  []string{"buena jugada en " + selection},
		Reactions: []string{"JAJAJA"},
	}, nil
}

func (f *fakeGenerator) hold() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	return f.gate
}

type testEnv struct {
	router *gin.Engine
	svc    *service.DashboardService
	gen    *fakeGenerator
}

func newTestEnv(t *testing.T, providers ...config.ProviderConfig) *testEnv {
	t.Helper()

	cfg := &config.Config{}
	cfg.Providers = providers
	cfg.Generation.Timeout = 2 * time.Second
	cfg.Session.TTL = time.Hour
	cfg.Session.CleanupInterval = time.Hour
	cfg.Presets.Games = []string{"Minecraft", "Celeste"}
	cfg.CORS.AllowedOrigins = []string{"http://localhost:4321"}
	cfg.Auth.UserHeader = "X-User-ID"

	gen := &fakeGenerator{}
	svc := service.NewDashboardService(cfg, storage.NewMemoryStorage(), gen)
	t.Cleanup(func() { _ = svc.Close() })

	cache := generator.NewPhraseCache(time.Hour, time.Hour)
	simulator := generator.NewChatSimulator(cache, rand.New(rand.NewPCG(1, 2)))

	router := NewRouter(cfg,
		NewDashboardHandler(svc, simulator),
		NewHealthHandler(cfg.Providers, cache, svc),
	)
	return &testEnv{router: router, svc: svc, gen: gen}
}

func (e *testEnv) do(method, path, user, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func assertError(t *testing.T, w *httptest.ResponseRecorder, status int, kind, reason string) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	body := decode[model.ErrorResponse](t, w)
	assert.Equal(t, kind, body.Kind)
	assert.Equal(t, reason, body.Reason)
}

func TestAuth_RequiresUser(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/dashboard/session", "", "")
	assertError(t, w, http.StatusUnauthorized, "auth", "")

	w = env.do(http.MethodGet, "/api/dashboard/state", "   ", "")
	assertError(t, w, http.StatusUnauthorized, "auth", "")
}

func TestSession_Lifecycle(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/dashboard/state", "streamer", "")
	assertError(t, w, http.StatusNotFound, "no_session", "")

	w = env.do(http.MethodPost, "/api/dashboard/session", "streamer", "")
	require.Equal(t, http.StatusCreated, w.Code)
	state := decode[dashboard.SessionState](t, w)
	assert.Equal(t, model.PlatformTwitch, state.Theme)
	assert.Equal(t, model.ModeGame, state.Mode)
	assert.Equal(t, dashboard.MaxChips, state.Remaining)

	w = env.do(http.MethodPost, "/api/dashboard/session", "streamer", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPost, "/api/dashboard/theme/toggle", "streamer", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.PlatformKick, decode[model.ThemeResponse](t, w).Platform)

	w = env.do(http.MethodGet, "/api/dashboard/theme", "streamer", "")
	assert.Equal(t, model.PlatformKick, decode[model.ThemeResponse](t, w).Platform)

	w = env.do(http.MethodDelete, "/api/dashboard/session", "streamer", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(http.MethodDelete, "/api/dashboard/session", "streamer", "")
	assertError(t, w, http.StatusNotFound, "no_session", "")

	// 登出后重新打开得到默认主题
	w = env.do(http.MethodPost, "/api/dashboard/session", "streamer", "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, model.PlatformTwitch, decode[dashboard.SessionState](t, w).Theme)
}

func TestSessions_AreIsolatedPerUser(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/api/dashboard/session", "alice", "")
	env.do(http.MethodPost, "/api/dashboard/session", "bob", "")

	env.do(http.MethodPost, "/api/dashboard/chips", "alice", `{"label":"Hollow Knight"}`)

	w := env.do(http.MethodGet, "/api/dashboard/state", "bob", "")
	assert.Empty(t, decode[dashboard.SessionState](t, w).Chips)
}

func TestChips_Endpoints(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/api/dashboard/session", "streamer", "")

	var firstID string
	for i, label := range []string{"Minecraft", "Celeste", "Hollow Knight", "Apex Legends"} {
		w := env.do(http.MethodPost, "/api/dashboard/chips", "streamer", `{"label":"`+label+`"}`)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		resp := decode[model.ChipsResponse](t, w)
		assert.Equal(t, dashboard.MaxChips-i-1, resp.Remaining)
		if i == 0 {
			firstID = resp.ID
		}
	}

	w := env.do(http.MethodPost, "/api/dashboard/chips", "streamer", `{"label":"Stardew Valley"}`)
	assertError(t, w, http.StatusUnprocessableEntity, "validation", "limit_exceeded")

	w = env.do(http.MethodPost, "/api/dashboard/chips", "streamer", `{"label":"  minecraft "}`)
	assertError(t, w, http.StatusUnprocessableEntity, "validation", "duplicate")

	state := decode[dashboard.SessionState](t, env.do(http.MethodGet, "/api/dashboard/state", "streamer", ""))
	require.NotNil(t, state.InlineError)
	assert.Equal(t, "duplicate", state.InlineError.Reason)

	w = env.do(http.MethodDelete, "/api/dashboard/chips/"+firstID, "streamer", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[model.ChipsResponse](t, w).Remaining)

	w = env.do(http.MethodDelete, "/api/dashboard/chips/"+firstID, "streamer", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodPost, "/api/dashboard/chips", "streamer", `{"label":"a"}`)
	assertError(t, w, http.StatusUnprocessableEntity, "validation", "too_short")

	w = env.do(http.MethodPost, "/api/dashboard/chips", "streamer", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChips_PresetEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/api/dashboard/session", "streamer", "")

	w := env.do(http.MethodPost, "/api/dashboard/chips/preset", "streamer", `{"label":"Celeste"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	resp := decode[model.ChipsResponse](t, w)
	require.Len(t, resp.Chips, 1)
	assert.Equal(t, model.OriginPreset, resp.Chips[0].Origin)

	w = env.do(http.MethodPost, "/api/dashboard/chips/preset", "streamer", `{"label":"Tetris"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/api/dashboard/presets", "streamer", "")
	require.Equal(t, http.StatusOK, w.Code)
	presets := decode[model.PresetsResponse](t, w)
	assert.Equal(t, []string{"Minecraft", "Celeste"}, presets.Games)
	assert.NotEmpty(t, presets.Topics)
}

func TestMode_Endpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/api/dashboard/session", "streamer", "")

	w := env.do(http.MethodPut, "/api/dashboard/mode", "streamer", `{"mode":"irl"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPut, "/api/dashboard/mode", "streamer", `{"mode":"just_chatting"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.ModeResponse{Mode: model.ModeJustChatting, Changed: true}, decode[model.ModeResponse](t, w))

	w = env.do(http.MethodPut, "/api/dashboard/mode", "streamer", `{"mode":"just_chatting"}`)
	assert.False(t, decode[model.ModeResponse](t, w).Changed)
}

func TestGenerate_TopicValidation(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/api/dashboard/session", "streamer", "")
	env.do(http.MethodPut, "/api/dashboard/mode", "streamer", `{"mode":"just_chatting"}`)

	w := env.do(http.MethodPut, "/api/dashboard/topic", "streamer", `{"topic":"x"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "too_short")

	w = env.do(http.MethodPost, "/api/dashboard/generate", "streamer", "")
	assertError(t, w, http.StatusUnprocessableEntity, "validation", "too_short")

	w = env.do(http.MethodGet, "/api/dashboard/generate/status", "streamer", "")
	assert.Equal(t, dashboard.StatusFailed, decode[statusView](t, w).Status)

	w = env.do(http.MethodPut, "/api/dashboard/topic", "streamer", `{"topic":"  Viajes por Japón "}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPost, "/api/dashboard/generate", "streamer", "")
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, "Viajes por Japón", decode[statusView](t, w).Input)

	require.Eventually(t, func() bool {
		w := env.do(http.MethodGet, "/api/dashboard/generate/status", "streamer", "")
		return decode[statusView](t, w).Status == dashboard.StatusSucceeded
	}, 2*time.Second, 10*time.Millisecond)
}

type statusView struct {
	ID     uint64                  `json:"id"`
	Input  string                  `json:"input"`
	Status dashboard.RequestStatus `json:"status"`
	Error  *dashboard.ErrorView    `json:"error"`
}

func TestGenerate_BusyAndCancel(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/api/dashboard/session", "streamer", "")

	gate := env.gen.hold()
	defer close(gate)

	w := env.do(http.MethodPost, "/api/dashboard/generate", "streamer", `{"selection":"Celeste"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	first := decode[statusView](t, w)
	assert.Equal(t, dashboard.StatusGenerating, first.Status)

	w = env.do(http.MethodPost, "/api/dashboard/generate", "streamer", `{"selection":"Minecraft"}`)
	assertError(t, w, http.StatusConflict, "busy", "")

	w = env.do(http.MethodPost, "/api/dashboard/generate/cancel", "streamer", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cancelled":true`)

	w = env.do(http.MethodGet, "/api/dashboard/generate/status", "streamer", "")
	assert.Equal(t, dashboard.StatusIdle, decode[statusView](t, w).Status)

	w = env.do(http.MethodPost, "/api/dashboard/generate/cancel", "streamer", "")
	assert.Contains(t, w.Body.String(), `"cancelled":false`)
}

func TestGenerate_SuccessAddsChip(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/api/dashboard/session", "streamer", "")

	w := env.do(http.MethodPost, "/api/dashboard/generate", "streamer", `{"selection":"Stardew Valley"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	require.Eventually(t, func() bool {
		state := decode[dashboard.SessionState](t, env.do(http.MethodGet, "/api/dashboard/state", "streamer", ""))
		return state.Generation.Status == dashboard.StatusSucceeded && len(state.Chips) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHealth(t *testing.T) {
	t.Run("no keys", func(t *testing.T) {
		env := newTestEnv(t, config.ProviderConfig{Name: "groq"})
		w := env.do(http.MethodGet, "/health", "", "")
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		resp := decode[model.HealthResponse](t, w)
		assert.Equal(t, "error", resp.Status)
		assert.Equal(t, "NOT SET", resp.Providers[0].KeyPrefix)
	})

	t.Run("configured", func(t *testing.T) {
		env := newTestEnv(t,
			config.ProviderConfig{Name: "groq", APIKey: "gsk_1234567890abcdef"},
			config.ProviderConfig{Name: "cerebras"},
		)
		w := env.do(http.MethodGet, "/health", "", "")
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[model.HealthResponse](t, w)
		assert.Equal(t, "ok", resp.Status)
		require.Len(t, resp.Providers, 2)
		assert.Equal(t, "gsk_1234...", resp.Providers[0].KeyPrefix)
		assert.True(t, resp.Providers[0].Configured)
		assert.False(t, resp.Providers[1].Configured)
		assert.NotContains(t, w.Body.String(), "abcdef")
	})
}

func TestDescribeHTTPError(t *testing.T) {
	status, body := describeHTTPError(dashboard.NewServiceError(dashboard.ServiceTransient, assert.AnError))
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "service", body.Kind)
	assert.True(t, body.Retryable)

	status, body = describeHTTPError(storage.ErrFileOperation)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal", body.Kind)
}

// readEvent 读取下一条 SSE 事件的名称和数据
func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var event, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && data != "":
			return event, data
		}
	}
}

func openStream(t *testing.T, ctx context.Context, url, user string) *bufio.Reader {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	req.Header.Set("X-User-ID", user)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	return bufio.NewReader(resp.Body)
}

func TestStreamEvents(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	env.do(http.MethodPost, "/api/dashboard/session", "streamer", "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := openStream(t, ctx, srv.URL+"/api/dashboard/events", "streamer")

	event, data := readEvent(t, r)
	assert.Equal(t, "state", event)
	assert.Contains(t, data, `"theme":"twitch"`)

	env.do(http.MethodPost, "/api/dashboard/theme/toggle", "streamer", "")
	event, data = readEvent(t, r)
	assert.Equal(t, "theme", event)
	assert.JSONEq(t, `{"type":"theme","payload":"kick"}`, data)

	env.do(http.MethodPost, "/api/dashboard/chips", "streamer", `{"label":"Celeste"}`)
	event, data = readEvent(t, r)
	assert.Equal(t, "chips", event)
	assert.Contains(t, data, `"remaining":3`)
}

func TestStreamChat(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	env.do(http.MethodPost, "/api/dashboard/session", "streamer", "")

	w := env.do(http.MethodGet, "/api/dashboard/chat/stream?label=Minecraft&interval=warp", "streamer", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/api/dashboard/chat/stream", "streamer", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := openStream(t, ctx, srv.URL+"/api/dashboard/chat/stream?label=Minecraft&interval=turbo", "streamer")

	event, data := readEvent(t, r)
	assert.Equal(t, "message", event)
	var msg model.ChatMessage
	require.NoError(t, json.Unmarshal([]byte(data), &msg))
	assert.NotEmpty(t, msg.Username)
	assert.NotEmpty(t, msg.Content)
	assert.NotEmpty(t, msg.ID)
}
