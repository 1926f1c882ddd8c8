package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agentspine/spine/internal/llm"
	"github.com/agentspine/spine/internal/session"
	"github.com/agentspine/spine/internal/tool"
)

type echoAdapter struct{}

func (echoAdapter) Name() string { return "mock" }

func (echoAdapter) Complete(_ context.Context, _ llm.Request) (llm.Response, error) {
	return llm.Response{ID: "r1", Message: llm.TextMessage(llm.RoleAssistant, "ack")}, nil
}

func (echoAdapter) Stream(_ context.Context, _ llm.Request) (*llm.Stream, error) {
	return nil, nil
}

func newTestManager(t *testing.T) *SessionManager {
	t.Helper()
	reg := llm.NewRegistry()
	reg.RegisterAdapter(echoAdapter{})
	client := llm.NewClient(reg, llm.WithDefaultProvider("mock"))

	profile := &session.Profile{
		Provider:          "mock",
		Model:             "mock-model",
		Tools:             tool.NewRegistry(),
		ContextWindowSize: 100000,
		MaxTurns:          10,
		MaxSubagentDepth:  3,
	}

	return NewSessionManager(client, nil, profile, zap.NewNop())
}

func newTestRouter(t *testing.T) (*gin.Engine, *SessionManager) {
	gin.SetMode(gin.TestMode)
	manager := newTestManager(t)
	h := &sessionHandlers{sessions: manager, logger: zap.NewNop()}

	r := gin.New()
	g := r.Group("/sessions")
	g.POST("", h.create)
	g.POST("/:id/submit", h.submit)
	g.POST("/:id/steer", h.steer)
	g.POST("/:id/close", h.close)
	return r, manager
}

func TestCreateSessionReturnsID(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sessions", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp createSessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
}

func TestSubmitRoundTrips(t *testing.T) {
	r, manager := newTestRouter(t)
	sess := manager.Create(nil)

	body, _ := json.Marshal(submitRequest{Input: "hi"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sessions/"+sess.ID+"/submit", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp submitResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ack", resp.Text)
}

func TestSubmitUnknownSessionReturns404(t *testing.T) {
	r, _ := newTestRouter(t)

	body, _ := json.Marshal(submitRequest{Input: "hi"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sessions/missing/submit", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSteerQueuesMessage(t *testing.T) {
	r, manager := newTestRouter(t)
	sess := manager.Create(nil)

	body, _ := json.Marshal(steerRequest{Message: "focus on X"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sessions/"+sess.ID+"/steer", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestCloseRemovesSessionFromRegistry(t *testing.T) {
	r, manager := newTestRouter(t)
	sess := manager.Create(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sessions/"+sess.ID+"/close", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	_, ok := manager.Get(sess.ID)
	assert.False(t, ok)
}
