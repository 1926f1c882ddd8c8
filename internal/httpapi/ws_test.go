package httpapi

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agentspine/spine/internal/session"
)

func TestTailSessionStreamsEmittedEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	manager := newTestManager(t)
	sess := manager.Create(nil)
	h := &sessionHandlers{sessions: manager, logger: zap.NewNop()}

	r := gin.New()
	r.GET("/sessions/:id/events", h.events)
	server := httptest.NewServer(r)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/sessions/" + sess.ID + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	sess.Events().Emit(session.EventWarning, map[string]string{"text": "heads up"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg wireMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	require.Equal(t, string(session.EventWarning), msg.Kind)
}
