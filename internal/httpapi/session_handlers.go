package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agentspine/spine/internal/session"
)

type sessionHandlers struct {
	sessions *SessionManager
	logger   *zap.Logger
}

type createSessionRequest struct {
	Provider        string `json:"provider"`
	Model           string `json:"model"`
	SystemPrompt    string `json:"system_prompt"`
	ProjectDocsRoot string `json:"project_docs_root"`
}

type createSessionResponse struct {
	ID string `json:"id"`
}

func (h *sessionHandlers) create(c *gin.Context) {
	var req createSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	var profile *session.Profile
	if req.Provider != "" || req.Model != "" {
		profile = &session.Profile{
			Provider:        req.Provider,
			Model:           req.Model,
			SystemPrompt:    req.SystemPrompt,
			ProjectDocsRoot: req.ProjectDocsRoot,
		}
	}

	sess := h.sessions.Create(profile)
	c.JSON(http.StatusCreated, createSessionResponse{ID: sess.ID})
}

type submitRequest struct {
	Input string `json:"input" binding:"required"`
}

type submitResponse struct {
	Text      string `json:"text"`
	TurnCount int    `json:"turn_count"`
}

func (h *sessionHandlers) submit(c *gin.Context) {
	sess, ok := h.sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}

	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	text, turns, err := sess.Submit(req.Input)
	if err != nil {
		if err == session.ErrAlreadyProcessing {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, submitResponse{Text: text, TurnCount: turns})
}

type steerRequest struct {
	Message string `json:"message" binding:"required"`
}

func (h *sessionHandlers) steer(c *gin.Context) {
	sess, ok := h.sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}

	var req steerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess.Steer(req.Message)
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

// events upgrades to a WebSocket and tails the session's event bus live;
// it never replays history recorded before the connection opened.
func (h *sessionHandlers) events(c *gin.Context) {
	sess, ok := h.sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}
	tailSession(c.Writer, c.Request, sess, h.logger)
}

func (h *sessionHandlers) close(c *gin.Context) {
	id := c.Param("id")
	sess, ok := h.sessions.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}
	sess.Close()
	h.sessions.Remove(id)
	c.JSON(http.StatusOK, gin.H{"status": "closed"})
}
