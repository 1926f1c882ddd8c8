package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agentspine/spine/internal/pipeline"
)

type pipelineHandlers struct {
	pipelines *PipelineManager
	logger    *zap.Logger
}

type runPipelineResponse struct {
	RunID string `json:"run_id"`
}

// run dispatches a registered graph by name and returns immediately
// with a run id; poll GET /pipelines/runs/:id for status.
func (h *pipelineHandlers) run(c *gin.Context) {
	name := c.Param("name")

	record, err := h.pipelines.Run(name, func(ev pipeline.StageEvent) {
		h.logger.Debug("pipeline stage event",
			zap.String("run", name),
			zap.String("kind", string(ev.Kind)),
			zap.String("node", ev.NodeID),
		)
	})
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, runPipelineResponse{RunID: record.ID})
}

type runStatusResponse struct {
	RunID     string `json:"run_id"`
	GraphName string `json:"graph_name"`
	Status    string `json:"status,omitempty"`
	Done      bool   `json:"done"`
	Error     string `json:"error,omitempty"`
}

func (h *pipelineHandlers) status(c *gin.Context) {
	record, ok := h.pipelines.Status(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown run"})
		return
	}

	c.JSON(http.StatusOK, runStatusResponse{
		RunID:     record.ID,
		GraphName: record.GraphName,
		Status:    string(record.Status),
		Done:      record.Done,
		Error:     record.Err,
	})
}

// checkpoint returns the last checkpoint the engine wrote for this run,
// letting an operator inspect progress without waiting for completion.
func (h *pipelineHandlers) checkpoint(c *gin.Context) {
	record, ok := h.pipelines.Status(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown run"})
		return
	}

	cp, ok, err := pipeline.LoadCheckpoint(record.LogsRoot)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no checkpoint yet"})
		return
	}

	c.JSON(http.StatusOK, cp)
}
