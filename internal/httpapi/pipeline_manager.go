package httpapi

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agentspine/spine/internal/pipeline"
	"github.com/agentspine/spine/internal/safego"
)

// RunRecord tracks an in-flight or completed pipeline run for the
// status/checkpoint endpoints.
type RunRecord struct {
	ID        string
	GraphName string
	LogsRoot  string
	Status    pipeline.Status
	Err       string
	Done      bool
}

// PipelineManager holds named graphs registered for the Control Plane's
// /pipelines/:name/run endpoint, and tracks every run it has dispatched.
type PipelineManager struct {
	engine   *pipeline.Engine
	logsRoot string
	logger   *zap.Logger

	mu     sync.RWMutex
	graphs map[string]*pipeline.Graph
	runs   map[string]*RunRecord
}

func NewPipelineManager(engine *pipeline.Engine, logsRoot string, logger *zap.Logger) *PipelineManager {
	return &PipelineManager{
		engine:   engine,
		logsRoot: logsRoot,
		logger:   logger,
		graphs:   make(map[string]*pipeline.Graph),
		runs:     make(map[string]*RunRecord),
	}
}

func (m *PipelineManager) Register(name string, g *pipeline.Graph) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.graphs[name] = g
}

// Run dispatches graph `name` in the background and returns a run id
// immediately; poll Status/Checkpoint to observe progress.
func (m *PipelineManager) Run(name string, sink pipeline.StageSink) (*RunRecord, error) {
	m.mu.RLock()
	graph, ok := m.graphs[name]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown pipeline: %s", name)
	}

	runID := uuid.New().String()
	record := &RunRecord{ID: runID, GraphName: name, LogsRoot: filepath.Join(m.logsRoot, runID)}

	m.mu.Lock()
	m.runs[runID] = record
	m.mu.Unlock()

	safego.Go(m.logger, "httpapi-pipeline-run", func() {
		result, err := m.engine.Execute(context.Background(), graph, pipeline.RunOptions{LogsRoot: record.LogsRoot}, sink)

		m.mu.Lock()
		defer m.mu.Unlock()
		record.Done = true
		if err != nil {
			record.Err = err.Error()
			return
		}
		record.Status = result.Status
	})

	return record, nil
}

func (m *PipelineManager) Status(runID string) (*RunRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[runID]
	return r, ok
}
