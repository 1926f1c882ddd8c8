package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agentspine/spine/internal/safego"
)

type SubagentStatus string

const (
	SubagentRunning   SubagentStatus = "running"
	SubagentCompleted SubagentStatus = "completed"
	SubagentFailed    SubagentStatus = "failed"
)

// SubagentHandle is the caller-visible view of a spawned child session.
type SubagentHandle struct {
	mu         sync.RWMutex
	ID         string
	status     SubagentStatus
	result     string
	turnCount  int
	success    bool
}

func (h *SubagentHandle) Status() SubagentStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

func (h *SubagentHandle) Result() (text string, turns int, success bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.result, h.turnCount, h.success
}

func (h *SubagentHandle) setDone(status SubagentStatus, result string, turns int, success bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = status
	h.result = result
	h.turnCount = turns
	h.success = success
}

// SpawnRequest is the argument to Supervisor.Spawn.
type SpawnRequest struct {
	Task       string
	WorkingDir string
	Model      string
	MaxTurns   int
}

// childRunner is the minimal surface a child session exposes to its
// supervisor, satisfied by *Session. It is an interface purely so tests
// can drive the supervisor without constructing a full Session.
type childRunner interface {
	Submit(task string) (text string, turns int, err error)
	Abort()
}

// Supervisor owns the parent's spawned children: id -> handle, id ->
// child runner. Depth is fixed at construction and never mutated; a
// child spawned by this supervisor's children gets depth+1.
type Supervisor struct {
	mu       sync.RWMutex
	depth    int
	maxDepth int
	logger   *zap.Logger
	bus      *Bus
	handles  map[string]*SubagentHandle
	children map[string]childRunner

	// newChild constructs a child runner for a spawn request; the
	// session package wires this to Session construction, tests wire
	// it to a fake.
	newChild func(req SpawnRequest, depth int) childRunner
}

func NewSupervisor(depth, maxDepth int, logger *zap.Logger, bus *Bus, newChild func(SpawnRequest, int) childRunner) *Supervisor {
	return &Supervisor{
		depth:    depth,
		maxDepth: maxDepth,
		logger:   logger,
		bus:      bus,
		handles:  make(map[string]*SubagentHandle),
		children: make(map[string]childRunner),
		newChild: newChild,
	}
}

// Spawn refuses at or past max_subagent_depth, otherwise constructs the
// child session, emits SUBAGENT_SPAWN, and runs the child's submit in
// the background.
func (s *Supervisor) Spawn(req SpawnRequest) (*SubagentHandle, error) {
	if s.depth >= s.maxDepth {
		return nil, fmt.Errorf("max subagent depth (%d) exceeded", s.maxDepth)
	}

	id := uuid.New().String()
	handle := &SubagentHandle{ID: id, status: SubagentRunning}
	child := s.newChild(req, s.depth+1)

	s.mu.Lock()
	s.handles[id] = handle
	s.children[id] = child
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Emit(EventSubagentSpawn, map[string]string{"id": id, "task": req.Task})
	}

	safego.Go(s.logger, "subagent:"+id, func() {
		s.run(id, handle, child, req.Task)
	})

	return handle, nil
}

func (s *Supervisor) run(id string, handle *SubagentHandle, child childRunner, task string) {
	defer func() {
		if r := recover(); r != nil {
			handle.setDone(SubagentFailed, fmt.Sprintf("panic: %v", r), 0, false)
			if s.bus != nil {
				s.bus.Emit(EventSubagentComplete, map[string]interface{}{"id": id, "success": false})
			}
		}
	}()

	text, turns, err := child.Submit(task)
	if err != nil {
		handle.setDone(SubagentFailed, err.Error(), turns, false)
	} else {
		handle.setDone(SubagentCompleted, text, turns, true)
	}

	if s.logger != nil {
		s.logger.Info("subagent finished", zap.String("id", id), zap.Bool("success", err == nil))
	}
	if s.bus != nil {
		s.bus.Emit(EventSubagentComplete, map[string]interface{}{"id": id, "success": err == nil})
	}
}

func (s *Supervisor) Get(id string) (*SubagentHandle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.handles[id]
	return h, ok
}

// Close aborts every live child; a subagent's Close sets its child
// session's abort signal and marks the handle completed.
func (s *Supervisor) Close() {
	s.mu.RLock()
	children := make(map[string]childRunner, len(s.children))
	for id, c := range s.children {
		children[id] = c
	}
	s.mu.RUnlock()

	for id, c := range children {
		c.Abort()
		if h, ok := s.Get(id); ok && h.Status() == SubagentRunning {
			h.setDone(SubagentCompleted, h.result, h.turnCount, true)
		}
	}
}
