package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agentspine/spine/internal/llm"
)

// ErrAlreadyProcessing is returned by Submit when a submit is already
// in flight on this session.
var ErrAlreadyProcessing = fmt.Errorf("session: already processing")

// ErrClosed is returned by Submit on a CLOSED session.
var ErrClosed = fmt.Errorf("session: closed")

const loopDetectionWindow = 6

// Session is a long-lived, single-owner conversation driver: one model
// plus one execution environment plus one tool registry, advanced one
// submit at a time.
type Session struct {
	ID string

	profile *Profile
	client  *llm.Client
	env     interface{}
	logger  *zap.Logger

	submitMu sync.Mutex // serializes submit; held for the whole call

	mu        sync.Mutex
	history   History
	state     *StateMachine
	bus       *Bus
	steering  []string
	followups []string

	loopDetector *LoopDetector
	supervisor   *Supervisor

	depth int

	ctx    context.Context
	cancel context.CancelFunc
}

type NewSessionOptions struct {
	Profile *Profile
	Client  *llm.Client
	Env     interface{}
	Logger  *zap.Logger
	Depth   int
}

func NewSession(opts NewSessionOptions) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	bus := NewBus()

	s := &Session{
		ID:           uuid.New().String(),
		profile:      opts.Profile,
		client:       opts.Client,
		env:          opts.Env,
		logger:       opts.Logger,
		state:        NewStateMachine(),
		bus:          bus,
		loopDetector: NewLoopDetector(loopDetectionWindow),
		depth:        opts.Depth,
		ctx:          ctx,
		cancel:       cancel,
	}

	s.supervisor = NewSupervisor(opts.Depth, opts.Profile.MaxSubagentDepth, opts.Logger, bus, s.spawnChild)

	bus.Emit(EventSessionStart, map[string]string{"session_id": s.ID})
	return s
}

func (s *Session) Events() *Bus { return s.bus }

func (s *Session) GetHistory() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Turns()
}

// Steer appends a steering message, non-blocking.
func (s *Session) Steer(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steering = append(s.steering, message)
}

// FollowUp appends a follow-up message, non-blocking.
func (s *Session) FollowUp(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.followups = append(s.followups, message)
}

func (s *Session) SetReasoningEffort(effort llm.ReasoningEffort) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile.ReasoningEffort = effort
}

// Abort cancels the session's in-flight work; used both directly and by
// a parent supervisor closing a subagent.
func (s *Session) Abort() {
	s.cancel()
}

// Submit drives the loop to completion or limit for one user input and
// returns the concatenation of assistant-turn texts recorded along the
// way plus the user+assistant turn count, satisfying childRunner so a
// Session can itself be a subagent.
func (s *Session) Submit(input string) (string, int, error) {
	if !s.submitMu.TryLock() {
		return "", 0, ErrAlreadyProcessing
	}
	defer s.submitMu.Unlock()

	if s.state.Current() == StateClosed {
		return "", 0, ErrClosed
	}
	if err := s.state.Transition(StateProcessing); err != nil {
		return "", 0, ErrAlreadyProcessing
	}

	before := s.history.UserAssistantTurnCount()
	err := s.runSubmit(input)

	if s.state.Current() != StateClosed {
		_ = s.state.Transition(StateIdle)
	}

	turns := s.history.UserAssistantTurnCount() - before
	return s.assistantText(before), turns, err
}

// assistantText concatenates the text of every assistant turn recorded
// after the first sinceLen user and assistant turns.
func (s *Session) assistantText(sinceLen int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b strings.Builder
	seen := 0
	for _, t := range s.history.turns {
		if t.Kind != TurnUser && t.Kind != TurnAssistant {
			continue
		}
		if seen >= sinceLen && t.Kind == TurnAssistant {
			b.WriteString(t.Content)
		}
		if t.Kind == TurnUser || t.Kind == TurnAssistant {
			seen++
		}
	}
	return b.String()
}

func (s *Session) runSubmit(input string) error {
	now := time.Now
	s.mu.Lock()
	s.history.Append(NewUserTurn(input, now()))
	s.bus.Emit(EventUserInput, map[string]string{"text": input})
	s.drainSteering()
	s.mu.Unlock()

	docs := ""
	if s.profile.ProjectDocsRoot != "" {
		docs = BuildProjectDocsSnippet(s.profile.ProjectDocsRoot, s.profile.Provider)
	}

	if err := s.roundLoop(docs); err != nil {
		return err
	}

	s.mu.Lock()
	var next string
	hasNext := len(s.followups) > 0
	if hasNext {
		next = s.followups[0]
		s.followups = s.followups[1:]
	}
	s.mu.Unlock()

	if hasNext {
		return s.runSubmit(next)
	}
	return nil
}

// drainSteering must be called with s.mu held.
func (s *Session) drainSteering() {
	for _, msg := range s.steering {
		s.history.Append(NewSteeringTurn(msg, time.Now()))
		s.bus.Emit(EventSteeringInject, map[string]string{"text": msg})
	}
	s.steering = nil
}

func (s *Session) systemPrompt(docs string) string {
	if docs == "" {
		return s.profile.SystemPrompt
	}
	if s.profile.SystemPrompt == "" {
		return docs
	}
	return s.profile.SystemPrompt + "\n\n" + docs
}

func (s *Session) roundLoop(docs string) error {
	maxRounds := s.profile.MaxToolRoundsPerInput
	maxTurns := s.profile.MaxTurns

	for round := 0; maxRounds <= 0 || round < maxRounds; round++ {
		select {
		case <-s.ctx.Done():
			return s.closeWithError(fmt.Errorf("aborted"))
		default:
		}

		s.mu.Lock()
		if maxTurns > 0 && s.history.UserAssistantTurnCount() >= maxTurns {
			s.bus.Emit(EventTurnLimit, map[string]int{"max_turns": maxTurns})
			s.mu.Unlock()
			return nil
		}

		sysPrompt := s.systemPrompt(docs)
		messages := s.history.ToMessages()
		s.mu.Unlock()

		if sysPrompt != "" {
			messages = append([]llm.Message{llm.TextMessage(llm.RoleSystem, sysPrompt)}, messages...)
		}

		toolChoice := llm.ToolChoiceAuto
		req := llm.Request{
			Provider:        s.profile.Provider,
			Model:           s.profile.Model,
			Messages:        messages,
			Tools:           s.profile.toolDefinitions(),
			ToolChoice:      toolChoice,
			ReasoningEffort: s.profile.ReasoningEffort,
			ProviderOptions: s.profile.ProviderOptions,
		}

		s.bus.Emit(EventLLMCallStart, map[string]string{"model": s.profile.Model})
		resp, err := s.client.Complete(s.ctx, req)
		if err != nil {
			s.bus.Emit(EventError, map[string]string{"message": errString(err)})
			return s.closeWithError(err)
		}
		s.bus.Emit(EventLLMCallEnd, map[string]interface{}{"response_id": resp.ID})

		now := time.Now()
		s.mu.Lock()
		assistantTurn := NewAssistantTurn(resp, now)
		s.history.Append(assistantTurn)
		s.mu.Unlock()
		s.bus.Emit(EventAssistantText, map[string]string{"text": assistantTurn.Content})

		calls := resp.ToolCalls()
		if len(calls) == 0 {
			s.bus.Emit(EventTurnComplete, map[string]string{"reason": "natural"})
			return nil
		}

		results := runToolRound(s.ctx, s.profile.Tools, s.env, s.bus, calls, s.profile.SupportsParallelToolCalls, 0, s.logger)
		for i, c := range calls {
			results[i].Content = truncateForModel(results[i].Content, s.profile.outputLimitFor(c.Name))
		}

		select {
		case <-s.ctx.Done():
			// Tool calls already ran their side effects; the results just
			// never join history for an aborted session.
			return s.closeWithError(fmt.Errorf("aborted"))
		default:
		}

		s.mu.Lock()
		s.history.Append(NewToolResultsTurn(results, time.Now()))
		s.drainSteering()
		s.mu.Unlock()

		loop := false
		for _, c := range calls {
			loop = s.loopDetector.Record(c.Name, c.Arguments) || loop
		}
		if loop {
			s.mu.Lock()
			s.history.Append(NewSteeringTurn("Loop detected: the same tool call appears to be repeating. Try a different approach.", time.Now()))
			s.mu.Unlock()
			s.bus.Emit(EventLoopDetection, nil)
		}

		s.mu.Lock()
		usage := CheckContextUsage(s.history.turns, s.profile.ContextWindowSize)
		s.mu.Unlock()
		if usage.Warn {
			s.bus.Emit(EventWarning, map[string]interface{}{
				"estimated_tokens": usage.EstimatedTokens, "ratio": usage.Ratio,
			})
		}
	}

	return nil
}

func (s *Session) closeWithError(err error) error {
	s.state.Close()
	s.bus.Emit(EventSessionEnd, map[string]string{"session_id": s.ID})
	return err
}

// Close is idempotent. It cancels the session's context and marks it
// CLOSED at once, even mid-submit (e.g. a parent aborting a subagent);
// the in-flight round loop stops when it next checks the cancellation.
func (s *Session) Close() {
	wasClosed := s.state.Current() == StateClosed
	s.cancel()
	if s.supervisor != nil {
		s.supervisor.Close()
	}
	s.state.Close()
	if !wasClosed {
		s.bus.Emit(EventSessionEnd, map[string]string{"session_id": s.ID})
	}
}

// SpawnAgent exposes the subagent supervisor's spawn operation.
func (s *Session) SpawnAgent(req SpawnRequest) (*SubagentHandle, error) {
	return s.supervisor.Spawn(req)
}

func (s *Session) GetSubagent(id string) (*SubagentHandle, bool) {
	return s.supervisor.Get(id)
}

// spawnChild constructs a child Session inheriting this session's
// provider profile defaults unless the request overrides them.
func (s *Session) spawnChild(req SpawnRequest, depth int) childRunner {
	childProfile := *s.profile
	if req.Model != "" {
		childProfile.Model = req.Model
	}
	if req.MaxTurns > 0 {
		childProfile.MaxTurns = req.MaxTurns
	}

	child := NewSession(NewSessionOptions{
		Profile: &childProfile,
		Client:  s.client,
		Env:     s.env,
		Logger:  s.logger,
		Depth:   depth,
	})
	return child
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
