package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	appErrors "github.com/agentspine/spine/internal/errors"
	"github.com/agentspine/spine/internal/persistence/models"
	"github.com/agentspine/spine/internal/session"
)

// Store is the write-behind mirror's repository: every method is a best-
// effort projection write, never a correctness dependency for the
// session/pipeline it mirrors.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// StartSession upserts the session row at SESSION_START.
func (s *Store) StartSession(ctx context.Context, sessionID, provider, model string, startedAt time.Time) error {
	row := models.SessionModel{ID: sessionID, Provider: provider, Model: model, StartedAt: startedAt}
	return s.db.WithContext(ctx).Save(&row).Error
}

// EndSession stamps EndedAt and the final turn count at SESSION_END.
func (s *Store) EndSession(ctx context.Context, sessionID string, endedAt time.Time, turnCount int) error {
	return s.db.WithContext(ctx).Model(&models.SessionModel{}).
		Where("id = ?", sessionID).
		Updates(map[string]interface{}{"ended_at": endedAt, "turn_count": turnCount}).Error
}

// AppendTurns inserts one row per history turn at index >= fromSeq, with
// Seq set to the turn's index. Nothing deduplicates on (session_id, seq):
// a second call with the same fromSeq stores those turns again.
func (s *Store) AppendTurns(ctx context.Context, sessionID string, fromSeq int, turns []session.Turn) error {
	rows := make([]models.TurnModel, 0, len(turns)-fromSeq)
	for i := fromSeq; i < len(turns); i++ {
		t := turns[i]
		meta, _ := json.Marshal(turnMetadata(t))
		rows = append(rows, models.TurnModel{
			SessionID: sessionID,
			Seq:       i,
			Kind:      string(t.Kind),
			Content:   t.Content,
			Metadata:  string(meta),
			Timestamp: t.Timestamp,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&rows).Error
}

func turnMetadata(t session.Turn) map[string]interface{} {
	m := map[string]interface{}{}
	if len(t.ToolCalls) > 0 {
		m["tool_calls"] = t.ToolCalls
	}
	if t.HasReasoning {
		m["reasoning"] = t.Reasoning
	}
	if len(t.Results) > 0 {
		m["results"] = t.Results
	}
	if t.ResponseID != "" {
		m["response_id"] = t.ResponseID
	}
	return m
}

// LoadTurnCount returns how many turns are already mirrored for a
// session, so a caller can resume AppendTurns from the right offset
// after a restart.
func (s *Store) LoadTurnCount(ctx context.Context, sessionID string) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.TurnModel{}).Where("session_id = ?", sessionID).Count(&count).Error
	return int(count), err
}

// StartRun upserts the pipeline run row.
func (s *Store) StartRun(ctx context.Context, runID, graphName, logsRoot string, startedAt time.Time) error {
	row := models.PipelineRunModel{ID: runID, GraphName: graphName, Status: "running", LogsRoot: logsRoot, StartedAt: startedAt}
	return s.db.WithContext(ctx).Save(&row).Error
}

// EndRun stamps the run's final status.
func (s *Store) EndRun(ctx context.Context, runID, status string, endedAt time.Time) error {
	return s.db.WithContext(ctx).Model(&models.PipelineRunModel{}).
		Where("id = ?", runID).
		Updates(map[string]interface{}{"status": status, "ended_at": endedAt}).Error
}

// AppendStage records one pipeline stage event.
func (s *Store) AppendStage(ctx context.Context, runID, nodeID, kind string, payload interface{}, ts time.Time) error {
	encoded, _ := json.Marshal(payload)
	row := models.PipelineStageModel{RunID: runID, NodeID: nodeID, Kind: kind, Payload: string(encoded), Timestamp: ts}
	return s.db.WithContext(ctx).Create(&row).Error
}

// GetRun looks a run up by id.
func (s *Store) GetRun(ctx context.Context, runID string) (models.PipelineRunModel, error) {
	var row models.PipelineRunModel
	err := s.db.WithContext(ctx).First(&row, "id = ?", runID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return row, appErrors.NewNotFoundError("pipeline run not found: " + runID)
	}
	return row, err
}
