// Package models holds the GORM row types the write-behind mirror
// persists. These are flat, denormalized projections of the in-memory
// session/pipeline state — the session loop and the pipeline engine never
// import this package, they only ever read/write their own in-memory
// types; persistence is purely an observer via internal/eventbus.
package models

import (
	"time"

	"gorm.io/gorm"
)

// SessionModel is one row per agent session.
type SessionModel struct {
	ID         string `gorm:"primaryKey;size:64"`
	Provider   string `gorm:"size:64"`
	Model      string `gorm:"size:128"`
	StartedAt  time.Time
	EndedAt    *time.Time
	TurnCount  int
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}

func (SessionModel) TableName() string { return "sessions" }

// TurnModel is one row per turn appended to a session's history.
type TurnModel struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	SessionID string `gorm:"index;size:64;not null"`
	Seq       int    `gorm:"index"`
	Kind      string `gorm:"size:32;not null"`
	Content   string `gorm:"type:text"`
	Metadata  string `gorm:"type:text"` // JSON-encoded tool calls / results / usage
	Timestamp time.Time
	CreatedAt time.Time
}

func (TurnModel) TableName() string { return "turns" }

// PipelineRunModel is one row per pipeline Execute invocation.
type PipelineRunModel struct {
	ID          string `gorm:"primaryKey;size:64"`
	GraphName   string `gorm:"size:128"`
	Status      string `gorm:"size:32"`
	LogsRoot    string `gorm:"type:text"`
	StartedAt   time.Time
	EndedAt     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (PipelineRunModel) TableName() string { return "pipeline_runs" }

// PipelineStageModel is one row per stage event observed for a run.
type PipelineStageModel struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	RunID     string `gorm:"index;size:64;not null"`
	NodeID    string `gorm:"size:128"`
	Kind      string `gorm:"size:32"`
	Payload   string `gorm:"type:text"`
	Timestamp time.Time
	CreatedAt time.Time
}

func (PipelineStageModel) TableName() string { return "pipeline_stages" }
