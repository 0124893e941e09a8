package model

import (
	"time"

	"github.com/google/uuid"
)

// TaskPriority is the urgency bucket assigned to an admin task.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// Valid reports whether p is one of the known priorities.
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// TaskStatus is the lifecycle state of a task. The state machine has two
// states with a bidirectional transition and no terminal state; updates
// set a target status rather than toggling.
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusCompleted TaskStatus = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	return s == StatusPending || s == StatusCompleted
}

// ReportType identifies how a report body was produced.
type ReportType string

const (
	ReportDaily    ReportType = "daily"
	ReportFolder   ReportType = "folder"
	ReportActivity ReportType = "activity"
	ReportSummary  ReportType = "summary"
)

// Valid reports whether t is one of the known report types.
func (t ReportType) Valid() bool {
	switch t {
	case ReportDaily, ReportFolder, ReportActivity, ReportSummary:
		return true
	}
	return false
}

// Memory is one persona-scoped fact learned about a user. A row is
// uniquely identified by (user_id, persona, key); remembering the same
// key again replaces value, confidence, and expiry.
type Memory struct {
	UserID     string    `json:"user_id"    gorm:"primaryKey;column:user_id"`
	Persona    string    `json:"persona"    gorm:"primaryKey;column:persona"`
	Key        string    `json:"key"        gorm:"primaryKey;column:key"`
	Value      string    `json:"value"      gorm:"not null;column:value"`
	Confidence float64   `json:"confidence" gorm:"not null;column:confidence"`
	CreatedAt  time.Time `json:"created_at" gorm:"not null;column:created_at"`
	ExpiresAt  time.Time `json:"expires_at" gorm:"not null;column:expires_at"`
}

func (Memory) TableName() string { return "memories" }

// Expired reports whether the record is past its expiry at the given time.
func (m Memory) Expired(now time.Time) bool {
	return !now.Before(m.ExpiresAt)
}

// Task is an admin-created work item.
type Task struct {
	ID          uuid.UUID    `json:"id"          gorm:"primaryKey;type:uuid"`
	Title       string       `json:"title"       gorm:"not null"`
	Description string       `json:"description" gorm:"not null"`
	Priority    TaskPriority `json:"priority"    gorm:"not null"`
	Status      TaskStatus   `json:"status"      gorm:"not null"`
	CreatedAt   time.Time    `json:"created_at"  gorm:"not null"`
}

func (Task) TableName() string { return "tasks" }

// Report is a generated or caller-supplied report body. Immutable once
// persisted; removal only happens through the retention sweep.
type Report struct {
	ID        uuid.UUID  `json:"id"         gorm:"primaryKey;type:uuid"`
	Type      ReportType `json:"type"       gorm:"not null;column:type"`
	Title     string     `json:"title"      gorm:"not null"`
	Content   string     `json:"content"    gorm:"not null"`
	CreatedAt time.Time  `json:"created_at" gorm:"not null"`
}

func (Report) TableName() string { return "reports" }

// ChatExchange is one persisted prompt/response pair. The chat endpoint
// never writes these itself; persistence is the caller's explicit call.
type ChatExchange struct {
	ID                uuid.UUID `json:"id"                 gorm:"primaryKey;type:uuid"`
	UserMessage       string    `json:"user_message"       gorm:"not null"`
	AssistantResponse string    `json:"assistant_response" gorm:"not null"`
	Model             string    `json:"model"`
	Temperature       float64   `json:"temperature"`
	CreatedAt         time.Time `json:"created_at"         gorm:"not null"`
}

func (ChatExchange) TableName() string { return "chat_history" }
