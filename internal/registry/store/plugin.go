package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/onlymatt/gateway/internal/model"
)

// RememberRequest is the input for upserting a memory record.
type RememberRequest struct {
	UserID     string  `json:"user_id"`
	Persona    string  `json:"persona"`
	Key        string  `json:"key"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	TTLDays    int     `json:"ttl_days"`
}

// CreateTaskRequest is the input for creating a task.
type CreateTaskRequest struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Priority    model.TaskPriority `json:"priority"`
}

// Stats is a point-in-time snapshot used by report generation.
type Stats struct {
	Memories       int64 `json:"memories"`
	TasksPending   int64 `json:"tasks_pending"`
	TasksCompleted int64 `json:"tasks_completed"`
	Reports        int64 `json:"reports"`
	ChatExchanges  int64 `json:"chat_exchanges"`
}

// GatewayStore is the primary data access interface for the gateway. All
// mutations go through it as the single source of truth; readers never
// observe partial writes.
type GatewayStore interface {
	// Memories
	// Remember upserts the record for (user_id, persona, key) in a single
	// statement, so concurrent writers resolve last-writer-wins by server
	// arrival order.
	Remember(ctx context.Context, req RememberRequest) (*model.Memory, error)
	// Recall returns up to limit non-expired records for the user/persona
	// pair, most recently created first. Unknown pairs yield an empty
	// slice, not an error.
	Recall(ctx context.Context, userID, persona string, limit int) ([]model.Memory, error)
	// PurgeExpiredMemories hard-deletes records past expiry. Lazy read-time
	// exclusion is the contract; this is housekeeping and the
	// administrative purge path.
	PurgeExpiredMemories(ctx context.Context) (int64, error)

	// Tasks
	CreateTask(ctx context.Context, req CreateTaskRequest) (*model.Task, error)
	ListTasks(ctx context.Context) ([]model.Task, error)
	// SetTaskStatus sets the target status in a single UPDATE (idempotent
	// set, never a blind toggle).
	SetTaskStatus(ctx context.Context, id uuid.UUID, status model.TaskStatus) (*model.Task, error)
	DeleteTask(ctx context.Context, id uuid.UUID) error

	// Reports
	CreateReport(ctx context.Context, reportType model.ReportType, title, content string) (*model.Report, error)
	ListReports(ctx context.Context, limit int) ([]model.Report, error)
	GetReport(ctx context.Context, id uuid.UUID) (*model.Report, error)
	// TrimReports deletes all but the keep most recent reports.
	TrimReports(ctx context.Context, keep int) (int64, error)

	// Chat history
	AppendChatExchange(ctx context.Context, exchange model.ChatExchange) (*model.ChatExchange, error)
	ListChatExchanges(ctx context.Context, limit int) ([]model.ChatExchange, error)

	// Stats feeds report generation.
	Stats(ctx context.Context) (*Stats, error)
}

// Loader creates a GatewayStore from config.
type Loader func(ctx context.Context) (GatewayStore, error)

// Plugin represents a store plugin.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds a store plugin. Called from init() in plugin packages.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered store plugin names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader for the named store plugin.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown store %q; valid: %v", name, Names())
}
