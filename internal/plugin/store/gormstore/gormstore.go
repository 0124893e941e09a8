// Package gormstore implements GatewayStore on top of a GORM database
// handle. The sqlite and postgres plugins wrap it with their own
// dialector and migrations; all query logic lives here so both backends
// stay behaviorally identical.
package gormstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/onlymatt/gateway/internal/model"
	registrystore "github.com/onlymatt/gateway/internal/registry/store"
	"github.com/onlymatt/gateway/internal/security"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultRecallLimit  = 20
	defaultReportsLimit = 10
	defaultHistoryLimit = 50
)

// Store implements registrystore.GatewayStore over *gorm.DB.
type Store struct {
	db *gorm.DB

	// isConflict classifies a driver error as a uniqueness violation.
	// Optional; backends that can't classify leave it nil.
	isConflict func(error) bool
}

// New creates a Store over the given database handle.
func New(db *gorm.DB, isConflict func(error) bool) *Store {
	return &Store{db: db, isConflict: isConflict}
}

func track(op string) func() {
	start := time.Now()
	return func() { security.ObserveStoreLatency(op, time.Since(start)) }
}

// --- Memories ---

func validateRemember(req registrystore.RememberRequest) error {
	if strings.TrimSpace(req.UserID) == "" {
		return &registrystore.ValidationError{Field: "user_id", Message: "must not be empty"}
	}
	if strings.TrimSpace(req.Persona) == "" {
		return &registrystore.ValidationError{Field: "persona", Message: "must not be empty"}
	}
	if strings.TrimSpace(req.Key) == "" {
		return &registrystore.ValidationError{Field: "key", Message: "must not be empty"}
	}
	if req.Value == "" {
		return &registrystore.ValidationError{Field: "value", Message: "must not be empty"}
	}
	if req.Confidence < 0 || req.Confidence > 1 {
		return &registrystore.ValidationError{Field: "confidence", Message: "must be between 0 and 1"}
	}
	if req.TTLDays < 0 {
		return &registrystore.ValidationError{Field: "ttl_days", Message: "must not be negative"}
	}
	return nil
}

func (s *Store) Remember(ctx context.Context, req registrystore.RememberRequest) (*model.Memory, error) {
	defer track("remember")()
	if err := validateRemember(req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	// ttl_days of 0 expires the record at creation time. It is written
	// anyway so the purge path sees it, but no recall ever returns it.
	rec := model.Memory{
		UserID:     req.UserID,
		Persona:    req.Persona,
		Key:        req.Key,
		Value:      req.Value,
		Confidence: req.Confidence,
		CreatedAt:  now,
		ExpiresAt:  now.AddDate(0, 0, req.TTLDays),
	}

	// Single-statement upsert. Concurrent writers for the same
	// (user_id, persona, key) resolve last-writer-wins by arrival order
	// at the database, never as a duplicate-key failure.
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "persona"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"value", "confidence", "created_at", "expires_at",
		}),
	}).Create(&rec).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert memory: %w", err)
	}
	return &rec, nil
}

func (s *Store) Recall(ctx context.Context, userID, persona string, limit int) ([]model.Memory, error) {
	defer track("recall")()
	if strings.TrimSpace(userID) == "" {
		return nil, &registrystore.ValidationError{Field: "user_id", Message: "must not be empty"}
	}
	if strings.TrimSpace(persona) == "" {
		return nil, &registrystore.ValidationError{Field: "persona", Message: "must not be empty"}
	}
	if limit <= 0 {
		limit = defaultRecallLimit
	}

	// Expiry is enforced at read time; the sweeper only reclaims space.
	var memories []model.Memory
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND persona = ? AND expires_at > ?", userID, persona, time.Now().UTC()).
		Order("created_at DESC").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "key"}}).
		Limit(limit).
		Find(&memories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to recall memories: %w", err)
	}
	return memories, nil
}

func (s *Store) PurgeExpiredMemories(ctx context.Context) (int64, error) {
	defer track("purge_expired")()
	result := s.db.WithContext(ctx).
		Where("expires_at <= ?", time.Now().UTC()).
		Delete(&model.Memory{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge expired memories: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// --- Tasks ---

func (s *Store) CreateTask(ctx context.Context, req registrystore.CreateTaskRequest) (*model.Task, error) {
	defer track("create_task")()
	if strings.TrimSpace(req.Title) == "" {
		return nil, &registrystore.ValidationError{Field: "title", Message: "must not be empty"}
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, &registrystore.ValidationError{Field: "description", Message: "must not be empty"}
	}
	priority := req.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !priority.Valid() {
		return nil, &registrystore.ValidationError{Field: "priority", Message: "must be low, medium, or high"}
	}

	task := model.Task{
		ID:          uuid.New(),
		Title:       req.Title,
		Description: req.Description,
		Priority:    priority,
		Status:      model.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&task).Error; err != nil {
		if s.isConflict != nil && s.isConflict(err) {
			return nil, &registrystore.ConflictError{Message: "task already exists"}
		}
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return &task, nil
}

func (s *Store) ListTasks(ctx context.Context) ([]model.Task, error) {
	defer track("list_tasks")()
	// Creation order; clients compute their own pending/completed splits.
	var tasks []model.Task
	err := s.db.WithContext(ctx).
		Order("created_at ASC").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}}).
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

func (s *Store) SetTaskStatus(ctx context.Context, id uuid.UUID, status model.TaskStatus) (*model.Task, error) {
	defer track("set_task_status")()
	if !status.Valid() {
		return nil, &registrystore.ValidationError{Field: "status", Message: "must be pending or completed"}
	}

	// Idempotent target-state write. Two concurrent updates to the same
	// task both succeed and the row ends in one of the requested states,
	// never anything else.
	result := s.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update task status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, &registrystore.NotFoundError{Resource: "task", ID: id.String()}
	}

	var task model.Task
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		return nil, fmt.Errorf("failed to reload task: %w", err)
	}
	return &task, nil
}

func (s *Store) DeleteTask(ctx context.Context, id uuid.UUID) error {
	defer track("delete_task")()
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Task{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete task: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return &registrystore.NotFoundError{Resource: "task", ID: id.String()}
	}
	return nil
}

// --- Reports ---

func (s *Store) CreateReport(ctx context.Context, reportType model.ReportType, title, content string) (*model.Report, error) {
	defer track("create_report")()
	if !reportType.Valid() {
		return nil, &registrystore.ValidationError{Field: "type", Message: "must be daily, folder, activity, or summary"}
	}
	if strings.TrimSpace(title) == "" {
		return nil, &registrystore.ValidationError{Field: "title", Message: "must not be empty"}
	}

	report := model.Report{
		ID:        uuid.New(),
		Type:      reportType,
		Title:     title,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&report).Error; err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	return &report, nil
}

func (s *Store) ListReports(ctx context.Context, limit int) ([]model.Report, error) {
	defer track("list_reports")()
	if limit <= 0 {
		limit = defaultReportsLimit
	}
	var reports []model.Report
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}}).
		Limit(limit).
		Find(&reports).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, nil
}

func (s *Store) GetReport(ctx context.Context, id uuid.UUID) (*model.Report, error) {
	defer track("get_report")()
	var report model.Report
	result := s.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&report)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get report: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, &registrystore.NotFoundError{Resource: "report", ID: id.String()}
	}
	return &report, nil
}

func (s *Store) TrimReports(ctx context.Context, keep int) (int64, error) {
	defer track("trim_reports")()
	if keep <= 0 {
		return 0, nil // retention disabled
	}
	result := s.db.WithContext(ctx).Exec(
		"DELETE FROM reports WHERE id NOT IN (SELECT id FROM reports ORDER BY created_at DESC, id LIMIT ?)",
		keep,
	)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to trim reports: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// --- Chat history ---

func (s *Store) AppendChatExchange(ctx context.Context, exchange model.ChatExchange) (*model.ChatExchange, error) {
	defer track("append_chat_exchange")()
	if strings.TrimSpace(exchange.UserMessage) == "" {
		return nil, &registrystore.ValidationError{Field: "user_message", Message: "must not be empty"}
	}
	if exchange.ID == uuid.Nil {
		exchange.ID = uuid.New()
	}
	if exchange.CreatedAt.IsZero() {
		exchange.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(&exchange).Error; err != nil {
		return nil, fmt.Errorf("failed to append chat exchange: %w", err)
	}
	return &exchange, nil
}

func (s *Store) ListChatExchanges(ctx context.Context, limit int) ([]model.ChatExchange, error) {
	defer track("list_chat_exchanges")()
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	var exchanges []model.ChatExchange
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}}).
		Limit(limit).
		Find(&exchanges).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list chat exchanges: %w", err)
	}
	return exchanges, nil
}

// --- Stats ---

func (s *Store) Stats(ctx context.Context) (*registrystore.Stats, error) {
	defer track("stats")()
	stats := &registrystore.Stats{}
	db := s.db.WithContext(ctx)

	if err := db.Model(&model.Memory{}).Where("expires_at > ?", time.Now().UTC()).Count(&stats.Memories).Error; err != nil {
		return nil, fmt.Errorf("failed to count memories: %w", err)
	}
	if err := db.Model(&model.Task{}).Where("status = ?", model.StatusPending).Count(&stats.TasksPending).Error; err != nil {
		return nil, fmt.Errorf("failed to count pending tasks: %w", err)
	}
	if err := db.Model(&model.Task{}).Where("status = ?", model.StatusCompleted).Count(&stats.TasksCompleted).Error; err != nil {
		return nil, fmt.Errorf("failed to count completed tasks: %w", err)
	}
	if err := db.Model(&model.Report{}).Count(&stats.Reports).Error; err != nil {
		return nil, fmt.Errorf("failed to count reports: %w", err)
	}
	if err := db.Model(&model.ChatExchange{}).Count(&stats.ChatExchanges).Error; err != nil {
		return nil, fmt.Errorf("failed to count chat exchanges: %w", err)
	}
	return stats, nil
}
