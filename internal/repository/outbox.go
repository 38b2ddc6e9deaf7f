package repository

import (
	"context"
	"database/sql"
	"time"
)

type AuditTaskStatus string

const (
	AuditTaskStatusCreated        AuditTaskStatus = "CREATED"
	AuditTaskStatusProcessing     AuditTaskStatus = "PROCESSING"
	AuditTaskStatusFailed         AuditTaskStatus = "FAILED"
	AuditTaskStatusNoAttemptsLeft AuditTaskStatus = "NO_ATTEMPTS_LEFT"
)

// AuditTask — запись outbox с событием для публикации в Kafka.
type AuditTask struct {
	ID            int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
	FinishedAt    sql.NullTime
	EventData     []byte
	Status        AuditTaskStatus
	AttemptCount  int
	NextAttemptAt sql.NullTime
}

type AuditTaskRepository interface {
	CreateTask(ctx context.Context, eventData []byte) error
	GetPendingTasks(ctx context.Context, limit, maxAttempts int) ([]*AuditTask, error)
	MarkTaskProcessing(ctx context.Context, taskID int64) error
	DeleteTask(ctx context.Context, taskID int64) error
	UpdateTaskFailure(ctx context.Context, taskID int64, attemptCount int, newStatus AuditTaskStatus, nextAttemptAt time.Time) error
}

type PostgresAuditTaskRepository struct {
	db *sql.DB
}

func NewPostgresAuditTaskRepository(db *sql.DB) *PostgresAuditTaskRepository {
	return &PostgresAuditTaskRepository{db: db}
}

func (r *PostgresAuditTaskRepository) CreateTask(ctx context.Context, eventData []byte) error {
	query := `
		INSERT INTO audit_tasks (created_at, updated_at, event_data, status, attempt_count)
		VALUES (NOW(), NOW(), $1, $2, 0)
	`
	_, err := r.db.ExecContext(ctx, query, eventData, AuditTaskStatusCreated)
	return err
}

func (r *PostgresAuditTaskRepository) GetPendingTasks(ctx context.Context, limit, maxAttempts int) ([]*AuditTask, error) {
	query := `
		SELECT id, created_at, updated_at, finished_at, event_data, status, attempt_count, next_attempt_at
		FROM audit_tasks
		WHERE status IN ($1, $2)
		  AND (next_attempt_at IS NULL OR next_attempt_at <= NOW())
		  AND attempt_count < $3
		ORDER BY created_at
		LIMIT $4
	`
	rows, err := r.db.QueryContext(ctx, query, AuditTaskStatusCreated, AuditTaskStatusFailed, maxAttempts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tasks []*AuditTask
	for rows.Next() {
		t := &AuditTask{}
		if err := rows.Scan(&t.ID, &t.CreatedAt,
			&t.UpdatedAt, &t.FinishedAt,
			&t.EventData, &t.Status,
			&t.AttemptCount, &t.NextAttemptAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *PostgresAuditTaskRepository) MarkTaskProcessing(ctx context.Context, taskID int64) error {
	query := `
		UPDATE audit_tasks SET status = $1, updated_at = NOW()
		WHERE id = $2
	`
	_, err := r.db.ExecContext(ctx, query, AuditTaskStatusProcessing, taskID)
	return err
}

func (r *PostgresAuditTaskRepository) DeleteTask(ctx context.Context, taskID int64) error {
	query := `DELETE FROM audit_tasks WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, taskID)
	return err
}

func (r *PostgresAuditTaskRepository) UpdateTaskFailure(ctx context.Context, taskID int64, attemptCount int, newStatus AuditTaskStatus, nextAttemptAt time.Time) error {
	query := `
		UPDATE audit_tasks
		SET status = $1, attempt_count = $2, updated_at = NOW(), next_attempt_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, newStatus, attemptCount, nextAttemptAt, taskID)
	return err
}

var _ AuditTaskRepository = (*PostgresAuditTaskRepository)(nil)
