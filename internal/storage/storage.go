// Package storage provides database storage interfaces and implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/good-yellow-bee/alertops/internal/models"
)

// ErrNotFound marks expected absence on operations where the caller
// must branch on it, as opposed to an unexpected store failure.
var ErrNotFound = errors.New("not found")

// Storage is the main interface for database operations.
type Storage interface {
	// Open initializes the database connection.
	Open() error
	// Close closes the database connection.
	Close() error
	// Migrate runs database migrations.
	Migrate() error

	// Repository accessors
	LiveAlerts() LiveAlertRepository
	Notifications() NotificationRepository
	History() HistoryRepository
	Statistics() StatisticsRepository
	Assignments() AssignmentRepository
	Audit() AuditRepository
}

// LiveAlertRepository manages the mutable per-alert live rows.
type LiveAlertRepository interface {
	Create(ctx context.Context, alert *models.LiveAlert) error
	GetByID(ctx context.Context, alertID int64) (*models.LiveAlert, error)
	Update(ctx context.Context, alertID int64, upd models.LiveAlertUpdate) error
	Delete(ctx context.Context, alertID int64) error
}

// HistorySearch filters the multi-alert notification history search.
// Zero values disable the corresponding filter.
type HistorySearch struct {
	From             time.Time
	To               time.Time
	EnvironmentIDs   []int64
	MonitoringSystem string
	Service          string
	Source           string
	Name             string
	Object           string
	Pattern          string
	ProcedureID      int64
	Limit            int
}

// NotificationRepository manages the canonical notification records.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	GetByID(ctx context.Context, id int64) (*models.Notification, error)
	Update(ctx context.Context, id int64, upd models.NotificationUpdate) error
	ActiveBySource(ctx context.Context, source string) ([]*models.Notification, error)
	ActiveByObject(ctx context.Context, object string) ([]*models.Notification, error)
	Search(ctx context.Context, filter HistorySearch) ([]*models.Notification, error)
}

// HistoryRepository is the append-only per-alert event ledger. Rows are
// never updated or deleted once written.
type HistoryRepository interface {
	Append(ctx context.Context, event *models.HistoryEvent) error
	ListWindow(ctx context.Context, alertID int64, from, to time.Time) ([]*models.HistoryEvent, error)
}

// StatisticsRepository manages per-alert action counters.
type StatisticsRepository interface {
	Create(ctx context.Context, stats *models.Statistics) error
	Get(ctx context.Context, alertID int64) (*models.Statistics, error)
	// Increment adds one to the given counter. A missing row is a
	// silent no-op: counter rows are provisioned by ingestion, never
	// as a side effect of an action.
	Increment(ctx context.Context, alertID int64, field models.CounterField) error
}

// AssignmentRepository manages routing records for assigned alerts.
type AssignmentRepository interface {
	Get(ctx context.Context, alertID int64) (*models.Assignment, error)
	// Replace deletes any prior assignment for the alert and inserts
	// the new one (replace-not-merge semantics).
	Replace(ctx context.Context, a *models.Assignment) error
	// Delete removes the assignment row and reports whether one
	// existed.
	Delete(ctx context.Context, alertID int64) (bool, error)
}

// AuditRepository appends operator-facing audit entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditEntry) error
}
