package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	// Pure-Go SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/good-yellow-bee/alertops/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	path string
	db   *sql.DB

	liveAlerts    *sqliteLiveAlertRepo
	notifications *sqliteNotificationRepo
	history       *sqliteHistoryRepo
	statistics    *sqliteStatisticsRepo
	assignments   *sqliteAssignmentRepo
	audit         *sqliteAuditRepo
}

// NewSQLiteStorage creates a new SQLite storage.
func NewSQLiteStorage(path string) *SQLiteStorage {
	return &SQLiteStorage{path: path}
}

// Open initializes the database connection.
func (s *SQLiteStorage) Open() error {
	ctx := context.Background()

	db, err := sql.Open("sqlite", "file:"+s.path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	// SQLite is single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	s.db = db

	s.liveAlerts = &sqliteLiveAlertRepo{db: db}
	s.notifications = &sqliteNotificationRepo{db: db}
	s.history = &sqliteHistoryRepo{db: db}
	s.statistics = &sqliteStatisticsRepo{db: db}
	s.assignments = &sqliteAssignmentRepo{db: db}
	s.audit = &sqliteAuditRepo{db: db}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying database connection for health checks.
func (s *SQLiteStorage) DB() *sql.DB {
	return s.db
}

// Migrate runs database migrations.
func (s *SQLiteStorage) Migrate() error {
	return runMigrations(s.db)
}

// LiveAlerts returns the live alert repository.
func (s *SQLiteStorage) LiveAlerts() LiveAlertRepository {
	return s.liveAlerts
}

// Notifications returns the notification repository.
func (s *SQLiteStorage) Notifications() NotificationRepository {
	return s.notifications
}

// History returns the history ledger repository.
func (s *SQLiteStorage) History() HistoryRepository {
	return s.history
}

// Statistics returns the statistics repository.
func (s *SQLiteStorage) Statistics() StatisticsRepository {
	return s.statistics
}

// Assignments returns the assignment repository.
func (s *SQLiteStorage) Assignments() AssignmentRepository {
	return s.assignments
}

// Audit returns the audit repository.
func (s *SQLiteStorage) Audit() AuditRepository {
	return s.audit
}

// Timestamps are stored as normalized UTC strings so the schema matches
// what the downstream consumers of this database expect.

func storeTime(t time.Time) string {
	if t.IsZero() {
		return models.FormatTS(models.Epoch)
	}
	return models.FormatTS(t)
}

func joinSets(sets []string) string {
	return strings.Join(sets, ", ")
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

func scanTime(s string) time.Time {
	t, err := time.ParseInLocation(models.StoreTimeLayout, s, time.UTC)
	if err != nil {
		return models.Epoch
	}
	return t
}
