package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration represents a database migration.
type Migration struct {
	Version int
	Name    string
	Up      string
}

// migrations holds all database migrations in order.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up: `
			-- Live alerts table (one row per currently firing alert)
			CREATE TABLE IF NOT EXISTS live_alerts (
				alert_id INTEGER PRIMARY KEY,
				alert_name TEXT NOT NULL,
				studio_id INTEGER NOT NULL DEFAULT 0,
				monitoring_system TEXT NOT NULL,
				source TEXT,
				service TEXT,
				object_name TEXT,
				severity INTEGER NOT NULL DEFAULT 0,
				notification_type INTEGER NOT NULL DEFAULT 0,
				notification_status INTEGER NOT NULL DEFAULT 1,
				department TEXT,
				additional_fields TEXT,
				ms_alert_id TEXT,
				total_duration INTEGER NOT NULL DEFAULT 0,
				acknowledged INTEGER NOT NULL DEFAULT 0,
				assign_status INTEGER NOT NULL DEFAULT 0,
				assigned_to_id INTEGER NOT NULL DEFAULT 0,
				assigned_to_name TEXT,
				assigned_to_username TEXT,
				assigned_to_initials TEXT,
				action_by_id INTEGER NOT NULL DEFAULT 0,
				action_by_name TEXT,
				action_by_username TEXT,
				action_by_initials TEXT,
				created_ts DATETIME NOT NULL,
				downtime_expire_ts DATETIME NOT NULL,
				snooze_expire_ts DATETIME NOT NULL,
				handle_expire_ts DATETIME NOT NULL
			);

			-- Notification records (one row per alert id, survives resolution)
			CREATE TABLE IF NOT EXISTS notifications (
				id INTEGER PRIMARY KEY,
				name TEXT NOT NULL,
				studio_id INTEGER NOT NULL DEFAULT 0,
				monitoring_system TEXT NOT NULL,
				source TEXT,
				object_name TEXT,
				service TEXT,
				severity INTEGER NOT NULL DEFAULT 0,
				department TEXT,
				output TEXT,
				additional_fields TEXT,
				additional_urls TEXT,
				actions TEXT,
				description TEXT,
				ms_alert_id TEXT,
				recipient_id TEXT,
				assigned_to_id INTEGER NOT NULL DEFAULT 0,
				assigned_to_name TEXT,
				assigned_to_username TEXT,
				assigned_to_initials TEXT,
				action_by_id INTEGER NOT NULL DEFAULT 0,
				action_by_name TEXT,
				action_by_username TEXT,
				action_by_initials TEXT,
				image TEXT,
				total_duration INTEGER NOT NULL DEFAULT 0,
				notification_status INTEGER NOT NULL DEFAULT 1,
				assign_status INTEGER NOT NULL DEFAULT 0,
				snooze_expire_ts DATETIME NOT NULL,
				sticky INTEGER NOT NULL DEFAULT 0,
				procedure_id INTEGER NOT NULL DEFAULT 0,
				last_update_ts DATETIME NOT NULL,
				last_create_ts DATETIME NOT NULL
			);

			-- Append-only history ledger
			CREATE TABLE IF NOT EXISTS notification_history (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				alert_id INTEGER NOT NULL,
				action TEXT NOT NULL,
				output TEXT,
				comment TEXT,
				created_ts DATETIME NOT NULL
			);

			-- Per-alert action counters
			CREATE TABLE IF NOT EXISTS statistics (
				alert_id INTEGER PRIMARY KEY,
				"close" INTEGER NOT NULL DEFAULT 0,
				"create" INTEGER NOT NULL DEFAULT 0,
				"reopen" INTEGER NOT NULL DEFAULT 0,
				"update" INTEGER NOT NULL DEFAULT 0,
				"change_severity" INTEGER NOT NULL DEFAULT 0,
				"snooze" INTEGER NOT NULL DEFAULT 0,
				"acknowledge" INTEGER NOT NULL DEFAULT 0,
				"assign" INTEGER NOT NULL DEFAULT 0,
				update_ts DATETIME NOT NULL
			);

			-- Assignment routing detail (at most one row per alert id)
			CREATE TABLE IF NOT EXISTS assign (
				alert_id INTEGER PRIMARY KEY,
				notification_type INTEGER NOT NULL DEFAULT 0,
				notification_fields TEXT,
				description TEXT,
				resubmit INTEGER NOT NULL DEFAULT 0,
				sticky INTEGER NOT NULL DEFAULT 0,
				recipient_id TEXT,
				notification_count INTEGER NOT NULL DEFAULT 0,
				time_to DATETIME NOT NULL,
				create_ts DATETIME NOT NULL
			);

			-- Operator action audit trail
			CREATE TABLE IF NOT EXISTS actions_audit (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				obj_type TEXT NOT NULL,
				obj_id INTEGER NOT NULL,
				username TEXT NOT NULL,
				comment TEXT,
				notes TEXT,
				created_ts DATETIME NOT NULL
			);

			-- Indexes
			CREATE INDEX IF NOT EXISTS idx_live_alerts_source ON live_alerts(source);
			CREATE INDEX IF NOT EXISTS idx_live_alerts_object ON live_alerts(object_name);
			CREATE INDEX IF NOT EXISTS idx_notifications_source ON notifications(source);
			CREATE INDEX IF NOT EXISTS idx_notifications_object ON notifications(object_name);
			CREATE INDEX IF NOT EXISTS idx_notifications_studio ON notifications(studio_id);
			CREATE INDEX IF NOT EXISTS idx_history_alert ON notification_history(alert_id);
			CREATE INDEX IF NOT EXISTS idx_history_created ON notification_history(created_ts);
			CREATE INDEX IF NOT EXISTS idx_audit_obj ON actions_audit(obj_type, obj_id);
		`,
	},
}

// runMigrations applies all pending migrations.
func runMigrations(db *sql.DB) error {
	// Create migrations table if not exists
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	// Apply pending migrations
	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}

		// Run migration in transaction
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction for migration %d: %w", m.Version, err)
		}

		_, err = tx.Exec(m.Up)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d (%s): %w", m.Version, m.Name, err)
		}

		_, err = tx.Exec(
			"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Name, time.Now(),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}
