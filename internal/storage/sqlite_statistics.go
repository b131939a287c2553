package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/good-yellow-bee/alertops/internal/models"
)

type sqliteStatisticsRepo struct {
	db *sql.DB
}

// counterColumns maps counter fields to schema columns. Increment must
// never interpolate caller input directly into SQL.
var counterColumns = map[models.CounterField]string{
	models.CounterClose:          `"close"`,
	models.CounterCreate:         `"create"`,
	models.CounterReopen:         `"reopen"`,
	models.CounterUpdate:         `"update"`,
	models.CounterChangeSeverity: `"change_severity"`,
	models.CounterSnooze:         `"snooze"`,
	models.CounterAcknowledge:    `"acknowledge"`,
	models.CounterAssign:         `"assign"`,
}

func (r *sqliteStatisticsRepo) Create(ctx context.Context, stats *models.Statistics) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO statistics (alert_id, "close", "create", "reopen", "update",
			"change_severity", "snooze", "acknowledge", "assign", update_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, stats.AlertID, stats.Close, stats.Create, stats.Reopen, stats.Update,
		stats.ChangeSeverity, stats.Snooze, stats.Acknowledge, stats.Assign,
		storeTime(nowUTC()))
	if err != nil {
		return fmt.Errorf("insert statistics: %w", err)
	}
	return nil
}

func (r *sqliteStatisticsRepo) Get(ctx context.Context, alertID int64) (*models.Statistics, error) {
	stats := &models.Statistics{}
	var updateTS string

	err := r.db.QueryRowContext(ctx, `
		SELECT alert_id, "close", "create", "reopen", "update",
			"change_severity", "snooze", "acknowledge", "assign", update_ts
		FROM statistics WHERE alert_id = ?
	`, alertID).Scan(
		&stats.AlertID, &stats.Close, &stats.Create, &stats.Reopen, &stats.Update,
		&stats.ChangeSeverity, &stats.Snooze, &stats.Acknowledge, &stats.Assign,
		&updateTS,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan statistics: %w", err)
	}
	stats.UpdateTS = scanTime(updateTS)
	return stats, nil
}

func (r *sqliteStatisticsRepo) Increment(ctx context.Context, alertID int64, field models.CounterField) error {
	column, ok := counterColumns[field]
	if !ok {
		return fmt.Errorf("unknown counter field %q", field)
	}

	// A missing row is deliberately not an error: counter rows are
	// provisioned at ingestion time, and an action against an alert
	// that was never counted simply leaves no trace here.
	_, err := r.db.ExecContext(ctx,
		"UPDATE statistics SET "+column+" = "+column+" + 1, update_ts = ? WHERE alert_id = ?",
		storeTime(nowUTC()), alertID,
	)
	if err != nil {
		return fmt.Errorf("increment statistics %s: %w", field, err)
	}
	return nil
}
