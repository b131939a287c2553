package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/good-yellow-bee/alertops/internal/models"
)

type sqliteAssignmentRepo struct {
	db *sql.DB
}

func (r *sqliteAssignmentRepo) Get(ctx context.Context, alertID int64) (*models.Assignment, error) {
	a := &models.Assignment{}
	var notificationFields, description, recipientID sql.NullString
	var timeTo, createTS string

	err := r.db.QueryRowContext(ctx, `
		SELECT alert_id, notification_type, notification_fields, description,
			resubmit, sticky, recipient_id, notification_count, time_to, create_ts
		FROM assign WHERE alert_id = ?
	`, alertID).Scan(
		&a.AlertID, &a.NotificationType, &notificationFields, &description,
		&a.Resubmit, &a.Sticky, &recipientID, &a.NotificationCount, &timeTo, &createTS,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan assignment: %w", err)
	}

	a.NotificationFields = notificationFields.String
	a.Description = description.String
	a.RecipientID = recipientID.String
	a.TimeTo = scanTime(timeTo)
	a.CreateTS = scanTime(createTS)
	return a, nil
}

func (r *sqliteAssignmentRepo) Replace(ctx context.Context, a *models.Assignment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace assignment: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM assign WHERE alert_id = ?", a.AlertID); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear prior assignment: %w", err)
	}

	ts := a.CreateTS
	if ts.IsZero() {
		ts = nowUTC()
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO assign (alert_id, notification_type, notification_fields, description,
			resubmit, sticky, recipient_id, notification_count, time_to, create_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.AlertID, a.NotificationType, a.NotificationFields, a.Description,
		a.Resubmit, a.Sticky, a.RecipientID, a.NotificationCount,
		storeTime(a.TimeTo), storeTime(ts))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("insert assignment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace assignment: %w", err)
	}
	a.CreateTS = ts
	return nil
}

func (r *sqliteAssignmentRepo) Delete(ctx context.Context, alertID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM assign WHERE alert_id = ?", alertID)
	if err != nil {
		return false, fmt.Errorf("delete assignment: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}
