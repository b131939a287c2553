package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/good-yellow-bee/alertops/internal/models"
)

type sqliteHistoryRepo struct {
	db *sql.DB
}

func (r *sqliteHistoryRepo) Append(ctx context.Context, event *models.HistoryEvent) error {
	var comment interface{}
	if event.Comment != nil {
		data, err := json.Marshal(event.Comment)
		if err != nil {
			return fmt.Errorf("marshal history comment: %w", err)
		}
		comment = string(data)
	}

	ts := event.CreatedTS
	if ts.IsZero() {
		ts = nowUTC()
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO notification_history (alert_id, action, output, comment, created_ts)
		VALUES (?, ?, ?, ?, ?)
	`, event.AlertID, event.Action, event.Output, comment, storeTime(ts))
	if err != nil {
		return fmt.Errorf("insert history event: %w", err)
	}
	event.ID, _ = result.LastInsertId()
	event.CreatedTS = ts
	return nil
}

func (r *sqliteHistoryRepo) ListWindow(ctx context.Context, alertID int64, from, to time.Time) ([]*models.HistoryEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, alert_id, action, output, comment, created_ts
		FROM notification_history
		WHERE alert_id = ? AND created_ts >= ? AND created_ts <= ?
		ORDER BY created_ts DESC, id DESC
	`, alertID, storeTime(from), storeTime(to))
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var events []*models.HistoryEvent
	for rows.Next() {
		event := &models.HistoryEvent{}
		var output, comment sql.NullString
		var createdTS string

		if err := rows.Scan(&event.ID, &event.AlertID, &event.Action, &output, &comment, &createdTS); err != nil {
			return nil, fmt.Errorf("scan history event: %w", err)
		}
		event.Output = output.String
		event.CreatedTS = scanTime(createdTS)

		if comment.Valid && comment.String != "" {
			ec := &models.EventComment{}
			if err := json.Unmarshal([]byte(comment.String), ec); err == nil {
				event.Comment = ec
			}
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
