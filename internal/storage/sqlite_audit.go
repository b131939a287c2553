package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/good-yellow-bee/alertops/internal/models"
)

type sqliteAuditRepo struct {
	db *sql.DB
}

func (r *sqliteAuditRepo) Create(ctx context.Context, entry *models.AuditEntry) error {
	entry.TruncateNotes()

	ts := entry.CreatedTS
	if ts.IsZero() {
		ts = nowUTC()
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO actions_audit (name, obj_type, obj_id, username, comment, notes, created_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.Name, entry.ObjType, entry.ObjID, entry.Username, entry.Comment,
		entry.Notes, storeTime(ts))
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	entry.ID, _ = result.LastInsertId()
	entry.CreatedTS = ts
	return nil
}
