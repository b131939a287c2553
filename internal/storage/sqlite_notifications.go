package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/good-yellow-bee/alertops/internal/models"
)

type sqliteNotificationRepo struct {
	db *sql.DB
}

const notificationColumns = `id, name, studio_id, monitoring_system, source, object_name, service,
	severity, department, output, additional_fields, additional_urls, actions,
	description, ms_alert_id, recipient_id,
	assigned_to_id, assigned_to_name, assigned_to_username, assigned_to_initials,
	action_by_id, action_by_name, action_by_username, action_by_initials,
	image, total_duration, notification_status, assign_status, snooze_expire_ts,
	sticky, procedure_id, last_update_ts, last_create_ts`

// defaultSearchLimit caps unbounded history searches.
const defaultSearchLimit = 100

func (r *sqliteNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (` + notificationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		n.ID, n.Name, n.StudioID, n.MonitoringSystem, n.Source, n.ObjectName, n.Service,
		n.Severity, n.Department, n.Output, n.AdditionalFields, n.AdditionalURLs, n.Actions,
		n.Description, n.MSAlertID, n.RecipientID,
		n.AssignedTo.ID, n.AssignedTo.FullName, n.AssignedTo.Username, n.AssignedTo.Initials,
		n.ActionBy.ID, n.ActionBy.FullName, n.ActionBy.Username, n.ActionBy.Initials,
		n.Image, n.TotalDuration, n.NotificationStatus, n.AssignStatus, storeTime(n.SnoozeExpireTS),
		n.Sticky, n.ProcedureID, storeTime(n.LastUpdateTS), storeTime(n.LastCreateTS),
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *sqliteNotificationRepo) GetByID(ctx context.Context, id int64) (*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = ?`
	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("query notification: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	return r.scanNotification(rows)
}

func (r *sqliteNotificationRepo) Update(ctx context.Context, id int64, upd models.NotificationUpdate) error {
	sets := []string{"last_update_ts = ?"}
	args := []interface{}{storeTime(nowUTC())}

	if upd.NotificationStatus != nil {
		sets = append(sets, "notification_status = ?")
		args = append(args, *upd.NotificationStatus)
	}
	if upd.AssignStatus != nil {
		sets = append(sets, "assign_status = ?")
		args = append(args, *upd.AssignStatus)
	}
	if upd.SnoozeExpireTS != nil {
		sets = append(sets, "snooze_expire_ts = ?")
		args = append(args, storeTime(*upd.SnoozeExpireTS))
	}
	if upd.Sticky != nil {
		sets = append(sets, "sticky = ?")
		args = append(args, *upd.Sticky)
	}
	if upd.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *upd.Description)
	}
	if upd.ProcedureID != nil {
		sets = append(sets, "procedure_id = ?")
		args = append(args, *upd.ProcedureID)
	}
	if upd.AssignedTo != nil {
		sets = append(sets,
			"assigned_to_id = ?", "assigned_to_name = ?",
			"assigned_to_username = ?", "assigned_to_initials = ?")
		args = append(args, upd.AssignedTo.ID, upd.AssignedTo.FullName,
			upd.AssignedTo.Username, upd.AssignedTo.Initials)
	}
	if upd.ActionBy != nil {
		sets = append(sets,
			"action_by_id = ?", "action_by_name = ?",
			"action_by_username = ?", "action_by_initials = ?")
		args = append(args, upd.ActionBy.ID, upd.ActionBy.FullName,
			upd.ActionBy.Username, upd.ActionBy.Initials)
	}

	query := "UPDATE notifications SET " + joinSets(sets) + " WHERE id = ?"
	args = append(args, id)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update notification: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("notification %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *sqliteNotificationRepo) ActiveBySource(ctx context.Context, source string) ([]*models.Notification, error) {
	query := `
		SELECT ` + notificationColumns + ` FROM notifications
		WHERE id IN (SELECT alert_id FROM live_alerts) AND source = ?
		ORDER BY id
	`
	return r.queryNotifications(ctx, query, source)
}

func (r *sqliteNotificationRepo) ActiveByObject(ctx context.Context, object string) ([]*models.Notification, error) {
	query := `
		SELECT ` + notificationColumns + ` FROM notifications
		WHERE id IN (SELECT alert_id FROM live_alerts) AND object_name = ?
		ORDER BY id
	`
	return r.queryNotifications(ctx, query, object)
}

func (r *sqliteNotificationRepo) Search(ctx context.Context, filter HistorySearch) ([]*models.Notification, error) {
	conds := []string{}
	args := []interface{}{}

	// The window is deliberately asymmetric: anything still updating
	// after `from` matches, as long as it first fired before `to`.
	if !filter.From.IsZero() {
		conds = append(conds, "last_update_ts >= ?")
		args = append(args, storeTime(filter.From))
	}
	if !filter.To.IsZero() {
		conds = append(conds, "last_create_ts <= ?")
		args = append(args, storeTime(filter.To))
	}
	if len(filter.EnvironmentIDs) > 0 {
		placeholders := make([]string, len(filter.EnvironmentIDs))
		for i, id := range filter.EnvironmentIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		conds = append(conds, "studio_id IN ("+joinSets(placeholders)+")")
	}
	if filter.MonitoringSystem != "" {
		conds = append(conds, "monitoring_system = ?")
		args = append(args, filter.MonitoringSystem)
	}
	if filter.Service != "" {
		conds = append(conds, "service = ?")
		args = append(args, filter.Service)
	}
	if filter.Source != "" {
		conds = append(conds, "source = ?")
		args = append(args, filter.Source)
	}
	if filter.Name != "" {
		conds = append(conds, "name LIKE ?")
		args = append(args, "%"+filter.Name+"%")
	}
	if filter.Object != "" {
		conds = append(conds, "object_name LIKE ?")
		args = append(args, "%"+filter.Object+"%")
	}
	if filter.Pattern != "" {
		conds = append(conds, "(name LIKE ? OR object_name LIKE ? OR output LIKE ?)")
		pat := "%" + filter.Pattern + "%"
		args = append(args, pat, pat, pat)
	}
	if filter.ProcedureID != 0 {
		conds = append(conds, "procedure_id = ?")
		args = append(args, filter.ProcedureID)
	}

	query := `SELECT ` + notificationColumns + ` FROM notifications`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 || limit > defaultSearchLimit {
		limit = defaultSearchLimit
	}
	query += " ORDER BY last_update_ts DESC LIMIT ?"
	args = append(args, limit)

	return r.queryNotifications(ctx, query, args...)
}

func (r *sqliteNotificationRepo) queryNotifications(ctx context.Context, query string, args ...interface{}) ([]*models.Notification, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var list []*models.Notification
	for rows.Next() {
		n, err := r.scanNotification(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

func (r *sqliteNotificationRepo) scanNotification(rows *sql.Rows) (*models.Notification, error) {
	n := &models.Notification{}
	var source, objectName, service, department sql.NullString
	var output, additionalFields, additionalURLs, actions sql.NullString
	var description, msAlertID, recipientID, image sql.NullString
	var assignedToName, assignedToUsername, assignedToInitials sql.NullString
	var actionByName, actionByUsername, actionByInitials sql.NullString
	var snoozeTS, lastUpdateTS, lastCreateTS string

	err := rows.Scan(
		&n.ID, &n.Name, &n.StudioID, &n.MonitoringSystem, &source, &objectName, &service,
		&n.Severity, &department, &output, &additionalFields, &additionalURLs, &actions,
		&description, &msAlertID, &recipientID,
		&n.AssignedTo.ID, &assignedToName, &assignedToUsername, &assignedToInitials,
		&n.ActionBy.ID, &actionByName, &actionByUsername, &actionByInitials,
		&image, &n.TotalDuration, &n.NotificationStatus, &n.AssignStatus, &snoozeTS,
		&n.Sticky, &n.ProcedureID, &lastUpdateTS, &lastCreateTS,
	)
	if err != nil {
		return nil, fmt.Errorf("scan notification: %w", err)
	}

	n.Source = source.String
	n.ObjectName = objectName.String
	n.Service = service.String
	n.Department = department.String
	n.Output = output.String
	n.AdditionalFields = additionalFields.String
	n.AdditionalURLs = additionalURLs.String
	n.Actions = actions.String
	n.Description = description.String
	n.MSAlertID = msAlertID.String
	n.RecipientID = recipientID.String
	n.Image = image.String
	n.AssignedTo.FullName = assignedToName.String
	n.AssignedTo.Username = assignedToUsername.String
	n.AssignedTo.Initials = assignedToInitials.String
	n.ActionBy.FullName = actionByName.String
	n.ActionBy.Username = actionByUsername.String
	n.ActionBy.Initials = actionByInitials.String
	n.SnoozeExpireTS = scanTime(snoozeTS)
	n.LastUpdateTS = scanTime(lastUpdateTS)
	n.LastCreateTS = scanTime(lastCreateTS)

	return n, nil
}
