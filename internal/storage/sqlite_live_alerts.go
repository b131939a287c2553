package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/good-yellow-bee/alertops/internal/models"
)

type sqliteLiveAlertRepo struct {
	db *sql.DB
}

const liveAlertColumns = `alert_id, alert_name, studio_id, monitoring_system, source, service,
	object_name, severity, notification_type, notification_status, department,
	additional_fields, ms_alert_id, total_duration, acknowledged, assign_status,
	assigned_to_id, assigned_to_name, assigned_to_username, assigned_to_initials,
	action_by_id, action_by_name, action_by_username, action_by_initials,
	created_ts, downtime_expire_ts, snooze_expire_ts, handle_expire_ts`

func (r *sqliteLiveAlertRepo) Create(ctx context.Context, alert *models.LiveAlert) error {
	query := `
		INSERT INTO live_alerts (` + liveAlertColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		alert.AlertID, alert.AlertName, alert.StudioID, alert.MonitoringSystem,
		alert.Source, alert.Service, alert.ObjectName, alert.Severity,
		alert.NotificationType, alert.NotificationStatus, alert.Department,
		alert.AdditionalFields, alert.MSAlertID, alert.TotalDuration,
		alert.Acknowledged, alert.AssignStatus,
		alert.AssignedTo.ID, alert.AssignedTo.FullName, alert.AssignedTo.Username, alert.AssignedTo.Initials,
		alert.ActionBy.ID, alert.ActionBy.FullName, alert.ActionBy.Username, alert.ActionBy.Initials,
		storeTime(alert.CreatedTS), storeTime(alert.DowntimeExpireTS),
		storeTime(alert.SnoozeExpireTS), storeTime(alert.HandleExpireTS),
	)
	if err != nil {
		return fmt.Errorf("insert live alert: %w", err)
	}
	return nil
}

func (r *sqliteLiveAlertRepo) GetByID(ctx context.Context, alertID int64) (*models.LiveAlert, error) {
	query := `SELECT ` + liveAlertColumns + ` FROM live_alerts WHERE alert_id = ?`
	return r.scanLiveAlert(r.db.QueryRowContext(ctx, query, alertID))
}

func (r *sqliteLiveAlertRepo) Update(ctx context.Context, alertID int64, upd models.LiveAlertUpdate) error {
	sets := []string{}
	args := []interface{}{}

	if upd.NotificationStatus != nil {
		sets = append(sets, "notification_status = ?")
		args = append(args, *upd.NotificationStatus)
	}
	if upd.Acknowledged != nil {
		sets = append(sets, "acknowledged = ?")
		args = append(args, *upd.Acknowledged)
	}
	if upd.AssignStatus != nil {
		sets = append(sets, "assign_status = ?")
		args = append(args, *upd.AssignStatus)
	}
	if upd.SnoozeExpireTS != nil {
		sets = append(sets, "snooze_expire_ts = ?")
		args = append(args, storeTime(*upd.SnoozeExpireTS))
	}
	if upd.HandleExpireTS != nil {
		sets = append(sets, "handle_expire_ts = ?")
		args = append(args, storeTime(*upd.HandleExpireTS))
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
	if len(sets) == 0 {
		return nil
	}

	query := "UPDATE live_alerts SET " + joinSets(sets) + " WHERE alert_id = ?"
	args = append(args, alertID)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update live alert: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("live alert %d: %w", alertID, ErrNotFound)
	}
	return nil
}

func (r *sqliteLiveAlertRepo) Delete(ctx context.Context, alertID int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM live_alerts WHERE alert_id = ?", alertID)
	if err != nil {
		return fmt.Errorf("delete live alert: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("live alert %d: %w", alertID, ErrNotFound)
	}
	return nil
}

func (r *sqliteLiveAlertRepo) scanLiveAlert(row *sql.Row) (*models.LiveAlert, error) {
	alert := &models.LiveAlert{}
	var source, service, objectName, department, additionalFields, msAlertID sql.NullString
	var assignedToName, assignedToUsername, assignedToInitials sql.NullString
	var actionByName, actionByUsername, actionByInitials sql.NullString
	var createdTS, downtimeTS, snoozeTS, handleTS string

	err := row.Scan(
		&alert.AlertID, &alert.AlertName, &alert.StudioID, &alert.MonitoringSystem,
		&source, &service, &objectName, &alert.Severity,
		&alert.NotificationType, &alert.NotificationStatus, &department,
		&additionalFields, &msAlertID, &alert.TotalDuration,
		&alert.Acknowledged, &alert.AssignStatus,
		&alert.AssignedTo.ID, &assignedToName, &assignedToUsername, &assignedToInitials,
		&alert.ActionBy.ID, &actionByName, &actionByUsername, &actionByInitials,
		&createdTS, &downtimeTS, &snoozeTS, &handleTS,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan live alert: %w", err)
	}

	alert.Source = source.String
	alert.Service = service.String
	alert.ObjectName = objectName.String
	alert.Department = department.String
	alert.AdditionalFields = additionalFields.String
	alert.MSAlertID = msAlertID.String
	alert.AssignedTo.FullName = assignedToName.String
	alert.AssignedTo.Username = assignedToUsername.String
	alert.AssignedTo.Initials = assignedToInitials.String
	alert.ActionBy.FullName = actionByName.String
	alert.ActionBy.Username = actionByUsername.String
	alert.ActionBy.Initials = actionByInitials.String
	alert.CreatedTS = scanTime(createdTS)
	alert.DowntimeExpireTS = scanTime(downtimeTS)
	alert.SnoozeExpireTS = scanTime(snoozeTS)
	alert.HandleExpireTS = scanTime(handleTS)

	return alert, nil
}
