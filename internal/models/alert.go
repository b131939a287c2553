// Package models contains the core data structures for the alert
// actions service.
package models

import "time"

// LiveAlert is the mutable "currently active" record for an alert.
// Exactly one row exists per active alert identifier; expiry timestamps
// use the Epoch sentinel to mean "not set".
type LiveAlert struct {
	AlertID            int64     `json:"alert_id"`
	AlertName          string    `json:"alert_name"`
	StudioID           int64     `json:"studio"`
	MonitoringSystem   string    `json:"ms"`
	Source             string    `json:"source"`
	Service            string    `json:"service"`
	ObjectName         string    `json:"object_name"`
	Severity           int       `json:"severity"`
	NotificationType   int       `json:"notification_type"`
	NotificationStatus int       `json:"notification_status"`
	Department         string    `json:"department"`
	AdditionalFields   string    `json:"additional_fields,omitempty"`
	MSAlertID          string    `json:"ms_alert_id,omitempty"`
	TotalDuration      int64     `json:"total_duration"`
	Acknowledged       int       `json:"acknowledged"`
	AssignStatus       int       `json:"assign_status"`
	AssignedTo         Actor     `json:"assigned_to"`
	ActionBy           Actor     `json:"action_by"`
	CreatedTS          time.Time `json:"created_ts"`
	DowntimeExpireTS   time.Time `json:"downtime_expire_ts"`
	SnoozeExpireTS     time.Time `json:"snooze_expire_ts"`
	HandleExpireTS     time.Time `json:"handle_expire_ts"`
}

// LiveAlertUpdate carries the fields an action may change on a live
// alert. Nil pointers leave the stored value untouched.
type LiveAlertUpdate struct {
	NotificationStatus *int
	Acknowledged       *int
	AssignStatus       *int
	SnoozeExpireTS     *time.Time
	HandleExpireTS     *time.Time
	AssignedTo         *Actor
	ActionBy           *Actor
}
