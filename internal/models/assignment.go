package models

import (
	"encoding/json"
	"time"
)

// Notification channels an assignment can route to.
const (
	NotificationChannelEmail  = 1
	NotificationChannelChat   = 2
	NotificationChannelTicket = 3
)

// Assignment is the routing record for an assigned alert: which
// notification channel to use and how. At most one row exists per alert
// while assign_status is set; creating a new one replaces any prior row
// outright.
type Assignment struct {
	AlertID            int64     `json:"alert_id"`
	NotificationType   int       `json:"notification_type"`
	NotificationFields string    `json:"-"`
	Description        string    `json:"description"`
	Resubmit           int       `json:"resubmit"`
	Sticky             int       `json:"sticky"`
	RecipientID        string    `json:"recipient_id"`
	NotificationCount  int       `json:"notification_count"`
	TimeTo             time.Time `json:"-"`
	CreateTS           time.Time `json:"-"`
}

// Render returns the assignment in its API shape, with the channel
// fields decoded and timestamps formatted for storage/display.
func (a *Assignment) Render() map[string]any {
	fields := map[string]any{}
	if a.NotificationFields != "" {
		_ = json.Unmarshal([]byte(a.NotificationFields), &fields)
	}
	return map[string]any{
		"alert_id":            a.AlertID,
		"notification_type":   a.NotificationType,
		"notification_fields": fields,
		"description":         a.Description,
		"resubmit":            a.Resubmit,
		"sticky":              a.Sticky,
		"recipient_id":        a.RecipientID,
		"notification_count":  a.NotificationCount,
		"time_to":             FormatTS(a.TimeTo),
		"create_ts":           FormatTS(a.CreateTS),
	}
}

// StickyMask encodes the snooze/assign sticky policy. The two
// contributing values are 2 and 3 rather than independent powers of
// two; downstream consumers depend on the exact stored values, so the
// encoding must not be changed.
func StickyMask(stickySeverity, stickyOutput bool) int {
	mask := 0
	if stickySeverity {
		mask += 2
	}
	if stickyOutput {
		mask += 3
	}
	return mask
}
