package models

import (
	"encoding/json"
	"time"
)

// Notification is the canonical per-alert record holding descriptive
// fields that outlive a single action cycle. Actions update it but
// never delete it; only the live-alert counterpart is removed on
// resolve.
type Notification struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	StudioID           int64     `json:"studio_id"`
	MonitoringSystem   string    `json:"monitoring_system"`
	Source             string    `json:"source"`
	ObjectName         string    `json:"object"`
	Service            string    `json:"service"`
	Severity           int       `json:"severity"`
	Department         string    `json:"-"`
	Output             string    `json:"-"`
	AdditionalFields   string    `json:"-"`
	AdditionalURLs     string    `json:"-"`
	Actions            string    `json:"-"`
	Description        string    `json:"description"`
	MSAlertID          string    `json:"ms_alert_id,omitempty"`
	RecipientID        string    `json:"recipient_id"`
	AssignedTo         Actor     `json:"assigned_to"`
	ActionBy           Actor     `json:"action_by"`
	Image              string    `json:"-"`
	TotalDuration      int64     `json:"total_duration"`
	NotificationStatus int       `json:"notification_status"`
	AssignStatus       int       `json:"assign_status"`
	SnoozeExpireTS     time.Time `json:"-"`
	Sticky             int       `json:"sticky"`
	ProcedureID        int64     `json:"procedure_id"`
	LastUpdateTS       time.Time `json:"-"`
	LastCreateTS       time.Time `json:"-"`
}

// NotificationUpdate carries the fields an action may change on a
// notification. Nil pointers leave the stored value untouched.
// LastUpdateTS is always bumped by the storage layer.
type NotificationUpdate struct {
	NotificationStatus *int
	AssignStatus       *int
	SnoozeExpireTS     *time.Time
	Sticky             *int
	Description        *string
	ProcedureID        *int64
	AssignedTo         *Actor
	ActionBy           *Actor
}

// CurrentOutput returns the "current" entry of the output JSON blob,
// or "" when the blob is missing or malformed. History events snapshot
// this value at action time.
func (n *Notification) CurrentOutput() string {
	if n.Output == "" {
		return ""
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(n.Output), &out); err != nil {
		return ""
	}
	if cur, ok := out["current"].(string); ok {
		return cur
	}
	return ""
}
