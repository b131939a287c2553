package models

import "time"

// CounterField selects one integer counter on a Statistics row.
type CounterField string

const (
	CounterClose          CounterField = "close"
	CounterCreate         CounterField = "create"
	CounterReopen         CounterField = "reopen"
	CounterUpdate         CounterField = "update"
	CounterChangeSeverity CounterField = "change_severity"
	CounterSnooze         CounterField = "snooze"
	CounterAcknowledge    CounterField = "acknowledge"
	CounterAssign         CounterField = "assign"
)

// Statistics holds per-alert running totals of action kinds. The row is
// optional: increments against a missing row are silent no-ops.
type Statistics struct {
	AlertID        int64     `json:"alert_id"`
	Close          int64     `json:"close"`
	Create         int64     `json:"create"`
	Reopen         int64     `json:"reopen"`
	Update         int64     `json:"update"`
	ChangeSeverity int64     `json:"change_severity"`
	Snooze         int64     `json:"snooze"`
	Acknowledge    int64     `json:"acknowledge"`
	Assign         int64     `json:"assign"`
	UpdateTS       time.Time `json:"update_ts"`
}

// StatisticsSummary is the statistics subset rendered under an alert's
// history sub-object.
type StatisticsSummary struct {
	Snoozed int64 `json:"snoozed"`
	Reopen  int64 `json:"reopen"`
}
