// Package lifecycle derives an alert's lifecycle label from its live
// fields. Derivation is pure: identical inputs and clock reading always
// produce the same label.
package lifecycle

import (
	"time"

	"github.com/good-yellow-bee/alertops/internal/models"
)

// State is an alert's lifecycle label.
type State string

const (
	StateActive       State = "active"
	StateSnoozed      State = "snoozed"
	StateAcknowledged State = "acknowledged"
	StateInDowntime   State = "in_downtime"
	StateAssigned     State = "assigned"
	StateHandled      State = "handled"
)

// Fields are the live-alert inputs to state derivation.
type Fields struct {
	SnoozeExpireTS   time.Time
	HandleExpireTS   time.Time
	DowntimeExpireTS time.Time
	Acknowledged     int
	AssignStatus     int
}

// FieldsFromAlert extracts derivation inputs from a live alert.
func FieldsFromAlert(a *models.LiveAlert) Fields {
	return Fields{
		SnoozeExpireTS:   a.SnoozeExpireTS,
		HandleExpireTS:   a.HandleExpireTS,
		DowntimeExpireTS: a.DowntimeExpireTS,
		Acknowledged:     a.Acknowledged,
		AssignStatus:     a.AssignStatus,
	}
}

// Derive maps live fields to exactly one lifecycle label. Precedence is
// fixed: snoozed, acknowledged, in_downtime, assigned, handled, active.
// The second return is false when no rule matched and the all-clear
// condition did not hold either; the label still degrades to active and
// callers log the combination as an anomaly.
func Derive(f Fields, now time.Time) (State, bool) {
	switch {
	case f.SnoozeExpireTS.Before(now) && f.Acknowledged == 0 &&
		f.AssignStatus == 0 && f.HandleExpireTS.Before(now) &&
		f.DowntimeExpireTS.Before(now):
		return StateActive, true
	case !f.SnoozeExpireTS.Before(now):
		return StateSnoozed, true
	case f.Acknowledged != 0:
		return StateAcknowledged, true
	case !f.DowntimeExpireTS.Before(now):
		return StateInDowntime, true
	case f.AssignStatus == 1:
		return StateAssigned, true
	case !f.HandleExpireTS.Before(now):
		return StateHandled, true
	default:
		return StateActive, false
	}
}
