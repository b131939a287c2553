// Package actions implements the batch action pipeline that mutates
// alert state, records history and audit trails, bumps counters and
// signals downstream caches.
package actions

import (
	"fmt"
	"time"

	"github.com/good-yellow-bee/alertops/internal/models"
)

// Kind identifies one alert action. The set is closed: dispatch is a
// switch over these values, not dynamic lookup.
type Kind int

const (
	KindResolve Kind = iota
	KindSnooze
	KindCancelSnooze
	KindHandle
	KindCancelHandle
	KindAcknowledge
	KindCancelAcknowledge
	KindAssign
	KindCancelAssign
	KindAddComment
	KindAddDescription
)

var kindNames = map[Kind]string{
	KindResolve:           "resolve",
	KindSnooze:            "snooze",
	KindCancelSnooze:      "cancel_snooze",
	KindHandle:            "handle",
	KindCancelHandle:      "cancel_handle",
	KindAcknowledge:       "acknowledge",
	KindCancelAcknowledge: "cancel_acknowledge",
	KindAssign:            "assign",
	KindCancelAssign:      "cancel_assign",
	KindAddComment:        "add_comment",
	KindAddDescription:    "add_description",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// AssignmentSpec is the typed payload of an Assign request.
type AssignmentSpec struct {
	NotificationType   int
	NotificationFields string
	Description        string
	Resubmit           int
	RecipientID        string
	TimeTo             time.Time
}

// Request is one batch action: a kind, the alert ids it applies to,
// the acting user and the kind's payload fields. Unused payload fields
// are ignored by kinds that do not read them.
type Request struct {
	Kind     Kind
	AlertIDs []int64
	Actor    models.Actor

	Comment        string
	Until          time.Time       // snooze / handle deadline
	StickySeverity bool            // snooze
	StickyOutput   bool            // snooze
	AssignTo       models.Actor    // handle
	Assignment     *AssignmentSpec // assign
	Description    string          // add-description
}

// ValidationError rejects a request before any mutation begins.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// Validate checks the batch fields required by the request's kind.
func (r *Request) Validate() error {
	if len(r.AlertIDs) == 0 {
		return &ValidationError{Field: "alert_ids", Message: "at least one alert id is required"}
	}
	for _, id := range r.AlertIDs {
		if id <= 0 {
			return &ValidationError{Field: "alert_ids", Message: fmt.Sprintf("invalid alert id %d", id)}
		}
	}
	if r.Actor.Username == "" {
		return &ValidationError{Field: "actor", Message: "acting user is required"}
	}

	switch r.Kind {
	case KindSnooze, KindHandle:
		if r.Until.IsZero() {
			return &ValidationError{Field: "action_ts", Message: "deadline timestamp is required"}
		}
	case KindAssign:
		if r.Assignment == nil {
			return &ValidationError{Field: "assignment", Message: "assignment payload is required"}
		}
		if r.Assignment.TimeTo.IsZero() {
			return &ValidationError{Field: "time_to", Message: "assignment deadline is required"}
		}
	case KindAddComment:
		if r.Comment == "" {
			return &ValidationError{Field: "comment", Message: "comment text is required"}
		}
	case KindAddDescription:
		if r.Description == "" {
			return &ValidationError{Field: "description", Message: "description text is required"}
		}
	}
	if r.Kind == KindHandle && r.AssignTo.Username == "" {
		return &ValidationError{Field: "assign_to", Message: "handling user is required"}
	}
	return nil
}
