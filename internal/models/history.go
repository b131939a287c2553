package models

import "time"

// Action names recorded in the history ledger. The set is closed; new
// actions must add their name here.
const (
	ActionResolve           = "Resolve alert"
	ActionSnooze            = "Snooze alert"
	ActionCancelSnooze      = "Cancel snooze"
	ActionHandle            = "Handle alert"
	ActionCancelHandle      = "Cancel handling"
	ActionAcknowledge       = "Acknowledge"
	ActionCancelAcknowledge = "Cancel acknowledge"
	ActionAssign            = "Assign"
	ActionCancelAssign      = "Cancel assign"
	ActionAddComment        = "Adding comment"
)

// EventComment is the structured comment payload attached to a history
// event. Till is the normalized "until" timestamp for actions with a
// deadline; empty otherwise.
type EventComment struct {
	Author  string `json:"author"`
	Comment string `json:"comment,omitempty"`
	Till    string `json:"till,omitempty"`
}

// HistoryEvent is one append-only row in the per-alert history ledger.
// Events are never mutated or deleted after insertion.
type HistoryEvent struct {
	ID        int64         `json:"-"`
	AlertID   int64         `json:"alert_id"`
	Action    string        `json:"notification_action"`
	Output    string        `json:"notification_output"`
	Comment   *EventComment `json:"comments"`
	CreatedTS time.Time     `json:"-"`
}

// HistoryEntry is the rendered shape of a history event on the read
// path. Comments render as an empty object for comment-less events.
type HistoryEntry struct {
	LastChangeTS string         `json:"last_change_ts"`
	Action       string         `json:"notification_action"`
	Output       string         `json:"notification_output"`
	Comments     map[string]any `json:"comments"`
}

// RenderHistory materializes ledger events for the read path. Events
// arrive most-recent-first and keep that order. At most commentlessCap
// comment-less events are rendered; the overflow is skipped, while
// commented events always render. commentlessCap <= 0 disables the cap.
func RenderHistory(events []*HistoryEvent, commentlessCap int) []HistoryEntry {
	entries := make([]HistoryEntry, 0, len(events))
	commentless := 0
	for _, ev := range events {
		if ev.Comment == nil {
			if commentlessCap > 0 && commentless >= commentlessCap {
				continue
			}
			commentless++
		}
		entry := HistoryEntry{
			LastChangeTS: FormatTS(ev.CreatedTS),
			Action:       ev.Action,
			Output:       ev.Output,
			Comments:     map[string]any{},
		}
		if ev.Comment != nil {
			entry.Comments["author"] = ev.Comment.Author
			if ev.Comment.Comment != "" {
				entry.Comments["comment"] = ev.Comment.Comment
			}
			if ev.Comment.Till != "" {
				entry.Comments["till"] = ev.Comment.Till
			}
		}
		entries = append(entries, entry)
	}
	return entries
}
