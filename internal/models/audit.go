package models

import (
	"time"
	"unicode/utf8"
)

// maxAuditNotes bounds the stored notes column.
const maxAuditNotes = 998

// AuditEntry is an operator-facing audit record. Unlike history events
// it spans all object types, not only alerts.
type AuditEntry struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	ObjType   string    `json:"obj_type"`
	ObjID     int64     `json:"obj_id"`
	Username  string    `json:"username"`
	Comment   string    `json:"comment"`
	Notes     string    `json:"notes"`
	CreatedTS time.Time `json:"created_ts"`
}

// TruncateNotes clamps the notes payload to the stored column bound
// without splitting a rune at the cut.
func (e *AuditEntry) TruncateNotes() {
	if len(e.Notes) <= maxAuditNotes {
		return
	}
	cut := maxAuditNotes
	for cut > 0 && !utf8.RuneStart(e.Notes[cut]) {
		cut--
	}
	e.Notes = e.Notes[:cut]
}
