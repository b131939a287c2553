package models

import (
	"strings"
	"unicode/utf8"
)

// Actor is a snapshot of the user who performed or was assigned an
// action. Snapshots are embedded in live alerts, notifications and
// history comments so they survive later directory changes.
type Actor struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
	Username string `json:"username"`
	Initials string `json:"initials"`
}

// IsZero reports whether no actor information is present.
func (a Actor) IsZero() bool {
	return a.ID == 0 && a.FullName == "" && a.Username == "" && a.Initials == ""
}

// Initials derives display initials: first letters of the first and
// second name uppercased, or the first two letters of the username
// uppercased when names are absent. Letters count runes, not bytes.
func Initials(firstName, secondName, username string) string {
	if firstName != "" && secondName != "" {
		return strings.ToUpper(firstRunes(firstName, 1) + firstRunes(secondName, 1))
	}
	return strings.ToUpper(firstRunes(username, 2))
}

func firstRunes(s string, n int) string {
	end := 0
	for i := 0; i < n && end < len(s); i++ {
		_, size := utf8.DecodeRuneInString(s[end:])
		end += size
	}
	return s[:end]
}
