package models

import (
	"testing"
	"time"
)

func TestRenderHistory_CommentlessCap(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	var events []*HistoryEvent
	for i := 0; i < 20; i++ {
		events = append(events, &HistoryEvent{
			AlertID:   7,
			Action:    ActionResolve,
			CreatedTS: base.Add(-time.Duration(i) * time.Minute),
		})
	}
	// Commented events interleave and must never be capped.
	events = append(events, &HistoryEvent{
		AlertID:   7,
		Action:    ActionSnooze,
		Comment:   &EventComment{Author: "dops", Comment: "quiet hours"},
		CreatedTS: base.Add(-30 * time.Minute),
	})

	entries := RenderHistory(events, 15)

	commentless, commented := 0, 0
	for _, e := range entries {
		if len(e.Comments) == 0 {
			commentless++
		} else {
			commented++
		}
	}
	if commentless != 15 {
		t.Errorf("commentless entries = %d, want 15", commentless)
	}
	if commented != 1 {
		t.Errorf("commented entries = %d, want 1", commented)
	}
}

func TestRenderHistory_CommentShape(t *testing.T) {
	ev := HistoryEvent{
		AlertID:   3,
		Action:    ActionSnooze,
		Output:    "92% used",
		Comment:   &EventComment{Author: "dops", Till: "2025-01-01 00:00:00"},
		CreatedTS: time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC),
	}

	entries := RenderHistory([]*HistoryEvent{&ev}, 15)
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}
	got := entries[0]
	if got.LastChangeTS != "2024-12-31 23:00:00" {
		t.Errorf("last change = %q", got.LastChangeTS)
	}
	if got.Comments["author"] != "dops" || got.Comments["till"] != "2025-01-01 00:00:00" {
		t.Errorf("comments = %v", got.Comments)
	}
	if _, ok := got.Comments["comment"]; ok {
		t.Error("empty comment text must not render")
	}
}

func TestRenderHistory_EmptyCommentsObject(t *testing.T) {
	entries := RenderHistory([]*HistoryEvent{{AlertID: 1, Action: ActionResolve}}, 15)
	if entries[0].Comments == nil {
		t.Error("comment-less entry must render an empty object, not null")
	}
}
