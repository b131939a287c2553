package actions

import (
	"context"
	"errors"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/good-yellow-bee/alertops/internal/bridge"
	"github.com/good-yellow-bee/alertops/internal/models"
	"github.com/good-yellow-bee/alertops/internal/storage"
)

type fakeNotifier struct {
	refreshCalls int
	forceCalls   [][]bridge.AlertRef
}

func (f *fakeNotifier) RefreshCache(ctx context.Context) { f.refreshCalls++ }

func (f *fakeNotifier) ForceUpdate(ctx context.Context, refs []bridge.AlertRef) {
	f.forceCalls = append(f.forceCalls, refs)
}

type fakeSink struct {
	observed []string
}

func (f *fakeSink) ObserveAction(alertID int64, action, actor string) {
	f.observed = append(f.observed, action)
}

type fixture struct {
	store    *storage.SQLiteStorage
	notifier *fakeNotifier
	sink     *fakeSink
	orch     *Orchestrator
}

func setupOrchestrator(t *testing.T) *fixture {
	t.Helper()

	store := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Open(); err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate storage: %v", err)
	}

	notifier := &fakeNotifier{}
	sink := &fakeSink{}
	orch := NewOrchestrator(store, notifier, sink, log.New(testWriter{t}, "", 0))
	return &fixture{store: store, notifier: notifier, sink: sink, orch: orch}
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func (f *fixture) seedAlert(t *testing.T, id int64) {
	t.Helper()
	ctx := context.Background()

	err := f.store.Notifications().Create(ctx, &models.Notification{
		ID:                 id,
		Name:               "disk-usage",
		StudioID:           7,
		MonitoringSystem:   "zabbix",
		Source:             "host-a",
		ObjectName:         "/var",
		Severity:           4,
		Output:             `{"current":"92% used"}`,
		NotificationStatus: 1,
		SnoozeExpireTS:     models.Epoch,
		LastUpdateTS:       time.Now().UTC(),
		LastCreateTS:       time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed notification %d: %v", id, err)
	}

	err = f.store.LiveAlerts().Create(ctx, &models.LiveAlert{
		AlertID:            id,
		AlertName:          "disk-usage",
		StudioID:           7,
		MonitoringSystem:   "zabbix",
		Severity:           4,
		NotificationStatus: 1,
		CreatedTS:          time.Now().UTC(),
		DowntimeExpireTS:   models.Epoch,
		SnoozeExpireTS:     models.Epoch,
		HandleExpireTS:     models.Epoch,
	})
	if err != nil {
		t.Fatalf("seed live alert %d: %v", id, err)
	}

	if err := f.store.Statistics().Create(ctx, &models.Statistics{AlertID: id}); err != nil {
		t.Fatalf("seed statistics %d: %v", id, err)
	}
}

var testActor = models.Actor{ID: 3, FullName: "Dana Ops", Username: "dops", Initials: "DO"}

func TestApply_ResolveClearsLiveAlert(t *testing.T) {
	f := setupOrchestrator(t)
	ctx := context.Background()
	f.seedAlert(t, 7)

	result, err := f.orch.Apply(ctx, Request{
		Kind:     KindResolve,
		AlertIDs: []int64{7},
		Actor:    testActor,
		Comment:  "disk cleaned",
	})
	if err != nil {
		t.Fatalf("apply resolve: %v", err)
	}
	if len(result.Processed) != 1 || result.Processed[0] != 7 {
		t.Fatalf("processed = %v", result.Processed)
	}

	live, err := f.store.LiveAlerts().GetByID(ctx, 7)
	if err != nil {
		t.Fatalf("get live alert: %v", err)
	}
	if live != nil {
		t.Error("live alert row should be deleted")
	}

	n, err := f.store.Notifications().GetByID(ctx, 7)
	if err != nil {
		t.Fatalf("get notification: %v", err)
	}
	if n.NotificationStatus != 0 {
		t.Errorf("notification status = %d, want 0", n.NotificationStatus)
	}

	stats, err := f.store.Statistics().Get(ctx, 7)
	if err != nil {
		t.Fatalf("get statistics: %v", err)
	}
	if stats.Close != 1 {
		t.Errorf("close counter = %d, want 1", stats.Close)
	}

	// Resolve fires both invalidation paths
	if f.notifier.refreshCalls != 1 {
		t.Errorf("refresh calls = %d, want 1", f.notifier.refreshCalls)
	}
	if len(f.notifier.forceCalls) != 1 {
		t.Errorf("force calls = %d, want 1", len(f.notifier.forceCalls))
	}
}

func TestApply_SnoozeEndToEnd(t *testing.T) {
	f := setupOrchestrator(t)
	ctx := context.Background()
	f.seedAlert(t, 101)

	until, err := models.ParseActionTS("2025-01-01T00:00:00.000Z")
	if err != nil {
		t.Fatalf("parse action ts: %v", err)
	}

	result, err := f.orch.Apply(ctx, Request{
		Kind:           KindSnooze,
		AlertIDs:       []int64{101},
		Actor:          testActor,
		Comment:        "during migration",
		Until:          until,
		StickySeverity: true,
	})
	if err != nil {
		t.Fatalf("apply snooze: %v", err)
	}
	if len(result.Processed) != 1 {
		t.Fatalf("processed = %v", result.Processed)
	}

	live, err := f.store.LiveAlerts().GetByID(ctx, 101)
	if err != nil {
		t.Fatalf("get live alert: %v", err)
	}
	want := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if !live.SnoozeExpireTS.Equal(want) {
		t.Errorf("snooze expire = %v, want %v", live.SnoozeExpireTS, want)
	}
	if live.ActionBy.Username != "dops" {
		t.Errorf("action by = %+v", live.ActionBy)
	}

	n, err := f.store.Notifications().GetByID(ctx, 101)
	if err != nil {
		t.Fatalf("get notification: %v", err)
	}
	if n.Sticky != 2 {
		t.Errorf("sticky = %d, want 2", n.Sticky)
	}

	events, err := f.store.History().ListWindow(ctx, 101,
		time.Now().UTC().Add(-time.Hour), time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(events) != 1 || events[0].Action != models.ActionSnooze {
		t.Fatalf("history = %+v", events)
	}
	if events[0].Comment == nil || events[0].Comment.Till != "2025-01-01 00:00:00" {
		t.Errorf("history comment = %+v", events[0].Comment)
	}
	if events[0].Output != "92% used" {
		t.Errorf("output snapshot = %q", events[0].Output)
	}

	stats, _ := f.store.Statistics().Get(ctx, 101)
	if stats.Snooze != 1 {
		t.Errorf("snooze counter = %d, want 1", stats.Snooze)
	}

	// Snooze forces a scoped update only
	if len(f.notifier.forceCalls) != 1 {
		t.Fatalf("force calls = %d, want 1", len(f.notifier.forceCalls))
	}
	refs := f.notifier.forceCalls[0]
	if len(refs) != 1 || refs[0].AlertID != 101 || refs[0].StudioID != 7 {
		t.Errorf("force refs = %+v", refs)
	}
	if f.notifier.refreshCalls != 0 {
		t.Errorf("refresh calls = %d, want 0", f.notifier.refreshCalls)
	}
}

func TestApply_StickyMaskEncoding(t *testing.T) {
	cases := []struct {
		severity, output bool
		want             int
	}{
		{true, false, 2},
		{false, true, 3},
		{true, true, 5},
		{false, false, 0},
	}

	for _, tc := range cases {
		f := setupOrchestrator(t)
		ctx := context.Background()
		f.seedAlert(t, 1)

		_, err := f.orch.Apply(ctx, Request{
			Kind:           KindSnooze,
			AlertIDs:       []int64{1},
			Actor:          testActor,
			Until:          time.Now().UTC().Add(time.Hour),
			StickySeverity: tc.severity,
			StickyOutput:   tc.output,
		})
		if err != nil {
			t.Fatalf("apply snooze: %v", err)
		}

		n, _ := f.store.Notifications().GetByID(ctx, 1)
		if n.Sticky != tc.want {
			t.Errorf("sticky(%v,%v) = %d, want %d", tc.severity, tc.output, n.Sticky, tc.want)
		}
	}
}

func TestApply_AssignReplaceSemantics(t *testing.T) {
	f := setupOrchestrator(t)
	ctx := context.Background()
	f.seedAlert(t, 3)

	first := Request{
		Kind:     KindAssign,
		AlertIDs: []int64{3},
		Actor:    testActor,
		Assignment: &AssignmentSpec{
			NotificationType: 2,
			Description:      "page storage team",
			RecipientID:      "storage-oncall",
			TimeTo:           time.Now().UTC().Add(4 * time.Hour),
		},
	}
	if _, err := f.orch.Apply(ctx, first); err != nil {
		t.Fatalf("first assign: %v", err)
	}

	second := first
	second.Assignment = &AssignmentSpec{
		NotificationType: 1,
		RecipientID:      "dops",
		TimeTo:           time.Now().UTC().Add(8 * time.Hour),
	}
	if _, err := f.orch.Apply(ctx, second); err != nil {
		t.Fatalf("second assign: %v", err)
	}

	a, err := f.store.Assignments().Get(ctx, 3)
	if err != nil {
		t.Fatalf("get assignment: %v", err)
	}
	if a == nil {
		t.Fatal("expected assignment row")
	}
	if a.RecipientID != "dops" || a.Description != "" {
		t.Errorf("assignment not replaced: %+v", a)
	}

	live, _ := f.store.LiveAlerts().GetByID(ctx, 3)
	if live.AssignStatus != 1 {
		t.Errorf("assign status = %d, want 1", live.AssignStatus)
	}

	stats, _ := f.store.Statistics().Get(ctx, 3)
	if stats.Assign != 2 {
		t.Errorf("assign counter = %d, want 2", stats.Assign)
	}
}

func TestApply_AssignProcessesWholeBatch(t *testing.T) {
	f := setupOrchestrator(t)
	ctx := context.Background()
	f.seedAlert(t, 10)
	f.seedAlert(t, 11)

	result, err := f.orch.Apply(ctx, Request{
		Kind:     KindAssign,
		AlertIDs: []int64{10, 11},
		Actor:    testActor,
		Assignment: &AssignmentSpec{
			NotificationType: 1,
			RecipientID:      "dops",
			TimeTo:           time.Now().UTC().Add(time.Hour),
		},
	})
	if err != nil {
		t.Fatalf("apply assign: %v", err)
	}
	if len(result.Processed) != 2 {
		t.Fatalf("processed = %v, want both ids", result.Processed)
	}
	for _, id := range []int64{10, 11} {
		if a, _ := f.store.Assignments().Get(ctx, id); a == nil {
			t.Errorf("no assignment for alert %d", id)
		}
	}
}

func TestApply_CancelAssignAsymmetry(t *testing.T) {
	f := setupOrchestrator(t)
	ctx := context.Background()
	f.seedAlert(t, 20)

	// No assignment exists: flags clear, no trail, and the alert is
	// absent from the result.
	result, err := f.orch.Apply(ctx, Request{
		Kind:     KindCancelAssign,
		AlertIDs: []int64{20},
		Actor:    testActor,
	})
	if err != nil {
		t.Fatalf("cancel assign without row: %v", err)
	}
	if len(result.Processed) != 0 || len(result.Skipped) != 0 {
		t.Errorf("no-op cancel result = %+v, want empty", result)
	}

	events, err := f.store.History().ListWindow(ctx, 20,
		time.Now().UTC().Add(-time.Hour), time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("history after no-op cancel = %d events, want 0", len(events))
	}

	// With an assignment: flags clear and exactly one event recorded.
	if _, err := f.orch.Apply(ctx, Request{
		Kind:     KindAssign,
		AlertIDs: []int64{20},
		Actor:    testActor,
		Assignment: &AssignmentSpec{
			NotificationType: 1,
			RecipientID:      "dops",
			TimeTo:           time.Now().UTC().Add(time.Hour),
		},
	}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := f.orch.Apply(ctx, Request{
		Kind:     KindCancelAssign,
		AlertIDs: []int64{20},
		Actor:    testActor,
	}); err != nil {
		t.Fatalf("cancel assign: %v", err)
	}

	live, _ := f.store.LiveAlerts().GetByID(ctx, 20)
	if live.AssignStatus != 0 {
		t.Errorf("assign status = %d, want 0", live.AssignStatus)
	}

	events, _ = f.store.History().ListWindow(ctx, 20,
		time.Now().UTC().Add(-time.Hour), time.Now().UTC().Add(time.Hour))
	var cancels int
	for _, e := range events {
		if e.Action == models.ActionCancelAssign {
			cancels++
		}
	}
	if cancels != 1 {
		t.Errorf("cancel assign events = %d, want 1", cancels)
	}
}

func TestApply_AcknowledgeAndCancel(t *testing.T) {
	f := setupOrchestrator(t)
	ctx := context.Background()
	f.seedAlert(t, 30)

	if _, err := f.orch.Apply(ctx, Request{
		Kind:     KindAcknowledge,
		AlertIDs: []int64{30},
		Actor:    testActor,
	}); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	live, _ := f.store.LiveAlerts().GetByID(ctx, 30)
	if live.Acknowledged != 1 {
		t.Errorf("acknowledged = %d, want 1", live.Acknowledged)
	}
	stats, _ := f.store.Statistics().Get(ctx, 30)
	if stats.Acknowledge != 1 {
		t.Errorf("acknowledge counter = %d, want 1", stats.Acknowledge)
	}

	if _, err := f.orch.Apply(ctx, Request{
		Kind:     KindCancelAcknowledge,
		AlertIDs: []int64{30},
		Actor:    testActor,
	}); err != nil {
		t.Fatalf("cancel acknowledge: %v", err)
	}
	live, _ = f.store.LiveAlerts().GetByID(ctx, 30)
	if live.Acknowledged != 0 {
		t.Errorf("acknowledged = %d, want 0", live.Acknowledged)
	}
}

func TestApply_SkipsMissingNotification(t *testing.T) {
	f := setupOrchestrator(t)
	ctx := context.Background()
	f.seedAlert(t, 40)

	result, err := f.orch.Apply(ctx, Request{
		Kind:     KindResolve,
		AlertIDs: []int64{999, 40},
		Actor:    testActor,
	})
	if err != nil {
		t.Fatalf("apply resolve: %v", err)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != 999 {
		t.Errorf("skipped = %v, want [999]", result.Skipped)
	}
	if len(result.Processed) != 1 || result.Processed[0] != 40 {
		t.Errorf("processed = %v, want [40]", result.Processed)
	}
}

func TestApply_CounterAbsenceIsSilent(t *testing.T) {
	f := setupOrchestrator(t)
	ctx := context.Background()

	// Notification without a statistics row
	err := f.store.Notifications().Create(ctx, &models.Notification{
		ID: 50, Name: "n", StudioID: 1, MonitoringSystem: "zabbix",
		NotificationStatus: 1, SnoozeExpireTS: models.Epoch,
	})
	if err != nil {
		t.Fatalf("seed notification: %v", err)
	}

	if _, err := f.orch.Apply(ctx, Request{
		Kind:     KindResolve,
		AlertIDs: []int64{50},
		Actor:    testActor,
	}); err != nil {
		t.Fatalf("resolve without counter row: %v", err)
	}

	stats, err := f.store.Statistics().Get(ctx, 50)
	if err != nil {
		t.Fatalf("get statistics: %v", err)
	}
	if stats != nil {
		t.Error("counter row must not be created by an action")
	}
}

func TestApply_AddCommentAndDescription(t *testing.T) {
	f := setupOrchestrator(t)
	ctx := context.Background()
	f.seedAlert(t, 60)

	if _, err := f.orch.Apply(ctx, Request{
		Kind:     KindAddComment,
		AlertIDs: []int64{60},
		Actor:    testActor,
		Comment:  "vendor ticket opened",
	}); err != nil {
		t.Fatalf("add comment: %v", err)
	}

	events, _ := f.store.History().ListWindow(ctx, 60,
		time.Now().UTC().Add(-time.Hour), time.Now().UTC().Add(time.Hour))
	if len(events) != 1 || events[0].Action != models.ActionAddComment {
		t.Fatalf("history = %+v", events)
	}
	if events[0].Comment.Comment != "vendor ticket opened" {
		t.Errorf("comment = %+v", events[0].Comment)
	}

	if _, err := f.orch.Apply(ctx, Request{
		Kind:        KindAddDescription,
		AlertIDs:    []int64{60},
		Actor:       testActor,
		Description: "known raid controller issue",
	}); err != nil {
		t.Fatalf("add description: %v", err)
	}

	n, _ := f.store.Notifications().GetByID(ctx, 60)
	if n.Description != "known raid controller issue" {
		t.Errorf("description = %q", n.Description)
	}

	// Description changes leave no history event
	events, _ = f.store.History().ListWindow(ctx, 60,
		time.Now().UTC().Add(-time.Hour), time.Now().UTC().Add(time.Hour))
	if len(events) != 1 {
		t.Errorf("history = %d events, want 1", len(events))
	}
}

func TestApply_Validation(t *testing.T) {
	f := setupOrchestrator(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  Request
	}{
		{"empty batch", Request{Kind: KindResolve, Actor: testActor}},
		{"no actor", Request{Kind: KindResolve, AlertIDs: []int64{1}}},
		{"snooze without deadline", Request{Kind: KindSnooze, AlertIDs: []int64{1}, Actor: testActor}},
		{"handle without assignee", Request{Kind: KindHandle, AlertIDs: []int64{1}, Actor: testActor, Until: time.Now()}},
		{"assign without payload", Request{Kind: KindAssign, AlertIDs: []int64{1}, Actor: testActor}},
		{"comment without text", Request{Kind: KindAddComment, AlertIDs: []int64{1}, Actor: testActor}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.orch.Apply(ctx, tc.req)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

type fakeTicketer struct {
	created []string
	key     string
	err     error
}

func (f *fakeTicketer) CreateTicket(ctx context.Context, reporter, subject string) (string, error) {
	f.created = append(f.created, subject)
	return f.key, f.err
}

func TestApply_AssignFilesTicket(t *testing.T) {
	f := setupOrchestrator(t)
	ctx := context.Background()
	f.seedAlert(t, 3)

	tickets := &fakeTicketer{key: "OPS-42"}
	f.orch.WithTicketing(tickets)

	result, err := f.orch.Apply(ctx, Request{
		Kind:     KindAssign,
		AlertIDs: []int64{3},
		Actor:    testActor,
		Assignment: &AssignmentSpec{
			NotificationType: models.NotificationChannelTicket,
			RecipientID:      "storage-oncall",
			TimeTo:           time.Now().UTC().Add(4 * time.Hour),
		},
	})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}

	if len(tickets.created) != 1 {
		t.Fatalf("tickets filed = %d", len(tickets.created))
	}
	if result.Tickets[3] != "OPS-42" {
		t.Errorf("ticket key = %q", result.Tickets[3])
	}

	// Chat-channel assignments never touch the tracker.
	f.seedAlert(t, 4)
	result, err = f.orch.Apply(ctx, Request{
		Kind:     KindAssign,
		AlertIDs: []int64{4},
		Actor:    testActor,
		Assignment: &AssignmentSpec{
			NotificationType: models.NotificationChannelChat,
			RecipientID:      "storage-chat",
			TimeTo:           time.Now().UTC().Add(4 * time.Hour),
		},
	})
	if err != nil {
		t.Fatalf("chat assign: %v", err)
	}
	if len(tickets.created) != 1 || len(result.Tickets) != 0 {
		t.Errorf("chat assignment filed a ticket: %v", result.Tickets)
	}
}

func TestApply_TicketFailureDoesNotAbortAssign(t *testing.T) {
	f := setupOrchestrator(t)
	ctx := context.Background()
	f.seedAlert(t, 3)

	f.orch.WithTicketing(&fakeTicketer{err: errors.New("tracker down")})

	result, err := f.orch.Apply(ctx, Request{
		Kind:     KindAssign,
		AlertIDs: []int64{3},
		Actor:    testActor,
		Assignment: &AssignmentSpec{
			NotificationType: models.NotificationChannelTicket,
			RecipientID:      "storage-oncall",
			TimeTo:           time.Now().UTC().Add(4 * time.Hour),
		},
	})
	if err != nil {
		t.Fatalf("assign must not fail on ticket error: %v", err)
	}
	if len(result.TicketErrors) != 1 {
		t.Errorf("ticket errors = %v", result.TicketErrors)
	}

	// The assignment itself committed.
	a, err := f.store.Assignments().Get(ctx, 3)
	if err != nil || a == nil {
		t.Fatalf("assignment row missing: %v %v", a, err)
	}
}

func TestApply_EmptyCommentStillRecordsAuthor(t *testing.T) {
	f := setupOrchestrator(t)
	ctx := context.Background()
	f.seedAlert(t, 12)

	if _, err := f.orch.Apply(ctx, Request{
		Kind:     KindResolve,
		AlertIDs: []int64{12},
		Actor:    testActor,
	}); err != nil {
		t.Fatalf("apply resolve: %v", err)
	}

	events, err := f.store.History().ListWindow(ctx, 12,
		time.Now().UTC().Add(-time.Hour), time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("history = %+v", events)
	}
	if events[0].Comment == nil || events[0].Comment.Author != "dops" {
		t.Errorf("history comment = %+v, want author dops", events[0].Comment)
	}
	if events[0].Comment != nil && events[0].Comment.Comment != "" {
		t.Errorf("comment text = %q, want empty", events[0].Comment.Comment)
	}

	entries := models.RenderHistory(events, 15)
	if len(entries) != 1 || entries[0].Comments["author"] != "dops" {
		t.Errorf("rendered = %+v", entries)
	}
}
