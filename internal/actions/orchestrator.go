package actions

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/good-yellow-bee/alertops/internal/bridge"
	"github.com/good-yellow-bee/alertops/internal/models"
	"github.com/good-yellow-bee/alertops/internal/storage"
)

// Audit names differ from ledger action names for historical reasons;
// downstream audit consumers match on these exact strings.
const (
	auditResolve           = "Resolving alert"
	auditSnooze            = "Snooze alert"
	auditCancelSnooze      = "Cancel snooze"
	auditHandle            = "Handle alert"
	auditCancelHandle      = "Cancel handling"
	auditAcknowledge       = "Acknowledge alert"
	auditCancelAcknowledge = "Cancel acknowledge"
	auditAssign            = "Assign alert"
	auditCancelAssign      = "Cancel assign"
	auditAddComment        = "Add comment"
	auditAddDescription    = "Change description."
)

// Notifier is the downstream cache invalidation surface. Both calls
// are best-effort and must never fail the caller.
type Notifier interface {
	RefreshCache(ctx context.Context)
	ForceUpdate(ctx context.Context, refs []bridge.AlertRef)
}

// Sink receives one observation per completed per-alert action.
type Sink interface {
	ObserveAction(alertID int64, action, actor string)
}

// Ticketer files tracker tickets for assignments routed to the ticket
// channel.
type Ticketer interface {
	CreateTicket(ctx context.Context, reporter, subject string) (string, error)
}

// BatchResult reports which alert ids of a batch were acted on and
// which were skipped because no matching notification exists. Ticket
// failures surface here rather than failing the batch: the assignment
// itself has already committed.
type BatchResult struct {
	Processed    []int64          `json:"processed"`
	Skipped      []int64          `json:"skipped,omitempty"`
	Tickets      map[int64]string `json:"tickets,omitempty"`
	TicketErrors []string         `json:"ticket_errors,omitempty"`
}

// kindSpec is the per-kind slice of the shared pipeline: which ledger
// and audit names to record, which counter to bump and which cache
// invalidation paths fire after the batch.
type kindSpec struct {
	historyAction string
	auditName     string
	counter       models.CounterField
	forceUpdate   bool
	refreshCache  bool
}

var kindSpecs = map[Kind]kindSpec{
	KindResolve:           {models.ActionResolve, auditResolve, models.CounterClose, true, true},
	KindSnooze:            {models.ActionSnooze, auditSnooze, models.CounterSnooze, true, false},
	KindCancelSnooze:      {models.ActionCancelSnooze, auditCancelSnooze, "", false, false},
	KindHandle:            {models.ActionHandle, auditHandle, "", true, false},
	KindCancelHandle:      {models.ActionCancelHandle, auditCancelHandle, "", false, false},
	KindAcknowledge:       {models.ActionAcknowledge, auditAcknowledge, models.CounterAcknowledge, true, false},
	KindCancelAcknowledge: {models.ActionCancelAcknowledge, auditCancelAcknowledge, "", false, false},
	KindAssign:            {models.ActionAssign, auditAssign, models.CounterAssign, true, false},
	KindCancelAssign:      {models.ActionCancelAssign, auditCancelAssign, "", false, false},
	KindAddComment:        {models.ActionAddComment, auditAddComment, "", false, false},
	KindAddDescription:    {"", auditAddDescription, "", false, false},
}

// Orchestrator applies batch actions through the shared per-alert
// pipeline: live-alert mutation, notification mutation, history
// append, audit entry, counter bump and a metrics observation, then
// one cache invalidation round for the whole batch.
type Orchestrator struct {
	store    storage.Storage
	notifier Notifier
	metrics  Sink
	tickets  Ticketer
	logger   *log.Logger
	now      func() time.Time
}

// NewOrchestrator wires the pipeline to its collaborators. Logger and
// metrics are explicit handles, not package globals.
func NewOrchestrator(store storage.Storage, notifier Notifier, metrics Sink, logger *log.Logger) *Orchestrator {
	return &Orchestrator{
		store:    store,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// WithTicketing enables ticket filing for assignments that target the
// ticket channel. Without it those assignments just skip the ticket
// step.
func (o *Orchestrator) WithTicketing(t Ticketer) *Orchestrator {
	o.tickets = t
	return o
}

// Apply runs one batch action. Alert ids with no notification record
// are logged and skipped; the rest of the batch continues. Any other
// store failure aborts the remaining batch. Cache invalidation fires
// once after the loop and never affects the returned result.
func (o *Orchestrator) Apply(ctx context.Context, req Request) (*BatchResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	spec, ok := kindSpecs[req.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown action kind %v", req.Kind)
	}

	result := &BatchResult{}
	var refs []bridge.AlertRef

	for _, alertID := range req.AlertIDs {
		n, err := o.store.Notifications().GetByID(ctx, alertID)
		if err != nil {
			return result, fmt.Errorf("load notification %d: %w", alertID, err)
		}
		if n == nil {
			o.logger.Printf("actions: %s: alert %d has no notification record, skipping", req.Kind, alertID)
			result.Skipped = append(result.Skipped, alertID)
			continue
		}

		acted, err := o.applyOne(ctx, spec, req, n, result)
		if err != nil {
			return result, fmt.Errorf("apply %s to alert %d: %w", req.Kind, alertID, err)
		}
		if !acted {
			// A cancellation that found nothing to cancel leaves no
			// trace in the result either.
			continue
		}

		result.Processed = append(result.Processed, alertID)
		refs = append(refs, bridge.AlertRef{StudioID: n.StudioID, AlertID: alertID})
	}

	if spec.forceUpdate && len(refs) > 0 {
		o.notifier.ForceUpdate(ctx, refs)
	}
	if spec.refreshCache {
		o.notifier.RefreshCache(ctx)
	}
	return result, nil
}

// applyOne runs the per-alert pipeline steps in order. Each step
// commits independently; there is no cross-step transaction. The bool
// reports whether the action was recorded for this alert: a
// cancel-assign that found no assignment row still clears the status
// flags but records nothing.
func (o *Orchestrator) applyOne(ctx context.Context, spec kindSpec, req Request, n *models.Notification, result *BatchResult) (bool, error) {
	now := o.now().UTC().Truncate(time.Second)
	alertID := n.ID

	recordTrail := true
	till := ""

	switch req.Kind {
	case KindResolve:
		if err := o.store.LiveAlerts().Delete(ctx, alertID); err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				return false, err
			}
			o.logger.Printf("actions: resolve: alert %d has no live record", alertID)
		}
		zero := 0
		if err := o.store.Notifications().Update(ctx, alertID, models.NotificationUpdate{
			NotificationStatus: &zero,
		}); err != nil {
			return false, err
		}

	case KindSnooze:
		until := req.Until.UTC().Truncate(time.Second)
		till = models.FormatTS(until)
		sticky := models.StickyMask(req.StickySeverity, req.StickyOutput)
		if err := o.updateLive(ctx, alertID, models.LiveAlertUpdate{
			SnoozeExpireTS: &until,
			HandleExpireTS: &now,
			ActionBy:       &req.Actor,
		}); err != nil {
			return false, err
		}
		if err := o.store.Notifications().Update(ctx, alertID, models.NotificationUpdate{
			SnoozeExpireTS: &until,
			Sticky:         &sticky,
			ActionBy:       &req.Actor,
		}); err != nil {
			return false, err
		}

	case KindCancelSnooze:
		if err := o.updateLive(ctx, alertID, models.LiveAlertUpdate{SnoozeExpireTS: &now}); err != nil {
			return false, err
		}
		if err := o.store.Notifications().Update(ctx, alertID, models.NotificationUpdate{
			SnoozeExpireTS: &now,
		}); err != nil {
			return false, err
		}

	case KindHandle:
		until := req.Until.UTC().Truncate(time.Second)
		till = models.FormatTS(until)
		if err := o.updateLive(ctx, alertID, models.LiveAlertUpdate{
			HandleExpireTS: &until,
			AssignedTo:     &req.AssignTo,
		}); err != nil {
			return false, err
		}
		if err := o.store.Notifications().Update(ctx, alertID, models.NotificationUpdate{
			AssignedTo: &req.AssignTo,
		}); err != nil {
			return false, err
		}

	case KindCancelHandle:
		if err := o.updateLive(ctx, alertID, models.LiveAlertUpdate{HandleExpireTS: &now}); err != nil {
			return false, err
		}

	case KindAcknowledge:
		one := 1
		if err := o.updateLive(ctx, alertID, models.LiveAlertUpdate{
			Acknowledged:   &one,
			HandleExpireTS: &now,
			ActionBy:       &req.Actor,
		}); err != nil {
			return false, err
		}

	case KindCancelAcknowledge:
		zero := 0
		if err := o.updateLive(ctx, alertID, models.LiveAlertUpdate{Acknowledged: &zero}); err != nil {
			return false, err
		}

	case KindAssign:
		timeTo := req.Assignment.TimeTo.UTC().Truncate(time.Second)
		till = models.FormatTS(timeTo)
		// Replace, never merge: any prior assignment row goes away.
		if err := o.store.Assignments().Replace(ctx, &models.Assignment{
			AlertID:            alertID,
			NotificationType:   req.Assignment.NotificationType,
			NotificationFields: req.Assignment.NotificationFields,
			Description:        req.Assignment.Description,
			Resubmit:           req.Assignment.Resubmit,
			Sticky:             models.StickyMask(req.StickySeverity, req.StickyOutput),
			RecipientID:        req.Assignment.RecipientID,
			TimeTo:             timeTo,
		}); err != nil {
			return false, err
		}
		one := 1
		if err := o.updateLive(ctx, alertID, models.LiveAlertUpdate{
			AssignStatus:   &one,
			HandleExpireTS: &now,
		}); err != nil {
			return false, err
		}
		if err := o.store.Notifications().Update(ctx, alertID, models.NotificationUpdate{
			AssignStatus: &one,
		}); err != nil {
			return false, err
		}
		if o.tickets != nil && req.Assignment.NotificationType == models.NotificationChannelTicket {
			subject := fmt.Sprintf("[%s] %s on %s", n.MonitoringSystem, n.Name, n.Source)
			key, err := o.tickets.CreateTicket(ctx, req.Actor.Username, subject)
			if err != nil {
				o.logger.Printf("actions: assign: ticket for alert %d: %v", alertID, err)
				result.TicketErrors = append(result.TicketErrors,
					fmt.Sprintf("alert %d: %v", alertID, err))
			} else {
				if result.Tickets == nil {
					result.Tickets = map[int64]string{}
				}
				result.Tickets[alertID] = key
			}
		}

	case KindCancelAssign:
		found, err := o.store.Assignments().Delete(ctx, alertID)
		if err != nil {
			return false, err
		}
		zero := 0
		if err := o.updateLive(ctx, alertID, models.LiveAlertUpdate{AssignStatus: &zero}); err != nil {
			return false, err
		}
		if err := o.store.Notifications().Update(ctx, alertID, models.NotificationUpdate{
			AssignStatus: &zero,
		}); err != nil {
			return false, err
		}
		// Status flags always clear, but the trail records only a
		// cancellation that actually removed an assignment.
		recordTrail = found

	case KindAddComment:
		// Trail only, no state mutation.

	case KindAddDescription:
		if err := o.store.Notifications().Update(ctx, alertID, models.NotificationUpdate{
			Description: &req.Description,
		}); err != nil {
			return false, err
		}
	}

	if !recordTrail {
		return false, nil
	}

	if spec.historyAction != "" {
		// Every acted-on event carries at least the author; comment-less
		// rows exist only for machine-written events.
		event := &models.HistoryEvent{
			AlertID: alertID,
			Action:  spec.historyAction,
			Output:  n.CurrentOutput(),
			Comment: &models.EventComment{
				Author:  req.Actor.Username,
				Comment: req.Comment,
				Till:    till,
			},
			CreatedTS: now,
		}
		if err := o.store.History().Append(ctx, event); err != nil {
			return false, err
		}
	}

	if err := o.store.Audit().Create(ctx, &models.AuditEntry{
		Name:      spec.auditName,
		ObjType:   "alert",
		ObjID:     alertID,
		Username:  req.Actor.Username,
		Comment:   req.Comment,
		Notes:     auditNotes(req, till),
		CreatedTS: now,
	}); err != nil {
		return false, err
	}

	if spec.counter != "" {
		if err := o.store.Statistics().Increment(ctx, alertID, spec.counter); err != nil {
			return false, err
		}
	}

	o.metrics.ObserveAction(alertID, req.Kind.String(), req.Actor.Username)
	return true, nil
}

// updateLive applies a live-alert mutation, tolerating an absent row.
// Actions remain meaningful on notifications whose live alert already
// expired; the flags simply have nowhere to land.
func (o *Orchestrator) updateLive(ctx context.Context, alertID int64, upd models.LiveAlertUpdate) error {
	err := o.store.LiveAlerts().Update(ctx, alertID, upd)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	if errors.Is(err, storage.ErrNotFound) {
		o.logger.Printf("actions: alert %d has no live record", alertID)
	}
	return nil
}

func auditNotes(req Request, till string) string {
	switch req.Kind {
	case KindSnooze, KindHandle, KindAssign:
		return "till " + till
	case KindAddDescription:
		return req.Description
	default:
		return req.Comment
	}
}
