// Package actions exposes the batch alert actions over HTTP.
package actions

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	coreactions "github.com/good-yellow-bee/alertops/internal/actions"
	"github.com/good-yellow-bee/alertops/internal/api/middleware"
	"github.com/good-yellow-bee/alertops/internal/metrics"
	"github.com/good-yellow-bee/alertops/internal/models"
)

// Response helpers
type errorResponse struct {
	Error errorBody `json:"error"`
}
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
type dataResponse struct {
	Data any `json:"data"`
}

const (
	errCodeBadRequest       = "BAD_REQUEST"
	errCodeValidationFailed = "VALIDATION_FAILED"
	errCodeInternalError    = "INTERNAL_ERROR"
)

func jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: errorBody{Code: code, Message: message}}); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

func jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dataResponse{Data: data}); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

// Orchestrator applies one validated batch action.
type Orchestrator interface {
	Apply(ctx context.Context, req coreactions.Request) (*coreactions.BatchResult, error)
}

// ActorResolver resolves the acting user against the users service.
type ActorResolver interface {
	Lookup(ctx context.Context, username string) (models.Actor, error)
}

// Handler handles action endpoints.
type Handler struct {
	orch   Orchestrator
	actors ActorResolver
}

func NewHandler(orch Orchestrator, actors ActorResolver) *Handler {
	return &Handler{orch: orch, actors: actors}
}

// Request types
type ResolveRequest struct {
	AlertIDs []int64 `json:"alert_ids"`
	Comment  string  `json:"comment"`
}

type SnoozeRequest struct {
	AlertIDs       []int64 `json:"alert_ids"`
	ActionTS       string  `json:"action_ts"`
	Comment        string  `json:"comment"`
	StickySeverity bool    `json:"sticky_severity"`
	StickyOutput   bool    `json:"sticky_output"`
}

type HandleRequest struct {
	AlertIDs []int64 `json:"alert_ids"`
	ActionTS string  `json:"action_ts"`
	AssignTo string  `json:"assign_to"`
}

type AssignRequest struct {
	AlertIDs           []int64         `json:"alert_ids"`
	Description        string          `json:"description"`
	Resubmit           int             `json:"resubmit"`
	TimeTo             string          `json:"time_to"`
	NotificationType   int             `json:"notification_type"`
	NotificationFields json.RawMessage `json:"notification_fields"`
	RecipientID        string          `json:"recipient_id"`
	StickySeverity     bool            `json:"sticky_severity"`
	StickyOutput       bool            `json:"sticky_output"`
}

type CommentRequest struct {
	AlertIDs []int64 `json:"alert_ids"`
	Comment  string  `json:"comment"`
}

type DescriptionRequest struct {
	AlertIDs    []int64 `json:"alert_ids"`
	Description string  `json:"description"`
}

// actor resolves the authenticated user into an actor snapshot. A
// users-service failure degrades to a claims-only snapshot; it must
// not block the action itself.
func (h *Handler) actor(r *http.Request) models.Actor {
	username := middleware.GetUsername(r.Context())
	actor, err := h.actors.Lookup(r.Context(), username)
	if err != nil || actor.IsZero() {
		if err != nil {
			log.Printf("actor lookup for %q failed, using claims snapshot: %v", username, err)
		} else {
			log.Printf("actor lookup for %q returned no user, using claims snapshot", username)
		}
		return models.Actor{
			ID:       middleware.GetUserID(r.Context()),
			Username: username,
			FullName: username,
			Initials: models.Initials("", "", username),
		}
	}
	return actor
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request, req coreactions.Request) {
	result, err := h.orch.Apply(r.Context(), req)

	var verr *coreactions.ValidationError
	switch {
	case errors.As(err, &verr):
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, verr.Error())
		return
	case err != nil:
		log.Printf("apply %s: %v", req.Kind, err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "action failed")
		return
	}

	metrics.ActionBatchesTotal.WithLabelValues(req.Kind.String()).Inc()
	metrics.ActionSkipsTotal.WithLabelValues(req.Kind.String()).Add(float64(len(result.Skipped)))
	jsonOK(w, result)
}

// Resolve handles POST /api/v1/actions/resolve.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid JSON body")
		return
	}
	h.apply(w, r, coreactions.Request{
		Kind:     coreactions.KindResolve,
		AlertIDs: req.AlertIDs,
		Actor:    h.actor(r),
		Comment:  req.Comment,
	})
}

// Snooze handles POST /api/v1/actions/snooze.
func (h *Handler) Snooze(w http.ResponseWriter, r *http.Request) {
	var req SnoozeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid JSON body")
		return
	}
	until, err := models.ParseActionTS(req.ActionTS)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "action_ts must be an ISO-8601 UTC timestamp")
		return
	}
	h.apply(w, r, coreactions.Request{
		Kind:           coreactions.KindSnooze,
		AlertIDs:       req.AlertIDs,
		Actor:          h.actor(r),
		Comment:        req.Comment,
		Until:          until,
		StickySeverity: req.StickySeverity,
		StickyOutput:   req.StickyOutput,
	})
}

// CancelSnooze handles POST /api/v1/actions/cancel-snooze.
func (h *Handler) CancelSnooze(w http.ResponseWriter, r *http.Request) {
	h.simpleAction(w, r, coreactions.KindCancelSnooze)
}

// Handle handles POST /api/v1/actions/handle.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	var req HandleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid JSON body")
		return
	}
	until, err := models.ParseActionTS(req.ActionTS)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "action_ts must be an ISO-8601 UTC timestamp")
		return
	}
	if req.AssignTo == "" {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "assign_to is required")
		return
	}

	assignee, err := h.actors.Lookup(r.Context(), req.AssignTo)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "assign_to user not found")
		return
	}

	h.apply(w, r, coreactions.Request{
		Kind:     coreactions.KindHandle,
		AlertIDs: req.AlertIDs,
		Actor:    h.actor(r),
		Until:    until,
		AssignTo: assignee,
	})
}

// CancelHandle handles POST /api/v1/actions/cancel-handle.
func (h *Handler) CancelHandle(w http.ResponseWriter, r *http.Request) {
	h.simpleAction(w, r, coreactions.KindCancelHandle)
}

// Acknowledge handles POST /api/v1/actions/acknowledge.
func (h *Handler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	h.simpleAction(w, r, coreactions.KindAcknowledge)
}

// CancelAcknowledge handles POST /api/v1/actions/cancel-acknowledge.
func (h *Handler) CancelAcknowledge(w http.ResponseWriter, r *http.Request) {
	h.simpleAction(w, r, coreactions.KindCancelAcknowledge)
}

// Assign handles POST /api/v1/actions/assign.
func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid JSON body")
		return
	}
	timeTo, err := models.ParseActionTS(req.TimeTo)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "time_to must be an ISO-8601 UTC timestamp")
		return
	}

	h.apply(w, r, coreactions.Request{
		Kind:     coreactions.KindAssign,
		AlertIDs: req.AlertIDs,
		Actor:    h.actor(r),
		Assignment: &coreactions.AssignmentSpec{
			NotificationType:   req.NotificationType,
			NotificationFields: string(req.NotificationFields),
			Description:        req.Description,
			Resubmit:           req.Resubmit,
			RecipientID:        req.RecipientID,
			TimeTo:             timeTo,
		},
		StickySeverity: req.StickySeverity,
		StickyOutput:   req.StickyOutput,
	})
}

// CancelAssign handles POST /api/v1/actions/cancel-assign.
func (h *Handler) CancelAssign(w http.ResponseWriter, r *http.Request) {
	h.simpleAction(w, r, coreactions.KindCancelAssign)
}

// AddComment handles POST /api/v1/actions/add-comment.
func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	var req CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid JSON body")
		return
	}
	h.apply(w, r, coreactions.Request{
		Kind:     coreactions.KindAddComment,
		AlertIDs: req.AlertIDs,
		Actor:    h.actor(r),
		Comment:  req.Comment,
	})
}

// AddDescription handles POST /api/v1/actions/add-description.
func (h *Handler) AddDescription(w http.ResponseWriter, r *http.Request) {
	var req DescriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid JSON body")
		return
	}
	h.apply(w, r, coreactions.Request{
		Kind:        coreactions.KindAddDescription,
		AlertIDs:    req.AlertIDs,
		Actor:       h.actor(r),
		Description: req.Description,
	})
}

// simpleAction covers the kinds whose payload is alert ids plus an
// optional comment.
func (h *Handler) simpleAction(w http.ResponseWriter, r *http.Request, kind coreactions.Kind) {
	var req CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid JSON body")
		return
	}
	h.apply(w, r, coreactions.Request{
		Kind:     kind,
		AlertIDs: req.AlertIDs,
		Actor:    h.actor(r),
		Comment:  req.Comment,
	})
}
