// Package alerts serves the read-side notification views and the
// procedure binding endpoint.
package alerts

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/alertops/internal/api/middleware"
	"github.com/good-yellow-bee/alertops/internal/lifecycle"
	"github.com/good-yellow-bee/alertops/internal/models"
	"github.com/good-yellow-bee/alertops/internal/storage"
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
	errCodeBadRequest    = "BAD_REQUEST"
	errCodeNotFound      = "NOT_FOUND"
	errCodeInternalError = "INTERNAL_ERROR"
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

// ProcedureResolver resolves a remediation procedure descriptor.
// Resolution failures degrade to the default descriptor on the read
// path; they never fail a view.
type ProcedureResolver interface {
	Resolve(ctx context.Context, procedureID int64) (*models.Procedure, error)
}

// Config bounds the rendered history window.
type Config struct {
	// RetentionDays is the history horizon when no explicit window is
	// given.
	RetentionDays int
	// CommentlessCap bounds comment-less entries per rendered window.
	CommentlessCap int
}

func (c *Config) setDefaults() {
	if c.RetentionDays <= 0 {
		c.RetentionDays = 120
	}
	if c.CommentlessCap <= 0 {
		c.CommentlessCap = 15
	}
}

// Handler serves notification views.
type Handler struct {
	store      storage.Storage
	procedures ProcedureResolver
	cfg        Config
	now        func() time.Time
}

func NewHandler(store storage.Storage, procedures ProcedureResolver, cfg Config) *Handler {
	cfg.setDefaults()
	return &Handler{store: store, procedures: procedures, cfg: cfg, now: time.Now}
}

// historyBlock is the history sub-object shared by the full and
// history-only views.
type historyBlock struct {
	NotificationHistory []models.HistoryEntry    `json:"notification_history"`
	Statistics          models.StatisticsSummary `json:"statistics"`
}

// detailsView is the composite notification view. Output and the
// additional blobs are decoded from their stored JSON form.
type detailsView struct {
	*models.Notification
	State            string            `json:"state,omitempty"`
	Output           map[string]any    `json:"output"`
	AdditionalFields map[string]any    `json:"additional_fields"`
	AdditionalURLs   map[string]any    `json:"additional_urls"`
	Procedure        *models.Procedure `json:"procedure"`
	Assignment       map[string]any    `json:"assignment,omitempty"`
	History          *historyBlock     `json:"history,omitempty"`
}

type shortView struct {
	ID               int64          `json:"id"`
	MonitoringSystem string         `json:"monitoring_system"`
	Output           map[string]any `json:"output"`
	AdditionalFields map[string]any `json:"additional_fields"`
	AdditionalURLs   map[string]any `json:"additional_urls"`
	Description      string         `json:"description"`
}

// decodeBlob decodes a stored JSON object column, degrading to an
// empty object on missing or malformed data.
func decodeBlob(raw string) map[string]any {
	out := map[string]any{}
	if raw == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return map[string]any{}
	}
	return out
}

func alertIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Details returns the full composite view: canonical fields, lifecycle
// state, procedure descriptor, assignment snapshot and history.
func (h *Handler) Details(w http.ResponseWriter, r *http.Request) {
	h.serveView(w, r, true)
}

// Main returns the composite view without the history sub-object.
func (h *Handler) Main(w http.ResponseWriter, r *http.Request) {
	h.serveView(w, r, false)
}

func (h *Handler) serveView(w http.ResponseWriter, r *http.Request, withHistory bool) {
	id, ok := alertIDParam(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid notification id")
		return
	}

	n, err := h.store.Notifications().GetByID(r.Context(), id)
	if err != nil {
		log.Printf("Get notification %d error: %v", id, err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if n == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "notification not found")
		return
	}

	view, err := h.buildDetails(r.Context(), n, withHistory)
	if err != nil {
		log.Printf("Build notification view %d error: %v", id, err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	jsonOK(w, view)
}

func (h *Handler) buildDetails(ctx context.Context, n *models.Notification, withHistory bool) (*detailsView, error) {
	view := &detailsView{
		Notification:     n,
		Output:           decodeBlob(n.Output),
		AdditionalFields: decodeBlob(n.AdditionalFields),
		AdditionalURLs:   decodeBlob(n.AdditionalURLs),
	}

	now := h.now().UTC()

	live, err := h.store.LiveAlerts().GetByID(ctx, n.ID)
	if err != nil {
		return nil, err
	}
	if live != nil {
		state, known := lifecycle.Derive(lifecycle.FieldsFromAlert(live), now)
		if !known {
			log.Printf("Alert %d: unknown lifecycle combination, rendering active", n.ID)
		}
		view.State = string(state)
	}

	proc, err := h.procedures.Resolve(ctx, n.ProcedureID)
	if err != nil {
		log.Printf("Resolve procedure %d for alert %d error: %v", n.ProcedureID, n.ID, err)
	}
	if proc == nil {
		proc = models.DefaultProcedure()
	}
	view.Procedure = proc

	if n.AssignStatus == 1 {
		assignment, err := h.store.Assignments().Get(ctx, n.ID)
		if err != nil {
			return nil, err
		}
		if assignment == nil {
			log.Printf("Alert %d: assign_status set but no assignment row", n.ID)
			view.Assignment = map[string]any{}
		} else {
			view.Assignment = assignment.Render()
		}
	}

	if withHistory {
		block, err := h.historyFor(ctx, n.ID, now)
		if err != nil {
			return nil, err
		}
		view.History = block
	}
	return view, nil
}

func (h *Handler) historyFor(ctx context.Context, alertID int64, now time.Time) (*historyBlock, error) {
	from := now.AddDate(0, 0, -h.cfg.RetentionDays)
	events, err := h.store.History().ListWindow(ctx, alertID, from, now)
	if err != nil {
		return nil, err
	}

	block := &historyBlock{
		NotificationHistory: models.RenderHistory(events, h.cfg.CommentlessCap),
	}
	stats, err := h.store.Statistics().Get(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if stats != nil {
		block.Statistics = models.StatisticsSummary{Snoozed: stats.Snooze, Reopen: stats.Reopen}
	}
	return block, nil
}

// Short returns the lightweight view used where full detail is
// unnecessary.
func (h *Handler) Short(w http.ResponseWriter, r *http.Request) {
	id, ok := alertIDParam(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid notification id")
		return
	}

	n, err := h.store.Notifications().GetByID(r.Context(), id)
	if err != nil {
		log.Printf("Get notification %d error: %v", id, err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if n == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "notification not found")
		return
	}

	jsonOK(w, shortView{
		ID:               n.ID,
		MonitoringSystem: n.MonitoringSystem,
		Output:           decodeBlob(n.Output),
		AdditionalFields: decodeBlob(n.AdditionalFields),
		AdditionalURLs:   decodeBlob(n.AdditionalURLs),
		Description:      n.Description,
	})
}

// History returns the history sub-object alone.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := alertIDParam(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid notification id")
		return
	}

	n, err := h.store.Notifications().GetByID(r.Context(), id)
	if err != nil {
		log.Printf("Get notification %d error: %v", id, err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if n == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "notification not found")
		return
	}

	block, err := h.historyFor(r.Context(), id, h.now().UTC())
	if err != nil {
		log.Printf("Load history for alert %d error: %v", id, err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	jsonOK(w, block)
}

// AssignProcedureRequest binds a remediation procedure to a
// notification.
type AssignProcedureRequest struct {
	NotificationID int64 `json:"notification_id"`
	ProcedureID    int64 `json:"procedure_id"`
}

// AssignProcedure validates the procedure against the resolver and
// binds it to the notification.
func (h *Handler) AssignProcedure(w http.ResponseWriter, r *http.Request) {
	var req AssignProcedureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if req.NotificationID <= 0 || req.ProcedureID <= 0 {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "notification_id and procedure_id are required")
		return
	}

	n, err := h.store.Notifications().GetByID(r.Context(), req.NotificationID)
	if err != nil {
		log.Printf("Get notification %d error: %v", req.NotificationID, err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if n == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "notification not found")
		return
	}

	proc, err := h.procedures.Resolve(r.Context(), req.ProcedureID)
	if err != nil {
		log.Printf("Resolve procedure %d error: %v", req.ProcedureID, err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if proc == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "procedure not found")
		return
	}

	upd := models.NotificationUpdate{ProcedureID: &req.ProcedureID}
	if err := h.store.Notifications().Update(r.Context(), req.NotificationID, upd); err != nil {
		log.Printf("Bind procedure %d to notification %d error: %v", req.ProcedureID, req.NotificationID, err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	entry := &models.AuditEntry{
		Name:     "Assign procedure.",
		ObjType:  "notification",
		ObjID:    req.NotificationID,
		Username: middleware.GetUsername(r.Context()),
		Notes:    "procedure " + strconv.FormatInt(req.ProcedureID, 10),
	}
	if err := h.store.Audit().Create(r.Context(), entry); err != nil {
		log.Printf("Audit assign procedure for notification %d error: %v", req.NotificationID, err)
	}

	jsonOK(w, map[string]int64{
		"notification_id": req.NotificationID,
		"procedure_id":    req.ProcedureID,
	})
}

// ActiveBySource lists active notifications for a source host.
func (h *Handler) ActiveBySource(w http.ResponseWriter, r *http.Request) {
	h.serveActive(w, r, "source", h.store.Notifications().ActiveBySource)
}

// ActiveByObject lists active notifications for an object name.
func (h *Handler) ActiveByObject(w http.ResponseWriter, r *http.Request) {
	h.serveActive(w, r, "object", h.store.Notifications().ActiveByObject)
}

func (h *Handler) serveActive(w http.ResponseWriter, r *http.Request, param string,
	list func(ctx context.Context, key string) ([]*models.Notification, error)) {

	key := chi.URLParam(r, param)
	if key == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, param+" is required")
		return
	}

	notifications, err := list(r.Context(), key)
	if err != nil {
		log.Printf("List active notifications by %s %q error: %v", param, key, err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if notifications == nil {
		notifications = []*models.Notification{}
	}
	jsonOK(w, notifications)
}
