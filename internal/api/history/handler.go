// Package history serves the multi-alert history search and timeline
// endpoints.
package history

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

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

// StudioDirectory names environments in search results. The directory
// holder refreshes in the background; Name never blocks.
type StudioDirectory interface {
	Name(id int64) string
}

// Config bounds search results and timeline rendering.
type Config struct {
	RetentionDays  int
	CommentlessCap int
	SearchLimit    int
}

func (c *Config) setDefaults() {
	if c.RetentionDays <= 0 {
		c.RetentionDays = 120
	}
	if c.CommentlessCap <= 0 {
		c.CommentlessCap = 15
	}
	if c.SearchLimit <= 0 {
		c.SearchLimit = 100
	}
}

// Handler serves history search endpoints.
type Handler struct {
	store   storage.Storage
	studios StudioDirectory
	cfg     Config
	now     func() time.Time
}

func NewHandler(store storage.Storage, studios StudioDirectory, cfg Config) *Handler {
	cfg.setDefaults()
	return &Handler{store: store, studios: studios, cfg: cfg, now: time.Now}
}

// SearchRequest filters the notification history search. Empty fields
// disable the corresponding filter.
type SearchRequest struct {
	From             string  `json:"from"`
	To               string  `json:"to"`
	EnvironmentIDs   []int64 `json:"environment_ids"`
	MonitoringSystem string  `json:"monitoring_system"`
	Service          string  `json:"service"`
	Source           string  `json:"source"`
	Name             string  `json:"name"`
	Object           string  `json:"object"`
	Pattern          string  `json:"pattern"`
	ProcedureID      int64   `json:"procedure_id"`
}

// EnvironmentCount is the per-environment result count returned
// alongside a search.
type EnvironmentCount struct {
	StudioID int64  `json:"studio_id"`
	Name     string `json:"name,omitempty"`
	Count    int    `json:"count"`
}

type searchResponse struct {
	Notifications []*models.Notification `json:"notifications"`
	Environments  []EnvironmentCount     `json:"environments"`
}

// parseWindowTS accepts either the action payload layout or the
// normalized store layout.
func parseWindowTS(s string) (time.Time, error) {
	if t, err := time.Parse(models.PayloadTimeLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(models.StoreTimeLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// Search runs the filtered notification search and aggregates
// per-environment counts.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	filter := storage.HistorySearch{
		EnvironmentIDs:   req.EnvironmentIDs,
		MonitoringSystem: req.MonitoringSystem,
		Service:          req.Service,
		Source:           req.Source,
		Name:             req.Name,
		Object:           req.Object,
		Pattern:          req.Pattern,
		ProcedureID:      req.ProcedureID,
		Limit:            h.cfg.SearchLimit,
	}

	now := h.now().UTC()
	if req.From != "" {
		from, err := parseWindowTS(req.From)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid from timestamp")
			return
		}
		filter.From = from
	} else {
		filter.From = now.AddDate(0, 0, -h.cfg.RetentionDays)
	}
	if req.To != "" {
		to, err := parseWindowTS(req.To)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid to timestamp")
			return
		}
		filter.To = to
	} else {
		filter.To = now
	}

	notifications, err := h.store.Notifications().Search(r.Context(), filter)
	if err != nil {
		log.Printf("History search error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if notifications == nil {
		notifications = []*models.Notification{}
	}

	counts := map[int64]int{}
	var order []int64
	for _, n := range notifications {
		if _, seen := counts[n.StudioID]; !seen {
			order = append(order, n.StudioID)
		}
		counts[n.StudioID]++
	}
	environments := make([]EnvironmentCount, 0, len(order))
	for _, id := range order {
		environments = append(environments, EnvironmentCount{
			StudioID: id,
			Name:     h.studios.Name(id),
			Count:    counts[id],
		})
	}

	jsonOK(w, searchResponse{Notifications: notifications, Environments: environments})
}

// TimelineRequest selects windowed history for a batch of alerts.
type TimelineRequest struct {
	AlertIDs []int64 `json:"alert_ids"`
	From     string  `json:"from"`
	To       string  `json:"to"`
}

// Timeline returns per-alert rendered history within the window.
func (h *Handler) Timeline(w http.ResponseWriter, r *http.Request) {
	var req TimelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if len(req.AlertIDs) == 0 {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "alert_ids is required")
		return
	}

	now := h.now().UTC()
	from := now.AddDate(0, 0, -h.cfg.RetentionDays)
	to := now
	var err error
	if req.From != "" {
		if from, err = parseWindowTS(req.From); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid from timestamp")
			return
		}
	}
	if req.To != "" {
		if to, err = parseWindowTS(req.To); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid to timestamp")
			return
		}
	}

	timeline := make(map[string][]models.HistoryEntry, len(req.AlertIDs))
	for _, id := range req.AlertIDs {
		events, err := h.store.History().ListWindow(r.Context(), id, from, to)
		if err != nil {
			log.Printf("Timeline for alert %d error: %v", id, err)
			jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
			return
		}
		timeline[strconv.FormatInt(id, 10)] = models.RenderHistory(events, h.cfg.CommentlessCap)
	}

	jsonOK(w, timeline)
}
