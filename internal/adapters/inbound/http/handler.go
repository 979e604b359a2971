// handler.go provides the HTTP REST API for the sign-up sheet.
//
// This inbound adapter exposes the service functionality over HTTP:
//   - GET /api/menu: the sheet grouped into display buckets
//   - GET /api/entries: the raw sheet in stored row order
//   - POST /api/entries: submit a new entry
//   - GET /api/categories: the fixed category set for form rendering
//   - GET /health: combined health check
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/raneja-ux/potluck-app/internal/domain/entity"
	"github.com/raneja-ux/potluck-app/internal/ports/inbound"
	"github.com/raneja-ux/potluck-app/internal/services/registry"
)

// User-facing messages returned by the API.
const (
	msgSuccess          = "Dish added successfully!"
	msgDuplicateDish    = "This dish is already on the list! Please bring something else."
	msgNameRequired     = "Please enter your name."
	msgDishRequired     = "Please tell us what you're bringing."
	msgCategoryRequired = "Please choose a category."
	msgStoreUnavailable = "The sign-up sheet is temporarily unavailable. Please try again."
)

// Handler implements HTTP handlers for the sign-up sheet API.
type Handler struct {
	service inbound.SignupService
	logger  *slog.Logger
}

// NewHandler creates a new HTTP handler with the given service.
func NewHandler(service inbound.SignupService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service: service,
		logger:  logger.With("component", "http-handler"),
	}
}

// RegisterRoutes registers the HTTP routes with the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/menu", h.Menu)
	mux.HandleFunc("GET /api/entries", h.ListEntries)
	mux.HandleFunc("POST /api/entries", h.SubmitEntry)
	mux.HandleFunc("GET /api/categories", h.ListCategories)
	mux.HandleFunc("GET /health", h.Health)
}

// entryJSON is the wire form of one sign-up row.
type entryJSON struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Dish     string `json:"dish"`
	Note     string `json:"note"`
}

// bucketJSON is one display section of the menu.
type bucketJSON struct {
	Title   string      `json:"title"`
	Entries []entryJSON `json:"entries"`
}

// submitRequest is the body of POST /api/entries. partnerName is optional;
// when present the stored name becomes "name & partnerName".
type submitRequest struct {
	Name        string `json:"name"`
	PartnerName string `json:"partnerName"`
	Category    string `json:"category"`
	Dish        string `json:"dish"`
	Note        string `json:"note"`
}

// Menu returns the sheet grouped into display buckets. When the store is
// unreachable the response is still 200 with empty buckets and transient
// set, so the page renders and the client knows to retry.
func (h *Handler) Menu(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Snapshot(r.Context())
	transient := err != nil

	buckets := snap.Menu()
	out := make([]bucketJSON, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, bucketJSON{Title: b.Title, Entries: toEntriesJSON(b.Entries)})
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"buckets":   out,
		"transient": transient,
	})
}

// ListEntries returns the raw sheet in stored row order.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Snapshot(r.Context())
	transient := err != nil

	h.respondJSON(w, http.StatusOK, map[string]any{
		"entries":   toEntriesJSON(snap.Entries),
		"transient": transient,
	})
}

// SubmitEntry validates and appends one entry. The three failure classes
// map to distinct status codes and error labels so the client can show the
// right message.
func (h *Handler) SubmitEntry(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "bad_request", "request body must be valid JSON")
		return
	}

	candidate := entity.Entry{
		Name:     entity.CombineNames(req.Name, req.PartnerName),
		Category: entity.Category(req.Category),
		Dish:     req.Dish,
		Note:     req.Note,
	}

	err := h.service.Submit(r.Context(), candidate)
	if err == nil {
		h.respondJSON(w, http.StatusCreated, map[string]string{
			"status":  "created",
			"message": msgSuccess,
		})
		return
	}

	var verr *entity.ValidationError
	switch {
	case errors.As(err, &verr):
		h.respondJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "validation",
			"field":   verr.Field,
			"message": validationMessage(verr),
		})
	case errors.Is(err, entity.ErrDuplicateDish):
		h.respondError(w, http.StatusConflict, "duplicate_dish", msgDuplicateDish)
	case errors.Is(err, registry.ErrStoreUnavailable):
		h.respondError(w, http.StatusServiceUnavailable, "store_unavailable", msgStoreUnavailable)
	default:
		h.logger.Error("submit failed", "error", err)
		h.respondError(w, http.StatusInternalServerError, "internal", "unexpected error")
	}
}

// ListCategories returns the fixed category set in display order.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats := entity.Categories()
	out := make([]string, 0, len(cats))
	for _, c := range cats {
		out = append(out, c.String())
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"categories": out})
}

// Health handles the combined health check endpoint.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.respondError(w, http.StatusServiceUnavailable, "unhealthy", "store unreachable")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func validationMessage(verr *entity.ValidationError) string {
	switch verr.Field {
	case "name":
		return msgNameRequired
	case "dish":
		return msgDishRequired
	case "category":
		return msgCategoryRequired
	default:
		return verr.Reason
	}
}

func toEntriesJSON(entries []entity.Entry) []entryJSON {
	out := make([]entryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryJSON{
			Name:     e.Name,
			Category: e.Category.String(),
			Dish:     e.Dish,
			Note:     e.Note,
		})
	}
	return out
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", "error", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, code, message string) {
	h.respondJSON(w, status, map[string]string{"error": code, "message": message})
}
