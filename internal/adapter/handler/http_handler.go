package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/rl1809/pantry-tracker/internal/core/service"
)

const maxRequestBodySize = 1 << 20

type HTTPHandler struct {
	inventory *service.InventoryService
	health    *HealthProber
	logger    *zap.Logger
}

type AddItemHTTPRequest struct {
	Name string `json:"name"`
}

type ErrorHTTPResponse struct {
	Error string `json:"error"`
}

func NewHTTPHandler(inventory *service.InventoryService, health *HealthProber, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{inventory: inventory, health: health, logger: logger}
}

func (h *HTTPHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(AccessLogMiddleware(h.logger))

	r.Get("/health", h.HealthCheck)

	r.Get("/", h.Page)
	r.Post("/items/add", h.PageAdd)
	r.Post("/items/remove", h.PageRemove)
	r.Post("/items/edit", h.PageEdit)

	r.Route("/api/items", func(r chi.Router) {
		r.Get("/", h.ListItems)
		r.Post("/", h.AddItem)
		r.Delete("/{name}", h.RemoveItem)
		r.Patch("/{name}", h.EditItem)
	})

	return r
}

// Page renders the inventory. Store errors are already logged by the
// service; the page falls back to the last known list.
func (h *HTTPHandler) Page(w http.ResponseWriter, r *http.Request) {
	list, _ := h.inventory.ListAll(r.Context())

	state := newPageState(list, r.URL.Query())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, state); err != nil {
		h.logger.Error("render page", zap.Error(err), zap.String("request_id", RequestIDFromContext(r.Context())))
	}
}

func (h *HTTPHandler) PageAdd(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	_, _ = h.inventory.AddItem(r.Context(), r.PostFormValue("name"))
	http.Redirect(w, r, pageURL(r.PostFormValue("q")), http.StatusSeeOther)
}

func (h *HTTPHandler) PageRemove(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	_, _ = h.inventory.RemoveItem(r.Context(), r.PostFormValue("name"))
	http.Redirect(w, r, pageURL(r.PostFormValue("q")), http.StatusSeeOther)
}

func (h *HTTPHandler) PageEdit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	_ = h.inventory.EditItem(r.Context(), r.PostFormValue("name"))
	http.Redirect(w, r, pageURL(r.PostFormValue("q")), http.StatusSeeOther)
}

func (h *HTTPHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	list, err := h.inventory.ListAll(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list.Filter(r.URL.Query().Get("q")))
}

func (h *HTTPHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemHTTPRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Error: "invalid request body"})
		return
	}

	list, err := h.inventory.AddItem(r.Context(), req.Name)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *HTTPHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	list, err := h.inventory.RemoveItem(r.Context(), itemName(r))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *HTTPHandler) EditItem(w http.ResponseWriter, r *http.Request) {
	if err := h.inventory.EditItem(r.Context(), itemName(r)); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.health.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func itemName(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	if r.URL.RawPath == "" {
		return raw
	}
	// chi routes on RawPath when it is set, leaving params escaped
	if name, err := url.PathUnescape(raw); err == nil {
		return name
	}
	return raw
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrStoreUnavailable) {
		writeJSON(w, http.StatusServiceUnavailable, ErrorHTTPResponse{Error: "store unavailable"})
		return
	}
	writeJSON(w, http.StatusInternalServerError, ErrorHTTPResponse{Error: "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
