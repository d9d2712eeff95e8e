package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/geoffjay/berry/internal/api/respond"
	"github.com/geoffjay/berry/internal/api/validate"
	"github.com/geoffjay/berry/internal/model"
	"github.com/geoffjay/berry/internal/services"
)

// MemoryHandler serves the memory CRUD and visibility endpoints.
type MemoryHandler struct {
	svc          *services.MemoryService
	defaultActor string
}

func NewMemoryHandler(svc *services.MemoryService, defaultActor string) *MemoryHandler {
	return &MemoryHandler{svc: svc, defaultActor: defaultActor}
}

// visibilityContext builds the per-request context from asActor and
// adminOverride. Returns nil when no actor was asserted, which selects the
// legacy unchecked path downstream.
func visibilityContext(actor string, adminOverride bool) *model.VisibilityContext {
	if actor == "" {
		return nil
	}
	return &model.VisibilityContext{Actor: actor, AdminOverride: adminOverride}
}

func queryContext(r *http.Request) *model.VisibilityContext {
	q := r.URL.Query()
	override, _ := strconv.ParseBool(q.Get("adminOverride"))
	return visibilityContext(q.Get("asActor"), override)
}

// CreateMemory POST /api/memories
func (h *MemoryHandler) CreateMemory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content    string   `json:"content"`
		Type       string   `json:"type"`
		CreatedBy  string   `json:"createdBy"`
		Owner      string   `json:"owner"`
		Visibility string   `json:"visibility"`
		SharedWith []string `json:"sharedWith"`
		Tags       []string `json:"tags"`
		References []string `json:"references"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.Content(req.Content); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	if err := validate.MemoryType(req.Type); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	if err := validate.VisibilityValue(req.Visibility); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	if req.CreatedBy == "" {
		req.CreatedBy = h.defaultActor
	}

	out, err := h.svc.CreateMemory(r.Context(), model.CreateMemoryRequest{
		Content:    req.Content,
		Type:       model.MemoryType(req.Type),
		CreatedBy:  req.CreatedBy,
		Owner:      req.Owner,
		Visibility: model.Visibility(req.Visibility),
		SharedWith: req.SharedWith,
		Tags:       req.Tags,
		References: req.References,
	})
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, out)
}

// GetMemory GET /api/memories/{id}?asActor=&adminOverride=
func (h *MemoryHandler) GetMemory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	out, err := h.svc.GetMemory(r.Context(), id, queryContext(r))
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// DeleteMemory DELETE /api/memories/{id}?asActor=&adminOverride=
func (h *MemoryHandler) DeleteMemory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.svc.DeleteMemory(r.Context(), id, queryContext(r)); err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"deleted": id})
}

// UpdateVisibility PATCH /api/memories/{id}/visibility
func (h *MemoryHandler) UpdateVisibility(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req struct {
		Visibility    string   `json:"visibility"`
		SharedWith    []string `json:"sharedWith"`
		AsActor       string   `json:"asActor"`
		AdminOverride bool     `json:"adminOverride"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if req.Visibility == "" {
		respond.WriteBadRequest(w, "visibility is required")
		return
	}
	if err := validate.VisibilityValue(req.Visibility); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	out, err := h.svc.UpdateVisibility(r.Context(), id,
		model.Visibility(req.Visibility), req.SharedWith,
		visibilityContext(req.AsActor, req.AdminOverride))
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}
