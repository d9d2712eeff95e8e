package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/geoffjay/berry/internal/api/respond"
	"github.com/geoffjay/berry/internal/api/validate"
	"github.com/geoffjay/berry/internal/model"
	"github.com/geoffjay/berry/internal/services"
)

// SearchHandler serves POST /api/search.
type SearchHandler struct {
	svc *services.MemoryService
}

func NewSearchHandler(svc *services.MemoryService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

// HandleSearch processes incoming search requests.
func (h *SearchHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query         string     `json:"query"`
		Type          string     `json:"type"`
		CreatedBy     string     `json:"createdBy"`
		Tags          []string   `json:"tags"`
		References    []string   `json:"references"`
		Since         *time.Time `json:"since"`
		Until         *time.Time `json:"until"`
		Limit         int        `json:"limit"`
		AsActor       string     `json:"asActor"`
		AdminOverride bool       `json:"adminOverride"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.MemoryType(req.Type); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	if err := validate.Limit(req.Limit); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	results, err := h.svc.Search(r.Context(), model.SearchRequest{
		Query:      req.Query,
		Type:       model.MemoryType(req.Type),
		CreatedBy:  req.CreatedBy,
		Tags:       req.Tags,
		References: req.References,
		Since:      req.Since,
		Until:      req.Until,
		Limit:      req.Limit,
		Context:    visibilityContext(req.AsActor, req.AdminOverride),
	})
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}
