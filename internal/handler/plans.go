package handler

import (
	"net/http"

	"github.com/api-marketplace-gateway/internal/model"
	"github.com/api-marketplace-gateway/internal/service"
)

// PlansHandler lists the plans on sale for an API. It is public.
type PlansHandler struct {
	svc *service.CatalogService
}

func NewPlansHandler(svc *service.CatalogService) *PlansHandler {
	return &PlansHandler{svc: svc}
}

type PlansResponse struct {
	APIID int64         `json:"api_id"`
	Plans []*model.Plan `json:"plans"`
}

func (h *PlansHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	apiID, ok := IDParam(w, r, "id", "API")
	if !ok {
		return
	}

	plans, err := h.svc.Plans(r.Context(), apiID)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, PlansResponse{APIID: apiID, Plans: plans})
}
