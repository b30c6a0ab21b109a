package supplier

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/api-marketplace-gateway/internal/handler"
	"github.com/api-marketplace-gateway/internal/model"
	"github.com/api-marketplace-gateway/internal/service"
)

// --- Create API ---

type CreateAPIHandler struct {
	svc *service.CatalogService
}

func NewCreateAPIHandler(svc *service.CatalogService) *CreateAPIHandler {
	return &CreateAPIHandler{svc: svc}
}

type createAPIResponse struct {
	API   *model.API    `json:"api"`
	Plans []*model.Plan `json:"plans"`
}

func (h *CreateAPIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	caller, ok := handler.Caller(w, r)
	if !ok {
		return
	}

	var req service.CreateAPIInput
	if !handler.DecodeJSON(w, r, &req) {
		return
	}

	api, plans, err := h.svc.CreateAPI(r.Context(), caller, req)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	handler.RespondJSON(w, http.StatusCreated, createAPIResponse{API: api, Plans: plans})
}

// --- Create API Version ---

type CreateVersionHandler struct {
	svc *service.CatalogService
}

func NewCreateVersionHandler(svc *service.CatalogService) *CreateVersionHandler {
	return &CreateVersionHandler{svc: svc}
}

func (h *CreateVersionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	caller, ok := handler.Caller(w, r)
	if !ok {
		return
	}
	apiID, ok := handler.IDParam(w, r, "id", "API")
	if !ok {
		return
	}

	var req service.CreateVersionInput
	if !handler.DecodeJSON(w, r, &req) {
		return
	}

	v, err := h.svc.CreateVersion(r.Context(), caller, apiID, req)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	handler.RespondJSON(w, http.StatusCreated, v)
}

// --- Activate / Deactivate API ---

type APIStatusHandler struct {
	svc    *service.CatalogService
	status model.APIStatus
}

func NewAPIStatusHandler(svc *service.CatalogService, status model.APIStatus) *APIStatusHandler {
	return &APIStatusHandler{svc: svc, status: status}
}

func (h *APIStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	caller, ok := handler.Caller(w, r)
	if !ok {
		return
	}
	apiID, ok := handler.IDParam(w, r, "id", "API")
	if !ok {
		return
	}

	if err := h.svc.SetAPIStatus(r.Context(), caller, apiID, h.status); err != nil {
		service.RespondError(w, err)
		return
	}

	handler.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"id":     apiID,
		"status": h.status,
	})
}

// --- Activate / Deactivate API Version ---

type VersionStatusHandler struct {
	svc    *service.CatalogService
	status model.VersionStatus
}

// NewVersionStatusHandler serves the version toggles. Deactivating a
// version moves it to suspended.
func NewVersionStatusHandler(svc *service.CatalogService, status model.VersionStatus) *VersionStatusHandler {
	return &VersionStatusHandler{svc: svc, status: status}
}

func (h *VersionStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	caller, ok := handler.Caller(w, r)
	if !ok {
		return
	}
	apiID, ok := handler.IDParam(w, r, "id", "API")
	if !ok {
		return
	}
	version := chi.URLParam(r, "version")

	if err := h.svc.SetVersionStatus(r.Context(), caller, apiID, version, h.status); err != nil {
		service.RespondError(w, err)
		return
	}

	handler.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"api_id":  apiID,
		"version": version,
		"status":  h.status,
	})
}
