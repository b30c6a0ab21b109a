package handler

import (
	"net/http"
	"strings"

	"github.com/api-marketplace-gateway/internal/model"
	"github.com/api-marketplace-gateway/internal/service"
)

// --- Create API Key ---

type CreateAPIKeyHandler struct {
	svc *service.APIKeyService
}

func NewCreateAPIKeyHandler(svc *service.APIKeyService) *CreateAPIKeyHandler {
	return &CreateAPIKeyHandler{svc: svc}
}

func (h *CreateAPIKeyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	caller, ok := Caller(w, r)
	if !ok {
		return
	}
	subID, ok := IDParam(w, r, "id", "subscription")
	if !ok {
		return
	}

	key, err := h.svc.Create(r.Context(), caller, subID)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusCreated, key)
}

// --- List API Keys ---

type ListAPIKeysHandler struct {
	svc *service.APIKeyService
}

func NewListAPIKeysHandler(svc *service.APIKeyService) *ListAPIKeysHandler {
	return &ListAPIKeysHandler{svc: svc}
}

type listAPIKeysResponse struct {
	Data []*model.APIKey `json:"data"`
}

func (h *ListAPIKeysHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	caller, ok := Caller(w, r)
	if !ok {
		return
	}
	subID, ok := IDParam(w, r, "id", "subscription")
	if !ok {
		return
	}

	keys, err := h.svc.List(r.Context(), caller, subID)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, listAPIKeysResponse{Data: keys})
}

// --- Activate / Deactivate API Key ---

type APIKeyStatusHandler struct {
	svc    *service.APIKeyService
	status model.APIKeyStatus
}

// NewAPIKeyStatusHandler serves one of the activate or deactivate routes,
// selected by status.
func NewAPIKeyStatusHandler(svc *service.APIKeyService, status model.APIKeyStatus) *APIKeyStatusHandler {
	return &APIKeyStatusHandler{svc: svc, status: status}
}

type apiKeyStatusRequest struct {
	Key string `json:"key"`
}

func (h *APIKeyStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	caller, ok := Caller(w, r)
	if !ok {
		return
	}

	var req apiKeyStatusRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	req.Key = strings.TrimSpace(req.Key)
	if req.Key == "" {
		RespondError(w, http.StatusBadRequest, "invalid_request", "key is required")
		return
	}

	var err error
	if h.status == model.KeyActive {
		err = h.svc.Activate(r.Context(), caller, req.Key)
	} else {
		err = h.svc.Deactivate(r.Context(), caller, req.Key)
	}
	if err != nil {
		service.RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"key":    req.Key,
		"status": h.status,
	})
}
