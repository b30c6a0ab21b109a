package supplier

import (
	"net/http"
	"strconv"
	"time"

	"github.com/api-marketplace-gateway/internal/handler"
	"github.com/api-marketplace-gateway/internal/httputil"
	"github.com/api-marketplace-gateway/internal/model"
	"github.com/api-marketplace-gateway/internal/service"
	"github.com/api-marketplace-gateway/internal/store"
)

// --- List API Requests ---

type RequestsHandler struct {
	svc *service.RequestLogService
}

func NewRequestsHandler(svc *service.RequestLogService) *RequestsHandler {
	return &RequestsHandler{svc: svc}
}

type requestsResponse struct {
	Data       []*model.APIRequest `json:"data"`
	Pagination handler.Pagination  `json:"pagination"`
}

func (h *RequestsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	caller, ok := handler.Caller(w, r)
	if !ok {
		return
	}
	apiID, ok := handler.IDParam(w, r, "id", "API")
	if !ok {
		return
	}
	q := r.URL.Query()

	page, perPage, err := httputil.ParsePagination(q.Get("page"), q.Get("per_page"))
	if err != nil {
		handler.RespondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	filters := store.RequestFilters{
		Page:    page,
		PerPage: perPage,
	}

	if statusStr := q.Get("http_status"); statusStr != "" {
		status, err := strconv.Atoi(statusStr)
		if err != nil {
			handler.RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid http_status")
			return
		}
		filters.HTTPStatus = &status
	}

	if version := q.Get("version"); version != "" {
		filters.Version = &version
	}

	if fromStr := q.Get("start_date"); fromStr != "" {
		t, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			handler.RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid 'start_date' format (use RFC3339)")
			return
		}
		filters.From = &t
	}

	if toStr := q.Get("end_date"); toStr != "" {
		t, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			handler.RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid 'end_date' format (use RFC3339)")
			return
		}
		filters.To = &t
	}

	reqs, total, err := h.svc.List(r.Context(), caller, apiID, filters)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	handler.RespondJSON(w, http.StatusOK, requestsResponse{
		Data:       reqs,
		Pagination: httputil.NewPagination(page, perPage, total),
	})
}
