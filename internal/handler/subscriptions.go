package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/api-marketplace-gateway/internal/httputil"
	"github.com/api-marketplace-gateway/internal/model"
	"github.com/api-marketplace-gateway/internal/service"
	"github.com/api-marketplace-gateway/internal/store"
)

// WebhookSignatureHeader carries the provider's HMAC of the raw body.
const WebhookSignatureHeader = "signature"

// --- Checkout ---

type CheckoutHandler struct {
	svc *service.SubscriptionService
}

func NewCheckoutHandler(svc *service.SubscriptionService) *CheckoutHandler {
	return &CheckoutHandler{svc: svc}
}

type checkoutResponse struct {
	CheckoutURL string `json:"checkout_url"`
}

func (h *CheckoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	caller, ok := Caller(w, r)
	if !ok {
		return
	}
	apiID, ok := IDParam(w, r, "id", "API")
	if !ok {
		return
	}

	url, err := h.svc.Checkout(r.Context(), caller, apiID, chi.URLParam(r, "plan"), r.URL.Query().Get("redirect_url"))
	if err != nil {
		service.RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, checkoutResponse{CheckoutURL: url})
}

// --- Payment Webhook ---

type WebhookHandler struct {
	svc *service.SubscriptionService
}

func NewWebhookHandler(svc *service.SubscriptionService) *WebhookHandler {
	return &WebhookHandler{svc: svc}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// The signature covers the exact bytes, so the body is read raw.
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	sub, err := h.svc.HandleWebhook(r.Context(), payload, r.Header.Get(WebhookSignatureHeader))
	if err != nil {
		log.Warn().Err(err).Msg("payment webhook rejected")
		service.RespondError(w, err)
		return
	}
	if sub != nil {
		log.Debug().Int64("subscription_id", sub.ID).Msg("payment webhook applied")
	}

	w.WriteHeader(http.StatusOK)
}

// --- Get Subscription ---

type GetSubscriptionHandler struct {
	svc *service.SubscriptionService
}

func NewGetSubscriptionHandler(svc *service.SubscriptionService) *GetSubscriptionHandler {
	return &GetSubscriptionHandler{svc: svc}
}

func (h *GetSubscriptionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	caller, ok := Caller(w, r)
	if !ok {
		return
	}
	id, ok := IDParam(w, r, "id", "subscription")
	if !ok {
		return
	}

	sub, err := h.svc.Get(r.Context(), caller, id)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, sub)
}

// --- List Subscriptions ---

type ListSubscriptionsHandler struct {
	svc *service.SubscriptionService
}

func NewListSubscriptionsHandler(svc *service.SubscriptionService) *ListSubscriptionsHandler {
	return &ListSubscriptionsHandler{svc: svc}
}

type listSubscriptionsResponse struct {
	Data       []*model.Subscription `json:"data"`
	Pagination Pagination            `json:"pagination"`
}

func (h *ListSubscriptionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	caller, ok := Caller(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	page, perPage, err := httputil.ParsePagination(q.Get("page"), q.Get("per_page"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	filters := store.SubscriptionFilters{
		Page:    page,
		PerPage: perPage,
	}

	if apiIDStr := q.Get("api_id"); apiIDStr != "" {
		id, err := strconv.ParseInt(apiIDStr, 10, 64)
		if err != nil {
			RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid api_id")
			return
		}
		filters.APIID = &id
	}

	if plan := q.Get("plan_name"); plan != "" {
		filters.PlanName = &plan
	}

	if statusStr := q.Get("status"); statusStr != "" {
		status := model.SubscriptionStatus(statusStr)
		if status != model.SubscriptionActive && status != model.SubscriptionInactive {
			RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid status")
			return
		}
		filters.Status = &status
	}

	if expiredStr := q.Get("expired"); expiredStr != "" {
		expired, err := strconv.ParseBool(expiredStr)
		if err != nil {
			RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid expired flag")
			return
		}
		filters.Expired = &expired
	}

	subs, total, err := h.svc.List(r.Context(), caller, filters)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, listSubscriptionsResponse{
		Data:       subs,
		Pagination: httputil.NewPagination(page, perPage, total),
	})
}
