package handler

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/api-marketplace-gateway/internal/httputil"
	"github.com/api-marketplace-gateway/internal/middleware"
	"github.com/api-marketplace-gateway/internal/model"
	"github.com/api-marketplace-gateway/internal/service"
)

const maxCallBody = 10 << 20

var forwardedMethods = []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete}

// forwardable answers 405 with an Allow header for verbs the gateway never
// forwards.
func forwardable(w http.ResponseWriter, r *http.Request) bool {
	for _, m := range forwardedMethods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(forwardedMethods, ", "))
	RespondError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method "+r.Method+" is not supported")
	return false
}

// readCallBody buffers the body of POST and PATCH calls; other verbs are
// forwarded without one.
func readCallBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if r.Method != http.MethodPost && r.Method != http.MethodPatch {
		return nil, true
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCallBody))
	if err != nil {
		RespondError(w, http.StatusRequestEntityTooLarge, "invalid_request", "Request body too large")
		return nil, false
	}
	return body, true
}

// --- Metered Call ---

// GatewayHandler serves /apis/call/{apiID}/{version}/* for GET, POST, PATCH
// and DELETE. The upstream's status and body are written back untouched.
type GatewayHandler struct {
	gateway  *service.Gateway
	limiter  *middleware.CallRateLimiter
	keyGuard *middleware.AttemptLimiter
}

// NewGatewayHandler builds the handler. limiter, when set, bounds bursts
// per authorized key. keyGuard, when set, blocks clients that keep presenting
// unknown API keys.
func NewGatewayHandler(gw *service.Gateway, limiter *middleware.CallRateLimiter, keyGuard *middleware.AttemptLimiter) *GatewayHandler {
	return &GatewayHandler{gateway: gw, limiter: limiter, keyGuard: keyGuard}
}

func (h *GatewayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !forwardable(w, r) {
		return
	}
	if h.keyGuard != nil && !h.keyGuard.Allow(r, middleware.ScopeAPIKey) {
		RespondError(w, http.StatusTooManyRequests, "rate_limited", "Too many invalid API keys")
		return
	}

	apiID, err := strconv.ParseInt(chi.URLParam(r, "apiID"), 10, 64)
	if err != nil || apiID <= 0 {
		RespondError(w, http.StatusNotFound, "not_found", "API not found")
		return
	}

	in := service.CallInput{
		APIKey:   r.Header.Get(middleware.APIKeyHeader),
		APIID:    apiID,
		Version:  chi.URLParam(r, "version"),
		Params:   chi.URLParam(r, "*"),
		RawQuery: r.URL.RawQuery,
		Method:   r.Method,
	}
	if h.limiter != nil {
		in.Admit = func(*model.Subscription) error {
			if !h.limiter.Admit(w.Header(), in.APIKey) {
				return service.NewTooManyRequests(service.CodeRateLimited, "Rate limit exceeded")
			}
			return nil
		}
	}

	body, ok := readCallBody(w, r)
	if !ok {
		return
	}
	in.Body = body

	result, err := h.gateway.Call(r.Context(), in)
	if h.keyGuard != nil {
		if service.ErrorCode(err) == service.CodeInvalidAPIKey {
			h.keyGuard.Fail(r, middleware.ScopeAPIKey)
		} else if in.APIKey != "" {
			h.keyGuard.Succeed(r, middleware.ScopeAPIKey)
		}
	}
	if err != nil {
		service.RespondError(w, err)
		return
	}

	httputil.RespondRaw(w, result.StatusCode, result.ContentType, result.Body)
}

// --- Test Call ---

// TryHandler serves /apis/test/{apiID}/{version}/*: the same forwarding as
// the metered gateway for a signed-in user, without a key, quota or ledger.
type TryHandler struct {
	gateway *service.Gateway
}

func NewTryHandler(gw *service.Gateway) *TryHandler {
	return &TryHandler{gateway: gw}
}

func (h *TryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !forwardable(w, r) {
		return
	}
	if _, ok := Caller(w, r); !ok {
		return
	}
	apiID, ok := IDParam(w, r, "apiID", "API")
	if !ok {
		return
	}
	body, ok := readCallBody(w, r)
	if !ok {
		return
	}

	result, err := h.gateway.Try(r.Context(), service.TryInput{
		APIID:    apiID,
		Version:  chi.URLParam(r, "version"),
		Params:   chi.URLParam(r, "*"),
		RawQuery: r.URL.RawQuery,
		Method:   r.Method,
		Body:     body,
	})
	if err != nil {
		service.RespondError(w, err)
		return
	}

	httputil.RespondRaw(w, result.StatusCode, result.ContentType, result.Body)
}
