package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/log"

	"github.com/api-marketplace-gateway/internal/metrics"
	"github.com/api-marketplace-gateway/internal/model"
	"github.com/api-marketplace-gateway/internal/upstream"
)

// Dispatcher performs the outbound call. *upstream.Forwarder implements it.
type Dispatcher interface {
	Do(ctx context.Context, method, url string, headers map[string]string, body []byte) (*upstream.Response, error)
}

// CallInput is one inbound gateway call.
type CallInput struct {
	APIKey   string
	APIID    int64
	Version  string
	Params   string
	RawQuery string
	Method   string
	Body     []byte

	// Admit, when set, runs once the key is authorized and before anything
	// is resolved or claimed. An error aborts the call with no side effects.
	Admit func(sub *model.Subscription) error
}

// CallResult is the upstream's answer, passed back untranslated.
type CallResult struct {
	StatusCode  int
	Body        []byte
	ContentType string
}

// Gateway runs the metered call pipeline: authorize, resolve, claim quota,
// dispatch, record.
type Gateway struct {
	authorizer *Authorizer
	resolver   *UpstreamResolver
	recorder   *UsageRecorder
	dispatcher Dispatcher
	now        func() time.Time
}

func NewGateway(authorizer *Authorizer, resolver *UpstreamResolver, recorder *UsageRecorder, dispatcher Dispatcher) *Gateway {
	return &Gateway{
		authorizer: authorizer,
		resolver:   resolver,
		recorder:   recorder,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// Call forwards one request. Any failure before dispatch leaves no trace:
// no ledger row and no quota consumed. Once dispatched, the ledger row is
// always written, whatever the upstream returned.
func (g *Gateway) Call(ctx context.Context, in CallInput) (*CallResult, error) {
	method, err := gatewayMethod(in.Method)
	if err != nil {
		return nil, err
	}

	sub, err := g.authorizer.Authorize(ctx, in.APIKey, in.APIID)
	if err != nil {
		return nil, rejected(err)
	}

	if in.Admit != nil {
		if err := in.Admit(sub); err != nil {
			return nil, rejected(err)
		}
	}

	target, err := g.resolver.Resolve(ctx, in.APIID, in.Version)
	if err != nil {
		return nil, rejected(err)
	}

	requestURL, err := buildRequestURL(target.BaseURL, in.Params, in.RawQuery)
	if err != nil {
		log.Error().Err(err).Int64("api_id", in.APIID).Str("version", in.Version).Msg("invalid upstream base URL")
		return nil, rejected(NewInternal("internal_error", "API version is misconfigured"))
	}

	if err := g.recorder.ClaimQuota(ctx, sub); err != nil {
		return nil, rejected(err)
	}

	var body []byte
	if method == http.MethodPost || method == http.MethodPatch {
		body = in.Body
	}

	requestAt := g.now()
	resp, dispatchErr := g.dispatcher.Do(ctx, method, requestURL, target.Headers, body)
	responseAt := g.now()

	rec := CallRecord{
		Subscription: sub,
		APIKey:       in.APIKey,
		APIID:        in.APIID,
		Version:      in.Version,
		RequestURL:   requestURL,
		Method:       method,
		RequestBody:  body,
		RequestAt:    requestAt,
		ResponseAt:   responseAt,
	}
	if dispatchErr != nil {
		rec.ResponseBody = []byte(dispatchErr.Error())
	} else {
		rec.HTTPStatus = resp.StatusCode
		rec.ResponseBody = resp.Body
	}
	metrics.ObserveCall(in.APIID, method, rec.HTTPStatus, responseAt.Sub(requestAt))

	// The caller going away must not cost us the ledger row.
	if _, err := g.recorder.Record(context.WithoutCancel(ctx), rec); err != nil {
		metrics.LedgerWriteFailures.Inc()
		if hub := sentry.GetHubFromContext(ctx); hub != nil {
			hub.CaptureException(err)
		}
		log.Error().Err(err).
			Int64("subscription_id", sub.ID).
			Int64("api_id", in.APIID).
			Str("version", in.Version).
			Str("method", method).
			Int("http_status", rec.HTTPStatus).
			Msg("failed to record API request")
	}

	if dispatchErr != nil {
		log.Warn().Err(dispatchErr).Int64("api_id", in.APIID).Str("url", requestURL).Msg("upstream call failed")
		return nil, fmt.Errorf("dispatch: %w", dispatchErr)
	}

	return &CallResult{StatusCode: resp.StatusCode, Body: resp.Body, ContentType: resp.ContentType}, nil
}

// TryInput is one unmetered test call made by a signed-in user.
type TryInput struct {
	APIID    int64
	Version  string
	Params   string
	RawQuery string
	Method   string
	Body     []byte
}

// Try forwards a call without an API key. It resolves and dispatches
// exactly like Call but never touches a subscription: no quota is claimed
// and no ledger row is written.
func (g *Gateway) Try(ctx context.Context, in TryInput) (*CallResult, error) {
	method, err := gatewayMethod(in.Method)
	if err != nil {
		return nil, err
	}

	target, err := g.resolver.Resolve(ctx, in.APIID, in.Version)
	if err != nil {
		return nil, err
	}

	requestURL, err := buildRequestURL(target.BaseURL, in.Params, in.RawQuery)
	if err != nil {
		log.Error().Err(err).Int64("api_id", in.APIID).Str("version", in.Version).Msg("invalid upstream base URL")
		return nil, NewInternal("internal_error", "API version is misconfigured")
	}

	var body []byte
	if method == http.MethodPost || method == http.MethodPatch {
		body = in.Body
	}

	resp, err := g.dispatcher.Do(ctx, method, requestURL, target.Headers, body)
	if err != nil {
		log.Warn().Err(err).Int64("api_id", in.APIID).Str("url", requestURL).Msg("test call failed")
		return nil, fmt.Errorf("dispatch: %w", err)
	}
	return &CallResult{StatusCode: resp.StatusCode, Body: resp.Body, ContentType: resp.ContentType}, nil
}

func gatewayMethod(m string) (string, error) {
	switch strings.ToUpper(m) {
	case http.MethodGet:
		return http.MethodGet, nil
	case http.MethodPost:
		return http.MethodPost, nil
	case http.MethodPatch:
		return http.MethodPatch, nil
	case http.MethodDelete:
		return http.MethodDelete, nil
	}
	return "", NewBadRequest("method_not_allowed", fmt.Sprintf("Method %s is not supported", m))
}

// buildRequestURL joins base and params as "{base}/{params}" and appends
// the inbound query string.
func buildRequestURL(base, params, rawQuery string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url %q: %w", base, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("base url %q must be absolute http(s)", base)
	}

	joined := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(params, "/")
	if rawQuery != "" {
		sep := "?"
		if strings.Contains(joined, "?") {
			sep = "&"
		}
		joined += sep + rawQuery
	}
	return joined, nil
}

func rejected(err error) error {
	code := "internal_error"
	var svcErr *Error
	if errors.As(err, &svcErr) {
		code = svcErr.Code
	}
	metrics.GatewayRejections.WithLabelValues(code).Inc()
	return err
}
