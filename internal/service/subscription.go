package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/api-marketplace-gateway/internal/metrics"
	"github.com/api-marketplace-gateway/internal/model"
	"github.com/api-marketplace-gateway/internal/payment"
	"github.com/api-marketplace-gateway/internal/store"
	"github.com/api-marketplace-gateway/internal/validation"
)

// SubscriptionService sells plans through the payment provider and turns
// paid checkouts into subscriptions.
type SubscriptionService struct {
	catalog  store.CatalogStore
	subs     store.SubscriptionStore
	provider payment.Provider
	events   store.EventLog
	now      func() time.Time
}

// NewSubscriptionService builds the service. events may be nil, in which
// case webhook deliveries are not deduplicated.
func NewSubscriptionService(catalog store.CatalogStore, subs store.SubscriptionStore, provider payment.Provider, events store.EventLog) *SubscriptionService {
	return &SubscriptionService{
		catalog:  catalog,
		subs:     subs,
		provider: provider,
		events:   events,
		now:      time.Now,
	}
}

// Checkout starts a hosted checkout for one plan and returns its URL.
func (s *SubscriptionService) Checkout(ctx context.Context, caller model.Caller, apiID int64, planName, redirectURL string) (string, error) {
	if err := validation.HTTPURL("redirect_url", redirectURL); err != nil {
		return "", NewBadRequest("invalid_request", err.Error())
	}

	if _, err := s.catalog.GetAPI(ctx, apiID); err != nil {
		return "", s.lookupError(err, fmt.Sprintf("No API found with id: %d", apiID))
	}

	plan, err := s.catalog.GetPlan(ctx, apiID, planName)
	if err != nil {
		return "", s.lookupError(err, fmt.Sprintf("No plan found with name: %s", planName))
	}
	if plan.PriceID == "" {
		return "", NewBadRequest("payment_provider_error", "Failed to get price id from chargily API")
	}

	checkoutURL, err := s.provider.CreateCheckout(ctx, plan.PriceID, redirectURL, payment.CheckoutMetadata{
		UserID:   json.Number(strconv.FormatInt(caller.UserID, 10)),
		APIID:    json.Number(strconv.FormatInt(apiID, 10)),
		PlanName: planName,
	})
	if err != nil {
		log.Error().Err(err).Int64("api_id", apiID).Str("plan", planName).Msg("failed to create checkout")
		return "", NewBadRequest("payment_provider_error", "Failed to create checkout URL in chargily API")
	}
	return checkoutURL, nil
}

// HandleWebhook verifies and applies one provider delivery. It returns the
// subscription it created, or nil when the event was ignored or already
// processed.
func (s *SubscriptionService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*model.Subscription, error) {
	if signature == "" {
		return nil, NewBadRequest("invalid_signature", "No signature found in headers")
	}
	if len(payload) == 0 {
		return nil, NewBadRequest("invalid_request", "No body found in request")
	}
	if !s.provider.VerifyWebhookSignature(payload, signature) {
		metrics.WebhookEvents.WithLabelValues("unknown", "bad_signature").Inc()
		return nil, NewBadRequest("invalid_signature", "Invalid signature")
	}

	var evt payment.Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, NewBadRequest("invalid_request", "No JSON found in request")
	}

	if evt.Type != payment.EventCheckoutPaid {
		metrics.WebhookEvents.WithLabelValues(evt.Type, "ignored").Inc()
		return nil, nil
	}

	dedupID := evt.ID
	if dedupID == "" {
		dedupID = evt.Data.ID
	}
	if s.events != nil && dedupID != "" {
		first, err := s.events.MarkProcessed(ctx, dedupID)
		if err != nil {
			log.Warn().Err(err).Str("event_id", dedupID).Msg("webhook dedup unavailable, processing anyway")
		} else if !first {
			metrics.WebhookEvents.WithLabelValues(evt.Type, "duplicate").Inc()
			return nil, nil
		}
	}

	sub, err := s.createFromCheckout(ctx, evt.Data)
	if err != nil {
		if s.events != nil && dedupID != "" {
			if ferr := s.events.Forget(ctx, dedupID); ferr != nil {
				log.Warn().Err(ferr).Str("event_id", dedupID).Msg("failed to release webhook event marker")
			}
		}
		metrics.WebhookEvents.WithLabelValues(evt.Type, "failed").Inc()
		return nil, err
	}

	metrics.WebhookEvents.WithLabelValues(evt.Type, "applied").Inc()
	log.Info().
		Int64("subscription_id", sub.ID).
		Int64("api_id", sub.APIID).
		Int64("user_id", sub.UserID).
		Str("plan", sub.PlanName).
		Msg("subscription created from checkout")
	return sub, nil
}

func (s *SubscriptionService) createFromCheckout(ctx context.Context, checkout payment.Checkout) (*model.Subscription, error) {
	apiID, err := checkout.Metadata.APIID.Int64()
	if err != nil {
		return nil, NewBadRequest("invalid_request", "Invalid api_id in checkout metadata")
	}
	userID, err := checkout.Metadata.UserID.Int64()
	if err != nil {
		return nil, NewBadRequest("invalid_request", "Invalid user_id in checkout metadata")
	}
	planName := checkout.Metadata.PlanName

	if _, err := s.catalog.GetAPI(ctx, apiID); err != nil {
		return nil, s.lookupError(err, fmt.Sprintf("No API found with id: %d", apiID))
	}
	plan, err := s.catalog.GetPlan(ctx, apiID, planName)
	if err != nil {
		return nil, s.lookupError(err, fmt.Sprintf("No plan found with name: %s", planName))
	}

	now := s.now().UTC()
	sub := &model.Subscription{
		APIID:       apiID,
		UserID:      userID,
		PlanName:    planName,
		StartDate:   now,
		EndDate:     planEnd(now, plan.Duration),
		MaxRequests: plan.MaxRequests,
		Status:      model.SubscriptionActive,
		Price:       checkout.Amount,
	}
	if err := s.subs.CreateSubscription(ctx, sub); err != nil {
		log.Error().Err(err).Int64("api_id", apiID).Int64("user_id", userID).Msg("failed to create subscription")
		return nil, NewInternal("internal_error", "Failed to create subscription")
	}
	return sub, nil
}

// Get returns a subscription visible to caller: its subscriber, the
// supplier of its API, or an admin.
func (s *SubscriptionService) Get(ctx context.Context, caller model.Caller, id int64) (*model.Subscription, error) {
	notFoundMsg := fmt.Sprintf("No subscription found with id: %d", id)
	sub, err := s.subs.GetSubscription(ctx, id)
	if err != nil {
		return nil, s.lookupError(err, notFoundMsg)
	}

	switch {
	case caller.IsAdmin(), sub.UserID == caller.UserID:
		return sub, nil
	case caller.Role == model.RoleSupplier:
		api, err := s.catalog.GetAPI(ctx, sub.APIID)
		if err != nil {
			return nil, s.lookupError(err, notFoundMsg)
		}
		if api.SupplierID == caller.UserID {
			return sub, nil
		}
	}
	return nil, NewNotFound("not_found", notFoundMsg)
}

// List scopes filters to what caller may see: users their own
// subscriptions, suppliers the subscriptions to their APIs.
func (s *SubscriptionService) List(ctx context.Context, caller model.Caller, filters store.SubscriptionFilters) ([]*model.Subscription, int, error) {
	switch caller.Role {
	case model.RoleAdmin:
	case model.RoleSupplier:
		filters.SupplierID = &caller.UserID
	default:
		filters.UserID = &caller.UserID
	}
	if filters.Expired != nil && filters.Now.IsZero() {
		filters.Now = s.now()
	}

	subs, total, err := s.subs.ListSubscriptions(ctx, filters)
	if err != nil {
		log.Error().Err(err).Msg("failed to list subscriptions")
		return nil, 0, NewInternal("internal_error", "Failed to list subscriptions")
	}
	if subs == nil {
		subs = []*model.Subscription{}
	}
	return subs, total, nil
}

func (s *SubscriptionService) lookupError(err error, notFoundMsg string) error {
	if errors.Is(err, store.ErrNotFound) {
		return NewNotFound("not_found", notFoundMsg)
	}
	log.Error().Err(err).Msg("subscription lookup failed")
	return NewInternal("internal_error", "An unexpected error occurred")
}

// MaxPlanDuration is the longest plan, in seconds, that fits a time.Duration.
const MaxPlanDuration = int64(math.MaxInt64 / int64(time.Second))

// planEnd is start plus seconds, saturated at MaxPlanDuration so that a long
// plan can never wrap around into the past.
func planEnd(start time.Time, seconds int64) time.Time {
	seconds = min(max(seconds, 0), MaxPlanDuration)
	return start.Add(time.Duration(seconds) * time.Second)
}
