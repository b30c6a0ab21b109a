package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/api-marketplace-gateway/internal/model"
	"github.com/api-marketplace-gateway/internal/store"
)

const msgNoRequestsLeft = "Subscription has no requests left, Please renew subscription"

// Authorizer validates a presented API key and the subscription behind it.
type Authorizer struct {
	keys store.APIKeyStore
	subs store.SubscriptionStore
	now  func() time.Time
}

func NewAuthorizer(keys store.APIKeyStore, subs store.SubscriptionStore) *Authorizer {
	return &Authorizer{keys: keys, subs: subs, now: time.Now}
}

// Authorize checks, in order: key exists, key active, subscription exists
// for apiID, subscription active, not expired, quota left. The first
// failing check decides the error.
func (a *Authorizer) Authorize(ctx context.Context, apiKey string, apiID int64) (*model.Subscription, error) {
	if apiKey == "" {
		return nil, NewBadRequest(CodeInvalidAPIKey, "Invalid API key")
	}

	key, err := a.keys.GetAPIKey(ctx, apiKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NewBadRequest(CodeInvalidAPIKey, "Invalid API key")
		}
		log.Error().Err(err).Msg("failed to load API key")
		return nil, NewInternal("internal_error", "Failed to authorize API key")
	}
	if key.Status != model.KeyActive {
		return nil, NewBadRequest(CodeAPIKeyInactive, "API key is not active")
	}

	sub, err := a.subs.GetSubscriptionForAPI(ctx, key.SubscriptionID, apiID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NewBadRequest(CodeInvalidSubscription, "Invalid subscription")
		}
		log.Error().Err(err).Int64("subscription_id", key.SubscriptionID).Msg("failed to load subscription")
		return nil, NewInternal("internal_error", "Failed to authorize API key")
	}

	if err := checkSubscription(sub, a.now()); err != nil {
		return nil, err
	}
	return sub, nil
}

// checkSubscription reports why sub cannot be used for a call at now.
func checkSubscription(sub *model.Subscription, now time.Time) error {
	if sub.Status != model.SubscriptionActive {
		return NewBadRequest(CodeSubscriptionInactive, "Subscription is not active")
	}
	if sub.Expired(now) {
		return NewBadRequest(CodeSubscriptionExpired, "Subscription has expired")
	}
	if sub.MaxRequests <= 0 {
		return NewBadRequest(CodeQuotaExhausted, msgNoRequestsLeft)
	}
	return nil
}
