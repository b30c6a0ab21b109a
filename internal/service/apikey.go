package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/api-marketplace-gateway/internal/model"
	"github.com/api-marketplace-gateway/internal/store"
)

const DefaultKeyPrefix = "itouch-"

// APIKeyService manages the keys a subscriber uses to call the gateway.
// Keys are never regenerated or deleted, only toggled.
type APIKeyService struct {
	keys   store.APIKeyStore
	subs   store.SubscriptionStore
	prefix string
	now    func() time.Time
}

func NewAPIKeyService(keys store.APIKeyStore, subs store.SubscriptionStore, prefix string) *APIKeyService {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &APIKeyService{keys: keys, subs: subs, prefix: prefix, now: time.Now}
}

// Create issues a new key for a subscription the caller owns. The
// subscription must still be usable.
func (s *APIKeyService) Create(ctx context.Context, caller model.Caller, subscriptionID int64) (*model.APIKey, error) {
	sub, err := s.ownedSubscription(ctx, caller, subscriptionID)
	if err != nil {
		return nil, err
	}

	if sub.MaxRequests <= 0 {
		return nil, NewBadRequest(CodeQuotaExhausted, "Subscription has no requests left, Please Renew Subscription")
	}
	if sub.Status != model.SubscriptionActive {
		return nil, NewBadRequest(CodeSubscriptionInactive, "Subscription is not active")
	}
	if sub.Expired(s.now()) {
		return nil, NewBadRequest(CodeSubscriptionExpired, "Subscription has expired")
	}

	key := &model.APIKey{
		Key:            generateAPIKey(s.prefix),
		SubscriptionID: sub.ID,
		Status:         model.KeyActive,
	}
	if err := s.keys.CreateAPIKey(ctx, key); err != nil {
		log.Error().Err(err).Int64("subscription_id", sub.ID).Msg("failed to create API key")
		return nil, NewInternal("internal_error", "Failed to create API key")
	}
	return key, nil
}

// List returns the keys of a subscription the caller owns.
func (s *APIKeyService) List(ctx context.Context, caller model.Caller, subscriptionID int64) ([]*model.APIKey, error) {
	if _, err := s.ownedSubscription(ctx, caller, subscriptionID); err != nil {
		return nil, err
	}
	keys, err := s.keys.ListAPIKeys(ctx, subscriptionID)
	if err != nil {
		log.Error().Err(err).Int64("subscription_id", subscriptionID).Msg("failed to list API keys")
		return nil, NewInternal("internal_error", "Failed to list API keys")
	}
	if keys == nil {
		keys = []*model.APIKey{}
	}
	return keys, nil
}

func (s *APIKeyService) Activate(ctx context.Context, caller model.Caller, key string) error {
	return s.setStatus(ctx, caller, key, model.KeyActive)
}

// Deactivate blocks the key for every subsequent gateway call.
func (s *APIKeyService) Deactivate(ctx context.Context, caller model.Caller, key string) error {
	return s.setStatus(ctx, caller, key, model.KeyInactive)
}

func (s *APIKeyService) setStatus(ctx context.Context, caller model.Caller, key string, status model.APIKeyStatus) error {
	apiKey, err := s.keys.GetAPIKey(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NewNotFound("not_found", fmt.Sprintf("No api key found with key: %s", key))
		}
		log.Error().Err(err).Msg("failed to load API key")
		return NewInternal("internal_error", "Failed to update API key")
	}

	sub, err := s.subs.GetSubscription(ctx, apiKey.SubscriptionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NewNotFound("not_found", "No subscription for this api key")
		}
		log.Error().Err(err).Int64("subscription_id", apiKey.SubscriptionID).Msg("failed to load subscription")
		return NewInternal("internal_error", "Failed to update API key")
	}
	if sub.UserID != caller.UserID {
		return NewBadRequest("not_owner", "User does not own this api key")
	}

	if err := s.keys.UpdateAPIKeyStatus(ctx, key, status); err != nil {
		log.Error().Err(err).Int64("subscription_id", sub.ID).Str("status", string(status)).Msg("failed to update API key status")
		return NewInternal("internal_error", "Failed to update API key")
	}
	return nil
}

func (s *APIKeyService) ownedSubscription(ctx context.Context, caller model.Caller, subscriptionID int64) (*model.Subscription, error) {
	sub, err := s.subs.GetSubscription(ctx, subscriptionID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Error().Err(err).Int64("subscription_id", subscriptionID).Msg("failed to load subscription")
		return nil, NewInternal("internal_error", "Failed to load subscription")
	}
	if err != nil || sub.UserID != caller.UserID {
		return nil, NewNotFound("not_found", fmt.Sprintf("No subscription found with id: %d", subscriptionID))
	}
	return sub, nil
}

func generateAPIKey(prefix string) string {
	return prefix + uuid.NewString()
}
