package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/api-marketplace-gateway/internal/model"
	"github.com/api-marketplace-gateway/internal/store"
)

// CallRecord is everything known about one dispatched call.
type CallRecord struct {
	Subscription *model.Subscription
	APIKey       string
	APIID        int64
	Version      string
	RequestURL   string
	Method       string
	RequestBody  []byte
	ResponseBody []byte
	RequestAt    time.Time
	ResponseAt   time.Time
	// HTTPStatus is 0 when no response was received.
	HTTPStatus int
}

// UsageRecorder meters calls: it claims quota before dispatch and writes
// the ledger row after.
type UsageRecorder struct {
	requests store.RequestLogStore
	subs     store.SubscriptionStore
	now      func() time.Time
}

func NewUsageRecorder(requests store.RequestLogStore, subs store.SubscriptionStore) *UsageRecorder {
	return &UsageRecorder{requests: requests, subs: subs, now: time.Now}
}

// ClaimQuota takes one request off sub's quota. When the atomic claim loses
// (another call took the last request, or the subscription changed since it
// was authorized) the fresh row decides the error message.
func (u *UsageRecorder) ClaimQuota(ctx context.Context, sub *model.Subscription) error {
	now := u.now()
	remaining, err := u.subs.ClaimQuota(ctx, sub.ID, now)
	if err == nil {
		sub.MaxRequests = remaining
		return nil
	}
	if !errors.Is(err, store.ErrQuotaExhausted) {
		log.Error().Err(err).Int64("subscription_id", sub.ID).Msg("failed to claim quota")
		return NewInternal("internal_error", "Failed to claim subscription quota")
	}

	fresh, err := u.subs.GetSubscription(ctx, sub.ID)
	if err != nil {
		log.Error().Err(err).Int64("subscription_id", sub.ID).Msg("failed to reload subscription")
		return NewBadRequest(CodeQuotaExhausted, msgNoRequestsLeft)
	}
	if err := checkSubscription(fresh, now); err != nil {
		return err
	}
	return NewBadRequest(CodeQuotaExhausted, msgNoRequestsLeft)
}

// Record appends the ledger row for a dispatched call.
func (u *UsageRecorder) Record(ctx context.Context, rec CallRecord) (*model.APIRequest, error) {
	row := &model.APIRequest{
		APIID:          rec.APIID,
		APIVersion:     rec.Version,
		UserID:         rec.Subscription.UserID,
		APIKey:         rec.APIKey,
		SubscriptionID: rec.Subscription.ID,
		RequestURL:     rec.RequestURL,
		RequestMethod:  rec.Method,
		RequestBody:    string(rec.RequestBody),
		ResponseBody:   string(rec.ResponseBody),
		RequestAt:      rec.RequestAt,
		ResponseAt:     rec.ResponseAt,
		ResponseTime:   responseSeconds(rec.RequestAt, rec.ResponseAt),
		HTTPStatus:     rec.HTTPStatus,
	}
	if err := u.requests.CreateAPIRequest(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

// responseSeconds is the elapsed time in whole seconds, truncated.
func responseSeconds(start, end time.Time) int64 {
	d := end.Sub(start)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}
