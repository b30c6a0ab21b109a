package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/api-marketplace-gateway/internal/model"
)

const subscriptionColumns = `id, api_id, user_id, plan_name, start_date, end_date,
	max_requests, status, price, created_at`

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	var sub model.Subscription
	err := row.Scan(
		&sub.ID, &sub.APIID, &sub.UserID, &sub.PlanName, &sub.StartDate, &sub.EndDate,
		&sub.MaxRequests, &sub.Status, &sub.Price, &sub.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (p *Postgres) CreateSubscription(ctx context.Context, sub *model.Subscription) error {
	err := p.pool.QueryRow(ctx, `
		INSERT INTO api_subscriptions (
			api_id, user_id, plan_name, start_date, end_date, max_requests, status, price
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`,
		sub.APIID, sub.UserID, sub.PlanName, sub.StartDate, sub.EndDate,
		sub.MaxRequests, sub.Status, sub.Price,
	).Scan(&sub.ID, &sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert api_subscription: %w", err)
	}
	return nil
}

func (p *Postgres) GetSubscription(ctx context.Context, id int64) (*model.Subscription, error) {
	sub, err := scanSubscription(p.pool.QueryRow(ctx, `
		SELECT `+subscriptionColumns+` FROM api_subscriptions WHERE id = $1
	`, id))
	if err != nil {
		return nil, notFound(err, "get api_subscription")
	}
	return sub, nil
}

// GetSubscriptionForAPI looks a subscription up scoped to apiID, so a key
// bound to one API cannot be replayed against another.
func (p *Postgres) GetSubscriptionForAPI(ctx context.Context, id, apiID int64) (*model.Subscription, error) {
	sub, err := scanSubscription(p.pool.QueryRow(ctx, `
		SELECT `+subscriptionColumns+` FROM api_subscriptions WHERE id = $1 AND api_id = $2
	`, id, apiID))
	if err != nil {
		return nil, notFound(err, "get api_subscription")
	}
	return sub, nil
}

func (p *Postgres) ListSubscriptions(ctx context.Context, filters SubscriptionFilters) ([]*model.Subscription, int, error) {
	q := buildSubscriptionQuery(filters)

	var total int
	if err := p.pool.QueryRow(ctx, q.Count, q.CountArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count api_subscriptions: %w", err)
	}

	rows, err := p.pool.Query(ctx, q.List, q.ListArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list api_subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*model.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan api_subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, total, rows.Err()
}

// ClaimQuota takes one request off the subscription's remaining quota in a
// single conditional statement and returns what is left. It returns
// ErrQuotaExhausted when the subscription is no longer usable, leaving the
// row untouched.
func (p *Postgres) ClaimQuota(ctx context.Context, id int64, now time.Time) (int64, error) {
	var remaining int64
	err := p.pool.QueryRow(ctx, `
		UPDATE api_subscriptions
		SET max_requests = max_requests - 1
		WHERE id = $1
		  AND max_requests > 0
		  AND status = 'active'
		  AND end_date >= $2
		RETURNING max_requests
	`, id, now).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrQuotaExhausted
		}
		return 0, fmt.Errorf("claim quota: %w", err)
	}
	return remaining, nil
}
