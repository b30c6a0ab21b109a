package model

import "time"

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionInactive SubscriptionStatus = "inactive"
)

// Subscription is a paid, time-boxed, quota-limited right to call one API.
// MaxRequests is the remaining quota and never goes below zero.
type Subscription struct {
	ID          int64              `json:"id"`
	APIID       int64              `json:"api_id"`
	UserID      int64              `json:"user_id"`
	PlanName    string             `json:"plan_name"`
	StartDate   time.Time          `json:"start_date"`
	EndDate     time.Time          `json:"end_date"`
	MaxRequests int64              `json:"max_requests"`
	Status      SubscriptionStatus `json:"status"`
	Price       int64              `json:"price"`
	CreatedAt   time.Time          `json:"created_at"`
}

func (s *Subscription) Expired(now time.Time) bool {
	return s.EndDate.Before(now)
}

type APIKeyStatus string

const (
	KeyActive   APIKeyStatus = "active"
	KeyInactive APIKeyStatus = "inactive"
)

// APIKey is an opaque bearer token scoped to exactly one subscription.
type APIKey struct {
	Key            string       `json:"key"`
	SubscriptionID int64        `json:"subscription_id"`
	Status         APIKeyStatus `json:"status"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}
