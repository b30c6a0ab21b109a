package store

import (
	"context"
	"errors"
	"time"

	"github.com/api-marketplace-gateway/internal/model"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
	// ErrQuotaExhausted is returned by ClaimQuota when the conditional
	// decrement matched no row.
	ErrQuotaExhausted = errors.New("subscription quota exhausted")
)

// CatalogStore covers the supplier-managed configuration: APIs, versions,
// version headers and endpoints, and plans.
type CatalogStore interface {
	CreateAPIWithPlans(ctx context.Context, api *model.API, plans []*model.Plan) error
	GetAPI(ctx context.Context, id int64) (*model.API, error)
	UpdateAPIStatus(ctx context.Context, id int64, status model.APIStatus) error
	CreateVersion(ctx context.Context, v *model.APIVersion, headers []model.VersionHeader, endpoints []model.VersionEndpoint) error
	GetVersion(ctx context.Context, apiID int64, version string) (*model.APIVersion, error)
	UpdateVersionStatus(ctx context.Context, apiID int64, version string, status model.VersionStatus) error
	ListVersionHeaders(ctx context.Context, apiID int64, version string) ([]model.VersionHeader, error)
	GetPlan(ctx context.Context, apiID int64, name string) (*model.Plan, error)
	ListPlans(ctx context.Context, apiID int64) ([]*model.Plan, error)
}

// SubscriptionStore defines subscription persistence, including the atomic
// quota claim used by the call gateway.
type SubscriptionStore interface {
	CreateSubscription(ctx context.Context, sub *model.Subscription) error
	GetSubscription(ctx context.Context, id int64) (*model.Subscription, error)
	GetSubscriptionForAPI(ctx context.Context, id, apiID int64) (*model.Subscription, error)
	ListSubscriptions(ctx context.Context, filters SubscriptionFilters) ([]*model.Subscription, int, error)
	ClaimQuota(ctx context.Context, id int64, now time.Time) (int64, error)
}

// APIKeyStore defines operations for API key management.
type APIKeyStore interface {
	CreateAPIKey(ctx context.Context, key *model.APIKey) error
	GetAPIKey(ctx context.Context, key string) (*model.APIKey, error)
	ListAPIKeys(ctx context.Context, subscriptionID int64) ([]*model.APIKey, error)
	UpdateAPIKeyStatus(ctx context.Context, key string, status model.APIKeyStatus) error
}

// RequestLogStore is the append-only usage ledger.
type RequestLogStore interface {
	CreateAPIRequest(ctx context.Context, req *model.APIRequest) error
	ListAPIRequests(ctx context.Context, filters RequestFilters) ([]*model.APIRequest, int, error)
}

// Store combines every store used by the services.
type Store interface {
	CatalogStore
	SubscriptionStore
	APIKeyStore
	RequestLogStore
	Ping(ctx context.Context) error
}

// EventLog records processed payment webhook events.
type EventLog interface {
	// MarkProcessed reports whether id was recorded for the first time.
	MarkProcessed(ctx context.Context, id string) (bool, error)
	Forget(ctx context.Context, id string) error
}

type RequestFilters struct {
	APIID          *int64
	SubscriptionID *int64
	UserID         *int64
	Version        *string
	HTTPStatus     *int
	From           *time.Time
	To             *time.Time
	Page           int
	PerPage        int
}

type SubscriptionFilters struct {
	UserID     *int64
	APIID      *int64
	SupplierID *int64
	PlanName   *string
	Status     *model.SubscriptionStatus
	// Expired selects subscriptions whose end_date is before (true) or not
	// before (false) Now.
	Expired *bool
	Now     time.Time
	Page    int
	PerPage int
}
