package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/api-marketplace-gateway/internal/middleware"
	"github.com/api-marketplace-gateway/internal/model"
	"github.com/api-marketplace-gateway/internal/store"
)

// fakeStore implements the store methods these handlers reach. Anything
// else panics through the nil embedded interface.
type fakeStore struct {
	store.Store

	mu        sync.Mutex
	apis      map[int64]*model.API
	versions  map[string]*model.APIVersion
	headers   []model.VersionHeader
	plans     []*model.Plan
	subs      map[int64]*model.Subscription
	keys      map[string]*model.APIKey
	requests  []*model.APIRequest
	subFilter *store.SubscriptionFilters
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		apis:     map[int64]*model.API{},
		versions: map[string]*model.APIVersion{},
		subs:     map[int64]*model.Subscription{},
		keys:     map[string]*model.APIKey{},
	}
}

func (f *fakeStore) GetAPI(_ context.Context, id int64) (*model.API, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.apis[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) GetVersion(_ context.Context, apiID int64, version string) (*model.APIVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.versions[version]; ok && v.APIID == apiID {
		cp := *v
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) ListVersionHeaders(_ context.Context, apiID int64, version string) ([]model.VersionHeader, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.VersionHeader
	for _, h := range f.headers {
		if h.APIID == apiID && h.Version == version {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeStore) ListPlans(_ context.Context, apiID int64) ([]*model.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Plan
	for _, p := range f.plans {
		if p.APIID == apiID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) GetAPIKey(_ context.Context, key string) (*model.APIKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if k, ok := f.keys[key]; ok {
		cp := *k
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) CreateAPIKey(_ context.Context, key *model.APIKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key.CreatedAt = time.Now()
	key.UpdatedAt = key.CreatedAt
	f.keys[key.Key] = key
	return nil
}

func (f *fakeStore) ListAPIKeys(_ context.Context, subscriptionID int64) ([]*model.APIKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.APIKey
	for _, k := range f.keys {
		if k.SubscriptionID == subscriptionID {
			out = append(out, k)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateAPIKeyStatus(_ context.Context, key string, status model.APIKeyStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k, ok := f.keys[key]
	if !ok {
		return store.ErrNotFound
	}
	k.Status = status
	return nil
}

func (f *fakeStore) GetSubscription(_ context.Context, id int64) (*model.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.subs[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) GetSubscriptionForAPI(ctx context.Context, id, apiID int64) (*model.Subscription, error) {
	sub, err := f.GetSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.APIID != apiID {
		return nil, store.ErrNotFound
	}
	return sub, nil
}

func (f *fakeStore) ListSubscriptions(_ context.Context, filters store.SubscriptionFilters) ([]*model.Subscription, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subFilter = &filters
	var out []*model.Subscription
	for _, s := range f.subs {
		if filters.UserID != nil && s.UserID != *filters.UserID {
			continue
		}
		out = append(out, s)
	}
	return out, len(out), nil
}

func (f *fakeStore) ClaimQuota(_ context.Context, id int64, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subs[id]
	if !ok || s.MaxRequests <= 0 || s.Status != model.SubscriptionActive || s.EndDate.Before(now) {
		return 0, store.ErrQuotaExhausted
	}
	s.MaxRequests--
	return s.MaxRequests, nil
}

func (f *fakeStore) CreateAPIRequest(_ context.Context, req *model.APIRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	req.ID = int64(len(f.requests) + 1)
	f.requests = append(f.requests, req)
	return nil
}

func (f *fakeStore) ledger() []*model.APIRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*model.APIRequest(nil), f.requests...)
}

func asCaller(r *http.Request, caller model.Caller) *http.Request {
	return r.WithContext(middleware.WithCaller(r.Context(), caller))
}

func (f *fakeStore) GetPlan(_ context.Context, apiID int64, name string) (*model.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.plans {
		if p.APIID == apiID && p.Name == name {
			cp := *p
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) CreateSubscription(_ context.Context, sub *model.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub.ID = int64(len(f.subs) + 100)
	sub.CreatedAt = time.Now()
	f.subs[sub.ID] = sub
	return nil
}
