package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/api-marketplace-gateway/internal/model"
	"github.com/api-marketplace-gateway/internal/payment"
	"github.com/api-marketplace-gateway/internal/store"
)

type versionKey struct {
	apiID   int64
	version string
}

type planKey struct {
	apiID int64
	name  string
}

// memStore is an in-memory store.Store. ClaimQuota is atomic under mu, the
// same guarantee the conditional UPDATE gives in Postgres.
type memStore struct {
	mu       sync.Mutex
	apis     map[int64]*model.API
	versions map[versionKey]*model.APIVersion
	headers  []model.VersionHeader
	plans    map[planKey]*model.Plan
	subs     map[int64]*model.Subscription
	keys     map[string]*model.APIKey
	requests []*model.APIRequest
	nextID   int64

	failRequests bool
}

func newMemStore() *memStore {
	return &memStore{
		apis:     make(map[int64]*model.API),
		versions: make(map[versionKey]*model.APIVersion),
		plans:    make(map[planKey]*model.Plan),
		subs:     make(map[int64]*model.Subscription),
		keys:     make(map[string]*model.APIKey),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) Ping(context.Context) error { return nil }

func (m *memStore) CreateAPIWithPlans(_ context.Context, api *model.API, plans []*model.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if api.ID == 0 {
		api.ID = m.id()
	}
	for _, p := range plans {
		if _, ok := m.plans[planKey{api.ID, p.Name}]; ok {
			return store.ErrConflict
		}
	}
	cp := *api
	m.apis[api.ID] = &cp
	for _, p := range plans {
		p.APIID = api.ID
		pc := *p
		m.plans[planKey{api.ID, p.Name}] = &pc
	}
	return nil
}

func (m *memStore) GetAPI(_ context.Context, id int64) (*model.API, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	api, ok := m.apis[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *api
	return &cp, nil
}

func (m *memStore) UpdateAPIStatus(_ context.Context, id int64, status model.APIStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	api, ok := m.apis[id]
	if !ok {
		return store.ErrNotFound
	}
	api.Status = status
	return nil
}

func (m *memStore) CreateVersion(_ context.Context, v *model.APIVersion, headers []model.VersionHeader, _ []model.VersionEndpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := versionKey{v.APIID, v.Version}
	if _, ok := m.versions[k]; ok {
		return store.ErrConflict
	}
	cp := *v
	m.versions[k] = &cp
	for _, h := range headers {
		h.ID = m.id()
		h.APIID = v.APIID
		h.Version = v.Version
		m.headers = append(m.headers, h)
	}
	return nil
}

func (m *memStore) GetVersion(_ context.Context, apiID int64, version string) (*model.APIVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.versions[versionKey{apiID, version}]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *memStore) UpdateVersionStatus(_ context.Context, apiID int64, version string, status model.VersionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.versions[versionKey{apiID, version}]
	if !ok {
		return store.ErrNotFound
	}
	v.Status = status
	return nil
}

func (m *memStore) ListVersionHeaders(_ context.Context, apiID int64, version string) ([]model.VersionHeader, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.VersionHeader
	for _, h := range m.headers {
		if h.APIID == apiID && h.Version == version {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *memStore) GetPlan(_ context.Context, apiID int64, name string) (*model.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[planKey{apiID, name}]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) ListPlans(_ context.Context, apiID int64) ([]*model.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Plan
	for k, p := range m.plans {
		if k.apiID == apiID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) CreateSubscription(_ context.Context, sub *model.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub.ID == 0 {
		sub.ID = m.id()
	}
	cp := *sub
	m.subs[sub.ID] = &cp
	return nil
}

func (m *memStore) GetSubscription(_ context.Context, id int64) (*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (m *memStore) GetSubscriptionForAPI(ctx context.Context, id, apiID int64) (*model.Subscription, error) {
	sub, err := m.GetSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.APIID != apiID {
		return nil, store.ErrNotFound
	}
	return sub, nil
}

func (m *memStore) ListSubscriptions(_ context.Context, f store.SubscriptionFilters) ([]*model.Subscription, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Subscription
	for _, sub := range m.subs {
		if f.UserID != nil && sub.UserID != *f.UserID {
			continue
		}
		if f.SupplierID != nil {
			api, ok := m.apis[sub.APIID]
			if !ok || api.SupplierID != *f.SupplierID {
				continue
			}
		}
		cp := *sub
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *memStore) ClaimQuota(_ context.Context, id int64, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[id]
	if !ok || sub.MaxRequests <= 0 || sub.Status != model.SubscriptionActive || sub.EndDate.Before(now) {
		return 0, store.ErrQuotaExhausted
	}
	sub.MaxRequests--
	return sub.MaxRequests, nil
}

func (m *memStore) CreateAPIKey(_ context.Context, key *model.APIKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[key.Key]; ok {
		return store.ErrConflict
	}
	cp := *key
	m.keys[key.Key] = &cp
	return nil
}

func (m *memStore) GetAPIKey(_ context.Context, key string) (*model.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.keys[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *k
	return &cp, nil
}

func (m *memStore) ListAPIKeys(_ context.Context, subscriptionID int64) ([]*model.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.APIKey
	for _, k := range m.keys {
		if k.SubscriptionID == subscriptionID {
			cp := *k
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) UpdateAPIKeyStatus(_ context.Context, key string, status model.APIKeyStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.keys[key]
	if !ok {
		return store.ErrNotFound
	}
	k.Status = status
	return nil
}

func (m *memStore) CreateAPIRequest(_ context.Context, req *model.APIRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRequests {
		return errors.New("insert api_request: connection reset")
	}
	req.ID = m.id()
	cp := *req
	m.requests = append(m.requests, &cp)
	return nil
}

func (m *memStore) ListAPIRequests(_ context.Context, f store.RequestFilters) ([]*model.APIRequest, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.APIRequest
	for _, r := range m.requests {
		if f.APIID != nil && r.APIID != *f.APIID {
			continue
		}
		if f.HTTPStatus != nil && r.HTTPStatus != *f.HTTPStatus {
			continue
		}
		out = append(out, r)
	}
	return out, len(out), nil
}

func (m *memStore) requestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *memStore) quota(id int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subs[id].MaxRequests
}

// fakeProvider is a scripted payment.Provider.
type fakeProvider struct {
	productErr  error
	priceErr    error
	checkoutErr error
	validSig    string

	prices    []int64
	checkouts []payment.CheckoutMetadata
}

func (p *fakeProvider) CreateProduct(context.Context, string, string) (string, error) {
	if p.productErr != nil {
		return "", p.productErr
	}
	return "prod_1", nil
}

func (p *fakeProvider) CreatePrice(_ context.Context, _ string, amount int64) (string, error) {
	if p.priceErr != nil {
		return "", p.priceErr
	}
	p.prices = append(p.prices, amount)
	return "price_" + string(rune('a'+len(p.prices)-1)), nil
}

func (p *fakeProvider) CreateCheckout(_ context.Context, _ string, _ string, metadata payment.CheckoutMetadata) (string, error) {
	if p.checkoutErr != nil {
		return "", p.checkoutErr
	}
	p.checkouts = append(p.checkouts, metadata)
	return "https://pay.example.com/checkout/1", nil
}

func (p *fakeProvider) VerifyWebhookSignature(_ []byte, signature string) bool {
	return signature != "" && signature == p.validSig
}

// memEventLog is a store.EventLog backed by a set.
type memEventLog struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func (l *memEventLog) MarkProcessed(_ context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if l.seen == nil {
		l.seen = make(map[string]bool)
	}
	if l.seen[id] {
		return false, nil
	}
	l.seen[id] = true
	return true, nil
}

func (l *memEventLog) Forget(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.seen, id)
	return nil
}
