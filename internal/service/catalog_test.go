package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/api-marketplace-gateway/internal/model"
	"github.com/api-marketplace-gateway/internal/store"
)

var supplier = model.Caller{UserID: 2, Role: model.RoleSupplier}

func TestCatalogService_CreateAPI(t *testing.T) {
	ctx := context.Background()

	t.Run("stores API with priced plans", func(t *testing.T) {
		st := newMemStore()
		p := &fakeProvider{}
		svc := NewCatalogService(st, p)

		api, plans, err := svc.CreateAPI(ctx, supplier, CreateAPIInput{
			Name: "weather",
			Plans: []PlanInput{
				{Name: "basic", Price: 1000, MaxRequests: 100, Duration: 86400},
				{Name: "pro", Price: 5000, MaxRequests: 1000, Duration: 86400},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), api.SupplierID)
		assert.Equal(t, model.APIActive, api.Status)
		assert.Equal(t, "prod_1", api.ProductID)
		require.Len(t, plans, 2)
		assert.Equal(t, []int64{1000, 5000}, p.prices)
		assert.NotEmpty(t, plans[0].PriceID)

		stored, err := st.ListPlans(ctx, api.ID)
		require.NoError(t, err)
		assert.Len(t, stored, 2)
	})

	t.Run("provider failure stores nothing", func(t *testing.T) {
		st := newMemStore()
		svc := NewCatalogService(st, &fakeProvider{priceErr: errors.New("down")})

		_, _, err := svc.CreateAPI(ctx, supplier, CreateAPIInput{
			Name:  "weather",
			Plans: []PlanInput{{Name: "basic", Price: 1000, MaxRequests: 1, Duration: 1}},
		})
		require.Error(t, err)
		assert.Empty(t, st.apis)
		assert.Empty(t, st.plans)
	})

	t.Run("plan validation", func(t *testing.T) {
		svc := NewCatalogService(newMemStore(), &fakeProvider{})
		cases := map[string][]PlanInput{
			"Duplicate plan name":             {{Name: "a"}, {Name: "a"}},
			"Plan name is required":           {{Name: " "}},
			"Price cannot be negative":        {{Name: "a", Price: -1}},
			"Max requests cannot be negative": {{Name: "a", MaxRequests: -1}},
			"Duration cannot be negative":     {{Name: "a", Duration: -1}},
			"Duration cannot exceed":          {{Name: "a", Duration: MaxPlanDuration + 1}},
		}
		for msg, plans := range cases {
			_, _, err := svc.CreateAPI(ctx, supplier, CreateAPIInput{Name: "x", Plans: plans})
			assert.ErrorContains(t, err, msg)
		}
	})
}

func TestCatalogService_Versions(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	svc := NewCatalogService(st, &fakeProvider{})
	require.NoError(t, st.CreateAPIWithPlans(ctx, &model.API{ID: 1, SupplierID: 2, Status: model.APIActive}, nil))

	input := CreateVersionInput{
		Version:   "1.0.0",
		BaseURL:   "https://example.com/api",
		Headers:   []HeaderInput{{Key: "X-Api-Key", Value: "secret"}},
		Endpoints: []EndpointInput{{Method: "get", URL: "/users"}},
	}

	v, err := svc.CreateVersion(ctx, supplier, 1, input)
	require.NoError(t, err)
	assert.Equal(t, model.VersionActive, v.Status)

	headers, err := st.ListVersionHeaders(ctx, 1, "1.0.0")
	require.NoError(t, err)
	require.Len(t, headers, 1)
	assert.Equal(t, "X-Api-Key", headers[0].Key)

	_, err = svc.CreateVersion(ctx, supplier, 1, input)
	assert.ErrorContains(t, err, "API version already exists")

	_, err = svc.CreateVersion(ctx, model.Caller{UserID: 3, Role: model.RoleSupplier}, 1, input)
	assert.True(t, IsKind(err, ErrNotFound))

	bad := input
	bad.Version = "2.0.0"
	bad.BaseURL = "example.com"
	_, err = svc.CreateVersion(ctx, supplier, 1, bad)
	assert.ErrorContains(t, err, "base_url")

	bad.BaseURL = "https://example.com"
	bad.Endpoints = []EndpointInput{{Method: "PUT", URL: "/x"}}
	_, err = svc.CreateVersion(ctx, supplier, 1, bad)
	assert.ErrorContains(t, err, "unsupported endpoint method")

	// Version status is independent of the API status.
	require.NoError(t, svc.SetVersionStatus(ctx, supplier, 1, "1.0.0", model.VersionSuspended))
	require.NoError(t, svc.SetAPIStatus(ctx, supplier, 1, model.APIInactive))
	require.NoError(t, svc.SetAPIStatus(ctx, supplier, 1, model.APIActive))
	got, err := st.GetVersion(ctx, 1, "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, model.VersionSuspended, got.Status)

	err = svc.SetAPIStatus(ctx, model.Caller{UserID: 3, Role: model.RoleSupplier}, 1, model.APIInactive)
	assert.ErrorContains(t, err, "You are not the owner of the API")
	err = svc.SetVersionStatus(ctx, model.Caller{UserID: 3, Role: model.RoleSupplier}, 1, "1.0.0", model.VersionActive)
	assert.ErrorContains(t, err, "You are not authorized to change this version")
	assert.NoError(t, svc.SetVersionStatus(ctx, model.Caller{UserID: 1, Role: model.RoleAdmin}, 1, "1.0.0", model.VersionActive))
}

func TestRequestLogService_List(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	require.NoError(t, st.CreateAPIWithPlans(ctx, &model.API{ID: 1, SupplierID: 2, Status: model.APIActive}, nil))
	require.NoError(t, st.CreateAPIRequest(ctx, &model.APIRequest{APIID: 1, HTTPStatus: 200}))
	require.NoError(t, st.CreateAPIRequest(ctx, &model.APIRequest{APIID: 1, HTTPStatus: 500}))
	require.NoError(t, st.CreateAPIRequest(ctx, &model.APIRequest{APIID: 9, HTTPStatus: 200}))
	svc := NewRequestLogService(st, st)

	reqs, total, err := svc.List(ctx, supplier, 1, store.RequestFilters{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, reqs, 2)

	status := 500
	reqs, _, err = svc.List(ctx, model.Caller{UserID: 1, Role: model.RoleAdmin}, 1, store.RequestFilters{HTTPStatus: &status})
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, 500, reqs[0].HTTPStatus)

	_, _, err = svc.List(ctx, model.Caller{UserID: 3, Role: model.RoleSupplier}, 1, store.RequestFilters{})
	assert.ErrorContains(t, err, "You are not allowed to view this requests")

	_, _, err = svc.List(ctx, supplier, 42, store.RequestFilters{})
	assert.True(t, IsKind(err, ErrNotFound))
}
