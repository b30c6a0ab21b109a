package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/api-marketplace-gateway/internal/model"
	"github.com/api-marketplace-gateway/internal/payment"
	"github.com/api-marketplace-gateway/internal/store"
	"github.com/api-marketplace-gateway/internal/validation"
)

// CatalogService is the supplier-side configuration the gateway reads:
// APIs, their plans, and their versions.
type CatalogService struct {
	catalog  store.CatalogStore
	provider payment.Provider
}

func NewCatalogService(catalog store.CatalogStore, provider payment.Provider) *CatalogService {
	return &CatalogService{catalog: catalog, provider: provider}
}

type PlanInput struct {
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	MaxRequests int64  `json:"max_requests"`
	Duration    int64  `json:"duration"`
}

type CreateAPIInput struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Plans       []PlanInput `json:"plans"`
}

type HeaderInput struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type EndpointInput struct {
	Method      string `json:"method"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

type CreateVersionInput struct {
	Version   string          `json:"version"`
	BaseURL   string          `json:"base_url"`
	Headers   []HeaderInput   `json:"headers"`
	Endpoints []EndpointInput `json:"endpoints"`
}

// CreateAPI registers an API owned by caller. A payment product is created
// for the API and a price for every plan before anything is stored, so a
// provider failure leaves no partial API behind.
func (s *CatalogService) CreateAPI(ctx context.Context, caller model.Caller, input CreateAPIInput) (*model.API, []*model.Plan, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, nil, NewBadRequest("invalid_request", "name is required")
	}
	if err := validatePlans(input.Plans); err != nil {
		return nil, nil, err
	}

	productID, err := s.provider.CreateProduct(ctx, input.Name, input.Description)
	if err != nil {
		log.Error().Err(err).Str("name", input.Name).Msg("failed to create payment product")
		return nil, nil, NewBadRequest("payment_provider_error", "Failed to create product in chargily API")
	}

	plans := make([]*model.Plan, 0, len(input.Plans))
	for _, p := range input.Plans {
		priceID, err := s.provider.CreatePrice(ctx, productID, p.Price)
		if err != nil {
			log.Error().Err(err).Str("product_id", productID).Str("plan", p.Name).Msg("failed to create payment price")
			return nil, nil, NewBadRequest("payment_provider_error", "Failed to create price in chargily API")
		}
		plans = append(plans, &model.Plan{
			Name:        p.Name,
			Price:       p.Price,
			MaxRequests: p.MaxRequests,
			Duration:    p.Duration,
			PriceID:     priceID,
		})
	}

	api := &model.API{
		Name:        input.Name,
		Description: input.Description,
		Category:    input.Category,
		SupplierID:  caller.UserID,
		Status:      model.APIActive,
		ProductID:   productID,
	}
	if err := s.catalog.CreateAPIWithPlans(ctx, api, plans); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, nil, NewBadRequest("invalid_request", "Duplicate plan name")
		}
		log.Error().Err(err).Str("name", input.Name).Msg("failed to create API")
		return nil, nil, NewInternal("internal_error", "Failed to create API")
	}
	return api, plans, nil
}

func validatePlans(plans []PlanInput) error {
	seen := make(map[string]struct{}, len(plans))
	for _, p := range plans {
		if strings.TrimSpace(p.Name) == "" {
			return NewBadRequest("invalid_request", "Plan name is required")
		}
		if _, dup := seen[p.Name]; dup {
			return NewBadRequest("invalid_request", fmt.Sprintf("Duplicate plan name found: %s", p.Name))
		}
		if p.Price < 0 {
			return NewBadRequest("invalid_request", "Price cannot be negative")
		}
		if p.MaxRequests < 0 {
			return NewBadRequest("invalid_request", "Max requests cannot be negative")
		}
		if p.Duration < 0 {
			return NewBadRequest("invalid_request", "Duration cannot be negative")
		}
		if p.Duration > MaxPlanDuration {
			return NewBadRequest("invalid_request", fmt.Sprintf("Duration cannot exceed %d seconds", MaxPlanDuration))
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}

// CreateVersion adds a forwarding target to an API the caller owns. New
// versions start active.
func (s *CatalogService) CreateVersion(ctx context.Context, caller model.Caller, apiID int64, input CreateVersionInput) (*model.APIVersion, error) {
	api, err := s.catalog.GetAPI(ctx, apiID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Error().Err(err).Int64("api_id", apiID).Msg("failed to load API")
		return nil, NewInternal("internal_error", "Failed to create API version")
	}
	if err != nil || api.SupplierID != caller.UserID {
		return nil, NewNotFound("not_found", fmt.Sprintf("No API found with id: %d", apiID))
	}

	input.Version = strings.TrimSpace(input.Version)
	if err := validation.VersionLabel(input.Version); err != nil {
		return nil, NewBadRequest("invalid_request", err.Error())
	}
	if err := validation.HTTPURL("base_url", input.BaseURL); err != nil {
		return nil, NewBadRequest("invalid_request", err.Error())
	}

	keys := make([]string, 0, len(input.Headers))
	headers := make([]model.VersionHeader, 0, len(input.Headers))
	for _, h := range input.Headers {
		keys = append(keys, h.Key)
		headers = append(headers, model.VersionHeader{Key: h.Key, Value: h.Value})
	}
	if err := validation.HeaderKeys(keys); err != nil {
		return nil, NewBadRequest("invalid_request", err.Error())
	}

	endpoints := make([]model.VersionEndpoint, 0, len(input.Endpoints))
	for _, e := range input.Endpoints {
		method, err := gatewayMethod(e.Method)
		if err != nil {
			return nil, NewBadRequest("invalid_request", fmt.Sprintf("unsupported endpoint method %q", e.Method))
		}
		endpoints = append(endpoints, model.VersionEndpoint{Method: method, Path: e.URL, Description: e.Description})
	}

	v := &model.APIVersion{
		APIID:   apiID,
		Version: input.Version,
		BaseURL: input.BaseURL,
		Status:  model.VersionActive,
	}
	if err := s.catalog.CreateVersion(ctx, v, headers, endpoints); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, NewBadRequest("version_exists", "API version already exists")
		}
		log.Error().Err(err).Int64("api_id", apiID).Str("version", input.Version).Msg("failed to create API version")
		return nil, NewInternal("internal_error", "Failed to create API version")
	}
	return v, nil
}

// SetAPIStatus toggles an API. Suppliers may only touch their own.
func (s *CatalogService) SetAPIStatus(ctx context.Context, caller model.Caller, apiID int64, status model.APIStatus) error {
	api, err := s.catalog.GetAPI(ctx, apiID)
	if err != nil {
		return catalogLookupError(err, fmt.Sprintf("No API found with id: %d", apiID))
	}
	if !caller.IsAdmin() && api.SupplierID != caller.UserID {
		return NewBadRequest("not_owner", "You are not the owner of the API")
	}
	if err := s.catalog.UpdateAPIStatus(ctx, apiID, status); err != nil {
		log.Error().Err(err).Int64("api_id", apiID).Msg("failed to update API status")
		return NewInternal("internal_error", "Failed to update API")
	}
	return nil
}

// SetVersionStatus toggles a version independently of its API.
func (s *CatalogService) SetVersionStatus(ctx context.Context, caller model.Caller, apiID int64, version string, status model.VersionStatus) error {
	api, err := s.catalog.GetAPI(ctx, apiID)
	if err != nil {
		return catalogLookupError(err, fmt.Sprintf("No API found with id: %d", apiID))
	}
	if _, err := s.catalog.GetVersion(ctx, apiID, version); err != nil {
		return catalogLookupError(err, fmt.Sprintf("No API version found with id: %d and version: %s", apiID, version))
	}
	if !caller.IsAdmin() && api.SupplierID != caller.UserID {
		return NewBadRequest("not_owner", "You are not authorized to change this version")
	}
	if err := s.catalog.UpdateVersionStatus(ctx, apiID, version, status); err != nil {
		log.Error().Err(err).Int64("api_id", apiID).Str("version", version).Msg("failed to update API version status")
		return NewInternal("internal_error", "Failed to update API version")
	}
	return nil
}

// Plans lists the plans a subscriber can buy for an API.
func (s *CatalogService) Plans(ctx context.Context, apiID int64) ([]*model.Plan, error) {
	if _, err := s.catalog.GetAPI(ctx, apiID); err != nil {
		return nil, catalogLookupError(err, fmt.Sprintf("No API found with id: %d", apiID))
	}
	plans, err := s.catalog.ListPlans(ctx, apiID)
	if err != nil {
		log.Error().Err(err).Int64("api_id", apiID).Msg("failed to list plans")
		return nil, NewInternal("internal_error", "Failed to list plans")
	}
	if plans == nil {
		plans = []*model.Plan{}
	}
	return plans, nil
}

func catalogLookupError(err error, notFoundMsg string) error {
	if errors.Is(err, store.ErrNotFound) {
		return NewNotFound("not_found", notFoundMsg)
	}
	log.Error().Err(err).Msg("catalog lookup failed")
	return NewInternal("internal_error", "An unexpected error occurred")
}
