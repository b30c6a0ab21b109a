package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/api-marketplace-gateway/internal/model"
	"github.com/api-marketplace-gateway/internal/store"
)

// RequestLogService reads the usage ledger of one API.
type RequestLogService struct {
	catalog  store.CatalogStore
	requests store.RequestLogStore
}

func NewRequestLogService(catalog store.CatalogStore, requests store.RequestLogStore) *RequestLogService {
	return &RequestLogService{catalog: catalog, requests: requests}
}

// List returns ledger rows for apiID. Only the API's supplier and admins
// may read them.
func (s *RequestLogService) List(ctx context.Context, caller model.Caller, apiID int64, filters store.RequestFilters) ([]*model.APIRequest, int, error) {
	api, err := s.catalog.GetAPI(ctx, apiID)
	if err != nil {
		return nil, 0, catalogLookupError(err, fmt.Sprintf("No API found with id: %d", apiID))
	}
	if !caller.IsAdmin() && api.SupplierID != caller.UserID {
		return nil, 0, NewBadRequest("not_owner", "You are not allowed to view this requests")
	}

	filters.APIID = &apiID

	reqs, total, err := s.requests.ListAPIRequests(ctx, filters)
	if err != nil {
		log.Error().Err(err).Int64("api_id", apiID).Msg("failed to list API requests")
		return nil, 0, NewInternal("internal_error", "Failed to list API requests")
	}
	if reqs == nil {
		reqs = []*model.APIRequest{}
	}
	return reqs, total, nil
}
