package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/api-marketplace-gateway/internal/model"
	"github.com/api-marketplace-gateway/internal/store"
)

// Target is where a call for one API version is forwarded.
type Target struct {
	BaseURL string
	Headers map[string]string
}

// UpstreamResolver maps (api, version) to its forwarding target. It only
// reads.
type UpstreamResolver struct {
	catalog store.CatalogStore
}

func NewUpstreamResolver(catalog store.CatalogStore) *UpstreamResolver {
	return &UpstreamResolver{catalog: catalog}
}

// Resolve requires both the API and the version to be active. The two
// statuses are checked independently.
func (r *UpstreamResolver) Resolve(ctx context.Context, apiID int64, version string) (*Target, error) {
	api, err := r.catalog.GetAPI(ctx, apiID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NewNotFound("not_found", "API not found")
		}
		log.Error().Err(err).Int64("api_id", apiID).Msg("failed to load API")
		return nil, NewInternal("internal_error", "Failed to resolve API")
	}
	if api.Status != model.APIActive {
		return nil, NewBadRequest("api_inactive", "API is not active")
	}

	v, err := r.catalog.GetVersion(ctx, apiID, version)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NewNotFound("not_found", "API version not found")
		}
		log.Error().Err(err).Int64("api_id", apiID).Str("version", version).Msg("failed to load API version")
		return nil, NewInternal("internal_error", "Failed to resolve API version")
	}
	if v.Status != model.VersionActive {
		return nil, NewBadRequest("version_inactive", "API version is not active")
	}

	rows, err := r.catalog.ListVersionHeaders(ctx, apiID, version)
	if err != nil {
		log.Error().Err(err).Int64("api_id", apiID).Str("version", version).Msg("failed to load version headers")
		return nil, NewInternal("internal_error", "Failed to resolve API version")
	}

	return &Target{BaseURL: v.BaseURL, Headers: headerMap(rows)}, nil
}

// headerMap keys rows by header name; a later row wins over an earlier one.
func headerMap(rows []model.VersionHeader) map[string]string {
	headers := make(map[string]string, len(rows))
	for _, h := range rows {
		headers[h.Key] = h.Value
	}
	return headers
}
