package store

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/api-marketplace-gateway/internal/model"
)

const requestColumns = `id, api_id, api_version, user_id, api_key, subscription_id,
	request_url, request_method, request_body, response_body,
	request_at, response_at, response_time, http_status`

func (p *Postgres) CreateAPIRequest(ctx context.Context, req *model.APIRequest) error {
	err := p.pool.QueryRow(ctx, `
		INSERT INTO api_requests (
			api_id, api_version, user_id, api_key, subscription_id,
			request_url, request_method, request_body, response_body,
			request_at, response_at, response_time, http_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`,
		req.APIID, req.APIVersion, req.UserID, req.APIKey, req.SubscriptionID,
		req.RequestURL, req.RequestMethod, ledgerText(req.RequestBody), ledgerText(req.ResponseBody),
		req.RequestAt, req.ResponseAt, req.ResponseTime, req.HTTPStatus,
	).Scan(&req.ID)
	if err != nil {
		return fmt.Errorf("insert api_request: %w", err)
	}
	return nil
}

func (p *Postgres) ListAPIRequests(ctx context.Context, filters RequestFilters) ([]*model.APIRequest, int, error) {
	q := buildRequestQuery(filters)

	var total int
	if err := p.pool.QueryRow(ctx, q.Count, q.CountArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count api_requests: %w", err)
	}

	rows, err := p.pool.Query(ctx, q.List, q.ListArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list api_requests: %w", err)
	}
	defer rows.Close()

	var reqs []*model.APIRequest
	for rows.Next() {
		var r model.APIRequest
		var reqBody, respBody *string
		err := rows.Scan(
			&r.ID, &r.APIID, &r.APIVersion, &r.UserID, &r.APIKey, &r.SubscriptionID,
			&r.RequestURL, &r.RequestMethod, &reqBody, &respBody,
			&r.RequestAt, &r.ResponseAt, &r.ResponseTime, &r.HTTPStatus,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan api_request: %w", err)
		}
		if reqBody != nil {
			r.RequestBody = *reqBody
		}
		if respBody != nil {
			r.ResponseBody = *respBody
		}
		reqs = append(reqs, &r)
	}
	return reqs, total, rows.Err()
}

// ledgerText prepares a relayed body for a TEXT column. Postgres refuses NUL
// bytes and invalid UTF-8, and a binary upstream answer must not cost the
// ledger its row, so both are scrubbed.
func ledgerText(body string) *string {
	if strings.IndexByte(body, 0) >= 0 || !utf8.ValidString(body) {
		body = strings.ToValidUTF8(strings.ReplaceAll(body, "\x00", ""), string(utf8.RuneError))
	}
	return nullString(body)
}
