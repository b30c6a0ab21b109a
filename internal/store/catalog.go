package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/api-marketplace-gateway/internal/model"
)

// CreateAPIWithPlans inserts the API and all of its plans in one transaction.
func (p *Postgres) CreateAPIWithPlans(ctx context.Context, api *model.API, plans []*model.Plan) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO apis (name, description, category, supplier_id, status, product_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, api.Name, api.Description, api.Category, api.SupplierID, api.Status, api.ProductID,
	).Scan(&api.ID, &api.CreatedAt, &api.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert api: %w", err)
	}

	for _, plan := range plans {
		plan.APIID = api.ID
		err := tx.QueryRow(ctx, `
			INSERT INTO api_plans (api_id, name, price, max_requests, duration, price_id)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at
		`, plan.APIID, plan.Name, plan.Price, plan.MaxRequests, plan.Duration, plan.PriceID,
		).Scan(&plan.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrConflict
			}
			return fmt.Errorf("insert api_plan %q: %w", plan.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (p *Postgres) GetAPI(ctx context.Context, id int64) (*model.API, error) {
	var api model.API
	err := p.pool.QueryRow(ctx, `
		SELECT id, name, description, category, supplier_id, status, product_id, created_at, updated_at
		FROM apis WHERE id = $1
	`, id).Scan(
		&api.ID, &api.Name, &api.Description, &api.Category, &api.SupplierID,
		&api.Status, &api.ProductID, &api.CreatedAt, &api.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err, "get api")
	}
	return &api, nil
}

func (p *Postgres) UpdateAPIStatus(ctx context.Context, id int64, status model.APIStatus) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE apis SET status = $1, updated_at = NOW() WHERE id = $2
	`, status, id)
	if err != nil {
		return fmt.Errorf("update api status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateVersion inserts a version together with its headers and endpoints.
// It returns ErrConflict when (api_id, version) already exists.
func (p *Postgres) CreateVersion(ctx context.Context, v *model.APIVersion, headers []model.VersionHeader, endpoints []model.VersionEndpoint) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO api_versions (api_id, version, base_url, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, v.APIID, v.Version, v.BaseURL, v.Status).Scan(&v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert api_version: %w", err)
	}

	batch := &pgx.Batch{}
	for _, h := range headers {
		batch.Queue(`
			INSERT INTO api_version_headers (api_id, version, key, value) VALUES ($1, $2, $3, $4)
		`, v.APIID, v.Version, h.Key, h.Value)
	}
	for _, e := range endpoints {
		batch.Queue(`
			INSERT INTO api_version_endpoints (api_id, version, method, path, description) VALUES ($1, $2, $3, $4, $5)
		`, v.APIID, v.Version, e.Method, e.Path, e.Description)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert version headers/endpoints: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (p *Postgres) GetVersion(ctx context.Context, apiID int64, version string) (*model.APIVersion, error) {
	var v model.APIVersion
	err := p.pool.QueryRow(ctx, `
		SELECT api_id, version, base_url, status, created_at, updated_at
		FROM api_versions WHERE api_id = $1 AND version = $2
	`, apiID, version).Scan(&v.APIID, &v.Version, &v.BaseURL, &v.Status, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "get api_version")
	}
	return &v, nil
}

func (p *Postgres) UpdateVersionStatus(ctx context.Context, apiID int64, version string, status model.VersionStatus) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE api_versions SET status = $1, updated_at = NOW() WHERE api_id = $2 AND version = $3
	`, status, apiID, version)
	if err != nil {
		return fmt.Errorf("update api_version status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) ListVersionHeaders(ctx context.Context, apiID int64, version string) ([]model.VersionHeader, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, api_id, version, key, value
		FROM api_version_headers WHERE api_id = $1 AND version = $2
		ORDER BY id
	`, apiID, version)
	if err != nil {
		return nil, fmt.Errorf("list api_version_headers: %w", err)
	}
	headers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.VersionHeader, error) {
		var h model.VersionHeader
		err := row.Scan(&h.ID, &h.APIID, &h.Version, &h.Key, &h.Value)
		return h, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan api_version_header: %w", err)
	}
	return headers, nil
}

const planColumns = `api_id, name, price, max_requests, duration, price_id, created_at`

func scanPlan(row pgx.Row) (*model.Plan, error) {
	var plan model.Plan
	err := row.Scan(&plan.APIID, &plan.Name, &plan.Price, &plan.MaxRequests, &plan.Duration, &plan.PriceID, &plan.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (p *Postgres) GetPlan(ctx context.Context, apiID int64, name string) (*model.Plan, error) {
	plan, err := scanPlan(p.pool.QueryRow(ctx, `
		SELECT `+planColumns+` FROM api_plans WHERE api_id = $1 AND name = $2
	`, apiID, name))
	if err != nil {
		return nil, notFound(err, "get api_plan")
	}
	return plan, nil
}

func (p *Postgres) ListPlans(ctx context.Context, apiID int64) ([]*model.Plan, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+planColumns+` FROM api_plans WHERE api_id = $1 ORDER BY price, name
	`, apiID)
	if err != nil {
		return nil, fmt.Errorf("list api_plans: %w", err)
	}
	defer rows.Close()

	var plans []*model.Plan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan api_plan: %w", err)
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}
