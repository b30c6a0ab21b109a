package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/api-marketplace-gateway/internal/model"
)

func (p *Postgres) CreateAPIKey(ctx context.Context, key *model.APIKey) error {
	err := p.pool.QueryRow(ctx, `
		INSERT INTO api_keys (key, subscription_id, status)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`, key.Key, key.SubscriptionID, key.Status).Scan(&key.CreatedAt, &key.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert api_key: %w", err)
	}
	return nil
}

const apiKeyColumns = `key, subscription_id, status, created_at, updated_at`

func scanAPIKey(row pgx.Row) (*model.APIKey, error) {
	var key model.APIKey
	if err := row.Scan(&key.Key, &key.SubscriptionID, &key.Status, &key.CreatedAt, &key.UpdatedAt); err != nil {
		return nil, err
	}
	return &key, nil
}

func (p *Postgres) GetAPIKey(ctx context.Context, key string) (*model.APIKey, error) {
	k, err := scanAPIKey(p.pool.QueryRow(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE key = $1`, key))
	if err != nil {
		return nil, notFound(err, "get api_key")
	}
	return k, nil
}

func (p *Postgres) ListAPIKeys(ctx context.Context, subscriptionID int64) ([]*model.APIKey, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+apiKeyColumns+` FROM api_keys WHERE subscription_id = $1 ORDER BY created_at DESC
	`, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("list api_keys: %w", err)
	}
	defer rows.Close()

	var keys []*model.APIKey
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan api_key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (p *Postgres) UpdateAPIKeyStatus(ctx context.Context, key string, status model.APIKeyStatus) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE api_keys SET status = $1, updated_at = NOW() WHERE key = $2
	`, status, key)
	if err != nil {
		return fmt.Errorf("update api_key status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
