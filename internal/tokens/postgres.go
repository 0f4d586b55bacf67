package tokens

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/eternisai/push-bridge/internal/logger"
)

const upsertFCMUserToken = `
INSERT INTO fcm_user_tokens (token, platform, created_at, updated_at)
VALUES ($1, $2, NOW(), NOW())
ON CONFLICT (token) DO UPDATE
SET platform = EXCLUDED.platform,
    updated_at = NOW()
`

// DBTX is the subset of *sql.DB the store needs.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// PostgresStore keeps tokens in the fcm_user_tokens table.
type PostgresStore struct {
	db     DBTX
	logger *logger.Logger
}

// NewPostgresStore wraps db. Migrations must already have run.
func NewPostgresStore(db DBTX, logger *logger.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger.WithComponent("token-store")}
}

// Upsert implements Store.
func (s *PostgresStore) Upsert(ctx context.Context, reg Registration) (Receipt, error) {
	if err := reg.Validate(); err != nil {
		return Receipt{}, err
	}

	res, err := s.db.ExecContext(ctx, upsertFCMUserToken, reg.Token, reg.Platform)
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to upsert token: %w", err)
	}

	rows, _ := res.RowsAffected()
	s.logger.WithContext(ctx).Info("token upserted",
		slog.String("platform", reg.Platform),
		slog.Int64("rows_affected", rows))

	return Receipt{}, nil
}
