package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LarjGit/edinburgh-finds-sub000/internal/usage"
)

// =============================================================================
// POSTGRES USAGE COUNTERS
// Check-then-increment in one round trip: the conditional upsert only
// increments while the counter is under the limit, so concurrent callers
// cannot overshoot.
// =============================================================================

// PgxUsageStore implements usage.Store over a pgx pool.
type PgxUsageStore struct {
	pool *pgxpool.Pool
}

// NewPgxUsageStore wraps an existing pool.
func NewPgxUsageStore(pool *pgxpool.Pool) *PgxUsageStore {
	return &PgxUsageStore{pool: pool}
}

// Reserve implements usage.Store.
func (s *PgxUsageStore) Reserve(ctx context.Context, connector string, day time.Time, limit int) (bool, error) {
	if limit <= 0 {
		// Unlimited: still count the request for observability.
		_, err := s.pool.Exec(ctx, `
			INSERT INTO connector_usage (connector_name, date, request_count)
			VALUES ($1, $2, 1)
			ON CONFLICT (connector_name, date)
			DO UPDATE SET request_count = connector_usage.request_count + 1
		`, connector, usage.Day(day))
		if err != nil {
			return false, fmt.Errorf("count usage: %w", err)
		}
		return true, nil
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO connector_usage (connector_name, date, request_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (connector_name, date)
		DO UPDATE SET request_count = connector_usage.request_count + 1
		WHERE connector_usage.request_count < $3
	`, connector, usage.Day(day), limit)
	if err != nil {
		return false, fmt.Errorf("reserve usage: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

var _ usage.Store = (*PgxUsageStore)(nil)
