package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"tableau-assistant/internal/models"
)

// ExchangeStore persists recorded question/answer exchanges.
type ExchangeStore interface {
	Insert(ctx context.Context, e *models.Exchange) error
	ListRecent(ctx context.Context, limit int) ([]*models.Exchange, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Close()
}

type ExchangeRepo struct {
	pool *pgxpool.Pool
}

func NewExchangeRepo(pool *pgxpool.Pool) *ExchangeRepo {
	return &ExchangeRepo{pool: pool}
}

func (r *ExchangeRepo) Insert(ctx context.Context, e *models.Exchange) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	query := `INSERT INTO exchanges (id, request_id, question, worksheet, row_count, column_count, answer, model, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		e.ID, e.RequestID, e.Question, e.Worksheet, e.RowCount, e.ColumnCount,
		e.Answer, e.Model, e.DurationMS,
	).Scan(&e.CreatedAt)
}

func (r *ExchangeRepo) ListRecent(ctx context.Context, limit int) ([]*models.Exchange, error) {
	query := `SELECT id, request_id, question, worksheet, row_count, column_count, answer, model, duration_ms, created_at
		FROM exchanges ORDER BY created_at DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exchanges []*models.Exchange
	for rows.Next() {
		e := &models.Exchange{}
		err := rows.Scan(
			&e.ID, &e.RequestID, &e.Question, &e.Worksheet, &e.RowCount, &e.ColumnCount,
			&e.Answer, &e.Model, &e.DurationMS, &e.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		exchanges = append(exchanges, e)
	}

	return exchanges, nil
}

func (r *ExchangeRepo) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM exchanges WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *ExchangeRepo) Close() {
	r.pool.Close()
}

var _ ExchangeStore = (*ExchangeRepo)(nil)
