package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sensai/sensai-backend/internal/model"
)

// MistakeTypeRepository handles the mistake-type catalog.
type MistakeTypeRepository struct {
	pool *pgxpool.Pool
}

// NewMistakeTypeRepository creates a new MistakeTypeRepository.
func NewMistakeTypeRepository(pool *pgxpool.Pool) *MistakeTypeRepository {
	return &MistakeTypeRepository{pool: pool}
}

// List retrieves the whole catalog ordered by ID.
func (r *MistakeTypeRepository) List(ctx context.Context) ([]model.MistakeType, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, label, description FROM mistake_types ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []model.MistakeType
	for rows.Next() {
		var m model.MistakeType
		if err := rows.Scan(&m.ID, &m.Label, &m.Description); err != nil {
			return nil, err
		}
		types = append(types, m)
	}
	return types, rows.Err()
}

// Upsert inserts a catalog entry or refreshes its description.
func (r *MistakeTypeRepository) Upsert(ctx context.Context, m *model.MistakeType) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO mistake_types (label, description)
		 VALUES ($1, $2)
		 ON CONFLICT (label) DO UPDATE SET description = EXCLUDED.description
		 RETURNING id`,
		m.Label, m.Description,
	).Scan(&m.ID)
}
