package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/unibazzar/marketplace-api/internal/core/domain/apperr"
	"github.com/unibazzar/marketplace-api/internal/core/domain/user"
	"github.com/unibazzar/marketplace-api/internal/core/ports"
	"github.com/unibazzar/marketplace-api/internal/infrastructure/db"
)

type UniversityRepository struct {
	db *db.Database
}

func NewUniversityRepository(database *db.Database) ports.UniversityRepository {
	return &UniversityRepository{db: database}
}

func (r *UniversityRepository) GetByID(ctx context.Context, id int64) (*user.University, error) {
	var u user.University
	err := r.db.DB.GetContext(ctx, &u, `SELECT id, name, location, website FROM universities WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get university: %w", err)
	}
	return &u, nil
}

func (r *UniversityRepository) List(ctx context.Context, limit, offset int) ([]*user.University, error) {
	list := []*user.University{}
	query := `SELECT id, name, location, website FROM universities ORDER BY name LIMIT $1 OFFSET $2`
	if err := r.db.DB.SelectContext(ctx, &list, query, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list universities: %w", err)
	}
	return list, nil
}

func (r *UniversityRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.DB.GetContext(ctx, &count, `SELECT COUNT(*) FROM universities`); err != nil {
		return 0, fmt.Errorf("failed to count universities: %w", err)
	}
	return count, nil
}
