package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/unibazzar/marketplace-api/internal/core/domain/apperr"
	"github.com/unibazzar/marketplace-api/internal/core/domain/resource"
	"github.com/unibazzar/marketplace-api/internal/core/ports"
	"github.com/unibazzar/marketplace-api/internal/infrastructure/db"
)

const resourceColumns = `id, kind, owner_id, payload, created_at, updated_at`

type resourceRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

// NewResourceRepository stores catalog resources of every kind in one table.
func NewResourceRepository(database *db.Database, logger *logrus.Logger) ports.ResourceRepository {
	return &resourceRepository{db: database, logger: logger}
}

func (r *resourceRepository) Create(ctx context.Context, res *resource.Resource) error {
	query := `
		INSERT INTO resources (` + resourceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.DB.ExecContext(ctx, query,
		res.ID, res.Kind, res.OwnerID, []byte(res.Payload), res.CreatedAt, res.UpdatedAt)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"kind": res.Kind, "owner_id": res.OwnerID}).WithError(err).Error("db: failed to create resource")
		}
		return fmt.Errorf("failed to create resource: %w", err)
	}
	return nil
}

func (r *resourceRepository) GetByID(ctx context.Context, kind resource.Kind, id uuid.UUID) (*resource.Resource, error) {
	var res resource.Resource
	query := `SELECT ` + resourceColumns + ` FROM resources WHERE kind = $1 AND id = $2`

	if err := r.db.DB.GetContext(ctx, &res, query, kind, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}
	return &res, nil
}

func (r *resourceRepository) Update(ctx context.Context, res *resource.Resource) error {
	query := `UPDATE resources SET payload = $3, updated_at = $4 WHERE kind = $1 AND id = $2`

	result, err := r.db.DB.ExecContext(ctx, query, res.Kind, res.ID, []byte(res.Payload), res.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update resource: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *resourceRepository) Delete(ctx context.Context, kind resource.Kind, id uuid.UUID) error {
	result, err := r.db.DB.ExecContext(ctx, `DELETE FROM resources WHERE kind = $1 AND id = $2`, kind, id)
	if err != nil {
		return fmt.Errorf("failed to delete resource: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *resourceRepository) List(ctx context.Context, filter *resource.ListFilter) ([]*resource.Resource, error) {
	where, args := resourceWhere(filter)
	query := `SELECT ` + resourceColumns + ` FROM resources` + where + ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += " OFFSET $" + strconv.Itoa(len(args))
	}

	list := []*resource.Resource{}
	if err := r.db.DB.SelectContext(ctx, &list, query, args...); err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"kind": filter.Kind}).WithError(err).Error("db: failed to list resources")
		}
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	return list, nil
}

func (r *resourceRepository) Count(ctx context.Context, filter *resource.ListFilter) (int, error) {
	where, args := resourceWhere(filter)
	var count int
	if err := r.db.DB.GetContext(ctx, &count, `SELECT COUNT(*) FROM resources`+where, args...); err != nil {
		return 0, fmt.Errorf("failed to count resources: %w", err)
	}
	return count, nil
}

func resourceWhere(filter *resource.ListFilter) (string, []any) {
	conditions := []string{"kind = $1"}
	args := []any{filter.Kind}
	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		conditions = append(conditions, "owner_id = $"+strconv.Itoa(len(args)))
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
