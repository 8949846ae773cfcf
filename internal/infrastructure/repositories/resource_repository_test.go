package repositories

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unibazzar/marketplace-api/internal/core/domain/apperr"
	"github.com/unibazzar/marketplace-api/internal/core/domain/resource"
)

var resourceRowColumns = []string{"id", "kind", "owner_id", "payload", "created_at", "updated_at"}

func TestResourceRepository_CRUD(t *testing.T) {
	database, mock := newMockDB(t)
	repo := NewResourceRepository(database, nil)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	r := &resource.Resource{
		ID:        uuid.New(),
		Kind:      resource.KindReviews,
		OwnerID:   uuid.New(),
		Payload:   json.RawMessage(`{"rating":5,"comment":"great tutor"}`),
		CreatedAt: now,
		UpdatedAt: now,
	}

	mock.ExpectExec(`INSERT INTO resources`).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Create(ctx, r))

	mock.ExpectQuery(`FROM resources WHERE kind = \$1 AND id = \$2`).WithArgs("reviews", r.ID).
		WillReturnRows(sqlmock.NewRows(resourceRowColumns).
			AddRow(r.ID.String(), "reviews", r.OwnerID.String(), []byte(r.Payload), now, now))
	got, err := repo.GetByID(ctx, resource.KindReviews, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.OwnerID, got.OwnerID)
	assert.JSONEq(t, string(r.Payload), string(got.Payload))

	mock.ExpectQuery(`FROM resources WHERE kind = \$1 AND id = \$2`).WillReturnRows(sqlmock.NewRows(resourceRowColumns))
	_, err = repo.GetByID(ctx, resource.KindReviews, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	mock.ExpectExec(`UPDATE resources SET payload = \$3, updated_at = \$4 WHERE kind = \$1 AND id = \$2`).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Update(ctx, r))

	mock.ExpectExec(`DELETE FROM resources`).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(ctx, resource.KindReviews, r.ID), apperr.ErrNotFound)
}

func TestResourceRepository_ListByOwner(t *testing.T) {
	database, mock := newMockDB(t)
	repo := NewResourceRepository(database, nil)
	ctx := context.Background()
	owner := uuid.New()
	filter := &resource.ListFilter{Kind: resource.KindTutorServices, OwnerID: &owner, Limit: 10, Offset: 20}

	mock.ExpectQuery(`FROM resources WHERE kind = \$1 AND owner_id = \$2 ORDER BY created_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("tutor_services", owner, 10, 20).
		WillReturnRows(sqlmock.NewRows(resourceRowColumns).
			AddRow(uuid.NewString(), "tutor_services", owner.String(), []byte(`{"price":100}`), time.Now(), time.Now()))
	list, err := repo.List(ctx, filter)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM resources WHERE kind = \$1 AND owner_id = \$2$`).
		WithArgs("tutor_services", owner).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(21))
	n, err := repo.Count(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, 21, n)
}
