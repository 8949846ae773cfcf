package ports

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/unibazzar/marketplace-api/internal/core/domain/policy"
	"github.com/unibazzar/marketplace-api/internal/core/domain/resource"
)

// ResourceRepository is the generic owner-scoped storage used by the catalog collaborators.
type ResourceRepository interface {
	Create(ctx context.Context, r *resource.Resource) error
	GetByID(ctx context.Context, kind resource.Kind, id uuid.UUID) (*resource.Resource, error)
	Update(ctx context.Context, r *resource.Resource) error
	Delete(ctx context.Context, kind resource.Kind, id uuid.UUID) error
	List(ctx context.Context, filter *resource.ListFilter) ([]*resource.Resource, error)
	Count(ctx context.Context, filter *resource.ListFilter) (int, error)
}

// ResourceService applies the authorization policy table in front of ResourceRepository.
// A nil actor is anonymous.
type ResourceService interface {
	List(ctx context.Context, actor *policy.Actor, filter *resource.ListFilter) ([]*resource.Resource, int, error)
	// OwnerScoped lists the actor's own resources of a kind.
	OwnerScoped(ctx context.Context, actor *policy.Actor, kind resource.Kind, limit, offset int) ([]*resource.Resource, int, error)
	Get(ctx context.Context, actor *policy.Actor, kind resource.Kind, id uuid.UUID) (*resource.Resource, error)
	Create(ctx context.Context, actor *policy.Actor, kind resource.Kind, payload json.RawMessage) (*resource.Resource, error)
	Update(ctx context.Context, actor *policy.Actor, kind resource.Kind, id uuid.UUID, payload json.RawMessage) (*resource.Resource, error)
	Delete(ctx context.Context, actor *policy.Actor, kind resource.Kind, id uuid.UUID) error
}
