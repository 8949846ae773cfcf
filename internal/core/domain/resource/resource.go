package resource

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Kind names a marketplace collection stored through the generic resource layer.
type Kind string

const (
	KindMerchantProducts Kind = "merchant_products"
	KindStudentProducts  Kind = "student_products"
	KindTutorServices    Kind = "tutor_services"
	KindReviews          Kind = "reviews"
	KindCategories       Kind = "categories"
)

var requiredFields = map[Kind][]string{
	KindMerchantProducts: {"name", "description", "price"},
	KindStudentProducts:  {"name", "condition", "description", "price"},
	KindTutorServices:    {"description", "price"},
	KindReviews:          {"rating", "comment"},
	KindCategories:       {"name"},
}

func (k Kind) IsValid() bool {
	_, ok := requiredFields[k]
	return ok
}

// RequiredFields lists the payload keys a new resource of kind k must carry.
func (k Kind) RequiredFields() []string {
	return requiredFields[k]
}

// Kinds returns every known kind.
func Kinds() []Kind {
	return []Kind{KindMerchantProducts, KindStudentProducts, KindTutorServices, KindReviews, KindCategories}
}

// Resource is an owner-scoped record whose shape belongs to the catalog, not the auth core.
type Resource struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	Kind      Kind            `json:"kind" db:"kind"`
	OwnerID   uuid.UUID       `json:"owner" db:"owner_id"`
	Payload   json.RawMessage `json:"data" db:"payload"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

type WriteRequest struct {
	Data json.RawMessage `json:"data" validate:"required"`
}

// ListFilter selects resources of one kind, optionally for a single owner.
type ListFilter struct {
	Kind    Kind
	OwnerID *uuid.UUID
	Limit   int
	Offset  int
}
