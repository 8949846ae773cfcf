package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/unibazzar/marketplace-api/internal/core/domain/apperr"
	"github.com/unibazzar/marketplace-api/internal/core/domain/audit"
	"github.com/unibazzar/marketplace-api/internal/core/domain/policy"
	"github.com/unibazzar/marketplace-api/internal/core/domain/resource"
	"github.com/unibazzar/marketplace-api/internal/core/domain/user"
	"github.com/unibazzar/marketplace-api/internal/core/ports"
)

const maxPageSize = 100

// ResourceService puts the policy table in front of the generic resource store.
type ResourceService struct {
	repo   ports.ResourceRepository
	table  policy.Table
	audit  ports.AuditService
	logger *logrus.Logger
}

func NewResourceService(repo ports.ResourceRepository, table policy.Table, auditSvc ports.AuditService, logger *logrus.Logger) ports.ResourceService {
	if table == nil {
		table = policy.DefaultTable()
	}
	return &ResourceService{repo: repo, table: table, audit: auditSvc, logger: logger}
}

func checkKind(kind resource.Kind) error {
	if !kind.IsValid() {
		return apperr.ErrNotFound
	}
	return nil
}

// decodePayload requires a JSON object carrying the kind's mandatory keys.
func decodePayload(kind resource.Kind, payload json.RawMessage, partial bool) (map[string]any, error) {
	var fields map[string]any
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return nil, apperr.FieldError(apperr.CodeInvalidField, "data", "Expected a JSON object.")
	}
	if partial {
		return fields, nil
	}
	verr := apperr.Validation(apperr.CodeInvalidField, "Invalid resource payload.")
	missing := false
	for _, f := range kind.RequiredFields() {
		if v, ok := fields[f]; !ok || v == nil || v == "" {
			verr = verr.WithField(f, "This field is required.")
			missing = true
		}
	}
	if missing {
		return nil, verr
	}
	return fields, nil
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (s *ResourceService) List(ctx context.Context, actor *policy.Actor, filter *resource.ListFilter) ([]*resource.Resource, int, error) {
	if err := checkKind(filter.Kind); err != nil {
		return nil, 0, err
	}
	if err := s.table.Guard(policy.OpList, filter.Kind, actor, nil); err != nil {
		return nil, 0, err
	}
	f := *filter
	f.Limit, f.Offset = pageBounds(f.Limit, f.Offset)
	items, err := s.repo.List(ctx, &f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list %s: %w", f.Kind, err)
	}
	total, err := s.repo.Count(ctx, &f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count %s: %w", f.Kind, err)
	}
	return items, total, nil
}

func (s *ResourceService) OwnerScoped(ctx context.Context, actor *policy.Actor, kind resource.Kind, limit, offset int) ([]*resource.Resource, int, error) {
	if actor == nil {
		return nil, 0, policy.ErrAuthenticationRequired
	}
	owner := actor.UserID
	return s.List(ctx, actor, &resource.ListFilter{Kind: kind, OwnerID: &owner, Limit: limit, Offset: offset})
}

func (s *ResourceService) Get(ctx context.Context, actor *policy.Actor, kind resource.Kind, id uuid.UUID) (*resource.Resource, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	r, err := s.repo.GetByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if err := s.table.Guard(policy.OpRetrieve, kind, actor, &r.OwnerID); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *ResourceService) Create(ctx context.Context, actor *policy.Actor, kind resource.Kind, payload json.RawMessage) (*resource.Resource, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	if err := s.table.Guard(policy.OpCreate, kind, actor, nil); err != nil {
		return nil, err
	}
	fields, err := decodePayload(kind, payload, false)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	now := time.Now()
	r := &resource.Resource{
		ID:        uuid.New(),
		Kind:      kind,
		OwnerID:   actor.UserID,
		Payload:   data,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", kind, err)
	}
	recordEvent(ctx, s.audit, &user.User{ID: actor.UserID}, audit.ActionResourceCreate, audit.OutcomeSuccess, map[string]string{"kind": string(kind), "id": r.ID.String()})
	return r, nil
}

// Update merges payload keys into the stored object.
func (s *ResourceService) Update(ctx context.Context, actor *policy.Actor, kind resource.Kind, id uuid.UUID, payload json.RawMessage) (*resource.Resource, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	current, err := s.repo.GetByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if err := s.table.Guard(policy.OpUpdate, kind, actor, &current.OwnerID); err != nil {
		return nil, err
	}
	patch, err := decodePayload(kind, payload, true)
	if err != nil {
		return nil, err
	}
	merged := map[string]any{}
	if len(current.Payload) > 0 {
		if err := json.Unmarshal(current.Payload, &merged); err != nil {
			return nil, fmt.Errorf("failed to decode stored payload: %w", err)
		}
	}
	for k, v := range patch {
		merged[k] = v
	}
	data, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	updated := *current
	updated.Payload = data
	updated.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, err
	}
	recordEvent(ctx, s.audit, &user.User{ID: actor.UserID}, audit.ActionResourceUpdate, audit.OutcomeSuccess, map[string]string{"kind": string(kind), "id": id.String()})
	return &updated, nil
}

func (s *ResourceService) Delete(ctx context.Context, actor *policy.Actor, kind resource.Kind, id uuid.UUID) error {
	if err := checkKind(kind); err != nil {
		return err
	}
	current, err := s.repo.GetByID(ctx, kind, id)
	if err != nil {
		return err
	}
	if err := s.table.Guard(policy.OpDelete, kind, actor, &current.OwnerID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, kind, id); err != nil {
		return err
	}
	recordEvent(ctx, s.audit, &user.User{ID: actor.UserID}, audit.ActionResourceDelete, audit.OutcomeSuccess, map[string]string{"kind": string(kind), "id": id.String()})
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"kind": kind, "id": id, "user_id": actor.UserID}).Info("resource deleted")
	}
	return nil
}
