package httpserver

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/unibazzar/marketplace-api/internal/core/domain/apperr"
	"github.com/unibazzar/marketplace-api/internal/core/domain/resource"
	"github.com/unibazzar/marketplace-api/internal/infrastructure/httpserver/helpers"
)

const maxResourceBody = 1 << 20

func resourceKind(c echo.Context) resource.Kind {
	return resource.Kind(c.Param("kind"))
}

func resourceID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.ErrNotFound
	}
	return id, nil
}

// readPayload accepts either {"data": {...}} or the bare object.
func readPayload(c echo.Context) (json.RawMessage, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxResourceBody))
	if err != nil {
		return nil, errInvalidBody.Wrap(err)
	}
	var wrapped resource.WriteRequest
	if err := json.Unmarshal(body, &wrapped); err == nil && len(wrapped.Data) > 0 {
		return wrapped.Data, nil
	}
	return body, nil
}

func (s *Server) listResources(c echo.Context) error {
	ctx := c.Request().Context()
	actor := helpers.GetActor(c)
	limit, offset := pagination(c)

	var (
		items []*resource.Resource
		total int
		err   error
	)
	if c.QueryParam("owner") == "me" {
		items, total, err = s.resourceSvc.OwnerScoped(ctx, actor, resourceKind(c), limit, offset)
	} else {
		items, total, err = s.resourceSvc.List(ctx, actor, &resource.ListFilter{
			Kind:   resourceKind(c),
			Limit:  limit,
			Offset: offset,
		})
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"count": total, "results": items})
}

func (s *Server) getResource(c echo.Context) error {
	id, err := resourceID(c)
	if err != nil {
		return err
	}
	r, err := s.resourceSvc.Get(c.Request().Context(), helpers.GetActor(c), resourceKind(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}

func (s *Server) createResource(c echo.Context) error {
	payload, err := readPayload(c)
	if err != nil {
		return err
	}
	r, err := s.resourceSvc.Create(c.Request().Context(), helpers.GetActor(c), resourceKind(c), payload)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, r)
}

func (s *Server) updateResource(c echo.Context) error {
	id, err := resourceID(c)
	if err != nil {
		return err
	}
	payload, err := readPayload(c)
	if err != nil {
		return err
	}
	r, err := s.resourceSvc.Update(c.Request().Context(), helpers.GetActor(c), resourceKind(c), id, payload)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}

func (s *Server) deleteResource(c echo.Context) error {
	id, err := resourceID(c)
	if err != nil {
		return err
	}
	if err := s.resourceSvc.Delete(c.Request().Context(), helpers.GetActor(c), resourceKind(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
