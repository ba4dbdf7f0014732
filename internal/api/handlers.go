package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"

	"github.com/TomascpMarques/to-orderly/internal/schema"
	"github.com/TomascpMarques/to-orderly/internal/templates"
)

// createRequest is the body of POST /api/templates/:template.
type createRequest struct {
	Meta   *templates.Meta `json:"meta"`
	Schema json.RawMessage `json:"schema"`
}

// liveRequest is the body of POST /api/templates/live/:template.
type liveRequest struct {
	Meta   *templates.Meta `json:"meta"`
	Sample json.RawMessage `json:"sample"`
}

func readBody(c echo.Context, dst any) error {
	return c.Echo().JSONSerializer.Deserialize(c, dst)
}

func metaOrDefault(m *templates.Meta) templates.Meta {
	if m == nil {
		return templates.Meta{}
	}
	return *m
}

// handleQuery answers by the first present key among id, active, name_s and
// name.
func (s *Server) handleQuery(c echo.Context) error {
	ctx := c.Request().Context()
	q := c.QueryParams()

	switch {
	case q.Has("id"):
		id, err := strconv.ParseInt(q.Get("id"), 10, 64)
		if err != nil {
			return errBadQuery
		}
		t, err := s.svc.ByID(ctx, id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, t)

	case q.Has("active"):
		active, err := strconv.ParseBool(q.Get("active"))
		if err != nil {
			return errBadQuery
		}
		ts, err := s.svc.ByStatus(ctx, active)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, ts)

	case q.Has("name_s"):
		t, err := s.svc.ByName(ctx, q.Get("name_s"))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, t)

	case q.Has("name"):
		ts, err := s.svc.Search(ctx, q.Get("name"))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, ts)
	}
	return errBadQuery
}

func (s *Server) handleCreate(c echo.Context) error {
	table := c.Param("template")

	var req createRequest
	if err := readBody(c, &req); err != nil {
		s.svc.Reject("create", err)
		return err
	}
	if len(req.Schema) == 0 {
		err := fmt.Errorf("api: %w: missing schema", schema.ErrMalformedInput)
		s.svc.Reject("create", err)
		return err
	}
	sch, err := schema.ParseDeclared(req.Schema)
	if err != nil {
		s.svc.Reject("create", err)
		return err
	}

	t, err := s.svc.Create(c.Request().Context(), table, metaOrDefault(req.Meta), sch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, t)
}

func (s *Server) handleCreateLive(c echo.Context) error {
	table := c.Param("template")

	var req liveRequest
	if err := readBody(c, &req); err != nil {
		s.svc.Reject("create_live", err)
		return err
	}
	if len(req.Sample) == 0 {
		err := fmt.Errorf("api: %w: missing sample", schema.ErrMalformedInput)
		s.svc.Reject("create_live", err)
		return err
	}
	live, err := schema.ParseLive(req.Sample)
	if err != nil {
		s.svc.Reject("create_live", err)
		return err
	}

	t, err := s.svc.CreateLive(c.Request().Context(), table, metaOrDefault(req.Meta), live)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, t)
}

func (s *Server) handleDrop(c echo.Context) error {
	if err := s.svc.Drop(c.Request().Context(), c.Param("template")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{})
}
