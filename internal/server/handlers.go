package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nvt2106/magicstore"
	"github.com/nvt2106/magicstore/condition"
	"github.com/nvt2106/magicstore/proxy"
	"github.com/nvt2106/magicstore/schema"
)

type schemaView struct {
	Name   string      `json:"name"`
	Fields []fieldView `json:"fields"`
}

type fieldView struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Type     string `json:"type,omitempty"`
	Target   string `json:"target,omitempty"`
	Required bool   `json:"required,omitempty"`
	MinLen   int    `json:"min_length,omitempty"`
	MaxLen   int    `json:"max_length,omitempty"`
	Unique   string `json:"unique,omitempty"`
}

// GET /meta/schemas
func (s *Server) listSchemas(c *gin.Context) {
	schemas := s.ec.Schemas()
	out := make([]schemaView, len(schemas))
	for i, e := range schemas {
		v := schemaView{Name: e.Name, Fields: make([]fieldView, len(e.Fields))}
		for j, f := range e.Fields {
			fv := fieldView{
				Name:     f.Name,
				Kind:     f.Kind.String(),
				Target:   f.Target,
				Required: f.Required,
				MinLen:   f.MinLen,
				MaxLen:   f.MaxLen,
				Unique:   f.UniqueGroup,
			}
			if !f.IsRelation() {
				fv.Type = f.Type.String()
			}
			v.Fields[j] = fv
		}
		out[i] = v
	}
	c.JSON(http.StatusOK, out)
}

// GET /meta/stats
func (s *Server) queryStats(c *gin.Context) {
	if s.stats == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "statistics are disabled"})
		return
	}
	c.JSON(http.StatusOK, s.stats.Stats())
}

// GET /api/:schema?where=&sort=&size=&page=
func (s *Server) search(c *gin.Context) {
	cs, err := condition.Parse(c.Query("where"))
	if err != nil {
		s.abort(c, http.StatusBadRequest, err)
		return
	}
	if err := cs.Validate(); err != nil {
		s.abort(c, http.StatusBadRequest, err)
		return
	}
	page, err := pageSetting(c)
	if err != nil {
		s.abort(c, http.StatusBadRequest, err)
		return
	}
	list, err := s.ec.Search(c.Request.Context(), c.Param("schema"), cs, page)
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]map[string]any, len(list))
	for i, e := range list {
		out[i] = e.Values()
	}
	c.JSON(http.StatusOK, out)
}

func pageSetting(c *gin.Context) (*condition.PageSetting, error) {
	page := condition.All()
	if v := c.Query("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid page size %q", v)
		}
		page.Size = n
	}
	if v := c.Query("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid page index %q", v)
		}
		page.Index = n
	}
	sorts, err := condition.ParseSort(c.Query("sort"))
	if err != nil {
		return nil, err
	}
	page.Sorts = sorts
	return page, page.Validate()
}

// GET /api/:schema/:id
func (s *Server) get(c *gin.Context) {
	e, ok := s.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, e.Values())
}

// POST /api/:schema
func (s *Server) create(c *gin.Context) {
	e, err := s.ec.Create(c.Param("schema"))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.save(c, e, http.StatusCreated)
}

// PUT /api/:schema/:id
func (s *Server) update(c *gin.Context) {
	e, ok := s.load(c)
	if !ok {
		return
	}
	s.save(c, e, http.StatusOK)
}

// DELETE /api/:schema/:id
func (s *Server) delete(c *gin.Context) {
	e, ok := s.load(c)
	if !ok {
		return
	}
	if err := s.ec.Delete(c.Request.Context(), e); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// load fetches the entity named by the path, or aborts the request.
func (s *Server) load(c *gin.Context) (*proxy.Entity, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.abort(c, http.StatusBadRequest, fmt.Errorf("invalid id %q", c.Param("id")))
		return nil, false
	}
	name := c.Param("schema")
	e, err := s.ec.Get(c.Request.Context(), name, id)
	if err == nil && e == nil {
		err = magicstore.NewNotFoundErrorWithID(name, id)
	}
	if err != nil {
		s.fail(c, err)
		return nil, false
	}
	return e, true
}

// save applies the JSON body to e and saves it.
func (s *Server) save(c *gin.Context, e *proxy.Entity, status int) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		s.abort(c, http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err))
		return
	}
	delete(body, schema.IDField)
	if err := e.Load(body); err != nil {
		s.abort(c, http.StatusBadRequest, err)
		return
	}
	stored, err := s.ec.Save(c.Request.Context(), e)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(status, stored.Values())
}

func (s *Server) abort(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// fail writes err with the status of its kind. Data validation failures
// list their messages under "errors".
func (s *Server) fail(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusUnprocessableEntity {
		errs, _ := magicstore.AsErrors(err)
		c.AbortWithStatusJSON(status, gin.H{"errors": errs.Messages()})
		return
	}
	if status >= http.StatusInternalServerError {
		s.log.ErrorContext(c.Request.Context(), "server: request failed", "id", c.GetString(requestIDKey), "error", err)
	}
	s.abort(c, status, err)
}

func statusOf(err error) int {
	switch {
	case magicstore.IsPrivacyError(err):
		return http.StatusForbidden
	case magicstore.IsNotFound(err), errors.Is(err, magicstore.ErrUnmanagedType):
		return http.StatusNotFound
	case errors.Is(err, magicstore.ErrNilArgument),
		errors.Is(err, magicstore.ErrNotProxy),
		errors.Is(err, proxy.ErrUnknownSlot),
		errors.Is(err, condition.ErrUnknownField),
		errors.Is(err, condition.ErrIncomparable),
		errors.Is(err, condition.ErrLikeOperand):
		return http.StatusBadRequest
	}
	if errs, ok := magicstore.AsErrors(err); ok {
		for _, e := range errs {
			if e.Err != nil {
				return http.StatusInternalServerError
			}
		}
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
