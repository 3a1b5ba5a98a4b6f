package api

import (
	"net/http"

	"github.com/Aidin1998/visitante_sonoro/api/responses"
	"github.com/Aidin1998/visitante_sonoro/internal/auth"
	"github.com/Aidin1998/visitante_sonoro/internal/musician"
	"github.com/Aidin1998/visitante_sonoro/internal/upload"
	"github.com/Aidin1998/visitante_sonoro/pkg/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const msgBadBody = "Request body could not be parsed"

// createMusician handles POST / with a form or JSON body and an optional image
func (s *Server) createMusician(c *gin.Context) {
	var in musician.CreateInput
	if err := c.ShouldBind(&in); err != nil {
		_ = c.Error(errors.Invalid.Explain(msgBadBody).Wrap(err))
		return
	}

	m, err := s.musicians.Create(c.Request.Context(), in, auth.CurrentAdminID(c), upload.File(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// updateMusician handles PATCH /:id. Fields missing from the body keep their
// stored values.
func (s *Server) updateMusician(c *gin.Context) {
	var in musician.UpdateInput
	if err := c.ShouldBind(&in); err != nil {
		_ = c.Error(errors.Invalid.Explain(msgBadBody).Wrap(err))
		return
	}

	m, err := s.musicians.Update(c.Request.Context(), c.Param("id"), in, auth.CurrentAdminID(c), upload.File(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// deleteMusicians handles DELETE /:id where id may be a comma separated list.
// Per-id failures are logged by the service and never change the response.
func (s *Server) deleteMusicians(c *gin.Context) {
	outcomes := s.musicians.Delete(c.Request.Context(), c.Param("id"), auth.CurrentAdminID(c))

	deleted := 0
	for _, o := range outcomes {
		if o.Status == musician.DeleteStatusDeleted {
			deleted++
		}
	}
	s.logger.Debug("Bulk delete finished",
		zap.Int("requested", len(outcomes)),
		zap.Int("deleted", deleted))

	responses.Message(c, http.StatusOK, musician.MsgDeleted)
}

func (s *Server) listMusicians(c *gin.Context) {
	list, err := s.musicians.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	if list == nil {
		list = []musician.Musician{}
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) getMusician(c *gin.Context) {
	m, err := s.musicians.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, m)
}
