package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hollowgrove/cascade/internal/artifact"
	"github.com/hollowgrove/cascade/pkg/api"
)

// maxArtifactSize bounds uploaded request bodies
const maxArtifactSize = 32 << 20

const defaultContentType = "application/octet-stream"

var (
	ErrArtifactsOff  = errors.New("artifact store not configured")
	ErrEmptyArtifact = errors.New("artifact body empty")
	ErrArtifactSize  = errors.New("artifact exceeds size limit")
)

func (s *Server) uploadArtifact(c *gin.Context) {
	store, ok := s.artifactStore(c)
	if !ok {
		return
	}

	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxArtifactSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  err.Error(),
			Status: http.StatusBadRequest,
		})
		return
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  ErrEmptyArtifact.Error(),
			Status: http.StatusBadRequest,
		})
		return
	}
	if len(data) > maxArtifactSize {
		c.JSON(http.StatusRequestEntityTooLarge, api.ErrorResponse{
			Error:  ErrArtifactSize.Error(),
			Status: http.StatusRequestEntityTooLarge,
		})
		return
	}

	meta, err := store.Put(
		c.Request.Context(), c.Query("name"), c.ContentType(), data,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Error:  fmt.Sprintf("failed to store artifact: %v", err),
			Status: http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusCreated, api.ArtifactResponse{
		ID:          meta.ID,
		Name:        meta.Name,
		ContentType: meta.ContentType,
		Size:        meta.Size,
	})
}

func (s *Server) downloadArtifact(c *gin.Context) {
	store, ok := s.artifactStore(c)
	if !ok {
		return
	}

	id := c.Param("id")
	data, meta, err := store.Get(c.Request.Context(), id)
	if err != nil {
		s.artifactError(c, err)
		return
	}

	contentType := meta.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	c.Data(http.StatusOK, contentType, data)
}

func (s *Server) deleteArtifact(c *gin.Context) {
	store, ok := s.artifactStore(c)
	if !ok {
		return
	}

	// Stat first: the store's Delete is idempotent and would mask an
	// unknown id
	id := c.Param("id")
	if _, err := store.Stat(c.Request.Context(), id); err != nil {
		s.artifactError(c, err)
		return
	}
	if err := store.Delete(c.Request.Context(), id); err != nil {
		s.artifactError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{
		Message: fmt.Sprintf("artifact deleted: %s", id),
	})
}

func (s *Server) artifactStore(c *gin.Context) (*artifact.Store, bool) {
	if s.deps.Artifacts == nil {
		c.JSON(http.StatusServiceUnavailable, api.ErrorResponse{
			Error:  ErrArtifactsOff.Error(),
			Status: http.StatusServiceUnavailable,
		})
		return nil, false
	}
	return s.deps.Artifacts, true
}

func (s *Server) artifactError(c *gin.Context, err error) {
	if errors.Is(err, artifact.ErrNotFound) {
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Error:  err.Error(),
			Status: http.StatusNotFound,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, api.ErrorResponse{
		Error:  err.Error(),
		Status: http.StatusInternalServerError,
	})
}
