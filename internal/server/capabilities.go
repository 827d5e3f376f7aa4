package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hollowgrove/cascade/pkg/api"
)

func (s *Server) listCapabilities(c *gin.Context) {
	digests := s.deps.Caps.Digests()
	c.JSON(http.StatusOK, api.CapabilitiesResponse{
		Capabilities: digests,
		Count:        len(digests),
	})
}

// capabilityHealth reports the latest health snapshot for remote
// capabilities. Without a configured checker the map is empty
func (s *Server) capabilityHealth(c *gin.Context) {
	health := map[string]*api.HealthState{}
	if s.deps.Health != nil {
		health = s.deps.Health.Snapshot()
	}
	c.JSON(http.StatusOK, api.HealthListResponse{
		Health: health,
		Count:  len(health),
	})
}
