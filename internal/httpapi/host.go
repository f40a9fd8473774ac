package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anp-net/anpd/internal/domain"
)

// resolveHost validates the inbound Host header against the domain
// manager and writes the §6 "an unconfigured host returns 403" response
// itself when invalid. Callers should return immediately when ok is false.
func (s *Server) resolveHost(c *gin.Context) (host, port string, paths domain.Paths, ok bool) {
	host, port = domain.SplitHostPort(c.Request.Host)
	valid, reason := s.domains.Validate(host, port)
	if !valid {
		c.JSON(http.StatusForbidden, gin.H{"error": reason})
		return "", "", domain.Paths{}, false
	}
	paths, _ = s.domains.Paths(host, port)
	return host, port, paths, true
}
