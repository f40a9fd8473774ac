package httpapi

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// handleUserDIDDocument serves GET /wba/user/{user_id}/did.json.
func (s *Server) handleUserDIDDocument(c *gin.Context) {
	_, _, paths, ok := s.resolveHost(c)
	if !ok {
		return
	}
	s.serveJSONFile(c, filepath.Join(paths.UserDIDPath, c.Param("userID"), "did_document.json"))
}

// handleUserAgentDescription serves GET /wba/user/{user_id}/ad.json.
func (s *Server) handleUserAgentDescription(c *gin.Context) {
	_, _, paths, ok := s.resolveHost(c)
	if !ok {
		return
	}
	s.serveJSONFile(c, filepath.Join(paths.UserDIDPath, c.Param("userID"), "ad.json"))
}

// handleUserDescriptorFile serves GET /wba/user/{resp_did}/{name}.yaml and
// /wba/user/{resp_did}/{name}.json: the OpenAPI document and the
// JSON-RPC method list, dispatched on the requested file's extension
// (gin cannot register two sibling wildcard params at the same path
// depth, so both live behind one route).
func (s *Server) handleUserDescriptorFile(c *gin.Context) {
	_, _, paths, ok := s.resolveHost(c)
	if !ok {
		return
	}
	file := c.Param("file")
	dir := filepath.Join(paths.UserDIDPath, c.Param("userID"))

	switch {
	case strings.HasSuffix(file, ".yaml") || strings.HasSuffix(file, ".yml"):
		data, err := os.ReadFile(filepath.Join(dir, "api_interface.yaml"))
		if err != nil {
			writeStructuredError(c, http.StatusNotFound, "no OpenAPI document for this user")
			return
		}
		c.Data(http.StatusOK, "application/yaml", data)
	case strings.HasSuffix(file, ".json"):
		s.serveJSONFile(c, filepath.Join(dir, "api_interface.json"))
	default:
		writeStructuredError(c, http.StatusNotFound, "unknown descriptor file "+file)
	}
}

// handleHostedDIDDocument serves GET /wba/hostuser/{user_id}/did.json.
func (s *Server) handleHostedDIDDocument(c *gin.Context) {
	_, _, paths, ok := s.resolveHost(c)
	if !ok {
		return
	}
	s.serveJSONFile(c, filepath.Join(paths.UserHostedPath, "user_"+c.Param("userID"), "did_document.json"))
}

func (s *Server) serveJSONFile(c *gin.Context, path string) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		writeStructuredError(c, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeStructuredError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}
