package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/anp-net/anpd/internal/callerauth"
	"github.com/anp-net/anpd/internal/ledger"
)

// handleAgentAPI serves POST /agent/api/{did}/{subpath:path}, including the
// /message/post shortcut (§4.8): decode the body, synthesize requestData,
// resolve the target agent through the router, and dispatch.
func (s *Server) handleAgentAPI(c *gin.Context) {
	host, port, paths, ok := s.resolveHost(c)
	if !ok {
		return
	}

	targetDID := c.Param("did")
	subpath := c.Param("subpath")

	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil && c.Request.ContentLength > 0 {
		writeStructuredError(c, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if body == nil {
		body = make(map[string]any)
	}

	callerDID := s.callerDID(c, body)
	s.recordContact(paths.UserDIDPath, callerDID, host, port)

	reqType := "api_call"
	if subpath == "/message/post" {
		reqType = "message"
	}

	requestData := make(map[string]any, len(body)+3)
	for k, v := range body {
		requestData[k] = v
	}
	requestData["type"] = reqType
	requestData["path"] = subpath
	requestData["req_did"] = callerDID

	agent, err := s.rt.Resolve(c.Request.Context(), host, port, targetDID, "", requestData)
	if err != nil {
		writeError(c, err)
		return
	}

	result, err := agent.HandleRequest(c.Request.Context(), callerDID, requestData, c.Request)
	if err != nil {
		ledger.Append(c.Request.Context(), s.audit, targetDID, "dispatch.error", callerDID, gin.H{"path": subpath, "error": err.Error()})
		writeError(c, err)
		return
	}

	ledger.Append(c.Request.Context(), s.audit, targetDID, "dispatch.ok", callerDID, gin.H{"path": subpath})
	c.JSON(http.StatusOK, result)
}

// handlePublisherAgents serves GET /publisher/agents: enumerate every
// agent registered for the inbound domain.
func (s *Server) handlePublisherAgents(c *gin.Context) {
	if _, _, _, ok := s.resolveHost(c); !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"agents": s.reg.ListAgents()})
}

// handleGroupEvent serves POST/GET /agent/group/{did}/{groupID}/{action}
// where action is one of join, leave, message, connect, members.
func (s *Server) handleGroupEvent(c *gin.Context) {
	host, port, paths, ok := s.resolveHost(c)
	if !ok {
		return
	}

	targetDID := c.Param("did")
	groupID := c.Param("groupID")
	action := c.Param("action")

	var body map[string]any
	_ = c.ShouldBindJSON(&body)
	if body == nil {
		body = make(map[string]any)
	}
	callerDID := s.callerDID(c, body)
	s.recordContact(paths.UserDIDPath, callerDID, host, port)

	requestData := make(map[string]any, len(body)+2)
	for k, v := range body {
		requestData[k] = v
	}
	requestData["type"] = "group_" + action
	requestData["req_did"] = callerDID

	agent, err := s.rt.Resolve(c.Request.Context(), host, port, targetDID, "", requestData)
	if err != nil {
		writeError(c, err)
		return
	}

	result, err := agent.HandleGroupEvent(c.Request.Context(), callerDID, groupID, action, requestData)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// callerDID resolves the caller's DID from the bearer token the
// callerauth middleware already verified, falling back to the body's own
// "callerDID" field for local/dev deployments with no Verifier
// configured (the middleware is never installed in that case).
func (s *Server) callerDID(c *gin.Context, body map[string]any) string {
	if did := callerauth.FromContext(c); did != "" {
		return did
	}
	if v, ok := body["callerDID"].(string); ok {
		return v
	}
	return ""
}

// recordContact books callerDID into the domain's contact roster (§3:
// "contact entries are updated lazily on each interaction"; §4.7: a
// repeat addContact only bumps lastContact and interactionCount). It is
// best-effort: a contact-book failure never fails the dispatch it rode
// in on.
func (s *Server) recordContact(userDIDPath, callerDID, host, port string) {
	if callerDID == "" || s.contacts == nil {
		return
	}
	book, err := s.contacts.BookFor(userDIDPath)
	if err != nil {
		s.logger.Warn("open contact book failed", zap.String("did", callerDID), zap.Error(err))
		return
	}
	if _, err := book.AddContact(callerDID, host, port, ""); err != nil {
		s.logger.Warn("record contact failed", zap.String("did", callerDID), zap.Error(err))
	}
}
