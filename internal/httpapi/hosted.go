package httpapi

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/anp-net/anpd/internal/hosted"
)

// estimatedProcessingTimeSeconds is the fixed ETA (§3 scenario 5) returned
// to callers of /wba/hosted-did/request; the processor polls every
// s.cfg.HostedPollInterval but callers are given a round, stable number
// rather than that interval directly.
const estimatedProcessingTimeSeconds = 300

type hostedDIDRequestBody struct {
	DIDDocument  map[string]any        `json:"didDocument"`
	RequesterDID string                `json:"requesterDID"`
	CallbackInfo *hosted.CallbackInfo `json:"callbackInfo,omitempty"`
}

// handleHostedDIDRequest serves POST /wba/hosted-did/request.
func (s *Server) handleHostedDIDRequest(c *gin.Context) {
	host, port, _, ok := s.resolveHost(c)
	if !ok {
		return
	}
	h, ok := s.hostedFor(host, port)
	if !ok {
		writeStructuredError(c, http.StatusInternalServerError, "hosted-did workflow is not configured for this domain")
		return
	}

	var body hostedDIDRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeStructuredError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	requestID := uuid.NewString()
	req, err := h.queue.AddRequest(c.Request.Context(), requestID, body.RequesterDID, body.DIDDocument, body.CallbackInfo)
	if err != nil {
		writeStructuredError(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":                 true,
		"requestID":               req.RequestID,
		"estimatedProcessingTime": estimatedProcessingTimeSeconds,
	})
}

// handleHostedDIDStatus serves GET /wba/hosted-did/status/{requestID}.
func (s *Server) handleHostedDIDStatus(c *gin.Context) {
	host, port, _, ok := s.resolveHost(c)
	if !ok {
		return
	}
	h, ok := s.hostedFor(host, port)
	if !ok {
		writeStructuredError(c, http.StatusInternalServerError, "hosted-did workflow is not configured for this domain")
		return
	}

	req, err := h.queue.GetRequestStatus(c.Param("requestID"))
	if err != nil {
		writeStructuredError(c, http.StatusNotFound, err.Error())
		return
	}
	c.JSON(http.StatusOK, req)
}

// handleHostedDIDCheck serves GET /wba/hosted-did/check/{requesterShortID}.
func (s *Server) handleHostedDIDCheck(c *gin.Context) {
	host, port, _, ok := s.resolveHost(c)
	if !ok {
		return
	}
	h, ok := s.hostedFor(host, port)
	if !ok {
		writeStructuredError(c, http.StatusInternalServerError, "hosted-did workflow is not configured for this domain")
		return
	}

	results, err := h.results.GetResultsForRequester(c.Param("requesterShortID"))
	if err != nil {
		writeStructuredError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// handleHostedDIDAcknowledge serves POST /wba/hosted-did/acknowledge/{resultID}.
func (s *Server) handleHostedDIDAcknowledge(c *gin.Context) {
	host, port, _, ok := s.resolveHost(c)
	if !ok {
		return
	}
	h, ok := s.hostedFor(host, port)
	if !ok {
		writeStructuredError(c, http.StatusInternalServerError, "hosted-did workflow is not configured for this domain")
		return
	}

	if err := h.results.AcknowledgeResult(c.Param("resultID")); err != nil {
		writeStructuredError(c, http.StatusNotFound, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleHostedDIDList serves GET /wba/hosted-did/list: enumerate every
// hosted DID materialized for the inbound domain.
func (s *Server) handleHostedDIDList(c *gin.Context) {
	_, _, paths, ok := s.resolveHost(c)
	if !ok {
		return
	}

	entries, err := os.ReadDir(paths.UserHostedPath)
	if os.IsNotExist(err) {
		c.JSON(http.StatusOK, gin.H{"hostedDIDs": []string{}})
		return
	}
	if err != nil {
		writeStructuredError(c, http.StatusInternalServerError, err.Error())
		return
	}

	var dids []string
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "user_") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(paths.UserHostedPath, e.Name(), "did_document.json"))
		if err != nil {
			continue
		}
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			continue
		}
		if id, ok := doc["id"].(string); ok {
			dids = append(dids, id)
		}
	}
	c.JSON(http.StatusOK, gin.H{"hostedDIDs": dids})
}
