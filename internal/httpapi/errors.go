package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anp-net/anpd/internal/registry"
	"github.com/anp-net/anpd/internal/router"
)

// writeError converts a dispatch-path error to the §6/§7 error envelope:
// not-found agents get 404 {status, message}; everything else surfaces as
// 500 {status, error_message}.
func writeError(c *gin.Context, err error) {
	switch err.(type) {
	case *router.NotFoundError, *registry.NotFoundError, *registry.AmbiguousError:
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error_message": err.Error()})
	}
}

// writeStructuredError is the plain {status, message} shape used by
// non-dispatch failures (bad request bodies, validation errors).
func writeStructuredError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"status": "error", "message": message})
}
