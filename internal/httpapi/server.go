// Package httpapi wires the registry, router, hosted-DID workflow,
// descriptor generator, domain manager, and contact book into the bit-exact
// HTTP surface of §6, using gin's route groups and a global middleware
// chain with a structured JSON error envelope.
package httpapi

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/anp-net/anpd/internal/callerauth"
	"github.com/anp-net/anpd/internal/config"
	"github.com/anp-net/anpd/internal/contacts"
	"github.com/anp-net/anpd/internal/descriptor"
	"github.com/anp-net/anpd/internal/domain"
	"github.com/anp-net/anpd/internal/hosted"
	"github.com/anp-net/anpd/internal/ledger"
	"github.com/anp-net/anpd/internal/metrics"
	"github.com/anp-net/anpd/internal/registry"
	"github.com/anp-net/anpd/internal/router"
)

// domainHosted bundles one served domain's hosted-DID queue and result
// inbox, the two components the HTTP surface dispatches requests to.
type domainHosted struct {
	queue   *hosted.QueueManager
	results *hosted.ResultStore
}

// Server holds every subsystem the HTTP surface dispatches to.
type Server struct {
	cfg       *config.Config
	reg       *registry.Registry
	rt        *router.Router
	domains   *domain.Manager
	gen       *descriptor.Generator
	contacts  *contacts.Manager
	verifier  *callerauth.Verifier
	audit     ledger.Ledger
	logger    *zap.Logger
	startedAt time.Time

	hostedByDomain map[string]*domainHosted
}

// New builds a Server. verifier may be nil, which disables bearer-token
// caller authentication (requests then carry an unauthenticated callerDID
// taken from the request body, matching a local/dev deployment). audit may
// be nil, which disables dispatch auditing entirely.
func New(cfg *config.Config, reg *registry.Registry, rt *router.Router, domains *domain.Manager,
	gen *descriptor.Generator, contactsMgr *contacts.Manager, verifier *callerauth.Verifier,
	audit ledger.Ledger, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg: cfg, reg: reg, rt: rt, domains: domains, gen: gen, contacts: contactsMgr,
		verifier: verifier, audit: audit, logger: logger, startedAt: time.Now().UTC(),
		hostedByDomain: make(map[string]*domainHosted),
	}
}

// RegisterHosted attaches a served domain's hosted-DID queue and result
// store, called once per domain during server startup.
func (s *Server) RegisterHosted(host, port string, queue *hosted.QueueManager, results *hosted.ResultStore) {
	s.hostedByDomain[host+":"+port] = &domainHosted{queue: queue, results: results}
}

func (s *Server) hostedFor(host, port string) (*domainHosted, bool) {
	h, ok := s.hostedByDomain[host+":"+port]
	return h, ok
}

// Router builds the gin.Engine serving every route in §6 plus the ambient
// /healthz and /metrics operational routes (SPEC_FULL addition to §4.8).
func (s *Server) Router() *gin.Engine {
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	if len(s.cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     s.cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: !containsWildcard(s.cfg.CORSOrigins),
			MaxAge:           12 * time.Hour,
		}))
	}
	r.Use(securityHeaders())
	r.Use(bodyLimit(s.cfg.BodyLimitByte))
	r.Use(rateLimiter(s.cfg.RateLimitRPS))
	r.Use(requestLogger(s.logger))
	r.Use(metrics.Middleware())
	if s.verifier != nil {
		r.Use(s.verifier.Middleware())
	}

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", metrics.Handler())

	r.GET("/", s.handleStatus)

	r.GET("/wba/user/:userID/did.json", s.handleUserDIDDocument)
	r.GET("/wba/user/:userID/ad.json", s.handleUserAgentDescription)
	r.GET("/wba/user/:userID/:file", s.handleUserDescriptorFile)
	r.GET("/wba/hostuser/:userID/did.json", s.handleHostedDIDDocument)

	r.POST("/wba/hosted-did/request", s.handleHostedDIDRequest)
	r.GET("/wba/hosted-did/status/:requestID", s.handleHostedDIDStatus)
	r.GET("/wba/hosted-did/check/:requesterShortID", s.handleHostedDIDCheck)
	r.POST("/wba/hosted-did/acknowledge/:resultID", s.handleHostedDIDAcknowledge)
	r.GET("/wba/hosted-did/list", s.handleHostedDIDList)

	r.POST("/agent/api/:did/*subpath", s.handleAgentAPI)
	r.GET("/publisher/agents", s.handlePublisherAgents)

	r.Any("/agent/group/:did/:groupID/:action", s.handleGroupEvent)

	return r
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"service":    "anpd",
		"started_at": s.startedAt,
	})
}
