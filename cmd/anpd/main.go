package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/anp-net/anpd/internal/callerauth"
	"github.com/anp-net/anpd/internal/config"
	"github.com/anp-net/anpd/internal/contacts"
	"github.com/anp-net/anpd/internal/descriptor"
	"github.com/anp-net/anpd/internal/domain"
	"github.com/anp-net/anpd/internal/hosted"
	"github.com/anp-net/anpd/internal/httpapi"
	"github.com/anp-net/anpd/internal/ledger"
	"github.com/anp-net/anpd/internal/loader"
	"github.com/anp-net/anpd/internal/registry"
	"github.com/anp-net/anpd/internal/router"

	_ "github.com/anp-net/anpd/internal/agents/echo"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	if err := run(logger); err != nil {
		logger.Fatal("anpd exited with error", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var auditLedger ledger.Ledger
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()
		if err := pool.Ping(context.Background()); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		pg := ledger.NewPostgresLedger(pool, logger)
		auditLedger = pg
		logger.Info("connected to postgres, audit ledger durable")
	} else {
		auditLedger = ledger.New()
		logger.Info("no database.url configured, audit ledger is in-memory")
	}

	if err := auditLedger.Verify(context.Background()); err != nil {
		logger.Warn("audit ledger integrity check FAILED", zap.Error(err))
	} else {
		n, _ := auditLedger.Len(context.Background())
		root, _ := auditLedger.Root(context.Background())
		logger.Info("audit ledger verified", zap.Int("entries", n), zap.String("root", root))
	}

	reg := registry.New(auditLedger, logger)
	rt := router.New(reg, logger)
	domains := domain.New(cfg.DataRoot)
	gen := descriptor.New(reg, domains, logger)
	contactsMgr := contacts.NewManager()

	var verifier *callerauth.Verifier
	if cfg.JWTSecret != "" {
		verifier = callerauth.NewVerifier([]byte(cfg.JWTSecret), cfg.JWTIssuer)
		logger.Info("caller bearer-token verification enabled", zap.String("issuer", cfg.JWTIssuer))
	} else {
		logger.Warn("auth.jwt_secret is empty — caller identity is trusted verbatim from request bodies")
	}

	srv := httpapi.New(cfg, reg, rt, domains, gen, contactsMgr, verifier, auditLedger, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var processors []*hosted.Processor
	for _, d := range cfg.Domains {
		paths := domains.Register(d.Host, d.Port)

		queue, err := hosted.NewQueueManager(filepath.Join(paths.BasePath, "requests"), logger)
		if err != nil {
			return fmt.Errorf("new queue manager for %s:%s: %w", d.Host, d.Port, err)
		}
		results, err := hosted.NewResultStore(filepath.Join(paths.BasePath, "results"))
		if err != nil {
			return fmt.Errorf("new result store for %s:%s: %w", d.Host, d.Port, err)
		}

		recovered, err := queue.RecoverProcessing(ctx)
		if err != nil {
			logger.Warn("recover in-flight hosted-did requests failed", zap.String("domain", d.Host), zap.Error(err))
		} else if recovered > 0 {
			logger.Info("recovered in-flight hosted-did requests", zap.String("domain", d.Host), zap.Int("count", recovered))
		}

		srv.RegisterHosted(d.Host, d.Port, queue, results)

		proc := hosted.NewProcessor(d.Host, d.Port, paths.UserHostedPath, queue, results, cfg.HostedPollInterval, logger, auditLedger)
		processors = append(processors, proc)
	}

	if err := loadAgents(ctx, reg, logger); err != nil {
		logger.Warn("agent directory load encountered errors", zap.Error(err))
	}

	for _, proc := range processors {
		go proc.Run(ctx)
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("anpd HTTP listening", zap.Int("port", cfg.HTTPPort))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP listen error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down anpd...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	logger.Info("anpd stopped")
	return nil
}

// loadAgents walks agents/<name>/agent.yaml descriptors and wires each one
// into the registry (§4.5). A directory with no descriptor, or an agent
// whose handler factory was never registered via an imported package's
// init(), is logged and skipped rather than treated as fatal — one broken
// agent directory should never keep the rest of the server from starting.
func loadAgents(ctx context.Context, reg *registry.Registry, logger *zap.Logger) error {
	const agentsDir = "agents"
	entries, err := os.ReadDir(agentsDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read agents dir: %w", err)
	}

	ld := loader.New(reg, logger)
	var firstErr error
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(agentsDir, e.Name())
		loaded, err := ld.LoadDirectory(ctx, dir)
		if err != nil {
			logger.Warn("failed to load agent", zap.String("dir", dir), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if loaded.Initializer != nil {
			if err := loaded.Initializer.InitializeAgent(ctx, loaded.Agent); err != nil {
				logger.Warn("agent initializer failed", zap.String("dir", dir), zap.Error(err))
			}
		}
		logger.Info("loaded agent", zap.String("dir", dir), zap.String("did", loaded.Agent.DID), zap.String("name", loaded.Agent.Name))
	}
	return firstErr
}
