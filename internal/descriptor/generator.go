package descriptor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/anp-net/anpd/internal/did"
	"github.com/anp-net/anpd/internal/domain"
	"github.com/anp-net/anpd/internal/registry"
)

const (
	adFileName       = "ad.json"
	openAPIFileName  = "api_interface.yaml"
	jsonRPCFileName  = "api_interface.json"
	generatedDirPerm = 0o755
)

// Generator publishes the three per-DID description files whenever a
// registry's set of agents for a DID changes (§4.4).
type Generator struct {
	reg    *registry.Registry
	domain *domain.Manager
	logger *zap.Logger
}

// New builds a Generator over reg, placing output files under the data
// directories domainMgr resolves for each DID's host:port.
func New(reg *registry.Registry, domainMgr *domain.Manager, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{reg: reg, domain: domainMgr, logger: logger}
}

// GenerateDescriptors rebuilds ad.json, api_interface.yaml, and
// api_interface.json for targetDID, writing them atomically (tmp file +
// rename) under the DID's user data directory. Calling it twice in a row
// with an unchanged registry produces byte-identical files (§8).
func (g *Generator) GenerateDescriptors(targetDID string) error {
	parsed, err := did.Parse(targetDID)
	if err != nil {
		return fmt.Errorf("generate descriptors: %w", err)
	}

	agents, err := g.reg.GetAll(targetDID)
	if err != nil {
		return fmt.Errorf("generate descriptors: %w", err)
	}
	routes := collectRoutes(agents)

	dir, err := g.outputDir(parsed)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, generatedDirPerm); err != nil {
		return fmt.Errorf("create descriptor dir %s: %w", dir, err)
	}

	ad := buildAgentDescription(targetDID, routes)
	if err := writeJSONFile(filepath.Join(dir, adFileName), ad); err != nil {
		return err
	}

	openapi := &openAPIDocument{targetDID: targetDID, routes: routes}
	if err := writeYAMLFile(filepath.Join(dir, openAPIFileName), openapi); err != nil {
		return err
	}

	jsonrpc := buildJSONRPCDocument(routes)
	if err := writeJSONFile(filepath.Join(dir, jsonRPCFileName), jsonrpc); err != nil {
		return err
	}

	g.logger.Info("regenerated agent descriptors",
		zap.String("did", targetDID), zap.Int("routes", len(routes)), zap.String("dir", dir))
	return nil
}

// outputDir resolves targetDID's owning domain to its user data directory,
// routing hosted sub-identities to UserHostedPath instead of UserDIDPath.
func (g *Generator) outputDir(parsed *did.DID) (string, error) {
	paths, ok := g.domain.Paths(parsed.Host, parsed.Port)
	if !ok {
		return "", fmt.Errorf("domain %s:%s is not registered", parsed.Host, parsed.Port)
	}
	root := paths.UserDIDPath
	if parsed.Kind == did.KindHostUser {
		root = paths.UserHostedPath
	}
	return filepath.Join(root, parsed.UniqueID), nil
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	return atomicWrite(path, data)
}

func writeYAMLFile(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	return atomicWrite(path, data)
}

func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}
