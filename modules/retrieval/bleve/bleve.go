// Package bleve implements the retrieval.bleve module: a local, embedded
// retrieval backend built on a Bleve full-text index. Documents are scoped
// by tenant and tag; no API key is needed.
package bleve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/flemzord/ragraft/internal/core"
	"github.com/flemzord/ragraft/internal/retrieval"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ retrieval.Service = (*Module)(nil)
	_ core.Module       = (*Module)(nil)
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Config holds the configuration for the Bleve retrieval module.
type Config struct {
	// Path is the index directory. Relative paths resolve under the data
	// directory. Ignored when InMemory is set.
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

func (c *Config) defaults() {
	if c.Path == "" {
		c.Path = "retrieval.bleve"
	}
}

// Module is the retrieval.bleve module.
type Module struct {
	config Config
	logger *slog.Logger
	index  bleve.Index
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "retrieval.bleve",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return err
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.logger = ctx.Logger

	if _, exists := ctx.Service(retrieval.ServiceName); exists {
		return errors.New("retrieval.bleve: another retrieval backend is already loaded")
	}

	var err error
	if m.config.InMemory {
		m.index, err = bleve.NewMemOnly(newMapping())
	} else {
		path := m.config.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(ctx.DataDir, path)
		}
		m.index, err = openIndex(path)
	}
	if err != nil {
		return fmt.Errorf("retrieval.bleve: %w", err)
	}

	ctx.RegisterService(retrieval.ServiceName, m)
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(_ context.Context) error {
	if m.index == nil {
		return nil
	}
	return m.index.Close()
}

// RequiresCredential implements retrieval.Service.
func (m *Module) RequiresCredential() bool { return false }

// indexedDoc is the stored document shape.
type indexedDoc struct {
	TenantID string `json:"tenant_id"`
	Tag      string `json:"tag"`
	Title    string `json:"title"`
	Content  string `json:"content"`
}

// newMapping indexes content and title with the standard analyzer
// (lowercase, no stemming) and the scoping fields as exact keywords.
func newMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", text)
	docMapping.AddFieldMappingsAt("title", text)
	keyword := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("tenant_id", keyword)
	docMapping.AddFieldMappingsAt("tag", keyword)

	im.AddDocumentMapping("knowledge", docMapping)
	im.DefaultType = "knowledge"
	im.DefaultMapping = docMapping
	return im
}

// openIndex reuses an existing index at path or creates one.
func openIndex(path string) (bleve.Index, error) {
	if _, err := os.Stat(path); err == nil {
		index, err := bleve.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open index: %w", err)
		}
		return index, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}
	index, err := bleve.New(path, newMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return index, nil
}
