package builder

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/simon020286/go-stageflow/config"
)

// Catalog maintains named workflow definitions
type Catalog struct {
	mu        sync.RWMutex
	workflows map[string]*config.WorkflowConfig
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{
		workflows: make(map[string]*config.WorkflowConfig),
	}
}

// Register validates and adds a workflow definition, replacing one with the same name
func (c *Catalog) Register(cfg *config.WorkflowConfig) error {
	if err := config.ValidateWorkflowConfig(cfg); err != nil {
		return fmt.Errorf("invalid workflow definition: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.workflows[cfg.Name] = cfg
	return nil
}

// Get returns a workflow definition by name
func (c *Catalog) Get(name string) (*config.WorkflowConfig, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cfg, exists := c.workflows[name]
	return cfg, exists
}

// List returns all workflow names, sorted
func (c *Catalog) List() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.workflows))
	for name := range c.workflows {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Count returns the number of registered workflows
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.workflows)
}

// LoadFromFS loads every .yaml/.yml file of dir in fsys
func (c *Catalog) LoadFromFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("failed to read workflows directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}

		data, err := fs.ReadFile(fsys, dir+"/"+entry.Name())
		if err != nil {
			return fmt.Errorf("failed to read workflow %s: %w", entry.Name(), err)
		}

		if err := c.loadFromBytes(data, entry.Name()); err != nil {
			return fmt.Errorf("failed to load workflow %s: %w", entry.Name(), err)
		}
	}

	return nil
}

// LoadFromDirectory loads workflows from a filesystem directory.
// A missing directory is not an error; invalid files are skipped with a warning.
func (c *Catalog) LoadFromDirectory(dirPath string) error {
	if _, err := os.Stat(dirPath); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return fmt.Errorf("failed to read workflows directory %s: %w", dirPath, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}

		filePath := filepath.Join(dirPath, entry.Name())
		data, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", filePath, err)
		}

		if err := c.loadFromBytes(data, entry.Name()); err != nil {
			slog.Warn("Skipping workflow file.", "path", filePath, "err", err)
			continue
		}
	}

	return nil
}

func (c *Catalog) loadFromBytes(data []byte, filename string) error {
	cfg, err := config.Parse(data)
	if err != nil {
		return err
	}

	// If name is not specified, use the filename
	if cfg.Name == "" {
		cfg.Name = strings.TrimSuffix(filename, filepath.Ext(filename))
	}

	return c.Register(cfg)
}

// Resolve loads ref as a workflow file when it names an existing file,
// otherwise looks it up in the catalog by name.
func (c *Catalog) Resolve(ref string) (*config.WorkflowConfig, error) {
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		cfg, err := config.LoadFile(ref)
		if err != nil {
			return nil, err
		}
		if err := config.ValidateWorkflowConfig(cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", ref, err)
		}
		return cfg, nil
	}

	if cfg, ok := c.Get(ref); ok {
		return cfg, nil
	}
	return nil, fmt.Errorf("workflow %q is neither a file nor a known workflow (known: %s)",
		ref, strings.Join(c.List(), ", "))
}

func isYAML(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

// GetWorkflowsPath returns the path to the custom workflows directory.
// Checks the environment variable first, then uses the default directory.
func GetWorkflowsPath() string {
	if path := os.Getenv("STAGEFLOW_WORKFLOWS_PATH"); path != "" {
		return path
	}
	return filepath.Join(config.ConfigDir(), "workflows")
}
