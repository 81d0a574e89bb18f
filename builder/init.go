package builder

import (
	"embed"
	"fmt"
	"log/slog"
)

//go:embed workflows/*.yaml
var embeddedWorkflows embed.FS

// globalCatalog holds the embedded demo workflows
var globalCatalog *Catalog

func init() {
	globalCatalog = NewCatalog()

	if err := globalCatalog.LoadFromFS(embeddedWorkflows, "workflows"); err != nil {
		slog.Warn("Failed to load embedded workflows.", "err", err)
	}
}

// GetGlobalCatalog returns the catalog of embedded workflows
func GetGlobalCatalog() *Catalog {
	return globalCatalog
}

// LoadCatalog returns a catalog with the embedded workflows plus the ones
// found in dir, which override embedded workflows with the same name.
func LoadCatalog(dir string) (*Catalog, error) {
	catalog := NewCatalog()
	if err := catalog.LoadFromFS(embeddedWorkflows, "workflows"); err != nil {
		return nil, fmt.Errorf("failed to load embedded workflows: %w", err)
	}
	if dir != "" {
		if err := catalog.LoadFromDirectory(dir); err != nil {
			return nil, fmt.Errorf("failed to load custom workflows: %w", err)
		}
	}
	return catalog, nil
}
