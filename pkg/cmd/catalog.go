package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/go-playground/validator/v10"
)

// LoadCatalog reads the server and service catalog from a JSON file. An empty path yields the
// built-in catalog.
func LoadCatalog(path string, validate *validator.Validate) (models.Catalog, error) {
	if path == "" {
		return models.DefaultCatalog(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return models.Catalog{}, fmt.Errorf("failed to read catalog: %w", err)
	}

	var catalog models.Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return models.Catalog{}, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}

	if err := validate.Struct(catalog); err != nil {
		return models.Catalog{}, fmt.Errorf("invalid catalog %s: %w", path, err)
	}

	return catalog, nil
}
