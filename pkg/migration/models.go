package migration

import (
	"fmt"

	"github.com/marshallshelly/pebble-apps/pkg/registry"
	"github.com/marshallshelly/pebble-apps/pkg/schema"
)

// OrderedTables parses models into a fresh registry and returns their tables with
// referenced tables first.
func OrderedTables(models ...any) ([]*schema.TableMetadata, error) {
	reg := registry.NewRegistry()
	if err := reg.Register(models...); err != nil {
		return nil, err
	}
	return reg.Ordered()
}

// FromModels plans a migration that creates every table of models from scratch.
func FromModels(name string, models ...any) (*Migration, error) {
	tables, err := OrderedTables(models...)
	if err != nil {
		return nil, fmt.Errorf("failed to order models: %w", err)
	}

	diff := NewDiffer().Compare(tables, nil)
	upSQL, downSQL := NewPlanner().GenerateMigration(diff)
	return &Migration{
		Version: GenerateVersion(),
		Name:    NormalizeName(name),
		UpSQL:   upSQL,
		DownSQL: downSQL,
	}, nil
}
