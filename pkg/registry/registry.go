// Package registry keeps parsed table metadata for every model the service knows about.
package registry

import (
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/marshallshelly/pebble-apps/pkg/schema"
)

// Registry is a thread-safe registry for table metadata.
type Registry struct {
	mu     sync.RWMutex
	parser *schema.Parser
	tables map[reflect.Type]*schema.TableMetadata
	names  map[string]*schema.TableMetadata
}

// NewRegistry creates a new Registry instance.
func NewRegistry() *Registry {
	return &Registry{
		parser: schema.NewParser(),
		tables: make(map[reflect.Type]*schema.TableMetadata),
		names:  make(map[string]*schema.TableMetadata),
	}
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// Register parses and stores each model. Registering the same type twice is a no-op;
// two types claiming one table name is an error.
func (r *Registry) Register(models ...any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, model := range models {
		modelType := indirect(reflect.TypeOf(model))
		if _, ok := r.tables[modelType]; ok {
			continue
		}
		table, err := r.parser.Parse(modelType)
		if err != nil {
			return fmt.Errorf("failed to parse model %s: %w", modelType.Name(), err)
		}
		if other, ok := r.names[table.Name]; ok && other.GoType != modelType {
			return fmt.Errorf("table %s is already registered by %s", table.Name, other.GoType.Name())
		}
		r.tables[modelType] = table
		r.names[table.Name] = table
	}
	return nil
}

// Get retrieves TableMetadata by Go type.
func (r *Registry) Get(modelType reflect.Type) (*schema.TableMetadata, error) {
	modelType = indirect(modelType)

	r.mu.RLock()
	table, ok := r.tables[modelType]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("model type %s not registered", modelType.Name())
	}
	return table, nil
}

// GetByName retrieves TableMetadata by table name.
func (r *Registry) GetByName(tableName string) (*schema.TableMetadata, error) {
	r.mu.RLock()
	table, ok := r.names[tableName]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("table %s not registered", tableName)
	}
	return table, nil
}

// GetOrRegister retrieves TableMetadata or registers it if not found.
func (r *Registry) GetOrRegister(model any) (*schema.TableMetadata, error) {
	modelType := indirect(reflect.TypeOf(model))

	r.mu.RLock()
	table, ok := r.tables[modelType]
	r.mu.RUnlock()
	if ok {
		return table, nil
	}

	if err := r.Register(model); err != nil {
		return nil, err
	}
	return r.Get(modelType)
}

// Has reports whether a table name is registered.
func (r *Registry) Has(tableName string) bool {
	r.mu.RLock()
	_, ok := r.names[tableName]
	r.mu.RUnlock()
	return ok
}

// Names returns the registered table names in alphabetical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.names))
	for name := range r.names {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Ordered returns every table so that referenced tables come before the tables
// pointing at them. Ties are broken alphabetically, so the order is stable.
// References to unregistered tables are ignored; cycles are an error.
func (r *Registry) Ordered() ([]*schema.TableMetadata, error) {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(names))
	ordered := make([]*schema.TableMetadata, 0, len(names))

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("foreign key cycle through table %s", name)
		}
		state[name] = visiting
		table := r.names[name]
		refs := table.References()
		slices.Sort(refs)
		for _, ref := range refs {
			if _, ok := r.names[ref]; !ok {
				continue
			}
			if err := visit(ref); err != nil {
				return err
			}
		}
		state[name] = done
		ordered = append(ordered, table)
		return nil
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}

// Clear removes all registered models.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tables = make(map[reflect.Type]*schema.TableMetadata)
	r.names = make(map[string]*schema.TableMetadata)
}

var globalRegistry = NewRegistry()

// Register registers models in the global registry.
func Register(models ...any) error {
	return globalRegistry.Register(models...)
}

// Get retrieves TableMetadata from the global registry.
func Get(modelType reflect.Type) (*schema.TableMetadata, error) {
	return globalRegistry.Get(modelType)
}

// GetOrRegister retrieves or registers a model in the global registry.
func GetOrRegister(model any) (*schema.TableMetadata, error) {
	return globalRegistry.GetOrRegister(model)
}
