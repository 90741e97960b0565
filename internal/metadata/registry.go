package metadata

import (
	"sort"
	"sync"

	"condition-builder/internal/condition"
)

type Registry struct {
	mu     sync.RWMutex
	tables map[string]*Table
}

func NewRegistry() *Registry {
	return &Registry{
		tables: make(map[string]*Table),
	}
}

// GetTable returns the table with the given name, or nil.
func (r *Registry) GetTable(name string) *Table {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tables[name]
}

// AllTables returns all registered tables sorted by name.
func (r *Registry) AllTables() []*Table {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tables := make([]*Table, 0, len(r.tables))
	for _, t := range r.tables {
		tables = append(tables, t)
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })
	return tables
}

// Schema returns a snapshot of the registered tables as a compiler schema.
// Callers may keep it; later Loads do not affect it.
func (r *Registry) Schema() condition.Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	schema := make(condition.Schema, len(r.tables))
	for name, t := range r.tables {
		fields := make([]condition.Field, len(t.Fields))
		copy(fields, t.Fields)
		schema[name] = fields
	}
	return schema
}

// FieldOptions returns a snapshot of the option sets of every table.
func (r *Registry) FieldOptions() condition.FieldOptions {
	r.mu.RLock()
	defer r.mu.RUnlock()
	opts := make(condition.FieldOptions, len(r.tables))
	for name, t := range r.tables {
		if len(t.Options) == 0 {
			continue
		}
		fields := make(map[string]condition.OptionSet, len(t.Options))
		for field, set := range t.Options {
			cp := make(condition.OptionSet, len(set))
			copy(cp, set)
			fields[field] = cp
		}
		opts[name] = fields
	}
	return opts
}

// Load replaces all tables in the registry.
// Called during startup and after admin mutations.
func (r *Registry) Load(tables []*Table) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tables = make(map[string]*Table, len(tables))
	for _, t := range tables {
		r.tables[t.Name] = t
	}
}
