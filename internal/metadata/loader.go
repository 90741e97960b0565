package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"

	"github.com/spf13/afero"

	"condition-builder/internal/condition"
	"condition-builder/internal/store"
)

// LoadAll reads all table definitions from the database and populates the registry.
func LoadAll(ctx context.Context, q store.Querier, reg *Registry) error {
	tables, err := loadTables(ctx, q)
	if err != nil {
		return fmt.Errorf("load tables: %w", err)
	}

	reg.Load(tables)

	log.Printf("Loaded %d tables into registry", len(tables))
	return nil
}

// Reload is an alias for LoadAll, called after admin mutations.
func Reload(ctx context.Context, q store.Querier, reg *Registry) error {
	return LoadAll(ctx, q, reg)
}

func loadTables(ctx context.Context, q store.Querier) ([]*Table, error) {
	rows, err := q.QueryContext(ctx, "SELECT name, definition FROM _tables ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []*Table
	for rows.Next() {
		var name string
		var defJSON []byte
		if err := rows.Scan(&name, &defJSON); err != nil {
			return nil, fmt.Errorf("scan table row: %w", err)
		}

		var t Table
		if err := json.Unmarshal(defJSON, &t); err != nil {
			log.Printf("WARN: skipping table %s (invalid JSON): %v", name, err)
			continue
		}
		t.Name = name
		if err := t.Validate(); err != nil {
			log.Printf("WARN: skipping table %s: %v", name, err)
			continue
		}
		tables = append(tables, &t)
	}
	return tables, rows.Err()
}

// Seed is the on-disk form of a builder configuration: the same shape a host
// hands to a condition builder.
type Seed struct {
	DatabaseSchema condition.Schema       `json:"databaseSchema"`
	FieldOptions   condition.FieldOptions `json:"fieldOptions"`
}

// Tables flattens the seed into table definitions, sorted by name.
func (s *Seed) Tables() []*Table {
	tables := make([]*Table, 0, len(s.DatabaseSchema))
	for _, name := range s.DatabaseSchema.Tables() {
		t := &Table{Name: name, Fields: s.DatabaseSchema[name]}
		if opts := s.FieldOptions[name]; len(opts) > 0 {
			t.Options = opts
		}
		tables = append(tables, t)
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })
	return tables
}

// LoadFile reads and validates a seed file.
func LoadFile(fs afero.Fs, path string) (*Seed, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}

	var seed Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	if len(seed.DatabaseSchema) == 0 {
		return nil, fmt.Errorf("seed %s: databaseSchema is empty", path)
	}
	for _, t := range seed.Tables() {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("seed %s: table %s: %w", path, t.Name, err)
		}
	}
	for table := range seed.FieldOptions {
		if !seed.DatabaseSchema.HasTable(table) {
			return nil, fmt.Errorf("seed %s: options given for unknown table %s", path, table)
		}
	}
	return &seed, nil
}

// SeedTables writes every seed table that does not exist yet into _tables.
// Existing definitions are left alone so admin edits survive restarts.
func SeedTables(ctx context.Context, s *store.Store, seed *Seed) (int, error) {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	inserted := 0
	for _, t := range seed.Tables() {
		def, err := json.Marshal(t)
		if err != nil {
			return 0, fmt.Errorf("marshal table %s: %w", t.Name, err)
		}
		pb := s.Dialect.NewParamBuilder()
		sql := fmt.Sprintf("INSERT INTO _tables (name, definition) VALUES (%s, %s) ON CONFLICT (name) DO NOTHING",
			pb.Add(t.Name), pb.Add(string(def)))
		n, err := store.Exec(ctx, tx, sql, pb.Params()...)
		if err != nil {
			return 0, fmt.Errorf("seed table %s: %w", t.Name, store.MapError(s.Dialect, err))
		}
		inserted += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit seed: %w", err)
	}
	return inserted, nil
}
