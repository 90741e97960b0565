package metadata

import (
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"condition-builder/internal/condition"
	"condition-builder/internal/config"
	"condition-builder/internal/store"
)

const seedJSON = `{
  "databaseSchema": {
    "users": [
      {"name": "id", "type": "number"},
      {"name": "status", "type": "string"},
      {"name": "joined", "type": "date"}
    ],
    "orders": [
      {"name": "status", "type": "string"}
    ]
  },
  "fieldOptions": {
    "orders": {"status": ["pending", {"value": "shipped", "label": "Shipped"}]}
  }
}`

func writeSeed(t *testing.T, body string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/etc/schema.json", []byte(body), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return fs
}

func TestLoadFile(t *testing.T) {
	seed, err := LoadFile(writeSeed(t, seedJSON), "/etc/schema.json")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	tables := seed.Tables()
	if len(tables) != 2 || tables[0].Name != "orders" || tables[1].Name != "users" {
		t.Fatalf("unexpected tables %+v", tables)
	}
	if got := tables[1].FieldNames(); strings.Join(got, ",") != "id,status,joined" {
		t.Fatalf("field order not preserved: %v", got)
	}
	set := tables[0].Options["status"]
	if len(set) != 2 || set[0].Label != "pending" || set[1].Label != "Shipped" {
		t.Fatalf("unexpected options %+v", set)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"invalid json", `{`, "parse seed"},
		{"empty schema", `{"databaseSchema": {}}`, "databaseSchema is empty"},
		{"bad type", `{"databaseSchema": {"t": [{"name": "a", "type": "blob"}]}}`, "table t"},
		{"unknown option field", `{"databaseSchema": {"t": [{"name": "a", "type": "string"}]},
			"fieldOptions": {"t": {"b": ["x"]}}}`, "unknown field b"},
		{"unknown option table", `{"databaseSchema": {"t": [{"name": "a", "type": "string"}]},
			"fieldOptions": {"u": {"a": ["x"]}}}`, "unknown table u"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadFile(writeSeed(t, tc.body), "/etc/schema.json")
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}

	if _, err := LoadFile(afero.NewMemMapFs(), "/missing.json"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestRegistry_Snapshots(t *testing.T) {
	seed, err := LoadFile(writeSeed(t, seedJSON), "/etc/schema.json")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	reg := NewRegistry()
	reg.Load(seed.Tables())

	schema := reg.Schema()
	opts := reg.FieldOptions()
	if schema.Field("users", "joined") == nil {
		t.Fatalf("schema snapshot missing users.joined")
	}
	if _, ok := opts.Lookup("orders", "status"); !ok {
		t.Fatalf("options snapshot missing orders.status")
	}
	if _, ok := opts["users"]; ok {
		t.Fatalf("users has no options and should be absent")
	}

	// mutating a snapshot must not reach the registry
	schema["users"][0].Name = "changed"
	if reg.GetTable("users").Fields[0].Name != "id" {
		t.Fatalf("schema snapshot aliases registry state")
	}

	reg.Load([]*Table{{Name: "only", Fields: []condition.Field{{Name: "x", Type: condition.TypeBoolean}}}})
	if reg.GetTable("users") != nil {
		t.Fatalf("Load should replace previous tables")
	}
	if !schema.HasTable("users") {
		t.Fatalf("earlier snapshot should be unaffected by Load")
	}
	if all := reg.AllTables(); len(all) != 1 || all[0].Name != "only" {
		t.Fatalf("unexpected tables %+v", all)
	}
}

func TestTable_Validate(t *testing.T) {
	valid := &Table{Name: "users", Fields: []condition.Field{{Name: "id", Type: condition.TypeNumber}}}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}

	cases := []*Table{
		{Fields: valid.Fields},
		{Name: "users"},
		{Name: "users", Fields: []condition.Field{{Name: "id", Type: "blob"}}},
		{Name: "users", Fields: valid.Fields, Options: map[string]condition.OptionSet{"id": {}}},
		{Name: "users", Fields: valid.Fields, Options: map[string]condition.OptionSet{"nope": {{Value: "a"}}}},
	}
	for i, tc := range cases {
		if err := tc.Validate(); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestSeedTablesAndLoadAll(t *testing.T) {
	ctx := context.Background()
	s, err := store.New(ctx, config.DatabaseConfig{Driver: "sqlite", Path: t.TempDir(), Name: "meta"})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()
	if err := s.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	seed, err := LoadFile(writeSeed(t, seedJSON), "/etc/schema.json")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	n, err := SeedTables(ctx, s, seed)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 inserted tables, got %d", n)
	}
	// seeding again leaves existing definitions alone
	if n, err := SeedTables(ctx, s, seed); err != nil || n != 0 {
		t.Fatalf("expected no inserts on reseed, got %d (%v)", n, err)
	}

	// a broken row is skipped, not fatal
	if _, err := s.DB.ExecContext(ctx, "INSERT INTO _tables (name, definition) VALUES ('broken', 'not json')"); err != nil {
		t.Fatalf("insert broken row: %v", err)
	}

	reg := NewRegistry()
	if err := LoadAll(ctx, s.DB, reg); err != nil {
		t.Fatalf("load all: %v", err)
	}
	if len(reg.AllTables()) != 2 || reg.GetTable("broken") != nil {
		t.Fatalf("unexpected tables %+v", reg.AllTables())
	}
	if set, ok := reg.FieldOptions().Lookup("orders", "status"); !ok || set[1].Label != "Shipped" {
		t.Fatalf("options lost in storage: %+v", set)
	}
}

func TestSeedTables_CanceledContext(t *testing.T) {
	ctx := context.Background()
	s, err := store.New(ctx, config.DatabaseConfig{Driver: "sqlite", Path: t.TempDir(), Name: "meta"})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()
	if err := s.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	seed, err := LoadFile(writeSeed(t, seedJSON), "/etc/schema.json")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if n, err := SeedTables(canceled, s, seed); err == nil || n != 0 {
		t.Fatalf("expected seed to fail on canceled context, got %d (%v)", n, err)
	}

	reg := NewRegistry()
	if err := LoadAll(ctx, s.DB, reg); err != nil {
		t.Fatalf("load all: %v", err)
	}
	if len(reg.AllTables()) != 0 {
		t.Fatalf("expected no tables after failed seed, got %d", len(reg.AllTables()))
	}
}
