package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/afero"

	"condition-builder/internal/condition"
)

const testSeed = `{
  "databaseSchema": {
    "users": [
      {"name": "id", "type": "number"},
      {"name": "name", "type": "string"},
      {"name": "status", "type": "string"}
    ]
  },
  "fieldOptions": {"users": {"status": ["active", "banned"]}}
}`

func setup(t *testing.T, files map[string]string) {
	t.Helper()
	color.NoColor = true
	fs := afero.NewMemMapFs()
	files["schema.json"] = testSeed
	for name, body := range files {
		if err := afero.WriteFile(fs, name, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	prev := AppFs
	AppFs = fs
	t.Cleanup(func() { AppFs = prev })
}

func execute(stdin string, args ...string) (string, string, error) {
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestCompile_FromStdin(t *testing.T) {
	setup(t, map[string]string{})
	out, _, err := execute(`{"combinator":"AND","children":[
		{"field":"status","operator":"equals","value":"active"},
		{"field":"id","operator":"greater-than","value":100}]}`,
		"compile", "--table", "users")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !strings.Contains(out, "SQL:    (status = ? AND id > ?)") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, `Params: ["active",100]`) {
		t.Fatalf("unexpected params:\n%s", out)
	}
}

func TestCompile_NoCombineRejectsGroups(t *testing.T) {
	setup(t, map[string]string{
		"cond.json": `{"combinator":"OR","children":[{"field":"id","operator":"equals","value":1}]}`,
	})
	_, stderr, err := execute("", "compile", "--table", "users", "--no-combine", "cond.json")
	if !errors.Is(err, condition.ErrStructureViolation) {
		t.Fatalf("expected structure violation, got %v", err)
	}
	if !strings.Contains(stderr, "✗") {
		t.Fatalf("expected error line on stderr, got %q", stderr)
	}
}

func TestCompile_ConstraintViolation(t *testing.T) {
	setup(t, map[string]string{})
	_, _, err := execute(`{"field":"status","operator":"equals","value":"pending"}`, "compile", "--table", "users")
	if !errors.Is(err, condition.ErrConstraintViolation) {
		t.Fatalf("expected constraint violation, got %v", err)
	}
}

func TestCompile_RequiresTable(t *testing.T) {
	setup(t, map[string]string{})
	if _, _, err := execute(`{}`, "compile"); err == nil || !strings.Contains(err.Error(), "--table") {
		t.Fatalf("expected --table error, got %v", err)
	}
}

func TestParse_JSONOutput(t *testing.T) {
	setup(t, map[string]string{})
	out, _, err := execute("", "parse", "--table", "users", "--json", `name.startsWith("A") || id in [1, 2]`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for _, want := range []string{`"sql": "(name LIKE ? ESCAPE '\\' OR id IN (?, ?))"`, `"rawData"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in output:\n%s", want, out)
		}
	}
}

func TestMatch(t *testing.T) {
	setup(t, map[string]string{
		"cond.json":    `{"field":"id","operator":"between","value":[10,20]}`,
		"records.json": `[{"id":5,"name":"a"},{"id":15,"name":"b"},{"name":"c"}]`,
	})
	out, stderr, err := execute("", "match", "--table", "users", "--records", "records.json", "cond.json")
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 1 || !strings.Contains(lines[0], `"name":"b"`) {
		t.Fatalf("unexpected matches:\n%s", out)
	}
	if !strings.Contains(stderr, "1 of 3 records matched") {
		t.Fatalf("unexpected summary %q", stderr)
	}
}
