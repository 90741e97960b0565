package condition

import (
	"errors"
	"testing"
)

func TestParseCEL(t *testing.T) {
	tests := []struct {
		filter string
		want   Node
	}{
		{
			filter: `status == "active"`,
			want:   &Predicate{Field: "status", Operator: OpEquals, Value: "active"},
		},
		{
			filter: `100 < id`,
			want:   &Predicate{Field: "id", Operator: OpGreaterThan, Value: int64(100)},
		},
		{
			filter: `id >= -5`,
			want:   &Predicate{Field: "id", Operator: OpGreaterThanOrEqual, Value: int64(-5)},
		},
		{
			filter: `id == 7u`,
			want:   &Predicate{Field: "id", Operator: OpEquals, Value: int64(7)},
		},
		{
			filter: `name == null`,
			want:   &Predicate{Field: "name", Operator: OpIsNull},
		},
		{
			filter: `!(status in ["banned", "pending"])`,
			want:   &Predicate{Field: "status", Operator: OpNotInSet, Value: []any{"banned", "pending"}},
		},
		{
			filter: `!name.contains("bot")`,
			want:   &Predicate{Field: "name", Operator: OpNotContains, Value: "bot"},
		},
		{
			filter: `status == "active" && id > 1 && verified == true`,
			want: &Group{Combinator: And, Children: []Node{
				&Predicate{Field: "status", Operator: OpEquals, Value: "active"},
				&Predicate{Field: "id", Operator: OpGreaterThan, Value: int64(1)},
				&Predicate{Field: "verified", Operator: OpEquals, Value: true},
			}},
		},
		{
			filter: `status == "active" && (id > 100 || name.startsWith("A"))`,
			want: &Group{Combinator: And, Children: []Node{
				&Predicate{Field: "status", Operator: OpEquals, Value: "active"},
				&Group{Combinator: Or, Children: []Node{
					&Predicate{Field: "id", Operator: OpGreaterThan, Value: int64(100)},
					&Predicate{Field: "name", Operator: OpStartsWith, Value: "A"},
				}},
			}},
		},
	}

	for _, tc := range tests {
		got, err := ParseCEL(tc.filter, testSchema(), "users")
		if err != nil {
			t.Fatalf("%s: parse: %v", tc.filter, err)
		}
		if !Equal(got, tc.want) {
			a, _ := MarshalNode(got)
			t.Fatalf("%s: unexpected tree %s", tc.filter, a)
		}
	}
}

func TestParseCEL_ThenCompile(t *testing.T) {
	tree, err := ParseCEL(`status == "active" && id > 100`, testSchema(), "users")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	c, err := Compile(tree, testSchema(), "users", testOptions())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if c.SQL != "(status = ? AND id > ?)" {
		t.Fatalf("unexpected sql: %s", c.SQL)
	}

	tree, err = ParseCEL(`status == "lost"`, testSchema(), "orders")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := Compile(tree, testSchema(), "orders", testOptions()); !errors.Is(err, ErrConstraintViolation) {
		t.Fatalf("expected ConstraintViolation, got %v", err)
	}
}

func TestParseCEL_Errors(t *testing.T) {
	for _, filter := range []string{
		"",
		`email == "x"`,
		`status`,
		`status == name`,
		`id + 1 > 3`,
		`!(id > 3)`,
		`size(name) > 3`,
		`id < null`,
		`id == 18446744073709551615u`,
		`id in [1u, 9223372036854775808u]`,
	} {
		if _, err := ParseCEL(filter, testSchema(), "users"); err == nil {
			t.Fatalf("expected error for %q", filter)
		}
	}
	if _, err := ParseCEL(`id == 1`, testSchema(), "payments"); err == nil {
		t.Fatalf("expected error for unknown table")
	}
}
