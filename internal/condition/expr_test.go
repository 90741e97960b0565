package condition

import (
	"errors"
	"testing"
)

func TestMatcher_Match(t *testing.T) {
	tree := &Group{Combinator: And, Children: []Node{
		&Predicate{Field: "status", Operator: OpInSet, Value: []any{"active", "pending"}},
		&Group{Combinator: Or, Children: []Node{
			&Predicate{Field: "id", Operator: OpGreaterThan, Value: 100},
			&Predicate{Field: "name", Operator: OpStartsWith, Value: "Ad"},
		}},
		&Predicate{Field: "created_at", Operator: OpBetween, Value: []any{"2024-01-01", "2024-12-31"}},
	}}

	m, err := NewMatcher(tree, testSchema(), "users", testOptions())
	if err != nil {
		t.Fatalf("new matcher: %v", err)
	}

	tests := []struct {
		name   string
		record map[string]any
		want   bool
	}{
		{"all match by id", map[string]any{"status": "active", "id": 150, "name": "Zed", "created_at": "2024-06-01"}, true},
		{"match by name", map[string]any{"status": "pending", "id": 3.0, "name": "Ada", "created_at": "2024-01-01"}, true},
		{"status excluded", map[string]any{"status": "banned", "id": 150, "name": "Ada", "created_at": "2024-06-01"}, false},
		{"neither id nor name", map[string]any{"status": "active", "id": 5, "name": "Bob", "created_at": "2024-06-01"}, false},
		{"outside date range", map[string]any{"status": "active", "id": 150, "created_at": "2025-02-01T10:00:00Z"}, false},
		{"missing date", map[string]any{"status": "active", "id": 150}, false},
	}
	for _, tc := range tests {
		got, err := m.Match(tc.record)
		if err != nil {
			t.Fatalf("%s: match: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %v, got %v (expr: %s)", tc.name, tc.want, got, m.Source())
		}
	}
}

func TestMatcher_NullOperators(t *testing.T) {
	m, err := NewMatcher(&Group{Combinator: Or, Children: []Node{
		&Predicate{Field: "name", Operator: OpIsNull},
		&Predicate{Field: "name", Operator: OpContains, Value: "x"},
	}}, testSchema(), "users", nil)
	if err != nil {
		t.Fatalf("new matcher: %v", err)
	}

	for _, tc := range []struct {
		record map[string]any
		want   bool
	}{
		{map[string]any{}, true},
		{map[string]any{"name": nil}, true},
		{map[string]any{"name": "max"}, true},
		{map[string]any{"name": "bob"}, false},
	} {
		got, err := m.Match(tc.record)
		if err != nil {
			t.Fatalf("match %v: %v", tc.record, err)
		}
		if got != tc.want {
			t.Fatalf("record %v: expected %v, got %v", tc.record, tc.want, got)
		}
	}
}

func TestMatcher_FieldNamedLikeBuiltin(t *testing.T) {
	schema := Schema{"events": {{Name: "date", Type: TypeDate}, {Name: "len", Type: TypeNumber}}}
	m, err := NewMatcher(&Group{Combinator: And, Children: []Node{
		&Predicate{Field: "date", Operator: OpLessThan, Value: "2024-05-01"},
		&Predicate{Field: "len", Operator: OpEquals, Value: 3},
	}}, schema, "events", nil)
	if err != nil {
		t.Fatalf("new matcher: %v", err)
	}
	ok, err := m.Match(map[string]any{"date": "2024-04-30", "len": 3})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if !ok {
		t.Fatalf("expected match for %s", m.Source())
	}
}

func TestMatcher_RejectsInvalidTree(t *testing.T) {
	_, err := NewMatcher(&Predicate{Field: "status", Operator: OpEquals, Value: "unknown"}, testSchema(), "orders", testOptions())
	if !errors.Is(err, ErrConstraintViolation) {
		t.Fatalf("expected ConstraintViolation, got %v", err)
	}
}

func TestMatcher_BadRecordValue(t *testing.T) {
	m, err := NewMatcher(&Predicate{Field: "id", Operator: OpEquals, Value: 1}, testSchema(), "users", nil)
	if err != nil {
		t.Fatalf("new matcher: %v", err)
	}
	if _, err := m.Match(map[string]any{"id": "one"}); err == nil {
		t.Fatalf("expected error for non-numeric id")
	}
}

func TestMatcher_DatesOutsideNanosecondRange(t *testing.T) {
	record := map[string]any{"created_at": "2024-01-01"}
	for _, tc := range []struct {
		op    Operator
		value any
		want  bool
	}{
		{OpGreaterThan, "1500-01-01", true},
		{OpLessThan, "2300-01-01", true},
		{OpLessThan, "1500-01-01", false},
		{OpEquals, "2024-01-01T00:00:00Z", true},
	} {
		m, err := NewMatcher(&Predicate{Field: "created_at", Operator: tc.op, Value: tc.value}, testSchema(), "users", nil)
		if err != nil {
			t.Fatalf("%s %v: new matcher: %v", tc.op, tc.value, err)
		}
		got, err := m.Match(record)
		if err != nil {
			t.Fatalf("%s %v: match: %v", tc.op, tc.value, err)
		}
		if got != tc.want {
			t.Fatalf("%s %v: expected %v, got %v", tc.op, tc.value, tc.want, got)
		}
	}
}

func TestMatcher_LargeIntegersKeepPrecision(t *testing.T) {
	m, err := NewMatcher(&Predicate{Field: "id", Operator: OpEquals, Value: int64(9007199254740993)}, testSchema(), "users", nil)
	if err != nil {
		t.Fatalf("new matcher: %v", err)
	}
	for _, tc := range []struct {
		id   any
		want bool
	}{
		{int64(9007199254740992), false},
		{int64(9007199254740993), true},
		{uint64(9007199254740993), true},
	} {
		got, err := m.Match(map[string]any{"id": tc.id})
		if err != nil {
			t.Fatalf("match %v: %v", tc.id, err)
		}
		if got != tc.want {
			t.Fatalf("id %v: expected %v, got %v", tc.id, tc.want, got)
		}
	}

	in, err := NewMatcher(&Predicate{Field: "id", Operator: OpInSet, Value: []any{int64(9007199254740993), 2.5}}, testSchema(), "users", nil)
	if err != nil {
		t.Fatalf("new matcher: %v", err)
	}
	for _, tc := range []struct {
		id   any
		want bool
	}{
		{int64(9007199254740992), false},
		{2.5, true},
	} {
		if got, err := in.Match(map[string]any{"id": tc.id}); err != nil || got != tc.want {
			t.Fatalf("in-set id %v: expected %v, got %v (%v)", tc.id, tc.want, got, err)
		}
	}
}
