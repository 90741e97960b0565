package condition

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
)

type FieldType string

const (
	TypeNumber  FieldType = "number"
	TypeString  FieldType = "string"
	TypeBoolean FieldType = "boolean"
	TypeDate    FieldType = "date"
)

// Valid reports whether t is one of the supported field types.
func (t FieldType) Valid() bool {
	switch t {
	case TypeNumber, TypeString, TypeBoolean, TypeDate:
		return true
	}
	return false
}

type Field struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
}

// Schema maps a table name to its ordered field list.
type Schema map[string][]Field

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsIdentifier reports whether s can be rendered into SQL unquoted.
func IsIdentifier(s string) bool {
	return identRe.MatchString(s)
}

// Field returns the named field of table, or nil.
func (s Schema) Field(table, name string) *Field {
	fields, ok := s[table]
	if !ok {
		return nil
	}
	for i := range fields {
		if fields[i].Name == name {
			return &fields[i]
		}
	}
	return nil
}

// HasTable returns true if the schema lists the table.
func (s Schema) HasTable(table string) bool {
	_, ok := s[table]
	return ok
}

// Tables returns the table names in sorted order.
func (s Schema) Tables() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that every table and field name is a plain identifier, every
// field type is known and no table lists a field twice.
func (s Schema) Validate() error {
	for _, table := range s.Tables() {
		if !IsIdentifier(table) {
			return fmt.Errorf("table %q is not a valid identifier", table)
		}
		seen := make(map[string]bool, len(s[table]))
		for _, f := range s[table] {
			if !IsIdentifier(f.Name) {
				return fmt.Errorf("table %s: field %q is not a valid identifier", table, f.Name)
			}
			if !f.Type.Valid() {
				return fmt.Errorf("table %s: field %s has unsupported type %q", table, f.Name, f.Type)
			}
			if seen[f.Name] {
				return fmt.Errorf("table %s: duplicate field %s", table, f.Name)
			}
			seen[f.Name] = true
		}
	}
	return nil
}

// Option is a predetermined value for a field. Label is display-only.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// OptionSet is the allow-list for a single field. It decodes from either a list
// of plain strings or a list of {value, label} objects.
type OptionSet []Option

func (o *OptionSet) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("options must be a list: %w", err)
	}
	set := make(OptionSet, 0, len(raw))
	for i, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			set = append(set, Option{Value: s, Label: s})
			continue
		}
		var opt Option
		if err := json.Unmarshal(item, &opt); err != nil {
			return fmt.Errorf("option %d: expected string or {value, label}", i)
		}
		if opt.Value == "" {
			return fmt.Errorf("option %d: value is required", i)
		}
		if opt.Label == "" {
			opt.Label = opt.Value
		}
		set = append(set, opt)
	}
	*o = set
	return nil
}

// Contains reports whether key is one of the allowed values.
func (o OptionSet) Contains(key string) bool {
	for _, opt := range o {
		if opt.Value == key {
			return true
		}
	}
	return false
}

// Values returns the raw option values in declaration order.
func (o OptionSet) Values() []string {
	vals := make([]string, len(o))
	for i, opt := range o {
		vals[i] = opt.Value
	}
	return vals
}

// FieldOptions maps table -> field -> allowed values.
type FieldOptions map[string]map[string]OptionSet

// Lookup returns the option set for table.field, if constrained.
func (fo FieldOptions) Lookup(table, field string) (OptionSet, bool) {
	fields, ok := fo[table]
	if !ok {
		return nil, false
	}
	set, ok := fields[field]
	if !ok {
		return nil, false
	}
	return set, true
}
