package metadata

import (
	"fmt"

	"condition-builder/internal/condition"
)

// Table is the stored definition of one queryable table: its ordered fields and
// the predetermined options for constrained fields.
type Table struct {
	Name    string                         `json:"name"`
	Fields  []condition.Field              `json:"fields"`
	Options map[string]condition.OptionSet `json:"options,omitempty"`
}

// GetField returns a pointer to the field with the given name, or nil.
func (t *Table) GetField(name string) *condition.Field {
	for i := range t.Fields {
		if t.Fields[i].Name == name {
			return &t.Fields[i]
		}
	}
	return nil
}

// FieldNames returns all field names.
func (t *Table) FieldNames() []string {
	names := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		names[i] = f.Name
	}
	return names
}

// Validate checks the definition before it is stored.
func (t *Table) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("table name is required")
	}
	if len(t.Fields) == 0 {
		return fmt.Errorf("table must have at least one field")
	}
	if err := (condition.Schema{t.Name: t.Fields}).Validate(); err != nil {
		return err
	}
	for field, set := range t.Options {
		if t.GetField(field) == nil {
			return fmt.Errorf("options given for unknown field %s", field)
		}
		if len(set) == 0 {
			return fmt.Errorf("options for %s must not be empty", field)
		}
	}
	return nil
}
