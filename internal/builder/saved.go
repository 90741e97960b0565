package builder

import (
	"encoding/json"
	"time"

	"condition-builder/internal/condition"
)

type SavedCondition struct {
	ID        string         `json:"id"`
	Table     string         `json:"table"`
	RawData   condition.Node `json:"-"`
	SQL       string         `json:"sql"`
	CreatedAt time.Time      `json:"created_at"`
}

func (s SavedCondition) MarshalJSON() ([]byte, error) {
	raw, err := condition.MarshalNode(s.RawData)
	if err != nil {
		return nil, err
	}
	type plain SavedCondition
	return json.Marshal(struct {
		plain
		RawData json.RawMessage `json:"rawData"`
	}{plain(s), raw})
}

// SavedConditions is an append-only list. Append never touches the receiver's
// backing array, so earlier snapshots stay valid.
type SavedConditions []SavedCondition

func (s SavedConditions) Append(items ...SavedCondition) SavedConditions {
	out := make(SavedConditions, len(s), len(s)+len(items))
	copy(out, s)
	for _, item := range items {
		item.RawData = condition.Clone(item.RawData)
		out = append(out, item)
	}
	return out
}

// Trees returns detached copies of the saved trees, oldest first.
func (s SavedConditions) Trees() []condition.Node {
	trees := make([]condition.Node, len(s))
	for i, item := range s {
		trees[i] = condition.Clone(item.RawData)
	}
	return trees
}

// ForTable filters the list to one table, preserving order.
func (s SavedConditions) ForTable(table string) SavedConditions {
	var out SavedConditions
	for _, item := range s {
		if item.Table == table {
			out = append(out, item)
		}
	}
	return out
}
