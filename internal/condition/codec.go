package condition

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

type predicateJSON struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value,omitempty"`
}

// MarshalNode encodes a tree in canonical form: predicates as
// {"field","operator","value"} and groups as {"combinator","children"}.
func MarshalNode(n Node) ([]byte, error) {
	v, err := encodeNode(n)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func encodeNode(n Node) (any, error) {
	switch v := n.(type) {
	case *Predicate:
		if v == nil {
			return nil, fmt.Errorf("nil predicate")
		}
		return predicateJSON{Field: v.Field, Operator: v.Operator, Value: encodeValue(v.Value)}, nil
	case *Group:
		if v == nil {
			return nil, fmt.Errorf("nil group")
		}
		children := make([]any, len(v.Children))
		for i, c := range v.Children {
			enc, err := encodeNode(c)
			if err != nil {
				return nil, fmt.Errorf("children[%d]: %w", i, err)
			}
			children[i] = enc
		}
		return struct {
			Combinator Combinator `json:"combinator"`
			Children   []any      `json:"children"`
		}{v.Combinator, children}, nil
	default:
		return nil, fmt.Errorf("unsupported node %T", n)
	}
}

func encodeValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.Format(time.RFC3339Nano)
	}
	if list, ok := toAnySlice(v); ok && list != nil {
		out := make([]any, len(list))
		for i, item := range list {
			out[i] = encodeValue(item)
		}
		return out
	}
	return v
}

// UnmarshalNode decodes a tree produced by MarshalNode (or by a client using
// the same shape). Objects carrying "combinator" are groups, everything else
// must carry "field" and "operator".
func UnmarshalNode(data []byte) (Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode condition: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("decode condition: unexpected data after condition")
	}
	return nodeFromValue(raw, "$")
}

func nodeFromValue(v any, path string) (Node, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected object, got %s", path, describe(v))
	}

	if comb, ok := obj["combinator"]; ok {
		s, ok := comb.(string)
		if !ok {
			return nil, fmt.Errorf("%s.combinator: expected string", path)
		}
		rawChildren, ok := obj["children"].([]any)
		if !ok {
			return nil, fmt.Errorf("%s.children: expected list", path)
		}
		g := &Group{
			Combinator: Combinator(strings.ToUpper(s)),
			Children:   make([]Node, 0, len(rawChildren)),
		}
		for i, rc := range rawChildren {
			child, err := nodeFromValue(rc, fmt.Sprintf("%s.children[%d]", path, i))
			if err != nil {
				return nil, err
			}
			g.Children = append(g.Children, child)
		}
		return g, nil
	}

	field, ok := obj["field"].(string)
	if !ok {
		return nil, fmt.Errorf("%s.field: expected string", path)
	}
	op, ok := obj["operator"].(string)
	if !ok {
		return nil, fmt.Errorf("%s.operator: expected string", path)
	}
	return &Predicate{
		Field:    field,
		Operator: Operator(op),
		Value:    decodeValue(obj["value"]),
	}, nil
}

func decodeValue(v any) any {
	switch x := v.(type) {
	case json.Number:
		return normalizeNumber(x)
	case float64:
		if x == float64(int64(x)) {
			return int64(x)
		}
		return x
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = decodeValue(item)
		}
		return out
	default:
		return v
	}
}
