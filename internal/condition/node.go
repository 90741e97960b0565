package condition

import (
	"reflect"
	"time"
)

// Node is a condition tree element: either a *Predicate or a *Group.
type Node interface {
	isNode()
}

type Combinator string

const (
	And Combinator = "AND"
	Or  Combinator = "OR"
)

// Predicate is a single field comparison.
type Predicate struct {
	Field    string
	Operator Operator
	Value    any
}

func (*Predicate) isNode() {}

// Group combines its children with a single combinator.
type Group struct {
	Combinator Combinator
	Children   []Node
}

func (*Group) isNode() {}

// Clone returns a deep copy of n. List values are copied; scalar values are
// shared as they are immutable.
func Clone(n Node) Node {
	switch v := n.(type) {
	case *Predicate:
		cp := *v
		if list, ok := toAnySlice(v.Value); ok && list != nil {
			cp.Value = list
		}
		return &cp
	case *Group:
		children := make([]Node, len(v.Children))
		for i, c := range v.Children {
			children[i] = Clone(c)
		}
		return &Group{Combinator: v.Combinator, Children: children}
	default:
		return nil
	}
}

// Equal reports whether two trees are structurally equal. Numeric values are
// compared by magnitude so a tree survives a JSON round trip.
func Equal(a, b Node) bool {
	switch x := a.(type) {
	case *Predicate:
		y, ok := b.(*Predicate)
		if !ok || x == nil || y == nil {
			return ok && x == y
		}
		return x.Field == y.Field && x.Operator == y.Operator && valuesEqual(x.Value, y.Value)
	case *Group:
		y, ok := b.(*Group)
		if !ok || x == nil || y == nil {
			return ok && x == y
		}
		if x.Combinator != y.Combinator || len(x.Children) != len(y.Children) {
			return false
		}
		for i := range x.Children {
			if !Equal(x.Children[i], y.Children[i]) {
				return false
			}
		}
		return true
	default:
		return a == nil && b == nil
	}
}

func valuesEqual(a, b any) bool {
	if la, ok := toAnySlice(a); ok {
		lb, ok := toAnySlice(b)
		if !ok || len(la) != len(lb) {
			return false
		}
		for i := range la {
			if !valuesEqual(la[i], lb[i]) {
				return false
			}
		}
		return true
	}
	if fa, ok := toFloat64(a); ok {
		fb, ok := toFloat64(b)
		return ok && fa == fb
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Equal(tb)
		}
		if s, ok := b.(string); ok {
			tb, err := parseDate(s)
			return err == nil && ta.Equal(tb)
		}
		return false
	}
	if _, ok := b.(time.Time); ok {
		return valuesEqual(b, a)
	}
	return reflect.DeepEqual(a, b)
}
