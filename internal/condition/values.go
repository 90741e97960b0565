package condition

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	time.RFC3339,
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a date (expected YYYY-MM-DD or RFC 3339)", s)
}

func toAnySlice(value any) ([]any, bool) {
	if value == nil {
		return nil, false
	}
	if list, ok := value.([]any); ok {
		return append([]any(nil), list...), true
	}

	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, true
		}
		rv = rv.Elem()
	}

	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	// []byte is a scalar for our purposes
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}

	n := rv.Len()
	out := make([]any, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, rv.Index(i).Interface())
	}
	return out, true
}

// toFloat64 converts numeric types to float64.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// normalizeNumber turns a json.Number into int64 when integral, float64 otherwise.
func normalizeNumber(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

// checkValue verifies a scalar against the declared field type.
func checkValue(t FieldType, v any) error {
	switch t {
	case TypeNumber:
		f, ok := toFloat64(v)
		if !ok {
			return fmt.Errorf("expected number, got %s", describe(v))
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("expected a finite number, got %v", f)
		}
	case TypeString:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("expected string, got %s", describe(v))
		}
	case TypeBoolean:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("expected boolean, got %s", describe(v))
		}
	case TypeDate:
		switch d := v.(type) {
		case time.Time:
		case string:
			if _, err := parseDate(d); err != nil {
				return err
			}
		default:
			return fmt.Errorf("expected date, got %s", describe(v))
		}
	default:
		return fmt.Errorf("unsupported field type %q", t)
	}
	return nil
}

// bindValue returns the value placed in params. json.Number is unwrapped so
// drivers receive a native Go type.
func bindValue(v any) any {
	if n, ok := v.(json.Number); ok {
		return normalizeNumber(n)
	}
	return v
}

// valueKey is the string form compared against option values.
func valueKey(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339)
	case json.Number:
		return x.String()
	}
	if f, ok := toFloat64(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

func describe(v any) string {
	if v == nil {
		return "null"
	}
	switch v.(type) {
	case string:
		return fmt.Sprintf("string %q", v)
	case bool:
		return "boolean"
	}
	if _, ok := toFloat64(v); ok {
		return "number"
	}
	if _, ok := toAnySlice(v); ok {
		return "list"
	}
	return fmt.Sprintf("%T", v)
}
