package parser

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// object is a decoded JSON object. Accessors never panic on type drift; a
// field holding the wrong type reads as its zero value.
type object map[string]any

func asObject(v any) (object, bool) {
	m, ok := v.(map[string]any)
	return object(m), ok
}

func asList(v any) ([]any, bool) {
	l, ok := v.([]any)
	return l, ok
}

func (o object) has(key string) bool {
	_, ok := o[key]
	return ok
}

func (o object) str(key string) string {
	switch v := o[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func (o object) num(key string) float64 {
	switch v := o[key].(type) {
	case float64:
		return v
	case json.Number:
		f, _ := v.Float64()
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func (o object) boolean(key string) bool {
	switch v := o[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}

func (o object) list(key string) []any {
	l, _ := asList(o[key])
	return l
}

func (o object) obj(key string) object {
	m, _ := asObject(o[key])
	return m
}

func (o object) objects(key string) []object {
	raw := o.list(key)
	out := make([]object, 0, len(raw))
	for _, item := range raw {
		if m, ok := asObject(item); ok {
			out = append(out, m)
		}
	}
	return out
}

// tags accepts both ["@a"] and [{"name":"@a"}] shapes.
func (o object) tags(key string) []string {
	var out []string
	for _, item := range o.list(key) {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		case map[string]any:
			if name := object(v).str("name"); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}

func (o object) keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func describe(v any) string {
	switch t := v.(type) {
	case map[string]any:
		return fmt.Sprintf("object keys %v", object(t).keys())
	case []any:
		return fmt.Sprintf("array of %d", len(t))
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}
