package tool

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	mcpxerrors "github.com/sweetpotato0/mcpx-agents/errors"
)

// KindOf maps a JSON schema primitive type name to the Go value kind that
// encoding/json produces for it.
func KindOf(jsonType string) (reflect.Kind, error) {
	switch jsonType {
	case "string":
		return reflect.String, nil
	case "boolean":
		return reflect.Bool, nil
	case "number":
		return reflect.Float64, nil
	case "integer":
		return reflect.Int64, nil
	case "object":
		return reflect.Map, nil
	case "array":
		return reflect.Slice, nil
	}
	return reflect.Invalid, fmt.Errorf("%w: %q", mcpxerrors.ErrUnsupportedType, jsonType)
}

// ValidateArgs checks decoded arguments against an object schema: required
// properties must be present and declared primitive types must match.
// Properties with unknown or missing types are not checked.
func ValidateArgs(schema map[string]any, args map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	for _, name := range requiredNames(schema) {
		if _, ok := args[name]; !ok {
			return fmt.Errorf("%w: missing required parameter %s", mcpxerrors.ErrInvalidInput, name)
		}
	}

	props, _ := schema["properties"].(map[string]any)
	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		prop, ok := props[name].(map[string]any)
		if !ok {
			continue
		}
		typ, _ := prop["type"].(string)
		if typ == "" {
			continue
		}
		want, err := KindOf(typ)
		if err != nil {
			continue
		}
		if !kindMatches(want, args[name]) {
			return fmt.Errorf("%w: parameter %s must be %s", mcpxerrors.ErrInvalidInput, name, typ)
		}
	}
	return nil
}

func requiredNames(schema map[string]any) []string {
	switch raw := schema["required"].(type) {
	case []string:
		return raw
	case []any:
		names := make([]string, 0, len(raw))
		for _, item := range raw {
			if s, ok := item.(string); ok {
				names = append(names, s)
			}
		}
		return names
	}
	return nil
}

func kindMatches(want reflect.Kind, v any) bool {
	if v == nil {
		return false
	}
	got := reflect.ValueOf(v)
	switch want {
	case reflect.Int64:
		switch got.Kind() {
		case reflect.Float64, reflect.Float32:
			f := got.Float()
			return f == float64(int64(f))
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return true
		}
		return false
	case reflect.Float64:
		switch got.Kind() {
		case reflect.Float64, reflect.Float32,
			reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return true
		}
		return false
	case reflect.Slice:
		return got.Kind() == reflect.Slice || got.Kind() == reflect.Array
	default:
		return got.Kind() == want
	}
}

// TypeName returns the declared type of a schema node, lowercased.
func TypeName(node map[string]any) string {
	typ, _ := node["type"].(string)
	return strings.ToLower(typ)
}
