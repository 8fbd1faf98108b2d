package tools

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Parameter types understood by the validator.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
)

// Parameter is one named argument of a tool.
type Parameter struct {
	Name        string
	Type        string
	Description string
	Required    bool
	Enum        []string
}

// Args are decoded tool arguments.
type Args map[string]any

// String returns the trimmed string argument, or "" when absent.
func (a Args) String(name string) string {
	s, _ := a[name].(string)
	return strings.TrimSpace(s)
}

// Int returns a numeric argument as an int, or fallback when absent.
func (a Args) Int(name string, fallback int) int {
	switch v := a[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return fallback
}

// ValidateArgs checks args against params: required values are present,
// types match, enum values are allowed, and no unknown names are passed.
func ValidateArgs(params []Parameter, args map[string]any) error {
	known := make(map[string]bool, len(params))
	for _, p := range params {
		known[p.Name] = true
		val, exists := args[p.Name]
		if !exists || val == nil {
			if p.Required {
				return &ValidationError{Param: p.Name, Message: "missing required argument"}
			}
			continue
		}
		if err := validateArgType(p, val); err != nil {
			return err
		}
		if len(p.Enum) > 0 {
			s, _ := val.(string)
			if !contains(p.Enum, s) {
				return &ValidationError{
					Param:   p.Name,
					Message: fmt.Sprintf("must be one of %s", strings.Join(p.Enum, ", ")),
				}
			}
		}
	}

	var unknown []string
	for name := range args {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return &ValidationError{Param: unknown[0], Message: "unknown argument"}
	}
	return nil
}

func validateArgType(p Parameter, val any) error {
	switch p.Type {
	case TypeString, "":
		if s, ok := val.(string); !ok {
			return &ValidationError{Param: p.Name, Message: "expected string type"}
		} else if p.Required && strings.TrimSpace(s) == "" {
			return &ValidationError{Param: p.Name, Message: "must not be empty"}
		}
	case TypeNumber:
		if _, ok := asFloat(val); !ok {
			return &ValidationError{Param: p.Name, Message: "expected number type"}
		}
	case TypeInteger:
		f, ok := asFloat(val)
		if !ok || f != math.Trunc(f) {
			return &ValidationError{Param: p.Name, Message: "expected integer type"}
		}
	case TypeBoolean:
		if _, ok := val.(bool); !ok {
			return &ValidationError{Param: p.Name, Message: "expected boolean type"}
		}
	default:
		return &ValidationError{Param: p.Name, Message: fmt.Sprintf("unsupported type %q", p.Type)}
	}
	return nil
}

func asFloat(val any) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	}
	return 0, false
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}

// JSONSchema renders params as a JSON Schema object.
func JSONSchema(params []Parameter) map[string]any {
	properties := make(map[string]any, len(params))
	required := []string{}
	for _, p := range params {
		typ := p.Type
		if typ == "" {
			typ = TypeString
		}
		prop := map[string]any{
			"type":        typ,
			"description": p.Description,
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}
