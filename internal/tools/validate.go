package tools

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/caresbot/caresbot/internal/core"
)

// validateArgs decodes argsJSON and checks it against the descriptor's
// schema: unknown fields rejected, required fields present, types matching.
// Failures are ArgumentError: a model/configuration defect, never executed.
func validateArgs(d *Descriptor, argsJSON string) (map[string]interface{}, error) {
	args := map[string]interface{}{}
	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return nil, &core.ArgumentError{Tool: d.Name, Field: "", Reason: fmt.Sprintf("arguments are not a JSON object: %v", err)}
		}
	}

	for name := range args {
		if _, ok := d.Params[name]; !ok {
			return nil, &core.ArgumentError{Tool: d.Name, Field: name, Reason: "unknown argument"}
		}
	}

	for name, p := range d.Params {
		v, present := args[name]
		if !present {
			if p.Required {
				return nil, &core.ArgumentError{Tool: d.Name, Field: name, Reason: "required argument missing"}
			}
			continue
		}
		if err := checkType(d.Name, name, p, v); err != nil {
			return nil, err
		}
	}
	return args, nil
}

func checkType(tool, field string, p Param, v interface{}) error {
	bad := func(want string) error {
		return &core.ArgumentError{Tool: tool, Field: field, Reason: fmt.Sprintf("expected %s, got %T", want, v)}
	}
	switch p.Type {
	case "string":
		s, ok := v.(string)
		if !ok {
			return bad("string")
		}
		if len(p.Enum) > 0 {
			for _, e := range p.Enum {
				if s == e {
					return nil
				}
			}
			return &core.ArgumentError{Tool: tool, Field: field, Reason: fmt.Sprintf("value %q not in enum", s)}
		}
	case "integer":
		f, ok := v.(float64)
		if !ok || f != math.Trunc(f) {
			return bad("integer")
		}
	case "number":
		if _, ok := v.(float64); !ok {
			return bad("number")
		}
	case "boolean":
		if _, ok := v.(bool); !ok {
			return bad("boolean")
		}
	case "array":
		arr, ok := v.([]interface{})
		if !ok {
			return bad("array")
		}
		for _, el := range arr {
			item := p.Items
			if item == "" {
				item = "string"
			}
			if err := checkType(tool, field, Param{Type: item}, el); err != nil {
				return err
			}
		}
	}
	return nil
}

// StringArg returns args[name] as a string ("" when absent).
func StringArg(args map[string]interface{}, name string) string {
	s, _ := args[name].(string)
	return s
}

// IntArg returns args[name] as an int (0 when absent).
func IntArg(args map[string]interface{}, name string) int {
	f, _ := args[name].(float64)
	return int(f)
}

// StringSliceArg returns args[name] as a []string.
func StringSliceArg(args map[string]interface{}, name string) []string {
	arr, _ := args[name].([]interface{})
	out := make([]string, 0, len(arr))
	for _, el := range arr {
		if s, ok := el.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
