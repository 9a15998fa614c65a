// Package param declares strategy parameter schemas and the sweep-domain
// grammar used by the optimizer.
package param

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/newthinker/rewind/internal/core"
)

// Kind is the declared type of a parameter.
type Kind string

const (
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindBool   Kind = "bool"
	KindString Kind = "string"
)

// Spec declares one tunable parameter. Min/Max/Step, when all set on a
// numeric parameter, enable `*` auto-grid derivation and random draws.
type Spec struct {
	Key     string
	Kind    Kind
	Default any
	Help    string
	Min     *float64
	Max     *float64
	Step    *float64
}

// Bounded reports whether the spec carries a full numeric range.
func (s Spec) Bounded() bool {
	return (s.Kind == KindInt || s.Kind == KindFloat) && s.Min != nil && s.Max != nil
}

// F is a convenience for building bound pointers in schema literals.
func F(v float64) *float64 { return &v }

// Coerce parses a string literal according to the spec kind.
func (s Spec) Coerce(value string) (any, error) {
	v := strings.TrimSpace(value)
	switch s.Kind {
	case KindInt:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, core.WrapError(core.ErrParamUnknown, fmt.Errorf("cannot parse %q as int for %s", value, s.Key))
		}
		return int(f), nil
	case KindFloat:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, core.WrapError(core.ErrParamUnknown, fmt.Errorf("cannot parse %q as float for %s", value, s.Key))
		}
		return f, nil
	case KindBool:
		switch strings.ToLower(v) {
		case "1", "true", "t", "yes", "y", "on":
			return true, nil
		case "0", "false", "f", "no", "n", "off":
			return false, nil
		}
		return nil, core.WrapError(core.ErrParamUnknown, fmt.Errorf("cannot parse %q as bool for %s", value, s.Key))
	default:
		return v, nil
	}
}

// numeric extracts a float64 view of an int or float value.
func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}

// Merge layers overrides onto schema defaults and validates declared bounds.
// The result always carries a value for every declared key; unknown override
// keys are rejected.
func Merge(overrides map[string]any, schema []Spec) (map[string]any, error) {
	specs := make(map[string]Spec, len(schema))
	params := make(map[string]any, len(schema))
	for _, s := range schema {
		specs[s.Key] = s
		params[s.Key] = s.Default
	}

	for k, v := range overrides {
		if _, ok := specs[k]; !ok {
			return nil, core.WrapError(core.ErrParamUnknown, fmt.Errorf("parameter %q is not declared", k))
		}
		params[k] = v
	}

	for _, s := range schema {
		n, ok := numeric(params[s.Key])
		if !ok {
			continue
		}
		if s.Min != nil && n < *s.Min {
			return nil, core.WrapError(core.ErrParamOutOfRange,
				fmt.Errorf("%s = %v below min %v", s.Key, n, *s.Min))
		}
		if s.Max != nil && n > *s.Max {
			return nil, core.WrapError(core.ErrParamOutOfRange,
				fmt.Errorf("%s = %v above max %v", s.Key, n, *s.Max))
		}
	}
	return params, nil
}
