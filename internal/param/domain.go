package param

import (
	"fmt"
	"strings"

	"github.com/newthinker/rewind/internal/core"
)

// ParseDomains parses sweep tokens into per-parameter value domains:
//
//	window=10:60:5          inclusive numeric range with step
//	sigma=1.5,2.0,2.5       explicit discrete set
//	fade=true,false         explicit bool set
//	window=*                auto-grid from the Spec's min/max/step
//	mode=fast               singleton literal
func ParseDomains(tokens []string, schema []Spec) (map[string][]any, error) {
	specs := make(map[string]Spec, len(schema))
	for _, s := range schema {
		specs[s.Key] = s
	}

	domains := make(map[string][]any)
	for _, tok := range tokens {
		key, rhs, found := strings.Cut(tok, "=")
		if !found {
			return nil, core.WrapError(core.ErrParamUnknown, fmt.Errorf("bad sweep token %q, want key=domain", tok))
		}
		key = strings.TrimSpace(key)
		spec, ok := specs[key]
		if !ok {
			return nil, core.WrapError(core.ErrParamUnknown, fmt.Errorf("parameter %q is not declared", key))
		}
		rhs = strings.TrimSpace(rhs)

		values, err := parseDomain(spec, rhs)
		if err != nil {
			return nil, err
		}
		domains[key] = values
	}
	return domains, nil
}

func parseDomain(spec Spec, rhs string) ([]any, error) {
	switch {
	case rhs == "*":
		return autoGrid(spec)
	case strings.Contains(rhs, ":"):
		return rangeGrid(spec, rhs)
	case strings.Contains(rhs, ","):
		var values []any
		for _, part := range strings.Split(rhs, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			v, err := spec.Coerce(part)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		return values, nil
	default:
		v, err := spec.Coerce(rhs)
		if err != nil {
			return nil, err
		}
		return []any{v}, nil
	}
}

// autoGrid derives the domain from declared bounds, the `*` form.
func autoGrid(spec Spec) ([]any, error) {
	if !spec.Bounded() || spec.Step == nil {
		return nil, core.WrapError(core.ErrParamUnknown,
			fmt.Errorf("parameter %q has no min/max/step, cannot auto-derive grid", spec.Key))
	}
	return steps(spec, *spec.Min, *spec.Max, *spec.Step)
}

func rangeGrid(spec Spec, rhs string) ([]any, error) {
	parts := strings.Split(rhs, ":")
	if len(parts) != 3 {
		return nil, core.WrapError(core.ErrParamUnknown,
			fmt.Errorf("bad range %q for %s, want lo:hi:step", rhs, spec.Key))
	}
	var nums [3]float64
	for i, p := range parts {
		v, err := Spec{Key: spec.Key, Kind: KindFloat}.Coerce(p)
		if err != nil {
			return nil, err
		}
		nums[i] = v.(float64)
	}
	return steps(spec, nums[0], nums[1], nums[2])
}

// steps expands an inclusive numeric range. The small epsilon keeps float
// accumulation from dropping the final value.
func steps(spec Spec, lo, hi, step float64) ([]any, error) {
	if step <= 0 {
		return nil, core.WrapError(core.ErrParamUnknown,
			fmt.Errorf("step for %s must be positive, got %v", spec.Key, step))
	}
	switch spec.Kind {
	case KindInt:
		if int(step) < 1 {
			return nil, core.WrapError(core.ErrParamUnknown,
				fmt.Errorf("step for int parameter %s must be >= 1, got %v", spec.Key, step))
		}
		var values []any
		for v := int(lo); v <= int(hi); v += int(step) {
			values = append(values, v)
		}
		return values, nil
	case KindFloat:
		var values []any
		for v := lo; v <= hi+1e-12; v += step {
			values = append(values, v)
		}
		return values, nil
	default:
		return nil, core.WrapError(core.ErrParamUnknown,
			fmt.Errorf("range domains are only valid for numeric parameters, %s is %s", spec.Key, spec.Kind))
	}
}
