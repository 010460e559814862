package schema

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

var errEmptyValue = errors.New("empty value")

// coerce converts raw input to the Go type backing t. Strings are trimmed for
// every non-string type; an empty string is only a valid string or list.
func coerce(t Type, raw any) (any, error) {
	if s, ok := raw.(string); ok && t != String {
		s = strings.TrimSpace(s)
		if s == "" && t != List {
			return nil, errEmptyValue
		}
		raw = s
	}

	switch t {
	case String:
		return cast.ToStringE(raw)
	case Int:
		return coerceInt(raw)
	case Float:
		if b, ok := raw.(bool); ok {
			return nil, fmt.Errorf("boolean %t is not a number", b)
		}
		return cast.ToFloat64E(raw)
	case Bool:
		return coerceBool(raw)
	case Duration:
		return coerceDuration(raw)
	case List:
		return coerceList(raw)
	}
	return nil, fmt.Errorf("unknown type %q", t)
}

// coerceInt parses strings in base 10 unless they carry an explicit 0x, 0o
// or 0b prefix, so "010" is ten. Booleans and fractional numbers are rejected.
func coerceInt(raw any) (int, error) {
	switch v := raw.(type) {
	case bool:
		return 0, fmt.Errorf("boolean %t is not an integer", v)
	case string:
		base := 10
		digits := strings.TrimLeft(v, "+-")
		if len(digits) > 1 && digits[0] == '0' && strings.ContainsRune("xXoObB", rune(digits[1])) {
			base = 0
		}
		n, err := strconv.ParseInt(v, base, 0)
		if err != nil {
			return 0, err
		}
		return int(n), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%v is not an integer", v)
		}
	case float32:
		if float64(v) != math.Trunc(float64(v)) {
			return 0, fmt.Errorf("%v is not an integer", v)
		}
	}
	return cast.ToIntE(raw)
}

// coerceBool accepts booleans, strconv.ParseBool strings and the integers 0 and 1.
func coerceBool(raw any) (bool, error) {
	switch raw.(type) {
	case bool, string:
		return cast.ToBoolE(raw)
	}

	n, err := coerceInt(raw)
	if err != nil {
		return false, err
	}
	switch n {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, fmt.Errorf("%d is not a boolean", n)
}

// coerceDuration requires a unit: bare numbers are rejected whether they
// arrive as strings or as YAML/JSON numbers.
func coerceDuration(raw any) (time.Duration, error) {
	switch v := raw.(type) {
	case time.Duration:
		return v, nil
	case string:
		return time.ParseDuration(v)
	}
	return 0, fmt.Errorf("%v has no unit; use a duration such as \"30s\"", raw)
}

// coerceList accepts a comma-separated string or any slice of scalars.
func coerceList(raw any) ([]string, error) {
	if s, ok := raw.(string); ok {
		out := []string{}
		for _, item := range strings.Split(s, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		return out, nil
	}

	items, err := cast.ToStringSliceE(raw)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out, nil
}

// zeroValue returns the zero value of the Go type backing t.
func zeroValue(t Type) any {
	switch t {
	case Int:
		return 0
	case Float:
		return 0.0
	case Bool:
		return false
	case Duration:
		return time.Duration(0)
	case List:
		return []string{}
	default:
		return ""
	}
}

// cloneValue copies slice values so callers cannot mutate stored settings.
func cloneValue(v any) any {
	if list, ok := v.([]string); ok {
		out := make([]string, len(list))
		copy(out, list)
		return out
	}
	return v
}
