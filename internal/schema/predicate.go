package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Predicate is a named validation rule applied to a coerced field value.
type Predicate struct {
	name  string
	check func(v any) error

	// Hints used when exporting a JSON Schema.
	minimum *float64
	maximum *float64
	enum    []string
}

// Name returns the predicate's human-readable name, used in ValidationError.
func (p *Predicate) Name() string {
	return p.name
}

// Check reports whether v satisfies the predicate. A predicate that panics is
// reported as a failure rather than crashing the caller.
func (p *Predicate) Check(v any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("predicate %s panicked: %v", p.name, r)
		}
	}()
	return p.check(v)
}

// wellFormed runs the predicate with sample and returns an error only if
// the predicate itself is broken (for example an unknown validator tag).
func (p *Predicate) wellFormed(sample any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed predicate %s: %v", p.name, r)
		}
	}()
	_ = p.check(sample)
	return nil
}

// Tag returns a predicate backed by a go-playground/validator tag such as
// "min=1,max=65535", "url" or "oneof=debug info".
func Tag(tag string) *Predicate {
	return &Predicate{
		name:  tag,
		check: func(v any) error { return checkTag(v, tag) },
	}
}

// Range accepts numbers in [lo, hi]. Intended for Int and Float fields.
func Range(lo, hi float64) *Predicate {
	tag := fmt.Sprintf("min=%s,max=%s", formatBound(lo), formatBound(hi))
	return &Predicate{
		name:    fmt.Sprintf("range[%s,%s]", formatBound(lo), formatBound(hi)),
		check:   func(v any) error { return checkTag(v, tag) },
		minimum: &lo,
		maximum: &hi,
	}
}

// OneOf accepts one of the listed values. Values must not contain spaces.
func OneOf(values ...string) *Predicate {
	tag := "oneof=" + strings.Join(values, " ")
	return &Predicate{
		name:  "one of [" + strings.Join(values, ", ") + "]",
		check: func(v any) error { return checkTag(v, tag) },
		enum:  append([]string(nil), values...),
	}
}

// Func wraps an arbitrary check under the given name.
func Func(name string, fn func(v any) error) *Predicate {
	return &Predicate{name: name, check: fn}
}

func checkTag(v any, tag string) error {
	err := validate.Var(v, tag)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Param() != "" {
			return fmt.Errorf("failed %s=%s", fe.Tag(), fe.Param())
		}
		return fmt.Errorf("failed %s", fe.Tag())
	}
	return err
}

func formatBound(f float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%f", f), "0"), ".")
}
