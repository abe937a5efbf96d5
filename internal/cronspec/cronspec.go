// Package cronspec parses and matches cron expressions with second
// granularity. An expression has the five standard fields
// (minute hour day-of-month month day-of-week) or six fields with a leading
// seconds field. Each field is "*", a decimal literal, or a step "*/N".
package cronspec

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FieldError reports a malformed cron field. It satisfies the validation
// contract of ScheduleCronTask: the caller learns which field is broken and
// why, and nothing gets registered.
type FieldError struct {
	Field  string
	Value  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("cron field %s %q: %s", e.Field, e.Value, e.Reason)
}

type matchKind int

const (
	matchAny matchKind = iota
	matchLiteral
	matchStep
)

// field is one parsed cron field.
type field struct {
	kind  matchKind
	value int // literal value or step divisor
}

func (f field) matches(v int) bool {
	switch f.kind {
	case matchAny:
		return true
	case matchLiteral:
		return f.value == v
	case matchStep:
		return v%f.value == 0
	}
	return false
}

type fieldDef struct {
	name string
	min  int
	max  int
}

// Field order follows the common seconds-extended cron form: the optional
// seconds field comes first, then the five standard fields.
var fieldDefs = [6]fieldDef{
	{"second", 0, 59},
	{"minute", 0, 59},
	{"hour", 0, 23},
	{"day", 1, 31},
	{"month", 1, 12},
	{"weekday", 0, 6},
}

// Schedule is a parsed cron expression. The zero value matches nothing; use
// Parse.
type Schedule struct {
	second  field
	minute  field
	hour    field
	day     field
	month   field
	weekday field
}

// Parse validates and compiles a cron expression. Five fields get an implicit
// second field of 0, so "* * * * *" fires once per minute rather than once
// per second.
func Parse(expr string) (Schedule, error) {
	parts := strings.Fields(strings.TrimSpace(expr))

	var raw [6]string
	switch len(parts) {
	case 5:
		raw[0] = "0"
		copy(raw[1:], parts)
	case 6:
		copy(raw[:], parts)
	default:
		return Schedule{}, &FieldError{
			Field:  "expression",
			Value:  expr,
			Reason: fmt.Sprintf("expected 5 or 6 fields, got %d", len(parts)),
		}
	}

	var fields [6]field
	for i, def := range fieldDefs {
		f, err := parseField(def, raw[i])
		if err != nil {
			return Schedule{}, err
		}
		fields[i] = f
	}

	return Schedule{
		second:  fields[0],
		minute:  fields[1],
		hour:    fields[2],
		day:     fields[3],
		month:   fields[4],
		weekday: fields[5],
	}, nil
}

func parseField(def fieldDef, raw string) (field, error) {
	if raw == "*" {
		return field{kind: matchAny}, nil
	}

	if step, ok := strings.CutPrefix(raw, "*/"); ok {
		n, err := strconv.Atoi(step)
		if err != nil {
			return field{}, &FieldError{Field: def.name, Value: raw, Reason: "step is not a number"}
		}
		if n <= 0 {
			return field{}, &FieldError{Field: def.name, Value: raw, Reason: "step must be positive"}
		}
		if n > def.max {
			return field{}, &FieldError{Field: def.name, Value: raw, Reason: fmt.Sprintf("step exceeds field maximum %d", def.max)}
		}
		return field{kind: matchStep, value: n}, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return field{}, &FieldError{Field: def.name, Value: raw, Reason: "not a number"}
	}
	if n < def.min || n > def.max {
		return field{}, &FieldError{Field: def.name, Value: raw, Reason: fmt.Sprintf("out of range %d-%d", def.min, def.max)}
	}
	return field{kind: matchLiteral, value: n}, nil
}

// Matches reports whether the schedule fires at t. All fields must match the
// wall-clock components of t simultaneously.
func (s Schedule) Matches(t time.Time) bool {
	return s.second.matches(t.Second()) &&
		s.minute.matches(t.Minute()) &&
		s.hour.matches(t.Hour()) &&
		s.day.matches(t.Day()) &&
		s.month.matches(int(t.Month())) &&
		s.weekday.matches(int(t.Weekday()))
}

// Validate checks an expression without keeping the compiled form.
func Validate(expr string) error {
	_, err := Parse(expr)
	return err
}
