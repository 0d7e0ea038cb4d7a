package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/df-mc/dragonfly/server/block/cube"

	"github.com/roach88/redstonesim/internal/recorder"
)

// AssertionError is returned when an assertion fails.
// It includes the diff log to help debug the failure.
type AssertionError struct {
	Type     string          // Assertion type for categorization
	Expected string          // Human-readable expected outcome
	Actual   string          // Human-readable actual outcome
	Diffs    []recorder.Diff // Full diff log for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nDiff log:\n")
	for _, d := range e.Diffs {
		positions := make([]string, len(d.Changes))
		for i, c := range d.Changes {
			positions[i] = formatPos(c.Pos)
		}
		fmt.Fprintf(&buf, "  tick %d: %s\n", d.Tick, strings.Join(positions, " "))
	}
	return buf.String()
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertState:
			c, ok := result.StateAt(a.Pos(), a.Tick)
			err = assertFields(result, a, fmt.Sprintf("after tick %d", a.Tick), c, ok)
		case AssertFinal:
			c, ok := result.Final(a.Pos())
			err = assertFields(result, a, "after the last tick", c, ok)
		case AssertChanged:
			err = assertChanged(result, a)
		case AssertUnchanged:
			err = assertUnchanged(result, a)
		case AssertChangeCount:
			err = assertChangeCount(result, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

// assertFields checks the expected wire fields of c (subset match).
func assertFields(r *Result, a Assertion, when string, c recorder.Change, found bool) error {
	expected := fmt.Sprintf("block at %s %s with %s", formatPos(a.Pos()), when, formatFields(a.Expect))
	if !found {
		return &AssertionError{Type: a.Type, Expected: expected, Actual: "no block", Diffs: r.Diffs()}
	}

	actual, err := wireFields(c)
	if err != nil {
		return err
	}
	for key, want := range a.Expect {
		got, ok := actual[key]
		if !ok || !valuesEqual(got, want) {
			return &AssertionError{
				Type:     a.Type,
				Expected: expected,
				Actual:   formatFields(actual),
				Diffs:    r.Diffs(),
			}
		}
	}
	return nil
}

func assertChanged(r *Result, a Assertion) error {
	pos := a.Pos()
	for _, d := range r.Diffs() {
		if d.Tick != a.Tick {
			continue
		}
		for _, c := range d.Changes {
			if c.Pos == pos {
				return nil
			}
		}
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%s changes at tick %d", formatPos(pos), a.Tick),
		Actual:   fmt.Sprintf("ticks changed: %v", changeTicks(r, pos)),
		Diffs:    r.Diffs(),
	}
}

func assertUnchanged(r *Result, a Assertion) error {
	pos := a.Pos()
	ticks := changeTicks(r, pos)
	if len(ticks) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%s never changes", formatPos(pos)),
		Actual:   fmt.Sprintf("ticks changed: %v", ticks),
		Diffs:    r.Diffs(),
	}
}

func assertChangeCount(r *Result, a Assertion) error {
	total := 0
	for _, d := range r.Diffs() {
		total += len(d.Changes)
	}
	if total == *a.Count {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%d changes", *a.Count),
		Actual:   fmt.Sprintf("%d changes", total),
		Diffs:    r.Diffs(),
	}
}

func changeTicks(r *Result, pos cube.Pos) []int {
	ticks := []int{}
	for _, d := range r.Diffs() {
		for _, c := range d.Changes {
			if c.Pos == pos {
				ticks = append(ticks, d.Tick)
				break
			}
		}
	}
	return ticks
}

// wireFields decodes a change into its wire fields. Numbers stay
// json.Number so they compare exactly against YAML integers.
func wireFields(c recorder.Change) (map[string]any, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode change: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("decode change: %w", err)
	}
	return fields, nil
}

// valuesEqual compares a decoded wire value with a YAML value.
func valuesEqual(actual, expected any) bool {
	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}
	if n, ok := actual.(json.Number); ok {
		switch exp := expected.(type) {
		case int:
			return n.String() == fmt.Sprint(exp)
		case int64:
			return n.String() == fmt.Sprint(exp)
		case uint64:
			return n.String() == fmt.Sprint(exp)
		}
		return false
	}
	return reflect.DeepEqual(actual, expected)
}

func formatPos(p cube.Pos) string {
	return fmt.Sprintf("(%d,%d,%d)", p[0], p[1], p[2])
}

func formatFields(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, fields[k])
	}
	return "{" + strings.Join(parts, " ") + "}"
}
