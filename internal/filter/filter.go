// Package filter evaluates boolean expressions against list items for the
// --filter output flag.
package filter

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Filter is a compiled boolean expression applied to one item at a time.
// Compiled programs are cached, so building a Filter per list page is
// cheap.
type Filter struct {
	expression string

	mu      sync.Mutex
	program *vm.Program
}

// New compiles the expression. An item's fields are exposed as top-level
// variables, so `active && node_count > 3` matches items whose JSON has
// those keys.
func New(expression string) (*Filter, error) {
	program, err := compile(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", err)
	}
	return &Filter{expression: expression, program: program}, nil
}

func compile(expression string) (*vm.Program, error) {
	return expr.Compile(expression,
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
}

// Match reports whether the item satisfies the expression. The item is
// passed through JSON so any struct or map works as input.
func (f *Filter) Match(item any) (bool, error) {
	env, err := toEnv(item)
	if err != nil {
		return false, err
	}

	f.mu.Lock()
	program := f.program
	f.mu.Unlock()

	result, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("evaluating filter: %w", err)
	}

	matched, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("filter must return a boolean, got %T", result)
	}
	return matched, nil
}

// Apply returns the items matching the expression, preserving order.
func Apply[T any](f *Filter, items []T) ([]T, error) {
	matched := make([]T, 0, len(items))
	for _, item := range items {
		ok, err := f.Match(item)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, item)
		}
	}
	return matched, nil
}

func toEnv(item any) (map[string]any, error) {
	if env, ok := item.(map[string]any); ok {
		return env, nil
	}

	raw, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("encoding item for filter: %w", err)
	}
	var env map[string]any
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("filter input must be an object: %w", err)
	}
	return env, nil
}
