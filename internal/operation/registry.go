package operation

import (
	"errors"
	"fmt"
	"strings"

	"calc-history/internal/calcerr"
)

var (
	// ErrUnknownOperation is wrapped by Create when no operation is registered
	// under the requested name.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrNotAnOperation is returned by Register for a nil operation or one
	// without a name.
	ErrNotAnOperation = errors.New("operation must implement Operation with a non-empty name")
)

// Registry maps names to operations. Lookups are case-insensitive. An
// operation is reachable both under the key it was registered with and under
// its own Name, so history records can be resolved back to operations.
type Registry struct {
	ops      map[string]Operation
	keys     map[string]bool
	commands []string
}

// builtins lists the operations every registry starts with, keyed by their
// short command name.
var builtins = []struct {
	key string
	op  Operation
}{
	{"add", Addition{}},
	{"subtract", Subtraction{}},
	{"multiply", Multiplication{}},
	{"divide", Division{}},
	{"power", Power{}},
	{"root", Root{}},
	{"modulus", Modulus{}},
	{"int_divide", IntegerDivision{}},
	{"percent", Percentage{}},
	{"abs_dif", AbsoluteDifference{}},
}

// NewRegistry returns a registry holding the built-in operations.
func NewRegistry() *Registry {
	r := &Registry{
		ops:  make(map[string]Operation, 2*len(builtins)),
		keys: make(map[string]bool, len(builtins)),
	}
	for _, b := range builtins {
		// builtins are known-good
		_ = r.Register(b.key, b.op)
	}
	return r
}

// Register adds op under name, replacing any previous entry for that name.
func (r *Registry) Register(name string, op Operation) error {
	name = strings.TrimSpace(name)
	if op == nil || name == "" || op.Name() == "" {
		return fmt.Errorf("register %q: %w", name, ErrNotAnOperation)
	}

	key := strings.ToLower(name)
	if !r.keys[key] {
		r.keys[key] = true
		r.commands = append(r.commands, key)
	}
	r.ops[key] = op
	r.ops[strings.ToLower(op.Name())] = op

	return nil
}

// Create returns the operation registered under name.
func (r *Registry) Create(name string) (Operation, error) {
	op, ok := r.ops[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, calcerr.Operation(fmt.Sprintf("create %q", name), ErrUnknownOperation)
	}
	return op, nil
}

// Commands returns the names operations were registered under, in
// registration order.
func (r *Registry) Commands() []string {
	return append([]string(nil), r.commands...)
}
