package invoke

import (
	"context"
	"fmt"
	"sync"
)

// HandlerFunc handles one native command.
type HandlerFunc func(ctx context.Context, args Args) (any, error)

// Registry is an in-process Invoker: the native host wires command handlers
// into it at startup. Unlike the route table its surface is open-ended, so
// registration stays possible after construction.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]HandlerFunc)}
}

// Register binds a handler to a command name, replacing any previous one.
func (r *Registry) Register(command string, fn HandlerFunc) {
	r.mu.Lock()
	r.handlers[command] = fn
	r.mu.Unlock()
}

// Invoke implements Invoker.
func (r *Registry) Invoke(ctx context.Context, command string, args Args) (any, error) {
	r.mu.RLock()
	fn, ok := r.handlers[command]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("native host has no handler for command %q", command)
	}
	return fn(ctx, args)
}
