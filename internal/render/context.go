// Package render evaluates the templated expressions of connector behaviors
// against a mutable, run-scoped rendering context.
package render

// Context is the keyed state consumed by template evaluation. It is owned by a
// single extraction run and is never accessed concurrently.
type Context struct {
	values map[string]any
}

func NewContext() *Context {
	return &Context{values: make(map[string]any)}
}

// Set adds or overwrites one key.
func (c *Context) Set(key string, value any) {
	c.values[key] = value
}

// Update adds or overwrites every given key.
func (c *Context) Update(values map[string]any) {
	for k, v := range values {
		c.values[k] = v
	}
}

// Clear removes the given keys. Keys are cleared proactively when their
// validity window ends so later templates cannot see stale data.
func (c *Context) Clear(keys ...string) {
	for _, k := range keys {
		delete(c.values, k)
	}
}

// Get returns the value stored under key.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Has reports whether key is present.
func (c *Context) Has(key string) bool {
	_, ok := c.values[key]
	return ok
}

// Env returns a shallow copy of the context for expression evaluation.
func (c *Context) Env() map[string]any {
	env := make(map[string]any, len(c.values))
	for k, v := range c.values {
		env[k] = v
	}
	return env
}
