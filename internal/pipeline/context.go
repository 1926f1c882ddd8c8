package pipeline

import "strings"

// Context is a dotted-key store over JSON-like values with an
// append-only log. Keys may be looked up by exact dotted path or by
// progressively shorter known prefixes, descending into the structured
// value for the remaining segments.
type Context struct {
	values map[string]interface{}
	logs   []string
}

func NewContext() *Context {
	return &Context{values: make(map[string]interface{})}
}

// ApplyUpdates overwrites each key in updates.
func (c *Context) ApplyUpdates(updates map[string]interface{}) {
	for k, v := range updates {
		c.values[k] = v
	}
}

// Set overwrites a single key.
func (c *Context) Set(key string, value interface{}) {
	c.values[key] = value
}

// AppendLog appends one entry to the append-only log list.
func (c *Context) AppendLog(entry string) {
	c.logs = append(c.logs, entry)
}

func (c *Context) Logs() []string {
	return append([]string(nil), c.logs...)
}

// Get resolves a dotted key: first the exact key, else the longest
// known prefix, descending into the structured value found there by the
// remaining dotted segments.
func (c *Context) Get(key string) (interface{}, bool) {
	if v, ok := c.values[key]; ok {
		return v, true
	}

	segments := strings.Split(key, ".")
	for i := len(segments) - 1; i > 0; i-- {
		prefix := strings.Join(segments[:i], ".")
		v, ok := c.values[prefix]
		if !ok {
			continue
		}
		remaining := segments[i:]
		if resolved, ok := descend(v, remaining); ok {
			return resolved, true
		}
	}
	return nil, false
}

func descend(v interface{}, segments []string) (interface{}, bool) {
	cur := v
	for _, seg := range segments {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		next, ok := m[seg]
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Snapshot returns a flat copy of the current key→value map.
func (c *Context) Snapshot() map[string]interface{} {
	out := make(map[string]interface{}, len(c.values))
	for k, v := range c.values {
		out[k] = deepCopyValue(v)
	}
	return out
}

// Clone produces a structurally independent deep copy, including logs.
func (c *Context) Clone() *Context {
	return &Context{
		values: c.Snapshot(),
		logs:   append([]string(nil), c.logs...),
	}
}

// RestoreFrom replaces this context's values with values (as loaded
// from a checkpoint); the log list is left as it is, so a checkpoint's
// Logs are not restored.
func (c *Context) RestoreFrom(values map[string]interface{}) {
	c.values = values
}

func deepCopyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, vv := range t {
			out[k] = deepCopyValue(vv)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, vv := range t {
			out[i] = deepCopyValue(vv)
		}
		return out
	default:
		return v
	}
}
