package formdispenser

import (
	"fmt"
)

// Register sets fn as the hook of the parts named name. Parts with a hook are
// streamed to it instead of being stored. The hook runs once every part
// given with WithRequiredPart has been seen; until then the part is spooled
// in memory up to the WithMaxMemFileSize budget and in a temporary file
// beyond it. A hook whose required parts never arrive is not called.
func (p *Parser) Register(name string, fn StreamHookFunc, options ...RegisterOption) error {
	if _, ok := p.hookMap[name]; ok {
		return DuplicateHookNameError{Name: name}
	}

	c := &registerConfig{}
	for _, opt := range options {
		opt(c)
	}

	p.hookMap[name] = streamHook{
		fn:           fn,
		requireParts: c.requireParts,
	}

	return nil
}

type DuplicateHookNameError struct {
	Name string
}

func (e DuplicateHookNameError) Error() string {
	return fmt.Sprintf("duplicate hook name: %s", e.Name)
}

type registerConfig struct {
	requireParts []string
}

type RegisterOption func(*registerConfig)

// WithRequiredPart delays the hook until a part named name has been parsed.
func WithRequiredPart(name string) RegisterOption {
	return func(c *registerConfig) {
		c.requireParts = append(c.requireParts, name)
	}
}
