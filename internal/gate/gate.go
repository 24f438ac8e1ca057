// Package gate holds back hooks until the parts they depend on have been
// seen. Values that arrive for a hook that is still waiting are spooled and
// replayed once the hook opens.
package gate

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -source=$GOFILE -destination=mock/$GOFILE -package=mock

import (
	"errors"
	"fmt"
)

// ErrNoHook is returned by Pass for a key without a hook.
var ErrNoHook = errors.New("no hook registered")

type IGate[K comparable, S any, T any] interface {
	Has(key K) bool
	Pass(key K, value S) (bool, error)
	Release(key K) error
}

type Hook[K comparable, S any, T any] interface {
	// Stream runs the hook on a live value.
	Stream(S) error
	// Replay runs the hook on a spooled value.
	Replay(T) error
	Requires() []K
}

type SpoolFunc[S any, T any] func(S) (T, error)

type Gate[K comparable, S any, T any] struct {
	spool   SpoolFunc[S, T]
	open    map[K]func(S) error
	waiting map[K][]*waiter[K, S, T]
	closed  map[K]*waiter[K, S, T]
}

type waiter[K comparable, S any, T any] struct {
	key     K
	hook    Hook[K, S, T]
	missing map[K]struct{}
	spooled []T
}

func New[K comparable, S any, T any](hooks map[K]Hook[K, S, T], spool SpoolFunc[S, T]) *Gate[K, S, T] {
	g := &Gate[K, S, T]{
		spool:   spool,
		open:    make(map[K]func(S) error, len(hooks)),
		waiting: make(map[K][]*waiter[K, S, T]),
		closed:  make(map[K]*waiter[K, S, T]),
	}

	for key, hook := range hooks {
		requires := hook.Requires()
		if len(requires) == 0 {
			g.open[key] = hook.Stream
			continue
		}

		w := &waiter[K, S, T]{
			key:     key,
			hook:    hook,
			missing: make(map[K]struct{}, len(requires)),
		}
		for _, r := range requires {
			if _, ok := w.missing[r]; ok {
				continue
			}
			w.missing[r] = struct{}{}
			g.waiting[r] = append(g.waiting[r], w)
		}
		g.closed[key] = w
	}

	return g
}

func (g *Gate[K, S, T]) Has(key K) bool {
	if _, ok := g.open[key]; ok {
		return true
	}
	_, ok := g.closed[key]

	return ok
}

// Pass hands a value to the hook of key. It reports whether the hook ran; a
// hook still waiting for its requirements gets the spooled value later.
func (g *Gate[K, S, T]) Pass(key K, value S) (bool, error) {
	if fn, ok := g.open[key]; ok {
		if err := fn(value); err != nil {
			return false, fmt.Errorf("failed to execute hook: %w", err)
		}

		return true, nil
	}

	w, ok := g.closed[key]
	if !ok {
		return false, ErrNoHook
	}

	spooled, err := g.spool(value)
	if err != nil {
		return false, fmt.Errorf("failed to spool: %w", err)
	}
	w.spooled = append(w.spooled, spooled)

	return false, nil
}

// Release marks key as seen. Hooks whose last requirement was key open and
// replay the values spooled for them in arrival order.
func (g *Gate[K, S, T]) Release(key K) error {
	var errs []error
	for _, w := range g.waiting[key] {
		delete(w.missing, key)
		if len(w.missing) > 0 {
			continue
		}

		delete(g.closed, w.key)
		g.open[w.key] = w.hook.Stream

		for _, v := range w.spooled {
			if err := w.hook.Replay(v); err != nil {
				errs = append(errs, fmt.Errorf("failed to execute hook(%v): %w", w.key, err))
			}
		}
		w.spooled = nil
	}
	delete(g.waiting, key)

	return errors.Join(errs...)
}

// Pending returns the keys of hooks that never opened and the number of
// values spooled for each.
func (g *Gate[K, S, T]) Pending() map[K]int {
	pending := make(map[K]int, len(g.closed))
	for key, w := range g.closed {
		pending[key] = len(w.spooled)
	}

	return pending
}
