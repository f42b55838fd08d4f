// Package fallback evaluates ordered strategies and keeps the first valid answer.
package fallback

import "context"

// DefaultName is reported when no step produced a valid value.
const DefaultName = "default"

// Step is one strategy in a chain.
type Step[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// Chain tries Steps in order. A step wins when it returns no error and Valid
// accepts its value. When every step fails, Default is returned.
type Chain[T any] struct {
	Steps   []Step[T]
	Valid   func(T) bool
	Default T

	// OnError, if set, observes step failures.
	OnError func(step string, err error)
}

// Resolve runs the chain and returns the chosen value with the name of the step
// that produced it.
func (c Chain[T]) Resolve(ctx context.Context) (T, string) {
	for _, step := range c.Steps {
		if ctx.Err() != nil {
			break
		}
		v, err := step.Run(ctx)
		if err != nil {
			if c.OnError != nil {
				c.OnError(step.Name, err)
			}
			continue
		}
		if c.Valid == nil || c.Valid(v) {
			return v, step.Name
		}
	}
	return c.Default, DefaultName
}

// Value wraps a constant as a step.
func Value[T any](name string, v T) Step[T] {
	return Step[T]{
		Name: name,
		Run:  func(context.Context) (T, error) { return v, nil },
	}
}
