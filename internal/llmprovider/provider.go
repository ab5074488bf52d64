// Package llmprovider defines the narrow LLM contract the research core
// consumes: a single-turn invoke that takes a prompt and returns text. The
// core never depends on tool-calling, streaming, or a specific vendor's
// message shape; those live in the concrete provider packages.
package llmprovider

import "context"

// Invoker is the LLM adapter the core is built against: invoke(prompt) ->
// {content}. Retried by the caller on transport error; never retried by
// the core itself.
type Invoker interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// InvokerFunc adapts a plain function to Invoker, used by tests to fake an
// LLM without standing up a provider client.
type InvokerFunc func(ctx context.Context, prompt string) (string, error)

func (f InvokerFunc) Invoke(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
