package dapps

import "errors"

// ErrHostingNotCompiled is what building the middleware returns in a node
// compiled with the nodapps tag. Operator tooling matches on the exact text.
var ErrHostingNotCompiled = errors.New("Your Parity version has been compiled without WebApps support.") //nolint:staticcheck

// Builder constructs the dapps middleware. The node uses exactly one builder,
// selected at compile time through the nodapps build tag.
type Builder interface {
	Build(deps Dependencies, dappsPath string, extraDapps []string) (Middleware, error)
}

// HostingBuilder builds the dapps serving middleware.
type HostingBuilder struct{}

func (HostingBuilder) Build(deps Dependencies, dappsPath string, extraDapps []string) (Middleware, error) {
	m, err := newHostingMiddleware(deps, dappsPath, extraDapps)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// DisabledBuilder stands in for HostingBuilder when hosting is compiled out.
// It never produces a middleware, so no dapps route can be reached.
type DisabledBuilder struct{}

func (DisabledBuilder) Build(Dependencies, string, []string) (Middleware, error) {
	return nil, ErrHostingNotCompiled
}

// Compiled reports whether the binary carries dapps hosting support.
func Compiled() bool {
	_, ok := defaultBuilder.(HostingBuilder)
	return ok
}
