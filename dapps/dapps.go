// Package dapps assembles the dapps hosting middleware from its configuration
// and the node services it depends on.
package dapps

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ethdapps/dappsnode/fetch"
	"github.com/ethdapps/dappsnode/reactor"
	"github.com/ethdapps/dappsnode/registrar"
)

var ErrMissingDependency = errors.New("missing dapps dependency")

// SyncStatus reports whether the node is still major syncing.
type SyncStatus func() bool

// Signer is the signer service surface the hosting layer uses.
type Signer interface {
	IsValidWebProxyAccessToken(token string) bool
	Address() common.Address
}

// WebProxyTokens validates web proxy access tokens against a shared signer.
// It is safe for concurrent use if the signer is.
type WebProxyTokens struct {
	signer Signer
}

func NewWebProxyTokens(signer Signer) WebProxyTokens {
	return WebProxyTokens{signer: signer}
}

func (t WebProxyTokens) IsValid(token string) bool {
	if t.signer == nil || token == "" {
		return false
	}
	return t.signer.IsValidWebProxyAccessToken(token)
}

// Dependencies are the node services the middleware is built from. All of
// them are shared with other long-lived components.
type Dependencies struct {
	SyncStatus     SyncStatus
	ContractClient registrar.ContractClient
	Remote         *reactor.Remote
	Fetch          fetch.Fetcher
	Signer         Signer
}

func (deps Dependencies) validate() error {
	switch {
	case deps.SyncStatus == nil:
		return fmt.Errorf("%w: sync status", ErrMissingDependency)
	case deps.ContractClient == nil:
		return fmt.Errorf("%w: contract client", ErrMissingDependency)
	case deps.Remote == nil:
		return fmt.Errorf("%w: remote", ErrMissingDependency)
	case deps.Fetch == nil:
		return fmt.Errorf("%w: fetch client", ErrMissingDependency)
	case deps.Signer == nil:
		return fmt.Errorf("%w: signer", ErrMissingDependency)
	}
	return nil
}

// Middleware serves the dapps routes. It is mounted by the HTTP server.
type Middleware interface {
	http.Handler
}

// New builds the hosting middleware. A disabled configuration yields no
// middleware and no error.
func New(config Configuration, deps Dependencies) (Middleware, error) {
	return newWithBuilder(defaultBuilder, config, deps)
}

func newWithBuilder(builder Builder, config Configuration, deps Dependencies) (Middleware, error) {
	if !config.Enabled {
		return nil, nil
	}
	return builder.Build(deps, config.DappsPath, config.ExtraDapps)
}
