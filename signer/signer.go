// Package signer implements the signer service surface used by the dapps
// hosting layer: the signer's account and its web proxy access tokens.
package signer

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
)

// DefaultTokenLifetime is how long an unused web proxy token stays valid.
const DefaultTokenLifetime = 5 * time.Minute

// Service hands out web proxy access tokens. It is safe for concurrent use.
type Service struct {
	address common.Address
	tokens  *ttlcache.Cache[string, struct{}]
}

// New creates a signer service for the given account. Tokens expire after
// lifetime, or DefaultTokenLifetime if lifetime is not positive.
func New(address common.Address, lifetime time.Duration) *Service {
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}
	tokens := ttlcache.New[string, struct{}](
		ttlcache.WithTTL[string, struct{}](lifetime),
		ttlcache.WithDisableTouchOnHit[string, struct{}](),
	)
	go tokens.Start()

	return &Service{address: address, tokens: tokens}
}

// Address returns the signer's account.
func (s *Service) Address() common.Address {
	return s.address
}

// GenerateWebProxyAccessToken issues a new token.
func (s *Service) GenerateWebProxyAccessToken() string {
	token := uuid.NewString()
	s.tokens.Set(token, struct{}{}, ttlcache.DefaultTTL)

	log.Trace("Issued web proxy access token", "signer", s.address)
	return token
}

// IsValidWebProxyAccessToken reports whether token was issued and has not
// expired. Checks do not extend a token's lifetime, so every resource of a
// proxied page can be requested under the same token until it expires.
func (s *Service) IsValidWebProxyAccessToken(token string) bool {
	return s.tokens.Has(token)
}

// Stop releases the token expiry loop.
func (s *Service) Stop() {
	s.tokens.Stop()
}
