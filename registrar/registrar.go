// Copyright 2026 The dappsnode Authors
// This file is part of the dappsnode library.
//
// The dappsnode library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The dappsnode library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the dappsnode library. If not, see <http://www.gnu.org/licenses/>.

// Package registrar resolves the chain's name registrar contract and performs
// read-only contract calls on behalf of the dapps hosting layer, either
// against local state (full node) or through on-demand proofs (light node).
package registrar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrRegistrarNotConfigured = errors.New("registrar not defined")
	ErrInvalidAddress         = errors.New("invalid registrar address")
	ErrNetworkDisabled        = errors.New("cannot query registry: network disabled")
	ErrExecutionFailed        = errors.New("failed to execute transaction")
	ErrRequestDropped         = errors.New("on-demand service dropped request unexpectedly")
)

// registrarParam is the engine parameter holding the registrar address.
const registrarParam = "registrar"

// ContractClient resolves the registrar contract and executes read-only calls
// against arbitrary contracts. Implementations never mutate chain state.
type ContractClient interface {
	// Registrar returns the address of the registrar contract.
	Registrar() (common.Address, error)

	// Call executes data against the contract at address. The returned
	// future resolves with the call output or an error. Cancelling ctx only
	// withdraws interest in the result.
	Call(ctx context.Context, address common.Address, data []byte) *Future
}

// Future is the pending result of a contract call. It resolves exactly once.
type Future struct {
	done chan struct{}
	once sync.Once

	out []byte
	err error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func resolvedFuture(out []byte, err error) *Future {
	f := newFuture()
	f.resolve(out, err)
	return f
}

func (f *Future) resolve(out []byte, err error) {
	f.once.Do(func() {
		f.out, f.err = out, err
		close(f.done)
	})
}

// Done returns a channel closed once the result is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result returns the outcome without blocking. resolved is false, and out
// and err are zero, while the call is still pending.
func (f *Future) Result() (out []byte, resolved bool, err error) {
	select {
	case <-f.done:
		return f.out, true, f.err
	default:
		return nil, false, nil
	}
}

// Wait blocks until the future resolves or ctx is done, whichever is first.
func (f *Future) Wait(ctx context.Context) ([]byte, error) {
	select {
	case <-f.done:
		return f.out, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// registrarFromParams extracts the registrar address from engine parameters.
func registrarFromParams(params map[string]string) (common.Address, error) {
	value, ok := params[registrarParam]
	if !ok {
		return common.Address{}, ErrRegistrarNotConfigured
	}
	return parseAddress(value)
}

// parseAddress decodes a 20 byte hex address, the 0x prefix being optional.
func parseAddress(value string) (common.Address, error) {
	if !strings.HasPrefix(value, "0x") && !strings.HasPrefix(value, "0X") {
		value = "0x" + value
	}
	var addr common.Address
	if err := addr.UnmarshalText([]byte(value)); err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return addr, nil
}
