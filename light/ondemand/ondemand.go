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

// Package ondemand defines the on-demand request surface a light node uses to
// obtain verifiable execution results from its peers.
package ondemand

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/ethdapps/dappsnode/chainspec"
)

// Context is a handle on the network, bound to a peer able to service
// on-demand requests. It is only valid for the duration of the callback it was
// handed to.
type Context interface {
	Peer() string
}

// EnvInfo is the execution environment of the latest known block.
type EnvInfo struct {
	Number     uint64
	Author     common.Address
	Timestamp  uint64
	Difficulty *big.Int
	GasLimit   uint64
	GasUsed    uint64
}

// EnvInfoFromHeader derives the execution environment from a block header.
func EnvInfoFromHeader(header *types.Header) EnvInfo {
	if header == nil {
		return EnvInfo{Difficulty: new(big.Int)}
	}
	env := EnvInfo{
		Author:     header.Coinbase,
		Timestamp:  header.Time,
		Difficulty: new(big.Int),
		GasLimit:   header.GasLimit,
		GasUsed:    header.GasUsed,
	}
	if header.Number != nil {
		env.Number = header.Number.Uint64()
	}
	if header.Difficulty != nil {
		env.Difficulty.Set(header.Difficulty)
	}
	return env
}

// TransactionProof requests the execution of a transaction against the state
// of Header, proven by the serving peer.
type TransactionProof struct {
	Tx     *types.Transaction
	From   common.Address // sender the transaction is replayed as; carries no authorization
	Header *types.Header
	Env    EnvInfo
	Engine chainspec.Engine
}

// Response is the outcome of a transaction proof. Exactly one of Result and
// Err is set; Err reports that the execution itself failed.
type Response struct {
	Result *core.ExecutionResult
	Err    error
}

// OnDemand dispatches requests to the peer bound to a network context.
//
//go:generate mockgen -source=ondemand.go -destination=../../tests/mocks/MockOnDemand.go -package=mocks
type OnDemand interface {
	// TransactionProof submits the request and returns a channel yielding at
	// most one response. A channel closed without a response means the
	// request was dropped (peer disconnect, shutdown, eviction).
	TransactionProof(ctx Context, req *TransactionProof) <-chan *Response
}
