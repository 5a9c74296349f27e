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

package registrar

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/ethdapps/dappsnode/chainspec"
)

// FullClient is the slice of a full node's chain client the registrar needs.
type FullClient interface {
	AdditionalParams() map[string]string
	CallContract(ctx context.Context, block rpc.BlockNumber, address common.Address, data []byte) ([]byte, error)
}

// FullRegistrar is the registrar of a node holding the chain state.
type FullRegistrar struct {
	client FullClient
}

var _ ContractClient = (*FullRegistrar)(nil)

func NewFullRegistrar(client FullClient) *FullRegistrar {
	return &FullRegistrar{client: client}
}

func (r *FullRegistrar) Registrar() (common.Address, error) {
	return registrarFromParams(r.client.AdditionalParams())
}

// Call executes the call against the latest block before returning, the
// future is already resolved. Client errors are passed through untouched.
func (r *FullRegistrar) Call(ctx context.Context, address common.Address, data []byte) *Future {
	out, err := r.client.CallContract(ctx, rpc.LatestBlockNumber, address, data)
	return resolvedFuture(out, err)
}

// CallerClient adapts a contract caller (e.g. an ethclient attached to a full
// node) and the chain's engine into a FullClient.
type CallerClient struct {
	caller ethereum.ContractCaller
	engine chainspec.Engine
}

var _ FullClient = (*CallerClient)(nil)

func NewCallerClient(caller ethereum.ContractCaller, engine chainspec.Engine) *CallerClient {
	return &CallerClient{caller: caller, engine: engine}
}

func (c *CallerClient) AdditionalParams() map[string]string {
	return c.engine.AdditionalParams()
}

func (c *CallerClient) CallContract(ctx context.Context, block rpc.BlockNumber, address common.Address, data []byte) ([]byte, error) {
	msg := ethereum.CallMsg{
		To:   &address,
		Data: data,
	}
	// Negative numbers are the latest/pending/safe/finalized tags, which the
	// caller resolves as the latest block when given nil.
	var number *big.Int
	if block >= 0 {
		number = big.NewInt(block.Int64())
	}
	return c.caller.CallContract(ctx, msg, number)
}
