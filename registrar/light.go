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
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"

	"github.com/ethdapps/dappsnode/light"
	"github.com/ethdapps/dappsnode/light/ondemand"
)

// syntheticCallGas is the gas allowance of a registrar call, high enough that
// view calls never run out.
const syntheticCallGas = 50_000_000

var (
	lightCallSuccessCounter  = metrics.NewRegisteredCounter("dapps/registrar/light/success", nil)
	lightCallFailedCounter   = metrics.NewRegisteredCounter("dapps/registrar/light/failed", nil)
	lightCallDroppedCounter  = metrics.NewRegisteredCounter("dapps/registrar/light/dropped", nil)
	lightCallDisabledCounter = metrics.NewRegisteredCounter("dapps/registrar/light/disabled", nil)
)

// LightRegistrar is the registrar of a light node. Calls are executed by peers
// through on-demand transaction proofs.
type LightRegistrar struct {
	client   light.Client
	onDemand ondemand.OnDemand
	sync     light.Sync

	log log.Logger
}

var _ ContractClient = (*LightRegistrar)(nil)

func NewLightRegistrar(client light.Client, onDemand ondemand.OnDemand, sync light.Sync) *LightRegistrar {
	return &LightRegistrar{
		client:   client,
		onDemand: onDemand,
		sync:     sync,
		log:      log.New("registrar", "light"),
	}
}

func (r *LightRegistrar) Registrar() (common.Address, error) {
	return registrarFromParams(r.client.Engine().AdditionalParams())
}

// Call wraps the call into a transaction that is never broadcast and asks a
// peer to prove its execution on top of the best known block. Nothing is
// retried: a dropped or failed request resolves the future with an error.
func (r *LightRegistrar) Call(ctx context.Context, address common.Address, data []byte) *Future {
	var (
		header = r.client.BestBlockHeader()
		env    = r.client.LatestEnvInfo()
		engine = r.client.Engine()
	)
	var (
		peer      string
		responses <-chan *ondemand.Response
	)
	ok := r.sync.WithContext(func(netctx ondemand.Context) {
		peer = netctx.Peer()
		responses = r.onDemand.TransactionProof(netctx, &ondemand.TransactionProof{
			Tx:     syntheticCall(engine.AccountStartNonce(), address, data),
			From:   common.Address{},
			Header: header,
			Env:    env,
			Engine: engine,
		})
	})
	if !ok {
		lightCallDisabledCounter.Inc(1)
		return resolvedFuture(nil, ErrNetworkDisabled)
	}
	future := newFuture()
	go func() {
		out, err := awaitProof(ctx, responses)
		switch {
		case err == nil:
			lightCallSuccessCounter.Inc(1)
		case errors.Is(err, ErrRequestDropped):
			lightCallDroppedCounter.Inc(1)
			r.log.Debug("On-demand request dropped", "to", address, "peer", peer)
		default:
			lightCallFailedCounter.Inc(1)
			r.log.Debug("Registrar call failed", "to", address, "peer", peer, "err", err)
		}
		future.resolve(out, err)
	}()
	return future
}

// awaitProof resolves the response of a transaction proof into the call
// output. A nil channel counts as a dropped request.
func awaitProof(ctx context.Context, responses <-chan *ondemand.Response) ([]byte, error) {
	if responses == nil {
		return nil, ErrRequestDropped
	}
	select {
	case res, ok := <-responses:
		if !ok || res == nil {
			return nil, ErrRequestDropped
		}
		if res.Err != nil {
			return nil, fmt.Errorf("%w: %v", ErrExecutionFailed, res.Err)
		}
		if res.Result == nil {
			return nil, ErrRequestDropped
		}
		if res.Result.Err != nil {
			return nil, fmt.Errorf("%w: %v", ErrExecutionFailed, res.Result.Err)
		}
		return res.Result.ReturnData, nil

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// syntheticCall builds the transaction standing in for a call to address.
// It is deterministic in its inputs and never signed.
func syntheticCall(nonce uint64, address common.Address, data []byte) *types.Transaction {
	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &address,
		Gas:      syntheticCallGas,
		GasPrice: new(big.Int),
		Value:    new(big.Int),
		Data:     common.CopyBytes(data),
	})
}
