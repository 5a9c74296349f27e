// Package rpcpeer implements the light network on top of JSON-RPC peers: the
// peers execute on-demand transaction proofs with eth_call, and a websocket
// new-heads subscription keeps the light client's best header current.
package rpcpeer

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/sync/errgroup"

	"github.com/ethdapps/dappsnode/light"
	"github.com/ethdapps/dappsnode/light/ondemand"
	"github.com/ethdapps/dappsnode/reactor"
)

const (
	maxConcurrencyLimit = 5

	defaultRequestTimeout = 30 * time.Second
	defaultProbeInterval  = 30 * time.Second
)

// Backend is the slice of a JSON-RPC client a peer is driven through.
// *ethclient.Client satisfies it.
type Backend interface {
	ethereum.ContractCaller
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

type peer struct {
	id      string
	backend Backend
	live    atomic.Bool
}

// peerContext binds a request to the peer it was handed out for.
type peerContext struct {
	id string
}

func (c peerContext) Peer() string { return c.id }

// Network is a light network whose peers are JSON-RPC endpoints.
type Network struct {
	remote  *reactor.Remote
	timeout time.Duration

	mu    sync.RWMutex
	peers []*peer

	enabled atomic.Bool
	next    atomic.Uint64

	onHead func(*types.Header)

	log log.Logger
}

var (
	_ light.Sync        = (*Network)(nil)
	_ ondemand.OnDemand = (*Network)(nil)
)

// NewNetwork creates an enabled network without peers. Requests are executed
// on remote and abandoned after timeout (a default applies when zero).
func NewNetwork(remote *reactor.Remote, timeout time.Duration) *Network {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	n := &Network{
		remote:  remote,
		timeout: timeout,
		log:     log.New("module", "rpcpeer"),
	}
	n.enabled.Store(true)
	return n
}

// AddPeer registers a peer. Peers are assumed live until a probe or a request
// fails on them.
func (n *Network) AddPeer(id string, backend Backend) {
	p := &peer{id: id, backend: backend}
	p.live.Store(true)

	n.mu.Lock()
	n.peers = append(n.peers, p)
	n.mu.Unlock()

	n.log.Info("Added light peer", "peer", id)
}

// OnHead registers fn to receive every head a probe observes. It must be
// called before probing starts.
func (n *Network) OnHead(fn func(*types.Header)) {
	n.onHead = fn
}

// SetEnabled turns networking on or off.
func (n *Network) SetEnabled(enabled bool) {
	n.enabled.Store(enabled)
}

func (n *Network) peer(id string) *peer {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, p := range n.peers {
		if p.id == id {
			return p
		}
	}
	return nil
}

// WithContext hands fn a context bound to the next live peer, round robin.
func (n *Network) WithContext(fn func(ctx ondemand.Context)) bool {
	if !n.enabled.Load() {
		return false
	}
	n.mu.RLock()
	var live []*peer
	for _, p := range n.peers {
		if p.live.Load() {
			live = append(live, p)
		}
	}
	n.mu.RUnlock()

	if len(live) == 0 {
		return false
	}
	p := live[(n.next.Add(1)-1)%uint64(len(live))]
	fn(peerContext{id: p.id})
	return true
}

// TransactionProof executes the request's transaction as an eth_call against
// the bound peer at the request header's block. Errors reported by the peer's
// node are execution failures; transport failures drop the request and mark
// the peer dead until the next successful probe.
func (n *Network) TransactionProof(netctx ondemand.Context, req *ondemand.TransactionProof) <-chan *ondemand.Response {
	out := make(chan *ondemand.Response, 1)

	p := n.peer(netctx.Peer())
	if p == nil || req == nil || req.Tx == nil {
		close(out)
		return out
	}
	spawned := n.remote.Spawn(func() {
		defer close(out)

		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		var number *big.Int
		if req.Header != nil && req.Header.Number != nil {
			number = new(big.Int).Set(req.Header.Number)
		}
		ret, err := p.backend.CallContract(ctx, callMsg(req), number)
		if err != nil {
			var rpcErr rpc.Error
			if errors.As(err, &rpcErr) {
				out <- &ondemand.Response{Err: err}
				return
			}
			p.live.Store(false)
			n.log.Debug("Dropping on-demand request", "peer", p.id, "err", err)
			return
		}
		out <- &ondemand.Response{Result: &core.ExecutionResult{ReturnData: ret}}
	})
	if !spawned {
		close(out)
	}
	return out
}

// callMsg turns the proof request back into the call it stands for.
func callMsg(req *ondemand.TransactionProof) ethereum.CallMsg {
	return ethereum.CallMsg{
		From:     req.From,
		To:       req.Tx.To(),
		Gas:      req.Tx.Gas(),
		GasPrice: req.Tx.GasPrice(),
		Value:    req.Tx.Value(),
		Data:     req.Tx.Data(),
	}
}

// Probe queries the head of every peer, at most maxConcurrencyLimit at a time,
// and records which ones answered, passing their heads to the OnHead hook.
// It returns the number of live peers.
func (n *Network) Probe(ctx context.Context) int {
	n.mu.RLock()
	peers := append([]*peer(nil), n.peers...)
	n.mu.RUnlock()

	var (
		g    errgroup.Group
		live atomic.Int64
	)
	g.SetLimit(maxConcurrencyLimit)

	for _, p := range peers {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(ctx, n.timeout)
			defer cancel()

			head, err := p.backend.HeaderByNumber(ctx, nil)
			if err != nil {
				if p.live.Swap(false) {
					n.log.Warn("Light peer unreachable", "peer", p.id, "err", err)
				}
				return nil
			}
			if !p.live.Swap(true) {
				n.log.Info("Light peer reachable again", "peer", p.id)
			}
			if n.onHead != nil && head != nil {
				n.onHead(head)
			}
			live.Add(1)
			return nil
		})
	}
	g.Wait()

	return int(live.Load())
}

// Run probes the peers every interval until ctx is cancelled.
func (n *Network) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		n.Probe(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
