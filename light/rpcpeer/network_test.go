package rpcpeer

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ethdapps/dappsnode/chainspec"
	"github.com/ethdapps/dappsnode/light/ondemand"
	"github.com/ethdapps/dappsnode/reactor"
	"github.com/ethdapps/dappsnode/registrar"
)

var testRegistrar = common.HexToAddress("0xe3389675d0338462dC76C6f9A3e432550c36A142")

// revertError mimics an error returned by a node over JSON-RPC.
type revertError struct{}

func (revertError) Error() string  { return "execution reverted" }
func (revertError) ErrorCode() int { return 3 }

type backend struct {
	mu      sync.Mutex
	ret     []byte
	err     error
	headErr error
	calls   []ethereum.CallMsg
	blocks  []*big.Int
}

func (b *backend) CallContract(_ context.Context, msg ethereum.CallMsg, number *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls = append(b.calls, msg)
	b.blocks = append(b.blocks, number)
	return b.ret, b.err
}

func (b *backend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.headErr != nil {
		return nil, b.headErr
	}
	return &types.Header{Number: big.NewInt(1)}, nil
}

func newTestNetwork(t *testing.T) (*Network, *reactor.Remote) {
	t.Helper()

	remote := reactor.NewRemote(2)
	t.Cleanup(remote.Stop)
	return NewNetwork(remote, time.Second), remote
}

func peersOf(n *Network, rounds int) []string {
	var ids []string
	for i := 0; i < rounds; i++ {
		n.WithContext(func(ctx ondemand.Context) { ids = append(ids, ctx.Peer()) })
	}
	return ids
}

func testProof(number int64) *ondemand.TransactionProof {
	to := testRegistrar
	return &ondemand.TransactionProof{
		Tx: types.NewTx(&types.LegacyTx{
			Nonce:    0,
			To:       &to,
			Gas:      50_000_000,
			GasPrice: new(big.Int),
			Value:    new(big.Int),
			Data:     []byte{0xde, 0xad},
		}),
		Header: &types.Header{Number: big.NewInt(number)},
	}
}

func TestNetworkWithContext(t *testing.T) {
	n, _ := newTestNetwork(t)

	assert.False(t, n.WithContext(func(ondemand.Context) { t.Fatal("no peers") }))

	n.AddPeer("a", &backend{})
	n.AddPeer("b", &backend{})
	assert.Equal(t, []string{"a", "b", "a", "b"}, peersOf(n, 4))

	n.SetEnabled(false)
	assert.False(t, n.WithContext(func(ondemand.Context) { t.Fatal("networking disabled") }))
	n.SetEnabled(true)

	n.peer("a").live.Store(false)
	assert.Equal(t, []string{"b", "b"}, peersOf(n, 2))
}

func TestNetworkProbe(t *testing.T) {
	n, _ := newTestNetwork(t)

	client := NewClient(chainspec.Foundation())
	n.OnHead(func(h *types.Header) { client.SetHead(h) })

	down := &backend{headErr: errors.New("connection refused")}
	n.AddPeer("up", &backend{})
	n.AddPeer("down", down)

	assert.Equal(t, 1, n.Probe(context.Background()))
	require.NotNil(t, client.BestBlockHeader())
	assert.Equal(t, int64(1), client.BestBlockHeader().Number.Int64())
	assert.Equal(t, []string{"up", "up"}, peersOf(n, 2))

	down.mu.Lock()
	down.headErr = nil
	down.mu.Unlock()

	assert.Equal(t, 2, n.Probe(context.Background()))
	assert.ElementsMatch(t, []string{"up", "down"}, peersOf(n, 2))
}

func TestNetworkTransactionProof(t *testing.T) {
	n, _ := newTestNetwork(t)

	peer := &backend{ret: []byte{0x01, 0x02}}
	n.AddPeer("a", peer)

	res, ok := <-n.TransactionProof(peerContext{id: "a"}, testProof(42))
	require.True(t, ok)
	require.NoError(t, res.Err)
	assert.Equal(t, []byte{0x01, 0x02}, res.Result.ReturnData)

	require.Len(t, peer.calls, 1)
	msg := peer.calls[0]
	assert.Equal(t, common.Address{}, msg.From)
	assert.Equal(t, testRegistrar, *msg.To)
	assert.Equal(t, uint64(50_000_000), msg.Gas)
	assert.Equal(t, []byte{0xde, 0xad}, msg.Data)
	assert.Zero(t, msg.GasPrice.Sign())
	assert.Equal(t, big.NewInt(42), peer.blocks[0])
}

func TestNetworkTransactionProofFailures(t *testing.T) {
	n, remote := newTestNetwork(t)

	n.AddPeer("reverting", &backend{err: revertError{}})
	n.AddPeer("broken", &backend{err: errors.New("connection reset")})

	res, ok := <-n.TransactionProof(peerContext{id: "reverting"}, testProof(1))
	require.True(t, ok)
	assert.EqualError(t, res.Err, "execution reverted")
	assert.True(t, n.peer("reverting").live.Load())

	_, ok = <-n.TransactionProof(peerContext{id: "broken"}, testProof(1))
	assert.False(t, ok, "transport failures drop the request")
	assert.False(t, n.peer("broken").live.Load())

	_, ok = <-n.TransactionProof(peerContext{id: "unknown"}, testProof(1))
	assert.False(t, ok)

	remote.Stop()
	_, ok = <-n.TransactionProof(peerContext{id: "reverting"}, testProof(1))
	assert.False(t, ok, "a stopped scheduler drops the request")
}

func TestLightRegistrarOverNetwork(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	remote := reactor.NewRemote(2)
	defer remote.Stop()

	output := common.LeftPadBytes([]byte{0x2a}, 32)
	peer := &backend{ret: output}

	network := NewNetwork(remote, time.Second)
	network.AddPeer("a", peer)

	client := NewClient(chainspec.Foundation())
	client.SetHead(&types.Header{Number: big.NewInt(4_000_000)})

	reg := registrar.NewLightRegistrar(client, network, network)
	addr, err := reg.Registrar()
	require.NoError(t, err)
	assert.Equal(t, testRegistrar, addr)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	out, err := reg.Call(ctx, addr, []byte{0x01}).Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, output, out)
	assert.Equal(t, big.NewInt(4_000_000), peer.blocks[0])

	network.SetEnabled(false)
	_, err = reg.Call(ctx, addr, []byte{0x01}).Wait(ctx)
	assert.ErrorIs(t, err, registrar.ErrNetworkDisabled)

	network.SetEnabled(true)
	peer.mu.Lock()
	peer.err = revertError{}
	peer.mu.Unlock()
	_, err = reg.Call(ctx, addr, []byte{0x01}).Wait(ctx)
	assert.ErrorIs(t, err, registrar.ErrExecutionFailed)
}
