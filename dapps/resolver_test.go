package dapps

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethdapps/dappsnode/registrar"
)

var (
	testRegistrar = common.HexToAddress("0xe3389675d0338462dC76C6f9A3e432550c36A142")
	testURLHint   = common.HexToAddress("0x34b6acd6d19b4ba1bbbbd4ba1b3f2d2e67d3a5c9")
	testOwner     = common.HexToAddress("0x00a329c0648769a73afac7f9381e08fb43dbea72")
)

type urlEntry struct {
	url    string
	commit [20]byte
	owner  common.Address
}

// fakeContracts is a FullClient serving the registrar and URL hint contracts
// from memory.
type fakeContracts struct {
	mu      sync.Mutex
	params  map[string]string
	names   map[common.Hash]common.Hash
	hint    common.Address
	entries map[common.Hash]urlEntry
	calls   int
}

func newFakeContracts() *fakeContracts {
	return &fakeContracts{
		params:  map[string]string{"registrar": testRegistrar.Hex()},
		names:   make(map[common.Hash]common.Hash),
		hint:    testURLHint,
		entries: make(map[common.Hash]urlEntry),
	}
}

func (f *fakeContracts) register(name string, hash common.Hash, entry urlEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.names[crypto.Keccak256Hash([]byte(name))] = hash
	f.entries[hash] = entry
}

func (f *fakeContracts) AdditionalParams() map[string]string { return f.params }

func (f *fakeContracts) CallContract(_ context.Context, _ rpc.BlockNumber, address common.Address, data []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	contractABI := urlHintABI
	if address == testRegistrar {
		contractABI = registrarABI
	} else if address != f.hint {
		return nil, nil
	}
	contract, err := abi.JSON(strings.NewReader(contractABI))
	if err != nil {
		return nil, err
	}
	method, err := contract.MethodById(data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, err
	}
	switch method.Name {
	case "content":
		return method.Outputs.Pack([32]byte(f.names[common.Hash(args[0].([32]byte))]))
	case "getAddress":
		return method.Outputs.Pack(f.hint)
	case "entries":
		entry := f.entries[common.Hash(args[0].([32]byte))]
		return method.Outputs.Pack(entry.url, entry.commit, entry.owner)
	}
	return nil, fmt.Errorf("unexpected method %s", method.Name)
}

func (f *fakeContracts) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeContracts) registrar() registrar.ContractClient {
	return registrar.NewFullRegistrar(f)
}

func TestResolverContentHash(t *testing.T) {
	contracts := newFakeContracts()
	hash := crypto.Keccak256Hash([]byte("wallet content"))
	contracts.register("wallet", hash, urlEntry{url: "https://example.com/wallet.zip", owner: testOwner})

	resolver, err := NewResolver(contracts.registrar(), 0)
	require.NoError(t, err)

	have, err := resolver.ContentHash(context.Background(), "wallet")
	require.NoError(t, err)
	assert.Equal(t, hash, have)

	calls := contracts.callCount()
	have, err = resolver.ContentHash(context.Background(), "wallet")
	require.NoError(t, err)
	assert.Equal(t, hash, have)
	assert.Equal(t, calls, contracts.callCount(), "second lookup must hit the cache")

	_, err = resolver.ContentHash(context.Background(), "unknown")
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestResolverEntry(t *testing.T) {
	contracts := newFakeContracts()

	direct := crypto.Keccak256Hash([]byte("direct"))
	contracts.register("direct", direct, urlEntry{url: "https://example.com/app.zip", owner: testOwner})

	github := crypto.Keccak256Hash([]byte("github"))
	commit := [20]byte{0xec, 0x4c, 0x1f}
	contracts.register("github", github, urlEntry{url: "ethcore/dao.claim", commit: commit, owner: testOwner})

	resolver, err := NewResolver(contracts.registrar(), 0)
	require.NoError(t, err)

	entry, err := resolver.Entry(context.Background(), direct)
	require.NoError(t, err)
	assert.Equal(t, &Entry{URL: "https://example.com/app.zip"}, entry)

	entry, err = resolver.Entry(context.Background(), github)
	require.NoError(t, err)
	assert.True(t, entry.GitHub)
	assert.Equal(t, fmt.Sprintf("https://codeload.github.com/ethcore/dao.claim/zip/%x", commit), entry.URL)

	_, err = resolver.Entry(context.Background(), common.Hash{0x01})
	assert.ErrorIs(t, err, ErrNotRegistered)

	contracts.hint = common.Address{}
	_, err = resolver.Entry(context.Background(), direct)
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestResolverRegistrarNotConfigured(t *testing.T) {
	contracts := newFakeContracts()
	contracts.params = map[string]string{}

	resolver, err := NewResolver(contracts.registrar(), 0)
	require.NoError(t, err)

	_, err = resolver.ContentHash(context.Background(), "wallet")
	assert.ErrorIs(t, err, registrar.ErrRegistrarNotConfigured)
	_, err = resolver.Entry(context.Background(), common.Hash{})
	assert.ErrorIs(t, err, registrar.ErrRegistrarNotConfigured)
	assert.Zero(t, contracts.callCount())
}

func TestHostingMiddlewareContent(t *testing.T) {
	body := []byte("<html>registered dapp</html>")
	hash := crypto.Keccak256Hash(body)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/content":
			w.Header().Set("Content-Type", "text/html")
			w.Write(body)
		case "/tampered":
			w.Write([]byte("something else"))
		default:
			http.NotFound(w, r)
		}
	}))

	contracts := newFakeContracts()
	contracts.register("dapp", hash, urlEntry{url: srv.URL + "/content", owner: testOwner})
	tampered := common.Hash{0xba, 0xd}
	contracts.register("tampered", tampered, urlEntry{url: srv.URL + "/tampered", owner: testOwner})

	deps := testDependencies(t, contracts.registrar())
	m, err := HostingBuilder{}.Build(deps, "", nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/name/dapp", nil))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/content/"+hash.Hex(), rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/content/"+hash.Hex(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, body, rec.Body.Bytes())
	assert.Equal(t, "text/html", rec.Header().Get("Content-Type"))

	rec = httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/content/"+tampered.Hex(), nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/content/"+common.Hash{0x01}.Hex(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/content/0x1234", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Fetched content is served from memory once the origin is gone.
	srv.Close()
	rec = httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/content/"+hash.Hex(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, body, rec.Body.Bytes())
}

func TestHostingMiddlewareSyncing(t *testing.T) {
	deps := testDependencies(t, newFakeContracts().registrar())
	deps.SyncStatus = func() bool { return true }

	m, err := HostingBuilder{}.Build(deps, "", nil)
	require.NoError(t, err)

	for _, path := range []string{"/name/dapp", "/content/" + common.Hash{0x01}.Hex()} {
		rec := httptest.NewRecorder()
		m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestHostingMiddlewareWebProxy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "proxied %s?%s", r.URL.Path, r.URL.RawQuery)
	}))
	defer srv.Close()
	host := strings.TrimPrefix(srv.URL, "http://")

	deps := testDependencies(t, newFakeContracts().registrar())
	m, err := HostingBuilder{}.Build(deps, "", nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/web/invalid/http/"+host+"/page", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	token := deps.Signer.(interface{ GenerateWebProxyAccessToken() string }).GenerateWebProxyAccessToken()

	rec = httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/web/"+token+"/http/"+host+"/page?x=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "proxied /page?x=1", rec.Body.String())

	// sub-resources of the proxied page reuse the token
	rec = httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/web/"+token+"/http/"+host+"/style.css", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "proxied /style.css?", rec.Body.String())

	token = deps.Signer.(interface{ GenerateWebProxyAccessToken() string }).GenerateWebProxyAccessToken()
	rec = httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/web/"+token+"/ftp/"+host+"/page", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
