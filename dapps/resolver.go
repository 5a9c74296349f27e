package dapps

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/jellydator/ttlcache/v3"

	"github.com/ethdapps/dappsnode/registrar"
)

const (
	registrarABI = `[
		{"constant":true,"inputs":[{"name":"_name","type":"bytes32"}],"name":"content","outputs":[{"name":"","type":"bytes32"}],"type":"function"},
		{"constant":true,"inputs":[{"name":"_name","type":"bytes32"},{"name":"_key","type":"string"}],"name":"getAddress","outputs":[{"name":"","type":"address"}],"type":"function"}
	]`
	urlHintABI = `[
		{"constant":true,"inputs":[{"name":"","type":"bytes32"}],"name":"entries","outputs":[{"name":"accountSlashRepo","type":"string"},{"name":"commit","type":"bytes20"},{"name":"owner","type":"address"}],"type":"function"}
	]`

	// urlHintName is the registrar entry of the URL hint contract.
	urlHintName = "githubhint"

	defaultNameCacheTTL = time.Minute
	nameCacheCapacity   = 1024
)

var (
	ErrNotRegistered    = errors.New("content not registered")
	ErrUnexpectedOutput = errors.New("unexpected contract output")
)

// Entry is where registered content can be downloaded from.
type Entry struct {
	URL string

	// GitHub entries point at a repository snapshot whose archive hash is not
	// the content hash, so they cannot be verified after download.
	GitHub bool
}

// Resolver looks up content registered through the registrar and the URL
// hint contract.
type Resolver struct {
	client    registrar.ContractClient
	registrar abi.ABI
	urlHint   abi.ABI

	names *ttlcache.Cache[string, common.Hash]
}

// NewResolver creates a resolver caching name lookups for ttl.
func NewResolver(client registrar.ContractClient, ttl time.Duration) (*Resolver, error) {
	if ttl <= 0 {
		ttl = defaultNameCacheTTL
	}
	reg, err := abi.JSON(strings.NewReader(registrarABI))
	if err != nil {
		return nil, err
	}
	hint, err := abi.JSON(strings.NewReader(urlHintABI))
	if err != nil {
		return nil, err
	}
	return &Resolver{
		client:    client,
		registrar: reg,
		urlHint:   hint,
		names: ttlcache.New[string, common.Hash](
			ttlcache.WithTTL[string, common.Hash](ttl),
			ttlcache.WithCapacity[string, common.Hash](nameCacheCapacity),
			ttlcache.WithDisableTouchOnHit[string, common.Hash](),
		),
	}, nil
}

// ContentHash returns the content hash registered for name.
func (r *Resolver) ContentHash(ctx context.Context, name string) (common.Hash, error) {
	if item := r.names.Get(name); item != nil {
		return item.Value(), nil
	}
	reg, err := r.client.Registrar()
	if err != nil {
		return common.Hash{}, err
	}
	out, err := r.call(ctx, reg, r.registrar, "content", [32]byte(crypto.Keccak256Hash([]byte(name))))
	if err != nil {
		return common.Hash{}, err
	}
	raw, ok := out[0].([32]byte)
	if !ok {
		return common.Hash{}, fmt.Errorf("%w: content is %T", ErrUnexpectedOutput, out[0])
	}
	hash := common.Hash(raw)
	if hash == (common.Hash{}) {
		return common.Hash{}, fmt.Errorf("%w: name %q", ErrNotRegistered, name)
	}
	r.names.Set(name, hash, ttlcache.DefaultTTL)
	return hash, nil
}

// Entry returns the download location of the content with the given hash.
func (r *Resolver) Entry(ctx context.Context, hash common.Hash) (*Entry, error) {
	reg, err := r.client.Registrar()
	if err != nil {
		return nil, err
	}
	out, err := r.call(ctx, reg, r.registrar, "getAddress", [32]byte(crypto.Keccak256Hash([]byte(urlHintName))), "A")
	if err != nil {
		return nil, err
	}
	hint, ok := out[0].(common.Address)
	if !ok {
		return nil, fmt.Errorf("%w: address is %T", ErrUnexpectedOutput, out[0])
	}
	if hint == (common.Address{}) {
		return nil, fmt.Errorf("%w: no url hint contract", ErrNotRegistered)
	}

	out, err = r.call(ctx, hint, r.urlHint, "entries", [32]byte(hash))
	if err != nil {
		return nil, err
	}
	url, ok1 := out[0].(string)
	commit, ok2 := out[1].([20]byte)
	owner, ok3 := out[2].(common.Address)
	if !ok1 || !ok2 || !ok3 {
		return nil, fmt.Errorf("%w: entries is %T, %T, %T", ErrUnexpectedOutput, out[0], out[1], out[2])
	}
	if owner == (common.Address{}) {
		return nil, fmt.Errorf("%w: content %s", ErrNotRegistered, hash.Hex())
	}
	if commit != ([20]byte{}) {
		return &Entry{
			URL:    fmt.Sprintf("https://codeload.github.com/%s/zip/%x", url, commit),
			GitHub: true,
		}, nil
	}
	return &Entry{URL: url}, nil
}

// call ABI-encodes a constant method call and waits for its decoded output.
func (r *Resolver) call(ctx context.Context, to common.Address, contract abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	out, err := r.client.Call(ctx, to, data).Wait(ctx)
	if err != nil {
		return nil, err
	}
	values, err := contract.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedOutput, err)
	}
	if len(values) != len(contract.Methods[method].Outputs) {
		return nil, fmt.Errorf("%w: %d values from %s", ErrUnexpectedOutput, len(values), method)
	}
	return values, nil
}
