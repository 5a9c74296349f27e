package dapps

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	lru "github.com/hashicorp/golang-lru"

	"github.com/ethdapps/dappsnode/fetch"
	"github.com/ethdapps/dappsnode/reactor"
	"github.com/ethdapps/dappsnode/registrar"
)

const (
	contentCacheSize   = 256
	contentCacheBudget = 128 * 1024 * 1024

	// signerHeader carries the signer account on every dapps response.
	signerHeader = "X-Dapps-Signer"
)

// proxySchemes are the schemes the web proxy forwards to.
var proxySchemes = mapset.NewSet("http", "https")

var (
	errSchedulerStopped = errors.New("task scheduler stopped")
	errHashMismatch     = errors.New("content hash mismatch")
)

// hostingMiddleware serves local dapps, registered content and the web proxy.
type hostingMiddleware struct {
	remote     *reactor.Remote
	signer     common.Address
	apps       []LocalApp
	resolver   *Resolver
	syncStatus SyncStatus
	tokens     WebProxyTokens
	fetch      fetch.Fetcher

	contents    *lru.Cache // content hash -> *fetch.Content
	cacheMu     sync.Mutex
	cached      atomic.Int64 // body bytes held by contents
	cacheBudget int64

	mux *http.ServeMux
	log log.Logger
}

func newHostingMiddleware(deps Dependencies, dappsPath string, extraDapps []string) (*hostingMiddleware, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	resolver, err := NewResolver(deps.ContractClient, 0)
	if err != nil {
		return nil, err
	}
	m := &hostingMiddleware{
		remote:      deps.Remote,
		signer:      deps.Signer.Address(),
		apps:        discoverApps(dappsPath, extraDapps),
		resolver:    resolver,
		syncStatus:  deps.SyncStatus,
		tokens:      NewWebProxyTokens(deps.Signer),
		fetch:       deps.Fetch,
		cacheBudget: contentCacheBudget,
		mux:         http.NewServeMux(),
		log:         log.New("module", "dapps"),
	}
	m.contents, err = lru.NewWithEvict(contentCacheSize, func(_, value interface{}) {
		m.cached.Add(-int64(len(value.(*fetch.Content).Body)))
	})
	if err != nil {
		return nil, err
	}
	m.mux.HandleFunc("GET /api/ping", m.servePing)
	m.mux.HandleFunc("GET /api/apps", m.serveApps)
	m.mux.HandleFunc("GET /app/{id}/{path...}", m.serveLocal)
	m.mux.HandleFunc("GET /content/{hash}", m.serveContent)
	m.mux.HandleFunc("GET /name/{name}", m.serveName)
	m.mux.HandleFunc("GET /web/{token}/{scheme}/{host}/{path...}", m.serveWeb)

	m.log.Info("Dapps hosting enabled", "path", dappsPath, "local", len(m.apps), "signer", m.signer)
	return m, nil
}

func (m *hostingMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(signerHeader, m.signer.Hex())
	m.mux.ServeHTTP(w, r)
}

func (m *hostingMiddleware) servePing(w http.ResponseWriter, r *http.Request) {
	if _, err := w.Write([]byte("pong")); err != nil {
		m.log.Debug("Failed to write ping response", "err", err)
	}
}

func (m *hostingMiddleware) serveApps(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := codec.NewEncoder(w).Encode(m.apps); err != nil {
		m.log.Debug("Failed to write dapps list", "err", err)
	}
}

func (m *hostingMiddleware) serveLocal(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	for _, app := range m.apps {
		if app.ID != id {
			continue
		}
		req := r.Clone(r.Context())
		req.URL.Path = "/" + r.PathValue("path")
		req.URL.RawPath = ""
		http.FileServer(http.Dir(app.path)).ServeHTTP(w, req)
		return
	}
	http.NotFound(w, r)
}

func (m *hostingMiddleware) serveContent(w http.ResponseWriter, r *http.Request) {
	if m.syncStatus() {
		http.Error(w, "node is syncing", http.StatusServiceUnavailable)
		return
	}
	blob, err := hexutil.Decode(r.PathValue("hash"))
	if err != nil || len(blob) != common.HashLength {
		http.Error(w, "invalid content hash", http.StatusBadRequest)
		return
	}
	hash := common.BytesToHash(blob)

	if cached, ok := m.contents.Get(hash); ok {
		m.writeImmutable(w, cached.(*fetch.Content))
		return
	}
	content, err := m.resolveContent(r.Context(), hash)
	if err != nil {
		m.log.Debug("Failed to serve content", "hash", hash, "err", err)
		http.Error(w, err.Error(), statusOf(err))
		return
	}
	m.cacheContent(hash, content)
	m.writeImmutable(w, content)
}

// resolveContent looks the hash up in the URL hint contract and downloads it.
// The lookup runs on the calling goroutine: a light registrar spawns its proof
// requests on the scheduler and must not queue behind the task awaiting them.
func (m *hostingMiddleware) resolveContent(ctx context.Context, hash common.Hash) (*fetch.Content, error) {
	entry, err := m.resolver.Entry(ctx, hash)
	if err != nil {
		return nil, err
	}
	content, err := m.spawn(ctx, func(ctx context.Context) (*fetch.Content, error) {
		return m.fetch.Fetch(ctx, entry.URL)
	})
	if err != nil {
		return nil, err
	}
	if !entry.GitHub && crypto.Keccak256Hash(content.Body) != hash {
		return nil, errHashMismatch
	}
	return content, nil
}

// cacheContent keeps content in memory while the total cached body size stays
// within the cache budget, evicting the least recently used entries first.
func (m *hostingMiddleware) cacheContent(hash common.Hash, content *fetch.Content) {
	size := int64(len(content.Body))
	if size > m.cacheBudget/4 {
		return
	}
	m.cacheMu.Lock()
	defer m.cacheMu.Unlock()

	if m.contents.Contains(hash) {
		return
	}
	m.contents.Add(hash, content)
	m.cached.Add(size)
	for m.cached.Load() > m.cacheBudget {
		if _, _, ok := m.contents.RemoveOldest(); !ok {
			break
		}
	}
}

func (m *hostingMiddleware) serveName(w http.ResponseWriter, r *http.Request) {
	if m.syncStatus() {
		http.Error(w, "node is syncing", http.StatusServiceUnavailable)
		return
	}
	name := r.PathValue("name")
	hash, err := m.resolver.ContentHash(r.Context(), name)
	if err != nil {
		m.log.Debug("Failed to resolve name", "name", name, "err", err)
		http.Error(w, err.Error(), statusOf(err))
		return
	}
	http.Redirect(w, r, "/content/"+hash.Hex(), http.StatusFound)
}

func (m *hostingMiddleware) serveWeb(w http.ResponseWriter, r *http.Request) {
	if !m.tokens.IsValid(r.PathValue("token")) {
		http.Error(w, "invalid web proxy token", http.StatusForbidden)
		return
	}
	scheme := r.PathValue("scheme")
	if !proxySchemes.Contains(scheme) {
		http.Error(w, "unsupported scheme", http.StatusBadRequest)
		return
	}
	target := url.URL{
		Scheme:   scheme,
		Host:     r.PathValue("host"),
		Path:     "/" + r.PathValue("path"),
		RawQuery: r.URL.RawQuery,
	}
	content, err := m.spawn(r.Context(), func(ctx context.Context) (*fetch.Content, error) {
		return m.fetch.Fetch(ctx, target.String())
	})
	if err != nil {
		m.log.Debug("Web proxy request failed", "url", target.String(), "err", err)
		http.Error(w, err.Error(), statusOf(err))
		return
	}
	m.writeContent(w, content)
}

// spawn runs task on the shared scheduler and waits for it, or for the
// request to go away. Tasks only fetch; they never wait on other tasks.
func (m *hostingMiddleware) spawn(ctx context.Context, task func(context.Context) (*fetch.Content, error)) (*fetch.Content, error) {
	type result struct {
		content *fetch.Content
		err     error
	}
	done := make(chan result, 1)
	if !m.remote.Spawn(func() {
		content, err := task(ctx)
		done <- result{content, err}
	}) {
		return nil, errSchedulerStopped
	}
	select {
	case res := <-done:
		return res.content, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// writeImmutable serves content addressed by its hash, which never changes.
func (m *hostingMiddleware) writeImmutable(w http.ResponseWriter, content *fetch.Content) {
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	m.writeContent(w, content)
}

func (m *hostingMiddleware) writeContent(w http.ResponseWriter, content *fetch.Content) {
	if content.ContentType != "" {
		w.Header().Set("Content-Type", content.ContentType)
	}
	if _, err := w.Write(content.Body); err != nil {
		m.log.Debug("Failed to write content", "err", err)
	}
}

// statusOf maps resolution and fetch failures onto HTTP statuses.
func statusOf(err error) int {
	switch {
	case errors.Is(err, ErrNotRegistered):
		return http.StatusNotFound
	case errors.Is(err, registrar.ErrNetworkDisabled), errors.Is(err, errSchedulerStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, registrar.ErrRegistrarNotConfigured), errors.Is(err, registrar.ErrInvalidAddress):
		return http.StatusNotImplemented
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
