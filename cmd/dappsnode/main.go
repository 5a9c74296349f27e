// dappsnode serves dapps resolved through the on-chain registrar of a full or
// light Ethereum node.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	"github.com/fatih/color"
	"github.com/rs/cors"
	"github.com/urfave/cli/v2"

	"github.com/ethdapps/dappsnode/chainspec"
	"github.com/ethdapps/dappsnode/dapps"
	"github.com/ethdapps/dappsnode/fetch"
	"github.com/ethdapps/dappsnode/light/rpcpeer"
	"github.com/ethdapps/dappsnode/reactor"
	"github.com/ethdapps/dappsnode/registrar"
	"github.com/ethdapps/dappsnode/signer"
)

const (
	syncStatusTimeout = 2 * time.Second
	shutdownTimeout   = 5 * time.Second
)

var (
	configFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value: 3,
	}
	chainspecFlag = &cli.StringFlag{
		Name:  "chainspec",
		Usage: "Chain specification file (default: foundation)",
	}
	lightFlag = &cli.BoolFlag{
		Name:  "light",
		Usage: "Resolve dapps through light peers instead of a full node",
	}
	rpcFlag = &cli.StringSliceFlag{
		Name:  "rpc",
		Usage: "JSON-RPC endpoint of the full node, or of each light peer",
	}
	wsFlag = &cli.StringFlag{
		Name:  "ws",
		Usage: "Websocket endpoint followed for new heads in light mode",
	}
	workersFlag = &cli.IntFlag{
		Name:  "workers",
		Usage: "Number of background workers (default: number of CPUs)",
	}
	signerFlag = &cli.StringFlag{
		Name:  "signer",
		Usage: "Signer account advertised to dapps",
	}
	httpAddrFlag = &cli.StringFlag{
		Name:  "http.addr",
		Usage: "HTTP listening address",
	}
	httpCorsFlag = &cli.StringFlag{
		Name:  "http.corsdomain",
		Usage: "Comma separated list of domains from which to accept cross origin requests",
	}
	dappsOffFlag = &cli.BoolFlag{
		Name:  "dapps.off",
		Usage: "Disable dapps hosting",
	}
	dappsPathFlag = &cli.StringFlag{
		Name:  "dapps.path",
		Usage: "Directory of local dapps ($BASE expands to the data directory)",
	}
	dappsExtraFlag = &cli.StringSliceFlag{
		Name:  "dapps.extra",
		Usage: "Additional local dapp directories",
	}
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "dappsnode",
		Usage: "serve registered dapps from an Ethereum node",
		Flags: []cli.Flag{
			configFileFlag,
			verbosityFlag,
			chainspecFlag,
			lightFlag,
			rpcFlag,
			wsFlag,
			workersFlag,
			signerFlag,
			httpAddrFlag,
			httpCorsFlag,
			dappsOffFlag,
			dappsPathFlag,
			dappsExtraFlag,
		},
		Before: func(ctx *cli.Context) error {
			handler := log.NewTerminalHandlerWithLevel(os.Stderr, log.FromLegacyLevel(ctx.Int(verbosityFlag.Name)), !color.NoColor)
			log.SetDefault(log.NewLogger(handler))
			return nil
		},
		Action: run,
		Commands: []*cli.Command{
			{
				Name:   "dumpconfig",
				Usage:  "Show configuration values",
				Action: dumpConfig,
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	spec := chainspec.Foundation()
	if cfg.Chainspec != "" {
		if spec, err = chainspec.Load(cfg.Chainspec); err != nil {
			return err
		}
	}
	log.Info("Loaded chain specification", "name", spec.Name(), "engine", spec.EngineName(), "hosting", dapps.Compiled())

	runCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	remote := reactor.NewRemote(cfg.Workers)
	defer remote.Stop()

	accounts := signer.New(common.HexToAddress(cfg.Signer), 0)
	defer accounts.Stop()

	deps, err := makeDependencies(runCtx, cfg, spec, remote, accounts)
	if err != nil {
		return err
	}

	middleware, err := dapps.New(cfg.Dapps, deps)
	if err != nil {
		return err
	}
	if middleware == nil {
		log.Info("Dapps hosting disabled, nothing to serve")
		return nil
	}
	return serve(runCtx, cfg.HTTP, middleware)
}

// makeDependencies connects to the chain and assembles the services the
// dapps middleware is built from.
func makeDependencies(ctx context.Context, cfg Config, spec *chainspec.Spec, remote *reactor.Remote, accounts dapps.Signer) (dapps.Dependencies, error) {
	if len(cfg.RPC) == 0 {
		return dapps.Dependencies{}, errors.New("no JSON-RPC endpoint configured")
	}
	deps := dapps.Dependencies{
		Remote: remote,
		Fetch:  fetch.NewClient(0, 0),
		Signer: accounts,
	}
	if !cfg.Light {
		client, err := ethclient.DialContext(ctx, cfg.RPC[0])
		if err != nil {
			return dapps.Dependencies{}, err
		}
		deps.ContractClient = registrar.NewFullRegistrar(registrar.NewCallerClient(client, spec))
		deps.SyncStatus = func() bool {
			ctx, cancel := context.WithTimeout(ctx, syncStatusTimeout)
			defer cancel()

			progress, err := client.SyncProgress(ctx)
			return err == nil && progress != nil
		}
		log.Info("Resolving dapps through full node", "rpc", cfg.RPC[0])
		return deps, nil
	}

	network := rpcpeer.NewNetwork(remote, 0)
	for _, url := range cfg.RPC {
		client, err := ethclient.DialContext(ctx, url)
		if err != nil {
			return dapps.Dependencies{}, err
		}
		network.AddPeer(url, client)
	}
	client := rpcpeer.NewClient(spec)
	network.OnHead(func(header *types.Header) { client.SetHead(header) })
	go network.Run(ctx, 0)

	if cfg.WS != "" {
		heads := rpcpeer.NewHeadSubscriber(cfg.WS, 0)
		go client.Follow(ctx, heads.SubscribeNewHeads(ctx))
	}
	deps.ContractClient = registrar.NewLightRegistrar(client, network, network)
	deps.SyncStatus = func() bool { return client.BestBlockHeader() == nil }

	log.Info("Resolving dapps through light peers", "peers", len(cfg.RPC), "ws", cfg.WS)
	return deps, nil
}

func serve(ctx context.Context, cfg HTTPConfig, handler http.Handler) error {
	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CorsDomain,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		MaxAge:         600,
	})
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           c.Handler(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	log.Info("Dapps server started", "addr", cfg.Addr, "cors", cfg.CorsDomain)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Info("Shutting down dapps server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
