package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"github.com/ethdapps/dappsnode/dapps"
)

var errInvalidSigner = errors.New("invalid signer address")

// HTTPConfig is the listener serving the dapps middleware.
type HTTPConfig struct {
	Addr       string
	CorsDomain []string `toml:",omitempty"`
}

// Config is the node configuration as read from a TOML file.
type Config struct {
	Chainspec string `toml:",omitempty"`
	Light     bool
	RPC       []string
	WS        string `toml:",omitempty"`
	Workers   int
	Signer    string `toml:",omitempty"`

	HTTP  HTTPConfig
	Dapps dapps.Configuration
}

func defaultConfig() Config {
	return Config{
		RPC:   []string{"http://127.0.0.1:8545"},
		HTTP:  HTTPConfig{Addr: "127.0.0.1:8080", CorsDomain: []string{"*"}},
		Dapps: dapps.DefaultConfig(),
	}
}

func loadConfig(path string, cfg *Config) error {
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return fmt.Errorf("%s: unknown configuration keys %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// makeConfig layers the config file and then the command line flags over the
// defaults.
func makeConfig(ctx *cli.Context) (Config, error) {
	cfg := defaultConfig()
	if file := ctx.String(configFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			return Config{}, err
		}
	}
	if ctx.IsSet(chainspecFlag.Name) {
		cfg.Chainspec = ctx.String(chainspecFlag.Name)
	}
	if ctx.IsSet(lightFlag.Name) {
		cfg.Light = ctx.Bool(lightFlag.Name)
	}
	if ctx.IsSet(rpcFlag.Name) {
		cfg.RPC = ctx.StringSlice(rpcFlag.Name)
	}
	if ctx.IsSet(wsFlag.Name) {
		cfg.WS = ctx.String(wsFlag.Name)
	}
	if ctx.IsSet(workersFlag.Name) {
		cfg.Workers = ctx.Int(workersFlag.Name)
	}
	if ctx.IsSet(signerFlag.Name) {
		cfg.Signer = ctx.String(signerFlag.Name)
	}
	if ctx.IsSet(httpAddrFlag.Name) {
		cfg.HTTP.Addr = ctx.String(httpAddrFlag.Name)
	}
	if ctx.IsSet(httpCorsFlag.Name) {
		cfg.HTTP.CorsDomain = splitAndTrim(ctx.String(httpCorsFlag.Name))
	}
	if ctx.IsSet(dappsOffFlag.Name) {
		cfg.Dapps.Enabled = !ctx.Bool(dappsOffFlag.Name)
	}
	if ctx.IsSet(dappsPathFlag.Name) {
		cfg.Dapps.DappsPath = dapps.ReplaceHome(dapps.DefaultDataDir(), ctx.String(dappsPathFlag.Name))
	}
	if ctx.IsSet(dappsExtraFlag.Name) {
		cfg.Dapps.ExtraDapps = ctx.StringSlice(dappsExtraFlag.Name)
	}
	if cfg.Signer != "" && !common.IsHexAddress(cfg.Signer) {
		return Config{}, fmt.Errorf("%w: %q", errInvalidSigner, cfg.Signer)
	}
	return cfg, nil
}

func dumpConfig(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	return writeConfig(ctx.App.Writer, cfg)
}

func writeConfig(w io.Writer, cfg Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}

// splitAndTrim splits a comma separated list and drops empty entries.
func splitAndTrim(input string) []string {
	var out []string
	for _, r := range strings.Split(input, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
