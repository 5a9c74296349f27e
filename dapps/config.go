package dapps

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// Configuration of the dapps hosting layer. It is not modified after
// construction.
type Configuration struct {
	Enabled    bool
	DappsPath  string
	ExtraDapps []string `toml:",omitempty"`
}

// DefaultConfig enables hosting with dapps stored under the default data
// directory.
func DefaultConfig() Configuration {
	return Configuration{
		Enabled:   true,
		DappsPath: ReplaceHome(DefaultDataDir(), "$BASE/dapps"),
	}
}

// DefaultDataDir is the default data directory of the node.
func DefaultDataDir() string {
	home, err := homedir.Dir()
	if err != nil || home == "" {
		return ""
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Dappsnode")
	case "windows":
		if appdata := os.Getenv("LOCALAPPDATA"); appdata != "" {
			return filepath.Join(appdata, "Dappsnode")
		}
		return filepath.Join(home, "AppData", "Local", "Dappsnode")
	default:
		return filepath.Join(home, ".local", "share", "dappsnode")
	}
}

// ReplaceHome substitutes $BASE with base and expands $HOME and a leading ~
// to the user's home directory.
func ReplaceHome(base, path string) string {
	path = strings.ReplaceAll(path, "$BASE", base)
	if home, err := homedir.Dir(); err == nil {
		path = strings.ReplaceAll(path, "$HOME", home)
	}
	if expanded, err := homedir.Expand(path); err == nil {
		path = expanded
	}
	return filepath.FromSlash(path)
}
