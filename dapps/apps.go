package dapps

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/ethereum/go-ethereum/log"
	jsoniter "github.com/json-iterator/go"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// manifestFile optionally describes a local dapp.
const manifestFile = "manifest.json"

// LocalApp is a dapp served from the local filesystem.
type LocalApp struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version,omitempty"`
	Author      string `json:"author,omitempty"`
	Local       bool   `json:"local"`

	path string
}

type manifest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
	Author      string `json:"author"`
}

// discoverApps lists every sub-directory of dappsPath plus each extra dapp
// directory. Extra dapps take precedence over same-named ones in dappsPath.
func discoverApps(dappsPath string, extraDapps []string) []LocalApp {
	apps := make(map[string]LocalApp)

	if dappsPath != "" {
		entries, err := os.ReadDir(dappsPath)
		if err != nil {
			log.Debug("Dapps directory unavailable", "path", dappsPath, "err", err)
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			app := loadApp(filepath.Join(dappsPath, entry.Name()))
			apps[app.ID] = app
		}
	}
	for _, dir := range extraDapps {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			log.Warn("Ignoring extra dapp", "path", dir, "err", err)
			continue
		}
		app := loadApp(dir)
		apps[app.ID] = app
	}

	list := make([]LocalApp, 0, len(apps))
	for _, app := range apps {
		list = append(list, app)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

func loadApp(dir string) LocalApp {
	app := LocalApp{
		ID:    filepath.Base(dir),
		Name:  filepath.Base(dir),
		Local: true,
		path:  dir,
	}
	blob, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return app
	}
	var m manifest
	if err := codec.Unmarshal(blob, &m); err != nil {
		log.Warn("Invalid dapp manifest", "path", dir, "err", err)
		return app
	}
	if m.Name != "" {
		app.Name = m.Name
	}
	app.Description, app.Version, app.Author = m.Description, m.Version, m.Author
	return app
}
