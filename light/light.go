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

// Package light defines the light client and light network handles consumed by
// the light registrar.
package light

import (
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/ethdapps/dappsnode/chainspec"
	"github.com/ethdapps/dappsnode/light/ondemand"
)

// Client is the light client's cached view of the chain.
type Client interface {
	Engine() chainspec.Engine
	BestBlockHeader() *types.Header
	LatestEnvInfo() ondemand.EnvInfo
}

// Sync is the light network service.
//
//go:generate mockgen -source=light.go -destination=../tests/mocks/MockLight.go -package=mocks
type Sync interface {
	// WithContext invokes fn with a usable network context. It returns false
	// without invoking fn if networking is disabled or no peer can serve
	// on-demand requests.
	WithContext(fn func(ctx ondemand.Context)) bool
}
