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

// Package chainspec loads the consensus engine parameters of a chain from a
// JSON chain specification.
package chainspec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	ErrNoEngine     = errors.New("chain spec has no engine")
	ErrInvalidNonce = errors.New("invalid account start nonce")
)

// startNonceParam is consumed by the engine itself and never shows up in the
// additional parameters.
const startNonceParam = "accountStartNonce"

// Engine exposes the consensus engine rules the registrar layer consults.
type Engine interface {
	Name() string
	AccountStartNonce() uint64
	AdditionalParams() map[string]string
}

// Spec is a parsed chain specification. It is immutable once loaded.
type Spec struct {
	name       string
	engine     string
	startNonce uint64
	params     map[string]string
}

var _ Engine = (*Spec)(nil)

// wire shape of the chain spec file
type jsonSpec struct {
	Name   string                     `json:"name"`
	Engine map[string]json.RawMessage `json:"engine"`
	Params map[string]interface{}     `json:"params"`
}

// wire shape of an engine section, e.g. engine.Ethash
type jsonEngine struct {
	Params map[string]interface{} `json:"params"`
}

// Load reads a chain spec from the given file.
func Load(path string) (*Spec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	spec, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("chain spec %s: %w", path, err)
	}
	return spec, nil
}

// Parse decodes a chain spec. The additional parameters are the common params
// overlaid with the params of the engine section, where Parity-style specs keep
// the registrar. Values are kept as strings, and the account start nonce is
// decoded as a hex quantity (a plain decimal is accepted too).
func Parse(r io.Reader) (*Spec, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw jsonSpec
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if len(raw.Engine) == 0 {
		return nil, ErrNoEngine
	}
	spec := &Spec{
		name:   raw.Name,
		params: make(map[string]string, len(raw.Params)),
	}
	var engine jsonEngine
	for name, section := range raw.Engine {
		spec.engine = name

		d := json.NewDecoder(bytes.NewReader(section))
		d.UseNumber()
		if err := d.Decode(&engine); err != nil {
			return nil, fmt.Errorf("engine %s: %w", name, err)
		}
	}
	for key, value := range raw.Params {
		str, ok := paramString(value)
		if !ok {
			continue
		}
		if key == startNonceParam {
			nonce, err := parseQuantity(str)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidNonce, err)
			}
			spec.startNonce = nonce
			continue
		}
		spec.params[key] = str
	}
	for key, value := range engine.Params {
		if str, ok := paramString(value); ok {
			spec.params[key] = str
		}
	}
	return spec, nil
}

// paramString renders a scalar param value. Objects and arrays are skipped.
func paramString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	}
	return "", false
}

func parseQuantity(s string) (uint64, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return hexutil.DecodeUint64(s)
	}
	return strconv.ParseUint(s, 10, 64)
}

// Foundation returns the spec of the Ethereum main network, restricted to the
// parameters this node needs.
func Foundation() *Spec {
	return &Spec{
		name:   "Foundation",
		engine: "Ethash",
		params: map[string]string{
			"registrar": "0xe3389675d0338462dC76C6f9A3e432550c36A142",
			"networkID": "0x1",
		},
	}
}

func (s *Spec) Name() string              { return s.name }
func (s *Spec) EngineName() string        { return s.engine }
func (s *Spec) AccountStartNonce() uint64 { return s.startNonce }

// AdditionalParams returns a copy of the engine parameters that have no
// dedicated accessor.
func (s *Spec) AdditionalParams() map[string]string {
	return maps.Clone(s.params)
}
