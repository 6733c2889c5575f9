// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package roster

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/blinklabs-io/gobject/governance"
	"github.com/btcsuite/btcd/btcec/v2"
	"gopkg.in/yaml.v3"
)

// RosterFile represents a masternode list file
type RosterFile struct {
	Masternodes []RosterFileEntry `yaml:"masternodes"`
}

type RosterFileEntry struct {
	// Outpoint is the collateral outpoint in "<txid>-<index>" form
	Outpoint string `yaml:"outpoint"`
	// PubKey is the hex encoded voting key
	PubKey string `yaml:"pubkey"`
	// Enabled defaults to true when omitted
	Enabled *bool `yaml:"enabled"`
}

func NewRosterFileFromFile(path string) (*RosterFile, error) {
	dataFile, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer dataFile.Close()
	return NewRosterFileFromReader(dataFile)
}

// maxRosterSize is the maximum allowed size for a roster file (10 MB)
const maxRosterSize = 10 * 1024 * 1024

func NewRosterFileFromReader(r io.Reader) (*RosterFile, error) {
	f := &RosterFile{}
	data, err := io.ReadAll(io.LimitReader(r, maxRosterSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxRosterSize {
		return nil, fmt.Errorf(
			"roster file exceeds maximum size of %d bytes",
			maxRosterSize,
		)
	}
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, err
	}
	return f, nil
}

// Voters decodes the file entries
func (f *RosterFile) Voters() ([]Masternode, error) {
	ret := make([]Masternode, 0, len(f.Masternodes))
	seen := make(map[string]struct{}, len(f.Masternodes))
	for i, entry := range f.Masternodes {
		mn, err := entry.masternode()
		if err != nil {
			return nil, fmt.Errorf("masternode %d: %w", i, err)
		}
		key := governance.OutpointShort(mn.Outpoint)
		if _, ok := seen[key]; ok {
			return nil, fmt.Errorf("masternode %d: duplicate outpoint %s", i, key)
		}
		seen[key] = struct{}{}
		ret = append(ret, mn)
	}
	return ret, nil
}

func (e RosterFileEntry) masternode() (Masternode, error) {
	var mn Masternode
	if e.Outpoint == "" {
		return mn, errors.New("missing outpoint")
	}
	outpoint, err := governance.ParseOutpoint(e.Outpoint)
	if err != nil {
		return mn, err
	}
	keyBytes, err := hex.DecodeString(e.PubKey)
	if err != nil {
		return mn, fmt.Errorf("decode pubkey: %w", err)
	}
	pubKey, err := btcec.ParsePubKey(keyBytes)
	if err != nil {
		return mn, fmt.Errorf("parse pubkey: %w", err)
	}
	mn.Outpoint = outpoint
	mn.PubKey = pubKey
	mn.Enabled = true
	if e.Enabled != nil {
		mn.Enabled = *e.Enabled
	}
	return mn, nil
}
