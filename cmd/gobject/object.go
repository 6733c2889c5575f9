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

package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/blinklabs-io/gobject/governance"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"gopkg.in/yaml.v3"
)

// objectFile describes a governance object in YAML or JSON. The payload is
// given either as hex data or as an object that is wrapped under name.
type objectFile struct {
	Payload        map[string]any `yaml:"payload"`
	ParentHash     string         `yaml:"parentHash"`
	CollateralHash string         `yaml:"collateralHash"`
	Data           string         `yaml:"data"`
	Name           string         `yaml:"name"`
	Submitter      string         `yaml:"submitter"`
	Signature      string         `yaml:"signature"`
	Time           int64          `yaml:"time"`
	Revision       int32          `yaml:"revision"`
}

func loadObjectFile(path string) (*governance.Object, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read object file: %w", err)
	}
	var f objectFile
	if err := yaml.Unmarshal(buf, &f); err != nil {
		return nil, fmt.Errorf("parse object file: %w", err)
	}
	return f.object()
}

func parseHash(name string, value string) (chainhash.Hash, error) {
	if value == "" {
		return chainhash.Hash{}, nil
	}
	hash, err := chainhash.NewHashFromStr(value)
	if err != nil {
		return chainhash.Hash{}, fmt.Errorf("invalid %s: %w", name, err)
	}
	return *hash, nil
}

func (f *objectFile) object() (*governance.Object, error) {
	parentHash, err := parseHash("parentHash", f.ParentHash)
	if err != nil {
		return nil, err
	}
	collateralHash, err := parseHash("collateralHash", f.CollateralHash)
	if err != nil {
		return nil, err
	}
	data := f.Data
	if f.Payload != nil {
		if data != "" {
			return nil, errors.New("only one of data and payload may be given")
		}
		name := f.Name
		if name == "" {
			name = "proposal"
		}
		data, err = governance.EncodePayload(name, f.Payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
	}
	revision := f.Revision
	if revision == 0 {
		revision = 1
	}
	obj := governance.NewObject(parentHash, revision, f.Time, collateralHash, data)
	if f.Submitter != "" {
		submitter, err := governance.ParseOutpoint(f.Submitter)
		if err != nil {
			return nil, fmt.Errorf("invalid submitter: %w", err)
		}
		obj.SetSubmitter(submitter)
	}
	if f.Signature != "" {
		sig, err := hex.DecodeString(f.Signature)
		if err != nil {
			return nil, fmt.Errorf("invalid signature: %w", err)
		}
		obj.SetSignature(sig)
	}
	return obj, nil
}
