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

package governance

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// ObjectType identifies the kind of governance object carried in the payload
type ObjectType int

const (
	ObjectTypeUnknown  ObjectType = 0
	ObjectTypeProposal ObjectType = 1
	ObjectTypeTrigger  ObjectType = 2
	ObjectTypeWatchdog ObjectType = 3
)

func (t ObjectType) String() string {
	switch t {
	case ObjectTypeProposal:
		return "proposal"
	case ObjectTypeTrigger:
		return "trigger"
	case ObjectTypeWatchdog:
		return "watchdog"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// TriggerSuperblock is the only known trigger subtype
const TriggerSuperblock = 1000

// Signal is the axis a vote is cast on
type Signal int32

const (
	SignalNone     Signal = 0
	SignalFunding  Signal = 1
	SignalValid    Signal = 2
	SignalDelete   Signal = 3
	SignalEndorsed Signal = 4

	// SignalMaxSupported is the highest signal this node tallies
	SignalMaxSupported = SignalEndorsed
	// SignalMaxKnown is the highest signal a well-formed vote may carry.
	// Signals 5-24 are reserved no-ops and 25-35 are custom.
	SignalMaxKnown Signal = 35
)

func (s Signal) String() string {
	switch s {
	case SignalNone:
		return "none"
	case SignalFunding:
		return "funding"
	case SignalValid:
		return "valid"
	case SignalDelete:
		return "delete"
	case SignalEndorsed:
		return "endorsed"
	default:
		return "signal" + strconv.Itoa(int(s))
	}
}

// ParseSignal converts a signal name as printed by String
func ParseSignal(name string) (Signal, error) {
	switch strings.ToLower(name) {
	case "funding":
		return SignalFunding, nil
	case "valid":
		return SignalValid, nil
	case "delete":
		return SignalDelete, nil
	case "endorsed":
		return SignalEndorsed, nil
	}
	return SignalNone, fmt.Errorf("unknown vote signal: %q", name)
}

// Outcome is the position taken by a vote
type Outcome int32

const (
	OutcomeNone    Outcome = 0
	OutcomeYes     Outcome = 1
	OutcomeNo      Outcome = 2
	OutcomeAbstain Outcome = 3
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeYes:
		return "yes"
	case OutcomeNo:
		return "no"
	case OutcomeAbstain:
		return "abstain"
	default:
		return "outcome" + strconv.Itoa(int(o))
	}
}

// ParseOutcome converts an outcome name as printed by String
func ParseOutcome(name string) (Outcome, error) {
	switch strings.ToLower(name) {
	case "yes":
		return OutcomeYes, nil
	case "no":
		return OutcomeNo, nil
	case "abstain":
		return OutcomeAbstain, nil
	}
	return OutcomeNone, fmt.Errorf("unknown vote outcome: %q", name)
}

// PeerID names the remote peer a message arrived from. The empty PeerID is
// used for locally originated work.
type PeerID string

// OutpointShort renders a voter outpoint as "<txid>-<index>"
func OutpointShort(op wire.OutPoint) string {
	return op.Hash.String() + "-" + strconv.FormatUint(uint64(op.Index), 10)
}

// ParseOutpoint accepts both "<txid>-<index>" and "<txid>:<index>"
func ParseOutpoint(s string) (wire.OutPoint, error) {
	sep := strings.LastIndexAny(s, "-:")
	if sep < 0 {
		return wire.OutPoint{}, fmt.Errorf("invalid outpoint %q", s)
	}
	hash, err := chainhash.NewHashFromStr(s[:sep])
	if err != nil {
		return wire.OutPoint{}, fmt.Errorf("invalid outpoint %q: %w", s, err)
	}
	index, err := strconv.ParseUint(s[sep+1:], 10, 32)
	if err != nil {
		return wire.OutPoint{}, fmt.Errorf("invalid outpoint %q: %w", s, err)
	}
	return wire.OutPoint{Hash: *hash, Index: uint32(index)}, nil
}
