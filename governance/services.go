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
	"io"
	"log/slog"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// Roster is the masternode list as seen by governance. Indexes are dense
// and may be reassigned by the roster; IdentityForOldIndex resolves indexes
// handed out before the most recent reassignment.
type Roster interface {
	ResolveIndex(voter wire.OutPoint) (int, bool)
	IdentityForIndex(index int) (wire.OutPoint, bool)
	IdentityForOldIndex(index int) (wire.OutPoint, bool)
	// IndexGeneration changes whenever existing indexes are reassigned
	IndexGeneration() uint64
	Has(voter wire.OutPoint) bool
	VoterKey(voter wire.OutPoint) (*btcec.PublicKey, bool)
	CountEnabled() int
	RegisterGovernanceVote(voter wire.OutPoint, objectHash chainhash.Hash) bool
	RequestIdentity(peer PeerID, voter wire.OutPoint)
}

// ChainIndex gives read access to transactions and the active chain
type ChainIndex interface {
	// FetchTransaction returns the transaction and the hash of the block
	// containing it, or a nil block hash for unconfirmed transactions
	FetchTransaction(hash chainhash.Hash) (*wire.MsgTx, *chainhash.Hash, error)
	InstantConfirmationCount(hash chainhash.Hash) int
	ChainTipHeight() (int32, error)
	// BlockHeight returns the height of a block on the active chain
	BlockHeight(blockHash chainhash.Hash) (int32, bool)
}

// Relay gossips inventory to the network
type Relay interface {
	RelayObject(hash chainhash.Hash)
	RelayVote(hash chainhash.Hash)
}

// InvalidVoteRecorder keeps votes that failed validation for diagnostics
type InvalidVoteRecorder interface {
	AddInvalidVote(vote *Vote)
}

// Services bundles the collaborators governance operations depend on
type Services struct {
	Roster       Roster
	Chain        ChainIndex
	Relay        Relay
	InvalidVotes InvalidVoteRecorder
	Params       *Params
	Logger       *slog.Logger
	Metrics      *Metrics
	// Now overrides the wall clock, used by tests
	Now func() time.Time
	// RateChecks enables the per voter and signal update interval
	RateChecks bool
}

func (s *Services) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// discardLogger throws away logs so we don't have to add guards around
// every log operation
var discardLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

func (s *Services) logger() *slog.Logger {
	if s.Logger == nil {
		return discardLogger
	}
	return s.Logger
}

func (s *Services) params() *Params {
	if s.Params == nil {
		return &MainNetParams
	}
	return s.Params
}
