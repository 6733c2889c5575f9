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
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

var testNow = time.Unix(1_700_000_000, 0)

func testOutpoint(n byte) wire.OutPoint {
	return wire.OutPoint{
		Hash:  chainhash.Hash{n, 0xaa},
		Index: uint32(n),
	}
}

func newTestKey(t *testing.T) *btcec.PrivateKey {
	t.Helper()
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return key
}

// mockRoster is a Roster backed by an ordered list of voters
type mockRoster struct {
	keys         map[wire.OutPoint]*btcec.PrivateKey
	registered   map[wire.OutPoint][]chainhash.Hash
	voters       []wire.OutPoint
	oldVoters    []wire.OutPoint
	requests     []wire.OutPoint
	enabled      int
	generation   uint64
	registerFail bool
	mu           sync.Mutex
}

func newMockRoster() *mockRoster {
	return &mockRoster{
		keys:       make(map[wire.OutPoint]*btcec.PrivateKey),
		registered: make(map[wire.OutPoint][]chainhash.Hash),
		enabled:    -1,
	}
}

// addVoter adds a voter with a fresh key and returns the key
func (r *mockRoster) addVoter(t *testing.T, voter wire.OutPoint) *btcec.PrivateKey {
	t.Helper()
	key := newTestKey(t)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.voters = append(r.voters, voter)
	r.keys[voter] = key
	return key
}

func (r *mockRoster) removeVoter(voter wire.OutPoint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, tmpVoter := range r.voters {
		if tmpVoter == voter {
			r.oldVoters = append([]wire.OutPoint(nil), r.voters...)
			r.voters = append(r.voters[:i:i], r.voters[i+1:]...)
			r.generation++
			break
		}
	}
	delete(r.keys, voter)
}

// reverse reassigns every index, keeping the old assignment
func (r *mockRoster) reverse() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.oldVoters = append([]wire.OutPoint(nil), r.voters...)
	for i, j := 0, len(r.voters)-1; i < j; i, j = i+1, j-1 {
		r.voters[i], r.voters[j] = r.voters[j], r.voters[i]
	}
	r.generation++
}

func (r *mockRoster) IndexGeneration() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

func (r *mockRoster) ResolveIndex(voter wire.OutPoint) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, tmpVoter := range r.voters {
		if tmpVoter == voter {
			return i, true
		}
	}
	return -1, false
}

func (r *mockRoster) IdentityForIndex(index int) (wire.OutPoint, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if index < 0 || index >= len(r.voters) {
		return wire.OutPoint{}, false
	}
	return r.voters[index], true
}

func (r *mockRoster) IdentityForOldIndex(index int) (wire.OutPoint, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if index < 0 || index >= len(r.oldVoters) {
		return wire.OutPoint{}, false
	}
	return r.oldVoters[index], true
}

func (r *mockRoster) Has(voter wire.OutPoint) bool {
	_, ok := r.ResolveIndex(voter)
	return ok
}

func (r *mockRoster) VoterKey(voter wire.OutPoint) (*btcec.PublicKey, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.keys[voter]
	if !ok {
		return nil, false
	}
	return key.PubKey(), true
}

func (r *mockRoster) CountEnabled() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.enabled >= 0 {
		return r.enabled
	}
	return len(r.voters)
}

func (r *mockRoster) RegisterGovernanceVote(
	voter wire.OutPoint,
	objectHash chainhash.Hash,
) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.registerFail {
		return false
	}
	r.registered[voter] = append(r.registered[voter], objectHash)
	return true
}

func (r *mockRoster) RequestIdentity(peer PeerID, voter wire.OutPoint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, voter)
}

type mockChainTx struct {
	tx        *wire.MsgTx
	blockHash *chainhash.Hash
}

// mockChain is a ChainIndex over an in-memory transaction set
type mockChain struct {
	txs          map[chainhash.Hash]mockChainTx
	heights      map[chainhash.Hash]int32
	instantLocks map[chainhash.Hash]int
	// fetchErrs fails lookups of individual transactions
	fetchErrs map[chainhash.Hash]error
	tip       int32
	mu        sync.Mutex
}

func newMockChain() *mockChain {
	return &mockChain{
		txs:          make(map[chainhash.Hash]mockChainTx),
		heights:      make(map[chainhash.Hash]int32),
		instantLocks: make(map[chainhash.Hash]int),
		fetchErrs:    make(map[chainhash.Hash]error),
	}
}

// addTx adds tx, confirmed at height when height is positive
func (c *mockChain) addTx(tx *wire.MsgTx, height int32) chainhash.Hash {
	c.mu.Lock()
	defer c.mu.Unlock()
	txHash := tx.TxHash()
	entry := mockChainTx{tx: tx}
	if height > 0 {
		blockHash := chainhash.Hash{0xbb, byte(height), byte(height >> 8)}
		c.heights[blockHash] = height
		entry.blockHash = &blockHash
	}
	c.txs[txHash] = entry
	return txHash
}

func (c *mockChain) FetchTransaction(
	hash chainhash.Hash,
) (*wire.MsgTx, *chainhash.Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err, ok := c.fetchErrs[hash]; ok {
		return nil, nil, err
	}
	entry, ok := c.txs[hash]
	if !ok {
		return nil, nil, ErrTransactionNotFound
	}
	return entry.tx, entry.blockHash, nil
}

func (c *mockChain) InstantConfirmationCount(hash chainhash.Hash) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.instantLocks[hash]
}

func (c *mockChain) ChainTipHeight() (int32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tip, nil
}

func (c *mockChain) BlockHeight(blockHash chainhash.Hash) (int32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	height, ok := c.heights[blockHash]
	return height, ok
}

type mockRelay struct {
	objects []chainhash.Hash
	votes   []chainhash.Hash
	mu      sync.Mutex
}

func (r *mockRelay) RelayObject(hash chainhash.Hash) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.objects = append(r.objects, hash)
}

func (r *mockRelay) RelayVote(hash chainhash.Hash) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.votes = append(r.votes, hash)
}

func (r *mockRelay) voteCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.votes)
}

type mockInvalidVotes struct {
	votes []*Vote
}

func (m *mockInvalidVotes) AddInvalidVote(vote *Vote) {
	m.votes = append(m.votes, vote)
}

// testServices returns services with a controllable clock
func testServices(roster *mockRoster, chain *mockChain) (*Services, *time.Time) {
	now := testNow
	svc := &Services{
		Roster:       roster,
		Chain:        chain,
		Relay:        &mockRelay{},
		InvalidVotes: &mockInvalidVotes{},
		Params:       &MainNetParams,
		Now: func() time.Time {
			return now
		},
	}
	return svc, &now
}

func proposalData(t *testing.T) string {
	t.Helper()
	data, err := EncodePayload(
		"proposal",
		map[string]any{
			"type":            1,
			"name":            "test-proposal",
			"start_epoch":     1_700_000_000,
			"end_epoch":       1_702_000_000,
			"payment_address": "yXyz",
			"payment_amount":  12.5,
			"url":             "https://example.com/proposal",
		},
	)
	require.NoError(t, err)
	return data
}

func triggerData(t *testing.T) string {
	t.Helper()
	data, err := EncodePayload(
		"trigger",
		map[string]any{
			"type":               2,
			"event_block_height": 1000,
			"payment_addresses":  "yXyz|yAbc",
			"payment_amounts":    "1.0|2.0",
		},
	)
	require.NoError(t, err)
	return data
}

func newTestProposal(t *testing.T) *Object {
	t.Helper()
	return NewObject(
		chainhash.Hash{},
		1,
		testNow.Unix()-3600,
		chainhash.Hash{0xcc},
		proposalData(t),
	)
}

func signedVote(
	t *testing.T,
	key *btcec.PrivateKey,
	voter wire.OutPoint,
	parent chainhash.Hash,
	signal Signal,
	outcome Outcome,
	timestamp int64,
) *Vote {
	t.Helper()
	vote := NewVote(voter, parent, signal, outcome, timestamp)
	require.NoError(t, vote.Sign(key, key.PubKey()))
	return vote
}
