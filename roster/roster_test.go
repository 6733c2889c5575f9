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

package roster_test

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/blinklabs-io/gobject/event"
	"github.com/blinklabs-io/gobject/governance"
	"github.com/blinklabs-io/gobject/roster"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func testOutpoint(seed byte, index uint32) wire.OutPoint {
	var hash chainhash.Hash
	hash[0] = seed
	return wire.OutPoint{Hash: hash, Index: index}
}

func testMasternode(t *testing.T, outpoint wire.OutPoint) roster.Masternode {
	t.Helper()
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return roster.Masternode{
		Outpoint: outpoint,
		PubKey:   key.PubKey(),
		Enabled:  true,
	}
}

func testPubKeyHex(t *testing.T) string {
	t.Helper()
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return hex.EncodeToString(key.PubKey().SerializeCompressed())
}

func TestRosterFileFromReader(t *testing.T) {
	first := testOutpoint(1, 0)
	second := testOutpoint(2, 1)
	data := fmt.Sprintf(`masternodes:
  - outpoint: %s
    pubkey: %s
  - outpoint: %s
    pubkey: %s
    enabled: false
`,
		governance.OutpointShort(first),
		testPubKeyHex(t),
		governance.OutpointShort(second),
		testPubKeyHex(t),
	)
	f, err := roster.NewRosterFileFromReader(strings.NewReader(data))
	require.NoError(t, err)
	masternodes, err := f.Voters()
	require.NoError(t, err)
	require.Len(t, masternodes, 2)
	assert.Equal(t, first, masternodes[0].Outpoint)
	assert.True(t, masternodes[0].Enabled)
	assert.Equal(t, second, masternodes[1].Outpoint)
	assert.False(t, masternodes[1].Enabled)
	assert.NotNil(t, masternodes[1].PubKey)
}

func TestRosterFileInvalidEntries(t *testing.T) {
	outpoint := governance.OutpointShort(testOutpoint(1, 0))
	pubKey := testPubKeyHex(t)
	testDefs := []struct {
		name  string
		entry roster.RosterFileEntry
	}{
		{
			name:  "missing outpoint",
			entry: roster.RosterFileEntry{PubKey: pubKey},
		},
		{
			name:  "bad outpoint",
			entry: roster.RosterFileEntry{Outpoint: "nothex-0", PubKey: pubKey},
		},
		{
			name:  "bad pubkey hex",
			entry: roster.RosterFileEntry{Outpoint: outpoint, PubKey: "zz"},
		},
		{
			name:  "bad pubkey",
			entry: roster.RosterFileEntry{Outpoint: outpoint, PubKey: "0201"},
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			f := &roster.RosterFile{
				Masternodes: []roster.RosterFileEntry{testDef.entry},
			}
			_, err := f.Voters()
			require.Error(t, err)
		})
	}
	t.Run("duplicate", func(t *testing.T) {
		entry := roster.RosterFileEntry{Outpoint: outpoint, PubKey: pubKey}
		f := &roster.RosterFile{
			Masternodes: []roster.RosterFileEntry{entry, entry},
		}
		_, err := f.Voters()
		require.ErrorContains(t, err, "duplicate outpoint")
	})
}

func TestRosterFileTooLarge(t *testing.T) {
	data := strings.Repeat("#", 10*1024*1024+1)
	_, err := roster.NewRosterFileFromReader(strings.NewReader(data))
	require.ErrorContains(t, err, "exceeds maximum size")
}

func TestRosterIndexes(t *testing.T) {
	r := roster.New()
	mnC := testMasternode(t, testOutpoint(3, 0))
	mnA := testMasternode(t, testOutpoint(1, 0))
	mnB := testMasternode(t, testOutpoint(1, 1))
	r.Update([]roster.Masternode{mnC, mnA, mnB})
	assert.Equal(t, 3, r.Len())
	for i, mn := range []roster.Masternode{mnA, mnB, mnC} {
		idx, ok := r.ResolveIndex(mn.Outpoint)
		require.True(t, ok)
		assert.Equal(t, i, idx)
		outpoint, ok := r.IdentityForIndex(i)
		require.True(t, ok)
		assert.Equal(t, mn.Outpoint, outpoint)
	}
	// New voters go to the end without disturbing existing indexes
	mnFirst := testMasternode(t, testOutpoint(0, 0))
	r.Add(mnFirst)
	idx, ok := r.ResolveIndex(mnFirst.Outpoint)
	require.True(t, ok)
	assert.Equal(t, 3, idx)
	idx, ok = r.ResolveIndex(mnA.Outpoint)
	require.True(t, ok)
	assert.Equal(t, 0, idx)
	_, ok = r.ResolveIndex(testOutpoint(9, 9))
	assert.False(t, ok)
	_, ok = r.IdentityForIndex(4)
	assert.False(t, ok)
	_, ok = r.IdentityForIndex(-1)
	assert.False(t, ok)
}

func TestRosterReindexKeepsOldMapping(t *testing.T) {
	r := roster.New()
	mnA := testMasternode(t, testOutpoint(1, 0))
	mnB := testMasternode(t, testOutpoint(2, 0))
	mnC := testMasternode(t, testOutpoint(3, 0))
	r.Update([]roster.Masternode{mnA, mnB, mnC})
	_, ok := r.IdentityForOldIndex(0)
	assert.False(t, ok)
	require.True(t, r.Remove(mnA.Outpoint))
	assert.False(t, r.Remove(mnA.Outpoint))
	assert.False(t, r.Has(mnA.Outpoint))
	idx, ok := r.ResolveIndex(mnC.Outpoint)
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	outpoint, ok := r.IdentityForOldIndex(2)
	require.True(t, ok)
	assert.Equal(t, mnC.Outpoint, outpoint)
	outpoint, ok = r.IdentityForOldIndex(0)
	require.True(t, ok)
	assert.Equal(t, mnA.Outpoint, outpoint)
}

func TestRosterEnabledAndKeys(t *testing.T) {
	r := roster.New()
	mnA := testMasternode(t, testOutpoint(1, 0))
	mnB := testMasternode(t, testOutpoint(2, 0))
	mnB.Enabled = false
	r.Update([]roster.Masternode{mnA, mnB})
	assert.Equal(t, 1, r.CountEnabled())
	require.True(t, r.SetEnabled(mnB.Outpoint, true))
	assert.Equal(t, 2, r.CountEnabled())
	assert.False(t, r.SetEnabled(testOutpoint(9, 0), true))
	key, ok := r.VoterKey(mnA.Outpoint)
	require.True(t, ok)
	assert.True(t, key.IsEqual(mnA.PubKey))
	_, ok = r.VoterKey(testOutpoint(9, 0))
	assert.False(t, ok)
}

func TestRosterRegisterGovernanceVote(t *testing.T) {
	r := roster.New()
	mnA := testMasternode(t, testOutpoint(1, 0))
	r.Update([]roster.Masternode{mnA})
	objectHash := chainhash.DoubleHashH([]byte("object"))
	assert.True(t, r.RegisterGovernanceVote(mnA.Outpoint, objectHash))
	assert.True(t, r.RegisterGovernanceVote(mnA.Outpoint, objectHash))
	assert.Equal(t, 1, r.GovernanceVoteCount(mnA.Outpoint))
	assert.False(t, r.RegisterGovernanceVote(testOutpoint(9, 0), objectHash))
	assert.Equal(t, 0, r.GovernanceVoteCount(testOutpoint(9, 0)))
	// Updates keep registrations of voters that stay on the roster
	r.Update([]roster.Masternode{mnA, testMasternode(t, testOutpoint(2, 0))})
	assert.Equal(t, 1, r.GovernanceVoteCount(mnA.Outpoint))
}

func TestRosterChangeEvents(t *testing.T) {
	defer goleak.VerifyNone(t)
	eventBus := event.NewEventBus(nil, nil)
	defer eventBus.Stop()
	_, evtCh := eventBus.Subscribe(event.RosterChangeEventType)
	r := roster.New(roster.WithEventBus(eventBus))
	mnA := testMasternode(t, testOutpoint(1, 0))
	mnB := testMasternode(t, testOutpoint(2, 0))
	receive := func() event.RosterChangeEvent {
		t.Helper()
		select {
		case evt := <-evtCh:
			data, ok := evt.Data.(event.RosterChangeEvent)
			require.True(t, ok)
			return data
		case <-time.After(time.Second):
			require.FailNow(t, "timed out waiting for roster change event")
		}
		return event.RosterChangeEvent{}
	}
	r.Update([]roster.Masternode{mnA, mnB})
	assert.Equal(
		t,
		event.RosterChangeEvent{Enabled: 2},
		receive(),
	)
	r.Update([]roster.Masternode{mnB})
	assert.Equal(
		t,
		event.RosterChangeEvent{Reindexed: true, Removed: 1, Enabled: 1},
		receive(),
	)
}

func TestNewFromFile(t *testing.T) {
	outpoint := testOutpoint(5, 2)
	path := filepath.Join(t.TempDir(), "roster.yaml")
	data := fmt.Sprintf(
		"masternodes:\n  - outpoint: %s\n    pubkey: %s\n",
		governance.OutpointShort(outpoint),
		testPubKeyHex(t),
	)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	r, err := roster.NewFromFile(path)
	require.NoError(t, err)
	assert.True(t, r.Has(outpoint))
	_, err = roster.NewFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestRosterReindexKeepsVotesWithTheirVoter(t *testing.T) {
	now := time.Unix(1700000000, 0)
	voters := []wire.OutPoint{
		testOutpoint(1, 0),
		testOutpoint(2, 0),
		testOutpoint(3, 0),
	}
	keys := make(map[wire.OutPoint]*btcec.PrivateKey, len(voters))
	masternodes := make([]roster.Masternode, 0, len(voters))
	for _, voter := range voters {
		key, err := btcec.NewPrivateKey()
		require.NoError(t, err)
		keys[voter] = key
		masternodes = append(masternodes, roster.Masternode{
			Outpoint: voter,
			PubKey:   key.PubKey(),
			Enabled:  true,
		})
	}
	// No event bus, so nothing rebuilds vote maps on reindex
	r := roster.New()
	r.Update(masternodes)
	svc := &governance.Services{
		Roster: r,
		Now:    func() time.Time { return now },
	}
	obj := governance.NewObject(chainhash.Hash{}, 1, now.Unix(), chainhash.Hash{}, "")
	vote := func(voter wire.OutPoint, signal governance.Signal, outcome governance.Outcome) {
		t.Helper()
		v := governance.NewVote(voter, obj.Hash(), signal, outcome, now.Unix())
		require.NoError(t, v.Sign(keys[voter], keys[voter].PubKey()))
		require.NoError(t, obj.ProcessVote(svc, "", v))
	}
	vote(voters[1], governance.SignalFunding, governance.OutcomeYes)
	vote(voters[2], governance.SignalFunding, governance.OutcomeNo)

	require.True(t, r.Remove(voters[0]))
	vote(voters[2], governance.SignalValid, governance.OutcomeNo)

	recordB, ok := obj.VoteRecord(r, voters[1])
	require.True(t, ok)
	assert.Len(t, recordB.Instances, 1)
	assert.Equal(t, governance.OutcomeYes, recordB.Instances[governance.SignalFunding].Outcome)
	recordC, ok := obj.VoteRecord(r, voters[2])
	require.True(t, ok)
	assert.Len(t, recordC.Instances, 2)
	assert.Equal(t, governance.OutcomeNo, recordC.Instances[governance.SignalFunding].Outcome)
	assert.Equal(t, governance.OutcomeNo, recordC.Instances[governance.SignalValid].Outcome)

	// Several reindexes between votes lose no records
	r.Reindex()
	r.Reindex()
	vote(voters[1], governance.SignalEndorsed, governance.OutcomeYes)
	assert.Equal(t, 2, obj.VoterCount())
	assert.Equal(t, 1, obj.YesCount(governance.SignalFunding))
	assert.Equal(t, 1, obj.NoCount(governance.SignalFunding))
	assert.Equal(t, 1, obj.NoCount(governance.SignalValid))
	assert.Equal(t, 1, obj.YesCount(governance.SignalEndorsed))
}

func TestRosterIndexGeneration(t *testing.T) {
	r := roster.New()
	first := testMasternode(t, testOutpoint(1, 0))
	second := testMasternode(t, testOutpoint(2, 0))
	r.Update([]roster.Masternode{first})
	assert.Equal(t, uint64(0), r.IndexGeneration())
	// Appending keeps existing indexes
	r.Add(second)
	assert.Equal(t, uint64(0), r.IndexGeneration())
	require.True(t, r.Remove(first.Outpoint))
	assert.Equal(t, uint64(1), r.IndexGeneration())
	r.Reindex()
	assert.Equal(t, uint64(2), r.IndexGeneration())
}
