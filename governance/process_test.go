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
	"errors"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireVoteError(t *testing.T, err error, kind VoteErrorKind, banScore int) {
	t.Helper()
	var voteErr *VoteError
	require.True(t, errors.As(err, &voteErr), "expected *VoteError, got %v", err)
	assert.Equal(t, kind, voteErr.Kind, voteErr.Message)
	assert.Equal(t, banScore, voteErr.BanScore)
}

func TestProcessVoteAccepts(t *testing.T) {
	roster := newMockRoster()
	voter := testOutpoint(1)
	key := roster.addVoter(t, voter)
	svc, _ := testServices(roster, newMockChain())
	obj := newTestProposal(t)
	vote := signedVote(t, key, voter, obj.Hash(), SignalFunding, OutcomeYes, testNow.Unix())
	require.NoError(t, obj.ProcessVote(svc, "peer1", vote))
	assert.Equal(t, 1, obj.YesCount(SignalFunding))
	assert.True(t, obj.IsDirty())
	count, err := obj.VoteStore().Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	record, ok := obj.VoteRecord(roster, voter)
	require.True(t, ok)
	assert.Equal(
		t,
		VoteInstance{
			Outcome:      OutcomeYes,
			CreationTime: testNow.Unix(),
			UpdateTime:   testNow.Unix(),
		},
		record.Instances[SignalFunding],
	)
	assert.Equal(t, []chainhash.Hash{obj.Hash()}, roster.registered[voter])
}

func TestProcessVoteRejections(t *testing.T) {
	testDefs := []struct {
		name     string
		signal   Signal
		outcome  Outcome
		offset   time.Duration
		badKey   bool
		regFail  bool
		kind     VoteErrorKind
		banScore int
	}{
		{
			name:    "signal none",
			signal:  SignalNone,
			outcome: OutcomeYes,
			kind:    VoteErrorWarning,
		},
		{
			name:     "unsupported signal",
			signal:   SignalEndorsed + 1,
			outcome:  OutcomeYes,
			kind:     VoteErrorPermanent,
			banScore: 20,
		},
		{
			name:     "bad signature",
			signal:   SignalFunding,
			outcome:  OutcomeYes,
			badKey:   true,
			kind:     VoteErrorPermanent,
			banScore: 20,
		},
		{
			name:     "future timestamp",
			signal:   SignalFunding,
			outcome:  OutcomeYes,
			offset:   2 * time.Hour,
			kind:     VoteErrorPermanent,
			banScore: 20,
		},
		{
			name:     "outcome out of range",
			signal:   SignalValid,
			outcome:  OutcomeAbstain + 1,
			kind:     VoteErrorPermanent,
			banScore: 20,
		},
		{
			name:    "registration refused",
			signal:  SignalFunding,
			outcome: OutcomeNo,
			regFail: true,
			kind:    VoteErrorPermanent,
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			roster := newMockRoster()
			voter := testOutpoint(1)
			key := roster.addVoter(t, voter)
			roster.registerFail = testDef.regFail
			svc, _ := testServices(roster, newMockChain())
			obj := newTestProposal(t)
			signer := key
			if testDef.badKey {
				signer = newTestKey(t)
			}
			vote := NewVote(
				voter,
				obj.Hash(),
				testDef.signal,
				testDef.outcome,
				testNow.Add(testDef.offset).Unix(),
			)
			sig, err := signMessage(signer, vote.SignatureMessage())
			require.NoError(t, err)
			vote.Signature = sig
			err = obj.ProcessVote(svc, "peer1", vote)
			requireVoteError(t, err, testDef.kind, testDef.banScore)
			assert.Equal(t, 0, obj.VoterCount())
			count, err := obj.VoteStore().Count()
			require.NoError(t, err)
			assert.Equal(t, 0, count)
		})
	}
}

func TestProcessVoteInvalidVoteRecorded(t *testing.T) {
	roster := newMockRoster()
	voter := testOutpoint(1)
	roster.addVoter(t, voter)
	svc, _ := testServices(roster, newMockChain())
	obj := newTestProposal(t)
	vote := signedVote(t, newTestKey(t), voter, obj.Hash(), SignalFunding, OutcomeYes, testNow.Unix())
	require.Error(t, obj.ProcessVote(svc, "", vote))
	invalid := svc.InvalidVotes.(*mockInvalidVotes)
	require.Len(t, invalid.votes, 1)
	assert.Equal(t, vote.Hash(), invalid.votes[0].Hash())
}

func TestProcessVoteObsolete(t *testing.T) {
	roster := newMockRoster()
	voter := testOutpoint(1)
	key := roster.addVoter(t, voter)
	svc, _ := testServices(roster, newMockChain())
	obj := newTestProposal(t)
	first := signedVote(t, key, voter, obj.Hash(), SignalFunding, OutcomeYes, testNow.Unix())
	require.NoError(t, obj.ProcessVote(svc, "", first))
	older := signedVote(t, key, voter, obj.Hash(), SignalFunding, OutcomeNo, testNow.Unix()-60)
	err := obj.ProcessVote(svc, "", older)
	requireVoteError(t, err, VoteErrorNone, 0)
	assert.Equal(t, 1, obj.YesCount(SignalFunding))
	assert.Equal(t, 0, obj.NoCount(SignalFunding))
}

func TestProcessVoteDuplicate(t *testing.T) {
	roster := newMockRoster()
	voter := testOutpoint(1)
	key := roster.addVoter(t, voter)
	svc, _ := testServices(roster, newMockChain())
	obj := newTestProposal(t)
	vote := signedVote(t, key, voter, obj.Hash(), SignalFunding, OutcomeYes, testNow.Unix())
	require.NoError(t, obj.ProcessVote(svc, "", vote))
	// Without rate checks the identical vote is re-admitted but not stored twice
	require.NoError(t, obj.ProcessVote(svc, "", vote))
	count, err := obj.VoteStore().Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, obj.YesCount(SignalFunding))
	assert.Equal(t, 1, obj.AbsoluteYesCount(SignalFunding))
}

func TestProcessVoteRateLimit(t *testing.T) {
	roster := newMockRoster()
	voter := testOutpoint(1)
	key := roster.addVoter(t, voter)
	svc, now := testServices(roster, newMockChain())
	svc.RateChecks = true
	obj := newTestProposal(t)
	first := signedVote(t, key, voter, obj.Hash(), SignalFunding, OutcomeYes, testNow.Unix())
	require.NoError(t, obj.ProcessVote(svc, "", first))
	before, ok := obj.VoteRecord(roster, voter)
	require.True(t, ok)

	*now = testNow.Add(30 * time.Minute)
	second := signedVote(t, key, voter, obj.Hash(), SignalFunding, OutcomeNo, now.Unix())
	err := obj.ProcessVote(svc, "", second)
	requireVoteError(t, err, VoteErrorTemporary, 0)
	after, ok := obj.VoteRecord(roster, voter)
	require.True(t, ok)
	assert.Equal(t, before, after)

	// The interval is measured from the last accepted update
	*now = testNow.Add(59 * time.Minute)
	err = obj.ProcessVote(svc, "", second)
	requireVoteError(t, err, VoteErrorTemporary, 0)

	*now = testNow.Add(61 * time.Minute)
	require.NoError(t, obj.ProcessVote(svc, "", second))
	assert.Equal(t, 0, obj.YesCount(SignalFunding))
	assert.Equal(t, 1, obj.NoCount(SignalFunding))

	// Other signals are limited independently
	valid := signedVote(t, key, voter, obj.Hash(), SignalValid, OutcomeYes, now.Unix())
	require.NoError(t, obj.ProcessVote(svc, "", valid))
}

func TestProcessVoteOrphan(t *testing.T) {
	roster := newMockRoster()
	voter := testOutpoint(1)
	key := newTestKey(t)
	svc, _ := testServices(roster, newMockChain())
	obj := newTestProposal(t)
	vote := signedVote(t, key, voter, obj.Hash(), SignalFunding, OutcomeYes, testNow.Unix())
	err := obj.ProcessVote(svc, "peer1", vote)
	requireVoteError(t, err, VoteErrorWarning, 0)
	orphans := obj.OrphanVotes()
	require.Len(t, orphans, 1)
	assert.Equal(t, testNow.Add(MainNetParams.OrphanExpiration), orphans[0].Expires)
	assert.Len(t, roster.requests, 1)
	// A second delivery does not ask the peer again
	err = obj.ProcessVote(svc, "peer1", vote)
	requireVoteError(t, err, VoteErrorWarning, 0)
	assert.Len(t, roster.requests, 1)
	assert.Len(t, obj.OrphanVotes(), 1)
}

func TestCheckOrphanVotes(t *testing.T) {
	roster := newMockRoster()
	svc, now := testServices(roster, newMockChain())
	obj := newTestProposal(t)
	knownVoter := testOutpoint(1)
	knownKey := newTestKey(t)
	unknownVoter := testOutpoint(2)
	badVoter := testOutpoint(3)
	recovered := signedVote(t, knownKey, knownVoter, obj.Hash(), SignalFunding, OutcomeYes, testNow.Unix())
	pending := signedVote(t, newTestKey(t), unknownVoter, obj.Hash(), SignalFunding, OutcomeYes, testNow.Unix())
	bad := signedVote(t, newTestKey(t), badVoter, obj.Hash(), SignalFunding, OutcomeYes, testNow.Unix())
	for _, vote := range []*Vote{recovered, pending, bad} {
		require.Error(t, obj.ProcessVote(svc, "", vote))
	}
	require.Len(t, obj.OrphanVotes(), 3)

	// knownVoter becomes known with the key it signed with, badVoter with a
	// different key
	roster.mu.Lock()
	roster.voters = append(roster.voters, knownVoter)
	roster.keys[knownVoter] = knownKey
	roster.mu.Unlock()
	roster.addVoter(t, badVoter)

	*now = testNow.Add(time.Minute)
	obj.CheckOrphanVotes(svc)
	assert.Equal(t, 1, obj.YesCount(SignalFunding))
	orphans := obj.OrphanVotes()
	require.Len(t, orphans, 1)
	assert.Equal(t, pending.Hash(), orphans[0].Vote.Hash())
	relay := svc.Relay.(*mockRelay)
	assert.Equal(t, []chainhash.Hash{recovered.Hash()}, relay.votes)
}

func TestCheckOrphanVotesExpired(t *testing.T) {
	roster := newMockRoster()
	svc, now := testServices(roster, newMockChain())
	obj := newTestProposal(t)
	voter := testOutpoint(1)
	key := newTestKey(t)
	vote := signedVote(t, key, voter, obj.Hash(), SignalFunding, OutcomeYes, testNow.Unix())
	require.Error(t, obj.ProcessVote(svc, "", vote))
	roster.mu.Lock()
	roster.voters = append(roster.voters, voter)
	roster.keys[voter] = key
	roster.mu.Unlock()
	*now = testNow.Add(MainNetParams.OrphanExpiration + time.Second)
	obj.CheckOrphanVotes(svc)
	assert.Empty(t, obj.OrphanVotes())
	assert.Equal(t, 0, obj.VoterCount())
	assert.Equal(t, 0, svc.Relay.(*mockRelay).voteCount())
}

func TestRebuildVoteMap(t *testing.T) {
	roster := newMockRoster()
	svc, _ := testServices(roster, newMockChain())
	obj := newTestProposal(t)
	voterA := testOutpoint(1)
	voterB := testOutpoint(2)
	keyA := roster.addVoter(t, voterA)
	keyB := roster.addVoter(t, voterB)
	require.NoError(t, obj.ProcessVote(svc, "", signedVote(t, keyA, voterA, obj.Hash(), SignalFunding, OutcomeYes, testNow.Unix())))
	require.NoError(t, obj.ProcessVote(svc, "", signedVote(t, keyB, voterB, obj.Hash(), SignalFunding, OutcomeNo, testNow.Unix())))
	roster.reverse()
	obj.RebuildVoteMap(roster)
	recordA, ok := obj.VoteRecord(roster, voterA)
	require.True(t, ok)
	assert.Equal(t, OutcomeYes, recordA.Instances[SignalFunding].Outcome)
	recordB, ok := obj.VoteRecord(roster, voterB)
	require.True(t, ok)
	assert.Equal(t, OutcomeNo, recordB.Instances[SignalFunding].Outcome)
}

func TestClearMasternodeVotes(t *testing.T) {
	roster := newMockRoster()
	svc, _ := testServices(roster, newMockChain())
	obj := newTestProposal(t)
	voterA := testOutpoint(1)
	voterB := testOutpoint(2)
	keyA := roster.addVoter(t, voterA)
	keyB := roster.addVoter(t, voterB)
	require.NoError(t, obj.ProcessVote(svc, "", signedVote(t, keyA, voterA, obj.Hash(), SignalFunding, OutcomeYes, testNow.Unix())))
	require.NoError(t, obj.ProcessVote(svc, "", signedVote(t, keyB, voterB, obj.Hash(), SignalFunding, OutcomeYes, testNow.Unix())))
	roster.removeVoter(voterB)
	require.NoError(t, obj.ClearMasternodeVotes(roster))
	assert.Equal(t, 1, obj.VoterCount())
	votes, err := obj.VoteStore().Votes()
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, voterA, votes[0].Voter)
}
