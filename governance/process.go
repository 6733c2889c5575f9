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

	"github.com/btcsuite/btcd/wire"
	"github.com/hashicorp/go-multierror"
)

// ProcessVote validates vote against the object and commits it to the vote
// ledger and vote store. It returns nil only when the vote was committed.
// Rejections are returned as a *VoteError whose Kind and BanScore tell the
// caller how to treat the sending peer.
//
// Checks run cheapest first and signature verification runs last. The
// clock is read once per call.
func (o *Object) ProcessVote(svc *Services, peer PeerID, vote *Vote) error {
	err := o.processVote(svc, peer, vote)
	svc.Metrics.voteProcessed(err)
	return err
}

func (o *Object) processVote(svc *Services, peer PeerID, vote *Vote) error {
	now := svc.now()
	params := svc.params()
	logger := svc.logger()
	o.mu.Lock()
	defer o.mu.Unlock()
	voterIndex, ok := o.resolveVoterLocked(svc.Roster, vote.Voter)
	if !ok {
		if o.orphans.Insert(vote, now.Add(params.OrphanExpiration)) {
			svc.Metrics.orphanAdded()
			if peer != "" {
				svc.Roster.RequestIdentity(peer, vote.Voter)
			}
		}
		logger.Info(
			"masternode index not found, vote cached as orphan",
			"component", "governance",
			"voter", OutpointShort(vote.Voter),
			"object", vote.ParentHash.String(),
		)
		return newVoteError(
			VoteErrorWarning,
			0,
			"masternode index not found: %s",
			OutpointShort(vote.Voter),
		)
	}
	record := o.votes[voterIndex]
	if vote.Signal == SignalNone {
		logger.Debug(
			"vote signal none",
			"component", "governance",
			"vote", vote.Hash().String(),
		)
		return newVoteError(
			VoteErrorWarning,
			0,
			"vote signal none: %s",
			vote.Hash(),
		)
	}
	if vote.Signal > SignalMaxSupported || vote.Signal < SignalNone {
		logger.Warn(
			"unsupported vote signal",
			"component", "governance",
			"signal", vote.Signal.String(),
			"vote", vote.Hash().String(),
			"peer", string(peer),
		)
		return newVoteError(
			VoteErrorPermanent,
			invalidVoteBanScore,
			"unsupported vote signal: %s",
			vote.Signal,
		)
	}
	var (
		instance    VoteInstance
		hasInstance bool
	)
	if record != nil {
		instance, hasInstance = record.Instances[vote.Signal]
	}
	if hasInstance {
		if vote.Timestamp < instance.CreationTime {
			logger.Debug(
				"obsolete vote",
				"component", "governance",
				"vote", vote.Hash().String(),
				"vote_time", vote.Timestamp,
				"creation_time", instance.CreationTime,
			)
			return newVoteError(
				VoteErrorNone,
				0,
				"obsolete vote: %s",
				vote.Hash(),
			)
		}
		if svc.RateChecks {
			delta := now.Unix() - instance.UpdateTime
			if delta < int64(params.VoteUpdateMin.Seconds()) {
				logger.Debug(
					"masternode voting too often",
					"component", "governance",
					"voter", OutpointShort(vote.Voter),
					"signal", vote.Signal.String(),
					"delta_seconds", delta,
				)
				return newVoteError(
					VoteErrorTemporary,
					0,
					"masternode voting too often, voter=%s, signal=%s, seconds since last update=%d",
					OutpointShort(vote.Voter),
					vote.Signal,
					delta,
				)
			}
		}
	}
	if err := vote.IsValid(now, params.MaxVoteFutureDrift, svc.Roster); err != nil {
		logger.Warn(
			"invalid vote",
			"component", "governance",
			"vote", vote.Hash().String(),
			"peer", string(peer),
			"error", err,
		)
		svc.Metrics.invalidVote()
		if svc.InvalidVotes != nil {
			svc.InvalidVotes.AddInvalidVote(vote)
		}
		return newVoteError(
			VoteErrorPermanent,
			invalidVoteBanScore,
			"invalid vote %s: %s",
			vote.Hash(),
			err,
		)
	}
	if !svc.Roster.RegisterGovernanceVote(vote.Voter, o.hashLocked()) {
		logger.Debug(
			"unable to register governance vote",
			"component", "governance",
			"voter", OutpointShort(vote.Voter),
		)
		return newVoteError(
			VoteErrorPermanent,
			0,
			"unable to add governance vote, voter=%s, object=%s",
			OutpointShort(vote.Voter),
			vote.ParentHash,
		)
	}
	voteHash := vote.Hash()
	seen, err := o.store.HasVote(voteHash)
	if err != nil {
		return newVoteError(
			VoteErrorTemporary,
			0,
			"vote store lookup failed: %s",
			err,
		)
	}
	if !seen {
		if err := o.store.AddVote(vote); err != nil {
			return newVoteError(
				VoteErrorTemporary,
				0,
				"vote store write failed: %s",
				err,
			)
		}
	}
	if record == nil {
		record = newVoteRecord(vote.Voter)
		o.votes[voterIndex] = record
	}
	record.Instances[vote.Signal] = VoteInstance{
		Outcome:      vote.Outcome,
		CreationTime: vote.Timestamp,
		UpdateTime:   now.Unix(),
	}
	o.dirty = true
	logger.Debug(
		"vote accepted",
		"component", "governance",
		"vote", voteHash.String(),
		"voter", OutpointShort(vote.Voter),
		"signal", vote.Signal.String(),
		"outcome", vote.Outcome.String(),
	)
	return nil
}

// RebuildVoteMap moves vote records to the current roster index of their
// voter after the roster reassigned indexes. Records whose voter can no
// longer be found are dropped.
func (o *Object) RebuildVoteMap(roster Roster) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rebuildVoteMapLocked(roster, roster.IndexGeneration())
}

func (o *Object) rebuildVoteMapLocked(roster Roster, generation uint64) {
	rebuilt := make(map[int]*VoteRecord, len(o.votes))
	for oldIndex, record := range o.votes {
		voter := record.voter
		if voter == (wire.OutPoint{}) {
			// Old index mappings only cover a single reassignment
			var ok bool
			if generation == o.rosterGeneration+1 {
				voter, ok = roster.IdentityForOldIndex(oldIndex)
			}
			if !ok {
				o.dirty = true
				continue
			}
			record.voter = voter
		}
		newIndex, ok := roster.ResolveIndex(voter)
		if !ok {
			o.dirty = true
			continue
		}
		rebuilt[newIndex] = record
	}
	o.votes = rebuilt
	o.rosterGeneration = generation
}

// syncVoteMapLocked rebuilds the vote map when the roster reassigned
// indexes since the map was last keyed
func (o *Object) syncVoteMapLocked(roster Roster) {
	generation := roster.IndexGeneration()
	if generation != o.rosterGeneration {
		o.rebuildVoteMapLocked(roster, generation)
	}
}

// resolveVoterLocked returns the index of voter that matches the keys of
// the vote map, retrying when the roster reindexes during the lookup
func (o *Object) resolveVoterLocked(roster Roster, voter wire.OutPoint) (int, bool) {
	for {
		generation := roster.IndexGeneration()
		if generation != o.rosterGeneration {
			o.rebuildVoteMapLocked(roster, generation)
		}
		index, ok := roster.ResolveIndex(voter)
		if roster.IndexGeneration() == generation {
			return index, ok
		}
	}
}

// ClearMasternodeVotes drops the vote records and stored votes of voters
// that are no longer in the roster
func (o *Object) ClearMasternodeVotes(roster Roster) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.syncVoteMapLocked(roster)
	var result *multierror.Error
	removed := make(map[wire.OutPoint]struct{})
	for index, record := range o.votes {
		if roster.Has(record.voter) {
			continue
		}
		delete(o.votes, index)
		o.dirty = true
		removed[record.voter] = struct{}{}
	}
	// Votes whose voter index was already lost are found through the store
	votes, err := o.store.Votes()
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("list votes: %w", err))
	}
	for _, vote := range votes {
		if !roster.Has(vote.Voter) {
			removed[vote.Voter] = struct{}{}
		}
	}
	for voter := range removed {
		if _, err := o.store.RemoveVotesFromVoter(voter); err != nil {
			result = multierror.Append(
				result,
				fmt.Errorf("remove votes from %s: %w", OutpointShort(voter), err),
			)
		}
	}
	return result.ErrorOrNil()
}

// CheckOrphanVotes retries orphan votes whose voter is now known. Expired
// entries are dropped without being processed. Every retried entry is
// removed whether or not the retry succeeds.
func (o *Object) CheckOrphanVotes(svc *Services) {
	now := svc.now()
	logger := svc.logger()
	for _, entry := range o.orphans.Entries() {
		if entry.Expires.Before(now) {
			o.orphans.Remove(entry.Vote)
			svc.Metrics.orphanExpired()
			continue
		}
		if !svc.Roster.Has(entry.Vote.Voter) {
			continue
		}
		err := o.ProcessVote(svc, "", entry.Vote)
		o.orphans.Remove(entry.Vote)
		if err != nil {
			svc.Metrics.orphanDropped()
			logger.Debug(
				"failed to process orphan vote",
				"component", "governance",
				"vote", entry.Vote.Hash().String(),
				"error", err,
			)
			continue
		}
		svc.Metrics.orphanRecovered()
		if svc.Relay != nil {
			svc.Relay.RelayVote(entry.Vote.Hash())
		}
	}
}
