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
	"slices"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// ObjectRecord is the persisted form of an object
type ObjectRecord struct {
	Signature      []byte
	Data           string
	Submitter      wire.OutPoint
	Hash           chainhash.Hash
	ParentHash     chainhash.Hash
	CollateralHash chainhash.Hash
	Time           int64
	DeletionTime   int64
	Revision       int32
	Funding        bool
	Valid          bool
	Delete         bool
	Endorsed       bool
	Expired        bool
}

// ObjectStore persists tracked objects and provides each object with its
// own VoteStore
type ObjectStore interface {
	SaveObject(record ObjectRecord) error
	DeleteObject(hash chainhash.Hash) error
	LoadObjects() ([]ObjectRecord, error)
	VoteStoreFor(objectHash chainhash.Hash) VoteStore
}

// Snapshot returns the persisted form of the object
func (o *Object) Snapshot() ObjectRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	return ObjectRecord{
		Hash:           o.hashLocked(),
		ParentHash:     o.parentHash,
		Revision:       o.revision,
		Time:           o.time,
		CollateralHash: o.collateralHash,
		Data:           o.data,
		Submitter:      o.submitter,
		Signature:      slices.Clone(o.signature),
		Funding:        o.funding,
		Valid:          o.valid,
		Delete:         o.deleted,
		Endorsed:       o.endorsed,
		Expired:        o.expired,
		DeletionTime:   o.deletionTime,
	}
}

// RestoreObject recreates an object from its persisted form. The sentinel
// flags are restored but the object is marked dirty so they get
// recomputed once votes are replayed.
func RestoreObject(record ObjectRecord, opts ...ObjectOptionFunc) (*Object, error) {
	o := NewObject(
		record.ParentHash,
		record.Revision,
		record.Time,
		record.CollateralHash,
		record.Data,
		opts...,
	)
	o.submitter = record.Submitter
	o.signature = slices.Clone(record.Signature)
	if hash := o.hashLocked(); hash != record.Hash {
		return nil, fmt.Errorf(
			"object hash mismatch: stored %s, computed %s",
			record.Hash,
			hash,
		)
	}
	o.funding = record.Funding
	o.valid = record.Valid
	o.deleted = record.Delete
	o.endorsed = record.Endorsed
	o.expired = record.Expired
	o.deletionTime = record.DeletionTime
	return o, nil
}

// setVoteStore moves the object onto store, copying any votes already
// recorded
func (o *Object) setVoteStore(store VoteStore) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if store == o.store {
		return nil
	}
	votes, err := o.store.Votes()
	if err != nil {
		return err
	}
	for _, vote := range votes {
		if err := store.AddVote(vote); err != nil {
			return err
		}
	}
	o.store = store
	return nil
}

// ReplayVotes rebuilds the vote ledger from the vote store, keeping the
// newest vote per voter and signal. Votes from voters the roster cannot
// resolve are skipped. It returns the number of votes applied.
func (o *Object) ReplayVotes(roster Roster) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	votes, err := o.store.Votes()
	if err != nil {
		return 0, err
	}
	applied := 0
	for _, vote := range votes {
		if vote.Signal <= SignalNone || vote.Signal > SignalMaxSupported {
			continue
		}
		index, ok := o.resolveVoterLocked(roster, vote.Voter)
		if !ok {
			continue
		}
		record, ok := o.votes[index]
		if !ok {
			record = newVoteRecord(vote.Voter)
			o.votes[index] = record
		}
		if existing, ok := record.Instances[vote.Signal]; ok &&
			existing.CreationTime > vote.Timestamp {
			continue
		}
		record.Instances[vote.Signal] = VoteInstance{
			Outcome:      vote.Outcome,
			CreationTime: vote.Timestamp,
			UpdateTime:   vote.Timestamp,
		}
		applied++
	}
	o.dirty = true
	return applied, nil
}
