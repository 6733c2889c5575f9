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

package database

import (
	"fmt"

	"github.com/blinklabs-io/gobject/database/models"
	"github.com/blinklabs-io/gobject/governance"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	badger "github.com/dgraph-io/badger/v4"
	"gorm.io/gorm/clause"
)

const voteBlobKeyPrefix = "gv"

func voteBlobKey(objectHash chainhash.Hash, voteHash chainhash.Hash) []byte {
	key := make([]byte, 0, len(voteBlobKeyPrefix)+2*chainhash.HashSize)
	key = append(key, voteBlobKeyPrefix...)
	key = append(key, objectHash[:]...)
	key = append(key, voteHash[:]...)
	return key
}

func voteBlobPrefix(objectHash chainhash.Hash) []byte {
	key := make([]byte, 0, len(voteBlobKeyPrefix)+chainhash.HashSize)
	key = append(key, voteBlobKeyPrefix...)
	return append(key, objectHash[:]...)
}

// VoteStore is a persistent governance.VoteStore holding the votes of a
// single object
type VoteStore struct {
	db         *Database
	objectHash chainhash.Hash
}

// VoteStoreFor returns the vote store of an object
func (d *Database) VoteStoreFor(objectHash chainhash.Hash) governance.VoteStore {
	return &VoteStore{
		db:         d,
		objectHash: objectHash,
	}
}

func (s *VoteStore) HasVote(hash chainhash.Hash) (bool, error) {
	var count int64
	result := s.db.metadata.Model(&models.GovernanceVote{}).
		Where("object_hash = ? AND vote_hash = ?", s.objectHash[:], hash[:]).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

func (s *VoteStore) AddVote(vote *governance.Vote) error {
	voteHash := vote.Hash()
	ok, err := s.HasVote(voteHash)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	key := voteBlobKey(s.objectHash, voteHash)
	if err := s.db.blob.Update(func(txn *badger.Txn) error {
		return txn.Set(key, vote.Bytes())
	}); err != nil {
		return fmt.Errorf("store vote blob: %w", err)
	}
	tmpVote := models.GovernanceVote{
		ObjectHash: s.objectHash[:],
		VoteHash:   voteHash[:],
		Voter:      governance.OutpointShort(vote.Voter),
		BlobKey:    key,
		Timestamp:  vote.Timestamp,
		Signal:     int32(vote.Signal),
		Outcome:    int32(vote.Outcome),
	}
	result := s.db.metadata.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&tmpVote)
	if result.Error != nil {
		return fmt.Errorf("store vote index: %w", result.Error)
	}
	return nil
}

func (s *VoteStore) RemoveVotesFromVoter(voter wire.OutPoint) (int, error) {
	var tmpVotes []models.GovernanceVote
	result := s.db.metadata.
		Where("object_hash = ? AND voter = ?", s.objectHash[:], governance.OutpointShort(voter)).
		Find(&tmpVotes)
	if result.Error != nil {
		return 0, result.Error
	}
	if len(tmpVotes) == 0 {
		return 0, nil
	}
	if err := s.db.blob.Update(func(txn *badger.Txn) error {
		for _, tmpVote := range tmpVotes {
			if err := txn.Delete(tmpVote.BlobKey); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return 0, fmt.Errorf("remove vote blobs: %w", err)
	}
	result = s.db.metadata.Delete(&tmpVotes)
	if result.Error != nil {
		return 0, fmt.Errorf("remove vote index: %w", result.Error)
	}
	s.db.logger.Debug(
		fmt.Sprintf("removed %d votes from voter", len(tmpVotes)),
		"component", "database",
		"object", s.objectHash.String(),
		"voter", governance.OutpointShort(voter),
	)
	return len(tmpVotes), nil
}

// Votes returns the stored votes in the order they were added
func (s *VoteStore) Votes() ([]*governance.Vote, error) {
	var tmpVotes []models.GovernanceVote
	result := s.db.metadata.
		Where("object_hash = ?", s.objectHash[:]).
		Order("id").
		Find(&tmpVotes)
	if result.Error != nil {
		return nil, result.Error
	}
	ret := make([]*governance.Vote, 0, len(tmpVotes))
	err := s.db.blob.View(func(txn *badger.Txn) error {
		for _, tmpVote := range tmpVotes {
			item, err := txn.Get(tmpVote.BlobKey)
			if err != nil {
				return fmt.Errorf("vote blob %x: %w", tmpVote.VoteHash, err)
			}
			voteBytes, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			vote, err := governance.DeserializeVote(voteBytes)
			if err != nil {
				return err
			}
			ret = append(ret, vote)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *VoteStore) Count() (int, error) {
	var count int64
	result := s.db.metadata.Model(&models.GovernanceVote{}).
		Where("object_hash = ?", s.objectHash[:]).
		Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}
	return int(count), nil
}

// deleteVotes removes every vote stored for an object
func (d *Database) deleteVotes(objectHash chainhash.Hash) error {
	prefix := voteBlobPrefix(objectHash)
	if err := d.blob.DropPrefix(prefix); err != nil {
		return fmt.Errorf("remove vote blobs: %w", err)
	}
	result := d.metadata.
		Where("object_hash = ?", objectHash[:]).
		Delete(&models.GovernanceVote{})
	if result.Error != nil {
		return fmt.Errorf("remove vote index: %w", result.Error)
	}
	return nil
}
