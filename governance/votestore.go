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

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// VoteStore records every vote accepted for one governance object
type VoteStore interface {
	HasVote(hash chainhash.Hash) (bool, error)
	AddVote(vote *Vote) error
	// RemoveVotesFromVoter drops all votes cast by voter and returns how
	// many were removed
	RemoveVotesFromVoter(voter wire.OutPoint) (int, error)
	// Votes returns the stored votes in insertion order
	Votes() ([]*Vote, error)
	Count() (int, error)
}

// MemoryVoteStore is an in-memory VoteStore
type MemoryVoteStore struct {
	index map[chainhash.Hash]*Vote
	votes []*Vote
	mu    sync.RWMutex
}

func NewMemoryVoteStore() *MemoryVoteStore {
	return &MemoryVoteStore{
		index: make(map[chainhash.Hash]*Vote),
	}
}

func (s *MemoryVoteStore) HasVote(hash chainhash.Hash) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[hash]
	return ok, nil
}

func (s *MemoryVoteStore) AddVote(vote *Vote) error {
	hash := vote.Hash()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[hash]; ok {
		return nil
	}
	s.index[hash] = vote
	s.votes = append(s.votes, vote)
	return nil
}

func (s *MemoryVoteStore) RemoveVotesFromVoter(
	voter wire.OutPoint,
) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.votes[:0]
	removed := 0
	for _, vote := range s.votes {
		if vote.Voter == voter {
			delete(s.index, vote.Hash())
			removed++
			continue
		}
		kept = append(kept, vote)
	}
	clear(s.votes[len(kept):])
	s.votes = kept
	return removed, nil
}

func (s *MemoryVoteStore) Votes() ([]*Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ret := make([]*Vote, len(s.votes))
	copy(ret, s.votes)
	return ret, nil
}

func (s *MemoryVoteStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.votes), nil
}
