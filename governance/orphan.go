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
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultOrphanCacheSize bounds the orphan votes held per object
const DefaultOrphanCacheSize = 1000

type orphanKey struct {
	voter wire.OutPoint
	vote  chainhash.Hash
}

// OrphanVote is a vote waiting for its voter to become known
type OrphanVote struct {
	Vote    *Vote
	Expires time.Time
}

// OrphanVoteCache holds votes whose voter could not be resolved, keyed by
// voter. Iteration is oldest first. When full, the oldest entry is evicted.
type OrphanVoteCache struct {
	cache *lru.Cache[orphanKey, OrphanVote]
	// mu makes the check-then-add in Insert atomic with respect to sweeps
	mu sync.Mutex
}

func NewOrphanVoteCache(size int) *OrphanVoteCache {
	if size <= 0 {
		size = DefaultOrphanCacheSize
	}
	// lru.New only fails for a non-positive size
	cache, _ := lru.New[orphanKey, OrphanVote](size)
	return &OrphanVoteCache{
		cache: cache,
	}
}

func keyForVote(vote *Vote) orphanKey {
	return orphanKey{
		voter: vote.Voter,
		vote:  vote.Hash(),
	}
}

// Insert adds vote with the given expiry. It returns false if the vote was
// already cached, in which case the existing expiry is kept.
func (c *OrphanVoteCache) Insert(vote *Vote, expires time.Time) bool {
	key := keyForVote(vote)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cache.Contains(key) {
		return false
	}
	c.cache.Add(key, OrphanVote{Vote: vote, Expires: expires})
	return true
}

// Remove drops vote from the cache
func (c *OrphanVoteCache) Remove(vote *Vote) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Remove(keyForVote(vote))
}

// Entries returns a snapshot of the cache, oldest first. Callers may remove
// entries while walking the snapshot.
func (c *OrphanVoteCache) Entries() []OrphanVote {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := c.cache.Keys()
	ret := make([]OrphanVote, 0, len(keys))
	for _, key := range keys {
		if entry, ok := c.cache.Peek(key); ok {
			ret = append(ret, entry)
		}
	}
	return ret
}

// VotesFor returns the cached votes cast by voter
func (c *OrphanVoteCache) VotesFor(voter wire.OutPoint) []*Vote {
	var ret []*Vote
	for _, entry := range c.Entries() {
		if entry.Vote.Voter == voter {
			ret = append(ret, entry.Vote)
		}
	}
	return ret
}

func (c *OrphanVoteCache) Len() int {
	return c.cache.Len()
}
