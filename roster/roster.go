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

package roster

import (
	"bytes"
	"cmp"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/blinklabs-io/gobject/event"
	"github.com/blinklabs-io/gobject/governance"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// Masternode is a voting identity on the roster
type Masternode struct {
	PubKey   *btcec.PublicKey
	Outpoint wire.OutPoint
	Enabled  bool
}

type rosterEntry struct {
	votes map[chainhash.Hash]struct{}
	Masternode
	index int
}

// Roster is a governance.Roster backed by a static masternode list.
// Indexes are assigned in outpoint order. New voters are appended to the
// end, and removals trigger a full reindex. The mapping in use before the
// last reindex stays available through IdentityForOldIndex.
type Roster struct {
	logger   *slog.Logger
	eventBus *event.EventBus
	entries  map[wire.OutPoint]*rosterEntry
	byIndex  []wire.OutPoint
	oldIndex []wire.OutPoint
	// generation counts index reassignments
	generation uint64
	mu         sync.RWMutex
}

var _ governance.Roster = (*Roster)(nil)

type RosterOptionFunc func(*Roster)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) RosterOptionFunc {
	return func(r *Roster) {
		r.logger = logger
	}
}

// WithEventBus specifies the event bus that receives roster change events
func WithEventBus(eventBus *event.EventBus) RosterOptionFunc {
	return func(r *Roster) {
		r.eventBus = eventBus
	}
}

func New(opts ...RosterOptionFunc) *Roster {
	r := &Roster{
		entries: make(map[wire.OutPoint]*rosterEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		r.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return r
}

// NewFromFile creates a roster populated from a masternode list file
func NewFromFile(path string, opts ...RosterOptionFunc) (*Roster, error) {
	r := New(opts...)
	if err := r.LoadFile(path); err != nil {
		return nil, err
	}
	return r, nil
}

// LoadFile replaces the roster contents with the masternodes in a file
func (r *Roster) LoadFile(path string) error {
	f, err := NewRosterFileFromFile(path)
	if err != nil {
		return fmt.Errorf("load roster file: %w", err)
	}
	masternodes, err := f.Voters()
	if err != nil {
		return fmt.Errorf("load roster file: %w", err)
	}
	r.Update(masternodes)
	return nil
}

func compareOutpoints(a, b wire.OutPoint) int {
	if c := bytes.Compare(a.Hash[:], b.Hash[:]); c != 0 {
		return c
	}
	return cmp.Compare(a.Index, b.Index)
}

// Update replaces the roster contents. Known voters keep their vote
// registrations. Voters missing from the new list are removed, which
// triggers a reindex.
func (r *Roster) Update(masternodes []Masternode) {
	r.mu.Lock()
	incoming := make(map[wire.OutPoint]Masternode, len(masternodes))
	for _, mn := range masternodes {
		incoming[mn.Outpoint] = mn
	}
	removed := 0
	for outpoint := range r.entries {
		if _, ok := incoming[outpoint]; !ok {
			delete(r.entries, outpoint)
			removed++
		}
	}
	added := make([]wire.OutPoint, 0)
	for outpoint, mn := range incoming {
		if entry, ok := r.entries[outpoint]; ok {
			entry.PubKey = mn.PubKey
			entry.Enabled = mn.Enabled
			continue
		}
		r.entries[outpoint] = &rosterEntry{
			Masternode: mn,
			votes:      make(map[chainhash.Hash]struct{}),
			index:      -1,
		}
		added = append(added, outpoint)
	}
	reindexed := removed > 0
	if reindexed {
		r.reindexLocked()
	} else {
		slices.SortFunc(added, compareOutpoints)
		r.appendLocked(added)
	}
	enabled := r.countEnabledLocked()
	total := len(r.entries)
	r.mu.Unlock()
	r.logger.Info(
		fmt.Sprintf(
			"roster updated: %d voters, %d enabled, %d added, %d removed",
			total,
			enabled,
			len(added),
			removed,
		),
		"component", "roster",
	)
	r.publishChange(reindexed, removed, enabled)
}

// Add inserts or updates a single voter
func (r *Roster) Add(mn Masternode) {
	r.mu.Lock()
	if entry, ok := r.entries[mn.Outpoint]; ok {
		entry.PubKey = mn.PubKey
		entry.Enabled = mn.Enabled
		r.mu.Unlock()
		return
	}
	r.entries[mn.Outpoint] = &rosterEntry{
		Masternode: mn,
		votes:      make(map[chainhash.Hash]struct{}),
		index:      -1,
	}
	r.appendLocked([]wire.OutPoint{mn.Outpoint})
	enabled := r.countEnabledLocked()
	r.mu.Unlock()
	r.publishChange(false, 0, enabled)
}

// Remove drops a voter and reindexes the remaining voters
func (r *Roster) Remove(voter wire.OutPoint) bool {
	r.mu.Lock()
	if _, ok := r.entries[voter]; !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.entries, voter)
	r.reindexLocked()
	enabled := r.countEnabledLocked()
	r.mu.Unlock()
	r.logger.Debug(
		"removed voter "+governance.OutpointShort(voter),
		"component", "roster",
	)
	r.publishChange(true, 1, enabled)
	return true
}

// SetEnabled changes whether a voter counts towards the quorum
func (r *Roster) SetEnabled(voter wire.OutPoint, enabled bool) bool {
	r.mu.Lock()
	entry, ok := r.entries[voter]
	if !ok {
		r.mu.Unlock()
		return false
	}
	changed := entry.Enabled != enabled
	entry.Enabled = enabled
	count := r.countEnabledLocked()
	r.mu.Unlock()
	if changed {
		r.publishChange(false, 0, count)
	}
	return true
}

// Reindex reassigns all indexes in outpoint order. The previous mapping is
// kept for IdentityForOldIndex.
func (r *Roster) Reindex() {
	r.mu.Lock()
	r.reindexLocked()
	enabled := r.countEnabledLocked()
	r.mu.Unlock()
	r.publishChange(true, 0, enabled)
}

func (r *Roster) reindexLocked() {
	r.generation++
	r.oldIndex = r.byIndex
	outpoints := make([]wire.OutPoint, 0, len(r.entries))
	for outpoint := range r.entries {
		outpoints = append(outpoints, outpoint)
	}
	slices.SortFunc(outpoints, compareOutpoints)
	r.byIndex = nil
	r.appendLocked(outpoints)
}

func (r *Roster) appendLocked(outpoints []wire.OutPoint) {
	for _, outpoint := range outpoints {
		r.entries[outpoint].index = len(r.byIndex)
		r.byIndex = append(r.byIndex, outpoint)
	}
}

func (r *Roster) countEnabledLocked() int {
	ret := 0
	for _, entry := range r.entries {
		if entry.Enabled {
			ret++
		}
	}
	return ret
}

func (r *Roster) publishChange(reindexed bool, removed int, enabled int) {
	if r.eventBus == nil {
		return
	}
	r.eventBus.Publish(
		event.RosterChangeEventType,
		event.NewEvent(
			event.RosterChangeEventType,
			event.RosterChangeEvent{
				Reindexed: reindexed,
				Removed:   removed,
				Enabled:   enabled,
			},
		),
	)
}

// Len returns the number of voters on the roster
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Roster) ResolveIndex(voter wire.OutPoint) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[voter]
	if !ok {
		return -1, false
	}
	return entry.index, true
}

func (r *Roster) IdentityForIndex(index int) (wire.OutPoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if index < 0 || index >= len(r.byIndex) {
		return wire.OutPoint{}, false
	}
	return r.byIndex[index], true
}

// IndexGeneration returns a counter that changes on every reindex
func (r *Roster) IndexGeneration() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

func (r *Roster) IdentityForOldIndex(index int) (wire.OutPoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if index < 0 || index >= len(r.oldIndex) {
		return wire.OutPoint{}, false
	}
	return r.oldIndex[index], true
}

func (r *Roster) Has(voter wire.OutPoint) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[voter]
	return ok
}

func (r *Roster) VoterKey(voter wire.OutPoint) (*btcec.PublicKey, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[voter]
	if !ok || entry.PubKey == nil {
		return nil, false
	}
	return entry.PubKey, true
}

func (r *Roster) CountEnabled() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.countEnabledLocked()
}

// RegisterGovernanceVote records that a voter has voted on an object
func (r *Roster) RegisterGovernanceVote(
	voter wire.OutPoint,
	objectHash chainhash.Hash,
) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[voter]
	if !ok {
		return false
	}
	entry.votes[objectHash] = struct{}{}
	return true
}

// GovernanceVoteCount returns the number of objects a voter has voted on
func (r *Roster) GovernanceVoteCount(voter wire.OutPoint) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[voter]
	if !ok {
		return 0
	}
	return len(entry.votes)
}

// RequestIdentity asks a peer for the announcement of an unknown voter.
// Identity announcements are not part of this node, so the request is
// only logged.
func (r *Roster) RequestIdentity(peer governance.PeerID, voter wire.OutPoint) {
	r.logger.Debug(
		"requesting voter identity",
		"component", "roster",
		"peer", string(peer),
		"voter", governance.OutpointShort(voter),
	)
}
