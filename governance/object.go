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
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// Object is a governance object: a proposal, trigger or watchdog that
// masternodes vote on. All state is guarded by a single per-object lock.
type Object struct {
	mu             sync.Mutex
	logger         *slog.Logger
	store          VoteStore
	orphans        *OrphanVoteCache
	payload        Payload
	votes          map[int]*VoteRecord
	data           string
	localError     string
	signature      []byte
	submitter      wire.OutPoint
	parentHash     chainhash.Hash
	collateralHash chainhash.Hash
	time           int64
	deletionTime   int64
	// rosterGeneration is the roster index generation the vote map is keyed by
	rosterGeneration uint64
	revision         int32
	objectType       ObjectType
	orphanSize       int
	unparsable       bool
	localValid       bool
	funding          bool
	valid            bool
	deleted          bool
	endorsed         bool
	dirty            bool
	expired          bool
}

type ObjectOptionFunc func(*Object)

// WithObjectLogger specifies the logger for the object
func WithObjectLogger(logger *slog.Logger) ObjectOptionFunc {
	return func(o *Object) {
		o.logger = logger
	}
}

// WithVoteStore specifies where accepted votes are recorded. An in-memory
// store is used by default.
func WithVoteStore(store VoteStore) ObjectOptionFunc {
	return func(o *Object) {
		o.store = store
	}
}

// WithOrphanCacheSize bounds the orphan votes held by the object
func WithOrphanCacheSize(size int) ObjectOptionFunc {
	return func(o *Object) {
		o.orphanSize = size
	}
}

// NewObject creates an object and decodes its payload. A payload that fails
// to decode marks the object unparsable; it is not an error here.
func NewObject(
	parentHash chainhash.Hash,
	revision int32,
	createdAt int64,
	collateralHash chainhash.Hash,
	data string,
	opts ...ObjectOptionFunc,
) *Object {
	o := &Object{
		parentHash:     parentHash,
		revision:       revision,
		time:           createdAt,
		collateralHash: collateralHash,
		data:           data,
		valid:          true,
		dirty:          true,
		votes:          make(map[int]*VoteRecord),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = discardLogger
	}
	o.logger = o.logger.With("component", "governance")
	if o.store == nil {
		o.store = NewMemoryVoteStore()
	}
	o.orphans = NewOrphanVoteCache(o.orphanSize)
	o.loadData()
	return o
}

func (o *Object) loadData() {
	if o.data == "" {
		o.payload = &UnknownPayload{}
		return
	}
	payload, err := DecodePayload(o.data)
	if err != nil {
		o.unparsable = true
		o.objectType = ObjectTypeUnknown
		o.logger.Warn(
			"failed to decode object data",
			"parent", o.parentHash.String(),
			"error", err,
		)
		return
	}
	o.payload = payload
	o.objectType = payload.Type()
}

// Clone returns a copy of the object. The copy gets its own vote ledger,
// orphan cache and in-memory vote store holding the same votes.
func (o *Object) Clone() *Object {
	o.mu.Lock()
	defer o.mu.Unlock()
	ret := &Object{
		logger:         o.logger,
		payload:        o.payload,
		data:           o.data,
		localError:     o.localError,
		signature:      bytes.Clone(o.signature),
		submitter:      o.submitter,
		parentHash:     o.parentHash,
		collateralHash: o.collateralHash,
		time:           o.time,
		deletionTime:   o.deletionTime,
		revision:       o.revision,
		objectType:     o.objectType,
		orphanSize:     o.orphanSize,
		unparsable:     o.unparsable,
		localValid:     o.localValid,
		funding:        o.funding,
		valid:          o.valid,
		deleted:        o.deleted,
		endorsed:       o.endorsed,
		dirty:          o.dirty,
		expired:        o.expired,
		votes:          make(map[int]*VoteRecord, len(o.votes)),
		store:          NewMemoryVoteStore(),
		orphans:        NewOrphanVoteCache(o.orphanSize),
	}
	ret.rosterGeneration = o.rosterGeneration
	for index, record := range o.votes {
		cloned := record.clone()
		ret.votes[index] = &cloned
	}
	for _, entry := range o.orphans.Entries() {
		ret.orphans.Insert(entry.Vote, entry.Expires)
	}
	votes, err := o.store.Votes()
	if err != nil {
		o.logger.Error(
			"failed to copy votes to clone",
			"object", o.hashLocked().String(),
			"error", err,
		)
		return ret
	}
	for _, vote := range votes {
		// Adding to a fresh memory store does not fail
		_ = ret.store.AddVote(vote)
	}
	return ret
}

// Hash returns the identity of the object. The collateral hash is not
// covered so the identity survives a replaced collateral proof.
func (o *Object) Hash() chainhash.Hash {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.hashLocked()
}

func (o *Object) hashLocked() chainhash.Hash {
	var buf bytes.Buffer
	// Writes to a bytes.Buffer cannot fail
	_ = o.serializeIdentity(&buf)
	return chainhash.DoubleHashH(buf.Bytes())
}

func (o *Object) serializeIdentity(w io.Writer) error {
	if _, err := w.Write(o.parentHash[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, o.revision); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, o.time); err != nil {
		return err
	}
	if err := wire.WriteVarString(w, 0, o.data); err != nil {
		return err
	}
	if err := writeVoterTxIn(w, o.submitter); err != nil {
		return err
	}
	return wire.WriteVarBytes(w, 0, o.signature)
}

func (o *Object) ParentHash() chainhash.Hash {
	return o.parentHash
}

func (o *Object) Revision() int32 {
	return o.revision
}

func (o *Object) CreationTime() int64 {
	return o.time
}

func (o *Object) CollateralHash() chainhash.Hash {
	return o.collateralHash
}

func (o *Object) ObjectType() ObjectType {
	return o.objectType
}

func (o *Object) Payload() Payload {
	return o.payload
}

func (o *Object) Unparsable() bool {
	return o.unparsable
}

// ObjectSubtype returns the payload subtype. Only triggers have one.
func (o *Object) ObjectSubtype() int {
	if o.objectType == ObjectTypeTrigger {
		return TriggerSuperblock
	}
	return -1
}

func (o *Object) Submitter() wire.OutPoint {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.submitter
}

// SetSubmitter sets the masternode that submitted the object. This changes
// both the hash and the signed message.
func (o *Object) SetSubmitter(voter wire.OutPoint) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.submitter = voter
}

func (o *Object) Signature() []byte {
	o.mu.Lock()
	defer o.mu.Unlock()
	return bytes.Clone(o.signature)
}

// SetSignature replaces the object signature without verifying it
func (o *Object) SetSignature(sig []byte) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.signature = bytes.Clone(sig)
}

// DataAsHex returns the payload as submitted
func (o *Object) DataAsHex() string {
	return o.data
}

// DataAsString returns the hex decoded payload, or an empty string
func (o *Object) DataAsString() string {
	raw, err := hex.DecodeString(o.data)
	if err != nil {
		return ""
	}
	return string(raw)
}

func (o *Object) Expired() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.expired
}

func (o *Object) SetExpired(expired bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.expired = expired
}

// Relay announces the object to the network
func (o *Object) Relay(relay Relay) {
	if relay == nil {
		return
	}
	relay.RelayObject(o.Hash())
}

// VoteStore returns the store holding the object's accepted votes
func (o *Object) VoteStore() VoteStore {
	return o.store
}

// OrphanVotes returns the votes waiting for their voter to become known
func (o *Object) OrphanVotes() []OrphanVote {
	return o.orphans.Entries()
}

// Flags is a snapshot of the cached consensus state of an object
type Flags struct {
	Funding      bool
	Valid        bool
	Delete       bool
	Endorsed     bool
	Dirty        bool
	Expired      bool
	DeletionTime int64
}

func (o *Object) Flags() Flags {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Flags{
		Funding:      o.funding,
		Valid:        o.valid,
		Delete:       o.deleted,
		Endorsed:     o.endorsed,
		Dirty:        o.dirty,
		Expired:      o.expired,
		DeletionTime: o.deletionTime,
	}
}

// IsDirty reports whether the sentinel flags need to be recomputed
func (o *Object) IsDirty() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dirty
}

func (o *Object) String() string {
	return fmt.Sprintf(
		"governance object %s: type=%s parent=%s revision=%d time=%d",
		o.Hash(),
		o.objectType,
		o.parentHash,
		o.revision,
		o.time,
	)
}
