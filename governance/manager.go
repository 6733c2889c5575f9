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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/gammazero/workerpool"
	"github.com/hashicorp/go-multierror"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultMaintenanceInterval  = 5 * time.Minute
	DefaultValidationWorkers    = 4
	DefaultInvalidVoteCacheSize = 10000
	DefaultPendingVoteCacheSize = 10000
)

var ErrObjectExists = errors.New("governance object already known")

type ManagerConfig struct {
	PromRegistry prometheus.Registerer
	Logger       *slog.Logger
	Roster       Roster
	Chain        ChainIndex
	Relay        Relay
	// Store persists objects and votes. Objects are kept in memory only
	// when nil.
	Store                ObjectStore
	Params               *Params
	Now                  func() time.Time
	MaintenanceInterval  time.Duration
	ValidationWorkers    int
	InvalidVoteCacheSize int
	RateChecks           bool
}

// Manager tracks the governance objects known to the node and routes votes
// to them
type Manager struct {
	config       ManagerConfig
	logger       *slog.Logger
	tracer       trace.Tracer
	svc          *Services
	objects      map[chainhash.Hash]*Object
	postponed    map[chainhash.Hash]*Object
	invalidVotes *lru.Cache[chainhash.Hash, *Vote]
	// pendingVotes holds votes that arrived before their object
	pendingVotes *lru.Cache[chainhash.Hash, []*Vote]
	stopCh       chan struct{}
	doneCh       chan struct{}
	triggerCh    chan struct{}
	// rosterGeneration is the roster index generation votes were last
	// cleared against
	rosterGeneration atomic.Uint64
	mu               sync.RWMutex
	runMu            sync.Mutex
}

func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Roster == nil {
		return nil, errors.New("governance manager requires a roster")
	}
	if cfg.Chain == nil {
		return nil, errors.New("governance manager requires a chain index")
	}
	if cfg.MaintenanceInterval <= 0 {
		cfg.MaintenanceInterval = DefaultMaintenanceInterval
	}
	if cfg.ValidationWorkers <= 0 {
		cfg.ValidationWorkers = DefaultValidationWorkers
	}
	if cfg.InvalidVoteCacheSize <= 0 {
		cfg.InvalidVoteCacheSize = DefaultInvalidVoteCacheSize
	}
	m := &Manager{
		config:    cfg,
		tracer:    otel.Tracer("github.com/blinklabs-io/gobject/governance"),
		objects:   make(map[chainhash.Hash]*Object),
		postponed: make(map[chainhash.Hash]*Object),
		triggerCh: make(chan struct{}, 1),
	}
	if cfg.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		m.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		m.logger = cfg.Logger
	}
	var err error
	m.invalidVotes, err = lru.New[chainhash.Hash, *Vote](cfg.InvalidVoteCacheSize)
	if err != nil {
		return nil, err
	}
	m.pendingVotes, err = lru.New[chainhash.Hash, []*Vote](DefaultPendingVoteCacheSize)
	if err != nil {
		return nil, err
	}
	var metrics *Metrics
	if cfg.PromRegistry != nil {
		metrics = NewMetrics(cfg.PromRegistry)
	}
	m.svc = &Services{
		Roster:       cfg.Roster,
		Chain:        cfg.Chain,
		Relay:        cfg.Relay,
		InvalidVotes: m,
		Params:       cfg.Params,
		Logger:       m.logger,
		Metrics:      metrics,
		Now:          cfg.Now,
		RateChecks:   cfg.RateChecks,
	}
	return m, nil
}

// Services returns the collaborators the manager passes to its objects
func (m *Manager) Services() *Services {
	return m.svc
}

func (m *Manager) objectOptions() []ObjectOptionFunc {
	return []ObjectOptionFunc{
		WithObjectLogger(m.logger),
	}
}

// NewObject creates an object using the manager's logger
func (m *Manager) NewObject(
	parentHash chainhash.Hash,
	revision int32,
	createdAt int64,
	collateralHash chainhash.Hash,
	data string,
) *Object {
	return NewObject(
		parentHash,
		revision,
		createdAt,
		collateralHash,
		data,
		m.objectOptions()...,
	)
}

// Load restores persisted objects and replays their stored votes
func (m *Manager) Load(ctx context.Context) error {
	if m.config.Store == nil {
		return nil
	}
	_, span := m.tracer.Start(ctx, "governance.Load")
	defer span.End()
	records, err := m.config.Store.LoadObjects()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("load objects: %w", err)
	}
	var result *multierror.Error
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, record := range records {
		opts := append(
			m.objectOptions(),
			WithVoteStore(m.config.Store.VoteStoreFor(record.Hash)),
		)
		obj, err := RestoreObject(record, opts...)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if _, err := obj.ReplayVotes(m.svc.Roster); err != nil {
			result = multierror.Append(
				result,
				fmt.Errorf("replay votes for %s: %w", record.Hash, err),
			)
		}
		m.objects[record.Hash] = obj
	}
	m.svc.Metrics.setObjects(len(m.objects), len(m.postponed))
	m.logger.Info(
		fmt.Sprintf("loaded %d governance objects", len(m.objects)),
		"component", "governance",
	)
	return result.ErrorOrNil()
}

// AddObject validates obj including its collateral and starts tracking it.
// Objects that may become valid later are postponed and revalidated during
// maintenance; the returned error then satisfies IsRetryable.
func (m *Manager) AddObject(ctx context.Context, obj *Object, peer PeerID) error {
	hash := obj.Hash()
	_, span := m.tracer.Start(
		ctx,
		"governance.AddObject",
		trace.WithAttributes(attribute.String("object", hash.String())),
	)
	defer span.End()
	m.mu.RLock()
	_, known := m.objects[hash]
	_, isPostponed := m.postponed[hash]
	m.mu.RUnlock()
	if known || isPostponed {
		return fmt.Errorf("%w: %s", ErrObjectExists, hash)
	}
	if err := obj.IsValidLocally(m.svc, true); err != nil {
		if IsRetryable(err) {
			m.mu.Lock()
			_, known = m.objects[hash]
			_, isPostponed = m.postponed[hash]
			if known || isPostponed {
				m.mu.Unlock()
				return fmt.Errorf("%w: %s", ErrObjectExists, hash)
			}
			m.postponed[hash] = obj
			m.svc.Metrics.setObjects(len(m.objects), len(m.postponed))
			m.mu.Unlock()
			m.logger.Debug(
				"postponed governance object",
				"component", "governance",
				"object", hash.String(),
				"error", err,
			)
			return fmt.Errorf("object postponed: %w", err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		m.logger.Info(
			"rejected governance object",
			"component", "governance",
			"object", hash.String(),
			"peer", string(peer),
			"error", err,
		)
		return err
	}
	if err := m.track(obj); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	m.logger.Info(
		"added governance object",
		"component", "governance",
		"object", hash.String(),
		"type", obj.ObjectType().String(),
		"peer", string(peer),
	)
	return nil
}

// track starts tracking a validated object, relays it and processes any
// votes that arrived for it first
func (m *Manager) track(obj *Object) error {
	hash := obj.Hash()
	if m.config.Store != nil {
		if err := obj.setVoteStore(m.config.Store.VoteStoreFor(hash)); err != nil {
			return fmt.Errorf("attach vote store: %w", err)
		}
	}
	obj.UpdateLocalValidity(m.svc)
	m.mu.Lock()
	if _, ok := m.objects[hash]; ok {
		// Lost a race with another delivery of the same object
		if m.postponed[hash] == obj {
			delete(m.postponed, hash)
		}
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrObjectExists, hash)
	}
	m.objects[hash] = obj
	delete(m.postponed, hash)
	m.svc.Metrics.setObjects(len(m.objects), len(m.postponed))
	m.mu.Unlock()
	if err := m.saveObject(obj); err != nil {
		return err
	}
	obj.Relay(m.svc.Relay)
	if pending, ok := m.pendingVotes.Peek(hash); ok {
		m.pendingVotes.Remove(hash)
		for _, vote := range pending {
			if err := obj.ProcessVote(m.svc, "", vote); err == nil {
				m.relayVote(vote)
			}
		}
	}
	return nil
}

func (m *Manager) saveObject(obj *Object) error {
	if m.config.Store == nil {
		return nil
	}
	if err := m.config.Store.SaveObject(obj.Snapshot()); err != nil {
		return fmt.Errorf("save object: %w", err)
	}
	return nil
}

func (m *Manager) relayVote(vote *Vote) {
	if m.svc.Relay != nil {
		m.svc.Relay.RelayVote(vote.Hash())
	}
}

// ProcessVote routes vote to its object. Votes for unknown objects are held
// until the object arrives.
func (m *Manager) ProcessVote(ctx context.Context, peer PeerID, vote *Vote) error {
	voteHash := vote.Hash()
	_, span := m.tracer.Start(
		ctx,
		"governance.ProcessVote",
		trace.WithAttributes(
			attribute.String("vote", voteHash.String()),
			attribute.String("object", vote.ParentHash.String()),
		),
	)
	defer span.End()
	if m.IsInvalidVote(voteHash) {
		return newVoteError(
			VoteErrorPermanent,
			invalidVoteBanScore,
			"vote %s is known to be invalid",
			voteHash,
		)
	}
	m.mu.RLock()
	obj, ok := m.objects[vote.ParentHash]
	m.mu.RUnlock()
	if !ok {
		m.holdPendingVote(vote)
		return newVoteError(
			VoteErrorWarning,
			0,
			"%s: %s",
			ErrObjectNotFound,
			vote.ParentHash,
		)
	}
	if err := obj.ProcessVote(m.svc, peer, vote); err != nil {
		if VoteErrorKindOf(err) == VoteErrorPermanent {
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	}
	m.relayVote(vote)
	return nil
}

func (m *Manager) holdPendingVote(vote *Vote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pending, _ := m.pendingVotes.Peek(vote.ParentHash)
	voteHash := vote.Hash()
	for _, tmpVote := range pending {
		if tmpVote.Hash() == voteHash {
			return
		}
	}
	m.pendingVotes.Add(vote.ParentHash, append(pending, vote))
}

// AddInvalidVote records a vote that failed validation
func (m *Manager) AddInvalidVote(vote *Vote) {
	m.invalidVotes.Add(vote.Hash(), vote)
}

func (m *Manager) IsInvalidVote(hash chainhash.Hash) bool {
	return m.invalidVotes.Contains(hash)
}

// Object returns a tracked object
func (m *Manager) Object(hash chainhash.Hash) (*Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[hash]
	return obj, ok
}

// Objects returns all tracked objects
func (m *Manager) Objects() []*Object {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ret := make([]*Object, 0, len(m.objects))
	for _, obj := range m.objects {
		ret = append(ret, obj)
	}
	return ret
}

// PostponedCount returns the number of objects waiting for revalidation
func (m *Manager) PostponedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.postponed)
}

// RebuildIndexes remaps vote records after the roster reassigned indexes
func (m *Manager) RebuildIndexes() {
	for _, obj := range m.Objects() {
		obj.RebuildVoteMap(m.svc.Roster)
	}
}

// ClearMasternodeVotes drops votes of voters that left the roster
func (m *Manager) ClearMasternodeVotes() error {
	var result *multierror.Error
	for _, obj := range m.Objects() {
		if err := obj.ClearMasternodeVotes(m.svc.Roster); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Maintain runs one maintenance pass: orphan vote sweep, sentinel
// recomputation, postponed object revalidation and removal of objects
// whose deletion delay has passed
func (m *Manager) Maintain(ctx context.Context) error {
	ctx, span := m.tracer.Start(ctx, "governance.Maintain")
	defer span.End()
	var result *multierror.Error
	// Drop votes of voters that left the roster even if the change event
	// was never handled
	generation := m.svc.Roster.IndexGeneration()
	if m.rosterGeneration.Swap(generation) != generation {
		if err := m.ClearMasternodeVotes(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	now := m.svc.now()
	deletionDelay := m.svc.params().DeletionDelay
	for _, obj := range m.Objects() {
		obj.CheckOrphanVotes(m.svc)
		dirty := obj.IsDirty()
		if dirty {
			obj.UpdateSentinelVariables(m.svc)
		}
		flags := obj.Flags()
		if flags.Delete &&
			now.Unix() >= flags.DeletionTime+int64(deletionDelay.Seconds()) {
			if err := m.removeObject(obj); err != nil {
				result = multierror.Append(result, err)
			}
			continue
		}
		if !dirty {
			continue
		}
		if err := m.saveObject(obj); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := m.revalidatePostponed(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	m.mu.RLock()
	m.svc.Metrics.setObjects(len(m.objects), len(m.postponed))
	m.mu.RUnlock()
	if err := result.ErrorOrNil(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (m *Manager) removeObject(obj *Object) error {
	hash := obj.Hash()
	m.mu.Lock()
	delete(m.objects, hash)
	m.mu.Unlock()
	m.logger.Info(
		"removed governance object flagged for deletion",
		"component", "governance",
		"object", hash.String(),
	)
	if m.config.Store == nil {
		return nil
	}
	if err := m.config.Store.DeleteObject(hash); err != nil {
		return fmt.Errorf("delete object %s: %w", hash, err)
	}
	return nil
}

type revalidationResult struct {
	obj *Object
	err error
}

func (m *Manager) revalidatePostponed(ctx context.Context) error {
	m.mu.RLock()
	postponed := make([]*Object, 0, len(m.postponed))
	for _, obj := range m.postponed {
		postponed = append(postponed, obj)
	}
	m.mu.RUnlock()
	if len(postponed) == 0 {
		return nil
	}
	_, span := m.tracer.Start(
		ctx,
		"governance.RevalidatePostponed",
		trace.WithAttributes(attribute.Int("objects", len(postponed))),
	)
	defer span.End()
	results := make(chan revalidationResult, len(postponed))
	wp := workerpool.New(m.config.ValidationWorkers)
	for _, obj := range postponed {
		wp.Submit(func() {
			results <- revalidationResult{
				obj: obj,
				err: obj.IsValidLocally(m.svc, true),
			}
		})
	}
	wp.StopWait()
	close(results)
	var result *multierror.Error
	for res := range results {
		switch {
		case res.err == nil:
			if err := m.track(res.obj); err != nil {
				result = multierror.Append(result, err)
			}
		case IsRetryable(res.err):
		default:
			hash := res.obj.Hash()
			m.mu.Lock()
			delete(m.postponed, hash)
			m.mu.Unlock()
			m.logger.Info(
				"dropped postponed governance object",
				"component", "governance",
				"object", hash.String(),
				"error", res.err,
			)
		}
	}
	return result.ErrorOrNil()
}

// Start runs Maintain on the configured interval until Stop is called or
// ctx is done
func (m *Manager) Start(ctx context.Context) error {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.stopCh != nil {
		return errors.New("governance manager already started")
	}
	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	m.stopCh = stopCh
	m.doneCh = doneCh
	go func() {
		defer close(doneCh)
		ticker := time.NewTicker(m.config.MaintenanceInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.runMaintenance(ctx)
			case <-m.triggerCh:
				m.runMaintenance(ctx)
			case <-stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (m *Manager) runMaintenance(ctx context.Context) {
	if err := m.Maintain(ctx); err != nil {
		m.logger.Error(
			"governance maintenance failed",
			"component", "governance",
			"error", err,
		)
	}
}

// TriggerMaintenance asks a started manager to run a maintenance pass
// without waiting for the next tick. Requests made while one is already
// pending are merged.
func (m *Manager) TriggerMaintenance() {
	select {
	case m.triggerCh <- struct{}{}:
	default:
	}
}

// Stop halts the maintenance loop and waits for it to exit
func (m *Manager) Stop() {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.stopCh == nil {
		return
	}
	close(m.stopCh)
	<-m.doneCh
	m.stopCh = nil
	m.doneCh = nil
}
