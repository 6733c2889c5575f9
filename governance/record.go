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

import "github.com/btcsuite/btcd/wire"

// VoteInstance is the accepted state of one voter on one signal
type VoteInstance struct {
	Outcome Outcome
	// CreationTime is the timestamp of the accepted vote. Later votes with an
	// older timestamp are obsolete.
	CreationTime int64
	// UpdateTime is the local time the instance was last committed
	UpdateTime int64
}

// VoteRecord holds one VoteInstance per signal for a single voter
type VoteRecord struct {
	Instances map[Signal]VoteInstance
	// voter owning the record, used to follow it across roster reindexes
	voter wire.OutPoint
}

func newVoteRecord(voter wire.OutPoint) *VoteRecord {
	return &VoteRecord{
		Instances: make(map[Signal]VoteInstance),
		voter:     voter,
	}
}

func (r *VoteRecord) clone() VoteRecord {
	ret := VoteRecord{
		Instances: make(map[Signal]VoteInstance, len(r.Instances)),
		voter:     r.voter,
	}
	for signal, instance := range r.Instances {
		ret.Instances[signal] = instance
	}
	return ret
}
