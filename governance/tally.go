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
	"slices"

	"github.com/btcsuite/btcd/wire"
)

// CountMatchingVotes counts voters whose current vote on signal is outcome
func (o *Object) CountMatchingVotes(signal Signal, outcome Outcome) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.countMatchingVotesLocked(signal, outcome)
}

func (o *Object) countMatchingVotesLocked(signal Signal, outcome Outcome) int {
	count := 0
	for _, record := range o.votes {
		instance, ok := record.Instances[signal]
		if ok && instance.Outcome == outcome {
			count++
		}
	}
	return count
}

func (o *Object) YesCount(signal Signal) int {
	return o.CountMatchingVotes(signal, OutcomeYes)
}

func (o *Object) NoCount(signal Signal) int {
	return o.CountMatchingVotes(signal, OutcomeNo)
}

func (o *Object) AbstainCount(signal Signal) int {
	return o.CountMatchingVotes(signal, OutcomeAbstain)
}

// AbsoluteYesCount is the yes count less the no count, so a large no
// turnout cancels earlier yes votes
func (o *Object) AbsoluteYesCount(signal Signal) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.absoluteYesCountLocked(signal)
}

func (o *Object) absoluteYesCountLocked(signal Signal) int {
	return o.countMatchingVotesLocked(signal, OutcomeYes) -
		o.countMatchingVotesLocked(signal, OutcomeNo)
}

func (o *Object) AbsoluteNoCount(signal Signal) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.absoluteNoCountLocked(signal)
}

func (o *Object) absoluteNoCountLocked(signal Signal) int {
	return o.countMatchingVotesLocked(signal, OutcomeNo) -
		o.countMatchingVotesLocked(signal, OutcomeYes)
}

// VoteRecord returns a copy of the record held for voter
func (o *Object) VoteRecord(roster Roster, voter wire.OutPoint) (VoteRecord, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	index, ok := o.resolveVoterLocked(roster, voter)
	if !ok {
		return VoteRecord{}, false
	}
	record, ok := o.votes[index]
	if !ok {
		return VoteRecord{}, false
	}
	return record.clone(), true
}

// VoterCount returns the number of voters with a vote record
func (o *Object) VoterCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.votes)
}

// CurrentVotes rebuilds the currently counted votes of voter, one per
// signal. The returned votes are unsigned and stamped with the creation
// time of their instance.
func (o *Object) CurrentVotes(roster Roster, voter wire.OutPoint) []*Vote {
	o.mu.Lock()
	defer o.mu.Unlock()
	index, ok := o.resolveVoterLocked(roster, voter)
	if !ok {
		return nil
	}
	record, ok := o.votes[index]
	if !ok {
		return nil
	}
	hash := o.hashLocked()
	signals := make([]Signal, 0, len(record.Instances))
	for signal := range record.Instances {
		signals = append(signals, signal)
	}
	slices.Sort(signals)
	ret := make([]*Vote, 0, len(signals))
	for _, signal := range signals {
		instance := record.Instances[signal]
		ret = append(
			ret,
			NewVote(voter, hash, signal, instance.Outcome, instance.CreationTime),
		)
	}
	return ret
}
