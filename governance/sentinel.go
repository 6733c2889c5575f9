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

// UpdateSentinelVariables recomputes the consensus flags from the vote
// tallies. Nothing changes while the roster reports no enabled voters.
// The delete flag is sticky and the deletion time is recorded once.
func (o *Object) UpdateSentinelVariables(svc *Services) {
	enabled := svc.Roster.CountEnabled()
	if enabled == 0 {
		return
	}
	required, requiredDelete := svc.params().RequiredVotes(enabled)
	now := svc.now()
	o.mu.Lock()
	defer o.mu.Unlock()
	o.syncVoteMapLocked(svc.Roster)
	o.funding = false
	o.valid = true
	o.endorsed = false
	if o.absoluteYesCountLocked(SignalFunding) >= required {
		o.funding = true
	}
	if o.absoluteYesCountLocked(SignalDelete) >= requiredDelete && !o.deleted {
		o.deleted = true
		if o.deletionTime == 0 {
			o.deletionTime = now.Unix()
		}
	}
	if o.absoluteYesCountLocked(SignalEndorsed) >= required {
		o.endorsed = true
	}
	if o.absoluteNoCountLocked(SignalValid) >= required {
		o.valid = false
	}
	o.dirty = false
	svc.Metrics.sentinelUpdated()
	svc.logger().Debug(
		"updated sentinel variables",
		"component", "governance",
		"object", o.hashLocked().String(),
		"enabled", enabled,
		"required", required,
		"required_delete", requiredDelete,
		"funding", o.funding,
		"valid", o.valid,
		"delete", o.deleted,
		"endorsed", o.endorsed,
	)
}

// DeletionTime returns when the object was first flagged for deletion, or
// zero
func (o *Object) DeletionTime() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.deletionTime
}
