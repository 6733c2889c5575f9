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

package event

// RosterChangeEventType is the event type for masternode roster changes
const RosterChangeEventType = EventType("roster.change")

// RosterChangeEvent is emitted after the roster is reloaded
type RosterChangeEvent struct {
	// Reindexed is set when voter indexes were reassigned and vote
	// records keyed by index must be remapped
	Reindexed bool
	// Removed counts voters that left the roster
	Removed int
	Enabled int
}
