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
	"github.com/blinklabs-io/gobject/event"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

const (
	ObjectRelayEventType event.EventType = "governance.relay_object"
	VoteRelayEventType   event.EventType = "governance.relay_vote"
)

// RelayEvent announces an inventory hash for gossip to peers
type RelayEvent struct {
	Hash chainhash.Hash
}

// EventRelay is a Relay that publishes to an event bus. The transport
// subscribes to the relay event types and forwards the inventory.
type EventRelay struct {
	eventBus *event.EventBus
}

func NewEventRelay(eventBus *event.EventBus) *EventRelay {
	return &EventRelay{eventBus: eventBus}
}

func (r *EventRelay) RelayObject(hash chainhash.Hash) {
	r.eventBus.PublishAsync(
		ObjectRelayEventType,
		event.NewEvent(ObjectRelayEventType, RelayEvent{Hash: hash}),
	)
}

func (r *EventRelay) RelayVote(hash chainhash.Hash) {
	r.eventBus.PublishAsync(
		VoteRelayEventType,
		event.NewEvent(VoteRelayEventType, RelayEvent{Hash: hash}),
	)
}
