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
	"testing"
	"time"

	"github.com/blinklabs-io/gobject/event"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRelay(t *testing.T) {
	eventBus := event.NewEventBus(nil, nil)
	defer eventBus.Stop()
	_, objCh := eventBus.Subscribe(ObjectRelayEventType)
	_, voteCh := eventBus.Subscribe(VoteRelayEventType)
	relay := NewEventRelay(eventBus)
	relay.RelayObject(chainhash.Hash{0x01})
	relay.RelayVote(chainhash.Hash{0x02})
	for _, testDef := range []struct {
		ch       <-chan event.Event
		expected chainhash.Hash
	}{
		{ch: objCh, expected: chainhash.Hash{0x01}},
		{ch: voteCh, expected: chainhash.Hash{0x02}},
	} {
		select {
		case evt := <-testDef.ch:
			data, ok := evt.Data.(RelayEvent)
			require.True(t, ok)
			assert.Equal(t, testDef.expected, data.Hash)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for relay event")
		}
	}
}
