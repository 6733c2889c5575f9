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

import "github.com/btcsuite/btcd/chaincfg/chainhash"

// ChainTipEventType is the event type for a change of the active chain tip
const ChainTipEventType = EventType("chain.tip")

// ChainTipEvent is emitted when the chain index observes a new tip
type ChainTipEvent struct {
	BlockHash chainhash.Hash
	Height    int32
}
