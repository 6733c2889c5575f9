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
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayload(t *testing.T) {
	testDefs := []struct {
		name         string
		json         string
		expectedType ObjectType
		expectError  bool
	}{
		{
			name:         "wrapped proposal",
			json:         `[["proposal",{"type":1,"name":"p","payment_amount":5}]]`,
			expectedType: ObjectTypeProposal,
		},
		{
			name:         "trigger",
			json:         `[["trigger",{"type":2,"event_block_height":100}]]`,
			expectedType: ObjectTypeTrigger,
		},
		{
			name:         "watchdog",
			json:         `[["watchdog",{"type":3}]]`,
			expectedType: ObjectTypeWatchdog,
		},
		{
			name:         "unknown type",
			json:         `[["x",{"type":42}]]`,
			expectedType: ObjectTypeUnknown,
		},
		{
			name:        "string type",
			json:        `[["x",{"type":"1"}]]`,
			expectError: true,
		},
		{
			name:        "fractional type",
			json:        `[["x",{"type":1.5}]]`,
			expectError: true,
		},
		{
			name:        "missing type",
			json:        `[["x",{"name":"x"}]]`,
			expectError: true,
		},
		{
			name:        "malformed json",
			json:        `{"type":`,
			expectError: true,
		},
		{
			name:        "unwrapped object",
			json:        `{"type":1,"name":"p"}`,
			expectError: true,
		},
		{
			name:        "empty wrapper",
			json:        `[]`,
			expectError: true,
		},
		{
			name:        "wrapper without object",
			json:        `[["proposal"]]`,
			expectError: true,
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			payload, err := DecodePayload(hex.EncodeToString([]byte(testDef.json)))
			if testDef.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testDef.expectedType, payload.Type())
			assert.NotEmpty(t, payload.JSON())
		})
	}
}

func TestDecodePayloadBadHex(t *testing.T) {
	_, err := DecodePayload("0g")
	require.Error(t, err)
}

func TestDecodePayloadFields(t *testing.T) {
	payload, err := DecodePayload(triggerData(t))
	require.NoError(t, err)
	trigger, ok := payload.(*TriggerPayload)
	require.True(t, ok)
	assert.Equal(t, int64(1000), trigger.EventBlockHeight)
	assert.Equal(t, "yXyz|yAbc", trigger.PaymentAddresses)

	payload, err = DecodePayload(hex.EncodeToString([]byte(`[["x",{"type":9}]]`)))
	require.NoError(t, err)
	unknown, ok := payload.(*UnknownPayload)
	require.True(t, ok)
	assert.Equal(t, int64(9), unknown.TypeCode)
}
