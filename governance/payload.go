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
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

// Payload is the decoded form of a governance object's data. Each known
// object type has its own variant; any other type code decodes to
// UnknownPayload.
type Payload interface {
	Type() ObjectType
	// JSON returns the raw object the payload was decoded from
	JSON() json.RawMessage
}

type ProposalPayload struct {
	raw            json.RawMessage
	Name           string  `json:"name"`
	PaymentAddress string  `json:"payment_address"`
	URL            string  `json:"url"`
	StartEpoch     int64   `json:"start_epoch"`
	EndEpoch       int64   `json:"end_epoch"`
	PaymentAmount  float64 `json:"payment_amount"`
}

func (p *ProposalPayload) Type() ObjectType      { return ObjectTypeProposal }
func (p *ProposalPayload) JSON() json.RawMessage { return p.raw }

type TriggerPayload struct {
	raw              json.RawMessage
	PaymentAddresses string `json:"payment_addresses"`
	PaymentAmounts   string `json:"payment_amounts"`
	EventBlockHeight int64  `json:"event_block_height"`
}

func (p *TriggerPayload) Type() ObjectType      { return ObjectTypeTrigger }
func (p *TriggerPayload) JSON() json.RawMessage { return p.raw }

type WatchdogPayload struct {
	raw json.RawMessage
}

func (p *WatchdogPayload) Type() ObjectType      { return ObjectTypeWatchdog }
func (p *WatchdogPayload) JSON() json.RawMessage { return p.raw }

// UnknownPayload carries an object whose type code is not recognized
type UnknownPayload struct {
	raw      json.RawMessage
	TypeCode int64
}

func (p *UnknownPayload) Type() ObjectType      { return ObjectTypeUnknown }
func (p *UnknownPayload) JSON() json.RawMessage { return p.raw }

// DecodePayload decodes hex encoded object data. The JSON has the wrapped
// form [["<name>", {object}]] and the object must carry an integer "type".
func DecodePayload(hexData string) (Payload, error) {
	raw, err := hex.DecodeString(hexData)
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	obj, err := unwrapPayloadObject(raw)
	if err != nil {
		return nil, err
	}
	var head struct {
		Type json.RawMessage `json:"type"`
	}
	if err := json.Unmarshal(obj, &head); err != nil {
		return nil, fmt.Errorf("decode object: %w", err)
	}
	if head.Type == nil {
		return nil, errors.New("object has no type")
	}
	var typeCode int64
	if err := json.Unmarshal(head.Type, &typeCode); err != nil {
		return nil, fmt.Errorf("object type is not an integer: %s", head.Type)
	}
	var payload Payload
	switch ObjectType(typeCode) {
	case ObjectTypeProposal:
		p := &ProposalPayload{raw: obj}
		if err := json.Unmarshal(obj, p); err != nil {
			return nil, fmt.Errorf("decode proposal: %w", err)
		}
		payload = p
	case ObjectTypeTrigger:
		p := &TriggerPayload{raw: obj}
		if err := json.Unmarshal(obj, p); err != nil {
			return nil, fmt.Errorf("decode trigger: %w", err)
		}
		payload = p
	case ObjectTypeWatchdog:
		payload = &WatchdogPayload{raw: obj}
	default:
		payload = &UnknownPayload{raw: obj, TypeCode: typeCode}
	}
	return payload, nil
}

func unwrapPayloadObject(raw []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("empty object data")
	}
	var outer []json.RawMessage
	if err := json.Unmarshal(trimmed, &outer); err != nil {
		return nil, fmt.Errorf("decode object wrapper: %w", err)
	}
	if len(outer) == 0 {
		return nil, errors.New("empty object wrapper")
	}
	var pair []json.RawMessage
	if err := json.Unmarshal(outer[0], &pair); err != nil {
		return nil, fmt.Errorf("decode object wrapper: %w", err)
	}
	if len(pair) < 2 {
		return nil, errors.New("object wrapper has no object")
	}
	return pair[1], nil
}

// EncodePayload produces hex object data in the wrapped form for obj
func EncodePayload(name string, obj any) (string, error) {
	buf, err := json.Marshal([][]any{{name, obj}})
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
