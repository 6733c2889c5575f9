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
	"fmt"
	"strconv"

	"github.com/btcsuite/btcd/btcec/v2"
)

// SignatureMessage returns the text signed by the submitter. Unlike Hash,
// it covers the collateral hash.
func (o *Object) SignatureMessage() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.signatureMessageLocked()
}

func (o *Object) signatureMessageLocked() string {
	return o.parentHash.String() + "|" +
		strconv.FormatInt(int64(o.revision), 10) + "|" +
		strconv.FormatInt(o.time, 10) + "|" +
		o.data + "|" +
		OutpointShort(o.submitter) + "|" +
		o.collateralHash.String()
}

// Sign signs the object as its submitter and verifies the new signature
// against pubKey before keeping it
func (o *Object) Sign(key *btcec.PrivateKey, pubKey *btcec.PublicKey) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	message := o.signatureMessageLocked()
	sig, err := signMessage(key, message)
	if err != nil {
		return fmt.Errorf("sign object: %w", err)
	}
	if err := verifyMessage(pubKey, sig, message); err != nil {
		return fmt.Errorf("verify object signature: %w", err)
	}
	o.signature = sig
	o.logger.Debug(
		"signed governance object",
		"message", message,
	)
	return nil
}

// CheckSignature verifies the object signature against pubKey
func (o *Object) CheckSignature(pubKey *btcec.PublicKey) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.checkSignatureLocked(pubKey)
}

func (o *Object) checkSignatureLocked(pubKey *btcec.PublicKey) error {
	return verifyMessage(pubKey, o.signature, o.signatureMessageLocked())
}
