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
	"encoding/binary"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// signedMessageMagic prefixes every signed governance message
const signedMessageMagic = "DarkCoin Signed Message:\n"

// maxSignatureSize bounds the signature read back from storage
const maxSignatureSize = 256

// writeVoterTxIn writes the voter outpoint in transaction input form with an
// empty signature script and a final sequence number.
func writeVoterTxIn(w io.Writer, op wire.OutPoint) error {
	if _, err := w.Write(op.Hash[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, op.Index); err != nil {
		return err
	}
	if err := wire.WriteVarBytes(w, 0, nil); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, uint32(wire.MaxTxInSequenceNum))
}

func readVoterTxIn(r io.Reader) (wire.OutPoint, error) {
	var op wire.OutPoint
	if _, err := io.ReadFull(r, op.Hash[:]); err != nil {
		return op, err
	}
	if err := binary.Read(r, binary.LittleEndian, &op.Index); err != nil {
		return op, err
	}
	if _, err := wire.ReadVarBytes(r, 0, wire.MaxMessagePayload, "scriptSig"); err != nil {
		return op, err
	}
	var sequence uint32
	if err := binary.Read(r, binary.LittleEndian, &sequence); err != nil {
		return op, err
	}
	return op, nil
}

func messageHash(message string) ([]byte, error) {
	var buf bytes.Buffer
	if err := wire.WriteVarString(&buf, 0, signedMessageMagic); err != nil {
		return nil, err
	}
	if err := wire.WriteVarString(&buf, 0, message); err != nil {
		return nil, err
	}
	return chainhash.DoubleHashB(buf.Bytes()), nil
}

func signMessage(key *btcec.PrivateKey, message string) ([]byte, error) {
	hash, err := messageHash(message)
	if err != nil {
		return nil, err
	}
	return ecdsa.SignCompact(key, hash, true), nil
}

// verifyMessage checks that sig over message was produced by pubKey
func verifyMessage(pubKey *btcec.PublicKey, sig []byte, message string) error {
	if pubKey == nil {
		return fmt.Errorf("%w: no public key", ErrInvalidSignature)
	}
	hash, err := messageHash(message)
	if err != nil {
		return err
	}
	recovered, _, err := ecdsa.RecoverCompact(sig, hash)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	if !recovered.IsEqual(pubKey) {
		return fmt.Errorf("%w: signer key mismatch", ErrInvalidSignature)
	}
	return nil
}
