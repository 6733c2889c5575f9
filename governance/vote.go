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
	"strconv"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// Vote is a signed position taken by a masternode on one signal of a
// governance object
type Vote struct {
	Voter      wire.OutPoint
	ParentHash chainhash.Hash
	Signature  []byte
	Timestamp  int64
	Signal     Signal
	Outcome    Outcome
}

func NewVote(
	voter wire.OutPoint,
	parentHash chainhash.Hash,
	signal Signal,
	outcome Outcome,
	timestamp int64,
) *Vote {
	return &Vote{
		Voter:      voter,
		ParentHash: parentHash,
		Signal:     signal,
		Outcome:    outcome,
		Timestamp:  timestamp,
	}
}

func (v *Vote) writeBody(w io.Writer) error {
	if err := writeVoterTxIn(w, v.Voter); err != nil {
		return err
	}
	if _, err := w.Write(v.ParentHash[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int32(v.Signal)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int32(v.Outcome)); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, v.Timestamp)
}

// Hash identifies the vote. The signature is not covered.
func (v *Vote) Hash() chainhash.Hash {
	var buf bytes.Buffer
	// Writes to a bytes.Buffer cannot fail
	_ = v.writeBody(&buf)
	return chainhash.DoubleHashH(buf.Bytes())
}

// SignatureMessage is the text signed by the voter
func (v *Vote) SignatureMessage() string {
	return OutpointShort(v.Voter) + "|" +
		v.ParentHash.String() + "|" +
		strconv.Itoa(int(v.Signal)) + "|" +
		strconv.Itoa(int(v.Outcome)) + "|" +
		strconv.FormatInt(v.Timestamp, 10)
}

// Sign signs the vote and verifies the result against pubKey
func (v *Vote) Sign(key *btcec.PrivateKey, pubKey *btcec.PublicKey) error {
	message := v.SignatureMessage()
	sig, err := signMessage(key, message)
	if err != nil {
		return fmt.Errorf("sign vote: %w", err)
	}
	if err := verifyMessage(pubKey, sig, message); err != nil {
		return fmt.Errorf("verify vote signature: %w", err)
	}
	v.Signature = sig
	return nil
}

func (v *Vote) CheckSignature(pubKey *btcec.PublicKey) error {
	return verifyMessage(pubKey, v.Signature, v.SignatureMessage())
}

// IsValid checks the vote fields and its signature against the voter key
// published by the roster
func (v *Vote) IsValid(now time.Time, maxDrift time.Duration, roster Roster) error {
	if v.Timestamp > now.Add(maxDrift).Unix() {
		return fmt.Errorf(
			"%w: vote time %d, now %d",
			ErrVoteTimestampFuture,
			v.Timestamp,
			now.Unix(),
		)
	}
	if v.Signal < SignalNone || v.Signal > SignalMaxKnown {
		return fmt.Errorf("%w: %d", ErrVoteInvalidSignal, v.Signal)
	}
	if v.Outcome < OutcomeYes || v.Outcome > OutcomeAbstain {
		return fmt.Errorf("%w: %d", ErrVoteInvalidOutcome, v.Outcome)
	}
	pubKey, ok := roster.VoterKey(v.Voter)
	if !ok {
		return fmt.Errorf("%w: %s", ErrVoterNotFound, OutpointShort(v.Voter))
	}
	return v.CheckSignature(pubKey)
}

// Serialize writes the vote including its signature
func (v *Vote) Serialize(w io.Writer) error {
	if err := v.writeBody(w); err != nil {
		return err
	}
	return wire.WriteVarBytes(w, 0, v.Signature)
}

// Bytes returns the serialized vote
func (v *Vote) Bytes() []byte {
	var buf bytes.Buffer
	_ = v.Serialize(&buf)
	return buf.Bytes()
}

// DeserializeVote decodes a vote written by Serialize
func DeserializeVote(data []byte) (*Vote, error) {
	r := bytes.NewReader(data)
	var (
		v       Vote
		signal  int32
		outcome int32
		err     error
	)
	if v.Voter, err = readVoterTxIn(r); err != nil {
		return nil, fmt.Errorf("decode vote voter: %w", err)
	}
	if _, err := io.ReadFull(r, v.ParentHash[:]); err != nil {
		return nil, fmt.Errorf("decode vote parent hash: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &signal); err != nil {
		return nil, fmt.Errorf("decode vote signal: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &outcome); err != nil {
		return nil, fmt.Errorf("decode vote outcome: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &v.Timestamp); err != nil {
		return nil, fmt.Errorf("decode vote timestamp: %w", err)
	}
	v.Signal = Signal(signal)
	v.Outcome = Outcome(outcome)
	sig, err := wire.ReadVarBytes(r, 0, maxSignatureSize, "signature")
	if err != nil {
		return nil, fmt.Errorf("decode vote signature: %w", err)
	}
	if len(sig) > 0 {
		v.Signature = sig
	}
	return &v, nil
}

func (v *Vote) String() string {
	return fmt.Sprintf(
		"vote %s: voter=%s object=%s signal=%s outcome=%s time=%d",
		v.Hash(),
		OutpointShort(v.Voter),
		v.ParentHash,
		v.Signal,
		v.Outcome,
		v.Timestamp,
	)
}
