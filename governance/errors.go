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
	"errors"
	"fmt"
)

var (
	ErrUnparsable          = errors.New("object data unparsable")
	ErrInvalidObjectType   = errors.New("invalid object type")
	ErrSubmitterNotFound   = errors.New("submitter not found")
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrObjectNotFound      = errors.New("governance object not found")
	ErrVoteTimestampFuture = errors.New("vote timestamp too far in the future")
	ErrVoteInvalidSignal   = errors.New("vote signal out of range")
	ErrVoteInvalidOutcome  = errors.New("vote outcome out of range")
	ErrVoterNotFound       = errors.New("voter not found")
)

// Collateral validation failures
var (
	ErrCollateralNotFound      = errors.New("can't find collateral tx")
	ErrCollateralNoOutputs     = errors.New("collateral tx has no outputs")
	ErrCollateralInvalidScript = errors.New("invalid script in collateral tx")
	ErrCollateralNoCommitment  = errors.New("couldn't find commitment")
	ErrCollateralMissingInputs = errors.New("unknown inputs in collateral tx")
	ErrCollateralFeeTooLow     = errors.New("collateral fee too low")
	ErrCollateralUnconfirmed   = errors.New("collateral not sufficiently confirmed")
)

// Chain index failures
var (
	// ErrTransactionNotFound is returned by a ChainIndex that does not know
	// the requested transaction
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrChainUnavailable wraps any other chain index failure
	ErrChainUnavailable = errors.New("chain index unavailable")
)

// VoteErrorKind classifies a rejected vote for the caller's peer scoring
type VoteErrorKind int

const (
	// VoteErrorNone is a benign rejection, the vote is simply not stored
	VoteErrorNone VoteErrorKind = iota
	// VoteErrorWarning is benign but worth logging
	VoteErrorWarning
	// VoteErrorTemporary means the vote may be accepted if sent again later
	VoteErrorTemporary
	// VoteErrorPermanent means the vote will never be accepted. BanScore
	// carries the penalty the sender deserves.
	VoteErrorPermanent
)

func (k VoteErrorKind) String() string {
	switch k {
	case VoteErrorNone:
		return "none"
	case VoteErrorWarning:
		return "warning"
	case VoteErrorTemporary:
		return "temporary"
	case VoteErrorPermanent:
		return "permanent"
	default:
		return fmt.Sprintf("kind%d", int(k))
	}
}

// invalidVoteBanScore is applied for unsupported signals and bad signatures
const invalidVoteBanScore = 20

// VoteError is returned by vote processing when a vote is not committed
type VoteError struct {
	Message  string
	Kind     VoteErrorKind
	BanScore int
}

func (e *VoteError) Error() string {
	return e.Message
}

func newVoteError(
	kind VoteErrorKind,
	banScore int,
	format string,
	args ...any,
) *VoteError {
	return &VoteError{
		Kind:     kind,
		BanScore: banScore,
		Message:  fmt.Sprintf(format, args...),
	}
}

// VoteErrorKindOf reports the kind of a vote processing error. Errors that
// are not a *VoteError are treated as permanent.
func VoteErrorKindOf(err error) VoteErrorKind {
	var voteErr *VoteError
	if errors.As(err, &voteErr) {
		return voteErr.Kind
	}
	return VoteErrorPermanent
}
