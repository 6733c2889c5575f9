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
	"time"

	"github.com/btcsuite/btcd/btcutil"
)

// Params holds the network specific governance consensus parameters
type Params struct {
	Name string
	// PercentageQuorum enables quorums derived from the enabled voter count.
	// Smaller networks use MinQuorum directly.
	PercentageQuorum bool
	MinQuorum        int
	ProposalFee      btcutil.Amount
	FeeConfirmations int
	// VoteUpdateMin is the minimum time between accepted updates of the
	// same voter and signal
	VoteUpdateMin    time.Duration
	OrphanExpiration time.Duration
	// DeletionDelay is how long an object flagged for deletion is kept
	DeletionDelay time.Duration
	// MaxVoteFutureDrift bounds how far ahead of local time a vote may be stamped
	MaxVoteFutureDrift time.Duration
}

var MainNetParams = Params{
	Name:               "main",
	PercentageQuorum:   true,
	MinQuorum:          10,
	ProposalFee:        5 * btcutil.SatoshiPerBitcoin,
	FeeConfirmations:   6,
	VoteUpdateMin:      time.Hour,
	OrphanExpiration:   10 * time.Minute,
	DeletionDelay:      10 * time.Minute,
	MaxVoteFutureDrift: time.Hour,
}

var TestNetParams = Params{
	Name:               "test",
	MinQuorum:          1,
	ProposalFee:        5 * btcutil.SatoshiPerBitcoin,
	FeeConfirmations:   6,
	VoteUpdateMin:      time.Hour,
	OrphanExpiration:   10 * time.Minute,
	DeletionDelay:      10 * time.Minute,
	MaxVoteFutureDrift: time.Hour,
}

var RegTestParams = Params{
	Name:               "regtest",
	MinQuorum:          1,
	ProposalFee:        5 * btcutil.SatoshiPerBitcoin,
	FeeConfirmations:   6,
	VoteUpdateMin:      time.Hour,
	OrphanExpiration:   10 * time.Minute,
	DeletionDelay:      10 * time.Minute,
	MaxVoteFutureDrift: time.Hour,
}

// ParamsByName returns the parameters for a named network
func ParamsByName(name string) (*Params, bool) {
	switch name {
	case MainNetParams.Name, "mainnet":
		return &MainNetParams, true
	case TestNetParams.Name, "testnet":
		return &TestNetParams, true
	case RegTestParams.Name:
		return &RegTestParams, true
	}
	return nil, false
}

// RequiredVotes returns the absolute vote counts needed to raise the
// funding/valid/endorsed flags and the delete flag respectively
func (p *Params) RequiredVotes(enabledVoters int) (int, int) {
	if !p.PercentageQuorum {
		return p.MinQuorum, p.MinQuorum
	}
	return max(p.MinQuorum, enabledVoters/10),
		max(p.MinQuorum, (2*enabledVoters)/3)
}

// MinCollateralFee returns the fee a collateral transaction must burn for
// an object of the given type
func (p *Params) MinCollateralFee(objectType ObjectType) btcutil.Amount {
	switch objectType {
	case ObjectTypeProposal:
		return p.ProposalFee
	case ObjectTypeTrigger, ObjectTypeWatchdog:
		return 0
	default:
		return btcutil.MaxSatoshi
	}
}
