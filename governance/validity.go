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
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// localValidityOK is the cached validity message of a valid object
const localValidityOK = "valid"

// IsValidLocally checks the object with the information available to this
// node. Triggers and watchdogs are checked against their submitter's key,
// other objects against their collateral transaction.
//
// ErrSubmitterNotFound, ErrCollateralUnconfirmed and ErrChainUnavailable mark
// an object that may become valid later. See IsRetryable.
func (o *Object) IsValidLocally(svc *Services, checkCollateral bool) error {
	o.mu.Lock()
	if o.unparsable {
		o.mu.Unlock()
		return ErrUnparsable
	}
	objectType := o.objectType
	switch objectType {
	case ObjectTypeProposal, ObjectTypeTrigger, ObjectTypeWatchdog:
	default:
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrInvalidObjectType, objectType)
	}
	if !checkCollateral {
		o.mu.Unlock()
		return nil
	}
	if objectType == ObjectTypeTrigger || objectType == ObjectTypeWatchdog {
		defer o.mu.Unlock()
		pubKey, ok := svc.Roster.VoterKey(o.submitter)
		if !ok {
			return fmt.Errorf(
				"%w: %s",
				ErrSubmitterNotFound,
				OutpointShort(o.submitter),
			)
		}
		if err := o.checkSignatureLocked(pubKey); err != nil {
			return fmt.Errorf(
				"%w: submitter %s",
				ErrInvalidSignature,
				OutpointShort(o.submitter),
			)
		}
		return nil
	}
	// Chain lookups happen without holding the object lock
	o.mu.Unlock()
	return o.IsCollateralValid(svc)
}

// UpdateLocalValidity caches the result of IsValidLocally without the
// collateral check
func (o *Object) UpdateLocalValidity(svc *Services) {
	err := o.IsValidLocally(svc, false)
	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.localValid = false
		o.localError = err.Error()
		return
	}
	o.localValid = true
	o.localError = localValidityOK
}

// LocalValidity returns the result cached by UpdateLocalValidity
func (o *Object) LocalValidity() (bool, string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.localValid, o.localError
}

// MinCollateralFee returns the fee the collateral transaction must burn
func (o *Object) MinCollateralFee(params *Params) btcutil.Amount {
	if params == nil {
		params = &MainNetParams
	}
	return params.MinCollateralFee(o.objectType)
}

// IsCollateralValid checks that the collateral transaction burns at least
// the minimum fee, commits to this object with an OP_RETURN output and is
// sufficiently confirmed.
func (o *Object) IsCollateralValid(svc *Services) error {
	err := o.isCollateralValid(svc)
	svc.Metrics.collateralChecked(err)
	if err != nil {
		svc.logger().Debug(
			"collateral invalid",
			"component", "governance",
			"collateral", o.collateralHash.String(),
			"error", err,
		)
	}
	return err
}

func (o *Object) isCollateralValid(svc *Services) error {
	params := svc.params()
	objectHash := o.Hash()
	minFee := params.MinCollateralFee(o.objectType)
	tx, blockHash, err := svc.Chain.FetchTransaction(o.collateralHash)
	if err != nil && !errors.Is(err, ErrTransactionNotFound) {
		return fmt.Errorf(
			"%w: fetch collateral %s: %w",
			ErrChainUnavailable,
			o.collateralHash,
			err,
		)
	}
	if err != nil || tx == nil {
		return fmt.Errorf(
			"%w: %s",
			ErrCollateralNotFound,
			o.collateralHash,
		)
	}
	if len(tx.TxOut) == 0 {
		return fmt.Errorf(
			"%w: %s",
			ErrCollateralNoOutputs,
			o.collateralHash,
		)
	}
	commitment, err := txscript.NullDataScript(objectHash[:])
	if err != nil {
		return err
	}
	var (
		foundCommitment bool
		outputTotal     btcutil.Amount
	)
	for _, out := range tx.TxOut {
		outputTotal += btcutil.Amount(out.Value)
		if !isNormalPaymentScript(out.PkScript) &&
			!txscript.IsUnspendable(out.PkScript) {
			return fmt.Errorf(
				"%w: %s",
				ErrCollateralInvalidScript,
				o.collateralHash,
			)
		}
		if bytes.Equal(out.PkScript, commitment) {
			foundCommitment = true
		}
	}
	if !foundCommitment {
		return fmt.Errorf(
			"%w: object %s, collateral %s",
			ErrCollateralNoCommitment,
			objectHash,
			o.collateralHash,
		)
	}
	inputTotal, err := collateralInputTotal(svc.Chain, tx)
	if err != nil {
		return err
	}
	fee := inputTotal - outputTotal
	if fee < minFee {
		return fmt.Errorf(
			"%w: fee %s, required %s",
			ErrCollateralFeeTooLow,
			fee,
			minFee,
		)
	}
	confirmations := svc.Chain.InstantConfirmationCount(o.collateralHash)
	if blockHash != nil {
		if height, ok := svc.Chain.BlockHeight(*blockHash); ok {
			tip, err := svc.Chain.ChainTipHeight()
			if err != nil {
				return fmt.Errorf("%w: chain tip: %w", ErrChainUnavailable, err)
			}
			confirmations += int(tip-height) + 1
		}
	}
	if confirmations < params.FeeConfirmations {
		return fmt.Errorf(
			"%w: %d of %d confirmations",
			ErrCollateralUnconfirmed,
			confirmations,
			params.FeeConfirmations,
		)
	}
	return nil
}

func isNormalPaymentScript(script []byte) bool {
	return txscript.GetScriptClass(script) == txscript.PubKeyHashTy
}

func collateralInputTotal(
	chain ChainIndex,
	tx *wire.MsgTx,
) (btcutil.Amount, error) {
	var total btcutil.Amount
	prevTxs := make(map[chainhash.Hash]*wire.MsgTx)
	for _, in := range tx.TxIn {
		prevHash := in.PreviousOutPoint.Hash
		prev, ok := prevTxs[prevHash]
		if !ok {
			var err error
			prev, _, err = chain.FetchTransaction(prevHash)
			if err != nil && !errors.Is(err, ErrTransactionNotFound) {
				return 0, fmt.Errorf(
					"%w: fetch input %s: %w",
					ErrChainUnavailable,
					in.PreviousOutPoint,
					err,
				)
			}
			if err != nil || prev == nil {
				return 0, fmt.Errorf(
					"%w: %s",
					ErrCollateralMissingInputs,
					in.PreviousOutPoint,
				)
			}
			prevTxs[prevHash] = prev
		}
		index := in.PreviousOutPoint.Index
		if int(index) >= len(prev.TxOut) {
			return 0, fmt.Errorf(
				"%w: %s",
				ErrCollateralMissingInputs,
				in.PreviousOutPoint,
			)
		}
		total += btcutil.Amount(prev.TxOut[index].Value)
	}
	return total, nil
}

// IsRetryable reports whether an object validation error may clear up
// later without the object changing
func IsRetryable(err error) bool {
	return errors.Is(err, ErrSubmitterNotFound) ||
		errors.Is(err, ErrCollateralUnconfirmed) ||
		errors.Is(err, ErrChainUnavailable)
}
