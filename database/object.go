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

package database

import (
	"errors"
	"fmt"

	"github.com/blinklabs-io/gobject/database/models"
	"github.com/blinklabs-io/gobject/governance"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"gorm.io/gorm/clause"
)

// SaveObject creates or updates the record of an object
func (d *Database) SaveObject(record governance.ObjectRecord) error {
	tmpObject := models.GovernanceObject{
		Hash:           record.Hash[:],
		ParentHash:     record.ParentHash[:],
		CollateralHash: record.CollateralHash[:],
		Submitter:      governance.OutpointShort(record.Submitter),
		Signature:      record.Signature,
		Data:           record.Data,
		Time:           record.Time,
		DeletionTime:   record.DeletionTime,
		Revision:       record.Revision,
		Funding:        record.Funding,
		Valid:          record.Valid,
		Deleted:        record.Delete,
		Endorsed:       record.Endorsed,
		Expired:        record.Expired,
	}
	if payload, err := governance.DecodePayload(record.Data); err == nil {
		tmpObject.ObjectType = int(payload.Type())
	}
	result := d.metadata.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "hash"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"collateral_hash",
			"deletion_time",
			"funding",
			"valid",
			"deleted",
			"endorsed",
			"expired",
		}),
	}).Create(&tmpObject)
	if result.Error != nil {
		return result.Error
	}
	return nil
}

// DeleteObject removes an object and all of its votes
func (d *Database) DeleteObject(hash chainhash.Hash) error {
	if err := d.deleteVotes(hash); err != nil {
		return err
	}
	result := d.metadata.
		Where("hash = ?", hash[:]).
		Delete(&models.GovernanceObject{})
	if result.Error != nil {
		return result.Error
	}
	return nil
}

// LoadObjects returns the records of all stored objects
func (d *Database) LoadObjects() ([]governance.ObjectRecord, error) {
	var tmpObjects []models.GovernanceObject
	result := d.metadata.Order("id").Find(&tmpObjects)
	if result.Error != nil {
		return nil, result.Error
	}
	ret := make([]governance.ObjectRecord, 0, len(tmpObjects))
	for _, tmpObject := range tmpObjects {
		record, err := objectRecordFromModel(tmpObject)
		if err != nil {
			return nil, fmt.Errorf("object %x: %w", tmpObject.Hash, err)
		}
		ret = append(ret, record)
	}
	return ret, nil
}

func hashFromBytes(b []byte) (chainhash.Hash, error) {
	var hash chainhash.Hash
	if err := hash.SetBytes(b); err != nil {
		return hash, err
	}
	return hash, nil
}

func objectRecordFromModel(
	tmpObject models.GovernanceObject,
) (governance.ObjectRecord, error) {
	var (
		record governance.ObjectRecord
		err    error
	)
	if record.Hash, err = hashFromBytes(tmpObject.Hash); err != nil {
		return record, err
	}
	if record.ParentHash, err = hashFromBytes(tmpObject.ParentHash); err != nil {
		return record, err
	}
	if record.CollateralHash, err = hashFromBytes(tmpObject.CollateralHash); err != nil {
		return record, err
	}
	if tmpObject.Submitter == "" {
		return record, errors.New("missing submitter")
	}
	if record.Submitter, err = governance.ParseOutpoint(tmpObject.Submitter); err != nil {
		return record, err
	}
	record.Signature = tmpObject.Signature
	record.Data = tmpObject.Data
	record.Time = tmpObject.Time
	record.DeletionTime = tmpObject.DeletionTime
	record.Revision = tmpObject.Revision
	record.Funding = tmpObject.Funding
	record.Valid = tmpObject.Valid
	record.Delete = tmpObject.Deleted
	record.Endorsed = tmpObject.Endorsed
	record.Expired = tmpObject.Expired
	return record, nil
}
