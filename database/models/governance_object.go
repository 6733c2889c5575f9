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

package models

// GovernanceObject is the persisted state of a tracked governance object
type GovernanceObject struct {
	ID             uint   `gorm:"primarykey"`
	Hash           []byte `gorm:"uniqueIndex;size:32;not null"`
	ParentHash     []byte `gorm:"size:32;not null"`
	CollateralHash []byte `gorm:"size:32;not null"`
	Submitter      string `gorm:"size:80"`
	Signature      []byte
	Data           string
	Time           int64 `gorm:"not null"`
	DeletionTime   int64
	Revision       int32 `gorm:"not null"`
	ObjectType     int   `gorm:"index"`
	Funding        bool
	Valid          bool
	Deleted        bool
	Endorsed       bool
	Expired        bool
}

// TableName returns the table name
func (GovernanceObject) TableName() string {
	return "governance_object"
}
