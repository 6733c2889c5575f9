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

// GovernanceVote indexes a vote accepted for a governance object. The
// serialized vote itself is kept in the blob store under BlobKey.
type GovernanceVote struct {
	ID         uint   `gorm:"primarykey"`
	ObjectHash []byte `gorm:"index:idx_vote_object;uniqueIndex:idx_vote_unique,priority:1;size:32;not null"`
	VoteHash   []byte `gorm:"uniqueIndex:idx_vote_unique,priority:2;size:32;not null"`
	Voter      string `gorm:"index:idx_vote_voter;size:80;not null"` // "<txid>-<index>"
	BlobKey    []byte `gorm:"size:80;not null"`
	Timestamp  int64  `gorm:"not null"`
	Signal     int32  `gorm:"not null"`
	Outcome    int32  `gorm:"not null"`
}

// TableName returns the table name
func (GovernanceVote) TableName() string {
	return "governance_vote"
}
