package model

import "time"

// UserVersion carries one last-updated timestamp per sync stream. The rows
// are a cache for incremental sync, not authoritative state: writers bump
// them best-effort with last-writer-wins wall-clock semantics.
type UserVersion struct {
	UserID                 int64      `gorm:"column:user_id;primaryKey;autoIncrement:false" json:"user_id"`
	SentRequestsDate       *time.Time `gorm:"column:sent_requests_date" json:"sent_requests_date,omitempty"`
	ReceivedRequestsDate   *time.Time `gorm:"column:received_requests_date" json:"received_requests_date,omitempty"`
	RelationshipGroupsDate *time.Time `gorm:"column:relationship_groups_date" json:"relationship_groups_date,omitempty"`
	GroupMembersDate       *time.Time `gorm:"column:group_members_date" json:"group_members_date,omitempty"`
}

func (UserVersion) TableName() string {
	return "user_version"
}
