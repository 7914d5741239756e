package model

import "time"

type RelationshipGroupMember struct {
	OwnerID       int64     `gorm:"column:owner_id;primaryKey;autoIncrement:false" json:"owner_id"`
	GroupIndex    int32     `gorm:"column:group_index;primaryKey;autoIncrement:false" json:"group_index"`
	RelatedUserID int64     `gorm:"column:related_user_id;primaryKey;autoIncrement:false" json:"related_user_id"`
	JoinDate      time.Time `gorm:"column:join_date" json:"join_date"`
}

func (RelationshipGroupMember) TableName() string {
	return "user_relationship_group_member"
}
