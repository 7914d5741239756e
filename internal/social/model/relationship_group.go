package model

import "time"

// DefaultGroupIndex names the indestructible group every user has.
const DefaultGroupIndex int32 = 0

// DefaultGroupName is the name the default group is created with.
const DefaultGroupName = "Default"

type RelationshipGroup struct {
	OwnerID      int64     `gorm:"column:owner_id;primaryKey;autoIncrement:false" json:"owner_id"`
	GroupIndex   int32     `gorm:"column:group_index;primaryKey;autoIncrement:false" json:"group_index"`
	Name         string    `gorm:"column:name" json:"name"`
	CreationDate time.Time `gorm:"column:creation_date" json:"creation_date"`
}

func (RelationshipGroup) TableName() string {
	return "user_relationship_group"
}

type RelationshipGroupKey struct {
	OwnerID    int64
	GroupIndex int32
}
