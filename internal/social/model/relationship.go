package model

import "time"

// Relationship is one direction of a friendship: the owner's view of the
// related user. A confirmed friendship is two mirrored rows.
type Relationship struct {
	OwnerID           int64     `gorm:"column:owner_id;primaryKey;autoIncrement:false" json:"owner_id"`
	RelatedUserID     int64     `gorm:"column:related_user_id;primaryKey;autoIncrement:false" json:"related_user_id"`
	IsBlocked         bool      `gorm:"column:is_blocked" json:"is_blocked"`
	EstablishmentDate time.Time `gorm:"column:establishment_date" json:"establishment_date"`
}

func (Relationship) TableName() string {
	return "user_relationship"
}

type RelationshipKey struct {
	OwnerID       int64
	RelatedUserID int64
}
