package model

import "time"

type RequestStatus int8

const (
	RequestStatusPending RequestStatus = iota + 1
	RequestStatusAccepted
	RequestStatusDeclined
	RequestStatusIgnored
	RequestStatusCanceled
	// RequestStatusExpired is a read-time projection of an old PENDING
	// request. It is never written to the store.
	RequestStatusExpired
)

func (s RequestStatus) String() string {
	switch s {
	case RequestStatusPending:
		return "PENDING"
	case RequestStatusAccepted:
		return "ACCEPTED"
	case RequestStatusDeclined:
		return "DECLINED"
	case RequestStatusIgnored:
		return "IGNORED"
	case RequestStatusCanceled:
		return "CANCELED"
	case RequestStatusExpired:
		return "EXPIRED"
	}
	return "UNKNOWN"
}

// IsStorable reports whether the status may be persisted.
func (s RequestStatus) IsStorable() bool {
	return s >= RequestStatusPending && s <= RequestStatusCanceled
}

type FriendRequest struct {
	ID           int64         `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	RequesterID  int64         `gorm:"column:requester_id;index" json:"requester_id"`
	RecipientID  int64         `gorm:"column:recipient_id;index" json:"recipient_id"`
	Content      string        `gorm:"column:content" json:"content"`
	Status       RequestStatus `gorm:"column:status" json:"status"`
	Reason       *string       `gorm:"column:reason" json:"reason,omitempty"`
	CreationDate time.Time     `gorm:"column:creation_date" json:"creation_date"`
	ResponseDate *time.Time    `gorm:"column:response_date" json:"response_date,omitempty"`
}

func (FriendRequest) TableName() string {
	return "friend_request"
}
