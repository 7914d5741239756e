package types

import (
	"time"

	"social-im/internal/pkg/mkafka"
	"social-im/internal/social/model"
)

// Dates cross the API as unix milliseconds.

func UnixMilliPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func TimeFromMilliPtr(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := time.UnixMilli(*ms)
	return &t
}

type FriendRequestView struct {
	ID           int64   `json:"id"`
	RequesterID  int64   `json:"requester_id"`
	RecipientID  int64   `json:"recipient_id"`
	Content      string  `json:"content"`
	Status       string  `json:"status"`
	Reason       *string `json:"reason,omitempty"`
	CreationDate int64   `json:"creation_date"`
	ResponseDate *int64  `json:"response_date,omitempty"`
}

func NewFriendRequestView(request *model.FriendRequest) FriendRequestView {
	return FriendRequestView{
		ID:           request.ID,
		RequesterID:  request.RequesterID,
		RecipientID:  request.RecipientID,
		Content:      request.Content,
		Status:       request.Status.String(),
		Reason:       request.Reason,
		CreationDate: request.CreationDate.UnixMilli(),
		ResponseDate: UnixMilliPtr(request.ResponseDate),
	}
}

func NewFriendRequestViews(requests []*model.FriendRequest) []FriendRequestView {
	views := make([]FriendRequestView, 0, len(requests))
	for _, request := range requests {
		views = append(views, NewFriendRequestView(request))
	}
	return views
}

type CreateFriendRequestReq struct {
	RecipientID int64   `json:"recipient_id"`
	Content     *string `json:"content"`
}

type CreateFriendRequestResp struct {
	Request FriendRequestView `json:"request"`
}

type RecallFriendRequestReq struct {
	RequestID int64 `json:"request_id"`
}

type HandleFriendRequestReq struct {
	RequestID int64   `json:"request_id"`
	Action    string  `json:"action"` // accept, decline or ignore
	Reason    *string `json:"reason"`
}

type HandleFriendRequestResp struct {
	RequesterGroupIndex *int32 `json:"requester_group_index,omitempty"`
	RecipientGroupIndex *int32 `json:"recipient_group_index,omitempty"`
}

type ListFriendRequestsResp struct {
	Requests        []FriendRequestView `json:"requests"`
	LastUpdatedDate *int64              `json:"last_updated_date,omitempty"`
}

type RelationshipGroupView struct {
	Index        int32  `json:"index"`
	Name         string `json:"name"`
	CreationDate int64  `json:"creation_date"`
}

func NewRelationshipGroupViews(groups []*model.RelationshipGroup) []RelationshipGroupView {
	views := make([]RelationshipGroupView, 0, len(groups))
	for _, group := range groups {
		views = append(views, RelationshipGroupView{
			Index:        group.GroupIndex,
			Name:         group.Name,
			CreationDate: group.CreationDate.UnixMilli(),
		})
	}
	return views
}

type CreateRelationshipGroupReq struct {
	Index *int32 `json:"index"`
	Name  string `json:"name"`
}

type CreateRelationshipGroupResp struct {
	Group RelationshipGroupView `json:"group"`
}

type UpdateRelationshipGroupReq struct {
	Index int32  `json:"index"`
	Name  string `json:"name"`
}

type DeleteRelationshipGroupReq struct {
	DeleteIndex int32  `json:"delete_index"`
	NewIndex    *int32 `json:"new_index"`
}

type ListRelationshipGroupsResp struct {
	Groups          []RelationshipGroupView `json:"groups"`
	LastUpdatedDate *int64                  `json:"last_updated_date,omitempty"`
}

type UpsertGroupMemberReq struct {
	RelatedUserID int64  `json:"related_user_id"`
	NewIndex      *int32 `json:"new_index"`
	DeleteIndex   *int32 `json:"delete_index"`
}

type UpsertGroupMemberResp struct {
	GroupIndex *int32 `json:"group_index,omitempty"`
}

type ListGroupMembersResp struct {
	MemberIDs       []int64 `json:"member_ids"`
	LastUpdatedDate *int64  `json:"last_updated_date,omitempty"`
}

type BlockUserReq struct {
	RelatedUserID int64 `json:"related_user_id"`
}

type DeleteRelationshipReq struct {
	RelatedUserID int64 `json:"related_user_id"`
}

type ListRelatedUsersResp struct {
	RelatedUserIDs []int64 `json:"related_user_ids"`
}

// FriendRequestEvent is the kafka notify payload for the request lifecycle.
type FriendRequestEvent struct {
	Type        mkafka.MsgType `json:"type"`
	RequestID   int64          `json:"request_id"`
	RequesterID int64          `json:"requester_id"`
	RecipientID int64          `json:"recipient_id"`
	Status      string         `json:"status"`
	Timestamp   int64          `json:"timestamp"`
}
