package logic

import (
	"errors"
	"strconv"
	"time"

	"social-im/internal/common/errcode"
	"social-im/internal/common/middleware/mhttp"
	"social-im/internal/common/response"
	"social-im/internal/pkg/log"
	"social-im/internal/pkg/mjson"
	"social-im/internal/pkg/mkafka"
	"social-im/internal/social/model"
	"social-im/internal/social/server"
	"social-im/internal/social/types"

	"github.com/gin-gonic/gin"
	"github.com/segmentio/kafka-go"
)

type FriendRequestApi struct {
	s *server.Server
}

func NewFriendRequestApi(s *server.Server) *FriendRequestApi {
	return &FriendRequestApi{s}
}

func (api *FriendRequestApi) RegisterRouter(engine *gin.RouterGroup) {
	requests := engine.Group("/friend-requests", mhttp.AuthMiddleware(), mhttp.BlockMiddleware(api.s.Redis))
	{
		requests.POST("", api.CreateFriendRequest)
		requests.PUT("", api.HandleFriendRequest)
		requests.DELETE("", api.RecallFriendRequest)
		requests.GET("", api.ListFriendRequests)
	}
}

func (api *FriendRequestApi) CreateFriendRequest(c *gin.Context) {
	var (
		req  types.CreateFriendRequestReq
		resp types.CreateFriendRequestResp
		err  error
	)
	defer func() {
		if err != nil {
			response.Error(c, err)
		} else {
			response.Success(c, resp)
		}
	}()
	if err = c.BindJSON(&req); err != nil {
		err = errcode.ErrIllegalArgument
		return
	}
	userId := c.GetInt64(mhttp.UserIDKey)
	request, err := api.s.FriendRequests.AuthAndCreateRequest(c.Request.Context(), userId, req.RecipientID, req.Content, nil)
	if err != nil {
		api.recordAbuse(userId, err)
		return
	}
	resp.Request = types.NewFriendRequestView(request)
	api.notify(mkafka.FriendRequestCreatedMsg, request.ID, request.RequesterID, request.RecipientID, request.Status)
}

func (api *FriendRequestApi) HandleFriendRequest(c *gin.Context) {
	var (
		req  types.HandleFriendRequestReq
		resp types.HandleFriendRequestResp
		err  error
	)
	defer func() {
		if err != nil {
			response.Error(c, err)
		} else {
			response.Success(c, resp)
		}
	}()
	if err = c.BindJSON(&req); err != nil {
		err = errcode.ErrIllegalArgument
		return
	}
	var action model.RequestStatus
	switch req.Action {
	case "accept":
		action = model.RequestStatusAccepted
	case "decline":
		action = model.RequestStatusDeclined
	case "ignore":
		action = model.RequestStatusIgnored
	default:
		err = errcode.ErrIllegalArgument.WithDetail("unknown action %q", req.Action)
		return
	}
	userId := c.GetInt64(mhttp.UserIDKey)
	result, err := api.s.FriendRequests.AuthAndHandleRequest(c.Request.Context(), userId, req.RequestID, action, req.Reason)
	if err != nil {
		api.recordAbuse(userId, err)
		return
	}
	resp.RequesterGroupIndex = result.RequesterGroupIndex
	resp.RecipientGroupIndex = result.RecipientGroupIndex
	api.notify(mkafka.FriendRequestHandledMsg, req.RequestID, result.RequesterID, result.RecipientID, action)
}

func (api *FriendRequestApi) RecallFriendRequest(c *gin.Context) {
	var (
		req types.RecallFriendRequestReq
		err error
	)
	defer func() {
		if err != nil {
			response.Error(c, err)
		} else {
			response.Success(c, nil)
		}
	}()
	if err = c.BindJSON(&req); err != nil {
		err = errcode.ErrIllegalArgument
		return
	}
	userId := c.GetInt64(mhttp.UserIDKey)
	if err = api.s.FriendRequests.AuthAndRecallRequest(c.Request.Context(), userId, req.RequestID); err != nil {
		api.recordAbuse(userId, err)
		return
	}
	api.notify(mkafka.FriendRequestRecalledMsg, req.RequestID, userId, 0, model.RequestStatusCanceled)
}

func (api *FriendRequestApi) ListFriendRequests(c *gin.Context) {
	var (
		resp types.ListFriendRequestsResp
		err  error
	)
	defer func() {
		if err != nil {
			response.Error(c, err)
		} else {
			response.Success(c, resp)
		}
	}()
	sent := c.Query("sent") == "true"
	lastUpdated, err := parseMilliQuery(c, "last_updated_date")
	if err != nil {
		return
	}
	requests, version, err := api.s.FriendRequests.QueryRequestsWithVersion(
		c.Request.Context(), c.GetInt64(mhttp.UserIDKey), sent, lastUpdated)
	if err != nil {
		return
	}
	resp.Requests = types.NewFriendRequestViews(requests)
	resp.LastUpdatedDate = types.UnixMilliPtr(version)
}

// recordAbuse feeds authorization failures into the auto-block manager; they
// are the signals an abusive or probing client produces.
func (api *FriendRequestApi) recordAbuse(userId int64, err error) {
	if errors.Is(err, errcode.ErrBlockedUserSendFriendRequest) ||
		errors.Is(err, errcode.ErrNotSenderToRecallFriendRequest) ||
		errors.Is(err, errcode.ErrNotRecipientToUpdateFriendRequest) {
		api.s.Blocklist.TryBlock(userId)
	}
}

func (api *FriendRequestApi) notify(msgType mkafka.MsgType, requestId, requesterId, recipientId int64, status model.RequestStatus) {
	if api.s.KafkaWriter == nil {
		return
	}
	payload, err := mjson.Marshal(types.FriendRequestEvent{
		Type:        msgType,
		RequestID:   requestId,
		RequesterID: requesterId,
		RecipientID: recipientId,
		Status:      status.String(),
		Timestamp:   time.Now().UnixMilli(),
	})
	if err != nil {
		log.Errorf("marshal friend request event: %v", err)
		return
	}
	api.s.KafkaWriter.Send(kafka.Message{
		Key:   []byte(strconv.FormatInt(requestId, 10)),
		Value: payload,
	})
}

func parseMilliQuery(c *gin.Context, name string) (*time.Time, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil, nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, errcode.ErrIllegalArgument.WithDetail("%s must be unix milliseconds", name)
	}
	t := time.UnixMilli(ms)
	return &t, nil
}
