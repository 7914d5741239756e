package logic

import (
	"strconv"

	"social-im/internal/common/errcode"
	"social-im/internal/common/middleware/mhttp"
	"social-im/internal/common/response"
	"social-im/internal/social/model"
	"social-im/internal/social/server"
	"social-im/internal/social/types"

	"github.com/gin-gonic/gin"
)

type RelationshipGroupApi struct {
	s *server.Server
}

func NewRelationshipGroupApi(s *server.Server) *RelationshipGroupApi {
	return &RelationshipGroupApi{s}
}

func (api *RelationshipGroupApi) RegisterRouter(engine *gin.RouterGroup) {
	groups := engine.Group("/relationship-groups", mhttp.AuthMiddleware(), mhttp.BlockMiddleware(api.s.Redis))
	{
		groups.POST("", api.CreateGroup)
		groups.PUT("", api.UpdateGroup)
		groups.DELETE("", api.DeleteGroup)
		groups.GET("", api.ListGroups)
		groups.POST("/members", api.UpsertGroupMember)
		groups.GET("/members", api.ListGroupMembers)
	}
}

func (api *RelationshipGroupApi) CreateGroup(c *gin.Context) {
	var (
		req  types.CreateRelationshipGroupReq
		resp types.CreateRelationshipGroupResp
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
	group, err := api.s.Groups.CreateGroup(c.Request.Context(), c.GetInt64(mhttp.UserIDKey), req.Index, req.Name, nil, nil)
	if err != nil {
		return
	}
	resp.Group = types.RelationshipGroupView{
		Index:        group.GroupIndex,
		Name:         group.Name,
		CreationDate: group.CreationDate.UnixMilli(),
	}
}

func (api *RelationshipGroupApi) UpdateGroup(c *gin.Context) {
	var (
		req types.UpdateRelationshipGroupReq
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
	err = api.s.Groups.UpdateGroupName(c.Request.Context(), c.GetInt64(mhttp.UserIDKey), req.Index, req.Name)
}

func (api *RelationshipGroupApi) DeleteGroup(c *gin.Context) {
	var (
		req types.DeleteRelationshipGroupReq
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
	newIndex := model.DefaultGroupIndex
	if req.NewIndex != nil {
		newIndex = *req.NewIndex
	}
	err = api.s.Groups.DeleteGroupAndMoveMembers(c.Request.Context(), c.GetInt64(mhttp.UserIDKey), req.DeleteIndex, newIndex)
}

func (api *RelationshipGroupApi) ListGroups(c *gin.Context) {
	var (
		resp types.ListRelationshipGroupsResp
		err  error
	)
	defer func() {
		if err != nil {
			response.Error(c, err)
		} else {
			response.Success(c, resp)
		}
	}()
	lastUpdated, err := parseMilliQuery(c, "last_updated_date")
	if err != nil {
		return
	}
	groups, version, err := api.s.Groups.QueryGroupsWithVersion(c.Request.Context(), c.GetInt64(mhttp.UserIDKey), lastUpdated)
	if err != nil {
		return
	}
	resp.Groups = types.NewRelationshipGroupViews(groups)
	resp.LastUpdatedDate = types.UnixMilliPtr(version)
}

func (api *RelationshipGroupApi) UpsertGroupMember(c *gin.Context) {
	var (
		req  types.UpsertGroupMemberReq
		resp types.UpsertGroupMemberResp
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
	resp.GroupIndex, err = api.s.Groups.UpsertGroupMember(
		c.Request.Context(), c.GetInt64(mhttp.UserIDKey), req.RelatedUserID, req.NewIndex, req.DeleteIndex, nil)
}

func (api *RelationshipGroupApi) ListGroupMembers(c *gin.Context) {
	var (
		resp types.ListGroupMembersResp
		err  error
	)
	defer func() {
		if err != nil {
			response.Error(c, err)
		} else {
			response.Success(c, resp)
		}
	}()
	groupIndex := model.DefaultGroupIndex
	if raw, ok := c.GetQuery("group_index"); ok {
		parsed, parseErr := strconv.ParseInt(raw, 10, 32)
		if parseErr != nil {
			err = errcode.ErrIllegalArgument.WithDetail("group_index must be an integer")
			return
		}
		groupIndex = int32(parsed)
	}
	lastUpdated, err := parseMilliQuery(c, "last_updated_date")
	if err != nil {
		return
	}
	ids, version, err := api.s.Groups.QueryGroupMemberIDsWithVersion(
		c.Request.Context(), c.GetInt64(mhttp.UserIDKey), groupIndex, lastUpdated)
	if err != nil {
		return
	}
	resp.MemberIDs = ids
	resp.LastUpdatedDate = types.UnixMilliPtr(version)
}
