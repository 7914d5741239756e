package logic

import (
	"social-im/internal/common/errcode"
	"social-im/internal/common/middleware/mhttp"
	"social-im/internal/common/response"
	"social-im/internal/social/server"
	"social-im/internal/social/types"

	"github.com/gin-gonic/gin"
)

type RelationshipApi struct {
	s *server.Server
}

func NewRelationshipApi(s *server.Server) *RelationshipApi {
	return &RelationshipApi{s}
}

func (api *RelationshipApi) RegisterRouter(engine *gin.RouterGroup) {
	relationships := engine.Group("/relationships", mhttp.AuthMiddleware(), mhttp.BlockMiddleware(api.s.Redis))
	{
		relationships.GET("", api.ListRelatedUsers)
		relationships.DELETE("", api.DeleteRelationship)
		relationships.POST("/blocked", api.BlockUser)
		relationships.DELETE("/blocked", api.UnblockUser)
	}
}

func (api *RelationshipApi) ListRelatedUsers(c *gin.Context) {
	var (
		resp types.ListRelatedUsersResp
		err  error
	)
	defer func() {
		if err != nil {
			response.Error(c, err)
		} else {
			response.Success(c, resp)
		}
	}()
	var blocked *bool
	if raw, ok := c.GetQuery("blocked"); ok {
		value := raw == "true"
		blocked = &value
	}
	resp.RelatedUserIDs, err = api.s.Relationships.FindRelatedUserIDs(c.Request.Context(), c.GetInt64(mhttp.UserIDKey), blocked)
}

func (api *RelationshipApi) DeleteRelationship(c *gin.Context) {
	var (
		req types.DeleteRelationshipReq
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
	err = api.s.Relationships.DeleteOneSidedRelationship(c.Request.Context(), c.GetInt64(mhttp.UserIDKey), req.RelatedUserID, nil)
}

func (api *RelationshipApi) BlockUser(c *gin.Context) {
	api.setBlocked(c, true)
}

func (api *RelationshipApi) UnblockUser(c *gin.Context) {
	api.setBlocked(c, false)
}

func (api *RelationshipApi) setBlocked(c *gin.Context, blocked bool) {
	var (
		req types.BlockUserReq
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
	err = api.s.Relationships.UpsertOneSidedRelationship(c.Request.Context(), c.GetInt64(mhttp.UserIDKey), req.RelatedUserID, blocked)
}
