package mhttp

import (
	"social-im/internal/common/errcode"
	"social-im/internal/common/jwt"
	"social-im/internal/common/response"

	"github.com/gin-gonic/gin"
)

const UserIDKey = "user_id"

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("token")
		if token == "" {
			var ok bool
			token, ok = c.GetQuery("token")
			if !ok {
				c.Abort()
				response.Error(c, errcode.ErrUnAuthorized)
				return
			}
		}
		userId, err := jwt.GetUserIDFromToken(token)
		if err != nil {
			c.Abort()
			response.Error(c, err)
			return
		}
		c.Set(UserIDKey, userId)
		c.Next()
	}
}
