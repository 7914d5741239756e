package mhttp

import (
	"fmt"

	"social-im/internal/common/errcode"
	"social-im/internal/common/response"
	"social-im/internal/pkg/log"
	"social-im/internal/pkg/redis"

	"github.com/gin-gonic/gin"
)

// BlockedClientKey is the redis key holding a blocked user; the TTL is the
// remaining block duration set by the auto-block manager.
const BlockedClientKey = "social:blocked:%d"

// BlockMiddleware rejects callers the auto-block manager has blocked. It must
// run after AuthMiddleware. Redis errors fail open: blocking is a defense,
// not an authorization boundary.
func BlockMiddleware(rdb *redis.Redis) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetInt64(UserIDKey)
		key := fmt.Sprintf(BlockedClientKey, userId)
		n, err := rdb.Exists(c.Request.Context(), key).Result()
		if err != nil {
			log.Errorf("check blocked client %d: %v", userId, err)
		} else if n > 0 {
			c.Abort()
			response.Error(c, errcode.ErrClientBlocked)
			return
		}
		c.Next()
	}
}
