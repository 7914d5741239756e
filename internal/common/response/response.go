package response

import (
	"errors"
	"net/http"

	"social-im/internal/common/errcode"
	"social-im/internal/pkg/log"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Code:    200,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, err error) {
	var e *errcode.Error
	if !errors.As(err, &e) {
		log.Errorf("err: %v", err)
		e = errcode.ErrServerInternalError
	}
	c.JSON(http.StatusOK, Response{
		Code:    e.Code,
		Message: e.Message,
		Detail:  e.Detail,
	})
}
