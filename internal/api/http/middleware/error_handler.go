package middleware

import (
	"github.com/gin-gonic/gin"

	apitypes "github.com/weisyn/zkcontract/internal/api/http/types"
	"github.com/weisyn/zkcontract/pkg/types"
)

// ErrorHandler 把处理器通过 c.Error 登记的错误写成统一的 JSON 响应
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		kind := types.ErrorKind(err)
		c.AbortWithStatusJSON(apitypes.StatusForKind(kind), apitypes.ErrorResponse{
			Error:     err.Error(),
			Kind:      kind,
			RequestID: GetRequestID(c),
		})
	}
}
