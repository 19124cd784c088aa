package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wallet-txcore/pkg/errno"
	"wallet-txcore/pkg/monitor"
)

// Response is the {code, msg, data} envelope of every API answer. Business
// failures still answer HTTP 200; code carries the errno code.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"msg"`
	Data    interface{} `json:"data"`
}

// Success returns a success response with data
func Success(c *gin.Context, data interface{}) {
	if data == nil {
		data = gin.H{} // Return empty object instead of null
	}
	c.JSON(http.StatusOK, Response{
		Code:    errno.OK.Code,
		Message: errno.OK.Message,
		Data:    data,
	})
}

func Error(c *gin.Context, err error) {
	Fail(c, err, nil)
}

// Fail answers err while still carrying data, e.g. the HandleResult of a
// rejected transaction. The code is exposed to the metrics middleware.
func Fail(c *gin.Context, err error, data interface{}) {
	if data == nil {
		data = gin.H{}
	}
	code, msg := errno.Decode(err)
	c.Set(monitor.ResponseCodeKey, code)
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: msg,
		Data:    data,
	})
}
