package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "sudooom.memmatch/pkg/errors"
)

// Response envelope for every HTTP answer
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// Success 200 with data
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    apperrors.CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// Error business error: HTTP 200 carrying the error code
func Error(c *gin.Context, appErr *apperrors.AppError) {
	c.JSON(http.StatusOK, Response{
		Code:    appErr.Code,
		Message: appErr.Message,
		Data:    nil,
	})
}

// ErrorWithMsg business error with a custom message
func ErrorWithMsg(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
		Data:    nil,
	})
}

// ErrorFromAppError AppErrors keep HTTP 200; anything else is a 500
func ErrorFromAppError(c *gin.Context, err error) {
	status := http.StatusOK
	if apperrors.GetCode(err) == apperrors.CodeServerError {
		status = http.StatusInternalServerError
	}
	c.JSON(status, Response{
		Code:    apperrors.GetCode(err),
		Message: apperrors.GetMessage(err),
		Data:    nil,
	})
}

// InvalidParams request binding failed
func InvalidParams(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, Response{
		Code:    apperrors.CodeInvalidParams,
		Message: err.Error(),
		Data:    nil,
	})
}

// Unauthorized missing or invalid bearer token
func Unauthorized(c *gin.Context, appErr *apperrors.AppError) {
	c.JSON(http.StatusUnauthorized, Response{
		Code:    appErr.Code,
		Message: appErr.Message,
		Data:    nil,
	})
}
