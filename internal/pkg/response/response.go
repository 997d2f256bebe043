package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErr "github.com/xxxsen/evoting/internal/pkg/errors"
)

type APIError struct {
	Code    string `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{"data": data})
}

func Error(c *gin.Context, status int, kind appErr.Kind, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": APIError{Code: code, Kind: string(kind), Message: message}})
}

func StatusOf(e *appErr.CodeError) int {
	if e.Code == appErr.ErrForbidden.Code {
		return http.StatusForbidden
	}
	switch e.Kind {
	case appErr.KindValidation:
		return http.StatusBadRequest
	case appErr.KindConflict:
		return http.StatusConflict
	case appErr.KindAuth:
		return http.StatusUnauthorized
	case appErr.KindNotFound:
		return http.StatusNotFound
	case appErr.KindTooMany:
		return http.StatusTooManyRequests
	case appErr.KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Fail writes err using its classification. Unclassified errors never leak their text.
func Fail(c *gin.Context, err error) {
	e := appErr.As(err)
	Error(c, StatusOf(e), e.Kind, e.Code, e.Msg)
}
