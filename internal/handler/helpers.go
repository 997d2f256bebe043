package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/evoting/internal/middleware"
	appErr "github.com/xxxsen/evoting/internal/pkg/errors"
	"github.com/xxxsen/evoting/internal/pkg/response"
)

func getVoterID(c *gin.Context) int64 {
	return c.GetInt64(middleware.ContextVoterIDKey)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Fail(c, appErr.ErrInvalid.WithMsg("invalid id"))
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Fail(c, appErr.ErrInvalid.WithMsg("invalid request body"))
		return false
	}
	return true
}

func handleError(c *gin.Context, err error) {
	e := appErr.As(err)
	fields := []zap.Field{
		zap.String("request_id", c.GetString(middleware.ContextRequestIDKey)),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int64("voter_id", getVoterID(c)),
		zap.String("code", e.Code),
		zap.Error(err),
	}
	if status := response.StatusOf(e); status >= 500 {
		logutil.GetLogger(c.Request.Context()).Error("request failed", fields...)
	} else {
		logutil.GetLogger(c.Request.Context()).Debug("request rejected", fields...)
	}
	response.Fail(c, err)
}
