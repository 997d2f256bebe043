package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	appErr "github.com/xxxsen/evoting/internal/pkg/errors"
	"github.com/xxxsen/evoting/internal/pkg/response"
	"github.com/xxxsen/evoting/internal/service"
)

const (
	ContextVoterIDKey = "voter_id"
	ContextIsAdminKey = "is_admin"
	ContextSessionKey = "session"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*service.Session, error)
}

// Auth requires a valid, unrevoked bearer session.
func Auth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Fail(c, appErr.ErrUnauthorized.WithMsg("missing authorization"))
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			response.Fail(c, appErr.ErrUnauthorized.WithMsg("invalid authorization"))
			return
		}
		sess, err := auth.Authenticate(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			response.Fail(c, err)
			return
		}
		c.Set(ContextSessionKey, sess)
		c.Set(ContextVoterIDKey, sess.VoterID)
		c.Set(ContextIsAdminKey, sess.IsAdmin)
		c.Next()
	}
}

// AdminOnly must run after Auth.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(ContextIsAdminKey) {
			response.Fail(c, appErr.ErrForbidden)
			return
		}
		c.Next()
	}
}

func SessionFrom(c *gin.Context) *service.Session {
	v, ok := c.Get(ContextSessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*service.Session)
	return sess
}
