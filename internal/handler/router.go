package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xxxsen/evoting/internal/config"
	"github.com/xxxsen/evoting/internal/middleware"
)

type RouterDeps struct {
	Auth          *AuthHandler
	Candidates    *CandidateHandler
	Votes         *VoteHandler
	Health        *HealthHandler
	Authenticator middleware.Authenticator
	RateLimit     config.RateLimitConfig
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/healthz", deps.Health.Check)
	api.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api.POST("/auth/register", middleware.RateLimit(seconds(deps.RateLimit.Register)), deps.Auth.Register)
	api.POST("/auth/verify-otp", middleware.RateLimit(seconds(deps.RateLimit.Verify)), deps.Auth.VerifyOTP)
	api.POST("/auth/resend-otp", middleware.RateLimit(seconds(deps.RateLimit.Resend)), deps.Auth.ResendOTP)
	api.POST("/auth/login", middleware.RateLimit(seconds(deps.RateLimit.Login)), deps.Auth.Login)

	authGroup := api.Group("")
	authGroup.Use(middleware.Auth(deps.Authenticator))
	authGroup.POST("/auth/logout", deps.Auth.Logout)
	authGroup.GET("/user/profile", deps.Auth.Profile)
	authGroup.GET("/candidates", deps.Candidates.List)
	authGroup.POST("/vote", middleware.RateLimit(seconds(deps.RateLimit.Vote)), deps.Votes.Cast)

	adminGroup := authGroup.Group("/admin")
	adminGroup.Use(middleware.AdminOnly())
	adminGroup.GET("/results", deps.Votes.Results)
	adminGroup.GET("/candidates", deps.Candidates.AdminList)
	adminGroup.POST("/candidates", deps.Candidates.Create)
	adminGroup.GET("/candidates/:id", deps.Candidates.Get)
	adminGroup.PUT("/candidates/:id", deps.Candidates.Update)
	adminGroup.DELETE("/candidates/:id", deps.Candidates.Delete)
}
