package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xxxsen/evoting/internal/config"
	"github.com/xxxsen/evoting/internal/handler"
	"github.com/xxxsen/evoting/internal/job"
	"github.com/xxxsen/evoting/internal/middleware"
	"github.com/xxxsen/evoting/internal/repo"
	"github.com/xxxsen/evoting/internal/revocation"
	"github.com/xxxsen/evoting/internal/schedule"
	"github.com/xxxsen/evoting/internal/service"
)

type services struct {
	otp        *service.OTPService
	auth       *service.AuthService
	ballots    *service.BallotService
	tally      *service.TallyService
	candidates *service.CandidateService
}

func buildServices(cfg *config.Config, store *repo.DB, revoked revocation.Store) *services {
	voterRepo := repo.NewVoterRepo(store)
	ballotRepo := repo.NewBallotRepo(store)
	otpService := service.NewOTPService(repo.NewOTPRepo(store), service.NewEmailSender(cfg.Mail), cfg.OTP)
	sessions := service.NewSessionService([]byte(cfg.JWTSecret), cfg.JWTTTL(), revoked)
	return &services{
		otp:        otpService,
		auth:       service.NewAuthService(voterRepo, otpService, sessions),
		ballots:    service.NewBallotService(ballotRepo),
		tally:      service.NewTallyService(ballotRepo),
		candidates: service.NewCandidateService(repo.NewCandidateRepo(store), ballotRepo, cfg.CandidateDeletePolicy, cfg.DefaultCandidateImage),
	}
}

func openRevocation(ctx context.Context, cfg config.SessionStore, maxTTL time.Duration) (revocation.Store, func(), error) {
	if cfg.Type == "redis" {
		client, err := revocation.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open redis: %w", err)
		}
		return revocation.NewRedisStore(client), func() { _ = client.Close() }, nil
	}
	return revocation.NewMemoryStore(cfg.LRUSize, maxTTL), func() {}, nil
}

func runServer(parent context.Context, cfg *config.Config, store *repo.DB) error {
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	logutil.GetLogger(parent).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("session_store", cfg.SessionStore.Type),
		zap.String("candidate_delete_policy", string(cfg.CandidateDeletePolicy)),
	)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	revoked, closeRevoked, err := openRevocation(ctx, cfg.SessionStore, cfg.JWTTTL())
	if err != nil {
		return err
	}
	defer closeRevoked()

	svc := buildServices(cfg, store, revoked)
	if cfg.Admin.Email != "" {
		created, err := svc.auth.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password)
		if err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		if created {
			logutil.GetLogger(ctx).Info("admin account seeded", zap.String("email", cfg.Admin.Email))
		}
	}

	deps := handler.RouterDeps{
		Auth:          handler.NewAuthHandler(svc.auth),
		Candidates:    handler.NewCandidateHandler(svc.candidates, svc.auth),
		Votes:         handler.NewVoteHandler(svc.ballots, svc.tally),
		Health:        handler.NewHealthHandler(store.Conn()),
		Authenticator: svc.auth,
		RateLimit:     cfg.RateLimit,
	}
	engine, err := webapi.NewEngine(
		"/api",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.Metrics(),
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewOTPCleanupJob(svc.otp, cfg.OTP.Retention()), cfg.OTP.CleanupCron); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scheduler.Run(gctx)
	})
	g.Go(func() error {
		errCh := make(chan error, 1)
		go func() { errCh <- engine.Run() }()
		logutil.GetLogger(gctx).Info("http server listening", zap.String("addr", addr))
		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		case <-gctx.Done():
			return nil
		}
	})
	err = g.Wait()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return err
}
