package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/evoting/internal/metrics"
	"github.com/xxxsen/evoting/internal/model"
	appErr "github.com/xxxsen/evoting/internal/pkg/errors"
	"github.com/xxxsen/evoting/internal/pkg/password"
	"github.com/xxxsen/evoting/internal/pkg/timeutil"
	"github.com/xxxsen/evoting/internal/repo"
)

type AuthService struct {
	voters   *repo.VoterRepo
	otp      *OTPService
	sessions *SessionService
	validate *validator.Validate
	now      func() time.Time
}

func NewAuthService(voters *repo.VoterRepo, otp *OTPService, sessions *SessionService) *AuthService {
	return &AuthService{
		voters:   voters,
		otp:      otp,
		sessions: sessions,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
}

// Register creates an unverified voter and sends the first code. When only the
// mail delivery fails the voter is kept and returned with ErrMailUnavailable,
// so the client can resend later.
func (s *AuthService) Register(ctx context.Context, email, plainPassword string) (*model.Voter, error) {
	email, err := s.normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if !password.LongEnough(plainPassword) {
		return nil, appErr.ErrWeakPassword
	}
	hash, err := password.Hash(plainPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := timeutil.Clock(s.now)().Unix()
	voter := &model.Voter{
		Email:        email,
		PasswordHash: hash,
		Ctime:        now,
		Mtime:        now,
	}
	if err := s.voters.Create(ctx, voter); err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("voter registered", zap.Int64("voter_id", voter.ID))
	if err := s.otp.Issue(ctx, voter); err != nil {
		return voter, err
	}
	return voter, nil
}

// VerifyCode redeems a one-time code and opens the first session.
func (s *AuthService) VerifyCode(ctx context.Context, email, code string) (string, *model.Voter, error) {
	voter, err := s.lookup(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if err := s.otp.Verify(ctx, voter, code); err != nil {
		logutil.GetLogger(ctx).Info("code verification failed",
			zap.Int64("voter_id", voter.ID), zap.String("reason", appErr.As(err).Code))
		return "", nil, err
	}
	voter, err = s.voters.GetByID(ctx, voter.ID)
	if err != nil {
		return "", nil, err
	}
	token, _, err := s.sessions.Issue(voter)
	if err != nil {
		return "", nil, err
	}
	logutil.GetLogger(ctx).Info("voter verified", zap.Int64("voter_id", voter.ID))
	return token, voter, nil
}

func (s *AuthService) ResendCode(ctx context.Context, email string) error {
	voter, err := s.lookup(ctx, email)
	if err != nil {
		return err
	}
	if voter.Verified {
		return appErr.ErrAlreadyVerified
	}
	return s.otp.Issue(ctx, voter)
}

func (s *AuthService) Login(ctx context.Context, email, plainPassword string) (string, *model.Voter, error) {
	token, voter, err := s.login(ctx, email, plainPassword)
	outcome := "success"
	if err != nil {
		outcome = appErr.As(err).Code
		logutil.GetLogger(ctx).Info("login failed", zap.String("reason", outcome))
	}
	metrics.Logins.WithLabelValues(outcome).Inc()
	return token, voter, err
}

func (s *AuthService) login(ctx context.Context, email, plainPassword string) (string, *model.Voter, error) {
	voter, err := s.checkPassword(ctx, email, plainPassword)
	if err != nil {
		return "", nil, err
	}
	if !voter.Verified {
		return "", nil, appErr.ErrNotVerified
	}
	token, _, err := s.sessions.Issue(voter)
	if err != nil {
		return "", nil, err
	}
	return token, voter, nil
}

// VerifyPassword reports whether plainPassword belongs to email. Unknown
// emails are a plain false, not an error.
func (s *AuthService) VerifyPassword(ctx context.Context, email, plainPassword string) (bool, error) {
	_, err := s.checkPassword(ctx, email, plainPassword)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, appErr.ErrBadCredentials) {
		return false, nil
	}
	return false, err
}

func (s *AuthService) Logout(ctx context.Context, sess *Session) error {
	return s.sessions.Revoke(ctx, sess)
}

func (s *AuthService) Authenticate(ctx context.Context, token string) (*Session, error) {
	return s.sessions.Validate(ctx, token)
}

func (s *AuthService) Profile(ctx context.Context, voterID int64) (*model.Voter, error) {
	return s.voters.GetByID(ctx, voterID)
}

// CreateAdmin registers a verified admin account in one step.
func (s *AuthService) CreateAdmin(ctx context.Context, email, plainPassword string) (*model.Voter, error) {
	email, err := s.normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if !password.LongEnough(plainPassword) {
		return nil, appErr.ErrWeakPassword
	}
	hash, err := password.Hash(plainPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := timeutil.Clock(s.now)().Unix()
	voter := &model.Voter{
		Email:        email,
		PasswordHash: hash,
		Verified:     true,
		IsAdmin:      true,
		Ctime:        now,
		Mtime:        now,
	}
	if err := s.voters.Create(ctx, voter); err != nil {
		return nil, err
	}
	return voter, nil
}

// EnsureAdmin seeds the configured admin when no admin exists yet. An already
// registered account with that email is promoted instead.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, plainPassword string) (bool, error) {
	exists, err := s.voters.HasAdmin(ctx)
	if err != nil || exists {
		return false, err
	}
	_, err = s.CreateAdmin(ctx, email, plainPassword)
	if errors.Is(err, appErr.ErrDuplicateEmail) {
		voter, err := s.voters.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
		if err != nil {
			return false, err
		}
		if err := s.voters.SetAdmin(ctx, voter.ID, true, timeutil.Clock(s.now)().Unix()); err != nil {
			return false, err
		}
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *AuthService) checkPassword(ctx context.Context, email, plainPassword string) (*model.Voter, error) {
	voter, err := s.lookup(ctx, email)
	if err != nil {
		if appErr.IsNotFound(err) || errors.Is(err, appErr.ErrInvalidEmail) {
			return nil, appErr.ErrBadCredentials
		}
		return nil, err
	}
	if !password.Matches(voter.PasswordHash, plainPassword) {
		return nil, appErr.ErrBadCredentials
	}
	return voter, nil
}

func (s *AuthService) lookup(ctx context.Context, email string) (*model.Voter, error) {
	email, err := s.normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	return s.voters.GetByEmail(ctx, email)
}

func (s *AuthService) normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.validate.Var(email, "required,email,max=254"); err != nil {
		return "", appErr.ErrInvalidEmail
	}
	return email, nil
}
