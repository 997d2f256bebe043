package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/evoting/internal/config"
	"github.com/xxxsen/evoting/internal/metrics"
	"github.com/xxxsen/evoting/internal/model"
	appErr "github.com/xxxsen/evoting/internal/pkg/errors"
	"github.com/xxxsen/evoting/internal/pkg/password"
	"github.com/xxxsen/evoting/internal/pkg/timeutil"
	"github.com/xxxsen/evoting/internal/repo"
)

type OTPService struct {
	codes       *repo.OTPRepo
	sender      EmailSender
	length      int
	ttl         time.Duration
	cooldown    time.Duration
	maxAttempts int
	now         func() time.Time
	gen         func() (string, error)
}

func NewOTPService(codes *repo.OTPRepo, sender EmailSender, cfg config.OTPConfig) *OTPService {
	return &OTPService{
		codes:       codes,
		sender:      sender,
		length:      cfg.Length,
		ttl:         cfg.TTL(),
		cooldown:    cfg.Cooldown(),
		maxAttempts: cfg.MaxAttempts,
		now:         time.Now,
	}
}

// Issue generates a fresh code for voter, atomically replacing any active one,
// and mails it. A code issued within the cool-down window fails with ErrCooldown.
func (s *OTPService) Issue(ctx context.Context, voter *model.Voter) error {
	gen := s.gen
	if gen == nil {
		gen = s.generateCode
	}
	code, err := gen()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	hash, err := password.Hash(code)
	if err != nil {
		return fmt.Errorf("hash code: %w", err)
	}
	now := timeutil.Clock(s.now)().Unix()
	item := &model.OTPCode{
		ID:        uuid.NewString(),
		VoterID:   voter.ID,
		CodeHash:  hash,
		State:     model.OTPActive,
		IssuedAt:  now,
		ExpiresAt: now + int64(s.ttl/time.Second),
	}
	if err := s.codes.Issue(ctx, item, int64(s.cooldown/time.Second)); err != nil {
		return err
	}
	metrics.CodesIssued.Inc()
	logutil.GetLogger(ctx).Info("verification code issued",
		zap.Int64("voter_id", voter.ID), zap.Int64("expires_at", item.ExpiresAt))

	minutes := int(s.ttl / time.Minute)
	body := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, minutes)
	if err := s.sender.Send(ctx, voter.Email, "Your verification code", body); err != nil {
		logutil.GetLogger(ctx).Error("send verification mail failed", zap.Int64("voter_id", voter.ID), zap.Error(err))
		return fmt.Errorf("%w: %w", appErr.ErrMailUnavailable, err)
	}
	return nil
}

// Verify checks code against the voter's latest code. On success the code is
// consumed and the voter marked verified together.
func (s *OTPService) Verify(ctx context.Context, voter *model.Voter, code string) error {
	err := s.verify(ctx, voter, code)
	metrics.CodeVerifications.WithLabelValues(verifyOutcome(err)).Inc()
	return err
}

func (s *OTPService) verify(ctx context.Context, voter *model.Voter, code string) error {
	code = strings.TrimSpace(code)
	latest, err := s.codes.Latest(ctx, voter.ID)
	if err != nil && !errors.Is(err, appErr.ErrNotFound) {
		return err
	}
	if voter.Verified {
		if latest != nil && latest.State == model.OTPConsumed {
			return appErr.ErrCodeConsumed
		}
		return appErr.ErrAlreadyVerified
	}
	if latest == nil || !s.wellFormed(code) {
		return appErr.ErrInvalidCode
	}
	now := timeutil.Clock(s.now)().Unix()
	if err := latest.Check(now); err != nil {
		return err
	}
	if !password.Matches(latest.CodeHash, code) {
		burned, err := s.codes.RecordFailure(ctx, latest.ID, s.maxAttempts)
		if err != nil {
			return err
		}
		if burned {
			return appErr.ErrCodeAttempts
		}
		return appErr.ErrInvalidCode
	}
	return s.codes.Consume(ctx, voter.ID, latest.ID, now)
}

// Cleanup removes codes that expired more than retention ago.
func (s *OTPService) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := timeutil.Clock(s.now)().Add(-retention).Unix()
	n, err := s.codes.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	metrics.CodesPurged.Add(float64(n))
	return n, nil
}

func (s *OTPService) wellFormed(code string) bool {
	if len(code) != s.length {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (s *OTPService) generateCode() (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(s.length)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", s.length, n), nil
}

func verifyOutcome(err error) string {
	if err == nil {
		return "verified"
	}
	return appErr.As(err).Code
}
