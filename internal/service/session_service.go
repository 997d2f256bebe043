package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xxxsen/evoting/internal/model"
	appErr "github.com/xxxsen/evoting/internal/pkg/errors"
	"github.com/xxxsen/evoting/internal/pkg/jwt"
	"github.com/xxxsen/evoting/internal/pkg/timeutil"
	"github.com/xxxsen/evoting/internal/revocation"
)

// Session is the validated content of a bearer token.
type Session struct {
	ID        string
	VoterID   int64
	Email     string
	IsAdmin   bool
	ExpiresAt time.Time
}

type SessionService struct {
	secret  []byte
	ttl     time.Duration
	revoked revocation.Store
	now     func() time.Time
}

func NewSessionService(secret []byte, ttl time.Duration, revoked revocation.Store) *SessionService {
	return &SessionService{secret: secret, ttl: ttl, revoked: revoked, now: time.Now}
}

// Issue signs a token for voter. Unverified voters never receive one.
func (s *SessionService) Issue(voter *model.Voter) (string, *Session, error) {
	if voter == nil || !voter.Verified {
		return "", nil, appErr.ErrNotVerified
	}
	token, claims, err := jwt.GenerateToken(voter.ID, voter.Email, voter.IsAdmin, s.secret, s.ttl, timeutil.Clock(s.now)())
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return token, sessionFromClaims(claims), nil
}

func (s *SessionService) Validate(ctx context.Context, token string) (*Session, error) {
	claims, err := jwt.ParseToken(token, s.secret, timeutil.Clock(s.now)())
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			return nil, appErr.ErrSessionExpired
		}
		return nil, appErr.ErrSessionInvalid
	}
	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: check revocation: %w", appErr.ErrTransient, err)
	}
	if revoked {
		return nil, appErr.ErrSessionInvalid
	}
	return sessionFromClaims(claims), nil
}

// Revoke invalidates sess until it would have expired on its own.
func (s *SessionService) Revoke(ctx context.Context, sess *Session) error {
	ttl := sess.ExpiresAt.Sub(timeutil.Clock(s.now)())
	if ttl <= 0 {
		return nil
	}
	if err := s.revoked.Revoke(ctx, sess.ID, ttl); err != nil {
		return fmt.Errorf("%w: revoke session: %w", appErr.ErrTransient, err)
	}
	return nil
}

func sessionFromClaims(claims *jwt.Claims) *Session {
	sess := &Session{
		ID:      claims.ID,
		VoterID: claims.VoterID,
		Email:   claims.Email,
		IsAdmin: claims.IsAdmin,
	}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}
	return sess
}
