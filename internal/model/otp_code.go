package model

import appErr "github.com/xxxsen/evoting/internal/pkg/errors"

type OTPState int

const (
	OTPActive OTPState = iota
	OTPConsumed
	OTPSuperseded
	OTPBurned
)

type OTPCode struct {
	ID         string   `json:"id"`
	VoterID    int64    `json:"voter_id"`
	CodeHash   string   `json:"-"`
	State      OTPState `json:"state"`
	Attempts   int      `json:"attempts"`
	IssuedAt   int64    `json:"issued_at"`
	ExpiresAt  int64    `json:"expires_at"`
	ConsumedAt int64    `json:"consumed_at"`
}

// Check explains why the code cannot be redeemed at now, or returns nil.
func (c *OTPCode) Check(now int64) error {
	switch c.State {
	case OTPConsumed:
		return appErr.ErrCodeConsumed
	case OTPBurned:
		return appErr.ErrCodeAttempts
	case OTPSuperseded:
		return appErr.ErrInvalidCode
	}
	if now >= c.ExpiresAt {
		return appErr.ErrCodeExpired
	}
	return nil
}
