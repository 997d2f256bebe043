package revocation

import (
	"context"
	"time"
)

// Store remembers revoked session ids (jti) until the tokens carrying them
// would have expired anyway.
type Store interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
