package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type CodeCleaner interface {
	Cleanup(ctx context.Context, retention time.Duration) (int64, error)
}

// OTPCleanupJob removes one-time codes that stopped being usable more than
// retention ago.
type OTPCleanupJob struct {
	codes     CodeCleaner
	retention time.Duration
}

func NewOTPCleanupJob(codes CodeCleaner, retention time.Duration) *OTPCleanupJob {
	return &OTPCleanupJob{codes: codes, retention: retention}
}

func (j *OTPCleanupJob) Name() string {
	return "otp_cleanup"
}

func (j *OTPCleanupJob) Run(ctx context.Context) error {
	retention := j.retention
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	n, err := j.codes.Cleanup(ctx, retention)
	if err != nil {
		return err
	}
	if n > 0 {
		logutil.GetLogger(ctx).Info("expired codes purged", zap.Int64("count", n))
	}
	return nil
}
