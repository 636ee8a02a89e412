package services

import (
	"context"
	"errors"
	"net"
	"syscall"
	"time"

	"gorm.io/gorm"

	"github.com/campuslink/campuslink-backend/internal/platform/apierr"
	"github.com/campuslink/campuslink-backend/internal/platform/logger"
)

const (
	storeAttempts   = 3
	storeRetryDelay = 100 * time.Millisecond
)

// retryStore runs fn up to storeAttempts times, backing off linearly between
// attempts, but only for transient connectivity failures. Application-level
// failures come back unchanged on the first attempt; exhausted retries are
// surfaced as unavailable.
func retryStore(ctx context.Context, log *logger.Logger, op string, fn func() error) error {
	var err error
	for attempt := 0; attempt < storeAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * storeRetryDelay):
			}
		}
		err = fn()
		if err == nil || !isTransient(err) {
			return err
		}
		log.Warn("transient store error, retrying", "op", op, "attempt", attempt+1, "error", err)
	}
	return apierr.Unavailable(err)
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	if errors.Is(err, gorm.ErrInvalidDB) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
