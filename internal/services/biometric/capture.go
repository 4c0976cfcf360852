package biometric

import (
	"context"
	"fmt"
	"time"

	"github.com/cybervault/cybervault/internal/models"
)

// FaceSampler produces one live face descriptor per call.
type FaceSampler interface {
	Sample(ctx context.Context) ([]float64, error)
}

// IrisSampler produces one live iris brightness feature vector per call.
type IrisSampler interface {
	Sample(ctx context.Context) ([]int, error)
}

// collect polls for samples, pausing between captures, until n
// quality-passing samples accumulate. A frame rejected by the quality
// predicate is skipped and polling continues; only the capture timeout
// bounds the loop. Context cancellation and the timeout both surface as
// ErrCaptureCancelled; a cancelled capture is never a mismatch.
func collect[T any](ctx context.Context, n int, interval, timeout time.Duration, sample func(context.Context) (T, error), quality func(T) error) ([]T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	samples := make([]T, 0, n)
	for attempt := 0; len(samples) < n; attempt++ {
		if attempt > 0 && interval > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", models.ErrCaptureCancelled, ctx.Err())
			case <-time.After(interval):
			}
		}

		s, err := sample(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %v", models.ErrCaptureCancelled, ctx.Err())
			}
			return nil, fmt.Errorf("capture sample %d: %w", len(samples)+1, err)
		}

		if quality != nil && quality(s) != nil {
			continue
		}
		samples = append(samples, s)
	}

	return samples, nil
}
