package utils

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Retry calls fn every interval until it reports done, returns an error or
// ctx is cancelled.
func Retry(
	ctx context.Context, interval time.Duration, fn func(ctx context.Context) (bool, error),
) error {
	for {
		done, err := fn(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("timed out")
			}
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
