package retry

import (
	"fmt"
	"time"
)

// WithDelay calls fn up to attempts times, sleeping delay between failed
// calls. The last error is returned when every attempt fails.
func WithDelay(attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}

		if i < attempts-1 {
			time.Sleep(delay)
		}
	}

	return fmt.Errorf("after %d attempts: %w", attempts, err)
}
