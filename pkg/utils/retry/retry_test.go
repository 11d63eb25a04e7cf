package retry

import (
	"errors"
	"testing"
	"time"
)

func TestWithDelay(t *testing.T) {
	errTest := errors.New("test")

	tests := []struct {
		name      string
		attempts  int
		failFirst int
		wantCalls int
		wantErr   bool
	}{
		{
			name:      "first call succeeds",
			attempts:  3,
			failFirst: 0,
			wantCalls: 1,
		},
		{
			name:      "succeeds on last attempt",
			attempts:  3,
			failFirst: 2,
			wantCalls: 3,
		},
		{
			name:      "all attempts fail",
			attempts:  3,
			failFirst: 5,
			wantCalls: 3,
			wantErr:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := WithDelay(tt.attempts, time.Millisecond, func() error {
				calls++
				if calls <= tt.failFirst {
					return errTest
				}
				return nil
			})
			if (err != nil) != tt.wantErr {
				t.Errorf("WithDelay() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, errTest) {
				t.Errorf("WithDelay() error = %v, want wrapped %v", err, errTest)
			}
			if calls != tt.wantCalls {
				t.Errorf("WithDelay() calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}
