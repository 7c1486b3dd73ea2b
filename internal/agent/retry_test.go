package agent

import (
	"context"
	"testing"
	"time"
)

func TestRetryPolicy_BackoffGrowsAndCaps(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, BackoffBase: 100 * time.Millisecond, BackoffMax: 350 * time.Millisecond}

	if got := p.Backoff(1); got != 100*time.Millisecond {
		t.Fatalf("attempt 1 backoff = %v", got)
	}
	if got := p.Backoff(2); got != 200*time.Millisecond {
		t.Fatalf("attempt 2 backoff = %v", got)
	}
	if got := p.Backoff(3); got != 350*time.Millisecond {
		t.Fatalf("attempt 3 backoff should cap at max, got %v", got)
	}
	if got := p.Backoff(10); got != 350*time.Millisecond {
		t.Fatalf("late attempts must stay capped, got %v", got)
	}
}

func TestRetryPolicy_WaitHonorsCancellation(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BackoffBase: time.Hour, BackoffMax: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- p.Wait(ctx, 1) }()
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("Wait should return the context error after cancellation")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not observe cancellation")
	}
}

func TestStyleInference_DefaultWithoutExamples(t *testing.T) {
	profile, err := InferStyle(context.Background(), nil, DefaultRetryPolicy(), nil, nil)
	if err != nil {
		t.Fatalf("InferStyle: %v", err)
	}
	if profile.Tone != "neutral" || profile.ReadingLevel != 8 {
		t.Fatalf("expected the neutral default profile, got %+v", profile)
	}
}
