package notifications_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mlopez-dev/authhub/internal/notifications"
)

type stubMailer struct {
	sendFn func(ctx context.Context, in notifications.PasswordResetInput) error
	calls  int
}

func (s *stubMailer) SendPasswordReset(ctx context.Context, in notifications.PasswordResetInput) error {
	s.calls++
	if s.sendFn != nil {
		return s.sendFn(ctx, in)
	}
	return nil
}

func TestProtectedMailer_PassesThroughSuccess(t *testing.T) {
	inner := &stubMailer{}
	m := notifications.NewProtectedMailer(inner, notifications.ProtectedMailerConfig{})

	err := m.SendPasswordReset(context.Background(), notifications.PasswordResetInput{Email: "jo@example.com"})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("inner calls %d, want 1", inner.calls)
	}
}

func TestProtectedMailer_OpensAfterConsecutiveFailures(t *testing.T) {
	providerErr := errors.New("provider down")
	inner := &stubMailer{
		sendFn: func(ctx context.Context, in notifications.PasswordResetInput) error {
			return providerErr
		},
	}

	m := notifications.NewProtectedMailer(inner, notifications.ProtectedMailerConfig{
		FailureThreshold: 3,
		Cooldown:         time.Hour,
	})

	in := notifications.PasswordResetInput{Email: "jo@example.com"}

	for i := 0; i < 3; i++ {
		if err := m.SendPasswordReset(context.Background(), in); !errors.Is(err, providerErr) {
			t.Fatalf("call %d got %v, want provider error", i, err)
		}
	}

	// circuit is open now: the provider is no longer reached
	if err := m.SendPasswordReset(context.Background(), in); !errors.Is(err, notifications.ErrCircuitOpen) {
		t.Fatalf("got %v, want ErrCircuitOpen", err)
	}
	if inner.calls != 3 {
		t.Fatalf("inner calls %d, want 3 (open circuit must fail fast)", inner.calls)
	}
}

func TestProtectedMailer_HalfOpenRecovery(t *testing.T) {
	failing := true
	inner := &stubMailer{
		sendFn: func(ctx context.Context, in notifications.PasswordResetInput) error {
			if failing {
				return errors.New("provider down")
			}
			return nil
		},
	}

	m := notifications.NewProtectedMailer(inner, notifications.ProtectedMailerConfig{
		FailureThreshold: 1,
		Cooldown:         10 * time.Millisecond,
	})

	in := notifications.PasswordResetInput{Email: "jo@example.com"}

	// trip the breaker
	if err := m.SendPasswordReset(context.Background(), in); err == nil {
		t.Fatalf("expected failure to trip the breaker")
	}
	if err := m.SendPasswordReset(context.Background(), in); !errors.Is(err, notifications.ErrCircuitOpen) {
		t.Fatalf("got %v, want ErrCircuitOpen", err)
	}

	// wait out the cooldown, recover the provider
	failing = false
	time.Sleep(20 * time.Millisecond)

	if err := m.SendPasswordReset(context.Background(), in); err != nil {
		t.Fatalf("half-open trial call failed: %v", err)
	}

	// closed again, calls flow freely
	if err := m.SendPasswordReset(context.Background(), in); err != nil {
		t.Fatalf("post-recovery call failed: %v", err)
	}
}

func TestProtectedMailer_TimeoutPropagates(t *testing.T) {
	inner := &stubMailer{
		sendFn: func(ctx context.Context, in notifications.PasswordResetInput) error {
			select {
			case <-time.After(time.Second):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}

	m := notifications.NewProtectedMailer(inner, notifications.ProtectedMailerConfig{
		Timeout: 10 * time.Millisecond,
	})

	err := m.SendPasswordReset(context.Background(), notifications.PasswordResetInput{Email: "jo@example.com"})

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want deadline exceeded", err)
	}
}
