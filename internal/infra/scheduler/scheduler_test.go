//go:build !integration

package scheduler

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestLogger() *zerolog.Logger { l := zerolog.New(io.Discard); return &l }

func TestScheduler_RunsJobs(t *testing.T) {
	s := NewScheduler(time.Second, newTestLogger())
	var runs atomic.Int32
	if err := s.Add("tick", "@every 1s", func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("expected a bounded run context")
		}
		runs.Add(1)
		return errors.New("logged, not fatal")
	}); err != nil {
		t.Fatalf("add: %v", err)
	}

	s.Start(context.Background())
	deadline := time.Now().Add(3 * time.Second)
	for runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	s.Stop()

	if runs.Load() == 0 {
		t.Fatal("expected the job to run at least once")
	}
}

func TestScheduler_StopCancelsRunningJob(t *testing.T) {
	s := NewScheduler(time.Minute, newTestLogger())
	started := make(chan struct{})
	var sawCancel atomic.Bool
	_ = s.Add("slow", "@every 1s", func(ctx context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		sawCancel.Store(true)
		return ctx.Err()
	})
	s.Start(context.Background())

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job never started")
	}
	s.Stop()
	if !sawCancel.Load() {
		t.Error("expected Stop to cancel and wait for the running job")
	}
}

func TestScheduler_RejectsBadSpec(t *testing.T) {
	s := NewScheduler(0, newTestLogger())
	if err := s.Add("bad", "every now and then", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected error for malformed spec")
	}
}
