package main

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/ghuser/appkit/pkg/lifecycle"
	"github.com/ghuser/appkit/pkg/logger"
)

type scriptedInit struct {
	errs  []error
	calls int
}

func (s *scriptedInit) Init(context.Context) error {
	s.calls++
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

func quietLogger() logger.Logger {
	return logger.NewWithWriter(io.Discard, "error")
}

func TestRetryInit(t *testing.T) {
	transient := errors.New("redis: connection refused")
	tests := []struct {
		name      string
		errs      []error
		wantErr   error
		wantCalls int
	}{
		{"ready first time", nil, nil, 1},
		{"ready after failures", []error{transient, transient}, nil, 3},
		{"closing stops retries", []error{transient, lifecycle.ErrClosed}, lifecycle.ErrInvalidState, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := &scriptedInit{errs: tt.errs}
			err := retryInitEvery(context.Background(), app, quietLogger(), time.Millisecond, 2*time.Millisecond)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if app.calls != tt.wantCalls {
				t.Errorf("calls: got %d, want %d", app.calls, tt.wantCalls)
			}
		})
	}
}

func TestRetryInit_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	app := &scriptedInit{errs: []error{errors.New("down")}}
	cancel()

	if err := retryInitEvery(ctx, app, quietLogger(), time.Hour, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
