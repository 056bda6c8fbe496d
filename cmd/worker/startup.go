package main

import (
	"context"
	"errors"
	"time"

	"github.com/ghuser/appkit/pkg/lifecycle"
	"github.com/ghuser/appkit/pkg/logger"
)

const (
	initRetryBase = time.Second
	initRetryMax  = 30 * time.Second
)

// initializer is the part of lifecycle.App retryInit drives.
type initializer interface {
	Init(ctx context.Context) error
}

// retryInit calls Init until the app is READY, backing off between failed
// attempts. It gives up when ctx is done or the app starts closing.
func retryInit(ctx context.Context, app initializer, log logger.Logger) error {
	return retryInitEvery(ctx, app, log, initRetryBase, initRetryMax)
}

func retryInitEvery(ctx context.Context, app initializer, log logger.Logger, base, maxDelay time.Duration) error {
	delay := base
	for attempt := 1; ; attempt++ {
		err := app.Init(ctx)
		if err == nil {
			log.Info("worker ready", "attempts", attempt)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, lifecycle.ErrInvalidState) {
			return err
		}
		log.Warn("worker startup failed, retrying", "attempt", attempt, "retry_in", delay.String(), "error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = min(delay*2, maxDelay)
	}
}
