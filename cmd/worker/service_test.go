package main

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/voltline-backend/pkg/config"
	"github.com/angelmondragon/voltline-backend/pkg/logger"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type fakeRunner struct {
	name string
	run  func(ctx context.Context) error
}

func (r fakeRunner) Name() string { return r.name }

func (r fakeRunner) Run(ctx context.Context) error { return r.run(ctx) }

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "worker-test", Output: io.Discard})
}

func newTestService(t *testing.T, db pinger, runners ...Runner) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Config:      &config.Config{},
		Logger:      testLogger(),
		DB:          db,
		Redis:       fakePinger{},
		PubSub:      fakePinger{},
		BigQuery:    fakePinger{},
		Subscribers: runners,
	})
	require.NoError(t, err)
	return svc
}

func TestNewServiceRequiresSubscribers(t *testing.T) {
	_, err := NewService(ServiceParams{
		Config:   &config.Config{},
		Logger:   testLogger(),
		DB:       fakePinger{},
		Redis:    fakePinger{},
		PubSub:   fakePinger{},
		BigQuery: fakePinger{},
	})
	require.Error(t, err)
}

func TestRunFailsWhenDependencyIsDown(t *testing.T) {
	started := false
	svc := newTestService(t, fakePinger{err: errors.New("connection refused")}, fakeRunner{
		name: "notifications",
		run: func(context.Context) error {
			started = true
			return nil
		},
	})

	err := svc.Run(context.Background())
	require.ErrorContains(t, err, "database ping failed")
	require.False(t, started)
}

func TestRunReturnsFirstSubscriberFailure(t *testing.T) {
	blocked := fakeRunner{
		name: "analytics",
		run: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
	failing := fakeRunner{
		name: "notifications",
		run: func(context.Context) error {
			return errors.New("subscription deleted")
		},
	}

	err := newTestService(t, fakePinger{}, blocked, failing).Run(context.Background())
	require.ErrorContains(t, err, "notifications: subscription deleted")
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc := newTestService(t, fakePinger{}, fakeRunner{
		name: "notifications",
		run: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	})

	cancel()
	require.ErrorIs(t, svc.Run(ctx), context.Canceled)
}
