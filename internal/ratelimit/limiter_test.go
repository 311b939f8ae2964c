package ratelimit_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-holder-indexer/internal/logger"
	"github.com/feral-file/ff-holder-indexer/internal/mocks"
	"github.com/feral-file/ff-holder-indexer/internal/ratelimit"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: false}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type limiterMocks struct {
	ctrl    *gomock.Controller
	limiter *mocks.MockRedisRateLimiter
	clock   *mocks.MockClock
}

func setupLimiter(t *testing.T) (*limiterMocks, ratelimit.Limiter) {
	ctrl := gomock.NewController(t)
	m := &limiterMocks{
		ctrl:    ctrl,
		limiter: mocks.NewMockRedisRateLimiter(ctrl),
		clock:   mocks.NewMockClock(ctrl),
	}

	l, err := ratelimit.NewDistributedLimiter(ratelimit.Config{
		Key:               "holders:rpc:mainnet",
		RequestsPerSecond: 100,
		RecheckAfter:      10 * time.Second,
	}, m.limiter, m.clock)
	require.NoError(t, err)

	return m, l
}

func readyChan() <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func TestNewDistributedLimiter_InvalidConfig(t *testing.T) {
	_, err := ratelimit.NewDistributedLimiter(ratelimit.Config{RequestsPerSecond: 10}, nil, nil)
	assert.Error(t, err)

	_, err = ratelimit.NewDistributedLimiter(ratelimit.Config{Key: "k"}, nil, nil)
	assert.Error(t, err)
}

func TestDistributedLimiter_Allowed(t *testing.T) {
	m, l := setupLimiter(t)
	defer m.ctrl.Finish()

	m.limiter.EXPECT().
		Allow(gomock.Any(), "holders:rpc:mainnet", redis_rate.Limit{Rate: 100, Burst: 100, Period: time.Second}).
		Return(&redis_rate.Result{Allowed: 1, Remaining: 99}, nil)

	assert.NoError(t, l.Wait(context.Background()))
}

func TestDistributedLimiter_WaitsRetryAfter(t *testing.T) {
	m, l := setupLimiter(t)
	defer m.ctrl.Finish()

	gomock.InOrder(
		m.limiter.EXPECT().
			Allow(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&redis_rate.Result{Allowed: 0, RetryAfter: 100 * time.Millisecond}, nil),
		m.clock.EXPECT().
			After(gomock.Any()).
			DoAndReturn(func(d time.Duration) <-chan time.Time {
				assert.GreaterOrEqual(t, d, 50*time.Millisecond)
				assert.Less(t, d, 150*time.Millisecond)
				return readyChan()
			}),
		m.limiter.EXPECT().
			Allow(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&redis_rate.Result{Allowed: 1}, nil),
	)

	assert.NoError(t, l.Wait(context.Background()))
}

func TestDistributedLimiter_FallsBackToLocal(t *testing.T) {
	m, l := setupLimiter(t)
	defer m.ctrl.Finish()
	ctx := context.Background()
	failedAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	// first call: redis fails, the local limiter admits the request
	m.limiter.EXPECT().
		Allow(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("connection refused"))
	m.clock.EXPECT().Now().Return(failedAt)
	m.clock.EXPECT().Since(failedAt).Return(time.Second)
	require.NoError(t, l.Wait(ctx))

	// within the recheck window redis is not consulted
	m.clock.EXPECT().Since(failedAt).Return(5 * time.Second)
	require.NoError(t, l.Wait(ctx))

	// after the window redis is tried again
	m.clock.EXPECT().Since(failedAt).Return(11 * time.Second)
	m.limiter.EXPECT().
		Allow(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&redis_rate.Result{Allowed: 1}, nil)
	require.NoError(t, l.Wait(ctx))
}

func TestDistributedLimiter_Canceled(t *testing.T) {
	m, l := setupLimiter(t)
	defer m.ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, l.Wait(ctx), context.Canceled)
}

func TestDistributedLimiter_CanceledWhileWaiting(t *testing.T) {
	m, l := setupLimiter(t)
	defer m.ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	m.limiter.EXPECT().
		Allow(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&redis_rate.Result{Allowed: 0, RetryAfter: time.Second}, nil)
	m.clock.EXPECT().
		After(gomock.Any()).
		DoAndReturn(func(time.Duration) <-chan time.Time {
			cancel()
			return make(chan time.Time)
		})

	assert.ErrorIs(t, l.Wait(ctx), context.Canceled)
}

func TestLocalLimiter(t *testing.T) {
	ctx := context.Background()

	unlimited := ratelimit.NewLocalLimiter(0, 0)
	for i := 0; i < 100; i++ {
		require.NoError(t, unlimited.Wait(ctx))
	}

	paced := ratelimit.NewLocalLimiter(20, 1)
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, paced.Wait(ctx))
	}
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}
