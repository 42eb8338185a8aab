package correlator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type delivery struct {
	conv    int64
	outcome Outcome
}

type sink struct {
	mu        sync.Mutex
	notified  []int64
	delivered []delivery
	notifyErr error
}

func (s *sink) notify(_ context.Context, conv int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notifyErr != nil {
		return s.notifyErr
	}
	s.notified = append(s.notified, conv)
	return nil
}

func (s *sink) deliver(_ context.Context, conv int64, o Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delivered = append(s.delivered, delivery{conv: conv, outcome: o})
	return nil
}

func (s *sink) deliveries() []delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]delivery(nil), s.delivered...)
}

func newCorrelator(t *testing.T, s *sink, compute ComputeFunc) *Correlator {
	t.Helper()
	c, err := New(Options{Compute: compute, Notify: s.notify, Deliver: s.deliver})
	require.NoError(t, err)
	return c
}

func closeNow(t *testing.T, c *Correlator) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Close(ctx))
}

type quotaError struct{}

func (quotaError) Error() string { return "quota exceeded" }

func TestApplicationErrorDeliveredOnce(t *testing.T) {
	s := &sink{}
	c := newCorrelator(t, s, func(context.Context, string) (string, error) {
		return "", quotaError{}
	})

	require.NoError(t, c.Submit(context.Background(), 11, "why?"))
	closeNow(t, c)

	got := s.deliveries()
	require.Len(t, got, 1)
	assert.Equal(t, int64(11), got[0].conv)
	require.Error(t, got[0].outcome.Err)
	assert.Equal(t, "quota exceeded", got[0].outcome.Err.Error())
	assert.Equal(t, []int64{11}, s.notified)
}

func TestSuccessDelivered(t *testing.T) {
	s := &sink{}
	c := newCorrelator(t, s, func(_ context.Context, payload string) (string, error) {
		return "answer to " + payload, nil
	})
	require.NoError(t, c.Submit(context.Background(), 1, "q"))
	closeNow(t, c)

	got := s.deliveries()
	require.Len(t, got, 1)
	assert.False(t, got[0].outcome.Failed())
	assert.Equal(t, "answer to q", got[0].outcome.Value)
}

func TestPanicBecomesCommunicationFailure(t *testing.T) {
	s := &sink{}
	c := newCorrelator(t, s, func(context.Context, string) (string, error) {
		panic("stream reset")
	})
	require.NoError(t, c.Submit(context.Background(), 5, "q"))
	closeNow(t, c)

	got := s.deliveries()
	require.Len(t, got, 1)
	assert.ErrorIs(t, got[0].outcome.Err, ErrCommunication)
}

func TestSubmitDoesNotWaitForCompute(t *testing.T) {
	s := &sink{}
	release := make(chan struct{})
	c := newCorrelator(t, s, func(context.Context, string) (string, error) {
		<-release
		return "late", nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, c.Submit(ctx, 3, "q"))
	cancel()
	assert.Equal(t, 1, c.InFlight())
	assert.Empty(t, s.deliveries())
	assert.Equal(t, []int64{3}, s.notified)

	close(release)
	closeNow(t, c)
	got := s.deliveries()
	require.Len(t, got, 1)
	assert.Equal(t, "late", got[0].outcome.Value)
	assert.Equal(t, 0, c.InFlight())
}

func TestNotifyFailureLaunchesNothing(t *testing.T) {
	boom := errors.New("chat not found")
	s := &sink{notifyErr: boom}
	called := false
	c := newCorrelator(t, s, func(context.Context, string) (string, error) {
		called = true
		return "", nil
	})

	err := c.Submit(context.Background(), 1, "q")
	assert.ErrorIs(t, err, boom)
	closeNow(t, c)
	assert.False(t, called)
	assert.Empty(t, s.deliveries())
}

func TestConcurrentSubmissionsEachDeliverOnce(t *testing.T) {
	s := &sink{}
	c := newCorrelator(t, s, func(_ context.Context, payload string) (string, error) {
		if payload == "fail" {
			return "", errors.New("bad input")
		}
		return payload, nil
	})

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload := "ok"
			if i%5 == 0 {
				payload = "fail"
			}
			assert.NoError(t, c.Submit(context.Background(), int64(i), payload))
		}(i)
	}
	wg.Wait()
	closeNow(t, c)

	perConv := make(map[int64]int)
	for _, d := range s.deliveries() {
		perConv[d.conv]++
	}
	assert.Len(t, perConv, n)
	for conv, count := range perConv {
		assert.Equal(t, 1, count, "conversation %d", conv)
	}
}

func TestSubmitAfterClose(t *testing.T) {
	s := &sink{}
	c := newCorrelator(t, s, func(context.Context, string) (string, error) { return "", nil })
	closeNow(t, c)
	assert.ErrorIs(t, c.Submit(context.Background(), 1, "q"), ErrClosed)
}

func TestCloseHonoursContext(t *testing.T) {
	s := &sink{}
	release := make(chan struct{})
	defer close(release)
	c := newCorrelator(t, s, func(context.Context, string) (string, error) {
		<-release
		return "", nil
	})
	require.NoError(t, c.Submit(context.Background(), 1, "q"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.Close(ctx), context.DeadlineExceeded)
}

func TestWrapDecoratesCompute(t *testing.T) {
	s := &sink{}
	calls := 0
	c, err := New(Options{
		Compute: func(context.Context, string) (string, error) {
			calls++
			if calls < 2 {
				return "", errors.New("transient")
			}
			return "second try", nil
		},
		Notify:  s.notify,
		Deliver: s.deliver,
		Wrap: func(next ComputeFunc) ComputeFunc {
			return func(ctx context.Context, p string) (string, error) {
				v, err := next(ctx, p)
				if err != nil {
					return next(ctx, p)
				}
				return v, nil
			}
		},
	})
	require.NoError(t, err)
	require.NoError(t, c.Submit(context.Background(), 1, "q"))
	closeNow(t, c)
	got := s.deliveries()
	require.Len(t, got, 1)
	assert.Equal(t, "second try", got[0].outcome.Value)
}

func TestNewRequiresCallbacks(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}
