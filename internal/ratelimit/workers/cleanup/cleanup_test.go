package cleanup

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"agentconsent/internal/ratelimit/metrics"
)

type stubPruner struct {
	calls  atomic.Int32
	pruned int
	err    error
}

func (p *stubPruner) PruneIdle(context.Context) (int, error) {
	p.calls.Add(1)
	return p.pruned, p.err
}

type CleanupWorkerSuite struct {
	suite.Suite
	store   *stubPruner
	metrics *metrics.Metrics
	worker  *Worker
}

func TestCleanupWorkerSuite(t *testing.T) {
	suite.Run(t, new(CleanupWorkerSuite))
}

func (s *CleanupWorkerSuite) SetupTest() {
	s.store = &stubPruner{}
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.worker = New(s.store, WithMetrics(s.metrics), WithInterval(10*time.Millisecond))
}

func (s *CleanupWorkerSuite) TestRunOnceRecordsPruned() {
	s.store.pruned = 4

	n, err := s.worker.RunOnce(context.Background())
	s.Require().NoError(err)
	s.Equal(4, n)
	s.Equal(4.0, testutil.ToFloat64(s.metrics.PrunedBuckets))
}

func (s *CleanupWorkerSuite) TestRunOncePropagatesError() {
	s.store.err = errors.New("boom")

	_, err := s.worker.RunOnce(context.Background())
	s.Require().Error(err)
	s.Zero(testutil.ToFloat64(s.metrics.PrunedBuckets))
}

func (s *CleanupWorkerSuite) TestStartStopsOnCancel() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.worker.Start(ctx) }()

	s.Eventually(func() bool { return s.store.calls.Load() > 0 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(time.Second):
		s.Fail("worker did not stop")
	}
}
