package statusstream_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gistapp/gist/internal/model"
	"github.com/gistapp/gist/internal/statusstream"
)

type sequenceChecker struct {
	mu       sync.Mutex
	statuses []*model.JobStatus
	err      error
}

func (s *sequenceChecker) CheckOnboarding(context.Context) (*model.JobStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	st := s.statuses[0]
	if len(s.statuses) > 1 {
		s.statuses = s.statuses[1:]
	}
	return st, nil
}

func TestPollingTransportStream(t *testing.T) {
	tests := map[string]struct {
		checker  *sequenceChecker
		expKinds []model.StatusKind
		expErr   bool
	}{
		"a job completing should emit processing and then completed": {
			checker:  &sequenceChecker{statuses: []*model.JobStatus{jobRunning, jobRunning, jobCompleted}},
			expKinds: []model.StatusKind{model.StatusKindConnected, model.StatusKindProcessing, model.StatusKindProcessing, model.StatusKindCompleted},
		},

		"a failing check should end the stream": {
			checker:  &sequenceChecker{err: fmt.Errorf("backend down")},
			expKinds: []model.StatusKind{model.StatusKindConnected},
			expErr:   true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			tr, err := statusstream.NewPollingTransport(statusstream.PollingTransportConfig{
				Checker:  test.checker,
				Interval: time.Millisecond,
			})
			require.NoError(t, err)

			events := make(chan model.StatusEvent, 10)
			err = tr.Stream(context.Background(), events)
			close(events)

			if test.expErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			var kinds []model.StatusKind
			for ev := range events {
				kinds = append(kinds, ev.Kind)
			}
			assert.Equal(t, test.expKinds, kinds)
		})
	}
}

func TestPollingTransportWithClient(t *testing.T) {
	require := require.New(t)

	checker := &sequenceChecker{statuses: []*model.JobStatus{jobRunning, jobCompleted}}
	tr, err := statusstream.NewPollingTransport(statusstream.PollingTransportConfig{Checker: checker, Interval: time.Millisecond})
	require.NoError(err)
	c, err := statusstream.NewClient(statusstream.ClientConfig{Transport: tr, Checker: checker})
	require.NoError(err)

	rec := &recorder{}
	h, err := c.Open(context.Background(), rec.onEvent, rec.onError)
	require.NoError(err)
	waitDone(t, h)

	assert.Equal(t, []model.StatusKind{model.StatusKindConnected, model.StatusKindProcessing, model.StatusKindCompleted}, rec.Kinds())
	assert.Empty(t, rec.Errors())
}
