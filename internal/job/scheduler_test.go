package job

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name string
	runs atomic.Int32
	err  error
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(context.Context) error {
	j.runs.Add(1)
	return j.err
}

func TestSchedulerRegistry(t *testing.T) {
	s := NewScheduler(nil)
	relay := &countingJob{name: "outbox.relay"}
	email := &countingJob{name: "email.dispatch", err: errors.New("smtp down")}

	require.NoError(t, s.Register("@every 15s", relay))
	require.NoError(t, s.Register("", email))
	require.Error(t, s.Register("@every 1m", relay))
	require.Error(t, s.Register("not a spec", &countingJob{name: "bad"}))
	require.Error(t, s.Register("@hourly", nil))

	entries := s.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, "email.dispatch", entries[0].Name)
	require.Zero(t, entries[0].ID)
	require.Equal(t, "@every 15s", entries[1].Spec)
	require.NotZero(t, entries[1].ID)

	require.NoError(t, s.RunNow(context.Background(), "outbox.relay"))
	require.EqualError(t, s.RunNow(context.Background(), "email.dispatch"), "smtp down")
	require.Error(t, s.RunNow(context.Background(), "missing"))
	require.Equal(t, int32(1), relay.runs.Load())
}

func TestSchedulerStartStop(t *testing.T) {
	s := NewScheduler(nil)
	s.Start()
	s.Start()
	<-s.Stop().Done()
	require.NotNil(t, s.Stop())
}
