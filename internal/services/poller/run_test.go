package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Rampap-Brasil/postmon/internal/integrations/tracker"
	"github.com/Rampap-Brasil/postmon/internal/models"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	calls   int
	parcels []*models.Parcel
}

func (r *fakeRepo) ClaimDueParcels(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*models.Parcel, error) {
	r.calls++
	return r.parcels, nil
}

type noopProducer struct{}

func (p noopProducer) Publish(ctx context.Context, topic string, key, value []byte) error {
	return nil
}

type noopTracker struct{}

func (c noopTracker) GetHistory(ctx context.Context, provider, code string) (tracker.Result, error) {
	return tracker.Result{}, nil
}

func TestPoller_Run_StopsOnContextCancel(t *testing.T) {
	repo := &fakeRepo{}
	p := New(repo, noopTracker{}, noopProducer{}, nil, "t").
		WithSettings(5*time.Millisecond, 1, 1, time.Second, 1)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := p.Run(ctx)
	require.Error(t, err)
	require.GreaterOrEqual(t, repo.calls, 1)

	st := p.Stats()
	require.NotNil(t, st.LastCycleAt)
}

func TestPoller_runOnce_StatsCountSuccesses(t *testing.T) {
	repo := &fakeRepo{parcels: []*models.Parcel{
		{ID: 1, Provider: "ect", Code: "PN1"},
		{ID: 2, Provider: "ect", Code: "PN2"},
	}}
	p := New(repo, noopTracker{}, noopProducer{}, nil, "t")

	p.runOnce(context.Background())

	st := p.Stats()
	require.Equal(t, int64(2), st.TotalClaimed)
	require.Equal(t, int64(2), st.TotalProcessed)
	require.Equal(t, int64(0), st.TotalErrors)
}

func TestPoller_runOnce_FailureCountsAsErrorNotProcessed(t *testing.T) {
	repo := &fakeRepo{parcels: []*models.Parcel{
		{ID: 1, Provider: "ect", Code: "PN1"},
	}}
	p := New(repo, noopTracker{}, noopProducer{}, fakeRL{err: errors.New("redis down")}, "t")

	p.runOnce(context.Background())

	st := p.Stats()
	require.Equal(t, int64(1), st.TotalClaimed)
	require.Equal(t, int64(0), st.TotalProcessed)
	require.Equal(t, int64(1), st.TotalErrors)
	require.Contains(t, st.LastError, "redis down")
}
