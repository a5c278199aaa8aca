package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"TopArtistsTracker/internal/domain"
)

type manualDriver struct {
	job     func(time.Time)
	stopped bool
}

func (d *manualDriver) Start(_ context.Context, job func(time.Time)) error {
	d.job = job
	return nil
}

func (d *manualDriver) Stop(context.Context) error {
	d.stopped = true
	return nil
}

func TestSchedulerRunsPipelineOnTrigger(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepository()
	source := &fakeSource{items: []domain.RankedItem{{ID: "a", Name: "A", Rank: 1}}}
	pipeline := NewPipeline(PipelineDeps{Source: source, Repository: repo, Logger: quietLogger()})
	driver := &manualDriver{}

	s := NewScheduler(driver, pipeline, quietLogger())
	require.NoError(t, s.Start(context.Background()))
	require.NotNil(t, driver.job)

	driver.job(march9.Add(6 * time.Hour))
	_, err := repo.Load(context.Background(), march9)
	require.NoError(t, err)

	// a failing run is logged and does not panic the driver
	source.err = errors.New("boom")
	driver.job(march10)

	require.NoError(t, s.Stop(context.Background()))
	require.True(t, driver.stopped)
}
