package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsCurator/internal/domain"
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

type captureRenderer struct {
	calls   int
	stories []domain.Story
}

func (c *captureRenderer) Render(_ context.Context, stories []domain.Story) error {
	c.calls++
	c.stories = stories
	return nil
}

func TestSchedulerCycle(t *testing.T) {
	t.Parallel()

	f := newTickFixture(t, seedStories())
	renderer := &captureRenderer{}
	driver := &manualDriver{}
	s := NewScheduler(driver, nil, f.tick, renderer, nil)

	require.NoError(t, s.Start(context.Background()))
	require.NotNil(t, driver.job)
	driver.job(testNow)

	assert.Equal(t, 1, renderer.calls)
	assert.Len(t, renderer.stories, 4)
	assert.Len(t, f.journal.transitions, 3)

	require.NoError(t, s.Stop(context.Background()))
	assert.True(t, driver.stopped)
}

func TestSchedulerWithoutDriver(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil, nil, nil, nil, nil)
	assert.NoError(t, s.Start(context.Background()))
	assert.NoError(t, s.Stop(context.Background()))
}
