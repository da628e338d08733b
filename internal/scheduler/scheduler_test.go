package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stories1001/publisher/internal/config"
	"github.com/stories1001/publisher/internal/services"
	"github.com/stories1001/publisher/internal/tasks"
	"github.com/stories1001/publisher/internal/workflow"
)

func TestValidateCronSchedule(t *testing.T) {
	assert.NoError(t, ValidateCronSchedule("0 * * * *"))
	assert.NoError(t, ValidateCronSchedule("*/15 * * * *"))
	assert.Error(t, ValidateCronSchedule("every hour"))
	assert.Error(t, ValidateCronSchedule("0 0 * * * *"))
}

func TestGetCronDescription(t *testing.T) {
	assert.Equal(t, "Every hour at :00", GetCronDescription("0 * * * *"))
	assert.Equal(t, "Daily at 03:00", GetCronDescription("0 3 * * *"))
	assert.Equal(t, "Custom schedule: 5 4 * * 1", GetCronDescription("5 4 * * 1"))
}

func TestGetNextRunTime(t *testing.T) {
	from := time.Date(2026, 4, 6, 9, 15, 0, 0, time.UTC)

	next, err := GetNextRunTime("0 * * * *", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 4, 6, 10, 0, 0, 0, time.UTC), *next)

	_, err = GetNextRunTime("bogus", from)
	assert.Error(t, err)
}

func TestJobScheduler_DisabledDoesNotStart(t *testing.T) {
	js := NewJobScheduler(Job{Name: "test", Schedule: "0 * * * *", Run: func(context.Context) error { return nil }})

	require.NoError(t, js.Start(context.Background()))

	assert.False(t, js.IsRunning())
	assert.Nil(t, js.GetNextRunTime())
}

func TestJobScheduler_InvalidSchedule(t *testing.T) {
	js := NewJobScheduler(Job{Name: "test", Schedule: "nope", Enabled: true, Run: func(context.Context) error { return nil }})

	assert.Error(t, js.Start(context.Background()))
	assert.False(t, js.IsRunning())
}

func TestJobScheduler_StartStop(t *testing.T) {
	js := NewJobScheduler(Job{Name: "test", Schedule: "0 * * * *", Enabled: true, Run: func(context.Context) error { return nil }})

	require.NoError(t, js.Start(context.Background()))
	assert.True(t, js.IsRunning())
	assert.NotNil(t, js.GetNextRunTime())

	js.Stop()
	assert.False(t, js.IsRunning())
}

func TestJobScheduler_RunNowRecordsResult(t *testing.T) {
	var calls atomic.Int32
	js := NewJobScheduler(Job{Name: "test", Run: func(context.Context) error {
		calls.Add(1)
		return errors.New("boom")
	}})

	js.RunNow()

	assert.Eventually(t, func() bool {
		at, _ := js.LastRun()
		return at != nil
	}, 2*time.Second, 10*time.Millisecond)

	_, err := js.LastRun()
	assert.EqualError(t, err, "boom")
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "boom", js.Status().LastError)
}

func TestJobScheduler_SkipsOverlappingRuns(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	js := NewJobScheduler(Job{Name: "slow", Run: func(context.Context) error {
		calls.Add(1)
		<-release
		return nil
	}})

	js.RunNow()
	assert.Eventually(t, js.IsBusy, 2*time.Second, 10*time.Millisecond)

	js.runJob()
	close(release)

	assert.Eventually(t, func() bool { return !js.IsBusy() }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestJobScheduler_Reschedule(t *testing.T) {
	js := NewJobScheduler(Job{Name: "test", Schedule: "0 * * * *", Run: func(context.Context) error { return nil }})

	assert.Error(t, js.Reschedule("bad", true))

	require.NoError(t, js.Reschedule("*/30 * * * *", true))
	defer js.Stop()

	assert.True(t, js.IsRunning())
	assert.Equal(t, "*/30 * * * *", js.Status().Schedule)
}

type recordingQueue struct {
	tasks []backlite.Task
}

func (q *recordingQueue) Enqueue(_ context.Context, task backlite.Task) (string, error) {
	q.tasks = append(q.tasks, task)
	return "id", nil
}

type stubRotator struct{ calls int }

func (s *stubRotator) Rotate(context.Context, bool) (*services.RotationResult, error) {
	s.calls++
	return &services.RotationResult{Reason: "active set has not expired"}, nil
}

type stubSLA struct{ calls int }

func (s *stubSLA) SendSLAReminders(context.Context) (*workflow.SLAReport, error) {
	s.calls++
	return &workflow.SLAReport{}, nil
}

func TestRunner_EnqueuesWhenQueueConfigured(t *testing.T) {
	queue := &recordingQueue{}
	rotator := &stubRotator{}
	runner := NewRunner(queue, tasks.Dependencies{Featured: rotator})

	require.NoError(t, runner.RotateFeatured(context.Background(), true))
	require.NoError(t, runner.SLAReminders(context.Background(), "admin"))

	require.Len(t, queue.tasks, 2)
	assert.Equal(t, tasks.RotateFeaturedTask{Force: true}, queue.tasks[0])
	assert.Equal(t, tasks.SendSLARemindersTask{Trigger: "admin"}, queue.tasks[1])
	assert.Zero(t, rotator.calls)
}

func TestRunner_RunsInlineWithoutQueue(t *testing.T) {
	rotator := &stubRotator{}
	sla := &stubSLA{}
	runner := NewRunner(nil, tasks.Dependencies{Featured: rotator, SLA: sla})

	require.NoError(t, runner.RotateFeatured(context.Background(), false))
	require.NoError(t, runner.SLAReminders(context.Background(), "cli"))

	assert.Equal(t, 1, rotator.calls)
	assert.Equal(t, 1, sla.calls)
}

func TestNew_UsesConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Workflow.SLAEnabled = true
	cfg.Workflow.SLASchedule = "0 * * * *"
	cfg.Featured.RotationSchedule = "0 3 * * *"
	cfg.Audit.RetentionDays = 90

	s := New(cfg, NewRunner(nil, tasks.Dependencies{}))

	statuses := s.Statuses()
	require.Len(t, statuses, 3)
	assert.Equal(t, JobSLAReminders, statuses[0].Name)
	assert.True(t, statuses[0].Enabled)
	assert.False(t, statuses[1].Enabled)
	assert.True(t, statuses[2].Enabled)
}
