package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/shelf/internal/config"
	"github.com/mrlokans/shelf/internal/database/readingevents"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(filepath.Join(t.TempDir(), "tasks.db"), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestNewClient(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "tasks.db")

	client, err := NewClient(dbPath, DefaultConfig())
	require.NoError(t, err)

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "tasks database should be created")
	assert.NoError(t, client.Close())
}

func TestClientStartStop(t *testing.T) {
	client := newTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	time.Sleep(50 * time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	assert.True(t, client.Stop(stopCtx), "stop should succeed gracefully")
}

func TestClientStopWithoutStart(t *testing.T) {
	client := newTestClient(t)

	assert.True(t, client.Stop(context.Background()))
}

type fakeReconciler struct {
	calls  chan readingevents.ProgressReporter
	result readingevents.ReconcileResult
	err    error
}

func (f *fakeReconciler) ReconcileLastEvents(ctx context.Context, reporter readingevents.ProgressReporter) (readingevents.ReconcileResult, error) {
	f.calls <- reporter
	return f.result, f.err
}

type fakeReporter struct {
	readingevents.ProgressReporter
}

func TestReconcileLastEventsTask_RunsThroughQueue(t *testing.T) {
	client := newTestClient(t)
	reconciler := &fakeReconciler{
		calls:  make(chan readingevents.ProgressReporter, 1),
		result: readingevents.ReconcileResult{Checked: 3, Changed: 1},
	}
	reporter := &fakeReporter{}
	client.Register(NewReconcileLastEventsQueue(reconciler, reporter))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	taskID, err := client.EnqueueReconcile("manual")
	require.NoError(t, err)
	assert.NotEmpty(t, taskID)

	select {
	case got := <-reconciler.calls:
		assert.Same(t, reporter, got)
	case <-time.After(5 * time.Second):
		t.Fatal("task was not executed within timeout")
	}
}

func TestEnqueueCoverFetch_Pending(t *testing.T) {
	client := newTestClient(t)
	client.Register(NewFetchCoverQueue(&fakeFetcher{}))

	taskID, err := client.EnqueueCoverFetch(uuid.New(), "https://example.com/cover.jpg")
	require.NoError(t, err)

	status, err := client.Status(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, backlite.TaskStatusPending, status, "workers are not started")
}

func TestReconcileLastEventsProcessor(t *testing.T) {
	t.Run("propagates failure", func(t *testing.T) {
		reconciler := &fakeReconciler{calls: make(chan readingevents.ProgressReporter, 1), err: errors.New("boom")}
		err := ReconcileLastEventsProcessor(reconciler, nil)(context.Background(), ReconcileLastEventsTask{})
		assert.ErrorContains(t, err, "boom")
	})

	t.Run("skipped run is not an error", func(t *testing.T) {
		reconciler := &fakeReconciler{
			calls:  make(chan readingevents.ProgressReporter, 1),
			result: readingevents.ReconcileResult{Skipped: true},
		}
		err := ReconcileLastEventsProcessor(reconciler, nil)(context.Background(), ReconcileLastEventsTask{})
		assert.NoError(t, err)
	})

	t.Run("missing reconciler", func(t *testing.T) {
		err := ReconcileLastEventsProcessor(nil, nil)(context.Background(), ReconcileLastEventsTask{})
		assert.Error(t, err)
	})
}

type fakeFetcher struct {
	bookID uuid.UUID
	url    string
}

func (f *fakeFetcher) FetchRemote(ctx context.Context, bookID uuid.UUID, url string) (string, error) {
	f.bookID = bookID
	f.url = url
	return "cover.jpg", nil
}

func TestFetchCoverProcessor(t *testing.T) {
	fetcher := &fakeFetcher{}
	task := FetchCoverTask{BookID: uuid.New(), URL: "https://covers.example/b/1-L.jpg"}

	err := FetchCoverProcessor(fetcher)(context.Background(), task)

	require.NoError(t, err)
	assert.Equal(t, task.BookID, fetcher.bookID)
	assert.Equal(t, task.URL, fetcher.url)
}

func TestQueueConfigs(t *testing.T) {
	tests := []struct {
		task        backlite.Task
		name        string
		maxAttempts int
	}{
		{ReconcileLastEventsTask{}, "reconcile_last_events", 1},
		{FetchCoverTask{}, "fetch_cover", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.task.Config()
			assert.Equal(t, tt.name, cfg.Name)
			assert.Equal(t, tt.maxAttempts, cfg.MaxAttempts)
			assert.NotNil(t, cfg.Retention)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 5*time.Minute, cfg.TaskTimeout)
	assert.Equal(t, 15*time.Minute, cfg.ReleaseAfter)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
	assert.Equal(t, 24*time.Hour, cfg.RetentionDuration)
}

func TestFromAppConfig(t *testing.T) {
	cfg := FromAppConfig(config.Tasks{Workers: 4, ReleaseAfter: time.Minute})

	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, time.Minute, cfg.ReleaseAfter)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
}
