package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/shelf/internal/database/readingevents"
)

// LastEventReconciler rebuilds the last-event cache of every user book.
type LastEventReconciler interface {
	ReconcileLastEvents(ctx context.Context, reporter readingevents.ProgressReporter) (readingevents.ReconcileResult, error)
}

// ReconcileLastEventsTask rebuilds denormalized last-event fields from the
// reading event history.
type ReconcileLastEventsTask struct {
	Trigger string `json:"trigger"` // "manual", "schedule" or "cli"
}

// Config returns the queue configuration for reconciliation tasks.
func (t ReconcileLastEventsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "reconcile_last_events",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     30 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ReconcileLastEventsProcessor creates a processor for ReconcileLastEventsTask.
// Progress is written to reporter.
func ReconcileLastEventsProcessor(reconciler LastEventReconciler, reporter readingevents.ProgressReporter) backlite.QueueProcessor[ReconcileLastEventsTask] {
	return func(ctx context.Context, task ReconcileLastEventsTask) error {
		if reconciler == nil {
			return errors.New("last event reconciler not configured")
		}

		result, err := reconciler.ReconcileLastEvents(ctx, reporter)
		if err != nil {
			return fmt.Errorf("reconcile last events: %w", err)
		}

		if result.Skipped {
			log.Printf("[TASK] Last-event reconciliation (%s) skipped: already running", task.Trigger)
			return nil
		}
		log.Printf("[TASK] Last-event reconciliation (%s): %d checked, %d changed",
			task.Trigger, result.Checked, result.Changed)
		return nil
	}
}

// NewReconcileLastEventsQueue creates a backlite queue for reconciliation tasks.
func NewReconcileLastEventsQueue(reconciler LastEventReconciler, reporter readingevents.ProgressReporter) backlite.Queue {
	return backlite.NewQueue(ReconcileLastEventsProcessor(reconciler, reporter))
}
