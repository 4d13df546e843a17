package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/shelf/internal/database/readingevents"
	"github.com/mrlokans/shelf/internal/repoerr"
	"github.com/mrlokans/shelf/internal/tasks"
)

// TasksController handles background job endpoints.
type TasksController struct {
	client     *tasks.Client
	reconciler Reconciler
	progress   ReconcileStatus
	reporter   readingevents.ProgressReporter
}

// NewTasksController creates a TasksController. client may be nil, in which
// case reconciliation runs inline.
func NewTasksController(client *tasks.Client, reconciler Reconciler, progress ReconcileStatus, reporter readingevents.ProgressReporter) *TasksController {
	return &TasksController{
		client:     client,
		reconciler: reconciler,
		progress:   progress,
		reporter:   reporter,
	}
}

// RunReconcile rebuilds the last-event cache of every user book.
// POST /api/tasks/reconcile
func (tc *TasksController) RunReconcile(c *gin.Context) {
	if tc.client != nil {
		taskID, err := tc.client.EnqueueReconcile("manual")
		if err != nil {
			respondInternalError(c, err, "enqueue reconcile")
			return
		}
		respondAccepted(c, "reconciliation queued", gin.H{"task_id": taskID})
		return
	}

	result, err := tc.reconciler.ReconcileLastEvents(c.Request.Context(), tc.reporter)
	if err != nil {
		respondRepoError(c, err, "reconcile last events")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"checked": result.Checked,
		"changed": result.Changed,
		"skipped": result.Skipped,
	})
}

// GetReconcileStatus returns the progress of the last reconciliation run.
// GET /api/tasks/reconcile
func (tc *TasksController) GetReconcileStatus(c *gin.Context) {
	progress, err := tc.progress.GetSyncProgress(c.Request.Context())
	if errors.Is(err, repoerr.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"status": "never_run"})
		return
	}
	if err != nil {
		respondRepoError(c, err, "get reconcile status")
		return
	}
	c.JSON(http.StatusOK, progress)
}

// GetTaskStatus returns the status of a queued task.
// GET /api/tasks/:id
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	if tc.client == nil {
		respondNotFound(c, "task queue")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := tc.client.Status(ctx, c.Param("id"))
	if err != nil {
		respondInternalError(c, err, "get task status")
		return
	}
	if status == backlite.TaskStatusNotFound {
		respondNotFound(c, "task")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"task_id": c.Param("id"),
		"status":  taskStatusToString(status),
	})
}

func taskStatusToString(status backlite.TaskStatus) string {
	switch status {
	case backlite.TaskStatusPending:
		return "pending"
	case backlite.TaskStatusRunning:
		return "running"
	case backlite.TaskStatusSuccess:
		return "success"
	case backlite.TaskStatusFailure:
		return "failure"
	case backlite.TaskStatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}
