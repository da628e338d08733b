package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/stories1001/publisher/internal/tasks"
)

// TasksController handles background job and task queue endpoints.
type TasksController struct {
	queue  TaskQueue
	jobs   JobStatusProvider
	runner JobTrigger
}

// NewTasksController creates a new TasksController. queue may be nil when
// the task queue is disabled.
func NewTasksController(queue TaskQueue, jobs JobStatusProvider, runner JobTrigger) *TasksController {
	return &TasksController{queue: queue, jobs: jobs, runner: runner}
}

// TaskTypeInfo describes an available task type.
type TaskTypeInfo struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Queue       string `json:"queue"`
}

// RunTaskRequest is the request body for running a task.
type RunTaskRequest struct {
	// Force rotates the featured set even if it has not expired
	Force bool `json:"force,omitempty"`
	// RetentionDays overrides the audit retention for cleanup_audit
	RetentionDays int `json:"retention_days,omitempty"`
}

// ListTaskTypes handles GET /api/admin/tasks/types
// Returns the list of task types that can be triggered.
func (tc *TasksController) ListTaskTypes(c *gin.Context) {
	types := []TaskTypeInfo{
		{
			Type:        tasks.QueueSLAReminders,
			Description: "Send reminders for submissions past their review or revision deadline",
			Queue:       tasks.QueueSLAReminders,
		},
		{
			Type:        tasks.QueueRotateFeatured,
			Description: "Rotate the featured books",
			Queue:       tasks.QueueRotateFeatured,
		},
		{
			Type:        tasks.QueueCleanupAudit,
			Description: "Delete audit events older than the retention period",
			Queue:       tasks.QueueCleanupAudit,
		},
	}

	c.JSON(http.StatusOK, gin.H{
		"task_types":    types,
		"queue_enabled": tc.queue != nil,
	})
}

// GetTaskStatus handles GET /api/admin/tasks/:id
// Returns the status of a specific task.
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	if tc.queue == nil {
		respondError(c, http.StatusServiceUnavailable, "", "task queue is disabled")
		return
	}
	taskID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := tc.queue.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, err, "task status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     taskID,
		"status": taskStatusToString(status),
	})
}

// RunTask handles POST /api/admin/tasks/:type/run
// Triggers a task of the specified type. With the queue enabled the task is
// enqueued, otherwise it runs inside the request.
func (tc *TasksController) RunTask(c *gin.Context) {
	taskType := c.Param("type")

	var req RunTaskRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "invalid request body")
			return
		}
	}
	if force, err := strconv.ParseBool(c.Query("force")); err == nil {
		req.Force = force
	}

	ctx := c.Request.Context()
	var err error
	switch taskType {
	case tasks.QueueSLAReminders:
		err = tc.runner.SLAReminders(ctx, "manual")
	case tasks.QueueRotateFeatured:
		err = tc.runner.RotateFeatured(ctx, req.Force)
	case tasks.QueueCleanupAudit:
		err = tc.runner.CleanupAudit(ctx, req.RetentionDays)
	default:
		respondBadRequest(c, fmt.Sprintf("unknown task type: %s", taskType))
		return
	}
	if err != nil {
		respondInternalError(c, err, "run task "+taskType)
		return
	}

	if tc.queue != nil {
		respondAccepted(c, "task enqueued", gin.H{"type": taskType})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "task completed", Data: gin.H{"type": taskType}})
}

// ListJobs handles GET /api/admin/jobs
// Returns the cron schedulers and their next run times.
func (tc *TasksController) ListJobs(c *gin.Context) {
	if tc.jobs == nil {
		c.JSON(http.StatusOK, gin.H{"jobs": []any{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": tc.jobs.Statuses()})
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
