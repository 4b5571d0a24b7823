package backupjob

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Workflow executes one backup run. The workflow id is the run id.
func Workflow(ctx workflow.Context) error {
	runID := strings.TrimSpace(workflow.GetInfo(ctx).WorkflowExecution.ID)
	if runID == "" {
		return fmt.Errorf("backupjob: missing run id")
	}

	// A failed run stays failed; the user queues a new one.
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Hour,
		HeartbeatTimeout:    time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})

	var out ExecuteResult
	if err := workflow.ExecuteActivity(ctx, ActivityExecute, runID).Get(ctx, &out); err != nil {
		return err
	}
	if out.Status == "failed" {
		return fmt.Errorf("backup run %s failed: %s", runID, out.Error)
	}
	return nil
}
