package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// BulkImportInput is the input for the bulk import workflow.
type BulkImportInput struct {
	AccountID int
	MapGuid   string
	FilePaths []string
}

// BulkImportResult summarises one bulk import run.
type BulkImportResult struct {
	RecordsAccepted int
	FilesRejected   int
	WritesSucceeded int
	WritesFailed    int
}

// BulkImportWorkflow orchestrates a file import: read and validate the
// files, persist every accepted record, then invalidate the map's cached
// location list. Writes are not retried at the workflow level: the persist
// activity already settles every record to exactly one outcome, and a
// replay would double-report the failures.
func BulkImportWorkflow(ctx workflow.Context, input BulkImportInput) (*BulkImportResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting bulk import", "map", input.MapGuid, "files", len(input.FilePaths))

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	// Step 1: read + validate all files
	var loaded LoadResult
	if err := workflow.ExecuteActivity(ctx, "LoadFiles", input.FilePaths).Get(ctx, &loaded); err != nil {
		return nil, err
	}
	if len(loaded.Records) == 0 {
		logger.Warn("No records accepted, nothing to persist", "rejectedFiles", loaded.RejectedFiles)
		return &BulkImportResult{FilesRejected: loaded.RejectedFiles}, nil
	}

	// Step 2: persist every accepted record
	var persisted PersistResult
	err := workflow.ExecuteActivity(ctx, "PersistRecords",
		input.AccountID, input.MapGuid, loaded.Records).Get(ctx, &persisted)
	if err != nil {
		return nil, err
	}

	// Step 3: drop the stale cached location list
	_ = workflow.ExecuteActivity(ctx, "InvalidateLocationCache", input.MapGuid).Get(ctx, nil)

	logger.Info("Bulk import finished",
		"accepted", len(loaded.Records),
		"succeeded", persisted.Successes,
		"failed", persisted.Errors)

	return &BulkImportResult{
		RecordsAccepted: len(loaded.Records),
		FilesRejected:   loaded.RejectedFiles,
		WritesSucceeded: persisted.Successes,
		WritesFailed:    persisted.Errors,
	}, nil
}
