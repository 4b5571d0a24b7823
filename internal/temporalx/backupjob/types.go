// Package backupjob runs queued backups and restores, through Temporal when
// a client is configured and inline otherwise.
package backupjob

const (
	WorkflowName    = "backup_run"
	ActivityExecute = "backup_run_execute"
)

type ExecuteResult struct {
	RunID      string `json:"run_id"`
	Status     string `json:"status"`
	ArchiveKey string `json:"archive_key,omitempty"`
	ActivityID int64  `json:"activity_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// RunSummary is stored on the run row when it succeeds.
type RunSummary struct {
	BackupID   string      `json:"backupid,omitempty"`
	RestoreID  string      `json:"restoreid,omitempty"`
	ActivityID int64       `json:"activityid,omitempty"`
	Counts     interface{} `json:"counts"`
}
