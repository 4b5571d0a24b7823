package backupjob

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/access"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/backup"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/data/repos"
	types "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain"
	domainbackup "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain/backup"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/filestore"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/dbctx"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/logger"
)

type Activities struct {
	Log    *logger.Logger
	DB     *gorm.DB
	Runs   repos.BackupRunRepo
	Backup backup.Service
	Files  filestore.Store
}

// Execute performs the run identified by runID and records the outcome on
// its row. A run that already finished is reported as is.
func (a *Activities) Execute(ctx context.Context, runID string) (ExecuteResult, error) {
	res := ExecuteResult{RunID: runID}
	if a == nil || a.DB == nil || a.Runs == nil || a.Backup == nil || a.Files == nil {
		return res, fmt.Errorf("backupjob: activity not configured")
	}
	id, err := uuid.Parse(runID)
	if err != nil || id == uuid.Nil {
		return res, fmt.Errorf("backupjob: invalid run id %q", runID)
	}
	dbc := dbctx.Context{Ctx: ctx, Tx: a.DB}
	run, err := a.Runs.GetByID(dbc, id)
	if err != nil {
		return res, err
	}
	if run == nil {
		return res, fmt.Errorf("backupjob: run %s not found", runID)
	}
	if run.Done() {
		return resultOf(run), nil
	}

	stop := a.startHeartbeat(ctx)
	defer stop()

	if err := a.Runs.MarkRunning(dbc, id, time.Now().UTC()); err != nil {
		return res, err
	}

	key, summary, runErr := a.perform(ctx, run)
	now := time.Now().UTC()
	if runErr != nil {
		a.Log.Warn("backup run failed", "run_id", runID, "kind", run.Kind, "error", runErr)
		if err := a.Runs.MarkFailed(dbc, id, now, runErr.Error()); err != nil {
			return res, err
		}
		res.Status = string(domainbackup.RunStatusFailed)
		res.Error = runErr.Error()
		return res, nil
	}

	raw, err := json.Marshal(summary)
	if err != nil {
		return res, err
	}
	if err := a.Runs.MarkSucceeded(dbc, id, now, key, datatypes.JSON(raw)); err != nil {
		return res, err
	}
	a.Log.Info("backup run succeeded", "run_id", runID, "kind", run.Kind, "archive_key", key)
	res.Status = string(domainbackup.RunStatusSucceeded)
	res.ArchiveKey = key
	res.ActivityID = summary.ActivityID
	return res, nil
}

func (a *Activities) perform(ctx context.Context, run *types.BackupRun) (string, RunSummary, error) {
	switch run.Kind {
	case domainbackup.RunKindBackup:
		if run.ActivityID == nil {
			return "", RunSummary{}, fmt.Errorf("backup run has no activity")
		}
		actx := access.WithCapabilities(ctx, run.RequestedBy, access.CapBackup)
		out, err := a.Backup.Backup(actx, *run.ActivityID, backup.Settings{UserInfo: run.UserInfo})
		if err != nil {
			return "", RunSummary{}, err
		}
		data, err := out.Archive.Bytes()
		if err != nil {
			return "", RunSummary{}, err
		}
		key, err := a.Files.PutBlob(ctx, data)
		if err != nil {
			return "", RunSummary{}, err
		}
		return key, RunSummary{
			BackupID:   out.Archive.Manifest.BackupID,
			ActivityID: *run.ActivityID,
			Counts:     out.Summary,
		}, nil

	case domainbackup.RunKindRestore:
		data, err := a.Files.ReadBlob(ctx, run.ArchiveKey)
		if err != nil {
			return "", RunSummary{}, fmt.Errorf("read archive %s: %w", run.ArchiveKey, err)
		}
		archive, err := backup.ReadArchive(data)
		if err != nil {
			return "", RunSummary{}, err
		}
		actx := access.WithCapabilities(ctx, run.RequestedBy, access.CapRestore)
		out, err := a.Backup.Restore(actx, run.CourseID, archive, backup.RestoreOptions{UserInfo: run.UserInfo})
		if err != nil {
			return "", RunSummary{}, err
		}
		return run.ArchiveKey, RunSummary{
			BackupID:   archive.Manifest.BackupID,
			RestoreID:  out.RestoreID,
			ActivityID: out.Activity.ID,
			Counts:     out.Summary,
		}, nil
	}
	return "", RunSummary{}, fmt.Errorf("unknown run kind %q", run.Kind)
}

func (a *Activities) startHeartbeat(ctx context.Context) func() {
	if !activity.IsActivity(ctx) {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(15 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				activity.RecordHeartbeat(ctx)
			}
		}
	}()
	return func() { close(done) }
}

func resultOf(run *types.BackupRun) ExecuteResult {
	return ExecuteResult{
		RunID:      run.ID.String(),
		Status:     string(run.Status),
		ArchiveKey: run.ArchiveKey,
		Error:      run.Error,
	}
}
