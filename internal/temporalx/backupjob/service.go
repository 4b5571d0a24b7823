package backupjob

import (
	"context"
	"time"

	"github.com/google/uuid"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/access"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/backup"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/data/aggregates"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/data/repos"
	types "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain"
	domainagg "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain/aggregates"
	domainbackup "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain/backup"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/dbctx"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/logger"
)

// Service queues backup and restore runs and reports their state.
type Service interface {
	EnqueueBackup(ctx context.Context, activityID int64, userInfo bool) (*types.BackupRun, error)
	EnqueueRestore(ctx context.Context, courseID int64, archive []byte, userInfo bool) (*types.BackupRun, error)
	Get(ctx context.Context, id uuid.UUID) (*types.BackupRun, error)
	Archive(ctx context.Context, id uuid.UUID) ([]byte, error)
}

type service struct {
	log        *logger.Logger
	tc         temporalsdkclient.Client
	taskQueue  string
	activities repos.ActivityRepo
	runs       repos.BackupRunRepo
	acts       *Activities
}

// NewService dispatches through tc, or runs inline when tc is nil.
func NewService(baseLog *logger.Logger, tc temporalsdkclient.Client, taskQueue string, activities repos.ActivityRepo, acts *Activities) Service {
	return &service{
		log:        baseLog.With("service", "BackupRunService"),
		tc:         tc,
		taskQueue:  taskQueue,
		activities: activities,
		runs:       acts.Runs,
		acts:       acts,
	}
}

func (s *service) dbc(ctx context.Context) dbctx.Context {
	return dbctx.Context{Ctx: ctx, Tx: s.acts.DB}
}

func (s *service) EnqueueBackup(ctx context.Context, activityID int64, userInfo bool) (*types.BackupRun, error) {
	const op = "backupjob.EnqueueBackup"
	if err := access.Require(ctx, op, access.CapBackup); err != nil {
		return nil, err
	}
	a, err := s.activities.GetByID(s.dbc(ctx), activityID)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if a == nil {
		return nil, domainagg.NotFound(op, "activity")
	}
	run, err := s.runs.Create(s.dbc(ctx), &types.BackupRun{
		Kind:        domainbackup.RunKindBackup,
		ActivityID:  &a.ID,
		CourseID:    a.Course,
		UserInfo:    userInfo,
		RequestedBy: access.CurrentUserID(ctx),
	})
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	return s.dispatch(ctx, op, run)
}

func (s *service) EnqueueRestore(ctx context.Context, courseID int64, archive []byte, userInfo bool) (*types.BackupRun, error) {
	const op = "backupjob.EnqueueRestore"
	if err := access.Require(ctx, op, access.CapRestore); err != nil {
		return nil, err
	}
	if courseID <= 0 {
		return nil, domainagg.Validation(op, map[string]string{"course": "Course is required"})
	}
	if _, err := backup.ReadArchive(archive); err != nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "Backup archive is not readable", err)
	}
	key, err := s.acts.Files.PutBlob(ctx, archive)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	run, err := s.runs.Create(s.dbc(ctx), &types.BackupRun{
		Kind:        domainbackup.RunKindRestore,
		CourseID:    courseID,
		UserInfo:    userInfo,
		ArchiveKey:  key,
		RequestedBy: access.CurrentUserID(ctx),
	})
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	return s.dispatch(ctx, op, run)
}

func (s *service) dispatch(ctx context.Context, op string, run *types.BackupRun) (*types.BackupRun, error) {
	if s.tc == nil {
		if _, err := s.acts.Execute(context.WithoutCancel(ctx), run.ID.String()); err != nil {
			return nil, aggregates.MapError(op, err)
		}
		return s.reload(ctx, op, run.ID)
	}
	_, err := s.tc.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:        run.ID.String(),
		TaskQueue: s.taskQueue,
	}, WorkflowName)
	if err != nil {
		s.log.Warn("backup run dispatch failed", "run_id", run.ID, "error", err)
		_ = s.runs.MarkFailed(s.dbc(ctx), run.ID, time.Now().UTC(), "dispatch: "+err.Error())
		return nil, domainagg.NewError(domainagg.CodeRetryable, op, "Could not queue the run", err)
	}
	s.log.Info("backup run queued", "run_id", run.ID, "kind", run.Kind)
	return run, nil
}

func (s *service) reload(ctx context.Context, op string, id uuid.UUID) (*types.BackupRun, error) {
	run, err := s.runs.GetByID(s.dbc(ctx), id)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if run == nil {
		return nil, domainagg.NotFound(op, "backup run")
	}
	return run, nil
}

// Get returns a run to the user who queued it or to anyone allowed to back
// up or restore.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*types.BackupRun, error) {
	const op = "backupjob.Get"
	run, err := s.reload(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if run.RequestedBy == access.CurrentUserID(ctx) {
		return run, nil
	}
	capability := access.CapBackup
	if run.Kind == domainbackup.RunKindRestore {
		capability = access.CapRestore
	}
	if err := access.Require(ctx, op, capability); err != nil {
		return nil, err
	}
	return run, nil
}

// Archive returns the archive of a finished backup run.
func (s *service) Archive(ctx context.Context, id uuid.UUID) ([]byte, error) {
	const op = "backupjob.Archive"
	run, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.Kind != domainbackup.RunKindBackup || run.Status != domainbackup.RunStatusSucceeded || run.ArchiveKey == "" {
		return nil, domainagg.NewError(domainagg.CodePreconditionFailed, op, "Backup is not ready", nil)
	}
	data, err := s.acts.Files.ReadBlob(ctx, run.ArchiveKey)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	return data, nil
}
