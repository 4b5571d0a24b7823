package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/backup"
	domainagg "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain/aggregates"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/http/response"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/apierr"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/temporalx/backupjob"
)

const archiveContentType = "application/zip"

type BackupHandler struct {
	backups    backup.Service
	runs       backupjob.Service
	maxArchive int64
}

// NewBackupHandler serves synchronous backup/restore through backups and
// queued runs through runs. runs may be nil.
func NewBackupHandler(backups backup.Service, runs backupjob.Service, maxArchive int64) *BackupHandler {
	if maxArchive <= 0 {
		maxArchive = 256 << 20
	}
	return &BackupHandler{backups: backups, runs: runs, maxArchive: maxArchive}
}

func archiveName(activityID int64, at time.Time) string {
	return fmt.Sprintf("backup-trainingevaluation-%d-%s.zip", activityID, at.UTC().Format("20060102-1504"))
}

func sendArchive(c *gin.Context, name string, data []byte) {
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	c.Data(http.StatusOK, archiveContentType, data)
}

// GET /api/activities/:id/backup?userinfo=1
func (h *BackupHandler) Download(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	out, err := h.backups.Backup(c.Request.Context(), id, backup.Settings{UserInfo: boolQuery(c, "userinfo")})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	data, err := out.Archive.Bytes()
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	sendArchive(c, archiveName(id, time.Now()), data)
}

// readUpload accepts the archive as multipart field "archive" or as the raw
// request body.
func (h *BackupHandler) readUpload(c *gin.Context) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxArchive)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("archive")
		if err != nil {
			return nil, apierr.New(http.StatusBadRequest, "invalid_upload", errors.New("missing form file \"archive\""))
		}
		f, err := fh.Open()
		if err != nil {
			return nil, apierr.New(http.StatusBadRequest, "invalid_upload", err)
		}
		defer f.Close()
		return io.ReadAll(f)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, c.Request.Body); err != nil {
		return nil, apierr.New(http.StatusRequestEntityTooLarge, "archive_too_large", err)
	}
	if buf.Len() == 0 {
		return nil, apierr.New(http.StatusBadRequest, "invalid_upload", errors.New("empty archive"))
	}
	return buf.Bytes(), nil
}

// POST /api/courses/:id/restore?userinfo=1
func (h *BackupHandler) Restore(c *gin.Context) {
	courseID, err := int64Param(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	data, err := h.readUpload(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	archive, err := backup.ReadArchive(data)
	if err != nil {
		response.RespondErr(c, domainagg.NewError(domainagg.CodeValidation, "backup.Restore", "Backup archive is not readable", err))
		return
	}
	out, err := h.backups.Restore(c.Request.Context(), courseID, archive, backup.RestoreOptions{UserInfo: boolQuery(c, "userinfo")})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"restore": out})
}

func (h *BackupHandler) runsEnabled(c *gin.Context) bool {
	if h.runs != nil {
		return true
	}
	response.RespondError(c, http.StatusNotImplemented, "runs_disabled", errors.New("backup runs are not configured"))
	return false
}

// POST /api/activities/:id/backup-runs?userinfo=1
func (h *BackupHandler) EnqueueBackup(c *gin.Context) {
	if !h.runsEnabled(c) {
		return
	}
	id, err := int64Param(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	run, err := h.runs.EnqueueBackup(c.Request.Context(), id, boolQuery(c, "userinfo"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondAccepted(c, gin.H{"run": run})
}

// POST /api/courses/:id/restore-runs?userinfo=1
func (h *BackupHandler) EnqueueRestore(c *gin.Context) {
	if !h.runsEnabled(c) {
		return
	}
	courseID, err := int64Param(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	data, err := h.readUpload(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	run, err := h.runs.EnqueueRestore(c.Request.Context(), courseID, data, boolQuery(c, "userinfo"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondAccepted(c, gin.H{"run": run})
}

func runID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apierr.New(http.StatusBadRequest, "invalid_run_id", err)
	}
	return id, nil
}

// GET /api/backup-runs/:id
func (h *BackupHandler) GetRun(c *gin.Context) {
	if !h.runsEnabled(c) {
		return
	}
	id, err := runID(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	run, err := h.runs.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"run": run})
}

// GET /api/backup-runs/:id/archive
func (h *BackupHandler) RunArchive(c *gin.Context) {
	if !h.runsEnabled(c) {
		return
	}
	id, err := runID(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	run, err := h.runs.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	data, err := h.runs.Archive(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	var activityID int64
	if run.ActivityID != nil {
		activityID = *run.ActivityID
	}
	at := run.CreatedAt
	if run.FinishedAt != nil {
		at = *run.FinishedAt
	}
	sendArchive(c, archiveName(activityID, at), data)
}
