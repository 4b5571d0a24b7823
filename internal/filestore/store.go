package filestore

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/data/aggregates"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/data/repos"
	types "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain"
	domainagg "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain/aggregates"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/dbctx"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/logger"
)

// FileRecord describes where a new file goes. FilePath defaults to "/".
type FileRecord struct {
	ContextID int64
	Component string
	FileArea  string
	ItemID    int64
	FilePath  string
	FileName  string
	MimeType  string
	UserID    *int64
}

// Store places pool blobs into file areas through stored-file records.
type Store interface {
	Create(dbc dbctx.Context, rec FileRecord, data []byte) (*types.StoredFile, error)
	ListArea(dbc dbctx.Context, f repos.AreaFilter) ([]*types.StoredFile, error)
	ListByContext(dbc dbctx.Context, contextID int64, component string) ([]*types.StoredFile, error)
	Get(dbc dbctx.Context, id int64) (*types.StoredFile, error)
	Open(ctx context.Context, file *types.StoredFile) (io.ReadCloser, error)
	ReadAll(ctx context.Context, file *types.StoredFile) ([]byte, error)
	PutBlob(ctx context.Context, data []byte) (string, error)
	ReadBlob(ctx context.Context, hash string) ([]byte, error)
	HasBlob(ctx context.Context, hash string) (bool, error)
	CopyToArea(dbc dbctx.Context, file *types.StoredFile, rec FileRecord) (*types.StoredFile, error)
	Delete(dbc dbctx.Context, files []*types.StoredFile) error
	DeleteArea(dbc dbctx.Context, f repos.AreaFilter) (int, error)
}

type store struct {
	repo repos.StoredFileRepo
	pool Pool
	log  *logger.Logger
}

func NewStore(repo repos.StoredFileRepo, pool Pool, baseLog *logger.Logger) Store {
	return &store{repo: repo, pool: pool, log: baseLog.With("service", "FileStore")}
}

func normaliseRecord(rec FileRecord) (FileRecord, error) {
	rec.FileName = strings.TrimSpace(path.Base(strings.ReplaceAll(rec.FileName, "\\", "/")))
	if rec.FileName == "" || rec.FileName == "." || rec.FileName == "/" {
		return rec, domainagg.Validation("filestore.Create", map[string]string{"filename": "File name is required"})
	}
	if rec.FilePath == "" {
		rec.FilePath = "/"
	}
	if !strings.HasPrefix(rec.FilePath, "/") {
		rec.FilePath = "/" + rec.FilePath
	}
	if !strings.HasSuffix(rec.FilePath, "/") {
		rec.FilePath += "/"
	}
	if rec.MimeType == "" {
		rec.MimeType = mime.TypeByExtension(path.Ext(rec.FileName))
		if rec.MimeType == "" {
			rec.MimeType = "application/octet-stream"
		}
	}
	if rec.Component == "" || rec.FileArea == "" {
		return rec, domainagg.NewError(domainagg.CodeInvariantViolation, "filestore.Create", "component and filearea are required", nil)
	}
	return rec, nil
}

func (s *store) PutBlob(ctx context.Context, data []byte) (string, error) {
	hash := Hash(data)
	if err := s.pool.Put(ctx, hash, data); err != nil {
		return "", fmt.Errorf("put blob %s: %w", hash, err)
	}
	return hash, nil
}

// ReadBlob reads a pool blob that has no stored-file record, such as a
// queued backup archive.
func (s *store) ReadBlob(ctx context.Context, hash string) ([]byte, error) {
	rc, err := s.pool.Open(ctx, hash)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (s *store) HasBlob(ctx context.Context, hash string) (bool, error) {
	return s.pool.Has(ctx, hash)
}

func (s *store) Create(dbc dbctx.Context, rec FileRecord, data []byte) (*types.StoredFile, error) {
	rec, err := normaliseRecord(rec)
	if err != nil {
		return nil, err
	}
	hash, err := s.PutBlob(dbc.Ctx, data)
	if err != nil {
		return nil, err
	}
	return s.insert(dbc, rec, hash, int64(len(data)))
}

func (s *store) insert(dbc dbctx.Context, rec FileRecord, hash string, size int64) (*types.StoredFile, error) {
	row := &types.StoredFile{
		ContextID:   rec.ContextID,
		Component:   rec.Component,
		FileArea:    rec.FileArea,
		ItemID:      rec.ItemID,
		FilePath:    rec.FilePath,
		FileName:    rec.FileName,
		ContentHash: hash,
		FileSize:    size,
		MimeType:    rec.MimeType,
		UserID:      rec.UserID,
	}
	if _, err := s.repo.Create(dbc, []*types.StoredFile{row}); err != nil {
		return nil, aggregates.MapError("filestore.Create", err)
	}
	return row, nil
}

func (s *store) ListArea(dbc dbctx.Context, f repos.AreaFilter) ([]*types.StoredFile, error) {
	return s.repo.ListArea(dbc, f)
}

func (s *store) ListByContext(dbc dbctx.Context, contextID int64, component string) ([]*types.StoredFile, error) {
	return s.repo.ListByContext(dbc, contextID, component)
}

func (s *store) Get(dbc dbctx.Context, id int64) (*types.StoredFile, error) {
	return s.repo.GetByID(dbc, id)
}

func (s *store) Open(ctx context.Context, file *types.StoredFile) (io.ReadCloser, error) {
	if file == nil {
		return nil, ErrBlobNotFound
	}
	return s.pool.Open(ctx, file.ContentHash)
}

func (s *store) ReadAll(ctx context.Context, file *types.StoredFile) ([]byte, error) {
	rc, err := s.Open(ctx, file)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// CopyToArea creates a record for the same blob at rec. Fields of rec left
// empty are taken from file.
func (s *store) CopyToArea(dbc dbctx.Context, file *types.StoredFile, rec FileRecord) (*types.StoredFile, error) {
	if rec.Component == "" {
		rec.Component = file.Component
	}
	if rec.FileArea == "" {
		rec.FileArea = file.FileArea
	}
	if rec.FilePath == "" {
		rec.FilePath = file.FilePath
	}
	if rec.FileName == "" {
		rec.FileName = file.FileName
	}
	if rec.MimeType == "" {
		rec.MimeType = file.MimeType
	}
	if rec.UserID == nil {
		rec.UserID = file.UserID
	}
	rec, err := normaliseRecord(rec)
	if err != nil {
		return nil, err
	}
	return s.insert(dbc, rec, file.ContentHash, file.FileSize)
}

// Delete removes the records. Blobs stay in the pool; other records or
// archives may share them.
func (s *store) Delete(dbc dbctx.Context, files []*types.StoredFile) error {
	ids := make([]int64, 0, len(files))
	for _, f := range files {
		if f != nil {
			ids = append(ids, f.ID)
		}
	}
	return s.repo.DeleteByIDs(dbc, ids)
}

func (s *store) DeleteArea(dbc dbctx.Context, f repos.AreaFilter) (int, error) {
	rows, err := s.repo.ListArea(dbc, f)
	if err != nil {
		return 0, err
	}
	if err := s.Delete(dbc, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}
