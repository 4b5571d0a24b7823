package filestore

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/dbctx"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/gcp"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/logger"
)

// ErrBlobNotFound is returned by Pool.Open for an unknown hash.
var ErrBlobNotFound = errors.New("blob not found")

// Hash returns the content hash used as the blob key.
func Hash(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// BlobKey spreads blobs over 256 prefixes: "<hh>/<hash>".
func BlobKey(hash string) string {
	if len(hash) < 2 {
		return hash
	}
	return hash[:2] + "/" + hash
}

// Pool is the content-addressed blob store behind stored-file records.
// Put is idempotent for a given hash.
type Pool interface {
	Put(ctx context.Context, hash string, data []byte) error
	Open(ctx context.Context, hash string) (io.ReadCloser, error)
	Has(ctx context.Context, hash string) (bool, error)
	Delete(ctx context.Context, hash string) error
}

type diskPool struct {
	root string
	log  *logger.Logger
}

func NewDiskPool(root string, baseLog *logger.Logger) (Pool, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("disk pool: empty root")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("disk pool: create root: %w", err)
	}
	return &diskPool{root: root, log: baseLog.With("service", "DiskPool")}, nil
}

func (p *diskPool) path(hash string) string {
	return filepath.Join(p.root, filepath.FromSlash(BlobKey(hash)))
}

func (p *diskPool) Put(ctx context.Context, hash string, data []byte) error {
	dst := p.path(hash)
	if _, err := os.Stat(dst); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("disk pool: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".blob-*")
	if err != nil {
		return fmt.Errorf("disk pool: temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("disk pool: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("disk pool: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("disk pool: rename: %w", err)
	}
	return nil
}

func (p *diskPool) Open(ctx context.Context, hash string) (io.ReadCloser, error) {
	f, err := os.Open(p.path(hash))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrBlobNotFound
		}
		return nil, err
	}
	return f, nil
}

func (p *diskPool) Has(ctx context.Context, hash string) (bool, error) {
	_, err := os.Stat(p.path(hash))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (p *diskPool) Delete(ctx context.Context, hash string) error {
	if err := os.Remove(p.path(hash)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

type bucketPool struct {
	bucket   gcp.BucketService
	category gcp.BucketCategory
}

// NewBucketPool stores blobs in the files bucket under BlobKey.
func NewBucketPool(bucket gcp.BucketService) Pool {
	return &bucketPool{bucket: bucket, category: gcp.BucketCategoryFiles}
}

func (p *bucketPool) Put(ctx context.Context, hash string, data []byte) error {
	if ok, err := p.Has(ctx, hash); err == nil && ok {
		return nil
	}
	return p.bucket.UploadFile(dbctx.Context{Ctx: ctx}, p.category, BlobKey(hash), bytes.NewReader(data), "application/octet-stream")
}

func (p *bucketPool) Open(ctx context.Context, hash string) (io.ReadCloser, error) {
	rc, err := p.bucket.DownloadFile(ctx, p.category, BlobKey(hash))
	if errors.Is(err, gcp.ErrObjectNotFound) {
		return nil, ErrBlobNotFound
	}
	return rc, err
}

func (p *bucketPool) Has(ctx context.Context, hash string) (bool, error) {
	_, err := p.bucket.GetObjectAttrs(ctx, p.category, BlobKey(hash))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gcp.ErrObjectNotFound) {
		return false, nil
	}
	return false, err
}

func (p *bucketPool) Delete(ctx context.Context, hash string) error {
	return p.bucket.DeleteFile(dbctx.Context{Ctx: ctx}, p.category, BlobKey(hash))
}
