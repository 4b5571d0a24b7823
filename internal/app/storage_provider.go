package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/filestore"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/gcp"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/logger"
)

var (
	newBucketServiceWithConfig = gcp.NewBucketServiceWithConfig
	newDiskPool                = filestore.NewDiskPool
)

type StorageProviderBootstrapErrorCode string

const (
	StorageProviderBootstrapErrorInvalidMode         StorageProviderBootstrapErrorCode = "invalid_mode"
	StorageProviderBootstrapErrorMissingEmulatorHost StorageProviderBootstrapErrorCode = "missing_emulator_host"
	StorageProviderBootstrapErrorInvalidEmulatorHost StorageProviderBootstrapErrorCode = "invalid_emulator_host"
	StorageProviderBootstrapErrorMissingDiskRoot     StorageProviderBootstrapErrorCode = "missing_disk_root"
	StorageProviderBootstrapErrorConnectFailed       StorageProviderBootstrapErrorCode = "connect_failed"
)

type StorageProviderBootstrapError struct {
	Code         StorageProviderBootstrapErrorCode
	Mode         string
	EmulatorHost string
	Cause        error
}

func (e *StorageProviderBootstrapError) Error() string {
	if e == nil {
		return "object storage bootstrap failed"
	}
	return fmt.Sprintf(
		"object storage bootstrap failed (code=%s mode=%q emulator_host=%q): %v",
		e.Code,
		e.Mode,
		e.EmulatorHost,
		e.Cause,
	)
}

func (e *StorageProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// storageConfig mirrors gcp.ResolveObjectStorageConfigFromEnv: an empty mode
// picks the emulator when a host is set and local disk otherwise.
func storageConfig(cfg Config) gcp.ObjectStorageConfig {
	storageCfg := gcp.ObjectStorageConfig{
		Mode:         gcp.ObjectStorageMode(strings.TrimSpace(cfg.ObjectStorageMode)),
		EmulatorHost: strings.TrimSpace(cfg.StorageEmulatorHost),
		DiskRoot:     strings.TrimSpace(cfg.DiskStorageRoot),
	}
	if storageCfg.Mode == "" {
		if storageCfg.EmulatorHost != "" {
			storageCfg.Mode = gcp.ObjectStorageModeGCSEmulator
			storageCfg.CompatibilityFallback = true
		} else {
			storageCfg.Mode = gcp.ObjectStorageModeDisk
		}
	}
	return storageCfg
}

// resolveBlobPool builds the content-addressed pool behind every file area
// and backup archive.
func resolveBlobPool(log *logger.Logger, cfg Config) (filestore.Pool, error) {
	storageCfg := storageConfig(cfg)
	fields := []interface{}{
		"mode", storageCfg.Mode,
		"mode_source", storageCfg.ModeSource(),
		"emulator_host", storageCfg.EmulatorHost,
	}

	if err := gcp.ValidateObjectStorageConfig(storageCfg); err != nil {
		classified := classifyStorageProviderBootstrapError(storageCfg, err)
		log.Error("Object storage provider selection failed", append(fields, "error", classified)...)
		return nil, classified
	}
	log.Info("Selecting object storage provider", fields...)

	if storageCfg.Mode == gcp.ObjectStorageModeDisk {
		pool, err := newDiskPool(storageCfg.DiskRoot, log)
		if err != nil {
			classified := classifyStorageProviderBootstrapError(storageCfg, err)
			log.Error("Disk blob pool bootstrap failed", append(fields, "root", storageCfg.DiskRoot, "error", classified)...)
			return nil, classified
		}
		return pool, nil
	}

	bucket, err := newBucketServiceWithConfig(log, storageCfg)
	if err != nil {
		classified := classifyStorageProviderBootstrapError(storageCfg, err)
		log.Error("Object storage provider bootstrap failed",
			append(fields, "error_code", storageProviderBootstrapErrorCode(classified), "error", classified)...)
		return nil, classified
	}
	return filestore.NewBucketPool(bucket), nil
}

func classifyStorageProviderBootstrapError(storageCfg gcp.ObjectStorageConfig, err error) error {
	code := StorageProviderBootstrapErrorConnectFailed
	var cfgErr *gcp.ObjectStorageConfigError
	if errors.As(err, &cfgErr) {
		switch cfgErr.Code {
		case gcp.ObjectStorageConfigErrorInvalidMode:
			code = StorageProviderBootstrapErrorInvalidMode
		case gcp.ObjectStorageConfigErrorMissingEmulatorHost:
			code = StorageProviderBootstrapErrorMissingEmulatorHost
		case gcp.ObjectStorageConfigErrorInvalidEmulatorHost:
			code = StorageProviderBootstrapErrorInvalidEmulatorHost
		case gcp.ObjectStorageConfigErrorMissingDiskRoot:
			code = StorageProviderBootstrapErrorMissingDiskRoot
		}
	}
	return &StorageProviderBootstrapError{
		Code:         code,
		Mode:         string(storageCfg.Mode),
		EmulatorHost: storageCfg.EmulatorHost,
		Cause:        err,
	}
}

func storageProviderBootstrapErrorCode(err error) StorageProviderBootstrapErrorCode {
	var bootstrapErr *StorageProviderBootstrapError
	if errors.As(err, &bootstrapErr) && bootstrapErr.Code != "" {
		return bootstrapErr.Code
	}
	return StorageProviderBootstrapErrorConnectFailed
}
