package app

import (
	"strings"

	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/logger"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/utils"
)

type Config struct {
	Port         string
	Environment  string
	ServiceName  string
	JWTSecretKey string
	CORSOrigins  string

	ObjectStorageMode   string
	StorageEmulatorHost string
	DiskStorageRoot     string

	MaxUploadBytes  int64
	MaxArchiveBytes int64

	// RunWorker starts the Temporal worker in-process when Temporal is
	// configured.
	RunWorker bool
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Port:                utils.GetEnv("PORT", "8080", log),
		Environment:         utils.GetEnv("APP_ENV", "development", log),
		ServiceName:         utils.GetEnv("OTEL_SERVICE_NAME", "trainingevaluation", log),
		JWTSecretKey:        utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log),
		CORSOrigins:         utils.GetEnv("CORS_ALLOWED_ORIGINS", "", log),
		ObjectStorageMode:   strings.ToLower(utils.GetEnv("OBJECT_STORAGE_MODE", "", log)),
		StorageEmulatorHost: utils.GetEnv("STORAGE_EMULATOR_HOST", "", log),
		DiskStorageRoot:     utils.GetEnv("DISK_STORAGE_ROOT", "./data/blobs", log),
		MaxUploadBytes:      int64(utils.GetEnvAsInt("MAX_UPLOAD_MB", 32, log)) << 20,
		MaxArchiveBytes:     int64(utils.GetEnvAsInt("MAX_ARCHIVE_MB", 256, log)) << 20,
		RunWorker:           utils.GetEnvAsBool("TEMPORAL_RUN_WORKER", true, log),
	}
}
