package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "TOKENMIGRATE_"

// loadDotEnv is a seam for tests. Variables already set in the process
// environment win over the file.
var loadDotEnv = func() error {
	return godotenv.Load()
}

// parseEnv overlays TOKENMIGRATE_* variables. A .env file in the working
// directory is loaded first when present. Malformed values panic.
func parseEnv(config *Config) {
	if err := loadDotEnv(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(fmt.Errorf(".env: %w", err))
	}

	envString(&config.StoreDriver, "STORE_DRIVER")
	envString(&config.DatabaseDSN, "DATABASE_DSN")
	envString(&config.MongoURI, "MONGO_URI")
	envString(&config.MongoDatabase, "MONGO_DATABASE")
	envString(&config.HMACSecret, "HMAC_SECRET")
	envString(&config.LogLevel, "LOG_LEVEL")
	envString(&config.LogFormat, "LOG_FORMAT")
	envString(&config.PushgatewayURL, "PUSHGATEWAY_URL")
	envString(&config.S3RootUser, "S3_ROOT_USER")
	envString(&config.S3RootPassword, "S3_ROOT_PASSWORD")
	envString(&config.S3Bucket, "S3_BUCKET")
	envString(&config.S3Region, "S3_REGION")
	envString(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")
	envString(&config.ArchivePassphrase, "ARCHIVE_PASSPHRASE")

	if v, ok := lookup("DRY_RUN"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			panic(fmt.Errorf("%sDRY_RUN: %w", envPrefix, err))
		}
		config.DryRun = b
	}

	if v, ok := lookup("CONNECT_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(fmt.Errorf("%sCONNECT_TIMEOUT: %w", envPrefix, err))
		}
		config.ConnectTimeout = d
	}

	envUint(&config.Argon2MemoryKiB, "ARGON2_MEMORY_KIB")
	envUint(&config.Argon2Iterations, "ARGON2_ITERATIONS")
	envUint(&config.Argon2Parallelism, "ARGON2_PARALLELISM")
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func envString(dst *string, name string) {
	if v, ok := lookup(name); ok {
		*dst = v
	}
}

func envUint(dst *uint32, name string) {
	v, ok := lookup(name)
	if !ok {
		return
	}
	u, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		panic(fmt.Errorf("%s%s: %w", envPrefix, name, err))
	}
	*dst = uint32(u)
}
