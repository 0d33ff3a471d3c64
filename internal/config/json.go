package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/tokenmigrate/internal/flagx"
	"github.com/dmitrijs2005/tokenmigrate/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration, so both "10s" and integer nanoseconds are accepted.
type JsonConfig struct {
	StoreDriver       string         `json:"store_driver"`
	DatabaseDSN       string         `json:"database_dsn"`
	MongoURI          string         `json:"mongo_uri"`
	MongoDatabase     string         `json:"mongo_database"`
	HMACSecret        string         `json:"hmac_secret"`
	LogLevel          string         `json:"log_level"`
	LogFormat         string         `json:"log_format"`
	DryRun            bool           `json:"dry_run"`
	ConnectTimeout    timex.Duration `json:"connect_timeout"`
	Argon2MemoryKiB   uint32         `json:"argon2_memory_kib"`
	Argon2Iterations  uint32         `json:"argon2_iterations"`
	Argon2Parallelism uint32         `json:"argon2_parallelism"`
	PushgatewayURL    string         `json:"pushgateway_url"`
	S3RootUser        string         `json:"s3_root_user"`
	S3RootPassword    string         `json:"s3_root_password"`
	S3Bucket          string         `json:"s3_bucket"`
	S3Region          string         `json:"s3_region"`
	S3BaseEndpoint    string         `json:"s3_base_endpoint"`
	ArchivePassphrase string         `json:"archive_passphrase"`
}

// parseJson overlays values from the file named by -c/-config. Keys that
// are absent or empty in the file leave the current value untouched.
// A missing or malformed file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	setString(&config.StoreDriver, c.StoreDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.MongoURI, c.MongoURI)
	setString(&config.MongoDatabase, c.MongoDatabase)
	setString(&config.HMACSecret, c.HMACSecret)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
	if c.DryRun {
		config.DryRun = true
	}
	if c.ConnectTimeout.Duration > 0 {
		config.ConnectTimeout = c.ConnectTimeout.Duration
	}
	setUint(&config.Argon2MemoryKiB, c.Argon2MemoryKiB)
	setUint(&config.Argon2Iterations, c.Argon2Iterations)
	setUint(&config.Argon2Parallelism, c.Argon2Parallelism)
	setString(&config.PushgatewayURL, c.PushgatewayURL)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.ArchivePassphrase, c.ArchivePassphrase)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setUint(dst *uint32, v uint32) {
	if v != 0 {
		*dst = v
	}
}
