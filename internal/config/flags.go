package config

import (
	"flag"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/tokenmigrate/internal/flagx"
)

// flagNames lists every flag handled by parseFlags.
var flagNames = []string{
	"-t", "-d", "-m", "-D", "-k", "-l", "-f", "-n", "-w",
	"-M", "-i", "-P", "-x", "-u", "-p", "-b", "-r", "-e", "-a",
}

// BoolFlags lists the flags that take no value.
var BoolFlags = []string{"-n"}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-t string   store driver: postgres, mongo or memory
//	-d string   PostgreSQL DSN
//	-m string   MongoDB URI
//	-D string   MongoDB database
//	-k string   HMAC secret for lookup prefixes
//	-l string   log level
//	-f string   log format: json, text or zap
//	-n          dry run, count candidates without writing
//	-w value    connect timeout, whole seconds or a duration such as 2500ms
//	-M uint32   argon2 memory, KiB
//	-i uint32   argon2 iterations
//	-P uint32   argon2 parallelism
//	-x string   Pushgateway URL
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-r string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-a string   archive passphrase
//
// os.Args is first filtered with flagx.FilterArgs, so subcommand names and
// positional arguments are ignored here. A flag that is not given leaves
// the value from defaults, file or environment untouched. A parse error panics.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], flagNames, BoolFlags...)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.StoreDriver, "t", config.StoreDriver, "store driver")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.MongoURI, "m", config.MongoURI, "mongo URI")
	fs.StringVar(&config.MongoDatabase, "D", config.MongoDatabase, "mongo database")
	fs.StringVar(&config.HMACSecret, "k", config.HMACSecret, "HMAC secret")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.LogFormat, "f", config.LogFormat, "log format")
	fs.BoolVar(&config.DryRun, "n", config.DryRun, "dry run")

	fs.Var((*secondsValue)(&config.ConnectTimeout), "w", "connect timeout (in seconds)")
	fs.Var((*uint32Value)(&config.Argon2MemoryKiB), "M", "argon2 memory (KiB)")
	fs.Var((*uint32Value)(&config.Argon2Iterations), "i", "argon2 iterations")
	fs.Var((*uint32Value)(&config.Argon2Parallelism), "P", "argon2 parallelism")

	fs.StringVar(&config.PushgatewayURL, "x", config.PushgatewayURL, "Pushgateway URL")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "r", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.ArchivePassphrase, "a", config.ArchivePassphrase, "archive passphrase")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}

// secondsValue is a duration flag. A bare integer counts seconds.
type secondsValue time.Duration

func (v *secondsValue) Set(s string) error {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*v = secondsValue(time.Duration(n) * time.Second)
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*v = secondsValue(d)
	return nil
}

func (v *secondsValue) String() string { return time.Duration(*v).String() }

// uint32Value rejects values that do not fit in 32 bits, as envUint does.
type uint32Value uint32

func (v *uint32Value) Set(s string) error {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return err
	}
	*v = uint32Value(n)
	return nil
}

func (v *uint32Value) String() string { return strconv.FormatUint(uint64(*v), 10) }
