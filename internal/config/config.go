// Package config provides environment-driven configuration for the intake
// handler, worker, and URL issuer processes.
//
// Config file location: there is none — every process reads its
// configuration from the environment at startup, per spec.md §6, and the
// worker re-reads it on the "reload" control action (see internal/lifecycle).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// ObjectStoreProvider selects the backend internal/objectstore.New constructs.
type ObjectStoreProvider string

const (
	ProviderS3    ObjectStoreProvider = "s3"
	ProviderAzure ObjectStoreProvider = "azure"
)

// Defaults, per spec.md §6.
const (
	DefaultJobMaxRuntime   = 2000
	DefaultSQSQueueTimeout = 300
	DefaultSQSMaxTries     = 60
	DefaultSQSRetryTime    = 15 * time.Second
	DefaultJobPath         = "/var/tmp/"
)

// Config is the unified configuration for all three process entrypoints.
// Only OutputBucket and JobQueueName are required; everything else falls
// back to the documented default.
type Config struct {
	// InputBucket receives job descriptors and uploaded inputs.
	InputBucket string

	// OutputBucket receives status documents, metrics, and job artifacts.
	OutputBucket string

	// JobQueueName is the FIFO work queue the worker polls.
	JobQueueName string

	// IntakeQueueName is the queue carrying object-store key-notification
	// events (spec.md §6's "Intake event shape") that cmd/intake polls.
	// Not named in spec.md §6's table (which describes the event shape,
	// not its transport); added so the intake handler has a concrete
	// trigger source as a standalone long-running process rather than an
	// externally-invoked function, matching how JobQueueName itself is
	// just a queue name with no API-Gateway/Lambda wiring assumed.
	IntakeQueueName string

	// JobMaxRuntime is the default visibility extension in seconds, used
	// when a WorkMessage carries no max_run_time.
	JobMaxRuntime int

	// SQSQueueTimeout is the initial receive visibility timeout in seconds.
	SQSQueueTimeout int

	// SQSMaxTries is the number of consecutive empty polls before the
	// worker loop exits.
	SQSMaxTries int

	// SQSRetryTime is the sleep between empty polls.
	SQSRetryTime time.Duration

	// JobPath is the local working root the worker materializes jobs under.
	JobPath string

	// LogLevel is the raw numeric LOG_LEVEL value (see internal/logging).
	LogLevel string

	// ObjectStoreProvider selects which object store backend to construct.
	// Not named in spec.md §6 (which assumes a single object store); added
	// so the teacher's S3 and Azure Blob transfer code both have a home
	// (see SPEC_FULL.md's DOMAIN STACK table).
	ObjectStoreProvider ObjectStoreProvider

	// AWSRegion is passed to the AWS SDK config loader for both S3 and SQS.
	AWSRegion string

	// AWSAccessKeyID, AWSSecretAccessKey, AWSSessionToken override the SDK's
	// default credential chain with an explicit (possibly temporary, STS-
	// vended) credential set when all of AccessKeyID/SecretAccessKey are
	// present. Left unset, every process falls back to the default chain
	// (its own IAM role), the common case. This mirrors the teacher's
	// internal/cloud/providers/s3.S3Client.EnsureFreshCredentials shape
	// (NewStaticCredentialsProvider over access key/secret/session token),
	// without that method's cross-storage per-file refresh against a
	// Rescale API, which has no analogue in this domain.
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSSessionToken    string

	// AzureStorageAccount names the Azure Storage account when
	// ObjectStoreProvider is "azure".
	AzureStorageAccount string
}

// Load reads configuration from the environment. It returns an error if
// OUTPUT_BUCKET or JOB_QUEUE_NAME is unset, matching spec.md §6's "missing
// ... is a fatal startup error".
func Load() (*Config, error) {
	cfg := &Config{
		InputBucket:         os.Getenv("INPUT_BUCKET"),
		OutputBucket:        os.Getenv("OUTPUT_BUCKET"),
		JobQueueName:        os.Getenv("JOB_QUEUE_NAME"),
		IntakeQueueName:     os.Getenv("INTAKE_QUEUE_NAME"),
		JobMaxRuntime:       intEnv("JOB_MAX_RUNTIME", DefaultJobMaxRuntime),
		SQSQueueTimeout:     intEnv("SQS_QUEUE_TIMEOUT", DefaultSQSQueueTimeout),
		SQSMaxTries:         intEnv("SQS_MAX_TRIES", DefaultSQSMaxTries),
		SQSRetryTime:        time.Duration(intEnv("SQS_RETRY_TIME", int(DefaultSQSRetryTime/time.Second))) * time.Second,
		JobPath:             stringEnv("JOB_PATH", DefaultJobPath),
		LogLevel:            os.Getenv("LOG_LEVEL"),
		ObjectStoreProvider: ObjectStoreProvider(stringEnv("OBJECT_STORE_PROVIDER", string(ProviderS3))),
		AWSRegion:           stringEnv("AWS_REGION", "us-west-2"),
		AWSAccessKeyID:      os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey:  os.Getenv("AWS_SECRET_ACCESS_KEY"),
		AWSSessionToken:     os.Getenv("AWS_SESSION_TOKEN"),
		AzureStorageAccount: os.Getenv("AZURE_STORAGE_ACCOUNT"),
	}

	if cfg.OutputBucket == "" {
		return nil, fmt.Errorf("config: OUTPUT_BUCKET is required")
	}
	if cfg.JobQueueName == "" {
		return nil, fmt.Errorf("config: JOB_QUEUE_NAME is required")
	}

	return cfg, nil
}

func intEnv(name string, def int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func stringEnv(name, def string) string {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	return raw
}
