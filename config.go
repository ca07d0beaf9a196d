package blobx

import (
	"time"
)

// Backend kinds resolvable by the factory.
const (
	BackendLocal = "local"
	BackendNAS   = "nas"
	BackendS3    = "s3"
)

// Config holds all storage configuration options
type Config struct {
	// Backend selects the storage implementation ("local", "nas" or "s3")
	Backend string `mapstructure:"backend" yaml:"backend" default:"local"`

	// LocalPath is the root directory for the local backend (created if missing)
	LocalPath string `mapstructure:"local_path" yaml:"local_path" default:"./data"`

	// NASPath is the root directory for the nas backend. The nas backend is
	// the local backend rooted at a network mount; the path must be supplied
	// explicitly.
	NASPath string `mapstructure:"nas_path" yaml:"nas_path"`

	// Bucket is the S3 bucket name (required for the s3 backend)
	Bucket string `mapstructure:"bucket" yaml:"bucket"`

	// Region is the AWS region (e.g., "eu-central-1")
	Region string `mapstructure:"region" yaml:"region" default:"eu-central-1"`

	// Endpoint is the custom endpoint URL (for MinIO and other
	// S3-compatible stores)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// UsePathStyle forces path-style addressing (true for MinIO)
	UsePathStyle bool `mapstructure:"use_path_style" yaml:"use_path_style" default:"false"`

	// AccessKey is the access key ID
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`

	// SecretKey is the secret access key
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`

	// SessionToken is the temporary session token (optional)
	SessionToken string `mapstructure:"session_token" yaml:"session_token"`

	// UseSDKDefaults when true lets the AWS SDK default credential chain
	// (env, shared config, instance profile) be used when explicit
	// credentials are not provided. Default: false
	UseSDKDefaults bool `mapstructure:"use_sdk_defaults" yaml:"use_sdk_defaults" default:"false"`

	// Profile selects a shared credentials/profile name when loading SDK defaults.
	Profile string `mapstructure:"profile" yaml:"profile"`

	// RoleARN optionally specifies an ARN to assume via STS. When set, the
	// backend uses the SDK default provider (or explicit creds if present)
	// as the source and assumes this role.
	RoleARN string `mapstructure:"role_arn" yaml:"role_arn"`

	// ExternalID is passed to STS AssumeRole when RoleARN is used.
	ExternalID string `mapstructure:"external_id" yaml:"external_id"`

	// AssumeRoleValidateCredentials, when true, resolves the underlying
	// credentials at startup to fail fast before the first AssumeRole call.
	// Default: false to avoid startup network calls in restrictive
	// environments.
	AssumeRoleValidateCredentials bool `mapstructure:"assume_role_validate_credentials" yaml:"assume_role_validate_credentials" default:"false"`

	// RequestTimeout is the timeout for individual requests
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout" default:"30s"`

	// MaxRetries is the maximum number of retry attempts
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries" default:"3"`

	// BackoffInitial is the initial backoff delay
	BackoffInitial time.Duration `mapstructure:"backoff_initial" yaml:"backoff_initial" default:"200ms"`

	// BackoffMax is the maximum backoff delay
	BackoffMax time.Duration `mapstructure:"backoff_max" yaml:"backoff_max" default:"5s"`

	// PresignExpiry is the default validity of presigned URLs
	PresignExpiry time.Duration `mapstructure:"presign_expiry" yaml:"presign_expiry" default:"1h"`

	// PartSize is the part size used when streaming large payloads to
	// object storage (multipart threshold and chunk size)
	PartSize int64 `mapstructure:"part_size" yaml:"part_size" default:"8388608"` // 8MB

	// PartParallel is the number of parts uploaded in parallel
	PartParallel int `mapstructure:"part_parallel" yaml:"part_parallel" default:"4"`

	// DisableSSL disables SSL for custom endpoints (development only)
	DisableSSL bool `mapstructure:"disable_ssl" yaml:"disable_ssl" default:"false"`

	// EnableLogging enables detailed operation logging
	EnableLogging bool `mapstructure:"enable_logging" yaml:"enable_logging" default:"false"`
}

// Prefix implements configx.Configurable and returns the configuration prefix
func (Config) Prefix() string { return "storage" }

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Backend:        BackendLocal,
		LocalPath:      "./data",
		Region:         "eu-central-1",
		UsePathStyle:   false,
		RequestTimeout: 30 * time.Second,
		MaxRetries:     3,
		BackoffInitial: 200 * time.Millisecond,
		BackoffMax:     5 * time.Second,
		PresignExpiry:  time.Hour,
		PartSize:       8 << 20, // 8MB
		PartParallel:   4,
		DisableSSL:     false,
		EnableLogging:  false,
	}
}

// Sanitize implements logx.Sanitizable: it returns a copy safe for
// structured logging, with credential material redacted.
func (cfg *Config) Sanitize() any {
	if cfg == nil {
		return (*Config)(nil)
	}

	sanitized := *cfg
	if sanitized.AccessKey != "" {
		sanitized.AccessKey = "[redacted]"
	}
	if sanitized.SecretKey != "" {
		sanitized.SecretKey = "[redacted]"
	}
	if sanitized.SessionToken != "" {
		sanitized.SessionToken = "[redacted]"
	}
	if sanitized.ExternalID != "" {
		sanitized.ExternalID = "[redacted]"
	}
	return &sanitized
}

// NewConfigFromLoader creates a Config using the standard configx.Loader
// pattern. This is useful for standalone usage without FX dependency
// injection. For FX-based applications, use the Module which provides
// NewConfig automatically.
func NewConfigFromLoader(loader interface {
	Unmarshal(any) error
}) (*Config, error) {
	cfg := DefaultConfig()
	if err := loader.Unmarshal(cfg); err != nil {
		return nil, err
	}

	cfg = cfg.Normalize()
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
