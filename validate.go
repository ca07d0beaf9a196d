package blobx

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config field %q: %s", e.Field, e.Message)
}

// Unwrap makes ValidationError match ErrInvalidConfig under errors.Is
func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfig
}

// ValidateConfig performs comprehensive validation of storage configuration
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return &ValidationError{Field: "config", Message: "configuration cannot be nil"}
	}

	var errs []string

	// Validate backend kind and its required fields
	switch cfg.Backend {
	case "":
		errs = append(errs, "backend cannot be empty")
	case BackendLocal:
		if cfg.LocalPath == "" {
			errs = append(errs, "local_path is required for the local backend")
		}
	case BackendNAS:
		// A NAS root is a deliberate mount point; never default it.
		if cfg.NASPath == "" {
			errs = append(errs, "nas_path is required for the nas backend")
		}
	case BackendS3:
		errs = append(errs, validateS3Config(cfg)...)
	default:
		errs = append(errs, fmt.Sprintf("unsupported backend %q, must be one of local, nas, s3", cfg.Backend))
	}

	// Validate timeouts
	if cfg.RequestTimeout <= 0 {
		errs = append(errs, "request_timeout must be positive")
	}
	if cfg.RequestTimeout > 10*time.Minute {
		errs = append(errs, "request_timeout should not exceed 10 minutes")
	}

	// Validate retry configuration
	if cfg.MaxRetries < 0 {
		errs = append(errs, "max_retries cannot be negative")
	}
	if cfg.MaxRetries > 10 {
		errs = append(errs, "max_retries should not exceed 10")
	}

	if cfg.BackoffInitial <= 0 {
		errs = append(errs, "backoff_initial must be positive")
	}
	if cfg.BackoffMax <= cfg.BackoffInitial {
		errs = append(errs, "backoff_max must be greater than backoff_initial")
	}

	if cfg.PresignExpiry <= 0 {
		errs = append(errs, "presign_expiry must be positive")
	}

	// Validate multipart configuration
	if cfg.PartSize < 5<<20 { // 5MB minimum for S3
		errs = append(errs, "part_size must be at least 5MB for S3 compatibility")
	}
	if cfg.PartSize > 5<<30 { // 5GB maximum for S3
		errs = append(errs, "part_size must not exceed 5GB for S3 compatibility")
	}

	if cfg.PartParallel <= 0 {
		errs = append(errs, "part_parallel must be positive")
	}
	if cfg.PartParallel > 50 {
		errs = append(errs, "part_parallel should not exceed 50 for reasonable resource usage")
	}

	if len(errs) > 0 {
		return &ValidationError{
			Field:   "config",
			Message: strings.Join(errs, "; "),
		}
	}

	return nil
}

// validateS3Config collects the S3-specific validation messages
func validateS3Config(cfg *Config) []string {
	var errs []string

	if cfg.Bucket == "" {
		errs = append(errs, "bucket is required for the s3 backend")
	} else if err := validateBucketName(cfg.Bucket); err != nil {
		errs = append(errs, fmt.Sprintf("invalid bucket name: %v", err))
	}

	// Region is required for AWS, optional when a custom endpoint is set
	if cfg.Region == "" && cfg.Endpoint == "" {
		errs = append(errs, "region is required when endpoint is not specified (AWS mode)")
	}

	// Disallow partially-specified explicit credentials
	if (cfg.AccessKey == "" && cfg.SecretKey != "") || (cfg.AccessKey != "" && cfg.SecretKey == "") {
		errs = append(errs, "both access_key and secret_key must be set together; do not provide only one")
	}

	// If explicit credentials are not provided, allow the configuration to
	// opt into the SDK default chain (env/instance profile) or provide a
	// RoleARN to perform AssumeRole. RoleARN itself is not a credential;
	// it requires underlying credentials to call STS.
	if cfg.AccessKey == "" && cfg.SecretKey == "" && cfg.Endpoint != "" {
		if cfg.RoleARN == "" && !cfg.UseSDKDefaults {
			errs = append(errs, "credentials required for custom endpoint: provide access_key+secret_key or enable use_sdk_defaults")
		}
	}

	if cfg.Endpoint != "" {
		if err := validateEndpoint(cfg.Endpoint); err != nil {
			errs = append(errs, fmt.Sprintf("invalid endpoint: %v", err))
		}
	}

	// Validate RoleARN basic format if provided
	if cfg.RoleARN != "" && !isPlausibleRoleARN(cfg.RoleARN) {
		errs = append(errs, "role_arn looks invalid: must be a valid IAM role ARN (e.g., arn:aws:iam::123456789012:role/RoleName)")
	}

	return errs
}

// isPlausibleRoleARN performs a light-weight validation of an IAM role ARN
func isPlausibleRoleARN(arn string) bool {
	// Expected form: arn:partition:service:region:account-id:resource
	parts := strings.SplitN(arn, ":", 6)
	if len(parts) != 6 {
		return false
	}
	if parts[0] != "arn" {
		return false
	}
	if parts[2] != "iam" {
		return false
	}
	acct := parts[4]
	if acct == "" {
		return false
	}
	for _, r := range acct {
		if r < '0' || r > '9' {
			return false
		}
	}
	return strings.HasPrefix(parts[5], "role/")
}

// validateBucketName validates S3 bucket naming rules
func validateBucketName(bucket string) error {
	if len(bucket) < 3 || len(bucket) > 63 {
		return fmt.Errorf("bucket name must be between 3 and 63 characters")
	}

	if strings.HasPrefix(bucket, "-") || strings.HasSuffix(bucket, "-") {
		return fmt.Errorf("bucket name cannot start or end with a hyphen")
	}

	if strings.HasPrefix(bucket, ".") || strings.HasSuffix(bucket, ".") {
		return fmt.Errorf("bucket name cannot start or end with a period")
	}

	if strings.Contains(bucket, "..") || strings.Contains(bucket, "--") {
		return fmt.Errorf("bucket name cannot contain consecutive periods or hyphens")
	}

	for _, char := range bucket {
		if !isValidBucketChar(char) {
			return fmt.Errorf("bucket name contains invalid character: %c", char)
		}
	}

	// Check for IP address pattern (simplified)
	parts := strings.Split(bucket, ".")
	if len(parts) == 4 {
		allNumeric := true
		for _, part := range parts {
			if !isNumeric(part) {
				allNumeric = false
				break
			}
		}
		if allNumeric {
			return fmt.Errorf("bucket name cannot be formatted as an IP address")
		}
	}

	return nil
}

// isValidBucketChar checks if a character is valid in S3 bucket names
func isValidBucketChar(char rune) bool {
	return (char >= 'a' && char <= 'z') ||
		(char >= '0' && char <= '9') ||
		char == '-' || char == '.'
}

// isNumeric checks if a string contains only digits
func isNumeric(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, char := range s {
		if char < '0' || char > '9' {
			return false
		}
	}
	return true
}

// validateEndpoint validates the endpoint URL format
func validateEndpoint(endpoint string) error {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	// Allow endpoints with or without protocol
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return nil
	}

	if strings.Contains(endpoint, "://") {
		return fmt.Errorf("endpoint protocol must be http or https")
	}

	if strings.Contains(endpoint, " ") {
		return fmt.Errorf("endpoint cannot contain spaces")
	}

	return nil
}

// Normalize applies defaults and automatic fixes to the configuration where
// possible and returns a normalized copy without mutating the receiver.
func (cfg *Config) Normalize() *Config {
	if cfg == nil {
		return DefaultConfig()
	}

	normalized := *cfg

	if normalized.Backend == "" {
		normalized.Backend = BackendLocal
	}

	if normalized.Backend == BackendLocal && normalized.LocalPath == "" {
		normalized.LocalPath = "./data"
	}

	if normalized.Region == "" && normalized.Endpoint == "" {
		normalized.Region = "eu-central-1"
	}

	if normalized.RequestTimeout == 0 {
		normalized.RequestTimeout = 30 * time.Second
	}

	if normalized.MaxRetries == 0 {
		normalized.MaxRetries = 3
	}

	if normalized.BackoffInitial == 0 {
		normalized.BackoffInitial = 200 * time.Millisecond
	}

	if normalized.BackoffMax == 0 {
		normalized.BackoffMax = 5 * time.Second
	}

	if normalized.PresignExpiry == 0 {
		normalized.PresignExpiry = time.Hour
	}

	if normalized.PartSize == 0 {
		normalized.PartSize = 8 << 20 // 8MB
	}

	if normalized.PartParallel == 0 {
		normalized.PartParallel = 4
	}

	if normalized.Endpoint != "" {
		normalized.Endpoint = strings.TrimSpace(normalized.Endpoint)
		normalized.Endpoint = strings.TrimSuffix(normalized.Endpoint, "/")
	}

	return &normalized
}

// ConfigSummary returns a safe summary of the configuration for logging
func (cfg *Config) ConfigSummary() map[string]any {
	if cfg == nil {
		return map[string]any{"error": "nil config"}
	}

	summary := map[string]any{
		"backend":         cfg.Backend,
		"local_path":      cfg.LocalPath,
		"nas_path":        cfg.NASPath,
		"bucket":          cfg.Bucket,
		"region":          cfg.Region,
		"endpoint":        cfg.Endpoint,
		"use_path_style":  cfg.UsePathStyle,
		"request_timeout": cfg.RequestTimeout.String(),
		"max_retries":     cfg.MaxRetries,
		"presign_expiry":  cfg.PresignExpiry.String(),
		"part_size":       fmt.Sprintf("%d MB", cfg.PartSize/(1<<20)),
		"part_parallel":   cfg.PartParallel,
		"disable_ssl":     cfg.DisableSSL,
		"enable_logging":  cfg.EnableLogging,
	}

	// Don't include sensitive information
	if cfg.AccessKey != "" {
		summary["has_access_key"] = true
		summary["access_key_prefix"] = cfg.AccessKey[:min(4, len(cfg.AccessKey))] + "..."
	}

	if cfg.SecretKey != "" {
		summary["has_secret_key"] = true
	}

	if cfg.SessionToken != "" {
		summary["has_session_token"] = true
	}

	return summary
}
