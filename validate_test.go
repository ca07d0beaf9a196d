package blobx

import (
	"errors"
	"testing"
	"time"
)

func validS3Config() *Config {
	cfg := DefaultConfig()
	cfg.Backend = BackendS3
	cfg.Bucket = "test-bucket"
	cfg.Region = "us-east-1"
	return cfg
}

func TestValidateConfig_BackendKinds(t *testing.T) {
	t.Run("local with defaults validates", func(t *testing.T) {
		cfg := DefaultConfig()
		if err := ValidateConfig(cfg); err != nil {
			t.Fatalf("expected default config to validate, got error: %v", err)
		}
	})

	t.Run("nas requires nas_path", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Backend = BackendNAS

		err := ValidateConfig(cfg)
		if err == nil {
			t.Fatal("expected validation error for nas backend without nas_path")
		}
		if !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("expected ErrInvalidConfig, got: %v", err)
		}
	})

	t.Run("nas with nas_path validates", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Backend = BackendNAS
		cfg.NASPath = "/mnt/shared"

		if err := ValidateConfig(cfg); err != nil {
			t.Fatalf("expected nas config to validate, got error: %v", err)
		}
	})

	t.Run("s3 requires bucket", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Backend = BackendS3

		err := ValidateConfig(cfg)
		if err == nil {
			t.Fatal("expected validation error for s3 backend without bucket")
		}
		if !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("expected ErrInvalidConfig, got: %v", err)
		}
	})

	t.Run("unknown backend rejected", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Backend = "ftp"

		err := ValidateConfig(cfg)
		if err == nil {
			t.Fatal("expected validation error for unknown backend")
		}
		if !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("expected ErrInvalidConfig, got: %v", err)
		}
	})
}

func TestValidateConfig_BucketNames(t *testing.T) {
	bad := []string{
		"ab",                      // too short
		"-starts-with-hyphen",     // leading hyphen
		"ends-with-hyphen-",       // trailing hyphen
		"double..period",          // consecutive periods
		"UPPERCASE",               // invalid characters
		"192.168.1.1",             // IP address form
		"contains_underscore",     // invalid character
	}

	for _, bucket := range bad {
		cfg := validS3Config()
		cfg.Bucket = bucket
		if err := ValidateConfig(cfg); err == nil {
			t.Errorf("expected bucket %q to be rejected", bucket)
		}
	}

	good := []string{"my-bucket", "data.backup.2024", "abc"}
	for _, bucket := range good {
		cfg := validS3Config()
		cfg.Bucket = bucket
		if err := ValidateConfig(cfg); err != nil {
			t.Errorf("expected bucket %q to validate, got: %v", bucket, err)
		}
	}
}

func TestValidateConfig_PartialCredentialsRejected(t *testing.T) {
	cfg := validS3Config()
	cfg.AccessKey = "AKIAEXAMPLE"

	if err := ValidateConfig(cfg); err == nil {
		t.Fatal("expected validation error for access_key without secret_key")
	}
}

func TestValidateConfig_PermissiveRoleARNWithCustomEndpoint(t *testing.T) {
	// custom endpoint + RoleARN only -> permissive (allowed)
	cfg := validS3Config()
	cfg.Region = ""
	cfg.Endpoint = "http://minio.local:9000"
	cfg.RoleARN = "arn:aws:iam::123456789012:role/TestRole"

	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("expected config to validate, got error: %v", err)
	}
}

func TestValidateConfig_CustomEndpointWithoutCredsRejected(t *testing.T) {
	cfg := validS3Config()
	cfg.Region = ""
	cfg.Endpoint = "http://minio.local:9000"

	if err := ValidateConfig(cfg); err == nil {
		t.Fatal("expected validation error for custom endpoint without credentials")
	}
}

func TestValidateConfig_AWSEndpointRoleOnly(t *testing.T) {
	// AWS endpoint (region provided) + RoleARN only -> allowed
	cfg := validS3Config()
	cfg.RoleARN = "arn:aws:iam::123456789012:role/TestRole"

	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("expected AWS config with RoleARN to validate, got error: %v", err)
	}
}

func TestValidateConfig_BadRoleARNRejected(t *testing.T) {
	cfg := validS3Config()
	cfg.RoleARN = "not-an-arn"

	if err := ValidateConfig(cfg); err == nil {
		t.Fatal("expected validation error for malformed role ARN")
	}
}

func TestNormalize_AppliesDefaults(t *testing.T) {
	cfg := &Config{}
	normalized := cfg.Normalize()

	if normalized.Backend != BackendLocal {
		t.Errorf("expected backend default local, got %q", normalized.Backend)
	}
	if normalized.LocalPath != "./data" {
		t.Errorf("expected local_path default ./data, got %q", normalized.LocalPath)
	}
	if normalized.Region != "eu-central-1" {
		t.Errorf("expected region default eu-central-1, got %q", normalized.Region)
	}
	if normalized.PresignExpiry != time.Hour {
		t.Errorf("expected presign_expiry default 1h, got %v", normalized.PresignExpiry)
	}
	if normalized.PartSize != 8<<20 {
		t.Errorf("expected part_size default 8MB, got %d", normalized.PartSize)
	}

	// Original untouched
	if cfg.Backend != "" {
		t.Error("Normalize mutated the receiver")
	}
}

func TestNormalize_CleansEndpoint(t *testing.T) {
	cfg := &Config{Endpoint: "  http://localhost:9000/  "}
	normalized := cfg.Normalize()

	if normalized.Endpoint != "http://localhost:9000" {
		t.Errorf("expected trimmed endpoint, got %q", normalized.Endpoint)
	}
}

func TestNormalize_NilReceiver(t *testing.T) {
	var cfg *Config
	normalized := cfg.Normalize()
	if normalized == nil {
		t.Fatal("expected defaults for nil config")
	}
	if normalized.Backend != BackendLocal {
		t.Errorf("expected backend default local, got %q", normalized.Backend)
	}
}
