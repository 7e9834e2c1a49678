package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

// ArchiveBackend selects where snapshots and expired transcripts are written.
type ArchiveBackend string

const (
	ArchiveNone  ArchiveBackend = "none"
	ArchiveLocal ArchiveBackend = "local"
	ArchiveS3    ArchiveBackend = "s3"
)

// ArchiveConfig holds storage settings for the archiver
type ArchiveConfig struct {
	Backend   ArchiveBackend `env:"ARCHIVE_BACKEND" yaml:"archive_backend" default:"none"`
	LocalDir  string         `env:"ARCHIVE_LOCAL_DIR" yaml:"archive_local_dir" default:"./data"` // Base directory for local storage
	S3Bucket  string         `env:"ARCHIVE_S3_BUCKET" yaml:"archive_s3_bucket"`                  // S3 bucket name
	S3Prefix  string         `env:"ARCHIVE_S3_PREFIX" yaml:"archive_s3_prefix"`                  // S3 object key prefix (optional)
	S3Region  string         `env:"ARCHIVE_S3_REGION" yaml:"archive_s3_region"`                  // AWS region
	S3Profile string         `env:"ARCHIVE_S3_PROFILE" yaml:"archive_s3_profile"`                // AWS profile name (optional)
	Interval  time.Duration  `env:"ARCHIVE_INTERVAL" yaml:"archive_interval" default:"15m"`
}

// Enabled reports whether any archive backend is configured.
func (a ArchiveConfig) Enabled() bool {
	return a.Backend != "" && a.Backend != ArchiveNone
}

// Validate checks the backend name and its required settings
func (a ArchiveConfig) Validate() error {
	var result error
	switch a.Backend {
	case "", ArchiveNone:
		return nil
	case ArchiveLocal:
		if a.LocalDir == "" {
			result = multierror.Append(result, fmt.Errorf("archive_local_dir is required for the local backend"))
		}
	case ArchiveS3:
		if a.S3Bucket == "" {
			result = multierror.Append(result, fmt.Errorf("archive_s3_bucket is required for the s3 backend"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("archive_backend must be one of [none, local, s3], got %q", a.Backend))
	}
	if a.Interval <= 0 {
		result = multierror.Append(result, fmt.Errorf("archive_interval must be greater than 0"))
	}
	return result
}
