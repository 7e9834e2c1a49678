package storage_manager //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// BackendType represents the type of storage backend.
type BackendType string

const (
	// BackendLocal uses the local filesystem for storage.
	BackendLocal BackendType = "local"
	// BackendS3 uses AWS S3 for storage.
	BackendS3 BackendType = "s3"
)

// Config holds the configuration for the StorageManager.
type Config struct {
	Backend     BackendType
	LocalConfig *LocalConfig
	S3Config    *S3Config
}

// LocalConfig holds configuration for local filesystem storage.
type LocalConfig struct {
	// BaseDir is the root directory for all storage.
	BaseDir string
}

// S3Config holds configuration for S3 storage.
type S3Config struct {
	Bucket string
	// Prefix is an optional key prefix for every object.
	Prefix string
	// Region and Profile feed the default AWS credential chain when API is nil.
	Region  string
	Profile string
	// API overrides the SDK client, mostly for tests.
	API S3API
}

// StorageManager hands out namespace-scoped providers over one backend.
type StorageManager struct {
	backend  BackendType
	provider FileProvider
}

// New creates a StorageManager for the configured backend. For S3 without an explicit
// API it loads credentials through the default AWS chain.
func New(ctx context.Context, config Config) (*StorageManager, error) {
	var provider FileProvider

	switch config.Backend {
	case BackendLocal:
		if config.LocalConfig == nil || config.LocalConfig.BaseDir == "" {
			return nil, fmt.Errorf("base directory is required for local backend")
		}
		provider = NewLocalFileProvider(config.LocalConfig.BaseDir)

	case BackendS3:
		if config.S3Config == nil || config.S3Config.Bucket == "" {
			return nil, fmt.Errorf("bucket is required for s3 backend")
		}
		api := config.S3Config.API
		if api == nil {
			client, err := newS3Client(ctx, config.S3Config)
			if err != nil {
				return nil, err
			}
			api = client
		}
		provider = NewS3FileProvider(config.S3Config.Bucket, config.S3Config.Prefix, NewAWSS3Client(api))

	default:
		return nil, fmt.Errorf("unsupported backend type: %q", config.Backend)
	}

	return &StorageManager{backend: config.Backend, provider: provider}, nil
}

func newS3Client(ctx context.Context, cfg *S3Config) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg), nil
}

// NewWithProvider wraps an existing FileProvider.
func NewWithProvider(provider FileProvider) *StorageManager {
	return &StorageManager{provider: provider}
}

// GetProvider returns a FileProvider scoped to namespace, e.g. "analytics" or "sessions".
func (m *StorageManager) GetProvider(namespace string) FileProvider {
	if namespace == "" {
		return m.provider
	}
	return NewPrefixedFileProvider(m.provider, namespace)
}

// Backend returns the configured backend type.
func (m *StorageManager) Backend() BackendType {
	return m.backend
}
