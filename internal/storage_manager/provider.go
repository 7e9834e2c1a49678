// Package storage_manager gives the archiver a small file abstraction over the local
// filesystem or an S3 bucket. Components get prefix-scoped providers so their objects
// never collide.
package storage_manager //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned by Read when the object does not exist.
	ErrNotFound = errors.New("object not found")
	// ErrInvalidPath is returned for paths that are empty or escape the provider root.
	ErrInvalidPath = errors.New("invalid object path")
)

// FileProvider defines the storage operations the archiver needs.
// Paths are slash separated and relative to the provider root.
type FileProvider interface {
	// Read returns the whole object, or ErrNotFound
	Read(ctx context.Context, name string) ([]byte, error)

	// Write creates or replaces the object
	Write(ctx context.Context, name string, data []byte) error

	// Delete removes the object. Missing objects are not an error
	Delete(ctx context.Context, name string) error

	// List returns object names below prefix, sorted
	List(ctx context.Context, prefix string) ([]string, error)
}

func cleanName(name string) (string, error) {
	if name == "" {
		return "", ErrInvalidPath
	}
	cleaned := path.Clean("/" + name)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(name, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}
	return cleaned, nil
}

// LocalFileProvider implements FileProvider for local filesystem.
type LocalFileProvider struct {
	baseDir string
}

// NewLocalFileProvider creates a new local file provider rooted at baseDir.
func NewLocalFileProvider(baseDir string) *LocalFileProvider {
	return &LocalFileProvider{baseDir: baseDir}
}

func (p *LocalFileProvider) fullPath(name string) (string, error) {
	cleaned, err := cleanName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(p.baseDir, filepath.FromSlash(cleaned)), nil
}

// Read reads a file from the local filesystem.
func (p *LocalFileProvider) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := p.fullPath(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full) //nolint:gosec // G304: path is cleaned and joined to baseDir
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return data, err
}

// Write writes data to a local file, creating parent directories as needed.
func (p *LocalFileProvider) Write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := p.fullPath(name)
	if err != nil {
		return err
	}

	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return os.WriteFile(full, data, 0o600)
}

// Delete removes a file from the local filesystem.
func (p *LocalFileProvider) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := p.fullPath(name)
	if err != nil {
		return err
	}
	err = os.Remove(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// List returns files below the prefix directory in the local filesystem.
func (p *LocalFileProvider) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	searchPath := p.baseDir
	if prefix = strings.TrimSuffix(prefix, "/"); prefix != "" {
		full, err := p.fullPath(prefix)
		if err != nil {
			return nil, err
		}
		searchPath = full
	}

	result := []string{}
	err := filepath.WalkDir(searchPath, func(current string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(p.baseDir, current)
		if err != nil {
			return err
		}
		result = append(result, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(result)
	return result, nil
}

// S3FileProvider implements FileProvider for AWS S3.
type S3FileProvider struct {
	bucket   string
	prefix   string
	s3Client S3Client
}

// NewS3FileProvider creates a new S3 file provider. Keys are stored under prefix.
func NewS3FileProvider(bucket, prefix string, s3Client S3Client) *S3FileProvider {
	return &S3FileProvider{
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		s3Client: s3Client,
	}
}

// Read reads an object from S3.
func (p *S3FileProvider) Read(ctx context.Context, name string) ([]byte, error) {
	key, err := p.key(name)
	if err != nil {
		return nil, err
	}
	return p.s3Client.GetObject(ctx, p.bucket, key)
}

// Write uploads an object to S3.
func (p *S3FileProvider) Write(ctx context.Context, name string, data []byte) error {
	key, err := p.key(name)
	if err != nil {
		return err
	}
	return p.s3Client.PutObject(ctx, p.bucket, key, data)
}

// Delete removes an object from S3.
func (p *S3FileProvider) Delete(ctx context.Context, name string) error {
	key, err := p.key(name)
	if err != nil {
		return err
	}
	return p.s3Client.DeleteObject(ctx, p.bucket, key)
}

// List returns object names below prefix, relative to the provider prefix.
func (p *S3FileProvider) List(ctx context.Context, prefix string) ([]string, error) {
	root := ""
	if p.prefix != "" {
		root = p.prefix + "/"
	}
	keys, err := p.s3Client.ListObjects(ctx, p.bucket, root+prefix)
	if err != nil {
		return nil, err
	}

	result := make([]string, 0, len(keys))
	for _, key := range keys {
		if rel, ok := strings.CutPrefix(key, root); ok && rel != "" {
			result = append(result, rel)
		}
	}
	sort.Strings(result)
	return result, nil
}

func (p *S3FileProvider) key(name string) (string, error) {
	cleaned, err := cleanName(name)
	if err != nil {
		return "", err
	}
	if p.prefix == "" {
		return cleaned, nil
	}
	return p.prefix + "/" + cleaned, nil
}

// PrefixedFileProvider scopes another provider to a sub-directory.
type PrefixedFileProvider struct {
	provider FileProvider
	prefix   string
}

// NewPrefixedFileProvider creates a new prefixed file provider.
func NewPrefixedFileProvider(provider FileProvider, prefix string) *PrefixedFileProvider {
	return &PrefixedFileProvider{
		provider: provider,
		prefix:   strings.Trim(prefix, "/"),
	}
}

// Read reads a file with the prefix applied.
func (p *PrefixedFileProvider) Read(ctx context.Context, name string) ([]byte, error) {
	return p.provider.Read(ctx, p.prefixPath(name))
}

// Write writes data with the prefix applied.
func (p *PrefixedFileProvider) Write(ctx context.Context, name string, data []byte) error {
	return p.provider.Write(ctx, p.prefixPath(name), data)
}

// Delete removes a file with the prefix applied.
func (p *PrefixedFileProvider) Delete(ctx context.Context, name string) error {
	return p.provider.Delete(ctx, p.prefixPath(name))
}

// List returns files below prefix with the provider prefix stripped from the results.
func (p *PrefixedFileProvider) List(ctx context.Context, prefix string) ([]string, error) {
	files, err := p.provider.List(ctx, p.prefixPath(prefix))
	if err != nil {
		return nil, err
	}

	root := p.prefixPath("")
	result := make([]string, 0, len(files))
	for _, file := range files {
		if strings.HasPrefix(file, root) {
			result = append(result, strings.TrimPrefix(file, root))
		}
	}
	return result, nil
}

func (p *PrefixedFileProvider) prefixPath(name string) string {
	if p.prefix == "" {
		return name
	}
	return p.prefix + "/" + name
}
