package storage_manager //nolint:revive // var-naming: using underscores for domain clarity

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 is an in-memory S3API.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchKey", Message: "missing"}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[*in.Bucket+"/"+*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, *in.Bucket+"/"+*in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &s3.ListObjectsV2Output{}
	var keys []string
	for full := range f.objects {
		key, ok := strings.CutPrefix(full, *in.Bucket+"/")
		if ok && strings.HasPrefix(key, aws.ToString(in.Prefix)) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(key)})
	}
	return out, nil
}

func exerciseProvider(t *testing.T, p FileProvider) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, p.Write(ctx, "sessions/2026-10-14/session-a.json", []byte(`{"a":1}`)))
	require.NoError(t, p.Write(ctx, "sessions/2026-10-14/session-b.json", []byte(`{"b":2}`)))
	require.NoError(t, p.Write(ctx, "analytics/20261014T100000Z.json", []byte(`{}`)))

	data, err := p.Read(ctx, "sessions/2026-10-14/session-a.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))

	_, err = p.Read(ctx, "sessions/missing.json")
	assert.ErrorIs(t, err, ErrNotFound)

	names, err := p.List(ctx, "sessions/")
	require.NoError(t, err)
	assert.Equal(t, []string{"sessions/2026-10-14/session-a.json", "sessions/2026-10-14/session-b.json"}, names)

	require.NoError(t, p.Delete(ctx, "sessions/2026-10-14/session-a.json"))
	require.NoError(t, p.Delete(ctx, "sessions/2026-10-14/session-a.json"))
	names, err = p.List(ctx, "sessions/")
	require.NoError(t, err)
	assert.Equal(t, []string{"sessions/2026-10-14/session-b.json"}, names)

	empty, err := p.List(ctx, "nothing-here/")
	require.NoError(t, err)
	assert.Empty(t, empty)

	assert.ErrorIs(t, p.Write(ctx, "../escape.json", nil), ErrInvalidPath)
	assert.ErrorIs(t, p.Write(ctx, "", nil), ErrInvalidPath)
}

func TestLocalFileProvider(t *testing.T) {
	exerciseProvider(t, NewLocalFileProvider(t.TempDir()))
}

func TestS3FileProvider(t *testing.T) {
	exerciseProvider(t, NewS3FileProvider("archive", "mood-mate/", NewAWSS3Client(newFakeS3())))
}

func TestS3FileProviderKeys(t *testing.T) {
	api := newFakeS3()
	p := NewS3FileProvider("archive", "/mood-mate/", NewAWSS3Client(api))
	require.NoError(t, p.Write(context.Background(), "analytics/x.json", []byte("{}")))

	_, ok := api.objects["archive/mood-mate/analytics/x.json"]
	assert.True(t, ok, "object stored under the trimmed prefix")
}

func TestS3PutError(t *testing.T) {
	api := newFakeS3()
	api.putErr = errors.New("access denied")
	p := NewS3FileProvider("archive", "", NewAWSS3Client(api))

	err := p.Write(context.Background(), "analytics/x.json", []byte("{}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestPrefixedFileProvider(t *testing.T) {
	manager := NewWithProvider(NewLocalFileProvider(t.TempDir()))
	exerciseProvider(t, manager.GetProvider("tenant"))

	// the namespace is invisible to scoped callers but present at the root
	names, err := manager.GetProvider("").List(context.Background(), "tenant/")
	require.NoError(t, err)
	assert.Equal(t, []string{"tenant/analytics/20261014T100000Z.json", "tenant/sessions/2026-10-14/session-b.json"}, names)
}

func TestNew(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"local", Config{Backend: BackendLocal, LocalConfig: &LocalConfig{BaseDir: t.TempDir()}}, false},
		{"local without dir", Config{Backend: BackendLocal, LocalConfig: &LocalConfig{}}, true},
		{"local without config", Config{Backend: BackendLocal}, true},
		{"s3 with api", Config{Backend: BackendS3, S3Config: &S3Config{Bucket: "b", API: newFakeS3()}}, false},
		{"s3 without bucket", Config{Backend: BackendS3, S3Config: &S3Config{API: newFakeS3()}}, true},
		{"unknown backend", Config{Backend: "ftp"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(ctx, tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.config.Backend, m.Backend())
		})
	}
}
