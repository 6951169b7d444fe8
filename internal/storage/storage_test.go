package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskboard-api/internal/config"
)

func TestLocalStorage_SaveAndDelete(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStorage(root)
	require.NoError(t, err)
	ctx := context.Background()

	location, err := store.Save(ctx, "tasks/t1/abc-notes.txt", strings.NewReader("hello"), 5, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, filepath.ToSlash(filepath.Join(root, "tasks", "t1", "abc-notes.txt")), location)

	data, err := os.ReadFile(filepath.Join(root, "tasks", "t1", "abc-notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, store.Delete(ctx, "tasks/t1/abc-notes.txt"))
	_, err = os.Stat(filepath.Join(root, "tasks", "t1", "abc-notes.txt"))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.Delete(ctx, "tasks/t1/abc-notes.txt"))
}

func TestLocalStorage_RejectsEscapingKeys(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save(context.Background(), "../outside.txt", strings.NewReader("x"), 1, "text/plain")
	assert.Error(t, err)
	assert.Error(t, store.Delete(context.Background(), "../../etc/passwd"))
}

func TestLocalStorage_RefusesOverwrite(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Save(ctx, "a.txt", strings.NewReader("one"), 3, "text/plain")
	require.NoError(t, err)
	_, err = store.Save(ctx, "a.txt", strings.NewReader("two"), 3, "text/plain")
	assert.Error(t, err)
}

type fakeS3 struct {
	puts    []*s3.PutObjectInput
	deletes []*s3.DeleteObjectInput
	body    string
	err     error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.puts = append(f.puts, in)
	if f.err != nil {
		return nil, f.err
	}
	data, _ := io.ReadAll(in.Body)
	f.body = string(data)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, in)
	return &s3.DeleteObjectOutput{}, f.err
}

func TestS3Storage_SaveAndDelete(t *testing.T) {
	fake := &fakeS3{}
	store := &S3Storage{client: fake, bucket: "attachments"}
	ctx := context.Background()

	location, err := store.Save(ctx, "tasks/t1/key.pdf", strings.NewReader("pdf"), 3, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "s3://attachments/tasks/t1/key.pdf", location)
	require.Len(t, fake.puts, 1)
	assert.Equal(t, "attachments", aws.ToString(fake.puts[0].Bucket))
	assert.Equal(t, "application/pdf", aws.ToString(fake.puts[0].ContentType))
	assert.Equal(t, int64(3), aws.ToInt64(fake.puts[0].ContentLength))
	assert.Equal(t, "pdf", fake.body)

	require.NoError(t, store.Delete(ctx, "tasks/t1/key.pdf"))
	require.Len(t, fake.deletes, 1)
	assert.Equal(t, "tasks/t1/key.pdf", aws.ToString(fake.deletes[0].Key))
}

func TestS3Storage_PropagatesErrors(t *testing.T) {
	store := &S3Storage{client: &fakeS3{err: errors.New("access denied")}, bucket: "b"}

	_, err := store.Save(context.Background(), "k", strings.NewReader("x"), 1, "text/plain")
	assert.ErrorContains(t, err, "access denied")
	assert.ErrorContains(t, store.Delete(context.Background(), "k"), "access denied")
}

func TestNewS3Storage(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })

	var loaded awsconfig.LoadOptions
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		for _, fn := range optFns {
			require.NoError(t, fn(&loaded))
		}
		return aws.Config{Region: loaded.Region}, nil
	}

	store, err := NewS3Storage(context.Background(), S3Config{
		Bucket:    "attachments",
		Region:    "us-east-1",
		Endpoint:  "http://localhost:9000",
		AccessKey: "minio",
		SecretKey: "minio123",
	})
	require.NoError(t, err)
	assert.Equal(t, "attachments", store.bucket)
	assert.Equal(t, "us-east-1", loaded.Region)
	require.NotNil(t, loaded.Credentials)

	creds, err := loaded.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "minio", creds.AccessKeyID)

	_, err = NewS3Storage(context.Background(), S3Config{})
	assert.Error(t, err)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}
	_, err = NewS3Storage(context.Background(), S3Config{Bucket: "b"})
	assert.ErrorContains(t, err, "no config")
}

func TestNew_SelectsDriver(t *testing.T) {
	store, err := New(context.Background(), &config.Config{StorageDriver: "local", UploadDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, store)

	_, err = New(context.Background(), &config.Config{StorageDriver: "ftp"})
	assert.Error(t, err)
}
