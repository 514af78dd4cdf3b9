package objectstore

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanPath(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"entry-1/images/1700000000000.jpg", false},
		{"", true},
		{"/abs/path.jpg", true},
		{"../escape.jpg", true},
		{"entry-1/../../escape.jpg", true},
		{"entry-1//images/x.jpg", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := cleanPath(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLocalUploadAndRemove(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewLocal(root, "http://localhost:8080/media/")
	require.NoError(t, err)

	objectPath := "entry-1/images/1700000000000.png"
	require.NoError(t, store.Upload(ctx, objectPath, strings.NewReader("png-bytes"), 9, "image/png"))

	data, err := os.ReadFile(filepath.Join(root, "entry-1", "images", "1700000000000.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
	assert.Equal(t, "http://localhost:8080/media/entry-1/images/1700000000000.png", store.PublicURL(objectPath))

	err = store.Upload(ctx, objectPath, strings.NewReader("again"), 5, "image/png")
	assert.Error(t, err, "existing objects are never overwritten")

	require.NoError(t, store.Remove(ctx, []string{objectPath, "entry-1/images/missing.png"}))
	_, err = os.Stat(filepath.Join(root, "entry-1", "images", "1700000000000.png"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLocalUploadShortWrite(t *testing.T) {
	store, err := NewLocal(t.TempDir(), "/media")
	require.NoError(t, err)

	err = store.Upload(context.Background(), "e/videos/1.mp4", strings.NewReader("abc"), 10, "video/mp4")
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(store.Root(), "e", "videos", "1.mp4"))
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "partial file must be cleaned up")
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemory("mem://bucket")

	require.NoError(t, store.Upload(ctx, "e/images/1.jpg", bytes.NewReader([]byte{1, 2, 3}), 3, "image/jpeg"))
	require.NoError(t, store.Upload(ctx, "e/images/2.jpg", bytes.NewReader([]byte{4}), 1, "image/jpeg"))
	assert.Error(t, store.Upload(ctx, "e/images/1.jpg", bytes.NewReader(nil), 0, "image/jpeg"))

	got, ok := store.Get("e/images/1.jpg")
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, got)
	assert.Equal(t, []string{"e/images/1.jpg", "e/images/2.jpg"}, store.Paths())
	assert.Equal(t, "mem://bucket/e/images/2.jpg", store.PublicURL("e/images/2.jpg"))

	require.NoError(t, store.Remove(ctx, []string{"e/images/1.jpg"}))
	assert.Equal(t, []string{"e/images/2.jpg"}, store.Paths())
}

type fakeS3 struct {
	s3API
	put       *s3.PutObjectInput
	deleted   *s3.DeleteObjectsInput
	putErr    error
	deleteOut *s3.DeleteObjectsOutput
	deleteErr error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.put = in
	if f.putErr != nil {
		return nil, f.putErr
	}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.deleted = in
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	if f.deleteOut != nil {
		return f.deleteOut, nil
	}
	return &s3.DeleteObjectsOutput{}, nil
}

func TestS3Upload(t *testing.T) {
	fake := &fakeS3{}
	store := newS3WithClient(fake, "journal-media", "https://cdn.example.com/journal-media/")

	err := store.Upload(context.Background(), "e/videos/1.mp4", strings.NewReader("mp4"), 3, "video/mp4")
	require.NoError(t, err)
	require.NotNil(t, fake.put)
	assert.Equal(t, "journal-media", aws.ToString(fake.put.Bucket))
	assert.Equal(t, "e/videos/1.mp4", aws.ToString(fake.put.Key))
	assert.Equal(t, "video/mp4", aws.ToString(fake.put.ContentType))
	assert.Equal(t, int64(3), aws.ToInt64(fake.put.ContentLength))
	assert.Equal(t, "https://cdn.example.com/journal-media/e/videos/1.mp4", store.PublicURL("e/videos/1.mp4"))

	fake.putErr = errors.New("access denied")
	assert.ErrorContains(t, store.Upload(context.Background(), "e/videos/2.mp4", strings.NewReader(""), 0, "video/mp4"), "access denied")
}

func TestS3Remove(t *testing.T) {
	fake := &fakeS3{}
	store := newS3WithClient(fake, "journal-media", "https://cdn.example.com/journal-media")

	require.NoError(t, store.Remove(context.Background(), nil))
	assert.Nil(t, fake.deleted, "no request for an empty batch")

	require.NoError(t, store.Remove(context.Background(), []string{"a/images/1.jpg", "a/videos/2.mp4"}))
	require.NotNil(t, fake.deleted)
	require.Len(t, fake.deleted.Delete.Objects, 2)
	assert.Equal(t, "a/videos/2.mp4", aws.ToString(fake.deleted.Delete.Objects[1].Key))

	fake.deleteOut = &s3.DeleteObjectsOutput{Errors: []types.Error{{Key: aws.String("a/images/1.jpg"), Message: aws.String("locked")}}}
	assert.ErrorContains(t, store.Remove(context.Background(), []string{"a/images/1.jpg"}), "locked")
}
