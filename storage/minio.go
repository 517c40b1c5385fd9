package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioSettings configures the MinIO backend.
type MinioSettings struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// MinioStorage stores uploads as objects keyed <albumID>/<fileName>.
// Album folders are object key prefixes, so EnsureAlbumDir is a no-op
// and the recursive folder delete is a prefix delete.
type MinioStorage struct {
	client     *minio.Client
	bucketName string
}

// NewMinioStorage connects to MinIO and ensures the bucket exists.
func NewMinioStorage(cfg MinioSettings) (*MinioStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket '%s' exists: %w", cfg.BucketName, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket '%s': %w", cfg.BucketName, err)
		}
	}

	return &MinioStorage{
		client:     client,
		bucketName: cfg.BucketName,
	}, nil
}

func (s *MinioStorage) objectName(albumID, fileName string) (string, error) {
	if !IsValidSegment(albumID) {
		return "", fmt.Errorf("invalid album identifier: %s", albumID)
	}
	if !IsValidSegment(fileName) {
		return "", fmt.Errorf("invalid file name: %s", fileName)
	}
	return albumID + "/" + fileName, nil
}

func (s *MinioStorage) EnsureAlbumDir(ctx context.Context, albumID string) error {
	if !IsValidSegment(albumID) {
		return fmt.Errorf("invalid album identifier: %s", albumID)
	}
	// Object stores have no directories; prefixes appear on first write.
	return nil
}

func (s *MinioStorage) Save(ctx context.Context, albumID, fileName string, content io.Reader) error {
	objectName, err := s.objectName(albumID, fileName)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, s.bucketName, objectName, content, -1, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("failed to upload object '%s' to minio: %w", objectName, err)
	}
	return nil
}

func (s *MinioStorage) Get(ctx context.Context, albumID, fileName string) (io.ReadSeekCloser, error) {
	objectName, err := s.objectName(albumID, fileName)
	if err != nil {
		return nil, err
	}

	obj, err := s.client.GetObject(ctx, s.bucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object stream from minio for '%s': %w", objectName, err)
	}

	// GetObject is lazy; stat to surface missing keys now.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to stat object '%s' in minio: %w", objectName, err)
	}

	return obj, nil
}

func (s *MinioStorage) Delete(ctx context.Context, albumID, fileName string) error {
	objectName, err := s.objectName(albumID, fileName)
	if err != nil {
		return err
	}

	if _, err := s.client.StatObject(ctx, s.bucketName, objectName, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return ErrFileNotFound
		}
		return fmt.Errorf("failed to stat object '%s' in minio: %w", objectName, err)
	}

	if err := s.client.RemoveObject(ctx, s.bucketName, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object '%s' from minio: %w", objectName, err)
	}
	return nil
}

func (s *MinioStorage) DeleteAlbumDir(ctx context.Context, albumID string) error {
	if !IsValidSegment(albumID) {
		return fmt.Errorf("invalid album identifier: %s", albumID)
	}

	prefix := albumID + "/"
	for object := range s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return fmt.Errorf("failed to list objects under '%s': %w", prefix, object.Err)
		}
		if err := s.client.RemoveObject(ctx, s.bucketName, object.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("failed to delete object '%s' from minio: %w", object.Key, err)
		}
	}
	return nil
}

func (s *MinioStorage) ListFiles(ctx context.Context, albumID string) ([]string, error) {
	if !IsValidSegment(albumID) {
		return nil, fmt.Errorf("invalid album identifier: %s", albumID)
	}

	prefix := albumID + "/"
	names := []string{}
	for object := range s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list objects under '%s': %w", prefix, object.Err)
		}
		names = append(names, strings.TrimPrefix(object.Key, prefix))
	}
	return names, nil
}

func (s *MinioStorage) ListAlbumDirs(ctx context.Context) ([]string, error) {
	dirs := []string{}
	for object := range s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Recursive: false,
	}) {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list album prefixes: %w", object.Err)
		}
		if strings.HasSuffix(object.Key, "/") {
			dirs = append(dirs, strings.TrimSuffix(object.Key, "/"))
		}
	}
	return dirs, nil
}

func (s *MinioStorage) Exists(ctx context.Context, albumID, fileName string) (bool, error) {
	objectName, err := s.objectName(albumID, fileName)
	if err != nil {
		return false, err
	}

	if _, err := s.client.StatObject(ctx, s.bucketName, objectName, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *MinioStorage) Health(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket '%s' does not exist", s.bucketName)
	}
	return nil
}

func (s *MinioStorage) Name() string {
	return "minio"
}
