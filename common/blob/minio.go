package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path"

	"github.com/lyzr/imagehost/common/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioOptions configures an S3-compatible backend
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinioStore keeps blobs as objects in a single bucket.
// A PutObject call is all-or-nothing, so no staging is required.
type MinioStore struct {
	client *minio.Client
	bucket string
	log    *logger.Logger
}

// NewMinioStore connects and creates the bucket if it is missing
func NewMinioStore(ctx context.Context, opts MinioOptions, log *logger.Logger) (*MinioStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			// lost a creation race with another instance
			if ok, errExists := client.BucketExists(ctx, opts.Bucket); errExists != nil || !ok {
				return nil, fmt.Errorf("create bucket: %w", err)
			}
		}
		log.Info("bucket created", "bucket", opts.Bucket)
	}

	log.Info("minio connected", "endpoint", opts.Endpoint, "bucket", opts.Bucket)
	return &MinioStore{client: client, bucket: opts.Bucket, log: log}, nil
}

// Put uploads data unless an object with the same key exists
func (s *MinioStore) Put(ctx context.Context, identity, ext string, data []byte) (bool, error) {
	if err := ValidateName(identity, ext); err != nil {
		return false, err
	}
	key := Name(identity, ext)

	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err == nil {
		s.log.Debug("object already present", "key", key)
		return false, nil
	} else if !isNoSuchKey(err) {
		return false, fmt.Errorf("stat object: %w", err)
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: mime.TypeByExtension(path.Ext(key)),
	})
	if err != nil {
		return false, fmt.Errorf("put object: %w", err)
	}

	s.log.Debug("object written", "key", key, "bytes", len(data))
	return true, nil
}

// Get downloads a whole object
func (s *MinioStore) Get(ctx context.Context, identity, ext string) ([]byte, error) {
	if err := ValidateName(identity, ext); err != nil {
		return nil, err
	}

	obj, err := s.client.GetObject(ctx, s.bucket, Name(identity, ext), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if isNoSuchKey(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}
	return data, nil
}

// Delete removes an object
func (s *MinioStore) Delete(ctx context.Context, identity, ext string) error {
	if err := ValidateName(identity, ext); err != nil {
		return err
	}
	key := Name(identity, ext)

	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); isNoSuchKey(err) {
		return ErrNotFound
	} else if err != nil {
		return fmt.Errorf("stat object: %w", err)
	}

	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}

	s.log.Debug("object removed", "key", key)
	return nil
}

func isNoSuchKey(err error) bool {
	if err == nil {
		return false
	}
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
