package archive

import (
	"bytes"
	"context"
	"io"
	"os"
	"sort"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/roach88/dexbench/internal/config"
)

// ObjectArchiver stores results in an S3-compatible bucket.
type ObjectArchiver struct {
	client *minio.Client
	bucket string
}

// NewObjectArchiver connects to the configured S3-compatible endpoint.
// Credentials come from the environment variables named in the config.
func NewObjectArchiver(cfg config.ArchiveConfig) (*ObjectArchiver, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(os.Getenv(cfg.AccessKeyEnv), os.Getenv(cfg.SecretKeyEnv), ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	return &ObjectArchiver{client: client, bucket: cfg.Bucket}, nil
}

func (a *ObjectArchiver) Put(ctx context.Context, key string, body []byte) error {
	_, err := a.client.PutObject(ctx, a.bucket, key,
		bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{ContentType: "text/plain"})
	return err
}

func (a *ObjectArchiver) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := a.client.GetObject(ctx, a.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	body, err := io.ReadAll(obj)
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return body, nil
}

func (a *ObjectArchiver) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for obj := range a.client.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		keys = append(keys, obj.Key)
	}
	sort.Strings(keys)
	return keys, nil
}
