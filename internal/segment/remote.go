package segment

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/config"
)

// Remote publishes segment files to an S3-compatible bucket and fetches them
// back, so a server can start from the segment a segtool run produced
// elsewhere.
type Remote struct {
	client *minio.Client
	bucket string
	prefix string
	logger *slog.Logger
}

func NewRemote(cfg config.ObjectsConfig) (*Remote, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating object store client: %w", err)
	}
	return &Remote{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		logger: slog.Default().With("component", "segment-remote", "bucket", cfg.Bucket),
	}, nil
}

// EnsureBucket creates the bucket if it does not exist yet.
func (r *Remote) EnsureBucket(ctx context.Context) error {
	exists, err := r.client.BucketExists(ctx, r.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", r.bucket, err)
	}
	if exists {
		return nil
	}
	if err := r.client.MakeBucket(ctx, r.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("creating bucket %s: %w", r.bucket, err)
	}
	r.logger.Info("bucket created")
	return nil
}

// Upload stores the segment at localPath and returns its object key.
func (r *Remote) Upload(ctx context.Context, localPath string) (string, error) {
	key := ObjectKey(r.prefix, filepath.Base(localPath))
	info, err := r.client.FPutObject(ctx, r.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", localPath, err)
	}
	r.logger.Info("segment uploaded", "key", key, "size", info.Size)
	return key, nil
}

// Download fetches key into dir and returns the local path.
func (r *Remote) Download(ctx context.Context, key, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	local := filepath.Join(dir, path.Base(key))
	if err := r.client.FGetObject(ctx, r.bucket, key, local, minio.GetObjectOptions{}); err != nil {
		return "", fmt.Errorf("downloading %s: %w", key, err)
	}
	r.logger.Info("segment downloaded", "key", key, "path", local)
	return local, nil
}

// Latest returns the key of the newest segment under the prefix.
func (r *Remote) Latest(ctx context.Context) (string, error) {
	var keys []string
	for obj := range r.client.ListObjects(ctx, r.bucket, minio.ListObjectsOptions{Prefix: r.prefix, Recursive: true}) {
		if obj.Err != nil {
			return "", fmt.Errorf("listing %s/%s: %w", r.bucket, r.prefix, obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	key, ok := LatestKey(keys)
	if !ok {
		return "", fmt.Errorf("no segments under %s/%s", r.bucket, r.prefix)
	}
	return key, nil
}

// ObjectKey joins prefix and name with exactly one slash.
func ObjectKey(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// LatestKey picks the newest segment key. Segment names embed a nanosecond
// timestamp of fixed width, so the lexically greatest name is the newest.
func LatestKey(keys []string) (string, bool) {
	var latest string
	for _, k := range keys {
		base := path.Base(k)
		if !strings.HasPrefix(base, "seg_") || !strings.HasSuffix(base, Extension) {
			continue
		}
		if latest == "" || base > path.Base(latest) {
			latest = k
		}
	}
	return latest, latest != ""
}
