package fsprobe

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"

	minio "github.com/minio/minio-go/v7"
)

// ObjectAPI S3 探测器用到的 MinIO 方法，*minio.Client 满足该接口.
type ObjectAPI interface {
	StatObject(ctx context.Context, bucket, object string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	FGetObject(ctx context.Context, bucket, object, filePath string, opts minio.GetObjectOptions) error
}

// S3 访问 s3://bucket/key 形式的对象.
type S3 struct {
	api ObjectAPI
}

// NewS3 创建 S3 探测器.
func NewS3(api ObjectAPI) *S3 {
	return &S3{api: api}
}

// ParseS3URI 拆分 s3://bucket/key.
func ParseS3URI(uri string) (string, string, error) {
	u, ok := parseRemote(uri)
	if !ok || u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("invalid s3 uri: %s", uri)
	}

	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

func (s *S3) Stat(ctx context.Context, uri string) (Info, error) {
	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return Info{}, err
	}

	obj, err := s.api.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" || resp.StatusCode == http.StatusNotFound {
			return Info{}, nil
		}

		return Info{}, fmt.Errorf("stat %s: %w", uri, err)
	}

	return Info{Exists: true, Size: obj.Size, ModTime: obj.LastModified}, nil
}

// ListDirectory 以 key 前缀模拟目录，只返回直接子对象.
func (s *S3) ListDirectory(ctx context.Context, dir string) ([]string, error) {
	bucket, prefix, err := ParseS3URI(dir)
	if err != nil {
		return nil, err
	}

	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	var names []string

	for obj := range s.api.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list %s: %w", dir, obj.Err)
		}

		if strings.HasSuffix(obj.Key, "/") {
			continue
		}

		names = append(names, path.Base(obj.Key))
	}

	return names, nil
}

// Copy 把对象下载到本地路径.
func (s *S3) Copy(ctx context.Context, from, to string) error {
	bucket, key, err := ParseS3URI(from)
	if err != nil {
		return err
	}

	if err := s.api.FGetObject(ctx, bucket, key, LocalPath(to), minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("download %s: %w", from, err)
	}

	return nil
}
