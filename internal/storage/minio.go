package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"jobintake/internal/config"
)

// Client 封装 MinIO 客户端，实现 Backend 接口。
type Client struct {
	client     *minio.Client
	bucketName string
}

var _ Backend = (*Client)(nil)

// NewClient 根据配置初始化 MinIO 客户端，并确保目标 Bucket 存在。
func NewClient(cfg config.MinIOConfig) (*Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if !cfg.AutoCreateBucket {
			return nil, fmt.Errorf("bucket %q does not exist (auto create disabled)", cfg.Bucket)
		}
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("make bucket %q: %w", cfg.Bucket, err)
		}
	}

	return &Client{
		client:     client,
		bucketName: cfg.Bucket,
	}, nil
}

// Store 将对象上传到 Bucket。引用与删除键均为对象键。
func (c *Client) Store(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) (StoredObject, error) {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := c.client.PutObject(ctx, c.bucketName, objectKey, reader, size, opts); err != nil {
		return StoredObject{}, fmt.Errorf("put object %q: %w", objectKey, err)
	}
	return StoredObject{Ref: objectKey, DeleteKey: objectKey}, nil
}

// Delete 删除指定对象。
// 若对象不存在会被视为成功（幂等）。
func (c *Client) Delete(ctx context.Context, deleteKey string) error {
	deleteKey = strings.TrimSpace(deleteKey)
	if deleteKey == "" {
		return nil
	}
	if err := c.client.RemoveObject(ctx, c.bucketName, deleteKey, minio.RemoveObjectOptions{}); err != nil {
		if IsNoSuchKey(err) {
			return nil
		}
		return fmt.Errorf("remove object %q: %w", deleteKey, err)
	}
	return nil
}
