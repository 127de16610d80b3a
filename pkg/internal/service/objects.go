package service

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	minio "github.com/minio/minio-go/v7"

	"github.com/yeisme/linkvault/pkg/internal/storage/s3"
	nlog "github.com/yeisme/linkvault/pkg/log"
)

// UploadResult 对象写入结果.
type UploadResult struct {
	Bucket   string
	Key      string
	ETag     string
	Size     int64
	Checksum string // md5 hex
}

// ObjectStore 抽象业务所需的对象存储能力，便于测试替换实现.
type ObjectStore interface {
	// Upload 写入对象并返回校验信息.
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (UploadResult, error)
	// Remove 删除对象，对象不存在不视为错误.
	Remove(ctx context.Context, key string) error
	// Copy 将 srcKey 复制到 dstKey（下载后重传的组合操作，非原子：
	// 上传阶段失败时源对象保持原样，目标可能残留部分状态，由调用方补偿）.
	Copy(ctx context.Context, srcKey, dstKey string) error
	// SignedURL 生成限时下载 URL.
	SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	// PublicURL 生成无过期下载 URL（桶策略需允许匿名读）.
	PublicURL(key string) string
}

// s3ObjectStore 基于 MinIO 客户端的 ObjectStore 实现，固定使用配置中的第一个桶.
type s3ObjectStore struct {
	cli    *s3.Client
	bucket string
}

// NewS3ObjectStore 创建 S3 实现；未配置桶时返回 nil（调用方需判空降级）.
func NewS3ObjectStore(cli *s3.Client) ObjectStore {
	cfg := cli.GetConfig()
	if len(cfg.Buckets) == 0 {
		nlog.Logger().Warn().Msg("no bucket configured, object store disabled")

		return nil
	}

	return &s3ObjectStore{cli: cli, bucket: cfg.Buckets[0]}
}

func (s *s3ObjectStore) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (UploadResult, error) {
	// TeeReader 在上传的同时计算 md5，避免二次读取
	hasher := md5.New()
	tee := io.TeeReader(r, hasher)

	opts := minio.PutObjectOptions{}
	if contentType != "" {
		opts.ContentType = contentType
	}

	info, err := s.cli.PutObject(ctx, s.bucket, key, tee, size, opts)
	if err != nil {
		return UploadResult{}, fmt.Errorf("upload object %s: %w", key, err)
	}

	return UploadResult{
		Bucket:   info.Bucket,
		Key:      key,
		ETag:     info.ETag,
		Size:     info.Size,
		Checksum: fmt.Sprintf("%x", hasher.Sum(nil)),
	}, nil
}

func (s *s3ObjectStore) Remove(ctx context.Context, key string) error {
	err := s.cli.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return nil
		}

		return fmt.Errorf("remove object %s: %w", key, err)
	}

	return nil
}

func (s *s3ObjectStore) Copy(ctx context.Context, srcKey, dstKey string) error {
	obj, err := s.cli.GetObject(ctx, s.bucket, srcKey, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("read source object %s: %w", srcKey, err)
	}
	defer func() { _ = obj.Close() }()

	stat, err := obj.Stat()
	if err != nil {
		return fmt.Errorf("stat source object %s: %w", srcKey, err)
	}

	if _, err := s.cli.PutObject(ctx, s.bucket, dstKey, obj, stat.Size, minio.PutObjectOptions{
		ContentType: stat.ContentType,
	}); err != nil {
		return fmt.Errorf("write destination object %s: %w", dstKey, err)
	}

	return nil
}

func (s *s3ObjectStore) SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := s.cli.PresignedGetObject(ctx, s.bucket, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign get for %s: %w", key, err)
	}

	return u.String(), nil
}

func (s *s3ObjectStore) PublicURL(key string) string {
	cfg := s.cli.GetConfig()
	endpoint := cfg.Endpoint

	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}

	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
	}

	return fmt.Sprintf("%s://%s/%s/%s", scheme, endpoint, s.bucket, key)
}

// unsafeNameChars 匹配对象键中需要替换的字符.
var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._\-]+`)

// sanitizeFileName 清理文件名中的路径分隔与特殊字符，仅保留基础名.
func sanitizeFileName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	cleaned := unsafeNameChars.ReplaceAllString(base, "_")

	if cleaned == "" || cleaned == "." || cleaned == ".." {
		cleaned = "file"
	}

	return cleaned
}

// buildObjectKey 构建对象存储路径：owner/链接/毫秒时间戳/清理后的文件名.
// 时间戳段避免同名文件互相覆盖.
func buildObjectKey(userID, linkID, fileName string, t time.Time) string {
	return fmt.Sprintf("%s/%s/%d/%s", userID, linkID, t.UnixMilli(), sanitizeFileName(fileName))
}
