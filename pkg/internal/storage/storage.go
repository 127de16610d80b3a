// Package storage 处理存储操作，如上传、下载和删除文件到S3，数据库等.
//
// Example:
//
// 初始化
//
//	 ctx := context.Background()
//	 mgr, err := storage.Init(ctx)
//
//		if err != nil {
//		    // 处理错误
//		}
//
// 获取存储客户端
//
//	s3Client := mgr.GetS3Client()
//	dbClient := mgr.GetDBClient()
package storage

import (
	"context"
	"sync"

	dbc "github.com/yeisme/linkvault/pkg/internal/storage/db"
	kvc "github.com/yeisme/linkvault/pkg/internal/storage/kv"
	mqc "github.com/yeisme/linkvault/pkg/internal/storage/mq"
	s3c "github.com/yeisme/linkvault/pkg/internal/storage/s3"
	nlog "github.com/yeisme/linkvault/pkg/log"
)

// Manager 聚合所有存储资源. DB 与 S3 为必需依赖，初始化失败即启动失败；
// KV 与 MQ 为可选增强（缓存/事件），失败时降级为 nil，调用方需判空.
type Manager struct {
	S3 *s3c.Client
	DB *dbc.Client
	KV *kvc.Client
	MQ *mqc.Client
}

var (
	mgr     *Manager
	mgrOnce sync.Once
)

// Init 初始化默认存储，使用全局配置.重复调用只返回已初始化实例.
func Init(ctx context.Context) (*Manager, error) {
	var err error

	mgrOnce.Do(func() {
		m := &Manager{}

		// DB
		if dbi, e := dbc.New(ctx); e != nil {
			err = e

			return
		} else {
			m.DB = dbi
		}

		// S3
		if s3i, e := s3c.New(ctx); e != nil {
			err = e

			return
		} else {
			m.S3 = s3i
		}

		// KV（可选）
		if kvi, e := kvc.NewKVClient(ctx); e != nil {
			nlog.Logger().Warn().Err(e).Msg("kv 初始化失败，缓存降级为关闭")
		} else {
			m.KV = kvi
		}

		// MQ（可选）
		if mqi, e := mqc.New(ctx); e != nil {
			nlog.Logger().Warn().Err(e).Msg("mq 初始化失败，事件发布降级为关闭")
		} else {
			m.MQ = mqi
		}

		mgr = m

		nlog.Logger().Info().Msg("storage manager initialized")
	})

	return mgr, err
}

// GetS3Client 获取 S3 客户端.
func (m *Manager) GetS3Client() *s3c.Client {
	return m.S3
}

// GetDBClient 获取 DB 客户端.
func (m *Manager) GetDBClient() *dbc.Client {
	return m.DB
}

// GetKVClient 获取 KV 客户端，未启用时为 nil.
func (m *Manager) GetKVClient() *kvc.Client {
	return m.KV
}

// GetMQClient 获取 MQ 客户端，未启用时为 nil.
func (m *Manager) GetMQClient() *mqc.Client {
	return m.MQ
}
