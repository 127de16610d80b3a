// Package service 实现链接上传领域的业务逻辑：链接解析、上传校验、
// 文件夹物化、批次编排、聚合计数与树读取.
//
// 服务对象按请求创建（NewXxxService(ctx) 从 context 取客户端），内部只持有
// 窄接口与 *gorm.DB，便于测试时直接构造.
package service

import (
	"context"
	crand "crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid"
	"gorm.io/gorm"

	"github.com/yeisme/linkvault/pkg/configs"
	ctxPkg "github.com/yeisme/linkvault/pkg/context"
	"github.com/yeisme/linkvault/pkg/internal/storage/kv"
	"github.com/yeisme/linkvault/pkg/internal/storage/mq"
	nlog "github.com/yeisme/linkvault/pkg/log"
	"github.com/yeisme/linkvault/pkg/queue"
)

// 全局单例的 ULID 熵源，使用单调递增策略，确保同一毫秒内生成的 ULID 具有排序稳定性。
var ulidEntropy = ulid.Monotonic(crand.Reader, 0)

// newPrefixedID 生成带前缀的 ULID 字符串，形如 "lk_01H..."。
// 使用单例熵源以支持同一毫秒内的单调递增。
func newPrefixedID(prefix string, t time.Time) string {
	// 注意：ULID 使用毫秒时间戳，因此应传入 time.Now().UTC() 或同等时间。
	id := ulid.MustNew(ulid.Timestamp(t), ulidEntropy)

	return prefix + id.String()
}

// ID 前缀约定：链接 lk_、文件夹 d_、文件 f_；批次使用无前缀 UUID.
func newLinkID(t time.Time) string   { return newPrefixedID("lk_", t) }
func newFolderID(t time.Time) string { return newPrefixedID("d_", t) }
func newFileID(t time.Time) string   { return newPrefixedID("f_", t) }

// newBatchID 批次 ID 使用 UUID，与客户端侧常见的批次标识格式一致.
func newBatchID() string { return uuid.NewString() }

// hashPassword 对链接密码做 sha256 + base64url 摘要，空密码返回空串.
func hashPassword(pw string) string {
	if strings.TrimSpace(pw) == "" {
		return ""
	}

	sum := sha256.Sum256([]byte(pw))

	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// clients 聚合各服务共享的基础设施句柄.
// db 必须存在；store/kvc/mqc 可为 nil，相应能力降级（直传失败/无缓存/不发事件）.
type clients struct {
	db    *gorm.DB
	store ObjectStore
	kvc   *kv.Client
	mqc   *mq.Client
}

// newClients 从 context 取基础设施句柄.
func newClients(c context.Context) clients {
	cl := clients{
		kvc: ctxPkg.GetKVClient(c),
		mqc: ctxPkg.GetMQClient(c),
	}

	if dbc := ctxPkg.GetDBClient(c); dbc != nil {
		cl.db = dbc.GetDB()
	} else {
		nlog.Logger().Warn().Msg("DB client not initialized, service features limited")
	}

	if s3c := ctxPkg.GetS3Client(c); s3c != nil {
		cl.store = NewS3ObjectStore(s3c)
	} else {
		nlog.Logger().Warn().Msg("S3 client not initialized, object features will be limited")
	}

	return cl
}

// publishEvent 发布领域事件，MQ 未初始化或事件总开关关闭时静默跳过.
// 事件是旁路信息，失败只记日志，从不影响主流程.
func publishEvent[T any](cl *clients, topic string, payload T) {
	if cl.mqc == nil || !configs.GetConfig().Events.Enabled {
		return
	}

	msg, err := queue.NewWatermillMessage(topic, payload, queue.WithProducer("linkvault"))
	if err != nil {
		nlog.Logger().Warn().Err(err).Str("topic", topic).Msg("build event message failed")

		return
	}

	if err := cl.mqc.Publish(context.Background(), topic, msg); err != nil {
		nlog.Logger().Warn().Err(err).Str("topic", topic).Msg("publish event failed")
	}
}
