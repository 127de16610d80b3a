// Package queue 定义消息主题常量与通配模式，供发布/订阅使用.
package queue

// 主题命名规范：lv.<域>.<动作>[.<状态>]，尽量稳定且向后兼容.
// 域：link(分享链接)、batch(上传批次)、file(文件)、folder(文件夹)、quota(配额)
// 动作：created/completed/deleted/uploaded 等
// 状态：请求(requested)、完成(ed)、失败(failed)

const (
	// 链接领域.
	TopicLinkResolved    = "lv.link.resolved"    // 链接被成功解析访问（用于热度统计）
	TopicLinkExpired     = "lv.link.expired"     // 链接到期被停用
	TopicLinkDeactivated = "lv.link.deactivated" // 链接被手动停用
	TopicLinkStatsSynced = "lv.link.stats.synced" // 聚合计数完成一次全量重算

	// 批次领域.
	TopicBatchCreated   = "lv.batch.created"   // 批次创建（文件行已预建）
	TopicBatchCompleted = "lv.batch.completed" // 批次处理完成（允许部分失败）
	TopicBatchFailed    = "lv.batch.failed"    // 批次整体失败

	// 文件领域.
	TopicFileUploaded   = "lv.file.uploaded"   // 文件字节已写入对象存储并完成记账
	TopicFileDeleted    = "lv.file.deleted"    // 文件被删除（含对象存储清理）
	TopicFileDownloaded = "lv.file.downloaded" // 文件被下载（下载计数）

	// 文件夹领域.
	TopicFolderCreated = "lv.folder.created" // 文件夹物化完成
	TopicFolderDeleted = "lv.folder.deleted" // 文件夹（连同子树）被删除

	// 配额领域.
	TopicQuotaExceeded = "lv.quota.exceeded" // 所有者存储空间不足，上传被拒
)

// 主题分组，用于批量订阅或权限控制.
var (
	// 链接相关主题集合.
	LinkTopics = []string{
		TopicLinkResolved, TopicLinkExpired,
		TopicLinkDeactivated, TopicLinkStatsSynced,
	}

	// 批次相关主题集合.
	BatchTopics = []string{
		TopicBatchCreated, TopicBatchCompleted, TopicBatchFailed,
	}

	// 文件与文件夹相关主题集合.
	FileTopics = []string{
		TopicFileUploaded, TopicFileDeleted, TopicFileDownloaded,
		TopicFolderCreated, TopicFolderDeleted,
	}

	// 配额相关主题集合.
	QuotaTopics = []string{
		TopicQuotaExceeded,
	}
)
