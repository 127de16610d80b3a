package queue

import "time"

// EventHeader 定义所有事件的通用头部元数据.
// 建议在发布消息时填充 TraceID、OccurredAt、Producer 等，便于追踪链路与审计.
type EventHeader struct {
	// Topic 冗余记录消息主题，便于离线处理或转储后定位来源主题.
	Topic string `json:"topic"`
	// TraceID 分布式追踪/关联 ID，可来自中间件或业务生成.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者服务名或节点标识.
	Producer string `json:"producer,omitempty"`
	// OccurredAt 事件发生时间（UTC，RFC3339）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 事件负载版本，便于向后兼容演进.
	Version string `json:"version,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
// T 即不同主题对应的负载结构体.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// -------------------------- 链接领域 --------------------------

// LinkRef 标识一条分享链接.
type LinkRef struct {
	LinkID string `json:"link_id"`
	UserID string `json:"user_id,omitempty"`
	Slug   string `json:"slug,omitempty"`
	Topic  string `json:"topic,omitempty"`
	Type   string `json:"type,omitempty"`
}

// LinkResolvedPayload 链接被访问解析.
type LinkResolvedPayload struct {
	Link LinkRef `json:"link"`
	// Segments 为请求中的原始路径段，便于审计 slug 命中方式.
	Segments []string `json:"segments,omitempty"`
}

// LinkExpiredPayload 链接到期或被停用.
type LinkExpiredPayload struct {
	Link      LinkRef    `json:"link"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Reason    string     `json:"reason,omitempty"` // expired / manual
}

// LinkStatsSyncedPayload 聚合计数全量重算完成.
type LinkStatsSyncedPayload struct {
	Link      LinkRef `json:"link"`
	FileCount int64   `json:"file_count"`
	TotalSize int64   `json:"total_size"`
}

// -------------------------- 批次领域 --------------------------

// BatchRef 标识一个上传批次.
type BatchRef struct {
	BatchID string `json:"batch_id"`
	LinkID  string `json:"link_id"`
}

// BatchCreatedPayload 批次创建完成.
type BatchCreatedPayload struct {
	Batch      BatchRef `json:"batch"`
	TotalFiles int64    `json:"total_files"`
	TotalSize  int64    `json:"total_size"`
	Uploader   string   `json:"uploader,omitempty"`
}

// BatchCompletedPayload 批次处理结束（部分失败也视为完成）.
type BatchCompletedPayload struct {
	Batch          BatchRef `json:"batch"`
	UploadedFiles  int      `json:"uploaded_files"`
	CreatedFolders int      `json:"created_folders"`
	FailedItems    int      `json:"failed_items"`
}

// BatchFailedPayload 批次整体失败.
type BatchFailedPayload struct {
	Batch BatchRef `json:"batch"`
	Error string   `json:"error"`
}

// -------------------------- 文件/文件夹领域 --------------------------

// FileRef 标识一个文件及其对象存储位置.
type FileRef struct {
	FileID      string `json:"file_id"`
	LinkID      string `json:"link_id,omitempty"`
	FolderID    string `json:"folder_id,omitempty"`
	FileName    string `json:"file_name,omitempty"`
	ObjectKey   string `json:"object_key,omitempty"`
	Bucket      string `json:"bucket,omitempty"`
	Size        int64  `json:"size,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Checksum    string `json:"checksum,omitempty"`
}

// FileUploadedPayload 文件写入对象存储并完成记账.
type FileUploadedPayload struct {
	File    FileRef `json:"file"`
	BatchID string  `json:"batch_id,omitempty"`
}

// FileDeletedPayload 文件被删除.
type FileDeletedPayload struct {
	File FileRef `json:"file"`
	// ObjectRemoved 指对象存储中的字节是否确认清理成功.
	ObjectRemoved bool `json:"object_removed"`
}

// FileDownloadedPayload 文件被下载.
type FileDownloadedPayload struct {
	File FileRef `json:"file"`
}

// FolderRef 标识一个文件夹.
type FolderRef struct {
	FolderID string `json:"folder_id"`
	LinkID   string `json:"link_id,omitempty"`
	ParentID string `json:"parent_id,omitempty"`
	Name     string `json:"name,omitempty"`
	Path     string `json:"path,omitempty"`
	Depth    int    `json:"depth,omitempty"`
}

// FolderCreatedPayload 文件夹物化完成.
type FolderCreatedPayload struct {
	Folder  FolderRef `json:"folder"`
	BatchID string    `json:"batch_id,omitempty"`
}

// FolderDeletedPayload 文件夹（连同子树）被删除.
type FolderDeletedPayload struct {
	Folder       FolderRef `json:"folder"`
	DeletedFiles int       `json:"deleted_files"`
}

// -------------------------- 配额领域 --------------------------

// QuotaExceededPayload 所有者存储空间不足导致上传被拒.
type QuotaExceededPayload struct {
	UserID       string `json:"user_id"`
	LinkID       string `json:"link_id,omitempty"`
	Requested    int64  `json:"requested"`
	CurrentUsage int64  `json:"current_usage"`
	StorageLimit int64  `json:"storage_limit"`
}
