package model

import (
	"time"

	"gorm.io/gorm"
)

// BatchStatus 批次状态.
type BatchStatus string

const (
	BatchStatusUploading  BatchStatus = "uploading"
	BatchStatusProcessing BatchStatus = "processing"
	BatchStatusCompleted  BatchStatus = "completed"
	BatchStatusFailed     BatchStatus = "failed"
)

// Batch 一次上传会话：在任何字节落盘之前创建，逐文件推进 processed_files，
// 全部条目处理完毕后标记 completed. 部分失败不回滚，批次只记录成功的部分.
type Batch struct {
	ID     string `gorm:"primaryKey;size:64" json:"id"`
	LinkID string `gorm:"size:64;index"      json:"link_id"`

	// 上传者自述信息，不可信的自由文本
	UploaderName    string `gorm:"size:255"  json:"uploader_name"`
	UploaderEmail   string `gorm:"size:255"  json:"uploader_email,omitempty"`
	UploaderMessage string `gorm:"type:text" json:"uploader_message,omitempty"`

	Status BatchStatus `gorm:"size:16;index" json:"status"`

	// 声明的总量（客户端给出）与实际推进的计数
	TotalFiles     int64 `json:"total_files"`
	TotalSize      int64 `json:"total_size"`
	ProcessedFiles int64 `json:"processed_files"`

	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
