package model

import (
	"time"

	"gorm.io/gorm"
)

// FileStatus 文件处理状态.
type FileStatus string

const (
	FileStatusPending   FileStatus = "pending"
	FileStatusCompleted FileStatus = "completed"
	FileStatusFailed    FileStatus = "failed"
)

// ScanStatus 安全扫描结果.
type ScanStatus string

const (
	ScanStatusPending ScanStatus = "pending"
	ScanStatusClean   ScanStatus = "clean"
	ScanStatusFlagged ScanStatus = "flagged"
)

// File 单个上传对象的元数据.
// 不变式：LinkID / WorkspaceID 恰好设置一个，与上传途径一致.
type File struct {
	ID      string `gorm:"primaryKey;size:64" json:"id"`
	BatchID string `gorm:"size:64;index"      json:"batch_id"`

	LinkID      *string `gorm:"size:64;index" json:"link_id,omitempty"`
	WorkspaceID *string `gorm:"size:64;index" json:"workspace_id,omitempty"`
	// FolderID 为空表示位于所属 link/workspace 的根
	FolderID *string `gorm:"size:64;index" json:"folder_id,omitempty"`

	FileName    string `gorm:"size:512"  json:"file_name"`
	StorageName string `gorm:"size:512"  json:"storage_name"`
	Size        int64  `gorm:"index"     json:"size"`
	ContentType string `gorm:"size:255"  json:"content_type"`
	Checksum    string `gorm:"size:64"   json:"checksum,omitempty"`

	ObjectKey string `gorm:"size:1024;index" json:"object_key"`
	Provider  string `gorm:"size:32"         json:"provider"`

	Status     FileStatus `gorm:"size:16;index" json:"status"`
	ScanStatus ScanStatus `gorm:"size:16"       json:"scan_status"`

	DownloadCount int64 `json:"download_count"`
	SortOrder     int   `json:"sort_order"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
