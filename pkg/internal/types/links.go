package types

import "time"

// ResolveLinkRequest 按路径段解析链接（1 段 base，2 段 custom 优先于 generated）.
type ResolveLinkRequest struct {
	Segments []string `binding:"required,min=1,max=2" json:"segments"`
}

// LinkInfo 对外的链接信息（不含密码哈希等敏感字段）.
type LinkInfo struct {
	ID           string     `json:"id"`
	Slug         string     `json:"slug"`
	Topic        string     `json:"topic,omitempty"`
	Type         string     `json:"type"`
	IsActive     bool       `json:"is_active"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	HasPassword  bool       `json:"has_password"`
	RequireEmail bool       `json:"require_email"`
	MaxFiles     int64      `json:"max_files"`
	MaxFileSize  int64      `json:"max_file_size"`
	AllowedTypes []string   `json:"allowed_types,omitempty"`
	TotalFiles   int64      `json:"total_files"`
	TotalSize    int64      `json:"total_size"`
	TotalUploads int64      `json:"total_uploads"`
}

// LinkOwnerInfo 链接所有者及其套餐额度（供上传前的空间校验展示）.
type LinkOwnerInfo struct {
	UserID       string `json:"user_id"`
	Plan         string `json:"plan"`
	StorageUsed  int64  `json:"storage_used"`
	StorageLimit int64  `json:"storage_limit"`
}

// ResolveLinkResponse 链接解析结果.
type ResolveLinkResponse struct {
	Link  LinkInfo      `json:"link"`
	Owner LinkOwnerInfo `json:"owner"`
}

// ValidatePasswordRequest 校验链接密码.
type ValidatePasswordRequest struct {
	Password string `binding:"required" json:"password"`
}

// ValidatePasswordResponse 密码校验结果.
type ValidatePasswordResponse struct {
	IsValid bool `json:"is_valid"`
}

// StorageAvailableResponse 所有者剩余空间信息.
type StorageAvailableResponse struct {
	HasSpace       bool  `json:"has_space"`
	CurrentUsage   int64 `json:"current_usage"`
	StorageLimit   int64 `json:"storage_limit"`
	AvailableSpace int64 `json:"available_space"`
}

// RecalculateStatsResponse 聚合计数重算结果.
type RecalculateStatsResponse struct {
	FileCount int64 `json:"file_count"`
	TotalSize int64 `json:"total_size"`
}
