package model

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// LinkType 链接类型.
type LinkType string

const (
	// LinkTypeBase 基础链接：单段 slug 直达.
	LinkTypeBase LinkType = "base"
	// LinkTypeCustom 自定义链接：slug/topic 两段路由.
	LinkTypeCustom LinkType = "custom"
	// LinkTypeGenerated 生成链接：上传直接落入已有工作区文件夹.
	LinkTypeGenerated LinkType = "generated"
)

// Link 可分享的上传入口.
// TotalFiles/TotalSize 为去范化的运行计数，必须与属于该链接的未删除文件聚合一致
// （通过数据库端原子增减维护，RecomputeLinkStats 可自愈漂移）.
type Link struct {
	ID     string `gorm:"primaryKey;size:64" json:"id"`
	UserID string `gorm:"size:64;index"      json:"user_id"`
	// Slug 路由段；base 链接单段直达，custom 链接与 Topic 组成两段路径
	Slug  string   `gorm:"size:128;index:idx_slug_topic" json:"slug"`
	Topic string   `gorm:"size:128;index:idx_slug_topic" json:"topic"`
	Type  LinkType `gorm:"size:16;index"                 json:"type"`

	IsActive     bool       `gorm:"index" json:"is_active"`
	ExpiresAt    *time.Time `gorm:"index" json:"expires_at,omitempty"`
	PasswordHash string     `gorm:"size:128" json:"-"`
	RequireEmail bool       `json:"require_email"`

	MaxFiles    int64 `json:"max_files"`
	MaxFileSize int64 `json:"max_file_size"`
	// AllowedTypesJSON 以 JSON 数组文本存储允许的文件类型；空串表示不限制
	AllowedTypesJSON string `gorm:"type:text" json:"-"`

	// SourceFolderID 仅 generated 链接使用：上传映射到工作区中已有文件夹
	SourceFolderID *string `gorm:"size:64" json:"source_folder_id,omitempty"`

	TotalFiles   int64 `json:"total_files"`
	TotalSize    int64 `json:"total_size"`
	TotalUploads int64 `json:"total_uploads"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// AllowedTypes 反序列化允许的文件类型列表；nil 表示不限制.
func (l *Link) AllowedTypes() ([]string, error) {
	if l.AllowedTypesJSON == "" {
		return nil, nil
	}

	var types []string
	if err := json.Unmarshal([]byte(l.AllowedTypesJSON), &types); err != nil {
		return nil, err
	}

	return types, nil
}

// SetAllowedTypes 序列化允许的文件类型列表；nil/空列表表示不限制.
func (l *Link) SetAllowedTypes(types []string) error {
	if len(types) == 0 {
		l.AllowedTypesJSON = ""
		return nil
	}

	b, err := json.Marshal(types)
	if err != nil {
		return err
	}

	l.AllowedTypesJSON = string(b)

	return nil
}

// Expired 判断链接是否已过期（expires_at 为空视为永不过期）.
func (l *Link) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}
