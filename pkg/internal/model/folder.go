package model

import (
	"time"

	"gorm.io/gorm"
)

// Folder 层级容器，归属于 link 或 workspace 二者之一（不可同时）.
// 不变式：Depth = 父级 Depth + 1（根为 0）；Path = 父级 Path + "/" + Name（根级为 "/" + Name）；
// 有父级时 LinkID 必须与父级一致.
type Folder struct {
	ID string `gorm:"primaryKey;size:64" json:"id"`

	LinkID      *string `gorm:"size:64;index" json:"link_id,omitempty"`
	WorkspaceID *string `gorm:"size:64;index" json:"workspace_id,omitempty"`
	// BatchID 记录创建来源批次（可空）
	BatchID *string `gorm:"size:64;index" json:"batch_id,omitempty"`

	ParentID *string `gorm:"size:64;index" json:"parent_id,omitempty"`
	Name     string  `gorm:"size:255"      json:"name"`
	// Path 物化路径：祖先名称以 "/" 连接
	Path      string `gorm:"size:2048" json:"path"`
	Depth     int    `gorm:"index"     json:"depth"`
	SortOrder int    `json:"sort_order"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
