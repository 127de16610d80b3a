package model

import (
	"time"

	"gorm.io/gorm"
)

// User 链接所有者（计费维度）.
// StorageUsed 为去范化的已用字节数，随文件增删原子增减；套餐存储上限由配置的
// 套餐表解析，User 行只携带套餐名.
type User struct {
	ID    string `gorm:"primaryKey;size:64" json:"id"`
	Email string `gorm:"size:255;uniqueIndex" json:"email"`
	Name  string `gorm:"size:255" json:"name"`

	Plan        string `gorm:"size:32;index" json:"plan"`
	StorageUsed int64  `json:"storage_used"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// AllModels 用于 AutoMigrate 的模型集合.
func AllModels() []any {
	return []any{&User{}, &Link{}, &Batch{}, &Folder{}, &File{}}
}
