package configs

import "github.com/spf13/viper"

// EventsConfig 控制事件发布的开关（全局与分主题）。
type EventsConfig struct {
	Enabled bool             `mapstructure:"enabled"` // 总开关
	Link    LinkEventsConfig `mapstructure:"link"`
	File    FileEventsConfig `mapstructure:"file"`
}

// LinkEventsConfig 针对链接/批次领域的事件开关。
type LinkEventsConfig struct {
	Resolved       bool `mapstructure:"resolved"`
	Expired        bool `mapstructure:"expired"`
	BatchCompleted bool `mapstructure:"batch_completed"`
	QuotaExceeded  bool `mapstructure:"quota_exceeded"`
}

// FileEventsConfig 针对文件/文件夹领域的事件开关。
type FileEventsConfig struct {
	Uploaded   bool `mapstructure:"uploaded"`
	Deleted    bool `mapstructure:"deleted"`
	Downloaded bool `mapstructure:"downloaded"`
}

func (c *EventsConfig) setDefaults(v *viper.Viper) {
	// 总开关：默认启用事件系统
	v.SetDefault("events.enabled", true)

	// 默认仅开启最小必要集，避免噪声过大
	v.SetDefault("events.link.expired", true)
	v.SetDefault("events.link.batch_completed", true)
	v.SetDefault("events.link.quota_exceeded", true)
	v.SetDefault("events.file.uploaded", true)
	v.SetDefault("events.file.deleted", true)

	// 可选事件：默认关闭，按需开启
	v.SetDefault("events.link.resolved", false)  // 访问事件量可能很大，默认关闭
	v.SetDefault("events.file.downloaded", false)
}
