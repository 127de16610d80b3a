package configs

import "github.com/spf13/viper"

// 存储单位换算.
const (
	KB int64 = 1 << 10
	MB int64 = 1 << 20
	GB int64 = 1 << 30
)

// PlanConfig 套餐额度配置.
// Limits 为套餐名到存储上限（字节）的映射，未命中套餐时回退 DefaultLimit.
type PlanConfig struct {
	Limits             map[string]int64 `mapstructure:"limits"`
	DefaultLimit       int64            `mapstructure:"default_limit"`
	DefaultMaxFileSize int64            `mapstructure:"default_max_file_size"`
	// SignedURLTTLSeconds 有过期时间的链接下，下载 URL 的最大签名时长（秒）.
	SignedURLTTLSeconds int64 `mapstructure:"signed_url_ttl_seconds"`
}

// StorageLimit 返回套餐对应的存储上限（字节）.
func (c *PlanConfig) StorageLimit(plan string) int64 {
	if limit, ok := c.Limits[plan]; ok {
		return limit
	}

	return c.DefaultLimit
}

func (c *PlanConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("plan.limits", map[string]int64{
		"free":    2 * GB,
		"starter": 50 * GB,
		"pro":     500 * GB,
	})
	v.SetDefault("plan.default_limit", 2*GB)
	v.SetDefault("plan.default_max_file_size", 100*MB)
	v.SetDefault("plan.signed_url_ttl_seconds", 3600)
}
