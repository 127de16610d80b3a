package jobs

// 任务名称常量，便于统一管理与引用.
const (
	JobLinkDeactivateExpired = "link.deactivate_expired"
	JobLinkStatsRecompute    = "link.stats.recompute"
)

// Cron 表达式常量（可选，但推荐一并集中管理）.
const (
	CronLinkDeactivateExpired = "*/10 * * * *" // 每 10 分钟巡检过期链接
	CronLinkStatsRecompute    = "30 3 * * *"   // 每天 03:30 全量对账聚合计数
)
