// Package router 管理路由配置，用于设置HTTP服务的路由规则.
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterAPIRoutes 将全部业务路由绑定到传入的 gin 路由组.
// 上层约定使用 g := e.Group("/api/v1")，各域路由在此统一挂载.
func RegisterAPIRoutes(g *gin.RouterGroup) {
	RegisterLinksRoutes(g)
	RegisterBatchesRoutes(g)
	RegisterUsersRoutes(g)
	RegisterHealthCheckRoute(g)
	RegisterSchedulerRoutes(g)
}
