package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/linkvault/pkg/internal/handle"
	"github.com/yeisme/linkvault/pkg/middleware"
)

// RegisterLinksRoutes 注册链接相关路由.
func RegisterLinksRoutes(g *gin.RouterGroup) {
	// 链接解析与访问控制
	linksRoutes := g.Group("/links")
	{
		linksRoutes.POST("/resolve", handle.ResolveLink)                          // 按路径段解析链接
		linksRoutes.POST("/:id/password", handle.ValidateLinkPassword)            // 校验链接密码
		linksRoutes.GET("/:id/tree", handle.GetLinkTree)                          // 读取文件树
		linksRoutes.POST("/:id/files/:fileId/download", handle.RecordFileDownload) // 记录下载
		linksRoutes.POST("/:id/stats/recalculate",
			middleware.RequireMinRole(middleware.RoleMember), handle.RecalculateLinkStats) // 重算聚合计数
		linksRoutes.POST("/:id/items/batch-delete", handle.BatchDeleteLinkItems)  // 批量删除条目
	}
}
