package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/linkvault/pkg/internal/handle"
)

// RegisterBatchesRoutes 注册批次上传相关路由.
func RegisterBatchesRoutes(g *gin.RouterGroup) {
	// 链接维度的批次操作
	linksRoutes := g.Group("/links/:id")
	{
		linksRoutes.POST("/batches", handle.CreateBatch)                                 // 预创建批次
		linksRoutes.POST("/batches/staged", handle.SubmitStagedBatch)                    // 整批提交
		linksRoutes.POST("/batches/:batchId/files/:fileId", handle.UploadBatchFile)      // 上传单个文件
	}

	// 批次维度的操作
	batchesRoutes := g.Group("/batches")
	{
		batchesRoutes.POST("/:batchId/complete", handle.CompleteBatch) // 标记批次完成
	}
}
