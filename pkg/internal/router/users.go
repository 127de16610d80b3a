package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/linkvault/pkg/internal/handle"
)

// RegisterUsersRoutes 注册用户相关路由.
func RegisterUsersRoutes(g *gin.RouterGroup) {
	usersRoutes := g.Group("/users")
	{
		usersRoutes.GET("/:id/storage", handle.CheckStorageAvailable) // 查询存储空间
	}
}
