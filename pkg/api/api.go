// Package api 定义API接口，将业务路由组注册到 HTTP 服务.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/linkvault/pkg/internal/router"
)

// RegisterGroup 注册链接与批次相关的路由组到传入的 gin 引擎.
func RegisterGroup(e *gin.Engine) *gin.Engine {
	router.RegisterAPIRoutes(e.Group("/api/v1"))
	router.RegisterSwaggerRoute(e)

	return e
}
