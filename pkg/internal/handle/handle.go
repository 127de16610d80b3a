// Package handle 提供请求处理器的实现，用于处理HTTP请求.
package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/linkvault/pkg/internal/model"
	"github.com/yeisme/linkvault/pkg/internal/service"
	"github.com/yeisme/linkvault/pkg/internal/types"
	"github.com/yeisme/linkvault/pkg/log"
)

// loadLink 按路径参数加载链接，未找到时直接写响应并返回 nil.
func loadLink(c *gin.Context) *model.Link {
	svc := service.NewLinkService(c.Request.Context())

	link, err := svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrLinkNotFound) {
			c.JSON(http.StatusNotFound, types.Err("链接不存在"))

			return nil
		}

		log.Logger().Error().Err(err).Msg("load link failed")
		c.JSON(http.StatusInternalServerError, types.Err(err.Error()))

		return nil
	}

	return link
}
