package handle

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/linkvault/pkg/internal/service"
	"github.com/yeisme/linkvault/pkg/internal/types"
	"github.com/yeisme/linkvault/pkg/log"
)

// ResolveLink 按路径段解析链接.
//
//	@Summary		解析链接
//	@Description	1 段解析 base 链接，2 段先试 custom 再回退 generated
//	@Tags			链接
//	@Accept			json
//	@Produce		json
//	@Param			body	body		types.ResolveLinkRequest	true	"路径段"
//	@Success		200		{object}	types.Response
//	@Failure		400		{object}	types.Response
//	@Failure		404		{object}	types.Response
//	@Router			/api/v1/links/resolve [post]
func ResolveLink(c *gin.Context) {
	l := log.Logger()

	var req types.ResolveLinkRequest
	if err := c.ShouldBind(&req); err != nil {
		l.Warn().Err(err).Msg("invalid request")
		c.JSON(http.StatusBadRequest, types.Err(err.Error()))

		return
	}

	svc := service.NewLinkService(c.Request.Context())

	resp, err := svc.Resolve(c.Request.Context(), req.Segments)
	if err != nil {
		if errors.Is(err, service.ErrLinkNotFound) {
			c.JSON(http.StatusNotFound, types.Err("链接不存在"))

			return
		}

		l.Error().Err(err).Msg("resolve link failed")
		c.JSON(http.StatusInternalServerError, types.Err(err.Error()))

		return
	}

	c.JSON(http.StatusOK, types.OK(resp))
}

// ValidateLinkPassword 校验链接密码.
//
//	@Summary	校验链接密码
//	@Tags		链接
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string							true	"链接 ID"
//	@Param		body	body		types.ValidatePasswordRequest	true	"密码"
//	@Success	200		{object}	types.Response
//	@Failure	400		{object}	types.Response
//	@Router		/api/v1/links/{id}/password [post]
func ValidateLinkPassword(c *gin.Context) {
	l := log.Logger()

	var req types.ValidatePasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		l.Warn().Err(err).Msg("invalid request")
		c.JSON(http.StatusBadRequest, types.Err(err.Error()))

		return
	}

	svc := service.NewLinkService(c.Request.Context())

	valid, err := svc.ValidatePassword(c.Request.Context(), c.Param("id"), req.Password)
	if err != nil {
		if errors.Is(err, service.ErrLinkNotFound) {
			c.JSON(http.StatusNotFound, types.Err("链接不存在"))

			return
		}

		l.Error().Err(err).Msg("validate password failed")
		c.JSON(http.StatusInternalServerError, types.Err(err.Error()))

		return
	}

	c.JSON(http.StatusOK, types.OK(types.ValidatePasswordResponse{IsValid: valid}))
}

// GetLinkTree 读取链接的完整层级结构.
//
//	@Summary	链接文件树
//	@Tags		链接
//	@Produce	json
//	@Param		id	path		string	true	"链接 ID"
//	@Success	200	{object}	types.Response
//	@Failure	404	{object}	types.Response
//	@Router		/api/v1/links/{id}/tree [get]
func GetLinkTree(c *gin.Context) {
	l := log.Logger()

	link := loadLink(c)
	if link == nil {
		return
	}

	treeSvc := service.NewTreeService(c.Request.Context())

	resp, err := treeSvc.GetLinkTree(c.Request.Context(), link)
	if err != nil {
		l.Error().Err(err).Msg("build link tree failed")
		c.JSON(http.StatusInternalServerError, types.Err(err.Error()))

		return
	}

	c.JSON(http.StatusOK, types.OK(resp))
}

// RecordFileDownload 记录一次文件下载.
//
//	@Summary	记录下载
//	@Tags		链接
//	@Produce	json
//	@Param		id		path		string	true	"链接 ID"
//	@Param		fileId	path		string	true	"文件 ID"
//	@Success	200		{object}	types.Response
//	@Failure	404		{object}	types.Response
//	@Router		/api/v1/links/{id}/files/{fileId}/download [post]
func RecordFileDownload(c *gin.Context) {
	l := log.Logger()

	link := loadLink(c)
	if link == nil {
		return
	}

	svc := service.NewTreeService(c.Request.Context())

	if err := svc.RecordDownload(c.Request.Context(), link, c.Param("fileId")); err != nil {
		l.Error().Err(err).Msg("record download failed")
		c.JSON(http.StatusInternalServerError, types.Err(err.Error()))

		return
	}

	c.JSON(http.StatusOK, types.OK(nil))
}

// RecalculateLinkStats 从文件表重算链接聚合计数.
//
//	@Summary	重算链接统计
//	@Tags		链接
//	@Produce	json
//	@Param		id	path		string	true	"链接 ID"
//	@Success	200	{object}	types.Response
//	@Failure	404	{object}	types.Response
//	@Router		/api/v1/links/{id}/stats/recalculate [post]
func RecalculateLinkStats(c *gin.Context) {
	l := log.Logger()

	svc := service.NewStatsService(c.Request.Context())

	count, size, err := svc.RecomputeLinkStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		l.Error().Err(err).Msg("recompute link stats failed")
		c.JSON(http.StatusInternalServerError, types.Err(err.Error()))

		return
	}

	c.JSON(http.StatusOK, types.OK(types.RecalculateStatsResponse{
		FileCount: count,
		TotalSize: size,
	}))
}

// CheckStorageAvailable 查询所有者剩余空间.
//
//	@Summary	查询存储空间
//	@Tags		用户
//	@Produce	json
//	@Param		id			path		string	true	"用户 ID"
//	@Param		required	query		int		false	"本次需要的字节数"
//	@Success	200			{object}	types.Response
//	@Failure	404			{object}	types.Response
//	@Router		/api/v1/users/{id}/storage [get]
func CheckStorageAvailable(c *gin.Context) {
	l := log.Logger()

	required, _ := strconv.ParseInt(c.DefaultQuery("required", "0"), 10, 64)

	svc := service.NewQuotaService(c.Request.Context())

	resp, err := svc.CheckStorageAvailable(c.Request.Context(), c.Param("id"), required)
	if err != nil {
		l.Error().Err(err).Msg("check storage failed")
		c.JSON(http.StatusInternalServerError, types.Err(err.Error()))

		return
	}

	c.JSON(http.StatusOK, types.OK(resp))
}
