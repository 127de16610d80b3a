package handle

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bytedance/sonic"

	"github.com/yeisme/linkvault/pkg/internal/service"
	"github.com/yeisme/linkvault/pkg/internal/types"
	"github.com/yeisme/linkvault/pkg/log"
)

// SubmitStagedBatch 一次性提交整批文件与文件夹.
//
// multipart 格式：字段 manifest 为 JSON 清单（types.StagedBatchManifest），
// 每个文件以其 client_id 为字段名附上字节.
//
//	@Summary		批量上传
//	@Description	校验、建批次、物化文件夹、逐文件落盘；部分失败不中断
//	@Tags			批次
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			id			path		string	true	"链接 ID"
//	@Param			manifest	formData	string	true	"JSON 清单"
//	@Success		200			{object}	types.Response
//	@Failure		400			{object}	types.Response
//	@Failure		422			{object}	types.Response
//	@Router			/api/v1/links/{id}/batches/staged [post]
func SubmitStagedBatch(c *gin.Context) {
	l := log.Logger()

	link := loadLink(c)
	if link == nil {
		return
	}

	manifestRaw := c.PostForm("manifest")
	if manifestRaw == "" {
		c.JSON(http.StatusBadRequest, types.Err("缺少 manifest 字段"))

		return
	}

	var manifest types.StagedBatchManifest
	if err := sonic.Unmarshal([]byte(manifestRaw), &manifest); err != nil {
		l.Warn().Err(err).Msg("invalid manifest")
		c.JSON(http.StatusBadRequest, types.Err("manifest 解析失败: "+err.Error()))

		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, types.Err(err.Error()))

		return
	}

	// 以 client_id 为字段名关联字节
	readers := make(map[string]io.Reader, len(manifest.Files))
	closers := make([]io.Closer, 0, len(manifest.Files))

	defer func() {
		for _, cl := range closers {
			_ = cl.Close()
		}
	}()

	for i := range manifest.Files {
		meta := &manifest.Files[i]

		fhs, ok := form.File[meta.ClientID]
		if !ok || len(fhs) == 0 {
			continue // 缺失文件由服务层按项报错
		}

		f, err := fhs[0].Open()
		if err != nil {
			l.Warn().Err(err).Str("client_id", meta.ClientID).Msg("open multipart file failed")

			continue
		}

		closers = append(closers, f)
		readers[meta.ClientID] = f

		if meta.Size == 0 {
			meta.Size = fhs[0].Size
		}
	}

	svc := service.NewBatchService(c.Request.Context())

	resp, rej, err := svc.SubmitStagedBatch(c.Request.Context(), link, &manifest, readers)
	if err != nil {
		l.Error().Err(err).Msg("submit staged batch failed")
		c.JSON(http.StatusInternalServerError, types.Err(err.Error()))

		return
	}

	if rej != nil {
		c.JSON(http.StatusUnprocessableEntity, types.Err(rej.Message))

		return
	}

	c.JSON(http.StatusOK, types.OK(resp))
}

// CreateBatch 预创建批次与待传文件行.
//
//	@Summary	创建批次
//	@Tags		批次
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string					true	"链接 ID"
//	@Param		body	body		types.CreateBatchRequest	true	"文件清单"
//	@Success	200		{object}	types.Response
//	@Failure	400		{object}	types.Response
//	@Failure	422		{object}	types.Response
//	@Router		/api/v1/links/{id}/batches [post]
func CreateBatch(c *gin.Context) {
	l := log.Logger()

	link := loadLink(c)
	if link == nil {
		return
	}

	var req types.CreateBatchRequest
	if err := c.ShouldBind(&req); err != nil {
		l.Warn().Err(err).Msg("invalid request")
		c.JSON(http.StatusBadRequest, types.Err(err.Error()))

		return
	}

	svc := service.NewBatchService(c.Request.Context())

	resp, rej, err := svc.CreateBatch(c.Request.Context(), link, &req)
	if err != nil {
		l.Error().Err(err).Msg("create batch failed")
		c.JSON(http.StatusInternalServerError, types.Err(err.Error()))

		return
	}

	if rej != nil {
		c.JSON(http.StatusUnprocessableEntity, types.Err(rej.Message))

		return
	}

	c.JSON(http.StatusOK, types.OK(resp))
}

// UploadBatchFile 为预创建的文件行写入字节.
//
//	@Summary	上传批次文件
//	@Tags		批次
//	@Accept		multipart/form-data
//	@Produce	json
//	@Param		id			path		string	true	"链接 ID"
//	@Param		batchId		path		string	true	"批次 ID"
//	@Param		fileId		path		string	true	"文件 ID"
//	@Param		file		formData	file	true	"文件内容"
//	@Param		folder_id	query		string	false	"目标文件夹 ID"
//	@Param		sort_order	query		int		false	"排序"
//	@Success	200			{object}	types.Response
//	@Failure	400			{object}	types.Response
//	@Router		/api/v1/links/{id}/batches/{batchId}/files/{fileId} [post]
func UploadBatchFile(c *gin.Context) {
	l := log.Logger()

	link := loadLink(c)
	if link == nil {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, types.Err("缺少 file 字段"))

		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, types.Err(err.Error()))

		return
	}
	defer func() { _ = f.Close() }()

	var folderID *string
	if v := c.Query("folder_id"); v != "" {
		folderID = &v
	}

	var sortOrder *int
	if v := c.Query("sort_order"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			sortOrder = &n
		}
	}

	svc := service.NewBatchService(c.Request.Context())

	resp, err := svc.UploadBatchFile(c.Request.Context(), link,
		c.Param("batchId"), c.Param("fileId"), f, fh.Size, folderID, sortOrder)
	if err != nil {
		l.Error().Err(err).Msg("upload batch file failed")
		c.JSON(http.StatusInternalServerError, types.Err(err.Error()))

		return
	}

	c.JSON(http.StatusOK, types.OK(resp))
}

// CompleteBatch 标记批次完成（幂等）.
//
//	@Summary	完结批次
//	@Tags		批次
//	@Produce	json
//	@Param		batchId	path		string	true	"批次 ID"
//	@Success	200		{object}	types.Response
//	@Failure	500		{object}	types.Response
//	@Router		/api/v1/batches/{batchId}/complete [post]
func CompleteBatch(c *gin.Context) {
	l := log.Logger()

	svc := service.NewBatchService(c.Request.Context())

	if err := svc.CompleteBatch(c.Request.Context(), c.Param("batchId")); err != nil {
		l.Error().Err(err).Msg("complete batch failed")
		c.JSON(http.StatusInternalServerError, types.Err(err.Error()))

		return
	}

	c.JSON(http.StatusOK, types.OK(nil))
}

// BatchDeleteLinkItems 批量删除链接下的文件/文件夹.
//
//	@Summary		批量删除
//	@Description	条目类型由 kind 显式给出；文件夹删除包含整棵子树
//	@Tags			链接
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"链接 ID"
//	@Param			body	body		types.BatchDeleteRequest	true	"条目列表"
//	@Success		200		{object}	types.Response
//	@Failure		400		{object}	types.Response
//	@Router			/api/v1/links/{id}/items/batch-delete [post]
func BatchDeleteLinkItems(c *gin.Context) {
	l := log.Logger()

	link := loadLink(c)
	if link == nil {
		return
	}

	var req types.BatchDeleteRequest
	if err := c.ShouldBind(&req); err != nil {
		l.Warn().Err(err).Msg("invalid request")
		c.JSON(http.StatusBadRequest, types.Err(err.Error()))

		return
	}

	svc := service.NewDeleteService(c.Request.Context())

	resp, err := svc.BatchDelete(c.Request.Context(), link, &req)
	if err != nil {
		l.Error().Err(err).Msg("batch delete failed")
		c.JSON(http.StatusInternalServerError, types.Err(err.Error()))

		return
	}

	c.JSON(http.StatusOK, types.OK(resp))
}
