package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/yeisme/linkvault/pkg/configs"
	"github.com/yeisme/linkvault/pkg/internal/model"
	"github.com/yeisme/linkvault/pkg/internal/types"
	nlog "github.com/yeisme/linkvault/pkg/log"
	"github.com/yeisme/linkvault/pkg/queue"
)

// BatchService 编排一次批量上传：校验、建批次、物化文件夹、逐文件落盘记账、完结.
type BatchService struct {
	clients

	validator *ValidationService
	folders   *FolderService
	stats     *StatsService
}

// NewBatchService 创建并返回一个新的 BatchService 实例.
func NewBatchService(c context.Context) *BatchService {
	cl := newClients(c)

	return &BatchService{
		clients:   cl,
		validator: &ValidationService{clients: cl},
		folders:   &FolderService{clients: cl},
		stats:     &StatsService{clients: cl},
	}
}

// SubmitStagedBatch 处理一次完整的批量提交.
//
// 流程：约束校验 → 创建批次 → 物化文件夹 → 逐文件上传与记账 → 完结批次.
// 校验失败返回 *Rejection（整批拒绝）；进入处理后单文件失败不中断批次，
// 失败条目记入响应的 Failures，批次仍标记完成.
func (s *BatchService) SubmitStagedBatch(ctx context.Context, link *model.Link, manifest *types.StagedBatchManifest, readers map[string]io.Reader) (*types.StagedBatchResponse, *Rejection, error) {
	if s.db == nil {
		return nil, nil, errors.New("db not initialized")
	}

	candidates := make([]UploadCandidate, 0, len(manifest.Files))
	for i := range manifest.Files {
		f := &manifest.Files[i]
		candidates = append(candidates, UploadCandidate{
			FileName:    f.FileName,
			Size:        f.Size,
			ContentType: f.ContentType,
		})
	}

	rej, err := s.validator.ValidateUpload(ctx, link, &UploadRequestInfo{
		Files:    candidates,
		Password: manifest.Password,
		Email:    manifest.Uploader.Email,
	})
	if err != nil {
		return nil, nil, err
	}

	if rej != nil {
		return nil, rej, nil
	}

	now := time.Now().UTC()
	batch := s.newBatch(link, &manifest.Uploader, manifest.Files, now)

	if err := s.db.WithContext(ctx).Create(batch).Error; err != nil {
		return nil, nil, fmt.Errorf("create batch: %w", err)
	}

	ordered := orderStagedFiles(manifest.Files)

	if configs.GetConfig().Events.Enabled {
		publishEvent(&s.clients, queue.TopicBatchCreated, queue.BatchCreatedPayload{
			Batch:      queue.BatchRef{BatchID: batch.ID, LinkID: link.ID},
			TotalFiles: batch.TotalFiles,
			TotalSize:  batch.TotalSize,
			Uploader:   manifest.Uploader.Name,
		})
	}

	resp := &types.StagedBatchResponse{BatchID: batch.ID}

	// 文件夹物化：环/缺父等问题按项失败，不影响其余
	matRes, err := s.folders.Materialize(ctx, link, batch.ID, manifest.Folders)
	if err != nil {
		s.markBatchFailed(ctx, batch.ID)

		return nil, nil, err
	}

	resp.CreatedFolders = matRes.Created
	resp.Failures = append(resp.Failures, matRes.Failures...)

	// 逐文件上传：按解析后的父文件夹分组、组内保持客户端声明顺序；
	// 失败文件记入 Failures，继续后续文件
	for _, meta := range ordered {

		folderID, ok := s.resolveFileFolder(ctx, link, meta, matRes)
		if !ok {
			resp.Failures = append(resp.Failures, types.ItemFailure{
				ItemID: meta.ClientID, ItemName: meta.FileName,
				Error: "所属文件夹不存在或创建失败",
			})

			continue
		}

		r, exists := readers[meta.ClientID]
		if !exists {
			resp.Failures = append(resp.Failures, types.ItemFailure{
				ItemID: meta.ClientID, ItemName: meta.FileName,
				Error: "缺少文件内容",
			})

			continue
		}

		if _, err := s.processOneFile(ctx, link, batch.ID, meta, folderID, r); err != nil {
			nlog.Logger().Warn().Err(err).
				Str("batch_id", batch.ID).Str("file", meta.FileName).
				Msg("process file failed")
			resp.Failures = append(resp.Failures, types.ItemFailure{
				ItemID: meta.ClientID, ItemName: meta.FileName, Error: err.Error(),
			})

			continue
		}

		resp.UploadedFiles++
	}

	resp.TotalProcessed = resp.UploadedFiles + len(resp.Failures)

	if err := s.CompleteBatch(ctx, batch.ID); err != nil {
		return nil, nil, err
	}

	if configs.GetConfig().Events.Link.BatchCompleted {
		publishEvent(&s.clients, queue.TopicBatchCompleted, queue.BatchCompletedPayload{
			Batch:          queue.BatchRef{BatchID: batch.ID, LinkID: link.ID},
			UploadedFiles:  resp.UploadedFiles,
			CreatedFolders: resp.CreatedFolders,
			FailedItems:    len(resp.Failures),
		})
	}

	return resp, nil, nil
}

// newBatch 构造批次行.
func (s *BatchService) newBatch(link *model.Link, up *types.UploaderInfo, files []types.StagedFileMeta, now time.Time) *model.Batch {
	var declaredSize int64
	for i := range files {
		declaredSize += files[i].Size
	}

	return &model.Batch{
		ID:              newBatchID(),
		LinkID:          link.ID,
		UploaderName:    up.Name,
		UploaderEmail:   up.Email,
		UploaderMessage: up.Message,
		Status:          model.BatchStatusUploading,
		TotalFiles:      int64(len(files)),
		TotalSize:       declaredSize,
		CreatedAt:       now,
	}
}

// orderStagedFiles 按 (所属文件夹, 客户端 sort_order, 文件名) 稳定排序并
// 重排组内 sort_order，使同一文件夹内的顺序与客户端声明一致.
func orderStagedFiles(files []types.StagedFileMeta) []*types.StagedFileMeta {
	ordered := make([]*types.StagedFileMeta, 0, len(files))
	for i := range files {
		ordered = append(ordered, &files[i])
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].FolderClientID != ordered[j].FolderClientID {
			return ordered[i].FolderClientID < ordered[j].FolderClientID
		}

		if ordered[i].SortOrder != ordered[j].SortOrder {
			return ordered[i].SortOrder < ordered[j].SortOrder
		}

		return ordered[i].FileName < ordered[j].FileName
	})

	// 组内重编号
	idx := 0
	prevGroup := ""

	for i, f := range ordered {
		if i == 0 || f.FolderClientID != prevGroup {
			idx = 0
			prevGroup = f.FolderClientID
		}

		f.SortOrder = idx
		idx++
	}

	return ordered
}

// resolveFileFolder 解析文件归属的文件夹 ID.
// folder_client_id 可以引用同批次的占位 ID，也可以是一个已存在文件夹的
// 真实 ID（归属校验到链接/工作区）.
// 返回 (nil, true) 表示根；(nil, false) 表示所属文件夹不可用.
func (s *BatchService) resolveFileFolder(ctx context.Context, link *model.Link, meta *types.StagedFileMeta, matRes *MaterializeResult) (*string, bool) {
	if meta.FolderClientID == "" {
		// generated 链接的根即来源文件夹
		if link.Type == model.LinkTypeGenerated && link.SourceFolderID != nil {
			return link.SourceFolderID, true
		}

		return nil, true
	}

	if folder, ok := matRes.ByClientID[meta.FolderClientID]; ok {
		id := folder.ID

		return &id, true
	}

	// 批外：按真实 ID 解析
	if folder, err := loadLinkFolder(ctx, s.db, link, meta.FolderClientID); err == nil {
		id := folder.ID

		return &id, true
	}

	return nil, false
}

// processOneFile 上传单个文件并记账.
// 对象写入成功但落库失败时，补偿删除已写入的对象，避免孤儿字节.
func (s *BatchService) processOneFile(ctx context.Context, link *model.Link, batchID string, meta *types.StagedFileMeta, folderID *string, r io.Reader) (*model.File, error) {
	if s.store == nil {
		return nil, errors.New("object store not initialized")
	}

	now := time.Now().UTC()
	storageName := sanitizeFileName(meta.FileName)
	objectKey := buildObjectKey(link.UserID, link.ID, meta.FileName, now)

	up, err := s.store.Upload(ctx, objectKey, r, meta.Size, meta.ContentType)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", meta.FileName, err)
	}

	file := &model.File{
		ID:          newFileID(now),
		BatchID:     batchID,
		FolderID:    folderID,
		FileName:    meta.FileName,
		StorageName: storageName,
		Size:        up.Size,
		ContentType: meta.ContentType,
		Checksum:    up.Checksum,
		ObjectKey:   objectKey,
		Provider:    "s3",
		Status:      model.FileStatusCompleted,
		ScanStatus:  model.ScanStatusPending,
		SortOrder:   meta.SortOrder,
	}

	if link.Type == model.LinkTypeGenerated {
		uid := link.UserID
		file.WorkspaceID = &uid
	} else {
		lid := link.ID
		file.LinkID = &lid
	}

	if err := s.db.WithContext(ctx).Create(file).Error; err != nil {
		// 补偿：删除已写入的对象
		if rmErr := s.store.Remove(ctx, objectKey); rmErr != nil {
			nlog.Logger().Warn().Err(rmErr).Str("object_key", objectKey).
				Msg("compensating object removal failed")
		}

		return nil, fmt.Errorf("record file %s: %w", meta.FileName, err)
	}

	if err := s.advanceBatch(ctx, batchID); err != nil {
		nlog.Logger().Warn().Err(err).Str("batch_id", batchID).Msg("advance batch failed")
	}

	if err := s.stats.OnFileAdded(ctx, link, up.Size); err != nil {
		return nil, err
	}

	if configs.GetConfig().Events.File.Uploaded {
		publishEvent(&s.clients, queue.TopicFileUploaded, queue.FileUploadedPayload{
			File: queue.FileRef{
				FileID:      file.ID,
				LinkID:      link.ID,
				FolderID:    derefOr(folderID, ""),
				FileName:    file.FileName,
				ObjectKey:   objectKey,
				Bucket:      up.Bucket,
				Size:        up.Size,
				ContentType: file.ContentType,
				Checksum:    up.Checksum,
			},
			BatchID: batchID,
		})
	}

	return file, nil
}

// advanceBatch 推进批次的已处理计数.
func (s *BatchService) advanceBatch(ctx context.Context, batchID string) error {
	return s.db.WithContext(ctx).Model(&model.Batch{}).
		Where("id = ?", batchID).
		Update("processed_files", gorm.Expr("processed_files + 1")).Error
}

// CreateBatch 预创建批次与待传文件行（两段式上传的第一步）.
// 文件行以 pending 状态落库，字节随后通过 UploadBatchFile 逐个写入.
func (s *BatchService) CreateBatch(ctx context.Context, link *model.Link, req *types.CreateBatchRequest) (*types.CreateBatchResponse, *Rejection, error) {
	if s.db == nil {
		return nil, nil, errors.New("db not initialized")
	}

	candidates := make([]UploadCandidate, 0, len(req.Files))
	for i := range req.Files {
		f := &req.Files[i]
		candidates = append(candidates, UploadCandidate{
			FileName:    f.FileName,
			Size:        f.Size,
			ContentType: f.ContentType,
		})
	}

	rej, err := s.validator.ValidateUpload(ctx, link, &UploadRequestInfo{
		Files:    candidates,
		Password: req.Password,
		Email:    req.Uploader.Email,
	})
	if err != nil {
		return nil, nil, err
	}

	if rej != nil {
		return nil, rej, nil
	}

	now := time.Now().UTC()
	batch := s.newBatch(link, &req.Uploader, req.Files, now)

	if err := s.db.WithContext(ctx).Create(batch).Error; err != nil {
		return nil, nil, fmt.Errorf("create batch: %w", err)
	}

	refs := make([]types.CreatedFileRef, 0, len(req.Files))

	for i := range req.Files {
		meta := &req.Files[i]
		file := &model.File{
			ID:          newFileID(now),
			BatchID:     batch.ID,
			FileName:    meta.FileName,
			StorageName: sanitizeFileName(meta.FileName),
			Size:        meta.Size,
			ContentType: meta.ContentType,
			Provider:    "s3",
			Status:      model.FileStatusPending,
			ScanStatus:  model.ScanStatusPending,
			SortOrder:   meta.SortOrder,
		}

		if link.Type == model.LinkTypeGenerated {
			uid := link.UserID
			file.WorkspaceID = &uid
		} else {
			lid := link.ID
			file.LinkID = &lid
		}

		if err := s.db.WithContext(ctx).Create(file).Error; err != nil {
			return nil, nil, fmt.Errorf("precreate file %s: %w", meta.FileName, err)
		}

		refs = append(refs, types.CreatedFileRef{ID: file.ID, FileName: file.FileName})
	}

	return &types.CreateBatchResponse{BatchID: batch.ID, Files: refs}, nil, nil
}

// UploadBatchFile 为预创建的文件行写入字节（两段式上传的第二步）.
// folderID 非空时把文件挂到指定文件夹，sortOrder 覆盖预创建时的排序.
func (s *BatchService) UploadBatchFile(ctx context.Context, link *model.Link, batchID, fileID string, r io.Reader, size int64, folderID *string, sortOrder *int) (*types.UploadFileResponse, error) {
	if s.db == nil {
		return nil, errors.New("db not initialized")
	}

	if s.store == nil {
		return nil, errors.New("object store not initialized")
	}

	var file model.File
	if err := s.db.WithContext(ctx).
		Where("id = ? AND batch_id = ?", fileID, batchID).
		First(&file).Error; err != nil {
		return nil, fmt.Errorf("load pending file %s: %w", fileID, err)
	}

	if file.Status == model.FileStatusCompleted {
		return nil, fmt.Errorf("file %s already uploaded", fileID)
	}

	// 指定文件夹必须真实存在且归属本链接，先于对象写入校验
	if folderID != nil {
		if _, err := loadLinkFolder(ctx, s.db, link, *folderID); err != nil {
			return nil, fmt.Errorf("target folder %s: %w", *folderID, err)
		}
	}

	now := time.Now().UTC()
	objectKey := buildObjectKey(link.UserID, link.ID, file.FileName, now)

	up, err := s.store.Upload(ctx, objectKey, r, size, file.ContentType)
	if err != nil {
		_ = s.db.WithContext(ctx).Model(&model.File{}).
			Where("id = ?", fileID).
			Update("status", model.FileStatusFailed).Error

		return nil, fmt.Errorf("upload %s: %w", file.FileName, err)
	}

	updates := map[string]any{
		"object_key": objectKey,
		"size":       up.Size,
		"checksum":   up.Checksum,
		"status":     model.FileStatusCompleted,
	}
	if folderID != nil {
		updates["folder_id"] = *folderID
	}

	if sortOrder != nil {
		updates["sort_order"] = *sortOrder
	}

	if err := s.db.WithContext(ctx).Model(&model.File{}).
		Where("id = ?", fileID).
		Updates(updates).Error; err != nil {
		if rmErr := s.store.Remove(ctx, objectKey); rmErr != nil {
			nlog.Logger().Warn().Err(rmErr).Str("object_key", objectKey).
				Msg("compensating object removal failed")
		}

		return nil, fmt.Errorf("record file %s: %w", file.FileName, err)
	}

	if err := s.advanceBatch(ctx, batchID); err != nil {
		nlog.Logger().Warn().Err(err).Str("batch_id", batchID).Msg("advance batch failed")
	}

	if err := s.stats.OnFileAdded(ctx, link, up.Size); err != nil {
		return nil, err
	}

	return &types.UploadFileResponse{ID: fileID, Path: objectKey}, nil
}

// CompleteBatch 将批次标记为完成.
// 通过 status <> completed 条件保证幂等：重复调用不重置 completed_at，
// 也不会重复累加链接的 total_uploads.
func (s *BatchService) CompleteBatch(ctx context.Context, batchID string) error {
	if s.db == nil {
		return errors.New("db not initialized")
	}

	var batch model.Batch
	if err := s.db.WithContext(ctx).Where("id = ?", batchID).First(&batch).Error; err != nil {
		return fmt.Errorf("load batch %s: %w", batchID, err)
	}

	now := time.Now().UTC()

	res := s.db.WithContext(ctx).Model(&model.Batch{}).
		Where("id = ? AND status <> ?", batchID, model.BatchStatusCompleted).
		Updates(map[string]any{
			"status":       model.BatchStatusCompleted,
			"completed_at": now,
		})
	if res.Error != nil {
		return fmt.Errorf("complete batch %s: %w", batchID, res.Error)
	}

	// 只有本次调用真正完成了批次才累计上传次数
	if res.RowsAffected > 0 {
		if err := s.stats.OnUploadCompleted(ctx, batch.LinkID); err != nil {
			nlog.Logger().Warn().Err(err).Str("link_id", batch.LinkID).Msg("increment upload count failed")
		}
	}

	return nil
}

// markBatchFailed 将批次标记为失败.
func (s *BatchService) markBatchFailed(ctx context.Context, batchID string) {
	if err := s.db.WithContext(ctx).Model(&model.Batch{}).
		Where("id = ?", batchID).
		Update("status", model.BatchStatusFailed).Error; err != nil {
		nlog.Logger().Warn().Err(err).Str("batch_id", batchID).Msg("mark batch failed error")
	}
}

// GetBatch 查询批次.
func (s *BatchService) GetBatch(ctx context.Context, batchID string) (*model.Batch, error) {
	if s.db == nil {
		return nil, errors.New("db not initialized")
	}

	var batch model.Batch
	if err := s.db.WithContext(ctx).Where("id = ?", batchID).First(&batch).Error; err != nil {
		return nil, fmt.Errorf("load batch %s: %w", batchID, err)
	}

	return &batch, nil
}
