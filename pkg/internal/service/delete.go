package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/yeisme/linkvault/pkg/configs"
	"github.com/yeisme/linkvault/pkg/internal/model"
	"github.com/yeisme/linkvault/pkg/internal/types"
	nlog "github.com/yeisme/linkvault/pkg/log"
	"github.com/yeisme/linkvault/pkg/queue"
)

const (
	// maxDeleteIterations 子树遍历的迭代上限，防御数据异常（如父指针成环）导致死循环.
	maxDeleteIterations = 10_000
	// deleteConcurrency 对象存储删除的并发上限.
	deleteConcurrency = 8
)

// DeleteService 负责链接下文件与文件夹的批量删除.
type DeleteService struct {
	clients

	stats *StatsService
}

// NewDeleteService 创建并返回一个新的 DeleteService 实例.
func NewDeleteService(c context.Context) *DeleteService {
	cl := newClients(c)

	return &DeleteService{clients: cl, stats: &StatsService{clients: cl}}
}

// BatchDelete 删除一批条目.
//
// 条目类型由请求中的 kind 显式给出，不从 ID 形态推断.
// 文件夹删除包含整棵子树（后代文件夹与其中文件）；子树用工作队列逐层展开，
// 不用递归，并有迭代上限防御异常数据.
// 单项失败不中断整批，失败条目记入 FailedItems.
func (s *DeleteService) BatchDelete(ctx context.Context, link *model.Link, req *types.BatchDeleteRequest) (*types.BatchDeleteResponse, error) {
	if s.db == nil {
		return nil, errors.New("db not initialized")
	}

	resp := &types.BatchDeleteResponse{}

	var (
		removedCount int64
		removedSize  int64
	)

	for i := range req.Items {
		item := &req.Items[i]

		switch item.Kind {
		case types.DeleteItemFile:
			size, err := s.deleteFile(ctx, link, item.ID)
			if err != nil {
				resp.FailedItems = append(resp.FailedItems, types.ItemFailure{
					ItemID: item.ID, Error: err.Error(),
				})

				continue
			}

			resp.DeletedFiles++
			removedCount++
			removedSize += size

		case types.DeleteItemFolder:
			folders, files, size, err := s.deleteFolderTree(ctx, link, item.ID)
			if err != nil {
				resp.FailedItems = append(resp.FailedItems, types.ItemFailure{
					ItemID: item.ID, Error: err.Error(),
				})

				continue
			}

			resp.DeletedFolders += folders
			resp.DeletedFiles += files
			removedCount += int64(files)
			removedSize += size

		default:
			resp.FailedItems = append(resp.FailedItems, types.ItemFailure{
				ItemID: item.ID, Error: fmt.Sprintf("未知条目类型 %q", item.Kind),
			})
		}
	}

	if removedCount > 0 || removedSize > 0 {
		if err := s.stats.OnFilesRemoved(ctx, link, removedCount, removedSize); err != nil {
			nlog.Logger().Warn().Err(err).Str("link_id", link.ID).Msg("decrement stats after delete failed")
		}
	}

	return resp, nil
}

// deleteFile 删除单个文件：先软删行，再清理对象存储.
// 对象清理失败只记日志（行已删，字节由后台任务兜底），返回文件大小用于计数回减.
func (s *DeleteService) deleteFile(ctx context.Context, link *model.Link, fileID string) (int64, error) {
	var file model.File
	if err := s.db.WithContext(ctx).
		Where("id = ? AND link_id = ?", fileID, link.ID).
		First(&file).Error; err != nil {
		return 0, fmt.Errorf("文件不存在")
	}

	if err := s.db.WithContext(ctx).Delete(&file).Error; err != nil {
		return 0, fmt.Errorf("删除文件记录失败: %v", err)
	}

	objectRemoved := s.removeObjects(ctx, []string{file.ObjectKey}) == 1

	if configs.GetConfig().Events.File.Deleted {
		publishEvent(&s.clients, queue.TopicFileDeleted, queue.FileDeletedPayload{
			File: queue.FileRef{
				FileID:    file.ID,
				LinkID:    link.ID,
				FileName:  file.FileName,
				ObjectKey: file.ObjectKey,
				Size:      file.Size,
			},
			ObjectRemoved: objectRemoved,
		})
	}

	return file.Size, nil
}

// deleteFolderTree 删除文件夹及其整棵子树.
// 返回删除的文件夹数、文件数与文件总字节.
func (s *DeleteService) deleteFolderTree(ctx context.Context, link *model.Link, folderID string) (int, int, int64, error) {
	var root model.Folder
	if err := s.db.WithContext(ctx).
		Where("id = ? AND link_id = ?", folderID, link.ID).
		First(&root).Error; err != nil {
		return 0, 0, 0, fmt.Errorf("文件夹不存在")
	}

	// 工作队列展开子树
	folderIDs := []string{root.ID}
	work := []string{root.ID}
	iterations := 0

	for len(work) > 0 {
		iterations++
		if iterations > maxDeleteIterations {
			return 0, 0, 0, fmt.Errorf("文件夹层级异常，终止遍历")
		}

		current := work[0]
		work = work[1:]

		var children []model.Folder
		if err := s.db.WithContext(ctx).
			Where("parent_id = ?", current).
			Find(&children).Error; err != nil {
			return 0, 0, 0, fmt.Errorf("加载子文件夹失败: %v", err)
		}

		for i := range children {
			folderIDs = append(folderIDs, children[i].ID)
			work = append(work, children[i].ID)
		}
	}

	// 子树内全部文件
	var files []model.File
	if err := s.db.WithContext(ctx).
		Where("folder_id IN ?", folderIDs).
		Find(&files).Error; err != nil {
		return 0, 0, 0, fmt.Errorf("加载文件夹内文件失败: %v", err)
	}

	var totalSize int64

	objectKeys := make([]string, 0, len(files))

	for i := range files {
		totalSize += files[i].Size

		if files[i].ObjectKey != "" {
			objectKeys = append(objectKeys, files[i].ObjectKey)
		}
	}

	// 先软删行（文件、再文件夹），后清理对象
	if len(files) > 0 {
		if err := s.db.WithContext(ctx).
			Where("folder_id IN ?", folderIDs).
			Delete(&model.File{}).Error; err != nil {
			return 0, 0, 0, fmt.Errorf("删除文件记录失败: %v", err)
		}
	}

	if err := s.db.WithContext(ctx).
		Where("id IN ?", folderIDs).
		Delete(&model.Folder{}).Error; err != nil {
		return 0, 0, 0, fmt.Errorf("删除文件夹记录失败: %v", err)
	}

	s.removeObjects(ctx, objectKeys)

	if configs.GetConfig().Events.Enabled {
		publishEvent(&s.clients, queue.TopicFolderDeleted, queue.FolderDeletedPayload{
			Folder: queue.FolderRef{
				FolderID: root.ID,
				LinkID:   link.ID,
				Name:     root.Name,
				Path:     root.Path,
				Depth:    root.Depth,
			},
			DeletedFiles: len(files),
		})
	}

	return len(folderIDs), len(files), totalSize, nil
}

// removeObjects 并发清理对象存储字节，返回成功条数.
// 对象清理失败只记日志：数据库记录已删，残留字节可由后台兜底.
func (s *DeleteService) removeObjects(ctx context.Context, keys []string) int {
	if s.store == nil || len(keys) == 0 {
		return 0
	}

	var g errgroup.Group

	g.SetLimit(deleteConcurrency)

	results := make([]bool, len(keys))

	for i, key := range keys {
		g.Go(func() error {
			if err := s.store.Remove(ctx, key); err != nil {
				nlog.Logger().Warn().Err(err).Str("object_key", key).Msg("remove object failed")

				return nil
			}

			results[i] = true

			return nil
		})
	}

	_ = g.Wait()

	removed := 0

	for _, ok := range results {
		if ok {
			removed++
		}
	}

	return removed
}
