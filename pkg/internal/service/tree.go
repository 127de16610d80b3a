package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/yeisme/linkvault/pkg/configs"
	"github.com/yeisme/linkvault/pkg/internal/model"
	"github.com/yeisme/linkvault/pkg/internal/types"
	nlog "github.com/yeisme/linkvault/pkg/log"
	"github.com/yeisme/linkvault/pkg/queue"
)

// TreeService 读取链接下的完整文件夹/文件层级.
type TreeService struct {
	clients
}

// NewTreeService 创建并返回一个新的 TreeService 实例.
func NewTreeService(c context.Context) *TreeService {
	return &TreeService{clients: newClients(c)}
}

// GetLinkTree 组装链接的完整层级结构.
//
// 文件夹与文件各一次查询取回，内存中按 parent_id 组装为嵌套树；
// 父指针悬空的文件夹（父已被删除）提升到根级，不丢数据.
// 子节点按 (sort_order, name) 排序.
func (s *TreeService) GetLinkTree(ctx context.Context, link *model.Link) (*types.LinkTreeResponse, error) {
	if s.db == nil {
		return nil, errors.New("db not initialized")
	}

	var folders []model.Folder
	if err := s.db.WithContext(ctx).
		Where("link_id = ?", link.ID).
		Order("depth ASC, sort_order ASC, name ASC").
		Find(&folders).Error; err != nil {
		return nil, fmt.Errorf("list folders for %s: %w", link.ID, err)
	}

	var files []model.File
	if err := s.db.WithContext(ctx).
		Where("link_id = ? AND status = ?", link.ID, model.FileStatusCompleted).
		Order("sort_order ASC, file_name ASC").
		Find(&files).Error; err != nil {
		return nil, fmt.Errorf("list files for %s: %w", link.ID, err)
	}

	nodes := make(map[string]*types.TreeFolder, len(folders))
	resp := &types.LinkTreeResponse{
		Folders:   []*types.TreeFolder{},
		RootFiles: []types.TreeFile{},
	}

	for i := range folders {
		f := &folders[i]
		nodes[f.ID] = &types.TreeFolder{
			ID:        f.ID,
			ParentID:  derefOr(f.ParentID, ""),
			Name:      f.Name,
			Path:      f.Path,
			Depth:     f.Depth,
			SortOrder: f.SortOrder,
		}
	}

	// depth 升序遍历保证父节点先于子节点入树
	for i := range folders {
		f := &folders[i]
		node := nodes[f.ID]

		if f.ParentID == nil {
			resp.Folders = append(resp.Folders, node)

			continue
		}

		if parent, ok := nodes[*f.ParentID]; ok {
			parent.Children = append(parent.Children, node)
		} else {
			// 父已消失：提升到根级
			resp.Folders = append(resp.Folders, node)
		}
	}

	urlTTL := s.downloadTTL(link)

	var totalSize int64

	for i := range files {
		f := &files[i]
		tf := s.toTreeFile(ctx, f, link, urlTTL)
		totalSize += f.Size

		if f.FolderID == nil {
			resp.RootFiles = append(resp.RootFiles, tf)

			continue
		}

		if parent, ok := nodes[*f.FolderID]; ok {
			parent.Files = append(parent.Files, tf)
		} else {
			// 所属文件夹已消失：提升到根级
			resp.RootFiles = append(resp.RootFiles, tf)
		}
	}

	sortTree(resp.Folders)
	sortFiles(resp.RootFiles)

	resp.Stats = types.TreeStats{
		FolderCount: len(folders),
		FileCount:   len(files),
		TotalSize:   totalSize,
	}

	return resp, nil
}

// downloadTTL 计算下载 URL 的签名时长：
//   - 链接无过期时间：返回 0，使用永久公开 URL；
//   - 有过期时间：取 配置上限 与 剩余生命期 的较小值.
func (s *TreeService) downloadTTL(link *model.Link) time.Duration {
	if link.ExpiresAt == nil {
		return 0
	}

	maxTTL := time.Duration(configs.GetConfig().Plan.SignedURLTTLSeconds) * time.Second

	remaining := time.Until(*link.ExpiresAt)
	if remaining <= 0 {
		return time.Second
	}

	if remaining < maxTTL {
		return remaining
	}

	return maxTTL
}

// toTreeFile 转换文件行并生成下载 URL.
func (s *TreeService) toTreeFile(ctx context.Context, f *model.File, link *model.Link, ttl time.Duration) types.TreeFile {
	tf := types.TreeFile{
		ID:            f.ID,
		FolderID:      derefOr(f.FolderID, ""),
		FileName:      f.FileName,
		Size:          f.Size,
		ContentType:   f.ContentType,
		DownloadCount: f.DownloadCount,
		SortOrder:     f.SortOrder,
		UploadedAt:    f.CreatedAt,
	}

	if s.store == nil || f.ObjectKey == "" {
		return tf
	}

	if ttl == 0 {
		tf.DownloadURL = s.store.PublicURL(f.ObjectKey)

		return tf
	}

	u, err := s.store.SignedURL(ctx, f.ObjectKey, ttl)
	if err != nil {
		nlog.Logger().Warn().Err(err).Str("file_id", f.ID).Msg("presign download url failed")

		return tf
	}

	tf.DownloadURL = u

	return tf
}

// RecordDownload 下载计数 +1（幂等性由调用方控制）.
func (s *TreeService) RecordDownload(ctx context.Context, link *model.Link, fileID string) error {
	if s.db == nil {
		return errors.New("db not initialized")
	}

	var file model.File
	if err := s.db.WithContext(ctx).
		Where("id = ? AND link_id = ?", fileID, link.ID).
		First(&file).Error; err != nil {
		return fmt.Errorf("load file %s: %w", fileID, err)
	}

	if err := s.db.WithContext(ctx).Model(&model.File{}).
		Where("id = ?", fileID).
		Update("download_count", gorm.Expr("download_count + 1")).Error; err != nil {
		return fmt.Errorf("increment download count %s: %w", fileID, err)
	}

	if configs.GetConfig().Events.File.Downloaded {
		publishEvent(&s.clients, queue.TopicFileDownloaded, queue.FileDownloadedPayload{
			File: queue.FileRef{
				FileID:    file.ID,
				LinkID:    link.ID,
				FileName:  file.FileName,
				ObjectKey: file.ObjectKey,
				Size:      file.Size,
			},
		})
	}

	return nil
}

// sortTree 递归排序文件夹树的每一层.
func sortTree(folders []*types.TreeFolder) {
	sort.SliceStable(folders, func(i, j int) bool {
		if folders[i].SortOrder != folders[j].SortOrder {
			return folders[i].SortOrder < folders[j].SortOrder
		}

		return folders[i].Name < folders[j].Name
	})

	for _, f := range folders {
		sortTree(f.Children)
		sortFiles(f.Files)
	}
}

// sortFiles 按 (sort_order, file_name) 排序.
func sortFiles(files []types.TreeFile) {
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].SortOrder != files[j].SortOrder {
			return files[i].SortOrder < files[j].SortOrder
		}

		return files[i].FileName < files[j].FileName
	})
}
