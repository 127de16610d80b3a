package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yeisme/linkvault/pkg/internal/model"
	"github.com/yeisme/linkvault/pkg/queue"
)

// StatsService 维护链接与所有者上的去范化计数.
//
// 所有增减都在数据库端以单条 UPDATE 表达式完成，保证并发上传下的原子性；
// 减量通过 CASE WHEN 钳制在 0，避免补偿删除与重复删除把计数推成负数.
type StatsService struct {
	clients
}

// NewStatsService 创建并返回一个新的 StatsService 实例.
func NewStatsService(c context.Context) *StatsService {
	return &StatsService{clients: newClients(c)}
}

// OnFileAdded 文件记账成功后调用：链接计数 +1/+size，所有者已用空间 +size.
func (s *StatsService) OnFileAdded(ctx context.Context, link *model.Link, size int64) error {
	if s.db == nil {
		return errors.New("db not initialized")
	}

	if err := s.db.WithContext(ctx).Model(&model.Link{}).
		Where("id = ?", link.ID).
		Updates(map[string]any{
			"total_files": gorm.Expr("total_files + 1"),
			"total_size":  gorm.Expr("total_size + ?", size),
		}).Error; err != nil {
		return fmt.Errorf("increment link stats %s: %w", link.ID, err)
	}

	if err := s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", link.UserID).
		Update("storage_used", gorm.Expr("storage_used + ?", size)).Error; err != nil {
		return fmt.Errorf("increment owner storage %s: %w", link.UserID, err)
	}

	return nil
}

// OnFileRemoved 文件删除后调用：链接计数 -1/-size，所有者已用空间 -size，全部钳制在 0.
func (s *StatsService) OnFileRemoved(ctx context.Context, link *model.Link, size int64) error {
	if s.db == nil {
		return errors.New("db not initialized")
	}

	if err := s.db.WithContext(ctx).Model(&model.Link{}).
		Where("id = ?", link.ID).
		Updates(map[string]any{
			"total_files": gorm.Expr("CASE WHEN total_files >= 1 THEN total_files - 1 ELSE 0 END"),
			"total_size":  gorm.Expr("CASE WHEN total_size >= ? THEN total_size - ? ELSE 0 END", size, size),
		}).Error; err != nil {
		return fmt.Errorf("decrement link stats %s: %w", link.ID, err)
	}

	if err := s.decrementOwnerStorage(ctx, link.UserID, size); err != nil {
		return err
	}

	return nil
}

// OnFilesRemoved 批量删除后的一次性减量（n 个文件合计 total 字节）.
func (s *StatsService) OnFilesRemoved(ctx context.Context, link *model.Link, n int64, total int64) error {
	if s.db == nil {
		return errors.New("db not initialized")
	}

	if n <= 0 && total <= 0 {
		return nil
	}

	if err := s.db.WithContext(ctx).Model(&model.Link{}).
		Where("id = ?", link.ID).
		Updates(map[string]any{
			"total_files": gorm.Expr("CASE WHEN total_files >= ? THEN total_files - ? ELSE 0 END", n, n),
			"total_size":  gorm.Expr("CASE WHEN total_size >= ? THEN total_size - ? ELSE 0 END", total, total),
		}).Error; err != nil {
		return fmt.Errorf("decrement link stats %s: %w", link.ID, err)
	}

	return s.decrementOwnerStorage(ctx, link.UserID, total)
}

// OnUploadCompleted 批次完成后调用：上传次数 +1.
func (s *StatsService) OnUploadCompleted(ctx context.Context, linkID string) error {
	if s.db == nil {
		return errors.New("db not initialized")
	}

	if err := s.db.WithContext(ctx).Model(&model.Link{}).
		Where("id = ?", linkID).
		Update("total_uploads", gorm.Expr("total_uploads + 1")).Error; err != nil {
		return fmt.Errorf("increment link uploads %s: %w", linkID, err)
	}

	return nil
}

// decrementOwnerStorage 所有者已用空间减量，钳制在 0.
func (s *StatsService) decrementOwnerStorage(ctx context.Context, userID string, size int64) error {
	if err := s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("storage_used",
			gorm.Expr("CASE WHEN storage_used >= ? THEN storage_used - ? ELSE 0 END", size, size)).
		Error; err != nil {
		return fmt.Errorf("decrement owner storage %s: %w", userID, err)
	}

	return nil
}

// RecomputeLinkStats 从文件表全量重算链接计数，修复任何漂移.
// 只统计状态为 completed 且未软删的文件；经批次关联归属，
// 使只带 workspace_id 的文件（generated 链接上传）也计入其来源链接.
func (s *StatsService) RecomputeLinkStats(ctx context.Context, linkID string) (fileCount, totalSize int64, err error) {
	if s.db == nil {
		return 0, 0, errors.New("db not initialized")
	}

	type agg struct {
		Count int64
		Total int64
	}

	var a agg
	if err := s.db.WithContext(ctx).Model(&model.File{}).
		Select("COUNT(*) AS count, COALESCE(SUM(files.size), 0) AS total").
		Joins("JOIN batches ON batches.id = files.batch_id").
		Where("batches.link_id = ? AND files.status = ?", linkID, model.FileStatusCompleted).
		Scan(&a).Error; err != nil {
		return 0, 0, fmt.Errorf("aggregate files for %s: %w", linkID, err)
	}

	var link model.Link
	if err := s.db.WithContext(ctx).Where("id = ?", linkID).First(&link).Error; err != nil {
		return 0, 0, fmt.Errorf("load link %s: %w", linkID, err)
	}

	if err := s.db.WithContext(ctx).Model(&model.Link{}).
		Where("id = ?", linkID).
		Updates(map[string]any{
			"total_files": a.Count,
			"total_size":  a.Total,
		}).Error; err != nil {
		return 0, 0, fmt.Errorf("write recomputed stats %s: %w", linkID, err)
	}

	publishEvent(&s.clients, queue.TopicLinkStatsSynced, queue.LinkStatsSyncedPayload{
		Link:      linkRef(&link),
		FileCount: a.Count,
		TotalSize: a.Total,
	})

	return a.Count, a.Total, nil
}

// RecomputeAllLinkStats 对全部链接重算计数，返回处理条数.
// 由夜间定时任务调用.
func (s *StatsService) RecomputeAllLinkStats(ctx context.Context) (int, error) {
	if s.db == nil {
		return 0, errors.New("db not initialized")
	}

	var ids []string
	if err := s.db.WithContext(ctx).Model(&model.Link{}).
		Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("list link ids: %w", err)
	}

	processed := 0

	for _, id := range ids {
		if _, _, err := s.RecomputeLinkStats(ctx, id); err != nil {
			return processed, err
		}

		processed++
	}

	return processed, nil
}
