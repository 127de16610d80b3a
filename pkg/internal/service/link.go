package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yeisme/linkvault/pkg/configs"
	"github.com/yeisme/linkvault/pkg/internal/model"
	"github.com/yeisme/linkvault/pkg/internal/types"
	nlog "github.com/yeisme/linkvault/pkg/log"
	"github.com/yeisme/linkvault/pkg/queue"
)

// 缓存键与 TTL 策略常量：集中管理，避免魔数.
const (
	linkSlugKeyPrefix = "links:slug:v1:"

	linkSlugCacheTTL = 10 * time.Minute // slug→linkID 映射缓存时长
)

// ErrLinkNotFound 按路径段未找到可用链接.
var ErrLinkNotFound = errors.New("link not found")

// LinkService 负责链接解析与访问控制.
type LinkService struct {
	clients
}

// NewLinkService 创建并返回一个新的 LinkService 实例.
func NewLinkService(c context.Context) *LinkService {
	return &LinkService{clients: newClients(c)}
}

// makeSlugKey 构建 slug 路径的缓存键.
func makeSlugKey(segments []string) string {
	return linkSlugKeyPrefix + strings.Join(segments, "/")
}

// ResolveSlugPath 按路径段解析链接：
//   - 1 段：base 类型链接，slug 精确匹配；
//   - 2 段：优先 custom 类型（slug=段1 且 topic=段2），未命中回退
//     generated 类型（slug=段2，段1 为所有者的路径前缀）.
//
// 只返回未软删的链接；停用与过期留给校验层分类拒绝.
func (s *LinkService) ResolveSlugPath(ctx context.Context, segments []string) (*model.Link, error) {
	if len(segments) == 0 || len(segments) > 2 {
		return nil, fmt.Errorf("expect 1 or 2 path segments, got %d", len(segments))
	}

	for i, seg := range segments {
		if strings.TrimSpace(seg) == "" {
			return nil, fmt.Errorf("empty path segment at %d", i)
		}
	}

	if s.db == nil {
		return nil, errors.New("db not initialized")
	}

	// 优先缓存：slug 路径到链接 ID 的映射，计数等易变字段仍回源 DB
	if id, ok := s.cachedLinkID(ctx, segments); ok {
		var link model.Link
		if err := s.db.WithContext(ctx).Where("id = ?", id).First(&link).Error; err == nil {
			return &link, nil
		}
		// 缓存指向的链接已消失，清掉重查
		_ = s.kvc.Delete(ctx, makeSlugKey(segments))
	}

	link, err := s.resolveFromDB(ctx, segments)
	if err != nil {
		return nil, err
	}

	s.cacheLinkID(ctx, segments, link.ID)

	if configs.GetConfig().Events.Link.Resolved {
		publishEvent(&s.clients, queue.TopicLinkResolved, queue.LinkResolvedPayload{
			Link:     linkRef(link),
			Segments: segments,
		})
	}

	return link, nil
}

// resolveFromDB 按优先级从数据库解析链接.
func (s *LinkService) resolveFromDB(ctx context.Context, segments []string) (*model.Link, error) {
	var link model.Link

	if len(segments) == 1 {
		err := s.db.WithContext(ctx).
			Where("slug = ? AND type = ?", segments[0], model.LinkTypeBase).
			First(&link).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		} else if err != nil {
			return nil, fmt.Errorf("resolve base link: %w", err)
		}

		return &link, nil
	}

	// 两段：custom 优先于 generated
	err := s.db.WithContext(ctx).
		Where("slug = ? AND topic = ? AND type = ?", segments[0], segments[1], model.LinkTypeCustom).
		First(&link).Error
	if err == nil {
		return &link, nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("resolve custom link: %w", err)
	}

	err = s.db.WithContext(ctx).
		Where("slug = ? AND type = ?", segments[1], model.LinkTypeGenerated).
		First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLinkNotFound
	} else if err != nil {
		return nil, fmt.Errorf("resolve generated link: %w", err)
	}

	return &link, nil
}

// cachedLinkID 读取 slug 路径缓存，未命中或 KV 未启用返回 false.
func (s *LinkService) cachedLinkID(ctx context.Context, segments []string) (string, bool) {
	if s.kvc == nil {
		return "", false
	}

	b, err := s.kvc.Get(ctx, makeSlugKey(segments))
	if err != nil || len(b) == 0 {
		return "", false
	}

	return string(b), true
}

// cacheLinkID 写入 slug 路径缓存，失败只记日志.
func (s *LinkService) cacheLinkID(ctx context.Context, segments []string, linkID string) {
	if s.kvc == nil {
		return
	}

	if err := s.kvc.Set(ctx, makeSlugKey(segments), []byte(linkID), linkSlugCacheTTL); err != nil {
		nlog.Logger().Warn().Err(err).Str("link_id", linkID).Msg("cache slug path failed")
	}
}

// GetByID 按 ID 加载链接.
func (s *LinkService) GetByID(ctx context.Context, linkID string) (*model.Link, error) {
	if s.db == nil {
		return nil, errors.New("db not initialized")
	}

	var link model.Link
	if err := s.db.WithContext(ctx).Where("id = ?", linkID).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}

		return nil, fmt.Errorf("load link %s: %w", linkID, err)
	}

	return &link, nil
}

// GetOwner 加载链接所有者.
func (s *LinkService) GetOwner(ctx context.Context, link *model.Link) (*model.User, error) {
	if s.db == nil {
		return nil, errors.New("db not initialized")
	}

	var user model.User
	if err := s.db.WithContext(ctx).Where("id = ?", link.UserID).First(&user).Error; err != nil {
		return nil, fmt.Errorf("load link owner %s: %w", link.UserID, err)
	}

	return &user, nil
}

// Resolve 解析链接并组装对外响应.
func (s *LinkService) Resolve(ctx context.Context, segments []string) (*types.ResolveLinkResponse, error) {
	link, err := s.ResolveSlugPath(ctx, segments)
	if err != nil {
		return nil, err
	}

	owner, err := s.GetOwner(ctx, link)
	if err != nil {
		return nil, err
	}

	limit := configs.GetConfig().Plan.StorageLimit(owner.Plan)

	return &types.ResolveLinkResponse{
		Link: toLinkInfo(link),
		Owner: types.LinkOwnerInfo{
			UserID:       owner.ID,
			Plan:         owner.Plan,
			StorageUsed:  owner.StorageUsed,
			StorageLimit: limit,
		},
	}, nil
}

// ValidatePassword 校验链接密码；无密码的链接任何输入都通过.
func (s *LinkService) ValidatePassword(ctx context.Context, linkID, password string) (bool, error) {
	if s.db == nil {
		return false, errors.New("db not initialized")
	}

	var link model.Link
	if err := s.db.WithContext(ctx).Where("id = ?", linkID).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrLinkNotFound
		}

		return false, fmt.Errorf("load link %s: %w", linkID, err)
	}

	if link.PasswordHash == "" {
		return true, nil
	}

	return hashPassword(password) == link.PasswordHash, nil
}

// DeactivateExpired 将所有已过期但仍激活的链接置为停用，返回处理条数.
// 由定时任务调用.
func (s *LinkService) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	if s.db == nil {
		return 0, errors.New("db not initialized")
	}

	var expired []model.Link
	if err := s.db.WithContext(ctx).
		Where("is_active = ? AND expires_at IS NOT NULL AND expires_at <= ?", true, now).
		Find(&expired).Error; err != nil {
		return 0, fmt.Errorf("list expired links: %w", err)
	}

	if len(expired) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(expired))
	for i := range expired {
		ids = append(ids, expired[i].ID)
	}

	res := s.db.WithContext(ctx).Model(&model.Link{}).
		Where("id IN ?", ids).
		Update("is_active", false)
	if res.Error != nil {
		return 0, fmt.Errorf("deactivate expired links: %w", res.Error)
	}

	if configs.GetConfig().Events.Link.Expired {
		for i := range expired {
			publishEvent(&s.clients, queue.TopicLinkExpired, queue.LinkExpiredPayload{
				Link:      linkRef(&expired[i]),
				ExpiresAt: expired[i].ExpiresAt,
				Reason:    "expired",
			})
		}
	}

	return res.RowsAffected, nil
}

// toLinkInfo 转换为对外的 LinkInfo 结构，剥除敏感字段.
func toLinkInfo(link *model.Link) types.LinkInfo {
	allowed, err := link.AllowedTypes()
	if err != nil {
		nlog.Logger().Warn().Err(err).Str("link_id", link.ID).Msg("parse allowed types failed")
	}

	return types.LinkInfo{
		ID:           link.ID,
		Slug:         link.Slug,
		Topic:        link.Topic,
		Type:         string(link.Type),
		IsActive:     link.IsActive,
		ExpiresAt:    link.ExpiresAt,
		HasPassword:  link.PasswordHash != "",
		RequireEmail: link.RequireEmail,
		MaxFiles:     link.MaxFiles,
		MaxFileSize:  link.MaxFileSize,
		AllowedTypes: allowed,
		TotalFiles:   link.TotalFiles,
		TotalSize:    link.TotalSize,
		TotalUploads: link.TotalUploads,
	}
}

// linkRef 构建事件负载中的链接引用.
func linkRef(link *model.Link) queue.LinkRef {
	return queue.LinkRef{
		LinkID: link.ID,
		UserID: link.UserID,
		Slug:   link.Slug,
		Topic:  link.Topic,
		Type:   string(link.Type),
	}
}
