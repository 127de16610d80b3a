package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/yeisme/linkvault/pkg/configs"
	"github.com/yeisme/linkvault/pkg/internal/model"
	"github.com/yeisme/linkvault/pkg/internal/types"
)

// QuotaService 查询所有者套餐额度与剩余空间.
type QuotaService struct {
	clients
}

// NewQuotaService 创建并返回一个新的 QuotaService 实例.
func NewQuotaService(c context.Context) *QuotaService {
	return &QuotaService{clients: newClients(c)}
}

// CheckStorageAvailable 判断所有者剩余空间是否容得下 requiredBytes.
// requiredBytes 为 0 时仅返回当前用量信息.
func (s *QuotaService) CheckStorageAvailable(ctx context.Context, userID string, requiredBytes int64) (*types.StorageAvailableResponse, error) {
	if s.db == nil {
		return nil, errors.New("db not initialized")
	}

	var user model.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}

	limit := configs.GetConfig().Plan.StorageLimit(user.Plan)

	available := limit - user.StorageUsed
	if available < 0 {
		available = 0
	}

	return &types.StorageAvailableResponse{
		HasSpace:       user.StorageUsed+requiredBytes <= limit,
		CurrentUsage:   user.StorageUsed,
		StorageLimit:   limit,
		AvailableSpace: available,
	}, nil
}
