package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yeisme/linkvault/pkg/configs"
	"github.com/yeisme/linkvault/pkg/internal/model"
	"github.com/yeisme/linkvault/pkg/internal/types"
	"github.com/yeisme/linkvault/pkg/queue"
	"github.com/yeisme/linkvault/pkg/rule"
)

// RejectReason 上传被拒的机器可读原因.
type RejectReason string

const (
	RejectNotFound             RejectReason = "link_not_found"
	RejectLinkDisabled         RejectReason = "link_disabled"
	RejectLinkExpired          RejectReason = "link_expired"
	RejectFileQuotaExceeded    RejectReason = "file_quota_exceeded"
	RejectPasswordRequired     RejectReason = "password_required"
	RejectPasswordInvalid      RejectReason = "password_invalid"
	RejectEmailRequired        RejectReason = "email_required"
	RejectEmailInvalid         RejectReason = "email_invalid"
	RejectFileTooLarge         RejectReason = "file_too_large"
	RejectFileTypeNotAllowed   RejectReason = "file_type_not_allowed"
	RejectStorageQuotaExceeded RejectReason = "storage_quota_exceeded"
)

// Rejection 校验失败的结构化结果，Message 面向上传者展示.
type Rejection struct {
	Reason  RejectReason `json:"reason"`
	Message string       `json:"message"`
}

// Error 实现 error 接口，便于在服务间传递.
func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Reason, r.Message)
}

// UploadCandidate 待校验的单个文件描述.
type UploadCandidate struct {
	FileName    string
	Size        int64
	ContentType string
}

// UploadRequestInfo 上传请求的校验输入.
type UploadRequestInfo struct {
	Files    []UploadCandidate
	Password string
	Email    string
}

// ValidationService 执行上传前的约束校验.
// 校验按固定顺序执行，返回第一条未通过的拒绝原因：
// 存在性 → 激活 → 过期 → 文件数配额 → 密码 → 邮箱 → 单文件大小 → 文件类型 → 所有者存储空间.
type ValidationService struct {
	clients
}

// NewValidationService 创建并返回一个新的 ValidationService 实例.
func NewValidationService(c context.Context) *ValidationService {
	return &ValidationService{clients: newClients(c)}
}

// ValidateUpload 对一批待上传文件执行全部约束校验.
// 返回 (nil, nil) 表示放行；返回 *Rejection 表示拒绝（非内部错误）.
func (s *ValidationService) ValidateUpload(ctx context.Context, link *model.Link, req *UploadRequestInfo) (*Rejection, error) {
	if link == nil {
		return &Rejection{Reason: RejectNotFound, Message: "链接不存在"}, nil
	}

	if !link.IsActive {
		return &Rejection{Reason: RejectLinkDisabled, Message: "链接已停用"}, nil
	}

	if link.Expired(time.Now().UTC()) {
		return &Rejection{Reason: RejectLinkExpired, Message: "链接已过期"}, nil
	}

	// 文件数配额：已有计数 + 本次数量
	if link.MaxFiles > 0 && link.TotalFiles+int64(len(req.Files)) > link.MaxFiles {
		return &Rejection{
			Reason: RejectFileQuotaExceeded,
			Message: fmt.Sprintf("超出链接文件数限制（%d/%d）",
				link.TotalFiles+int64(len(req.Files)), link.MaxFiles),
		}, nil
	}

	if link.PasswordHash != "" {
		if req.Password == "" {
			return &Rejection{Reason: RejectPasswordRequired, Message: "该链接需要密码"}, nil
		}

		if hashPassword(req.Password) != link.PasswordHash {
			return &Rejection{Reason: RejectPasswordInvalid, Message: "密码不正确"}, nil
		}
	}

	email := strings.TrimSpace(req.Email)

	if link.RequireEmail && email == "" {
		return &Rejection{Reason: RejectEmailRequired, Message: "该链接要求填写邮箱"}, nil
	}

	if email != "" {
		if err := rule.ValidateVar(email, "email"); err != nil {
			return &Rejection{Reason: RejectEmailInvalid, Message: "邮箱格式不正确"}, nil
		}
	}

	maxFileSize := link.MaxFileSize
	if maxFileSize <= 0 {
		maxFileSize = configs.GetConfig().Plan.DefaultMaxFileSize
	}

	var totalSize int64

	for i := range req.Files {
		f := &req.Files[i]
		totalSize += f.Size

		if maxFileSize > 0 && f.Size > maxFileSize {
			return &Rejection{
				Reason: RejectFileTooLarge,
				Message: fmt.Sprintf("文件 %s 大小 %s 超出限制 %s",
					f.FileName, formatBytes(f.Size), formatBytes(maxFileSize)),
			}, nil
		}
	}

	allowed, err := link.AllowedTypes()
	if err != nil {
		return nil, fmt.Errorf("parse allowed types for %s: %w", link.ID, err)
	}

	if len(allowed) > 0 {
		for i := range req.Files {
			f := &req.Files[i]
			if !typeAllowed(allowed, f.FileName, f.ContentType) {
				return &Rejection{
					Reason:  RejectFileTypeNotAllowed,
					Message: fmt.Sprintf("文件 %s 的类型不被该链接接受", f.FileName),
				}, nil
			}
		}
	}

	// 所有者存储空间
	if rej, err := s.checkOwnerStorage(ctx, link, totalSize); err != nil {
		return nil, err
	} else if rej != nil {
		return rej, nil
	}

	return nil, nil
}

// checkOwnerStorage 校验所有者套餐剩余空间是否容得下本次上传.
func (s *ValidationService) checkOwnerStorage(ctx context.Context, link *model.Link, incoming int64) (*Rejection, error) {
	if s.db == nil {
		return nil, errors.New("db not initialized")
	}

	var user model.User
	if err := s.db.WithContext(ctx).Where("id = ?", link.UserID).First(&user).Error; err != nil {
		return nil, fmt.Errorf("load link owner %s: %w", link.UserID, err)
	}

	limit := configs.GetConfig().Plan.StorageLimit(user.Plan)
	if limit > 0 && user.StorageUsed+incoming > limit {
		if configs.GetConfig().Events.Link.QuotaExceeded {
			publishEvent(&s.clients, queue.TopicQuotaExceeded, queue.QuotaExceededPayload{
				UserID:       user.ID,
				LinkID:       link.ID,
				Requested:    incoming,
				CurrentUsage: user.StorageUsed,
				StorageLimit: limit,
			})
		}

		return &Rejection{
			Reason: RejectStorageQuotaExceeded,
			Message: fmt.Sprintf("空间不足：已用 %s / 上限 %s，本次需要 %s",
				formatBytes(user.StorageUsed), formatBytes(limit), formatBytes(incoming)),
		}, nil
	}

	return nil, nil
}

// typeAllowed 判断文件是否命中允许类型列表.
// 条目既可以是扩展名（".pdf" 或 "pdf"），也可以是 MIME 类型
// （"image/png"）或 MIME 前缀（"image/"）.
func typeAllowed(allowed []string, fileName, contentType string) bool {
	ext := strings.ToLower(strings.TrimPrefix(extOf(fileName), "."))
	ctype := strings.ToLower(contentType)

	for _, a := range allowed {
		entry := strings.ToLower(strings.TrimSpace(a))
		if entry == "" {
			continue
		}

		if strings.Contains(entry, "/") {
			if strings.HasSuffix(entry, "/") {
				if strings.HasPrefix(ctype, entry) {
					return true
				}
			} else if ctype == entry {
				return true
			}

			continue
		}

		if strings.TrimPrefix(entry, ".") == ext {
			return true
		}
	}

	return false
}

// extOf 返回文件名的扩展名（含点），无扩展名返回空串.
func extOf(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return ""
	}

	return name[idx:]
}

// formatBytes 以人类可读单位格式化字节数.
func formatBytes(n int64) string {
	switch {
	case n >= configs.GB:
		return fmt.Sprintf("%.1fGB", float64(n)/float64(configs.GB))
	case n >= configs.MB:
		return fmt.Sprintf("%.1fMB", float64(n)/float64(configs.MB))
	case n >= configs.KB:
		return fmt.Sprintf("%.1fKB", float64(n)/float64(configs.KB))
	default:
		return fmt.Sprintf("%dB", n)
	}
}

// ToItemFailure 将拒绝原因转换为批处理失败条目.
func (r *Rejection) ToItemFailure(itemID, itemName string) types.ItemFailure {
	return types.ItemFailure{ItemID: itemID, ItemName: itemName, Error: r.Message}
}
