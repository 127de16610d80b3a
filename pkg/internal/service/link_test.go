package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yeisme/linkvault/pkg/configs"
	"github.com/yeisme/linkvault/pkg/internal/model"
)

// TestResolveSlugPathBase 单段路径按 base 类型精确匹配.
func TestResolveSlugPathBase(t *testing.T) {
	setupPlanConfig(t)

	db := newTestDB(t)
	svc := &LinkService{clients: testClients(db, nil)}
	ctx := context.Background()

	seedUser(t, db, "u1", "free", 0)
	seedLink(t, db, "lk_1", "u1", "drop")

	link, err := svc.ResolveSlugPath(ctx, []string{"drop"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if link.ID != "lk_1" {
		t.Errorf("expected lk_1, got %s", link.ID)
	}

	if _, err := svc.ResolveSlugPath(ctx, []string{"missing"}); !errors.Is(err, ErrLinkNotFound) {
		t.Errorf("expected ErrLinkNotFound, got %v", err)
	}
}

// TestResolveSlugPathCustomOverGenerated 两段路径 custom 优先，未命中回退 generated.
func TestResolveSlugPathCustomOverGenerated(t *testing.T) {
	setupPlanConfig(t)

	db := newTestDB(t)
	svc := &LinkService{clients: testClients(db, nil)}
	ctx := context.Background()

	seedUser(t, db, "u1", "free", 0)

	custom := &model.Link{
		ID: "lk_custom", UserID: "u1", Slug: "team", Topic: "photos",
		Type: model.LinkTypeCustom, IsActive: true,
	}
	generated := &model.Link{
		ID: "lk_gen", UserID: "u1", Slug: "photos",
		Type: model.LinkTypeGenerated, IsActive: true,
	}

	for _, l := range []*model.Link{custom, generated} {
		if err := db.Create(l).Error; err != nil {
			t.Fatalf("seed link: %v", err)
		}
	}

	// custom 命中
	link, err := svc.ResolveSlugPath(ctx, []string{"team", "photos"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if link.ID != "lk_custom" {
		t.Errorf("expected custom link to win, got %s", link.ID)
	}

	// custom 未命中时回退 generated（段 2 为 slug）
	link, err = svc.ResolveSlugPath(ctx, []string{"alice", "photos"})
	if err != nil {
		t.Fatalf("resolve fallback: %v", err)
	}

	if link.ID != "lk_gen" {
		t.Errorf("expected generated fallback, got %s", link.ID)
	}

	if _, err := svc.ResolveSlugPath(ctx, []string{"alice", "nothing"}); !errors.Is(err, ErrLinkNotFound) {
		t.Errorf("expected ErrLinkNotFound, got %v", err)
	}
}

// TestResolveSlugPathBadSegments 路径段数量与空段校验.
func TestResolveSlugPathBadSegments(t *testing.T) {
	setupPlanConfig(t)

	svc := &LinkService{clients: testClients(newTestDB(t), nil)}
	ctx := context.Background()

	if _, err := svc.ResolveSlugPath(ctx, nil); err == nil {
		t.Error("expected error for empty segments")
	}

	if _, err := svc.ResolveSlugPath(ctx, []string{"a", "b", "c"}); err == nil {
		t.Error("expected error for 3 segments")
	}

	if _, err := svc.ResolveSlugPath(ctx, []string{"a", "  "}); err == nil {
		t.Error("expected error for blank segment")
	}
}

// TestResolve 组装对外响应：所有者套餐与存储额度一并返回.
func TestResolve(t *testing.T) {
	setupPlanConfig(t)

	db := newTestDB(t)
	svc := &LinkService{clients: testClients(db, nil)}
	ctx := context.Background()

	seedUser(t, db, "u1", "free", 123)
	link := seedLink(t, db, "lk_1", "u1", "drop")
	link.PasswordHash = hashPassword("pw")
	_ = db.Save(link).Error

	resp, err := svc.Resolve(ctx, []string{"drop"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if !resp.Link.HasPassword {
		t.Error("expected has_password true")
	}

	if resp.Owner.Plan != "free" || resp.Owner.StorageUsed != 123 {
		t.Errorf("unexpected owner info: %+v", resp.Owner)
	}

	if resp.Owner.StorageLimit != 2*configs.GB {
		t.Errorf("expected free plan limit 2GB, got %d", resp.Owner.StorageLimit)
	}
}

// TestValidatePassword 无密码链接任何输入都通过，有密码链接按哈希比对.
func TestValidatePassword(t *testing.T) {
	setupPlanConfig(t)

	db := newTestDB(t)
	svc := &LinkService{clients: testClients(db, nil)}
	ctx := context.Background()

	seedUser(t, db, "u1", "free", 0)
	seedLink(t, db, "lk_open", "u1", "open")

	locked := &model.Link{
		ID: "lk_locked", UserID: "u1", Slug: "locked",
		Type: model.LinkTypeBase, IsActive: true,
		PasswordHash: hashPassword("secret"),
	}
	if err := db.Create(locked).Error; err != nil {
		t.Fatalf("seed link: %v", err)
	}

	ok, err := svc.ValidatePassword(ctx, "lk_open", "anything")
	if err != nil || !ok {
		t.Errorf("open link should accept any input, got ok=%v err=%v", ok, err)
	}

	ok, _ = svc.ValidatePassword(ctx, "lk_locked", "wrong")
	if ok {
		t.Error("wrong password should fail")
	}

	ok, _ = svc.ValidatePassword(ctx, "lk_locked", "secret")
	if !ok {
		t.Error("correct password should pass")
	}

	if _, err := svc.ValidatePassword(ctx, "lk_missing", "x"); !errors.Is(err, ErrLinkNotFound) {
		t.Errorf("expected ErrLinkNotFound, got %v", err)
	}
}

// TestDeactivateExpired 只停用已过期且仍激活的链接.
func TestDeactivateExpired(t *testing.T) {
	setupPlanConfig(t)

	db := newTestDB(t)
	svc := &LinkService{clients: testClients(db, nil)}
	ctx := context.Background()

	seedUser(t, db, "u1", "free", 0)

	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	expired := &model.Link{
		ID: "lk_expired", UserID: "u1", Slug: "old",
		Type: model.LinkTypeBase, IsActive: true, ExpiresAt: &past,
	}
	alive := &model.Link{
		ID: "lk_alive", UserID: "u1", Slug: "new",
		Type: model.LinkTypeBase, IsActive: true, ExpiresAt: &future,
	}
	forever := seedLink(t, db, "lk_forever", "u1", "forever")

	for _, l := range []*model.Link{expired, alive} {
		if err := db.Create(l).Error; err != nil {
			t.Fatalf("seed link: %v", err)
		}
	}

	n, err := svc.DeactivateExpired(ctx, now)
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	if n != 1 {
		t.Fatalf("expected 1 deactivated, got %d", n)
	}

	var got model.Link
	_ = db.Where("id = ?", "lk_expired").First(&got).Error

	if got.IsActive {
		t.Error("expired link should be inactive")
	}

	_ = db.Where("id = ?", "lk_alive").First(&got).Error
	if !got.IsActive {
		t.Error("future link should stay active")
	}

	_ = db.Where("id = ?", forever.ID).First(&got).Error
	if !got.IsActive {
		t.Error("non-expiring link should stay active")
	}
}
