package service

import (
	"context"
	"testing"

	"github.com/yeisme/linkvault/pkg/internal/model"
)

// TestOnFileAddedAndRemoved 增量记账后减量还原，所有者空间同步.
func TestOnFileAddedAndRemoved(t *testing.T) {
	setupPlanConfig(t)

	db := newTestDB(t)
	svc := &StatsService{clients: testClients(db, nil)}
	ctx := context.Background()

	seedUser(t, db, "u1", "free", 0)
	link := seedLink(t, db, "lk_1", "u1", "drop")

	if err := svc.OnFileAdded(ctx, link, 100); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := svc.OnFileAdded(ctx, link, 50); err != nil {
		t.Fatalf("add: %v", err)
	}

	var got model.Link
	_ = db.Where("id = ?", link.ID).First(&got).Error

	if got.TotalFiles != 2 || got.TotalSize != 150 {
		t.Fatalf("expected 2/150, got %d/%d", got.TotalFiles, got.TotalSize)
	}

	var owner model.User
	_ = db.Where("id = ?", "u1").First(&owner).Error

	if owner.StorageUsed != 150 {
		t.Fatalf("expected storage_used 150, got %d", owner.StorageUsed)
	}

	if err := svc.OnFileRemoved(ctx, link, 100); err != nil {
		t.Fatalf("remove: %v", err)
	}

	_ = db.Where("id = ?", link.ID).First(&got).Error
	_ = db.Where("id = ?", "u1").First(&owner).Error

	if got.TotalFiles != 1 || got.TotalSize != 50 || owner.StorageUsed != 50 {
		t.Errorf("after remove: files=%d size=%d used=%d", got.TotalFiles, got.TotalSize, owner.StorageUsed)
	}
}

// TestOnFilesRemovedFloorsAtZero 减量超过现值时钳制为 0 而不是负数.
func TestOnFilesRemovedFloorsAtZero(t *testing.T) {
	setupPlanConfig(t)

	db := newTestDB(t)
	svc := &StatsService{clients: testClients(db, nil)}
	ctx := context.Background()

	seedUser(t, db, "u1", "free", 10)
	link := seedLink(t, db, "lk_1", "u1", "drop")
	_ = db.Model(&model.Link{}).Where("id = ?", link.ID).
		Updates(map[string]any{"total_files": 1, "total_size": 10}).Error

	if err := svc.OnFilesRemoved(ctx, link, 5, 100); err != nil {
		t.Fatalf("remove: %v", err)
	}

	var got model.Link
	_ = db.Where("id = ?", link.ID).First(&got).Error

	if got.TotalFiles != 0 || got.TotalSize != 0 {
		t.Errorf("expected clamp to zero, got files=%d size=%d", got.TotalFiles, got.TotalSize)
	}

	var owner model.User
	_ = db.Where("id = ?", "u1").First(&owner).Error

	if owner.StorageUsed != 0 {
		t.Errorf("expected owner clamp to zero, got %d", owner.StorageUsed)
	}
}

// TestOnFilesRemovedNoop 零减量不触发任何写入.
func TestOnFilesRemovedNoop(t *testing.T) {
	setupPlanConfig(t)

	db := newTestDB(t)
	svc := &StatsService{clients: testClients(db, nil)}

	seedUser(t, db, "u1", "free", 0)
	link := seedLink(t, db, "lk_1", "u1", "drop")

	if err := svc.OnFilesRemoved(context.Background(), link, 0, 0); err != nil {
		t.Fatalf("noop remove: %v", err)
	}
}

// TestRecomputeLinkStats 从文件表重算计数，修复漂移并忽略未完成文件.
func TestRecomputeLinkStats(t *testing.T) {
	setupPlanConfig(t)

	db := newTestDB(t)
	svc := &StatsService{clients: testClients(db, nil)}
	ctx := context.Background()

	seedUser(t, db, "u1", "free", 0)
	link := seedLink(t, db, "lk_1", "u1", "drop")

	// 人为制造漂移
	_ = db.Model(&model.Link{}).Where("id = ?", link.ID).
		Updates(map[string]any{"total_files": 99, "total_size": 9999}).Error

	seedBatch(t, db, "b1", link.ID)

	lid := link.ID
	files := []*model.File{
		{ID: "f_1", BatchID: "b1", LinkID: &lid, FileName: "a.txt", Size: 10, Status: model.FileStatusCompleted},
		{ID: "f_2", BatchID: "b1", LinkID: &lid, FileName: "b.txt", Size: 20, Status: model.FileStatusCompleted},
		{ID: "f_3", BatchID: "b1", LinkID: &lid, FileName: "c.txt", Size: 40, Status: model.FileStatusPending},
	}
	for _, f := range files {
		if err := db.Create(f).Error; err != nil {
			t.Fatalf("seed file: %v", err)
		}
	}

	count, total, err := svc.RecomputeLinkStats(ctx, link.ID)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}

	if count != 2 || total != 30 {
		t.Fatalf("expected 2/30, got %d/%d", count, total)
	}

	var got model.Link
	_ = db.Where("id = ?", link.ID).First(&got).Error

	if got.TotalFiles != 2 || got.TotalSize != 30 {
		t.Errorf("expected persisted 2/30, got %d/%d", got.TotalFiles, got.TotalSize)
	}
}

// TestRecomputeLinkStatsGeneratedLink generated 链接的文件只带 workspace_id，
// 重算须经批次归属，不得把增量计数清零.
func TestRecomputeLinkStatsGeneratedLink(t *testing.T) {
	setupPlanConfig(t)

	db := newTestDB(t)
	svc := &StatsService{clients: testClients(db, nil)}
	ctx := context.Background()

	seedUser(t, db, "u1", "free", 0)

	link := &model.Link{
		ID: "lk_gen", UserID: "u1", Slug: "gen",
		Type: model.LinkTypeGenerated, IsActive: true,
	}
	if err := db.Create(link).Error; err != nil {
		t.Fatalf("seed link: %v", err)
	}

	seedBatch(t, db, "b1", link.ID)

	uid := "u1"
	file := &model.File{
		ID: "f_1", BatchID: "b1", WorkspaceID: &uid,
		FileName: "a.txt", Size: 5, Status: model.FileStatusCompleted,
	}
	if err := db.Create(file).Error; err != nil {
		t.Fatalf("seed file: %v", err)
	}

	if err := svc.OnFileAdded(ctx, link, 5); err != nil {
		t.Fatalf("add: %v", err)
	}

	count, total, err := svc.RecomputeLinkStats(ctx, link.ID)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}

	// 重算结果与增量维护值一致
	if count != 1 || total != 5 {
		t.Fatalf("expected 1/5 after recompute, got %d/%d", count, total)
	}

	var got model.Link
	_ = db.Where("id = ?", link.ID).First(&got).Error

	if got.TotalFiles != 1 || got.TotalSize != 5 {
		t.Errorf("recompute must not reset generated-link stats, got %d/%d",
			got.TotalFiles, got.TotalSize)
	}
}

// TestRecomputeAllLinkStats 全量重算覆盖所有链接.
func TestRecomputeAllLinkStats(t *testing.T) {
	setupPlanConfig(t)

	db := newTestDB(t)
	svc := &StatsService{clients: testClients(db, nil)}
	ctx := context.Background()

	seedUser(t, db, "u1", "free", 0)
	a := seedLink(t, db, "lk_a", "u1", "a")
	seedLink(t, db, "lk_b", "u1", "b")
	seedBatch(t, db, "b1", a.ID)

	aid := a.ID
	if err := db.Create(&model.File{
		ID: "f_1", BatchID: "b1", LinkID: &aid,
		FileName: "a.txt", Size: 7, Status: model.FileStatusCompleted,
	}).Error; err != nil {
		t.Fatalf("seed file: %v", err)
	}

	processed, err := svc.RecomputeAllLinkStats(ctx)
	if err != nil {
		t.Fatalf("recompute all: %v", err)
	}

	if processed != 2 {
		t.Fatalf("expected 2 links processed, got %d", processed)
	}

	var got model.Link
	_ = db.Where("id = ?", a.ID).First(&got).Error

	if got.TotalFiles != 1 || got.TotalSize != 7 {
		t.Errorf("expected 1/7, got %d/%d", got.TotalFiles, got.TotalSize)
	}
}
