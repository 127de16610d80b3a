package service

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/yeisme/linkvault/pkg/internal/model"
	"github.com/yeisme/linkvault/pkg/internal/types"
)

func newTestDeleteService(db *gorm.DB, store ObjectStore) *DeleteService {
	cl := testClients(db, store)

	return &DeleteService{clients: cl, stats: &StatsService{clients: cl}}
}

// TestBatchDeleteFile 删除单个文件：行软删、对象清理、计数回减.
func TestBatchDeleteFile(t *testing.T) {
	setupPlanConfig(t)

	db := newTestDB(t)
	store := newFakeObjectStore()
	store.objects["k/a"] = []byte("a")
	svc := newTestDeleteService(db, store)
	ctx := context.Background()

	seedUser(t, db, "u1", "free", 10)
	link := seedLink(t, db, "lk_1", "u1", "drop")
	_ = db.Model(&model.Link{}).Where("id = ?", link.ID).
		Updates(map[string]any{"total_files": 1, "total_size": 10}).Error

	lid := link.ID
	file := &model.File{
		ID: "f_1", BatchID: "b1", LinkID: &lid, FileName: "a.txt",
		Size: 10, ObjectKey: "k/a", Status: model.FileStatusCompleted,
	}
	if err := db.Create(file).Error; err != nil {
		t.Fatalf("seed file: %v", err)
	}

	resp, err := svc.BatchDelete(ctx, link, &types.BatchDeleteRequest{
		Items: []types.DeleteItem{{Kind: types.DeleteItemFile, ID: "f_1"}},
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}

	if resp.DeletedFiles != 1 || len(resp.FailedItems) != 0 {
		t.Fatalf("unexpected response: %+v", resp)
	}

	// 软删后普通查询不可见
	var count int64
	_ = db.Model(&model.File{}).Where("id = ?", "f_1").Count(&count).Error

	if count != 0 {
		t.Error("file row should be soft-deleted")
	}

	if _, ok := store.objects["k/a"]; ok {
		t.Error("object bytes should be removed")
	}

	var got model.Link
	_ = db.Where("id = ?", link.ID).First(&got).Error

	if got.TotalFiles != 0 || got.TotalSize != 0 {
		t.Errorf("expected stats decremented, got files=%d size=%d", got.TotalFiles, got.TotalSize)
	}

	var owner model.User
	_ = db.Where("id = ?", "u1").First(&owner).Error

	if owner.StorageUsed != 0 {
		t.Errorf("expected owner storage decremented, got %d", owner.StorageUsed)
	}
}

// TestBatchDeleteFolderSubtree 删除文件夹连带整棵子树与其中文件.
func TestBatchDeleteFolderSubtree(t *testing.T) {
	setupPlanConfig(t)

	db := newTestDB(t)
	store := newFakeObjectStore()
	store.objects["k/a"] = []byte("a")
	store.objects["k/b"] = []byte("b")
	svc := newTestDeleteService(db, store)
	ctx := context.Background()

	seedUser(t, db, "u1", "free", 30)
	link := seedLink(t, db, "lk_1", "u1", "drop")
	lid := link.ID
	_ = db.Model(&model.Link{}).Where("id = ?", link.ID).
		Updates(map[string]any{"total_files": 3, "total_size": 30}).Error

	root := &model.Folder{ID: "d_root", LinkID: &lid, Name: "root", Path: "root", Depth: 0}
	rootID := root.ID
	sub := &model.Folder{ID: "d_sub", LinkID: &lid, ParentID: &rootID, Name: "sub", Path: "root/sub", Depth: 1}

	for _, f := range []*model.Folder{root, sub} {
		if err := db.Create(f).Error; err != nil {
			t.Fatalf("seed folder: %v", err)
		}
	}

	subID := sub.ID
	files := []*model.File{
		{ID: "f_a", BatchID: "b1", LinkID: &lid, FolderID: &rootID, FileName: "a.txt", Size: 10, ObjectKey: "k/a", Status: model.FileStatusCompleted},
		{ID: "f_b", BatchID: "b1", LinkID: &lid, FolderID: &subID, FileName: "b.txt", Size: 10, ObjectKey: "k/b", Status: model.FileStatusCompleted},
		{ID: "f_out", BatchID: "b1", LinkID: &lid, FileName: "out.txt", Size: 10, ObjectKey: "k/out", Status: model.FileStatusCompleted},
	}
	for _, f := range files {
		if err := db.Create(f).Error; err != nil {
			t.Fatalf("seed file: %v", err)
		}
	}

	resp, err := svc.BatchDelete(ctx, link, &types.BatchDeleteRequest{
		Items: []types.DeleteItem{{Kind: types.DeleteItemFolder, ID: "d_root"}},
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}

	if resp.DeletedFolders != 2 || resp.DeletedFiles != 2 || len(resp.FailedItems) != 0 {
		t.Fatalf("unexpected response: %+v", resp)
	}

	var folderCount int64
	_ = db.Model(&model.Folder{}).Count(&folderCount).Error

	if folderCount != 0 {
		t.Error("all subtree folders should be gone")
	}

	// 树外文件不受影响
	var fileCount int64
	_ = db.Model(&model.File{}).Count(&fileCount).Error

	if fileCount != 1 {
		t.Errorf("expected only out-of-tree file remaining, got %d", fileCount)
	}

	if _, ok := store.objects["k/a"]; ok {
		t.Error("subtree objects should be removed")
	}

	var got model.Link
	_ = db.Where("id = ?", link.ID).First(&got).Error

	if got.TotalFiles != 1 || got.TotalSize != 10 {
		t.Errorf("expected 1/10 after subtree delete, got %d/%d", got.TotalFiles, got.TotalSize)
	}
}

// TestBatchDeletePartialFailure 未知类型与缺失条目逐项失败，不中断整批.
func TestBatchDeletePartialFailure(t *testing.T) {
	setupPlanConfig(t)

	db := newTestDB(t)
	store := newFakeObjectStore()
	store.objects["k/a"] = []byte("a")
	svc := newTestDeleteService(db, store)
	ctx := context.Background()

	seedUser(t, db, "u1", "free", 10)
	link := seedLink(t, db, "lk_1", "u1", "drop")
	lid := link.ID

	file := &model.File{
		ID: "f_1", BatchID: "b1", LinkID: &lid, FileName: "a.txt",
		Size: 10, ObjectKey: "k/a", Status: model.FileStatusCompleted,
	}
	if err := db.Create(file).Error; err != nil {
		t.Fatalf("seed file: %v", err)
	}

	resp, err := svc.BatchDelete(ctx, link, &types.BatchDeleteRequest{
		Items: []types.DeleteItem{
			{Kind: types.DeleteItemFile, ID: "f_missing"},
			{Kind: "bogus", ID: "whatever"},
			{Kind: types.DeleteItemFolder, ID: "d_missing"},
			{Kind: types.DeleteItemFile, ID: "f_1"},
		},
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}

	if resp.DeletedFiles != 1 {
		t.Errorf("expected 1 deleted, got %d", resp.DeletedFiles)
	}

	if len(resp.FailedItems) != 3 {
		t.Errorf("expected 3 failures, got %+v", resp.FailedItems)
	}
}

// TestBatchDeleteFileOutsideLink 其他链接的文件不可删.
func TestBatchDeleteFileOutsideLink(t *testing.T) {
	setupPlanConfig(t)

	db := newTestDB(t)
	svc := newTestDeleteService(db, newFakeObjectStore())
	ctx := context.Background()

	seedUser(t, db, "u1", "free", 0)
	owner := seedLink(t, db, "lk_owner", "u1", "mine")
	other := seedLink(t, db, "lk_other", "u1", "theirs")
	oid := owner.ID

	file := &model.File{
		ID: "f_1", BatchID: "b1", LinkID: &oid, FileName: "a.txt",
		Size: 1, Status: model.FileStatusCompleted,
	}
	if err := db.Create(file).Error; err != nil {
		t.Fatalf("seed file: %v", err)
	}

	resp, err := svc.BatchDelete(ctx, other, &types.BatchDeleteRequest{
		Items: []types.DeleteItem{{Kind: types.DeleteItemFile, ID: "f_1"}},
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}

	if resp.DeletedFiles != 0 || len(resp.FailedItems) != 1 {
		t.Fatalf("cross-link delete must fail per item, got %+v", resp)
	}

	var count int64
	_ = db.Model(&model.File{}).Where("id = ?", "f_1").Count(&count).Error

	if count != 1 {
		t.Error("file should survive cross-link delete attempt")
	}
}

// TestBatchDeleteObjectFailureTolerated 对象清理失败不影响行删除结果.
func TestBatchDeleteObjectFailureTolerated(t *testing.T) {
	setupPlanConfig(t)

	db := newTestDB(t)
	store := newFakeObjectStore()
	store.failRemove = true
	svc := newTestDeleteService(db, store)
	ctx := context.Background()

	seedUser(t, db, "u1", "free", 10)
	link := seedLink(t, db, "lk_1", "u1", "drop")
	lid := link.ID

	file := &model.File{
		ID: "f_1", BatchID: "b1", LinkID: &lid, FileName: "a.txt",
		Size: 10, ObjectKey: "k/a", Status: model.FileStatusCompleted,
	}
	if err := db.Create(file).Error; err != nil {
		t.Fatalf("seed file: %v", err)
	}

	resp, err := svc.BatchDelete(ctx, link, &types.BatchDeleteRequest{
		Items: []types.DeleteItem{{Kind: types.DeleteItemFile, ID: "f_1"}},
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}

	if resp.DeletedFiles != 1 || len(resp.FailedItems) != 0 {
		t.Fatalf("row delete should succeed despite object failure, got %+v", resp)
	}
}
