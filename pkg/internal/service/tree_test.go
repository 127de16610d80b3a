package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/yeisme/linkvault/pkg/internal/model"
)

// TestGetLinkTreeNested 嵌套层级组装与统计.
func TestGetLinkTreeNested(t *testing.T) {
	setupPlanConfig(t)

	db := newTestDB(t)
	store := newFakeObjectStore()
	svc := &TreeService{clients: testClients(db, store)}
	ctx := context.Background()

	seedUser(t, db, "u1", "free", 0)
	link := seedLink(t, db, "lk_1", "u1", "drop")
	lid := link.ID

	root := &model.Folder{ID: "d_root", LinkID: &lid, Name: "root", Path: "root", Depth: 0}
	rootID := root.ID
	child := &model.Folder{ID: "d_child", LinkID: &lid, ParentID: &rootID, Name: "child", Path: "root/child", Depth: 1}

	for _, f := range []*model.Folder{root, child} {
		if err := db.Create(f).Error; err != nil {
			t.Fatalf("seed folder: %v", err)
		}
	}

	childID := child.ID
	files := []*model.File{
		{ID: "f_root", BatchID: "b1", LinkID: &lid, FileName: "top.txt", Size: 3, ObjectKey: "k/top", Status: model.FileStatusCompleted},
		{ID: "f_sub", BatchID: "b1", LinkID: &lid, FolderID: &childID, FileName: "deep.txt", Size: 5, ObjectKey: "k/deep", Status: model.FileStatusCompleted},
		{ID: "f_pending", BatchID: "b1", LinkID: &lid, FileName: "half.txt", Size: 7, Status: model.FileStatusPending},
	}
	for _, f := range files {
		if err := db.Create(f).Error; err != nil {
			t.Fatalf("seed file: %v", err)
		}
	}

	resp, err := svc.GetLinkTree(ctx, link)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}

	// pending 文件不进入树
	if resp.Stats.FolderCount != 2 || resp.Stats.FileCount != 2 || resp.Stats.TotalSize != 8 {
		t.Fatalf("unexpected stats: %+v", resp.Stats)
	}

	if len(resp.Folders) != 1 || resp.Folders[0].ID != "d_root" {
		t.Fatalf("expected single root folder, got %+v", resp.Folders)
	}

	if len(resp.Folders[0].Children) != 1 || resp.Folders[0].Children[0].ID != "d_child" {
		t.Fatalf("expected child under root, got %+v", resp.Folders[0].Children)
	}

	if len(resp.Folders[0].Children[0].Files) != 1 || resp.Folders[0].Children[0].Files[0].ID != "f_sub" {
		t.Errorf("expected deep.txt inside child folder")
	}

	if len(resp.RootFiles) != 1 || resp.RootFiles[0].ID != "f_root" {
		t.Errorf("expected top.txt at root, got %+v", resp.RootFiles)
	}
}

// TestGetLinkTreeOrphansPromoted 父已消失的文件夹与文件提升到根级.
func TestGetLinkTreeOrphansPromoted(t *testing.T) {
	setupPlanConfig(t)

	db := newTestDB(t)
	svc := &TreeService{clients: testClients(db, newFakeObjectStore())}
	ctx := context.Background()

	seedUser(t, db, "u1", "free", 0)
	link := seedLink(t, db, "lk_1", "u1", "drop")
	lid := link.ID

	gone := "d_gone"
	orphanFolder := &model.Folder{ID: "d_orphan", LinkID: &lid, ParentID: &gone, Name: "orphan", Path: "x/orphan", Depth: 1}

	if err := db.Create(orphanFolder).Error; err != nil {
		t.Fatalf("seed folder: %v", err)
	}

	orphanFile := &model.File{
		ID: "f_orphan", BatchID: "b1", LinkID: &lid, FolderID: &gone,
		FileName: "lost.txt", Size: 1, Status: model.FileStatusCompleted,
	}
	if err := db.Create(orphanFile).Error; err != nil {
		t.Fatalf("seed file: %v", err)
	}

	resp, err := svc.GetLinkTree(ctx, link)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}

	if len(resp.Folders) != 1 || resp.Folders[0].ID != "d_orphan" {
		t.Errorf("orphan folder should surface at root, got %+v", resp.Folders)
	}

	if len(resp.RootFiles) != 1 || resp.RootFiles[0].ID != "f_orphan" {
		t.Errorf("orphan file should surface at root, got %+v", resp.RootFiles)
	}
}

// TestGetLinkTreeSorting 同级按 sort_order 再按名称排序.
func TestGetLinkTreeSorting(t *testing.T) {
	setupPlanConfig(t)

	db := newTestDB(t)
	svc := &TreeService{clients: testClients(db, newFakeObjectStore())}
	ctx := context.Background()

	seedUser(t, db, "u1", "free", 0)
	link := seedLink(t, db, "lk_1", "u1", "drop")
	lid := link.ID

	folders := []*model.Folder{
		{ID: "d_b", LinkID: &lid, Name: "beta", Path: "beta", SortOrder: 1},
		{ID: "d_a", LinkID: &lid, Name: "alpha", Path: "alpha", SortOrder: 1},
		{ID: "d_z", LinkID: &lid, Name: "zeta", Path: "zeta", SortOrder: 0},
	}
	for _, f := range folders {
		if err := db.Create(f).Error; err != nil {
			t.Fatalf("seed folder: %v", err)
		}
	}

	resp, err := svc.GetLinkTree(ctx, link)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}

	var order []string
	for _, f := range resp.Folders {
		order = append(order, f.Name)
	}

	want := "zeta,alpha,beta"
	if got := strings.Join(order, ","); got != want {
		t.Errorf("expected order %s, got %s", want, got)
	}
}

// TestGetLinkTreeDownloadURL 无过期链接给公开 URL，有过期链接给签名 URL.
func TestGetLinkTreeDownloadURL(t *testing.T) {
	setupPlanConfig(t)

	db := newTestDB(t)
	svc := &TreeService{clients: testClients(db, newFakeObjectStore())}
	ctx := context.Background()

	seedUser(t, db, "u1", "free", 0)
	link := seedLink(t, db, "lk_1", "u1", "drop")
	lid := link.ID

	file := &model.File{
		ID: "f_1", BatchID: "b1", LinkID: &lid, FileName: "a.txt",
		Size: 1, ObjectKey: "k/a", Status: model.FileStatusCompleted,
	}
	if err := db.Create(file).Error; err != nil {
		t.Fatalf("seed file: %v", err)
	}

	resp, err := svc.GetLinkTree(ctx, link)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}

	if !strings.HasPrefix(resp.RootFiles[0].DownloadURL, "https://public.example.com/") {
		t.Errorf("expected public url, got %q", resp.RootFiles[0].DownloadURL)
	}

	future := time.Now().UTC().Add(time.Hour)
	link.ExpiresAt = &future

	resp, err = svc.GetLinkTree(ctx, link)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}

	if !strings.HasPrefix(resp.RootFiles[0].DownloadURL, "https://signed.example.com/") {
		t.Errorf("expected signed url, got %q", resp.RootFiles[0].DownloadURL)
	}
}

// TestDownloadTTL 签名时长取配置上限与链接剩余生命期的较小值.
func TestDownloadTTL(t *testing.T) {
	setupPlanConfig(t)

	svc := &TreeService{}
	link := &model.Link{}

	if ttl := svc.downloadTTL(link); ttl != 0 {
		t.Errorf("expected 0 for non-expiring link, got %v", ttl)
	}

	// 剩余生命期小于配置上限
	soon := time.Now().UTC().Add(10 * time.Minute)
	link.ExpiresAt = &soon

	if ttl := svc.downloadTTL(link); ttl > 10*time.Minute || ttl <= 0 {
		t.Errorf("expected ttl bounded by remaining lifetime, got %v", ttl)
	}

	// 剩余生命期大于配置上限（3600s）
	far := time.Now().UTC().Add(48 * time.Hour)
	link.ExpiresAt = &far

	if ttl := svc.downloadTTL(link); ttl != time.Hour {
		t.Errorf("expected ttl capped at 1h, got %v", ttl)
	}
}

// TestRecordDownload 下载计数自增，文件不属于该链接时报错.
func TestRecordDownload(t *testing.T) {
	setupPlanConfig(t)

	db := newTestDB(t)
	svc := &TreeService{clients: testClients(db, nil)}
	ctx := context.Background()

	seedUser(t, db, "u1", "free", 0)
	link := seedLink(t, db, "lk_1", "u1", "drop")
	lid := link.ID

	file := &model.File{
		ID: "f_1", BatchID: "b1", LinkID: &lid, FileName: "a.txt",
		Size: 1, Status: model.FileStatusCompleted,
	}
	if err := db.Create(file).Error; err != nil {
		t.Fatalf("seed file: %v", err)
	}

	if err := svc.RecordDownload(ctx, link, "f_1"); err != nil {
		t.Fatalf("record: %v", err)
	}

	if err := svc.RecordDownload(ctx, link, "f_1"); err != nil {
		t.Fatalf("record: %v", err)
	}

	var got model.File
	_ = db.Where("id = ?", "f_1").First(&got).Error

	if got.DownloadCount != 2 {
		t.Errorf("expected download_count 2, got %d", got.DownloadCount)
	}

	other := seedLink(t, db, "lk_2", "u1", "other")
	if err := svc.RecordDownload(ctx, other, "f_1"); err == nil {
		t.Error("expected error for file outside the link")
	}
}
