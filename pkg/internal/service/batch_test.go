package service

import (
	"context"
	"io"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/yeisme/linkvault/pkg/internal/model"
	"github.com/yeisme/linkvault/pkg/internal/types"
)

// newTestBatchService 构造直连测试依赖的 BatchService.
func newTestBatchService(db *gorm.DB, store ObjectStore) *BatchService {
	cl := testClients(db, store)

	return &BatchService{
		clients:   cl,
		validator: &ValidationService{clients: cl},
		folders:   &FolderService{clients: cl},
		stats:     &StatsService{clients: cl},
	}
}

// TestSubmitStagedBatch 整批提交：建批次、物化文件夹、逐文件落盘并记账.
func TestSubmitStagedBatch(t *testing.T) {
	setupPlanConfig(t)

	db := newTestDB(t)
	store := newFakeObjectStore()
	svc := newTestBatchService(db, store)
	ctx := context.Background()

	seedUser(t, db, "u1", "free", 0)
	link := seedLink(t, db, "lk_1", "u1", "drop")

	manifest := &types.StagedBatchManifest{
		Folders: []types.StagedFolder{
			{ClientID: "f1", Name: "photos"},
		},
		Files: []types.StagedFileMeta{
			{ClientID: "a", FileName: "a.txt", Size: 5, FolderClientID: "f1"},
			{ClientID: "b", FileName: "b.txt", Size: 7},
		},
		Uploader: types.UploaderInfo{Name: "alice"},
	}

	readers := map[string]io.Reader{
		"a": strings.NewReader("aaaaa"),
		"b": strings.NewReader("bbbbbbb"),
	}

	resp, rej, err := svc.SubmitStagedBatch(ctx, link, manifest, readers)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if rej != nil {
		t.Fatalf("unexpected rejection: %+v", rej)
	}

	if resp.UploadedFiles != 2 || resp.CreatedFolders != 1 || len(resp.Failures) != 0 {
		t.Fatalf("unexpected response: %+v", resp)
	}

	if resp.TotalProcessed != 2 {
		t.Errorf("expected total_processed 2, got %d", resp.TotalProcessed)
	}

	// 批次完成且推进计数
	var batch model.Batch
	if err := db.Where("id = ?", resp.BatchID).First(&batch).Error; err != nil {
		t.Fatalf("load batch: %v", err)
	}

	if batch.Status != model.BatchStatusCompleted || batch.ProcessedFiles != 2 || batch.CompletedAt == nil {
		t.Errorf("unexpected batch state: %+v", batch)
	}

	// 链接与所有者的计数同步增加
	var got model.Link
	if err := db.Where("id = ?", link.ID).First(&got).Error; err != nil {
		t.Fatalf("load link: %v", err)
	}

	if got.TotalFiles != 2 || got.TotalSize != 12 || got.TotalUploads != 1 {
		t.Errorf("unexpected link stats: files=%d size=%d uploads=%d",
			got.TotalFiles, got.TotalSize, got.TotalUploads)
	}

	var owner model.User
	if err := db.Where("id = ?", "u1").First(&owner).Error; err != nil {
		t.Fatalf("load owner: %v", err)
	}

	if owner.StorageUsed != 12 {
		t.Errorf("expected storage_used 12, got %d", owner.StorageUsed)
	}

	// 文件归属正确的文件夹
	var files []model.File
	if err := db.Where("batch_id = ?", batch.ID).Order("file_name").Find(&files).Error; err != nil {
		t.Fatalf("load files: %v", err)
	}

	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}

	if files[0].FolderID == nil {
		t.Error("a.txt should be inside the materialized folder")
	}

	if files[1].FolderID != nil {
		t.Error("b.txt should stay at root")
	}

	if store.uploads != 2 {
		t.Errorf("expected 2 object uploads, got %d", store.uploads)
	}
}

// TestSubmitStagedBatchPartialFailure 缺内容或上传失败的文件不阻断批次.
func TestSubmitStagedBatchPartialFailure(t *testing.T) {
	setupPlanConfig(t)

	db := newTestDB(t)
	store := newFakeObjectStore()
	svc := newTestBatchService(db, store)
	ctx := context.Background()

	seedUser(t, db, "u1", "free", 0)
	link := seedLink(t, db, "lk_1", "u1", "drop")

	manifest := &types.StagedBatchManifest{
		Files: []types.StagedFileMeta{
			{ClientID: "ok", FileName: "ok.txt", Size: 2},
			{ClientID: "missing", FileName: "missing.txt", Size: 2},
		},
		Uploader: types.UploaderInfo{Name: "bob"},
	}

	resp, rej, err := svc.SubmitStagedBatch(ctx, link, manifest, map[string]io.Reader{
		"ok": strings.NewReader("ok"),
	})
	if err != nil || rej != nil {
		t.Fatalf("submit: err=%v rej=%+v", err, rej)
	}

	if resp.UploadedFiles != 1 || len(resp.Failures) != 1 {
		t.Fatalf("expected 1 uploaded 1 failed, got %+v", resp)
	}

	if resp.TotalProcessed != 2 {
		t.Errorf("expected total_processed 2, got %d", resp.TotalProcessed)
	}

	// 部分失败的批次仍标记完成
	var batch model.Batch
	if err := db.Where("id = ?", resp.BatchID).First(&batch).Error; err != nil {
		t.Fatalf("load batch: %v", err)
	}

	if batch.Status != model.BatchStatusCompleted {
		t.Errorf("expected completed despite failures, got %s", batch.Status)
	}

	// 只有成功的文件计入链接计数
	var got model.Link
	_ = db.Where("id = ?", link.ID).First(&got).Error

	if got.TotalFiles != 1 || got.TotalSize != 2 {
		t.Errorf("unexpected link stats: files=%d size=%d", got.TotalFiles, got.TotalSize)
	}
}

// TestSubmitStagedBatchExistingFolder 文件可以直接声明归属一个已存在文件夹的真实 ID.
func TestSubmitStagedBatchExistingFolder(t *testing.T) {
	setupPlanConfig(t)

	db := newTestDB(t)
	svc := newTestBatchService(db, newFakeObjectStore())
	ctx := context.Background()

	seedUser(t, db, "u1", "free", 0)
	link := seedLink(t, db, "lk_1", "u1", "drop")

	lid := link.ID
	existing := &model.Folder{ID: "d_docs", LinkID: &lid, Name: "docs", Path: "docs", Depth: 0}

	if err := db.Create(existing).Error; err != nil {
		t.Fatalf("seed folder: %v", err)
	}

	resp, rej, err := svc.SubmitStagedBatch(ctx, link, &types.StagedBatchManifest{
		Files: []types.StagedFileMeta{
			{ClientID: "a", FileName: "a.txt", Size: 2, FolderClientID: "d_docs"},
			{ClientID: "b", FileName: "b.txt", Size: 2, FolderClientID: "d_nope"},
		},
	}, map[string]io.Reader{
		"a": strings.NewReader("aa"),
		"b": strings.NewReader("bb"),
	})
	if err != nil || rej != nil {
		t.Fatalf("submit: err=%v rej=%+v", err, rej)
	}

	if resp.UploadedFiles != 1 || len(resp.Failures) != 1 {
		t.Fatalf("expected 1 uploaded 1 failed, got %+v", resp)
	}

	var f model.File
	if err := db.Where("file_name = ?", "a.txt").First(&f).Error; err != nil {
		t.Fatalf("load file: %v", err)
	}

	if f.FolderID == nil || *f.FolderID != "d_docs" {
		t.Errorf("expected a.txt inside d_docs, got %+v", f.FolderID)
	}
}

// TestSubmitStagedBatchRejected 校验不通过时整批拒绝，不产生批次.
func TestSubmitStagedBatchRejected(t *testing.T) {
	setupPlanConfig(t)

	db := newTestDB(t)
	svc := newTestBatchService(db, newFakeObjectStore())
	ctx := context.Background()

	seedUser(t, db, "u1", "free", 0)
	link := seedLink(t, db, "lk_1", "u1", "drop")
	link.IsActive = false

	resp, rej, err := svc.SubmitStagedBatch(ctx, link, &types.StagedBatchManifest{
		Files: []types.StagedFileMeta{{ClientID: "a", FileName: "a.txt", Size: 1}},
	}, nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if resp != nil || rej == nil || rej.Reason != RejectLinkDisabled {
		t.Fatalf("expected link_disabled rejection, got resp=%+v rej=%+v", resp, rej)
	}

	var count int64
	_ = db.Model(&model.Batch{}).Count(&count).Error

	if count != 0 {
		t.Errorf("rejected submit must not create a batch, got %d", count)
	}
}

// TestCompleteBatchIdempotent 重复完结不重复累计上传次数.
func TestCompleteBatchIdempotent(t *testing.T) {
	setupPlanConfig(t)

	db := newTestDB(t)
	svc := newTestBatchService(db, newFakeObjectStore())
	ctx := context.Background()

	seedUser(t, db, "u1", "free", 0)
	link := seedLink(t, db, "lk_1", "u1", "drop")

	batch := &model.Batch{ID: "batch-1", LinkID: link.ID, Status: model.BatchStatusUploading}
	if err := db.Create(batch).Error; err != nil {
		t.Fatalf("seed batch: %v", err)
	}

	if err := svc.CompleteBatch(ctx, batch.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if err := svc.CompleteBatch(ctx, batch.ID); err != nil {
		t.Fatalf("complete twice: %v", err)
	}

	var got model.Link
	_ = db.Where("id = ?", link.ID).First(&got).Error

	if got.TotalUploads != 1 {
		t.Errorf("expected total_uploads 1 after double complete, got %d", got.TotalUploads)
	}
}

// TestCreateBatchAndUploadFile 两段式上传：预创建行，再逐文件写入字节.
func TestCreateBatchAndUploadFile(t *testing.T) {
	setupPlanConfig(t)

	db := newTestDB(t)
	store := newFakeObjectStore()
	svc := newTestBatchService(db, store)
	ctx := context.Background()

	seedUser(t, db, "u1", "free", 0)
	link := seedLink(t, db, "lk_1", "u1", "drop")

	resp, rej, err := svc.CreateBatch(ctx, link, &types.CreateBatchRequest{
		Files: []types.StagedFileMeta{
			{ClientID: "a", FileName: "a.txt", Size: 3},
		},
		Uploader: types.UploaderInfo{Name: "carol"},
	})
	if err != nil || rej != nil {
		t.Fatalf("create batch: err=%v rej=%+v", err, rej)
	}

	if len(resp.Files) != 1 {
		t.Fatalf("expected 1 precreated file, got %d", len(resp.Files))
	}

	fileID := resp.Files[0].ID

	// 预创建的行处于 pending
	var pending model.File
	_ = db.Where("id = ?", fileID).First(&pending).Error

	if pending.Status != model.FileStatusPending {
		t.Fatalf("expected pending before bytes arrive, got %s", pending.Status)
	}

	up, err := svc.UploadBatchFile(ctx, link, resp.BatchID, fileID,
		strings.NewReader("abc"), 3, nil, nil)
	if err != nil {
		t.Fatalf("upload file: %v", err)
	}

	if up.Path == "" {
		t.Error("expected object key in response")
	}

	var done model.File
	_ = db.Where("id = ?", fileID).First(&done).Error

	if done.Status != model.FileStatusCompleted || done.ObjectKey == "" {
		t.Errorf("unexpected file state: %+v", done)
	}

	// 重复写入同一行被拒
	if _, err := svc.UploadBatchFile(ctx, link, resp.BatchID, fileID,
		strings.NewReader("abc"), 3, nil, nil); err == nil {
		t.Error("expected error when uploading a completed file again")
	}
}

// TestUploadBatchFileFolderOwnership 指定文件夹必须存在且归属本链接.
func TestUploadBatchFileFolderOwnership(t *testing.T) {
	setupPlanConfig(t)

	db := newTestDB(t)
	store := newFakeObjectStore()
	svc := newTestBatchService(db, store)
	ctx := context.Background()

	seedUser(t, db, "u1", "free", 0)
	link := seedLink(t, db, "lk_1", "u1", "drop")
	other := seedLink(t, db, "lk_2", "u1", "other")

	oid := other.ID
	foreign := &model.Folder{ID: "d_foreign", LinkID: &oid, Name: "theirs", Path: "theirs", Depth: 0}

	if err := db.Create(foreign).Error; err != nil {
		t.Fatalf("seed folder: %v", err)
	}

	resp, rej, err := svc.CreateBatch(ctx, link, &types.CreateBatchRequest{
		Files: []types.StagedFileMeta{{ClientID: "a", FileName: "a.txt", Size: 2}},
	})
	if err != nil || rej != nil {
		t.Fatalf("create batch: err=%v rej=%+v", err, rej)
	}

	fileID := resp.Files[0].ID

	// 悬空 ID 与跨链接文件夹都被拒，且不写入对象
	for _, bad := range []string{"d_missing", "d_foreign"} {
		if _, err := svc.UploadBatchFile(ctx, link, resp.BatchID, fileID,
			strings.NewReader("aa"), 2, strPtr(bad), nil); err == nil {
			t.Errorf("expected error for folder %s", bad)
		}
	}

	if store.uploads != 0 {
		t.Errorf("rejected upload must not write objects, got %d", store.uploads)
	}

	var pending model.File
	_ = db.Where("id = ?", fileID).First(&pending).Error

	if pending.Status != model.FileStatusPending {
		t.Errorf("file should stay pending, got %s", pending.Status)
	}

	// 归属本链接的文件夹放行
	lid := link.ID
	mine := &model.Folder{ID: "d_mine", LinkID: &lid, Name: "mine", Path: "mine", Depth: 0}

	if err := db.Create(mine).Error; err != nil {
		t.Fatalf("seed folder: %v", err)
	}

	if _, err := svc.UploadBatchFile(ctx, link, resp.BatchID, fileID,
		strings.NewReader("aa"), 2, strPtr("d_mine"), nil); err != nil {
		t.Fatalf("upload with owned folder: %v", err)
	}

	var done model.File
	_ = db.Where("id = ?", fileID).First(&done).Error

	if done.FolderID == nil || *done.FolderID != "d_mine" {
		t.Errorf("expected file inside d_mine, got %+v", done.FolderID)
	}
}

// TestUploadBatchFileFailureMarksRow 对象写入失败时文件行转为 failed.
func TestUploadBatchFileFailureMarksRow(t *testing.T) {
	setupPlanConfig(t)

	db := newTestDB(t)
	store := newFakeObjectStore()
	store.failUpload = true
	svc := newTestBatchService(db, store)
	ctx := context.Background()

	seedUser(t, db, "u1", "free", 0)
	link := seedLink(t, db, "lk_1", "u1", "drop")

	resp, rej, err := svc.CreateBatch(ctx, link, &types.CreateBatchRequest{
		Files: []types.StagedFileMeta{{ClientID: "a", FileName: "a.txt", Size: 3}},
	})
	if err != nil || rej != nil {
		t.Fatalf("create batch: err=%v rej=%+v", err, rej)
	}

	if _, err := svc.UploadBatchFile(ctx, link, resp.BatchID, resp.Files[0].ID,
		strings.NewReader("abc"), 3, nil, nil); err == nil {
		t.Fatal("expected upload error")
	}

	var f model.File
	_ = db.Where("id = ?", resp.Files[0].ID).First(&f).Error

	if f.Status != model.FileStatusFailed {
		t.Errorf("expected failed status, got %s", f.Status)
	}
}

// TestOrderStagedFiles 文件按所属文件夹分组，组内按声明顺序重编号.
func TestOrderStagedFiles(t *testing.T) {
	files := []types.StagedFileMeta{
		{ClientID: "1", FileName: "z.txt", FolderClientID: "f1", SortOrder: 5},
		{ClientID: "2", FileName: "a.txt", FolderClientID: "f1", SortOrder: 2},
		{ClientID: "3", FileName: "root.txt", SortOrder: 9},
	}

	ordered := orderStagedFiles(files)

	if len(ordered) != 3 {
		t.Fatalf("expected 3 files, got %d", len(ordered))
	}

	// 根组在前（空 folder id 排序最小），组内重编号从 0 开始
	if ordered[0].ClientID != "3" || ordered[0].SortOrder != 0 {
		t.Errorf("unexpected first: %+v", ordered[0])
	}

	if ordered[1].ClientID != "2" || ordered[1].SortOrder != 0 {
		t.Errorf("unexpected second: %+v", ordered[1])
	}

	if ordered[2].ClientID != "1" || ordered[2].SortOrder != 1 {
		t.Errorf("unexpected third: %+v", ordered[2])
	}
}
