package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeisme/linkvault/pkg/configs"
	"github.com/yeisme/linkvault/pkg/internal/model"
)

// newTestDB 打开内存 SQLite 并建表.
// 限制连接数为 1，避免连接池为每个连接各开一份内存库.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}

	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(model.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return db
}

// fakeObjectStore 内存对象存储，记录写入并支持按需注入失败.
type fakeObjectStore struct {
	objects    map[string][]byte
	uploads    int
	removes    int
	failUpload bool
	failRemove bool
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string][]byte)}
}

func (f *fakeObjectStore) Upload(_ context.Context, key string, r io.Reader, size int64, _ string) (UploadResult, error) {
	if f.failUpload {
		return UploadResult{}, fmt.Errorf("upload failed")
	}

	b, err := io.ReadAll(r)
	if err != nil {
		return UploadResult{}, err
	}

	f.objects[key] = b
	f.uploads++

	n := size
	if n <= 0 {
		n = int64(len(b))
	}

	return UploadResult{Bucket: "test-bucket", Key: key, Size: n, Checksum: "test-checksum"}, nil
}

func (f *fakeObjectStore) Remove(_ context.Context, key string) error {
	if f.failRemove {
		return fmt.Errorf("remove failed")
	}

	delete(f.objects, key)
	f.removes++

	return nil
}

func (f *fakeObjectStore) Copy(_ context.Context, srcKey, dstKey string) error {
	b, ok := f.objects[srcKey]
	if !ok {
		return fmt.Errorf("source %s not found", srcKey)
	}

	f.objects[dstKey] = bytes.Clone(b)

	return nil
}

func (f *fakeObjectStore) SignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://signed.example.com/" + key, nil
}

func (f *fakeObjectStore) PublicURL(key string) string {
	return "https://public.example.com/" + key
}

// testClients 构造直连测试依赖的 clients（无 KV/MQ）.
func testClients(db *gorm.DB, store ObjectStore) clients {
	return clients{db: db, store: store}
}

// setupPlanConfig 写入测试用套餐配置，测试结束后还原.
func setupPlanConfig(t *testing.T) {
	t.Helper()

	cfg := configs.GetConfig()
	old := cfg.Plan

	cfg.Plan = configs.PlanConfig{
		Limits: map[string]int64{
			"free": 2 * configs.GB,
			"pro":  500 * configs.GB,
		},
		DefaultLimit:        2 * configs.GB,
		DefaultMaxFileSize:  100 * configs.MB,
		SignedURLTTLSeconds: 3600,
	}

	t.Cleanup(func() { cfg.Plan = old })
}

// seedUser 写入一个所有者.
func seedUser(t *testing.T, db *gorm.DB, id, plan string, used int64) *model.User {
	t.Helper()

	u := &model.User{ID: id, Email: id + "@example.com", Plan: plan, StorageUsed: used}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	return u
}

// seedLink 写入一条激活的 base 链接.
func seedLink(t *testing.T, db *gorm.DB, id, userID, slug string) *model.Link {
	t.Helper()

	l := &model.Link{
		ID:       id,
		UserID:   userID,
		Slug:     slug,
		Type:     model.LinkTypeBase,
		IsActive: true,
	}
	if err := db.Create(l).Error; err != nil {
		t.Fatalf("seed link: %v", err)
	}

	return l
}

// seedBatch 写入一条归属给定链接的批次.
func seedBatch(t *testing.T, db *gorm.DB, id, linkID string) *model.Batch {
	t.Helper()

	b := &model.Batch{ID: id, LinkID: linkID, Status: model.BatchStatusCompleted}
	if err := db.Create(b).Error; err != nil {
		t.Fatalf("seed batch: %v", err)
	}

	return b
}

func strPtr(s string) *string { return &s }
