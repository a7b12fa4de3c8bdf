package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"rocket-backend/internal/model"
	"rocket-backend/pkg/logger"
)

type DiskStorage struct {
	dataDir   string
	mu        sync.RWMutex
	cache     map[string]*model.SessionRecord
	cacheSize int
}

type SessionIndex struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewDiskStorage(dataDir string, cacheSize int) *DiskStorage {
	if cacheSize <= 0 {
		cacheSize = 100
	}
	return &DiskStorage{
		dataDir:   dataDir,
		cache:     make(map[string]*model.SessionRecord),
		cacheSize: cacheSize,
	}
}

func (d *DiskStorage) Init() error {
	if err := d.createDirectories(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}

	if err := d.loadSessions(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}

	logger.Info("Disk storage initialized successfully")
	return nil
}

func (d *DiskStorage) createDirectories() error {
	dirs := []string{
		d.dataDir,
		filepath.Join(d.dataDir, "sessions"),
		filepath.Join(d.dataDir, "backup"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return nil
}

// loadSessions 启动时按索引预热缓存，最多 cacheSize 条
func (d *DiskStorage) loadSessions() error {
	indexPath := d.indexPath()

	if _, err := os.Stat(indexPath); os.IsNotExist(err) {
		return d.saveSessionIndex([]*SessionIndex{})
	}

	indexes, err := d.readSessionIndex()
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, index := range indexes {
		if len(d.cache) >= d.cacheSize {
			break
		}

		record, err := d.loadSessionFromFile(index.UserID)
		if err != nil {
			logger.Errorf("Failed to load session record for %s: %v", index.UserID, err)
			continue
		}

		d.cache[index.UserID] = record
	}

	return nil
}

func (d *DiskStorage) indexPath() string {
	return filepath.Join(d.dataDir, "sessions.json")
}

func (d *DiskStorage) sessionPath(userID string) string {
	return filepath.Join(d.dataDir, "sessions", userID+".json")
}

func (d *DiskStorage) loadSessionFromFile(userID string) (*model.SessionRecord, error) {
	data, err := os.ReadFile(d.sessionPath(userID))
	if err != nil {
		return nil, err
	}

	var record model.SessionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	return &record, nil
}

func (d *DiskStorage) readSessionIndex() ([]*SessionIndex, error) {
	data, err := os.ReadFile(d.indexPath())
	if err != nil {
		return nil, err
	}

	var indexes []*SessionIndex
	if err := json.Unmarshal(data, &indexes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return indexes, nil
}

func (d *DiskStorage) saveSessionIndex(indexes []*SessionIndex) error {
	return writeJSONAtomic(d.indexPath(), indexes)
}

// writeJSONAtomic 先写临时文件再 rename，避免读到半写的文件
func writeJSONAtomic(path string, v any) error {
	tempPath := path + ".tmp"

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return err
	}

	return os.Rename(tempPath, path)
}

func (d *DiskStorage) SaveSession(ctx context.Context, record *model.SessionRecord) error {
	if err := validateRecord(record); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	stored := record.Clone()
	if err := writeJSONAtomic(d.sessionPath(stored.UserID), stored); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	d.cache[stored.UserID] = stored
	d.evictCache()

	return d.updateSessionIndex()
}

func (d *DiskStorage) GetSession(ctx context.Context, userID string) (*model.SessionRecord, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}

	d.mu.RLock()
	if record, exists := d.cache[userID]; exists {
		d.mu.RUnlock()
		return record.Clone(), nil
	}
	d.mu.RUnlock()

	record, err := d.loadSessionFromFile(userID)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	d.mu.Lock()
	d.cache[userID] = record
	d.evictCache()
	d.mu.Unlock()

	return record.Clone(), nil
}

func (d *DiskStorage) DeleteSession(ctx context.Context, userID string) error {
	if err := validateUserID(userID); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	sessionPath := d.sessionPath(userID)
	if _, err := os.Stat(sessionPath); os.IsNotExist(err) {
		return ErrSessionNotFound
	}

	if err := os.Remove(sessionPath); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	delete(d.cache, userID)

	return d.updateSessionIndex()
}

// ListSessions 返回索引中的全部记录（不含标签），按更新时间倒序
func (d *DiskStorage) ListSessions(ctx context.Context) ([]*model.SessionRecord, error) {
	d.mu.RLock()
	indexes, err := d.readSessionIndex()
	d.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	records := make([]*model.SessionRecord, 0, len(indexes))
	for _, index := range indexes {
		records = append(records, &model.SessionRecord{
			ID:        index.ID,
			UserID:    index.UserID,
			CreatedAt: index.CreatedAt,
			UpdatedAt: index.UpdatedAt,
		})
	}

	sortByUpdated(records)
	return records, nil
}

// updateSessionIndex 扫描 sessions 目录重建索引，调用方需持有写锁
func (d *DiskStorage) updateSessionIndex() error {
	files, err := os.ReadDir(filepath.Join(d.dataDir, "sessions"))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	indexes := make([]*SessionIndex, 0, len(files))
	for _, file := range files {
		if filepath.Ext(file.Name()) != ".json" {
			continue
		}

		userID := file.Name()[:len(file.Name())-5]
		record, err := d.loadSessionFromFile(userID)
		if err != nil {
			logger.Errorf("Failed to load session record %s for index update: %v", userID, err)
			continue
		}

		indexes = append(indexes, &SessionIndex{
			ID:        record.ID,
			UserID:    record.UserID,
			CreatedAt: record.CreatedAt,
			UpdatedAt: record.UpdatedAt,
		})
	}

	if err := d.saveSessionIndex(indexes); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	return nil
}

// evictCache 超过容量时淘汰最久未更新的记录
func (d *DiskStorage) evictCache() {
	if len(d.cache) <= d.cacheSize {
		return
	}

	type cacheEntry struct {
		userID    string
		updatedAt time.Time
	}

	entries := make([]cacheEntry, 0, len(d.cache))
	for userID, record := range d.cache {
		entries = append(entries, cacheEntry{
			userID:    userID,
			updatedAt: record.UpdatedAt,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].updatedAt.Before(entries[j].updatedAt)
	})

	toEvict := len(d.cache) - d.cacheSize
	for i := 0; i < toEvict; i++ {
		delete(d.cache, entries[i].userID)
	}
}

func (d *DiskStorage) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cache = make(map[string]*model.SessionRecord)
	return nil
}

// Backup 复制 sessions 目录与索引到 backup/backup_<unix>
func (d *DiskStorage) Backup() error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	backupDir := filepath.Join(d.dataDir, "backup", fmt.Sprintf("backup_%d", time.Now().UnixNano()))
	dstDir := filepath.Join(backupDir, "sessions")
	if err := os.MkdirAll(dstDir, 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	if err := copyDir(filepath.Join(d.dataDir, "sessions"), dstDir); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	if err := copyFile(d.indexPath(), filepath.Join(backupDir, "sessions.json")); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	logger.Infof("Backup completed: %s", backupDir)
	return nil
}

func copyDir(src, dst string) error {
	files, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) == ".tmp" {
			continue
		}
		if err := copyFile(filepath.Join(src, file.Name()), filepath.Join(dst, file.Name())); err != nil {
			return err
		}
	}

	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}

	return os.WriteFile(dst, data, 0644)
}
