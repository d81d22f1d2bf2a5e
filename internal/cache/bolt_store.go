package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

// DefaultBucket 是缓存表的默认名称。
const DefaultBucket = "http_client"

// BoltStore 基于 go.etcd.io/bbolt 实现 Store，整个进程共享同一个 *bbolt.DB。
type BoltStore struct {
	DB     *bbolt.DB
	Bucket []byte
}

// Open 打开（必要时创建）bbolt 文件并确保缓存表存在，应在启动阶段调用一次。
func Open(path string, bucket string, timeout time.Duration) (*BoltStore, error) {
	if path == "" {
		return nil, errors.New("storage path required")
	}
	if bucket == "" {
		bucket = DefaultBucket
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("bbolt.Open failed: %w", err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
			return fmt.Errorf("(*bbolt.Tx).CreateBucketIfNotExists failed: %w", err)
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("(*bbolt.DB).Update failed: %w", err)
	}

	return &BoltStore{DB: db, Bucket: []byte(bucket)}, nil
}

func (s *BoltStore) Read(ctx context.Context, url string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, readError(url, err)
	}

	var (
		body  string
		found bool
	)
	err := s.DB.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(s.Bucket)
		if bucket == nil {
			return ErrBucketMissing
		}
		// the value slice is only valid for the life of the transaction
		if value := bucket.Get([]byte(url)); value != nil {
			body = string(value)
			found = true
		}
		return nil
	})
	if err != nil {
		return "", false, readError(url, err)
	}
	return body, found, nil
}

func (s *BoltStore) Write(ctx context.Context, url, body string) error {
	if err := ctx.Err(); err != nil {
		return writeError(url, err)
	}

	err := s.DB.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(s.Bucket)
		if bucket == nil {
			return ErrBucketMissing
		}
		if err := bucket.Put([]byte(url), []byte(body)); err != nil {
			return fmt.Errorf("(*bbolt.Bucket).Put failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return writeError(url, err)
	}
	return nil
}

// Close 释放底层文件句柄。
func (s *BoltStore) Close() error {
	return s.DB.Close()
}

// Stats 汇总缓存表的诊断信息。
type Stats struct {
	Path      string `json:"path"`
	Bucket    string `json:"bucket"`
	Entries   int    `json:"entries"`
	SizeBytes int64  `json:"size_bytes"`
}

// Stats 在只读事务中统计条目数与数据文件大小。
func (s *BoltStore) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Path: s.DB.Path(), Bucket: string(s.Bucket)}
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	err := s.DB.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(s.Bucket)
		if bucket == nil {
			return ErrBucketMissing
		}
		stats.Entries = bucket.Stats().KeyN
		stats.SizeBytes = tx.Size()
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("(*bbolt.DB).View failed: %w", err)
	}
	return stats, nil
}
