package cache

import (
	"context"
	"errors"
	"fmt"
)

// Store 负责 URL → 原始响应体的持久化映射。
type Store interface {
	// Read 在独立的读事务中查找 url。键不存在时返回 ok=false 且 err=nil；
	// 只有事务或表无法打开时才返回 *StoreError。
	Read(ctx context.Context, url string) (body string, ok bool, err error)

	// Write 在独立的写事务中整体覆盖 url 对应的条目并提交。
	Write(ctx context.Context, url, body string) error
}

// ErrBucketMissing 表示缓存表在存储中不存在。
var ErrBucketMissing = errors.New("cache bucket not found")

// StoreError 描述一次失败的读/写事务，与"键不存在"严格区分。
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("cache %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func readError(key string, err error) error {
	return &StoreError{Op: "read", Key: key, Err: err}
}

func writeError(key string, err error) error {
	return &StoreError{Op: "write", Key: key, Err: err}
}
