package fetcher

import (
	"context"

	"github.com/any-hub/extmeta/internal/logging"
)

type lookupState int

const (
	// lookupMiss: 条目不存在、未配置缓存或读事务失败。
	lookupMiss lookupState = iota
	// lookupHit: 条目存在且成功解码为目标类型。
	lookupHit
	// lookupFallback: 条目存在但解码失败，err 为解码错误，调用方回源覆盖。
	lookupFallback
)

type lookup[T any] struct {
	state lookupState
	value T
	err   error
}

// lookupCached 查询缓存并尝试解码，不会发起网络请求。读事务失败只记录日志。
func lookupCached[T any](ctx context.Context, f *Fetcher, url string) lookup[T] {
	if f.store == nil {
		return lookup[T]{state: lookupMiss}
	}

	body, ok, err := f.store.Read(ctx, url)
	if err != nil {
		f.logger.WithError(err).WithFields(logging.FetchFields(url, false)).Warn("cache_read_failed")
		return lookup[T]{state: lookupMiss, err: err}
	}
	if !ok {
		return lookup[T]{state: lookupMiss}
	}

	var value T
	if err := decode(body, &value); err != nil {
		return lookup[T]{state: lookupFallback, err: err}
	}
	return lookup[T]{state: lookupHit, value: value}
}
