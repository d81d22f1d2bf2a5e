package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/extmeta/internal/cache"
	"github.com/any-hub/extmeta/internal/gallery"
	"github.com/any-hub/extmeta/internal/logging"
)

// maxErrorBody 限制非 2xx 响应体写入错误信息的长度。
const maxErrorBody = 1024

// Doer 抽象网络传输，*http.Client 即满足该接口。
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Options 汇总 Fetcher 的依赖。Store 为空时每次调用都直接回源且不写缓存。
type Options struct {
	Client          Doer
	Store           cache.Store
	Logger          *logrus.Logger
	GalleryEndpoint string
	UserAgent       string
}

// Fetcher 负责 orchestrate “读缓存 → 命中解码 / 回源 → 尽力写缓存 → 解码” 的流程。
// 调用之间不保留任何条目状态，可被多个 goroutine 并发使用。
type Fetcher struct {
	client    Doer
	store     cache.Store
	logger    *logrus.Logger
	endpoint  string
	userAgent string
}

// New constructs a Fetcher sharing the given client, store and logger.
func New(opts Options) (*Fetcher, error) {
	if opts.Client == nil {
		return nil, errors.New("http client is required")
	}
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	endpoint := strings.TrimSpace(opts.GalleryEndpoint)
	if endpoint == "" {
		endpoint = gallery.DefaultEndpoint
	}
	return &Fetcher{
		client:    opts.Client,
		store:     opts.Store,
		logger:    opts.Logger,
		endpoint:  endpoint,
		userAgent: opts.UserAgent,
	}, nil
}

// Fetch 返回 url 对应文档按 T 解码后的值。
//
// 只有缓存中存在且能解码为 T 的条目才算命中，命中时不会发起任何网络请求。
// 缓存读取失败或缓存内容无法解码都按未命中处理并回源；回源拿到完整响应体后
// 先尽力写回缓存（失败只记录日志），再解码返回。回源之后的解码失败不再兜底。
func Fetch[T any](ctx context.Context, f *Fetcher, url string) (T, error) {
	var zero T
	started := time.Now()

	cached := lookupCached[T](ctx, f, url)
	switch cached.state {
	case lookupHit:
		f.logResult(url, true, started, nil)
		return cached.value, nil
	case lookupFallback:
		fields := logging.FetchFields(url, false)
		f.logger.WithError(cached.err).WithFields(fields).Warn("cache_decode_fallback")
	}

	body, err := f.get(ctx, url)
	if err != nil {
		f.logResult(url, false, started, err)
		return zero, err
	}

	if err := f.remember(ctx, url, body); err != nil {
		fields := logging.FetchFields(url, false)
		f.logger.WithError(err).WithFields(fields).Warn("cache_write_failed")
	}

	var value T
	if err := decode(body, &value); err != nil {
		err = decodeError(url, err)
		f.logResult(url, false, started, err)
		return zero, err
	}
	f.logResult(url, false, started, nil)
	return value, nil
}

// FetchDocument 以原始 JSON 形式读穿缓存，供不关心具体结构的调用方使用。
func (f *Fetcher) FetchDocument(ctx context.Context, url string) (json.RawMessage, error) {
	return Fetch[json.RawMessage](ctx, f, url)
}

// FetchExtensionMetadata 直接向扩展市场 POST 查询，不经过缓存，也不重试。
// 任何失败（构造请求、传输、状态码、响应解码）都以 KindNetwork 返回。
func (f *Fetcher) FetchExtensionMetadata(ctx context.Context, ids []string) (*gallery.QueryResult, error) {
	started := time.Now()
	payload, err := json.Marshal(gallery.NewQuery(ids))
	if err != nil {
		return nil, networkError(f.endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, networkError(f.endpoint, err)
	}
	req.Header.Set("Accept", gallery.AcceptHeader)
	req.Header.Set("Content-Type", "application/json")
	f.setUserAgent(req)

	resp, err := f.client.Do(req)
	if err != nil {
		f.logQuery(len(ids), started, err)
		return nil, networkError(f.endpoint, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		f.logQuery(len(ids), started, err)
		return nil, networkError(f.endpoint, err)
	}

	var result gallery.QueryResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		f.logQuery(len(ids), started, err)
		return nil, networkError(f.endpoint, err)
	}
	f.logQuery(len(ids), started, nil)
	return &result, nil
}

// get 发起 GET 并读完整个响应体，任何传输层问题都视为 KindNetwork。
func (f *Fetcher) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", networkError(url, err)
	}
	f.setUserAgent(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", networkError(url, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", networkError(url, err)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", networkError(url, err)
	}
	return string(body), nil
}

// remember 把完整响应体写入缓存。返回的错误由调用方决定是否忽略。
func (f *Fetcher) remember(ctx context.Context, url, body string) error {
	if f.store == nil {
		return nil
	}
	return f.store.Write(ctx, url, body)
}

func (f *Fetcher) setUserAgent(req *http.Request) {
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

func decode(body string, out any) error {
	return json.Unmarshal([]byte(body), out)
}

func (f *Fetcher) logResult(url string, cacheHit bool, started time.Time, err error) {
	fields := logging.FetchFields(url, cacheHit)
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	if err != nil {
		fields["error"] = err.Error()
		f.logger.WithFields(fields).Error("fetch_failed")
		return
	}
	f.logger.WithFields(fields).Info("fetch_complete")
}

func (f *Fetcher) logQuery(count int, started time.Time, err error) {
	fields := logrus.Fields{
		"action":     "extension_query",
		"endpoint":   f.endpoint,
		"extensions": count,
		"elapsed_ms": time.Since(started).Milliseconds(),
	}
	if err != nil {
		fields["error"] = err.Error()
		f.logger.WithFields(fields).Error("extension_query_failed")
		return
	}
	f.logger.WithFields(fields).Info("extension_query_complete")
}
