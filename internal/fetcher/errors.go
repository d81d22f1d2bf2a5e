package fetcher

import (
	"errors"
	"fmt"
)

// Kind 区分回源失败与解码失败。
type Kind string

const (
	KindNetwork Kind = "network"
	KindDecode  Kind = "decode"
)

// FetchError 是 Fetch/FetchExtensionMetadata 对调用方暴露的唯一错误类型。
// 缓存层错误不会出现在这里。
type FetchError struct {
	Kind Kind
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed (%s): %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// StatusError 记录非 2xx 响应的状态码与截断后的响应体。
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// IsNetwork reports whether err is a network-kind FetchError.
func IsNetwork(err error) bool {
	return isKind(err, KindNetwork)
}

// IsDecode reports whether err is a decode-kind FetchError.
func IsDecode(err error) bool {
	return isKind(err, KindDecode)
}

func isKind(err error, kind Kind) bool {
	var fetchErr *FetchError
	return errors.As(err, &fetchErr) && fetchErr.Kind == kind
}

func networkError(url string, err error) error {
	return &FetchError{Kind: KindNetwork, URL: url, Err: err}
}

func decodeError(url string, err error) error {
	return &FetchError{Kind: KindDecode, URL: url, Err: err}
}
