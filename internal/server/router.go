package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/extmeta/internal/fetcher"
	"github.com/any-hub/extmeta/internal/gallery"
	"github.com/any-hub/extmeta/internal/version"
)

// MetadataSource describes the component that answers lookups. *fetcher.Fetcher
// satisfies it; tests may inject fakes.
type MetadataSource interface {
	FetchDocument(ctx context.Context, url string) (json.RawMessage, error)
	FetchExtensionMetadata(ctx context.Context, ids []string) (*gallery.QueryResult, error)
}

// AppOptions controls how the Fiber application should behave.
type AppOptions struct {
	Logger     *logrus.Logger
	Source     MetadataSource
	ListenPort int
}

const contextKeyRequestID = "_extmeta_request_id"

// extensionsRequest 是 POST /v1/extensions 的请求体。
type extensionsRequest struct {
	IDs []string `json:"ids"`
}

// extensionsResponse 在市场原始结果之外附带未找到的扩展 ID。
type extensionsResponse struct {
	Result  *gallery.QueryResult `json:"result"`
	Missing []string             `json:"missing"`
}

// NewApp builds the Fiber application exposing read-through document lookups
// and extension metadata queries.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Source == nil {
		return nil, errors.New("metadata source is required")
	}
	if opts.ListenPort <= 0 {
		return nil, fmt.Errorf("invalid listen port: %d", opts.ListenPort)
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestIDMiddleware())

	h := &handlers{logger: opts.Logger, source: opts.Source}
	app.Get("/-/status", h.status)
	app.Get("/v1/fetch", h.fetchDocument)
	app.Post("/v1/extensions", h.queryExtensions)

	return app, nil
}

// requestIDMiddleware 为每个请求生成 ID 并回写 X-Request-ID。
func requestIDMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)
		return c.Next()
	}
}

// RequestID returns the request identifier stored by the middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

type handlers struct {
	logger *logrus.Logger
	source MetadataSource
}

func (h *handlers) status(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": version.Full(),
	})
}

func (h *handlers) fetchDocument(c fiber.Ctx) error {
	started := time.Now()
	target := strings.TrimSpace(c.Query("url"))
	if target == "" {
		return writeError(c, fiber.StatusBadRequest, "url_required")
	}

	doc, err := h.source.FetchDocument(requestContext(c), target)
	h.logRequest(c, "fetch_document", started, logrus.Fields{"url": target}, err)
	if err != nil {
		return writeFetchError(c, err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	return c.Send(doc)
}

func (h *handlers) queryExtensions(c fiber.Ctx) error {
	started := time.Now()
	var req extensionsRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return writeError(c, fiber.StatusBadRequest, "invalid_body")
	}
	ids := make([]string, 0, len(req.IDs))
	for _, id := range req.IDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return writeError(c, fiber.StatusBadRequest, "ids_required")
	}

	result, err := h.source.FetchExtensionMetadata(requestContext(c), ids)
	h.logRequest(c, "query_extensions", started, logrus.Fields{"extensions": len(ids)}, err)
	if err != nil {
		return writeFetchError(c, err)
	}

	missing := result.Missing(ids)
	if missing == nil {
		missing = []string{}
	}
	return c.JSON(extensionsResponse{Result: result, Missing: missing})
}

func (h *handlers) logRequest(c fiber.Ctx, action string, started time.Time, extra logrus.Fields, err error) {
	fields := logrus.Fields{
		"action":     action,
		"elapsed_ms": time.Since(started).Milliseconds(),
	}
	if reqID := RequestID(c); reqID != "" {
		fields["request_id"] = reqID
	}
	for key, value := range extra {
		fields[key] = value
	}
	if err != nil {
		fields["error"] = err.Error()
		h.logger.WithFields(fields).Error("request_failed")
		return
	}
	h.logger.WithFields(fields).Info("request_complete")
}

func requestContext(c fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}

func writeFetchError(c fiber.Ctx, err error) error {
	if fetcher.IsDecode(err) {
		return writeError(c, fiber.StatusBadGateway, "decode_failed")
	}
	return writeError(c, fiber.StatusBadGateway, "upstream_failed")
}

func writeError(c fiber.Ctx, status int, code string) error {
	return c.Status(status).JSON(fiber.Map{"error": code})
}
