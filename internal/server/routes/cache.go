package routes

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"github.com/any-hub/extmeta/internal/cache"
)

// CacheInspector 暴露缓存库的诊断统计，*cache.BoltStore 满足该接口。
type CacheInspector interface {
	Stats(ctx context.Context) (cache.Stats, error)
}

// RegisterCacheRoutes 暴露 /-/cache 诊断接口，供 SRE 查看缓存表规模。
func RegisterCacheRoutes(app *fiber.App, inspector CacheInspector) {
	if app == nil || inspector == nil {
		return
	}

	app.Get("/-/cache", func(c fiber.Ctx) error {
		stats, err := inspector.Stats(c.UserContext())
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "cache_unavailable"})
		}
		return c.JSON(encodeStats(stats))
	})
}

type cachePayload struct {
	Path      string `json:"path"`
	Bucket    string `json:"bucket"`
	Entries   int    `json:"entries"`
	SizeBytes int64  `json:"size_bytes"`
}

func encodeStats(stats cache.Stats) cachePayload {
	return cachePayload{
		Path:      stats.Path,
		Bucket:    stats.Bucket,
		Entries:   stats.Entries,
		SizeBytes: stats.SizeBytes,
	}
}
