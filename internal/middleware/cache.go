package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/json"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/evently/ticketing/internal/config"
)

// captureWriter captures the response body and status while still
// forwarding everything to the client.
type captureWriter struct {
    http.ResponseWriter
    status int
    buf    bytes.Buffer
    size   int64
    limit  int64
}

func (cw *captureWriter) WriteHeader(code int) {
    cw.status = code
    cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
    if cw.limit <= 0 || cw.size < cw.limit {
        remain := cw.limit - cw.size
        if cw.limit <= 0 || int64(len(b)) <= remain {
            cw.buf.Write(b)
        } else {
            cw.buf.Write(b[:remain])
        }
    }
    cw.size += int64(len(b))
    return cw.ResponseWriter.Write(b)
}

// cachedResponse is the Redis payload: just enough to replay a JSON GET.
type cachedResponse struct {
    Status      int    `json:"status"`
    ContentType string `json:"content_type"`
    Body        []byte `json:"body"`
}

// cacheKeyFrom hashes route and query under the configured prefix so keys
// stay short and opaque regardless of query string contents.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
    tail := c.Path() + "?" + c.Request().URL.RawQuery
    sum := sha1.Sum([]byte(tail))
    return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

// NewRedisCache caches successful responses of the configured methods for
// the configured TTL.  It is applied to the public event list and
// availability endpoints, where a few seconds of staleness is acceptable
// and shields the database during on-sale traffic spikes.  Oversized and
// non-200 responses are passed through uncached.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc {
            return func(c echo.Context) error { return next(c) }
        }
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = 5 * time.Second
    }
    maxBody := int64(cfg.MaxBodyBytes)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
                return next(c)
            }

            ctx := c.Request().Context()
            key := cacheKeyFrom(cfg, c)

            if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
                var cached cachedResponse
                if json.Unmarshal(bs, &cached) == nil {
                    c.Response().Header().Set(echo.HeaderContentType, cached.ContentType)
                    c.Response().Header().Set("X-Cache", "HIT")
                    return c.Blob(cached.Status, cached.ContentType, cached.Body)
                }
            }

            cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")

            if err := next(c); err != nil {
                return err
            }

            if cw.status == http.StatusOK && (maxBody <= 0 || cw.size <= maxBody) {
                cached := cachedResponse{
                    Status:      cw.status,
                    ContentType: c.Response().Header().Get(echo.HeaderContentType),
                    Body:        cw.buf.Bytes(),
                }
                if payload, err := json.Marshal(cached); err == nil {
                    // Detached context: the request may be done but the
                    // cache write should still land.
                    _ = rdb.SetEx(context.Background(), key, payload, ttl).Err()
                }
            }
            return nil
        }
    }
}
