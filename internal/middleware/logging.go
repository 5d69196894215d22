package middleware

import (
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/plantcare/pkg/httpcontext"
)

// AccessLog writes one line per request. Server errors are logged at error level.
func AccessLog(logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			start := time.Now()
			requestID := httpcontext.RequestID(ctx)
			method := string(ctx.Method())
			path := string(ctx.Path())

			next(ctx)

			status := ctx.Response.StatusCode()
			fields := []zap.Field{
				zap.Int("status", status),
				zap.String("method", method),
				zap.String("path", path),
				zap.String("ip", ctx.RemoteIP().String()),
				zap.ByteString("user_agent", ctx.Request.Header.UserAgent()),
				zap.Duration("latency", time.Since(start)),
				zap.String("request_id", requestID),
			}

			if status >= http.StatusInternalServerError {
				logger.Error("http request", fields...)
				return
			}
			logger.Info("http request", fields...)
		}
	}
}
