package logger

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

type key string

var (
	Key       = key("logger")
	RequestID = key("request_id")
)

type Logger struct {
	log *zap.Logger
}

func New(ctx context.Context, outputPaths []string, env string) context.Context {
	var cfg zap.Config

	switch env {
	case "local":
		cfg = zap.Config{
			Encoding:         "console",
			Level:            zap.NewAtomicLevelAt(zap.DebugLevel),
			OutputPaths:      outputPaths,
			ErrorOutputPaths: []string{"stderr"},
			EncoderConfig: zapcore.EncoderConfig{
				MessageKey: "msg",
				LevelKey:   "level",
				TimeKey:    "ts",
				EncodeTime: zapcore.ISO8601TimeEncoder,
			},
		}
	case "dev":
		cfg = zap.Config{
			Encoding:         "json",
			Level:            zap.NewAtomicLevelAt(zap.DebugLevel),
			OutputPaths:      outputPaths,
			ErrorOutputPaths: []string{"stderr"},
			EncoderConfig:    zap.NewProductionEncoderConfig(),
		}
	default:
		cfg = zap.Config{
			Encoding:         "json",
			Level:            zap.NewAtomicLevelAt(zap.InfoLevel),
			OutputPaths:      outputPaths,
			ErrorOutputPaths: []string{"stderr"},
			EncoderConfig:    zap.NewProductionEncoderConfig(),
		}
	}

	log, err := cfg.Build()
	if err != nil {
		panic("can't init logger: " + err.Error())
	}

	return context.WithValue(ctx, Key, &Logger{log: log})
}

// Nop puts a logger that discards everything into ctx.
func Nop(ctx context.Context) context.Context {
	return context.WithValue(ctx, Key, &Logger{log: zap.NewNop()})
}

// GetFromCtx returns the logger stored in ctx, or a no-op logger when ctx
// carries none.
func GetFromCtx(ctx context.Context) *Logger {
	l, ok := ctx.Value(Key).(*Logger)
	if !ok {
		return &Logger{log: zap.NewNop()}
	}
	return l
}

func (l *Logger) Debug(ctx context.Context, msg string, fields ...zap.Field) {
	l.log.Debug(msg, withRequestID(ctx, fields)...)
}

func (l *Logger) Info(ctx context.Context, msg string, fields ...zap.Field) {
	l.log.Info(msg, withRequestID(ctx, fields)...)
}

func (l *Logger) Warn(ctx context.Context, msg string, fields ...zap.Field) {
	l.log.Warn(msg, withRequestID(ctx, fields)...)
}

func (l *Logger) Error(ctx context.Context, msg string, fields ...zap.Field) {
	l.log.Error(msg, withRequestID(ctx, fields)...)
}

func (l *Logger) Fatal(ctx context.Context, msg string, fields ...zap.Field) {
	l.log.Fatal(msg, withRequestID(ctx, fields)...)
}

func (l *Logger) With(ctx context.Context, fields ...zap.Field) context.Context {
	return context.WithValue(ctx, Key, &Logger{log: l.log.With(fields...)})
}

func (l *Logger) Sync() error {
	return l.log.Sync()
}

// Zap exposes the underlying zap logger for libraries that need one.
func (l *Logger) Zap() *zap.Logger {
	return l.log
}

func withRequestID(ctx context.Context, fields []zap.Field) []zap.Field {
	if id, ok := ctx.Value(RequestID).(string); ok && id != "" {
		fields = append(fields, zap.String(string(RequestID), id))
	}
	return fields
}

func Interceptor(ctx context.Context) grpc.UnaryServerInterceptor {
	return func(lCtx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		lCtx = context.WithValue(lCtx, Key, GetFromCtx(ctx))

		md, ok := metadata.FromIncomingContext(lCtx)
		if ok {
			if guid := md.Get(string(RequestID)); len(guid) > 0 {
				lCtx = context.WithValue(lCtx, RequestID, guid[0])
			}
		}

		GetFromCtx(lCtx).Info(lCtx, "request",
			zap.String("method", info.FullMethod),
			zap.Time("request time", time.Now()),
		)

		return handler(lCtx, req)
	}
}

// Middleware is the HTTP counterpart of Interceptor. It must run after
// chi's RequestID middleware.
func Middleware(ctx context.Context) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			lCtx := context.WithValue(r.Context(), Key, GetFromCtx(ctx))
			lCtx = context.WithValue(lCtx, RequestID, middleware.GetReqID(r.Context()))

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				GetFromCtx(lCtx).Info(lCtx, "request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Duration("latency", time.Since(start)),
					zap.String("remote_addr", r.RemoteAddr),
				)
			}()

			next.ServeHTTP(ww, r.WithContext(lCtx))
		})
	}
}
