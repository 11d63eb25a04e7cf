package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/AlexMickh/exoterra-chat/internal/app"
	"github.com/AlexMickh/exoterra-chat/internal/config"
	"github.com/AlexMickh/exoterra-chat/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg := config.MustLoad()

	ctx := logger.New(context.Background(), []string{"stdout", "logs.log"}, cfg.Env)
	defer logger.GetFromCtx(ctx).Sync()

	logger.GetFromCtx(ctx).Info(ctx, "logger is working", zap.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	app := app.Register(ctx, cfg)
	defer app.GracefulStop(ctx)

	if err := app.Run(ctx); err != nil {
		logger.GetFromCtx(ctx).Error(ctx, "server failed", zap.Error(err))
		return
	}

	logger.GetFromCtx(ctx).Info(ctx, "server stopped")
}
