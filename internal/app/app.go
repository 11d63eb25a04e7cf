package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	natsbroker "github.com/AlexMickh/exoterra-chat/internal/broker/nats"
	"github.com/AlexMickh/exoterra-chat/internal/chain/ethereum"
	"github.com/AlexMickh/exoterra-chat/internal/config"
	grpcserver "github.com/AlexMickh/exoterra-chat/internal/grpc/server"
	httpserver "github.com/AlexMickh/exoterra-chat/internal/http/server"
	"github.com/AlexMickh/exoterra-chat/internal/service"
	"github.com/AlexMickh/exoterra-chat/internal/storage/minio"
	"github.com/AlexMickh/exoterra-chat/internal/storage/postgres"
	"github.com/AlexMickh/exoterra-chat/internal/storage/redis"
	"github.com/AlexMickh/exoterra-chat/internal/storage/sqlite"
	ethclient "github.com/AlexMickh/exoterra-chat/pkg/eth-client"
	"github.com/AlexMickh/exoterra-chat/pkg/jwt"
	"github.com/AlexMickh/exoterra-chat/pkg/logger"
	minioclient "github.com/AlexMickh/exoterra-chat/pkg/minio-client"
	natsclient "github.com/AlexMickh/exoterra-chat/pkg/nats-client"
	postgresclient "github.com/AlexMickh/exoterra-chat/pkg/postgres-client"
	redisclient "github.com/AlexMickh/exoterra-chat/pkg/redis-client"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

const clientName = "exoterra-chat"

type closer struct {
	name  string
	close func() error
}

type App struct {
	cfg        *config.Config
	httpServer *http.Server
	grpcServer *grpc.Server
	closers    []closer
}

// Register connects every configured dependency and builds both servers.
// Any failure is fatal.
func Register(ctx context.Context, cfg *config.Config) *App {
	const op = "app.Register"

	root := ctx
	ctx = logger.GetFromCtx(ctx).With(ctx, zap.String("op", op))

	a := &App{cfg: cfg}
	checks := map[string]httpserver.Check{}

	var store service.Storage
	switch cfg.Storage.Driver {
	case "postgres":
		logger.GetFromCtx(ctx).Info(ctx, "initing postgres")
		pgCfg := postgresclient.NewConfig(
			cfg.DB.User,
			cfg.DB.Password,
			cfg.DB.Host,
			cfg.DB.Port,
			cfg.DB.Name,
			cfg.DB.MinPools,
			cfg.DB.MaxPools,
			cfg.DB.MigrationsPath,
		)
		db, err := postgresclient.New(ctx, pgCfg)
		if err != nil {
			logger.GetFromCtx(ctx).Fatal(ctx, "failed to init pgx pool", zap.Error(err))
		}

		store = postgres.New(db)
		checks["postgres"] = db.Ping
		a.closers = append(a.closers, closer{"postgres", func() error {
			db.Close()
			return nil
		}})
	case "sqlite":
		logger.GetFromCtx(ctx).Info(ctx, "initing sqlite", zap.String("path", cfg.SQLite.Path))
		db, err := sqlite.New(cfg.SQLite.Path)
		if err != nil {
			logger.GetFromCtx(ctx).Fatal(ctx, "failed to init sqlite", zap.Error(err))
		}

		store = db
		checks["sqlite"] = db.Ping
		a.closers = append(a.closers, closer{"sqlite", db.Close})
	default:
		logger.GetFromCtx(ctx).Fatal(ctx, "unknown storage driver", zap.String("driver", cfg.Storage.Driver))
	}

	var cash service.Cash
	if cfg.Redis.Addr != "" {
		logger.GetFromCtx(ctx).Info(ctx, "initing redis")
		redisCfg := redisclient.NewConfig(
			cfg.Redis.Addr,
			cfg.Redis.User,
			cfg.Redis.Password,
			cfg.Redis.DB,
		)
		rdb, err := redisclient.New(ctx, redisCfg)
		if err != nil {
			logger.GetFromCtx(ctx).Fatal(ctx, "failed to init redis", zap.Error(err))
		}

		cash = redis.New(rdb, cfg.Redis.Expiration)
		checks["redis"] = func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}
		a.closers = append(a.closers, closer{"redis", rdb.Close})
	}

	var s3 service.S3
	if cfg.S3.Endpoint != "" {
		logger.GetFromCtx(ctx).Info(ctx, "initing minio")
		minioCfg := minioclient.NewConfig(
			cfg.S3.Endpoint,
			cfg.S3.User,
			cfg.S3.Password,
			cfg.S3.BucketName,
			cfg.S3.IsUseSsl,
		)
		mc, err := minioclient.New(ctx, minioCfg)
		if err != nil {
			logger.GetFromCtx(ctx).Fatal(ctx, "failed to init minio", zap.Error(err))
		}

		s3 = minio.New(mc, cfg.S3.BucketName, cfg.S3.Expiration)
	}

	var events service.Events
	if cfg.NATS.URL != "" {
		logger.GetFromCtx(ctx).Info(ctx, "initing nats")
		nc, err := natsclient.New(cfg.NATS.URL, clientName)
		if err != nil {
			logger.GetFromCtx(ctx).Fatal(ctx, "failed to init nats", zap.Error(err))
		}

		events = natsbroker.New(nc, cfg.NATS.SubjectPrefix)
		checks["nats"] = func(context.Context) error {
			if !nc.IsConnected() {
				return fmt.Errorf("nats status is %s", nc.Status())
			}
			return nil
		}
		a.closers = append(a.closers, closer{"nats", nc.Drain})
	}

	logger.GetFromCtx(ctx).Info(ctx, "initing chain client")
	eth, err := ethclient.New(ctx, cfg.Chain.RPCURL)
	if err != nil {
		logger.GetFromCtx(ctx).Fatal(ctx, "failed to dial chain rpc", zap.Error(err))
	}
	reader, err := ethereum.New(eth, cfg.Chain.Tag, cfg.Chain.CallTimeout)
	if err != nil {
		logger.GetFromCtx(ctx).Fatal(ctx, "failed to init chain reader", zap.Error(err))
	}
	checks["chain"] = func(ctx context.Context) error {
		_, err := eth.BlockNumber(ctx)
		return err
	}
	a.closers = append(a.closers, closer{"chain", func() error {
		eth.Close()
		return nil
	}})

	svc := service.New(
		store,
		cash,
		s3,
		reader,
		events,
		jwt.NewJWT(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL),
		service.WithRecallWindow(cfg.Chat.RecallWindow),
		service.WithMaxPageSize(cfg.Chat.MaxPageSize),
	)

	a.httpServer = &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      httpserver.New(svc, checks).Router(root),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	a.grpcServer = grpc.NewServer(grpc.UnaryInterceptor(logger.Interceptor(root)))
	grpcserver.Register(a.grpcServer, grpcserver.New(checks))

	return a
}

// Run serves HTTP and gRPC until ctx is done or one of them fails, then
// shuts both down.
func (a *App) Run(ctx context.Context) error {
	const op = "app.Run"

	ctx = logger.GetFromCtx(ctx).With(ctx, zap.String("op", op))

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", a.cfg.GRPC.Port))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.GetFromCtx(ctx).Info(ctx, "http server started", zap.String("addr", a.cfg.HTTP.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	})

	g.Go(func() error {
		logger.GetFromCtx(ctx).Info(ctx, "grpc server started", zap.Int("port", a.cfg.GRPC.Port))
		if err := a.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()

		logger.GetFromCtx(ctx).Info(ctx, "stopping servers")
		a.grpcServer.GracefulStop()
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	})

	return g.Wait()
}

// GracefulStop releases the connections Register opened, newest first.
func (a *App) GracefulStop(ctx context.Context) {
	const op = "app.GracefulStop"

	ctx = logger.GetFromCtx(ctx).With(ctx, zap.String("op", op))

	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		logger.GetFromCtx(ctx).Info(ctx, "stopping "+c.name)
		if err := c.close(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			logger.GetFromCtx(ctx).Error(ctx, "failed to stop "+c.name, zap.Error(err))
		}
	}
}
