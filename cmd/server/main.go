package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/mbeoliero/kit/log"
	"github.com/mbeoliero/uq/internal/ai"
	"github.com/mbeoliero/uq/internal/config"
	"github.com/mbeoliero/uq/internal/gateway"
	"github.com/mbeoliero/uq/internal/handler"
	"github.com/mbeoliero/uq/internal/presence"
	"github.com/mbeoliero/uq/internal/repository"
	"github.com/mbeoliero/uq/internal/router"
	"github.com/mbeoliero/uq/internal/service"
	"github.com/mbeoliero/uq/pkg/constant"
	"github.com/mbeoliero/uq/pkg/idgen"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the yaml config file")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.CtxError(ctx, "failed to load config: %v", err)
		panic(err)
	}

	log.CtxInfo(ctx, "config loaded: mode=%s", cfg.Server.Mode)

	constant.InitRedisKeyPrefix(cfg.Redis.KeyPrefix)
	log.CtxInfo(ctx, "redis key prefix: %s", constant.GetRedisKeyPrefix())

	// Initialize repositories
	repos, err := repository.NewRepositories(cfg)
	if err != nil {
		log.CtxError(ctx, "failed to initialize repositories: %v", err)
		panic(err)
	}
	defer repos.Close()

	if err := repos.Ping(ctx); err != nil {
		log.CtxError(ctx, "backend check failed: %v", err)
		panic(err)
	}
	log.CtxInfo(ctx, "database connection established")

	if cfg.Server.AutoMigrate {
		if err := repos.Migrate(ctx); err != nil {
			log.CtxError(ctx, "migration failed: %v", err)
			panic(err)
		}
	}

	// Redis may have been flushed, the counter must never fall behind MySQL
	if last, err := repos.Uq.InitFromMySQL(ctx); err != nil {
		log.CtxError(ctx, "failed to seed uq counter: %v", err)
		panic(err)
	} else {
		log.CtxInfo(ctx, "uq counter at %d", last)
	}

	msgIds, err := idgen.MessageIds(cfg.Server.MachineId)
	if err != nil {
		log.CtxError(ctx, "failed to create id generator: %v", err)
		panic(err)
	}

	var completer ai.Completer
	if cfg.AI.Enabled() {
		client, err := ai.NewAnthropicClient(cfg.AI)
		if err != nil {
			log.CtxError(ctx, "failed to create ai client: %v", err)
			panic(err)
		}
		completer = client
		log.CtxInfo(ctx, "ai enabled: model=%s", cfg.AI.Model)
	} else {
		log.CtxWarn(ctx, "ai disabled: no api key configured")
	}

	// Initialize services
	authService := service.NewAuthService(repos, cfg, nil)
	userService := service.NewUserService(repos.User)
	contactService := service.NewContactService(repos)
	msgService := service.NewMessageService(repos, msgIds)
	aiService := service.NewAIService(repos, msgService, completer)

	// Initialize WebSocket server
	wsServer := gateway.NewWsServer(cfg, repos.Redis, authService, userService)
	msgService.SetPusher(wsServer)
	wsServer.Run(ctx)
	log.CtxInfo(ctx, "websocket server started")

	sweeper, err := presence.NewSweeper(repos.User, cfg.Presence)
	if err != nil {
		log.CtxError(ctx, "failed to create presence sweeper: %v", err)
		panic(err)
	}
	go sweeper.Run(ctx)

	handlers := &router.Handlers{
		Auth:    handler.NewAuthHandler(authService),
		User:    handler.NewUserHandler(userService),
		Contact: handler.NewContactHandler(contactService),
		Message: handler.NewMessageHandler(msgService),
		AI:      handler.NewAIHandler(aiService),
	}

	h := server.Default(
		server.WithHostPorts(fmt.Sprintf(":%d", cfg.Server.HTTPPort)),
	)

	router.SetupRouter(h.Engine, cfg, handlers, authService, wsServer)

	log.CtxInfo(ctx, "server starting on port %d", cfg.Server.HTTPPort)

	go func() {
		h.Spin()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.CtxInfo(ctx, "shutting down server...")
	cancel()

	if err := h.Shutdown(context.Background()); err != nil {
		log.CtxError(ctx, "server shutdown error: %v", err)
	}

	log.CtxInfo(ctx, "server stopped")
}
