package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/panjf2000/ants/v2"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	appcfg "github.com/park285/Cheese-Fortune-bot/internal/config"
	"github.com/park285/Cheese-Fortune-bot/internal/fortunebuilder"
	"github.com/park285/Cheese-Fortune-bot/internal/irisfast"
	"github.com/park285/Cheese-Fortune-bot/internal/obslog"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cfg, err := appcfg.Load()
	if err != nil {
		logger.Fatal("config error", zap.Error(err))
	}

	headers := irisfast.StaticHeaders(cfg.IrisHeaders())
	client := irisfast.NewClient(cfg.IrisBaseURL,
		irisfast.WithHeaderProvider(headers),
		irisfast.WithRetry(3),
	)

	ws := irisfast.NewWebSocket(cfg.IrisWSURL, 5, time.Second)
	ws.SetHeaderProvider(headers)
	ws.OnStateChange(func(state irisfast.WebSocketState) {
		logger.Info("ws_state", zap.String("state", state.String()))
	})

	egress := irisfast.NewEgress(cfg.EgressMode, cfg.EgressDryRun, client, ws, logger)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	deps, err := fortunebuilder.New(ctx, cfg, egress, logger)
	if err != nil {
		logger.Fatal("fortune init error", zap.Error(err))
	}
	defer deps.Close()

	pool, err := ants.NewPool(cfg.MaxConcurrentCommands, ants.WithNonblocking(true))
	if err != nil {
		logger.Fatal("worker pool init error", zap.Error(err))
	}
	defer pool.Release()

	h := &handler{
		prefix:    cfg.BotPrefix,
		svc:       deps.Service,
		presenter: deps.Presenter,
		logger:    logger,
	}

	ws.OnMessage(func(msg *irisfast.Message) {
		if !h.accepts(msg) {
			return
		}
		// WS 읽기 루프를 막지 않도록 풀에서 처리
		if err := pool.Submit(func() { h.handle(msg) }); err != nil {
			logger.Warn("command_dropped", zap.String("room", msg.Room), zap.Error(err))
		}
	})

	go deps.Service.Run(ctx, time.Minute)

	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := ws.Connect(cctx); err != nil {
		cancel()
		logger.Fatal("ws connect error", zap.Error(err))
	}
	cancel()
	logger.Info("fortune_bot_started",
		zap.String("prefix", cfg.BotPrefix),
		zap.String("egress", cfg.EgressMode),
		zap.String("assignment", string(cfg.Assignment())),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("fortune_bot_stopping")
	stop()
	_ = ws.Close(context.Background())
	if err := pool.ReleaseTimeout(5 * time.Second); err != nil {
		logger.Warn("worker pool drain timeout", zap.Error(err))
	}
}
