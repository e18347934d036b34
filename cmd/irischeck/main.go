package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/park285/Cheese-Fortune-bot/internal/irisfast"
	"github.com/park285/Cheese-Fortune-bot/internal/obslog"
)

func main() {
	observe := flag.Duration("observe", 10*time.Second, "how long to watch the WebSocket")
	room := flag.String("room", "", "send a test message to this room")
	text := flag.String("text", "🎴 irischeck", "test message body")
	flag.Parse()

	_ = godotenv.Load()
	logger, err := obslog.New(obslog.Options{Level: "debug", Format: "console", Console: true})
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	baseURL := os.Getenv("IRIS_BASE_URL")
	wsURL := os.Getenv("IRIS_WS_URL")
	if baseURL == "" {
		logger.Fatal("IRIS_BASE_URL is required")
	}

	headers := irisfast.StaticHeaders(irisHeaders())
	client := irisfast.NewClient(baseURL,
		irisfast.WithHeaderProvider(headers),
		irisfast.WithTimeout(8*time.Second),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if cfg, err := client.GetConfig(ctx); err != nil {
		logger.Warn("config_check_failed", zap.Error(err))
	} else {
		logger.Info("config_check_ok",
			zap.Int("port", cfg.Port),
			zap.Int("polling", cfg.PollingSpeed),
			zap.Int("rate", cfg.MessageRate),
			zap.String("endpoint", cfg.WebserverEndpoint),
		)
	}

	if *room != "" {
		if err := client.SendMessage(ctx, *room, *text); err != nil {
			logger.Warn("send_check_failed", zap.String("room", *room), zap.Error(err))
		} else {
			logger.Info("send_check_ok", zap.String("room", *room))
		}
	}

	if wsURL == "" {
		logger.Info("IRIS_WS_URL not set; skipping WS check")
		return
	}

	ws := irisfast.NewWebSocket(wsURL, 0, time.Second)
	ws.SetHeaderProvider(headers)
	ws.OnStateChange(func(state irisfast.WebSocketState) {
		logger.Info("ws_state", zap.String("state", state.String()))
	})
	ws.OnMessage(func(msg *irisfast.Message) {
		logger.Info("ws_message",
			zap.String("room", msg.Room),
			zap.String("from", msg.SenderName()),
			zap.String("user_id", msg.UserID()),
			zap.String("text", msg.Msg),
		)
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := ws.Connect(cctx); err != nil {
		logger.Warn("ws_connect_failed", zap.Error(err))
		return
	}

	<-time.After(*observe)
	_ = ws.Close(context.Background())
}

func irisHeaders() map[string]string {
	h := map[string]string{}
	for header, key := range map[string]string{
		"X-User-Id":    "X_USER_ID",
		"X-User-Email": "X_USER_EMAIL",
		"X-Session-Id": "X_SESSION_ID",
	} {
		if v := os.Getenv(key); v != "" {
			h[header] = v
		}
	}
	return h
}
