package fortunebuilder

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/Cheese-Fortune-bot/internal/adapter/fortunepresenter"
	"github.com/park285/Cheese-Fortune-bot/internal/config"
	"github.com/park285/Cheese-Fortune-bot/internal/fortune"
	"github.com/park285/Cheese-Fortune-bot/internal/msgcat"
	"github.com/park285/Cheese-Fortune-bot/internal/schedule"
	svcfortune "github.com/park285/Cheese-Fortune-bot/internal/service/fortune"
)

// Deps holds everything the bot needs; Close releases it in reverse order.
type Deps struct {
	Service   *svcfortune.Service
	Presenter *fortunepresenter.Presenter
	Messages  *msgcat.Catalog
	Wheel     *schedule.Wheel
	Store     svcfortune.SessionStore
	Repo      svcfortune.Repository

	db    *sql.DB
	redis *svcfortune.RedisStore
}

// Outbound sends replies to a chat room.
type Outbound interface {
	SendText(ctx context.Context, room, message string) error
	SendImage(ctx context.Context, room, imageBase64 string) error
}

type prefixProvider string

func (p prefixProvider) Prefix() string { return string(p) }

func New(ctx context.Context, cfg *config.AppConfig, out Outbound, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if out == nil {
		return nil, fmt.Errorf("outbound sender is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Deps{}
	ok := false
	defer func() {
		if !ok {
			d.Close()
		}
	}()

	messages, err := msgcat.New(cfg.MessagesDir, string(cfg.DefaultLocale()))
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	d.Messages = messages

	// Session store (Redis optional)
	if cfg.RedisURL != "" {
		rs, err := svcfortune.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("init redis store: %w", err)
		}
		d.redis = rs
		d.Store = rs
	} else {
		logger.Warn("REDIS_URL not set; fortune sessions are kept in memory")
		d.Store = svcfortune.NewMemoryStore()
	}

	// Reading log (Postgres optional)
	if cfg.DatabaseURL != "" {
		db, err := svcfortune.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		d.db = db
		if err := svcfortune.EnsureSchema(ctx, db); err != nil {
			return nil, err
		}
		d.Repo = svcfortune.NewRepository(db)
	} else {
		logger.Warn("DATABASE_URL not set; fortune readings are kept in memory")
		d.Repo = svcfortune.NewMemoryRepository()
	}

	d.Wheel = schedule.NewWheel(cfg.Fortune.Tick)

	formatter := fortunepresenter.NewFormatter(messages, prefixProvider(strings.TrimSpace(cfg.BotPrefix)))
	d.Presenter = fortunepresenter.NewPresenter(formatter,
		func(room, message string) error {
			sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return out.SendText(sctx, room, message)
		},
		func(room, image string) error {
			sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return out.SendImage(sctx, room, image)
		},
	)

	svcCfg := svcfortune.Config{
		Assignment:    cfg.Assignment(),
		DefaultLocale: cfg.DefaultLocale(),
		RevealDelay:   cfg.Fortune.RevealDelay,
		ResultsDelay:  cfg.Fortune.ResultsDelay,
		SessionTTL:    cfg.Fortune.SessionTTL,
		HistoryLimit:  cfg.Fortune.HistoryLimit,
		AllowedRooms:  append([]string(nil), cfg.AllowedRooms...),
		IdleEvict:     cfg.Fortune.IdleEvict,
	}
	service, err := svcfortune.NewService(svcfortune.Deps{
		Catalog:   fortune.DefaultCatalog(),
		Store:     d.Store,
		Repo:      d.Repo,
		Renderer:  svcfortune.NewSpreadRenderer(svcfortune.NewCardArt(nil)),
		Localizer: messages,
		Scheduler: d.Wheel,
		Sink:      d.Presenter,
	}, svcCfg, logger)
	if err != nil {
		return nil, err
	}
	d.Service = service

	ok = true
	return d, nil
}

func (d *Deps) Close() {
	if d == nil {
		return
	}
	if d.Service != nil {
		d.Service.Close()
	}
	if d.Wheel != nil {
		d.Wheel.Stop()
	}
	if d.redis != nil {
		_ = d.redis.Close()
	}
	if d.db != nil {
		_ = d.db.Close()
	}
}
