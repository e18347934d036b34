package main

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/Cheese-Fortune-bot/internal/adapter/fortunepresenter"
	"github.com/park285/Cheese-Fortune-bot/internal/fortune"
	"github.com/park285/Cheese-Fortune-bot/internal/irisfast"
	svcfortune "github.com/park285/Cheese-Fortune-bot/internal/service/fortune"
)

const commandTimeout = 20 * time.Second

// FortuneService is the part of the service the chat handler drives.
type FortuneService interface {
	Start(ctx context.Context, meta svcfortune.SessionMeta) (*svcfortune.SpreadState, error)
	Reveal(ctx context.Context, meta svcfortune.SessionMeta, index int) (*svcfortune.RevealResult, error)
	Status(ctx context.Context, meta svcfortune.SessionMeta) (*svcfortune.SpreadState, error)
	Results(ctx context.Context, meta svcfortune.SessionMeta) (*svcfortune.SpreadState, error)
	Dismiss(ctx context.Context, meta svcfortune.SessionMeta) (*svcfortune.SpreadState, error)
	ToggleLanguage(ctx context.Context, meta svcfortune.SessionMeta) (fortune.Locale, error)
	SetLanguage(ctx context.Context, meta svcfortune.SessionMeta, loc fortune.Locale) (fortune.Locale, error)
	Locale(ctx context.Context, meta svcfortune.SessionMeta) (fortune.Locale, error)
	Settings(ctx context.Context, meta svcfortune.SessionMeta) error
	Credits(ctx context.Context, meta svcfortune.SessionMeta) error
	History(ctx context.Context, meta svcfortune.SessionMeta, limit int) ([]*svcfortune.Reading, error)
}

type handler struct {
	prefix    string
	svc       FortuneService
	presenter *fortunepresenter.Presenter
	logger    *zap.Logger
}

func (h *handler) accepts(msg *irisfast.Message) bool {
	if msg == nil || strings.TrimSpace(msg.Msg) == "" {
		return false
	}
	return strings.HasPrefix(strings.TrimSpace(msg.Msg), h.prefix)
}

func (h *handler) handle(msg *irisfast.Message) {
	raw := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(msg.Msg), h.prefix))
	cmd, ok := parseCommand(raw)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	meta := svcfortune.SessionMeta{
		SessionID: sessionIDFor(msg),
		Room:      msg.Room,
		Sender:    msg.SenderName(),
	}
	if err := h.dispatch(ctx, meta, cmd); err != nil {
		h.fail(ctx, meta, err)
	}
}

func (h *handler) dispatch(ctx context.Context, meta svcfortune.SessionMeta, cmd command) error {
	f := h.presenter.Formatter()
	room := meta.Room

	switch cmd.kind {
	case cmdStart:
		state, err := h.svc.Start(ctx, meta)
		if err != nil {
			return err
		}
		dto := fortunepresenter.ToDTOState(state)
		return h.presenter.Spread(room, f.Started(dto, state.Restarted), dto)

	case cmdFlip:
		if cmd.slot == 0 {
			loc, err := h.svc.Locale(ctx, meta)
			if err != nil {
				return err
			}
			return h.presenter.Text(room, f.InvalidSlot(string(loc)))
		}
		index := cmd.slot - 1
		res, err := h.svc.Reveal(ctx, meta, index)
		if errors.Is(err, svcfortune.ErrInvalidSlot) {
			loc, lerr := h.svc.Locale(ctx, meta)
			if lerr != nil {
				return lerr
			}
			return h.presenter.Text(room, f.InvalidSlot(string(loc)))
		}
		if err != nil {
			return err
		}
		summary := fortunepresenter.ToDTOReveal(res, index)
		return h.presenter.Spread(room, f.Reveal(summary), summary.State)

	case cmdStatus:
		state, err := h.svc.Status(ctx, meta)
		if err != nil {
			return err
		}
		dto := fortunepresenter.ToDTOState(state)
		return h.presenter.Spread(room, f.Status(dto), dto)

	case cmdResult:
		state, err := h.svc.Results(ctx, meta)
		if err != nil {
			return err
		}
		dto := fortunepresenter.ToDTOState(state)
		return h.presenter.Spread(room, f.Results(dto), dto)

	case cmdClose:
		state, err := h.svc.Dismiss(ctx, meta)
		if err != nil {
			return err
		}
		return h.presenter.Text(room, f.Closed(fortunepresenter.ToDTOState(state)))

	case cmdLanguage:
		var (
			loc fortune.Locale
			err error
		)
		if target, ok := fortune.ParseLocale(cmd.arg); ok {
			loc, err = h.svc.SetLanguage(ctx, meta, target)
		} else {
			loc, err = h.svc.ToggleLanguage(ctx, meta)
		}
		if err != nil {
			return err
		}
		return h.presenter.Text(room, f.Language(string(loc)))

	case cmdSettings:
		return h.svc.Settings(ctx, meta)

	case cmdCredits:
		return h.svc.Credits(ctx, meta)

	case cmdHistory:
		loc, err := h.svc.Locale(ctx, meta)
		if err != nil {
			return err
		}
		readings, err := h.svc.History(ctx, meta, cmd.limit)
		if err != nil {
			return err
		}
		return h.presenter.Text(room, f.History(string(loc), fortunepresenter.ToDTOReadings(readings)))

	case cmdHelp:
		return h.presenter.Text(room, f.Help(h.localeOrDefault(ctx, meta)))

	default:
		return h.presenter.Text(room, f.Unknown(h.localeOrDefault(ctx, meta)))
	}
}

func (h *handler) localeOrDefault(ctx context.Context, meta svcfortune.SessionMeta) string {
	loc, err := h.svc.Locale(ctx, meta)
	if err != nil {
		return string(fortune.LocaleEN)
	}
	return string(loc)
}

func (h *handler) fail(ctx context.Context, meta svcfortune.SessionMeta, err error) {
	derr := fortunepresenter.ToDomainError(err)
	h.logger.Warn("fortune_command_failed",
		zap.String("room", meta.Room),
		zap.String("code", derr.Code),
		zap.Error(err),
	)
	loc := string(fortune.LocaleEN)
	if !errors.Is(err, svcfortune.ErrRoomNotAllowed) {
		loc = h.localeOrDefault(ctx, meta)
	}
	if sendErr := h.presenter.Text(meta.Room, h.presenter.Formatter().Error(loc, derr)); sendErr != nil {
		h.logger.Warn("fortune_reply_failed", zap.String("room", meta.Room), zap.Error(sendErr))
	}
}

// sessionIDFor keys a session by room and user so each player has one spread per room.
func sessionIDFor(msg *irisfast.Message) string {
	user := msg.UserID()
	if user == "" {
		user = "anonymous"
	}
	return msg.Room + ":" + user
}
