package irisfast

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// Egress abstracts reply delivery over HTTP or the WebSocket.
type Egress interface {
	SendText(ctx context.Context, room, message string) error
	SendImage(ctx context.Context, room, imageBase64 string) error
}

const (
	ModeHTTP = "http"
	ModeWS   = "ws"
	ModeAuto = "auto"
)

var errNoTransport = errors.New("egress transport not available")

// NewEgress picks the transport for mode. auto prefers a connected WS and
// falls back to HTTP once per reply. dryrun logs WS replies instead of sending.
func NewEgress(mode string, dryrun bool, c *Client, ws *WebSocket, logger *zap.Logger) Egress {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &httpEgress{c: c}
	w := &wsEgress{ws: ws, dryrun: dryrun, logger: logger}
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case ModeWS:
		return w
	case ModeAuto:
		return &autoEgress{ws: w, http: h, logger: logger}
	default:
		return h
	}
}

type httpEgress struct{ c *Client }

func (h *httpEgress) SendText(ctx context.Context, room, message string) error {
	if h.c == nil {
		return errNoTransport
	}
	return h.c.SendMessage(ctx, room, message)
}

func (h *httpEgress) SendImage(ctx context.Context, room, imageBase64 string) error {
	if h.c == nil {
		return errNoTransport
	}
	return h.c.SendImage(ctx, room, imageBase64)
}

type wsEgress struct {
	ws     *WebSocket
	dryrun bool
	logger *zap.Logger
}

func (w *wsEgress) ready() bool { return w.ws != nil && w.ws.Connected() }

func (w *wsEgress) send(ctx context.Context, req ReplyRequest) error {
	if w.ws == nil {
		return errNoTransport
	}
	if w.dryrun {
		w.logger.Info("ws_egress_dryrun", zap.String("type", string(req.Type)), zap.String("room", req.Room), zap.Int("bytes", len(req.Data)))
		return nil
	}
	return w.ws.WriteJSON(ctx, &req)
}

func (w *wsEgress) SendText(ctx context.Context, room, message string) error {
	return w.send(ctx, ReplyRequest{Type: replyText, Room: room, Data: message})
}

func (w *wsEgress) SendImage(ctx context.Context, room, imageBase64 string) error {
	return w.send(ctx, ReplyRequest{Type: replyImage, Room: room, Data: imageBase64})
}

type autoEgress struct {
	ws     *wsEgress
	http   *httpEgress
	logger *zap.Logger
}

func (a *autoEgress) SendText(ctx context.Context, room, message string) error {
	if a.ws.ready() {
		err := a.ws.SendText(ctx, room, message)
		if err == nil {
			return nil
		}
		a.logger.Warn("egress_fallback", zap.String("type", "text"), zap.String("room", room), zap.Error(err))
	}
	return a.http.SendText(ctx, room, message)
}

func (a *autoEgress) SendImage(ctx context.Context, room, imageBase64 string) error {
	if a.ws.ready() {
		err := a.ws.SendImage(ctx, room, imageBase64)
		if err == nil {
			return nil
		}
		a.logger.Warn("egress_fallback", zap.String("type", "image"), zap.String("room", room), zap.Error(err))
	}
	return a.http.SendImage(ctx, room, imageBase64)
}
