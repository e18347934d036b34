package irisfast

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

func newTestClient(t *testing.T, h fasthttp.RequestHandler, opts ...Option) *Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: h}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })

	base := []Option{
		WithDial(func(string) (net.Conn, error) { return ln.Dial() }),
		withBackoff(func(int) time.Duration { return time.Millisecond }),
	}
	return NewClient("http://iris.test/", append(base, opts...)...)
}

func TestSendMessagePostsReply(t *testing.T) {
	var got ReplyRequest
	var user string
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) != "/reply" || !ctx.IsPost() {
			ctx.SetStatusCode(fasthttp.StatusNotFound)
			return
		}
		user = string(ctx.Request.Header.Peek("X-User-Id"))
		_ = json.Unmarshal(ctx.PostBody(), &got)
	}, WithHeaderProvider(StaticHeaders(map[string]string{"X-User-Id": "bot", "X-Empty": " "})))

	if err := c.SendMessage(context.Background(), "room-1", "hello"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if got.Type != replyText || got.Room != "room-1" || got.Data != "hello" {
		t.Fatalf("unexpected body %+v", got)
	}
	if user != "bot" {
		t.Fatalf("header not forwarded: %q", user)
	}
}

func TestReplyRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		if calls.Add(1) < 3 {
			ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
			return
		}
		ctx.SetStatusCode(fasthttp.StatusOK)
	})
	if err := c.SendImage(context.Background(), "room", "aGVsbG8="); err != nil {
		t.Fatalf("SendImage: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestReplyDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		calls.Add(1)
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		ctx.SetBodyString("bad room")
	})
	err := c.SendMessage(context.Background(), "room", "x")
	var se *StatusError
	if !errors.As(err, &se) || se.Code != fasthttp.StatusBadRequest || se.Body != "bad room" {
		t.Fatalf("expected StatusError 400, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one attempt, got %d", calls.Load())
	}
}

func TestReplyRejectsEmptyRoom(t *testing.T) {
	c := NewClient("http://unused")
	if err := c.SendMessage(context.Background(), " ", "x"); err == nil {
		t.Fatalf("expected error for empty room")
	}
}

func TestGetConfigDecodes(t *testing.T) {
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"bot_name":"cheese","bot_http_port":3000,"message_send_rate":50}`)
	})
	cfg, err := c.GetConfig(context.Background())
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if cfg.BotName != "cheese" || cfg.Port != 3000 || cfg.MessageRate != 50 {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestBackoffDuration(t *testing.T) {
	if backoffDuration(1) != 100*time.Millisecond || backoffDuration(3) != 400*time.Millisecond {
		t.Fatalf("unexpected backoff progression")
	}
	if backoffDuration(50) != backoffDuration(6) || backoffDuration(0) != backoffDuration(1) {
		t.Fatalf("backoff not clamped")
	}
}

func TestMessageUserID(t *testing.T) {
	name := "Alice"
	m := &Message{Sender: &name}
	if m.UserID() != "Alice" || m.SenderName() != "Alice" {
		t.Fatalf("sender fallback broken")
	}
	m.JSON = &MessageJSON{UserID: "42"}
	if m.UserID() != "42" || m.SenderName() != "Alice" {
		t.Fatalf("json user id not preferred")
	}
}
