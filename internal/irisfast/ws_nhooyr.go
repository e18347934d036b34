package irisfast

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/Cheese-Fortune-bot/internal/obslog"
)

var ErrNotConnected = errors.New("ws not connected")

type callbackEntry[T any] struct {
	id int
	cb T
}

// WebSocket receives Iris chat events and can write reply frames back.
// A dropped connection is redialed up to maxReconnect times.
type WebSocket struct {
	wsURL   string
	headers HeaderProvider

	mu    sync.RWMutex
	conn  *websocket.Conn
	state WebSocketState

	writeMu sync.Mutex

	cbMu     sync.RWMutex
	nextCbID int
	msgCbs   []callbackEntry[MessageCallback]
	stateCbs []callbackEntry[StateCallback]

	maxReconnect int
	pingInterval time.Duration
	dialTimeout  time.Duration

	rootCtx    context.Context
	rootCancel context.CancelFunc
	stopCh     chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

var _ WSClient = (*WebSocket)(nil)

func NewWebSocket(wsURL string, maxReconnect int, pingInterval time.Duration) *WebSocket {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WebSocket{
		wsURL:        strings.TrimSpace(wsURL),
		state:        WSStateDisconnected,
		maxReconnect: maxReconnect,
		pingInterval: pingInterval,
		dialTimeout:  10 * time.Second,
		rootCtx:      ctx,
		rootCancel:   cancel,
		stopCh:       make(chan struct{}),
	}
}

// SetHeaderProvider injects headers into the WS handshake.
func (ws *WebSocket) SetHeaderProvider(h HeaderProvider) { ws.headers = h }

func (ws *WebSocket) State() WebSocketState {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.state
}

func (ws *WebSocket) Connected() bool {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.conn != nil && ws.state == WSStateConnected
}

func (ws *WebSocket) Connect(ctx context.Context) error {
	switch ws.State() {
	case WSStateConnected, WSStateConnecting:
		return nil
	}
	ws.setState(WSStateConnecting)
	if err := ws.dial(ctx); err != nil {
		ws.setState(WSStateFailed)
		ws.reconnect()
		return err
	}
	return nil
}

func (ws *WebSocket) dial(ctx context.Context) error {
	dctx, cancel := context.WithTimeout(ctx, ws.dialTimeout)
	defer cancel()
	conn, _, err := websocket.Dial(dctx, ws.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      ws.handshakeHeaders(),
	})
	if err != nil {
		return err
	}
	// 이미지 응답(base64 PNG)이 기본 32KiB 제한을 넘는다.
	conn.SetReadLimit(4 << 20)

	ws.mu.Lock()
	ws.conn = conn
	ws.mu.Unlock()
	ws.setState(WSStateConnected)

	ws.wg.Add(2)
	go ws.readLoop(conn)
	go ws.pingLoop(conn)
	return nil
}

func (ws *WebSocket) readLoop(conn *websocket.Conn) {
	defer ws.wg.Done()
	for {
		var msg Message
		if err := wsjson.Read(ws.rootCtx, conn, &msg); err != nil {
			ws.drop(conn, "read", err)
			return
		}
		ws.cbMu.RLock()
		cbs := append([]callbackEntry[MessageCallback](nil), ws.msgCbs...)
		ws.cbMu.RUnlock()
		for _, e := range cbs {
			if e.cb != nil {
				e.cb(&msg)
			}
		}
	}
}

func (ws *WebSocket) pingLoop(conn *websocket.Conn) {
	defer ws.wg.Done()
	t := time.NewTicker(ws.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-ws.stopCh:
			return
		case <-t.C:
		}
		if ws.current() != conn {
			return
		}
		ctx, cancel := context.WithTimeout(ws.rootCtx, 3*time.Second)
		err := conn.Ping(ctx)
		cancel()
		if err == nil {
			failures = 0
			continue
		}
		failures++
		if failures >= 2 {
			ws.drop(conn, "ping", err)
			return
		}
	}
}

// drop closes conn once and starts reconnecting unless we are stopping.
func (ws *WebSocket) drop(conn *websocket.Conn, cause string, err error) {
	ws.mu.Lock()
	if ws.conn != conn {
		ws.mu.Unlock()
		return
	}
	ws.conn = nil
	ws.mu.Unlock()
	_ = conn.Close(websocket.StatusGoingAway, cause)

	if ws.stopping() {
		return
	}
	obslog.L().Warn("ws_dropped", zap.String("cause", cause), zap.Error(err))
	ws.setState(WSStateDisconnected)
	ws.reconnect()
}

func (ws *WebSocket) reconnect() {
	if ws.maxReconnect <= 0 || ws.stopping() {
		return
	}
	ws.setState(WSStateReconnecting)
	go func() {
		for attempt := 1; attempt <= ws.maxReconnect; attempt++ {
			select {
			case <-ws.stopCh:
				return
			case <-time.After(backoffDuration(attempt)):
			}
			if err := ws.dial(ws.rootCtx); err != nil {
				obslog.L().Debug("ws_redial_failed", zap.Int("attempt", attempt), zap.Error(err))
				continue
			}
			return
		}
		ws.setState(WSStateFailed)
	}()
}

// WriteJSON sends one frame; writes are serialized.
func (ws *WebSocket) WriteJSON(ctx context.Context, v any) error {
	conn := ws.current()
	if conn == nil || ws.State() != WSStateConnected {
		return ErrNotConnected
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	ws.writeMu.Lock()
	defer ws.writeMu.Unlock()
	return wsjson.Write(ctx, conn, v)
}

func (ws *WebSocket) OnMessage(cb MessageCallback) int {
	ws.cbMu.Lock()
	defer ws.cbMu.Unlock()
	ws.nextCbID++
	ws.msgCbs = append(ws.msgCbs, callbackEntry[MessageCallback]{id: ws.nextCbID, cb: cb})
	return ws.nextCbID
}

func (ws *WebSocket) RemoveMessageCallback(id int) {
	ws.cbMu.Lock()
	defer ws.cbMu.Unlock()
	ws.msgCbs = removeEntry(ws.msgCbs, id)
}

func (ws *WebSocket) OnStateChange(cb StateCallback) int {
	ws.cbMu.Lock()
	defer ws.cbMu.Unlock()
	ws.nextCbID++
	ws.stateCbs = append(ws.stateCbs, callbackEntry[StateCallback]{id: ws.nextCbID, cb: cb})
	return ws.nextCbID
}

func (ws *WebSocket) RemoveStateCallback(id int) {
	ws.cbMu.Lock()
	defer ws.cbMu.Unlock()
	ws.stateCbs = removeEntry(ws.stateCbs, id)
}

func removeEntry[T any](entries []callbackEntry[T], id int) []callbackEntry[T] {
	for i, e := range entries {
		if e.id == id {
			return append(entries[:i], entries[i+1:]...)
		}
	}
	return entries
}

func (ws *WebSocket) setState(state WebSocketState) {
	ws.mu.Lock()
	ws.state = state
	ws.mu.Unlock()

	ws.cbMu.RLock()
	cbs := append([]callbackEntry[StateCallback](nil), ws.stateCbs...)
	ws.cbMu.RUnlock()
	for _, e := range cbs {
		if e.cb != nil {
			e.cb(state)
		}
	}
}

func (ws *WebSocket) Close(ctx context.Context) error {
	ws.stopOnce.Do(func() { close(ws.stopCh) })
	ws.mu.Lock()
	conn := ws.conn
	ws.conn = nil
	ws.mu.Unlock()
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "close")
	}
	ws.rootCancel()

	done := make(chan struct{})
	go func() {
		ws.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		ws.setState(WSStateDisconnected)
		return nil
	}
}

func (ws *WebSocket) current() *websocket.Conn {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.conn
}

func (ws *WebSocket) stopping() bool {
	select {
	case <-ws.stopCh:
		return true
	default:
		return false
	}
}

func (ws *WebSocket) handshakeHeaders() http.Header {
	hdr := http.Header{}
	if ws.headers == nil {
		return hdr
	}
	for k, v := range ws.headers() {
		if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
			hdr.Set(k, v)
		}
	}
	return hdr
}
