package irisfast

import (
	"context"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Message is one chat event pushed by Iris over the WebSocket.
type Message struct {
	Msg    string       `json:"msg"`
	Room   string       `json:"room"`
	Sender *string      `json:"sender,omitempty"`
	JSON   *MessageJSON `json:"json,omitempty"`
}

// MessageJSON carries the raw KakaoTalk fields of a message.
type MessageJSON struct {
	UserID  string `json:"user_id,omitempty"`
	ChatID  string `json:"chat_id,omitempty"`
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
}

// UserID prefers the stable KakaoTalk id over the display name.
func (m *Message) UserID() string {
	if m == nil {
		return ""
	}
	if m.JSON != nil && m.JSON.UserID != "" {
		return m.JSON.UserID
	}
	if m.Sender != nil {
		return *m.Sender
	}
	return ""
}

func (m *Message) SenderName() string {
	if m != nil && m.Sender != nil && *m.Sender != "" {
		return *m.Sender
	}
	return m.UserID()
}

type replyType string

const (
	replyText  replyType = "text"
	replyImage replyType = "image"
)

// ReplyRequest is the /reply body; Data is text or base64 PNG.
type ReplyRequest struct {
	Type replyType `json:"type"`
	Room string    `json:"room"`
	Data string    `json:"data"`
}

type Config struct {
	BotName           string `json:"bot_name"`
	Port              int    `json:"bot_http_port"`
	WebserverEndpoint string `json:"web_server_endpoint"`
	PollingSpeed      int    `json:"db_polling_rate"`
	MessageRate       int    `json:"message_send_rate"`
	BotID             int64  `json:"bot_id"`
}

type DecryptRequest struct {
	Data string `json:"data"`
}

type DecryptResponse struct {
	Decrypted string `json:"decrypted"`
}

type WebSocketState string

const (
	WSStateDisconnected WebSocketState = "disconnected"
	WSStateConnecting   WebSocketState = "connecting"
	WSStateConnected    WebSocketState = "connected"
	WSStateReconnecting WebSocketState = "reconnecting"
	WSStateFailed       WebSocketState = "failed"
)

func (s WebSocketState) String() string { return string(s) }

type MessageCallback func(message *Message)

type StateCallback func(state WebSocketState)

// WSClient is the inbound side used by the bot and irischeck.
type WSClient interface {
	Connect(ctx context.Context) error
	OnMessage(cb MessageCallback) int
	RemoveMessageCallback(id int)
	OnStateChange(cb StateCallback) int
	RemoveStateCallback(id int)
	Close(ctx context.Context) error
}

// HeaderProvider supplies per-request headers (X-User-* and friends).
type HeaderProvider func() map[string]string

// StaticHeaders returns a provider for a fixed header set.
func StaticHeaders(h map[string]string) HeaderProvider {
	return func() map[string]string { return h }
}
