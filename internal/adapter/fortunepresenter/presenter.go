package fortunepresenter

import (
	"context"
	"encoding/base64"
	"strings"

	core "github.com/park285/Cheese-Fortune-bot/internal/fortune"
	svc "github.com/park285/Cheese-Fortune-bot/internal/service/fortune"
	"github.com/park285/Cheese-Fortune-bot/pkg/fortunedto"
)

// Presenter delivers formatted messages and spread images without coupling to the command layer.
// It also serves as the service sink for delayed notifications and results.
type Presenter struct {
	sendMessage func(room, message string) error
	sendImage   func(room, imageBase64 string) error
	formatter   *Formatter
}

func NewPresenter(formatter *Formatter, sendMessage func(room, message string) error, sendImage func(room, imageBase64 string) error) *Presenter {
	return &Presenter{
		sendMessage: sendMessage,
		sendImage:   sendImage,
		formatter:   formatter,
	}
}

func (p *Presenter) Formatter() *Formatter {
	if p == nil {
		return nil
	}
	return p.formatter
}

// Text sends a plain reply.
func (p *Presenter) Text(room, message string) error {
	if p == nil || p.sendMessage == nil || strings.TrimSpace(message) == "" {
		return nil
	}
	return p.sendMessage(room, message)
}

// Spread sends message followed by the state's image when one is attached.
func (p *Presenter) Spread(room, message string, state *fortunedto.SpreadState) error {
	if p == nil {
		return nil
	}
	if err := p.Text(room, message); err != nil {
		return err
	}
	if state != nil && len(state.Image) > 0 && p.sendImage != nil {
		encoded := base64.StdEncoding.EncodeToString(state.Image)
		if err := p.sendImage(room, encoded); err != nil {
			return err
		}
	}
	return nil
}

func (p *Presenter) Notify(ctx context.Context, room string, n core.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.Text(room, p.formatter.Notification(ToDTONotification(n)))
}

func (p *Presenter) Results(ctx context.Context, room string, state *svc.SpreadState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dto := ToDTOState(state)
	return p.Spread(room, p.formatter.Results(dto), dto)
}

var _ svc.Sink = (*Presenter)(nil)
