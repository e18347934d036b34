package fortunepresenter

import (
	"strconv"
	"strings"

	core "github.com/park285/Cheese-Fortune-bot/internal/fortune"
	"github.com/park285/Cheese-Fortune-bot/internal/util"
	"github.com/park285/Cheese-Fortune-bot/pkg/fortunedto"
)

const historyTimeLayout = "2006-01-02 15:04"

// PrefixProvider exposes the command prefix replies should mention.
type PrefixProvider interface {
	Prefix() string
}

// Messages renders localized templates; unknown keys come back unchanged.
type Messages interface {
	Localize(locale, key string, data map[string]any) string
}

// Formatter renders fortune DTOs into Kakao-friendly text blocks.
type Formatter struct {
	messages       Messages
	prefixProvider PrefixProvider
}

func NewFormatter(messages Messages, provider PrefixProvider) *Formatter {
	return &Formatter{messages: messages, prefixProvider: provider}
}

func (f *Formatter) Prefix() string {
	if f == nil || f.prefixProvider == nil {
		return ""
	}
	return strings.TrimSpace(f.prefixProvider.Prefix())
}

func (f *Formatter) t(loc, key string, data map[string]any) string {
	if f == nil || f.messages == nil {
		return key
	}
	return f.messages.Localize(loc, key, data)
}

// label resolves key and falls back to raw when the catalog has no entry.
func (f *Formatter) label(loc, key, raw string) string {
	if out := f.t(loc, key, nil); out != "" && out != key {
		return out
	}
	return raw
}

func (f *Formatter) Help(loc string) string {
	title := f.t(loc, "app.title", nil)
	text := f.t(loc, "app.help", map[string]any{"title": title, "prefix": f.Prefix()})
	header, _, _ := strings.Cut(text, "\n")
	return util.ApplySeeMoreWithHeader(text, header, "🎴 "+title, "")
}

func (f *Formatter) Started(state *fortunedto.SpreadState, restarted bool) string {
	loc := localeOf(state)
	labelKey := "label.start"
	if restarted {
		labelKey = "label.new_game"
	}
	return f.t(loc, "reply.started", map[string]any{
		"label":        f.t(loc, labelKey, nil),
		"instructions": f.t(loc, "reply.flip_hint", map[string]any{"prefix": f.Prefix()}),
	})
}

// Reveal returns the direct reply to a flip. A flip before start is
// answered by the controller notification alone.
func (f *Formatter) Reveal(summary *fortunedto.RevealSummary) string {
	if summary == nil {
		return ""
	}
	loc := localeOf(summary.State)
	data := map[string]any{"slot": summary.Slot}
	switch summary.Outcome {
	case "accepted":
		return f.t(loc, "reply.flip_accepted", data)
	case "already_revealed":
		return f.t(loc, "reply.flip_already", data)
	case "invalid":
		return f.t(loc, "reply.flip_invalid", nil)
	default:
		return ""
	}
}

func (f *Formatter) InvalidSlot(loc string) string {
	return f.t(loc, "reply.flip_invalid", nil)
}

func (f *Formatter) Status(state *fortunedto.SpreadState) string {
	loc := localeOf(state)
	var sb strings.Builder
	sb.WriteString(f.t(loc, "status.header", map[string]any{
		"title": f.t(loc, "app.title", nil),
		"phase": f.label(loc, "phase."+phaseOf(state), phaseOf(state)),
	}))
	if state == nil {
		return sb.String()
	}
	for _, card := range state.Cards {
		sb.WriteByte('\n')
		if !card.Revealed {
			sb.WriteString(f.t(loc, "status.hidden", map[string]any{"slot": card.Slot}))
			continue
		}
		sb.WriteString(f.t(loc, "status.revealed", map[string]any{
			"slot":      card.Slot,
			"name":      cardName(card, loc),
			"number":    strconv.Itoa(card.Number),
			"element":   f.label(loc, "element."+card.Element, card.Element),
			"direction": f.label(loc, "direction."+card.Direction, card.Direction),
		}))
	}
	sb.WriteByte('\n')
	sb.WriteString(f.t(loc, "status.footer", map[string]any{"revealed": state.Revealed}))
	return sb.String()
}

func (f *Formatter) Results(state *fortunedto.SpreadState) string {
	loc := localeOf(state)
	if state == nil || state.Result == nil {
		return f.t(loc, "results.pending", nil)
	}
	r := state.Result
	var sb strings.Builder
	sb.WriteString(f.t(loc, "results.title", nil))
	for _, card := range r.Draws {
		sb.WriteByte('\n')
		sb.WriteString(f.t(loc, "results.line", map[string]any{
			"slot":   card.Slot,
			"name":   cardName(card, loc),
			"number": strconv.Itoa(card.Number),
		}))
	}
	sb.WriteString("\n\n")
	sb.WriteString(f.t(loc, "results.total", map[string]any{"total": r.TotalScore}))
	sb.WriteByte('\n')
	sb.WriteString(f.t(loc, "results.dominant", map[string]any{
		"element": f.label(loc, "element."+r.DominantElement, r.DominantElement),
	}))
	return sb.String()
}

func (f *Formatter) Closed(state *fortunedto.SpreadState) string {
	loc := localeOf(state)
	if state != nil && state.Revealed == 0 {
		return f.t(loc, "results.none", nil)
	}
	return f.t(loc, "results.closed", nil)
}

func (f *Formatter) Language(loc string) string {
	name := core.Locale(loc).DisplayName()
	return f.t(loc, "reply.language", map[string]any{"name": name})
}

func (f *Formatter) History(loc string, readings []fortunedto.Reading) string {
	if len(readings) == 0 {
		return f.t(loc, "history.empty", nil)
	}
	header := f.t(loc, "history.header", map[string]any{"count": len(readings)})
	var sb strings.Builder
	sb.WriteString(header)
	for i, r := range readings {
		sb.WriteString("\n")
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteString(". ")
		sb.WriteString(f.t(loc, "history.item", map[string]any{
			"when":    r.CompletedAt.Format(historyTimeLayout),
			"total":   r.TotalScore,
			"element": f.label(loc, "element."+r.DominantElement, r.DominantElement),
		}))
		for _, d := range r.Draws {
			sb.WriteString("\n   · ")
			sb.WriteString(d.Symbol)
			sb.WriteString(" ")
			sb.WriteString(strconv.Itoa(d.Number))
		}
	}
	return util.ApplySeeMoreWithHeader(sb.String(), header, header, "")
}

// Notification flattens a toast into one chat message.
func (f *Formatter) Notification(n fortunedto.Notification) string {
	title := strings.TrimSpace(n.Title)
	body := strings.TrimSpace(n.Body)
	switch {
	case title == "":
		return body
	case body == "":
		return title
	default:
		return title + "\n" + body
	}
}

func (f *Formatter) Error(loc string, derr *fortunedto.DomainError) string {
	if derr == nil {
		return ""
	}
	switch derr.Code {
	case fortunedto.CodeRoomNotAllowed:
		return f.t(loc, "error.room_not_allowed", nil)
	case fortunedto.CodeInvalidSlot:
		return f.t(loc, "reply.flip_invalid", nil)
	default:
		return f.t(loc, "error.internal", nil)
	}
}

func (f *Formatter) Unknown(loc string) string {
	return f.t(loc, "error.unknown", map[string]any{"prefix": f.Prefix()})
}

func localeOf(state *fortunedto.SpreadState) string {
	if state == nil || state.Locale == "" {
		return "en"
	}
	return state.Locale
}

func phaseOf(state *fortunedto.SpreadState) string {
	if state == nil || state.Phase == "" {
		return "idle"
	}
	return state.Phase
}

func cardName(card fortunedto.Card, loc string) string {
	if loc == "zh" && strings.TrimSpace(card.NameZH) != "" {
		return card.NameZH
	}
	if card.NameEN == "" {
		return "?"
	}
	return card.NameEN
}
