package fortunepresenter

import (
	"context"
	"errors"

	core "github.com/park285/Cheese-Fortune-bot/internal/fortune"
	svc "github.com/park285/Cheese-Fortune-bot/internal/service/fortune"
	"github.com/park285/Cheese-Fortune-bot/pkg/fortunedto"
)

func ToDTOCard(sl core.Slot) fortunedto.Card {
	card := fortunedto.Card{Slot: sl.Index + 1, Revealed: sl.Revealed}
	if !sl.Revealed || sl.Drawn == nil {
		return card
	}
	return fillCard(card, *sl.Drawn)
}

func fillCard(card fortunedto.Card, d core.DrawnValue) fortunedto.Card {
	sym := d.Symbol
	card.SymbolID = sym.ID
	card.NameEN = sym.Name.EN
	card.NameZH = sym.Name.ZH
	card.MeaningEN = sym.Meaning.EN
	card.MeaningZH = sym.Meaning.ZH
	card.Number = d.Number
	card.Element = sym.Element
	card.Direction = string(sym.Direction)
	return card
}

func ToDTOState(s *svc.SpreadState) *fortunedto.SpreadState {
	if s == nil {
		return nil
	}
	cards := make([]fortunedto.Card, len(s.Slots))
	for i, sl := range s.Slots {
		cards[i] = ToDTOCard(sl)
	}
	out := &fortunedto.SpreadState{
		ReadingUUID:    s.ReadingUUID,
		PlayerName:     s.PlayerName,
		Phase:          string(s.Phase),
		Locale:         string(s.Locale),
		Cards:          cards,
		Revealed:       s.Revealed,
		EverStarted:    s.EverStarted,
		Restarted:      s.Restarted,
		ResultsVisible: s.ResultsVisible,
		Image:          append([]byte(nil), s.Image...),
		StartedAt:      s.StartedAt,
	}
	if r := s.Result; r != nil {
		draws := make([]fortunedto.Card, len(r.Draws))
		for i, d := range r.Draws {
			draws[i] = fillCard(fortunedto.Card{Slot: i + 1, Revealed: true}, d)
		}
		out.Result = &fortunedto.Result{
			TotalScore:      r.TotalScore,
			DominantElement: r.DominantElement,
			Draws:           draws,
		}
	}
	return out
}

func ToDTOReveal(r *svc.RevealResult, index int) *fortunedto.RevealSummary {
	if r == nil {
		return nil
	}
	out := &fortunedto.RevealSummary{
		Outcome: r.Outcome.String(),
		Slot:    index + 1,
		State:   ToDTOState(r.State),
	}
	if r.Slot != nil {
		card := ToDTOCard(*r.Slot)
		out.Card = &card
	}
	return out
}

func ToDTONotification(n core.Notification) fortunedto.Notification {
	slot := 0
	if n.Slot >= 0 {
		slot = n.Slot + 1
	}
	return fortunedto.Notification{
		Kind:     string(n.Kind),
		Title:    n.Title,
		Body:     n.Body,
		Duration: n.Duration,
		Slot:     slot,
	}
}

func ToDTOReadings(list []*svc.Reading) []fortunedto.Reading {
	out := make([]fortunedto.Reading, 0, len(list))
	for _, r := range list {
		if r == nil {
			continue
		}
		draws := make([]fortunedto.ReadingDraw, len(r.Draws))
		for i, d := range r.Draws {
			draws[i] = fortunedto.ReadingDraw{
				Slot:     d.Slot + 1,
				SymbolID: d.SymbolID,
				Symbol:   d.Symbol,
				Number:   d.Number,
				Element:  d.Element,
			}
		}
		out = append(out, fortunedto.Reading{
			ID:              r.ID,
			ReadingUUID:     r.ReadingUUID,
			Locale:          r.Locale,
			Assignment:      r.Assignment,
			TotalScore:      r.TotalScore,
			DominantElement: r.DominantElement,
			Draws:           draws,
			StartedAt:       r.StartedAt,
			CompletedAt:     r.CompletedAt,
		})
	}
	return out
}

// ToDomainError maps service errors onto stable reply codes.
func ToDomainError(err error) *fortunedto.DomainError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, svc.ErrRoomNotAllowed):
		return &fortunedto.DomainError{Code: fortunedto.CodeRoomNotAllowed, Message: err.Error()}
	case errors.Is(err, svc.ErrInvalidSlot), errors.Is(err, core.ErrSlotOutOfRange):
		return &fortunedto.DomainError{Code: fortunedto.CodeInvalidSlot, Message: err.Error()}
	case errors.Is(err, svc.ErrServiceClosed), errors.Is(err, context.DeadlineExceeded):
		return &fortunedto.DomainError{Code: fortunedto.CodeUnavailable, Message: err.Error(), Retryable: true}
	default:
		return &fortunedto.DomainError{Code: fortunedto.CodeInternal, Message: err.Error()}
	}
}
