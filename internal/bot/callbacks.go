package bot

import (
	"context"
	"log/slog"

	"github.com/m3rciful/supportbot/core/logger"
	tg "github.com/m3rciful/supportbot/core/telegram"
	"github.com/m3rciful/supportbot/internal/browse"
	"github.com/m3rciful/supportbot/internal/callback"
	"github.com/m3rciful/supportbot/internal/dialogue"
	"github.com/m3rciful/supportbot/internal/records"
)

// entries lists the prefix families first; their order is the match order.
func (b *Bot) entries() []callback.Entry {
	return []callback.Entry{
		callback.Prefix(callback.PrefixPage, callback.HandlerFunc(b.onPage)),
		callback.Prefix(callback.PrefixSelect, callback.HandlerFunc(b.onSelect)),
		callback.Prefix(callback.PrefixBackToPage, callback.HandlerFunc(b.onBackToPage)),

		callback.Literal(cbFAQ, callback.HandlerFunc(b.onFAQ)),
		callback.Literal(cbBackToFAQ, callback.HandlerFunc(b.onFAQ)),
		callback.Literal(cbProfits, callback.HandlerFunc(b.onProfits)),
		callback.Literal(cbBackToMenu, callback.HandlerFunc(b.onBackToMenu)),
		callback.Literal(cbMyRequests, callback.HandlerFunc(b.onMyRequests)),
		callback.Literal(cbAll, b.openList(records.FilterAll)),
		callback.Literal(cbAnswered, b.openList(records.FilterAnswered)),
		callback.Literal(cbAccepted, b.openList(records.FilterAccepted)),
		callback.Literal(cbCurrentPage, callback.HandlerFunc(func(context.Context, callback.Query) error { return nil })),
	}
}

// replace deletes the pressed message and sends msg in its place.
func (b *Bot) replace(ctx context.Context, q callback.Query, msg tg.Message) error {
	if q.Message.MessageID != 0 {
		if err := b.out.Delete(ctx, q.Message); err != nil {
			return err
		}
	}
	return b.send(ctx, q.ConversationID, msg)
}

func (b *Bot) onFAQ(ctx context.Context, q callback.Query) error {
	if err := b.replace(ctx, q, tg.Message{Text: faqText(q.FirstName), Keyboard: faqKeyboard(), Markdown: true}); err != nil {
		return err
	}
	b.states.Replace(q.ConversationID, dialogue.AwaitingInput{})
	return nil
}

func (b *Bot) onProfits(ctx context.Context, q callback.Query) error {
	return b.replace(ctx, q, tg.Message{Text: profitsText(), Keyboard: profitsKeyboard(), Markdown: true})
}

func (b *Bot) onBackToMenu(ctx context.Context, q callback.Query) error {
	b.states.Replace(q.ConversationID, dialogue.Idle{})
	return b.out.EditText(ctx, q.Message, tg.Message{Text: menuText, Keyboard: menuKeyboard()})
}

func (b *Bot) onMyRequests(ctx context.Context, q callback.Query) error {
	return b.replace(ctx, q, tg.Message{Text: chooseText, Keyboard: historyKeyboard(), Markdown: true})
}

func (b *Bot) openList(filter records.Filter) callback.HandlerFunc {
	return func(ctx context.Context, q callback.Query) error {
		view, err := b.flow.Open(ctx, q.ConversationID, q.UserID, filter)
		if err != nil {
			return err
		}
		if len(view.Page.Items) == 0 {
			return b.out.EditText(ctx, q.Message, tg.Message{Text: noRequestsText, Keyboard: historyKeyboard()})
		}
		return b.out.EditKeyboard(ctx, q.Message, listKeyboard(view.Page))
	}
}

func (b *Bot) onPage(ctx context.Context, q callback.Query) error {
	p, _ := q.Payload.(callback.PagePayload)
	view, ok := b.flow.Turn(ctx, q.ConversationID, p.Page, p.Valid)
	if !ok {
		return nil
	}
	return b.out.EditKeyboard(ctx, q.Message, listKeyboard(view.Page))
}

func (b *Bot) onSelect(ctx context.Context, q callback.Query) error {
	p, _ := q.Payload.(callback.SelectPayload)
	view, ok := b.flow.Select(ctx, q.ConversationID, p.ItemID)
	if !ok {
		return nil
	}
	return b.out.EditText(ctx, q.Message, itemMessage(view))
}

func (b *Bot) onBackToPage(ctx context.Context, q callback.Query) error {
	p, _ := q.Payload.(callback.BackToPagePayload)
	logger.Debug(ctx, logger.CompBrowse, "back.payload",
		slog.Int("page", p.Page),
		slog.Bool("valid", p.Valid),
	)
	view, ok, err := b.flow.Back(ctx, q.ConversationID, q.UserID)
	if err != nil || !ok {
		return err
	}
	if len(view.Page.Items) == 0 {
		return b.out.EditText(ctx, q.Message, tg.Message{Text: noRequestsText, Keyboard: historyKeyboard()})
	}
	return b.out.EditText(ctx, q.Message, tg.Message{Text: chooseText, Keyboard: listKeyboard(view.Page), Markdown: true})
}

func itemMessage(v browse.ItemView) tg.Message {
	return tg.Message{Text: detailsText(v.Item), Keyboard: itemKeyboard(v.ReturnPage), Markdown: true}
}
