package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/supportbot/core/logger"
	"github.com/m3rciful/supportbot/core/telegram/keyboard"
	"github.com/m3rciful/supportbot/core/telegram/middleware"
	"github.com/m3rciful/supportbot/core/telegram/netutil"
)

// ErrNotBound is returned by BotOutbox before Bind was called.
var ErrNotBound = errors.New("telegram: outbox not bound to a bot")

// MessageRef addresses a message already delivered to a chat. It satisfies tele.Editable.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// MessageSig implements tele.Editable.
func (r MessageRef) MessageSig() (string, int64) {
	return strconv.Itoa(r.MessageID), r.ChatID
}

// Message is an outbound text with an optional inline keyboard.
// Markdown messages are sent as MarkdownV2 and must already be escaped.
type Message struct {
	Text     string
	Keyboard keyboard.Rows
	Markdown bool
}

// Outbox is the set of transport actions handlers may perform.
// Errors are returned to the caller unchanged in meaning; nothing is retried.
type Outbox interface {
	Send(ctx context.Context, chatID int64, msg Message) (MessageRef, error)
	EditText(ctx context.Context, ref MessageRef, msg Message) error
	EditKeyboard(ctx context.Context, ref MessageRef, rows keyboard.Rows) error
	Delete(ctx context.Context, ref MessageRef) error
}

// BotAPI is the subset of *tele.Bot used by BotOutbox.
type BotAPI interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
	EditReplyMarkup(msg tele.Editable, markup *tele.ReplyMarkup) (*tele.Message, error)
	Delete(msg tele.Editable) error
}

// BotOutbox delivers messages through a bot bound at startup.
type BotOutbox struct {
	mu  sync.RWMutex
	api BotAPI
}

// NewBotOutbox returns an unbound outbox.
func NewBotOutbox() *BotOutbox {
	return &BotOutbox{}
}

// Bind sets the bot used for delivery.
func (o *BotOutbox) Bind(api BotAPI) {
	o.mu.Lock()
	o.api = api
	o.mu.Unlock()
}

func (o *BotOutbox) bot() (BotAPI, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.api == nil {
		return nil, ErrNotBound
	}
	return o.api, nil
}

func sendOptions(msg Message) *tele.SendOptions {
	opts := &tele.SendOptions{}
	if msg.Markdown {
		opts.ParseMode = tele.ModeMarkdownV2
	}
	if len(msg.Keyboard) > 0 {
		opts.ReplyMarkup = msg.Keyboard.Markup()
	}
	return opts
}

// Send delivers a new message to chatID.
func (o *BotOutbox) Send(ctx context.Context, chatID int64, msg Message) (MessageRef, error) {
	var ref MessageRef
	err := o.do(ctx, "send", msg.Keyboard, func(api BotAPI) error {
		sent, err := api.Send(tele.ChatID(chatID), msg.Text, sendOptions(msg))
		if err != nil {
			return err
		}
		ref = MessageRef{ChatID: chatID, MessageID: sent.ID}
		if sent.Chat != nil {
			ref.ChatID = sent.Chat.ID
		}
		return nil
	})
	return ref, err
}

// EditText replaces text and keyboard of ref. An empty keyboard removes buttons.
func (o *BotOutbox) EditText(ctx context.Context, ref MessageRef, msg Message) error {
	return o.do(ctx, "edit_text", msg.Keyboard, func(api BotAPI) error {
		opts := sendOptions(msg)
		if opts.ReplyMarkup == nil {
			opts.ReplyMarkup = msg.Keyboard.Markup()
		}
		_, err := api.Edit(ref, msg.Text, opts)
		return err
	})
}

// EditKeyboard replaces only the inline keyboard of ref.
func (o *BotOutbox) EditKeyboard(ctx context.Context, ref MessageRef, rows keyboard.Rows) error {
	return o.do(ctx, "edit_keyboard", rows, func(api BotAPI) error {
		_, err := api.EditReplyMarkup(ref, rows.Markup())
		return err
	})
}

// Delete removes ref from the chat.
func (o *BotOutbox) Delete(ctx context.Context, ref MessageRef) error {
	return o.do(ctx, "delete", nil, func(api BotAPI) error {
		return api.Delete(ref)
	})
}

func (o *BotOutbox) do(ctx context.Context, op string, rows keyboard.Rows, fn func(BotAPI) error) error {
	api, err := o.bot()
	if err != nil {
		return err
	}
	start := time.Now()
	err = fn(api)
	if isNotModified(err) {
		logger.Debug(ctx, logger.CompOutbox, op, slog.String("status", "skip"), slog.String("reason", "not_modified"))
		return nil
	}
	if err != nil {
		logger.Warn(ctx, logger.CompOutbox, op,
			slog.String("status", "fail"),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", netutil.Redact(err)),
			slog.String("err_code", netutil.Classify(err)),
		)
		return fmt.Errorf("telegram: %s: %w", op, err)
	}
	if op != "delete" {
		middleware.CountersFrom(ctx).Add(len(rows) > 0)
	}
	logger.Debug(ctx, logger.CompOutbox, op,
		slog.String("status", "ok"),
		slog.Duration("duration", logger.Took(start)),
		slog.Int("buttons", len(rows.Buttons())),
	)
	return nil
}

// isNotModified reports Telegram's refusal to apply an edit identical to the current content.
func isNotModified(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}
